package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/pflag"

	"github.com/ozora-ogino/spotify-dlx/backend"
)

const banner = `
 ___ ___  ___ _____ ___ _____   __  ___  _   __  __
/ __| _ \/ _ \_   _|_ _| __\ \ / / |   \| |  \ \/ /
\__ \  _/ (_) || |  | || _| \ V /  | |) | |__ >  <
|___/_|  \___/ |_| |___|_|   |_|   |___/|____/_/\_\
`

func main() {
	if err := run(); err != nil {
		backend.Error("Error: %v", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath     = pflag.StringP("config", "c", "", "Path to the YAML config file")
		root           = pflag.String("root", "", "Root directory for downloaded songs")
		rootPodcast    = pflag.String("root-podcast", "", "Root directory for downloaded podcasts")
		rawURL         = pflag.String("url", "", "Track/album/playlist/episode URL or URI to download")
		disableSkip    = pflag.Bool("disable-skip", false, "Re-download files that already exist")
		liked          = pflag.Bool("liked", false, "Download all songs you have liked")
		fromPlaylist   = pflag.Bool("playlist", false, "Pick one of your playlists and download it")
		format         = pflag.String("format", "", "Output format: mp3, flac or ogg")
		filenameFormat = pflag.String("filename-format", "", "Filename preset (artist-title, title) or template with {title}, {artist}, ...")
		embedLyrics    = pflag.Bool("embed-lyrics", false, "Fetch lyrics and embed them into downloads")
		limit          = pflag.IntP("limit", "l", 0, "Result limit per category in search mode")
		showHistory    = pflag.Bool("history", false, "List the download history and exit")
		installFFmpeg  = pflag.Bool("install-ffmpeg", false, "Download a static ffmpeg build into the config directory and exit")
		showHelp       = pflag.BoolP("help", "h", false, "Show this help message")
	)
	pflag.Parse()

	if *showHelp {
		pflag.Usage()
		return nil
	}

	if *installFFmpeg {
		return backend.InstallFFmpeg()
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}

	// Flags win over the config file.
	if *root != "" {
		cfg.Root = *root
	}
	if *rootPodcast != "" {
		cfg.PodcastRoot = *rootPodcast
	}
	if *format != "" {
		cfg.Format = *format
	}
	if *filenameFormat != "" {
		cfg.FilenameFormat = *filenameFormat
	}
	if *disableSkip {
		cfg.DisableSkip = true
	}
	if *embedLyrics {
		cfg.EmbedLyrics = true
	}
	if *limit > 0 {
		cfg.SearchLimit = *limit
	}

	outFormat, err := backend.ParseFormat(cfg.Format)
	if err != nil {
		return err
	}

	if *showHistory {
		return printHistory(cfg)
	}

	color.Green(banner)

	if outFormat != backend.FormatOGG && !backend.IsFFmpegInstalled() {
		if err := offerFFmpegInstall(); err != nil {
			return err
		}
	}

	session, err := login(cfg)
	if err != nil {
		return err
	}

	ctx := context.Background()
	client := backend.NewSpotifyClient(session)

	if me, err := client.Me(ctx); err != nil {
		backend.Warn("Warning: could not read account profile, assuming free tier: %v", err)
	} else if me.Product == "premium" {
		session.SetQuality(backend.QualityVeryHigh)
	}

	history, err := backend.OpenHistory(cfg.HistoryPath)
	if err != nil {
		backend.Warn("Warning: download history disabled: %v", err)
		history = nil
	} else {
		defer history.Close()
	}

	dl, err := backend.NewDownloader(session, client, history, cfg)
	if err != nil {
		return err
	}

	switch {
	case *fromPlaylist:
		return runPlaylistPicker(ctx, client, dl)
	case *liked:
		return dl.DownloadLikedSongs(ctx)
	case *rawURL != "":
		return dl.DownloadFromLink(ctx, *rawURL)
	default:
		return runSearch(ctx, client, dl, cfg.SearchLimit)
	}
}

func loadConfig(path string) (*backend.Config, error) {
	if path != "" {
		return backend.LoadConfigFile(path)
	}
	defaultPath, err := backend.DefaultConfigPath()
	if err != nil {
		return nil, err
	}
	return backend.LoadConfig(defaultPath)
}

// login tries the cached credential blob, then env vars, then an
// interactive prompt; a fresh password login persists the reusable blob.
func login(cfg *backend.Config) (*backend.Session, error) {
	if _, err := os.Stat(cfg.CredentialsPath); err == nil {
		session, err := backend.LoginSaved(cfg.CredentialsPath)
		if err == nil {
			backend.Info("Credentials loaded from cache ✨")
			return session, nil
		}
		backend.Warn("Warning: cached credentials rejected, falling back to password login: %v", err)
	}

	username := os.Getenv("SPOTIFY_USERNAME")
	password := os.Getenv("SPOTIFY_PASSWORD")

	if username != "" && password != "" {
		backend.Info("Credentials loaded from env vars ✨")
	} else {
		if err := survey.AskOne(&survey.Input{Message: "Username:"}, &username, survey.WithValidator(survey.Required)); err != nil {
			return nil, err
		}
		if err := survey.AskOne(&survey.Password{Message: "Password:"}, &password, survey.WithValidator(survey.Required)); err != nil {
			return nil, err
		}
	}

	session, err := backend.Login(username, password)
	if err != nil {
		return nil, fmt.Errorf("failed to login, check if your username and password are correct: %w", err)
	}

	if err := session.SaveCredentials(cfg.CredentialsPath); err != nil {
		backend.Warn("Warning: failed to cache credentials: %v", err)
	}
	return session, nil
}

func offerFFmpegInstall() error {
	install := false
	prompt := &survey.Confirm{
		Message: "ffmpeg was not found. Download a static build now?",
		Default: true,
	}
	if err := survey.AskOne(prompt, &install); err != nil {
		return err
	}
	if !install {
		return fmt.Errorf("ffmpeg is required for mp3/flac output, use --format ogg to skip conversion")
	}
	return backend.InstallFFmpeg()
}

// runPlaylistPicker lists the user's playlists and downloads the chosen one.
func runPlaylistPicker(ctx context.Context, client *backend.SpotifyClient, dl *backend.Downloader) error {
	playlists, err := client.MyPlaylists(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch your playlists: %w", err)
	}
	if len(playlists) == 0 {
		backend.Info("You have no playlists.")
		return nil
	}

	options := make([]string, len(playlists))
	for i, pl := range playlists {
		label := pl.Name
		if pl.Owner.DisplayName != "" {
			label = fmt.Sprintf("%s (%s)", pl.Name, pl.Owner.DisplayName)
		}
		options[i] = fmt.Sprintf("%d. %s", i+1, label)
	}

	var selected string
	if err := survey.AskOne(&survey.Select{
		Message:  "Select a playlist:",
		Options:  options,
		PageSize: 15,
	}, &selected); err != nil {
		return err
	}

	idx, err := strconv.Atoi(strings.SplitN(selected, ".", 2)[0])
	if err != nil || idx < 1 || idx > len(playlists) {
		return fmt.Errorf("invalid playlist selection: %q", selected)
	}

	return dl.DownloadPlaylist(ctx, playlists[idx-1].ID)
}

// runSearch queries the catalog and presents tracks, albums and playlists
// in one numbered table; a single index spanning the three categories
// picks what to download.
func runSearch(ctx context.Context, client *backend.SpotifyClient, dl *backend.Downloader, limit int) error {
	var query string
	if err := survey.AskOne(&survey.Input{Message: "Enter search:"}, &query, survey.WithValidator(survey.Required)); err != nil {
		return err
	}

	results, err := client.Search(ctx, query, limit)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}
	if results.Empty() {
		backend.Info("No results...")
		return nil
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"#", "Type", "Name", "Artist / Owner"})
	table.SetBorder(false)

	index := 1
	for _, t := range results.Tracks {
		table.Append([]string{strconv.Itoa(index), "track", t.Name, joinArtists(t.Artists)})
		index++
	}
	for _, a := range results.Albums {
		table.Append([]string{strconv.Itoa(index), "album", a.Name, joinArtists(a.Artists)})
		index++
	}
	for _, pl := range results.Playlists {
		table.Append([]string{strconv.Itoa(index), "playlist", pl.Name, pl.Owner.DisplayName})
		index++
	}
	table.Render()
	fmt.Println()

	total := index - 1
	var answer string
	if err := survey.AskOne(&survey.Input{Message: "Select by ID:"}, &answer, survey.WithValidator(func(ans interface{}) error {
		n, err := strconv.Atoi(strings.TrimSpace(ans.(string)))
		if err != nil || n < 1 || n > total {
			return fmt.Errorf("enter a number between 1 and %d", total)
		}
		return nil
	})); err != nil {
		return err
	}
	choice, _ := strconv.Atoi(strings.TrimSpace(answer))

	switch {
	case choice <= len(results.Tracks):
		return dl.DownloadTrack(ctx, results.Tracks[choice-1].ID, "")
	case choice <= len(results.Tracks)+len(results.Albums):
		return dl.DownloadAlbum(ctx, results.Albums[choice-1-len(results.Tracks)].ID)
	default:
		return dl.DownloadPlaylist(ctx, results.Playlists[choice-1-len(results.Tracks)-len(results.Albums)].ID)
	}
}

func joinArtists(artists []backend.Artist) string {
	names := make([]string, 0, len(artists))
	for _, a := range artists {
		names = append(names, a.Name)
	}
	return strings.Join(names, ", ")
}

func printHistory(cfg *backend.Config) error {
	history, err := backend.OpenHistory(cfg.HistoryPath)
	if err != nil {
		return err
	}
	defer history.Close()

	entries, err := history.List()
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		backend.Info("No downloads recorded yet.")
		return nil
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"When", "Kind", "Artist", "Title", "Format", "Path"})
	table.SetBorder(false)
	for _, e := range entries {
		table.Append([]string{
			e.CreatedAt.Format("2006-01-02 15:04"),
			e.Kind,
			e.Artist,
			e.Title,
			e.Format,
			e.Path,
		})
	}
	table.Render()
	return nil
}
