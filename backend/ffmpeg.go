package backend

import (
	"archive/tar"
	"archive/zip"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/schollz/progressbar/v3"
	"github.com/ulikunitz/xz"
)

const (
	ffmpegWindowsURL = "https://github.com/afkarxyz/ffmpeg-binaries/releases/download/v8.0/ffmpeg-windows-amd64.zip"
	ffmpegLinuxURL   = "https://github.com/afkarxyz/ffmpeg-binaries/releases/download/v8.0/ffmpeg-linux-amd64.tar.xz"
)

// ValidateExecutable rejects paths that do not point at a real ffmpeg or
// ffprobe binary before we exec them.
func ValidateExecutable(path string) error {
	cleanedPath := filepath.Clean(path)
	if cleanedPath == "" {
		return fmt.Errorf("empty path")
	}

	if !filepath.IsAbs(cleanedPath) {
		return fmt.Errorf("path must be absolute: %s", path)
	}

	info, err := os.Stat(cleanedPath)
	if err != nil {
		return fmt.Errorf("failed to stat file: %w", err)
	}

	if info.IsDir() {
		return fmt.Errorf("path is a directory: %s", path)
	}

	if runtime.GOOS != "windows" {
		if info.Mode()&0111 == 0 {
			return fmt.Errorf("file is not executable: %s", path)
		}
	}

	validNames := map[string]bool{
		"ffmpeg":      true,
		"ffmpeg.exe":  true,
		"ffprobe":     true,
		"ffprobe.exe": true,
	}
	if base := filepath.Base(cleanedPath); !validNames[base] {
		return fmt.Errorf("invalid executable name: %s", base)
	}

	return nil
}

// GetFFmpegPath prefers a binary installed under the config dir and falls
// back to PATH.
func GetFFmpegPath() (string, error) {
	return findTool("ffmpeg")
}

func GetFFprobePath() (string, error) {
	return findTool("ffprobe")
}

func findTool(name string) (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}

	if runtime.GOOS == "windows" {
		name += ".exe"
	}

	localPath := filepath.Join(dir, name)
	if _, err := os.Stat(localPath); err == nil {
		return localPath, nil
	}

	if path, err := exec.LookPath(name); err == nil {
		return path, nil
	}

	return localPath, nil
}

// IsFFmpegInstalled reports whether a runnable ffmpeg was found.
func IsFFmpegInstalled() bool {
	path, err := GetFFmpegPath()
	if err != nil {
		return false
	}
	if err := ValidateExecutable(path); err != nil {
		return false
	}

	cmd := exec.Command(path, "-version")
	setHideWindow(cmd)
	return cmd.Run() == nil
}

// InstallFFmpeg downloads a static ffmpeg build into the config dir.
func InstallFFmpeg() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	var url string
	switch runtime.GOOS {
	case "windows":
		url = ffmpegWindowsURL
	case "linux":
		url = ffmpegLinuxURL
	default:
		return fmt.Errorf("no ffmpeg build available for %s, install it from your package manager", runtime.GOOS)
	}

	Info("Downloading ffmpeg from %s", url)
	return downloadAndExtract(url, dir)
}

func downloadAndExtract(url, destDir string) error {
	tmpFile, err := os.CreateTemp("", "ffmpeg-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmpFile.Name())
	defer tmpFile.Close()

	resp, err := http.Get(url)
	if err != nil {
		return fmt.Errorf("failed to download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to download: HTTP %d", resp.StatusCode)
	}

	bar := progressbar.DefaultBytes(resp.ContentLength, "ffmpeg")
	if _, err := io.Copy(io.MultiWriter(tmpFile, bar), resp.Body); err != nil {
		return fmt.Errorf("failed to write download: %w", err)
	}
	tmpFile.Close()

	if strings.HasSuffix(url, ".tar.xz") {
		return extractTarXz(tmpFile.Name(), destDir)
	}
	return extractZip(tmpFile.Name(), destDir)
}

func extractZip(zipPath, destDir string) error {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return fmt.Errorf("failed to open zip: %w", err)
	}
	defer r.Close()

	found := false
	for _, f := range r.File {
		if f.FileInfo().IsDir() {
			continue
		}

		destPath, ok := toolDestPath(destDir, filepath.Base(f.Name))
		if !ok {
			continue
		}

		rc, err := f.Open()
		if err != nil {
			return fmt.Errorf("failed to open file in zip: %w", err)
		}
		if err := writeExecutable(destPath, rc); err != nil {
			rc.Close()
			return err
		}
		rc.Close()
		found = true
	}

	if !found {
		return fmt.Errorf("neither ffmpeg nor ffprobe found in archive")
	}
	return nil
}

func extractTarXz(tarXzPath, destDir string) error {
	file, err := os.Open(tarXzPath)
	if err != nil {
		return fmt.Errorf("failed to open tar.xz: %w", err)
	}
	defer file.Close()

	xzReader, err := xz.NewReader(file)
	if err != nil {
		return fmt.Errorf("failed to create xz reader: %w", err)
	}

	tarReader := tar.NewReader(xzReader)
	found := false
	for {
		header, err := tarReader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read tar: %w", err)
		}

		if header.Typeflag != tar.TypeReg {
			continue
		}

		destPath, ok := toolDestPath(destDir, filepath.Base(header.Name))
		if !ok {
			continue
		}

		if err := writeExecutable(destPath, tarReader); err != nil {
			return err
		}
		found = true
	}

	if !found {
		return fmt.Errorf("neither ffmpeg nor ffprobe found in archive")
	}
	return nil
}

func toolDestPath(destDir, baseName string) (string, bool) {
	ffmpegName, ffprobeName := "ffmpeg", "ffprobe"
	if runtime.GOOS == "windows" {
		ffmpegName += ".exe"
		ffprobeName += ".exe"
	}
	switch baseName {
	case ffmpegName, ffprobeName:
		return filepath.Join(destDir, baseName), true
	}
	return "", false
}

func writeExecutable(destPath string, src io.Reader) error {
	out, err := os.OpenFile(destPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0755)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, src); err != nil {
		return fmt.Errorf("failed to extract file: %w", err)
	}
	return nil
}

// ConvertTrack transcodes the raw OGG Vorbis stream into the target format.
// The raw file is left in place for the caller to clean up.
func ConvertTrack(rawPath, outPath string, format Format, bitrate string) error {
	ffmpegPath, err := GetFFmpegPath()
	if err != nil {
		return fmt.Errorf("ffmpeg not found: %w", err)
	}
	if err := ValidateExecutable(ffmpegPath); err != nil {
		return fmt.Errorf("invalid ffmpeg executable: %w", err)
	}

	args := []string{"-i", rawPath, "-y"}
	switch format {
	case FormatMP3:
		args = append(args,
			"-codec:a", "libmp3lame",
			"-b:a", bitrate,
			"-map", "0:a",
			"-id3v2_version", "3",
		)
	case FormatFLAC:
		args = append(args,
			"-codec:a", "flac",
			"-map", "0:a",
		)
	default:
		return fmt.Errorf("unsupported conversion target: %s", format)
	}
	args = append(args, outPath)

	cmd := exec.Command(ffmpegPath, args...)
	setHideWindow(cmd)

	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("ffmpeg conversion failed: %s - %w", strings.TrimSpace(string(output)), err)
	}
	return nil
}
