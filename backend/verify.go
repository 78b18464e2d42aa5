package backend

import (
	"fmt"

	"github.com/mewkiz/flac"
)

// StreamInfo summarizes a verified FLAC stream.
type StreamInfo struct {
	SampleRate    uint32
	Channels      uint8
	BitsPerSample uint8
	Seconds       float64
}

func (s *StreamInfo) String() string {
	return fmt.Sprintf("%d-bit / %.1f kHz, %d channel(s), %.0fs",
		s.BitsPerSample, float64(s.SampleRate)/1000, s.Channels, s.Seconds)
}

// VerifyFLAC parses the stream headers of a freshly converted file to make
// sure ffmpeg produced a well-formed FLAC, and reports its parameters.
func VerifyFLAC(path string) (*StreamInfo, error) {
	stream, err := flac.ParseFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to parse FLAC stream: %w", err)
	}
	defer stream.Close()

	info := stream.Info
	if info == nil || info.SampleRate == 0 {
		return nil, fmt.Errorf("FLAC stream has no usable stream info")
	}

	return &StreamInfo{
		SampleRate:    info.SampleRate,
		Channels:      info.NChannels,
		BitsPerSample: info.BitsPerSample,
		Seconds:       float64(info.NSamples) / float64(info.SampleRate),
	}, nil
}
