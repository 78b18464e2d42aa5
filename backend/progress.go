package backend

import (
	"io"

	"github.com/schollz/progressbar/v3"
)

// ProgressWriter mirrors writes into a byte-count progress bar. The
// streaming backend does not announce stream sizes, so the bar runs in
// spinner mode.
type ProgressWriter struct {
	dst   io.Writer
	bar   *progressbar.ProgressBar
	total int64
}

func NewProgressWriter(dst io.Writer, label string) *ProgressWriter {
	return &ProgressWriter{
		dst: dst,
		bar: progressbar.DefaultBytes(-1, label),
	}
}

func (p *ProgressWriter) Write(b []byte) (int, error) {
	n, err := p.dst.Write(b)
	if n > 0 {
		p.total += int64(n)
		_ = p.bar.Add(n)
	}
	return n, err
}

// Total is the number of bytes written so far.
func (p *ProgressWriter) Total() int64 { return p.total }

// Finish clears the bar line.
func (p *ProgressWriter) Finish() { _ = p.bar.Finish() }
