package backend

import (
	"bytes"
	"testing"
)

func TestProgressWriterTracksTotal(t *testing.T) {
	var buf bytes.Buffer
	pw := NewProgressWriter(&buf, "test")

	chunks := [][]byte{[]byte("first "), []byte("second"), []byte("")}
	want := 0
	for _, c := range chunks {
		n, err := pw.Write(c)
		if err != nil {
			t.Fatalf("Write: %v", err)
		}
		if n != len(c) {
			t.Errorf("Write length: got %d, want %d", n, len(c))
		}
		want += len(c)
	}
	pw.Finish()

	if pw.Total() != int64(want) {
		t.Errorf("Total: got %d, want %d", pw.Total(), want)
	}
	if buf.String() != "first second" {
		t.Errorf("written content: got %q", buf.String())
	}
}
