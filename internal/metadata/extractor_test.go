package metadata

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

// id3v23 assembles a minimal ID3v2.3 tag from raw frames. The header size
// is syncsafe, frame sizes are plain big-endian per the 2.3 format.
func id3v23(frames ...[]byte) []byte {
	body := bytes.Join(frames, nil)
	n := len(body)
	header := []byte{
		'I', 'D', '3', 0x03, 0x00, 0x00,
		byte(n>>21) & 0x7f, byte(n>>14) & 0x7f, byte(n>>7) & 0x7f, byte(n) & 0x7f,
	}
	return append(header, body...)
}

func frame(id string, payload []byte) []byte {
	n := len(payload)
	buf := append([]byte(id), byte(n>>24), byte(n>>16), byte(n>>8), byte(n), 0x00, 0x00)
	return append(buf, payload...)
}

func textFrame(id, text string) []byte {
	return frame(id, append([]byte{0x00}, text...))
}

func commFrame(desc, text string) []byte {
	payload := []byte{0x00, 'e', 'n', 'g'}
	payload = append(payload, desc...)
	payload = append(payload, 0x00)
	payload = append(payload, text...)
	return frame("COMM", payload)
}

func writeTestFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
	return path
}

func TestExtract_FullTag(t *testing.T) {
	path := writeTestFile(t, "full.mp3", id3v23(
		textFrame("TIT2", "Test Title"),
		textFrame("TPE1", "Test Artist"),
		textFrame("TALB", "Test Album"),
		textFrame("TCON", "Rock"),
		textFrame("TYER", "2001"),
		textFrame("TLEN", "215500"),
		commFrame("LastFM tags", "rock, indie"),
	))

	fields, err := NewTagExtractor().Extract(path)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}

	want := Fields{
		"title":  "Test Title",
		"artist": "Test Artist",
		"album":  "Test Album",
		"genre":  "Rock",
		"year":   "2001",
		"length": 215,
		"tags":   "rock, indie",
	}
	for key, wantVal := range want {
		if got := fields[key]; got != wantVal {
			t.Errorf("fields[%q] = %v (%T), want %v", key, got, got, wantVal)
		}
	}
}

func TestExtract_SparseTagOmitsMissingFields(t *testing.T) {
	path := writeTestFile(t, "sparse.mp3", id3v23(
		textFrame("TIT2", "Only a Title"),
	))

	fields, err := NewTagExtractor().Extract(path)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if fields["title"] != "Only a Title" {
		t.Errorf("title = %v", fields["title"])
	}
	for _, key := range []string{"artist", "album", "genre", "year", "length", "tags"} {
		if _, ok := fields[key]; ok {
			t.Errorf("fields[%q] present, want omitted", key)
		}
	}
}

func TestExtract_LastFMPrefixInCommentText(t *testing.T) {
	path := writeTestFile(t, "prefixed.mp3", id3v23(
		textFrame("TIT2", "X"),
		commFrame("", "LastFM tags: jazz, fusion"),
	))

	fields, err := NewTagExtractor().Extract(path)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if got := fields["tags"]; got != "jazz, fusion" {
		t.Errorf("tags = %v, want %q", got, "jazz, fusion")
	}
}

func TestExtract_NoTags(t *testing.T) {
	// Large enough that the ID3v1 fallback probe at the file tail works.
	path := writeTestFile(t, "untagged.mp3", bytes.Repeat([]byte{'x'}, 256))

	fields, err := NewTagExtractor().Extract(path)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(fields) != 0 {
		t.Errorf("fields = %v, want empty", fields)
	}
}

func TestExtract_MissingFile(t *testing.T) {
	if _, err := NewTagExtractor().Extract(filepath.Join(t.TempDir(), "gone.mp3")); err == nil {
		t.Error("Extract succeeded on missing file")
	}
}
