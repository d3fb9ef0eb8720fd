package metadata

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/dhowden/tag"
)

// lastFMPrefix marks free-text tag lists embedded in comment frames.
const lastFMPrefix = "LastFM tags:"

// Fields is a flat mapping of track metadata field names to values.
// Recognized keys: length (int, seconds), artist, title, album, genre,
// year and tags (strings). Absent fields are omitted entirely.
type Fields map[string]any

// Extractor produces a metadata field mapping for an audio file.
type Extractor interface {
	Extract(path string) (Fields, error)
}

// TagExtractor reads metadata using format detection from the tag library:
// ID3v1/v2 for MP3, vorbis comments for FLAC/OGG and atoms for MP4
// containers are each handled by their own parsing strategy.
type TagExtractor struct{}

// NewTagExtractor creates a TagExtractor.
func NewTagExtractor() *TagExtractor {
	return &TagExtractor{}
}

// Extract reads the tags of the file at path. A file without any readable
// tags yields an empty mapping and no error; callers drop such files.
func (e *TagExtractor) Extract(path string) (Fields, error) {
	f, err := os.Open(path) //nolint:gosec // G304: path comes from the scanned library root
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close() //nolint:errcheck

	m, err := tag.ReadFrom(f)
	if err != nil {
		if errors.Is(err, tag.ErrNoTagsFound) {
			return Fields{}, nil
		}
		return nil, fmt.Errorf("reading tags from %s: %w", path, err)
	}

	fields := Fields{}
	setString(fields, "artist", m.Artist())
	setString(fields, "title", m.Title())
	setString(fields, "album", m.Album())
	setString(fields, "genre", m.Genre())
	if y := m.Year(); y != 0 {
		fields["year"] = strconv.Itoa(y)
	}
	if secs, ok := trackLength(m); ok {
		fields["length"] = secs
	}
	if tags, ok := freeTextTags(m); ok {
		fields["tags"] = tags
	}

	return fields, nil
}

func setString(fields Fields, key, value string) {
	if value = strings.TrimSpace(value); value != "" {
		fields[key] = value
	}
}

// trackLength recovers the track duration in whole seconds from an ID3
// TLEN frame (stored in milliseconds). Containers without such a frame
// simply omit the field.
func trackLength(m tag.Metadata) (int, bool) {
	for _, key := range []string{"TLEN", "TLE"} {
		raw, ok := m.Raw()[key]
		if !ok {
			continue
		}
		s, ok := raw.(string)
		if !ok {
			continue
		}
		ms, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil || ms <= 0 {
			continue
		}
		return ms / 1000, true
	}
	return 0, false
}

// freeTextTags looks for a "LastFM tags:" marker in the comment frames and
// returns the text after it. ID3 comments arrive as COMM frames with a
// description, vorbis and MP4 comments as plain strings.
func freeTextTags(m tag.Metadata) (string, bool) {
	for _, raw := range m.Raw() {
		var desc, text string
		switch v := raw.(type) {
		case *tag.Comm:
			desc, text = v.Description, v.Text
		case tag.Comm:
			desc, text = v.Description, v.Text
		case string:
			text = v
		default:
			continue
		}

		if desc == "LastFM tags" {
			return strings.TrimSpace(strings.TrimPrefix(text, lastFMPrefix)), true
		}
		if idx := strings.Index(text, lastFMPrefix); idx >= 0 {
			return strings.TrimSpace(text[idx+len(lastFMPrefix):]), true
		}
	}
	return "", false
}
