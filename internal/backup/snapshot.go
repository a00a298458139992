package backup

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/2beens/notesbox/internal/notes_box"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

type Snapshot struct {
	CreatedAt time.Time        `json:"created_at" yaml:"created_at"`
	Total     int              `json:"total" yaml:"total"`
	Notes     []notes_box.Note `json:"notes" yaml:"notes"`
}

func NewSnapshot(notes []notes_box.Note, now time.Time) *Snapshot {
	if notes == nil {
		notes = []notes_box.Note{}
	}
	return &Snapshot{
		CreatedAt: now.UTC(),
		Total:     len(notes),
		Notes:     notes,
	}
}

func (s *Snapshot) Encode(format string) ([]byte, error) {
	switch format {
	case FormatJSON:
		return json.MarshalIndent(s, "", "  ")
	case FormatYAML:
		return yaml.Marshal(s)
	}
	return nil, fmt.Errorf("unsupported snapshot format: %s", format)
}

func DecodeSnapshot(format string, data []byte) (*Snapshot, error) {
	var s Snapshot
	switch format {
	case FormatJSON:
		if err := json.Unmarshal(data, &s); err != nil {
			return nil, fmt.Errorf("decode json snapshot: %w", err)
		}
	case FormatYAML:
		if err := yaml.Unmarshal(data, &s); err != nil {
			return nil, fmt.Errorf("decode yaml snapshot: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported snapshot format: %s", format)
	}
	return &s, nil
}

// SnapshotName gives names like notes-20240102T150405Z-1a2b3c4d.json
func SnapshotName(now time.Time, format string) string {
	shortID := strings.SplitN(uuid.NewString(), "-", 2)[0]
	return fmt.Sprintf("notes-%s-%s.%s", now.UTC().Format("20060102T150405Z"), shortID, format)
}

func contentType(format string) string {
	if format == FormatYAML {
		return "application/yaml"
	}
	return "application/json"
}
