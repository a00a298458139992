package backup

import (
	"context"
	"fmt"
	"time"

	"github.com/2beens/notesbox/internal/notes_box"

	log "github.com/sirupsen/logrus"
)

type notesLister interface {
	List(ctx context.Context) ([]notes_box.Note, error)
}

// Sink stores an encoded snapshot under the given name and reports where it ended up.
type Sink interface {
	Store(ctx context.Context, name, contentType string, data []byte) (string, error)
}

type Service struct {
	notes  notesLister
	sink   Sink
	format string
	now    func() time.Time
}

func NewService(notes notesLister, sink Sink, format string) (*Service, error) {
	if format != FormatJSON && format != FormatYAML {
		return nil, fmt.Errorf("unsupported snapshot format: %s", format)
	}
	return &Service{
		notes:  notes,
		sink:   sink,
		format: format,
		now:    time.Now,
	}, nil
}

func (s *Service) Run(ctx context.Context) (string, error) {
	notes, err := s.notes.List(ctx)
	if err != nil {
		return "", fmt.Errorf("list notes: %w", err)
	}

	now := s.now()
	data, err := NewSnapshot(notes, now).Encode(s.format)
	if err != nil {
		return "", fmt.Errorf("encode snapshot: %w", err)
	}

	location, err := s.sink.Store(ctx, SnapshotName(now, s.format), contentType(s.format), data)
	if err != nil {
		return "", fmt.Errorf("store snapshot: %w", err)
	}

	log.Infof("backup of %d notes stored: %s", len(notes), location)
	return location, nil
}
