package notes_box

import (
	"context"
	"errors"
	"strconv"
	"sync"
)

var _ NotesRepo = (*repoMock)(nil)

type repoMock struct {
	mutex  sync.Mutex
	lastID int
	notes  map[string]*Note
}

func NewMockNotesRepo() *repoMock {
	return &repoMock{
		notes: make(map[string]*Note),
	}
}

func (r *repoMock) Add(_ context.Context, note *Note) (*Note, error) {
	if note == nil {
		return nil, errors.New("note is nil")
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	maxSerial := 0
	for _, n := range r.notes {
		if n.Serial > maxSerial {
			maxSerial = n.Serial
		}
	}

	r.lastID++
	added := withDefaults(*note)
	added.ID = strconv.Itoa(r.lastID)
	added.Serial = maxSerial + 1
	r.notes[added.ID] = &added

	note.ID = added.ID
	note.Serial = added.Serial
	return note, nil
}

func (r *repoMock) Get(_ context.Context, id string) (*Note, error) {
	if _, err := strconv.Atoi(id); err != nil {
		return nil, ErrInvalidNoteID
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	note, ok := r.notes[id]
	if !ok {
		return nil, ErrNoteNotFound
	}
	n := *note
	return &n, nil
}

func (r *repoMock) Update(_ context.Context, note *Note) error {
	if _, err := strconv.Atoi(note.ID); err != nil {
		return ErrInvalidNoteID
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	existing, ok := r.notes[note.ID]
	if !ok {
		return nil
	}
	updated := withDefaults(*note)
	updated.Serial = existing.Serial
	r.notes[note.ID] = &updated
	return nil
}

func (r *repoMock) Delete(_ context.Context, id string) error {
	if _, err := strconv.Atoi(id); err != nil {
		return ErrInvalidNoteID
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	delete(r.notes, id)
	return nil
}

func (r *repoMock) List(context.Context) ([]Note, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	notes := make([]Note, 0, len(r.notes))
	for _, n := range r.notes {
		notes = append(notes, *n)
	}
	sortNotes(notes)
	return notes, nil
}
