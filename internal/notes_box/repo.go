package notes_box

import (
	"errors"
	"sort"
)

const maxAddAttempts = 5

var (
	ErrNoteNotFound  = errors.New("note not found")
	ErrInvalidNoteID = errors.New("invalid note id")
)

// sortNotes orders important notes first, then by serial
func sortNotes(notes []Note) {
	sort.SliceStable(notes, func(i, j int) bool {
		if notes[i].Important != notes[j].Important {
			return notes[i].Important
		}
		return notes[i].Serial < notes[j].Serial
	})
}

func withDefaults(note Note) Note {
	if note.Category == "" {
		note.Category = DefaultCategory
	}
	if note.Tags == nil {
		note.Tags = []string{}
	}
	return note
}
