package notes_box

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

// memLegacyStore mimics a collection with a unique serial index
type memLegacyStore struct {
	docs   []bson.M
	writes int
}

func (s *memLegacyStore) AllDocuments(context.Context) ([]bson.M, error) {
	return s.docs, nil
}

func (s *memLegacyStore) SetFields(_ context.Context, id any, fields bson.M) error {
	var target bson.M
	for _, d := range s.docs {
		if d["_id"] == id {
			target = d
		}
	}
	if target == nil {
		return fmt.Errorf("no document %v", id)
	}

	if serial, ok := fields["serial"]; ok {
		for _, d := range s.docs {
			if d["_id"] != id && d["serial"] == serial {
				return errors.New("E11000 duplicate key error collection: notes.notes index: serial_1")
			}
		}
	}

	for k, v := range fields {
		target[k] = v
	}
	s.writes++
	return nil
}

func TestNormalizeDocument(t *testing.T) {
	fields := NormalizeDocument(3, bson.M{"_id": "x"})
	assert.Equal(t, bson.M{
		"serial":    3,
		"title":     "Untitled Note 3",
		"note":      DefaultNoteBody,
		"important": false,
		"category":  DefaultCategory,
		"tags":      bson.A{},
	}, fields)

	complete := bson.M{
		"_id":       "y",
		"serial":    int32(2),
		"title":     "t",
		"note":      "n",
		"important": true,
		"category":  "c",
		"tags":      bson.A{"a"},
	}
	assert.Empty(t, NormalizeDocument(2, complete))

	partial := bson.M{
		"_id":       "z",
		"serial":    int64(7),
		"title":     "",
		"note":      "kept",
		"important": false,
		"category":  "",
		"tags":      "a,b",
	}
	assert.Equal(t, bson.M{
		"serial":   1,
		"title":    "Untitled Note 1",
		"category": DefaultCategory,
		"tags":     bson.A{},
	}, NormalizeDocument(1, partial))
}

func TestBackfill_EmptyCollection(t *testing.T) {
	store := &memLegacyStore{}
	res, err := Backfill(context.Background(), store, false)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Scanned)
	assert.Equal(t, 0, res.Updated)
	assert.Equal(t, 0, store.writes)
}

func TestBackfill_RenumbersWithoutCollisions(t *testing.T) {
	store := &memLegacyStore{docs: []bson.M{
		{"_id": "a", "serial": int32(2), "title": "first", "note": "n", "important": false, "category": "c", "tags": bson.A{}},
		{"_id": "b", "serial": int32(1), "title": "second"},
		{"_id": "c", "note": "third"},
	}}

	res, err := Backfill(context.Background(), store, false)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Scanned)
	assert.Equal(t, 3, res.Updated)

	for i, d := range store.docs {
		assert.Equal(t, i+1, d["serial"])
		assert.NotEmpty(t, d["title"])
		assert.NotEmpty(t, d["note"])
		assert.Contains(t, d, "important")
		assert.NotEmpty(t, d["category"])
		assert.IsType(t, bson.A{}, d["tags"])
	}
	assert.Equal(t, "first", store.docs[0]["title"])
	assert.Equal(t, "Untitled Note 3", store.docs[2]["title"])
	assert.Equal(t, DefaultNoteBody, store.docs[1]["note"])
}

func TestBackfill_DryRun(t *testing.T) {
	store := &memLegacyStore{docs: []bson.M{
		{"_id": "a", "title": "t"},
	}}

	res, err := Backfill(context.Background(), store, true)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Updated)
	require.Len(t, res.Plans, 1)
	assert.Equal(t, "a", res.Plans[0].DocumentID)
	assert.Equal(t, 0, store.writes)
	assert.NotContains(t, store.docs[0], "serial")
}
