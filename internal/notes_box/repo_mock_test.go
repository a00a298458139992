package notes_box

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepoMock_SerialAssignment(t *testing.T) {
	ctx := context.Background()
	repo := NewMockNotesRepo()

	n1, err := repo.Add(ctx, &Note{Title: "t1", Body: "b1"})
	require.NoError(t, err)
	assert.Equal(t, 1, n1.Serial)

	n2, err := repo.Add(ctx, &Note{Title: "t2", Body: "b2"})
	require.NoError(t, err)
	assert.Equal(t, 2, n2.Serial)

	// deleting the highest serial frees it again
	require.NoError(t, repo.Delete(ctx, n2.ID))
	n3, err := repo.Add(ctx, &Note{Title: "t3", Body: "b3"})
	require.NoError(t, err)
	assert.Equal(t, 2, n3.Serial)

	// a gap in the middle is not reused
	require.NoError(t, repo.Delete(ctx, n1.ID))
	n4, err := repo.Add(ctx, &Note{Title: "t4", Body: "b4"})
	require.NoError(t, err)
	assert.Equal(t, 3, n4.Serial)
}

func TestRepoMock_MissingIDs(t *testing.T) {
	ctx := context.Background()
	repo := NewMockNotesRepo()

	assert.NoError(t, repo.Delete(ctx, "404"))
	assert.NoError(t, repo.Update(ctx, &Note{ID: "404", Title: "t", Body: "b"}))

	notes, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, notes)

	_, err = repo.Get(ctx, "404")
	assert.ErrorIs(t, err, ErrNoteNotFound)
	_, err = repo.Get(ctx, "not-an-id")
	assert.ErrorIs(t, err, ErrInvalidNoteID)
}

func TestSortNotes(t *testing.T) {
	notes := []Note{
		{Serial: 3},
		{Serial: 4, Important: true},
		{Serial: 1},
		{Serial: 2, Important: true},
	}
	sortNotes(notes)

	var serials []int
	for _, n := range notes {
		serials = append(serials, n.Serial)
	}
	assert.Equal(t, []int{2, 4, 1, 3}, serials)
}
