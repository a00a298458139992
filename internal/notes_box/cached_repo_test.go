package notes_box

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingRepo struct {
	*repoMock
	listCalls int
}

func (r *countingRepo) List(ctx context.Context) ([]Note, error) {
	r.listCalls++
	return r.repoMock.List(ctx)
}

func TestCachedRepo_ListCachedUntilMutation(t *testing.T) {
	ctx := context.Background()
	backing := &countingRepo{repoMock: NewMockNotesRepo()}
	repo := NewCachedRepo(backing, 1, time.Minute)

	added, err := repo.Add(ctx, &Note{Title: "t1", Body: "b1"})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		notes, err := repo.List(ctx)
		require.NoError(t, err)
		require.Len(t, notes, 1)
	}
	assert.Equal(t, 1, backing.listCalls)

	// update drops the cached list
	added.Title = "t1-updated"
	require.NoError(t, repo.Update(ctx, added))
	notes, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, "t1-updated", notes[0].Title)
	assert.Equal(t, 2, backing.listCalls)

	// add drops it too
	_, err = repo.Add(ctx, &Note{Title: "t2", Body: "b2", Important: true})
	require.NoError(t, err)
	notes, err = repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, notes, 2)
	assert.Equal(t, "t2", notes[0].Title)
	assert.Equal(t, 3, backing.listCalls)

	// and delete
	require.NoError(t, repo.Delete(ctx, added.ID))
	notes, err = repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, 4, backing.listCalls)
}

func TestCachedRepo_FailedMutationKeepsCache(t *testing.T) {
	ctx := context.Background()
	backing := &countingRepo{repoMock: NewMockNotesRepo()}
	repo := NewCachedRepo(backing, 1, time.Minute)

	_, err := repo.List(ctx)
	require.NoError(t, err)

	assert.ErrorIs(t, repo.Delete(ctx, "not-a-number"), ErrInvalidNoteID)
	_, err = repo.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, backing.listCalls)
}

// blockingListRepo holds List after the backend read until released.
type blockingListRepo struct {
	*repoMock
	listed  chan struct{}
	release chan struct{}
}

func (r *blockingListRepo) List(ctx context.Context) ([]Note, error) {
	notes, err := r.repoMock.List(ctx)
	if r.listed != nil {
		r.listed <- struct{}{}
		<-r.release
	}
	return notes, err
}

func TestCachedRepo_MutationDuringListDropsReadList(t *testing.T) {
	ctx := context.Background()
	backing := &blockingListRepo{
		repoMock: NewMockNotesRepo(),
		listed:   make(chan struct{}),
		release:  make(chan struct{}),
	}
	repo := NewCachedRepo(backing, 1, time.Minute)

	done := make(chan []Note)
	go func() {
		notes, err := repo.List(ctx)
		assert.NoError(t, err)
		done <- notes
	}()

	<-backing.listed
	_, err := repo.Add(ctx, &Note{Title: "t1", Body: "b1"})
	require.NoError(t, err)
	close(backing.release)
	assert.Empty(t, <-done)

	backing.listed = nil
	notes, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, "t1", notes[0].Title)
}
