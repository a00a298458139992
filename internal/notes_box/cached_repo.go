package notes_box

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/coocood/freecache"
	log "github.com/sirupsen/logrus"
)

const (
	megabyte     = 1024 * 1024
	listCacheKey = "notes::list"
)

var _ NotesRepo = (*cachedRepo)(nil)

// cachedRepo keeps the ordered notes list in memory. Every successful mutation drops it.
// A list read from the backend is kept only when no mutation finished while it was read.
type cachedRepo struct {
	repo       NotesRepo
	cache      *freecache.Cache
	ttl        int
	generation atomic.Uint64
}

func NewCachedRepo(repo NotesRepo, sizeMB int, ttl time.Duration) *cachedRepo {
	if sizeMB <= 0 {
		sizeMB = 1
	}
	return &cachedRepo{
		repo:  repo,
		cache: freecache.NewCache(sizeMB * megabyte),
		ttl:   int(ttl.Seconds()),
	}
}

func (r *cachedRepo) invalidate() {
	r.generation.Add(1)
	if affected := r.cache.Del([]byte(listCacheKey)); affected {
		log.Trace("notes list cache invalidated")
	}
}

func (r *cachedRepo) Add(ctx context.Context, note *Note) (*Note, error) {
	added, err := r.repo.Add(ctx, note)
	if err != nil {
		return nil, err
	}
	r.invalidate()
	return added, nil
}

func (r *cachedRepo) Get(ctx context.Context, id string) (*Note, error) {
	return r.repo.Get(ctx, id)
}

func (r *cachedRepo) Update(ctx context.Context, note *Note) error {
	if err := r.repo.Update(ctx, note); err != nil {
		return err
	}
	r.invalidate()
	return nil
}

func (r *cachedRepo) Delete(ctx context.Context, id string) error {
	if err := r.repo.Delete(ctx, id); err != nil {
		return err
	}
	r.invalidate()
	return nil
}

func (r *cachedRepo) List(ctx context.Context) ([]Note, error) {
	if notesBytes, err := r.cache.Get([]byte(listCacheKey)); err == nil {
		var notes []Note
		err := json.Unmarshal(notesBytes, &notes)
		if err == nil {
			log.Tracef("found %d notes in cache", len(notes))
			return notes, nil
		}
		log.Errorf("failed to unmarshal cached notes: %s", err)
	}

	generation := r.generation.Load()
	notes, err := r.repo.List(ctx)
	if err != nil {
		return nil, err
	}

	notesBytes, err := json.Marshal(notes)
	if err != nil {
		log.Errorf("failed to marshal notes for cache: %s", err)
		return notes, nil
	}
	if err := r.cache.Set([]byte(listCacheKey), notesBytes, r.ttl); err != nil {
		log.Errorf("failed to write notes list cache: %s", err)
	}
	// a mutation finished while the list was read, the cached copy may be stale
	if r.generation.Load() != generation {
		r.cache.Del([]byte(listCacheKey))
		log.Trace("notes changed during list read, dropped cached list")
	}

	return notes, nil
}
