//go:build integration_test || all_tests

package notes_box

import (
	"context"
	"os"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/2beens/notesbox/internal/db"
	"github.com/2beens/notesbox/pkg"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func testMongoRepoSetup(t *testing.T) (*MongoRepo, func()) {
	t.Helper()

	timeoutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	uri := envOr("MONGO_URI", "mongodb://localhost:27017")
	t.Logf("using mongo uri: %s", uri)

	client, err := db.NewMongoClient(timeoutCtx, db.NewMongoClientParams{URI: uri})
	require.NoError(t, err)

	repo, err := NewMongoRepo(timeoutCtx, client, "notes_test", "notes")
	require.NoError(t, err)

	_, err = repo.collection.DeleteMany(timeoutCtx, bson.D{})
	require.NoError(t, err)

	return repo, func() {
		_ = client.Disconnect(context.Background())
	}
}

func testPsqlRepoSetup(t *testing.T) (*PsqlRepo, func()) {
	t.Helper()

	timeoutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	params := db.NewDBPoolParams{
		DBHost: envOr("POSTGRES_HOST", "localhost"),
		DBPort: envOr("POSTGRES_PORT", "5432"),
		DBName: "notes_test",
	}
	t.Logf("using postgres host: %s", params.DBHost)

	require.NoError(t, db.Migrate(params))
	dbPool, err := db.NewDBPool(timeoutCtx, params)
	require.NoError(t, err)

	_, err = dbPool.Exec(timeoutCtx, `DELETE FROM note`)
	require.NoError(t, err)

	return NewPsqlRepo(dbPool), func() {
		dbPool.Close()
	}
}

func fakeNote() *Note {
	return &Note{
		Title:    gofakeit.BookTitle(),
		Body:     gofakeit.Paragraph(1, 3, 12, " "),
		Category: gofakeit.Word(),
		Tags:     []string{gofakeit.Word(), gofakeit.Word()},
	}
}

func testRepoBasicCRUD(t *testing.T, repo NotesRepo, missingID string) {
	ctx := context.Background()

	notes, err := repo.List(ctx)
	require.NoError(t, err)
	require.Empty(t, notes)

	n1, err := repo.Add(ctx, fakeNote())
	require.NoError(t, err)
	assert.Equal(t, 1, n1.Serial)
	require.NotEmpty(t, n1.ID)

	n2Input := fakeNote()
	n2Input.Important = true
	n2, err := repo.Add(ctx, n2Input)
	require.NoError(t, err)
	assert.Equal(t, 2, n2.Serial)

	n3Input := fakeNote()
	n3Input.Category = ""
	n3Input.Tags = nil
	n3, err := repo.Add(ctx, n3Input)
	require.NoError(t, err)
	assert.Equal(t, 3, n3.Serial)

	notes, err = repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, notes, 3)
	assert.Equal(t, n2.ID, notes[0].ID)
	assert.Equal(t, n1.ID, notes[1].ID)
	assert.Equal(t, n3.ID, notes[2].ID)
	assert.Equal(t, DefaultCategory, notes[2].Category)
	assert.Equal(t, []string{}, notes[2].Tags)

	got, err := repo.Get(ctx, n1.ID)
	require.NoError(t, err)
	assert.Equal(t, n1.Title, got.Title)
	assert.Equal(t, n1.Body, got.Body)
	assert.Equal(t, n1.Tags, got.Tags)

	got.Title = "updated title"
	got.Important = true
	got.Tags = []string{"a", "b", "c"}
	require.NoError(t, repo.Update(ctx, got))
	updated, err := repo.Get(ctx, n1.ID)
	require.NoError(t, err)
	assert.Equal(t, "updated title", updated.Title)
	assert.True(t, updated.Important)
	assert.Equal(t, []string{"a", "b", "c"}, updated.Tags)
	assert.Equal(t, 1, updated.Serial)

	// missing ids are no-ops
	assert.NoError(t, repo.Update(ctx, &Note{ID: missingID, Title: "t", Body: "b"}))
	assert.NoError(t, repo.Delete(ctx, missingID))
	_, err = repo.Get(ctx, missingID)
	assert.ErrorIs(t, err, ErrNoteNotFound)

	_, err = repo.Get(ctx, "definitely not an id")
	assert.ErrorIs(t, err, ErrInvalidNoteID)

	require.NoError(t, repo.Delete(ctx, n3.ID))
	n4, err := repo.Add(ctx, fakeNote())
	require.NoError(t, err)
	assert.Equal(t, 3, n4.Serial)

	notes, err = repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, notes, 3)
}

func TestMongoRepo_BasicCRUD(t *testing.T) {
	repo, shutdown := testMongoRepoSetup(t)
	defer shutdown()

	testRepoBasicCRUD(t, repo, "000000000000000000000000")
}

func TestMongoRepo_LegacyDocumentsReadWithDefaults(t *testing.T) {
	repo, shutdown := testMongoRepoSetup(t)
	defer shutdown()

	ctx := context.Background()
	_, err := repo.collection.InsertOne(ctx, bson.M{
		"serial": 1,
		"title":  "legacy",
		"note":   "no optional fields",
		"tags":   "not-an-array",
	})
	require.NoError(t, err)

	notes, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.False(t, notes[0].Important)
	assert.Equal(t, DefaultCategory, notes[0].Category)
	assert.Equal(t, []string{}, notes[0].Tags)

	res, err := Backfill(ctx, NewMongoLegacyStore(repo.collection.Database().Client(), "notes_test", "notes"), false)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Scanned)
	assert.Equal(t, 1, res.Updated)

	var raw bson.M
	require.NoError(t, repo.collection.FindOne(ctx, bson.D{}).Decode(&raw))
	assert.Equal(t, false, raw["important"])
	assert.Equal(t, DefaultCategory, raw["category"])
	assert.Equal(t, bson.A{}, raw["tags"])
}

func TestPsqlRepo_BasicCRUD(t *testing.T) {
	repo, shutdown := testPsqlRepoSetup(t)
	defer shutdown()

	testRepoBasicCRUD(t, repo, "999999")
}

// With at most maxAddAttempts concurrent writers every Add loses at most
// maxAddAttempts-1 serial races, so all of them must succeed.
func testRepoConcurrentAdd(t *testing.T, repo NotesRepo) {
	ctx := context.Background()
	writers := maxAddAttempts

	var wg sync.WaitGroup
	serials := make(chan int, writers)
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			note, err := repo.Add(ctx, fakeNote())
			if err != nil {
				errs <- err
				return
			}
			serials <- note.Serial
		}()
	}
	wg.Wait()
	close(serials)
	close(errs)

	for err := range errs {
		t.Errorf("concurrent add: %s", err)
	}

	var got []int
	for s := range serials {
		got = append(got, s)
	}
	sort.Ints(got)
	expected := make([]int, writers)
	for i := range expected {
		expected[i] = i + 1
	}
	assert.Equal(t, expected, got)

	notes, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, notes, writers)
}

func TestMongoRepo_ConcurrentAdd(t *testing.T) {
	repo, shutdown := testMongoRepoSetup(t)
	defer shutdown()

	testRepoConcurrentAdd(t, repo)
}

func TestPsqlRepo_ConcurrentAdd(t *testing.T) {
	repo, shutdown := testPsqlRepoSetup(t)
	defer shutdown()

	testRepoConcurrentAdd(t, repo)
}

func TestMongoRepo_AddGivesUpAfterMaxAttempts(t *testing.T) {
	repo, shutdown := testMongoRepoSetup(t)
	defer shutdown()

	ctx := context.Background()
	indexName, err := repo.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "title", Value: 1}, {Key: "note", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("title_note_unique_test"),
	})
	require.NoError(t, err)
	defer func() {
		_, err := repo.collection.Indexes().DropOne(context.Background(), indexName)
		assert.NoError(t, err)
	}()

	_, err = repo.Add(ctx, &Note{Title: "taken", Body: "taken"})
	require.NoError(t, err)

	// every attempt collides on the test index, whatever serial it picks
	_, err = repo.Add(ctx, &Note{Title: "taken", Body: "taken"})
	require.Error(t, err)
	assert.True(t, pkg.IsDuplicateKeyError(err))

	count, err := repo.collection.CountDocuments(ctx, bson.D{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestPsqlRepo_AddGivesUpAfterMaxAttempts(t *testing.T) {
	repo, shutdown := testPsqlRepoSetup(t)
	defer shutdown()

	ctx := context.Background()
	_, err := repo.Add(ctx, fakeNote())
	require.NoError(t, err)

	// pin every new row to serial 1 so each attempt hits the unique index
	_, err = repo.db.Exec(ctx, `
		CREATE OR REPLACE FUNCTION note_pin_serial_test() RETURNS trigger AS $$
		BEGIN
			NEW.serial := 1;
			RETURN NEW;
		END;
		$$ LANGUAGE plpgsql;
		CREATE TRIGGER note_pin_serial_test BEFORE INSERT ON note
			FOR EACH ROW EXECUTE FUNCTION note_pin_serial_test();
	`)
	require.NoError(t, err)
	defer func() {
		_, err := repo.db.Exec(context.Background(), `
			DROP TRIGGER IF EXISTS note_pin_serial_test ON note;
			DROP FUNCTION IF EXISTS note_pin_serial_test();
		`)
		assert.NoError(t, err)
	}()

	_, err = repo.Add(ctx, fakeNote())
	require.Error(t, err)
	assert.True(t, pkg.IsUniqueViolationError(err))

	var count int
	require.NoError(t, repo.db.QueryRow(ctx, `SELECT COUNT(*) FROM note`).Scan(&count))
	assert.Equal(t, 1, count)
}
