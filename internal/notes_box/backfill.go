package notes_box

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const DefaultNoteBody = "No description provided."

// legacyNotesStore gives raw access to stored note documents, bypassing the Note read defaults.
type legacyNotesStore interface {
	AllDocuments(ctx context.Context) ([]bson.M, error)
	SetFields(ctx context.Context, id any, fields bson.M) error
}

type BackfillPlan struct {
	DocumentID any
	Fields     bson.M
}

type BackfillResult struct {
	Scanned int
	Updated int
	Plans   []BackfillPlan
}

// NormalizeDocument returns the fields that have to be set on the i-th (1-based) document,
// so it gets a contiguous serial and every field a note needs.
func NormalizeDocument(i int, doc bson.M) bson.M {
	fields := bson.M{}

	if serial, ok := intValue(doc["serial"]); !ok || serial != i {
		fields["serial"] = i
	}
	if isEmptyValue(doc["title"]) {
		fields["title"] = fmt.Sprintf("Untitled Note %d", i)
	}
	if isEmptyValue(doc["note"]) {
		fields["note"] = DefaultNoteBody
	}
	if _, ok := doc["important"]; !ok {
		fields["important"] = false
	}
	if isEmptyValue(doc["category"]) {
		fields["category"] = DefaultCategory
	}
	if !isArray(doc["tags"]) {
		fields["tags"] = bson.A{}
	}

	return fields
}

// Backfill normalizes every stored document in insertion order. Serials are renumbered in
// two passes, first to temporary negative values, so the unique serial index never sees a
// duplicate in between.
func Backfill(ctx context.Context, store legacyNotesStore, dryRun bool) (*BackfillResult, error) {
	docs, err := store.AllDocuments(ctx)
	if err != nil {
		return nil, fmt.Errorf("load documents: %w", err)
	}

	result := &BackfillResult{Scanned: len(docs)}
	if len(docs) == 0 {
		log.Warn("no documents found, the notes collection is empty")
		return result, nil
	}
	log.Infof("found %d existing notes, normalizing fields", len(docs))

	for i, doc := range docs {
		fields := NormalizeDocument(i+1, doc)
		if len(fields) == 0 {
			continue
		}
		result.Plans = append(result.Plans, BackfillPlan{
			DocumentID: doc["_id"],
			Fields:     fields,
		})
	}
	result.Updated = len(result.Plans)

	if dryRun {
		for _, p := range result.Plans {
			log.Infof("[dry run] %v => %v", p.DocumentID, p.Fields)
		}
		return result, nil
	}

	for _, p := range result.Plans {
		serial, ok := p.Fields["serial"].(int)
		if !ok {
			continue
		}
		if err := store.SetFields(ctx, p.DocumentID, bson.M{"serial": -serial}); err != nil {
			return nil, fmt.Errorf("set temporary serial on %v: %w", p.DocumentID, err)
		}
	}

	for _, p := range result.Plans {
		if err := store.SetFields(ctx, p.DocumentID, p.Fields); err != nil {
			return nil, fmt.Errorf("normalize %v: %w", p.DocumentID, err)
		}
	}

	log.Infof("all documents normalized: scanned %d, updated %d", result.Scanned, result.Updated)
	return result, nil
}

func isEmptyValue(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return val == ""
	case bool:
		return !val
	case int32:
		return val == 0
	case int64:
		return val == 0
	case int:
		return val == 0
	case float64:
		return val == 0
	case bson.A:
		return len(val) == 0
	case []any:
		return len(val) == 0
	case bson.M:
		return len(val) == 0
	case bson.D:
		return len(val) == 0
	}
	return false
}

func isArray(v any) bool {
	switch v.(type) {
	case bson.A, []any, []string:
		return true
	}
	return false
}

func intValue(v any) (int, bool) {
	switch val := v.(type) {
	case int:
		return val, true
	case int32:
		return int(val), true
	case int64:
		return int(val), true
	case float64:
		if val == float64(int(val)) {
			return int(val), true
		}
	}
	return 0, false
}

var _ legacyNotesStore = (*MongoLegacyStore)(nil)

type MongoLegacyStore struct {
	collection *mongo.Collection
}

func NewMongoLegacyStore(client *mongo.Client, dbName, collectionName string) *MongoLegacyStore {
	return &MongoLegacyStore{
		collection: client.Database(dbName).Collection(collectionName),
	}
}

func (s *MongoLegacyStore) AllDocuments(ctx context.Context) ([]bson.M, error) {
	cursor, err := s.collection.Find(
		ctx,
		bson.D{},
		options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}),
	)
	if err != nil {
		return nil, err
	}

	var docs []bson.M
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

func (s *MongoLegacyStore) SetFields(ctx context.Context, id any, fields bson.M) error {
	_, err := s.collection.UpdateOne(
		ctx,
		bson.D{{Key: "_id", Value: id}},
		bson.D{{Key: "$set", Value: fields}},
	)
	return err
}
