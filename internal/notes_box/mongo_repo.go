package notes_box

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/2beens/notesbox/internal/telemetry/tracing"
	"github.com/2beens/notesbox/pkg"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.opentelemetry.io/otel/attribute"
)

var _ NotesRepo = (*MongoRepo)(nil)

// noteDocument is the stored shape of a note. Legacy documents may miss
// any of the optional fields or hold them with another type; such fields
// read with their defaults.
type noteDocument struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Serial    bson.RawValue      `bson:"serial,omitempty"`
	Title     bson.RawValue      `bson:"title,omitempty"`
	Body      bson.RawValue      `bson:"note,omitempty"`
	Important bson.RawValue      `bson:"important,omitempty"`
	Category  bson.RawValue      `bson:"category,omitempty"`
	Tags      bson.RawValue      `bson:"tags,omitempty"`
}

func (d *noteDocument) toNote() Note {
	serial, _ := decodeInt(d.Serial)
	return withDefaults(Note{
		ID:        d.ID.Hex(),
		Serial:    serial,
		Title:     decodeString(d.Title),
		Body:      decodeString(d.Body),
		Important: decodeBool(d.Important),
		Category:  decodeString(d.Category),
		Tags:      decodeTags(d.Tags),
	})
}

func decodeInt(raw bson.RawValue) (int, bool) {
	switch raw.Type {
	case bson.TypeInt32:
		return int(raw.Int32()), true
	case bson.TypeInt64:
		return int(raw.Int64()), true
	case bson.TypeDouble:
		return int(raw.Double()), true
	}
	return 0, false
}

// decodeString renders scalar values as text, anything else reads as empty.
func decodeString(raw bson.RawValue) string {
	switch raw.Type {
	case bson.TypeString:
		return raw.StringValue()
	case bson.TypeInt32, bson.TypeInt64:
		n, _ := decodeInt(raw)
		return strconv.Itoa(n)
	case bson.TypeDouble:
		return strconv.FormatFloat(raw.Double(), 'f', -1, 64)
	case bson.TypeBoolean:
		return strconv.FormatBool(raw.Boolean())
	}
	return ""
}

func decodeBool(raw bson.RawValue) bool {
	switch raw.Type {
	case bson.TypeBoolean:
		return raw.Boolean()
	case bson.TypeString:
		important, err := ParseImportant(raw.StringValue())
		if err != nil {
			log.Debugf("unreadable important value %q, using false", raw.StringValue())
		}
		return important
	case bson.TypeInt32, bson.TypeInt64, bson.TypeDouble:
		n, _ := decodeInt(raw)
		return n != 0
	}
	return false
}

func decodeTags(raw bson.RawValue) []string {
	tags := []string{}
	if raw.Type != bson.TypeArray {
		return tags
	}
	values, err := raw.Array().Values()
	if err != nil {
		log.Warnf("decode note tags: %s", err)
		return tags
	}
	for _, v := range values {
		if tag, ok := v.StringValueOK(); ok {
			tags = append(tags, tag)
		}
	}
	return tags
}

type MongoRepo struct {
	collection *mongo.Collection
}

// NewMongoRepo makes sure the collection indexes exist before the repo is used.
func NewMongoRepo(ctx context.Context, client *mongo.Client, dbName, collectionName string) (*MongoRepo, error) {
	repo := &MongoRepo{
		collection: client.Database(dbName).Collection(collectionName),
	}
	if err := repo.ensureIndexes(ctx); err != nil {
		return nil, err
	}
	return repo, nil
}

func (r *MongoRepo) ensureIndexes(ctx context.Context) error {
	names, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "serial", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "title", Value: 1}}},
		{Keys: bson.D{{Key: "category", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("create notes indexes: %w", err)
	}
	log.Debugf("notes collection indexes: %v", names)
	return nil
}

func (r *MongoRepo) nextSerial(ctx context.Context) (int, error) {
	var last struct {
		Serial bson.RawValue `bson:"serial"`
	}
	err := r.collection.FindOne(
		ctx,
		bson.D{{Key: "serial", Value: bson.D{{Key: "$type", Value: "number"}}}},
		options.FindOne().
			SetSort(bson.D{{Key: "serial", Value: -1}}).
			SetProjection(bson.D{{Key: "serial", Value: 1}}),
	).Decode(&last)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return 1, nil
	}
	if err != nil {
		return 0, fmt.Errorf("find last serial: %w", err)
	}
	serial, ok := decodeInt(last.Serial)
	if !ok {
		return 0, fmt.Errorf("last serial has unexpected type %s", last.Serial.Type)
	}
	return serial + 1, nil
}

func (r *MongoRepo) Add(ctx context.Context, note *Note) (*Note, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "notesMongoRepo.Add")
	defer span.End()

	*note = withDefaults(*note)
	for attempt := 1; ; attempt++ {
		serial, err := r.nextSerial(ctx)
		if err != nil {
			return nil, err
		}

		res, err := r.collection.InsertOne(ctx, bson.D{
			{Key: "serial", Value: serial},
			{Key: "title", Value: note.Title},
			{Key: "note", Value: note.Body},
			{Key: "important", Value: note.Important},
			{Key: "category", Value: note.Category},
			{Key: "tags", Value: note.Tags},
		})
		if err == nil {
			oid, ok := res.InsertedID.(primitive.ObjectID)
			if !ok {
				return nil, fmt.Errorf("unexpected inserted id type %T", res.InsertedID)
			}
			note.ID = oid.Hex()
			note.Serial = serial
			span.SetAttributes(attribute.Int("serial", serial))
			return note, nil
		}

		if !pkg.IsDuplicateKeyError(err) || attempt >= maxAddAttempts {
			return nil, err
		}
		log.Warnf("serial %d taken, retrying note insert (attempt %d)", serial, attempt)
	}
}

func (r *MongoRepo) Get(ctx context.Context, id string) (*Note, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "notesMongoRepo.Get")
	span.SetAttributes(attribute.String("id", id))
	defer span.End()

	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidNoteID, id)
	}

	var doc noteDocument
	if err := r.collection.FindOne(ctx, bson.D{{Key: "_id", Value: oid}}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNoteNotFound
		}
		return nil, err
	}

	note := doc.toNote()
	return &note, nil
}

func (r *MongoRepo) Update(ctx context.Context, note *Note) error {
	ctx, span := tracing.GlobalTracer.Start(ctx, "notesMongoRepo.Update")
	span.SetAttributes(attribute.String("id", note.ID))
	defer span.End()

	oid, err := primitive.ObjectIDFromHex(note.ID)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidNoteID, note.ID)
	}

	n := withDefaults(*note)
	res, err := r.collection.UpdateOne(
		ctx,
		bson.D{{Key: "_id", Value: oid}},
		bson.D{{Key: "$set", Value: bson.D{
			{Key: "title", Value: n.Title},
			{Key: "note", Value: n.Body},
			{Key: "important", Value: n.Important},
			{Key: "category", Value: n.Category},
			{Key: "tags", Value: n.Tags},
		}}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		log.Debugf("update note %s: no such note", note.ID)
	}
	return nil
}

func (r *MongoRepo) Delete(ctx context.Context, id string) error {
	ctx, span := tracing.GlobalTracer.Start(ctx, "notesMongoRepo.Delete")
	span.SetAttributes(attribute.String("id", id))
	defer span.End()

	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidNoteID, id)
	}

	res, err := r.collection.DeleteOne(ctx, bson.D{{Key: "_id", Value: oid}})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		log.Debugf("delete note %s: no such note", id)
	}
	return nil
}

func (r *MongoRepo) List(ctx context.Context) ([]Note, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "notesMongoRepo.List")
	defer span.End()

	cursor, err := r.collection.Find(
		ctx,
		bson.D{},
		options.Find().SetSort(bson.D{
			{Key: "important", Value: -1},
			{Key: "serial", Value: 1},
		}),
	)
	if err != nil {
		return nil, err
	}

	var docs []noteDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("read notes cursor: %w", err)
	}

	notes := make([]Note, 0, len(docs))
	for i := range docs {
		notes = append(notes, docs[i].toNote())
	}
	span.SetAttributes(attribute.Int("count", len(notes)))
	return notes, nil
}
