package notes_box

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/2beens/notesbox/internal/telemetry/tracing"
	"github.com/2beens/notesbox/pkg"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

var _ NotesRepo = (*PsqlRepo)(nil)

type PsqlRepo struct {
	db *pgxpool.Pool
}

func NewPsqlRepo(db *pgxpool.Pool) *PsqlRepo {
	return &PsqlRepo{
		db: db,
	}
}

func parseRowID(id string) (int, error) {
	rowID, err := strconv.Atoi(id)
	if err != nil || rowID <= 0 {
		return 0, fmt.Errorf("%w: %s", ErrInvalidNoteID, id)
	}
	return rowID, nil
}

func (r *PsqlRepo) Add(ctx context.Context, note *Note) (*Note, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "notesPsqlRepo.Add")
	defer span.End()

	*note = withDefaults(*note)
	for attempt := 1; ; attempt++ {
		var serial int
		if err := r.db.QueryRow(
			ctx,
			`SELECT COALESCE(MAX(serial), 0) + 1 FROM note;`,
		).Scan(&serial); err != nil {
			return nil, fmt.Errorf("find next serial: %w", err)
		}

		var id int
		err := r.db.QueryRow(
			ctx,
			`INSERT INTO note (serial, title, note, important, category, tags)
			VALUES ($1, $2, $3, $4, $5, $6) RETURNING id;`,
			serial, note.Title, note.Body, note.Important, note.Category, note.Tags,
		).Scan(&id)
		if err == nil {
			note.ID = strconv.Itoa(id)
			note.Serial = serial
			span.SetAttributes(attribute.Int("serial", serial))
			return note, nil
		}

		if !pkg.IsUniqueViolationError(err) || attempt >= maxAddAttempts {
			return nil, err
		}
		log.Warnf("serial %d taken, retrying note insert (attempt %d)", serial, attempt)
	}
}

func (r *PsqlRepo) Get(ctx context.Context, id string) (*Note, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "notesPsqlRepo.Get")
	span.SetAttributes(attribute.String("id", id))
	defer span.End()

	rowID, err := parseRowID(id)
	if err != nil {
		return nil, err
	}

	var note Note
	var dbID int
	err = r.db.QueryRow(
		ctx,
		`SELECT id, serial, title, note, important, category, tags FROM note WHERE id = $1;`,
		rowID,
	).Scan(&dbID, &note.Serial, &note.Title, &note.Body, &note.Important, &note.Category, &note.Tags)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoteNotFound
		}
		return nil, err
	}

	note.ID = strconv.Itoa(dbID)
	note = withDefaults(note)
	return &note, nil
}

func (r *PsqlRepo) Update(ctx context.Context, note *Note) error {
	ctx, span := tracing.GlobalTracer.Start(ctx, "notesPsqlRepo.Update")
	span.SetAttributes(attribute.String("id", note.ID))
	defer span.End()

	rowID, err := parseRowID(note.ID)
	if err != nil {
		return err
	}

	n := withDefaults(*note)
	tag, err := r.db.Exec(
		ctx,
		`UPDATE note SET title = $1, note = $2, important = $3, category = $4, tags = $5 WHERE id = $6;`,
		n.Title, n.Body, n.Important, n.Category, n.Tags, rowID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		log.Debugf("update note %d: no such note", rowID)
	}
	return nil
}

func (r *PsqlRepo) Delete(ctx context.Context, id string) error {
	ctx, span := tracing.GlobalTracer.Start(ctx, "notesPsqlRepo.Delete")
	span.SetAttributes(attribute.String("id", id))
	defer span.End()

	rowID, err := parseRowID(id)
	if err != nil {
		return err
	}

	tag, err := r.db.Exec(ctx, `DELETE FROM note WHERE id = $1;`, rowID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		log.Debugf("delete note %d: no such note", rowID)
	}
	return nil
}

func (r *PsqlRepo) List(ctx context.Context) ([]Note, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "notesPsqlRepo.List")
	defer span.End()

	rows, err := r.db.Query(
		ctx,
		`
			SELECT
				id, serial, title, note, important, category, tags
			FROM note
			ORDER BY important DESC, serial ASC;`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	notes := []Note{}
	for rows.Next() {
		var note Note
		var id int
		if err := rows.Scan(&id, &note.Serial, &note.Title, &note.Body, &note.Important, &note.Category, &note.Tags); err != nil {
			return nil, fmt.Errorf("rows scan: %w", err)
		}
		note.ID = strconv.Itoa(id)
		notes = append(notes, withDefaults(note))
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.Int("count", len(notes)))
	return notes, nil
}
