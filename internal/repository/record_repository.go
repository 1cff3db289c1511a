package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/iliyamo/document-registry/internal/model"
)

// RecordRepo is the record store over the `data` table.
type RecordRepo struct {
	db *sql.DB
}

func NewRecordRepo(db *sql.DB) *RecordRepo {
	return &RecordRepo{db: db}
}

// List returns every record in storage (id) order.  The registry is small
// and the client pages and filters locally, so there is no LIMIT.
func (r *RecordRepo) List(ctx context.Context) ([]model.Record, error) {
	const q = "SELECT id, date, sender, receiver, subject, file, note FROM `data` ORDER BY id"
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	out := []model.Record{}
	for rows.Next() {
		var (
			rec  model.Record
			file sql.NullString
			note sql.NullString
		)
		if err := rows.Scan(&rec.ID, &rec.Date, &rec.Sender, &rec.Receiver, &rec.Subject, &file, &note); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		if file.Valid {
			f := file.String
			rec.File = &f
		}
		rec.Note = note.String
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	return out, nil
}

// Create inserts rec and returns the auto-generated id.
func (r *RecordRepo) Create(ctx context.Context, rec model.Record) (uint64, error) {
	const q = "INSERT INTO `data` (date, sender, receiver, subject, file, note) VALUES (?, ?, ?, ?, ?, ?)"
	res, err := r.db.ExecContext(ctx, q, rec.Date, rec.Sender, rec.Receiver, rec.Subject, nullString(rec.File), rec.Note)
	if err != nil {
		return 0, fmt.Errorf("insert record: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert record: %w", err)
	}
	return uint64(id), nil
}

// Update replaces date, sender, receiver, file and note of the row with
// rec.ID, plus subject when withSubject is set.  ErrRecordNotFound is
// returned when no row matched.
func (r *RecordRepo) Update(ctx context.Context, rec model.Record, withSubject bool) error {
	q := "UPDATE `data` SET date = ?, sender = ?, receiver = ?, file = ?, note = ? WHERE id = ?"
	args := []any{rec.Date, rec.Sender, rec.Receiver, nullString(rec.File), rec.Note, rec.ID}
	if withSubject {
		q = "UPDATE `data` SET date = ?, sender = ?, receiver = ?, subject = ?, file = ?, note = ? WHERE id = ?"
		args = []any{rec.Date, rec.Sender, rec.Receiver, rec.Subject, nullString(rec.File), rec.Note, rec.ID}
	}
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("update record: %w", err)
	}
	// database.DSN sets clientFoundRows, so unchanged rows still count.
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update record: %w", err)
	}
	if n == 0 {
		return ErrRecordNotFound
	}
	return nil
}

// Delete removes the row with id.  ErrRecordNotFound when nothing matched.
func (r *RecordRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM `data` WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete record: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete record: %w", err)
	}
	if n == 0 {
		return ErrRecordNotFound
	}
	return nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
