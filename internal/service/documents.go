package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/iliyamo/document-registry/internal/metrics"
	"github.com/iliyamo/document-registry/internal/model"
	"github.com/iliyamo/document-registry/internal/repository"
	"github.com/iliyamo/document-registry/internal/storage"
)

// FileStore is the part of storage.Uploader the document service uses.
type FileStore interface {
	Store(ctx context.Context, up storage.Upload) (string, error)
	Remove(ctx context.Context, ref string) error
	Open(ctx context.Context, ref string) (*storage.Object, error)
}

// DocumentOptions toggles the compatibility behaviours of the registry.
type DocumentOptions struct {
	// StrictUpdate requires subject on update and writes it, matching
	// create.  When false update ignores subject entirely.
	StrictUpdate bool
	// CleanupOrphans deletes a just-stored upload if the row insert fails.
	CleanupOrphans bool
}

// DocumentService lists, creates, updates and deletes registry records.
type DocumentService struct {
	records repository.RecordStore
	files   FileStore
	opts    DocumentOptions
}

func NewDocumentService(records repository.RecordStore, files FileStore, opts DocumentOptions) *DocumentService {
	return &DocumentService{records: records, files: files, opts: opts}
}

// RecordInput is the raw text of a create or update request.
type RecordInput struct {
	Date     string
	Sender   string
	Receiver string
	Subject  string
	File     string
	Note     string
}

// List returns every record in storage order.
func (s *DocumentService) List(ctx context.Context) ([]model.Record, error) {
	return s.records.List(ctx)
}

// Create validates in, stores the optional upload and inserts the row.
// date, sender, receiver and subject are required; note is optional.
func (s *DocumentService) Create(ctx context.Context, in RecordInput, file *storage.Upload) (uint64, error) {
	rec, err := s.parse(in, "date", "sender", "receiver", "subject")
	if err != nil {
		return 0, err
	}

	if file != nil {
		ref, err := s.files.Store(ctx, *file)
		if err != nil {
			return 0, err
		}
		rec.File = &ref
		metrics.UploadsStored.Inc()
	}

	id, err := s.records.Create(ctx, rec)
	if err != nil {
		if rec.File != nil && s.opts.CleanupOrphans {
			if rmErr := s.files.Remove(context.WithoutCancel(ctx), *rec.File); rmErr != nil {
				slog.ErrorContext(ctx, "orphaned upload left behind", "file", *rec.File, "err", rmErr)
				metrics.UploadsOrphaned.Inc()
			}
		} else if rec.File != nil {
			metrics.UploadsOrphaned.Inc()
		}
		return 0, err
	}
	slog.InfoContext(ctx, "record created", "record_id", id, "file", rec.File != nil)
	return id, nil
}

// Update replaces the fields of record id.  date, sender, receiver, file
// and note are required (plus subject in strict mode); file must name an
// upload that exists.
func (s *DocumentService) Update(ctx context.Context, id uint64, in RecordInput) error {
	required := []string{"date", "sender", "receiver", "file", "note"}
	if s.opts.StrictUpdate {
		required = append(required, "subject")
	}
	rec, err := s.parse(in, required...)
	if err != nil {
		return err
	}
	rec.ID = id
	ref := strings.TrimSpace(in.File)
	if err := s.checkFile(ctx, ref); err != nil {
		return err
	}
	rec.File = &ref

	if err := s.records.Update(ctx, rec, s.opts.StrictUpdate); err != nil {
		if errors.Is(err, repository.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

// Delete removes record id.  The referenced upload is kept.
func (s *DocumentService) Delete(ctx context.Context, id uint64) error {
	if err := s.records.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

func (s *DocumentService) checkFile(ctx context.Context, ref string) error {
	obj, err := s.files.Open(ctx, ref)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return invalid("file does not reference a stored upload", "file")
		}
		return fmt.Errorf("check file: %w", err)
	}
	return obj.Close()
}

// Column limits of the data table: VARCHAR(255) and TEXT.
const (
	maxShortField = 255
	maxNoteBytes  = 65535
)

func (s *DocumentService) parse(in RecordInput, required ...string) (model.Record, error) {
	values := map[string]string{
		"date":     strings.TrimSpace(in.Date),
		"sender":   strings.TrimSpace(in.Sender),
		"receiver": strings.TrimSpace(in.Receiver),
		"subject":  strings.TrimSpace(in.Subject),
		"file":     strings.TrimSpace(in.File),
		"note":     strings.TrimSpace(in.Note),
	}
	var missing []string
	for _, f := range required {
		if values[f] == "" {
			missing = append(missing, f)
		}
	}
	if len(missing) > 0 {
		return model.Record{}, invalid("All fields are required", missing...)
	}
	for _, f := range []string{"sender", "receiver", "subject"} {
		if utf8.RuneCountInString(values[f]) > maxShortField {
			return model.Record{}, invalid(fmt.Sprintf("%s must be at most %d characters", f, maxShortField), f)
		}
	}
	if len(values["note"]) > maxNoteBytes {
		return model.Record{}, invalid(fmt.Sprintf("note must be at most %d bytes", maxNoteBytes), "note")
	}

	rec := model.Record{
		Sender:   values["sender"],
		Receiver: values["receiver"],
		Subject:  values["subject"],
		Note:     values["note"],
	}
	if values["date"] != "" {
		d, err := model.ParseDate(values["date"])
		if err != nil {
			return model.Record{}, invalid("date must be YYYY-MM-DD", "date")
		}
		rec.Date = d
	}
	return rec, nil
}
