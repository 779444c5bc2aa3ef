package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kelechi-nwosu/docpipeline/constants"
	"github.com/kelechi-nwosu/docpipeline/internal/common"
	"github.com/kelechi-nwosu/docpipeline/internal/entity"
)

// DocumentRepository is the narrow store interface the pipeline depends on:
// create, get by id, sparse update, plus aggregate counters for the stats pull.
type DocumentRepository interface {
	Create(ctx context.Context, doc *entity.Document) error
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Document, error)
	Update(ctx context.Context, id uuid.UUID, patch entity.DocumentPatch) (*entity.Document, error)
	CountStats(ctx context.Context) (processedToday, failed int, err error)
}

type documentRepo struct {
	db  *DB
	log *slog.Logger
}

func NewDocumentRepository(db *DB, log *slog.Logger) DocumentRepository {
	if log == nil {
		log = slog.Default()
	}
	return &documentRepo{db: db, log: log}
}

const documentColumns = `id, file_name, file_path, file_size, content_type, content_hash,
	page_count, status, progress, current_step, step_progress, llm_provider,
	extracted_content, error_message, error_details,
	created_at, processing_started_at, completed_at`

func (r *documentRepo) Create(ctx context.Context, doc *entity.Document) error {
	if doc.ID == uuid.Nil {
		doc.ID = uuid.New()
	}
	if doc.Status == "" {
		doc.Status = constants.StatusQueued
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}

	q := r.db.Rebind(`INSERT INTO documents
		(id, file_name, file_path, file_size, content_type, content_hash, status, progress, current_step, step_progress, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err := r.db.ExecContext(ctx, q,
		doc.ID.String(), doc.FileName, doc.FilePath, doc.FileSize,
		doc.ContentType, doc.ContentHash, string(doc.Status), doc.Progress,
		doc.CurrentStep, doc.StepProgress, doc.CreatedAt,
	)
	if err != nil {
		r.log.Error("document create failed", "file_name", doc.FileName, "err", err)
		return fmt.Errorf("insert document: %w", err)
	}
	r.log.Info("document created", "doc_id", doc.ID, "file_name", doc.FileName, "size", doc.FileSize)
	return nil
}

func (r *documentRepo) GetByID(ctx context.Context, id uuid.UUID) (*entity.Document, error) {
	q := r.db.Rebind(`SELECT ` + documentColumns + ` FROM documents WHERE id = ?`)
	row := r.db.QueryRowContext(ctx, q, id.String())
	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.NotFoundError(fmt.Sprintf("document %s", id))
	}
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}
	return doc, nil
}

func (r *documentRepo) Update(ctx context.Context, id uuid.UUID, patch entity.DocumentPatch) (*entity.Document, error) {
	sets := make([]string, 0, 12)
	args := make([]any, 0, 12)
	add := func(col string, v any) {
		sets = append(sets, col+" = ?")
		args = append(args, v)
	}

	if patch.Status != nil {
		add("status", string(*patch.Status))
	}
	if patch.Progress != nil {
		add("progress", *patch.Progress)
	}
	if patch.CurrentStep != nil {
		add("current_step", *patch.CurrentStep)
	}
	if patch.StepProgress != nil {
		add("step_progress", *patch.StepProgress)
	}
	if patch.PageCount != nil {
		add("page_count", *patch.PageCount)
	}
	if patch.SetLLMProvider {
		add("llm_provider", nullStr(patch.LLMProvider))
	}
	if patch.SetExtractedContent {
		if patch.ExtractedContent == nil {
			add("extracted_content", sql.NullString{})
		} else {
			add("extracted_content", string(patch.ExtractedContent))
		}
	}
	if patch.SetError {
		add("error_message", nullStr(patch.ErrorMessage))
		if patch.ErrorDetails == nil {
			add("error_details", sql.NullString{})
		} else {
			add("error_details", string(patch.ErrorDetails))
		}
	}
	if patch.SetProcessingStartedAt {
		add("processing_started_at", nullTime(patch.ProcessingStartedAt))
	}
	if patch.SetCompletedAt {
		add("completed_at", nullTime(patch.CompletedAt))
	}

	if len(sets) == 0 {
		return r.GetByID(ctx, id)
	}

	args = append(args, id.String())
	q := r.db.Rebind(`UPDATE documents SET ` + strings.Join(sets, ", ") + ` WHERE id = ?`)
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		r.log.Error("document update failed", "doc_id", id, "err", err)
		return nil, fmt.Errorf("update document: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, common.NotFoundError(fmt.Sprintf("document %s", id))
	}
	return r.GetByID(ctx, id)
}

func (r *documentRepo) CountStats(ctx context.Context) (int, int, error) {
	dayStart := time.Now().UTC().Truncate(24 * time.Hour)

	var processedToday int
	q := r.db.Rebind(`SELECT COUNT(*) FROM documents WHERE status = ? AND completed_at >= ?`)
	if err := r.db.QueryRowContext(ctx, q, string(constants.StatusCompleted), dayStart).Scan(&processedToday); err != nil {
		return 0, 0, fmt.Errorf("count processed: %w", err)
	}

	var failed int
	q = r.db.Rebind(`SELECT COUNT(*) FROM documents WHERE status = ?`)
	if err := r.db.QueryRowContext(ctx, q, string(constants.StatusFailed)).Scan(&failed); err != nil {
		return 0, 0, fmt.Errorf("count failed: %w", err)
	}
	return processedToday, failed, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*entity.Document, error) {
	var (
		doc         entity.Document
		idStr       string
		status      string
		pageCount   sql.NullInt64
		provider    sql.NullString
		extracted   sql.NullString
		errMsg      sql.NullString
		errDetails  sql.NullString
		startedAt   sql.NullTime
		completedAt sql.NullTime
	)
	err := row.Scan(
		&idStr, &doc.FileName, &doc.FilePath, &doc.FileSize, &doc.ContentType, &doc.ContentHash,
		&pageCount, &status, &doc.Progress, &doc.CurrentStep, &doc.StepProgress, &provider,
		&extracted, &errMsg, &errDetails,
		&doc.CreatedAt, &startedAt, &completedAt,
	)
	if err != nil {
		return nil, err
	}
	doc.ID, err = uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("parse document id %q: %w", idStr, err)
	}
	doc.Status = constants.DocStatus(status)
	if pageCount.Valid {
		n := int(pageCount.Int64)
		doc.PageCount = &n
	}
	if provider.Valid {
		doc.LLMProvider = &provider.String
	}
	if extracted.Valid {
		doc.ExtractedContent = []byte(extracted.String)
	}
	if errMsg.Valid {
		doc.ErrorMessage = &errMsg.String
	}
	if errDetails.Valid {
		doc.ErrorDetails = []byte(errDetails.String)
	}
	if startedAt.Valid {
		t := startedAt.Time
		doc.ProcessingStartedAt = &t
	}
	if completedAt.Valid {
		t := completedAt.Time
		doc.CompletedAt = &t
	}
	return &doc, nil
}

func nullStr(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
