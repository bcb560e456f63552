package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"presentai/internal/domain"
	"presentai/internal/repository"
)

const createPresentationsTable = `
CREATE TABLE IF NOT EXISTS presentations (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id INTEGER NOT NULL,
	prompt TEXT NOT NULL,
	template_id INTEGER NOT NULL,
	slide_count INTEGER NOT NULL DEFAULT 10,
	duration INTEGER NOT NULL DEFAULT 15,
	tone TEXT NOT NULL DEFAULT 'Professional',
	status TEXT NOT NULL,
	deck_name TEXT NOT NULL DEFAULT '',
	local_path TEXT NOT NULL DEFAULT '',
	s3_location TEXT NOT NULL DEFAULT '',
	error_message TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL,
	generated_at DATETIME NULL,
	uploaded_at DATETIME NULL,
	FOREIGN KEY(user_id) REFERENCES users(id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_presentations_user_id ON presentations(user_id);
`

type PresentationRepository struct {
	db *sql.DB
}

func NewPresentationRepository(db *sql.DB) repository.PresentationRepository {
	return &PresentationRepository{db: db}
}

func (r *PresentationRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createPresentationsTable); err != nil {
		return fmt.Errorf("create presentations table: %w", err)
	}
	return nil
}

func (r *PresentationRepository) Create(ctx context.Context, p *domain.Presentation) (int64, error) {
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	res, err := r.db.ExecContext(ctx, `
INSERT INTO presentations (user_id, prompt, template_id, slide_count, duration, tone, status, deck_name, local_path, s3_location, error_message, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.UserID,
		p.Prompt,
		p.TemplateID,
		p.SlideCount,
		p.Duration,
		p.Tone,
		string(p.Status),
		p.DeckName,
		p.LocalPath,
		p.S3Location,
		p.ErrorMessage,
		p.CreatedAt,
		p.UpdatedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("insert presentation: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("presentation last insert id: %w", err)
	}
	p.ID = id
	return id, nil
}

func (r *PresentationRepository) UpdateStatus(ctx context.Context, id int64, status domain.PresentationStatus, errorMessage *string) error {
	msg := ""
	if errorMessage != nil {
		msg = *errorMessage
	}
	_, err := r.db.ExecContext(ctx, `
UPDATE presentations
SET status = ?, error_message = ?, updated_at = ?
WHERE id = ?`,
		string(status), msg, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("update presentation status: %w", err)
	}
	return nil
}

func (r *PresentationRepository) UpdateDeckInfo(ctx context.Context, id int64, deckName, localPath string) error {
	_, err := r.db.ExecContext(ctx, `
UPDATE presentations
SET deck_name = ?, local_path = ?, updated_at = ?
WHERE id = ?`,
		deckName, localPath, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("update deck info: %w", err)
	}
	return nil
}

func (r *PresentationRepository) MarkGenerated(ctx context.Context, id int64, generatedAt time.Time) error {
	_, err := r.db.ExecContext(ctx, `
UPDATE presentations
SET status = ?, generated_at = ?, updated_at = ?
WHERE id = ?`,
		string(domain.PresentationStatusGenerated), generatedAt.UTC(), time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("mark generated: %w", err)
	}
	return nil
}

func (r *PresentationRepository) MarkUploaded(ctx context.Context, id int64, s3Location string, uploadedAt time.Time) error {
	_, err := r.db.ExecContext(ctx, `
UPDATE presentations
SET status = ?, s3_location = ?, uploaded_at = ?, updated_at = ?
WHERE id = ?`,
		string(domain.PresentationStatusCompleted), s3Location, uploadedAt.UTC(), time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("mark uploaded: %w", err)
	}
	return nil
}

func (r *PresentationRepository) Delete(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM presentations WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete presentation: %w", err)
	}
	return nil
}

func (r *PresentationRepository) Get(ctx context.Context, id int64) (*domain.Presentation, error) {
	row := r.db.QueryRowContext(ctx, selectPresentation+` WHERE id = ?`, id)
	return scanPresentation(row)
}

func (r *PresentationRepository) ListByUser(ctx context.Context, userID int64) ([]domain.Presentation, error) {
	rows, err := r.db.QueryContext(ctx, selectPresentation+` WHERE user_id = ? ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("query presentations: %w", err)
	}
	defer rows.Close()
	return collectPresentations(rows)
}

func (r *PresentationRepository) ListByStatuses(ctx context.Context, statuses ...domain.PresentationStatus) ([]domain.Presentation, error) {
	if len(statuses) == 0 {
		return nil, nil
	}

	placeholders := make([]string, len(statuses))
	args := make([]any, len(statuses))
	for i, status := range statuses {
		placeholders[i] = "?"
		args[i] = string(status)
	}

	rows, err := r.db.QueryContext(ctx,
		selectPresentation+` WHERE status IN (`+strings.Join(placeholders, ",")+`) ORDER BY id ASC`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("query presentations by status: %w", err)
	}
	defer rows.Close()
	return collectPresentations(rows)
}

const selectPresentation = `
SELECT id, user_id, prompt, template_id, slide_count, duration, tone, status, deck_name, local_path, s3_location, error_message, created_at, updated_at, generated_at, uploaded_at
FROM presentations`

func scanPresentation(row interface {
	Scan(dest ...any) error
}) (*domain.Presentation, error) {
	var (
		p           domain.Presentation
		status      string
		generatedAt sql.NullTime
		uploadedAt  sql.NullTime
	)
	if err := row.Scan(
		&p.ID,
		&p.UserID,
		&p.Prompt,
		&p.TemplateID,
		&p.SlideCount,
		&p.Duration,
		&p.Tone,
		&status,
		&p.DeckName,
		&p.LocalPath,
		&p.S3Location,
		&p.ErrorMessage,
		&p.CreatedAt,
		&p.UpdatedAt,
		&generatedAt,
		&uploadedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("presentation not found")
		}
		return nil, fmt.Errorf("scan presentation: %w", err)
	}

	p.Status = domain.PresentationStatus(status)
	if generatedAt.Valid {
		t := generatedAt.Time
		p.GeneratedAt = &t
	}
	if uploadedAt.Valid {
		t := uploadedAt.Time
		p.UploadedAt = &t
	}
	return &p, nil
}

func collectPresentations(rows *sql.Rows) ([]domain.Presentation, error) {
	var out []domain.Presentation
	for rows.Next() {
		p, err := scanPresentation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}
