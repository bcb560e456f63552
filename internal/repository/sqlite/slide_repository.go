package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"presentai/internal/domain"
	"presentai/internal/repository"
)

const createSlidesTable = `
CREATE TABLE IF NOT EXISTS slides (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	presentation_id INTEGER NOT NULL,
	position INTEGER NOT NULL,
	title TEXT NOT NULL,
	body TEXT NOT NULL DEFAULT '',
	FOREIGN KEY(presentation_id) REFERENCES presentations(id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_slides_presentation_id ON slides(presentation_id);
`

type SlideRepository struct {
	db *sql.DB
}

func NewSlideRepository(db *sql.DB) repository.SlideRepository {
	return &SlideRepository{db: db}
}

func (r *SlideRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createSlidesTable); err != nil {
		return fmt.Errorf("create slides table: %w", err)
	}
	return nil
}

func (r *SlideRepository) ReplaceForPresentation(ctx context.Context, presentationID int64, slides []domain.Slide) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() // safe no-op on commit

	if _, err := tx.ExecContext(ctx, `DELETE FROM slides WHERE presentation_id=?`, presentationID); err != nil {
		return fmt.Errorf("delete slides: %w", err)
	}

	for _, slide := range slides {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO slides (presentation_id, position, title, body)
VALUES (?, ?, ?, ?)`,
			presentationID,
			slide.Position,
			slide.Title,
			slide.Body,
		); err != nil {
			return fmt.Errorf("insert slide: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (r *SlideRepository) ListByPresentation(ctx context.Context, presentationID int64) ([]domain.Slide, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, presentation_id, position, title, body
FROM slides
WHERE presentation_id=?
ORDER BY position ASC`, presentationID)
	if err != nil {
		return nil, fmt.Errorf("query slides: %w", err)
	}
	defer rows.Close()

	var slides []domain.Slide
	for rows.Next() {
		var slide domain.Slide
		if err := rows.Scan(&slide.ID, &slide.PresentationID, &slide.Position, &slide.Title, &slide.Body); err != nil {
			return nil, fmt.Errorf("scan slide: %w", err)
		}
		slides = append(slides, slide)
	}

	return slides, rows.Err()
}
