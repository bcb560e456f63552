package repository

import (
	"context"
	"time"

	"presentai/internal/domain"
)

// PresentationRepository exposes persistence operations for Presentation aggregates.
type PresentationRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, p *domain.Presentation) (int64, error)
	UpdateStatus(ctx context.Context, id int64, status domain.PresentationStatus, errorMessage *string) error
	UpdateDeckInfo(ctx context.Context, id int64, deckName, localPath string) error
	MarkGenerated(ctx context.Context, id int64, generatedAt time.Time) error
	MarkUploaded(ctx context.Context, id int64, s3Location string, uploadedAt time.Time) error
	Delete(ctx context.Context, id int64) error
	Get(ctx context.Context, id int64) (*domain.Presentation, error)
	ListByUser(ctx context.Context, userID int64) ([]domain.Presentation, error)
	ListByStatuses(ctx context.Context, statuses ...domain.PresentationStatus) ([]domain.Presentation, error)
}

// SlideRepository manages generated slide content.
type SlideRepository interface {
	Init(ctx context.Context) error
	ReplaceForPresentation(ctx context.Context, presentationID int64, slides []domain.Slide) error
	ListByPresentation(ctx context.Context, presentationID int64) ([]domain.Slide, error)
}
