package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"presentai/internal/domain"
	"presentai/internal/repository"
)

const (
	defaultSlideCount = 10
	defaultDuration   = 15
	defaultTone       = "Professional"
)

// GenerateInput carries a presentation generation request.
type GenerateInput struct {
	Prompt     string
	TemplateID int
	SlideCount int
	Duration   int
	Tone       string
}

// PresentationService coordinates presentation level operations backed by repositories.
type PresentationService interface {
	CreateRequest(ctx context.Context, userID int64, input GenerateInput) (*domain.Presentation, error)
	GetPresentation(ctx context.Context, id int64) (*domain.Presentation, error)
	GetForUser(ctx context.Context, id, userID int64) (*domain.Presentation, error)
	ListByUser(ctx context.Context, userID int64) ([]domain.Presentation, error)
	ListByStatuses(ctx context.Context, statuses ...domain.PresentationStatus) ([]domain.Presentation, error)
	UpdateStatus(ctx context.Context, id int64, status domain.PresentationStatus, errMsg *string) error
	UpdateDeckInfo(ctx context.Context, id int64, deckName, localPath string) error
	MarkGenerated(ctx context.Context, id int64) error
	MarkUploaded(ctx context.Context, id int64, s3Location string) error
	DeletePresentation(ctx context.Context, id int64) error
	ReplaceSlides(ctx context.Context, presentationID int64, slides []domain.Slide) error
	Templates() []domain.Template
}

type presentationService struct {
	presentations repository.PresentationRepository
	slides        repository.SlideRepository
}

func NewPresentationService(presentations repository.PresentationRepository, slides repository.SlideRepository) PresentationService {
	return &presentationService{
		presentations: presentations,
		slides:        slides,
	}
}

func (s *presentationService) CreateRequest(ctx context.Context, userID int64, input GenerateInput) (*domain.Presentation, error) {
	input.Prompt = strings.TrimSpace(input.Prompt)
	if input.Prompt == "" || input.TemplateID == 0 {
		return nil, fmt.Errorf("%w: prompt and templateId are required", ErrInvalidInput)
	}
	if input.SlideCount <= 0 {
		input.SlideCount = defaultSlideCount
	}
	if input.Duration <= 0 {
		input.Duration = defaultDuration
	}
	if strings.TrimSpace(input.Tone) == "" {
		input.Tone = defaultTone
	}

	p := &domain.Presentation{
		UserID:     userID,
		Prompt:     input.Prompt,
		TemplateID: input.TemplateID,
		SlideCount: input.SlideCount,
		Duration:   input.Duration,
		Tone:       input.Tone,
		Status:     domain.PresentationStatusPending,
	}

	if _, err := s.presentations.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *presentationService) GetPresentation(ctx context.Context, id int64) (*domain.Presentation, error) {
	p, err := s.presentations.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	slides, err := s.slides.ListByPresentation(ctx, id)
	if err != nil {
		return nil, err
	}
	p.Slides = slides
	return p, nil
}

// GetForUser behaves like GetPresentation but hides records owned by other
// users behind the same not-found error.
func (s *presentationService) GetForUser(ctx context.Context, id, userID int64) (*domain.Presentation, error) {
	p, err := s.GetPresentation(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.UserID != userID {
		return nil, fmt.Errorf("presentation not found")
	}
	return p, nil
}

func (s *presentationService) ListByUser(ctx context.Context, userID int64) ([]domain.Presentation, error) {
	presentations, err := s.presentations.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.attachSlides(ctx, presentations)
}

func (s *presentationService) ListByStatuses(ctx context.Context, statuses ...domain.PresentationStatus) ([]domain.Presentation, error) {
	presentations, err := s.presentations.ListByStatuses(ctx, statuses...)
	if err != nil {
		return nil, err
	}
	return s.attachSlides(ctx, presentations)
}

func (s *presentationService) attachSlides(ctx context.Context, presentations []domain.Presentation) ([]domain.Presentation, error) {
	for i := range presentations {
		slides, err := s.slides.ListByPresentation(ctx, presentations[i].ID)
		if err != nil {
			return nil, err
		}
		presentations[i].Slides = slides
	}
	return presentations, nil
}

func (s *presentationService) UpdateStatus(ctx context.Context, id int64, status domain.PresentationStatus, errMsg *string) error {
	return s.presentations.UpdateStatus(ctx, id, status, errMsg)
}

func (s *presentationService) UpdateDeckInfo(ctx context.Context, id int64, deckName, localPath string) error {
	return s.presentations.UpdateDeckInfo(ctx, id, deckName, localPath)
}

func (s *presentationService) MarkGenerated(ctx context.Context, id int64) error {
	return s.presentations.MarkGenerated(ctx, id, time.Now())
}

func (s *presentationService) MarkUploaded(ctx context.Context, id int64, s3Location string) error {
	return s.presentations.MarkUploaded(ctx, id, s3Location, time.Now())
}

func (s *presentationService) DeletePresentation(ctx context.Context, id int64) error {
	return s.presentations.Delete(ctx, id)
}

func (s *presentationService) ReplaceSlides(ctx context.Context, presentationID int64, slides []domain.Slide) error {
	return s.slides.ReplaceForPresentation(ctx, presentationID, slides)
}

// Templates returns the deck templates the generator accepts. The catalog is
// static and mirrors what the dashboard offers.
func (s *presentationService) Templates() []domain.Template {
	return []domain.Template{
		{ID: 1, Name: "Business Presentation", Description: "Professional slides for business meetings"},
		{ID: 2, Name: "Sales Pitch", Description: "Compelling presentations to close deals"},
		{ID: 3, Name: "Team Update", Description: "Internal presentations for team meetings"},
		{ID: 4, Name: "Creative Brief", Description: "Visually appealing creative presentations"},
	}
}
