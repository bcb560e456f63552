package service

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"presentai/internal/domain"
	"presentai/internal/repository/sqlite"
)

func newPresentationService(t *testing.T) PresentationService {
	t.Helper()
	ctx := context.Background()

	db, err := sqlite.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	users := sqlite.NewUserRepository(db)
	require.NoError(t, users.Init(ctx))
	_, err = users.Create(ctx, &domain.User{Name: "A", Email: "a@b.com", PasswordHash: "h"})
	require.NoError(t, err)

	presentations := sqlite.NewPresentationRepository(db)
	require.NoError(t, presentations.Init(ctx))
	slides := sqlite.NewSlideRepository(db)
	require.NoError(t, slides.Init(ctx))

	return NewPresentationService(presentations, slides)
}

func TestCreateRequest_Defaults(t *testing.T) {
	ctx := context.Background()
	svc := newPresentationService(t)

	p, err := svc.CreateRequest(ctx, 1, GenerateInput{
		Prompt:     "  product launch deck  ",
		TemplateID: 2,
	})
	require.NoError(t, err)
	assert.Equal(t, "product launch deck", p.Prompt)
	assert.Equal(t, 10, p.SlideCount)
	assert.Equal(t, 15, p.Duration)
	assert.Equal(t, "Professional", p.Tone)
	assert.Equal(t, domain.PresentationStatusPending, p.Status)
}

func TestCreateRequest_Validation(t *testing.T) {
	ctx := context.Background()
	svc := newPresentationService(t)

	_, err := svc.CreateRequest(ctx, 1, GenerateInput{TemplateID: 1})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.CreateRequest(ctx, 1, GenerateInput{Prompt: "something"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.CreateRequest(ctx, 1, GenerateInput{Prompt: "   "})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestGetForUser_HidesOtherUsersRecords(t *testing.T) {
	ctx := context.Background()
	svc := newPresentationService(t)

	p, err := svc.CreateRequest(ctx, 1, GenerateInput{Prompt: "deck", TemplateID: 1})
	require.NoError(t, err)

	got, err := svc.GetForUser(ctx, p.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)

	_, err = svc.GetForUser(ctx, p.ID, 2)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestReplaceSlides_RoundTrip(t *testing.T) {
	ctx := context.Background()
	svc := newPresentationService(t)

	p, err := svc.CreateRequest(ctx, 1, GenerateInput{Prompt: "deck", TemplateID: 1})
	require.NoError(t, err)

	err = svc.ReplaceSlides(ctx, p.ID, []domain.Slide{
		{PresentationID: p.ID, Position: 1, Title: "Intro", Body: "body"},
	})
	require.NoError(t, err)

	got, err := svc.GetPresentation(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, got.Slides, 1)
	assert.Equal(t, "Intro", got.Slides[0].Title)
}

func TestTemplates_Catalog(t *testing.T) {
	svc := newPresentationService(t)

	templates := svc.Templates()
	require.Len(t, templates, 4)
	assert.Equal(t, "Business Presentation", templates[0].Name)
}
