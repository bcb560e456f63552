package sqlite

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"presentai/internal/domain"
)

func openPresentationRepos(t *testing.T) (*sql.DB, *PresentationRepository, *SlideRepository) {
	t.Helper()

	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	users := &UserRepository{db: db}
	require.NoError(t, users.Init(ctx))
	_, err = users.Create(ctx, &domain.User{Name: "A", Email: "a@b.com", PasswordHash: "h"})
	require.NoError(t, err)

	presentations := &PresentationRepository{db: db}
	require.NoError(t, presentations.Init(ctx))
	slides := &SlideRepository{db: db}
	require.NoError(t, slides.Init(ctx))

	return db, presentations, slides
}

func newPending(userID int64) *domain.Presentation {
	return &domain.Presentation{
		UserID:     userID,
		Prompt:     "quarterly sales review",
		TemplateID: 1,
		SlideCount: 5,
		Duration:   15,
		Tone:       "Professional",
		Status:     domain.PresentationStatusPending,
	}
}

func TestPresentationRepository_Lifecycle(t *testing.T) {
	ctx := context.Background()
	_, repo, _ := openPresentationRepos(t)

	p := newPending(1)
	id, err := repo.Create(ctx, p)
	require.NoError(t, err)
	require.NotZero(t, id)

	got, err := repo.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.PresentationStatusPending, got.Status)
	assert.Nil(t, got.GeneratedAt)

	require.NoError(t, repo.UpdateStatus(ctx, id, domain.PresentationStatusGenerating, nil))
	require.NoError(t, repo.UpdateDeckInfo(ctx, id, "Quarterly sales review", "/tmp/deck-x"))
	require.NoError(t, repo.MarkGenerated(ctx, id, time.Now()))
	require.NoError(t, repo.MarkUploaded(ctx, id, "s3://bucket/presentation-1", time.Now()))

	got, err = repo.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.PresentationStatusCompleted, got.Status)
	assert.Equal(t, "Quarterly sales review", got.DeckName)
	assert.Equal(t, "s3://bucket/presentation-1", got.S3Location)
	require.NotNil(t, got.GeneratedAt)
	require.NotNil(t, got.UploadedAt)

	require.NoError(t, repo.Delete(ctx, id))
	_, err = repo.Get(ctx, id)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestPresentationRepository_FailedStatusKeepsMessage(t *testing.T) {
	ctx := context.Background()
	_, repo, _ := openPresentationRepos(t)

	id, err := repo.Create(ctx, newPending(1))
	require.NoError(t, err)

	msg := "upload: connection refused"
	require.NoError(t, repo.UpdateStatus(ctx, id, domain.PresentationStatusFailed, &msg))

	got, err := repo.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.PresentationStatusFailed, got.Status)
	assert.Equal(t, msg, got.ErrorMessage)
}

func TestPresentationRepository_ListByUserAndStatuses(t *testing.T) {
	ctx := context.Background()
	_, repo, _ := openPresentationRepos(t)

	first, err := repo.Create(ctx, newPending(1))
	require.NoError(t, err)
	second, err := repo.Create(ctx, newPending(1))
	require.NoError(t, err)
	require.NoError(t, repo.UpdateStatus(ctx, second, domain.PresentationStatusCompleted, nil))

	mine, err := repo.ListByUser(ctx, 1)
	require.NoError(t, err)
	require.Len(t, mine, 2)

	other, err := repo.ListByUser(ctx, 99)
	require.NoError(t, err)
	assert.Empty(t, other)

	pending, err := repo.ListByStatuses(ctx, domain.PresentationStatusPending)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, first, pending[0].ID)

	none, err := repo.ListByStatuses(ctx)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestSlideRepository_ReplaceAndList(t *testing.T) {
	ctx := context.Background()
	_, presentations, slides := openPresentationRepos(t)

	id, err := presentations.Create(ctx, newPending(1))
	require.NoError(t, err)

	initial := []domain.Slide{
		{PresentationID: id, Position: 1, Title: "Intro", Body: "a"},
		{PresentationID: id, Position: 2, Title: "Middle", Body: "b"},
	}
	require.NoError(t, slides.ReplaceForPresentation(ctx, id, initial))

	got, err := slides.ListByPresentation(ctx, id)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Intro", got[0].Title)

	replacement := []domain.Slide{
		{PresentationID: id, Position: 1, Title: "Only", Body: "c"},
	}
	require.NoError(t, slides.ReplaceForPresentation(ctx, id, replacement))

	got, err = slides.ListByPresentation(ctx, id)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Only", got[0].Title)
}
