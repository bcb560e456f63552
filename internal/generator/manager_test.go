package generator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"presentai/internal/domain"
	"presentai/internal/repository/sqlite"
	"presentai/internal/service"
	"presentai/internal/storage"
)

// fakeStorage records uploads and snapshots the deck directory contents at
// upload time, since the manager removes the directory afterwards.
type fakeStorage struct {
	mu       sync.Mutex
	uploads  []string
	files    map[string][]string
	deleted  []string
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{files: make(map[string][]string)}
}

func (f *fakeStorage) UploadDirectory(ctx context.Context, localPath string, opts storage.UploadOptions) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var names []string
	entries, err := os.ReadDir(localPath)
	if err != nil {
		return "", err
	}
	for _, e := range entries {
		names = append(names, e.Name())
	}

	f.uploads = append(f.uploads, opts.KeyPrefix)
	f.files[opts.KeyPrefix] = names
	return "s3://" + opts.Bucket + "/" + opts.KeyPrefix, nil
}

func (f *fakeStorage) ListObjects(ctx context.Context, bucket, prefix string) ([]storage.ObjectInfo, error) {
	return nil, nil
}

func (f *fakeStorage) DeletePrefix(ctx context.Context, bucket, prefix string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, prefix)
	return nil
}

func (f *fakeStorage) GetObjectURL(ctx context.Context, bucket, key string, expires time.Duration) (string, error) {
	return "https://example.com/" + key, nil
}

func newTestFixture(t *testing.T, delay time.Duration) (service.PresentationService, *fakeStorage, Manager) {
	t.Helper()
	ctx := context.Background()

	db, err := sqlite.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	users := sqlite.NewUserRepository(db)
	require.NoError(t, users.Init(ctx))
	_, err = users.Create(ctx, &domain.User{Name: "A", Email: "a@b.com", PasswordHash: "h"})
	require.NoError(t, err)

	presentationRepo := sqlite.NewPresentationRepository(db)
	require.NoError(t, presentationRepo.Init(ctx))
	slideRepo := sqlite.NewSlideRepository(db)
	require.NoError(t, slideRepo.Init(ctx))

	svc := service.NewPresentationService(presentationRepo, slideRepo)
	store := newFakeStorage()

	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetLevel(logrus.WarnLevel)

	mgr := NewManager(Config{
		OutputRoot:    filepath.Join(t.TempDir(), "decks"),
		MaxConcurrent: 2,
		GenerateDelay: delay,
		UploadOptions: storage.UploadOptions{Bucket: "test-bucket", KeyPrefix: "presentai-decks"},
		Logger:        logger,
	}, svc, store)
	require.NoError(t, mgr.Start(ctx))
	t.Cleanup(mgr.Shutdown)

	return svc, store, mgr
}

func waitForStatus(t *testing.T, svc service.PresentationService, id int64, want domain.PresentationStatus) *domain.Presentation {
	t.Helper()

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		p, err := svc.GetPresentation(context.Background(), id)
		require.NoError(t, err)
		if p.Status == want {
			return p
		}
		if p.Status == domain.PresentationStatusFailed {
			t.Fatalf("presentation failed: %s", p.ErrorMessage)
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("presentation %d never reached status %s", id, want)
	return nil
}

func TestManager_GeneratesAndUploads(t *testing.T) {
	ctx := context.Background()
	svc, store, mgr := newTestFixture(t, 5*time.Millisecond)

	p, err := svc.CreateRequest(ctx, 1, service.GenerateInput{
		Prompt:     "quarterly sales review",
		TemplateID: 1,
		SlideCount: 5,
	})
	require.NoError(t, err)
	require.NoError(t, mgr.Enqueue(ctx, p.ID))

	done := waitForStatus(t, svc, p.ID, domain.PresentationStatusCompleted)

	assert.Equal(t, fmt.Sprintf("s3://test-bucket/presentai-decks/presentation-%d", p.ID), done.S3Location)
	assert.Len(t, done.Slides, 5)
	assert.Equal(t, "Quarterly sales review", done.DeckName)
	require.NotNil(t, done.GeneratedAt)
	require.NotNil(t, done.UploadedAt)

	// manifest plus one file per slide went up, staging dir is gone
	store.mu.Lock()
	require.Len(t, store.uploads, 1)
	files := store.files[store.uploads[0]]
	store.mu.Unlock()
	assert.Len(t, files, 6)
	assert.Contains(t, files, "deck.json")

	_, err = os.Stat(done.LocalPath)
	assert.True(t, os.IsNotExist(err))
}

func TestManager_CancelDuringGeneration(t *testing.T) {
	ctx := context.Background()
	svc, store, mgr := newTestFixture(t, 10*time.Second)

	p, err := svc.CreateRequest(ctx, 1, service.GenerateInput{
		Prompt:     "a deck that takes forever",
		TemplateID: 1,
	})
	require.NoError(t, err)
	require.NoError(t, mgr.Enqueue(ctx, p.ID))

	waitForStatus(t, svc, p.ID, domain.PresentationStatusGenerating)

	cancelCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	require.NoError(t, mgr.Cancel(cancelCtx, p.ID))

	got, err := svc.GetPresentation(ctx, p.ID)
	require.NoError(t, err)
	assert.NotEqual(t, domain.PresentationStatusCompleted, got.Status)

	store.mu.Lock()
	defer store.mu.Unlock()
	assert.Empty(t, store.uploads)
}

func TestManager_DuplicateEnqueueRunsOnce(t *testing.T) {
	ctx := context.Background()
	svc, store, mgr := newTestFixture(t, 50*time.Millisecond)

	p, err := svc.CreateRequest(ctx, 1, service.GenerateInput{
		Prompt:     "duplicated deck",
		TemplateID: 2,
		SlideCount: 2,
	})
	require.NoError(t, err)
	require.NoError(t, mgr.Enqueue(ctx, p.ID))
	require.NoError(t, mgr.Enqueue(ctx, p.ID))

	waitForStatus(t, svc, p.ID, domain.PresentationStatusCompleted)

	// leave room for a second worker to surface before counting
	time.Sleep(150 * time.Millisecond)

	store.mu.Lock()
	defer store.mu.Unlock()
	assert.Len(t, store.uploads, 1)
}

func TestManager_RegisterJobRejectsDuplicate(t *testing.T) {
	t.Parallel()
	m := &manager{active: make(map[int64]*jobHandle)}

	first := &jobHandle{done: make(chan struct{})}
	require.True(t, m.registerJob(7, first))

	second := &jobHandle{done: make(chan struct{})}
	assert.False(t, m.registerJob(7, second))

	handle, ok := m.getJobHandle(7)
	require.True(t, ok)
	assert.Same(t, first, handle)

	m.unregisterJob(7)
	_, ok = m.getJobHandle(7)
	assert.False(t, ok)
}

func TestManager_ResumeRequeuesPending(t *testing.T) {
	ctx := context.Background()
	svc, _, mgr := newTestFixture(t, 5*time.Millisecond)

	p, err := svc.CreateRequest(ctx, 1, service.GenerateInput{
		Prompt:     "resumed deck",
		TemplateID: 3,
		SlideCount: 2,
	})
	require.NoError(t, err)

	require.NoError(t, mgr.Resume(ctx))
	done := waitForStatus(t, svc, p.ID, domain.PresentationStatusCompleted)
	assert.Len(t, done.Slides, 2)
}

func TestBuildSlides(t *testing.T) {
	t.Parallel()

	p := &domain.Presentation{
		ID:         1,
		Prompt:     "cybersecurity training",
		Tone:       "Professional",
		SlideCount: 4,
	}
	slides := buildSlides(p)
	require.Len(t, slides, 4)
	assert.Equal(t, "Cybersecurity training", slides[0].Title)
	assert.Equal(t, "Summary & Next Steps", slides[3].Title)
	for i, slide := range slides {
		assert.Equal(t, i+1, slide.Position)
	}

	single := buildSlides(&domain.Presentation{ID: 2, Prompt: "x", Tone: "Casual", SlideCount: 1})
	require.Len(t, single, 1)
}

func TestDeckTitle(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Untitled Deck", deckTitle("   "))
	assert.Equal(t, "Hello world", deckTitle("hello   world"))

	long := deckTitle("this prompt is definitely going to be longer than sixty characters in total length")
	assert.LessOrEqual(t, utf8.RuneCountInString(long), 63)
	assert.True(t, len(long) > 3)

	// multibyte prompts must not be cut mid-rune
	accented := deckTitle("über " + strings.Repeat("ö", 70))
	assert.True(t, utf8.ValidString(accented))
	assert.True(t, strings.HasPrefix(accented, "Über"))
	assert.True(t, strings.HasSuffix(accented, "..."))
	assert.LessOrEqual(t, utf8.RuneCountInString(accented), 63)
}

