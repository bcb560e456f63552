package generator

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"presentai/internal/domain"
	"presentai/internal/service"
	"presentai/internal/storage"
)

// Manager coordinates deck generation, slide persistence, and upload lifecycle.
type Manager interface {
	Start(ctx context.Context) error
	Shutdown()
	Enqueue(ctx context.Context, presentationID int64) error
	Resume(ctx context.Context) error
	Cancel(ctx context.Context, presentationID int64) error
}

type Config struct {
	OutputRoot    string
	MaxConcurrent int
	GenerateDelay time.Duration
	UploadOptions storage.UploadOptions
	Logger        *logrus.Logger
}

type manager struct {
	cfg           Config
	presentations service.PresentationService
	storage       storage.Service

	sem    chan struct{}
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
	mu     sync.Mutex
	active map[int64]*jobHandle
}

type jobHandle struct {
	cancel context.CancelFunc
	done   chan struct{}
}

func NewManager(cfg Config, presentations service.PresentationService, storage storage.Service) Manager {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 3
	}
	if cfg.GenerateDelay <= 0 {
		cfg.GenerateDelay = 500 * time.Millisecond
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	return &manager{
		cfg:           cfg,
		presentations: presentations,
		storage:       storage,
		sem:           make(chan struct{}, cfg.MaxConcurrent),
		active:        make(map[int64]*jobHandle),
	}
}

func (m *manager) Start(ctx context.Context) error {
	if err := os.MkdirAll(m.cfg.OutputRoot, 0o755); err != nil {
		return fmt.Errorf("create output root: %w", err)
	}

	m.ctx, m.cancel = context.WithCancel(ctx)
	m.cfg.Logger.Infof("generator started, output dir: %s", m.cfg.OutputRoot)
	return nil
}

func (m *manager) Shutdown() {
	if m.cancel != nil {
		m.cancel()
	}
	m.wg.Wait()
	m.cfg.Logger.Info("generator stopped")
}

func (m *manager) Enqueue(ctx context.Context, presentationID int64) error {
	p, err := m.presentations.GetPresentation(ctx, presentationID)
	if err != nil {
		return err
	}
	m.spawnJob(*p)
	return nil
}

// Resume requeues every presentation that was mid-flight when the server
// last stopped.
func (m *manager) Resume(ctx context.Context) error {
	presentations, err := m.presentations.ListByStatuses(ctx,
		domain.PresentationStatusPending,
		domain.PresentationStatusGenerating,
		domain.PresentationStatusGenerated,
		domain.PresentationStatusUploading,
	)
	if err != nil {
		return err
	}

	for i := range presentations {
		m.spawnJob(presentations[i])
	}
	return nil
}

func (m *manager) spawnJob(p domain.Presentation) {
	jobCtx, cancel := context.WithCancel(m.ctx)
	handle := &jobHandle{
		cancel: cancel,
		done:   make(chan struct{}),
	}
	if !m.registerJob(p.ID, handle) {
		// a job for this presentation is already in flight
		cancel()
		return
	}

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer func() {
			m.unregisterJob(p.ID)
			close(handle.done)
		}()
		select {
		case <-m.ctx.Done():
			return
		case <-jobCtx.Done():
			return
		case m.sem <- struct{}{}:
			defer func() { <-m.sem }()
			m.handleJob(jobCtx, &p)
		}
	}()
}

func (m *manager) registerJob(id int64, handle *jobHandle) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.active[id]; ok {
		return false
	}
	m.active[id] = handle
	return true
}

func (m *manager) unregisterJob(id int64) {
	m.mu.Lock()
	delete(m.active, id)
	m.mu.Unlock()
}

func (m *manager) getJobHandle(id int64) (*jobHandle, bool) {
	m.mu.Lock()
	handle, ok := m.active[id]
	m.mu.Unlock()
	return handle, ok
}

func (m *manager) Cancel(ctx context.Context, presentationID int64) error {
	handle, ok := m.getJobHandle(presentationID)
	if !ok {
		return nil
	}

	handle.cancel()

	select {
	case <-handle.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *manager) handleJob(ctx context.Context, p *domain.Presentation) {
	logger := m.cfg.Logger.WithField("presentation_id", p.ID)
	switch p.Status {
	case domain.PresentationStatusCompleted:
		logger.Debug("presentation already completed, skipping")
		return
	case domain.PresentationStatusGenerated:
		logger.Info("deck already generated, resuming upload")
		m.uploadAndCleanup(ctx, p)
		return
	case domain.PresentationStatusUploading:
		logger.Info("presentation mid-upload, resuming upload")
		m.uploadAndCleanup(ctx, p)
		return
	}

	if err := m.presentations.UpdateStatus(ctx, p.ID, domain.PresentationStatusGenerating, nil); err != nil {
		logger.Errorf("update status failed: %v", err)
		return
	}
	p.Status = domain.PresentationStatusGenerating

	// placeholder pipeline: the model call is simulated with a fixed delay
	timer := time.NewTimer(m.cfg.GenerateDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		logger.Info("job cancelled during generation")
		return
	case <-timer.C:
	}

	slides := buildSlides(p)
	if err := m.presentations.ReplaceSlides(ctx, p.ID, slides); err != nil {
		m.failJob(ctx, p.ID, fmt.Errorf("persist slides: %w", err))
		return
	}
	p.Slides = slides

	deckName := deckTitle(p.Prompt)
	localPath := filepath.Join(m.cfg.OutputRoot, fmt.Sprintf("deck-%s", uuid.NewString()))
	if err := writeDeck(localPath, p, slides); err != nil {
		m.failJob(ctx, p.ID, fmt.Errorf("write deck: %w", err))
		return
	}
	p.DeckName = deckName
	p.LocalPath = localPath

	if err := m.presentations.UpdateDeckInfo(ctx, p.ID, deckName, localPath); err != nil {
		logger.Errorf("update deck info: %v", err)
	}
	if err := m.presentations.MarkGenerated(ctx, p.ID); err != nil {
		logger.Warnf("mark generated: %v", err)
	}
	p.Status = domain.PresentationStatusGenerated
	logger.Infof("generated %d slides", len(slides))

	m.uploadAndCleanup(ctx, p)
}

func (m *manager) uploadAndCleanup(ctx context.Context, p *domain.Presentation) {
	logger := m.cfg.Logger.WithField("presentation_id", p.ID)

	if err := m.presentations.UpdateStatus(ctx, p.ID, domain.PresentationStatusUploading, nil); err != nil {
		logger.Errorf("set uploading status: %v", err)
		return
	}
	p.Status = domain.PresentationStatusUploading

	localPath := p.LocalPath
	if localPath == "" {
		m.failJob(ctx, p.ID, fmt.Errorf("deck data missing"))
		return
	}
	if _, err := os.Stat(localPath); err != nil {
		m.failJob(ctx, p.ID, fmt.Errorf("deck data missing: %w", err))
		return
	}

	opts := m.cfg.UploadOptions
	prefix := strings.Trim(opts.KeyPrefix, "/")
	jobPrefix := fmt.Sprintf("presentation-%d", p.ID)
	if prefix == "" {
		opts.KeyPrefix = jobPrefix
	} else {
		opts.KeyPrefix = fmt.Sprintf("%s/%s", prefix, jobPrefix)
	}

	logger.Infof("upload started from %s", localPath)

	dest, err := m.storage.UploadDirectory(ctx, localPath, opts)
	if err != nil {
		m.failJob(ctx, p.ID, fmt.Errorf("upload: %w", err))
		return
	}

	if err := m.presentations.MarkUploaded(ctx, p.ID, dest); err != nil {
		logger.Errorf("mark uploaded: %v", err)
		return
	}
	p.Status = domain.PresentationStatusCompleted

	if err := os.RemoveAll(localPath); err != nil {
		logger.Warnf("cleanup deck dir: %v", err)
	}

	logger.Infof("presentation completed and uploaded to %s", dest)
}

func (m *manager) failJob(ctx context.Context, presentationID int64, failErr error) {
	msg := failErr.Error()
	if err := m.presentations.UpdateStatus(ctx, presentationID, domain.PresentationStatusFailed, &msg); err != nil {
		m.cfg.Logger.WithField("presentation_id", presentationID).Errorf("persist failure status: %v", err)
	}
	m.cfg.Logger.WithField("presentation_id", presentationID).Error(msg)
}

// buildSlides synthesizes a placeholder outline for the requested prompt. The
// first slide introduces the topic, the last one closes the deck, everything
// in between is a numbered talking point.
func buildSlides(p *domain.Presentation) []domain.Slide {
	count := p.SlideCount
	if count < 1 {
		count = 1
	}

	slides := make([]domain.Slide, 0, count)
	slides = append(slides, domain.Slide{
		PresentationID: p.ID,
		Position:       1,
		Title:          deckTitle(p.Prompt),
		Body:           fmt.Sprintf("A %s deck about: %s", strings.ToLower(p.Tone), p.Prompt),
	})

	for i := 2; i < count; i++ {
		slides = append(slides, domain.Slide{
			PresentationID: p.ID,
			Position:       i,
			Title:          fmt.Sprintf("Key Point %d", i-1),
			Body:           fmt.Sprintf("Talking point %d covering \"%s\".", i-1, deckTitle(p.Prompt)),
		})
	}

	if count > 1 {
		slides = append(slides, domain.Slide{
			PresentationID: p.ID,
			Position:       count,
			Title:          "Summary & Next Steps",
			Body:           "Recap of the main points and proposed follow-ups.",
		})
	}
	return slides
}

// deckTitle trims the prompt down to something usable as a deck name.
// Truncation counts runes so multibyte prompts stay valid UTF-8.
func deckTitle(prompt string) string {
	title := strings.Join(strings.Fields(prompt), " ")
	const maxLen = 60
	if utf8.RuneCountInString(title) > maxLen {
		runes := []rune(title)
		title = strings.TrimSpace(string(runes[:maxLen])) + "..."
	}
	if title == "" {
		return "Untitled Deck"
	}
	first, size := utf8.DecodeRuneInString(title)
	return string(unicode.ToUpper(first)) + title[size:]
}

type deckManifest struct {
	Title      string    `json:"title"`
	Prompt     string    `json:"prompt"`
	TemplateID int       `json:"template_id"`
	Tone       string    `json:"tone"`
	Duration   int       `json:"duration"`
	SlideCount int       `json:"slide_count"`
	CreatedAt  time.Time `json:"created_at"`
}

// writeDeck lays out the generated deck on disk: a manifest plus one markdown
// file per slide, ready for upload as a directory.
func writeDeck(dir string, p *domain.Presentation, slides []domain.Slide) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create deck dir: %w", err)
	}

	manifest := deckManifest{
		Title:      deckTitle(p.Prompt),
		Prompt:     p.Prompt,
		TemplateID: p.TemplateID,
		Tone:       p.Tone,
		Duration:   p.Duration,
		SlideCount: len(slides),
		CreatedAt:  time.Now().UTC(),
	}
	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "deck.json"), data, 0o644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}

	for _, slide := range slides {
		name := fmt.Sprintf("slide-%02d.md", slide.Position)
		content := fmt.Sprintf("# %s\n\n%s\n", slide.Title, slide.Body)
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			return fmt.Errorf("write slide %d: %w", slide.Position, err)
		}
	}
	return nil
}

var _ Manager = (*manager)(nil)
