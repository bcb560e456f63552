package domain

import "time"

type PresentationStatus string

const (
	PresentationStatusPending    PresentationStatus = "pending"
	PresentationStatusGenerating PresentationStatus = "generating"
	PresentationStatusGenerated  PresentationStatus = "generated"
	PresentationStatusUploading  PresentationStatus = "uploading"
	PresentationStatusCompleted  PresentationStatus = "completed"
	PresentationStatusFailed     PresentationStatus = "failed"
)

// Presentation represents a generation request tracked by the system.
type Presentation struct {
	ID           int64
	UserID       int64
	Prompt       string
	TemplateID   int
	SlideCount   int
	Duration     int
	Tone         string
	Status       PresentationStatus
	DeckName     string
	LocalPath    string
	S3Location   string
	ErrorMessage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	GeneratedAt  *time.Time
	UploadedAt   *time.Time
	Slides       []Slide
}

// Slide captures an individual slide produced for a presentation.
type Slide struct {
	ID             int64
	PresentationID int64
	Position       int
	Title          string
	Body           string
}

// Template describes a deck template the generator accepts.
type Template struct {
	ID          int
	Name        string
	Description string
}
