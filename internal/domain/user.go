package domain

import "time"

// User represents a registered account. Email is the unique login key and is
// stored lower-cased and trimmed.
type User struct {
	ID           int64
	Name         string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
