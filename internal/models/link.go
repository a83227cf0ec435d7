package models

import (
	"crypto/rand"
	"time"
)

// SlugLength is the length of public link slugs.
const SlugLength = 12

const slugAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// Link is a shareable public token granting access to a questionnaire.
// Links are deactivated, never deleted; expiry is derived at resolve time.
type Link struct {
	ID              string     `json:"id"`
	QuestionnaireID string     `json:"questionnaire_id"`
	Slug            string     `json:"slug"`
	IsActive        bool       `json:"is_active"`
	AccessCount     int        `json:"access_count"`
	ExpiresAt       *time.Time `json:"expires_at,omitempty"`
	CreatedBy       string     `json:"created_by,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

// IsExpired reports whether the link's expiry has passed.
func (l *Link) IsExpired() bool {
	if l.ExpiresAt == nil {
		return false
	}
	return time.Now().After(*l.ExpiresAt)
}

// GenerateSlug creates a random lowercase alphanumeric slug. Uniqueness is
// the caller's concern (checked against storage with a bounded retry loop).
func GenerateSlug() (string, error) {
	buf := make([]byte, SlugLength)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i, b := range buf {
		buf[i] = slugAlphabet[int(b)%len(slugAlphabet)]
	}
	return string(buf), nil
}

// CreateLinkRequest carries a link creation request.
type CreateLinkRequest struct {
	QuestionnaireID string     `json:"questionnaire_id"`
	ExpiresAt       *time.Time `json:"expires_at,omitempty"`
}

// UpdateLinkRequest updates a link's active flag or expiry. Nil fields are
// left untouched; SetExpiry distinguishes "clear expiry" from "no change".
type UpdateLinkRequest struct {
	IsActive  *bool      `json:"is_active,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	SetExpiry bool       `json:"set_expiry,omitempty"`
}

// ResolvedLink is the public payload returned when a slug resolves.
// ExpiresAt travels with the payload so cached entries can still be
// expiry-checked at resolve time.
type ResolvedLink struct {
	LinkID        string               `json:"link_id"`
	Questionnaire QuestionnaireSummary `json:"questionnaire"`
	ExpiresAt     *time.Time           `json:"expires_at,omitempty"`
}
