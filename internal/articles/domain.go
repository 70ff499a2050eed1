// Package articles implements the article store and its publication workflow.
package articles

import (
	"fmt"
	"strings"
	"time"

	"github.com/newsroom-cms/newsroom/internal/shared"
)

// Status represents the lifecycle of an article.
type Status string

const (
	StatusDraft     Status = "draft"     // being written, editable by the author
	StatusSubmitted Status = "submitted" // waiting for review
	StatusApproved  Status = "approved"  // accepted, waiting for publication
	StatusPublished Status = "published" // visible on the site
	StatusRejected  Status = "rejected"  // declined by a reviewer
	StatusArchived  Status = "archived"  // withdrawn from the site
)

// Statuses lists every valid status.
func Statuses() []Status {
	return []Status{StatusDraft, StatusSubmitted, StatusApproved, StatusPublished, StatusRejected, StatusArchived}
}

// IsValid checks if the status is valid.
func (s Status) IsValid() bool {
	switch s {
	case StatusDraft, StatusSubmitted, StatusApproved, StatusPublished, StatusRejected, StatusArchived:
		return true
	default:
		return false
	}
}

// ParseStatus converts raw input into a Status, rejecting unknown values.
func ParseStatus(raw string) (Status, error) {
	s := Status(strings.ToLower(strings.TrimSpace(raw)))
	if !s.IsValid() {
		return "", fmt.Errorf("%w: unknown article status %q", shared.ErrValidation, raw)
	}
	return s, nil
}

// Article is a news story.
type Article struct {
	ID          int64      `json:"id"`
	Slug        string     `json:"slug"`
	Headline    string     `json:"headline"`
	Summary     string     `json:"summary"`
	Body        string     `json:"body"`
	Status      Status     `json:"status"`
	AuthorID    int64      `json:"author_id"`
	AuthorName  string     `json:"author_name,omitempty"`
	IsFeatured  bool       `json:"is_featured"`
	IsBreaking  bool       `json:"is_breaking"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// CreateInput carries the fields accepted for a new article.
type CreateInput struct {
	Headline   string `json:"headline" validate:"required,max=300"`
	Slug       string `json:"slug" validate:"max=120"`
	Summary    string `json:"summary" validate:"max=1000"`
	Body       string `json:"body"`
	IsFeatured bool   `json:"is_featured"`
	IsBreaking bool   `json:"is_breaking"`
}

// UpdateInput carries editable fields; nil pointers are left unchanged.
// Status is not editable here; it only moves through TransitionArticle.
type UpdateInput struct {
	Headline   *string `json:"headline" validate:"omitempty,min=1,max=300"`
	Summary    *string `json:"summary" validate:"omitempty,max=1000"`
	Body       *string `json:"body"`
	IsFeatured *bool   `json:"is_featured"`
	IsBreaking *bool   `json:"is_breaking"`
}

// ListFilter narrows article listings.
type ListFilter struct {
	Status   *Status
	Featured *bool
	Breaking *bool
	Search   string
	Page     shared.Page
}

// TransitionResult is returned by a successful status change.
type TransitionResult struct {
	ArticleID   int64      `json:"article_id"`
	Status      Status     `json:"status"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
}

// Transition is one row of the article status history. ActorID is zero for the sweep.
type Transition struct {
	ArticleID int64
	From      Status
	To        Status
	ActorID   int64
	At        time.Time
}
