package questionnaire

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/formlead/survey-engine/internal/models"
)

// slugAttempts bounds the generate-and-check loop. With 36^12 possible slugs
// a single retry is already vanishingly unlikely.
const slugAttempts = 10

// CreateLink issues a public access link for a questionnaire. The slug is
// generated and checked against storage in a loop; two concurrent creations
// can still race between check and insert, which the slug's unique constraint
// catches at the storage layer.
func (m *StoreManager) CreateLink(ctx context.Context, req models.CreateLinkRequest, createdBy string) (*models.Link, error) {
	if req.QuestionnaireID == "" {
		return nil, fmt.Errorf("%w: questionnaire_id is required", ErrValidation)
	}

	q, err := m.repo.GetQuestionnaire(ctx, req.QuestionnaireID)
	if err != nil {
		return nil, fmt.Errorf("failed to get questionnaire: %w", err)
	}
	if q == nil {
		return nil, ErrQuestionnaireNotFound
	}

	slug, err := m.uniqueSlug(ctx)
	if err != nil {
		return nil, err
	}

	link := &models.Link{
		ID:              uuid.New().String(),
		QuestionnaireID: req.QuestionnaireID,
		Slug:            slug,
		IsActive:        true,
		AccessCount:     0,
		ExpiresAt:       req.ExpiresAt,
		CreatedBy:       createdBy,
		CreatedAt:       time.Now().UTC(),
	}

	if err := m.repo.CreateLink(ctx, link); err != nil {
		return nil, fmt.Errorf("failed to create link: %w", err)
	}

	return link, nil
}

func (m *StoreManager) uniqueSlug(ctx context.Context) (string, error) {
	for i := 0; i < slugAttempts; i++ {
		slug, err := models.GenerateSlug()
		if err != nil {
			return "", fmt.Errorf("failed to generate slug: %w", err)
		}

		exists, err := m.repo.SlugExists(ctx, slug)
		if err != nil {
			return "", fmt.Errorf("failed to check slug: %w", err)
		}
		if !exists {
			return slug, nil
		}
	}

	return "", ErrSlugConflict
}

// ResolveLink resolves a public slug to its questionnaire summary. Inactive
// slugs are not found; expiry is a derived check made on every resolution,
// so a link past its expires_at fails even while still flagged active. Each
// successful resolution bumps the access counter best-effort.
func (m *StoreManager) ResolveLink(ctx context.Context, slug string) (*models.ResolvedLink, error) {
	resolved, err := m.lookupLink(ctx, slug)
	if err != nil {
		return nil, err
	}

	m.bumpAccess(ctx, resolved.LinkID, slug)
	return resolved, nil
}

// CheckLink validates a slug without counting an access. Step evaluation and
// submission gating go through here so only questionnaire opens, plus
// attributed submissions, move the counter.
func (m *StoreManager) CheckLink(ctx context.Context, slug string) (*models.ResolvedLink, error) {
	return m.lookupLink(ctx, slug)
}

func (m *StoreManager) lookupLink(ctx context.Context, slug string) (*models.ResolvedLink, error) {
	if slug == "" {
		return nil, fmt.Errorf("%w: slug is required", ErrValidation)
	}

	if cached := m.links.GetResolved(ctx, slug); cached != nil {
		if expired(cached.ExpiresAt) {
			return nil, ErrLinkExpired
		}
		return cached, nil
	}

	link, err := m.repo.GetLinkBySlug(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("failed to get link: %w", err)
	}
	if link == nil || !link.IsActive {
		return nil, ErrLinkNotFound
	}
	if link.IsExpired() {
		return nil, ErrLinkExpired
	}

	q, err := m.repo.GetQuestionnaire(ctx, link.QuestionnaireID)
	if err != nil {
		return nil, fmt.Errorf("failed to get questionnaire: %w", err)
	}
	if q == nil {
		return nil, ErrQuestionnaireNotFound
	}

	resolved := &models.ResolvedLink{
		LinkID:        link.ID,
		Questionnaire: q.Summary(),
		ExpiresAt:     link.ExpiresAt,
	}

	m.links.SetResolved(ctx, slug, resolved)

	return resolved, nil
}

// bumpAccess increments the access counter. Bookkeeping only: failures are
// logged and swallowed.
func (m *StoreManager) bumpAccess(ctx context.Context, linkID, slug string) {
	if err := m.repo.IncrementLinkAccess(ctx, linkID); err != nil {
		slog.Warn("failed to increment link access count", "slug", slug, "error", err)
	}
}

func expired(t *time.Time) bool {
	return t != nil && time.Now().After(*t)
}

// ListLinks returns links, optionally filtered by questionnaire
func (m *StoreManager) ListLinks(ctx context.Context, questionnaireID string) ([]*models.Link, error) {
	return m.repo.ListLinks(ctx, questionnaireID)
}

// UpdateLink changes a link's active flag or expiry. Reactivation is allowed
// for operators; public resolution only ever sees the current flags. The
// cache entry is dropped so stale resolutions don't outlive the change.
func (m *StoreManager) UpdateLink(ctx context.Context, slug string, req models.UpdateLinkRequest) (*models.Link, error) {
	if slug == "" {
		return nil, fmt.Errorf("%w: slug is required", ErrValidation)
	}

	link, err := m.repo.GetLinkBySlug(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("failed to get link: %w", err)
	}
	if link == nil {
		return nil, ErrLinkNotFound
	}

	if req.IsActive != nil {
		link.IsActive = *req.IsActive
	}
	if req.SetExpiry {
		link.ExpiresAt = req.ExpiresAt
	}

	if err := m.repo.UpdateLink(ctx, link); err != nil {
		return nil, fmt.Errorf("failed to update link: %w", err)
	}

	m.links.Invalidate(ctx, slug)

	return link, nil
}

// DeactivateExpiredLinks flips active links past their expiry to inactive.
// Resolution never depends on this pass (expiry is checked per resolve); it
// only keeps listings honest. Returns the number of links deactivated.
func (m *StoreManager) DeactivateExpiredLinks(ctx context.Context) (int, error) {
	links, err := m.repo.GetExpiredActiveLinks(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to get expired links: %w", err)
	}

	count := 0
	for _, link := range links {
		link.IsActive = false
		if err := m.repo.UpdateLink(ctx, link); err != nil {
			slog.Error("failed to deactivate expired link", "slug", link.Slug, "error", err)
			continue
		}
		m.links.Invalidate(ctx, link.Slug)
		count++
	}

	return count, nil
}
