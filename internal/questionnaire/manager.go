// Package questionnaire is the service layer tying the pure engine to
// storage: questionnaire CRUD, step logic evaluation, response ingestion,
// access links, and lead conversion.
package questionnaire

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/formlead/survey-engine/internal/cache"
	"github.com/formlead/survey-engine/internal/definitions"
	"github.com/formlead/survey-engine/internal/engine"
	"github.com/formlead/survey-engine/internal/models"
	"github.com/formlead/survey-engine/internal/storage"
)

// Common errors
var (
	ErrValidation            = errors.New("validation failed")
	ErrQuestionnaireNotFound = errors.New("questionnaire not found")
	ErrSectionNotFound       = errors.New("section not found")
	ErrResponseNotFound      = errors.New("response not found")
	ErrLinkNotFound          = errors.New("link not found")
	ErrLinkExpired           = errors.New("link has expired")
	ErrSlugConflict          = errors.New("could not allocate a unique slug")
	ErrAlreadyConverted      = errors.New("response already converted to lead")
)

// Manager defines the questionnaire engine's operations
type Manager interface {
	// Questionnaires
	CreateQuestionnaire(ctx context.Context, q *models.Questionnaire, createdBy string) (*models.Questionnaire, error)
	GetQuestionnaire(ctx context.Context, id string) (*models.Questionnaire, error)
	ListQuestionnaires(ctx context.Context, limit, offset int) ([]*models.Questionnaire, error)
	UpdateQuestionnaire(ctx context.Context, id string, q *models.Questionnaire) (*models.Questionnaire, error)
	DeactivateQuestionnaire(ctx context.Context, id string) error
	ImportDefinition(ctx context.Context, def *definitions.Definition, createdBy string) (*models.Questionnaire, error)

	// Step logic
	EvaluateStep(ctx context.Context, questionnaireID, currentSectionID string, answers map[string]any) (*engine.VisibilityResult, error)

	// Responses
	SubmitResponse(ctx context.Context, req models.SubmitRequest) (*models.Response, error)
	GetResponse(ctx context.Context, id string) (*models.Response, error)
	ListResponses(ctx context.Context, filters models.ResponseFilters) (*models.ResponsePage, error)

	// Links
	CreateLink(ctx context.Context, req models.CreateLinkRequest, createdBy string) (*models.Link, error)
	ListLinks(ctx context.Context, questionnaireID string) ([]*models.Link, error)
	UpdateLink(ctx context.Context, slug string, req models.UpdateLinkRequest) (*models.Link, error)
	ResolveLink(ctx context.Context, slug string) (*models.ResolvedLink, error)
	CheckLink(ctx context.Context, slug string) (*models.ResolvedLink, error)
	DeactivateExpiredLinks(ctx context.Context) (int, error)

	// Leads
	ConvertLead(ctx context.Context, req models.ConvertLeadRequest) (*models.ConvertLeadResult, error)

	Ping(ctx context.Context) error
}

// StoreManager implements Manager over a storage.Repository with an optional
// link cache in front of slug resolution.
type StoreManager struct {
	repo  storage.Repository
	links *cache.LinkCache
}

// NewManager creates a StoreManager. The cache may be nil (cache-less deploy).
func NewManager(repo storage.Repository, links *cache.LinkCache) *StoreManager {
	return &StoreManager{repo: repo, links: links}
}

// Ping checks that the backing store is reachable
func (m *StoreManager) Ping(ctx context.Context) error {
	if err := m.repo.Ping(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	return nil
}

// CreateQuestionnaire persists a questionnaire with its nested tree. Missing
// entity ids are assigned here; order indexes follow slice positions.
func (m *StoreManager) CreateQuestionnaire(ctx context.Context, q *models.Questionnaire, createdBy string) (*models.Questionnaire, error) {
	if q == nil || q.Name == "" || q.Category == "" {
		return nil, fmt.Errorf("%w: name and category are required", ErrValidation)
	}

	now := time.Now().UTC()
	q.ID = uuid.New().String()
	q.IsActive = true
	q.CreatedBy = createdBy
	q.CreatedAt = now
	q.UpdatedAt = now

	assignTreeIDs(q.ID, q.Sections)

	if err := m.repo.CreateQuestionnaire(ctx, q); err != nil {
		return nil, fmt.Errorf("failed to create questionnaire: %w", err)
	}

	return q, nil
}

// GetQuestionnaire loads a questionnaire with its full tree
func (m *StoreManager) GetQuestionnaire(ctx context.Context, id string) (*models.Questionnaire, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: questionnaire id is required", ErrValidation)
	}

	q, err := m.repo.GetQuestionnaireTree(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get questionnaire: %w", err)
	}
	if q == nil {
		return nil, ErrQuestionnaireNotFound
	}

	return q, nil
}

// ListQuestionnaires returns questionnaires newest first
func (m *StoreManager) ListQuestionnaires(ctx context.Context, limit, offset int) ([]*models.Questionnaire, error) {
	if limit <= 0 {
		limit = 50
	}
	return m.repo.ListQuestionnaires(ctx, limit, offset)
}

// UpdateQuestionnaire updates the questionnaire row and, when sections are
// supplied, replaces the whole tree. Responses keep referencing the
// questionnaire; it is never hard-deleted.
func (m *StoreManager) UpdateQuestionnaire(ctx context.Context, id string, q *models.Questionnaire) (*models.Questionnaire, error) {
	if id == "" || q == nil {
		return nil, fmt.Errorf("%w: questionnaire id and body are required", ErrValidation)
	}

	existing, err := m.repo.GetQuestionnaire(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get questionnaire: %w", err)
	}
	if existing == nil {
		return nil, ErrQuestionnaireNotFound
	}

	existing.Name = q.Name
	existing.Description = q.Description
	existing.Category = q.Category
	existing.Settings = q.Settings
	existing.UpdatedAt = time.Now().UTC()

	if err := m.repo.UpdateQuestionnaire(ctx, existing); err != nil {
		return nil, fmt.Errorf("failed to update questionnaire: %w", err)
	}

	if q.Sections != nil {
		assignTreeIDs(id, q.Sections)
		if err := m.repo.ReplaceSections(ctx, id, q.Sections); err != nil {
			return nil, fmt.Errorf("failed to replace sections: %w", err)
		}
	}

	return m.GetQuestionnaire(ctx, id)
}

// DeactivateQuestionnaire soft-deletes a questionnaire
func (m *StoreManager) DeactivateQuestionnaire(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("%w: questionnaire id is required", ErrValidation)
	}

	q, err := m.repo.GetQuestionnaire(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to get questionnaire: %w", err)
	}
	if q == nil {
		return ErrQuestionnaireNotFound
	}

	return m.repo.SetQuestionnaireActive(ctx, id, false)
}

// ImportDefinition materializes a loaded YAML definition as a questionnaire
// tree. The definition's own ids (if any) survive so its conditions keep
// pointing at the right questions.
func (m *StoreManager) ImportDefinition(ctx context.Context, def *definitions.Definition, createdBy string) (*models.Questionnaire, error) {
	if def == nil {
		return nil, fmt.Errorf("%w: definition is required", ErrValidation)
	}
	return m.CreateQuestionnaire(ctx, def.Questionnaire(), createdBy)
}

// EvaluateStep resolves visibility for the current section's questions and
// all upcoming sections against the answers accumulated so far, and reports
// the running score.
func (m *StoreManager) EvaluateStep(ctx context.Context, questionnaireID, currentSectionID string, answers map[string]any) (*engine.VisibilityResult, error) {
	if questionnaireID == "" || answers == nil {
		return nil, fmt.Errorf("%w: questionnaire id and answers are required", ErrValidation)
	}

	q, err := m.repo.GetQuestionnaireTree(ctx, questionnaireID)
	if err != nil {
		return nil, fmt.Errorf("failed to get questionnaire: %w", err)
	}
	if q == nil {
		return nil, ErrQuestionnaireNotFound
	}

	models.SortSections(q.Sections)

	var current *models.Section
	if currentSectionID == "" && len(q.Sections) > 0 {
		current = q.Sections[0]
	} else {
		for _, s := range q.Sections {
			if s.ID == currentSectionID {
				current = s
				break
			}
		}
	}
	if current == nil {
		return nil, ErrSectionNotFound
	}

	models.SortQuestions(current.Questions)

	result := engine.ResolveVisibility(
		q.Sections,
		current.Questions,
		flattenScored(q),
		answers,
		current.OrderIndex,
	)

	return &result, nil
}

// flattenScored collapses a questionnaire tree into the slice the score
// accumulator consumes, preserving section and question order.
func flattenScored(q *models.Questionnaire) []engine.ScoredQuestion {
	var scored []engine.ScoredQuestion
	for _, s := range q.Sections {
		for _, question := range s.Questions {
			scored = append(scored, engine.ScoredQuestion{
				ID:          question.ID,
				Type:        question.Type,
				ScoreConfig: question.ScoreConfig,
			})
		}
	}
	return scored
}

// assignTreeIDs fills in missing ids and normalizes order indexes to slice
// positions. Caller-supplied question ids are kept: conditions and logic
// rules reference questions by id, so regenerating them would sever those
// references.
func assignTreeIDs(questionnaireID string, sections []*models.Section) {
	for i, s := range sections {
		if s.ID == "" {
			s.ID = uuid.New().String()
		}
		s.QuestionnaireID = questionnaireID
		s.OrderIndex = i
		for j, q := range s.Questions {
			if q.ID == "" {
				q.ID = uuid.New().String()
			}
			q.SectionID = s.ID
			q.OrderIndex = j
			if q.Type == "" {
				q.Type = models.QuestionText
			}
			for _, rule := range q.Logic {
				if rule.ID == "" {
					rule.ID = uuid.New().String()
				}
				rule.QuestionID = q.ID
				if rule.Action == "" {
					rule.Action = models.ActionHide
				}
			}
		}
	}
}
