package questionnaire

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/formlead/survey-engine/internal/engine"
	"github.com/formlead/survey-engine/internal/models"
)

// SubmitResponse validates a submission, computes its score over the owning
// questionnaire's scoring configuration, and persists it. The score is
// computed exactly once, here; it is a pure function of the config and the
// answer map, so reprocessing with the same inputs is idempotent.
func (m *StoreManager) SubmitResponse(ctx context.Context, req models.SubmitRequest) (*models.Response, error) {
	if req.QuestionnaireID == "" || req.Answers == nil {
		return nil, fmt.Errorf("%w: questionnaire_id and answers are required", ErrValidation)
	}

	q, err := m.repo.GetQuestionnaireTree(ctx, req.QuestionnaireID)
	if err != nil {
		return nil, fmt.Errorf("failed to get questionnaire: %w", err)
	}
	if q == nil {
		return nil, ErrQuestionnaireNotFound
	}

	models.SortSections(q.Sections)
	for _, s := range q.Sections {
		models.SortQuestions(s.Questions)
	}

	status := req.CompletionStatus
	if status == "" {
		status = models.CompletionCompleted
	}

	response := &models.Response{
		ID:               uuid.New().String(),
		QuestionnaireID:  req.QuestionnaireID,
		RespondentName:   req.RespondentName,
		RespondentEmail:  req.RespondentEmail,
		Answers:          req.Answers,
		Score:            engine.ComputeScore(flattenScored(q), req.Answers),
		CompletionStatus: status,
		LeadConverted:    false,
		CreatedAt:        time.Now().UTC(),
	}

	if err := m.repo.CreateResponse(ctx, response); err != nil {
		return nil, fmt.Errorf("failed to store response: %w", err)
	}

	// Bookkeeping only: a failed counter bump never fails the submission.
	if req.LinkID != "" {
		if err := m.repo.IncrementLinkAccess(ctx, req.LinkID); err != nil {
			slog.Warn("failed to increment link access count",
				"link_id", req.LinkID,
				"response_id", response.ID,
				"error", err,
			)
		}
	}

	return response, nil
}

// GetResponse retrieves a stored response by id
func (m *StoreManager) GetResponse(ctx context.Context, id string) (*models.Response, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: response id is required", ErrValidation)
	}

	resp, err := m.repo.GetResponse(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get response: %w", err)
	}
	if resp == nil {
		return nil, ErrResponseNotFound
	}

	return resp, nil
}

// ListResponses returns a page of responses, newest first
func (m *StoreManager) ListResponses(ctx context.Context, filters models.ResponseFilters) (*models.ResponsePage, error) {
	if filters.Limit <= 0 {
		filters.Limit = 10
	}
	if filters.Offset < 0 {
		filters.Offset = 0
	}

	responses, total, err := m.repo.ListResponses(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list responses: %w", err)
	}

	return &models.ResponsePage{
		Responses: responses,
		Total:     total,
		Limit:     filters.Limit,
		Offset:    filters.Offset,
	}, nil
}
