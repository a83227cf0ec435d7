package questionnaire

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/formlead/survey-engine/internal/models"
)

// ConvertLead turns a completed response into a CRM lead. A response
// converts at most once: lead_converted transitions false to true and never
// back. The client record is reused when a client with the respondent's email
// already exists (notes appended); otherwise a new lead is created. The
// follow-up task is best-effort and never blocks the conversion.
func (m *StoreManager) ConvertLead(ctx context.Context, req models.ConvertLeadRequest) (*models.ConvertLeadResult, error) {
	if req.ResponseID == "" {
		return nil, fmt.Errorf("%w: response_id is required", ErrValidation)
	}

	response, err := m.repo.GetResponse(ctx, req.ResponseID)
	if err != nil {
		return nil, fmt.Errorf("failed to get response: %w", err)
	}
	if response == nil {
		return nil, ErrResponseNotFound
	}
	if response.LeadConverted {
		return nil, ErrAlreadyConverted
	}

	q, err := m.repo.GetQuestionnaire(ctx, response.QuestionnaireID)
	if err != nil {
		return nil, fmt.Errorf("failed to get questionnaire: %w", err)
	}
	if q == nil {
		return nil, ErrQuestionnaireNotFound
	}

	source := req.LeadSource
	if source == "" {
		source = "questionnaire"
	}

	consultantID := req.ConsultantID
	if consultantID == "" {
		consultantID = m.pickConsultant(ctx)
	}

	notes := buildLeadNotes(q, response)

	result := &models.ConvertLeadResult{ConsultantID: consultantID}

	var existing *models.Client
	if response.RespondentEmail != "" {
		existing, err = m.repo.FindClientByEmail(ctx, response.RespondentEmail)
		if err != nil {
			return nil, fmt.Errorf("failed to look up client: %w", err)
		}
	}

	if existing != nil {
		if err := m.repo.AppendClientNotes(ctx, existing.ID, notes); err != nil {
			return nil, fmt.Errorf("failed to update client: %w", err)
		}
		result.ClientID = existing.ID
	} else {
		client := &models.Client{
			ID:         uuid.New().String(),
			Status:     models.ClientLead,
			Name:       response.RespondentName,
			Email:      response.RespondentEmail,
			LeadSource: fmt.Sprintf("%s: %s", source, q.Name),
			Notes:      notes,
			CreatedAt:  time.Now().UTC(),
		}
		if phone := answerString(response.Answers, "phone", "telefone"); phone != "" {
			client.Phone = phone
		}
		if err := m.repo.CreateClient(ctx, client); err != nil {
			return nil, fmt.Errorf("failed to create client: %w", err)
		}
		result.ClientID = client.ID
		result.IsNewClient = true
	}

	if consultantID != "" {
		m.createFollowUpTask(ctx, consultantID, result.ClientID, q, response)
		m.notifyConsultant(ctx, consultantID, q, response)
	}

	if err := m.repo.MarkResponseConverted(ctx, req.ResponseID); err != nil {
		return nil, fmt.Errorf("failed to mark response converted: %w", err)
	}

	return result, nil
}

// pickConsultant assigns a random active consultant. No consultants is not
// an error: the lead is simply created unassigned.
func (m *StoreManager) pickConsultant(ctx context.Context) string {
	consultants, err := m.repo.ListActiveConsultants(ctx)
	if err != nil {
		slog.Warn("failed to list consultants for lead assignment", "error", err)
		return ""
	}
	if len(consultants) == 0 {
		return ""
	}
	return consultants[rand.Intn(len(consultants))]
}

func (m *StoreManager) createFollowUpTask(ctx context.Context, consultantID, clientID string, q *models.Questionnaire, response *models.Response) {
	name := response.RespondentName
	if name == "" {
		name = "unnamed respondent"
	}

	task := &models.FollowUpTask{
		ID:          uuid.New().String(),
		Title:       fmt.Sprintf("New lead from questionnaire: %s", name),
		Description: fmt.Sprintf("Generated from questionnaire %q.\nScore: %g\nEmail: %s", q.Name, response.Score, orDefault(response.RespondentEmail, "not provided")),
		Status:      "pending",
		Priority:    "high",
		DueAt:       time.Now().UTC().Add(24 * time.Hour),
		AssignedTo:  consultantID,
		ClientID:    clientID,
		CreatedAt:   time.Now().UTC(),
	}

	if err := m.repo.CreateFollowUpTask(ctx, task); err != nil {
		slog.Error("failed to create follow-up task", "client_id", clientID, "error", err)
	}
}

// notifyConsultant raises an in-app notification for the assigned
// consultant. Best-effort, like the follow-up task.
func (m *StoreManager) notifyConsultant(ctx context.Context, consultantID string, q *models.Questionnaire, response *models.Response) {
	n := &models.Notification{
		ID:        uuid.New().String(),
		UserID:    consultantID,
		Title:     "New lead assigned",
		Message:   fmt.Sprintf("A lead from questionnaire %q (score %g) was assigned to you.", q.Name, response.Score),
		Type:      "lead_assigned",
		CreatedAt: time.Now().UTC(),
	}

	if err := m.repo.CreateNotification(ctx, n); err != nil {
		slog.Error("failed to create notification", "consultant_id", consultantID, "error", err)
	}
}

func buildLeadNotes(q *models.Questionnaire, response *models.Response) string {
	notes := fmt.Sprintf("Generated from questionnaire: %s\nScore: %g\nSubmitted: %s",
		q.Name,
		response.Score,
		response.CreatedAt.Format(time.RFC3339),
	)

	if detail, err := json.MarshalIndent(response.Answers, "", "  "); err == nil {
		notes += "\n\nDetailed answers:\n" + string(detail)
	}

	return notes
}

// answerString pulls the first present string answer among the given keys.
// Question ids in imported questionnaires often carry semantic names, which
// is what makes this mapping possible at all.
func answerString(answers map[string]any, keys ...string) string {
	for _, key := range keys {
		if v, ok := answers[key].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
