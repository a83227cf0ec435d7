package models

import "time"

// CompletionStatus marks how far a respondent got.
type CompletionStatus string

const (
	CompletionCompleted CompletionStatus = "completed"
	CompletionPartial   CompletionStatus = "partial"
)

// Response is one respondent's full submission with its persisted score.
// The score is computed once at creation time and never silently recomputed.
type Response struct {
	ID               string           `json:"id"`
	QuestionnaireID  string           `json:"questionnaire_id"`
	RespondentName   string           `json:"respondent_name,omitempty"`
	RespondentEmail  string           `json:"respondent_email,omitempty"`
	Answers          map[string]any   `json:"answers"`
	Score            float64          `json:"score"`
	CompletionStatus CompletionStatus `json:"completion_status"`
	LeadConverted    bool             `json:"lead_converted"`
	CreatedAt        time.Time        `json:"created_at"`
}

// SubmitRequest carries a response submission.
type SubmitRequest struct {
	QuestionnaireID  string           `json:"questionnaire_id"`
	RespondentName   string           `json:"respondent_name,omitempty"`
	RespondentEmail  string           `json:"respondent_email,omitempty"`
	Answers          map[string]any   `json:"answers"`
	CompletionStatus CompletionStatus `json:"completion_status,omitempty"`

	// LinkID associates the submission with the access link it arrived
	// through; the link's access counter is bumped best-effort.
	LinkID string `json:"link_id,omitempty"`
}

// ResponseFilters narrows response listings.
type ResponseFilters struct {
	QuestionnaireID string
	Limit           int
	Offset          int
}

// ResponsePage is one page of a response listing.
type ResponsePage struct {
	Responses []*Response `json:"responses"`
	Total     int         `json:"total"`
	Limit     int         `json:"limit"`
	Offset    int         `json:"offset"`
}
