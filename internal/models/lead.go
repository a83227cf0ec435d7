package models

import "time"

// ClientStatus tracks where a CRM record sits in the funnel.
type ClientStatus string

const (
	ClientLead   ClientStatus = "lead"
	ClientActive ClientStatus = "active"
)

// Client is a CRM record. Lead conversion creates one of these from a
// questionnaire response (or appends to an existing record matched by email).
type Client struct {
	ID        string       `json:"id"`
	Status    ClientStatus `json:"status"`
	Name      string       `json:"name,omitempty"`
	Email     string       `json:"email,omitempty"`
	Phone     string       `json:"phone,omitempty"`
	LeadSource string      `json:"lead_source,omitempty"`
	Notes     string       `json:"notes,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
}

// FollowUpTask is the consultant task raised when a lead is converted.
// Creation is best-effort; a failure never blocks the conversion.
type FollowUpTask struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Description string   `json:"description,omitempty"`
	Status     string    `json:"status"`
	Priority   string    `json:"priority"`
	DueAt      time.Time `json:"due_at"`
	AssignedTo string    `json:"assigned_to"`
	ClientID   string    `json:"client_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// Notification is an in-app message raised for a consultant, for example
// when a lead is assigned to them. Creation is best-effort.
type Notification struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title"`
	Message   string    `json:"message,omitempty"`
	Type      string    `json:"type"`
	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}

// ConvertLeadRequest asks for a response to become a CRM lead.
type ConvertLeadRequest struct {
	ResponseID   string `json:"response_id"`
	ConsultantID string `json:"consultant_id,omitempty"`
	LeadSource   string `json:"lead_source,omitempty"`
}

// ConvertLeadResult reports the outcome of a conversion.
type ConvertLeadResult struct {
	ClientID     string `json:"client_id"`
	ConsultantID string `json:"consultant_id,omitempty"`
	IsNewClient  bool   `json:"is_new_client"`
}
