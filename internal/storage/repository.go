package storage

import (
	"context"

	"github.com/formlead/survey-engine/internal/models"
)

// Repository defines the persistence interface for the questionnaire engine
type Repository interface {
	// Questionnaires
	CreateQuestionnaire(ctx context.Context, q *models.Questionnaire) error
	GetQuestionnaire(ctx context.Context, id string) (*models.Questionnaire, error)
	GetQuestionnaireTree(ctx context.Context, id string) (*models.Questionnaire, error)
	ListQuestionnaires(ctx context.Context, limit, offset int) ([]*models.Questionnaire, error)
	UpdateQuestionnaire(ctx context.Context, q *models.Questionnaire) error
	ReplaceSections(ctx context.Context, questionnaireID string, sections []*models.Section) error
	SetQuestionnaireActive(ctx context.Context, id string, active bool) error

	// Responses
	CreateResponse(ctx context.Context, r *models.Response) error
	GetResponse(ctx context.Context, id string) (*models.Response, error)
	ListResponses(ctx context.Context, filters models.ResponseFilters) ([]*models.Response, int, error)
	MarkResponseConverted(ctx context.Context, id string) error

	// Links
	CreateLink(ctx context.Context, l *models.Link) error
	GetLinkBySlug(ctx context.Context, slug string) (*models.Link, error)
	ListLinks(ctx context.Context, questionnaireID string) ([]*models.Link, error)
	UpdateLink(ctx context.Context, l *models.Link) error
	IncrementLinkAccess(ctx context.Context, id string) error
	SlugExists(ctx context.Context, slug string) (bool, error)
	GetExpiredActiveLinks(ctx context.Context) ([]*models.Link, error)

	// CRM clients and lead conversion side artifacts
	FindClientByEmail(ctx context.Context, email string) (*models.Client, error)
	CreateClient(ctx context.Context, c *models.Client) error
	AppendClientNotes(ctx context.Context, id, notes string) error
	CreateFollowUpTask(ctx context.Context, task *models.FollowUpTask) error
	CreateNotification(ctx context.Context, n *models.Notification) error
	ListActiveConsultants(ctx context.Context) ([]string, error)

	// API Clients
	GetClientByApiKey(ctx context.Context, apiKey string) (*models.ApiClient, error)
	UpdateClientLastUsed(ctx context.Context, apiKey string) error

	// Health
	Ping(ctx context.Context) error
	Close() error
}
