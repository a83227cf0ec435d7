package questionnaire

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/formlead/survey-engine/internal/models"
)

// fakeRepo is an in-memory Repository for service-level tests.
type fakeRepo struct {
	questionnaires map[string]*models.Questionnaire
	responses      map[string]*models.Response
	links          map[string]*models.Link // by id
	clients        map[string]*models.Client
	tasks          []*models.FollowUpTask
	notifications  []*models.Notification
	consultants    []string

	slugTaken func(slug string) bool
	failIncr  bool
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		questionnaires: make(map[string]*models.Questionnaire),
		responses:      make(map[string]*models.Response),
		links:          make(map[string]*models.Link),
		clients:        make(map[string]*models.Client),
	}
}

func (f *fakeRepo) CreateQuestionnaire(_ context.Context, q *models.Questionnaire) error {
	f.questionnaires[q.ID] = q
	return nil
}

func (f *fakeRepo) GetQuestionnaire(_ context.Context, id string) (*models.Questionnaire, error) {
	return f.questionnaires[id], nil
}

func (f *fakeRepo) GetQuestionnaireTree(_ context.Context, id string) (*models.Questionnaire, error) {
	return f.questionnaires[id], nil
}

func (f *fakeRepo) ListQuestionnaires(_ context.Context, _, _ int) ([]*models.Questionnaire, error) {
	out := make([]*models.Questionnaire, 0, len(f.questionnaires))
	for _, q := range f.questionnaires {
		out = append(out, q)
	}
	return out, nil
}

func (f *fakeRepo) UpdateQuestionnaire(_ context.Context, q *models.Questionnaire) error {
	f.questionnaires[q.ID] = q
	return nil
}

func (f *fakeRepo) ReplaceSections(_ context.Context, questionnaireID string, sections []*models.Section) error {
	if q, ok := f.questionnaires[questionnaireID]; ok {
		q.Sections = sections
	}
	return nil
}

func (f *fakeRepo) SetQuestionnaireActive(_ context.Context, id string, active bool) error {
	if q, ok := f.questionnaires[id]; ok {
		q.IsActive = active
	}
	return nil
}

func (f *fakeRepo) CreateResponse(_ context.Context, r *models.Response) error {
	f.responses[r.ID] = r
	return nil
}

func (f *fakeRepo) GetResponse(_ context.Context, id string) (*models.Response, error) {
	return f.responses[id], nil
}

func (f *fakeRepo) ListResponses(_ context.Context, filters models.ResponseFilters) ([]*models.Response, int, error) {
	var out []*models.Response
	for _, r := range f.responses {
		if filters.QuestionnaireID == "" || r.QuestionnaireID == filters.QuestionnaireID {
			out = append(out, r)
		}
	}
	return out, len(out), nil
}

func (f *fakeRepo) MarkResponseConverted(_ context.Context, id string) error {
	if r, ok := f.responses[id]; ok && !r.LeadConverted {
		r.LeadConverted = true
	}
	return nil
}

func (f *fakeRepo) CreateLink(_ context.Context, l *models.Link) error {
	f.links[l.ID] = l
	return nil
}

func (f *fakeRepo) GetLinkBySlug(_ context.Context, slug string) (*models.Link, error) {
	for _, l := range f.links {
		if l.Slug == slug {
			return l, nil
		}
	}
	return nil, nil
}

func (f *fakeRepo) ListLinks(_ context.Context, questionnaireID string) ([]*models.Link, error) {
	var out []*models.Link
	for _, l := range f.links {
		if questionnaireID == "" || l.QuestionnaireID == questionnaireID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (f *fakeRepo) UpdateLink(_ context.Context, l *models.Link) error {
	f.links[l.ID] = l
	return nil
}

func (f *fakeRepo) IncrementLinkAccess(_ context.Context, id string) error {
	if f.failIncr {
		return errors.New("increment failed")
	}
	l, ok := f.links[id]
	if !ok {
		return errors.New("link not found")
	}
	l.AccessCount++
	return nil
}

func (f *fakeRepo) SlugExists(_ context.Context, slug string) (bool, error) {
	if f.slugTaken != nil && f.slugTaken(slug) {
		return true, nil
	}
	l, err := f.GetLinkBySlug(context.Background(), slug)
	return l != nil, err
}

func (f *fakeRepo) GetExpiredActiveLinks(_ context.Context) ([]*models.Link, error) {
	var out []*models.Link
	for _, l := range f.links {
		if l.IsActive && l.IsExpired() {
			out = append(out, l)
		}
	}
	return out, nil
}

func (f *fakeRepo) FindClientByEmail(_ context.Context, email string) (*models.Client, error) {
	for _, c := range f.clients {
		if c.Email == email {
			return c, nil
		}
	}
	return nil, nil
}

func (f *fakeRepo) CreateClient(_ context.Context, c *models.Client) error {
	f.clients[c.ID] = c
	return nil
}

func (f *fakeRepo) AppendClientNotes(_ context.Context, id, notes string) error {
	if c, ok := f.clients[id]; ok {
		c.Notes += notes
	}
	return nil
}

func (f *fakeRepo) CreateFollowUpTask(_ context.Context, task *models.FollowUpTask) error {
	f.tasks = append(f.tasks, task)
	return nil
}

func (f *fakeRepo) CreateNotification(_ context.Context, n *models.Notification) error {
	f.notifications = append(f.notifications, n)
	return nil
}

func (f *fakeRepo) ListActiveConsultants(_ context.Context) ([]string, error) {
	return f.consultants, nil
}

func (f *fakeRepo) GetClientByApiKey(_ context.Context, _ string) (*models.ApiClient, error) {
	return nil, nil
}

func (f *fakeRepo) UpdateClientLastUsed(_ context.Context, _ string) error { return nil }
func (f *fakeRepo) Ping(_ context.Context) error                          { return nil }
func (f *fakeRepo) Close() error                                          { return nil }

// seedQuestionnaire builds a two-section questionnaire: section A with a
// free number question and a scored single choice, section B gated on the
// number question being greater than 5.
func seedQuestionnaire(t *testing.T, m *StoreManager) *models.Questionnaire {
	t.Helper()

	ten := models.Number(10)
	zero := models.Number(0)

	q := &models.Questionnaire{
		Name:     "Fit Assessment",
		Category: "sales",
		Sections: []*models.Section{
			{
				Name: "Basics",
				Questions: []*models.Question{
					{ID: "q1", Text: "Team size?", Type: models.QuestionNumber},
					{
						ID:   "q2",
						Text: "Interested in a demo?",
						Type: models.QuestionSingleChoice,
						ScoreConfig: &models.ScoreConfig{
							Options: map[string]models.Number{"yes": ten, "no": zero},
						},
					},
				},
			},
			{
				Name: "Enterprise",
				DisplayCondition: &models.Condition{
					Type:       models.ConditionSimple,
					QuestionID: "q1",
					Operator:   models.OpGreaterThan,
					Value:      5,
				},
			},
		},
	}

	created, err := m.CreateQuestionnaire(context.Background(), q, "admin")
	if err != nil {
		t.Fatalf("CreateQuestionnaire: %v", err)
	}
	return created
}

func TestSubmitResponseScoresAndStores(t *testing.T) {
	repo := newFakeRepo()
	m := NewManager(repo, nil)
	q := seedQuestionnaire(t, m)

	resp, err := m.SubmitResponse(context.Background(), models.SubmitRequest{
		QuestionnaireID: q.ID,
		RespondentName:  "Dana",
		RespondentEmail: "dana@example.com",
		Answers:         map[string]any{"q1": 8, "q2": "yes"},
	})
	if err != nil {
		t.Fatalf("SubmitResponse: %v", err)
	}

	if resp.Score != 10 {
		t.Errorf("score = %g, want 10", resp.Score)
	}
	if resp.CompletionStatus != models.CompletionCompleted {
		t.Errorf("completion status = %q, want completed", resp.CompletionStatus)
	}
	if resp.LeadConverted {
		t.Error("fresh response marked converted")
	}
	if _, ok := repo.responses[resp.ID]; !ok {
		t.Error("response not persisted")
	}
}

func TestSubmitResponseValidation(t *testing.T) {
	m := NewManager(newFakeRepo(), nil)

	_, err := m.SubmitResponse(context.Background(), models.SubmitRequest{QuestionnaireID: "x"})
	if !errors.Is(err, ErrValidation) {
		t.Errorf("missing answers: err = %v, want ErrValidation", err)
	}

	_, err = m.SubmitResponse(context.Background(), models.SubmitRequest{
		QuestionnaireID: "missing",
		Answers:         map[string]any{},
	})
	if !errors.Is(err, ErrQuestionnaireNotFound) {
		t.Errorf("unknown questionnaire: err = %v, want ErrQuestionnaireNotFound", err)
	}
}

func TestEvaluateStepGatesLaterSections(t *testing.T) {
	repo := newFakeRepo()
	m := NewManager(repo, nil)
	q := seedQuestionnaire(t, m)

	firstSection := q.Sections[0].ID

	result, err := m.EvaluateStep(context.Background(), q.ID, firstSection, map[string]any{"q1": 8, "q2": "yes"})
	if err != nil {
		t.Fatalf("EvaluateStep: %v", err)
	}
	if result.CurrentScore != 10 {
		t.Errorf("current score = %g, want 10", result.CurrentScore)
	}
	if len(result.NextSections) != 1 || !result.NextSections[0].ShouldDisplay {
		t.Errorf("next sections = %+v, want one visible section", result.NextSections)
	}

	result, err = m.EvaluateStep(context.Background(), q.ID, firstSection, map[string]any{"q1": 3, "q2": "no"})
	if err != nil {
		t.Fatalf("EvaluateStep: %v", err)
	}
	if result.CurrentScore != 0 {
		t.Errorf("current score = %g, want 0", result.CurrentScore)
	}
	if len(result.NextSections) != 1 || result.NextSections[0].ShouldDisplay {
		t.Errorf("next sections = %+v, want one hidden section", result.NextSections)
	}
}

func TestLinkLifecycle(t *testing.T) {
	repo := newFakeRepo()
	m := NewManager(repo, nil)
	q := seedQuestionnaire(t, m)

	link, err := m.CreateLink(context.Background(), models.CreateLinkRequest{QuestionnaireID: q.ID}, "admin")
	if err != nil {
		t.Fatalf("CreateLink: %v", err)
	}
	if len(link.Slug) != models.SlugLength {
		t.Errorf("slug %q has length %d, want %d", link.Slug, len(link.Slug), models.SlugLength)
	}
	if link.Slug != strings.ToLower(link.Slug) {
		t.Errorf("slug %q is not lowercase", link.Slug)
	}
	if !link.IsActive || link.AccessCount != 0 {
		t.Errorf("new link = %+v, want active with zero accesses", link)
	}

	resolved, err := m.ResolveLink(context.Background(), link.Slug)
	if err != nil {
		t.Fatalf("ResolveLink: %v", err)
	}
	if resolved.Questionnaire.ID != q.ID {
		t.Errorf("resolved questionnaire = %q, want %q", resolved.Questionnaire.ID, q.ID)
	}
	if got := repo.links[link.ID].AccessCount; got != 1 {
		t.Errorf("access count after resolve = %d, want 1", got)
	}

	inactive := false
	if _, err := m.UpdateLink(context.Background(), link.Slug, models.UpdateLinkRequest{IsActive: &inactive}); err != nil {
		t.Fatalf("UpdateLink: %v", err)
	}
	if _, err := m.ResolveLink(context.Background(), link.Slug); !errors.Is(err, ErrLinkNotFound) {
		t.Errorf("inactive link: err = %v, want ErrLinkNotFound", err)
	}
}

func TestResolveLinkExpiredEvenWhileActive(t *testing.T) {
	repo := newFakeRepo()
	m := NewManager(repo, nil)
	q := seedQuestionnaire(t, m)

	past := time.Now().Add(-time.Hour)
	link, err := m.CreateLink(context.Background(), models.CreateLinkRequest{QuestionnaireID: q.ID, ExpiresAt: &past}, "admin")
	if err != nil {
		t.Fatalf("CreateLink: %v", err)
	}
	if !link.IsActive {
		t.Fatal("link should still be flagged active")
	}

	if _, err := m.ResolveLink(context.Background(), link.Slug); !errors.Is(err, ErrLinkExpired) {
		t.Errorf("expired link: err = %v, want ErrLinkExpired", err)
	}
	if got := repo.links[link.ID].AccessCount; got != 0 {
		t.Errorf("expired resolve bumped access count to %d", got)
	}
}

func TestCreateLinkSlugConflictBounded(t *testing.T) {
	repo := newFakeRepo()
	repo.slugTaken = func(string) bool { return true }
	m := NewManager(repo, nil)
	q := seedQuestionnaire(t, m)

	_, err := m.CreateLink(context.Background(), models.CreateLinkRequest{QuestionnaireID: q.ID}, "admin")
	if !errors.Is(err, ErrSlugConflict) {
		t.Errorf("err = %v, want ErrSlugConflict", err)
	}
}

func TestDeactivateExpiredLinks(t *testing.T) {
	repo := newFakeRepo()
	m := NewManager(repo, nil)
	q := seedQuestionnaire(t, m)

	past := time.Now().Add(-time.Hour)
	future := time.Now().Add(time.Hour)
	expired, _ := m.CreateLink(context.Background(), models.CreateLinkRequest{QuestionnaireID: q.ID, ExpiresAt: &past}, "admin")
	fresh, _ := m.CreateLink(context.Background(), models.CreateLinkRequest{QuestionnaireID: q.ID, ExpiresAt: &future}, "admin")

	n, err := m.DeactivateExpiredLinks(context.Background())
	if err != nil {
		t.Fatalf("DeactivateExpiredLinks: %v", err)
	}
	if n != 1 {
		t.Errorf("deactivated %d links, want 1", n)
	}
	if repo.links[expired.ID].IsActive {
		t.Error("expired link still active")
	}
	if !repo.links[fresh.ID].IsActive {
		t.Error("unexpired link was deactivated")
	}
}

func TestConvertLeadCreatesClientOnce(t *testing.T) {
	repo := newFakeRepo()
	repo.consultants = []string{"consultant-1"}
	m := NewManager(repo, nil)
	q := seedQuestionnaire(t, m)

	resp, err := m.SubmitResponse(context.Background(), models.SubmitRequest{
		QuestionnaireID: q.ID,
		RespondentName:  "Dana",
		RespondentEmail: "dana@example.com",
		Answers:         map[string]any{"q1": 8, "q2": "yes"},
	})
	if err != nil {
		t.Fatalf("SubmitResponse: %v", err)
	}

	result, err := m.ConvertLead(context.Background(), models.ConvertLeadRequest{ResponseID: resp.ID})
	if err != nil {
		t.Fatalf("ConvertLead: %v", err)
	}
	if !result.IsNewClient {
		t.Error("expected a new client record")
	}
	if result.ConsultantID != "consultant-1" {
		t.Errorf("consultant = %q, want consultant-1", result.ConsultantID)
	}

	client := repo.clients[result.ClientID]
	if client == nil {
		t.Fatal("client not persisted")
	}
	if client.Status != models.ClientLead {
		t.Errorf("client status = %q, want lead", client.Status)
	}
	if len(repo.tasks) != 1 {
		t.Fatalf("created %d tasks, want 1", len(repo.tasks))
	}
	if repo.tasks[0].AssignedTo != "consultant-1" {
		t.Errorf("task assigned to %q, want consultant-1", repo.tasks[0].AssignedTo)
	}
	if len(repo.notifications) != 1 || repo.notifications[0].UserID != "consultant-1" {
		t.Errorf("notifications = %+v, want one for consultant-1", repo.notifications)
	}
	if !repo.responses[resp.ID].LeadConverted {
		t.Error("response not marked converted")
	}

	if _, err := m.ConvertLead(context.Background(), models.ConvertLeadRequest{ResponseID: resp.ID}); !errors.Is(err, ErrAlreadyConverted) {
		t.Errorf("second conversion: err = %v, want ErrAlreadyConverted", err)
	}
	if len(repo.clients) != 1 {
		t.Errorf("second conversion created another client (%d total)", len(repo.clients))
	}
}

func TestConvertLeadReusesExistingClient(t *testing.T) {
	repo := newFakeRepo()
	m := NewManager(repo, nil)
	q := seedQuestionnaire(t, m)

	repo.clients["existing"] = &models.Client{
		ID:     "existing",
		Status: models.ClientActive,
		Email:  "dana@example.com",
		Notes:  "longtime customer",
	}

	resp, err := m.SubmitResponse(context.Background(), models.SubmitRequest{
		QuestionnaireID: q.ID,
		RespondentEmail: "dana@example.com",
		Answers:         map[string]any{"q1": 2, "q2": "no"},
	})
	if err != nil {
		t.Fatalf("SubmitResponse: %v", err)
	}

	result, err := m.ConvertLead(context.Background(), models.ConvertLeadRequest{ResponseID: resp.ID})
	if err != nil {
		t.Fatalf("ConvertLead: %v", err)
	}
	if result.IsNewClient {
		t.Error("matched client should not be reported as new")
	}
	if result.ClientID != "existing" {
		t.Errorf("client id = %q, want existing", result.ClientID)
	}
	if !strings.Contains(repo.clients["existing"].Notes, "longtime customer") {
		t.Error("original notes were replaced instead of appended")
	}
	if !strings.Contains(repo.clients["existing"].Notes, "Fit Assessment") {
		t.Error("questionnaire summary missing from appended notes")
	}
}

func TestSubmitResponseLinkCounterFailureIsSwallowed(t *testing.T) {
	repo := newFakeRepo()
	repo.failIncr = true
	m := NewManager(repo, nil)
	q := seedQuestionnaire(t, m)

	resp, err := m.SubmitResponse(context.Background(), models.SubmitRequest{
		QuestionnaireID: q.ID,
		Answers:         map[string]any{"q1": 1},
		LinkID:          "whatever",
	})
	if err != nil {
		t.Fatalf("SubmitResponse: %v", err)
	}
	if resp == nil {
		t.Fatal("submission should succeed despite counter failure")
	}
}
