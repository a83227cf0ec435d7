package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/formlead/survey-engine/internal/models"
)

// PostgresRepository implements Repository using PostgreSQL
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// PostgresConfig holds PostgreSQL connection configuration
type PostgresConfig struct {
	DSN          string
	MaxOpenConns int32
	MaxIdleConns int32
	MaxLifetime  time.Duration
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(ctx context.Context, cfg PostgresConfig) (*PostgresRepository, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DSN: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		poolConfig.MaxConns = cfg.MaxOpenConns
	} else {
		poolConfig.MaxConns = 25 // default
	}

	if cfg.MaxIdleConns > 0 {
		poolConfig.MinConns = cfg.MaxIdleConns
	} else {
		poolConfig.MinConns = 5 // default
	}

	if cfg.MaxLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.MaxLifetime
	} else {
		poolConfig.MaxConnLifetime = 30 * time.Minute
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresRepository{pool: pool}, nil
}

// Ping checks database connectivity
func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// Close closes the database connection pool
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

// --- Questionnaires ---

// CreateQuestionnaire creates a questionnaire with its full section tree
func (r *PostgresRepository) CreateQuestionnaire(ctx context.Context, q *models.Questionnaire) error {
	settingsJSON, err := json.Marshal(q.Settings)
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO questionnaires (id, name, description, category, settings_json, is_active, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err = tx.Exec(ctx, query,
		q.ID,
		q.Name,
		nullString(q.Description),
		q.Category,
		settingsJSON,
		q.IsActive,
		nullString(q.CreatedBy),
		q.CreatedAt,
		q.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create questionnaire: %w", err)
	}

	if err := insertSections(ctx, tx, q.ID, q.Sections); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func insertSections(ctx context.Context, tx pgx.Tx, questionnaireID string, sections []*models.Section) error {
	for _, s := range sections {
		condJSON, err := marshalCondition(s.DisplayCondition)
		if err != nil {
			return fmt.Errorf("failed to marshal display condition: %w", err)
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO questionnaire_sections (id, questionnaire_id, name, description, order_index, display_condition_json)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, s.ID, questionnaireID, s.Name, nullString(s.Description), s.OrderIndex, condJSON)
		if err != nil {
			return fmt.Errorf("failed to create section: %w", err)
		}

		for _, question := range s.Questions {
			if err := insertQuestion(ctx, tx, s.ID, question); err != nil {
				return err
			}
		}
	}
	return nil
}

func insertQuestion(ctx context.Context, tx pgx.Tx, sectionID string, q *models.Question) error {
	optionsJSON, err := json.Marshal(q.Options)
	if err != nil {
		return fmt.Errorf("failed to marshal options: %w", err)
	}

	var scoreJSON []byte
	if q.ScoreConfig != nil {
		scoreJSON, err = json.Marshal(q.ScoreConfig)
		if err != nil {
			return fmt.Errorf("failed to marshal score config: %w", err)
		}
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO questionnaire_questions (id, section_id, question_text, question_type, options_json, order_index, is_required, help_text, score_config_json)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, q.ID, sectionID, q.Text, string(q.Type), optionsJSON, q.OrderIndex, q.Required, nullString(q.HelpText), scoreJSON)
	if err != nil {
		return fmt.Errorf("failed to create question: %w", err)
	}

	for _, rule := range q.Logic {
		condJSON, err := marshalCondition(rule.Condition)
		if err != nil {
			return fmt.Errorf("failed to marshal rule condition: %w", err)
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO question_logic (id, question_id, condition_json, action)
			VALUES ($1, $2, $3, $4)
		`, rule.ID, q.ID, condJSON, string(rule.Action))
		if err != nil {
			return fmt.Errorf("failed to create logic rule: %w", err)
		}
	}

	return nil
}

// GetQuestionnaire retrieves a questionnaire's own row without its sections
func (r *PostgresRepository) GetQuestionnaire(ctx context.Context, id string) (*models.Questionnaire, error) {
	query := `
		SELECT id, name, description, category, settings_json, is_active, created_by, created_at, updated_at
		FROM questionnaires
		WHERE id = $1
	`

	q, err := scanQuestionnaire(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("failed to get questionnaire: %w", err)
	}

	return q, nil
}

// GetQuestionnaireTree retrieves a questionnaire with sections, questions and
// logic rules, ordered by (order_index, id)
func (r *PostgresRepository) GetQuestionnaireTree(ctx context.Context, id string) (*models.Questionnaire, error) {
	q, err := r.GetQuestionnaire(ctx, id)
	if err != nil || q == nil {
		return q, err
	}

	sections, err := r.getSections(ctx, id)
	if err != nil {
		return nil, err
	}
	q.Sections = sections

	return q, nil
}

func (r *PostgresRepository) getSections(ctx context.Context, questionnaireID string) ([]*models.Section, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, questionnaire_id, name, description, order_index, display_condition_json
		FROM questionnaire_sections
		WHERE questionnaire_id = $1
		ORDER BY order_index ASC, id ASC
	`, questionnaireID)
	if err != nil {
		return nil, fmt.Errorf("failed to get sections: %w", err)
	}
	defer rows.Close()

	var sections []*models.Section
	for rows.Next() {
		var s models.Section
		var description sql.NullString
		var condJSON []byte

		if err := rows.Scan(&s.ID, &s.QuestionnaireID, &s.Name, &description, &s.OrderIndex, &condJSON); err != nil {
			return nil, fmt.Errorf("failed to scan section: %w", err)
		}

		s.Description = description.String
		if s.DisplayCondition, err = unmarshalCondition(condJSON); err != nil {
			return nil, fmt.Errorf("failed to unmarshal display condition: %w", err)
		}

		sections = append(sections, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sections: %w", err)
	}

	for _, s := range sections {
		questions, err := r.getQuestions(ctx, s.ID)
		if err != nil {
			return nil, err
		}
		s.Questions = questions
	}

	return sections, nil
}

func (r *PostgresRepository) getQuestions(ctx context.Context, sectionID string) ([]*models.Question, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, section_id, question_text, question_type, options_json, order_index, is_required, help_text, score_config_json
		FROM questionnaire_questions
		WHERE section_id = $1
		ORDER BY order_index ASC, id ASC
	`, sectionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get questions: %w", err)
	}
	defer rows.Close()

	var questions []*models.Question
	for rows.Next() {
		var q models.Question
		var typeStr string
		var helpText sql.NullString
		var optionsJSON, scoreJSON []byte

		if err := rows.Scan(&q.ID, &q.SectionID, &q.Text, &typeStr, &optionsJSON, &q.OrderIndex, &q.Required, &helpText, &scoreJSON); err != nil {
			return nil, fmt.Errorf("failed to scan question: %w", err)
		}

		q.Type = models.QuestionType(typeStr)
		q.HelpText = helpText.String

		if optionsJSON != nil {
			if err := json.Unmarshal(optionsJSON, &q.Options); err != nil {
				return nil, fmt.Errorf("failed to unmarshal options: %w", err)
			}
		}
		if scoreJSON != nil {
			if err := json.Unmarshal(scoreJSON, &q.ScoreConfig); err != nil {
				return nil, fmt.Errorf("failed to unmarshal score config: %w", err)
			}
		}

		questions = append(questions, &q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating questions: %w", err)
	}

	for _, q := range questions {
		logic, err := r.getLogicRules(ctx, q.ID)
		if err != nil {
			return nil, err
		}
		q.Logic = logic
	}

	return questions, nil
}

func (r *PostgresRepository) getLogicRules(ctx context.Context, questionID string) ([]*models.LogicRule, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, question_id, condition_json, action
		FROM question_logic
		WHERE question_id = $1
		ORDER BY id ASC
	`, questionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get logic rules: %w", err)
	}
	defer rows.Close()

	var rules []*models.LogicRule
	for rows.Next() {
		var rule models.LogicRule
		var actionStr string
		var condJSON []byte

		if err := rows.Scan(&rule.ID, &rule.QuestionID, &condJSON, &actionStr); err != nil {
			return nil, fmt.Errorf("failed to scan logic rule: %w", err)
		}

		rule.Action = models.LogicAction(actionStr)
		if rule.Condition, err = unmarshalCondition(condJSON); err != nil {
			return nil, fmt.Errorf("failed to unmarshal rule condition: %w", err)
		}

		rules = append(rules, &rule)
	}

	return rules, rows.Err()
}

// ListQuestionnaires returns questionnaires newest first
func (r *PostgresRepository) ListQuestionnaires(ctx context.Context, limit, offset int) ([]*models.Questionnaire, error) {
	query := `
		SELECT id, name, description, category, settings_json, is_active, created_by, created_at, updated_at
		FROM questionnaires
		ORDER BY created_at DESC
	`
	args := make([]interface{}, 0)
	argNum := 1

	if limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argNum)
		args = append(args, limit)
		argNum++
	}
	if offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argNum)
		args = append(args, offset)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list questionnaires: %w", err)
	}
	defer rows.Close()

	var questionnaires []*models.Questionnaire
	for rows.Next() {
		q, err := scanQuestionnaire(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan questionnaire: %w", err)
		}
		questionnaires = append(questionnaires, q)
	}

	return questionnaires, rows.Err()
}

// UpdateQuestionnaire updates a questionnaire's own row
func (r *PostgresRepository) UpdateQuestionnaire(ctx context.Context, q *models.Questionnaire) error {
	settingsJSON, err := json.Marshal(q.Settings)
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}

	query := `
		UPDATE questionnaires
		SET name = $2, description = $3, category = $4, settings_json = $5, is_active = $6, updated_at = $7
		WHERE id = $1
	`

	result, err := r.pool.Exec(ctx, query,
		q.ID,
		q.Name,
		nullString(q.Description),
		q.Category,
		settingsJSON,
		q.IsActive,
		q.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update questionnaire: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("questionnaire not found: %s", q.ID)
	}

	return nil
}

// ReplaceSections swaps a questionnaire's full section tree in one transaction
func (r *PostgresRepository) ReplaceSections(ctx context.Context, questionnaireID string, sections []*models.Section) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM questionnaire_sections WHERE questionnaire_id = $1`, questionnaireID); err != nil {
		return fmt.Errorf("failed to delete sections: %w", err)
	}

	if err := insertSections(ctx, tx, questionnaireID, sections); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// SetQuestionnaireActive soft-deletes or restores a questionnaire
func (r *PostgresRepository) SetQuestionnaireActive(ctx context.Context, id string, active bool) error {
	result, err := r.pool.Exec(ctx, `UPDATE questionnaires SET is_active = $2, updated_at = NOW() WHERE id = $1`, id, active)
	if err != nil {
		return fmt.Errorf("failed to set questionnaire active flag: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("questionnaire not found: %s", id)
	}

	return nil
}

// --- Responses ---

// CreateResponse stores a scored submission
func (r *PostgresRepository) CreateResponse(ctx context.Context, resp *models.Response) error {
	answersJSON, err := json.Marshal(resp.Answers)
	if err != nil {
		return fmt.Errorf("failed to marshal answers: %w", err)
	}

	query := `
		INSERT INTO questionnaire_responses (id, questionnaire_id, respondent_name, respondent_email, answers_json, calculated_score, completion_status, lead_converted, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err = r.pool.Exec(ctx, query,
		resp.ID,
		resp.QuestionnaireID,
		nullString(resp.RespondentName),
		nullString(resp.RespondentEmail),
		answersJSON,
		resp.Score,
		string(resp.CompletionStatus),
		resp.LeadConverted,
		resp.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create response: %w", err)
	}

	return nil
}

// GetResponse retrieves a response by ID
func (r *PostgresRepository) GetResponse(ctx context.Context, id string) (*models.Response, error) {
	query := `
		SELECT id, questionnaire_id, respondent_name, respondent_email, answers_json, calculated_score, completion_status, lead_converted, created_at
		FROM questionnaire_responses
		WHERE id = $1
	`

	resp, err := scanResponse(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get response: %w", err)
	}

	return resp, nil
}

// ListResponses returns a page of responses newest first plus the total count
func (r *PostgresRepository) ListResponses(ctx context.Context, filters models.ResponseFilters) ([]*models.Response, int, error) {
	where := ""
	args := make([]interface{}, 0)
	argNum := 1

	if filters.QuestionnaireID != "" {
		where = fmt.Sprintf(" WHERE questionnaire_id = $%d", argNum)
		args = append(args, filters.QuestionnaireID)
		argNum++
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM questionnaire_responses`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count responses: %w", err)
	}

	query := `
		SELECT id, questionnaire_id, respondent_name, respondent_email, answers_json, calculated_score, completion_status, lead_converted, created_at
		FROM questionnaire_responses
	` + where + " ORDER BY created_at DESC"

	if filters.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argNum)
		args = append(args, filters.Limit)
		argNum++
	}
	if filters.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argNum)
		args = append(args, filters.Offset)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list responses: %w", err)
	}
	defer rows.Close()

	var responses []*models.Response
	for rows.Next() {
		resp, err := scanResponse(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan response: %w", err)
		}
		responses = append(responses, resp)
	}

	return responses, total, rows.Err()
}

// MarkResponseConverted flips lead_converted to true, exactly once
func (r *PostgresRepository) MarkResponseConverted(ctx context.Context, id string) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE questionnaire_responses SET lead_converted = TRUE
		WHERE id = $1 AND lead_converted = FALSE
	`, id)
	if err != nil {
		return fmt.Errorf("failed to mark response converted: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("response not found or already converted: %s", id)
	}

	return nil
}

// --- Links ---

// CreateLink creates an access link. The slug column carries a unique
// constraint as the storage-layer backstop for concurrent slug generation.
func (r *PostgresRepository) CreateLink(ctx context.Context, l *models.Link) error {
	query := `
		INSERT INTO questionnaire_links (id, questionnaire_id, slug, is_active, access_count, expires_at, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.pool.Exec(ctx, query,
		l.ID,
		l.QuestionnaireID,
		l.Slug,
		l.IsActive,
		l.AccessCount,
		nullTime(l.ExpiresAt),
		nullString(l.CreatedBy),
		l.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create link: %w", err)
	}

	return nil
}

// GetLinkBySlug retrieves a link regardless of its active flag
func (r *PostgresRepository) GetLinkBySlug(ctx context.Context, slug string) (*models.Link, error) {
	query := `
		SELECT id, questionnaire_id, slug, is_active, access_count, expires_at, created_by, created_at
		FROM questionnaire_links
		WHERE slug = $1
	`

	l, err := scanLink(r.pool.QueryRow(ctx, query, slug))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get link: %w", err)
	}

	return l, nil
}

// ListLinks returns links newest first, optionally for one questionnaire
func (r *PostgresRepository) ListLinks(ctx context.Context, questionnaireID string) ([]*models.Link, error) {
	query := `
		SELECT id, questionnaire_id, slug, is_active, access_count, expires_at, created_by, created_at
		FROM questionnaire_links
	`
	args := make([]interface{}, 0)

	if questionnaireID != "" {
		query += " WHERE questionnaire_id = $1"
		args = append(args, questionnaireID)
	}
	query += " ORDER BY created_at DESC"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list links: %w", err)
	}
	defer rows.Close()

	var links []*models.Link
	for rows.Next() {
		l, err := scanLink(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan link: %w", err)
		}
		links = append(links, l)
	}

	return links, rows.Err()
}

// UpdateLink updates a link's active flag and expiry
func (r *PostgresRepository) UpdateLink(ctx context.Context, l *models.Link) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE questionnaire_links SET is_active = $2, expires_at = $3 WHERE id = $1
	`, l.ID, l.IsActive, nullTime(l.ExpiresAt))
	if err != nil {
		return fmt.Errorf("failed to update link: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("link not found: %s", l.ID)
	}

	return nil
}

// IncrementLinkAccess bumps the access counter atomically
func (r *PostgresRepository) IncrementLinkAccess(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE questionnaire_links SET access_count = access_count + 1 WHERE id = $1
	`, id)
	if err != nil {
		return fmt.Errorf("failed to increment link access count: %w", err)
	}

	return nil
}

// SlugExists reports whether any link, active or not, owns the slug
func (r *PostgresRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM questionnaire_links WHERE slug = $1)
	`, slug).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check slug: %w", err)
	}

	return exists, nil
}

// GetExpiredActiveLinks returns active links whose expiry has passed
func (r *PostgresRepository) GetExpiredActiveLinks(ctx context.Context) ([]*models.Link, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, questionnaire_id, slug, is_active, access_count, expires_at, created_by, created_at
		FROM questionnaire_links
		WHERE is_active = TRUE AND expires_at IS NOT NULL AND expires_at < NOW()
		ORDER BY expires_at ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to get expired links: %w", err)
	}
	defer rows.Close()

	var links []*models.Link
	for rows.Next() {
		l, err := scanLink(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan link: %w", err)
		}
		links = append(links, l)
	}

	return links, rows.Err()
}

// --- CRM clients ---

// FindClientByEmail returns the oldest client record with the given email
func (r *PostgresRepository) FindClientByEmail(ctx context.Context, email string) (*models.Client, error) {
	query := `
		SELECT id, status, name, email, phone, lead_source, notes, created_at
		FROM clients
		WHERE email = $1
		ORDER BY created_at ASC
		LIMIT 1
	`

	var c models.Client
	var statusStr string
	var name, mail, phone, source, notes sql.NullString

	err := r.pool.QueryRow(ctx, query, email).Scan(
		&c.ID, &statusStr, &name, &mail, &phone, &source, &notes, &c.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find client: %w", err)
	}

	c.Status = models.ClientStatus(statusStr)
	c.Name = name.String
	c.Email = mail.String
	c.Phone = phone.String
	c.LeadSource = source.String
	c.Notes = notes.String

	return &c, nil
}

// CreateClient inserts a CRM client record
func (r *PostgresRepository) CreateClient(ctx context.Context, c *models.Client) error {
	query := `
		INSERT INTO clients (id, status, name, email, phone, lead_source, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.pool.Exec(ctx, query,
		c.ID,
		string(c.Status),
		nullString(c.Name),
		nullString(c.Email),
		nullString(c.Phone),
		nullString(c.LeadSource),
		nullString(c.Notes),
		c.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}

	return nil
}

// AppendClientNotes appends text to a client's notes
func (r *PostgresRepository) AppendClientNotes(ctx context.Context, id, notes string) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE clients SET notes = COALESCE(notes, '') || $2 WHERE id = $1
	`, id, "\n\n"+notes)
	if err != nil {
		return fmt.Errorf("failed to append client notes: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("client not found: %s", id)
	}

	return nil
}

// CreateFollowUpTask inserts a consultant task
func (r *PostgresRepository) CreateFollowUpTask(ctx context.Context, task *models.FollowUpTask) error {
	query := `
		INSERT INTO tasks (id, title, description, status, priority, due_at, assigned_to, client_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.pool.Exec(ctx, query,
		task.ID,
		task.Title,
		nullString(task.Description),
		task.Status,
		task.Priority,
		task.DueAt,
		task.AssignedTo,
		task.ClientID,
		task.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}

	return nil
}

// CreateNotification inserts an in-app notification
func (r *PostgresRepository) CreateNotification(ctx context.Context, n *models.Notification) error {
	query := `
		INSERT INTO notifications (id, user_id, title, message, type, is_read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.pool.Exec(ctx, query,
		n.ID,
		n.UserID,
		n.Title,
		nullString(n.Message),
		n.Type,
		n.IsRead,
		n.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}

	return nil
}

// ListActiveConsultants returns ids of consultants eligible for assignment
func (r *PostgresRepository) ListActiveConsultants(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT id FROM consultants WHERE is_active = TRUE`)
	if err != nil {
		return nil, fmt.Errorf("failed to list consultants: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan consultant: %w", err)
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}

// --- API clients ---

// GetClientByApiKey retrieves an API client by its key
func (r *PostgresRepository) GetClientByApiKey(ctx context.Context, apiKey string) (*models.ApiClient, error) {
	query := `
		SELECT id, name, api_key, is_active, created_at, last_used_at, permissions, metadata
		FROM api_clients
		WHERE api_key = $1
	`

	var client models.ApiClient
	var lastUsedAt sql.NullTime
	var permissionsJSON, metadataJSON []byte

	err := r.pool.QueryRow(ctx, query, apiKey).Scan(
		&client.ID,
		&client.Name,
		&client.ApiKey,
		&client.IsActive,
		&client.CreatedAt,
		&lastUsedAt,
		&permissionsJSON,
		&metadataJSON,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("failed to get api client: %w", err)
	}

	if lastUsedAt.Valid {
		client.LastUsedAt = &lastUsedAt.Time
	}

	if permissionsJSON != nil {
		if err := json.Unmarshal(permissionsJSON, &client.Permissions); err != nil {
			return nil, fmt.Errorf("failed to unmarshal permissions: %w", err)
		}
	}

	if metadataJSON != nil {
		if err := json.Unmarshal(metadataJSON, &client.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
	}

	return &client, nil
}

// UpdateClientLastUsed updates the last_used_at timestamp for a client
func (r *PostgresRepository) UpdateClientLastUsed(ctx context.Context, apiKey string) error {
	_, err := r.pool.Exec(ctx, `UPDATE api_clients SET last_used_at = NOW() WHERE api_key = $1`, apiKey)
	if err != nil {
		return fmt.Errorf("failed to update client last_used_at: %w", err)
	}

	return nil
}

// --- Scan helpers ---

type rowScanner interface {
	Scan(dest ...any) error
}

func scanQuestionnaire(row rowScanner) (*models.Questionnaire, error) {
	var q models.Questionnaire
	var description, createdBy sql.NullString
	var settingsJSON []byte

	err := row.Scan(
		&q.ID,
		&q.Name,
		&description,
		&q.Category,
		&settingsJSON,
		&q.IsActive,
		&createdBy,
		&q.CreatedAt,
		&q.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	q.Description = description.String
	q.CreatedBy = createdBy.String

	if settingsJSON != nil {
		if err := json.Unmarshal(settingsJSON, &q.Settings); err != nil {
			return nil, fmt.Errorf("failed to unmarshal settings: %w", err)
		}
	}

	return &q, nil
}

func scanResponse(row rowScanner) (*models.Response, error) {
	var resp models.Response
	var name, email sql.NullString
	var statusStr string
	var answersJSON []byte

	err := row.Scan(
		&resp.ID,
		&resp.QuestionnaireID,
		&name,
		&email,
		&answersJSON,
		&resp.Score,
		&statusStr,
		&resp.LeadConverted,
		&resp.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	resp.RespondentName = name.String
	resp.RespondentEmail = email.String
	resp.CompletionStatus = models.CompletionStatus(statusStr)

	if err := json.Unmarshal(answersJSON, &resp.Answers); err != nil {
		return nil, fmt.Errorf("failed to unmarshal answers: %w", err)
	}

	return &resp, nil
}

func scanLink(row rowScanner) (*models.Link, error) {
	var l models.Link
	var createdBy sql.NullString
	var expiresAt sql.NullTime

	err := row.Scan(
		&l.ID,
		&l.QuestionnaireID,
		&l.Slug,
		&l.IsActive,
		&l.AccessCount,
		&expiresAt,
		&createdBy,
		&l.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	l.CreatedBy = createdBy.String
	if expiresAt.Valid {
		l.ExpiresAt = &expiresAt.Time
	}

	return &l, nil
}

func marshalCondition(c *models.Condition) ([]byte, error) {
	if c == nil {
		return nil, nil
	}
	return json.Marshal(c)
}

func unmarshalCondition(data []byte) (*models.Condition, error) {
	if data == nil {
		return nil, nil
	}
	var c models.Condition
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// Helper functions for nullable values

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
