package models

import (
	"sort"
	"time"
)

// QuestionType identifies how a question is answered and scored.
type QuestionType string

const (
	QuestionSingleChoice   QuestionType = "single_choice"
	QuestionMultipleChoice QuestionType = "multiple_choice"
	QuestionScale          QuestionType = "scale"
	QuestionNumber         QuestionType = "number"
	QuestionBoolean        QuestionType = "boolean"
	QuestionText           QuestionType = "text"
)

// KnownQuestionTypes lists every type the engine understands. Unknown types are
// accepted but never contribute to scoring.
var KnownQuestionTypes = []QuestionType{
	QuestionSingleChoice,
	QuestionMultipleChoice,
	QuestionScale,
	QuestionNumber,
	QuestionBoolean,
	QuestionText,
}

// IsKnown reports whether t is one of the closed set of question types.
func (t QuestionType) IsKnown() bool {
	for _, k := range KnownQuestionTypes {
		if t == k {
			return true
		}
	}
	return false
}

// Questionnaire is the top-level survey definition.
type Questionnaire struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Category    string         `json:"category"`
	Settings    map[string]any `json:"settings,omitempty"`
	IsActive    bool           `json:"is_active"`
	CreatedBy   string         `json:"created_by,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`

	// Sections is populated only when the full tree is loaded.
	Sections []*Section `json:"sections,omitempty"`
}

// QuestionnaireSummary is the subset returned to public link resolution.
type QuestionnaireSummary struct {
	ID       string         `json:"id"`
	Name     string         `json:"name"`
	Category string         `json:"category"`
	Settings map[string]any `json:"settings,omitempty"`
}

// Summary returns the public-facing subset of a questionnaire.
func (q *Questionnaire) Summary() QuestionnaireSummary {
	return QuestionnaireSummary{
		ID:       q.ID,
		Name:     q.Name,
		Category: q.Category,
		Settings: q.Settings,
	}
}

// Section is an ordered group of questions, optionally gated by a display
// condition evaluated against accumulated answers.
type Section struct {
	ID               string     `json:"id"`
	QuestionnaireID  string     `json:"questionnaire_id"`
	Name             string     `json:"name"`
	Description      string     `json:"description,omitempty"`
	OrderIndex       int        `json:"order_index"`
	DisplayCondition *Condition `json:"display_condition,omitempty"`

	Questions []*Question `json:"questions,omitempty"`
}

// Question is a single prompt within a section.
type Question struct {
	ID          string       `json:"id"`
	SectionID   string       `json:"section_id"`
	Text        string       `json:"text"`
	Type        QuestionType `json:"type"`
	Options     []string     `json:"options,omitempty"`
	OrderIndex  int          `json:"order_index"`
	Required    bool         `json:"required"`
	HelpText    string       `json:"help_text,omitempty"`
	ScoreConfig *ScoreConfig `json:"score_config,omitempty"`
	Logic       []*LogicRule `json:"logic,omitempty"`
}

// LogicAction is what a logic rule does when its condition holds.
// Only "hide" exists today.
type LogicAction string

const ActionHide LogicAction = "hide"

// LogicRule attaches a condition-driven action to a question. Rules are
// evaluated in stored order; once any rule hides a question, later rules
// cannot restore it within the same pass.
type LogicRule struct {
	ID         string      `json:"id"`
	QuestionID string      `json:"question_id"`
	Condition  *Condition  `json:"condition"`
	Action     LogicAction `json:"action"`
}

// SortSections orders sections ascending by order index, ties broken by id so
// presentation order stays deterministic.
func SortSections(sections []*Section) {
	sort.SliceStable(sections, func(i, j int) bool {
		if sections[i].OrderIndex != sections[j].OrderIndex {
			return sections[i].OrderIndex < sections[j].OrderIndex
		}
		return sections[i].ID < sections[j].ID
	})
}

// SortQuestions orders questions ascending by order index, ties broken by id.
func SortQuestions(questions []*Question) {
	sort.SliceStable(questions, func(i, j int) bool {
		if questions[i].OrderIndex != questions[j].OrderIndex {
			return questions[i].OrderIndex < questions[j].OrderIndex
		}
		return questions[i].ID < questions[j].ID
	})
}
