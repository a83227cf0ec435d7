package engine

import (
	"testing"

	"github.com/formlead/survey-engine/internal/models"
)

func hideWhen(cond *models.Condition) *models.LogicRule {
	return &models.LogicRule{Condition: cond, Action: models.ActionHide}
}

func TestResolveVisibilityQuestionRules(t *testing.T) {
	q := &models.Question{
		ID:    "q2",
		Type:  models.QuestionText,
		Logic: []*models.LogicRule{hideWhen(simple("q1", models.OpEquals, "yes"))},
	}

	tests := []struct {
		name    string
		answers map[string]any
		want    bool
	}{
		{"condition met hides", map[string]any{"q1": "yes"}, false},
		{"condition unmet shows", map[string]any{"q1": "no"}, true},
		{"referenced answer absent shows", map[string]any{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := ResolveVisibility(nil, []*models.Question{q}, nil, tt.answers, 0)
			if len(res.Questions) != 1 {
				t.Fatalf("expected 1 question verdict, got %d", len(res.Questions))
			}
			if res.Questions[0].ShouldDisplay != tt.want {
				t.Errorf("should_display = %v, want %v", res.Questions[0].ShouldDisplay, tt.want)
			}
		})
	}
}

func TestResolveVisibilityHideIsSticky(t *testing.T) {
	// The second rule's condition never holds, but a question hidden by an
	// earlier rule stays hidden.
	q := &models.Question{
		ID: "q2",
		Logic: []*models.LogicRule{
			hideWhen(simple("q1", models.OpEquals, "yes")),
			hideWhen(simple("q1", models.OpEquals, "never")),
		},
	}

	res := ResolveVisibility(nil, []*models.Question{q}, nil, map[string]any{"q1": "yes"}, 0)
	if res.Questions[0].ShouldDisplay {
		t.Error("question hidden by an earlier rule must stay hidden")
	}
}

func TestResolveVisibilityNonHideActionIgnored(t *testing.T) {
	q := &models.Question{
		ID: "q2",
		Logic: []*models.LogicRule{
			{Condition: simple("q1", models.OpEquals, "yes"), Action: "require"},
		},
	}

	res := ResolveVisibility(nil, []*models.Question{q}, nil, map[string]any{"q1": "yes"}, 0)
	if !res.Questions[0].ShouldDisplay {
		t.Error("only the hide action affects visibility")
	}
}

func TestResolveVisibilitySections(t *testing.T) {
	sections := []*models.Section{
		{ID: "a", OrderIndex: 0},
		{ID: "b", OrderIndex: 1, DisplayCondition: simple("q1", models.OpGreaterThan, float64(5))},
		{ID: "c", OrderIndex: 2},
	}

	res := ResolveVisibility(sections, nil, nil, map[string]any{"q1": float64(8)}, 0)
	if len(res.NextSections) != 2 {
		t.Fatalf("expected verdicts for 2 upcoming sections, got %d", len(res.NextSections))
	}
	if !res.NextSections[0].ShouldDisplay {
		t.Error("section b: condition holds, must be visible")
	}
	if !res.NextSections[1].ShouldDisplay {
		t.Error("section c: no condition, must default visible")
	}

	res = ResolveVisibility(sections, nil, nil, map[string]any{"q1": float64(3)}, 0)
	if res.NextSections[0].ShouldDisplay {
		t.Error("section b: condition fails, must be hidden")
	}

	// The current section and earlier ones are never part of the verdict.
	res = ResolveVisibility(sections, nil, nil, map[string]any{}, 1)
	if len(res.NextSections) != 1 || res.NextSections[0].Section.ID != "c" {
		t.Errorf("only sections strictly after the current order index belong in the result")
	}
}

func TestResolveVisibilityIdempotent(t *testing.T) {
	sections := []*models.Section{
		{ID: "b", OrderIndex: 1, DisplayCondition: simple("q1", models.OpEquals, "yes")},
	}
	questions := []*models.Question{
		{ID: "q2", Logic: []*models.LogicRule{hideWhen(simple("q1", models.OpEquals, "yes"))}},
	}
	scored := []ScoredQuestion{{
		ID:   "q1",
		Type: models.QuestionSingleChoice,
		ScoreConfig: &models.ScoreConfig{
			Options: map[string]models.Number{"yes": 4},
		},
	}}
	answers := map[string]any{"q1": "yes"}

	first := ResolveVisibility(sections, questions, scored, answers, 0)
	second := ResolveVisibility(sections, questions, scored, answers, 0)

	if first.Questions[0].ShouldDisplay != second.Questions[0].ShouldDisplay {
		t.Error("question verdict changed between identical passes")
	}
	if first.NextSections[0].ShouldDisplay != second.NextSections[0].ShouldDisplay {
		t.Error("section verdict changed between identical passes")
	}
	if first.CurrentScore != second.CurrentScore || first.CurrentScore != 4 {
		t.Errorf("running score: got %v then %v, want 4 both times", first.CurrentScore, second.CurrentScore)
	}
}
