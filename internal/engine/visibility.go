package engine

import "github.com/formlead/survey-engine/internal/models"

// QuestionVisibility pairs a question with its display verdict.
type QuestionVisibility struct {
	Question      *models.Question `json:"question"`
	ShouldDisplay bool             `json:"should_display"`
}

// SectionVisibility pairs an upcoming section with its display verdict.
type SectionVisibility struct {
	Section       *models.Section `json:"section"`
	ShouldDisplay bool            `json:"should_display"`
}

// VisibilityResult is the verdict for one evaluation pass: which questions of
// the current section to show, which upcoming sections to show, and the
// running score over the answers so far.
type VisibilityResult struct {
	Questions    []QuestionVisibility `json:"questions"`
	NextSections []SectionVisibility  `json:"next_sections"`
	CurrentScore float64              `json:"current_score"`
}

// ResolveVisibility applies logic rules to the current section's questions
// and display conditions to sections after the current one. The pass is a
// pure function of its inputs: evaluating the same answer snapshot twice
// yields the same verdicts.
//
// A question defaults to visible. Its rules run in stored order, and any rule
// whose condition holds and whose action is "hide" pins the question hidden;
// later rules cannot restore it. A section with no display condition is
// visible; otherwise the condition's verdict decides.
func ResolveVisibility(
	sections []*models.Section,
	currentQuestions []*models.Question,
	scored []ScoredQuestion,
	answers map[string]any,
	currentOrderIndex int,
) VisibilityResult {
	result := VisibilityResult{
		Questions:    make([]QuestionVisibility, 0, len(currentQuestions)),
		NextSections: make([]SectionVisibility, 0),
		CurrentScore: ComputeScore(scored, answers),
	}

	for _, q := range currentQuestions {
		display := true
		for _, rule := range q.Logic {
			if rule.Action != models.ActionHide {
				continue
			}
			if Evaluate(rule.Condition, answers) {
				display = false
				break
			}
		}
		result.Questions = append(result.Questions, QuestionVisibility{
			Question:      q,
			ShouldDisplay: display,
		})
	}

	for _, s := range sections {
		if s.OrderIndex <= currentOrderIndex {
			continue
		}
		result.NextSections = append(result.NextSections, SectionVisibility{
			Section:       s,
			ShouldDisplay: Evaluate(s.DisplayCondition, answers),
		})
	}

	return result
}
