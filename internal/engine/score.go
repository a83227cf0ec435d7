package engine

import "github.com/formlead/survey-engine/internal/models"

// ScoredQuestion is the slice of question data scoring needs: identity, type,
// and score configuration. The service layer flattens a questionnaire's
// sections into this form.
type ScoredQuestion struct {
	ID          string
	Type        models.QuestionType
	ScoreConfig *models.ScoreConfig
}

// ComputeScore sums the score contributions of every answered question.
//
// Questions are walked in stored order so floating-point accumulation is
// deterministic for a given (questions, answers) pair. Malformed per-question
// data never errors: a question with no config, an answer that fails to parse,
// or an option key missing from the config simply contributes nothing.
func ComputeScore(questions []ScoredQuestion, answers map[string]any) float64 {
	score := 0.0

	for _, q := range questions {
		answer, ok := answers[q.ID]
		if !ok || q.ScoreConfig == nil {
			continue
		}
		score += contribution(q, answer)
	}

	return score
}

func contribution(q ScoredQuestion, answer any) float64 {
	cfg := q.ScoreConfig

	switch q.Type {
	case models.QuestionSingleChoice, models.QuestionMultipleChoice:
		return choiceContribution(cfg, answer)

	case models.QuestionScale, models.QuestionNumber:
		return numericContribution(cfg, answer)

	case models.QuestionBoolean:
		b, ok := answer.(bool)
		if !ok {
			return 0
		}
		if b && cfg.TrueValue != nil {
			return float64(*cfg.TrueValue)
		}
		if !b && cfg.FalseValue != nil {
			return float64(*cfg.FalseValue)
		}
		return 0

	default:
		// text and unrecognized types are unscored
		return 0
	}
}

// choiceContribution sums the configured score of every selected option.
// A scalar answer is treated as a single selection; options absent from the
// config contribute 0. Sums are uncapped: selecting many scored options in a
// multiple_choice question accumulates them all.
func choiceContribution(cfg *models.ScoreConfig, answer any) float64 {
	selected, ok := asList(answer)
	if !ok {
		selected = []any{answer}
	}

	total := 0.0
	for _, option := range selected {
		key, ok := option.(string)
		if !ok {
			continue
		}
		total += float64(cfg.Options[key])
	}
	return total
}

// numericContribution applies range scoring first; the first range containing
// the value wins and scanning stops, even when later ranges overlap. Only when
// no range matches does the multiplier apply.
func numericContribution(cfg *models.ScoreConfig, answer any) float64 {
	value, ok := toFloat(answer)
	if !ok {
		return 0
	}

	for _, r := range cfg.Ranges {
		if value >= float64(r.Min) && value <= float64(r.Max) {
			return float64(r.Score)
		}
	}

	if cfg.Multiplier != nil {
		return value * float64(*cfg.Multiplier)
	}

	return 0
}
