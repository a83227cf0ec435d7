package models

import (
	"encoding/json"
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Number is a float64 that also accepts numeric strings when decoding.
// Score configurations written through the admin UI historically stored
// numbers both ways ("10" and 10), so the engine tolerates either.
type Number float64

// UnmarshalJSON accepts a JSON number or a numeric string.
func (n *Number) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	v, ok := parseNumber(raw)
	if !ok {
		return fmt.Errorf("invalid numeric value: %s", string(data))
	}
	*n = Number(v)
	return nil
}

// UnmarshalYAML accepts a YAML number or a numeric string.
func (n *Number) UnmarshalYAML(node *yaml.Node) error {
	var raw any
	if err := node.Decode(&raw); err != nil {
		return err
	}
	v, ok := parseNumber(raw)
	if !ok {
		return fmt.Errorf("invalid numeric value: %v", raw)
	}
	*n = Number(v)
	return nil
}

func parseNumber(raw any) (float64, bool) {
	switch v := raw.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// ScoreRange maps an inclusive numeric interval onto a score contribution.
type ScoreRange struct {
	Min   Number `json:"min" yaml:"min"`
	Max   Number `json:"max" yaml:"max"`
	Score Number `json:"score" yaml:"score"`
}

// ScoreConfig holds a question's scoring rules. The populated fields depend
// on the question type:
//
//   - single_choice / multiple_choice: Options maps selected option values to
//     contributions; unknown selections contribute 0.
//   - scale / number: Ranges are scanned in order and the first match wins;
//     when no range matches, Multiplier (if set) scales the numeric answer.
//   - boolean: TrueValue / FalseValue contribute by the boolean answer.
type ScoreConfig struct {
	Options    map[string]Number `json:"options,omitempty" yaml:"options,omitempty"`
	Ranges     []ScoreRange      `json:"ranges,omitempty" yaml:"ranges,omitempty"`
	Multiplier *Number           `json:"multiplier,omitempty" yaml:"multiplier,omitempty"`
	TrueValue  *Number           `json:"true_value,omitempty" yaml:"true_value,omitempty"`
	FalseValue *Number           `json:"false_value,omitempty" yaml:"false_value,omitempty"`
}
