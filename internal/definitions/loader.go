// Package definitions loads questionnaire definitions from YAML files so
// operators can keep survey content in reviewable, versioned form and seed
// it into the engine at startup or on demand.
package definitions

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/formlead/survey-engine/internal/models"
)

// Definition is one on-disk questionnaire, keyed by its file-declared id.
type Definition struct {
	ID          string              `yaml:"id"`
	Name        string              `yaml:"name"`
	Description string              `yaml:"description"`
	Category    string              `yaml:"category"`
	Settings    map[string]any      `yaml:"settings"`
	Sections    []definitionSection `yaml:"sections"`
}

type definitionSection struct {
	ID               string               `yaml:"id"`
	Name             string               `yaml:"name"`
	Description      string               `yaml:"description"`
	DisplayCondition *yamlCondition       `yaml:"display_condition"`
	Questions        []definitionQuestion `yaml:"questions"`
}

type definitionQuestion struct {
	ID          string              `yaml:"id"`
	Text        string              `yaml:"text"`
	Type        models.QuestionType `yaml:"type"`
	Options     []string            `yaml:"options"`
	Required    bool                `yaml:"required"`
	HelpText    string              `yaml:"help_text"`
	ScoreConfig *yamlScoreConfig    `yaml:"score_config"`
	Logic       []yamlLogicRule     `yaml:"logic"`
}

type yamlCondition struct {
	Type       models.ConditionType `yaml:"type"`
	QuestionID string               `yaml:"question_id"`
	Operator   models.Operator      `yaml:"operator"`
	Value      any                  `yaml:"value"`
	Conditions []*yamlCondition     `yaml:"conditions"`
}

type yamlScoreConfig struct {
	Options    map[string]models.Number `yaml:"options"`
	Ranges     []models.ScoreRange      `yaml:"ranges"`
	Multiplier *models.Number           `yaml:"multiplier"`
	TrueValue  *models.Number           `yaml:"true_value"`
	FalseValue *models.Number           `yaml:"false_value"`
}

type yamlLogicRule struct {
	Condition *yamlCondition     `yaml:"condition"`
	Action    models.LogicAction `yaml:"action"`
}

// Loader reads and caches questionnaire definitions from a directory.
type Loader struct {
	mu          sync.RWMutex
	definitions map[string]*Definition
}

// NewLoader creates an empty loader
func NewLoader() *Loader {
	return &Loader{definitions: make(map[string]*Definition)}
}

// LoadFromDir loads all YAML definitions from a directory. A file that fails
// to parse or validate is logged and skipped; the rest still load.
func (l *Loader) LoadFromDir(dir string) error {
	slog.Info("loading questionnaire definitions", "dir", dir)

	var files []string
	for _, pattern := range []string{"*.yaml", "*.yml"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			continue
		}
		files = append(files, matches...)
	}

	loaded := 0
	for _, file := range files {
		if err := l.LoadFromFile(file); err != nil {
			slog.Warn("failed to load definition", "file", file, "error", err)
			continue
		}
		loaded++
	}

	slog.Info("questionnaire definitions loaded", "count", loaded, "total_files", len(files))
	return nil
}

// LoadFromFile loads a single definition from a YAML file
func (l *Loader) LoadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}

	if def.ID == "" {
		def.ID = strippedName(path)
	}
	if err := def.validate(); err != nil {
		return err
	}

	l.mu.Lock()
	l.definitions[def.ID] = &def
	l.mu.Unlock()

	slog.Info("definition loaded", "id", def.ID, "name", def.Name)
	return nil
}

// Get retrieves a definition by id
func (l *Loader) Get(id string) *Definition {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.definitions[id]
}

// List returns all loaded definitions sorted by id
func (l *Loader) List() []*Definition {
	l.mu.RLock()
	defer l.mu.RUnlock()

	result := make([]*Definition, 0, len(l.definitions))
	for _, def := range l.definitions {
		result = append(result, def)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

func (d *Definition) validate() error {
	if d.Name == "" {
		return fmt.Errorf("definition name is required")
	}
	if d.Category == "" {
		return fmt.Errorf("definition category is required")
	}
	for _, s := range d.Sections {
		for _, q := range s.Questions {
			if q.Type != "" && !q.Type.IsKnown() {
				return fmt.Errorf("question %q has unknown type %q", q.ID, q.Type)
			}
		}
	}
	return nil
}

// Questionnaire converts the definition into the engine's model tree. Order
// indexes follow file order.
func (d *Definition) Questionnaire() *models.Questionnaire {
	q := &models.Questionnaire{
		Name:        d.Name,
		Description: d.Description,
		Category:    d.Category,
		Settings:    d.Settings,
	}

	for _, ds := range d.Sections {
		section := &models.Section{
			ID:               ds.ID,
			Name:             ds.Name,
			Description:      ds.Description,
			DisplayCondition: ds.DisplayCondition.model(),
		}
		for _, dq := range ds.Questions {
			question := &models.Question{
				ID:       dq.ID,
				Text:     dq.Text,
				Type:     dq.Type,
				Options:  dq.Options,
				Required: dq.Required,
				HelpText: dq.HelpText,
			}
			if dq.ScoreConfig != nil {
				question.ScoreConfig = &models.ScoreConfig{
					Options:    dq.ScoreConfig.Options,
					Ranges:     dq.ScoreConfig.Ranges,
					Multiplier: dq.ScoreConfig.Multiplier,
					TrueValue:  dq.ScoreConfig.TrueValue,
					FalseValue: dq.ScoreConfig.FalseValue,
				}
			}
			for _, rule := range dq.Logic {
				question.Logic = append(question.Logic, &models.LogicRule{
					Condition: rule.Condition.model(),
					Action:    rule.Action,
				})
			}
			section.Questions = append(section.Questions, question)
		}
		q.Sections = append(q.Sections, section)
	}

	return q
}

func (c *yamlCondition) model() *models.Condition {
	if c == nil {
		return nil
	}
	out := &models.Condition{
		Type:       c.Type,
		QuestionID: c.QuestionID,
		Operator:   c.Operator,
		Value:      c.Value,
	}
	for _, nested := range c.Conditions {
		out.Conditions = append(out.Conditions, nested.model())
	}
	return out
}

func strippedName(path string) string {
	base := filepath.Base(path)
	return base[:len(base)-len(filepath.Ext(base))]
}
