package definitions

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/formlead/survey-engine/internal/models"
)

func writeDefinition(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

const sampleDefinition = `
id: fit-check
name: Fit Check
category: sales
sections:
  - id: main
    name: Main
    questions:
      - id: size
        text: Team size?
        type: number
        score_config:
          ranges:
            - min: 1
              max: 10
              score: 2
          multiplier: "0.5"
      - id: demo
        text: Want a demo?
        type: single_choice
        options: ["yes", "no"]
        score_config:
          options:
            "yes": 10
            "no": 0
  - id: followup
    name: Follow Up
    display_condition:
      type: simple
      question_id: size
      operator: greater_than
      value: 5
`

func TestLoadFromDir(t *testing.T) {
	dir := t.TempDir()
	writeDefinition(t, dir, "fit-check.yaml", sampleDefinition)
	writeDefinition(t, dir, "broken.yaml", "name: No Category\nsections: []\n")
	writeDefinition(t, dir, "notes.txt", "not a definition")

	loader := NewLoader()
	if err := loader.LoadFromDir(dir); err != nil {
		t.Fatalf("LoadFromDir: %v", err)
	}

	// The broken file (missing category) is skipped, not fatal.
	if got := len(loader.List()); got != 1 {
		t.Fatalf("loaded %d definitions, want 1", got)
	}

	def := loader.Get("fit-check")
	if def == nil {
		t.Fatal("fit-check definition not found")
	}
	if def.Name != "Fit Check" || def.Category != "sales" {
		t.Errorf("unexpected definition header: %+v", def)
	}
}

func TestDefinitionIdDefaultsToFilename(t *testing.T) {
	dir := t.TempDir()
	writeDefinition(t, dir, "anonymous.yaml", "name: Anonymous\ncategory: misc\n")

	loader := NewLoader()
	if err := loader.LoadFromFile(filepath.Join(dir, "anonymous.yaml")); err != nil {
		t.Fatalf("LoadFromFile: %v", err)
	}
	if loader.Get("anonymous") == nil {
		t.Error("definition id did not default to the file name")
	}
}

func TestLoadRejectsUnknownQuestionType(t *testing.T) {
	dir := t.TempDir()
	writeDefinition(t, dir, "bad.yaml", `
name: Bad
category: misc
sections:
  - id: s
    name: S
    questions:
      - id: q
        text: Q?
        type: hologram
`)

	loader := NewLoader()
	if err := loader.LoadFromFile(filepath.Join(dir, "bad.yaml")); err == nil {
		t.Fatal("expected an error for unknown question type")
	}
}

func TestQuestionnaireConversion(t *testing.T) {
	dir := t.TempDir()
	writeDefinition(t, dir, "fit-check.yaml", sampleDefinition)

	loader := NewLoader()
	if err := loader.LoadFromFile(filepath.Join(dir, "fit-check.yaml")); err != nil {
		t.Fatalf("LoadFromFile: %v", err)
	}

	q := loader.Get("fit-check").Questionnaire()
	if len(q.Sections) != 2 {
		t.Fatalf("sections = %d, want 2", len(q.Sections))
	}

	main := q.Sections[0]
	if len(main.Questions) != 2 {
		t.Fatalf("main questions = %d, want 2", len(main.Questions))
	}

	size := main.Questions[0]
	if size.Type != models.QuestionNumber {
		t.Errorf("size type = %q, want number", size.Type)
	}
	if size.ScoreConfig == nil || len(size.ScoreConfig.Ranges) != 1 {
		t.Fatalf("size score config = %+v, want one range", size.ScoreConfig)
	}
	if size.ScoreConfig.Multiplier == nil || float64(*size.ScoreConfig.Multiplier) != 0.5 {
		t.Errorf("multiplier = %v, want 0.5 (string form accepted)", size.ScoreConfig.Multiplier)
	}

	demo := main.Questions[1]
	if demo.ScoreConfig == nil || float64(demo.ScoreConfig.Options["yes"]) != 10 {
		t.Errorf("demo options = %+v, want yes=10", demo.ScoreConfig)
	}

	followup := q.Sections[1]
	cond := followup.DisplayCondition
	if cond == nil || cond.Type != models.ConditionSimple || cond.QuestionID != "size" {
		t.Fatalf("display condition = %+v, want simple on size", cond)
	}
	if cond.Operator != models.OpGreaterThan {
		t.Errorf("operator = %q, want greater_than", cond.Operator)
	}
}
