package survey

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/yungbote/maturity-assessment-backend/internal/domain/assessment"
)

//go:embed definition.yaml
var defaultDefinition []byte

const (
	MinRating = 1
	MaxRating = 5
)

type Choice struct {
	Value int    `yaml:"value" json:"value"`
	Text  string `yaml:"text" json:"text"`
}

type Question struct {
	// Name is the UI-local question id. It is not stable across definition
	// revisions and is never persisted.
	Name       string   `yaml:"name" json:"name"`
	Capability string   `yaml:"capability" json:"capability"`
	Title      string   `yaml:"title" json:"title"`
	Choices    []Choice `yaml:"choices,omitempty" json:"choices,omitempty"`
}

type Stage struct {
	Name      string     `yaml:"name" json:"name"`
	Title     string     `yaml:"title" json:"title"`
	Page      string     `yaml:"page" json:"page"`
	Order     int        `yaml:"order" json:"order"`
	Questions []Question `yaml:"questions" json:"questions"`
}

// Benchmark values are on the 0..10 scale used by the source survey.
type Benchmark struct {
	PeerAverage float64 `yaml:"peer_average" json:"peer_average"`
	BestInClass float64 `yaml:"best_in_class" json:"best_in_class"`
}

type Definition struct {
	Title          string               `yaml:"title" json:"title"`
	DefaultChoices []Choice             `yaml:"choices" json:"choices"`
	Stages         []Stage              `yaml:"stages" json:"stages"`
	Benchmarks     map[string]Benchmark `yaml:"benchmarks" json:"benchmarks"`

	byStage    map[string]int
	byQuestion map[string]questionRef
}

type questionRef struct {
	stage    int
	question int
}

// Default returns the built-in definition.
func Default() (*Definition, error) {
	return Parse(defaultDefinition)
}

// Load reads a YAML definition from path, or the built-in one when path is empty.
func Load(path string) (*Definition, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return Default()
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read survey definition: %w", err)
	}
	return Parse(raw)
}

func Parse(raw []byte) (*Definition, error) {
	var d Definition
	if err := yaml.Unmarshal(raw, &d); err != nil {
		return nil, fmt.Errorf("parse survey definition: %w", err)
	}
	if err := d.init(); err != nil {
		return nil, err
	}
	return &d, nil
}

func (d *Definition) init() error {
	if len(d.Stages) == 0 {
		return fmt.Errorf("survey definition has no stages")
	}
	d.byStage = make(map[string]int, len(d.Stages))
	d.byQuestion = make(map[string]questionRef)
	for si := range d.Stages {
		st := &d.Stages[si]
		st.Name = strings.TrimSpace(st.Name)
		if st.Name == "" {
			return fmt.Errorf("stage %d has no name", si)
		}
		if _, dup := d.byStage[st.Name]; dup {
			return fmt.Errorf("duplicate stage %q", st.Name)
		}
		if st.Order == 0 {
			st.Order = assessment.ParseStageNumber(st.Title)
		}
		if st.Order == 0 {
			st.Order = si + 1
		}
		if st.Page == "" {
			st.Page = fmt.Sprintf("stage_%d", st.Order)
		}
		if len(st.Questions) == 0 {
			return fmt.Errorf("stage %q has no questions", st.Name)
		}
		d.byStage[st.Name] = si
		seenCap := make(map[string]bool, len(st.Questions))
		for qi := range st.Questions {
			q := &st.Questions[qi]
			q.Name = strings.TrimSpace(q.Name)
			if q.Name == "" || strings.TrimSpace(q.Capability) == "" {
				return fmt.Errorf("stage %q question %d missing name or capability", st.Name, qi)
			}
			if _, dup := d.byQuestion[q.Name]; dup {
				return fmt.Errorf("duplicate question name %q", q.Name)
			}
			key := CanonicalCapability(q.Capability)
			if seenCap[key] {
				return fmt.Errorf("stage %q repeats capability %q", st.Name, key)
			}
			seenCap[key] = true
			if len(q.Choices) == 0 {
				q.Choices = d.DefaultChoices
			}
			d.byQuestion[q.Name] = questionRef{stage: si, question: qi}
		}
	}
	return nil
}

// TotalQuestions counts questions across every stage.
func (d *Definition) TotalQuestions() int {
	n := 0
	for _, st := range d.Stages {
		n += len(st.Questions)
	}
	return n
}

func (d *Definition) StageByName(name string) (*Stage, bool) {
	i, ok := d.byStage[strings.TrimSpace(name)]
	if !ok {
		return nil, false
	}
	return &d.Stages[i], true
}

// StageAt returns the stage at a zero-based position.
func (d *Definition) StageAt(index int) (*Stage, bool) {
	if index < 0 || index >= len(d.Stages) {
		return nil, false
	}
	return &d.Stages[index], true
}

// StageIndex is the zero-based position of the named stage, or -1.
func (d *Definition) StageIndex(name string) int {
	i, ok := d.byStage[strings.TrimSpace(name)]
	if !ok {
		return -1
	}
	return i
}

func (d *Definition) Question(name string) (*Stage, *Question, bool) {
	ref, ok := d.byQuestion[strings.TrimSpace(name)]
	if !ok {
		return nil, nil, false
	}
	st := &d.Stages[ref.stage]
	return st, &st.Questions[ref.question], true
}

// ChoiceText is the option label for rating, or "" when the question has none.
func (q *Question) ChoiceText(rating int) string {
	for _, c := range q.Choices {
		if c.Value == rating {
			return c.Text
		}
	}
	return ""
}

func (d *Definition) Benchmark(stage string) (Benchmark, bool) {
	b, ok := d.Benchmarks[stage]
	return b, ok
}

// ValidRating reports whether v is on the 1..5 scale.
func ValidRating(v int) bool {
	return v >= MinRating && v <= MaxRating
}
