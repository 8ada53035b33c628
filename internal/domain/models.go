package domain

import "time"

// Category identifies one classification outcome (a totem animal).
type Category string

// CategoryInfo pairs a category with its display name.
type CategoryInfo struct {
	ID   Category `json:"id" yaml:"id" toml:"id"`
	Name string   `json:"name" yaml:"name" toml:"name"`
}

// WeightVector maps every catalog category to a non-negative contribution.
type WeightVector map[Category]int

// Weight returns the contribution for c; absent entries contribute nothing.
func (w WeightVector) Weight(c Category) int {
	return w[c]
}

// Option represents a selectable answer for a question.
type Option struct {
	Label   string       `json:"label" yaml:"label" toml:"label"`
	Weights WeightVector `json:"weights" yaml:"weights" toml:"weights"`
}

// Question models a multiple-choice question at a fixed position in the catalog.
type Question struct {
	Index   int      `json:"index" yaml:"-" toml:"-"`
	Prompt  string   `json:"prompt" yaml:"prompt" toml:"prompt"`
	Options []Option `json:"options" yaml:"options" toml:"options"`
}

// CategoryScore is one entry of a tally.
type CategoryScore struct {
	Category Category `json:"category"`
	Score    int      `json:"score"`
}

// Tally holds accumulated scores in catalog category order, one entry per category.
type Tally []CategoryScore

// NewTally returns an all-zero tally covering categories.
func NewTally(categories []Category) Tally {
	t := make(Tally, len(categories))
	for i, c := range categories {
		t[i] = CategoryScore{Category: c}
	}
	return t
}

// Clone returns a copy that shares no backing array with t.
func (t Tally) Clone() Tally {
	if t == nil {
		return nil
	}
	out := make(Tally, len(t))
	copy(out, t)
	return out
}

// Score returns the accumulated score for c.
func (t Tally) Score(c Category) int {
	for _, s := range t {
		if s.Category == c {
			return s.Score
		}
	}
	return 0
}

// Phase is the lifecycle stage of a session.
type Phase string

const (
	PhaseInProgress Phase = "in_progress"
	PhaseCompleted  Phase = "completed"
)

// Result is the outcome of a completed session.
type Result struct {
	Winner Category   `json:"winner"`
	Tied   []Category `json:"tied"`
	Tally  Tally      `json:"tally"`
}

// Session is one participant's quiz state.
type Session struct {
	ID               string
	ParticipantID    string
	ExpectedQuestion int
	Tally            Tally
	Phase            Phase
	Result           *Result
	StartedAt        time.Time
	UpdatedAt        time.Time
}

// Clone returns a deep copy of the session.
func (s Session) Clone() Session {
	out := s
	out.Tally = s.Tally.Clone()
	if s.Result != nil {
		r := *s.Result
		r.Tied = append([]Category(nil), s.Result.Tied...)
		r.Tally = s.Result.Tally.Clone()
		out.Result = &r
	}
	return out
}
