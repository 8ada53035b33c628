// Package catalog holds the immutable question set the quiz engine walks through.
package catalog

import (
	"fmt"

	"github.com/mikailyan/moscow-zoo-bot/internal/domain"
)

// Definition is the raw, loader-facing shape of a catalog.
type Definition struct {
	ID         string                `json:"id" yaml:"id" toml:"id"`
	Categories []domain.CategoryInfo `json:"categories" yaml:"categories" toml:"categories"`
	Questions  []domain.Question     `json:"questions" yaml:"questions" toml:"questions"`
}

// Catalog is a validated, read-only question set. Safe for concurrent use.
type Catalog struct {
	id         string
	categories []domain.CategoryInfo
	ids        []domain.Category
	names      map[domain.Category]string
	questions  []domain.Question
}

// New validates def and builds a Catalog. Missing weights are filled with explicit zeros and
// question indexes are renumbered from 0.
func New(def Definition) (*Catalog, error) {
	if len(def.Categories) == 0 {
		return nil, fmt.Errorf("%w: no categories", domain.ErrInvalidCatalog)
	}
	if len(def.Questions) == 0 {
		return nil, fmt.Errorf("%w: no questions", domain.ErrInvalidCatalog)
	}

	c := &Catalog{
		id:         def.ID,
		categories: make([]domain.CategoryInfo, 0, len(def.Categories)),
		ids:        make([]domain.Category, 0, len(def.Categories)),
		names:      make(map[domain.Category]string, len(def.Categories)),
		questions:  make([]domain.Question, 0, len(def.Questions)),
	}
	for _, info := range def.Categories {
		if info.ID == "" {
			return nil, fmt.Errorf("%w: empty category id", domain.ErrInvalidCatalog)
		}
		if _, dup := c.names[info.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate category %q", domain.ErrInvalidCatalog, info.ID)
		}
		name := info.Name
		if name == "" {
			name = string(info.ID)
		}
		c.names[info.ID] = name
		c.ids = append(c.ids, info.ID)
		c.categories = append(c.categories, domain.CategoryInfo{ID: info.ID, Name: name})
	}

	for qi, q := range def.Questions {
		if len(q.Options) == 0 {
			return nil, fmt.Errorf("%w: question %d has no options", domain.ErrInvalidCatalog, qi)
		}
		question := domain.Question{
			Index:   qi,
			Prompt:  q.Prompt,
			Options: make([]domain.Option, 0, len(q.Options)),
		}
		for oi, opt := range q.Options {
			weights, err := c.normalize(opt.Weights)
			if err != nil {
				return nil, fmt.Errorf("question %d option %d: %w", qi, oi, err)
			}
			question.Options = append(question.Options, domain.Option{Label: opt.Label, Weights: weights})
		}
		c.questions = append(c.questions, question)
	}
	return c, nil
}

func (c *Catalog) normalize(in domain.WeightVector) (domain.WeightVector, error) {
	for cat, w := range in {
		if _, ok := c.names[cat]; !ok {
			return nil, fmt.Errorf("%w: unknown category %q", domain.ErrInvalidCatalog, cat)
		}
		if w < 0 {
			return nil, fmt.Errorf("%w: negative weight %d for %q", domain.ErrInvalidCatalog, w, cat)
		}
	}
	out := make(domain.WeightVector, len(c.ids))
	for _, cat := range c.ids {
		out[cat] = in[cat]
	}
	return out, nil
}

// ID returns the catalog identifier, possibly empty.
func (c *Catalog) ID() string { return c.id }

// Len returns the number of questions.
func (c *Catalog) Len() int { return len(c.questions) }

// Categories returns category identifiers in catalog order.
func (c *Catalog) Categories() []domain.Category {
	return append([]domain.Category(nil), c.ids...)
}

// CategoryInfos returns categories with display names in catalog order.
func (c *Catalog) CategoryInfos() []domain.CategoryInfo {
	return append([]domain.CategoryInfo(nil), c.categories...)
}

// CategoryName returns the display name for cat, falling back to its identifier.
func (c *Catalog) CategoryName(cat domain.Category) string {
	if name, ok := c.names[cat]; ok {
		return name
	}
	return string(cat)
}

// QuestionAt returns the question at index.
func (c *Catalog) QuestionAt(index int) (domain.Question, error) {
	if index < 0 || index >= len(c.questions) {
		return domain.Question{}, fmt.Errorf("%w: %d (have %d)", domain.ErrOutOfRange, index, len(c.questions))
	}
	return cloneQuestion(c.questions[index]), nil
}

// OptionAt returns option o of question q.
func (c *Catalog) OptionAt(q, o int) (domain.Option, error) {
	question, err := c.QuestionAt(q)
	if err != nil {
		return domain.Option{}, err
	}
	if o < 0 || o >= len(question.Options) {
		return domain.Option{}, fmt.Errorf("%w: question %d option %d", domain.ErrInvalidOption, q, o)
	}
	return question.Options[o], nil
}

// Definition returns the normalized definition, suitable for storing.
func (c *Catalog) Definition() Definition {
	questions := make([]domain.Question, len(c.questions))
	for i, q := range c.questions {
		questions[i] = cloneQuestion(q)
	}
	return Definition{
		ID:         c.id,
		Categories: c.CategoryInfos(),
		Questions:  questions,
	}
}

func cloneQuestion(q domain.Question) domain.Question {
	out := q
	out.Options = make([]domain.Option, len(q.Options))
	for i, opt := range q.Options {
		weights := make(domain.WeightVector, len(opt.Weights))
		for cat, w := range opt.Weights {
			weights[cat] = w
		}
		out.Options[i] = domain.Option{Label: opt.Label, Weights: weights}
	}
	return out
}
