// Package view turns engine effects into transport-neutral render models.
package view

import (
	"github.com/mikailyan/moscow-zoo-bot/internal/domain"
	"github.com/mikailyan/moscow-zoo-bot/internal/transport/callback"
)

// Catalog is the read side of the question catalog needed for rendering.
type Catalog interface {
	Len() int
	QuestionAt(index int) (domain.Question, error)
	CategoryName(c domain.Category) string
}

type OptionView struct {
	Label string `json:"label"`
	Data  string `json:"data"`
}

type QuestionView struct {
	Index   int          `json:"index"`
	Total   int          `json:"total"`
	Prompt  string       `json:"prompt"`
	Options []OptionView `json:"options"`
}

type ResultView struct {
	Winner domain.Category   `json:"winner"`
	Name   string            `json:"name"`
	Tied   []domain.Category `json:"tied"`
	Tally  domain.Tally      `json:"tally"`
}

// Question renders question index with one callback payload per option.
func Question(c Catalog, index int) (QuestionView, error) {
	q, err := c.QuestionAt(index)
	if err != nil {
		return QuestionView{}, err
	}
	options := make([]OptionView, len(q.Options))
	for i, opt := range q.Options {
		options[i] = OptionView{Label: opt.Label, Data: callback.Answer(q.Index, i)}
	}
	return QuestionView{
		Index:   q.Index,
		Total:   c.Len(),
		Prompt:  q.Prompt,
		Options: options,
	}, nil
}

func Result(c Catalog, r domain.Result) ResultView {
	return ResultView{
		Winner: r.Winner,
		Name:   c.CategoryName(r.Winner),
		Tied:   r.Tied,
		Tally:  r.Tally,
	}
}
