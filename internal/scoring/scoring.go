// Package scoring accumulates option weights into tallies and resolves a winning category.
package scoring

import (
	"github.com/mikailyan/moscow-zoo-bot/internal/domain"
)

// ApplyOption returns tally with option's weights added coordinate-wise. tally is not modified.
func ApplyOption(tally domain.Tally, option domain.Option) domain.Tally {
	out := tally.Clone()
	for i := range out {
		out[i].Score += option.Weights.Weight(out[i].Category)
	}
	return out
}

// Resolve picks the winning category. Ties are broken uniformly at random through rnd.
func Resolve(tally domain.Tally, rnd Random) (domain.Result, error) {
	if len(tally) == 0 {
		return domain.Result{}, domain.ErrEmptyTally
	}

	top := tally[0].Score
	for _, s := range tally[1:] {
		if s.Score > top {
			top = s.Score
		}
	}
	tied := make([]domain.Category, 0, 1)
	for _, s := range tally {
		if s.Score == top {
			tied = append(tied, s.Category)
		}
	}

	winner := tied[0]
	if len(tied) > 1 {
		winner = tied[rnd.Intn(len(tied))]
	}
	return domain.Result{
		Winner: winner,
		Tied:   tied,
		Tally:  tally.Clone(),
	}, nil
}
