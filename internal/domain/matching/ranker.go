package matching

import (
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/okian/pumpmatch/internal/domain/pump"
)

// RankerOption applies a configuration option to the Ranker.
type RankerOption func(*Ranker)

// WithParallelism caps how many candidates are scored concurrently.
// A value of 1 scores sequentially.
func WithParallelism(n int) RankerOption {
	return func(r *Ranker) {
		if n > 0 {
			r.parallelism = n
		}
	}
}

// Ranker scores a catalog and orders the viable candidates.
type Ranker struct {
	scorer      *Scorer
	parallelism int
}

// NewRanker creates a ranker around scorer. A nil scorer uses NewScorer().
func NewRanker(scorer *Scorer, opts ...RankerOption) *Ranker {
	if scorer == nil {
		scorer = NewScorer()
	}
	r := &Ranker{
		scorer:      scorer,
		parallelism: runtime.NumCPU(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Rank scores every pump in catalog against req, drops non-viable results
// and sorts the rest by descending score. Ties are broken by the diagnostic
// composite and then by catalog order, so identical input always yields
// identical output regardless of evaluation order.
func (r *Ranker) Rank(req *pump.Requirement, catalog []pump.Spec) ([]Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	results := make([]Result, len(catalog))
	var g errgroup.Group
	g.SetLimit(r.parallelism)
	for i := range catalog {
		g.Go(func() error {
			res, err := r.scorer.Score(&catalog[i], req)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	viable := make([]Result, 0, len(results))
	for i := range results {
		if results[i].Score > 0 {
			viable = append(viable, results[i])
		}
	}
	sort.SliceStable(viable, func(i, j int) bool {
		if viable[i].Score != viable[j].Score {
			return viable[i].Score > viable[j].Score
		}
		return viable[i].Diagnostic.Composite > viable[j].Diagnostic.Composite
	})
	return viable, nil
}
