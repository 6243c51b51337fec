package compare

import (
	"context"

	"golang.org/x/sync/errgroup"

	"yieldScope/internal/model"
)

// Source yields the normalized rates of one comparison protocol. A nil
// yield with a nil error means the protocol lists no matching reserve.
type Source interface {
	Name() string
	Yield(ctx context.Context, target Target) (*model.SourceYield, error)
}

// Outcome is the result of one source.
type Outcome struct {
	Source string
	Yield  *model.SourceYield
	Err    error
}

// Compare queries every source concurrently. Outcomes keep the order of
// sources and a failing source never affects the others.
func Compare(ctx context.Context, sources []Source, target Target) []Outcome {
	outcomes := make([]Outcome, len(sources))

	var g errgroup.Group
	for i, src := range sources {
		i, src := i, src
		g.Go(func() error {
			outcomes[i].Source = src.Name()
			if err := ctx.Err(); err != nil {
				outcomes[i].Err = err
				return nil
			}
			outcomes[i].Yield, outcomes[i].Err = src.Yield(ctx, target)
			return nil
		})
	}
	_ = g.Wait()

	return outcomes
}
