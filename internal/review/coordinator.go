package review

import (
	"context"
	"fmt"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jonathan/repocompare/internal/types"
)

// DefaultReviewTimeout bounds one reviewer when the coordinator has no timeout set.
const DefaultReviewTimeout = 90 * time.Second

// Coordinator fans a candidate set out to every reviewer and joins their verdicts.
type Coordinator struct {
	Reviewers []Reviewer
	Timeout   time.Duration
	Logger    *log.Logger
}

// ReviewAll runs every reviewer concurrently. A reviewer that errors, panics or times out
// contributes DefaultVerdict instead, so the result always has one entry per reviewer.
func (c *Coordinator) ReviewAll(ctx context.Context, items []types.CandidateItem, rc Context) map[string]types.Verdict {
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultReviewTimeout
	}

	verdicts := make([]types.Verdict, len(c.Reviewers))
	g, gctx := errgroup.WithContext(ctx)
	for i, r := range c.Reviewers {
		i, r := i, r
		// Each reviewer gets its own copy so none can observe another's mutations.
		own := types.CloneCandidates(items)
		g.Go(func() error {
			verdicts[i] = c.runOne(gctx, r, own, rc, timeout)
			return nil
		})
	}
	_ = g.Wait()

	out := make(map[string]types.Verdict, len(verdicts))
	for _, v := range verdicts {
		out[v.Reviewer] = v
	}
	return out
}

func (c *Coordinator) runOne(ctx context.Context, r Reviewer, items []types.CandidateItem, rc Context, timeout time.Duration) (v types.Verdict) {
	name := r.Name()
	start := time.Now()
	defer func() {
		if p := recover(); p != nil {
			c.logf("[REVIEW] Warning: %s reviewer panicked: %v", name, p)
			v = types.DefaultVerdict(name, fmt.Sprintf("panic: %v", p))
		}
	}()

	rctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	verdict, err := r.Review(rctx, items, rc)
	if err != nil {
		reason := err.Error()
		if rctx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
			reason = fmt.Sprintf("timed out after %s", timeout)
		}
		c.logf("[REVIEW] Warning: %s reviewer failed: %s", name, reason)
		return types.DefaultVerdict(name, reason)
	}
	verdict.Reviewer = name
	c.logf("[REVIEW] %s: score %.1f, approved=%t (%s)", name, verdict.Score, verdict.Approved, time.Since(start).Round(time.Millisecond))
	return verdict
}

func (c *Coordinator) logf(format string, args ...any) {
	if c.Logger != nil {
		c.Logger.Printf(format, args...)
	}
}
