package cli

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/wesleyorama2/fluenthttp/internal/config"
	"github.com/wesleyorama2/fluenthttp/fluent"
	"github.com/wesleyorama2/fluenthttp/internal/output"
	"github.com/wesleyorama2/fluenthttp/internal/stats"
)

// plan describes what a runner sends. One iteration sends every name in
// order; iterations are shared out between virtual users.
type plan struct {
	names []string
	// vars seeds the variables of every virtual user. Values extracted
	// from a response are added to the user's own copy.
	vars  map[string]string
	build func(name string, vars map[string]string) (*call, error)

	iterations   int
	concurrency  int
	failOnStatus bool
}

// runner executes a plan with a fixed pool of virtual users, each running
// iterations until none are left.
type runner struct {
	rt       *runtime
	client   *fluent.Client
	plan     plan
	recorder *stats.Recorder

	next   atomic.Int64
	failed atomic.Int64
	sent   atomic.Int64

	// serializes output of concurrent users
	mu sync.Mutex
	wg sync.WaitGroup
}

func (rt *runtime) newRunner(client *fluent.Client, p plan) *runner {
	if p.iterations < 1 {
		p.iterations = 1
	}
	if p.concurrency < 1 {
		p.concurrency = 1
	}
	if p.concurrency > p.iterations {
		p.concurrency = p.iterations
	}
	return &runner{
		rt:       rt,
		client:   client,
		plan:     p,
		recorder: stats.NewRecorder(),
	}
}

// Run blocks until every iteration finished or ctx is done. It prints a
// latency summary when more than one iteration ran.
func (r *runner) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	for i := 0; i < r.plan.concurrency; i++ {
		r.wg.Add(1)
		go r.runUser(ctx, i)
	}
	r.wg.Wait()

	if r.plan.iterations > 1 {
		r.rt.print(r.rt.formatter.FormatSummary(r.recorder.Summary()))
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	if failed := r.failed.Load(); failed > 0 {
		return fmt.Errorf("%w: %d of %d", errRequestsFailed, failed, r.sent.Load())
	}
	return nil
}

// runUser runs iterations until the shared counter is exhausted.
func (r *runner) runUser(ctx context.Context, id int) {
	defer r.wg.Done()

	vars := config.MergeVars(r.plan.vars)
	r.rt.logger.Debug("virtual user started", zap.Int("user", id))

	for {
		if ctx.Err() != nil {
			return
		}
		if r.next.Add(1) > int64(r.plan.iterations) {
			return
		}
		for _, name := range r.plan.names {
			if ctx.Err() != nil {
				return
			}
			r.step(ctx, name, vars)
		}
	}
}

// step builds and sends one call, records it and merges extracted values
// into vars.
func (r *runner) step(ctx context.Context, name string, vars map[string]string) {
	r.sent.Add(1)

	c, err := r.plan.build(name, vars)
	if err != nil {
		r.fail(name, err)
		return
	}

	start := time.Now()
	ex, err := r.rt.execute(ctx, r.client, c)

	var received int64
	duration := time.Since(start)
	if ex != nil {
		r.mu.Lock()
		r.rt.print(r.rt.formatter.FormatExchange(ex))
		r.mu.Unlock()

		received = int64(len(ex.Body))
		duration = ex.Duration
		if err == nil && r.plan.failOnStatus && !ex.IsSuccess() {
			err = fmt.Errorf("unexpected status %s", ex.Status)
		}
	}
	r.recorder.Record(callName(c), duration, err == nil, received)

	if err != nil {
		r.fail(callName(c), err)
		return
	}
	for key, value := range ex.Extracted {
		vars[key] = value
	}
}

func (r *runner) fail(name string, err error) {
	r.failed.Add(1)

	r.mu.Lock()
	fmt.Fprintf(r.rt.errOut, "%s %s: %v\n", output.ErrorIcon(r.rt.noColor), name, err)
	r.mu.Unlock()

	r.rt.logger.Debug("request failed", zap.String("request", name), zap.Error(err))
}
