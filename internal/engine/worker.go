package engine

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/mwhitt/stockpulse/internal/backtest"
	"github.com/mwhitt/stockpulse/internal/consensus"
	"github.com/mwhitt/stockpulse/internal/market"
)

// Worker offloads CPU-bound analyze and backtest calls to a background
// goroutine pool so a request-handling thread never blocks on them. It
// is a plain request/response boundary: no shared mutable state crosses
// it, and the algorithms underneath stay synchronous and pure. Purely a
// throughput optimization; callers may always invoke the Engine
// directly instead.
type Worker struct {
	engine *Engine
	jobs   chan func()
	done   chan struct{}
}

// NewWorker starts size goroutines draining the job queue.
func NewWorker(engine *Engine, size int) *Worker {
	if size < 1 {
		size = 1
	}
	w := &Worker{
		engine: engine,
		jobs:   make(chan func(), size*2),
		done:   make(chan struct{}),
	}
	for i := 0; i < size; i++ {
		go w.loop()
	}
	return w
}

func (w *Worker) loop() {
	for {
		select {
		case job := <-w.jobs:
			job()
		case <-w.done:
			return
		}
	}
}

// Close stops the pool and runs any jobs still queued, so every result
// channel handed out before Close delivers. Enqueuing after Close is a
// caller error.
func (w *Worker) Close() {
	close(w.done)
	for {
		select {
		case job := <-w.jobs:
			job()
		default:
			return
		}
	}
}

// AnalyzeResult carries an offloaded analysis back to the caller.
type AnalyzeResult struct {
	Signal consensus.Signal
	Err    error
}

// BacktestResult carries an offloaded backtest back to the caller.
type BacktestResult struct {
	Report *backtest.Report
	Err    error
}

// AnalyzeAsync queues an analysis over in-memory bars. The returned
// channel delivers exactly one result.
func (w *Worker) AnalyzeAsync(ctx context.Context, bars []market.PricePoint) <-chan AnalyzeResult {
	out := make(chan AnalyzeResult, 1)
	job := func() {
		if err := ctx.Err(); err != nil {
			out <- AnalyzeResult{Err: err}
			return
		}
		out <- AnalyzeResult{Signal: w.engine.AnalyzeBars(bars)}
	}
	select {
	case w.jobs <- job:
	case <-ctx.Done():
		out <- AnalyzeResult{Err: ctx.Err()}
	}
	return out
}

// BacktestAsync queues a backtest run. The returned channel delivers
// exactly one result; the run itself is not cancellable once started.
func (w *Worker) BacktestAsync(ctx context.Context, symbol string, bars []market.PricePoint, initialBalance float64) <-chan BacktestResult {
	out := make(chan BacktestResult, 1)
	job := func() {
		report, err := w.engine.RunBacktestBars(ctx, symbol, bars, initialBalance)
		out <- BacktestResult{Report: report, Err: err}
	}
	select {
	case w.jobs <- job:
	case <-ctx.Done():
		log.Debug().Msg("backtest job dropped, context done before enqueue")
		out <- BacktestResult{Err: ctx.Err()}
	}
	return out
}
