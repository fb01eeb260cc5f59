// # internal/checker/program.go
package checker

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"gradual/internal/shared/observability"
)

// maxPassCount bounds the fixpoint loop far above anything a well-formed
// module needs; hitting it indicates a monotonicity bug.
const maxPassCount = 100

// Result summarizes one module's fixpoint run.
type Result struct {
	Passes     int
	Converged  bool
	LastReason string
}

// Program drives a walker's Analyze to its fixpoint: it repeats passes until
// one reports no change, bounded by maxPassCount. Cancellation is honored at
// pass boundaries; partial cache state stays valid because the cache is
// monotone.
type Program struct {
	walker *Walker
}

func NewProgram(w *Walker) *Program {
	return &Program{walker: w}
}

// Run analyzes to convergence.
func (p *Program) Run(ctx context.Context) (Result, error) {
	start := time.Now()
	ctx, span := observability.Tracer.Start(ctx, "program.Run", trace.WithAttributes(
		attribute.String("module", p.walker.file.FilePath),
	))
	defer span.End()

	result := Result{}
	for result.Passes < maxPassCount {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		changed := p.walker.Analyze()
		result.Passes++
		observability.AnalysisPassesTotal.Inc()
		if !changed {
			result.Converged = true
			break
		}
		result.LastReason = p.walker.LastReanalysisReason()
	}

	if result.Converged {
		observability.AnalysisConvergedTotal.Inc()
	} else {
		observability.AnalysisAbortedTotal.Inc()
	}
	span.SetAttributes(attribute.Int("passes", result.Passes))
	observability.AnalysisDuration.WithLabelValues(p.walker.file.FilePath).
		Observe(time.Since(start).Seconds())
	return result, nil
}
