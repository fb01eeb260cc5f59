// # internal/app/app.go
package app

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gobwas/glob"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"gradual/internal/binder"
	"gradual/internal/cerrors"
	"gradual/internal/checker"
	"gradual/internal/config"
	"gradual/internal/diagnostics"
	"gradual/internal/history"
	"gradual/internal/shared/observability"
	"gradual/internal/shared/util"
	"gradual/internal/types"
	"gradual/internal/watcher"
)

// App wires scanning, binding, checking, history and watch mode together.
type App struct {
	Config *config.Config

	excludeDirs  []glob.Glob
	excludeFiles []glob.Glob
	stubPatterns []glob.Glob

	history  *history.Store
	throttle *util.ReanalysisThrottle
	watch    *watcher.Watcher
}

// ModuleResult is one module's converged analysis.
type ModuleResult struct {
	Module    *binder.Module
	Collector *diagnostics.Collector
	Passes    int
	Converged bool
}

// RunSummary aggregates one full analysis run.
type RunSummary struct {
	RunID       string
	Modules     []*ModuleResult
	Diagnostics []diagnostics.Diagnostic
	UnusedCode  []diagnostics.Diagnostic
	TotalPasses int
	Duration    time.Duration
}

func New(cfg *config.Config) (*App, error) {
	a := &App{Config: cfg}

	compile := func(patterns []string) ([]glob.Glob, error) {
		out := make([]glob.Glob, 0, len(patterns))
		for _, p := range patterns {
			g, err := glob.Compile(p)
			if err != nil {
				err = cerrors.Wrap(err, cerrors.CodeValidationError, "compile pattern")
				return nil, cerrors.AddContext(err, cerrors.CtxPattern, p)
			}
			out = append(out, g)
		}
		return out, nil
	}

	var err error
	if a.excludeDirs, err = compile(cfg.Exclude.Dirs); err != nil {
		return nil, err
	}
	if a.excludeFiles, err = compile(cfg.Exclude.Files); err != nil {
		return nil, err
	}
	if a.stubPatterns, err = compile(cfg.Stubs.Patterns); err != nil {
		return nil, err
	}

	if cfg.History.Path != "" {
		store, err := history.Open(cfg.History.Path)
		if err != nil {
			err = cerrors.Wrap(err, cerrors.CodeStorage, "open history")
			return nil, cerrors.AddContext(err, cerrors.CtxPath, cfg.History.Path)
		}
		a.history = store
	}

	a.throttle = util.NewReanalysisThrottle(cfg.Watch.MaxRunsPerMinute, 1)
	return a, nil
}

func (a *App) Close() error {
	if a.watch != nil {
		_ = a.watch.Close()
	}
	return a.history.Close()
}

// ScanSources collects the source files under the configured check paths.
func (a *App) ScanSources() ([]string, error) {
	seen := make(map[string]bool)
	var files []string

	for _, root := range a.Config.CheckPaths {
		err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if info.IsDir() {
				base := filepath.Base(path)
				for _, g := range a.excludeDirs {
					if g.Match(base) {
						return filepath.SkipDir
					}
				}
				return nil
			}
			if !strings.HasSuffix(path, ".py") && !strings.HasSuffix(path, ".pyi") {
				return nil
			}
			base := filepath.Base(path)
			for _, g := range a.excludeFiles {
				if g.Match(base) {
					return nil
				}
			}
			norm := util.NormalizePatternPath(path)
			if norm == "" {
				norm = path
			}
			if !seen[norm] {
				seen[norm] = true
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			err = cerrors.AddContext(err, cerrors.CtxOperation, "scan_sources")
			return nil, cerrors.AddContext(err, cerrors.CtxPath, root)
		}
	}

	sort.Strings(files)
	return files, nil
}

// Run performs one full analysis: bind every file, then drive each module's
// checker to its fixpoint. Modules are checked sequentially in name order;
// the import lookup reads other modules' tables, so per-module parallelism
// would not have disjoint state.
func (a *App) Run(ctx context.Context) (*RunSummary, error) {
	start := time.Now()
	ctx, span := observability.Tracer.Start(ctx, "app.Run")
	defer span.End()

	files, err := a.ScanSources()
	if err != nil {
		return nil, err
	}

	registry := binder.NewRegistry()
	var modules []*binder.Module
	for i, path := range files {
		source, err := os.ReadFile(path)
		if err != nil {
			slog.Warn("skipping unreadable file", "path", path, "error", err)
			continue
		}
		mod, err := binder.Bind(path, a.moduleNameFor(path), source, binder.FirstUserModuleIndex+i)
		if err != nil {
			slog.Warn("skipping unparsable file", "path", path, "error", err)
			continue
		}
		registry.Add(mod)
		modules = append(modules, mod)
	}

	summary := &RunSummary{RunID: uuid.NewString()}
	for _, mod := range modules {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		result, err := a.checkModule(ctx, mod, registry)
		if err != nil {
			return nil, cerrors.AddContext(err, cerrors.CtxModule, mod.Name)
		}
		summary.Modules = append(summary.Modules, result)
		summary.TotalPasses += result.Passes
		summary.Diagnostics = append(summary.Diagnostics, result.Collector.Diagnostics...)
		summary.UnusedCode = append(summary.UnusedCode, result.Collector.UnusedCode...)
	}
	summary.Duration = time.Since(start)

	observability.ModulesAnalyzed.Set(float64(len(summary.Modules)))
	for _, d := range summary.Diagnostics {
		observability.DiagnosticsTotal.WithLabelValues(string(d.Severity)).Inc()
	}
	span.SetAttributes(
		attribute.Int("modules", len(summary.Modules)),
		attribute.Int("diagnostics", len(summary.Diagnostics)),
	)

	if a.history != nil {
		if err := a.recordSnapshot(summary); err != nil {
			slog.Warn("failed to record history snapshot", "error", err)
		}
	}

	slog.Info("analysis run complete",
		"run_id", summary.RunID,
		"modules", len(summary.Modules),
		"passes", summary.TotalPasses,
		"diagnostics", len(summary.Diagnostics),
		"duration", summary.Duration,
	)
	return summary, nil
}

func (a *App) checkModule(ctx context.Context, mod *binder.Module, registry *binder.Registry) (*ModuleResult, error) {
	collector := &diagnostics.Collector{}
	file := &checker.FileInfo{
		FilePath:     mod.Path,
		IsStubFile:   a.isStubFile(mod.Path),
		Settings:     a.Config.Rules,
		Sink:         collector,
		ImportLookup: registry.Lookup,
	}
	accessed := types.NewAccessedSymbolSet()
	w := checker.NewWalker(mod.Node, mod.Scopes, file, accessed, 0)
	result, err := checker.NewProgram(w).Run(ctx)
	if err != nil {
		return nil, err
	}
	return &ModuleResult{
		Module:    mod,
		Collector: collector,
		Passes:    result.Passes,
		Converged: result.Converged,
	}, nil
}

func (a *App) isStubFile(path string) bool {
	if strings.HasSuffix(path, ".pyi") {
		return true
	}
	base := filepath.Base(path)
	for _, g := range a.stubPatterns {
		if g.Match(base) {
			return true
		}
	}
	return false
}

func (a *App) recordSnapshot(summary *RunSummary) error {
	snap := history.Snapshot{
		RunID:       summary.RunID,
		Timestamp:   time.Now(),
		ModuleCount: len(summary.Modules),
		PassCount:   summary.TotalPasses,
		UnusedCount: len(summary.UnusedCode),
	}
	for _, d := range summary.Diagnostics {
		switch d.Severity {
		case diagnostics.SeverityError:
			snap.ErrorCount++
		case diagnostics.SeverityWarning:
			snap.WarningCount++
		}
	}
	for _, m := range summary.Modules {
		if m.Converged {
			snap.ConvergedCount++
		}
	}
	return a.history.Record(snap)
}

// StartWatcher re-runs analysis on source changes, throttled by the
// configured rate limit.
func (a *App) StartWatcher(ctx context.Context, onRun func(*RunSummary)) error {
	w, err := watcher.NewWatcher(a.Config.Watch.Debounce, a.Config.Exclude.Dirs, a.Config.Exclude.Files,
		func(paths []string) {
			if !a.throttle.AllowRun() {
				slog.Debug("watch re-analysis throttled", "changed", len(paths))
				return
			}
			slog.Info("re-analyzing after change", "changed", len(paths))
			summary, err := a.Run(ctx)
			if err != nil {
				slog.Error("watch re-analysis failed", "error", err)
				return
			}
			if onRun != nil {
				onRun(summary)
			}
		})
	if err != nil {
		return err
	}
	a.watch = w
	return w.Watch(a.Config.CheckPaths)
}

// moduleNameFor derives the dotted module name relative to the check path
// that contains the file.
func (a *App) moduleNameFor(path string) string {
	for _, root := range a.Config.CheckPaths {
		if !util.HasPathPrefix(path, root) {
			continue
		}
		if rel, err := filepath.Rel(root, path); err == nil {
			return moduleNameForPath(rel)
		}
	}
	return moduleNameForPath(path)
}

func moduleNameForPath(path string) string {
	trimmed := strings.TrimSuffix(strings.TrimSuffix(path, ".pyi"), ".py")
	trimmed = util.NormalizePatternPath(trimmed)
	trimmed = strings.TrimPrefix(trimmed, "./")
	return strings.ReplaceAll(trimmed, "/", ".")
}
