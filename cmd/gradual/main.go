// # cmd/gradual/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gradual/internal/app"
	"gradual/internal/config"
	"gradual/internal/diagnostics"
	"gradual/internal/shared/observability"
	"gradual/internal/shared/util"
)

var (
	configPath = flag.String("config", "./gradual.toml", "Path to config file")
	once       = flag.Bool("once", true, "Run single analysis and exit")
	watchMode  = flag.Bool("watch", false, "Re-run analysis when sources change")
	ui         = flag.Bool("ui", false, "Enable terminal UI mode")
	verbose    = flag.Bool("verbose", false, "Enable verbose logging")
	version    = flag.Bool("version", false, "Print version and exit")
)

const VERSION = "0.3.0"

func main() {
	flag.Parse()

	if *version {
		fmt.Printf("gradual v%s\n", VERSION)
		os.Exit(0)
	}

	logLevel := slog.LevelInfo
	if *verbose {
		logLevel = slog.LevelDebug
	}
	logOutput := os.Stderr
	logger := slog.New(slog.NewTextHandler(logOutput, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		if os.IsNotExist(err) && *configPath == "./gradual.toml" {
			cfg = config.Default()
			cfg.CheckPaths = []string{"."}
		} else {
			slog.Error("failed to load config", "error", err)
			os.Exit(1)
		}
	}
	if flag.NArg() > 0 {
		cfg.CheckPaths = flag.Args()
	}

	ctx := context.Background()

	shutdownTracing, err := observability.InitTracing(ctx, cfg.Telemetry.OTLPEndpoint, "gradual")
	if err != nil {
		slog.Warn("tracing disabled", "error", err)
	} else {
		defer shutdownTracing(ctx)
	}

	application, err := app.New(cfg)
	if err != nil {
		slog.Error("failed to initialize", "error", err)
		os.Exit(1)
	}
	defer application.Close()

	if cfg.Telemetry.MetricsAddr != "" {
		server := app.NewObservabilityServer(cfg.Telemetry.MetricsAddr, application)
		if err := server.Start(ctx); err != nil {
			slog.Error("failed to start observability server", "error", err)
		}
		defer server.Stop(ctx)
	}

	summary, err := application.Run(ctx)
	if err != nil {
		slog.Error("analysis failed", "error", err)
		os.Exit(1)
	}

	if cfg.Output.SARIF != "" {
		writeSARIF(cfg.Output.SARIF, summary)
	}

	if !*ui {
		diagnostics.RenderConsole(os.Stdout, summary.Diagnostics)
		diagnostics.RenderSummary(os.Stdout, summary.Diagnostics)
	}

	if *watchMode {
		if err := application.StartWatcher(ctx, func(s *app.RunSummary) {
			if cfg.Output.SARIF != "" {
				writeSARIF(cfg.Output.SARIF, s)
			}
			if !*ui {
				diagnostics.RenderConsole(os.Stdout, s.Diagnostics)
				diagnostics.RenderSummary(os.Stdout, s.Diagnostics)
			}
		}); err != nil {
			slog.Error("failed to start watcher", "error", err)
			os.Exit(1)
		}
	}

	if *ui {
		if err := runUI(summary); err != nil {
			slog.Error("failed to run UI", "error", err)
			os.Exit(1)
		}
		return
	}

	if *watchMode {
		// Block forever
		select {}
	}

	if *once {
		if exitCode(summary) != 0 {
			os.Exit(exitCode(summary))
		}
	}
}

func exitCode(summary *app.RunSummary) int {
	for _, d := range summary.Diagnostics {
		if d.Severity == diagnostics.SeverityError {
			return 1
		}
	}
	return 0
}

func writeSARIF(path string, summary *app.RunSummary) {
	root, _ := os.Getwd()
	data, err := diagnostics.GenerateSARIF(root, VERSION, summary.Diagnostics)
	if err != nil {
		slog.Error("failed to generate SARIF", "error", err)
		return
	}
	if err := util.WriteFileWithDirs(filepath.Clean(path), data, 0o644); err != nil {
		slog.Error("failed to write SARIF", "path", path, "error", err)
	}
}
