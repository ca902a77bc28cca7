// rpcaudit checks that RPC endpoint docstrings match their function signatures.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/phobologic/rpcaudit/internal/audit"
	"github.com/phobologic/rpcaudit/internal/config"
	"github.com/phobologic/rpcaudit/internal/model"
	"github.com/phobologic/rpcaudit/internal/report"
	"github.com/phobologic/rpcaudit/internal/toon"
	"github.com/phobologic/rpcaudit/internal/watch"
)

var version = "dev"

// errIssuesFound reports a completed audit with findings. It maps to exit
// status 1; every other error maps to 2.
var errIssuesFound = errors.New("audit found issues")

const (
	exitIssues = 1
	exitError  = 2
)

func main() {
	err := run(os.Args[1:], os.Stdout, os.Stderr)
	switch {
	case err == nil:
	case errors.Is(err, errIssuesFound):
		os.Exit(exitIssues)
	default:
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(exitError)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := newRootCmd(stdout, stderr)
	cmd.SetArgs(args)
	return cmd.ExecuteContext(ctx)
}

type rootFlags struct {
	configPath       string
	marker           string
	format           string
	extensions       []string
	exclude          []string
	workers          int
	respectGitignore bool
	prune            bool
	showClean        bool
	noFail           bool
	watch            bool
	verbose          bool
	showVersion      bool
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	var f rootFlags

	cmd := &cobra.Command{
		Use:   "rpcaudit [root]",
		Short: "Check RPC endpoint docstrings against their signatures",
		Long: `rpcaudit scans Python files under root (default "mathesar/rpc") for
functions decorated with the RPC marker and reports parameters missing from
the docstring's Args: section, documented parameters that do not exist, and
return values without a Returns: section.

Files whose name starts with "_" are skipped.

Exit status is 0 when everything is documented, 1 when issues or unparseable
files were found, and 2 on fatal errors.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if f.showVersion {
				_, _ = fmt.Fprintf(stdout, "rpcaudit %s\n", version)
				return nil
			}

			log := newLogger(stderr, f.verbose)
			defer func() { _ = log.Sync() }()

			cfg, err := resolveConfig(cmd, &f, args)
			if err != nil {
				return err
			}
			log.Debug("configuration",
				zap.String("root", cfg.Root),
				zap.String("marker", cfg.Marker),
				zap.Strings("extensions", cfg.Extensions),
				zap.String("format", cfg.Format))

			if f.watch {
				return watchAndAudit(cmd.Context(), cfg, stdout, log)
			}
			return auditOnce(cmd.Context(), cfg, stdout, log)
		},
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	fl := cmd.Flags()
	fl.StringVarP(&f.configPath, "config", "c", "", "config file (default "+config.DefaultFile+" if present)")
	fl.StringVarP(&f.marker, "marker", "m", config.DefaultMarker, "decorator name that marks RPC endpoints")
	fl.StringVarP(&f.format, "format", "f", config.DefaultFormat, "output format: text, json or toon")
	fl.StringSliceVar(&f.extensions, "ext", []string{".py"}, "source file extensions to audit")
	fl.StringSliceVar(&f.exclude, "exclude", nil, "gitignore-style patterns to skip")
	fl.IntVarP(&f.workers, "workers", "j", 0, "parallel workers (0 means one per CPU)")
	fl.BoolVar(&f.respectGitignore, "respect-gitignore", false, "skip files ignored by git")
	fl.BoolVar(&f.prune, "prune", false, "skip VCS, virtualenv and cache dirs, hidden entries and symlinks")
	fl.BoolVar(&f.showClean, "show-clean", false, "also list files without issues")
	fl.BoolVar(&f.noFail, "no-fail", false, "exit 0 even when issues are found")
	fl.BoolVarP(&f.watch, "watch", "w", false, "re-run the audit when files change")
	fl.BoolVarP(&f.verbose, "verbose", "v", false, "debug logging on stderr")
	fl.BoolVarP(&f.showVersion, "version", "V", false, "show version and exit")

	cmd.AddCommand(newInitCmd(stdout, stderr))
	return cmd
}

// resolveConfig layers explicitly set flags over the config file.
func resolveConfig(cmd *cobra.Command, f *rootFlags, args []string) (*config.Config, error) {
	path, optional := f.configPath, false
	if path == "" {
		path, optional = config.DefaultFile, true
	}
	cfg, err := config.Load(path, optional)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	fl := cmd.Flags()
	if len(args) > 0 {
		cfg.Root = args[0]
	}
	if fl.Changed("marker") {
		cfg.Marker = f.marker
	}
	if fl.Changed("format") {
		cfg.Format = f.format
	}
	if fl.Changed("ext") {
		cfg.Extensions = f.extensions
	}
	if fl.Changed("exclude") {
		cfg.Exclude = append(cfg.Exclude, f.exclude...)
	}
	if fl.Changed("workers") {
		cfg.Workers = f.workers
	}
	if fl.Changed("respect-gitignore") {
		cfg.RespectGitignore = f.respectGitignore
	}
	if fl.Changed("prune") {
		cfg.Prune = f.prune
	}
	if fl.Changed("show-clean") {
		cfg.ShowClean = f.showClean
	}
	if fl.Changed("no-fail") {
		cfg.FailOnIssues = !f.noFail
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger(w io.Writer, verbose bool) *zap.Logger {
	level := zapcore.WarnLevel
	if verbose {
		level = zapcore.DebugLevel
	}
	encCfg := zap.NewDevelopmentEncoderConfig()
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.AddSync(w), level)
	return zap.New(core)
}

func auditOptions(cfg *config.Config, log *zap.Logger) audit.Options {
	return audit.Options{
		Root:             cfg.Root,
		Marker:           cfg.Marker,
		Extensions:       cfg.Extensions,
		Exclude:          cfg.Exclude,
		IgnoreParams:     cfg.IgnoreParams,
		RespectGitignore: cfg.RespectGitignore,
		Prune:            cfg.Prune,
		Workers:          cfg.Workers,
		Logger:           log,
	}
}

// auditOnce runs a full audit and renders it. Nothing is written when the
// run fails.
func auditOnce(ctx context.Context, cfg *config.Config, stdout io.Writer, log *zap.Logger) error {
	rep, err := audit.Run(ctx, auditOptions(cfg, log))
	if err != nil {
		return err
	}
	if err := render(stdout, rep, cfg); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	if cfg.FailOnIssues && !rep.Summary.Clean() {
		return errIssuesFound
	}
	return nil
}

func render(w io.Writer, rep *model.Report, cfg *config.Config) error {
	switch cfg.Format {
	case "json":
		return report.JSON(w, rep)
	case "toon":
		_, err := fmt.Fprintln(w, toon.Encode(rep))
		return err
	default:
		return report.Text(w, rep, report.TextOptions{ShowClean: cfg.ShowClean})
	}
}

// watchAndAudit audits once, then again after every batch of file changes,
// until ctx is cancelled.
func watchAndAudit(ctx context.Context, cfg *config.Config, stdout io.Writer, log *zap.Logger) error {
	if err := auditOnce(ctx, cfg, stdout, log); err != nil && !errors.Is(err, errIssuesFound) {
		return err
	}

	w, err := watch.New(cfg.Root, cfg.Extensions, watch.DefaultDebounce, log)
	if err != nil {
		return err
	}
	log.Info("watching for changes", zap.String("root", cfg.Root))

	return w.Run(ctx, func(ctx context.Context) {
		_, _ = fmt.Fprintln(stdout)
		err := auditOnce(ctx, cfg, stdout, log)
		if err != nil && !errors.Is(err, errIssuesFound) && ctx.Err() == nil {
			log.Error("audit failed", zap.Error(err))
		}
	})
}
