// Package audit runs the endpoint docstring audit over a directory tree.
package audit

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/phobologic/rpcaudit/internal/detect"
	"github.com/phobologic/rpcaudit/internal/discover"
	"github.com/phobologic/rpcaudit/internal/lang"
	"github.com/phobologic/rpcaudit/internal/model"
	"github.com/phobologic/rpcaudit/internal/parse"
	"github.com/phobologic/rpcaudit/internal/validate"
)

// Options configures an audit run.
type Options struct {
	Root             string
	Marker           string
	Extensions       []string
	Exclude          []string
	IgnoreParams     []string
	RespectGitignore bool
	Prune            bool
	Workers          int // <= 0 means GOMAXPROCS
	Logger           *zap.Logger
}

// Auditor audits single files. It is safe for concurrent use.
type Auditor struct {
	lang     *lang.Language
	detector *detect.Detector
	log      *zap.Logger
}

// NewAuditor builds an Auditor for Python sources.
func NewAuditor(marker string, ignoreParams []string, log *zap.Logger) (*Auditor, error) {
	if log == nil {
		log = zap.NewNop()
	}
	py := lang.Languages[lang.Python]
	d, err := detect.New(py, marker, ignoreParams)
	if err != nil {
		return nil, err
	}
	return &Auditor{lang: py, detector: d, log: log}, nil
}

// File audits one source file. Failures are returned inside the result,
// never as an error.
func (a *Auditor) File(ctx context.Context, f model.SourceFile) model.AuditResult {
	p := a.lang.NewParser()
	defer p.Close()

	tree, err := parse.Source(ctx, p, f.Source)
	if err != nil {
		return model.NewErrorResult(f.Path, err)
	}
	defer tree.Close()

	endpoints := a.detector.Endpoints(tree, f.Source)
	var issues []model.Issue
	for _, ep := range endpoints {
		issues = append(issues, validate.Endpoint(ep)...)
	}
	a.log.Debug("audited file",
		zap.String("path", f.Path),
		zap.Int("endpoints", len(endpoints)),
		zap.Int("issues", len(issues)))
	return model.NewResult(f.Path, endpoints, issues)
}

// Run discovers files under opts.Root and audits them in parallel. The only
// error conditions are a missing or unreadable root, a bad marker, and
// context cancellation; in each case no report is returned.
func Run(ctx context.Context, opts Options) (*model.Report, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	auditor, err := NewAuditor(opts.Marker, opts.IgnoreParams, log)
	if err != nil {
		return nil, err
	}

	files, err := discover.Files(opts.Root, discover.Options{
		Extensions:       opts.Extensions,
		Exclude:          opts.Exclude,
		RespectGitignore: opts.RespectGitignore,
		Prune:            opts.Prune,
	})
	if err != nil {
		return nil, err
	}
	log.Debug("discovered files", zap.String("root", opts.Root), zap.Int("count", len(files)))
	for _, ext := range opts.Extensions {
		if lang.ForExtension(ext) == "" {
			log.Warn("no grammar registered for extension, parsing as python", zap.String("ext", ext))
		}
	}

	results, err := auditFiles(ctx, auditor, opts.Root, files, opts.Workers)
	if err != nil {
		return nil, err
	}
	return model.NewReport(opts.Root, opts.Marker, results), nil
}

func auditFiles(ctx context.Context, a *Auditor, root string, files []discover.FileEntry, workers int) ([]model.AuditResult, error) {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	results := make([]model.AuditResult, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	i := 0
	for rel := range discover.All(files) {
		if gctx.Err() != nil {
			break
		}
		idx := i
		i++
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[idx] = a.readAndAudit(gctx, root, rel)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

func (a *Auditor) readAndAudit(ctx context.Context, root, rel string) model.AuditResult {
	source, err := os.ReadFile(filepath.Join(root, rel))
	if err != nil {
		a.log.Warn("failed to read file", zap.String("path", rel), zap.Error(err))
		return model.NewErrorResult(rel, fmt.Errorf("reading: %w", err))
	}
	r := a.File(ctx, model.SourceFile{Path: rel, Source: source})
	if r.Failed() {
		a.log.Warn("failed to parse file", zap.String("path", rel), zap.Error(r.Err))
	}
	return r
}
