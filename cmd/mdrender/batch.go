package main

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/alnah/go-mdrender"
)

// Exporter is the part of mdrender.Service the batch uses.
type Exporter interface {
	Export(ctx context.Context, text string, opts mdrender.ExportOptions) (*mdrender.ExportResult, error)
	ExportHTML(ctx context.Context, text string, opts mdrender.ExportOptions) (*mdrender.ExportResult, error)
}

// Compile-time interface implementation check.
var _ Exporter = (*mdrender.Service)(nil)

// Pool abstracts service pool operations for testability.
type Pool interface {
	Acquire() (Exporter, error)
	Release(Exporter)
	Size() int
}

// servicePool adapts mdrender.ServicePool to Pool.
type servicePool struct{ *mdrender.ServicePool }

func (p servicePool) Acquire() (Exporter, error) {
	svc, err := p.ServicePool.Acquire()
	if err != nil {
		return nil, err
	}
	return svc, nil
}

// Release panics on a foreign Exporter; only pool services come back here.
func (p servicePool) Release(e Exporter) {
	svc, ok := e.(*mdrender.Service)
	if !ok {
		panic(fmt.Sprintf("servicePool.Release: unexpected type %T", e))
	}
	p.ServicePool.Release(svc)
}

// ExportJobResult holds the outcome of a single export.
type ExportJobResult struct {
	InputPath  string
	OutputPath string
	Pages      int
	Warnings   []string
	Err        error
	Duration   time.Duration
}

// exportParams holds the settings shared by every file of a batch.
type exportParams struct {
	format string
	opts   mdrender.ExportOptions
}

// exportBatch processes files concurrently using the service pool.
func exportBatch(ctx context.Context, pool Pool, files []FileToExport, params *exportParams) []ExportJobResult {
	if len(files) == 0 {
		return nil
	}

	concurrency := min(pool.Size(), len(files))
	results := make([]ExportJobResult, len(files))
	jobs := make(chan int, len(files))
	var wg sync.WaitGroup

	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			svc, err := pool.Acquire()
			if err != nil {
				for idx := range jobs {
					results[idx] = ExportJobResult{
						InputPath: files[idx].InputPath,
						Err:       fmt.Errorf("starting export service: %w", err),
					}
				}
				return
			}
			defer pool.Release(svc)

			for idx := range jobs {
				if ctx.Err() != nil {
					results[idx] = ExportJobResult{InputPath: files[idx].InputPath, Err: ctx.Err()}
					continue
				}
				results[idx] = exportFile(ctx, svc, files[idx], params)
			}
		}()
	}

	for i := range files {
		jobs <- i
	}
	close(jobs)

	wg.Wait()
	return results
}

// exportFile exports a single file and returns the result.
func exportFile(ctx context.Context, svc Exporter, f FileToExport, params *exportParams) ExportJobResult {
	start := time.Now()
	result := ExportJobResult{InputPath: f.InputPath}
	defer func() { result.Duration = time.Since(start) }()

	text, err := readMarkdown(f.InputPath, nil)
	if err != nil {
		result.Err = err
		return result
	}

	opts := params.opts
	opts.Filename = filepath.Base(f.InputPath)
	opts.BaseDir = filepath.Dir(f.InputPath)
	ctx = withOutputDir(ctx, f.OutputDir)

	export := svc.Export
	if params.format == formatHTML {
		export = svc.ExportHTML
	}
	res, err := export(ctx, text, opts)
	if res != nil {
		result.Warnings = res.Warnings
		result.OutputPath = res.Location
		if res.Artifact != nil {
			result.Pages = res.Artifact.PageCount
		}
	}
	result.Err = err
	return result
}

// ResultSummary holds the count of succeeded and failed exports.
type ResultSummary struct {
	Succeeded int
	Failed    int
}

// countResults tallies succeeded and failed exports.
func countResults(results []ExportJobResult) ResultSummary {
	var summary ResultSummary
	for _, r := range results {
		if r.Err != nil {
			summary.Failed++
		} else {
			summary.Succeeded++
		}
	}
	return summary
}

// printResults outputs export results and returns the failure count.
func printResults(results []ExportJobResult, quiet, verbose bool, env *Environment) int {
	summary := countResults(results)

	for _, r := range results {
		if r.Err != nil {
			fmt.Fprintf(env.Stderr, "FAILED %s: %v%s\n", r.InputPath, r.Err, hintFor(r.Err))
			continue
		}
		if quiet {
			continue
		}
		for _, w := range r.Warnings {
			fmt.Fprintf(env.Stderr, "warning: %s: %s\n", r.InputPath, w)
		}
		if verbose {
			fmt.Fprintf(env.Stdout, "%s -> %s (%d pages, %v)\n", r.InputPath, r.OutputPath, r.Pages, r.Duration.Round(time.Millisecond))
		} else {
			fmt.Fprintf(env.Stdout, "Created %s\n", r.OutputPath)
		}
	}

	if !quiet && len(results) > 1 {
		fmt.Fprintf(env.Stdout, "\n%d succeeded, %d failed\n", summary.Succeeded, summary.Failed)
	}
	return summary.Failed
}
