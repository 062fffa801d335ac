// Package batch converts many FinalDraft files to Fountain in parallel.
package batch

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/FocuswithJustin/fdx2fountain/core/cache"
	"github.com/FocuswithJustin/fdx2fountain/core/cas"
	"github.com/FocuswithJustin/fdx2fountain/core/errors"
	"github.com/FocuswithJustin/fdx2fountain/core/fdx"
	"github.com/FocuswithJustin/fdx2fountain/core/fountain"
	"github.com/FocuswithJustin/fdx2fountain/internal/history"
	"github.com/FocuswithJustin/fdx2fountain/internal/input"
	"github.com/FocuswithJustin/fdx2fountain/internal/logging"
	"github.com/FocuswithJustin/fdx2fountain/internal/validation"
)

// Job is one file to convert.
type Job struct {
	Source string // FDX, .fdx.gz or .fdx.xz path
	Output string // .fountain path to write
}

// Result is the outcome of one Job.
type Result struct {
	Job
	Status      history.Status
	Digest      string // BLAKE3 of the decompressed source
	Paragraphs  int
	OutputBytes int
	Duration    time.Duration
	Err         error
}

// Summary totals a run.
type Summary struct {
	RunID     string        `json:"run_id"`
	Total     int           `json:"total"`
	Converted int           `json:"converted"`
	Cached    int           `json:"cached"`
	Failed    int           `json:"failed"`
	Duration  time.Duration `json:"duration"`
}

// Options configures a Runner. Zero values are usable: no history, a
// private cache, DefaultWorkers workers.
type Options struct {
	Workers     int
	Cache       *cache.OutputCache
	History     *history.Store
	MaxFileSize int64 // 0 means validation.MaxFileSize
}

// Runner converts batches of files.
type Runner struct {
	opts Options
}

// NewRunner returns a Runner for opts.
func NewRunner(opts Options) *Runner {
	if opts.Cache == nil {
		opts.Cache = cache.NewDefaultOutputCache()
	}
	if opts.MaxFileSize <= 0 {
		opts.MaxFileSize = validation.MaxFileSize
	}
	return &Runner{opts: opts}
}

// CacheStats returns statistics of the runner's output cache.
func (r *Runner) CacheStats() cache.Stats {
	return r.opts.Cache.Stats()
}

// Run converts every job and returns results in job order. Per-file
// failures are reported in the results; the returned error is non-nil only
// when ctx ends before the run completes. A run ID is generated unless ctx
// already carries one.
func (r *Runner) Run(ctx context.Context, jobs []Job) ([]Result, Summary, error) {
	start := time.Now()
	runID := logging.GetRunID(ctx)
	if runID == "" {
		runID = logging.NewRunID()
		ctx = logging.WithRunID(ctx, runID)
	}

	type indexed struct {
		i   int
		job Job
	}
	type done struct {
		i   int
		res Result
	}

	results := make([]Result, len(jobs))
	if len(jobs) > 0 {
		pool := NewWorkerPool[indexed, done](r.opts.Workers, len(jobs))
		pool.Start(func(j indexed) done {
			return done{i: j.i, res: r.convert(ctx, runID, j.job)}
		})
		for i, j := range jobs {
			pool.Submit(indexed{i: i, job: j})
		}
		pool.Close()
		for d := range pool.Results() {
			results[d.i] = d.res
		}
	}

	sum := Summary{RunID: runID, Total: len(jobs)}
	for _, res := range results {
		switch res.Status {
		case history.StatusConverted:
			sum.Converted++
		case history.StatusCached:
			sum.Cached++
		default:
			sum.Failed++
		}
	}
	sum.Duration = time.Since(start)
	logging.BatchSummary(ctx, sum.Total, sum.Converted, sum.Failed, sum.Cached, sum.Duration)

	return results, sum, ctx.Err()
}

// convert runs one job end to end and records it.
func (r *Runner) convert(ctx context.Context, runID string, job Job) Result {
	start := time.Now()
	res := Result{Job: job}

	if err := ctx.Err(); err != nil {
		res.Status = history.StatusFailed
		res.Err = err
		return res
	}

	if err := r.process(ctx, job, &res); err != nil {
		res.Status = history.StatusFailed
		res.Err = err
		logging.ConversionFailed(ctx, job.Source, err)
	} else {
		logging.ConversionFinished(ctx, job.Source, res.Paragraphs, res.OutputBytes, time.Since(start),
			"output", job.Output, "cached", res.Status == history.StatusCached)
	}
	res.Duration = time.Since(start)

	r.record(ctx, runID, res)
	return res
}

func (r *Runner) process(ctx context.Context, job Job, res *Result) error {
	src, err := input.ReadLimit(job.Source, r.opts.MaxFileSize)
	if err != nil {
		return err
	}
	logging.ConversionStarted(ctx, job.Source, src.Size, "type", string(src.Type))

	res.Digest = cas.Blake3Hash(src.Data)
	conv, hit := r.opts.Cache.Get(res.Digest)
	if hit {
		res.Status = history.StatusCached
	} else {
		doc, err := fdx.Load(src.Data)
		if err != nil {
			return err
		}
		out, err := fountain.ConvertDocument(doc)
		if err != nil {
			return err
		}
		conv = cache.Conversion{Output: out, Paragraphs: doc.Summarize().Paragraphs}
		r.opts.Cache.Put(res.Digest, conv)
		res.Status = history.StatusConverted
	}
	res.Paragraphs = conv.Paragraphs
	res.OutputBytes = len(conv.Output)

	if err := os.MkdirAll(filepath.Dir(job.Output), 0755); err != nil {
		return errors.NewIO("create directory for", job.Output, err)
	}
	if err := os.WriteFile(job.Output, []byte(conv.Output), 0644); err != nil {
		return errors.NewIO("write", job.Output, err)
	}
	return nil
}

func (r *Runner) record(ctx context.Context, runID string, res Result) {
	if r.opts.History == nil {
		return
	}
	e := history.Entry{
		RunID:       runID,
		Source:      res.Source,
		Output:      res.Output,
		Digest:      res.Digest,
		Paragraphs:  res.Paragraphs,
		OutputBytes: res.OutputBytes,
		Status:      res.Status,
	}
	if res.Err != nil {
		e.Error = res.Err.Error()
	}
	// Record even when ctx was canceled mid-conversion.
	if _, err := r.opts.History.Record(context.WithoutCancel(ctx), e); err != nil {
		logging.WarnContext(ctx, "failed to record conversion", "source", res.Source, "error", err)
	}
}

// Discover walks dir for FDX sources and pairs each with an output path
// under outDir that mirrors its location relative to dir. Jobs are sorted
// by source path. Two sources that map to the same output, such as
// Pilot.fdx and Pilot.fdx.xz, are rejected.
func Discover(dir, outDir string) ([]Job, error) {
	if err := validation.ValidatePath(dir); err != nil {
		return nil, errors.NewValidation("dir", err.Error())
	}
	if err := validation.ValidatePath(outDir); err != nil {
		return nil, errors.NewValidation("out-dir", err.Error())
	}

	var jobs []Job
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !validation.IsSourceName(d.Name()) {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		out, err := validation.SanitizePath(outDir, filepath.Join(filepath.Dir(rel), validation.OutputName(rel)))
		if err != nil {
			return err
		}
		jobs = append(jobs, Job{Source: path, Output: out})
		return nil
	})
	if err != nil {
		return nil, errors.NewIO("scan", dir, err)
	}

	sort.Slice(jobs, func(i, j int) bool { return jobs[i].Source < jobs[j].Source })

	seen := make(map[string]string, len(jobs))
	for _, j := range jobs {
		if prev, ok := seen[j.Output]; ok {
			return nil, errors.NewValidation("dir", fmt.Sprintf("%s and %s both convert to %s", prev, j.Source, j.Output))
		}
		seen[j.Output] = j.Source
	}
	return jobs, nil
}
