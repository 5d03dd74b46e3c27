// Package orchestrator fans decoding out across a worker pool: one
// goroutine per utterance, sharing the acoustic model, precomputed
// mixtures, and log-transition matrix read-only, and serialising MLF
// output through a single writer.
package orchestrator

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/zsrkmyn/phondecode/internal/observe"
	"github.com/zsrkmyn/phondecode/pkg/decode"
	"github.com/zsrkmyn/phondecode/pkg/feature"
	"github.com/zsrkmyn/phondecode/pkg/hmm"
	"github.com/zsrkmyn/phondecode/pkg/likelihood"
	"github.com/zsrkmyn/phondecode/pkg/mlf"
)

// Model bundles the read-only state every worker shares.
type Model struct {
	Dim            int
	Precomputed    []hmm.PrecomputedState
	LogTransitions [][]float64
	StateToPhone   []string
}

// Options configures a decoding run.
type Options struct {
	Workers int
	Decode  decode.Config
	Verbose bool
	Metrics *observe.Metrics
}

// Failure records one utterance's fatal error; the run continues past it.
type Failure struct {
	Path string
	Err  error
}

// Summary aggregates the outcome of a full run.
type Summary struct {
	Succeeded int
	Failures  []Failure
}

// Run decodes every feature file named in paths, in parallel up to
// opts.Workers, and writes MLF records for each to out. It never aborts
// the whole run on a single utterance's failure; failures are collected
// in the returned Summary.
func Run(ctx context.Context, paths []string, model Model, opts Options, out *mlf.Writer) (*Summary, error) {
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	var (
		mu      sync.Mutex
		summary Summary
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for _, path := range paths {
		path := path
		g.Go(func() error {
			if opts.Metrics != nil {
				opts.Metrics.ActiveWorkers.Add(gctx, 1)
				defer opts.Metrics.ActiveWorkers.Add(gctx, -1)
			}

			states, logScore, err := decodeOne(gctx, path, model, opts)
			mu.Lock()
			defer mu.Unlock()

			if err != nil {
				slog.Warn("utterance failed, skipping", slog.String("path", path), slog.Any("err", err))
				summary.Failures = append(summary.Failures, Failure{Path: path, Err: err})
				if opts.Metrics != nil {
					opts.Metrics.RecordUtterance(gctx, "failed")
				}
				return nil
			}

			name := utteranceName(path)
			out.Verbose = opts.Verbose
			if werr := out.WriteRecord(name, states, model.StateToPhone, logScore); werr != nil {
				summary.Failures = append(summary.Failures, Failure{Path: path, Err: werr})
				if opts.Metrics != nil {
					opts.Metrics.RecordUtterance(gctx, "failed")
				}
				return nil
			}
			summary.Succeeded++
			if opts.Metrics != nil {
				opts.Metrics.RecordUtterance(gctx, "ok")
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return &summary, fmt.Errorf("orchestrator: %w", err)
	}
	return &summary, nil
}

func decodeOne(ctx context.Context, path string, model Model, opts Options) ([]int, []float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open feature file: %w", err)
	}
	defer f.Close()

	frames, err := feature.Read(bufio.NewReader(f))
	if err != nil {
		return nil, nil, fmt.Errorf("read frames: %w", err)
	}
	if d := feature.Dim(frames); d != model.Dim {
		return nil, nil, fmt.Errorf("feature dimension %d does not match model dimension %d", d, model.Dim)
	}

	likelihoodStart := time.Now()
	ll, err := likelihood.Compute(ctx, frames, model.Precomputed, opts.Workers)
	if err != nil {
		return nil, nil, fmt.Errorf("compute likelihoods: %w", err)
	}
	if opts.Metrics != nil {
		opts.Metrics.LikelihoodDuration.Record(ctx, time.Since(likelihoodStart).Seconds())
		opts.Metrics.FramesDecoded.Add(ctx, int64(len(frames)))
	}

	decodeStart := time.Now()
	res, err := decode.Decode(ll, model.LogTransitions, model.StateToPhone, opts.Decode)
	if err != nil {
		return nil, nil, fmt.Errorf("decode: %w", err)
	}
	if opts.Metrics != nil {
		opts.Metrics.DecodeDuration.Record(ctx, time.Since(decodeStart).Seconds())
	}

	return res.States, res.LogScore, nil
}

// utteranceName derives an MLF record name from a feature file path: the
// base name with its extension stripped.
func utteranceName(path string) string {
	base := filepath.Base(path)
	ext := filepath.Ext(base)
	return base[:len(base)-len(ext)]
}
