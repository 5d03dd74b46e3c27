// Command decoder runs a batch phoneme-level HMM/GMM Viterbi decode over a
// list of acoustic feature files, producing a Master Label File of
// time-aligned phone sequences.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/zsrkmyn/phondecode/internal/config"
	"github.com/zsrkmyn/phondecode/internal/observe"
	"github.com/zsrkmyn/phondecode/internal/orchestrator"
	"github.com/zsrkmyn/phondecode/pkg/decode"
	"github.com/zsrkmyn/phondecode/pkg/hmm"
	"github.com/zsrkmyn/phondecode/pkg/lm"
	"github.com/zsrkmyn/phondecode/pkg/mlf"
	"github.com/zsrkmyn/phondecode/pkg/transition"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

const usage = "usage: decoder OUTPUT.mlf INPUT.scp INPUT_HMM [--p float] [--s float] [--b file] [--w file] [--ub file]"

func run(args []string) int {
	fs := flag.NewFlagSet("decoder", flag.ContinueOnError)
	penalty := fs.Float64("p", 2.5, "insertion penalty")
	scale := fs.Float64("s", 1.0, "grammar scale factor")
	bigramFile := fs.String("b", "", "ARPA or matrix bigram LM file (dialect auto-detected)")
	wordnetFile := fs.String("w", "", "HTK wordnet bigram LM file")
	ubFile := fs.String("ub", "", "discounted uni/bigram LM file (JSON)")
	profilePath := fs.String("profile", "", "optional YAML configuration profile")
	verbose := fs.Bool("v", false, "write verbose (per-state posterior) MLF records")
	workers := fs.Int("workers", 0, "utterances decoded concurrently (0 = all CPUs)")
	fs.Usage = func() { fmt.Fprintln(os.Stderr, usage); fs.PrintDefaults() }
	if err := fs.Parse(args); err != nil {
		return 2
	}

	rest := fs.Args()
	if len(rest) != 3 {
		fmt.Fprintln(os.Stderr, usage)
		return 2
	}
	outputPath, scpPath, hmmPath := rest[0], rest[1], rest[2]

	given := 0
	for _, f := range []string{*bigramFile, *wordnetFile, *ubFile} {
		if f != "" {
			given++
		}
	}
	if given > 1 {
		fmt.Fprintln(os.Stderr, "decoder: --b, --w, --ub are mutually exclusive")
		return 2
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	cfg := &config.Config{Decoder: config.DefaultDecoderConfig()}
	if *profilePath != "" {
		loaded, err := config.Load(*profilePath)
		if err != nil {
			slog.Error("failed to load configuration profile", "err", err)
			return 1
		}
		cfg = loaded
	}
	level := slog.LevelInfo
	switch cfg.Log.Level {
	case config.LogLevelDebug:
		level = slog.LevelDebug
	case config.LogLevelWarn:
		level = slog.LevelWarn
	case config.LogLevelError:
		level = slog.LevelError
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	applyFlagOverrides(fs, cfg, *penalty, *scale, *verbose, *workers)
	// Bigram-mode Viterbi anchoring is derived from whether any LM file
	// was given, not a separate flag: it always accompanies --b/--w/--ub.
	cfg.Decoder.UseBigram = *bigramFile != "" || *wordnetFile != "" || *ubFile != ""

	shutdown, err := observe.InitProvider(observe.ProviderConfig{})
	if err != nil {
		slog.Warn("failed to initialise metrics provider; continuing without metrics", "err", err)
	} else {
		defer shutdown(context.Background()) //nolint:errcheck
	}
	metrics := observe.DefaultMetrics()

	model, err := loadModel(hmmPath)
	if err != nil {
		slog.Error("failed to parse acoustic model", "file", hmmPath, "err", err)
		return 1
	}
	precomputed := hmm.Precompute(model)

	source, err := resolveSource(*bigramFile, *wordnetFile, *ubFile)
	if err != nil {
		slog.Error("failed to load language model", "err", err)
		return 1
	}

	tp := transition.Params{
		StartPhones:      cfg.Decoder.StartPhones,
		EndPhones:        cfg.Decoder.EndPhones,
		ThresholdBigrams: cfg.Decoder.ThresholdBigrams,
		UnigramsOnly:     cfg.Decoder.UnigramsOnly,
		InsertionPenalty: cfg.Decoder.InsertionPenalty,
		ScaleFactor:      cfg.Decoder.ScaleFactor,
		Epsilon:          cfg.Decoder.Epsilon,
		EpsilonLog:       cfg.Decoder.EpsilonLog,
	}
	if a, ok := source.(*lm.ARPA); ok {
		a.Renormalize = cfg.Decoder.RenormalizeARPA
	}

	probMatrix, err := transition.Assemble(model, source, tp)
	if err != nil {
		slog.Error("failed to assemble transition matrix", "err", err)
		return 1
	}
	logTransitions := transition.LogTransform(probMatrix, model, tp)

	paths, err := readSCP(scpPath)
	if err != nil {
		slog.Error("failed to read SCP file", "file", scpPath, "err", err)
		return 1
	}

	outFile, err := os.Create(outputPath)
	if err != nil {
		slog.Error("failed to create output MLF", "file", outputPath, "err", err)
		return 1
	}
	defer outFile.Close()
	writer := mlf.NewWriter(outFile)

	orchModel := orchestrator.Model{
		Dim:            model.Dim,
		Precomputed:    precomputed,
		LogTransitions: logTransitions,
		StateToPhone:   model.StateToPhone,
	}
	opts := orchestrator.Options{
		Workers: cfg.Decoder.Workers,
		Verbose: cfg.Decoder.Verbose,
		Metrics: metrics,
		Decode: decode.Config{
			UseBigram: cfg.Decoder.UseBigram,
			Start:     cfg.Decoder.StartPhones,
			End:       cfg.Decoder.EndPhones,
		},
	}
	summary, err := orchestrator.Run(context.Background(), paths, orchModel, opts, writer)
	if err != nil {
		slog.Error("orchestrator run failed", "err", err)
		return 1
	}
	if err := writer.Flush(); err != nil {
		slog.Error("failed to flush MLF output", "err", err)
		return 1
	}

	slog.Info("decode run complete",
		"succeeded", summary.Succeeded,
		"failed", len(summary.Failures),
	)
	for _, f := range summary.Failures {
		slog.Warn("utterance failed", "path", f.Path, "err", f.Err)
	}

	if summary.Succeeded == 0 && len(summary.Failures) > 0 {
		return 1
	}
	return 0
}

// applyFlagOverrides copies CLI flag values into cfg, but only for flags
// the user actually passed — an unset flag must not clobber a value
// already supplied by --profile.
func applyFlagOverrides(fs *flag.FlagSet, cfg *config.Config, penalty, scale float64, verbose bool, workers int) {
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "p":
			cfg.Decoder.InsertionPenalty = penalty
		case "s":
			cfg.Decoder.ScaleFactor = scale
		case "v":
			cfg.Decoder.Verbose = verbose
		case "workers":
			cfg.Decoder.Workers = workers
		}
	})
}

func loadModel(path string) (*hmm.Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %q: %w", path, err)
	}
	defer f.Close()
	return hmm.Parse(bufio.NewReader(f), path)
}

// resolveSource loads whichever of --b/--w/--ub was given, or falls back
// to the uniform source. --b's dialect (ARPA vs matrix bigram) is
// auto-detected: the file is read as ARPA when its first 512 bytes contain
// a `\data\` marker, and as a matrix bigram otherwise.
func resolveSource(bigramFile, wordnetFile, ubFile string) (lm.Source, error) {
	switch {
	case bigramFile != "":
		return loadBigramFile(bigramFile)
	case wordnetFile != "":
		f, err := os.Open(wordnetFile)
		if err != nil {
			return nil, fmt.Errorf("open %q: %w", wordnetFile, err)
		}
		defer f.Close()
		return lm.ParseWordNet(bufio.NewReader(f), wordnetFile)
	case ubFile != "":
		f, err := os.Open(ubFile)
		if err != nil {
			return nil, fmt.Errorf("open %q: %w", ubFile, err)
		}
		defer f.Close()
		return lm.LoadDiscounted(f)
	default:
		return lm.Uniform{}, nil
	}
}

func loadBigramFile(path string) (lm.Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %q: %w", path, err)
	}
	defer f.Close()

	br := bufio.NewReader(f)
	peeked, _ := br.Peek(512)
	if strings.Contains(string(peeked), `\data\`) {
		return lm.ParseARPA(br, path)
	}
	return lm.ParseMatrix(br, path)
}

func readSCP(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %q: %w", path, err)
	}
	defer f.Close()

	var paths []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		paths = append(paths, line)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return paths, nil
}
