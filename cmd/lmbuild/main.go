// Command lmbuild derives a discounted uni/bigram language model from a
// reference Master Label File, using the absolute-discounting scheme the
// original training tool applies: subtract a fixed discount from every
// observed bigram count, rescale the remainder, and carry the held-out
// mass forward as each context's discount.
package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/zsrkmyn/phondecode/pkg/lm"
)

const absoluteDiscount = 0.5

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) != 2 {
		fmt.Fprintln(os.Stderr, "usage: lmbuild TRAIN.mlf OUTPUT.json")
		return 2
	}
	inPath, outPath := args[0], args[1]

	f, err := os.Open(inPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "lmbuild: %v\n", err)
		return 1
	}
	defer f.Close()

	unigrams, bigrams := countTransitions(f)
	d := discount(unigrams, bigrams)

	out, err := os.Create(outPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "lmbuild: %v\n", err)
		return 1
	}
	defer out.Close()

	if err := d.Save(out); err != nil {
		fmt.Fprintf(os.Stderr, "lmbuild: %v\n", err)
		return 1
	}
	return 0
}

// countTransitions reads a Master Label File and accumulates phone
// unigram and bigram occurrence counts. A line is a label line when its
// first whitespace-separated field parses as an integer (an HTK frame
// timestamp); any other line — the "#!MLF!#" header, a quoted record
// name, or the "." terminator — resets the bigram context, since a phone
// sequence never carries across an utterance boundary.
func countTransitions(r io.Reader) (map[string]float64, map[string]map[string]float64) {
	unigrams := make(map[string]float64)
	bigrams := make(map[string]map[string]float64)

	sc := bufio.NewScanner(r)
	var previous string
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) < 3 {
			previous = ""
			continue
		}
		if _, err := strconv.ParseInt(fields[0], 10, 64); err != nil {
			previous = ""
			continue
		}

		phone := stripState(fields[2])
		unigrams[phone]++
		if previous != "" {
			if bigrams[previous] == nil {
				bigrams[previous] = make(map[string]float64)
			}
			bigrams[previous][phone]++
		}
		previous = phone
	}
	return unigrams, bigrams
}

// stripState removes an HTK per-state suffix such as "A[2]", leaving the
// bare phone name: lmbuild's counts are phone-level even when fed a
// verbose, per-state MLF.
func stripState(tok string) string {
	if i := strings.IndexByte(tok, '['); i >= 0 {
		return tok[:i]
	}
	return tok
}

// discount converts raw occurrence counts into the unigram/bigram/discount
// triple pkg/lm.Discounted expects: unigrams normalised to a distribution,
// each context's bigram row absolute-discounted and rescaled, and the
// resulting held-out mass recorded per context.
func discount(unigrams map[string]float64, bigrams map[string]map[string]float64) *lm.Discounted {
	total := 0.0
	for _, c := range unigrams {
		total += c
	}
	uni := make(map[string]float64, len(unigrams))
	for phn, c := range unigrams {
		uni[phn] = c / total
	}

	bi := make(map[string]map[string]float64, len(bigrams))
	discounts := make(map[string]float64, len(bigrams))
	for phn, ctx := range bigrams {
		sum := 0.0
		for _, c := range ctx {
			sum += c
		}
		row := make(map[string]float64, len(ctx))
		rowSum := 0.0
		for phn2, c := range ctx {
			v := (c - absoluteDiscount) / sum
			row[phn2] = v
			rowSum += v
		}
		bi[phn] = row
		discounts[phn] = 1.0 - rowSum
	}

	return &lm.Discounted{Unigrams: uni, Bigrams: bi, Discounts: discounts}
}
