// Command vamana builds and queries Vamana index files.
//
// Usage:
//
//	vamana build --input vectors.bin --output index.bin [--max-degree 64]
//	       [--search-list-size 100] [--alpha 1.2] [--seed 42]
//	       [--distance l2|ip|cosine] [--workers 1] [--compress]
//	vamana search --index index.bin --query queries.bin --k 10
//	       [--beam 64] [--output results.csv] [--parallel GOMAXPROCS]
//
// Exit codes: 0 ok, 2 usage error, 3 I/O error, 4 format error,
// 5 dimension mismatch.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/vamana"
	"github.com/hupe1980/vamana/distance"
	"github.com/hupe1980/vamana/persistence"
)

const (
	exitOK          = 0
	exitUsage       = 2
	exitIO          = 3
	exitFormat      = 4
	exitDimMismatch = 5
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "usage: vamana <build|search> [flags]")
		return exitUsage
	}

	switch args[0] {
	case "build":
		return runBuild(args[1:])
	case "search":
		return runSearch(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", args[0])
		return exitUsage
	}
}

// exitCode maps the closed error kinds onto the CLI exit codes.
func exitCode(err error) int {
	var dm *vamana.ErrDimensionMismatch
	switch {
	case err == nil:
		return exitOK
	case errors.As(err, &dm):
		return exitDimMismatch
	case errors.Is(err, vamana.ErrFormatInvalid),
		errors.Is(err, vamana.ErrFormatTruncated),
		errors.Is(err, vamana.ErrFormatTrailingBytes),
		errors.Is(err, vamana.ErrChecksumMismatch):
		return exitFormat
	case errors.Is(err, vamana.ErrInvalidParameter),
		errors.Is(err, vamana.ErrEmptyCorpus):
		return exitUsage
	default:
		return exitIO
	}
}

func fail(err error) int {
	fmt.Fprintf(os.Stderr, "vamana: %v\n", err)
	return exitCode(err)
}

func runBuild(args []string) int {
	fs := flag.NewFlagSet("build", flag.ContinueOnError)
	input := fs.String("input", "", "input vector file")
	output := fs.String("output", "", "output index file")
	maxDegree := fs.Int("max-degree", 64, "max out-degree R")
	searchListSize := fs.Int("search-list-size", 100, "build candidate list size L")
	alpha := fs.Float64("alpha", 1.2, "pruning diversity factor")
	seed := fs.Uint64("seed", 42, "build seed")
	dist := fs.String("distance", "l2", "distance function: l2, ip or cosine")
	workers := fs.Int("workers", 1, "build workers (1 = deterministic)")
	compress := fs.Bool("compress", false, "write a zstd-compressed index")
	verbose := fs.Bool("verbose", false, "enable debug logging")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	if *input == "" || *output == "" {
		fmt.Fprintln(os.Stderr, "vamana build: --input and --output are required")
		return exitUsage
	}

	metric, err := distance.ParseMetric(*dist)
	if err != nil {
		fmt.Fprintf(os.Stderr, "vamana build: %v\n", err)
		return exitUsage
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := vamana.NewTextLogger(level)

	rows, err := persistence.ReadVectorsFile(*input)
	if err != nil {
		return fail(err)
	}

	opts := &vamana.BuildOptions{
		R:          *maxDegree,
		LBuild:     *searchListSize,
		Alpha:      float32(*alpha),
		Metric:     metric,
		Seed:       *seed,
		NumWorkers: *workers,
	}

	builder, err := vamana.NewBuilder(opts, vamana.WithLogger(logger))
	if err != nil {
		return fail(err)
	}
	if _, err := builder.AddBatch(rows); err != nil {
		return fail(err)
	}

	ix, err := builder.Build(context.Background())
	if err != nil {
		return fail(err)
	}

	if *compress {
		err = ix.SaveFileCompressed(*output)
	} else {
		err = ix.SaveFile(*output)
	}
	if err != nil {
		return fail(err)
	}

	stats := ix.Stats()
	logger.Info("index written",
		"output", *output,
		"count", stats.Count,
		"dimension", stats.Dim,
		"avg_degree", stats.AvgDegree,
		"reachable", stats.ReachableFraction,
	)
	return exitOK
}

func runSearch(args []string) int {
	fs := flag.NewFlagSet("search", flag.ContinueOnError)
	indexPath := fs.String("index", "", "index file")
	queryPath := fs.String("query", "", "query vector file")
	k := fs.Int("k", 10, "number of neighbors")
	beam := fs.Int("beam", 0, "beam width (defaults to max(k, 64))")
	output := fs.String("output", "", "CSV output file (default stdout)")
	parallel := fs.Int("parallel", runtime.GOMAXPROCS(0), "concurrent queries")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	if *indexPath == "" || *queryPath == "" {
		fmt.Fprintln(os.Stderr, "vamana search: --index and --query are required")
		return exitUsage
	}
	if *k < 0 {
		fmt.Fprintln(os.Stderr, "vamana search: --k must be non-negative")
		return exitUsage
	}

	ix, err := vamana.LoadFile(*indexPath)
	if err != nil {
		return fail(err)
	}

	queries, err := persistence.ReadVectorsFile(*queryPath)
	if err != nil {
		return fail(err)
	}

	w := *beam
	if w == 0 {
		w = vamana.DefaultBeamWidth
	}
	if w < *k {
		w = *k
	}

	// Results land in a per-query slot so the output order is stable
	// regardless of completion order.
	all := make([][]vamana.Result, len(queries))
	g, ctx := errgroup.WithContext(context.Background())
	g.SetLimit(*parallel)
	for i, q := range queries {
		i, q := i, q
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results, err := ix.SearchWithBeam(q, *k, w)
			if err != nil {
				return err
			}
			all[i] = results
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fail(err)
	}

	out := os.Stdout
	if *output != "" {
		f, err := os.Create(*output)
		if err != nil {
			return fail(err)
		}
		defer f.Close()
		out = f
	}

	for qi, results := range all {
		for rank, r := range results {
			fmt.Fprintf(out, "%d,%d,%d,%s\n", qi, rank, r.ID,
				strconv.FormatFloat(float64(r.Distance), 'g', -1, 32))
		}
	}

	return exitOK
}
