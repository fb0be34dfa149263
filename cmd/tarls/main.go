// Command tarls prints the entries of ustar archives.
//
// Usage:
//
//	tarls [flags] [archive ...]
//
// With no arguments, or with "-", the archive is read from standard input.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/pflag"
)

type config struct {
	url              bool
	digest           bool
	human            bool
	strictTerminator bool
	verbose          bool
	workers          int
	chunkBlocks      int64
}

func parseFlags(args []string) (config, []string, error) {
	var cfg config
	fs := pflag.NewFlagSet("tarls", pflag.ContinueOnError)
	fs.BoolVar(&cfg.url, "url", false, "treat arguments as HTTP URLs and stream them with range requests")
	fs.BoolVar(&cfg.digest, "digest", false, "print the sha256 digest of the bytes read from each archive")
	fs.BoolVarP(&cfg.human, "human", "H", false, "print sizes in human readable units")
	fs.BoolVar(&cfg.strictTerminator, "strict-terminator", false, "require an all-zero block to end the archive")
	fs.BoolVarP(&cfg.verbose, "verbose", "v", false, "enable debug logging on stderr")
	fs.IntVarP(&cfg.workers, "workers", "j", 4, "number of archives to read concurrently")
	fs.Int64Var(&cfg.chunkBlocks, "chunk-blocks", 64, "blocks fetched per HTTP range request")
	if err := fs.Parse(args); err != nil {
		return config{}, nil, err
	}
	if cfg.workers < 1 {
		cfg.workers = 1
	}
	paths := fs.Args()
	if len(paths) == 0 {
		paths = []string{"-"}
	}
	if err := checkPaths(paths); err != nil {
		return config{}, nil, err
	}
	return cfg, paths, nil
}

func main() {
	cfg, paths, err := parseFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	level := slog.LevelWarn
	if cfg.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	l := &lister{cfg: cfg, logger: logger, stdin: os.Stdin}
	ok, err := l.run(ctx, os.Stdout, paths)
	if err != nil {
		logger.Error("listing failed", slog.Any("error", err))
		os.Exit(1)
	}
	if !ok {
		os.Exit(1)
	}
}
