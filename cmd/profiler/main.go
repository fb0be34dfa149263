// Command profiler measures entry iteration throughput over a synthetic archive.
package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	_ "net/http/pprof" //nolint:gosec // intentional profiling endpoint
	"os"
	"runtime"
	"runtime/pprof"
	"runtime/trace"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/pflag"

	"github.com/meigma/ustar"
	"github.com/meigma/ustar/internal/testutil"
)

type config struct {
	mode            string
	entries         int
	entrySize       int64
	dataHTTPLatency time.Duration
	dataHTTPBPS     int64
	chunkBlocks     int64
	duration        time.Duration
	iterations      int
	pprofAddr       string
	cpuProfile      string
	memProfile      string
	traceFile       string
}

//nolint:unused // sink variables prevent compiler optimizations in profiling
var (
	sinkName  string
	sinkCount int
)

func main() {
	cfg, err := parseFlags(os.Args[1:])
	if err != nil {
		log.Fatal(err)
	}

	if cfg.pprofAddr != "" {
		go func() {
			log.Printf("pprof listening on %s", cfg.pprofAddr)
			//nolint:gosec // intentional pprof server without timeouts for profiling
			if err := http.ListenAndServe(cfg.pprofAddr, nil); err != nil {
				log.Printf("pprof server error: %v", err)
			}
		}()
	}

	archive := buildArchive(cfg)

	if cfg.cpuProfile != "" {
		cpuFile, cpuErr := os.Create(cfg.cpuProfile)
		if cpuErr != nil {
			log.Fatal(cpuErr)
		}
		if cpuErr = pprof.StartCPUProfile(cpuFile); cpuErr != nil {
			log.Fatal(cpuErr)
		}
		defer func() {
			pprof.StopCPUProfile()
			_ = cpuFile.Close()
		}()
	}

	if cfg.traceFile != "" {
		traceFile, traceErr := os.Create(cfg.traceFile)
		if traceErr != nil {
			log.Fatal(traceErr)
		}
		if traceErr = trace.Start(traceFile); traceErr != nil {
			log.Fatal(traceErr)
		}
		defer func() {
			trace.Stop()
			_ = traceFile.Close()
		}()
	}

	stats, err := runProfile(cfg, archive)
	if err != nil {
		log.Fatal(err) //nolint:gocritic // exitAfterDefer is intentional - profiles are best-effort
	}

	if cfg.memProfile != "" {
		runtime.GC()
		f, err := os.Create(cfg.memProfile)
		if err != nil {
			log.Fatal(err)
		}
		if err := pprof.WriteHeapProfile(f); err != nil {
			log.Fatal(err)
		}
		_ = f.Close()
	}

	fmt.Println(stats)
}

type profileStats struct {
	mode        string
	ops         int
	entries     int
	bytes       int64
	elapsed     time.Duration
	requests    int64
	requestTime time.Duration
}

func (s profileStats) String() string {
	//nolint:gosec // byte counts are never negative
	perSec := uint64(float64(s.bytes) / s.elapsed.Seconds())
	out := fmt.Sprintf("mode=%s ops=%d entries=%d bytes=%d elapsed=%s throughput=%s/s",
		s.mode, s.ops, s.entries, s.bytes, s.elapsed, humanize.IBytes(perSec))
	if s.requests > 0 {
		out += fmt.Sprintf(" requests=%d avg_request=%s", s.requests, s.requestTime/time.Duration(s.requests))
	}
	return out
}

func buildArchive(cfg config) []byte {
	entries := make([]testutil.TestEntry, cfg.entries)
	for i := range entries {
		entries[i] = testutil.TestEntry{
			Name: fmt.Sprintf("dir%02d/file%06d.dat", i%16, i),
			Size: cfg.entrySize,
		}
	}
	return testutil.Archive(entries...)
}

func runProfile(cfg config, archive []byte) (profileStats, error) {
	var open func() (io.ReadCloser, error)
	var transport *rangeTransport
	switch cfg.mode {
	case "memory":
		open = func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(archive)), nil
		}
	case "http":
		src, rt, cleanup, err := newHTTPSource(cfg, archive)
		if err != nil {
			return profileStats{}, err
		}
		defer cleanup()
		transport = rt
		open = func() (io.ReadCloser, error) {
			return src.Reader(context.Background()), nil
		}
	default:
		return profileStats{}, fmt.Errorf("unknown mode %q", cfg.mode)
	}

	stats := profileStats{mode: cfg.mode}
	start := time.Now()
	shouldContinue := func() bool {
		if cfg.iterations > 0 {
			return stats.ops < cfg.iterations
		}
		return time.Since(start) < cfg.duration
	}

	for shouldContinue() {
		r, err := open()
		if err != nil {
			return profileStats{}, err
		}
		n, consumed, err := iterate(r)
		if err != nil {
			return profileStats{}, err
		}
		if n != cfg.entries+1 {
			return profileStats{}, fmt.Errorf("iterated %d entries, want %d", n, cfg.entries+1)
		}
		stats.entries += n
		stats.bytes += consumed
		stats.ops++
	}
	stats.elapsed = time.Since(start)
	if transport != nil {
		stats.requests, stats.requestTime = transport.snapshot()
	}
	return stats, nil
}

func iterate(r io.Reader) (int, int64, error) {
	it := ustar.NewIterator(r)
	defer it.Close()

	count := 0
	for entry, err := range it.All() {
		if err != nil {
			return count, it.Offset(), err
		}
		name, err := entry.Header.Name()
		if err != nil {
			return count, it.Offset(), err
		}
		sinkName = name
		count++
	}
	sinkCount = count
	return count, it.Offset(), nil
}

func parseFlags(args []string) (config, error) {
	var cfg config
	var dataHTTPBPS string
	fs := pflag.NewFlagSet("profiler", pflag.ContinueOnError)
	fs.StringVar(&cfg.mode, "mode", "memory", "mode: memory or http")
	fs.IntVar(&cfg.entries, "entries", 4096, "number of archive entries")
	fs.Int64Var(&cfg.entrySize, "entry-size", 16<<10, "entry size in bytes")
	fs.DurationVar(&cfg.dataHTTPLatency, "data-http-latency", 0, "per-request latency for the HTTP source")
	fs.StringVar(&dataHTTPBPS, "data-http-bps", "", "bytes/sec throttle for the HTTP source (e.g. 10MB)")
	fs.Int64Var(&cfg.chunkBlocks, "chunk-blocks", 64, "blocks per HTTP range request")
	fs.DurationVar(&cfg.duration, "duration", 10*time.Second, "duration to run (ignored if iterations > 0)")
	fs.IntVar(&cfg.iterations, "iterations", 0, "number of iterations to run")
	fs.StringVar(&cfg.pprofAddr, "pprof-addr", "", "pprof listen address (e.g. :6060)")
	fs.StringVar(&cfg.cpuProfile, "cpuprofile", "", "write CPU profile to file")
	fs.StringVar(&cfg.memProfile, "memprofile", "", "write heap profile to file")
	fs.StringVar(&cfg.traceFile, "trace", "", "write trace to file")
	if err := fs.Parse(args); err != nil {
		return config{}, err
	}
	if cfg.entries < 0 {
		return config{}, errors.New("entries must not be negative")
	}
	if dataHTTPBPS != "" {
		bps, err := humanize.ParseBytes(dataHTTPBPS)
		if err != nil || bps == 0 {
			return config{}, fmt.Errorf("invalid data-http-bps %q", dataHTTPBPS)
		}
		cfg.dataHTTPBPS = int64(bps) //nolint:gosec // parsed sizes fit in int64
	}
	return cfg, nil
}
