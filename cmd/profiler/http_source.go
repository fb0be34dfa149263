package main

import (
	"bytes"
	"context"
	nethttp "net/http"
	"net/http/httptest"
	"sync/atomic"
	"time"

	ustarhttp "github.com/meigma/ustar/http"
)

// newHTTPSource serves data from a local test server and opens a Source on
// it. The returned transport records every range request the Source makes.
func newHTTPSource(cfg config, data []byte) (*ustarhttp.Source, *rangeTransport, func(), error) {
	server := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		nethttp.ServeContent(w, r, "archive.tar", time.Time{}, bytes.NewReader(data))
	}))

	transport := newRangeTransport(cfg)
	source, err := ustarhttp.NewSource(context.Background(), server.URL,
		ustarhttp.WithClient(&nethttp.Client{Transport: transport}),
		ustarhttp.WithChunkBlocks(cfg.chunkBlocks),
	)
	if err != nil {
		server.Close()
		return nil, nil, nil, err
	}
	return source, transport, server.Close, nil
}

// rangeTransport simulates a remote archive host. Each range response is
// held back by the configured latency plus the time its chunk would take to
// arrive at bytesPerSecond.
type rangeTransport struct {
	base           nethttp.RoundTripper
	latency        time.Duration
	bytesPerSecond int64

	requests atomic.Int64
	waited   atomic.Int64 // nanoseconds
}

func newRangeTransport(cfg config) *rangeTransport {
	base := nethttp.DefaultTransport
	if t, ok := base.(*nethttp.Transport); ok {
		base = t.Clone()
	}
	return &rangeTransport{
		base:           base,
		latency:        cfg.dataHTTPLatency,
		bytesPerSecond: cfg.dataHTTPBPS,
	}
}

func (t *rangeTransport) RoundTrip(req *nethttp.Request) (*nethttp.Response, error) {
	start := time.Now()
	resp, err := t.base.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	if req.Header.Get("Range") == "" {
		return resp, nil
	}

	delay := t.latency
	if t.bytesPerSecond > 0 && resp.ContentLength > 0 {
		delay += time.Duration(resp.ContentLength * int64(time.Second) / t.bytesPerSecond)
	}
	if delay > 0 {
		time.Sleep(delay)
	}
	t.requests.Add(1)
	t.waited.Add(int64(time.Since(start)))
	return resp, nil
}

// snapshot returns the number of range requests and their total duration.
func (t *rangeTransport) snapshot() (int64, time.Duration) {
	return t.requests.Load(), time.Duration(t.waited.Load())
}
