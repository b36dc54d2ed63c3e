// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package fanout dispatches one query to every source of a registry
// snapshot concurrently. Each source runs under its own deadline; a slow
// or broken source is recorded and never delays or aborts the others.
package fanout

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/pdiddy/catalog-aggregator/internal/metrics"
	"github.com/pdiddy/catalog-aggregator/internal/registry"
	"github.com/pdiddy/catalog-aggregator/internal/sources"
	"github.com/pdiddy/catalog-aggregator/pkg/types"
)

// DefaultTimeout applies when neither the source nor the caller sets one.
const DefaultTimeout = 10 * time.Second

// Coordinator issues adapter calls. The zero value is usable.
type Coordinator struct {
	Logger  *zap.Logger
	Metrics *metrics.Collectors
	Tracer  trace.Tracer

	// Options is passed to every adapter call.
	Options sources.Options
}

type outcome struct {
	records []types.RawRecord
	err     error
}

// Dispatch calls every entry and returns one result per entry, in entry
// order. It returns once each source has completed, failed or timed out,
// so wall time is bounded by the longest deadline. Late adapter results
// are discarded.
func (c *Coordinator) Dispatch(ctx context.Context, q types.Query, entries []registry.Entry, defaultTimeout time.Duration) []types.RawSourceResult {
	if defaultTimeout <= 0 {
		defaultTimeout = DefaultTimeout
	}
	logger := c.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	tracer := c.Tracer
	if tracer == nil {
		tracer = otel.Tracer("catalog-aggregator/fanout")
	}

	results := make([]types.RawSourceResult, len(entries))
	var wg sync.WaitGroup
	for i, e := range entries {
		timeout := e.Descriptor.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		wg.Add(1)
		go func(i int, e registry.Entry, timeout time.Duration) {
			defer wg.Done()
			results[i] = c.call(ctx, tracer, logger, q, e, timeout)
		}(i, e, timeout)
	}
	wg.Wait()
	return results
}

func (c *Coordinator) call(ctx context.Context, tracer trace.Tracer, logger *zap.Logger, q types.Query, e registry.Entry, timeout time.Duration) types.RawSourceResult {
	id := e.Descriptor.ID
	ctx, span := tracer.Start(ctx, "source.search", trace.WithAttributes(
		attribute.String("source.id", id),
		attribute.String("source.family", string(e.Descriptor.Family)),
		attribute.Int64("source.timeout_ms", timeout.Milliseconds()),
	))
	defer span.End()

	sctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("adapter panic: %v", r)}
			}
		}()
		recs, err := e.Adapter.Search(sctx, q, c.Options)
		done <- outcome{records: recs, err: err}
	}()

	var out outcome
	select {
	case out = <-done:
	case <-sctx.Done():
		out = outcome{err: sctx.Err()}
	}
	elapsed := time.Since(start)

	res := types.RawSourceResult{SourceID: id, Elapsed: elapsed}
	switch {
	case out.err == nil:
		res.Status = types.StatusOK
		res.Records = out.records
	case errors.Is(out.err, context.DeadlineExceeded) && sctx.Err() != nil && ctx.Err() == nil:
		res.Status = types.StatusTimeout
		res.ErrorKind = types.ErrorSourceTimeout
		res.ErrorDetail = fmt.Sprintf("no response within %s", timeout)
	default:
		res.Status = types.StatusError
		res.ErrorKind = types.ErrorSource
		res.ErrorDetail = out.err.Error()
	}

	span.SetAttributes(
		attribute.String("source.status", string(res.Status)),
		attribute.Int("source.records", len(res.Records)),
	)
	if res.Status != types.StatusOK {
		span.SetStatus(codes.Error, res.ErrorDetail)
	}
	c.Metrics.ObserveSource(id, string(res.Status), elapsed)

	fields := []zap.Field{
		zap.String("source", id),
		zap.String("status", string(res.Status)),
		zap.Int("records", len(res.Records)),
		zap.Duration("elapsed", elapsed),
	}
	if res.Status == types.StatusOK {
		logger.Info("source completed", fields...)
	} else {
		logger.Warn("source failed", append(fields,
			zap.String("kind", string(res.ErrorKind)),
			zap.String("detail", res.ErrorDetail),
		)...)
	}
	return res
}
