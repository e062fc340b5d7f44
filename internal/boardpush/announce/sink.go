// Package announce 把每轮发布结果广播出去，供下游监控消费。
// Broadcasts publish results for downstream consumers.
package announce

import (
	"context"
	"errors"
)

type Sink interface {
	Emit(ctx context.Context, typ string, v any) error
	Close() error
}

// NopSink drops every event. Used when no brokers are configured.
type NopSink struct{}

func (NopSink) Emit(ctx context.Context, typ string, v any) error { return nil }

func (NopSink) Close() error { return nil }

// MultiSink fans every event out to all children. One failing child does
// not stop delivery to the rest.
type MultiSink struct {
	sinks []Sink
}

func NewMultiSink(sinks ...Sink) *MultiSink {
	return &MultiSink{sinks: sinks}
}

func (m *MultiSink) Emit(ctx context.Context, typ string, v any) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Emit(ctx, typ, v); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *MultiSink) Close() error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
