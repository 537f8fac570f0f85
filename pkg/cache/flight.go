package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"signal-alert-engine/pkg/logger"

	"golang.org/x/sync/singleflight"
)

type Outcome string

const (
	OutcomeHit    Outcome = "hit"
	OutcomeMiss   Outcome = "miss"
	OutcomeShared Outcome = "shared"
)

// OutcomeObserver is notified once per Get with the cache name and outcome.
type OutcomeObserver func(name string, outcome Outcome)

// FlightCache is a TTL cache where concurrent misses on the same key share a
// single computation. A caller whose context ends stops waiting but the
// computation keeps running and its result is still stored.
type FlightCache[T any] struct {
	name     string
	local    Cache
	remote   RemoteStore
	group    singleflight.Group
	ttl      time.Duration
	timeout  time.Duration
	observer OutcomeObserver
	log      *logger.Logger
}

type FlightOption[T any] func(*FlightCache[T])

func WithRemote[T any](remote RemoteStore) FlightOption[T] {
	return func(f *FlightCache[T]) {
		f.remote = remote
	}
}

func WithObserver[T any](obs OutcomeObserver) FlightOption[T] {
	return func(f *FlightCache[T]) {
		f.observer = obs
	}
}

// WithComputeTimeout bounds a detached computation.
func WithComputeTimeout[T any](d time.Duration) FlightOption[T] {
	return func(f *FlightCache[T]) {
		f.timeout = d
	}
}

func NewFlightCache[T any](name string, ttl time.Duration, log *logger.Logger, opts ...FlightOption[T]) *FlightCache[T] {
	f := &FlightCache[T]{
		name:  name,
		local: NewCache(ttl, 0),
		ttl:   ttl,
		log:   log,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

type flightResult[T any] struct {
	value    T
	fromTier bool
}

// Get returns the cached value for key or runs compute. Failed computations
// are never cached.
func (f *FlightCache[T]) Get(ctx context.Context, key string, compute func(ctx context.Context) (T, error)) (T, Outcome, error) {
	var zero T

	if v, ok := GetTyped[T](f.local, key); ok {
		f.observe(OutcomeHit)
		return v, OutcomeHit, nil
	}

	ch := f.group.DoChan(key, func() (interface{}, error) {
		if v, ok := GetTyped[T](f.local, key); ok {
			return flightResult[T]{value: v, fromTier: true}, nil
		}

		detached := context.WithoutCancel(ctx)
		var cancel context.CancelFunc = func() {}
		if f.timeout > 0 {
			detached, cancel = context.WithTimeout(detached, f.timeout)
		}
		defer cancel()

		if v, ok := f.readRemote(detached, key); ok {
			f.local.Set(key, v, f.ttl)
			return flightResult[T]{value: v, fromTier: true}, nil
		}

		v, err := compute(detached)
		if err != nil {
			return nil, err
		}
		f.local.Set(key, v, f.ttl)
		f.writeRemote(detached, key, v)
		return flightResult[T]{value: v}, nil
	})

	select {
	case <-ctx.Done():
		return zero, "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, "", res.Err
		}
		fr := res.Val.(flightResult[T])
		outcome := OutcomeMiss
		switch {
		case fr.fromTier:
			outcome = OutcomeHit
		case res.Shared:
			outcome = OutcomeShared
		}
		f.observe(outcome)
		return fr.value, outcome, nil
	}
}

// Invalidate drops key from every tier.
func (f *FlightCache[T]) Invalidate(ctx context.Context, key string) {
	f.local.Delete(key)
	if f.remote != nil {
		if err := f.remote.Delete(ctx, key); err != nil {
			f.log.WarnContext(ctx, "failed to delete remote cache entry", logger.StringField("key", key), logger.ErrorField(err))
		}
	}
}

// Flush empties the local tier. Remote entries expire on their own TTL.
func (f *FlightCache[T]) Flush() {
	f.local.Flush()
}

func (f *FlightCache[T]) readRemote(ctx context.Context, key string) (T, bool) {
	var v T
	if f.remote == nil {
		return v, false
	}
	raw, ok, err := f.remote.Get(ctx, key)
	if err != nil {
		f.log.WarnContext(ctx, "remote cache read failed", logger.StringField("cache", f.name), logger.ErrorField(err))
		return v, false
	}
	if !ok {
		return v, false
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		f.log.WarnContext(ctx, "remote cache entry is corrupt", logger.StringField("key", key), logger.ErrorField(err))
		return v, false
	}
	return v, true
}

func (f *FlightCache[T]) writeRemote(ctx context.Context, key string, v T) {
	if f.remote == nil {
		return
	}
	raw, err := json.Marshal(v)
	if err != nil {
		f.log.WarnContext(ctx, "failed to encode cache entry", logger.ErrorField(fmt.Errorf("%s: %w", key, err)))
		return
	}
	if err := f.remote.Set(ctx, key, raw, f.ttl); err != nil {
		f.log.WarnContext(ctx, "remote cache write failed", logger.StringField("cache", f.name), logger.ErrorField(err))
	}
}

func (f *FlightCache[T]) observe(o Outcome) {
	if f.observer != nil {
		f.observer(f.name, o)
	}
}
