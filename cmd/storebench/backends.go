package main

import (
	"fmt"
	"time"

	"storebench/internal/bench"
	"storebench/internal/config"
	"storebench/internal/store"
)

// newBackends builds the requested backends in order. Both stores share one
// todo id source.
func newBackends(cfg *config.Config, ids []string) ([]bench.Backend, error) {
	if len(ids) == 0 {
		ids = []string{bench.BackendRedux, bench.BackendAlt}
	}
	src := store.NewIDSource(time.Now)
	seen := make(map[string]bool, len(ids))
	out := make([]bench.Backend, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		meta := cfg.Backend(id)
		b := bench.Backend{ID: id, Name: meta.Name, BundleSizeKB: meta.BundleSizeKB}
		switch id {
		case bench.BackendRedux:
			b.Store = store.NewReducerStore(meta.Name, src)
		case bench.BackendAlt:
			b.Store = store.NewAtomStore(meta.Name, src)
		default:
			return nil, fmt.Errorf("unknown backend %q (known: %s, %s)", id, bench.BackendRedux, bench.BackendAlt)
		}
		out = append(out, b)
	}
	return out, nil
}

// newRunner resolves the run configuration and memory source from cfg.
func newRunner(cfg *config.Config, opts ...bench.Option) (*bench.Runner, error) {
	bc, err := cfg.BenchConfig()
	if err != nil {
		return nil, err
	}
	sampler, err := bench.NewMemorySampler(cfg.MemorySource)
	if err != nil {
		return nil, err
	}
	base := []bench.Option{bench.WithMemorySampler(sampler), bench.WithLogger(logger)}
	return bench.NewRunner(bc, append(base, opts...)...)
}
