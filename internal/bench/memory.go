package bench

import (
	"fmt"
	"runtime"

	"github.com/prometheus/procfs"
)

// MemorySampler reports the current memory footprint in bytes.
type MemorySampler interface {
	SampleMemory() (uint64, error)
}

// MemorySamplerFunc adapts a function to MemorySampler.
type MemorySamplerFunc func() (uint64, error)

func (f MemorySamplerFunc) SampleMemory() (uint64, error) { return f() }

// Memory source names accepted by NewMemorySampler.
const (
	MemoryRSS  = "rss"
	MemoryHeap = "heap"
	MemoryNone = "none"
)

// RSSSampler reads the resident set size of this process from procfs.
// It fails on hosts without /proc.
type RSSSampler struct{}

func (RSSSampler) SampleMemory() (uint64, error) {
	p, err := procfs.Self()
	if err != nil {
		return 0, fmt.Errorf("open procfs: %w", err)
	}
	st, err := p.Stat()
	if err != nil {
		return 0, fmt.Errorf("read proc stat: %w", err)
	}
	rss := st.ResidentMemory()
	if rss < 0 {
		return 0, fmt.Errorf("negative rss %d", rss)
	}
	return uint64(rss), nil
}

// HeapSampler reports live heap bytes from the Go runtime.
type HeapSampler struct{}

func (HeapSampler) SampleMemory() (uint64, error) {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	return ms.HeapAlloc, nil
}

type noMemory struct{}

func (noMemory) SampleMemory() (uint64, error) {
	return 0, fmt.Errorf("memory sampling disabled")
}

// NewMemorySampler returns the sampler for a source name. Empty selects rss.
func NewMemorySampler(source string) (MemorySampler, error) {
	switch source {
	case "", MemoryRSS:
		return RSSSampler{}, nil
	case MemoryHeap:
		return HeapSampler{}, nil
	case MemoryNone:
		return noMemory{}, nil
	default:
		return nil, fmt.Errorf("unknown memory source %q", source)
	}
}
