// Package parallel splits a flat index-space sweep across goroutines.
// Its one caller is backend/cpu's CONTRACT kernel, which sweeps the
// output tensor's flat volume outer-loop-per-element while summing the
// contracted labels inside each call to f — a write-disjoint sweep is
// exactly the shape For requires.
package parallel

import (
	"runtime"
	"sync"
)

// Config controls parallel execution behavior.
type Config struct {
	Enabled      bool // Whether parallel execution is enabled.
	NumWorkers   int  // Number of worker goroutines to use.
	MinChunkSize int  // Minimum items per goroutine to avoid overhead.
}

// DefaultConfig returns sensible defaults based on CPU count.
func DefaultConfig() Config {
	n := runtime.NumCPU()
	return Config{
		Enabled:      n > 1,
		NumWorkers:   n,
		MinChunkSize: 64, // Typical cache line aware chunk.
	}
}

// For executes f(i) for i in [0, n) with optional parallelism, where n
// is a tensor's flat element count (e.g. CONTRACT's output volume) and
// each i must write disjoint state from every other i.
// Falls back to sequential execution if parallelism is disabled or n is too small.
func For(n int, f func(i int), cfg Config) {
	if !cfg.Enabled || n < cfg.MinChunkSize {
		// Sequential fallback.
		for i := 0; i < n; i++ {
			f(i)
		}
		return
	}

	var wg sync.WaitGroup
	chunkSize := max((n+cfg.NumWorkers-1)/cfg.NumWorkers, cfg.MinChunkSize)

	for start := 0; start < n; start += chunkSize {
		end := min(start+chunkSize, n)
		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			for i := s; i < e; i++ {
				f(i)
			}
		}(start, end)
	}
	wg.Wait()
}

// ForBatch executes f(b, c) for every b in [0, batch) and c in [0, channels)
// by sweeping the flat batch*channels index space through For.
func ForBatch(batch, channels int, f func(b, c int), cfg Config) {
	For(batch*channels, func(i int) {
		f(i/channels, i%channels)
	}, cfg)
}
