package sim

import (
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
)

// RunReplicates runs n independent replicates of cfg across a worker pool.
//
// Each replicate gets its own seed derived from cfg.Seed and the replicate
// index, so replicates are fully isolated: no RNG stream, record, or retry
// counter is shared, and results do not depend on worker scheduling. Results
// come back in replicate order.
//
// A replicate that exceeds its retry cap contributes a non-accepted Result
// (nil Record) rather than failing the batch; the first fatal error, if any,
// aborts and is returned.
func RunReplicates(cfg Config, n, workers int) ([]Result, error) {
	if n < 1 {
		return nil, fmt.Errorf("replicates: n must be >= 1, got %d", n)
	}
	if workers < 1 {
		workers = 1
	}
	if workers > n {
		workers = n
	}

	prng := NewPartitionedRNG(NewSimulationKey(cfg.Seed))
	results := make([]Result, n)
	errs := make([]error, n)

	var wg sync.WaitGroup
	jobs := make(chan int)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				repCfg := cfg
				repCfg.Seed = prng.StreamSeed(StreamReplicate(i))
				results[i], errs[i] = Run(repCfg)
			}
		}()
	}
	for i := 0; i < n; i++ {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	accepted := 0
	for i := 0; i < n; i++ {
		if errs[i] != nil {
			if errors.Is(errs[i], ErrRetryCapExceeded) {
				logrus.Warnf("replicate %d: %v", i, errs[i])
				continue
			}
			return nil, fmt.Errorf("replicate %d: %w", i, errs[i])
		}
		accepted++
	}
	logrus.Infof("replicates complete: %d/%d accepted", accepted, n)
	return results, nil
}
