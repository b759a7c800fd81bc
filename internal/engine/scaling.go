package engine

import (
	"fmt"

	"github.com/evochora/evochora-sub009/internal/engineerr"
)

// ParallelismScaling maps ascending organism-count thresholds to a maximum
// active worker count, per spec.md §4.5. MaxThreads[i] == 0 means "use
// every worker in the pool". Thresholds must be strictly ascending and the
// two slices must be the same length.
type ParallelismScaling struct {
	Thresholds []int
	MaxThreads []int
}

func (s ParallelismScaling) validate() error {
	if len(s.Thresholds) != len(s.MaxThreads) {
		return engineerr.New(engineerr.KindConfiguration, "parallelism scaling",
			fmt.Errorf("thresholds has %d entries, maxThreads has %d", len(s.Thresholds), len(s.MaxThreads)))
	}
	for i := 1; i < len(s.Thresholds); i++ {
		if s.Thresholds[i] <= s.Thresholds[i-1] {
			return engineerr.New(engineerr.KindConfiguration, "parallelism scaling",
				fmt.Errorf("thresholds must be strictly ascending: [%d]=%d <= [%d]=%d",
					i, s.Thresholds[i], i-1, s.Thresholds[i-1]))
		}
	}
	for _, mt := range s.MaxThreads {
		if mt < 0 {
			return engineerr.New(engineerr.KindConfiguration, "parallelism scaling", fmt.Errorf("maxThreads entries must be >= 0, got %d", mt))
		}
	}
	return nil
}

// resolve returns the active worker count for organismCount organisms,
// given a pool of poolSize workers: the highest threshold not exceeding
// organismCount wins; below the lowest threshold the result is 1
// (sequential path).
func (s ParallelismScaling) resolve(organismCount, poolSize int) int {
	best := -1
	for i, th := range s.Thresholds {
		if th <= organismCount {
			best = i
		}
	}
	if best == -1 {
		return 1
	}
	mt := s.MaxThreads[best]
	if mt == 0 || mt > poolSize {
		mt = poolSize
	}
	if mt < 1 {
		mt = 1
	}
	return mt
}
