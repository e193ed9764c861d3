package qtdmri

import (
	"fmt"
	"runtime"
	"sync"
)

// FitAll fits every signal vector in signals, spreading the work over
// workers goroutines (all available cores when workers <= 0). Results keep
// the input order. Matrix assembly is shared through the model's scale cache,
// so voxels with equal estimated scales reuse one matrix set.
//
// The first failing voxel aborts the batch and its error is returned wrapped
// with the voxel index.
func (m *Model) FitAll(signals [][]float64, workers int) ([]*Fit, error) {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	fits := make([]*Fit, len(signals))

	jobs := make(chan int)
	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				mu.Lock()
				failed := firstErr != nil
				mu.Unlock()
				if failed {
					continue
				}
				fit, err := m.Fit(signals[i])
				if err != nil {
					mu.Lock()
					if firstErr == nil {
						firstErr = fmt.Errorf("voxel %d: %w", i, err)
					}
					mu.Unlock()
					continue
				}
				fits[i] = fit
			}
		}()
	}

	for i := range signals {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	return fits, nil
}
