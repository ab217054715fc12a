package compiler

import "sync"

// runJobs calls fn for every index in [0, n) on up to workers goroutines
// and returns the results in index order. With one worker (or one job) it
// runs inline.
func runJobs[T any](n, workers int, fn func(i int) T) []T {
	results := make([]T, n)
	if workers < 1 {
		workers = 1
	}
	if workers > n {
		workers = n
	}
	if workers <= 1 {
		for i := range n {
			results[i] = fn(i)
		}
		return results
	}

	work := make(chan int, n)
	for i := range n {
		work <- i
	}
	close(work)
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range work {
				results[i] = fn(i)
			}
		}()
	}
	wg.Wait()
	return results
}
