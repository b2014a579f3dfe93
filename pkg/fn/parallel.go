package fn

import "sync"

// forEachBounded runs work(i) for each index with at most workers
// goroutines in flight. workers <= 0 means unbounded.
func forEachBounded(n, workers int, work func(i int)) {
	if n == 0 {
		return
	}
	if workers <= 0 || workers > n {
		workers = n
	}

	var wg sync.WaitGroup
	sem := make(chan struct{}, workers)
	for i := 0; i < n; i++ {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int) {
			defer func() { <-sem; wg.Done() }()
			work(i)
		}(i)
	}
	wg.Wait()
}

// ParMap applies f to each element with bounded concurrency. Output order
// matches input order.
func ParMap[T, U any](items []T, workers int, f func(T) U) []U {
	out := make([]U, len(items))
	forEachBounded(len(items), workers, func(i int) {
		out[i] = f(items[i])
	})
	return out
}

// ParMapResult is ParMap for fallible f. Each element's Result lands at its
// input position; pass the slice to Collect for all-or-first-error.
func ParMapResult[T, U any](items []T, workers int, f func(T) Result[U]) []Result[U] {
	out := make([]Result[U], len(items))
	forEachBounded(len(items), workers, func(i int) {
		out[i] = f(items[i])
	})
	return out
}
