package analytic

import (
	"sync"

	algofft "github.com/MeKo-Christian/algo-fft"
)

// Plans are expensive to build and identical for a given length, so all
// Transform instances of one length share a single plan. Entries are
// reference counted; the last release deletes the entry.
type planEntry struct {
	plan *algofft.Plan[complex128]
	refs int
}

var (
	planMu    sync.Mutex
	planCache = make(map[int]*planEntry)
)

func acquirePlan(n int) (*algofft.Plan[complex128], error) {
	planMu.Lock()
	defer planMu.Unlock()
	if e, ok := planCache[n]; ok {
		e.refs++
		return e.plan, nil
	}
	plan, err := algofft.NewPlan64(n)
	if err != nil {
		return nil, err
	}
	planCache[n] = &planEntry{plan: plan, refs: 1}
	return plan, nil
}

func releasePlan(n int) {
	planMu.Lock()
	defer planMu.Unlock()
	e, ok := planCache[n]
	if !ok {
		return
	}
	if e.refs--; e.refs <= 0 {
		delete(planCache, n)
	}
}
