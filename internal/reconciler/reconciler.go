// Package reconciler computes the create/destroy vassal ordinal sets for a
// scale change, spec.md §4.5. It is pure: no filesystem or process calls,
// so the algorithm can be tested as plain data in/data out (mirrors the
// teacher's internal/planner pure-function style).
package reconciler

import (
	"sort"

	pikuerrors "github.com/piku-host/piku/internal/errors"
)

// WorkerRef names one vassal by kind and 1-based ordinal, e.g. web.2.
type WorkerRef struct {
	Kind    string
	Ordinal int
}

// Input is everything Reconcile needs. Current and Deltas are keyed by
// Procfile kind ("web", "worker", a cron label, etc).
type Input struct {
	ProcfileKinds []string
	Current       map[string]int
	Deltas        map[string]int
	Existing      map[WorkerRef]bool
	AutoRestart   bool
}

// Plan is the result of reconciliation: the new SCALING map and the vassal
// ordinals to create or destroy.
type Plan struct {
	Scaling map[string]int
	Create  []WorkerRef
	Destroy []WorkerRef
}

// Reconcile implements spec.md §4.5's algorithm. Scaling below 0 and
// deltas on kinds absent from the Procfile are rejected.
func Reconcile(in Input) (Plan, error) {
	validKinds := make(map[string]bool, len(in.ProcfileKinds))
	for _, k := range in.ProcfileKinds {
		validKinds[k] = true
	}
	for k := range in.Deltas {
		if !validKinds[k] {
			return Plan{}, pikuerrors.ErrUnknownKind
		}
	}

	targetOrdinals := make(map[string]map[int]bool, len(in.ProcfileKinds))
	scaling := make(map[string]int, len(in.ProcfileKinds))
	toDestroy := make(map[WorkerRef]bool)

	for _, k := range in.ProcfileKinds {
		w := in.Current[k]
		if w == 0 {
			w = 1
		}
		delta := in.Deltas[k]
		n := w + delta
		if n < 0 {
			return Plan{}, pikuerrors.ErrNegativeScale
		}

		ords := make(map[int]bool, n)
		for ord := 1; ord <= n; ord++ {
			ords[ord] = true
		}
		targetOrdinals[k] = ords
		scaling[k] = n

		if delta < 0 {
			for ord := w; ord >= w+delta+1; ord-- {
				toDestroy[WorkerRef{Kind: k, Ordinal: ord}] = true
			}
		}
	}

	plan := Plan{Scaling: scaling}

	if in.AutoRestart {
		for ref := range in.Existing {
			plan.Destroy = append(plan.Destroy, ref)
		}
		for k, ords := range targetOrdinals {
			for ord := range ords {
				plan.Create = append(plan.Create, WorkerRef{Kind: k, Ordinal: ord})
			}
		}
	} else {
		for k, ords := range targetOrdinals {
			for ord := range ords {
				ref := WorkerRef{Kind: k, Ordinal: ord}
				if !in.Existing[ref] {
					plan.Create = append(plan.Create, ref)
				}
			}
		}
		for ref := range toDestroy {
			plan.Destroy = append(plan.Destroy, ref)
		}
	}

	sortRefs(plan.Create)
	sortRefs(plan.Destroy)
	return plan, nil
}

func sortRefs(refs []WorkerRef) {
	sort.Slice(refs, func(i, j int) bool {
		if refs[i].Kind != refs[j].Kind {
			return refs[i].Kind < refs[j].Kind
		}
		return refs[i].Ordinal < refs[j].Ordinal
	})
}
