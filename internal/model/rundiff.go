package model

import "slices"

// RunDiff compares the addresses discovered by two runs.
type RunDiff struct {
	RunA int64 `json:"run_a"`
	RunB int64 `json:"run_b"`

	// OnlyInA are addresses discovered by run A but not run B, sorted.
	OnlyInA []string `json:"only_in_a"`
	// OnlyInB are addresses discovered by run B but not run A, sorted.
	OnlyInB []string `json:"only_in_b"`
	// InBoth are addresses discovered by both runs, sorted.
	InBoth []string `json:"in_both"`
}

// NewRunDiff computes the difference between the address lists of two runs.
// Duplicates within a list are ignored.
func NewRunDiff(runA int64, a []string, runB int64, b []string) *RunDiff {
	inA := toSet(a)
	inB := toSet(b)

	diff := &RunDiff{RunA: runA, RunB: runB, OnlyInA: []string{}, OnlyInB: []string{}, InBoth: []string{}}
	for addr := range inA {
		if _, ok := inB[addr]; ok {
			diff.InBoth = append(diff.InBoth, addr)
		} else {
			diff.OnlyInA = append(diff.OnlyInA, addr)
		}
	}
	for addr := range inB {
		if _, ok := inA[addr]; !ok {
			diff.OnlyInB = append(diff.OnlyInB, addr)
		}
	}
	slices.Sort(diff.OnlyInA)
	slices.Sort(diff.OnlyInB)
	slices.Sort(diff.InBoth)
	return diff
}

// HasChanges reports whether the runs discovered different addresses.
func (d *RunDiff) HasChanges() bool {
	return len(d.OnlyInA) > 0 || len(d.OnlyInB) > 0
}

func toSet(addrs []string) map[string]struct{} {
	set := make(map[string]struct{}, len(addrs))
	for _, a := range addrs {
		set[a] = struct{}{}
	}
	return set
}
