package orchestrator

import "sort"

// Tally counts detected labels and remembers the order they first appeared in.
type Tally struct {
	counts map[string]int
	order  []string
}

func NewTally() *Tally {
	return &Tally{counts: map[string]int{}}
}

// Add folds one outcome in; NotDetected is ignored.
func (t *Tally) Add(o FrameOutcome) {
	if !o.Detected {
		return
	}
	if _, seen := t.counts[o.Label]; !seen {
		t.order = append(t.order, o.Label)
	}
	t.counts[o.Label]++
}

func (t *Tally) Count(label string) int { return t.counts[label] }

// Len is the number of distinct labels.
func (t *Tally) Len() int { return len(t.order) }

// Total is the number of detections.
func (t *Tally) Total() int {
	n := 0
	for _, c := range t.counts {
		n += c
	}
	return n
}

// Counts returns a copy of the label counts.
func (t *Tally) Counts() map[string]int {
	out := make(map[string]int, len(t.counts))
	for k, v := range t.counts {
		out[k] = v
	}
	return out
}

func Aggregate(outcomes []FrameOutcome) *Tally {
	t := NewTally()
	for _, o := range outcomes {
		t.Add(o)
	}
	return t
}

// Format ranks the tally by count, highest first. Labels with equal counts
// keep the order they were first detected in. An empty report still carries
// a non-nil Entries slice.
func Format(t *Tally) Report {
	if t == nil || t.Len() == 0 {
		return Report{Entries: []Entry{}}
	}
	entries := make([]Entry, 0, len(t.order))
	for _, l := range t.order {
		entries = append(entries, Entry{Label: l, Count: t.counts[l]})
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Count > entries[j].Count })
	return Report{Entries: entries}
}
