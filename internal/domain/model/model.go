// Package model contains the domain records passed between the generators
// and their consumers.
package model

import "fmt"

// Task is a unit of work with a known ground-truth class.
type Task struct {
	ID    int // zero-based task identifier
	Class int // true class in [0,K)
}

// Label is a single observation emitted by a simulated worker.
type Label struct {
	Task   int // task identifier
	Worker int // worker identifier
	Class  int // observed class in [0,K)
}

// Archetype selects the shape of a worker's confusion matrix.
type Archetype int

// Worker archetypes, in the order archetype proportions are given.
const (
	Honest Archetype = iota
	Spammer
	Adversary
)

// ArchetypeCount is the number of archetypes and the required length of
// an archetype proportion vector.
const ArchetypeCount = 3

// Archetypes lists every archetype in proportion order.
var Archetypes = [ArchetypeCount]Archetype{Honest, Spammer, Adversary}

func (a Archetype) String() string {
	switch a {
	case Honest:
		return "honest"
	case Spammer:
		return "spammer"
	case Adversary:
		return "adversary"
	default:
		return fmt.Sprintf("archetype(%d)", int(a))
	}
}

// Valid reports whether a is one of the known archetypes.
func (a Archetype) Valid() bool {
	return a >= Honest && a <= Adversary
}

// Worker is a simulated crowd member. The confusion matrix is fixed for the
// lifetime of the worker.
type Worker struct {
	ID        int
	Archetype Archetype
	Confusion *ConfusionMatrix
	// Workload is the number of labels the worker produces under the
	// power-law policy. Zero for crowds built without a load schedule.
	Workload int
}
