package ecs

import (
	"iter"
)

// Query is a View whose matches are captured once per run. Systems declare
// Query fields; the Scheduler binds them when the system is added and
// re-executes them right before the system runs, so each system sees the
// world as the systems before it left it.
type Query[T any] struct {
	view     *View[T]
	ids      []EntityId
	rows     []T
	executed bool
}

// NewQuery creates a Query over world.
func NewQuery[T any](world *World) *Query[T] {
	q := &Query[T]{}
	q.Init(world)
	return q
}

// Init binds the query to world and drops any captured rows.
func (q *Query[T]) Init(world *World) {
	q.view = NewView[T](world)
	q.ids, q.rows = q.ids[:0], q.rows[:0]
	q.executed = false
}

// Execute captures the entities currently matching the view.
func (q *Query[T]) Execute() {
	q.ids, q.rows = q.ids[:0], q.rows[:0]
	for id, row := range q.view.Iter() {
		q.ids = append(q.ids, id)
		q.rows = append(q.rows, row)
	}
	q.executed = true
}

// Len returns the number of captured rows.
func (q *Query[T]) Len() int {
	return len(q.rows)
}

// Iter yields the captured rows with their entity ids. It panics if the
// query was never executed.
func (q *Query[T]) Iter() iter.Seq2[EntityId, T] {
	q.mustExecute("Iter")
	return func(yield func(EntityId, T) bool) {
		for i, row := range q.rows {
			if !yield(q.ids[i], row) {
				return
			}
		}
	}
}

// Values yields the captured rows. It panics if the query was never
// executed.
func (q *Query[T]) Values() iter.Seq[T] {
	q.mustExecute("Values")
	return func(yield func(T) bool) {
		for _, row := range q.rows {
			if !yield(row) {
				return
			}
		}
	}
}

func (q *Query[T]) mustExecute(method string) {
	if !q.executed {
		panic("Query." + method + "() called before Query.Execute()")
	}
}
