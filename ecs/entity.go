package ecs

import (
	"math"
	"reflect"
)

// EntityId identifies a live entity. Ids are allocated from a monotonic
// counter and are never encoded with storage details, so they stay valid for
// the entity's whole lifetime regardless of which components it carries.
type EntityId uint32

const (
	// InvalidEntity is returned when no entity could be allocated or found.
	InvalidEntity EntityId = 0

	// EntityStart is the first id handed out by a default World.
	EntityStart EntityId = 1

	// EntityMax is the exclusive upper bound of ids for a default World.
	EntityMax EntityId = math.MaxUint32
)

// entityRecord is the registry's bookkeeping for one entity.
type entityRecord struct {
	name string
	// types lists the entity's component types in attach order.
	types []reflect.Type
}

func (r *entityRecord) removeType(t reflect.Type) {
	for i, typ := range r.types {
		if typ == t {
			r.types = append(r.types[:i], r.types[i+1:]...)
			return
		}
	}
}
