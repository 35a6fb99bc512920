package ecs

import (
	"iter"
	"reflect"
)

// iComponentStorage is a type-erased arena holding every component of one
// concrete type, indexed by owning entity.
type iComponentStorage interface {
	Type() reflect.Type
	// Append stores item, a T or *T, for id. It fails on a type mismatch or
	// if id already owns a component here.
	Append(id EntityId, item any) bool
	// Get returns a pointer to the entity's component, or nil.
	Get(id EntityId) any
	Has(id EntityId) bool
	Delete(id EntityId) bool
	Len() int
	// Iter yields owners in slot order.
	Iter() iter.Seq[EntityId]
}
