package ecs

import (
	"iter"
	"reflect"
	"slices"
	"unsafe"
)

var entityIdType = reflect.TypeFor[EntityId]()

// eface mirrors the runtime layout of an empty interface. Arenas hand out
// components as a boxed *T, so data is the component's address.
type eface struct {
	typ  unsafe.Pointer
	data unsafe.Pointer
}

// View represents a query for entities with a specific combination of components
// The type T should be a struct with embedded pointer fields for each component type
// Named fields can be marked as optional using the `ecs:"optional"` struct tag
// A field of type EntityId, embedded or named, receives the entity's id
type View[T any] struct {
	world       *World
	types       []reflect.Type
	optional    []bool
	fieldOffset []uintptr
	idOffset    uintptr
	hasId       bool
}

// NewView creates a new view for the given struct type
// The struct T should have embedded or named fields that are pointers to component types
// Embedded fields are always required
// Named fields can be marked as optional using the `ecs:"optional"` struct tag
func NewView[T any](world *World) *View[T] {
	structType := reflect.TypeFor[T]()

	if structType.Kind() != reflect.Struct {
		panic("View type parameter must be a struct")
	}

	v := &View[T]{world: world}

	for i := 0; i < structType.NumField(); i++ {
		field := structType.Field(i)
		fieldType := field.Type

		if fieldType == entityIdType {
			v.idOffset = field.Offset
			v.hasId = true
			continue
		}

		if fieldType.Kind() != reflect.Ptr {
			panic("View struct fields must be pointer types or EntityId")
		}

		// Parse struct tag to check if component is optional
		// Embedded fields (field.Anonymous) are always required
		isOptional := false
		if !field.Anonymous {
			tag := field.Tag.Get("ecs")
			if tag != "" {
				if tag == "optional" {
					isOptional = true
				} else {
					panic("invalid ecs tag value: \"" + tag + "\" (only \"optional\" is supported)")
				}
			}
		}

		v.types = append(v.types, fieldType.Elem())
		v.fieldOffset = append(v.fieldOffset, field.Offset)
		v.optional = append(v.optional, isOptional)
	}

	return v
}

// Fill populates the provided struct pointer with component data for the given entity
// Returns false if the entity is missing any required components
// Optional components are set to nil if not present
func (v *View[T]) Fill(id EntityId, ptr *T) bool {
	v.world.entityMu.RLock()
	defer v.world.entityMu.RUnlock()

	if _, ok := v.world.entities.Get(id); !ok {
		return false
	}

	v.world.componentMu.RLock()
	defer v.world.componentMu.RUnlock()

	return v.fillLocked(id, unsafe.Pointer(ptr))
}

func (v *View[T]) fillLocked(id EntityId, structPtr unsafe.Pointer) bool {
	for i, componentType := range v.types {
		// Calculate the address of the field using the pre-computed offset
		fieldPtr := unsafe.Pointer(uintptr(structPtr) + v.fieldOffset[i])

		var component any
		if store := v.world.stores[componentType]; store != nil {
			component = store.Get(id)
		}

		if component == nil {
			if !v.optional[i] {
				return false
			}
			*(*unsafe.Pointer)(fieldPtr) = nil
			continue
		}

		componentPtr := (*eface)(unsafe.Pointer(&component)).data
		*(*unsafe.Pointer)(fieldPtr) = componentPtr
	}

	if v.hasId {
		*(*EntityId)(unsafe.Pointer(uintptr(structPtr) + v.idOffset)) = id
	}
	return true
}

// Get returns a populated view struct for the given entity, or nil if the entity
// doesn't have all the required components
func (v *View[T]) Get(id EntityId) *T {
	var result T
	if !v.Fill(id, &result) {
		return nil
	}
	return &result
}

// candidates returns the entities worth filling: the owners of the smallest
// required arena, or every entity when all components are optional.
func (v *View[T]) candidates() []EntityId {
	v.world.entityMu.RLock()
	defer v.world.entityMu.RUnlock()
	v.world.componentMu.RLock()
	defer v.world.componentMu.RUnlock()

	var driver iComponentStorage
	required := false
	for i, typ := range v.types {
		if v.optional[i] {
			continue
		}
		required = true
		store := v.world.stores[typ]
		if store == nil {
			return nil
		}
		if driver == nil || store.Len() < driver.Len() {
			driver = store
		}
	}

	if !required {
		ids := make([]EntityId, 0, len(v.world.names))
		for _, id := range v.world.names {
			ids = append(ids, id)
		}
		slices.Sort(ids)
		return ids
	}

	ids := make([]EntityId, 0, driver.Len())
	for id := range driver.Iter() {
		ids = append(ids, id)
	}
	return ids
}

// Iter returns an iterator over all entities that have all the required components for this view
// The iterator yields (EntityId, T) pairs where T is the populated view struct
// Optional components are set to nil if not present
// No lock is held while the loop body runs, so the body may change the world
func (v *View[T]) Iter() iter.Seq2[EntityId, T] {
	return func(yield func(EntityId, T) bool) {
		var result T
		for _, id := range v.candidates() {
			if !v.Fill(id, &result) {
				continue
			}
			if !yield(id, result) {
				return
			}
		}
	}
}

// Values returns an iterator over just the view structs (without entity IDs)
// This is useful when you only care about the component data, not which entity it belongs to
func (v *View[T]) Values() iter.Seq[T] {
	return func(yield func(T) bool) {
		for _, value := range v.Iter() {
			if !yield(value) {
				return
			}
		}
	}
}

// Spawn creates a new entity with components extracted from the view struct
// Nil optional components are skipped; a nil required component panics
func (v *View[T]) Spawn(data T) (EntityId, error) {
	structPtr := unsafe.Pointer(&data)

	components := make([]any, len(v.types))
	for i, componentType := range v.types {
		fieldPtr := unsafe.Pointer(uintptr(structPtr) + v.fieldOffset[i])
		componentPtr := *(*unsafe.Pointer)(fieldPtr)

		if componentPtr == nil {
			if !v.optional[i] {
				panic("required component is nil in View.Spawn")
			}
			continue
		}
		components[i] = reflect.NewAt(componentType, componentPtr).Interface()
	}

	id, err := v.world.NewEntity()
	if err != nil {
		return InvalidEntity, err
	}

	for i, component := range components {
		if component == nil {
			continue
		}
		v.world.addComponentValue(id, v.types[i], component)
	}
	return id, nil
}
