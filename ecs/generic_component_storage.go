package ecs

import (
	"iter"
	"reflect"
	"sort"

	"github.com/kamstrup/intmap"
)

// ComponentRegistry is the closed set of component types a World may store.
// Each World creates its own arenas from the registry, so one registry can
// back several independent worlds.
type ComponentRegistry struct {
	factories map[reflect.Type]func() iComponentStorage
}

// NewComponentRegistry creates a registry that already knows the Dispatcher
// component.
func NewComponentRegistry() *ComponentRegistry {
	r := &ComponentRegistry{
		factories: make(map[reflect.Type]func() iComponentStorage),
	}
	RegisterComponent[Dispatcher](r)
	return r
}

// RegisterComponent registers a new component type with the given registry.
// This must be called for each component type before it can be used.
// Components are concrete values; registering an interface type panics.
func RegisterComponent[T any](r *ComponentRegistry) {
	t := reflect.TypeFor[T]()
	if !isConcreteComponent(t) {
		panic("components cannot be interfaces, pointers, maps, channels, or functions: " + t.String())
	}
	r.factories[t] = func() iComponentStorage {
		return newGenericComponentStorage[T]()
	}
}

// Types returns the registered component types sorted by name.
func (r *ComponentRegistry) Types() []reflect.Type {
	types := make([]reflect.Type, 0, len(r.factories))
	for t := range r.factories {
		types = append(types, t)
	}
	sort.Sort(byTypeName(types))
	return types
}

// getFactory returns the factory function for a given component type.
// Returns nil if the type is not registered.
func (r *ComponentRegistry) getFactory(t reflect.Type) func() iComponentStorage {
	return r.factories[t]
}

func isConcreteComponent(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Interface, reflect.Ptr, reflect.Map, reflect.Chan, reflect.Func:
		return false
	}
	return true
}

type byTypeName []reflect.Type

func (a byTypeName) Len() int           { return len(a) }
func (a byTypeName) Swap(i, j int)      { a[i], a[j] = a[j], a[i] }
func (a byTypeName) Less(i, j int) bool { return a[i].String() < a[j].String() }

const (
	genericBlockSize = 64
)

// genericComponentStorage stores components of type T in fixed-size blocks.
// Blocks are allocated individually and never moved, so a *T handed out by
// Get stays valid until its component is deleted.
type genericComponentStorage[T any] struct {
	typ       reflect.Type
	blocks    []*[genericBlockSize]T
	owners    []EntityId
	slots     *intmap.Map[EntityId, int]
	freeSlots []int
	nextIndex int
}

func newGenericComponentStorage[T any]() *genericComponentStorage[T] {
	return &genericComponentStorage[T]{
		typ:   reflect.TypeFor[T](),
		slots: intmap.New[EntityId, int](64),
	}
}

func (cs *genericComponentStorage[T]) Type() reflect.Type {
	return cs.typ
}

// Insert stores value for id. It returns nil if id already owns a component
// in this arena.
func (cs *genericComponentStorage[T]) Insert(id EntityId, value T) *T {
	if _, ok := cs.slots.Get(id); ok {
		return nil
	}

	var index int
	if len(cs.freeSlots) > 0 {
		index = cs.freeSlots[len(cs.freeSlots)-1]
		cs.freeSlots = cs.freeSlots[:len(cs.freeSlots)-1]
	} else {
		index = cs.nextIndex
		cs.nextIndex++
		if index/genericBlockSize >= len(cs.blocks) {
			cs.blocks = append(cs.blocks, new([genericBlockSize]T))
		}
		cs.owners = append(cs.owners, InvalidEntity)
	}

	ptr := &cs.blocks[index/genericBlockSize][index%genericBlockSize]
	*ptr = value
	cs.owners[index] = id
	cs.slots.Put(id, index)
	return ptr
}

func (cs *genericComponentStorage[T]) Append(id EntityId, item any) bool {
	var value T
	if ptr, ok := item.(*T); ok {
		value = *ptr
	} else if val, ok := item.(T); ok {
		value = val
	} else {
		return false
	}
	return cs.Insert(id, value) != nil
}

// Lookup returns a typed pointer to the entity's component, or nil.
func (cs *genericComponentStorage[T]) Lookup(id EntityId) *T {
	index, ok := cs.slots.Get(id)
	if !ok {
		return nil
	}
	return &cs.blocks[index/genericBlockSize][index%genericBlockSize]
}

// Get returns a pointer to the component owned by id.
func (cs *genericComponentStorage[T]) Get(id EntityId) any {
	ptr := cs.Lookup(id)
	if ptr == nil {
		return nil
	}
	return ptr
}

func (cs *genericComponentStorage[T]) Has(id EntityId) bool {
	_, ok := cs.slots.Get(id)
	return ok
}

// Delete zeroes the entity's slot and makes it available for reuse.
func (cs *genericComponentStorage[T]) Delete(id EntityId) bool {
	index, ok := cs.slots.Get(id)
	if !ok {
		return false
	}

	var zero T
	cs.blocks[index/genericBlockSize][index%genericBlockSize] = zero
	cs.owners[index] = InvalidEntity
	cs.slots.Del(id)
	cs.freeSlots = append(cs.freeSlots, index)
	return true
}

func (cs *genericComponentStorage[T]) Len() int {
	return cs.slots.Len()
}

func (cs *genericComponentStorage[T]) Iter() iter.Seq[EntityId] {
	return func(yield func(EntityId) bool) {
		for i := 0; i < cs.nextIndex; i++ {
			owner := cs.owners[i]
			if owner == InvalidEntity {
				continue
			}
			if !yield(owner) {
				return
			}
		}
	}
}
