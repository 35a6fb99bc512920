package ecs

import (
	"reflect"
)

// AddComponent attaches value to the entity. It fails if the entity does not
// exist or already owns a component of exactly type T, in which case the
// existing component is left untouched.
//
// Lookups (HasComponent, GetComponent, ...) match by compatibility instead:
// an interface T finds any component implementing it. A component can
// therefore be found through an interface while a second component
// implementing the same interface is still accepted here.
func AddComponent[T any](w *World, id EntityId, value T) bool {
	t := reflect.TypeFor[T]()
	if !isConcreteComponent(t) {
		panic("components cannot be interfaces, pointers, maps, channels, or functions: " + t.String())
	}

	w.entityMu.Lock()
	defer w.entityMu.Unlock()

	rec, ok := w.entities.Get(id)
	if !ok {
		return false
	}

	w.componentMu.Lock()
	defer w.componentMu.Unlock()

	store := w.storeLocked(t).(*genericComponentStorage[T])
	if store.Insert(id, value) == nil {
		return false
	}
	rec.types = append(rec.types, t)
	return true
}

// addComponentValue is AddComponent for callers that only know the type at
// run time. item is a value of type t or a pointer to one.
func (w *World) addComponentValue(id EntityId, t reflect.Type, item any) bool {
	w.entityMu.Lock()
	defer w.entityMu.Unlock()

	rec, ok := w.entities.Get(id)
	if !ok {
		return false
	}

	w.componentMu.Lock()
	defer w.componentMu.Unlock()

	if !w.storeLocked(t).Append(id, item) {
		return false
	}
	rec.types = append(rec.types, t)
	return true
}

// DeleteComponent removes the entity's first component compatible with T.
func DeleteComponent[T any](w *World, id EntityId) bool {
	t := reflect.TypeFor[T]()

	w.entityMu.Lock()
	defer w.entityMu.Unlock()

	rec, ok := w.entities.Get(id)
	if !ok {
		return false
	}

	w.componentMu.Lock()
	defer w.componentMu.Unlock()

	store, _ := w.findLocked(rec, id, t)
	if store == nil {
		return false
	}
	store.Delete(id)
	rec.removeType(store.Type())
	return true
}

// removeComponentType removes the entity's component of exactly type t.
func (w *World) removeComponentType(id EntityId, t reflect.Type) bool {
	w.entityMu.Lock()
	defer w.entityMu.Unlock()

	rec, ok := w.entities.Get(id)
	if !ok {
		return false
	}

	w.componentMu.Lock()
	defer w.componentMu.Unlock()

	store := w.stores[t]
	if store == nil || !store.Delete(id) {
		return false
	}
	rec.removeType(t)
	return true
}

// HasComponent reports whether the entity owns a component compatible with T.
func HasComponent[T any](w *World, id EntityId) bool {
	_, err := lookup(w, id, reflect.TypeFor[T]())
	return err == nil
}

// GetComponent returns a copy of the entity's component compatible with T.
// When T is an interface implemented by the component's pointer type, the
// returned value refers to the stored component.
func GetComponent[T any](w *World, id EntityId) (T, error) {
	ptr, err := lookup(w, id, reflect.TypeFor[T]())
	if err != nil {
		var zero T
		return zero, err
	}
	return valueOf[T](ptr), nil
}

// SetComponent returns a mutable handle to the entity's component compatible
// with T. For a concrete T the handle points into the world's arena and stays
// valid until the component is deleted. For an interface T the handle holds
// the stored component's pointer whenever that pointer implements T, so
// method calls through it mutate the stored value.
func SetComponent[T any](w *World, id EntityId) (*T, error) {
	ptr, err := lookup(w, id, reflect.TypeFor[T]())
	if err != nil {
		return nil, err
	}
	if p, ok := ptr.(*T); ok {
		return p, nil
	}
	handle := valueOf[T](ptr)
	return &handle, nil
}

// MustComponent is SetComponent for components the caller knows are present.
// A missing component is a logic error and panics.
func MustComponent[T any](w *World, id EntityId) *T {
	ptr, err := SetComponent[T](w, id)
	if err != nil {
		panic(err)
	}
	return ptr
}

// GetComponents returns a snapshot of every component compatible with T,
// keyed by owning entity. Values are copied under the read lock, so the
// result may be used by another goroutine while the world keeps changing.
func GetComponents[T any](w *World) map[EntityId]T {
	out := make(map[EntityId]T)
	collect(w, reflect.TypeFor[T](), func(id EntityId, ptr any) {
		out[id] = valueOf[T](ptr)
	})
	return out
}

// SetComponents returns mutable handles to every component compatible with
// T, keyed by owning entity.
func SetComponents[T any](w *World) map[EntityId]*T {
	out := make(map[EntityId]*T)
	collect(w, reflect.TypeFor[T](), func(id EntityId, ptr any) {
		if p, ok := ptr.(*T); ok {
			out[id] = p
			return
		}
		handle := valueOf[T](ptr)
		out[id] = &handle
	})
	return out
}

func lookup(w *World, id EntityId, t reflect.Type) (any, error) {
	w.entityMu.RLock()
	defer w.entityMu.RUnlock()

	rec, ok := w.entities.Get(id)
	if !ok {
		return nil, notFound(t, id)
	}

	w.componentMu.RLock()
	defer w.componentMu.RUnlock()

	_, ptr := w.findLocked(rec, id, t)
	if ptr == nil {
		return nil, notFound(t, id)
	}
	return ptr, nil
}

// collect visits, once per entity, the first component compatible with t.
func collect(w *World, t reflect.Type, visit func(EntityId, any)) {
	w.entityMu.RLock()
	defer w.entityMu.RUnlock()
	w.componentMu.RLock()
	defer w.componentMu.RUnlock()

	if t.Kind() != reflect.Interface {
		store := w.stores[t]
		if store == nil {
			return
		}
		for id := range store.Iter() {
			visit(id, store.Get(id))
		}
		return
	}

	seen := make(map[EntityId]bool)
	for _, typ := range w.storeOrder {
		if !implements(typ, t) {
			continue
		}
		for id := range w.stores[typ].Iter() {
			if seen[id] {
				continue
			}
			seen[id] = true
			rec, ok := w.entities.Get(id)
			if !ok {
				continue
			}
			if _, ptr := w.findLocked(rec, id, t); ptr != nil {
				visit(id, ptr)
			}
		}
	}
}

// valueOf converts a stored component pointer to T: the component itself
// for T equal to its type, the pointer when it implements T, otherwise a
// copy of the value boxed as T.
func valueOf[T any](ptr any) T {
	if p, ok := ptr.(*T); ok {
		return *p
	}
	if v, ok := ptr.(T); ok {
		return v
	}
	return reflect.ValueOf(ptr).Elem().Interface().(T)
}
