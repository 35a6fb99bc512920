package ecs

import (
	"errors"
	"fmt"
	"reflect"
	"slices"
	"sync"

	"github.com/kamstrup/intmap"
	"go.uber.org/zap"
)

var (
	// ErrComponentNotFound is returned when an entity has no component
	// compatible with the requested type.
	ErrComponentNotFound = errors.New("component not found")

	// ErrNoFreeEntityId is returned when every id in the world's range is in
	// use.
	ErrNoFreeEntityId = errors.New("no free entity id")
)

// World is the entity registry. It owns every entity, its unique name and
// the typed arenas holding the entity's components.
//
// Two advisory locks guard the entity index and the component arenas; they
// are always taken in that order. Component handles returned by SetComponent
// and friends are not protected once the call returns: the engine assumes a
// single writer per tick, and concurrent readers should use GetComponents,
// which copies values under the read lock.
type World struct {
	registry *ComponentRegistry
	log      *zap.Logger

	entityMu sync.RWMutex
	entities *intmap.Map[EntityId, *entityRecord]
	names    map[string]EntityId
	next     EntityId
	start    EntityId
	max      EntityId

	componentMu sync.RWMutex
	stores      map[reflect.Type]iComponentStorage
	storeOrder  []reflect.Type
	singletons  map[reflect.Type]any
}

// WorldOption configures a World.
type WorldOption func(*World)

// WithIdRange limits entity ids to [start, end).
func WithIdRange(start, end EntityId) WorldOption {
	return func(w *World) {
		if start == InvalidEntity {
			start = EntityStart
		}
		w.start = start
		w.max = end
	}
}

// WithWorldLogger sets the logger used for registry diagnostics.
func WithWorldLogger(log *zap.Logger) WorldOption {
	return func(w *World) {
		if log != nil {
			w.log = log
		}
	}
}

// NewWorld creates an empty world storing the component types known to
// registry.
func NewWorld(registry *ComponentRegistry, opts ...WorldOption) *World {
	w := &World{
		registry:   registry,
		log:        zap.NewNop(),
		entities:   intmap.New[EntityId, *entityRecord](256),
		names:      make(map[string]EntityId),
		start:      EntityStart,
		max:        EntityMax,
		stores:     make(map[reflect.Type]iComponentStorage),
		singletons: make(map[reflect.Type]any),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.next = w.start
	return w
}

// NewEntity allocates an entity with a generated unique name. Ids come from a
// monotonic counter; once the counter is exhausted the id range is scanned for
// the first free id.
func (w *World) NewEntity() (EntityId, error) {
	w.entityMu.Lock()
	defer w.entityMu.Unlock()

	id := w.allocateId()
	if id == InvalidEntity {
		w.log.Warn("entity id range exhausted",
			zap.Uint32("start", uint32(w.start)),
			zap.Uint32("max", uint32(w.max)),
		)
		return InvalidEntity, ErrNoFreeEntityId
	}

	name := w.uniqueName(fmt.Sprintf("Entity%d", id))
	w.entities.Put(id, &entityRecord{name: name})
	w.names[name] = id
	return id, nil
}

func (w *World) allocateId() EntityId {
	if w.next < w.max {
		id := w.next
		w.next++
		return id
	}

	for id := w.start; id < w.max; id++ {
		if _, used := w.entities.Get(id); !used {
			return id
		}
	}
	return InvalidEntity
}

func (w *World) uniqueName(base string) string {
	name := base
	for n := 1; ; n++ {
		if _, taken := w.names[name]; !taken {
			return name
		}
		name = fmt.Sprintf("%s_%d", base, n)
	}
}

// DeleteEntity removes the entity and every component it owns.
func (w *World) DeleteEntity(id EntityId) bool {
	w.entityMu.Lock()
	defer w.entityMu.Unlock()

	rec, ok := w.entities.Get(id)
	if !ok {
		return false
	}

	w.componentMu.Lock()
	for _, t := range rec.types {
		if store := w.stores[t]; store != nil {
			store.Delete(id)
		}
	}
	w.componentMu.Unlock()

	delete(w.names, rec.name)
	w.entities.Del(id)
	return true
}

// EntityExists reports whether id names a live entity.
func (w *World) EntityExists(id EntityId) bool {
	w.entityMu.RLock()
	defer w.entityMu.RUnlock()

	_, ok := w.entities.Get(id)
	return ok
}

// Name returns the entity's name.
func (w *World) Name(id EntityId) (string, bool) {
	w.entityMu.RLock()
	defer w.entityMu.RUnlock()

	rec, ok := w.entities.Get(id)
	if !ok {
		return "", false
	}
	return rec.name, true
}

// SetName renames an entity. It fails if the entity does not exist or another
// live entity already uses name.
func (w *World) SetName(id EntityId, name string) bool {
	w.entityMu.Lock()
	defer w.entityMu.Unlock()

	rec, ok := w.entities.Get(id)
	if !ok {
		return false
	}
	if owner, taken := w.names[name]; taken {
		return owner == id
	}

	delete(w.names, rec.name)
	rec.name = name
	w.names[name] = id
	return true
}

// ID resolves an entity name.
func (w *World) ID(name string) (EntityId, bool) {
	w.entityMu.RLock()
	defer w.entityMu.RUnlock()

	id, ok := w.names[name]
	if !ok {
		return InvalidEntity, false
	}
	return id, true
}

// Len returns the number of live entities.
func (w *World) Len() int {
	w.entityMu.RLock()
	defer w.entityMu.RUnlock()

	return w.entities.Len()
}

// Entities returns every live entity id in ascending order.
func (w *World) Entities() []EntityId {
	w.entityMu.RLock()
	defer w.entityMu.RUnlock()

	ids := make([]EntityId, 0, len(w.names))
	for _, id := range w.names {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// ComponentTypes returns the entity's component types in attach order.
func (w *World) ComponentTypes(id EntityId) []reflect.Type {
	w.entityMu.RLock()
	defer w.entityMu.RUnlock()

	rec, ok := w.entities.Get(id)
	if !ok {
		return nil
	}
	return slices.Clone(rec.types)
}

// Registry returns the component registry backing the world.
func (w *World) Registry() *ComponentRegistry {
	return w.registry
}

// storeLocked returns the arena for t, creating it from the registry on first
// use. Callers hold componentMu for writing.
func (w *World) storeLocked(t reflect.Type) iComponentStorage {
	if store, ok := w.stores[t]; ok {
		return store
	}

	factory := w.registry.getFactory(t)
	if factory == nil {
		panic("component type " + t.String() + " not registered")
	}
	store := factory()
	w.stores[t] = store
	w.storeOrder = append(w.storeOrder, t)
	return store
}

// findLocked returns the first component of the entity compatible with t:
// the arena of t itself for concrete types, otherwise the first attached
// component whose type or pointer type implements the interface t. Callers
// hold entityMu and componentMu for reading.
func (w *World) findLocked(rec *entityRecord, id EntityId, t reflect.Type) (iComponentStorage, any) {
	if t.Kind() != reflect.Interface {
		store := w.stores[t]
		if store == nil {
			return nil, nil
		}
		ptr := store.Get(id)
		if ptr == nil {
			return nil, nil
		}
		return store, ptr
	}

	for _, typ := range rec.types {
		if !implements(typ, t) {
			continue
		}
		store := w.stores[typ]
		if ptr := store.Get(id); ptr != nil {
			return store, ptr
		}
	}
	return nil, nil
}

func implements(concrete, target reflect.Type) bool {
	return concrete.Implements(target) || reflect.PointerTo(concrete).Implements(target)
}

func notFound(t reflect.Type, id EntityId) error {
	return fmt.Errorf("%w: %s on entity %d", ErrComponentNotFound, t, id)
}
