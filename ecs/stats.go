package ecs

import (
	"reflect"
	"sort"
)

// WorldStats summarizes the contents of a World.
type WorldStats struct {
	EntityCount    int
	StoreCount     int
	ComponentCount int
	SingletonCount int
	Stores         []StoreStats
	SingletonTypes []string
}

// StoreStats describes one component arena.
type StoreStats struct {
	Type  string
	Count int
}

// CollectStats returns a snapshot of entity, arena and singleton counts.
// Arenas and singletons are listed by type name.
func (w *World) CollectStats() WorldStats {
	w.entityMu.RLock()
	defer w.entityMu.RUnlock()
	w.componentMu.RLock()
	defer w.componentMu.RUnlock()

	stats := WorldStats{
		EntityCount:    w.entities.Len(),
		StoreCount:     len(w.stores),
		SingletonCount: len(w.singletons),
	}

	types := make([]reflect.Type, 0, len(w.stores))
	for t := range w.stores {
		types = append(types, t)
	}
	sort.Sort(byTypeName(types))

	for _, t := range types {
		n := w.stores[t].Len()
		stats.ComponentCount += n
		stats.Stores = append(stats.Stores, StoreStats{Type: t.String(), Count: n})
	}

	for t := range w.singletons {
		stats.SingletonTypes = append(stats.SingletonTypes, t.String())
	}
	sort.Strings(stats.SingletonTypes)

	return stats
}
