package ecs

import (
	"reflect"

	"go.uber.org/zap"
)

// Commands provides a buffer for deferred World operations that are executed
// after every system of the tick has run. This lets a system change the
// world's structure while it iterates over a Query.
type Commands struct {
	creates []createCommand
	deletes []EntityId
	adds    []addComponentCommand
	removes []removeComponentCommand
	defers  []func()
}

func newCommands() *Commands {
	return &Commands{}
}

type createCommand struct {
	name       string
	components []any
}

type addComponentCommand struct {
	entity    EntityId
	component any
}

type removeComponentCommand struct {
	entity   EntityId
	compType reflect.Type
}

// Defer queues a function execution operation.
func (c *Commands) Defer(fn func()) {
	c.defers = append(c.defers, fn)
}

// Create queues creation of an entity carrying the given components. An empty
// name keeps the generated one.
func (c *Commands) Create(name string, components ...any) {
	c.creates = append(c.creates, createCommand{name: name, components: components})
}

// Delete queues an entity deletion operation.
func (c *Commands) Delete(entity EntityId) {
	c.deletes = append(c.deletes, entity)
}

// AddComponent queues a component addition operation. component is a value
// or a pointer to one.
func (c *Commands) AddComponent(entity EntityId, component any) {
	c.adds = append(c.adds, addComponentCommand{
		entity:    entity,
		component: component,
	})
}

// RemoveComponent queues removal of the entity's component of type compType.
func (c *Commands) RemoveComponent(entity EntityId, compType reflect.Type) {
	c.removes = append(c.removes, removeComponentCommand{
		entity:   entity,
		compType: compType,
	})
}

// Len returns the number of queued operations.
func (c *Commands) Len() int {
	return len(c.creates) + len(c.deletes) + len(c.adds) + len(c.removes) + len(c.defers)
}

// Flush applies all queued commands to world and resets the buffer. Deletes
// run first; adds and removes aimed at deleted entities are dropped. Commands
// queued while flushing, from a Defer callback for instance, are applied in a
// further pass.
func (c *Commands) Flush(world *World, log *zap.Logger) {
	for c.Len() > 0 {
		batch := *c
		*c = Commands{}
		batch.apply(world, log)
	}
}

func (c *Commands) apply(world *World, log *zap.Logger) {
	deletedEntities := make(map[EntityId]bool)

	for _, id := range c.deletes {
		world.DeleteEntity(id)
		deletedEntities[id] = true
	}

	for _, cmd := range c.removes {
		if !deletedEntities[cmd.entity] {
			world.removeComponentType(cmd.entity, cmd.compType)
		}
	}

	for _, cmd := range c.adds {
		if deletedEntities[cmd.entity] {
			continue
		}
		if !world.addComponentValue(cmd.entity, componentType(cmd.component), cmd.component) {
			log.Debug("deferred component add rejected",
				zap.Uint32("entity", uint32(cmd.entity)),
				zap.Stringer("type", componentType(cmd.component)),
			)
		}
	}

	for _, cmd := range c.creates {
		id, err := world.NewEntity()
		if err != nil {
			log.Error("deferred entity creation failed", zap.Error(err))
			continue
		}
		if cmd.name != "" && !world.SetName(id, cmd.name) {
			log.Warn("deferred entity name taken", zap.String("name", cmd.name))
		}
		for _, component := range cmd.components {
			world.addComponentValue(id, componentType(component), component)
		}
	}

	for _, fn := range c.defers {
		fn()
	}
}

func componentType(component any) reflect.Type {
	t := reflect.TypeOf(component)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t
}
