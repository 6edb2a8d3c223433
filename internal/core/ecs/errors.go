package ecs

import (
	"errors"
	"fmt"
)

var (
	// ErrComponentNotFound means a system asked for a component its selector
	// did not guarantee. It indicates a registration bug, not a game condition.
	ErrComponentNotFound = errors.New("component not found")

	// ErrLiveAttach is returned when a component is attached to an entity that
	// is already visible to selectors. Components are only attached at spawn.
	ErrLiveAttach = errors.New("attach to live entity")

	// ErrStaleEntity is returned for operations on destroyed or unknown IDs.
	ErrStaleEntity = errors.New("stale entity")
)

// ComponentNotFoundError names the entity and the component type that was missing.
type ComponentNotFoundError struct {
	Entity    EntityID
	Component string
}

func (e *ComponentNotFoundError) Error() string {
	return fmt.Sprintf("entity %d (gen %d): %s: %v",
		e.Entity.Index(), e.Entity.Generation(), e.Component, ErrComponentNotFound)
}

func (e *ComponentNotFoundError) Unwrap() error { return ErrComponentNotFound }
