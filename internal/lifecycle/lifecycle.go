// Package lifecycle moves entities between active, soft-deleted and removed
// states. Every transition is authorized before the store is touched.
package lifecycle

import (
	"context"
	"fmt"

	"github.com/jokesdb/jokes-api/internal/authz"
	"github.com/jokesdb/jokes-api/internal/rbac"
	"github.com/jokesdb/jokes-api/internal/shared"
)

// Store is the persistence a Manager drives. Find must return an error of
// shared.KindNotFound for missing rows and only return soft-deleted rows when
// withTrashed is set.
type Store[T any] interface {
	Find(ctx context.Context, id int64, withTrashed bool) (T, error)
	SoftDelete(ctx context.Context, id int64) error
	Restore(ctx context.Context, id int64) error
	ForceDelete(ctx context.Context, id int64) error
}

// Hook runs around a transition. A before hook error aborts it.
type Hook[T any] func(ctx context.Context, entity T) error

// Manager runs the guarded transitions for one entity type.
type Manager[T any] struct {
	store  Store[T]
	engine *authz.Engine
	target func(T) authz.Target

	beforeRestore    []Hook[T]
	afterDelete      []Hook[T]
	afterForceDelete []Hook[T]
}

// Option configures a Manager.
type Option[T any] func(*Manager[T])

// BeforeRestore registers hooks run once a restore is authorized and before
// the store is touched.
func BeforeRestore[T any](hooks ...Hook[T]) Option[T] {
	return func(m *Manager[T]) { m.beforeRestore = append(m.beforeRestore, hooks...) }
}

// AfterDelete registers hooks run after a soft delete.
func AfterDelete[T any](hooks ...Hook[T]) Option[T] {
	return func(m *Manager[T]) { m.afterDelete = append(m.afterDelete, hooks...) }
}

// AfterForceDelete registers hooks run after a permanent delete.
func AfterForceDelete[T any](hooks ...Hook[T]) Option[T] {
	return func(m *Manager[T]) { m.afterForceDelete = append(m.afterForceDelete, hooks...) }
}

// NewManager builds a Manager. target projects an entity for the engine.
func NewManager[T any](store Store[T], engine *authz.Engine, target func(T) authz.Target, opts ...Option[T]) *Manager[T] {
	m := &Manager[T]{store: store, engine: engine, target: target}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Delete soft-deletes an active entity.
func (m *Manager[T]) Delete(ctx context.Context, actor rbac.Actor, id int64) (T, error) {
	entity, err := m.store.Find(ctx, id, false)
	if err != nil {
		return entity, err
	}
	if err := m.engine.Check(actor, authz.VerbDelete, m.target(entity)); err != nil {
		return entity, err
	}
	if err := m.store.SoftDelete(ctx, id); err != nil {
		return entity, fmt.Errorf("lifecycle: soft delete: %w", err)
	}
	return entity, runHooks(ctx, entity, m.afterDelete)
}

// Restore brings a soft-deleted entity back. Restoring an active entity is a
// conflict.
func (m *Manager[T]) Restore(ctx context.Context, actor rbac.Actor, id int64) (T, error) {
	entity, err := m.store.Find(ctx, id, true)
	if err != nil {
		return entity, err
	}
	t := m.target(entity)
	if err := m.engine.Check(actor, authz.VerbRestore, t); err != nil {
		return entity, err
	}
	if !t.Trashed {
		return entity, shared.Conflict(t.Resource.Title() + " is not deleted")
	}
	for _, h := range m.beforeRestore {
		if err := h(ctx, entity); err != nil {
			return entity, err
		}
	}
	if err := m.store.Restore(ctx, id); err != nil {
		return entity, fmt.Errorf("lifecycle: restore: %w", err)
	}
	return m.store.Find(ctx, id, false)
}

// ForceDelete permanently removes an entity, active or soft-deleted.
func (m *Manager[T]) ForceDelete(ctx context.Context, actor rbac.Actor, id int64) (T, error) {
	entity, err := m.store.Find(ctx, id, true)
	if err != nil {
		return entity, err
	}
	if err := m.engine.Check(actor, authz.VerbForceDelete, m.target(entity)); err != nil {
		return entity, err
	}
	if err := m.store.ForceDelete(ctx, id); err != nil {
		return entity, fmt.Errorf("lifecycle: force delete: %w", err)
	}
	return entity, runHooks(ctx, entity, m.afterForceDelete)
}

func runHooks[T any](ctx context.Context, entity T, hooks []Hook[T]) error {
	for _, h := range hooks {
		if err := h(ctx, entity); err != nil {
			return fmt.Errorf("lifecycle: hook: %w", err)
		}
	}
	return nil
}
