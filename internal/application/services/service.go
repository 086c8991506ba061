// Package services implements the open finance use cases on top of the
// idempotency executor, the consent authorizer and the resource repositories.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/DanielPopoola/openfinance-gateway/internal/application"
	"github.com/DanielPopoola/openfinance-gateway/internal/domain"
	"github.com/DanielPopoola/openfinance-gateway/internal/metrics"
	"github.com/google/uuid"
)

const (
	EventCreated   = "created"
	EventFinalized = "finalized"
)

// Core bundles the collaborators every service shares.
type Core struct {
	Clock       domain.Clock
	Idempotency *application.Idempotency
	Authorizer  *application.ConsentAuthorizer
	Locks       *application.ResourceLocks
	Events      application.EventPublisher
	Metrics     *metrics.Metrics
	Logger      *slog.Logger
}

func newID(prefix string) string {
	return prefix + "-" + strings.ToUpper(uuid.NewString())
}

// load fetches a resource by id, mapping a missing record to NOT_FOUND.
func load[T domain.Entity](ctx context.Context, repo application.Repository[T], kind, id string) (T, error) {
	var zero T
	if strings.TrimSpace(id) == "" {
		return zero, domain.NewMissingRequiredFieldError(kind + " id")
	}
	resource, err := repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, application.ErrRecordNotFound) {
			return zero, domain.NewNotFoundError(kind, id)
		}
		return zero, application.NewInternalError(fmt.Errorf("load %s %s: %w", kind, id, err))
	}
	return resource, nil
}

// loadOwned is load plus a check that the caller owns the resource.
func loadOwned[T domain.Entity](ctx context.Context, repo application.Repository[T], kind, id, principalID string) (T, error) {
	resource, err := load(ctx, repo, kind, id)
	if err != nil {
		return resource, err
	}
	if err := domain.EnsureOwnership(resource, principalID); err != nil {
		var zero T
		return zero, err
	}
	return resource, nil
}

// cachedOwned serves a resource through reads and checks ownership after the
// lookup, so concurrent callers can share one load.
func cachedOwned[T domain.Entity](ctx context.Context, reads *application.ReadThrough[T], repo application.Repository[T], kind, id, principalID string) (application.Lookup[T], error) {
	var zero application.Lookup[T]
	lookup, err := reads.Get(ctx, id, func(ctx context.Context) (T, error) {
		return load(ctx, repo, kind, id)
	})
	if err != nil {
		return zero, err
	}
	if err := domain.EnsureOwnership(lookup.Value, principalID); err != nil {
		return zero, err
	}
	return lookup, nil
}

// replayOwned is the replay step for operations whose result reference is
// the id of the stored resource.
func replayOwned[T domain.Entity](repo application.Repository[T], kind, principalID string) func(context.Context, string) (T, error) {
	return func(ctx context.Context, ref string) (T, error) {
		return loadOwned(ctx, repo, kind, ref, principalID)
	}
}

// save persists a new resource version and counts the transition.
func save[T domain.Entity](ctx context.Context, core Core, repo application.Repository[T], kind, status string, resource T) (T, error) {
	saved, err := repo.Save(ctx, resource)
	if err != nil {
		var zero T
		return zero, application.NewInternalError(fmt.Errorf("save %s %s: %w", kind, resource.ResourceID(), err))
	}
	core.Metrics.ObserveTransition(kind, status)
	return saved, nil
}

func (c Core) publish(ctx context.Context, kind, resource string, entity domain.Entity, status string) {
	event := application.Event{
		Type:        resource + "." + kind,
		Resource:    resource,
		ResourceID:  entity.ResourceID(),
		PrincipalID: entity.Owner(),
		Status:      status,
		OccurredAt:  c.Clock.Now(),
	}
	if kind == EventFinalized {
		c.Events.PublishFinalized(ctx, event)
	} else {
		c.Events.PublishCreated(ctx, event)
	}
}

func upstream(dependency string, err error) error {
	var domainErr *domain.DomainError
	if errors.As(err, &domainErr) {
		return err
	}
	return application.NewUpstreamError(dependency, err)
}
