package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"storefront/backend/internal/apperr"
	"storefront/backend/internal/domain"
	"storefront/backend/internal/fulfillment"
	"storefront/backend/internal/logger"
	"storefront/backend/internal/store"
	"storefront/backend/internal/xid"
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

type Service struct {
	repo   store.Repository
	engine *fulfillment.Engine
	log    *logger.Logger
}

func New(repo store.Repository, engine *fulfillment.Engine, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		repo:   repo,
		engine: engine,
		log:    log,
	}
}

func (s *Service) ListProducts(ctx context.Context) ([]domain.Product, error) {
	return s.repo.ListProducts(ctx)
}

func (s *Service) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperr.Validation(nil).WithField("id", "is required")
	}
	order, err := s.repo.FindOrderByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.Wrap(apperr.CodeNotFound, err, "order not found")
		}
		return nil, err
	}
	return order, nil
}

// Checkout fulfills a sale on behalf of the actor in ctx and records the
// outcome in the audit log.
func (s *Service) Checkout(ctx context.Context, req domain.SaleRequest) (domain.SaleResult, error) {
	actor := actorOrSystem(ctx)

	result, err := s.engine.Fulfill(ctx, req, actor.Username)
	if err != nil {
		s.logAudit(ctx, "sale_failed", "order", "", string(apperr.CodeOf(err)))
		return domain.SaleResult{}, err
	}

	s.logAudit(ctx, "sale_commit", "order", result.OrderID, fmt.Sprintf("receipt=%s,profit=%s", result.ReceiptNumber, result.ProfitAmount.StringFixed(2)))
	return *result, nil
}

func actorOrSystem(ctx context.Context) domain.Actor {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Username == "" {
		return domain.Actor{Username: "system", Role: "system"}
	}
	return actor
}

func (s *Service) logAudit(ctx context.Context, action string, entityType string, entityID string, detail string) {
	actor := actorOrSystem(ctx)

	if err := s.repo.CreateAuditLog(context.WithoutCancel(ctx), domain.AuditLog{
		ID:            xid.New("audit"),
		ActorUsername: actor.Username,
		ActorRole:     actor.Role,
		Action:        action,
		EntityType:    entityType,
		EntityID:      entityID,
		Detail:        detail,
		CreatedAt:     time.Now().UTC(),
	}); err != nil {
		s.log.Zerolog(ctx).Warn().
			Err(err).
			Str("action", action).
			Str("entity", entityType+"/"+entityID).
			Msg("failed to write audit log")
	}
}
