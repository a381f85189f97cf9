package shop

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/safar/go-sql-shop/internal/auth"
	"github.com/safar/go-sql-shop/internal/database"
	"github.com/safar/go-sql-shop/internal/events"
	"github.com/safar/go-sql-shop/internal/logger"
	"github.com/safar/go-sql-shop/internal/metrics"
	"github.com/safar/go-sql-shop/internal/store"
)

const defaultPublishTimeout = 2 * time.Second

// Deps are the collaborators of a Service. Only DB is required.
type Deps struct {
	DB        *sql.DB
	Publisher events.Publisher
	Logger    *slog.Logger
	Metrics   *metrics.ServerMetrics
	Issuer    *auth.Issuer

	// PublishTimeout bounds each event publish. Zero means 2s.
	PublishTimeout time.Duration
}

// Service implements cart, order, checkout, statistics, user and product
// operations on top of the store package.
type Service struct {
	db        *sql.DB
	publisher events.Publisher
	log       *slog.Logger
	metrics   *metrics.ServerMetrics
	issuer    *auth.Issuer

	publishTimeout time.Duration
}

func New(deps Deps) *Service {
	s := &Service{
		db:        deps.DB,
		publisher: deps.Publisher,
		log:       deps.Logger,
		metrics:   deps.Metrics,
		issuer:    deps.Issuer,

		publishTimeout: deps.PublishTimeout,
	}
	if s.publishTimeout <= 0 {
		s.publishTimeout = defaultPublishTimeout
	}
	if s.publisher == nil {
		s.publisher = events.NopPublisher{}
	}
	if s.log == nil {
		s.log = logger.Discard()
	}
	return s
}

// publish runs after commit. Delivery failures are logged and never
// returned to the caller. The publish outlives a cancelled request but
// not publishTimeout.
func (s *Service) publish(ctx context.Context, event events.Event) {
	if s.metrics != nil {
		s.metrics.Orders.WithLabelValues(string(event.Type)).Add(float64(len(event.Orders)))
	}

	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.publishTimeout)
	defer cancel()

	if err := s.publisher.Publish(pubCtx, event); err != nil {
		s.log.ErrorContext(ctx, "publish event failed",
			slog.String("event_type", string(event.Type)),
			slog.String("event_id", event.ID.String()),
			slog.String("user_id", event.UserID.String()),
			slog.Any("err", err))
	}
}

func (s *Service) countCheckout(outcome string) {
	if s.metrics != nil {
		s.metrics.Checkouts.WithLabelValues(outcome).Inc()
	}
}

func requireID(name string, id uuid.UUID) error {
	if id == uuid.Nil {
		return database.InvalidInput("%s is required", name)
	}
	return nil
}

func requireQuantity(quantity int) error {
	if quantity < 1 {
		return database.InvalidInput("quantity must be at least 1, got %d", quantity)
	}
	return nil
}

func ensureUser(ctx context.Context, q database.Querier, id uuid.UUID) error {
	exists, err := store.UserExists(ctx, q, id)
	if err != nil {
		return err
	}
	if !exists {
		return database.ErrUserNotFound
	}
	return nil
}
