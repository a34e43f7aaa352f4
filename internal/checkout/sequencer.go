package checkout

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/storefront-backend/internal/notifications"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/types"
	"github.com/google/uuid"
	"go.uber.org/multierr"
)

const (
	msgPlaceFailed       = "Failed to place order. Please try again."
	msgSubmitInFlight    = "order submission already in progress"
	confirmationTitle    = "Order placed successfully!"
	confirmationTemplate = "Your order #%s has been placed. We'll contact you soon!"
)

// State is a step of order placement.
type State string

const (
	StateIdle         State = "idle"
	StateValidating   State = "validating"
	StateWritingOrder State = "writing_order"
	StateWritingLines State = "writing_lines"
	StatePruningCart  State = "pruning_cart"
	StateSettled      State = "settled"
)

// Outcome is how a placement settled.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
)

// Confirmation is what the client shows after an order is placed.
type Confirmation struct {
	OrderID        uuid.UUID
	Handle         string
	Title          string
	Message        string
	NoticeDuration time.Duration
	RedirectTo     string
	RedirectAfter  time.Duration
}

type cartPruner interface {
	Prune(ctx context.Context, userID uuid.UUID, lineIDs []uuid.UUID) error
}

// Sequencer places orders from staged handoffs.
type Sequencer interface {
	Place(ctx context.Context, id Identity, token string, draft Draft) (*Confirmation, error)
}

type sequencer struct {
	handoff Handoff
	guard   SubmitGuard
	orders  orders.Writer
	cart    cartPruner
	sink    notifications.Sink
	cfg     config.CheckoutConfig
	logg    *logger.Logger
	metrics *metrics.CheckoutMetrics
}

// SequencerDeps groups the collaborators of the sequencer.
type SequencerDeps struct {
	Handoff Handoff
	Guard   SubmitGuard
	Orders  orders.Writer
	Cart    cartPruner
	Sink    notifications.Sink
	Config  config.CheckoutConfig
	Logger  *logger.Logger
	Metrics *metrics.CheckoutMetrics
}

// NewSequencer builds the order placement sequencer.
func NewSequencer(deps SequencerDeps) (Sequencer, error) {
	switch {
	case deps.Handoff == nil:
		return nil, fmt.Errorf("handoff required")
	case deps.Guard == nil:
		return nil, fmt.Errorf("submit guard required")
	case deps.Orders == nil:
		return nil, fmt.Errorf("orders writer required")
	case deps.Cart == nil:
		return nil, fmt.Errorf("cart pruner required")
	case deps.Sink == nil:
		return nil, fmt.Errorf("notification sink required")
	case deps.Logger == nil:
		return nil, fmt.Errorf("logger required")
	}
	return &sequencer{
		handoff: deps.Handoff,
		guard:   deps.Guard,
		orders:  deps.Orders,
		cart:    deps.Cart,
		sink:    deps.Sink,
		cfg:     deps.Config,
		logg:    deps.Logger,
		metrics: deps.Metrics,
	}, nil
}

// placement tracks one run through the state machine.
type placement struct {
	s       *sequencer
	ctx     context.Context
	state   State
	started time.Time
}

func (p *placement) enter(state State) {
	p.state = state
	p.s.logg.Debug(p.s.logg.WithField(p.ctx, "state", string(state)), "checkout transition")
}

func (p *placement) settle(outcome Outcome) {
	p.s.metrics.ObservePlacement(string(outcome), string(p.state), time.Since(p.started))
	logCtx := p.s.logg.WithFields(p.ctx, map[string]any{
		"state":   string(p.state),
		"outcome": string(outcome),
	})
	if outcome == OutcomeSuccess {
		p.s.logg.Info(logCtx, "checkout settled")
		return
	}
	p.s.logg.Warn(logCtx, "checkout settled")
}

// fail settles with a failure and hands back err unchanged.
func (p *placement) fail(err error) error {
	p.settle(OutcomeFailure)
	return err
}

// writeFailed logs the cause and returns the generic retryable notice.
func (p *placement) writeFailed(msg string, err error) error {
	logCtx := p.s.logg.WithFields(p.ctx, pkgerrors.Dump(err).Fields())
	p.s.logg.Error(logCtx, msg, err)
	return p.fail(pkgerrors.New(pkgerrors.CodeRemoteWrite, msgPlaceFailed))
}

func (s *sequencer) Place(ctx context.Context, id Identity, token string, draft Draft) (*Confirmation, error) {
	if err := requireIdentity(id); err != nil {
		return nil, err
	}
	ctx = s.logg.WithUserID(ctx, id.UserID.String())
	ctx = s.logg.WithHandoffToken(ctx, token)
	p := &placement{s: s, ctx: ctx, state: StateIdle, started: time.Now()}

	release, ok, err := s.guard.Acquire(ctx, token)
	if err != nil {
		return nil, p.writeFailed("acquire submit lock", err)
	}
	if !ok {
		s.logg.Warn(ctx, "checkout submit already in flight")
		return nil, pkgerrors.New(pkgerrors.CodeConflict, msgSubmitInFlight)
	}
	defer func() {
		if err := release(context.WithoutCancel(ctx)); err != nil {
			s.logg.Warn(ctx, "failed to release submit lock: "+err.Error())
		}
	}()

	p.enter(StateValidating)
	record, err := s.handoff.Consume(ctx, id, token)
	if err != nil {
		return nil, p.fail(err)
	}
	valid, err := draft.Validate()
	if err != nil {
		return nil, p.fail(err)
	}

	p.enter(StateWritingOrder)
	order, err := s.orders.CreateOrder(ctx, newOrder(id.UserID, record.Lines, valid))
	if err != nil {
		return nil, p.writeFailed("create order header", err)
	}
	p.ctx = s.logg.WithOrderID(p.ctx, order.ID.String())

	p.enter(StateWritingLines)
	if err := s.orders.CreateOrderItems(p.ctx, newOrderItems(order.ID, record.Lines)); err != nil {
		return nil, p.writeFailed("create order items, header left without lines", err)
	}

	p.enter(StatePruningCart)
	if err := s.cart.Prune(p.ctx, id.UserID, record.Lines.IDs()); err != nil {
		failed := multierr.Errors(err)
		s.metrics.AddPruneFailures(len(failed))
		logCtx := s.logg.WithField(p.ctx, "prune_failures", len(failed))
		s.logg.Error(logCtx, "failed to prune ordered cart lines", err)
	}

	p.enter(StateSettled)
	if err := s.handoff.Clear(p.ctx, id, token); err != nil {
		s.logg.Error(p.ctx, "failed to clear checkout handoff", err)
	}

	confirmation := s.confirm(order.ID)
	s.sink.Notify(p.ctx, id.UserID, notifications.Notice{
		Type:    enums.NotificationTypeOrderPlaced,
		Title:   confirmation.Title,
		Message: confirmation.Message,
		Link:    "/orders/" + order.ID.String(),
	})
	p.settle(OutcomeSuccess)
	return confirmation, nil
}

func (s *sequencer) confirm(orderID uuid.UUID) *Confirmation {
	handle := orders.Handle(orderID)
	return &Confirmation{
		OrderID:        orderID,
		Handle:         handle,
		Title:          confirmationTitle,
		Message:        fmt.Sprintf(confirmationTemplate, handle),
		NoticeDuration: s.cfg.NoticeDuration,
		RedirectTo:     s.cfg.RedirectTo,
		RedirectAfter:  s.cfg.RedirectDelay,
	}
}

func newOrder(userID uuid.UUID, lines types.CartLines, draft Draft) *models.Order {
	order := &models.Order{
		UserID:          userID,
		TotalAmount:     lines.Total(),
		Status:          enums.OrderStatusPending,
		ShippingName:    draft.Name,
		ShippingContact: draft.Contact,
		ShippingAddress: draft.Address,
		PaymentMethod:   enums.PaymentMethod(draft.PaymentMethod),
	}
	if draft.Message != "" {
		msg := draft.Message
		order.Message = &msg
	}
	return order
}

func newOrderItems(orderID uuid.UUID, lines types.CartLines) []models.OrderItem {
	items := make([]models.OrderItem, 0, len(lines))
	for _, line := range lines {
		items = append(items, models.OrderItem{
			OrderID:     orderID,
			ProductID:   line.ProductID,
			ProductName: line.Product.Name,
			Quantity:    line.Quantity,
			Price:       line.Product.Price,
		})
	}
	return items
}
