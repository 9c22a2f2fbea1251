package payments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/tomerlevy/claimdesk/internal/observability/metrics"
	"github.com/tomerlevy/claimdesk/internal/pricing"
	"github.com/tomerlevy/claimdesk/internal/session"
	"github.com/tomerlevy/claimdesk/pkg/logging"
)

var paymentsTracer = otel.Tracer("claimdesk.internal.payments")

var (
	ErrClaimNotReady  = errors.New("payments: session has no claim payload yet")
	ErrAlreadyPaid    = errors.New("payments: session already paid")
	ErrSessionMissing = errors.New("payments: session not found")
)

// Confirmation channels. Whichever fires first wins; the rest are duplicates.
const (
	ChannelWallet   = "wallet"
	ChannelRedirect = "redirect"
	ChannelMessage  = "message"
	ChannelMirror   = "mirror"
	ChannelWebhook  = "webhook"
)

// sessionStore is the session surface the orchestrator needs.
type sessionStore interface {
	Load(ctx context.Context, id uuid.UUID) (*session.Session, error)
	MarkPaid(ctx context.Context, id uuid.UUID) (bool, error)
}

// checkoutCreator opens a payment process with the external provider.
type checkoutCreator interface {
	CreateCheckout(ctx context.Context, params CheckoutParams) (*CheckoutResult, error)
}

// documentTrigger kicks off document generation after a confirmed payment.
type documentTrigger interface {
	TriggerGeneration(ctx context.Context, sessionID uuid.UUID)
}

// couponValidator resolves a coupon code to its normalized projection.
type couponValidator interface {
	Validate(ctx context.Context, code string) (*pricing.Coupon, error)
	MarkUsed(ctx context.Context, code string)
}

// Orchestrator owns the payment flow: checkout creation gated on a ready
// claim payload, and idempotent confirmation fed by several independent
// signals.
type Orchestrator struct {
	sessions sessionStore
	gateway  checkoutCreator
	coupons  couponValidator
	resolver *pricing.Resolver
	paidFlag *PaidFlagStore
	docs     documentTrigger
	logger   *logging.Logger
	metrics  *metrics.PaymentMetrics
}

// OrchestratorDeps bundles Orchestrator construction parameters. Coupons,
// paid-flag mirror, document trigger, and metrics are optional.
type OrchestratorDeps struct {
	Sessions sessionStore
	Gateway  checkoutCreator
	Coupons  couponValidator
	Resolver *pricing.Resolver
	PaidFlag *PaidFlagStore
	Docs     documentTrigger
	Logger   *logging.Logger
	Metrics  *metrics.PaymentMetrics
}

// NewOrchestrator creates a payment orchestrator.
func NewOrchestrator(deps OrchestratorDeps) *Orchestrator {
	if deps.Sessions == nil {
		panic("payments: session store required")
	}
	if deps.Gateway == nil {
		panic("payments: gateway required")
	}
	if deps.Resolver == nil {
		panic("payments: price resolver required")
	}
	if deps.Logger == nil {
		deps.Logger = logging.Default()
	}
	return &Orchestrator{
		sessions: deps.Sessions,
		gateway:  deps.Gateway,
		coupons:  deps.Coupons,
		resolver: deps.Resolver,
		paidFlag: deps.PaidFlag,
		docs:     deps.Docs,
		logger:   deps.Logger,
		metrics:  deps.Metrics,
	}
}

// CreateParams describes one checkout request.
type CreateParams struct {
	SessionID     uuid.UUID
	Description   string
	CustomerName  string
	CustomerPhone string
	CustomerEmail string
	CouponCode    string
}

// CreateOutcome is the orchestrator's answer to a checkout request. Free is
// set when a coupon zeroed the price and the session was confirmed without
// the external gateway.
type CreateOutcome struct {
	Amount   int
	Free     bool
	Checkout *CheckoutResult
}

// Create opens a checkout for a session. The claim payload must exist; the
// price is computed server-side from the service type and coupon. A zero
// final price confirms the session directly and never calls the provider.
func (o *Orchestrator) Create(ctx context.Context, params CreateParams) (*CreateOutcome, error) {
	ctx, span := paymentsTracer.Start(ctx, "payments.create")
	defer span.End()
	span.SetAttributes(attribute.String("claimdesk.session_id", params.SessionID.String()))

	sess, err := o.sessions.Load(ctx, params.SessionID)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return nil, ErrSessionMissing
		}
		return nil, fmt.Errorf("payments: load session: %w", err)
	}
	if sess.Status == session.StatusPaid {
		return nil, ErrAlreadyPaid
	}
	if !sess.HasClaimData() {
		return nil, ErrClaimNotReady
	}

	var coupon *pricing.Coupon
	if params.CouponCode != "" && o.coupons != nil {
		coupon, err = o.coupons.Validate(ctx, params.CouponCode)
		if err != nil {
			return nil, fmt.Errorf("payments: coupon rejected: %w", err)
		}
	}
	fillCustomerFromClaim(&params, sess)

	amount := o.resolver.Resolve(sess.ServiceType, coupon)
	span.SetAttributes(attribute.Int("claimdesk.amount", amount))

	if amount == 0 {
		o.logger.Info("free transaction, skipping gateway", "session_id", params.SessionID)
		if _, err := o.confirm(ctx, params.SessionID, "free"); err != nil {
			return nil, err
		}
		if coupon != nil && o.coupons != nil {
			o.coupons.MarkUsed(ctx, coupon.Code)
		}
		o.metrics.ObserveCheckout("free")
		return &CreateOutcome{Amount: 0, Free: true}, nil
	}

	checkout, err := o.gateway.CreateCheckout(ctx, CheckoutParams{
		SessionID:     params.SessionID,
		Amount:        amount,
		Description:   params.Description,
		CustomerName:  params.CustomerName,
		CustomerPhone: params.CustomerPhone,
		CustomerEmail: params.CustomerEmail,
	})
	if err != nil {
		o.metrics.ObserveCheckout("failed")
		return nil, err
	}

	if coupon != nil && o.coupons != nil {
		o.coupons.MarkUsed(ctx, coupon.Code)
	}
	o.metrics.ObserveCheckout("created")
	return &CreateOutcome{Amount: amount, Checkout: checkout}, nil
}

// fillCustomerFromClaim backfills empty checkout contact fields from the
// session's claim payload. Fields the client sent explicitly win.
func fillCustomerFromClaim(params *CreateParams, sess *session.Session) {
	if params.CustomerName != "" && params.CustomerPhone != "" && params.CustomerEmail != "" {
		return
	}
	payload, err := session.ParseClaimPayload(sess.ServiceType, sess.ClaimData)
	if err != nil {
		return
	}
	name, phone, email := payload.Customer()
	if params.CustomerName == "" {
		params.CustomerName = name
	}
	if params.CustomerPhone == "" {
		params.CustomerPhone = phone
	}
	if params.CustomerEmail == "" {
		params.CustomerEmail = email
	}
}

// Confirm marks a session paid. It is the single entry point for every
// confirmation signal; calling it any number of times from any channel
// results in exactly one status write and one generation trigger.
func (o *Orchestrator) Confirm(ctx context.Context, sessionID uuid.UUID, channel string) (bool, error) {
	ctx, span := paymentsTracer.Start(ctx, "payments.confirm")
	defer span.End()
	span.SetAttributes(
		attribute.String("claimdesk.session_id", sessionID.String()),
		attribute.String("claimdesk.channel", channel),
	)
	return o.confirm(ctx, sessionID, channel)
}

func (o *Orchestrator) confirm(ctx context.Context, sessionID uuid.UUID, channel string) (bool, error) {
	first, err := o.sessions.MarkPaid(ctx, sessionID)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return false, ErrSessionMissing
		}
		o.metrics.ObserveConfirmation(channel, "error")
		return false, fmt.Errorf("payments: mark paid: %w", err)
	}
	if !first {
		o.metrics.ObserveConfirmation(channel, "duplicate")
		return false, nil
	}

	o.mirrorPaid(ctx, sessionID)
	o.triggerGeneration(ctx, sessionID)
	o.metrics.ObserveConfirmation(channel, "confirmed")
	o.logger.Info("payment confirmed", "session_id", sessionID, "channel", channel)
	return true, nil
}

// Status reports whether the session is paid, preferring the Redis mirror.
func (o *Orchestrator) Status(ctx context.Context, sessionID uuid.UUID) (bool, error) {
	if o.paidFlag != nil {
		paid, err := o.paidFlag.IsPaid(ctx, sessionID)
		if err != nil {
			o.logger.Warn("paid flag read failed", "error", err, "session_id", sessionID)
		} else if paid {
			return true, nil
		}
	}

	sess, err := o.sessions.Load(ctx, sessionID)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return false, ErrSessionMissing
		}
		return false, fmt.Errorf("payments: load session: %w", err)
	}
	return sess.Status == session.StatusPaid, nil
}

func (o *Orchestrator) mirrorPaid(ctx context.Context, sessionID uuid.UUID) {
	if o.paidFlag == nil {
		return
	}
	if err := o.paidFlag.Set(ctx, sessionID); err != nil {
		o.logger.Warn("paid flag mirror failed", "error", err, "session_id", sessionID)
	}
}

// triggerGeneration runs the document pipeline off the confirmation path.
func (o *Orchestrator) triggerGeneration(ctx context.Context, sessionID uuid.UUID) {
	if o.docs == nil {
		return
	}
	genCtx := context.WithoutCancel(ctx)
	go func() {
		genTimeout, cancel := context.WithTimeout(genCtx, 60*time.Second)
		defer cancel()
		o.docs.TriggerGeneration(genTimeout, sessionID)
	}()
}
