// Package service implements the single write path for payment state: it
// moves registrations from pending to finalized exactly once, whichever entry
// point the request came from.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jeanchristophedibi/fanaf-back-next-sub000/internal/finalization/metrics"
	"github.com/jeanchristophedibi/fanaf-back-next-sub000/internal/persistence"
	"github.com/jeanchristophedibi/fanaf-back-next-sub000/internal/registration/models"
	"github.com/jeanchristophedibi/fanaf-back-next-sub000/internal/tariff"
	dErrors "github.com/jeanchristophedibi/fanaf-back-next-sub000/pkg/domain-errors"
	audit "github.com/jeanchristophedibi/fanaf-back-next-sub000/pkg/platform/audit"
	"github.com/jeanchristophedibi/fanaf-back-next-sub000/pkg/platform/sentinel"
	strs "github.com/jeanchristophedibi/fanaf-back-next-sub000/pkg/platform/strings"
	"github.com/jeanchristophedibi/fanaf-back-next-sub000/pkg/requestcontext"
)

const defaultConflictRetries = 3

// Store is the registration store as seen by the service.
type Store interface {
	Get(id models.RegistrationID) (models.Registration, bool)
	ApplyFinalization(ctx context.Context, ids []models.RegistrationID, mode models.PaymentMode, operator string, at time.Time) (*models.FinalizedBatch, error)
	Refresh(ctx context.Context, ids []models.RegistrationID) ([]models.Registration, error)
}

// FinalizedSet answers which ids are already committed.
type FinalizedSet interface {
	Partition(ids []models.RegistrationID) (marked, unmarked []models.RegistrationID)
}

// GroupExpander replaces ids with their whole group.
type GroupExpander interface {
	Expand(ids []models.RegistrationID) []models.RegistrationID
}

// EventPublisher broadcasts change events.
type EventPublisher interface {
	Publish(ev models.ChangeEvent)
}

// AuditPublisher records committed batches.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service serializes finalize calls. The check against the finalized set and
// the commit happen under one service-wide lock; cross-process races are
// settled by the persistence layer's conditional commit.
type Service struct {
	mu sync.Mutex

	store   Store
	index   FinalizedSet
	groups  GroupExpander
	events  EventPublisher
	tariffs *tariff.Resolver

	origin          string
	conflictRetries int
	logger          *slog.Logger
	metrics         *metrics.Metrics
	tracer          trace.Tracer
	auditor         AuditPublisher
}

// Option configures the Service.
type Option func(*Service)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithTracer sets the tracer. Defaults to the global provider.
func WithTracer(tracer trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = tracer
	}
}

// WithAuditor records a payment_finalized event per committed batch.
func WithAuditor(a AuditPublisher) Option {
	return func(s *Service) {
		s.auditor = a
	}
}

// WithOrigin names this engine instance in published events.
func WithOrigin(origin string) Option {
	return func(s *Service) {
		s.origin = origin
	}
}

// WithConflictRetries bounds how often a commit that lost against another
// instance is retried.
func WithConflictRetries(n int) Option {
	return func(s *Service) {
		if n >= 0 {
			s.conflictRetries = n
		}
	}
}

// New builds a finalization service.
func New(store Store, index FinalizedSet, groups GroupExpander, events EventPublisher, tariffs *tariff.Resolver, opts ...Option) *Service {
	s := &Service{
		store:           store,
		index:           index,
		groups:          groups,
		events:          events,
		tariffs:         tariffs,
		conflictRetries: defaultConflictRetries,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.tracer == nil {
		s.tracer = otel.Tracer("finalization")
	}
	return s
}

// Finalize commits payment for req.IDs. Ids that are already finalized are
// reported in the receipt and never fail the call. Any invalid id rejects the
// whole batch with a *models.InvalidBatchError and nothing is committed.
func (s *Service) Finalize(ctx context.Context, req models.FinalizeRequest) (*models.Receipt, error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "finalization.Finalize", trace.WithAttributes(
		attribute.Int("finalize.requested", len(req.IDs)),
		attribute.String("finalize.payment_mode", string(req.PaymentMode)),
		attribute.Bool("finalize.expand_groups", req.ExpandGroups),
	))
	defer span.End()
	defer func() { s.metrics.ObserveFinalizeLatency(time.Since(start)) }()

	if req.Operator == "" {
		req.Operator = requestcontext.Operator(ctx)
	}
	if err := validate(req); err != nil {
		s.fail(ctx, span, req, metrics.OutcomeValidation, err)
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ids := s.resolveIDs(req)
	if err := s.checkCategory(req.Category, ids); err != nil {
		s.fail(ctx, span, req, metrics.OutcomeInvalidBatch, err)
		return nil, err
	}

	at := requestcontext.Now(ctx).UTC()
	for attempt := 0; ; attempt++ {
		already, remainder := s.index.Partition(ids)
		if len(remainder) == 0 {
			s.metrics.IncrementOutcome(metrics.OutcomeNoop)
			span.SetAttributes(attribute.Int("finalize.already_finalized", len(already)))
			s.logger.InfoContext(ctx, "finalize request had nothing left to commit",
				"operator", req.Operator,
				"already_finalized", len(already),
			)
			return &models.Receipt{
				NewlyFinalized:    []models.RegistrationID{},
				AlreadyFinalized:  nonNil(already),
				Amount:            s.tariffs.Sum(nil),
				PaymentMode:       req.PaymentMode,
				SettlementChannel: models.ChannelFor(req.PaymentMode),
				Operator:          req.Operator,
			}, nil
		}

		batch, err := s.store.ApplyFinalization(ctx, remainder, req.PaymentMode, req.Operator, at)
		if err == nil {
			return s.committed(ctx, span, req, batch, already), nil
		}

		var conflict *persistence.ConflictError
		if errors.As(err, &conflict) && attempt < s.conflictRetries {
			s.metrics.IncrementConflictRetries()
			s.logger.WarnContext(ctx, "finalize lost against another instance, refreshing",
				"ids", conflict.IDs,
				"attempt", attempt+1,
			)
			if rerr := s.absorbRemote(ctx, conflict.IDs); rerr != nil {
				err = rerr
			} else {
				continue
			}
		}

		err = translate(err)
		s.fail(ctx, span, req, outcomeFor(err), err)
		return nil, err
	}
}

func validate(req models.FinalizeRequest) error {
	if len(req.IDs) == 0 {
		return dErrors.New(dErrors.CodeValidation, "at least one registration id is required")
	}
	if slices.ContainsFunc(req.IDs, func(id models.RegistrationID) bool { return strings.TrimSpace(string(id)) == "" }) {
		return dErrors.New(dErrors.CodeValidation, "registration ids must not be empty")
	}
	if !req.PaymentMode.IsValid() {
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("unknown payment mode %q", req.PaymentMode))
	}
	if req.Operator == "" {
		return dErrors.New(dErrors.CodeValidation, "operator is required")
	}
	if req.Category != "" && (!req.Category.IsValid() || req.Category.IsExempt()) {
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("category %q cannot be finalized", req.Category))
	}
	return nil
}

// resolveIDs deduplicates the request and expands groups. Group expansion
// only adds payable members; exempt members named explicitly still reject the
// batch downstream.
func (s *Service) resolveIDs(req models.FinalizeRequest) []models.RegistrationID {
	ids := strs.DedupeAndTrim(req.IDs)
	if !req.ExpandGroups || s.groups == nil {
		return ids
	}
	requested := make(map[models.RegistrationID]struct{}, len(ids))
	for _, id := range ids {
		requested[id] = struct{}{}
	}

	expanded := s.groups.Expand(ids)
	out := make([]models.RegistrationID, 0, len(expanded))
	for _, id := range expanded {
		if _, explicit := requested[id]; !explicit {
			if reg, ok := s.store.Get(id); ok && reg.Category.IsExempt() {
				continue
			}
		}
		out = append(out, id)
	}
	return out
}

func (s *Service) checkCategory(category models.Category, ids []models.RegistrationID) error {
	if category == "" {
		return nil
	}
	var rejections []models.Rejection
	for _, id := range ids {
		if reg, ok := s.store.Get(id); ok && reg.Category != category {
			rejections = append(rejections, models.Rejection{ID: id, Reason: models.RejectCategoryMismatch})
		}
	}
	if len(rejections) > 0 {
		return &models.InvalidBatchError{Rejections: rejections}
	}
	return nil
}

// absorbRemote pulls ids another instance committed and announces them
// locally so views do not wait for the cross-instance signal.
func (s *Service) absorbRemote(ctx context.Context, ids []models.RegistrationID) error {
	transitioned, err := s.store.Refresh(ctx, ids)
	if err != nil {
		return err
	}
	if len(transitioned) == 0 {
		return nil
	}
	newly := make([]models.RegistrationID, 0, len(transitioned))
	for _, reg := range transitioned {
		newly = append(newly, reg.ID)
	}
	s.events.Publish(models.ChangeEvent{
		Kind:    models.EventFinalized,
		IDs:     newly,
		Status:  models.StatusFinalized,
		BatchID: transitioned[0].BatchID,
		Delta:   models.Delta{Count: len(transitioned), Amount: s.tariffs.Sum(transitioned)},
		Remote:  true,
	})
	return nil
}

func (s *Service) committed(ctx context.Context, span trace.Span, req models.FinalizeRequest, batch *models.FinalizedBatch, already []models.RegistrationID) *models.Receipt {
	s.events.Publish(models.ChangeEvent{
		Kind:    models.EventFinalized,
		IDs:     batch.IDs,
		Status:  models.StatusFinalized,
		BatchID: batch.BatchID,
		Delta:   models.Delta{Count: len(batch.IDs), Amount: batch.Amount},
		Origin:  s.origin,
		At:      batch.FinalizedAt,
	})

	s.metrics.IncrementOutcome(metrics.OutcomeCommitted)
	amount, _ := batch.Amount.Float64()
	s.metrics.ObserveCommitted(string(batch.PaymentMode), string(batch.SettlementChannel), len(batch.IDs), amount)
	span.SetAttributes(
		attribute.String("finalize.batch_id", batch.BatchID),
		attribute.Int("finalize.committed", len(batch.IDs)),
		attribute.Int("finalize.already_finalized", len(already)),
		attribute.String("finalize.amount", batch.Amount.String()),
	)
	s.logger.InfoContext(ctx, "payment finalized",
		"batch_id", batch.BatchID,
		"operator", batch.Operator,
		"payment_mode", batch.PaymentMode,
		"settlement_channel", batch.SettlementChannel,
		"ids", batch.IDs,
		"amount", batch.Amount.String(),
	)
	s.audit(ctx, batch)

	return &models.Receipt{
		BatchID:           batch.BatchID,
		NewlyFinalized:    batch.IDs,
		AlreadyFinalized:  nonNil(already),
		Amount:            batch.Amount,
		PaymentMode:       batch.PaymentMode,
		SettlementChannel: batch.SettlementChannel,
		Operator:          batch.Operator,
		FinalizedAt:       batch.FinalizedAt,
	}
}

// audit is best-effort: the batch is already durable, so a failed audit write
// is logged and never undoes the commit.
func (s *Service) audit(ctx context.Context, batch *models.FinalizedBatch) {
	if s.auditor == nil {
		return
	}
	ids := make([]string, 0, len(batch.IDs))
	for _, id := range batch.IDs {
		ids = append(ids, string(id))
	}
	err := s.auditor.Emit(ctx, audit.Event{
		Timestamp:       batch.FinalizedAt,
		Action:          string(audit.EventPaymentFinalized),
		Subject:         batch.BatchID,
		ActorID:         batch.Operator,
		RequestID:       requestcontext.RequestID(ctx),
		PaymentMode:     string(batch.PaymentMode),
		Channel:         string(batch.SettlementChannel),
		Amount:          batch.Amount.String(),
		RegistrationIDs: ids,
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to audit finalized batch",
			"batch_id", batch.BatchID,
			"error", err,
		)
	}
}

func (s *Service) fail(ctx context.Context, span trace.Span, req models.FinalizeRequest, outcome string, err error) {
	s.metrics.IncrementOutcome(outcome)
	span.RecordError(err)
	span.SetStatus(codes.Error, outcome)

	level := slog.LevelWarn
	if outcome == metrics.OutcomeStoreUnavailable || outcome == metrics.OutcomeConflict {
		level = slog.LevelError
	}
	s.logger.Log(ctx, level, "finalize failed",
		"operator", req.Operator,
		"payment_mode", req.PaymentMode,
		"requested", len(req.IDs),
		"outcome", outcome,
		"error", err,
	)
	if outcome == metrics.OutcomeInvalidBatch && s.auditor != nil {
		var invalid *models.InvalidBatchError
		if errors.As(err, &invalid) {
			ids := make([]string, 0, len(invalid.Rejections))
			for _, id := range invalid.RejectedIDs() {
				ids = append(ids, string(id))
			}
			err := s.auditor.Emit(ctx, audit.Event{
				Action:          string(audit.EventFinalizeRejected),
				ActorID:         req.Operator,
				RequestID:       requestcontext.RequestID(ctx),
				PaymentMode:     string(req.PaymentMode),
				RegistrationIDs: ids,
				Reason:          string(invalid.Rejections[0].Reason),
			})
			if err != nil {
				s.logger.ErrorContext(ctx, "failed to audit rejected batch",
					"operator", req.Operator,
					"rejected", ids,
					"error", err,
				)
			}
		}
	}
}

// translate maps store and adapter failures onto the domain taxonomy.
// Domain errors pass through unchanged.
func translate(err error) error {
	var invalid *models.InvalidBatchError
	switch {
	case errors.As(err, &invalid):
		return err
	case dErrors.HasCode(err, dErrors.CodeValidation):
		return err
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.Wrap(err, dErrors.CodeConflict, "registrations were committed concurrently, retry the request")
	default:
		return dErrors.Wrap(err, dErrors.CodeStoreUnavailable, "registration store unavailable")
	}
}

func outcomeFor(err error) string {
	switch dErrors.CodeOf(err) {
	case dErrors.CodeInvalidBatch:
		return metrics.OutcomeInvalidBatch
	case dErrors.CodeValidation:
		return metrics.OutcomeValidation
	case dErrors.CodeConflict:
		return metrics.OutcomeConflict
	default:
		return metrics.OutcomeStoreUnavailable
	}
}

func nonNil(ids []models.RegistrationID) []models.RegistrationID {
	if ids == nil {
		return []models.RegistrationID{}
	}
	return ids
}
