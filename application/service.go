package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"

	"github.com/felixgeelhaar/orderflow/domain/audit"
	"github.com/felixgeelhaar/orderflow/domain/compliance"
	"github.com/felixgeelhaar/orderflow/domain/customer"
	"github.com/felixgeelhaar/orderflow/domain/notification"
	"github.com/felixgeelhaar/orderflow/domain/order"
	"github.com/felixgeelhaar/orderflow/domain/record"
	"github.com/felixgeelhaar/orderflow/infrastructure/logging"
	"github.com/felixgeelhaar/orderflow/infrastructure/observability"
	"github.com/felixgeelhaar/orderflow/infrastructure/telemetry"
)

// Notifier delivers notifications for persisted transitions. Send is
// best-effort: it must swallow and log its own failures.
type Notifier interface {
	Send(ctx context.Context, event *notification.Event)
}

// ServiceConfig contains configuration for the service.
type ServiceConfig struct {
	Engine    *Engine
	Store     record.Store
	Profiles  customer.ProfileLookup
	Documents customer.DocumentLister
	Notifier  Notifier
	Journal   audit.Journal
	Metrics   *telemetry.MetricsProvider
	Tracer    *observability.Tracer
	Now       func() time.Time
}

// Service is the entry point used by the admin and customer surfaces. It
// reads the record and its collaborators, asks the engine, persists
// through the executor and notifies after a successful write.
type Service struct {
	engine    *Engine
	store     record.Store
	profiles  customer.ProfileLookup
	documents customer.DocumentLister
	notifier  Notifier
	journal   audit.Journal
	metrics   *telemetry.MetricsProvider
	tracer    *observability.Tracer
	now       func() time.Time

	executor *Executor
	payments *PaymentTracker
}

// NewService creates a service with the given options.
func NewService(opts ...ServiceOption) (*Service, error) {
	var config ServiceConfig
	for _, opt := range opts {
		opt(&config)
	}
	if config.Store == nil {
		return nil, errors.New("record store is required")
	}
	if config.Engine == nil {
		engine, err := NewEngine()
		if err != nil {
			return nil, err
		}
		config.Engine = engine
	}
	if config.Now == nil {
		config.Now = time.Now
	}

	return &Service{
		engine:    config.Engine,
		store:     config.Store,
		profiles:  config.Profiles,
		documents: config.Documents,
		notifier:  config.Notifier,
		journal:   config.Journal,
		metrics:   config.Metrics,
		tracer:    config.Tracer,
		now:       config.Now,
		executor:  NewExecutor(config.Engine, config.Store, config.Now),
		payments:  NewPaymentTracker(config.Store, config.Now),
	}, nil
}

// Engine returns the lifecycle engine.
func (s *Service) Engine() *Engine {
	return s.engine
}

// Extras carries optional request data.
type Extras struct {
	// Note is free text routed to admin notes, the action-required message
	// or the rejection reason depending on the target.
	Note string

	// ExpectedStatus is the status the caller last saw. When set and the
	// record has moved on, the request fails with Conflict unless the
	// record already holds the target.
	ExpectedStatus order.Status

	// Vars are extra notification template variables.
	Vars map[string]string
}

// Result is the outcome of a lifecycle request.
type Result struct {
	OK        bool          `json:"ok"`
	NewStatus order.Status  `json:"new_status,omitempty"`
	NoOp      bool          `json:"no_op,omitempty"`
	Code      order.Code    `json:"code,omitempty"`
	Gate      string        `json:"gate,omitempty"`
	Reason    string        `json:"reason,omitempty"`
	Record    *order.Record `json:"record,omitempty"`

	// Err is the underlying error of a failed request.
	Err error `json:"-"`
}

func success(rec *order.Record) Result {
	return Result{OK: true, NewStatus: rec.Status, Record: rec}
}

func noOp(rec *order.Record) Result {
	return Result{OK: true, NewStatus: rec.Status, NoOp: true, Reason: "already in target state", Record: rec}
}

func failure(err error) Result {
	res := Result{Code: order.CodeOf(err), Reason: err.Error(), Err: err}
	var te *order.TransitionError
	if errors.As(err, &te) {
		res.Gate = te.Gate
		res.Reason = te.Reason
	}
	if res.Code == "" {
		res.Code = order.CodePersistenceError
	}
	return res
}

// RequestTransition asks to move a record to target on behalf of actor.
func (s *Service) RequestTransition(ctx context.Context, recordID string, target order.Status, actor order.Actor, extras Extras) Result {
	start := s.now()
	ctx, span := s.tracer.Start(ctx, "request_transition", recordID,
		attribute.String("orderflow.target", string(target)),
		attribute.String("orderflow.actor_role", string(actor.Role)))

	from, product, res := s.requestTransition(ctx, recordID, order.Normalize(string(target)), actor, extras)

	observability.Finish(span, string(res.Code), res.Err)
	s.metrics.RecordTransition(ctx, string(product), string(from), string(target), string(res.Code), s.now().Sub(start))
	if res.Code == order.CodeGateDenied {
		s.metrics.RecordGateDenial(ctx, string(product), res.Gate)
	}
	if product != "" {
		s.journalTransition(ctx, recordID, product, from, order.Normalize(string(target)), actor, res)
	}
	return res
}

func (s *Service) requestTransition(ctx context.Context, recordID string, to order.Status, actor order.Actor, extras Extras) (order.Status, order.Product, Result) {
	rec, err := s.store.Get(ctx, recordID)
	if err != nil {
		return "", "", failure(persistenceError(err))
	}
	from := order.Normalize(string(rec.Status))

	if extras.ExpectedStatus != "" && order.Normalize(string(extras.ExpectedStatus)) != from {
		if from != to {
			return from, rec.Product, failure(&order.TransitionError{
				Code:   order.CodeConflict,
				Reason: order.ErrConflict.Error(),
				Err:    fmt.Errorf("expected %s, record is %s", extras.ExpectedStatus, from),
			})
		}
		if err := s.engine.Authorize(rec, actor, to, to); err != nil {
			return from, rec.Product, failure(err)
		}
		return from, rec.Product, noOp(rec)
	}
	// Re-requesting a held status that a transition led into repeats an
	// applied transition and is idempotent. Initial and terminal statuses
	// fall through to the table check.
	if from == to && !to.IsTerminal() && order.Reachable(rec.Product, to) {
		if err := s.engine.Authorize(rec, actor, to, to); err != nil {
			return from, rec.Product, failure(err)
		}
		return from, rec.Product, noOp(rec)
	}

	if err := s.engine.Precheck(rec, to, actor); err != nil {
		return from, rec.Product, failure(err)
	}

	profile, docs, err := s.subject(ctx, rec)
	if err != nil {
		return from, rec.Product, failure(&order.TransitionError{
			Code:   order.CodePersistenceError,
			Reason: "failed to read customer data",
			Err:    err,
		})
	}

	applied, err := s.executor.Apply(ctx, TransitionRequest{
		Record:    rec,
		Target:    to,
		Actor:     actor,
		Profile:   profile,
		Documents: docs,
		Note:      extras.Note,
	})
	if err != nil {
		if order.CodeOf(err) == order.CodeConflict {
			s.metrics.RecordConflict(ctx, string(rec.Product), true)
		}
		return from, rec.Product, failure(err)
	}
	if applied.NoOp {
		return from, rec.Product, noOp(applied.Record)
	}

	logging.Info().
		Add(logging.RecordID(rec.ID)).
		Add(logging.Product(rec.Product)).
		Add(logging.FromStatus(applied.Change.From)).
		Add(logging.ToStatus(applied.Change.To)).
		Add(logging.Actor(actor)).
		Add(logging.Version(applied.Record.Version)).
		Msg("transition applied")

	s.notify(ctx, applied.Record, profile, extras.Vars)
	return from, rec.Product, success(applied.Record)
}

// subject loads the owner's profile and the record's documents. A missing
// profile is not an error: the KYC gate treats it as unverified.
func (s *Service) subject(ctx context.Context, rec *order.Record) (*order.Profile, []order.Document, error) {
	var profile *order.Profile
	if s.profiles != nil {
		p, err := s.profiles.GetProfile(ctx, rec.OwnerID)
		switch {
		case err == nil:
			profile = p
		case errors.Is(err, customer.ErrProfileNotFound):
		default:
			return nil, nil, err
		}
	}

	var docs []order.Document
	if s.documents != nil && rec.Product.CollectsDocuments() {
		d, err := s.documents.ListDocuments(ctx, rec.OwnerID, rec.Product, rec.ID)
		if err != nil {
			return nil, nil, err
		}
		docs = d
	}
	return profile, docs, nil
}

// notify runs only after the write succeeded and never fails the request.
func (s *Service) notify(ctx context.Context, rec *order.Record, profile *order.Profile, vars map[string]string) {
	if s.notifier == nil {
		return
	}
	var recipient order.Contact
	if profile != nil {
		recipient = profile.Contact
	}
	s.notifier.Send(ctx, notification.NewEvent(rec, recipient, vars))
}

func (s *Service) journalTransition(ctx context.Context, recordID string, product order.Product, from, to order.Status, actor order.Actor, res Result) {
	outcome := audit.OutcomeApplied
	switch {
	case res.NoOp:
		outcome = audit.OutcomeNoOp
	case res.OK:
	case res.Code == order.CodeConflict:
		outcome = audit.OutcomeConflict
	case res.Code == order.CodePersistenceError:
		outcome = audit.OutcomeFailed
	default:
		outcome = audit.OutcomeDenied
	}

	entry := audit.NewEntry(recordID, outcome)
	entry.Product = product
	entry.From = from
	entry.To = to
	entry.Actor = actor
	entry.Code = res.Code
	entry.Gate = res.Gate
	entry.Reason = res.Reason
	if res.OK && !res.NoOp && res.Record != nil {
		entry.Version = res.Record.Version
	}
	s.appendJournal(ctx, entry)
}

func (s *Service) appendJournal(ctx context.Context, entry audit.Entry) {
	if s.journal == nil {
		return
	}
	if err := s.journal.Append(ctx, entry); err != nil {
		logging.Warn().
			Add(logging.RecordID(entry.RecordID)).
			Add(logging.ErrorField(err)).
			Msg("failed to journal decision")
	}
}

// Create stores a new record in the product's initial status.
func (s *Service) Create(ctx context.Context, ownerID string, product order.Product, amountUSD decimal.Decimal, actor order.Actor) (*order.Record, error) {
	if !product.Valid() {
		return nil, fmt.Errorf("%w: %s", order.ErrUnknownProduct, product)
	}
	if ownerID == "" {
		return nil, fmt.Errorf("%w: owner is required", record.ErrInvalidRecordID)
	}
	switch actor.Role {
	case order.RoleAdmin:
	case order.RoleOwner:
		if actor.ID != ownerID {
			return nil, order.NewTransitionError(order.CodeForbidden, "owners may only create their own records")
		}
	default:
		return nil, order.ErrInvalidActor
	}
	if amountUSD.IsNegative() {
		return nil, fmt.Errorf("amount must not be negative: %s", amountUSD)
	}

	rec := order.NewRecord(uuid.NewString(), ownerID, product, amountUSD)
	rec.RequiresEnhancedDocumentation = s.engine.Policy().RequiresEnhancedDocumentation(rec)
	if err := s.store.Create(ctx, rec); err != nil {
		return nil, persistenceError(err)
	}

	entry := audit.NewEntry(rec.ID, audit.OutcomeCreated)
	entry.Product = product
	entry.To = rec.Status
	entry.Actor = actor
	entry.Version = rec.Version
	s.appendJournal(ctx, entry)

	logging.Info().
		Add(logging.RecordID(rec.ID)).
		Add(logging.Product(product)).
		Add(logging.ToStatus(rec.Status)).
		Msg("record created")
	return rec, nil
}

// Get returns a record.
func (s *Service) Get(ctx context.Context, recordID string) (*order.Record, error) {
	return s.store.Get(ctx, recordID)
}

// ListAllowedTargets returns the statuses actor may request for a record.
func (s *Service) ListAllowedTargets(ctx context.Context, recordID string, actor order.Actor) ([]order.Status, error) {
	rec, err := s.store.Get(ctx, recordID)
	if err != nil {
		return nil, err
	}
	return s.engine.ListAllowedTargets(rec, actor), nil
}

// DescribeStatus returns display information for a status.
func (s *Service) DescribeStatus(status order.Status) order.StatusInfo {
	return s.engine.DescribeStatus(status)
}

// Payment stages accepted by RecordPayment.
const (
	StageAdvance = "advance"
	StageBalance = "balance"
)

// RecordPayment records an advance or balance payment on a two-phase record.
func (s *Service) RecordPayment(ctx context.Context, recordID, stage, reference string, actor order.Actor) Result {
	ctx, span := s.tracer.Start(ctx, "record_payment", recordID, attribute.String("orderflow.stage", stage))

	var (
		rec *order.Record
		err error
	)
	switch stage {
	case StageAdvance:
		rec, err = s.payments.RecordAdvance(ctx, recordID, reference, actor)
	case StageBalance:
		rec, err = s.payments.RecordBalance(ctx, recordID, reference, actor)
	default:
		err = order.NewTransitionError(order.CodeInvalidTransition, fmt.Sprintf("unknown payment stage %q", stage))
	}

	var res Result
	if err != nil {
		res = failure(err)
	} else {
		res = success(rec)
	}
	observability.Finish(span, string(res.Code), res.Err)

	if res.OK {
		s.metrics.RecordPayment(ctx, string(rec.Product), string(rec.PaymentStage))
		entry := audit.NewEntry(recordID, audit.OutcomePayment)
		entry.Product = rec.Product
		entry.From = rec.Status
		entry.To = rec.Status
		entry.Actor = actor
		entry.Reason = string(rec.PaymentStage)
		entry.Version = rec.Version
		s.appendJournal(ctx, entry)
	}
	return res
}

// ReviewDocuments sets the document verdict of a record. Verified needs at
// least one attached document.
func (s *Service) ReviewDocuments(ctx context.Context, recordID string, verdict order.DocumentVerification, actor order.Actor, note string) Result {
	ctx, span := s.tracer.Start(ctx, "review_documents", recordID, attribute.String("orderflow.verdict", string(verdict)))
	res := s.reviewDocuments(ctx, recordID, verdict, actor, note)
	observability.Finish(span, string(res.Code), res.Err)

	if res.OK && res.Record != nil {
		entry := audit.NewEntry(recordID, audit.OutcomeReview)
		entry.Product = res.Record.Product
		entry.From = res.Record.Status
		entry.To = res.Record.Status
		entry.Actor = actor
		entry.Reason = string(verdict)
		entry.Version = res.Record.Version
		s.appendJournal(ctx, entry)
	}
	return res
}

func (s *Service) reviewDocuments(ctx context.Context, recordID string, verdict order.DocumentVerification, actor order.Actor, note string) Result {
	if actor.Role != order.RoleAdmin || actor.ID == "" {
		return failure(order.NewTransitionError(order.CodeForbidden, "only an admin may review documents"))
	}
	if !verdict.Valid() || verdict == order.DocumentsPending {
		return failure(order.NewTransitionError(order.CodeInvalidTransition, fmt.Sprintf("unknown verdict %q", verdict)))
	}

	rec, err := s.store.Get(ctx, recordID)
	if err != nil {
		return failure(persistenceError(err))
	}
	if !rec.Product.CollectsDocuments() {
		return failure(order.NewTransitionError(order.CodeInvalidTransition,
			fmt.Sprintf("%s does not collect documents", rec.Product)))
	}
	if order.Normalize(string(rec.Status)).IsTerminal() {
		return failure(order.NewTransitionError(order.CodeInvalidTransition,
			fmt.Sprintf("cannot review documents on a %s record", rec.Status)))
	}
	if rec.DocumentVerification == verdict {
		return noOp(rec)
	}

	if verdict == order.DocumentsVerified {
		_, docs, err := s.subject(ctx, rec)
		if err != nil {
			return failure(persistenceError(err))
		}
		if len(docs) == 0 {
			return failure(order.Denied(compliance.GateDocument, "no documents attached"))
		}
	}

	v := verdict
	patch := order.Patch{
		DocumentVerification: &v,
		Stamps:               map[order.TimestampField]time.Time{order.StampDocumentsReview: s.now()},
	}
	if note != "" {
		// Admin notes, action-required messages and rejection reasons are
		// mutually exclusive.
		empty := ""
		patch.AdminNotes = &note
		patch.ActionRequiredMessage = &empty
		patch.RejectionReason = &empty
	}
	updated, err := s.store.Update(ctx, rec.ID, patch, record.ExpectRecord(rec))
	if errors.Is(err, record.ErrPreconditionFailed) {
		return failure(&order.TransitionError{Code: order.CodeConflict, Reason: order.ErrConflict.Error(), Err: err})
	}
	if err != nil {
		return failure(persistenceError(err))
	}
	return success(updated)
}

// VerifyHistory replays the applied transitions of a record from the
// audit journal through the product chart.
func (s *Service) VerifyHistory(ctx context.Context, recordID string) error {
	if s.journal == nil {
		return errors.New("audit journal is not configured")
	}
	rec, err := s.store.Get(ctx, recordID)
	if err != nil {
		return err
	}
	entries, err := s.journal.List(ctx, recordID)
	if err != nil {
		return err
	}
	path := audit.AppliedPath(entries)
	if len(path) == 0 {
		return nil
	}
	return s.engine.VerifyHistory(rec.Product, path)
}
