package tendering

import (
	"context"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/opentender/sealed-tender-backend/internal/domain/errors"
	"github.com/opentender/sealed-tender-backend/internal/domain/sealing"
	"github.com/opentender/sealed-tender-backend/internal/domain/tender"
	"github.com/opentender/sealed-tender-backend/internal/domain/values"
)

// service implements the Service interface
type service struct {
	repo      TenderRepository
	clock     tender.Clock
	logger    *zap.Logger
	tracer    trace.Tracer
	operators map[string]bool
	ops       *prometheus.CounterVec
}

// Option configures the service
type Option func(*service)

// WithClock injects a clock, used by tests to pin time
func WithClock(clock tender.Clock) Option {
	return func(s *service) { s.clock = clock }
}

// WithOperators grants the given identities closure rights on any tender
// in addition to each tender's creator
func WithOperators(operators []string) Option {
	return func(s *service) {
		for _, op := range operators {
			s.operators[op] = true
		}
	}
}

// WithMetrics registers the per-operation outcome counter on the given
// registerer
func WithMetrics(reg prometheus.Registerer) Option {
	return func(s *service) {
		reg.MustRegister(s.ops)
	}
}

// NewService creates a new tendering service
func NewService(repo TenderRepository, logger *zap.Logger, opts ...Option) Service {
	s := &service{
		repo:      repo,
		clock:     tender.RealClock{},
		logger:    logger,
		tracer:    otel.Tracer("service.tendering"),
		operators: make(map[string]bool),
		ops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tender_operations_total",
			Help: "Protocol operations by name and outcome",
		}, []string{"operation", "outcome"}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *service) record(operation string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	s.ops.WithLabelValues(operation, outcome).Inc()
}

// CreateTender validates the schedule and persists a fresh tender
func (s *service) CreateTender(ctx context.Context, req *CreateTenderRequest) (t *tender.Tender, err error) {
	ctx, span := s.tracer.Start(ctx, "tendering.CreateTender")
	defer span.End()
	defer func() { s.record("create", err) }()

	now := s.clock.Now()
	t, err = tender.NewTender(now, req.Creator, req.Title, req.Description, req.DocRef,
		req.BiddingDeadline, req.RevealDeadline, req.MinBid)
	if err != nil {
		return nil, err
	}

	if err = s.repo.Create(ctx, t); err != nil {
		return nil, errors.NewInternalError("failed to store tender").WithCause(err)
	}

	span.SetAttributes(attribute.String("tender.id", t.ID.String()))
	s.logger.Info("tender created",
		zap.String("tender_id", t.ID.String()),
		zap.String("creator", t.Creator),
		zap.Time("bidding_deadline", t.BiddingDeadline),
		zap.Time("reveal_deadline", t.RevealDeadline))
	return t, nil
}

// CommitBid appends a sealed bid under the tender's lock. The clock is
// read once, before the mutation, so one call sees one phase.
func (s *service) CommitBid(ctx context.Context, tenderID uuid.UUID, bidder, ciphertext string) (err error) {
	ctx, span := s.tracer.Start(ctx, "tendering.CommitBid",
		trace.WithAttributes(attribute.String("tender.id", tenderID.String())))
	defer span.End()
	defer func() { s.record("commit", err) }()

	now := s.clock.Now()
	_, err = s.repo.Mutate(ctx, tenderID, func(t *tender.Tender) error {
		return t.CommitBid(now, bidder, ciphertext)
	})
	if err != nil {
		return err
	}

	s.logger.Info("bid committed",
		zap.String("tender_id", tenderID.String()),
		zap.String("bidder", bidder))
	return nil
}

// RevealBid verifies the disclosure against the stored commitment and
// appends it under the tender's lock
func (s *service) RevealBid(ctx context.Context, tenderID uuid.UUID, bidder string, amount values.Amount, key string) (err error) {
	ctx, span := s.tracer.Start(ctx, "tendering.RevealBid",
		trace.WithAttributes(attribute.String("tender.id", tenderID.String())))
	defer span.End()
	defer func() { s.record("reveal", err) }()

	now := s.clock.Now()
	_, err = s.repo.Mutate(ctx, tenderID, func(t *tender.Tender) error {
		return t.RevealBid(now, bidder, amount, key, sealing.Verify)
	})
	if err != nil {
		return err
	}

	s.logger.Info("bid revealed",
		zap.String("tender_id", tenderID.String()),
		zap.String("bidder", bidder))
	return nil
}

// CloseTender freezes the tender and selects the winner. The repository
// lock makes concurrent closes serialize; the loser of the race gets
// ALREADY_CLOSED from the aggregate.
func (s *service) CloseTender(ctx context.Context, tenderID uuid.UUID, caller string) (*tender.Winner, error) {
	var err error
	ctx, span := s.tracer.Start(ctx, "tendering.CloseTender",
		trace.WithAttributes(attribute.String("tender.id", tenderID.String())))
	defer span.End()
	defer func() { s.record("close", err) }()

	now := s.clock.Now()
	var winner *tender.Winner
	_, err = s.repo.Mutate(ctx, tenderID, func(t *tender.Tender) error {
		var closeErr error
		winner, closeErr = t.Close(now, caller, s.operators[caller])
		return closeErr
	})
	if err != nil {
		return nil, err
	}

	if winner != nil {
		s.logger.Info("tender closed with winner",
			zap.String("tender_id", tenderID.String()),
			zap.String("winner", winner.Bidder),
			zap.Int64("amount", winner.Amount.Units()))
	} else {
		s.logger.Info("tender closed with no winner",
			zap.String("tender_id", tenderID.String()))
	}
	return winner, nil
}

// SealBid seals an amount under a fresh key and builds the reveal
// packet. The key exists only in the response; the server keeps nothing.
func (s *service) SealBid(ctx context.Context, tenderID uuid.UUID, bidder string, amount values.Amount) (*SealedBid, error) {
	var err error
	ctx, span := s.tracer.Start(ctx, "tendering.SealBid")
	defer span.End()
	defer func() { s.record("seal", err) }()

	if !amount.IsPositive() {
		err = errors.NewInvalidBidError("bid amount must be positive")
		return nil, err
	}
	if _, err = s.repo.GetByID(ctx, tenderID); err != nil {
		return nil, err
	}

	key, kerr := sealing.GenerateKey()
	if kerr != nil {
		err = errors.NewInternalError("failed to generate sealing key").WithCause(kerr)
		return nil, err
	}
	ciphertext, eerr := sealing.Encrypt(amount, key)
	if eerr != nil {
		err = errors.NewInternalError("failed to seal bid").WithCause(eerr)
		return nil, err
	}
	packet, perr := sealing.Export(tenderID, bidder, key, amount, s.clock.Now())
	if perr != nil {
		err = errors.NewInternalError("failed to export reveal packet").WithCause(perr)
		return nil, err
	}

	return &SealedBid{
		Ciphertext: ciphertext,
		Key:        key.String(),
		Packet:     packet,
		Filename:   (&sealing.RevealPacket{TenderID: tenderID}).Filename(),
	}, nil
}

// UnsealBid opens a ciphertext with the supplied key
func (s *service) UnsealBid(ctx context.Context, ciphertext, key string) (values.Amount, error) {
	var err error
	_, span := s.tracer.Start(ctx, "tendering.UnsealBid")
	defer span.End()
	defer func() { s.record("unseal", err) }()

	k, err := sealing.ParseKey(key)
	if err != nil {
		return values.Amount{}, err
	}
	amount, derr := sealing.Decrypt(ciphertext, k)
	if derr != nil {
		err = derr
		return values.Amount{}, err
	}
	return amount, nil
}

// GetTender returns a consistent snapshot of one tender
func (s *service) GetTender(ctx context.Context, tenderID uuid.UUID) (*tender.Tender, error) {
	return s.repo.GetByID(ctx, tenderID)
}

// ListTenders returns all tenders
func (s *service) ListTenders(ctx context.Context) ([]*tender.Tender, error) {
	return s.repo.List(ctx)
}

// GetBidders returns the committed bidder identities for a tender
func (s *service) GetBidders(ctx context.Context, tenderID uuid.UUID) ([]string, error) {
	t, err := s.repo.GetByID(ctx, tenderID)
	if err != nil {
		return nil, err
	}
	return t.Bidders(), nil
}

// GetCommitment returns one bidder's commitment together with its
// revealed flag, both from a single snapshot. The ciphertext stays
// opaque, it is never decrypted server-side.
func (s *service) GetCommitment(ctx context.Context, tenderID uuid.UUID, bidder string) (*tender.Commitment, bool, error) {
	t, err := s.repo.GetByID(ctx, tenderID)
	if err != nil {
		return nil, false, err
	}
	c, ok := t.CommitmentOf(bidder)
	if !ok {
		return nil, false, errors.ErrBidNotFound
	}
	_, revealed := t.Reveals[bidder]
	return c, revealed, nil
}

// GetWinner returns the winner of a closed tender
func (s *service) GetWinner(ctx context.Context, tenderID uuid.UUID) (*tender.Winner, error) {
	t, err := s.repo.GetByID(ctx, tenderID)
	if err != nil {
		return nil, err
	}
	if t.Winner == nil {
		return nil, errors.ErrWinnerNotFound
	}
	return t.Winner, nil
}
