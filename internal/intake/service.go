package intake

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/wolfman30/patient-intake/pkg/logging"
)

// Notifier is told about committed bookings. Failures never undo a booking.
type Notifier interface {
	BookingConfirmed(ctx context.Context, b Booking) error
}

// Archiver receives sessions that reached END, booked or abandoned.
type Archiver interface {
	ArchiveSession(ctx context.Context, s *Session) error
}

// Metrics receives per-turn counters. A nil Metrics is allowed.
type Metrics interface {
	ObserveTurn(state, errorKind string)
	ObserveTransition(from, to string)
	ObserveBooking(result string)
	ObserveAddressValidation(result string)
}

// Service runs conversations against a Store. Turns for the same session are
// serialized in process; the store's version check covers other processes.
type Service struct {
	machine  *Machine
	store    Store
	notifier Notifier
	archiver Archiver
	metrics  Metrics
	logger   *logging.Logger
	locks    *keyedMutex
	newID    func() string
	now      func() time.Time
}

type ServiceOption func(*Service)

func WithNotifier(n Notifier) ServiceOption {
	return func(s *Service) { s.notifier = n }
}

func WithArchiver(a Archiver) ServiceOption {
	return func(s *Service) { s.archiver = a }
}

func WithMetrics(m Metrics) ServiceOption {
	return func(s *Service) { s.metrics = m }
}

func WithServiceLogger(l *logging.Logger) ServiceOption {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithIDGenerator replaces the uuid session ids, mostly for tests.
func WithIDGenerator(gen func() string) ServiceOption {
	return func(s *Service) {
		if gen != nil {
			s.newID = gen
		}
	}
}

func NewService(machine *Machine, store Store, opts ...ServiceOption) *Service {
	if machine == nil {
		panic("intake: machine cannot be nil")
	}
	if store == nil {
		panic("intake: store cannot be nil")
	}
	s := &Service{
		machine: machine,
		store:   store,
		logger:  logging.Default(),
		locks:   newKeyedMutex(),
		newID:   func() string { return uuid.New().String() },
		now:     machine.now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start opens a session and returns the greeting.
func (s *Service) Start(ctx context.Context) (Outcome, error) {
	sess := NewSession(s.newID(), s.now())
	out := s.machine.Greet(sess)
	if err := s.store.Create(ctx, sess); err != nil {
		return Outcome{}, fmt.Errorf("intake: start session: %w", err)
	}
	s.logger.Info("intake session started", "session_id", sess.ID)
	return out, nil
}

// ProcessMessage runs one user turn. When the turn fails the stored session
// is untouched and the returned outcome carries the retry reply.
func (s *Service) ProcessMessage(ctx context.Context, sessionID, text string) (Outcome, error) {
	unlock := s.locks.lock(sessionID)
	defer unlock()

	sess, err := s.store.Load(ctx, sessionID)
	if err != nil {
		return Outcome{}, err
	}
	from := sess.State
	out, err := s.machine.Step(ctx, sess, text)
	s.observeTurn(from, out)
	if err != nil {
		return out, err
	}
	if err := s.store.Save(ctx, sess); err != nil {
		s.logger.Error("intake session save failed", "session_id", sessionID, "error", err)
		return out, fmt.Errorf("intake: save session: %w", err)
	}

	var slotErr *SlotUnavailableError
	switch {
	case out.Booking != nil:
		s.observeBooking("booked")
		s.notify(ctx, *out.Booking)
	case errors.As(out.Err, &slotErr):
		s.observeBooking("slot_unavailable")
	}
	if sess.State.Terminal() {
		s.archive(ctx, sess)
	}
	return out, nil
}

// Abandon ends a session at the user's request.
func (s *Service) Abandon(ctx context.Context, sessionID string) (Outcome, error) {
	unlock := s.locks.lock(sessionID)
	defer unlock()

	sess, err := s.store.Load(ctx, sessionID)
	if err != nil {
		return Outcome{}, err
	}
	if sess.State.Terminal() {
		return Outcome{}, ErrSessionEnded
	}
	from := sess.State
	out := s.machine.Abandon(sess)
	if err := s.store.Save(ctx, sess); err != nil {
		return out, fmt.Errorf("intake: save session: %w", err)
	}
	s.observeTurn(from, out)
	s.logger.Info("intake session abandoned", "session_id", sessionID, "state", string(from))
	s.archive(ctx, sess)
	return out, nil
}

func (s *Service) Get(ctx context.Context, sessionID string) (*Session, error) {
	return s.store.Load(ctx, sessionID)
}

func (s *Service) observeTurn(from State, out Outcome) {
	if s.metrics == nil {
		return
	}
	s.metrics.ObserveTurn(string(from), out.ErrorKind)
	prev := from
	for _, st := range out.Path {
		if st != prev {
			s.metrics.ObserveTransition(string(prev), string(st))
		}
		prev = st
	}
	if out.AddressCheck != "" {
		s.metrics.ObserveAddressValidation(out.AddressCheck)
	}
}

func (s *Service) observeBooking(result string) {
	if s.metrics != nil {
		s.metrics.ObserveBooking(result)
	}
}

func (s *Service) notify(ctx context.Context, b Booking) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.BookingConfirmed(ctx, b); err != nil {
		s.logger.Warn("booking confirmation not sent",
			"visit_id", b.VisitID,
			"error", err,
		)
	}
}

func (s *Service) archive(ctx context.Context, sess *Session) {
	if s.archiver == nil {
		return
	}
	if err := s.archiver.ArchiveSession(ctx, sess); err != nil {
		s.logger.Warn("session archive failed", "session_id", sess.ID, "error", err)
	}
}

// keyedMutex hands out one lock per key and forgets keys nobody holds.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refMutex
}

type refMutex struct {
	sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*refMutex)}
}

func (k *keyedMutex) lock(key string) func() {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &refMutex{}
		k.locks[key] = m
	}
	m.refs++
	k.mu.Unlock()

	m.Lock()
	return func() {
		m.Unlock()
		k.mu.Lock()
		m.refs--
		if m.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
