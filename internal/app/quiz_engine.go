package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/mikailyan/moscow-zoo-bot/internal/domain"
	"github.com/mikailyan/moscow-zoo-bot/internal/scoring"
)

// SessionRepository abstracts how sessions are stored (in-memory, Redis, etc).
// The engine never issues two calls for the same participant concurrently.
type SessionRepository interface {
	Get(participantID string) (domain.Session, bool)
	Put(session domain.Session)
	Remove(participantID string)
	ParticipantIDs() []string
}

// Catalog is the read-only question set the engine walks through.
type Catalog interface {
	Len() int
	Categories() []domain.Category
	OptionAt(question, option int) (domain.Option, error)
}

const DefaultCompletedGrace = 10 * time.Minute

// QuizEngine contains the quiz use cases: it serializes events per participant and applies
// them to that participant's session.
type QuizEngine struct {
	catalog    Catalog
	categories []domain.Category
	sessions   SessionRepository
	rnd        scoring.Random
	lanes      *dispatcher
	outbox     *dispatcher

	logger         *slog.Logger
	tracer         trace.Tracer
	now            func() time.Time
	newID          func() string
	completedGrace time.Duration
	idleTimeout    time.Duration
}

// Option customizes a QuizEngine.
type Option func(*QuizEngine)

func WithLogger(logger *slog.Logger) Option {
	return func(e *QuizEngine) { e.logger = logger }
}

// WithClock is mostly useful in tests for deterministic timestamps and eviction.
func WithClock(now func() time.Time) Option {
	return func(e *QuizEngine) { e.now = now }
}

func WithSessionIDs(newID func() string) Option {
	return func(e *QuizEngine) { e.newID = newID }
}

// WithCompletedGrace sets how long a completed session is kept before Sweep evicts it.
func WithCompletedGrace(d time.Duration) Option {
	return func(e *QuizEngine) { e.completedGrace = d }
}

// WithIdleTimeout sets how long an in-progress session may sit untouched before Sweep
// evicts it. Zero keeps in-progress sessions forever.
func WithIdleTimeout(d time.Duration) Option {
	return func(e *QuizEngine) { e.idleTimeout = d }
}

func WithTracer(tracer trace.Tracer) Option {
	return func(e *QuizEngine) { e.tracer = tracer }
}

func NewQuizEngine(catalog Catalog, store SessionRepository, rnd scoring.Random, opts ...Option) *QuizEngine {
	e := &QuizEngine{
		catalog:        catalog,
		categories:     catalog.Categories(),
		sessions:       store,
		rnd:            rnd,
		logger:         slog.Default(),
		tracer:         otel.Tracer("github.com/mikailyan/moscow-zoo-bot/internal/app"),
		now:            time.Now,
		newID:          uuid.NewString,
		completedGrace: DefaultCompletedGrace,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.lanes = newDispatcher("events", e.logger)
	e.outbox = newDispatcher("delivery", e.logger)
	return e
}

// OnStart creates or replaces the participant's session.
func (e *QuizEngine) OnStart(ctx context.Context, participantID string) (domain.Effect, error) {
	return e.Submit(ctx, domain.StartEvent(participantID))
}

// OnRestart behaves exactly like OnStart.
func (e *QuizEngine) OnRestart(ctx context.Context, participantID string) (domain.Effect, error) {
	return e.Submit(ctx, domain.RestartEvent(participantID))
}

// OnAnswer applies an answer to the participant's session.
func (e *QuizEngine) OnAnswer(ctx context.Context, participantID string, questionIndex, optionIndex int) (domain.Effect, error) {
	return e.Submit(ctx, domain.AnswerEvent(participantID, questionIndex, optionIndex))
}

type outcome struct {
	effect domain.Effect
	err    error
}

// Submit enqueues ev and waits for its effect. If ctx ends first, Submit returns ctx.Err()
// and the event still runs in its place in the participant's queue.
func (e *QuizEngine) Submit(ctx context.Context, ev domain.Event) (domain.Effect, error) {
	done := make(chan outcome, 1)
	e.enqueue(ctx, ev, func(effect domain.Effect, err error) {
		done <- outcome{effect: effect, err: err}
	}, true)
	if err := ctx.Err(); err != nil {
		return domain.Effect{}, err
	}
	select {
	case out := <-done:
		return out.effect, out.err
	case <-ctx.Done():
		return domain.Effect{}, ctx.Err()
	}
}

// Enqueue schedules ev without waiting. deliver runs after the transition on the
// participant's delivery queue: calls for one participant arrive in event order, and a slow
// deliver never holds back the next event or other participants.
func (e *QuizEngine) Enqueue(ev domain.Event, deliver func(domain.Effect, error)) {
	e.enqueue(context.Background(), ev, deliver, false)
}

// enqueue runs deliver on the delivery queue, or right on the lane when inline is set. Inline
// is only for callbacks that never block.
func (e *QuizEngine) enqueue(ctx context.Context, ev domain.Event, deliver func(domain.Effect, error), inline bool) {
	if ev.ParticipantID == "" {
		if deliver != nil {
			deliver(domain.Ignored(domain.IgnoreInvalid), fmt.Errorf("%w: empty participant id", domain.ErrInvalidEvent))
		}
		return
	}
	ctx = context.WithoutCancel(ctx)
	pid := ev.ParticipantID
	e.lanes.enqueue(pid, func() {
		effect, err := e.safeApply(ctx, ev)
		switch {
		case deliver == nil:
		case inline:
			deliver(effect, err)
		default:
			e.outbox.enqueue(pid, func() { deliver(effect, err) })
		}
	})
}

func (e *QuizEngine) safeApply(ctx context.Context, ev domain.Event) (effect domain.Effect, err error) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("panic applying event", "participant", ev.ParticipantID, "event", ev.Kind.String(), "panic", r)
			effect = domain.Ignored(domain.IgnoreInvalid)
			err = fmt.Errorf("apply %s: panic: %v", ev.Kind, r)
		}
	}()
	return e.apply(ctx, ev)
}

func (e *QuizEngine) apply(ctx context.Context, ev domain.Event) (effect domain.Effect, err error) {
	_, span := e.tracer.Start(ctx, "quiz.apply", trace.WithAttributes(
		attribute.String("quiz.event", ev.Kind.String()),
	))
	defer func() {
		span.SetAttributes(attribute.String("quiz.effect", effect.Kind.String()))
		if effect.Reason != "" {
			span.SetAttributes(attribute.String("quiz.ignored", string(effect.Reason)))
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	switch ev.Kind {
	case domain.EventStart, domain.EventRestart:
		return e.start(ev.ParticipantID), nil
	case domain.EventAnswer:
		return e.answer(ev)
	default:
		return domain.Ignored(domain.IgnoreInvalid), fmt.Errorf("%w: kind %d", domain.ErrInvalidEvent, ev.Kind)
	}
}

func (e *QuizEngine) start(participantID string) domain.Effect {
	now := e.now()
	session := domain.Session{
		ID:               e.newID(),
		ParticipantID:    participantID,
		ExpectedQuestion: 0,
		Tally:            domain.NewTally(e.categories),
		Phase:            domain.PhaseInProgress,
		StartedAt:        now,
		UpdatedAt:        now,
	}
	e.sessions.Put(session)
	e.logger.Info("session started", "participant", participantID, "session", session.ID)
	return domain.PresentQuestion(0)
}

func (e *QuizEngine) answer(ev domain.Event) (domain.Effect, error) {
	session, ok := e.sessions.Get(ev.ParticipantID)
	if !ok {
		return domain.Ignored(domain.IgnoreAbsent), nil
	}
	if session.Phase == domain.PhaseCompleted {
		return domain.Ignored(domain.IgnoreCompleted), nil
	}
	if ev.QuestionIndex != session.ExpectedQuestion {
		e.logger.Debug("stale answer ignored",
			"participant", ev.ParticipantID,
			"question", ev.QuestionIndex,
			"expected", session.ExpectedQuestion,
		)
		return domain.Ignored(domain.IgnoreStale), nil
	}

	option, err := e.catalog.OptionAt(ev.QuestionIndex, ev.OptionIndex)
	if err != nil {
		return domain.Ignored(domain.IgnoreInvalid), fmt.Errorf("answer question %d: %w", ev.QuestionIndex, err)
	}

	session.Tally = scoring.ApplyOption(session.Tally, option)
	session.ExpectedQuestion++
	session.UpdatedAt = e.now()

	if session.ExpectedQuestion < e.catalog.Len() {
		e.sessions.Put(session)
		return domain.PresentQuestion(session.ExpectedQuestion), nil
	}

	result, err := scoring.Resolve(session.Tally, e.rnd)
	if err != nil {
		return domain.Ignored(domain.IgnoreInvalid), fmt.Errorf("resolve session %s: %w", session.ID, err)
	}
	session.Phase = domain.PhaseCompleted
	session.Result = &result
	e.sessions.Put(session)
	e.logger.Info("session completed",
		"participant", ev.ParticipantID,
		"session", session.ID,
		"winner", string(result.Winner),
		"tied", len(result.Tied),
	)
	return domain.PresentResult(result), nil
}

// Sweep evicts completed sessions older than the grace period and, when an idle timeout is
// set, in-progress sessions idle for longer than it. Each eviction runs on the participant's
// lane, so it never interleaves with that participant's events. Sweep waits for the
// evictions, or until ctx ends, and returns how many sessions were removed so far.
func (e *QuizEngine) Sweep(ctx context.Context, now time.Time) int {
	var (
		wg      sync.WaitGroup
		removed atomic.Int64
	)
	for _, id := range e.sessions.ParticipantIDs() {
		id := id
		session, ok := e.sessions.Get(id)
		if !ok || !e.expired(session, now) {
			continue
		}
		wg.Add(1)
		e.lanes.enqueue(id, func() {
			defer wg.Done()
			current, ok := e.sessions.Get(id)
			if !ok || !e.expired(current, now) {
				return
			}
			e.sessions.Remove(id)
			removed.Add(1)
			e.logger.Debug("session evicted", "participant", id, "session", current.ID, "phase", string(current.Phase))
		})
	}
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}
	return int(removed.Load())
}

func (e *QuizEngine) expired(s domain.Session, now time.Time) bool {
	idle := now.Sub(s.UpdatedAt)
	if s.Phase == domain.PhaseCompleted {
		return idle >= e.completedGrace
	}
	return e.idleTimeout > 0 && idle >= e.idleTimeout
}

// RunJanitor calls Sweep every interval until ctx ends.
func (e *QuizEngine) RunJanitor(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		<-ctx.Done()
		return nil
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if n := e.Sweep(ctx, e.now()); n > 0 {
				e.logger.Info("evicted sessions", "count", n)
			}
		}
	}
}

// ActiveLanes reports how many participants currently have events queued or running.
func (e *QuizEngine) ActiveLanes() int {
	return e.lanes.active()
}

// PendingDeliveries reports how many participants have effects waiting to be delivered.
func (e *QuizEngine) PendingDeliveries() int {
	return e.outbox.active()
}
