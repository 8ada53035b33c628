package redis

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mikailyan/moscow-zoo-bot/internal/domain"
	"github.com/mikailyan/moscow-zoo-bot/internal/infra/memory"
)

const markerQueueSize = 1024

// SessionStore is a Redis-aware implementation of app.SessionRepository.
// Notes:
//   - The in-process memory store stays authoritative; sessions are not restored from Redis.
//   - Redis holds a liveness marker per participant (hash quiz:session:{id} with session,
//     phase and question) so operators can see active quizzes across replicas.
//   - Markers are written by one background writer in call order. Put and Remove never wait
//     on Redis; when the queue is full the marker update is dropped and logged.
//   - Markers expire on their own: inProgressTTL while a quiz runs, completedTTL afterwards.
type SessionStore struct {
	*memory.SessionStore

	client        *redis.Client
	inProgressTTL time.Duration
	completedTTL  time.Duration
	timeout       time.Duration
	logger        *slog.Logger

	ops       chan markerOp
	quit      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// markerOp writes session's marker, or deletes participantID's marker when session is nil.
// flushed, when set, is closed once every earlier op has been written.
type markerOp struct {
	participantID string
	session       *domain.Session
	flushed       chan struct{}
}

func NewSessionStore(client *redis.Client, inProgressTTL, completedTTL time.Duration, logger *slog.Logger) *SessionStore {
	if logger == nil {
		logger = slog.Default()
	}
	s := &SessionStore{
		SessionStore:  memory.NewSessionStore(),
		client:        client,
		inProgressTTL: inProgressTTL,
		completedTTL:  completedTTL,
		timeout:       time.Second,
		logger:        logger,
		ops:           make(chan markerOp, markerQueueSize),
		quit:          make(chan struct{}),
		done:          make(chan struct{}),
	}
	go s.run()
	return s
}

func (s *SessionStore) Put(session domain.Session) {
	s.SessionStore.Put(session)
	s.submit(markerOp{participantID: session.ParticipantID, session: &session})
}

func (s *SessionStore) Remove(participantID string) {
	s.SessionStore.Remove(participantID)
	s.submit(markerOp{participantID: participantID})
}

// Close writes the queued markers and stops the writer.
func (s *SessionStore) Close() {
	s.closeOnce.Do(func() { close(s.quit) })
	<-s.done
}

func (s *SessionStore) submit(op markerOp) {
	select {
	case <-s.quit:
		return
	default:
	}
	select {
	case s.ops <- op:
	default:
		s.logger.Warn("redis marker queue full, update dropped", "participant", op.participantID)
	}
}

// flush blocks until every marker submitted before it is written.
func (s *SessionStore) flush() {
	flushed := make(chan struct{})
	s.ops <- markerOp{flushed: flushed}
	<-flushed
}

func (s *SessionStore) run() {
	defer close(s.done)
	for {
		select {
		case op := <-s.ops:
			s.apply(op)
		case <-s.quit:
			for {
				select {
				case op := <-s.ops:
					s.apply(op)
				default:
					return
				}
			}
		}
	}
}

func (s *SessionStore) apply(op markerOp) {
	switch {
	case op.flushed != nil:
		close(op.flushed)
	case op.session != nil:
		s.writeMarker(*op.session)
	default:
		s.deleteMarker(op.participantID)
	}
}

func (s *SessionStore) writeMarker(session domain.Session) {
	ttl := s.inProgressTTL
	if session.Phase == domain.PhaseCompleted {
		ttl = s.completedTTL
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	key := s.key(session.ParticipantID)
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, key)
	pipe.HSet(ctx, key,
		"session", session.ID,
		"phase", string(session.Phase),
		"question", strconv.Itoa(session.ExpectedQuestion),
	)
	if ttl > 0 {
		pipe.Expire(ctx, key, ttl)
	}
	// best-effort liveness marker
	if _, err := pipe.Exec(ctx); err != nil {
		s.logger.Warn("redis session marker not written", "participant", session.ParticipantID, "error", err)
	}
}

func (s *SessionStore) deleteMarker(participantID string) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	if err := s.client.Del(ctx, s.key(participantID)).Err(); err != nil {
		s.logger.Warn("redis session marker not removed", "participant", participantID, "error", err)
	}
}

func (s *SessionStore) key(participantID string) string {
	return "quiz:session:" + participantID
}
