// Package reminder is the scheduling and state-synchronization engine: it
// decides when each questionnaire falls due again, materializes inbox
// records exactly once, and arranges future push delivery.
package reminder

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/calebmorris/wellbeat/internal/model"
	"github.com/calebmorris/wellbeat/internal/push"
)

// Kind distinguishes the reminder fired at the due instant from the one
// fired a day ahead of it.
type Kind string

const (
	KindMain   Kind = "main"
	KindPreDue Kind = "pre-due"
)

const (
	// maxFutureWindow rejects runaway due dates produced by corrupt config.
	maxFutureWindow = 365 * 24 * time.Hour
	// deliveryAttempts bounds retries for transient delivery failures.
	deliveryAttempts = 3
)

// Transport delivers one payload to one subscription.
type Transport interface {
	Send(sub model.PushSubscription, payload push.Payload) error
}

// SubscriptionSource lists a user's push endpoints and prunes dead ones.
type SubscriptionSource interface {
	ListByUser(userID string) ([]model.PushSubscription, error)
	DeleteByEndpoint(endpoint string) error
}

type jobKey struct {
	userID string
	qt     model.QuestionnaireType
	kind   Kind
}

type job struct {
	key         jobKey
	fireAt      time.Time
	payload     push.Payload
	createInApp bool
	timer       *time.Timer
}

// Scheduler arms at most one timer per (user, type, kind). Scheduling an
// already-armed key replaces the previous timer; the newest call always
// wins, including over an in-flight fire of a stale instance.
type Scheduler struct {
	mu        sync.Mutex
	jobs      map[jobKey]*job
	transport Transport
	subs      SubscriptionSource
	logger    *slog.Logger

	// onDelivered runs after a successful main delivery whose job asked for
	// in-app materialization; the manager points it at a reconcile pass.
	onDelivered func(userID string, qt model.QuestionnaireType)

	now         func() time.Time
	backoffBase time.Duration
}

func NewScheduler(transport Transport, subs SubscriptionSource, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		jobs:        make(map[jobKey]*job),
		transport:   transport,
		subs:        subs,
		logger:      logger,
		now:         time.Now,
		backoffBase: time.Second,
	}
}

// SetOnDelivered registers the post-delivery hook. Must be called before
// the first Schedule.
func (s *Scheduler) SetOnDelivered(fn func(userID string, qt model.QuestionnaireType)) {
	s.onDelivered = fn
}

// Schedule arms delivery of a reminder at dueAt. Past and absurdly far
// future due dates are rejected as logged no-ops; they indicate a caller
// bug or corrupt state, and a missed reminder beats a wrong one.
func (s *Scheduler) Schedule(userID string, qt model.QuestionnaireType, dueAt time.Time, title, message string, kind Kind, createInApp bool) {
	now := s.now()
	delay := dueAt.Sub(now)
	if delay <= 0 {
		s.logger.Warn("refusing to schedule reminder in the past",
			"user_id", userID, "type", qt, "kind", kind, "due_at", dueAt)
		return
	}
	if delay > maxFutureWindow {
		s.logger.Warn("refusing to schedule reminder beyond a year out",
			"user_id", userID, "type", qt, "kind", kind, "due_at", dueAt)
		return
	}

	key := jobKey{userID: userID, qt: qt, kind: kind}
	j := &job{
		key:    key,
		fireAt: dueAt,
		payload: push.Payload{
			Title:             title,
			Body:              message,
			QuestionnaireType: string(qt),
			Tag:               string(qt) + "-" + string(kind),
		},
		createInApp: createInApp,
	}

	s.mu.Lock()
	if prev, ok := s.jobs[key]; ok {
		prev.timer.Stop()
	}
	j.timer = time.AfterFunc(delay, func() { s.fire(j) })
	s.jobs[key] = j
	s.mu.Unlock()

	s.logger.Debug("reminder scheduled",
		"user_id", userID, "type", qt, "kind", kind, "due_at", dueAt)
}

// Cancel removes both the main and pre-due jobs for (user, type).
func (s *Scheduler) Cancel(userID string, qt model.QuestionnaireType) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, kind := range []Kind{KindMain, KindPreDue} {
		key := jobKey{userID: userID, qt: qt, kind: kind}
		if j, ok := s.jobs[key]; ok {
			j.timer.Stop()
			delete(s.jobs, key)
		}
	}
}

// CancelAll sweeps every armed job.
func (s *Scheduler) CancelAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, j := range s.jobs {
		j.timer.Stop()
		delete(s.jobs, key)
	}
}

// JobCount returns the number of armed jobs.
func (s *Scheduler) JobCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

// Armed reports whether a job is armed for (user, type, kind).
func (s *Scheduler) Armed(userID string, qt model.QuestionnaireType, kind Kind) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.jobs[jobKey{userID: userID, qt: qt, kind: kind}]
	return ok
}

func (s *Scheduler) fire(j *job) {
	// A stale instance must not unregister its replacement.
	s.mu.Lock()
	if s.jobs[j.key] == j {
		delete(s.jobs, j.key)
	} else {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	delivered := s.deliver(j)

	if delivered && j.key.kind == KindMain && j.createInApp && s.onDelivered != nil {
		s.onDelivered(j.key.userID, j.key.qt)
	}
}

// deliver pushes the payload to every endpoint the user has registered.
// Transient failures are retried with exponential backoff up to
// deliveryAttempts total attempts, then abandoned with a logged failure;
// nothing here escalates to a caller.
func (s *Scheduler) deliver(j *job) bool {
	subs, err := s.subs.ListByUser(j.key.userID)
	if err != nil {
		s.logger.Error("list subscriptions for delivery",
			"user_id", j.key.userID, "type", j.key.qt, "error", err)
		return false
	}
	if len(subs) == 0 {
		s.logger.Debug("no push subscriptions, dropping reminder",
			"user_id", j.key.userID, "type", j.key.qt)
		return false
	}

	delivered := false
	for _, sub := range subs {
		if err := s.sendWithRetry(sub, j.payload); err != nil {
			switch {
			case errors.Is(err, push.ErrExpired):
				s.logger.Info("pruning expired push subscription",
					"user_id", j.key.userID, "endpoint", sub.Endpoint)
				if derr := s.subs.DeleteByEndpoint(sub.Endpoint); derr != nil {
					s.logger.Error("prune expired subscription", "error", derr)
				}
			case errors.Is(err, push.ErrDenied):
				s.logger.Warn("push delivery denied, abandoning",
					"user_id", j.key.userID, "type", j.key.qt, "endpoint", sub.Endpoint)
			default:
				s.logger.Error("push delivery failed after retries",
					"user_id", j.key.userID, "type", j.key.qt, "attempts", deliveryAttempts, "error", err)
			}
			continue
		}
		delivered = true
	}
	return delivered
}

func (s *Scheduler) sendWithRetry(sub model.PushSubscription, payload push.Payload) error {
	backoff := retry.WithMaxRetries(deliveryAttempts-1, retry.NewExponential(s.backoffBase))
	return retry.Do(context.Background(), backoff, func(ctx context.Context) error {
		err := s.transport.Send(sub, payload)
		if err == nil {
			return nil
		}
		// Expired and denied endpoints never recover on retry.
		if errors.Is(err, push.ErrExpired) || errors.Is(err, push.ErrDenied) {
			return err
		}
		return retry.RetryableError(err)
	})
}
