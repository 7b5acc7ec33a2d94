// Package refresh reissues AKASHI tokens before they expire and drops the
// ones AKASHI no longer accepts.
//
// Tokens registered through Slack have no known expiry, so they are picked up
// by the first run after registration.
package refresh

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"stampbot/internal/akashi"
	"stampbot/internal/attendance"
	"stampbot/internal/metrics"
)

// DefaultLookahead is how far ahead of expiry tokens are reissued.
const DefaultLookahead = 48 * time.Hour

// ErrAlreadyRunning is returned when Run is called while a run is in progress.
var ErrAlreadyRunning = errors.New("refresh: already running")

// Store is the token persistence used by the job.
type Store interface {
	FetchExpiringBefore(ctx context.Context, t time.Time) ([]attendance.UserToken, error)
	Update(ctx context.Context, t attendance.UserToken, token string, expiresAt *time.Time) (attendance.UserToken, error)
	Delete(ctx context.Context, t attendance.UserToken) error
}

// Reissuer exchanges a token for a new one.
type Reissuer interface {
	ReissueToken(ctx context.Context, token string) (akashi.ReissuedToken, error)
}

// Result counts what a run did.
type Result struct {
	Targets int `json:"targets"`
	Updated int `json:"updated"`
	Deleted int `json:"deleted"`
	Errored int `json:"errored"`
}

// Job is one refresh batch definition.
type Job struct {
	store     Store
	api       Reissuer
	lookahead time.Duration
	now       func() time.Time
	log       zerolog.Logger
	metrics   *metrics.Metrics
	mu        sync.Mutex
}

// Option customises a Job.
type Option func(*Job)

// WithLookahead overrides DefaultLookahead.
func WithLookahead(d time.Duration) Option {
	return func(j *Job) {
		if d > 0 {
			j.lookahead = d
		}
	}
}

// WithClock injects the time source.
func WithClock(now func() time.Time) Option {
	return func(j *Job) { j.now = now }
}

// WithMetrics records outcomes on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(j *Job) { j.metrics = m }
}

// New creates a refresh job.
func New(store Store, api Reissuer, log zerolog.Logger, opts ...Option) *Job {
	j := &Job{
		store:     store,
		api:       api,
		lookahead: DefaultLookahead,
		now:       time.Now,
		log:       log.With().Str("component", "refresh").Logger(),
	}
	for _, o := range opts {
		o(j)
	}
	return j
}

// Run reissues every token that expires within the lookahead window or has no
// known expiry. Tokens AKASHI rejects, or that cannot be reissued because the
// request itself fails, are deleted. Other failures leave the record in place
// and are counted as errored.
func (j *Job) Run(ctx context.Context) (Result, error) {
	if !j.mu.TryLock() {
		return Result{}, ErrAlreadyRunning
	}
	defer j.mu.Unlock()

	var res Result
	tokens, err := j.store.FetchExpiringBefore(ctx, j.now().Add(j.lookahead))
	if err != nil {
		return res, err
	}
	res.Targets = len(tokens)

	for _, t := range tokens {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		switch j.refreshOne(ctx, t) {
		case outcomeUpdated:
			res.Updated++
		case outcomeDeleted:
			res.Deleted++
		default:
			res.Errored++
		}
	}

	j.log.Info().
		Int("targets", res.Targets).
		Int("updated", res.Updated).
		Int("deleted", res.Deleted).
		Int("errored", res.Errored).
		Msg("token refresh finished")
	return res, nil
}

type outcome string

const (
	outcomeUpdated outcome = "updated"
	outcomeDeleted outcome = "deleted"
	outcomeErrored outcome = "errored"
)

func (j *Job) refreshOne(ctx context.Context, t attendance.UserToken) (o outcome) {
	log := j.log.With().Str("user_id", t.UserID).Str("token", t.Masked()).Logger()
	defer func() {
		if j.metrics != nil {
			j.metrics.Refresh.WithLabelValues(string(o)).Inc()
		}
	}()

	reissued, err := j.api.ReissueToken(ctx, t.Token)
	if err != nil {
		j.metrics.ObserveAPIError(err)
		if ctx.Err() != nil {
			log.Warn().Err(err).Msg("reissue interrupted")
			return outcomeErrored
		}
		var (
			rejection *akashi.RejectionError
			transport *akashi.TransportError
		)
		if errors.As(err, &rejection) || errors.As(err, &transport) {
			log.Error().Err(err).Msg("reissue failed, deleting token")
			if derr := j.store.Delete(ctx, t); derr != nil {
				log.Error().Err(derr).Msg("delete token failed")
				return outcomeErrored
			}
			return outcomeDeleted
		}
		log.Error().Err(err).Msg("reissue failed")
		return outcomeErrored
	}

	token, err := attendance.ParseToken(reissued.Token)
	if err != nil {
		log.Error().Err(err).Int("length", len(reissued.Token)).Msg("reissued token is not a uuid, keeping the old one")
		return outcomeErrored
	}
	expires := reissued.ExpiredAt
	if _, err := j.store.Update(ctx, t, token, &expires); err != nil {
		log.Error().Err(err).Msg("store reissued token failed")
		return outcomeErrored
	}
	log.Debug().Time("expires_at", expires).Msg("token reissued")
	return outcomeUpdated
}
