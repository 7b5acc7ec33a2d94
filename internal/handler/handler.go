package handler

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"stampbot/internal/attendance"
	"stampbot/internal/dedupe"
	"stampbot/internal/metrics"
	"stampbot/internal/refresh"
)

// Attendance is the use-case layer behind the webhooks.
type Attendance interface {
	Buttons(ctx context.Context, userID string) ([]attendance.Action, error)
	Stamp(ctx context.Context, userID string, code attendance.Code) (attendance.Stamp, error)
	RegisterToken(ctx context.Context, userID, raw string) (attendance.UserToken, error)
}

// Chat is the subset of the Slack Web API the handlers call.
type Chat interface {
	JoinChannel(ctx context.Context, channelID string) error
	PostMessage(ctx context.Context, channelID, text string) error
	OpenTokenDialog(ctx context.Context, triggerID string) error
}

// TokenLister lists stored tokens for the admin API.
type TokenLister interface {
	FetchAll(ctx context.Context) ([]attendance.UserToken, error)
}

// Refresher runs one token refresh batch.
type Refresher interface {
	Run(ctx context.Context) (refresh.Result, error)
}

// HealthChecker reports whether a dependency is reachable.
type HealthChecker interface {
	Healthy(ctx context.Context) bool
}

// Deps are the collaborators a Handler needs. Guard, Tokens, Refresher and
// Metrics are optional.
type Deps struct {
	Attendance Attendance
	Chat       Chat
	Guard      dedupe.Guard
	Tokens     TokenLister
	Refresher  Refresher
	Health     map[string]HealthChecker
	Metrics    *metrics.Metrics
	Log        zerolog.Logger
	// ChannelID is where stamps are announced; empty disables announcements.
	ChannelID string
	// SlackTimeout bounds each outgoing Slack call.
	SlackTimeout time.Duration
}

// Handler serves the Slack webhooks and the admin API.
type Handler struct {
	Deps
}

// New creates a handler.
func New(d Deps) *Handler {
	if d.SlackTimeout <= 0 {
		d.SlackTimeout = 10 * time.Second
	}
	d.Log = d.Log.With().Str("component", "handler").Logger()
	return &Handler{Deps: d}
}

func (h *Handler) slackContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, h.SlackTimeout)
}
