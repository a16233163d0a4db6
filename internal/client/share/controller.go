package share

import (
	"context"
	"errors"
	"time"

	"github.com/atinyakov/DexWatch/internal/models"
	"go.uber.org/zap"
)

// Mode selects how the controller reacts to transport and payload failures.
type Mode int

const (
	// SingleShot surfaces transport and payload failures to the caller.
	SingleShot Mode = iota
	// Continuous absorbs transport and payload failures and keeps trying
	// until a reading arrives, a retry ceiling is exceeded or ctx ends.
	Continuous
)

// State is the controller's position in the authenticate-then-fetch cycle.
type State int

// States of a Next call.
const (
	NeedAuth State = iota
	Authenticating
	Fetching
	Success
	GiveUp
)

func (s State) String() string {
	switch s {
	case NeedAuth:
		return "NEED_AUTH"
	case Authenticating:
		return "AUTHENTICATING"
	case Fetching:
		return "FETCHING"
	case Success:
		return "SUCCESS"
	case GiveUp:
		return "GIVE_UP"
	default:
		return "UNKNOWN"
	}
}

// Config holds the retry policy of a Controller.
type Config struct {
	AuthBackoffBase  int
	MaxAuthFailures  int
	FetchBackoffBase int
	MaxFetchFailures int
	// BackoffUnit is the duration of one backoff unit.
	BackoffUnit time.Duration
	// TransportRetryDelay is the fixed wait after a transport error in Continuous mode.
	TransportRetryDelay time.Duration
	// StaleAfter triggers a warning when a reading is older than this. Zero disables it.
	StaleAfter time.Duration
	Mode       Mode
}

// DefaultConfig returns the policy used by the command line tools.
func DefaultConfig() Config {
	return Config{
		AuthBackoffBase:     2,
		MaxAuthFailures:     3,
		FetchBackoffBase:    2,
		MaxFetchFailures:    10,
		BackoffUnit:         time.Second,
		TransportRetryDelay: 30 * time.Second,
		StaleAfter:          15 * time.Minute,
		Mode:                SingleShot,
	}
}

// Option customizes a Controller.
type Option func(*Controller)

// WithSleep replaces the function used for every wait.
func WithSleep(sleep SleepFunc) Option {
	return func(c *Controller) { c.backoff.Sleep = sleep }
}

// WithClock replaces the clock used to compute reading lag.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// Controller owns one session and drives login and fetch with retries.
// A Controller is not safe for concurrent use; concurrent pollers need
// their own Controller.
type Controller struct {
	api      API
	cfg      Config
	session  Session
	sessions *SessionManager
	backoff  Backoff
	state    State
	now      func() time.Time
	log      *zap.Logger
}

// NewController returns a Controller in the NeedAuth state.
func NewController(api API, cfg Config, log *zap.Logger, opts ...Option) *Controller {
	c := &Controller{
		api:     api,
		cfg:     cfg,
		backoff: Backoff{Unit: cfg.BackoffUnit, Sleep: Sleep},
		state:   NeedAuth,
		now:     time.Now,
		log:     log,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.sessions = NewSessionManager(api, cfg.AuthBackoffBase, cfg.MaxAuthFailures, c.backoff, log)
	return c
}

// State returns the state reached by the last Next call. A successful
// controller whose session has since been cleared reports NeedAuth.
func (c *Controller) State() State {
	if c.state == Success && !c.session.Valid() {
		return NeedAuth
	}
	return c.state
}

// Session returns the session owned by the controller.
func (c *Controller) Session() *Session { return &c.session }

// Next returns the latest reading, authenticating first when no session is held.
func (c *Controller) Next(ctx context.Context) (models.Reading, error) {
	if !c.session.Valid() {
		c.state = NeedAuth
	}
	fetchFails := 0
	for {
		if err := ctx.Err(); err != nil {
			return models.Reading{}, err
		}

		if !c.session.Valid() {
			c.state = Authenticating
			if err := c.sessions.Authenticate(ctx, &c.session); err != nil {
				if surfaced := c.onTransportError(ctx, err); surfaced != nil {
					return models.Reading{}, c.giveUp(surfaced)
				}
				continue
			}
		}

		c.state = Fetching
		res, err := c.api.FetchLatest(ctx, c.session.Token())
		if err != nil {
			c.session.Clear()
			if surfaced := c.onTransportError(ctx, err); surfaced != nil {
				return models.Reading{}, c.giveUp(surfaced)
			}
			continue
		}

		if res.StatusCode < 400 {
			reading, err := ParseReadings(res.Body, c.now())
			if err == nil {
				c.warnIfStale(reading)
				c.state = Success
				return reading, nil
			}
			c.session.Clear()
			c.log.Error("could not decode reading", zap.Int("status", res.StatusCode), zap.Error(err))
			if c.cfg.Mode == SingleShot {
				return models.Reading{}, c.giveUp(err)
			}
			fetchFails++
			if fetchFails > c.cfg.MaxFetchFailures {
				return models.Reading{}, c.giveUp(err)
			}
			if err := c.backoff.Wait(ctx, c.cfg.FetchBackoffBase, fetchFails-1); err != nil {
				return models.Reading{}, c.giveUp(err)
			}
			continue
		}

		fetchFails++
		if fetchFails > c.cfg.MaxFetchFailures {
			c.session.Clear()
			c.log.Error("fetch gave up", zap.Int("status", res.StatusCode), zap.Int("failures", fetchFails))
			return models.Reading{}, c.giveUp(&FetchError{StatusCode: res.StatusCode, Body: res.Body})
		}
		if fetchFails*2 > c.cfg.MaxFetchFailures {
			c.log.Warn("fetch failed, trying to re-auth", zap.Int("status", res.StatusCode), zap.Int("attempt", fetchFails))
			c.session.Clear()
		} else {
			c.log.Warn("fetch failed, trying again", zap.Int("status", res.StatusCode), zap.Int("attempt", fetchFails))
		}
		if err := c.backoff.Wait(ctx, c.cfg.FetchBackoffBase, fetchFails-1); err != nil {
			return models.Reading{}, c.giveUp(err)
		}
	}
}

// onTransportError returns nil when the caller should loop again, or the
// error to surface.
func (c *Controller) onTransportError(ctx context.Context, err error) error {
	var te *TransportError
	if !errors.As(err, &te) {
		return err
	}
	c.session.Clear()
	if c.cfg.Mode == SingleShot {
		return err
	}
	c.log.Warn("connection error, sleeping before next attempt",
		zap.Error(err),
		zap.Duration("delay", c.cfg.TransportRetryDelay),
	)
	if err := c.backoff.Pause(ctx, c.cfg.TransportRetryDelay); err != nil {
		return err
	}
	return nil
}

func (c *Controller) giveUp(err error) error {
	c.state = GiveUp
	return err
}

func (c *Controller) warnIfStale(r models.Reading) {
	if c.cfg.StaleAfter <= 0 {
		return
	}
	lag := time.Duration(r.ReadingLag) * time.Second
	if lag > c.cfg.StaleAfter {
		c.log.Warn("no new measurement from Dexcom",
			zap.Int("minutes_since_last", int(lag/time.Minute)),
			zap.Int64("last_reading_time", r.LastReadingTime),
		)
	}
}
