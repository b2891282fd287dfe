// Package engine composes the roster, ledger, tenant catalog and progress
// aggregator behind one API. It owns the single-writer lock, emits progress
// events and persists state in the background.
package engine

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"netventure.org/internal/auth"
	"netventure.org/internal/curriculum"
	"netventure.org/internal/ids"
	"netventure.org/internal/ledger"
	"netventure.org/internal/obs"
	"netventure.org/internal/persist"
	"netventure.org/internal/pledge"
	"netventure.org/internal/progress"
	"netventure.org/internal/rank"
	"netventure.org/internal/roster"
	"netventure.org/internal/stream"
	"netventure.org/internal/tenant"
)

var (
	ErrChallengeNotEligible = errors.New("challenge not available to participant")
	ErrReflectionRequired   = errors.New("reflection required")
)

// DefaultFlushInterval bounds how long a mutation waits before it is saved.
const DefaultFlushInterval = 2 * time.Second

type Engine struct {
	mu      sync.RWMutex
	roster  *roster.Roster
	catalog *tenant.Catalog
	ledger  *ledger.InMemory
	agg     *progress.Aggregator
	ladder  rank.Ladder

	gate   *auth.Gate
	store  persist.Store
	codec  persist.Codec
	events *stream.Stream
	log    *zap.Logger

	now   func() time.Time
	newID func() string
	rng   *rand.Rand

	flushInterval time.Duration
	dirtyMu       sync.Mutex
	dirty         map[persist.Key]bool
	kick          chan struct{}
	flushMu       sync.Mutex

	loaded bool
}

type Option func(*Engine)

// WithStore persists state to s. Without it state lives in memory only.
func WithStore(s persist.Store) Option { return func(e *Engine) { e.store = s } }

func WithCodec(c persist.Codec) Option { return func(e *Engine) { e.codec = c } }

func WithGate(g *auth.Gate) Option { return func(e *Engine) { e.gate = g } }

func WithStream(s *stream.Stream) Option { return func(e *Engine) { e.events = s } }

func WithLogger(l *zap.Logger) Option { return func(e *Engine) { e.log = l } }

func WithLadder(l rank.Ladder) Option { return func(e *Engine) { e.ladder = l } }

func WithClock(now func() time.Time) Option { return func(e *Engine) { e.now = now } }

func WithIDGenerator(f func() string) Option { return func(e *Engine) { e.newID = f } }

// WithRand sets the source used when seeding demo data.
func WithRand(r *rand.Rand) Option { return func(e *Engine) { e.rng = r } }

func WithFlushInterval(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.flushInterval = d
		}
	}
}

// New builds an engine holding only the default tenant.
func New(opts ...Option) *Engine {
	e := &Engine{
		roster:        roster.NewRoster(),
		catalog:       tenant.NewCatalog(),
		ledger:        ledger.NewInMemory(),
		now:           time.Now,
		newID:         ids.New,
		flushInterval: DefaultFlushInterval,
		dirty:         make(map[persist.Key]bool),
		kick:          make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.gate == nil {
		e.gate = auth.NewGate(auth.NewSessions(0))
	}
	if e.log == nil {
		e.log = obs.Logger()
	}
	if e.rng == nil {
		e.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if len(e.ladder) == 0 {
		e.ladder = rank.Default()
	}
	e.agg = progress.New(e.ledger, e.roster, e.catalog, e.ladder)
	return e
}

// Ladder returns the rank ladder in use.
func (e *Engine) Ladder() rank.Ladder { return e.ladder }

// Events returns the progress stream, which may be nil.
func (e *Engine) Events() *stream.Stream { return e.events }

func (e *Engine) publish(evt stream.Event) {
	if e.events == nil {
		return
	}
	if evt.Timestamp.IsZero() {
		evt.Timestamp = e.now().UTC()
	}
	e.events.Publish(evt)
}

// Enroll adds a participant. An unknown tenant id resolves to the default
// tenant; the tier is derived from the year and never changes.
func (e *Engine) Enroll(ctx context.Context, in roster.EnrollInput) (roster.Participant, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	in.TenantID = e.catalog.Resolve(strings.TrimSpace(in.TenantID)).ID
	p, err := roster.New(e.newID(), in, e.now())
	if err != nil {
		return roster.Participant{}, err
	}
	if err := e.roster.Add(p); err != nil {
		return roster.Participant{}, err
	}
	e.markDirty(persist.KeyRoster)
	e.publish(stream.Event{Kind: stream.KindEnrollment, TenantID: p.TenantID, ParticipantID: p.ID})
	e.log.Debug("participant enrolled", zap.String("participant_id", p.ID), zap.String("tenant_id", p.TenantID))
	return p, nil
}

// Outcome is the result of logging a completion.
type Outcome struct {
	Completion         ledger.Completion `json:"completion"`
	TotalPoints        int               `json:"total_points"`
	Rank               rank.Tier         `json:"rank"`
	RankedUp           bool              `json:"ranked_up"`
	NeedsReaffirmation bool              `json:"needs_reaffirmation"`
}

// LogCompletion records that a participant finished a challenge. Points
// are captured from the participant's tenant catalog at this moment.
func (e *Engine) LogCompletion(ctx context.Context, participantID, challengeID, reflection string) (Outcome, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	p, ok := e.roster.Get(participantID)
	if !ok {
		return Outcome{}, roster.ErrUnknownParticipant
	}
	cfg := e.catalog.Resolve(p.TenantID)
	ch, ok := cfg.Challenge(challengeID)
	if !ok {
		return Outcome{}, tenant.ErrUnknownChallenge
	}
	if !ch.EligibleFor(p.Tier) {
		return Outcome{}, ErrChallengeNotEligible
	}
	if !ch.Repeatable && e.ledger.Completed(p.ID, ch.ID) {
		obs.ObserveDuplicateCompletion()
		return Outcome{}, ledger.ErrDuplicateCompletion
	}
	reflection = strings.TrimSpace(reflection)
	if ch.RequiresReflection(p.Tier) && utf8.RuneCountInString(reflection) < curriculum.MinReflectionLength {
		return Outcome{}, ErrReflectionRequired
	}

	before, err := e.agg.TotalPoints(ctx, p.ID)
	if err != nil {
		return Outcome{}, err
	}
	c, err := e.ledger.Append(ctx, ledger.Entry{
		ParticipantID: p.ID,
		ChallengeID:   ch.ID,
		Points:        ch.Points,
		Reflection:    reflection,
		Repeatable:    ch.Repeatable,
		CompletedAt:   e.now(),
	})
	if err != nil {
		if errors.Is(err, ledger.ErrDuplicateCompletion) {
			obs.ObserveDuplicateCompletion()
		}
		return Outcome{}, err
	}

	total := before + c.Points
	prev := e.ladder.Resolve(before)
	out := Outcome{
		Completion:         c,
		TotalPoints:        total,
		Rank:               e.ladder.Resolve(total),
		NeedsReaffirmation: pledge.NeedsReaffirmation(p, total, e.ladder),
	}
	out.RankedUp = out.Rank.Level > prev.Level

	e.markDirty(persist.KeyLedger)
	obs.ObserveCompletion(cfg.ID)
	e.publish(stream.Event{
		Kind:               stream.KindCompletion,
		TenantID:           cfg.ID,
		ParticipantID:      p.ID,
		ChallengeID:        ch.ID,
		Points:             c.Points,
		TotalPoints:        total,
		RankLevel:          out.Rank.Level,
		RankTitle:          out.Rank.Title,
		RankedUp:           out.RankedUp,
		NeedsReaffirmation: out.NeedsReaffirmation,
	})
	return out, nil
}

// Reaffirm renews the participant's pledge at their current rank. It is a
// no-op, reporting false, when no renewal is due.
func (e *Engine) Reaffirm(ctx context.Context, participantID string) (pledge.Status, bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	p, ok := e.roster.Get(participantID)
	if !ok {
		return pledge.Status{}, false, roster.ErrUnknownParticipant
	}
	points, err := e.agg.TotalPoints(ctx, p.ID)
	if err != nil {
		return pledge.Status{}, false, err
	}
	next, changed := pledge.Reaffirm(p, points, e.ladder)
	if changed {
		if next, err = e.roster.SetPledge(p.ID, next.PledgeLevel, next.LastPledgeXP); err != nil {
			return pledge.Status{}, false, err
		}
		e.markDirty(persist.KeyRoster)
		obs.ObserveReaffirmation()
		st := pledge.StatusOf(next, points, e.ladder)
		e.publish(stream.Event{
			Kind:          stream.KindReaffirm,
			TenantID:      next.TenantID,
			ParticipantID: next.ID,
			TotalPoints:   points,
			RankLevel:     st.Rank.Level,
			RankTitle:     st.Rank.Title,
		})
	}
	return pledge.StatusOf(next, points, e.ladder), changed, nil
}

// Participant returns one participant.
func (e *Engine) Participant(id string) (roster.Participant, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	p, ok := e.roster.Get(id)
	if !ok {
		return roster.Participant{}, roster.ErrUnknownParticipant
	}
	return p, nil
}

// Participants lists a tenant's participants, or everyone when tenantID is
// empty, in enrollment order.
func (e *Engine) Participants(tenantID string) []roster.Participant {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if tenantID == "" {
		return e.roster.List()
	}
	return e.roster.ListByTenant(tenantID)
}

// History returns a participant's completions in log order.
func (e *Engine) History(ctx context.Context, participantID string) ([]ledger.Completion, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if _, ok := e.roster.Get(participantID); !ok {
		return nil, roster.ErrUnknownParticipant
	}
	return e.ledger.ScanByParticipant(ctx, participantID)
}

func (e *Engine) TotalPoints(ctx context.Context, participantID string) (int, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.agg.TotalPoints(ctx, participantID)
}

func (e *Engine) Summary(ctx context.Context, participantID string) (progress.Summary, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.agg.Summary(ctx, participantID)
}

func (e *Engine) TeamTotals(ctx context.Context, tenantID string) (map[curriculum.Team]int, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.agg.TeamTotals(ctx, tenantID)
}

func (e *Engine) EligibleChallenges(ctx context.Context, participantID string) ([]progress.StrandGroup, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.agg.EligibleChallenges(ctx, participantID)
}

func (e *Engine) StrandCompletionRatio(ctx context.Context, participantID string, strand int) (progress.Ratio, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.agg.StrandCompletionRatio(ctx, participantID, strand)
}

func (e *Engine) Standings(ctx context.Context, tenantID string) ([]progress.Standing, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.agg.Standings(ctx, tenantID)
}

// Tenants returns every tenant configuration in catalog order.
func (e *Engine) Tenants() []tenant.Config {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.catalog.Configs()
}

// Tenant returns one tenant configuration.
func (e *Engine) Tenant(id string) (tenant.Config, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	cfg, ok := e.catalog.Lookup(id)
	if !ok {
		return tenant.Config{}, tenant.ErrNotFound
	}
	return cfg.Clone(), nil
}

// ResolveTenant returns the tenant for id, falling back to the default.
func (e *Engine) ResolveTenant(id string) tenant.Config {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.catalog.Resolve(id).Clone()
}

// Compliance evaluates a tenant against the curriculum checklist.
func (e *Engine) Compliance(id string) (tenant.Report, error) {
	cfg, err := e.Tenant(id)
	if err != nil {
		return tenant.Report{}, err
	}
	return tenant.Compliance(cfg), nil
}

// Ready reports whether state has been loaded and the store answers.
func (e *Engine) Ready(ctx context.Context) error {
	e.mu.RLock()
	loaded := e.loaded
	e.mu.RUnlock()
	if !loaded {
		return errors.New("state not loaded")
	}
	if p, ok := e.store.(persist.Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}
