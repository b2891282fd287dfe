package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"netventure.org/internal/audit"
	"netventure.org/internal/auth"
	"netventure.org/internal/curriculum"
	"netventure.org/internal/ledger"
	"netventure.org/internal/persist"
	"netventure.org/internal/progress"
	"netventure.org/internal/roster"
	"netventure.org/internal/stream"
	"netventure.org/internal/tenant"
)

// ErrNoSessions is returned by Unlock when the gate only accepts tokens.
var ErrNoSessions = errors.New("session unlock not available")

func (e *Engine) authorize(ctx context.Context, tenantID string) error {
	return e.gate.Authorize(ctx, tenantID)
}

// authorizeGlobal guards operations that touch every tenant. They are
// authorized against the PIN of whichever tenant the catalog holds first.
func (e *Engine) authorizeGlobal(ctx context.Context) error {
	return e.authorize(ctx, e.DefaultTenantID())
}

// DefaultTenantID returns the id of the catalog's fallback tenant.
func (e *Engine) DefaultTenantID() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.catalog.Default().ID
}

// Unlock opens an in-process admin session for tenantID.
func (e *Engine) Unlock(ctx context.Context, tenantID, pin string) error {
	sessions := e.gate.Sessions()
	if sessions == nil {
		return ErrNoSessions
	}
	cfg, err := e.Tenant(tenantID)
	if err != nil {
		return err
	}
	if err := sessions.Unlock(cfg.ID, cfg.AdminPINHash, pin); err != nil {
		_ = audit.LogEvent(ctx, "admin.unlock_failed", map[string]any{"tenant_id": cfg.ID})
		return err
	}
	_ = audit.LogEvent(ctx, "admin.unlock", map[string]any{"tenant_id": cfg.ID})
	return nil
}

// Lock closes the in-process admin session for tenantID.
func (e *Engine) Lock(tenantID string) {
	if s := e.gate.Sessions(); s != nil {
		s.Lock(tenantID)
	}
}

// IssueToken verifies pin for tenantID and returns a signed admin token.
func (e *Engine) IssueToken(ctx context.Context, tenantID, pin string, ttl time.Duration) (string, time.Time, error) {
	cfg, err := e.Tenant(tenantID)
	if err != nil {
		return "", time.Time{}, err
	}
	if err := auth.VerifyPIN(cfg.AdminPINHash, pin); err != nil {
		_ = audit.LogEvent(ctx, "admin.unlock_failed", map[string]any{"tenant_id": cfg.ID})
		return "", time.Time{}, err
	}
	token, exp, err := auth.GenerateToken("admin:"+cfg.ID, cfg.ID, ttl)
	if err != nil {
		return "", time.Time{}, err
	}
	_ = audit.LogEvent(ctx, "admin.token_issued", map[string]any{"tenant_id": cfg.ID, "expires_at": exp})
	return token, exp, nil
}

// editTenant applies fn to the stored configuration of tenantID.
func (e *Engine) editTenant(ctx context.Context, tenantID, event string, fields map[string]any, fn func(tenant.Config) (tenant.Config, error)) (tenant.Config, error) {
	if err := e.authorize(ctx, tenantID); err != nil {
		return tenant.Config{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	cfg, ok := e.catalog.Lookup(tenantID)
	if !ok {
		return tenant.Config{}, tenant.ErrNotFound
	}
	next, err := fn(cfg)
	if err != nil {
		return tenant.Config{}, err
	}
	if err := e.catalog.Put(next); err != nil {
		return tenant.Config{}, err
	}
	e.markDirty(persist.KeyCatalog)
	e.publish(stream.Event{Kind: stream.KindCatalog, TenantID: tenantID})

	if fields == nil {
		fields = map[string]any{}
	}
	fields["tenant_id"] = tenantID
	_ = audit.LogEvent(ctx, event, fields)
	return next.Clone(), nil
}

func (e *Engine) UpsertChallenge(ctx context.Context, tenantID string, ch curriculum.Challenge) (tenant.Config, error) {
	return e.editTenant(ctx, tenantID, "catalog.challenge_upserted", map[string]any{"challenge_id": ch.ID},
		func(cfg tenant.Config) (tenant.Config, error) { return tenant.UpsertChallenge(cfg, ch) })
}

func (e *Engine) RemoveChallenge(ctx context.Context, tenantID, challengeID string) (tenant.Config, error) {
	return e.editTenant(ctx, tenantID, "catalog.challenge_removed", map[string]any{"challenge_id": challengeID},
		func(cfg tenant.Config) (tenant.Config, error) { return tenant.RemoveChallenge(cfg, challengeID) })
}

func (e *Engine) SetChallengeEnabled(ctx context.Context, tenantID, challengeID string, enabled bool) (tenant.Config, error) {
	return e.editTenant(ctx, tenantID, "catalog.challenge_toggled", map[string]any{"challenge_id": challengeID, "enabled": enabled},
		func(cfg tenant.Config) (tenant.Config, error) {
			return tenant.SetChallengeEnabled(cfg, challengeID, enabled)
		})
}

func (e *Engine) SetStrandTitle(ctx context.Context, tenantID string, n int, title curriculum.Text) (tenant.Config, error) {
	return e.editTenant(ctx, tenantID, "catalog.strand_renamed", map[string]any{"strand": n},
		func(cfg tenant.Config) (tenant.Config, error) { return tenant.SetStrandTitle(cfg, n, title) })
}

// AddStrand appends a strand numbered after the last one.
func (e *Engine) AddStrand(ctx context.Context, tenantID string, title curriculum.Text) (curriculum.Strand, error) {
	var added curriculum.Strand
	_, err := e.editTenant(ctx, tenantID, "catalog.strand_added", nil,
		func(cfg tenant.Config) (tenant.Config, error) {
			out, s, err := tenant.AddStrand(cfg, title)
			added = s
			return out, err
		})
	return added, err
}

func (e *Engine) UpsertSupportLink(ctx context.Context, tenantID string, link curriculum.SupportLink) (tenant.Config, error) {
	return e.editTenant(ctx, tenantID, "catalog.support_link_upserted", map[string]any{"link_id": link.ID},
		func(cfg tenant.Config) (tenant.Config, error) { return tenant.UpsertSupportLink(cfg, link) })
}

func (e *Engine) RemoveSupportLink(ctx context.Context, tenantID, linkID string) (tenant.Config, error) {
	return e.editTenant(ctx, tenantID, "catalog.support_link_removed", map[string]any{"link_id": linkID},
		func(cfg tenant.Config) (tenant.Config, error) { return tenant.RemoveSupportLink(cfg, linkID) })
}

func (e *Engine) UpsertStaff(ctx context.Context, tenantID string, m curriculum.StaffMember) (tenant.Config, error) {
	return e.editTenant(ctx, tenantID, "catalog.staff_upserted", map[string]any{"staff_id": m.ID},
		func(cfg tenant.Config) (tenant.Config, error) { return tenant.UpsertStaff(cfg, m) })
}

func (e *Engine) RemoveStaff(ctx context.Context, tenantID, staffID string) (tenant.Config, error) {
	return e.editTenant(ctx, tenantID, "catalog.staff_removed", map[string]any{"staff_id": staffID},
		func(cfg tenant.Config) (tenant.Config, error) { return tenant.RemoveStaff(cfg, staffID) })
}

func (e *Engine) UpdateIdentity(ctx context.Context, tenantID string, id tenant.Identity) (tenant.Config, error) {
	return e.editTenant(ctx, tenantID, "catalog.identity_updated", nil,
		func(cfg tenant.Config) (tenant.Config, error) { return tenant.UpdateIdentity(cfg, id) })
}

func (e *Engine) SetTeamName(ctx context.Context, tenantID string, team curriculum.Team, name string) (tenant.Config, error) {
	return e.editTenant(ctx, tenantID, "catalog.team_renamed", map[string]any{"team": string(team)},
		func(cfg tenant.Config) (tenant.Config, error) { return tenant.SetTeamName(cfg, team, name) })
}

// ChangePIN replaces the tenant's admin PIN. The new hash is bcrypt.
func (e *Engine) ChangePIN(ctx context.Context, tenantID, pin string) error {
	hash, err := auth.HashPIN(strings.TrimSpace(pin))
	if err != nil {
		return err
	}
	_, err = e.editTenant(ctx, tenantID, "catalog.pin_changed", nil,
		func(cfg tenant.Config) (tenant.Config, error) { return tenant.SetPINHash(cfg, hash), nil })
	return err
}

// CreateTenant adds a school carrying the default curriculum.
func (e *Engine) CreateTenant(ctx context.Context, name, pin string) (tenant.Config, error) {
	if err := e.authorizeGlobal(ctx); err != nil {
		return tenant.Config{}, err
	}
	hash, err := auth.HashPIN(strings.TrimSpace(pin))
	if err != nil {
		return tenant.Config{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	cfg, err := tenant.NewTenant(e.catalog, name, hash)
	if err != nil {
		return tenant.Config{}, err
	}
	if err := e.catalog.Add(cfg); err != nil {
		return tenant.Config{}, err
	}
	e.markDirty(persist.KeyCatalog)
	e.publish(stream.Event{Kind: stream.KindCatalog, TenantID: cfg.ID})
	_ = audit.LogEvent(ctx, "catalog.tenant_created", map[string]any{"tenant_id": cfg.ID})
	return cfg.Clone(), nil
}

// ExportTenant renders a tenant as YAML, PIN hash included.
func (e *Engine) ExportTenant(ctx context.Context, tenantID string) ([]byte, error) {
	if err := e.authorize(ctx, tenantID); err != nil {
		return nil, err
	}
	cfg, err := e.Tenant(tenantID)
	if err != nil {
		return nil, err
	}
	return tenant.MarshalYAML(cfg)
}

// ImportTenant replaces an existing tenant with the YAML document data, or
// adds it when its id is new. Adding requires the default tenant's unlock.
// Replacing keeps the strand of every challenge the tenant already has.
func (e *Engine) ImportTenant(ctx context.Context, data []byte) (tenant.Config, error) {
	cfg, err := tenant.ParseYAML(data)
	if err != nil {
		return tenant.Config{}, err
	}
	if err := tenant.Validate(cfg); err != nil {
		return tenant.Config{}, err
	}
	if _, err := e.Tenant(cfg.ID); err == nil {
		return e.editTenant(ctx, cfg.ID, "catalog.tenant_imported", nil,
			func(prev tenant.Config) (tenant.Config, error) {
				for _, ch := range cfg.Challenges {
					if old, ok := prev.Challenge(ch.ID); ok && old.Strand != ch.Strand {
						return prev, fmt.Errorf("%w: strand of challenge %s", tenant.ErrImmutableField, ch.ID)
					}
				}
				return cfg, nil
			})
	}
	if err := e.authorizeGlobal(ctx); err != nil {
		return tenant.Config{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.catalog.Add(cfg); err != nil {
		return tenant.Config{}, err
	}
	e.markDirty(persist.KeyCatalog)
	e.publish(stream.Event{Kind: stream.KindCatalog, TenantID: cfg.ID})
	_ = audit.LogEvent(ctx, "catalog.tenant_imported", map[string]any{"tenant_id": cfg.ID})
	return cfg.Clone(), nil
}

// Wipe clears the roster and ledger and resets the catalog to the default
// tenant alone.
func (e *Engine) Wipe(ctx context.Context) error {
	if err := e.authorizeGlobal(ctx); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.reset(ctx, nil, nil); err != nil {
		return err
	}
	e.publish(stream.Event{Kind: stream.KindReset, TenantID: e.catalog.Default().ID})
	_ = audit.LogEvent(ctx, "admin.wipe", nil)
	return nil
}

// reset replaces all three stores. Callers hold e.mu.
func (e *Engine) reset(ctx context.Context, ps []roster.Participant, cs []ledger.Completion) error {
	if err := e.ledger.Restore(ctx, cs); err != nil {
		return err
	}
	e.roster.Restore(ps)
	e.catalog = tenant.NewCatalog()
	e.agg = progress.New(e.ledger, e.roster, e.catalog, e.ladder)
	e.markDirty(persist.Keys()...)
	return nil
}
