package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"netventure.org/internal/ledger"
	"netventure.org/internal/legacy"
	"netventure.org/internal/obs"
	"netventure.org/internal/persist"
	"netventure.org/internal/progress"
	"netventure.org/internal/roster"
	"netventure.org/internal/tenant"
)

// Load replaces in-memory state with what the store holds. Missing keys and
// unreadable values start empty; neither is fatal.
func (e *Engine) Load(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	var (
		cfgs []tenant.Config
		ps   []roster.Participant
		cs   []ledger.Completion
	)
	if raw := e.loadKey(ctx, persist.KeyCatalog); raw != nil {
		cfgs = e.decodeCatalog(raw)
	}
	if raw := e.loadKey(ctx, persist.KeyRoster); raw != nil {
		ps = e.decodeRoster(raw)
	}
	e.catalog = tenant.NewCatalog(cfgs...)
	e.roster.Restore(ps)

	if raw := e.loadKey(ctx, persist.KeyLedger); raw != nil {
		cs = e.decodeLedger(raw)
	}
	if err := e.ledger.Restore(ctx, cs); err != nil {
		return err
	}
	e.agg = progress.New(e.ledger, e.roster, e.catalog, e.ladder)
	e.loaded = true

	e.log.Info("state loaded",
		zap.Int("tenants", e.catalog.Len()),
		zap.Int("participants", e.roster.Len()),
		zap.Int("completions", len(cs)),
	)
	return nil
}

func (e *Engine) loadKey(ctx context.Context, key persist.Key) []byte {
	if e.store == nil {
		return nil
	}
	raw, err := e.store.Load(ctx, key)
	if err != nil {
		if !errors.Is(err, persist.ErrNotFound) {
			obs.ObservePersistFailure(string(key))
			e.log.Warn("load failed; starting empty", zap.String("key", string(key)), zap.Error(err))
		}
		return nil
	}
	var doc json.RawMessage
	if err := e.codec.Decode(raw, &doc); err != nil {
		e.log.Warn("undecodable value; starting empty", zap.String("key", string(key)), zap.Error(err))
		return nil
	}
	return doc
}

func (e *Engine) decodeCatalog(raw []byte) []tenant.Config {
	if legacy.Detect(raw, legacy.CatalogMarker) {
		var ms []legacy.MasterConfig
		if err := json.Unmarshal(raw, &ms); err != nil {
			e.log.Warn("bad legacy catalog", zap.Error(err))
			return nil
		}
		return legacy.Configs(ms)
	}
	var cfgs []tenant.Config
	if err := json.Unmarshal(raw, &cfgs); err != nil {
		e.log.Warn("bad catalog", zap.Error(err))
		return nil
	}
	out := cfgs[:0]
	for _, c := range cfgs {
		if c.ID != "" {
			out = append(out, c)
		}
	}
	return out
}

func (e *Engine) decodeRoster(raw []byte) []roster.Participant {
	if legacy.Detect(raw, legacy.RosterMarker) {
		var cs []legacy.Child
		if err := json.Unmarshal(raw, &cs); err != nil {
			e.log.Warn("bad legacy roster", zap.Error(err))
			return nil
		}
		return legacy.Participants(cs)
	}
	var ps []roster.Participant
	if err := json.Unmarshal(raw, &ps); err != nil {
		e.log.Warn("bad roster", zap.Error(err))
		return nil
	}
	return ps
}

// decodeLedger must run after the roster and catalog are restored: legacy
// records need them to recover the repeatable flag.
func (e *Engine) decodeLedger(raw []byte) []ledger.Completion {
	if legacy.Detect(raw, legacy.LedgerMarker) {
		var cs []legacy.Completion
		if err := json.Unmarshal(raw, &cs); err != nil {
			e.log.Warn("bad legacy ledger", zap.Error(err))
			return nil
		}
		return legacy.Completions(cs, e.repeatable)
	}
	var cs []ledger.Completion
	if err := json.Unmarshal(raw, &cs); err != nil {
		e.log.Warn("bad ledger", zap.Error(err))
		return nil
	}
	return cs
}

func (e *Engine) repeatable(participantID, challengeID string) bool {
	p, ok := e.roster.Get(participantID)
	if !ok {
		return false
	}
	ch, ok := e.catalog.Resolve(p.TenantID).Challenge(challengeID)
	return ok && ch.Repeatable
}

// encode renders the value stored under key. Callers hold e.mu.
func (e *Engine) encode(ctx context.Context, key persist.Key) ([]byte, error) {
	var v any
	switch key {
	case persist.KeyRoster:
		ps := e.roster.List()
		if e.codec.Legacy {
			v = legacy.Children(ps)
		} else {
			v = ps
		}
	case persist.KeyLedger:
		cs, err := e.ledger.All(ctx)
		if err != nil {
			return nil, err
		}
		if cs == nil {
			cs = []ledger.Completion{}
		}
		if e.codec.Legacy {
			v = legacy.FromCompletions(cs)
		} else {
			v = cs
		}
	case persist.KeyCatalog:
		cfgs := e.catalog.Configs()
		if e.codec.Legacy {
			v = legacy.MasterConfigs(cfgs)
		} else {
			v = cfgs
		}
	default:
		return nil, fmt.Errorf("unknown key %q", key)
	}
	return e.codec.Encode(v)
}

// Snapshot encodes every key as it would be saved.
func (e *Engine) Snapshot(ctx context.Context) (map[persist.Key][]byte, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make(map[persist.Key][]byte, 3)
	for _, k := range persist.Keys() {
		data, err := e.encode(ctx, k)
		if err != nil {
			return nil, err
		}
		out[k] = data
	}
	return out, nil
}

func (e *Engine) markDirty(keys ...persist.Key) {
	e.dirtyMu.Lock()
	for _, k := range keys {
		e.dirty[k] = true
	}
	e.dirtyMu.Unlock()
	select {
	case e.kick <- struct{}{}:
	default:
	}
}

func (e *Engine) takeDirty() []persist.Key {
	e.dirtyMu.Lock()
	defer e.dirtyMu.Unlock()
	var out []persist.Key
	for _, k := range persist.Keys() {
		if e.dirty[k] {
			out = append(out, k)
			delete(e.dirty, k)
		}
	}
	return out
}

// Pending reports whether unsaved changes exist.
func (e *Engine) Pending() bool {
	e.dirtyMu.Lock()
	defer e.dirtyMu.Unlock()
	return len(e.dirty) > 0
}

// Flush saves every dirty key now. Failed keys stay dirty and the returned
// error wraps persist.ErrStorageUnavailable.
func (e *Engine) Flush(ctx context.Context) error {
	if e.store == nil {
		e.takeDirty()
		return nil
	}
	e.flushMu.Lock()
	defer e.flushMu.Unlock()

	keys := e.takeDirty()
	if len(keys) == 0 {
		return nil
	}
	blobs := make(map[persist.Key][]byte, len(keys))
	e.mu.RLock()
	for _, k := range keys {
		data, err := e.encode(ctx, k)
		if err != nil {
			e.mu.RUnlock()
			e.markDirty(keys...)
			return fmt.Errorf("encode %s: %w", k, err)
		}
		blobs[k] = data
	}
	e.mu.RUnlock()

	var errs []error
	for _, k := range keys {
		if err := e.store.Save(ctx, k, blobs[k]); err != nil {
			obs.ObservePersistFailure(string(k))
			e.log.Error("save failed", zap.String("key", string(k)), zap.Error(err))
			e.dirtyMu.Lock()
			e.dirty[k] = true
			e.dirtyMu.Unlock()
			if !errors.Is(err, persist.ErrStorageUnavailable) {
				err = fmt.Errorf("%w: %v", persist.ErrStorageUnavailable, err)
			}
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Run saves dirty state in the background until ctx ends, then makes a
// final attempt bounded by a short timeout.
func (e *Engine) Run(ctx context.Context) {
	ticker := time.NewTicker(e.flushInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			final, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			_ = e.Flush(final)
			cancel()
			return
		case <-ticker.C:
			_ = e.Flush(ctx)
		case <-e.kick:
			// Coalesce bursts of mutations into one save.
			select {
			case <-ctx.Done():
			case <-time.After(e.flushInterval / 4):
			}
			_ = e.Flush(ctx)
		}
	}
}
