package importer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/fieldserve/importer/internal/contacts"
	"github.com/google/uuid"
)

// DefaultRetention is how long terminal sessions are kept before the
// cleanup sweep removes them.
const DefaultRetention = 7 * 24 * time.Hour

// Insert defaults applied when the CSV leaves a field empty.
const (
	defaultCountry = "USA"
	defaultStatus  = "active"
)

// Config tunes an Engine. Zero values fall back to defaults.
type Config struct {
	// Aliases drives mapping inference. Empty tables fall back to
	// DefaultAliasTable.
	Aliases AliasTable

	// Retention is the terminal-session retention window for Cleanup.
	Retention time.Duration

	// MaxConcurrent bounds simultaneous processing passes.
	MaxConcurrent int

	// MaxSlotWait is how long ProcessSession waits for a free slot.
	MaxSlotWait time.Duration

	// PassTimeout caps one processing pass. Zero means no cap.
	PassTimeout time.Duration
}

// Engine owns import sessions and drives them through their lifecycle.
// The session store and the contact store are injected capabilities.
type Engine struct {
	sessions SessionStore
	contacts contacts.Store
	aliases  AliasTable
	limiter  *ImportLimiter

	retention   time.Duration
	passTimeout time.Duration
}

// New creates an Engine over the given stores.
func New(sessions SessionStore, store contacts.Store, cfg Config) *Engine {
	aliases := cfg.Aliases
	if len(aliases.entries) == 0 {
		aliases = DefaultAliasTable()
	}

	retention := cfg.Retention
	if retention <= 0 {
		retention = DefaultRetention
	}

	return &Engine{
		sessions:    sessions,
		contacts:    store,
		aliases:     aliases,
		limiter:     NewImportLimiter(cfg.MaxConcurrent, cfg.MaxSlotWait),
		retention:   retention,
		passTimeout: cfg.PassTimeout,
	}
}

// Limiter exposes the pass limiter for shutdown draining.
func (e *Engine) Limiter() *ImportLimiter {
	return e.limiter
}

// Retention returns the configured terminal-session retention window.
func (e *Engine) Retention() time.Duration {
	return e.retention
}

// ParsePreview parses CSV content and returns the headers, a bounded
// row sample, the total data row count, and the inferred mapping, so
// the caller can confirm or adjust the mapping before creating a
// session. Malformed CSV fails with *ParseError.
func (e *Engine) ParsePreview(csvContent string) (*CSVPreview, error) {
	records, err := parseCSV([]byte(csvContent))
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, &ParseError{Err: errors.New("empty file")}
	}

	headers, rows := splitRecords(records)

	sample := rows
	if len(sample) > PreviewRowLimit {
		sample = sample[:PreviewRowLimit]
	}

	return &CSVPreview{
		Headers:         headers,
		Rows:            sample,
		TotalRows:       len(rows),
		InferredMapping: e.aliases.InferMapping(headers),
	}, nil
}

// InferMapping exposes mapping inference over the engine's alias table.
func (e *Engine) InferMapping(headers []string) map[string]string {
	return e.aliases.InferMapping(headers)
}

// CreateSession parses the CSV once to count rows and registers a new
// pending session retaining the raw payload and the confirmed mapping.
// An empty mapping is inferred from the headers, so callers that skip
// the preview step still get alias-driven field resolution.
func (e *Engine) CreateSession(tenantID, fileName, csvContent string, mapping map[string]string) (*ImportSession, error) {
	records, err := parseCSV([]byte(csvContent))
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, &ParseError{Err: errors.New("empty file")}
	}

	headers, rows := splitRecords(records)
	if len(mapping) == 0 {
		mapping = e.aliases.InferMapping(headers)
	}

	sess := &ImportSession{
		ID:        uuid.New().String(),
		TenantID:  tenantID,
		FileName:  fileName,
		RawCSV:    csvContent,
		Mapping:   mapping,
		CreatedAt: time.Now(),
		status:    StatusPending,
		totalRows: len(rows),
	}
	e.sessions.Put(sess)

	slog.Info("import session created",
		"session_id", sess.ID,
		"tenant_id", tenantID,
		"file", fileName,
		"total_rows", sess.totalRows,
	)

	return sess, nil
}

// GetSession returns the session with the given id.
func (e *Engine) GetSession(sessionID string) (*ImportSession, bool) {
	return e.sessions.Get(sessionID)
}

// GetSessionStatus returns the progress projection for a session.
func (e *Engine) GetSessionStatus(sessionID string) (SessionSnapshot, error) {
	sess, ok := e.sessions.Get(sessionID)
	if !ok {
		return SessionSnapshot{}, ErrSessionNotFound
	}
	return sess.Snapshot(), nil
}

// ProcessSession runs the row-processing pass for a pending session.
// Row failures are isolated into ImportError records and never abort
// the pass; duplicate emails are queued as conflicts without writing.
// Fails with ErrAlreadyProcessing when a pass is already running and
// ErrSessionNotPending when the session already ran its pass.
func (e *Engine) ProcessSession(ctx context.Context, sessionID string) (SessionSnapshot, error) {
	sess, ok := e.sessions.Get(sessionID)
	if !ok {
		return SessionSnapshot{}, ErrSessionNotFound
	}

	if err := e.limiter.Acquire(ctx); err != nil {
		return SessionSnapshot{}, err
	}
	defer e.limiter.Release()

	if current, ok := sess.tryBeginProcessing(); !ok {
		if current == StatusProcessing {
			return sess.Snapshot(), ErrAlreadyProcessing
		}
		return sess.Snapshot(), ErrSessionNotPending
	}

	if e.passTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.passTimeout)
		defer cancel()
	}

	// The payload parsed at creation time; a failure here means the
	// session itself is broken, not a row.
	records, err := parseCSV([]byte(sess.RawCSV))
	if err != nil {
		sess.markFailed()
		return sess.Snapshot(), fmt.Errorf("re-parse session payload: %w", err)
	}
	headers, rows := splitRecords(records)

	start := time.Now()
	for i, row := range rows {
		e.processRow(ctx, sess, headers, i, row)
	}
	final := sess.finishPass()

	snap := sess.Snapshot()
	slog.Info("import pass finished",
		"session_id", sess.ID,
		"tenant_id", sess.TenantID,
		"status", final,
		"inserted", snap.InsertedCount,
		"conflicts", len(snap.PendingConflicts),
		"failed", snap.FailedCount,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return snap, nil
}

// processRow runs one row through normalize -> validate -> duplicate
// check -> insert. Exactly one of recordInsert, queueConflict, or
// recordError fires, so processedRows advances once per row.
func (e *Engine) processRow(ctx context.Context, sess *ImportSession, headers []string, index int, row []string) {
	rec := NormalizeRow(rowMap(headers, row), sess.Mapping)

	var missing []string
	if rec.FirstName == "" {
		missing = append(missing, "firstName")
	}
	if rec.LastName == "" {
		missing = append(missing, "lastName")
	}
	if len(missing) > 0 {
		sess.recordError(ImportError{
			RowIndex: index,
			Field:    strings.Join(missing, ", "),
			Message:  "missing required field(s): " + strings.Join(missing, ", "),
			Raw:      row,
		})
		return
	}

	// Email is the only natural key available from arbitrary CSVs;
	// rows without one are always treated as new inserts.
	if rec.Email != "" {
		existing, err := e.contacts.FindByEmail(ctx, sess.TenantID, rec.Email)
		if err != nil {
			sess.recordError(ImportError{
				RowIndex: index,
				Field:    "email",
				Message:  "duplicate lookup failed: " + err.Error(),
				Raw:      row,
			})
			return
		}
		if existing != nil {
			sess.queueConflict(&ImportConflict{
				ID:        uuid.New().String(),
				SessionID: sess.ID,
				RowIndex:  index,
				Existing:  *existing,
				Incoming:  rec,
				Status:    ConflictPending,
			})
			return
		}
	}

	in := contacts.Input{
		FirstName: rec.FirstName,
		LastName:  rec.LastName,
		Email:     rec.Email,
		Phone:     rec.Phone,
		Company:   rec.Company,
		Address:   rec.Address,
		City:      rec.City,
		State:     rec.State,
		Zip:       rec.Zip,
		Country:   rec.Country,
		Notes:     rec.Notes,
		Tags:      rec.Tags,
		Status:    defaultStatus,
	}
	if in.Country == "" {
		in.Country = defaultCountry
	}
	if in.Tags == nil {
		in.Tags = []string{}
	}

	if _, err := e.contacts.Insert(ctx, sess.TenantID, in); err != nil {
		sess.recordError(ImportError{
			RowIndex: index,
			Message:  err.Error(),
			Raw:      row,
		})
		return
	}
	sess.recordInsert()
}

// ResolveConflict applies a human disposition to one queued conflict.
// On update, non-empty incoming fields are merged into the existing
// contact through the store; on skip, nothing is written. A store
// failure propagates and leaves the conflict pending so the caller can
// retry. Re-resolving fails with ErrAlreadyResolved.
func (e *Engine) ResolveConflict(ctx context.Context, sessionID, conflictID string, resolution Resolution) (SessionSnapshot, error) {
	if resolution != ResolutionUpdate && resolution != ResolutionSkip {
		return SessionSnapshot{}, ErrInvalidResolution
	}

	sess, ok := e.sessions.Get(sessionID)
	if !ok {
		return SessionSnapshot{}, ErrSessionNotFound
	}

	c := sess.findConflict(conflictID)
	if c == nil {
		return sess.Snapshot(), ErrConflictNotFound
	}

	// Serialize attempts on this conflict across the store write.
	c.mu.Lock()
	defer c.mu.Unlock()

	if sess.conflictStatus(c) == ConflictResolved {
		return sess.Snapshot(), ErrAlreadyResolved
	}

	if resolution == ResolutionUpdate {
		fields := c.Incoming.Fields()
		if len(fields) > 0 {
			if _, err := e.contacts.Update(ctx, c.Existing.ID, fields); err != nil {
				return sess.Snapshot(), fmt.Errorf("apply conflict resolution: %w", err)
			}
		}
	}

	status := sess.recordResolution(c, resolution)

	slog.Info("import conflict resolved",
		"session_id", sess.ID,
		"conflict_id", c.ID,
		"resolution", resolution,
		"session_status", status,
	)

	return sess.Snapshot(), nil
}

// Cleanup removes terminal sessions older than maxAge and returns how
// many were removed. Sessions still pending, processing, or awaiting
// conflict resolution are never swept regardless of age: an abandoned
// but unresolved import is preserved for explicit operator action.
func (e *Engine) Cleanup(maxAge time.Duration) int {
	cutoff := time.Now().Add(-maxAge)
	removed := 0

	for _, sess := range e.sessions.All() {
		if !sess.Status().Terminal() {
			continue
		}
		if sess.CreatedAt.After(cutoff) {
			continue
		}
		e.sessions.Delete(sess.ID)
		removed++
	}

	if removed > 0 {
		slog.Info("import sessions swept", "removed", removed, "max_age", maxAge)
	}
	return removed
}
