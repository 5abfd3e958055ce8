// Package importer implements the bulk contact import engine: session
// lifecycle, header-to-field mapping inference, row normalization,
// duplicate detection against the contact store, and the conflict
// resolution protocol. It has no transport dependencies and is driven
// by the web layer, CLI tools, or tests alike.
package importer

import (
	"sync"
	"time"

	"github.com/fieldserve/importer/internal/contacts"
)

// SessionStatus is the lifecycle state of an import session.
type SessionStatus string

const (
	// StatusPending means the session was created but never processed.
	StatusPending SessionStatus = "pending"
	// StatusProcessing means a row-processing pass is running.
	StatusProcessing SessionStatus = "processing"
	// StatusAwaitingConflicts means the pass finished but one or more
	// conflicts still need human disposition.
	StatusAwaitingConflicts SessionStatus = "awaiting_conflicts"
	// StatusCompleted is terminal: every row has been inserted,
	// updated, skipped, or recorded as an error.
	StatusCompleted SessionStatus = "completed"
	// StatusFailed means the session itself broke (e.g. the retained
	// CSV payload no longer parses). Row-level errors never cause it.
	StatusFailed SessionStatus = "failed"
)

// Terminal reports whether no further mutation of the session is
// expected. Only terminal sessions are eligible for the cleanup sweep.
func (s SessionStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// ConflictStatus tracks whether a conflict has been resolved.
type ConflictStatus string

const (
	ConflictPending  ConflictStatus = "pending"
	ConflictResolved ConflictStatus = "resolved"
)

// Resolution is the human disposition of a conflict.
type Resolution string

const (
	// ResolutionUpdate merges the incoming fields into the existing contact.
	ResolutionUpdate Resolution = "update"
	// ResolutionSkip leaves the existing contact untouched.
	ResolutionSkip Resolution = "skip"
)

// Record is a normalized partial contact produced from one CSV row.
// Empty fields were absent from the row (or empty after trimming).
type Record struct {
	FirstName string   `json:"firstName,omitempty"`
	LastName  string   `json:"lastName,omitempty"`
	Email     string   `json:"email,omitempty"`
	Phone     string   `json:"phone,omitempty"`
	Company   string   `json:"company,omitempty"`
	Address   string   `json:"address,omitempty"`
	City      string   `json:"city,omitempty"`
	State     string   `json:"state,omitempty"`
	Zip       string   `json:"zip,omitempty"`
	Country   string   `json:"country,omitempty"`
	Notes     string   `json:"notes,omitempty"`
	Tags      []string `json:"tags,omitempty"`
}

// Fields returns the non-empty fields as an update map keyed by
// canonical field name, suitable for contacts.Store.Update.
func (r Record) Fields() map[string]any {
	fields := make(map[string]any)
	set := func(name, value string) {
		if value != "" {
			fields[name] = value
		}
	}
	set(contacts.FieldFirstName, r.FirstName)
	set(contacts.FieldLastName, r.LastName)
	set(contacts.FieldEmail, r.Email)
	set(contacts.FieldPhone, r.Phone)
	set(contacts.FieldCompany, r.Company)
	set(contacts.FieldAddress, r.Address)
	set(contacts.FieldCity, r.City)
	set(contacts.FieldState, r.State)
	set(contacts.FieldZip, r.Zip)
	set(contacts.FieldCountry, r.Country)
	set(contacts.FieldNotes, r.Notes)
	if len(r.Tags) > 0 {
		fields[contacts.FieldTags] = r.Tags
	}
	return fields
}

// ImportConflict is one row whose email matched an existing contact.
// It stays on the session for its whole lifetime as an audit record.
type ImportConflict struct {
	ID        string
	SessionID string
	RowIndex  int // zero-based index into the session's data rows

	Existing contacts.Contact // read-only snapshot at detection time
	Incoming Record

	// Status and Resolution are guarded by the owning session's mutex.
	// Resolution is set exactly once, when Status becomes resolved.
	Status     ConflictStatus
	Resolution Resolution

	// mu serializes resolution attempts on this conflict, including
	// the store write. Distinct conflicts in the same session may
	// resolve concurrently. Never acquire a session mutex and then mu;
	// the resolution path takes mu first.
	mu sync.Mutex
}

// ImportError records one row that failed validation or a store write.
type ImportError struct {
	RowIndex int      `json:"rowIndex"`
	Field    string   `json:"field,omitempty"`
	Message  string   `json:"message"`
	Raw      []string `json:"raw"`
}

// ImportSession is the unit of work for one uploaded CSV file. All
// mutation happens through the engine while holding mu; external
// callers read it through Snapshot.
type ImportSession struct {
	ID       string
	TenantID string
	FileName string

	// RawCSV is retained for the session's lifetime so the processing
	// pass (and a future resume) can re-parse the original payload.
	RawCSV  string
	Mapping map[string]string // CSV header -> canonical field name

	CreatedAt time.Time

	mu     sync.Mutex
	status SessionStatus

	totalRows     int
	processedRows int
	insertedCount int
	updatedCount  int
	skippedCount  int
	failedCount   int

	conflicts []*ImportConflict
	errors    []ImportError
}

// ConflictView is the read-only projection of a conflict.
type ConflictView struct {
	ID         string           `json:"id"`
	SessionID  string           `json:"sessionId"`
	RowIndex   int              `json:"rowIndex"`
	Existing   contacts.Contact `json:"existing"`
	Incoming   Record           `json:"incoming"`
	Status     ConflictStatus   `json:"status"`
	Resolution Resolution       `json:"resolution,omitempty"`
}

// SessionSnapshot is the progress projection returned by status
// queries and mutation operations. Invariant at every observation
// point: ProcessedRows == InsertedCount + UpdatedCount + SkippedCount +
// FailedCount + len(PendingConflicts).
type SessionSnapshot struct {
	ID        string        `json:"id"`
	TenantID  string        `json:"tenantId"`
	FileName  string        `json:"fileName"`
	Status    SessionStatus `json:"status"`
	CreatedAt time.Time     `json:"createdAt"`

	TotalRows     int `json:"totalRows"`
	ProcessedRows int `json:"processedRows"`
	InsertedCount int `json:"insertedCount"`
	UpdatedCount  int `json:"updatedCount"`
	SkippedCount  int `json:"skippedCount"`
	FailedCount   int `json:"failedCount"`

	PendingConflicts []ConflictView `json:"pendingConflicts"`
	Errors           []ImportError  `json:"errors"`
}

// CSVPreview lets the caller confirm or adjust the field mapping
// before committing to a session. It is transient and never stored.
type CSVPreview struct {
	Headers         []string          `json:"headers"`
	Rows            [][]string        `json:"rows"` // at most PreviewRowLimit data rows
	TotalRows       int               `json:"totalRows"`
	InferredMapping map[string]string `json:"inferredMapping"`
}

// Status returns the session's current lifecycle state.
func (s *ImportSession) Status() SessionStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// tryBeginProcessing atomically moves the session from pending to
// processing. On failure it returns the status that blocked the
// transition.
func (s *ImportSession) tryBeginProcessing() (SessionStatus, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != StatusPending {
		return s.status, false
	}
	s.status = StatusProcessing
	return StatusProcessing, true
}

// markFailed records a session-level failure (not a row failure).
func (s *ImportSession) markFailed() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = StatusFailed
}

func (s *ImportSession) recordInsert() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.insertedCount++
	s.processedRows++
}

func (s *ImportSession) recordError(e ImportError) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errors = append(s.errors, e)
	s.failedCount++
	s.processedRows++
}

func (s *ImportSession) queueConflict(c *ImportConflict) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conflicts = append(s.conflicts, c)
	s.processedRows++
}

// finishPass applies the end-of-pass transition: completed when the
// conflict queue is empty, awaiting_conflicts otherwise.
func (s *ImportSession) finishPass() SessionStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pendingConflictsLocked() == 0 {
		s.status = StatusCompleted
	} else {
		s.status = StatusAwaitingConflicts
	}
	return s.status
}

// findConflict returns the conflict with the given id, or nil.
func (s *ImportSession) findConflict(conflictID string) *ImportConflict {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range s.conflicts {
		if c.ID == conflictID {
			return c
		}
	}
	return nil
}

// conflictStatus reads a conflict's status under the session mutex.
func (s *ImportSession) conflictStatus(c *ImportConflict) ConflictStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return c.Status
}

// recordResolution marks the conflict resolved, bumps the matching
// counter, and completes the session once every conflict is resolved
// and all rows are processed. The caller must hold c.mu.
func (s *ImportSession) recordResolution(c *ImportConflict, res Resolution) SessionStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	c.Status = ConflictResolved
	c.Resolution = res

	switch res {
	case ResolutionUpdate:
		s.updatedCount++
	case ResolutionSkip:
		s.skippedCount++
	}

	if s.status == StatusAwaitingConflicts &&
		s.pendingConflictsLocked() == 0 &&
		s.processedRows == s.totalRows {
		s.status = StatusCompleted
	}
	return s.status
}

// pendingConflictsLocked counts unresolved conflicts. Caller holds s.mu.
func (s *ImportSession) pendingConflictsLocked() int {
	n := 0
	for _, c := range s.conflicts {
		if c.Status == ConflictPending {
			n++
		}
	}
	return n
}

// Snapshot returns a consistent read-only view of the session.
func (s *ImportSession) Snapshot() SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := SessionSnapshot{
		ID:            s.ID,
		TenantID:      s.TenantID,
		FileName:      s.FileName,
		Status:        s.status,
		CreatedAt:     s.CreatedAt,
		TotalRows:     s.totalRows,
		ProcessedRows: s.processedRows,
		InsertedCount: s.insertedCount,
		UpdatedCount:  s.updatedCount,
		SkippedCount:  s.skippedCount,
		FailedCount:   s.failedCount,
		Errors:        append([]ImportError(nil), s.errors...),
	}

	for _, c := range s.conflicts {
		if c.Status == ConflictPending {
			snap.PendingConflicts = append(snap.PendingConflicts, ConflictView{
				ID:        c.ID,
				SessionID: c.SessionID,
				RowIndex:  c.RowIndex,
				Existing:  c.Existing,
				Incoming:  c.Incoming,
				Status:    c.Status,
			})
		}
	}

	return snap
}
