package web

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/fieldserve/importer/internal/importer"
)

// tenantHeader carries the caller's tenant identity. Authentication is
// the fronting proxy's concern; the API only scopes data by it.
const tenantHeader = "X-Tenant-ID"

// tenantID extracts the tenant identity from the request, or reports
// a bad request when the header is absent.
func tenantID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := strings.TrimSpace(r.Header.Get(tenantHeader))
	if id == "" {
		respondBadRequest(w, r, "missing "+tenantHeader+" header")
		return "", false
	}
	return id, true
}

// previewRequest is the body for POST /api/import/preview.
type previewRequest struct {
	CSV string `json:"csv"`
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	if _, ok := tenantID(w, r); !ok {
		return
	}

	var req previewRequest
	if !decodeBody(w, r, &req) {
		return
	}

	preview, err := s.engine.ParsePreview(req.CSV)
	if err != nil {
		respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, preview)
}

// createSessionRequest is the body for POST /api/import/sessions.
// Mapping is optional; when omitted the engine infers it from the
// CSV headers.
type createSessionRequest struct {
	FileName string            `json:"fileName"`
	CSV      string            `json:"csv"`
	Mapping  map[string]string `json:"mapping,omitempty"`
}

// createSessionResponse returns the new session's identity and the
// mapping that processing will use.
type createSessionResponse struct {
	SessionID string            `json:"sessionId"`
	Status    string            `json:"status"`
	TotalRows int               `json:"totalRows"`
	Mapping   map[string]string `json:"mapping"`
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	tenant, ok := tenantID(w, r)
	if !ok {
		return
	}

	var req createSessionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.FileName == "" {
		respondBadRequest(w, r, "fileName is required")
		return
	}

	sess, err := s.engine.CreateSession(tenant, req.FileName, req.CSV, req.Mapping)
	if err != nil {
		respondError(w, r, err)
		return
	}

	snap := sess.Snapshot()
	writeJSON(w, http.StatusCreated, createSessionResponse{
		SessionID: snap.ID,
		Status:    string(snap.Status),
		TotalRows: snap.TotalRows,
		Mapping:   sess.Mapping,
	})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	tenant, ok := tenantID(w, r)
	if !ok {
		return
	}

	snap, err := s.engine.GetSessionStatus(chi.URLParam(r, "sessionID"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	if snap.TenantID != tenant {
		// Do not leak the session's existence across tenants.
		respondError(w, r, importer.ErrSessionNotFound)
		return
	}

	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleProcessSession(w http.ResponseWriter, r *http.Request) {
	tenant, ok := tenantID(w, r)
	if !ok {
		return
	}
	sessionID := chi.URLParam(r, "sessionID")

	if !s.ownsSession(w, r, tenant, sessionID) {
		return
	}

	snap, err := s.engine.ProcessSession(r.Context(), sessionID)
	if err != nil {
		respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, snap)
}

// resolveRequest is the body for conflict resolution endpoints.
type resolveRequest struct {
	Resolution string `json:"resolution"`
}

func (s *Server) handleResolveConflict(w http.ResponseWriter, r *http.Request) {
	tenant, ok := tenantID(w, r)
	if !ok {
		return
	}
	sessionID := chi.URLParam(r, "sessionID")
	conflictID := chi.URLParam(r, "conflictID")

	var req resolveRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if !s.ownsSession(w, r, tenant, sessionID) {
		return
	}

	snap, err := s.engine.ResolveConflict(r.Context(), sessionID, conflictID, importer.Resolution(req.Resolution))
	if err != nil {
		respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, snap)
}

// bulkResolveResponse reports how far a bulk resolution got before
// stopping.
type bulkResolveResponse struct {
	Resolved int                      `json:"resolved"`
	Session  importer.SessionSnapshot `json:"session"`
}

// handleResolveAllConflicts applies one resolution to every pending
// conflict in order. It stops on the first failure and reports how
// many conflicts were resolved so the caller can retry the remainder.
func (s *Server) handleResolveAllConflicts(w http.ResponseWriter, r *http.Request) {
	tenant, ok := tenantID(w, r)
	if !ok {
		return
	}
	sessionID := chi.URLParam(r, "sessionID")

	var req resolveRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if !s.ownsSession(w, r, tenant, sessionID) {
		return
	}

	snap, err := s.engine.GetSessionStatus(sessionID)
	if err != nil {
		respondError(w, r, err)
		return
	}

	resolved := 0
	for _, c := range snap.PendingConflicts {
		latest, err := s.engine.ResolveConflict(r.Context(), sessionID, c.ID, importer.Resolution(req.Resolution))
		if errors.Is(err, importer.ErrAlreadyResolved) {
			// Raced with a single-conflict resolution; not a failure.
			continue
		}
		if err != nil {
			respondError(w, r, err)
			return
		}
		resolved++
		snap = latest
	}

	writeJSON(w, http.StatusOK, bulkResolveResponse{
		Resolved: resolved,
		Session:  snap,
	})
}

// ownsSession verifies the session belongs to the tenant, responding
// with not-found otherwise so existence never leaks across tenants.
func (s *Server) ownsSession(w http.ResponseWriter, r *http.Request, tenant, sessionID string) bool {
	sess, ok := s.engine.GetSession(sessionID)
	if !ok {
		respondError(w, r, importer.ErrSessionNotFound)
		return false
	}
	if sess.TenantID != tenant {
		respondError(w, r, importer.ErrSessionNotFound)
		return false
	}
	return true
}

// decodeBody decodes the JSON request body into v, reporting a bad
// request on malformed or oversized payloads.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			respondBadRequest(w, r, "request body too large")
			return false
		}
		if errors.Is(err, io.EOF) {
			respondBadRequest(w, r, "request body is required")
			return false
		}
		respondBadRequest(w, r, "invalid JSON body")
		return false
	}
	return true
}
