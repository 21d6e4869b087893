package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/nerrad567/miraie-core/internal/audit"
)

// record writes an audit record if an audit repository is configured.
// Failures are logged and never fail the request.
func (s *Server) record(ctx context.Context, rec audit.Record) {
	if s.audit == nil {
		return
	}
	if rec.Actor == "" {
		rec.Actor, _ = ctx.Value(ctxKeySubject).(string) //nolint:errcheck // empty for anonymous requests
	}
	// The request context may already be cancelled once the response is out.
	if err := s.audit.Create(context.WithoutCancel(ctx), &rec); err != nil {
		s.logger.Warn("writing audit record", "action", rec.Action, "error", err)
	}
}

func outcome(err error) string {
	if err != nil {
		return audit.OutcomeFailed
	}
	return audit.OutcomeOK
}

// handleListAudit returns audit records, newest first.
// Query parameters: action, target_type, target_id, limit, offset.
func (s *Server) handleListAudit(w http.ResponseWriter, r *http.Request) {
	if s.audit == nil {
		writeError(w, http.StatusNotFound, ErrCodeNotFound, "audit trail is disabled")
		return
	}
	q := r.URL.Query()
	f := audit.Filter{
		Action:     q.Get("action"),
		TargetType: q.Get("target_type"),
		TargetID:   q.Get("target_id"),
	}
	var err error
	if v := q.Get("limit"); v != "" {
		if f.Limit, err = strconv.Atoi(v); err != nil {
			writeBadRequest(w, "limit must be an integer")
			return
		}
	}
	if v := q.Get("offset"); v != "" {
		if f.Offset, err = strconv.Atoi(v); err != nil {
			writeBadRequest(w, "offset must be an integer")
			return
		}
	}

	page, err := s.audit.List(r.Context(), f)
	if err != nil {
		s.logger.Error("listing audit records", "error", err)
		writeInternalError(w, "failed to list audit records")
		return
	}
	writeJSON(w, http.StatusOK, page)
}
