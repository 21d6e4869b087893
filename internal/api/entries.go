package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/miraie-core/internal/audit"
	"github.com/nerrad567/miraie-core/internal/components/miraie"
	"github.com/nerrad567/miraie-core/internal/hass"
)

// createEntryRequest is the body of POST /entries: one MirAIe account.
type createEntryRequest struct {
	Title    string `json:"title"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// entryListResponse wraps the entry list with per-state counts.
type entryListResponse struct {
	Entries []*hass.ConfigEntry     `json:"entries"`
	Count   int                     `json:"count"`
	States  map[hass.EntryState]int `json:"states"`
}

func (s *Server) handleListEntries(w http.ResponseWriter, _ *http.Request) {
	entries := s.host.Entries()
	writeJSON(w, http.StatusOK, entryListResponse{
		Entries: entries,
		Count:   len(entries),
		States:  s.host.EntryCounts(),
	})
}

func (s *Server) handleGetEntry(w http.ResponseWriter, r *http.Request) {
	entry, err := s.host.Entry(chi.URLParam(r, "id"))
	if err != nil {
		s.writeHostError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// handleCreateEntry runs the user config flow for a MirAIe account.
//
// The account is set up immediately. If setup fails the entry is removed
// again, so bad credentials never leave a stored entry behind.
func (s *Server) handleCreateEntry(w http.ResponseWriter, r *http.Request) {
	var req createEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, ErrCodeValidation, "username and password are required")
		return
	}
	if req.Title == "" {
		req.Title = req.Username
	}

	entry, err := s.host.AddEntry(r.Context(), &hass.ConfigEntry{
		Domain:   miraie.Domain,
		Title:    req.Title,
		UniqueID: miraie.AccountID(req.Username),
		Source:   hass.SourceUser,
		Data: map[string]string{
			miraie.ConfUsername: req.Username,
			miraie.ConfPassword: req.Password,
		},
	})
	rec := audit.Record{
		Action:     audit.ActionEntryCreate,
		TargetType: audit.TargetEntry,
		Outcome:    outcome(err),
		Details:    map[string]any{"title": req.Title, "username": req.Username},
	}
	if entry != nil {
		rec.TargetID = entry.EntryID
	}
	if err != nil {
		rec.Details["error"] = err.Error()
	}
	s.record(r.Context(), rec)

	if err != nil {
		if entry != nil && errors.Is(err, hass.ErrSetupFailed) {
			if rmErr := s.host.RemoveEntry(r.Context(), entry.EntryID); rmErr != nil {
				s.logger.Error("removing failed entry", "entry_id", entry.EntryID, "error", rmErr)
			}
			s.logger.Warn("config flow rejected account", "username", req.Username, "error", err)
		}
		s.writeHostError(w, err)
		return
	}

	s.logger.Info("config entry created", "entry_id", entry.EntryID, "title", entry.Title)
	writeJSON(w, http.StatusCreated, entry)
}

func (s *Server) handleDeleteEntry(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	err := s.host.RemoveEntry(r.Context(), id)
	s.record(r.Context(), audit.Record{
		Action: audit.ActionEntryDelete, TargetType: audit.TargetEntry, TargetID: id, Outcome: outcome(err),
	})
	if err != nil {
		s.writeHostError(w, err)
		return
	}
	s.logger.Info("config entry removed", "entry_id", id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleReloadEntry(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	err := s.host.ReloadEntry(r.Context(), id)
	s.record(r.Context(), audit.Record{
		Action: audit.ActionEntryReload, TargetType: audit.TargetEntry, TargetID: id, Outcome: outcome(err),
	})
	if err != nil && !errors.Is(err, hass.ErrSetupFailed) {
		s.writeHostError(w, err)
		return
	}
	// A failed setup is reported through the entry state, not the status code.
	entry, err := s.host.Entry(id)
	if err != nil {
		s.writeHostError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}
