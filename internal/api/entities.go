package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/miraie-core/internal/audit"
	"github.com/nerrad567/miraie-core/internal/hass"
)

// entityResponse is one entity with its current state.
type entityResponse struct {
	EntityID string      `json:"entity_id"`
	Domain   string      `json:"domain"`
	Platform string      `json:"platform"`
	EntryID  string      `json:"config_entry_id"`
	UniqueID string      `json:"unique_id"`
	State    *hass.State `json:"state,omitempty"`
}

func (s *Server) handleListEntities(w http.ResponseWriter, r *http.Request) {
	domain := r.URL.Query().Get("domain")

	states := make(map[string]hass.State)
	for _, st := range s.host.States() {
		states[st.EntityID] = st
	}

	list := make([]entityResponse, 0)
	for _, re := range s.host.Entities() {
		if domain != "" && re.Domain != domain {
			continue
		}
		resp := entityResponse{
			EntityID: re.EntityID,
			Domain:   re.Domain,
			Platform: re.Platform,
			EntryID:  re.EntryID,
			UniqueID: re.Entity.UniqueID(),
		}
		if st, ok := states[re.EntityID]; ok {
			resp.State = &st
		}
		list = append(list, resp)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].EntityID < list[j].EntityID })

	writeJSON(w, http.StatusOK, map[string]any{
		"entities": list,
		"count":    len(list),
	})
}

func (s *Server) handleGetEntity(w http.ResponseWriter, r *http.Request) {
	st, err := s.host.State(chi.URLParam(r, "entity_id"))
	if err != nil {
		s.writeHostError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// handleCallService invokes a climate or switch service.
//
// Body: {"entity_id": "climate.bedroom_ac", "data": {"temperature": 22}}.
// Data keys may also be given at the top level next to entity_id.
func (s *Server) handleCallService(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	call := hass.ServiceCall{Data: map[string]any{}}
	for k, v := range body {
		switch k {
		case "entity_id":
			id, ok := v.(string)
			if !ok {
				writeBadRequest(w, "entity_id must be a string")
				return
			}
			call.EntityID = id
		case "data":
			data, ok := v.(map[string]any)
			if !ok {
				writeBadRequest(w, "data must be an object")
				return
			}
			for dk, dv := range data {
				call.Data[dk] = dv
			}
		default:
			call.Data[k] = v
		}
	}
	if call.EntityID == "" {
		writeError(w, http.StatusBadRequest, ErrCodeValidation, "entity_id is required")
		return
	}

	domain, service := chi.URLParam(r, "domain"), chi.URLParam(r, "service")
	err := s.host.CallService(r.Context(), domain, service, call)
	s.record(r.Context(), audit.Record{
		Action:     audit.ActionServiceCall,
		TargetType: audit.TargetEntity,
		TargetID:   call.EntityID,
		Outcome:    outcome(err),
		Details:    map[string]any{"service": domain + "." + service, "data": call.Data},
	})
	if err != nil {
		s.writeHostError(w, err)
		return
	}

	st, err := s.host.State(call.EntityID)
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
		return
	}
	writeJSON(w, http.StatusOK, st)
}
