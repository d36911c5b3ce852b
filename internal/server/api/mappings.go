// Package api provides HTTP API handlers for the InSync interpreter.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/ayusman/insync/internal/store"
)

// MappingHandler handles HTTP requests for gesture-word mapping resources.
type MappingHandler struct {
	store    *store.Store
	onChange func()
}

// NewMappingHandler creates a new MappingHandler. onChange, if non-nil, is
// called after every successful mutation so the pipeline can reload its
// overrides.
func NewMappingHandler(s *store.Store, onChange func()) *MappingHandler {
	return &MappingHandler{store: s, onChange: onChange}
}

// ServeHTTP implements the http.Handler interface and routes requests to
// appropriate methods.
func (h *MappingHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Expected paths: /api/mappings or /api/mappings/{id}
	path := strings.TrimPrefix(r.URL.Path, "/api/mappings")
	path = strings.TrimPrefix(path, "/")

	if path == "" {
		switch r.Method {
		case http.MethodGet:
			h.list(w, r)
		case http.MethodPost:
			h.create(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
		return
	}

	id := path
	switch r.Method {
	case http.MethodGet:
		h.get(w, r, id)
	case http.MethodPut:
		h.update(w, r, id)
	case http.MethodDelete:
		h.delete(w, r, id)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

type mappingRequest struct {
	Gesture string `json:"gesture"`
	Word    string `json:"word"`
}

type mappingResponse struct {
	ID        string `json:"id"`
	Gesture   string `json:"gesture"`
	Word      string `json:"word"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

type listMappingsResponse struct {
	Mappings []mappingResponse `json:"mappings"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// toResponse converts a store.Mapping to a mappingResponse.
func toResponse(m *store.Mapping) mappingResponse {
	return mappingResponse{
		ID:        m.ID,
		Gesture:   m.Gesture,
		Word:      m.Word,
		CreatedAt: m.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		UpdatedAt: m.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// WriteError writes a JSON error response.
func WriteError(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, errorResponse{Error: message})
}

func (h *MappingHandler) changed() {
	if h.onChange != nil {
		h.onChange()
	}
}

// list handles GET /api/mappings.
func (h *MappingHandler) list(w http.ResponseWriter, r *http.Request) {
	mappings, err := h.store.Mappings().List()
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "failed to list mappings")
		return
	}

	resp := listMappingsResponse{Mappings: make([]mappingResponse, 0, len(mappings))}
	for _, m := range mappings {
		resp.Mappings = append(resp.Mappings, toResponse(m))
	}
	WriteJSON(w, http.StatusOK, resp)
}

// create handles POST /api/mappings.
func (h *MappingHandler) create(w http.ResponseWriter, r *http.Request) {
	var req mappingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.Gesture = strings.TrimSpace(req.Gesture)
	req.Word = strings.TrimSpace(req.Word)
	if req.Gesture == "" || req.Word == "" {
		WriteError(w, http.StatusBadRequest, "gesture and word are required")
		return
	}

	m := &store.Mapping{
		ID:      uuid.New().String(),
		Gesture: req.Gesture,
		Word:    req.Word,
	}
	if err := h.store.Mappings().Create(m); err != nil {
		WriteError(w, http.StatusConflict, "mapping for this gesture already exists")
		return
	}

	h.changed()
	WriteJSON(w, http.StatusCreated, toResponse(m))
}

// get handles GET /api/mappings/{id}.
func (h *MappingHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	m, err := h.store.Mappings().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "mapping not found")
			return
		}
		WriteError(w, http.StatusInternalServerError, "failed to get mapping")
		return
	}
	WriteJSON(w, http.StatusOK, toResponse(m))
}

// update handles PUT /api/mappings/{id}.
func (h *MappingHandler) update(w http.ResponseWriter, r *http.Request, id string) {
	var req mappingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	m, err := h.store.Mappings().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "mapping not found")
			return
		}
		WriteError(w, http.StatusInternalServerError, "failed to get mapping")
		return
	}

	if gesture := strings.TrimSpace(req.Gesture); gesture != "" {
		m.Gesture = gesture
	}
	if word := strings.TrimSpace(req.Word); word != "" {
		m.Word = word
	}

	if err := h.store.Mappings().Update(m); err != nil {
		WriteError(w, http.StatusInternalServerError, "failed to update mapping")
		return
	}

	h.changed()
	WriteJSON(w, http.StatusOK, toResponse(m))
}

// delete handles DELETE /api/mappings/{id}.
func (h *MappingHandler) delete(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.store.Mappings().Delete(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "mapping not found")
			return
		}
		WriteError(w, http.StatusInternalServerError, "failed to delete mapping")
		return
	}

	h.changed()
	WriteJSON(w, http.StatusNoContent, nil)
}
