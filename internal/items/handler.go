package items

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"

	"github.com/adaptive-assessment/backend/internal/models"
	"github.com/gorilla/mux"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) CreateItem(w http.ResponseWriter, r *http.Request) {
	var req models.CreateItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return
	}

	item, err := h.service.CreateItem(req)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusCreated, item)
}

func (h *Handler) GetItem(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id, err := strconv.ParseInt(vars["id"], 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid item ID"})
		return
	}

	item, err := h.service.GetItem(id)
	if err != nil {
		writeJSON(w, http.StatusNotFound, models.ErrorResponse{Error: "Item not found"})
		return
	}

	writeJSON(w, http.StatusOK, item)
}

func (h *Handler) ListItems(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	subject := query.Get("subject")
	topic := query.Get("topic")
	activeOnly := query.Get("active") != "false"
	limit := intQueryParam(query, "limit", 20)
	offset := intQueryParam(query, "offset", 0)

	items, total, err := h.service.ListItems(subject, topic, activeOnly, limit, offset)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to list items"})
		return
	}

	if items == nil {
		items = []models.Item{}
	}
	writeJSON(w, http.StatusOK, models.ItemListResponse{
		Items:    items,
		Total:    total,
		Page:     offset/max(limit, 1) + 1,
		PageSize: limit,
	})
}

func (h *Handler) Recalibrate(w http.ResponseWriter, r *http.Request) {
	minResponses := intQueryParam(r.URL.Query(), "min_responses", 50)

	report, err := h.service.Recalibrate(minResponses)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Recalibration failed: " + err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, report)
}

func intQueryParam(query url.Values, key string, fallback int) int {
	if v := query.Get(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			return n
		}
	}
	return fallback
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
