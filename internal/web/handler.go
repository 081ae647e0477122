package web

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi"
	"go.uber.org/zap"

	"rallypoint-bot/internal/models"
	"rallypoint-bot/internal/service"
)

const defaultEventLimit = 20

// Handler exposes a read-only JSON view over upcoming events, templates and
// attendance responses.
type Handler struct {
	events service.EventService
	rsvps  service.RSVPService
	log    *zap.Logger
}

func NewHandler(events service.EventService, rsvps service.RSVPService, log *zap.Logger) *Handler {
	return &Handler{events: events, rsvps: rsvps, log: log}
}

func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Get("/health", h.Health)
	r.Get("/api/events", h.UpcomingEvents)
	r.Get("/api/events/{id}/rsvps", h.EventRSVPs)
	r.Get("/api/templates", h.Templates)
	return r
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type eventView struct {
	ID         int64     `json:"id"`
	TemplateID *int64    `json:"template_id,omitempty"`
	ChannelID  string    `json:"channel_id"`
	Name       string    `json:"name"`
	Notes      *string   `json:"notes,omitempty"`
	StartAt    time.Time `json:"start_at"`
	Status     string    `json:"status"`
}

func (h *Handler) UpcomingEvents(w http.ResponseWriter, r *http.Request) {
	limit := defaultEventLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}

	events, err := h.events.ListUpcoming(r.Context(), limit)
	if err != nil {
		h.log.Error("listing upcoming events failed", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	views := make([]eventView, 0, len(events))
	for _, e := range events {
		views = append(views, eventView{
			ID:         e.ID,
			TemplateID: e.TemplateID,
			ChannelID:  e.ChannelID,
			Name:       e.Name,
			Notes:      e.Notes,
			StartAt:    e.StartAt,
			Status:     e.Status,
		})
	}
	writeJSON(w, http.StatusOK, views)
}

type rsvpView struct {
	Yes      int                 `json:"yes"`
	No       int                 `json:"no"`
	Maybe    int                 `json:"maybe"`
	ByChoice map[string][]string `json:"by_choice"`
}

func (h *Handler) EventRSVPs(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "event id must be numeric", http.StatusBadRequest)
		return
	}

	counts, err := h.rsvps.Counts(r.Context(), id)
	if err != nil {
		h.log.Error("counting rsvps failed", zap.Int64("event_id", id), zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	responses, err := h.rsvps.Responses(r.Context(), id)
	if err != nil {
		h.log.Error("listing rsvps failed", zap.Int64("event_id", id), zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	view := rsvpView{
		Yes:   counts.Yes,
		No:    counts.No,
		Maybe: counts.Maybe,
		ByChoice: map[string][]string{
			models.RSVPYes:   {},
			models.RSVPNo:    {},
			models.RSVPMaybe: {},
		},
	}
	for _, resp := range responses {
		view.ByChoice[resp.Choice] = append(view.ByChoice[resp.Choice], resp.UserID)
	}
	writeJSON(w, http.StatusOK, view)
}

type templateView struct {
	ID           int64   `json:"id"`
	Name         string  `json:"name"`
	Weekdays     string  `json:"weekdays"`
	TimeOfDay    string  `json:"time_of_day"`
	Timezone     string  `json:"timezone"`
	HorizonWeeks int     `json:"horizon_weeks"`
	Enabled      bool    `json:"enabled"`
	Offsets      []int64 `json:"remind_offsets"`
}

func (h *Handler) Templates(w http.ResponseWriter, r *http.Request) {
	guildID := r.URL.Query().Get("guild_id")
	if guildID == "" {
		http.Error(w, "guild_id is required", http.StatusBadRequest)
		return
	}

	templates, err := h.events.ListTemplates(r.Context(), guildID)
	if err != nil {
		h.log.Error("listing templates failed", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	views := make([]templateView, 0, len(templates))
	for _, t := range templates {
		views = append(views, templateView{
			ID:           t.ID,
			Name:         t.Name,
			Weekdays:     t.Weekdays,
			TimeOfDay:    formatTimeOfDay(t.Hour, t.Minute),
			Timezone:     t.Timezone,
			HorizonWeeks: t.HorizonWeeks,
			Enabled:      t.Enabled,
			Offsets:      t.RemindOffsets,
		})
	}
	writeJSON(w, http.StatusOK, views)
}

func formatTimeOfDay(hour, minute int) string {
	return time.Date(0, 1, 1, hour, minute, 0, 0, time.UTC).Format("15:04")
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
