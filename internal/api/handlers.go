// Package api exposes the HTTP handlers for the exercise tracker.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"example.com/exercisetracker/internal/domain"
)

// Handler coordinates HTTP requests with the domain service.
type Handler struct {
	service *domain.Service
	log     *logrus.Logger
}

// NewHandler builds a Handler.
func NewHandler(service *domain.Service, log *logrus.Logger) *Handler {
	return &Handler{service: service, log: log}
}

// RegisterRoutes wires endpoints to the mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/users", h.users)
	mux.HandleFunc("/api/users/", h.userSubresource)
	mux.HandleFunc("/healthz", healthz)
}

// healthz reports a simple OK status for container health checks.
func healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) users(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.createUser(w, r)
	case http.MethodGet:
		h.listUsers(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "unsupported method")
	}
}

// userSubresource routes /api/users/{id}/exercises and /api/users/{id}/logs.
func (h *Handler) userSubresource(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/users/")
	parts := strings.Split(strings.Trim(rest, "/"), "/")
	if len(parts) != 2 || parts[0] == "" {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	userID, resource := parts[0], parts[1]
	switch {
	case resource == "exercises" && r.Method == http.MethodPost:
		h.addExercise(w, r, userID)
	case resource == "logs" && r.Method == http.MethodGet:
		h.getLogs(w, r, userID)
	case resource == "exercises" || resource == "logs":
		writeError(w, http.StatusMethodNotAllowed, "unsupported method")
	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

func (h *Handler) createUser(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "unable to parse body")
		return
	}

	user, err := h.service.CreateUser(r.Context(), req.Username)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, UserView{ID: user.ID, Username: user.Username})
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.ListUsers(r.Context())
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	views := make([]UserView, 0, len(users))
	for _, user := range users {
		views = append(views, UserView{ID: user.ID, Username: user.Username})
	}
	writeJSON(w, http.StatusOK, views)
}

func (h *Handler) addExercise(w http.ResponseWriter, r *http.Request, userID string) {
	var req AddExerciseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "unable to parse body")
		return
	}

	var date time.Time
	if strings.TrimSpace(req.Date) != "" {
		parsed, err := domain.ParseDate(req.Date)
		if err != nil {
			writeError(w, http.StatusBadRequest, "date must be formatted as YYYY-MM-DD")
			return
		}
		date = parsed
	}

	exercise, user, err := h.service.AddExercise(r.Context(), domain.AddExerciseInput{
		UserID:      userID,
		Description: req.Description,
		DurationMin: req.Duration,
		Date:        date,
	})
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ExerciseView{
		ID:          user.ID,
		Username:    user.Username,
		Date:        domain.FormatDate(exercise.Date),
		Duration:    exercise.DurationMin,
		Description: exercise.Description,
	})
}

func (h *Handler) getLogs(w http.ResponseWriter, r *http.Request, userID string) {
	filter, err := parseLogFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, exercises, err := h.service.GetLogs(r.Context(), userID, filter)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	log := make([]LogEntry, 0, len(exercises))
	for _, exercise := range exercises {
		log = append(log, LogEntry{
			Description: exercise.Description,
			Duration:    exercise.DurationMin,
			Date:        domain.FormatDate(exercise.Date),
		})
	}

	writeJSON(w, http.StatusOK, LogsView{
		ID:       user.ID,
		Username: user.Username,
		Count:    len(log),
		Log:      log,
	})
}

// parseLogFilter reads the from/to/limit query parameters. Both date bounds
// are inclusive and independently optional; a non-positive limit means no
// limit.
func parseLogFilter(r *http.Request) (domain.LogFilter, error) {
	var filter domain.LogFilter
	query := r.URL.Query()

	if raw := query.Get("from"); raw != "" {
		parsed, err := domain.ParseDate(raw)
		if err != nil {
			return filter, errors.New("from must be formatted as YYYY-MM-DD")
		}
		filter.From = &parsed
	}
	if raw := query.Get("to"); raw != "" {
		parsed, err := domain.ParseDate(raw)
		if err != nil {
			return filter, errors.New("to must be formatted as YYYY-MM-DD")
		}
		filter.To = &parsed
	}
	if raw := query.Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			return filter, errors.New("limit must be an integer")
		}
		filter.Limit = parsed
	}
	return filter, nil
}

func (h *Handler) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case domain.IsValidation(err):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrUserNotFound):
		writeError(w, http.StatusNotFound, "user not found")
	default:
		h.log.WithError(err).Error("request failed")
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// CreateUserRequest is the payload for POST /api/users.
type CreateUserRequest struct {
	Username string `json:"username"`
}

// AddExerciseRequest is the payload for POST /api/users/{id}/exercises.
type AddExerciseRequest struct {
	Description string `json:"description"`
	Duration    int    `json:"duration"`
	Date        string `json:"date"`
}

// UserView exposes the public fields of a user.
type UserView struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// ExerciseView is the response body for a logged exercise. Date carries the
// human-readable calendar stamp existing clients expect.
type ExerciseView struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	Date        string `json:"date"`
	Duration    int    `json:"duration"`
	Description string `json:"description"`
}

// LogEntry is a single item in a user's exercise log.
type LogEntry struct {
	Description string `json:"description"`
	Duration    int    `json:"duration"`
	Date        string `json:"date"`
}

// LogsView packages a user's filtered exercise log.
type LogsView struct {
	ID       string     `json:"id"`
	Username string     `json:"username"`
	Count    int        `json:"count"`
	Log      []LogEntry `json:"log"`
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
