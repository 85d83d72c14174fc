package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	apperrors "github.com/hbeckers/punchd/internal/errors"
	"github.com/hbeckers/punchd/internal/httputil"
	"github.com/hbeckers/punchd/internal/model"
	"github.com/hbeckers/punchd/internal/store"
	"github.com/hbeckers/punchd/internal/tracker"
	"github.com/hbeckers/punchd/internal/util"
)

// TrackerService is the tracker surface the local API exposes.
type TrackerService interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	SyncTodayTotal(ctx context.Context) error
	Status() tracker.Status
}

// SettingsStore persists the employee id and preference flags.
type SettingsStore interface {
	EmployeeID(ctx context.Context) (string, error)
	SetEmployeeID(ctx context.Context, id string) error
	ShowTimer(ctx context.Context) (bool, error)
	SetShowTimer(ctx context.Context, value bool) error
	AutoRestart(ctx context.Context) (bool, error)
	SetAutoRestart(ctx context.Context, value bool) error
	DisplayMode(ctx context.Context) (model.DisplayMode, error)
	SetDisplayMode(ctx context.Context, mode model.DisplayMode) error
}

// CredentialValidator checks a credential pair against the remote service.
type CredentialValidator interface {
	CheckCredentials(ctx context.Context, creds store.Credentials) error
}

// CredentialSaver persists a credential pair.
type CredentialSaver interface {
	Save(creds store.Credentials) error
}

type Handler struct {
	tracker   TrackerService
	settings  SettingsStore
	creds     CredentialSaver
	validator CredentialValidator
}

func New(trackerService TrackerService, settings SettingsStore, creds CredentialSaver, validator CredentialValidator) *Handler {
	return &Handler{
		tracker:   trackerService,
		settings:  settings,
		creds:     creds,
		validator: validator,
	}
}

func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/status", h.Status)
	r.Post("/session/start", h.StartSession)
	r.Post("/session/stop", h.StopSession)
	r.Post("/sync", h.Sync)
	r.Put("/settings/credentials", h.SaveCredentials)
	r.Put("/settings/employee", h.SaveEmployee)
	r.Get("/settings/preferences", h.Preferences)
	r.Put("/settings/preferences", h.SavePreferences)

	return r
}

// GET /v1/status
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, h.tracker.Status())
}

// POST /v1/session/start
func (h *Handler) StartSession(w http.ResponseWriter, r *http.Request) {
	if err := h.tracker.Start(r.Context()); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, h.tracker.Status())
}

// POST /v1/session/stop
func (h *Handler) StopSession(w http.ResponseWriter, r *http.Request) {
	if err := h.tracker.Stop(r.Context()); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, h.tracker.Status())
}

// POST /v1/sync
func (h *Handler) Sync(w http.ResponseWriter, r *http.Request) {
	if err := h.tracker.SyncTodayTotal(r.Context()); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, h.tracker.Status())
}

// PUT /v1/settings/credentials
// Validates the pair against the remote auth endpoint before persisting.
func (h *Handler) SaveCredentials(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ClientID     string `json:"client_id"`
		ClientSecret string `json:"client_secret"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, apperrors.ValidationError("Invalid JSON body"))
		return
	}
	if req.ClientID == "" {
		httputil.WriteError(w, apperrors.MissingRequired("client_id"))
		return
	}
	if req.ClientSecret == "" {
		httputil.WriteError(w, apperrors.MissingRequired("client_secret"))
		return
	}

	creds := store.Credentials{ClientID: req.ClientID, ClientSecret: req.ClientSecret}

	// Reject bad pairs before they replace working ones on disk.
	if err := h.validator.CheckCredentials(r.Context(), creds); err != nil {
		httputil.WriteError(w, err)
		return
	}

	if err := h.creds.Save(creds); err != nil {
		httputil.WriteError(w, apperrors.Wrap(apperrors.ErrCodeInternal, "Failed to save credentials", err))
		return
	}

	log.Info().Str("clientId", util.MaskSecret(req.ClientID)).Msg("credentials updated")
	w.WriteHeader(http.StatusNoContent)
}

// PUT /v1/settings/employee
func (h *Handler) SaveEmployee(w http.ResponseWriter, r *http.Request) {
	var req struct {
		EmployeeID string `json:"employee_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, apperrors.ValidationError("Invalid JSON body"))
		return
	}
	if req.EmployeeID == "" {
		httputil.WriteError(w, apperrors.MissingRequired("employee_id"))
		return
	}

	if err := h.settings.SetEmployeeID(r.Context(), req.EmployeeID); err != nil {
		httputil.WriteError(w, apperrors.Wrap(apperrors.ErrCodeInternal, "Failed to save employee id", err))
		return
	}

	log.Info().Str("employeeId", req.EmployeeID).Msg("employee id updated")
	w.WriteHeader(http.StatusNoContent)
}

type preferencesResponse struct {
	ShowTimer   bool              `json:"show_timer"`
	AutoRestart bool              `json:"auto_restart"`
	DisplayMode model.DisplayMode `json:"display_mode"`
}

// GET /v1/settings/preferences
func (h *Handler) Preferences(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	showTimer, err := h.settings.ShowTimer(ctx)
	if err != nil {
		httputil.WriteError(w, apperrors.Wrap(apperrors.ErrCodeInternal, "Failed to read preferences", err))
		return
	}
	autoRestart, err := h.settings.AutoRestart(ctx)
	if err != nil {
		httputil.WriteError(w, apperrors.Wrap(apperrors.ErrCodeInternal, "Failed to read preferences", err))
		return
	}
	mode, err := h.settings.DisplayMode(ctx)
	if err != nil {
		httputil.WriteError(w, apperrors.Wrap(apperrors.ErrCodeInternal, "Failed to read preferences", err))
		return
	}

	httputil.WriteJSON(w, http.StatusOK, preferencesResponse{
		ShowTimer:   showTimer,
		AutoRestart: autoRestart,
		DisplayMode: mode,
	})
}

// PUT /v1/settings/preferences
// Absent fields are left unchanged.
func (h *Handler) SavePreferences(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ShowTimer   *bool              `json:"show_timer"`
		AutoRestart *bool              `json:"auto_restart"`
		DisplayMode *model.DisplayMode `json:"display_mode"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, apperrors.ValidationError("Invalid JSON body"))
		return
	}

	ctx := r.Context()

	if req.DisplayMode != nil && !model.ValidDisplayMode(*req.DisplayMode) {
		httputil.WriteError(w, apperrors.ValidationError("display_mode must be \"clock\" or \"total\""))
		return
	}

	if req.ShowTimer != nil {
		if err := h.settings.SetShowTimer(ctx, *req.ShowTimer); err != nil {
			httputil.WriteError(w, apperrors.Wrap(apperrors.ErrCodeInternal, "Failed to save preference", err))
			return
		}
	}
	if req.AutoRestart != nil {
		if err := h.settings.SetAutoRestart(ctx, *req.AutoRestart); err != nil {
			httputil.WriteError(w, apperrors.Wrap(apperrors.ErrCodeInternal, "Failed to save preference", err))
			return
		}
	}
	if req.DisplayMode != nil {
		if err := h.settings.SetDisplayMode(ctx, *req.DisplayMode); err != nil {
			httputil.WriteError(w, apperrors.Wrap(apperrors.ErrCodeInternal, "Failed to save preference", err))
			return
		}
	}

	h.Preferences(w, r)
}
