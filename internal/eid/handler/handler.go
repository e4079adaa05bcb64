// Package handler exposes the session controller to a local UI over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"eidgate/internal/eid/models"
	"eidgate/internal/eid/protocol"
	"eidgate/internal/platform/middleware"
	"eidgate/pkg/platform/httputil"
)

// Service is the subset of the session controller the UI bridge drives.
type Service interface {
	StartIdentification(ctx context.Context, tokenURL string) error
	SetPin(ctx context.Context, pin string) error
	SetPuk(ctx context.Context, puk string) error
	SetCan(ctx context.Context, can string) error
	SendCommand(ctx context.Context, name string) error
	Unbind(ctx context.Context) error
	Snapshot(ctx context.Context) (models.Snapshot, error)
	Subscribe() (<-chan models.SessionState, func())
	SubscribeNFC() (<-chan bool, func())
}

type Handler struct {
	svc    Service
	logger *slog.Logger
}

func New(svc Service, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// Register mounts the identification routes on r.
func (h *Handler) Register(r chi.Router) {
	r.Route("/v1/identifications", func(r chi.Router) {
		r.Post("/", h.handleStart)
		r.Get("/", h.handleSnapshot)
		r.Delete("/", h.handleUnbind)
		r.Get("/events", h.handleEvents)
		r.Post("/pin", h.handleSecret(secretPIN, h.svc.SetPin))
		r.Post("/puk", h.handleSecret(secretPUK, h.svc.SetPuk))
		r.Post("/can", h.handleSecret(secretCAN, h.svc.SetCan))
		r.Post("/commands/{name}", h.handleCommand)
	})
}

func (h *Handler) handleStart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, err := httputil.DecodeJSON[StartRequest](w, r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.WriteError(w, err)
		return
	}

	if err := h.svc.StartIdentification(ctx, req.TCTokenURL); err != nil {
		h.fail(w, r, "failed to start identification", err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (h *Handler) handleSecret(kind secretKind, submit func(context.Context, string) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		req, err := httputil.DecodeJSON[SecretRequest](w, r)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		if err := kind.validate(req.Value); err != nil {
			httputil.WriteError(w, err)
			return
		}

		if err := submit(ctx, req.Value); err != nil {
			h.fail(w, r, "failed to submit "+kind.name, err)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	}
}

func (h *Handler) handleCommand(w http.ResponseWriter, r *http.Request) {
	name := strings.ToUpper(strings.TrimSpace(chi.URLParam(r, "name")))
	if !protocol.IsPlainCommand(name) {
		httputil.WriteError(w, httputil.Invalid("unknown command: "+name))
		return
	}
	if err := h.svc.SendCommand(r.Context(), name); err != nil {
		h.fail(w, r, "failed to send command", err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (h *Handler) handleUnbind(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Unbind(r.Context()); err != nil {
		h.fail(w, r, "failed to unbind", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	snap, err := h.svc.Snapshot(r.Context())
	if err != nil {
		h.fail(w, r, "failed to read identification state", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toSnapshotResponse(snap))
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, msg string, err error) {
	h.logger.WarnContext(r.Context(), msg,
		"request_id", middleware.GetRequestID(r.Context()),
		"error", err,
	)
	httputil.WriteError(w, err)
}

// StartRequest is the body of POST /v1/identifications.
type StartRequest struct {
	TCTokenURL string `json:"tc_token_url"`
}

func (r *StartRequest) Validate() error {
	raw := strings.TrimSpace(r.TCTokenURL)
	if raw == "" {
		return httputil.Invalid("tc_token_url is required")
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "https" && u.Scheme != "http") {
		return httputil.Invalid("tc_token_url must be an absolute http(s) URL")
	}
	r.TCTokenURL = raw
	return nil
}

// SecretRequest is the body of the PIN, PUK and CAN endpoints.
type SecretRequest struct {
	Value string `json:"value"`
}

type secretKind struct {
	name    string
	lengths []int
}

var (
	// Transport PINs have five digits, regular PINs six.
	secretPIN = secretKind{name: "pin", lengths: []int{5, 6}}
	secretPUK = secretKind{name: "puk", lengths: []int{10}}
	secretCAN = secretKind{name: "can", lengths: []int{6}}
)

// validate never echoes the value.
func (k secretKind) validate(value string) error {
	if value == "" {
		return httputil.Invalid(k.name + " is required")
	}
	for _, c := range value {
		if c < '0' || c > '9' {
			return httputil.Invalid(k.name + " must contain digits only")
		}
	}
	for _, n := range k.lengths {
		if len(value) == n {
			return nil
		}
	}
	return httputil.Invalid(k.name + " has an invalid length")
}
