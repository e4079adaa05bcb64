package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"eidgate/internal/platform/middleware"
)

const eventsHeartbeat = 15 * time.Second

// handleEvents streams settled session states and NFC changes as
// server-sent events until the client goes away or the controller stops.
func (h *Handler) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	states, cancelStates := h.svc.Subscribe()
	defer cancelStates()
	nfc, cancelNFC := h.svc.SubscribeNFC()
	defer cancelNFC()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ticker := time.NewTicker(eventsHeartbeat)
	defer ticker.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fmt.Fprint(w, ": ping\n\n")
		case st, ok := <-states:
			if !ok {
				return
			}
			if err := writeEvent(w, "state", toStateResponse(st)); err != nil {
				h.logger.WarnContext(ctx, "failed to write state event",
					"request_id", middleware.GetRequestID(ctx),
					"error", err,
				)
				return
			}
		case enabled, ok := <-nfc:
			if !ok {
				return
			}
			if err := writeEvent(w, "nfc", NFCEvent{Enabled: enabled}); err != nil {
				return
			}
		}
		flusher.Flush()
	}
}

// NFCEvent is the payload of an "nfc" event.
type NFCEvent struct {
	Enabled bool `json:"enabled"`
}

func writeEvent(w http.ResponseWriter, event string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", event, err)
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
	return err
}
