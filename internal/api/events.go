package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/example/ec-order-payments/internal/notification"
	"github.com/rs/zerolog"
)

// DefaultKeepAlive is how often an idle event stream receives a comment line
const DefaultKeepAlive = 25 * time.Second

// Events streams every notification to the caller as server-sent events.
// Each frame is "event: <name>" followed by the JSON message envelope.
func (h *Handlers) Events(w http.ResponseWriter, r *http.Request) {
	log := zerolog.Ctx(r.Context())
	rc := http.NewResponseController(w)
	// The server write timeout would otherwise cut long-lived streams
	if err := rc.SetWriteDeadline(time.Time{}); err != nil && !errors.Is(err, http.ErrNotSupported) {
		log.Warn().Err(err).Msg("could not clear write deadline for event stream")
	}

	// Subscribe before the first flush so a connected client misses nothing
	messages, cancel := h.hub.Subscribe()
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	if _, err := fmt.Fprint(w, ": connected\n\n"); err != nil {
		return
	}
	if err := rc.Flush(); err != nil {
		log.Error().Err(err).Msg("event stream does not support flushing")
		return
	}

	caller := identity(r)
	log.Info().Int64("user_id", caller.UserID).Int("subscribers", h.hub.Subscribers()).Msg("event stream opened")
	defer log.Info().Int64("user_id", caller.UserID).Msg("event stream closed")

	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case msg, ok := <-messages:
			if !ok {
				return
			}
			if err := writeEvent(w, msg); err != nil {
				return
			}
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
		}
		if err := rc.Flush(); err != nil {
			return
		}
	}
}

func writeEvent(w http.ResponseWriter, msg notification.Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", msg.Event, data)
	return err
}
