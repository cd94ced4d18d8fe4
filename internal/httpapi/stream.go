package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	"github.com/Inur123/Be-Laci/internal/apperr"
	"github.com/Inur123/Be-Laci/internal/auth"
)

// sseSink writes server-sent events to one connection. Writes are serialized
// because the broker and the heartbeat publish from different goroutines.
type sseSink struct {
	mu sync.Mutex
	w  http.ResponseWriter
	fl http.Flusher
}

func newSSESink(w http.ResponseWriter) (*sseSink, error) {
	fl, ok := w.(http.Flusher)
	if !ok {
		return nil, errors.New("response writer does not support streaming")
	}
	return &sseSink{w: w, fl: fl}, nil
}

func (s *sseSink) Send(event string, data any) error {
	body, err := json.Marshal(data)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.w.Write([]byte("event: " + event + "\ndata: ")); err != nil {
		return err
	}
	if _, err := s.w.Write(body); err != nil {
		return err
	}
	if _, err := s.w.Write([]byte("\n\n")); err != nil {
		return err
	}
	s.fl.Flush()
	return nil
}

// handleStream streams the caller's own events.
func (a *API) handleStream(w http.ResponseWriter, r *http.Request) {
	p, err := a.verifiedPrincipal(r)
	if err != nil {
		respondError(w, err)
		return
	}
	a.serveStream(w, r, p)
}

// handleStreamAll streams organization-wide events. Branch only; for anyone
// else the role check inside the broker would hide events anyway, but the
// endpoint refuses outright to keep the surface explicit.
func (a *API) handleStreamAll(w http.ResponseWriter, r *http.Request) {
	p, err := a.verifiedPrincipal(r)
	if err != nil {
		respondError(w, err)
		return
	}
	if err := auth.RequireRole(p.Role, auth.RoleCabang); err != nil {
		respondError(w, err)
		return
	}
	a.serveStream(w, r, p)
}

func (a *API) serveStream(w http.ResponseWriter, r *http.Request, p auth.Principal) {
	sink, err := newSSESink(w)
	if err != nil {
		respondError(w, apperr.From(err))
		return
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	id := a.broker.Subscribe(p.UserID, p.Role, sink)
	defer a.broker.Unsubscribe(id)

	// Initial frame so the client knows the stream is live.
	if err := sink.Send("connected", map[string]string{"subscriptionId": id}); err != nil {
		return
	}

	<-r.Context().Done()
}
