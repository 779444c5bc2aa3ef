package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/kelechi-nwosu/docpipeline/internal/broadcast"
	"github.com/kelechi-nwosu/docpipeline/internal/common"
)

const sseKeepAlive = 15 * time.Second

// handleDocumentStream streams updates for one document as server-sent
// events. The first event is a snapshot of current state so late subscribers
// do not start blind.
func (s *Server) handleDocumentStream(w http.ResponseWriter, r *http.Request) {
	id, r, err := docIDFromRequest(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	snap, err := s.caster.Snapshot(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeError(w, r, common.InternalError("streaming unsupported by connection"))
		return
	}

	sub := s.caster.Subscribe(id)
	defer s.caster.Unsubscribe(sub)

	startSSE(w)
	writeSSE(w, "snapshot", snap)
	flusher.Flush()

	s.streamLoop(w, r, flusher, sub)
}

// handleGlobalStream streams every document's updates on one connection.
func (s *Server) handleGlobalStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeError(w, r, common.InternalError("streaming unsupported by connection"))
		return
	}

	sub := s.caster.SubscribeAll()
	defer s.caster.Unsubscribe(sub)

	startSSE(w)
	flusher.Flush()

	s.streamLoop(w, r, flusher, sub)
}

func (s *Server) streamLoop(w http.ResponseWriter, r *http.Request, flusher http.Flusher, sub *broadcast.Subscription) {
	keepAlive := time.NewTicker(sseKeepAlive)
	defer keepAlive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case u := <-sub.C:
			writeSSE(w, "update", u)
			flusher.Flush()
			if u.Status != nil && u.Status.IsTerminal() && sub.Scoped() {
				return
			}
		case <-keepAlive.C:
			fmt.Fprint(w, ": keep-alive\n\n")
			flusher.Flush()
		}
	}
}

func startSSE(w http.ResponseWriter) {
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
}

func writeSSE(w http.ResponseWriter, event string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
}
