package handler

import (
	"net/http"

	"github.com/pkordes/trucklog/internal/domain"
)

var eventKindLabels = map[domain.EventKind]string{
	domain.EventDeparture: "Departure",
	domain.EventBreak:     "Break",
	domain.EventLoading:   "Loading",
	domain.EventRefueling: "Refueling",
	domain.EventUnloading: "Unloading",
}

// ListEventKinds handles GET /event-kinds: every kind in display order with
// its label.
func (s *Server) ListEventKinds(w http.ResponseWriter, _ *http.Request) {
	out := make([]EventKindInfo, len(domain.EventKinds))
	for i, k := range domain.EventKinds {
		out[i] = EventKindInfo{Kind: k, Label: eventKindLabels[k]}
	}
	writeJSON(w, http.StatusOK, out)
}
