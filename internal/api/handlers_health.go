package api

import "net/http"

type healthResponse struct {
	Status  string `json:"status"`
	Timers  int    `json:"timers"`
	Running int    `json:"running"`
}

type HealthHandler struct {
	timers Timers
}

func NewHealthHandler(timers Timers) *HealthHandler {
	return &HealthHandler{timers: timers}
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	all := h.timers.Timers()
	resp := healthResponse{Status: "ok", Timers: len(all)}
	for _, t := range all {
		if t.Running {
			resp.Running++
		}
	}
	writeJSON(w, http.StatusOK, resp)
}
