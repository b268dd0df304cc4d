package network

import (
	"encoding/json"
	"net/http"

	"tailscale.com/tsweb"

	"github.com/banshee-data/robot.frontend/internal/version"
)

// Status is a point-in-time snapshot of the supervisor.
type Status struct {
	State     string `json:"state"`
	SessionID string `json:"session_id,omitempty"`
	LocalAddr string `json:"local_addr,omitempty"`
	Family    string `json:"family"`
	Port      int    `json:"port"`
	Restarts  uint64 `json:"restarts"`
	Version   string `json:"version"`
}

// Status returns the current supervisor status.
func (s *Supervisor) Status() Status {
	st := Status{
		State:     s.State().String(),
		SessionID: s.SessionID(),
		Family:    s.cfg.Family.String(),
		Port:      s.cfg.Port,
		Restarts:  s.Restarts(),
		Version:   version.String(),
	}
	if addr := s.LocalAddr(); addr != nil {
		st.LocalAddr = addr.String()
	}
	return st
}

// AttachAdminRoutes attaches the listener status page to the /debug/ mux.
// These routes are accessible only over localhost/via Tailscale.
func (s *Supervisor) AttachAdminRoutes(mux *http.ServeMux) {
	debug := tsweb.Debugger(mux)
	debug.HandleFunc("listener", "UDP control listener state", s.handleStatus)
}

func (s *Supervisor) handleStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.Status()); err != nil {
		http.Error(w, "failed to encode status", http.StatusInternalServerError)
	}
}
