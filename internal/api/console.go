package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/nerrad567/stagelink-core/internal/bridges/mixer"
)

// consoleQueryTimeout bounds the /info and /status round-trips when
// building the console summary.
const consoleQueryTimeout = 3 * time.Second

// connectRequest is the request body for POST /console/connect.
// All fields are optional; unset fields fall back to the configured defaults.
type connectRequest struct {
	Host           string `json:"host,omitempty"`
	Port           int    `json:"port,omitempty"`
	DeviceType     string `json:"device_type,omitempty"`
	RemoteUpdates  *bool  `json:"remote_updates,omitempty"`
	TimeoutSeconds int    `json:"timeout_seconds,omitempty"`
}

// consoleResponse is the response body for GET /console.
type consoleResponse struct {
	State      string               `json:"state"`
	Connected  bool                 `json:"connected"`
	DeviceType string               `json:"device_type,omitempty"`
	Model      string               `json:"model,omitempty"`
	Channels   int                  `json:"channels,omitempty"`
	Buses      int                  `json:"buses,omitempty"`
	Info       *mixer.ConsoleInfo   `json:"info,omitempty"`
	Status     *mixer.ConsoleStatus `json:"status,omitempty"`
}

// handleGetConsole reports connection state, the active device profile, and
// (when connected) the console's live /info and /status replies.
func (s *Server) handleGetConsole(w http.ResponseWriter, r *http.Request) {
	resp := consoleResponse{
		State:     string(s.console.State()),
		Connected: s.console.IsConnected(),
	}

	if profile, err := s.console.Profile(); err == nil {
		resp.DeviceType = string(profile.Type)
		resp.Model = profile.Model
		resp.Channels = profile.ChannelCount
		resp.Buses = profile.BusCount
	}

	if resp.Connected {
		ctx, cancel := context.WithTimeout(r.Context(), consoleQueryTimeout)
		defer cancel()

		// Identity queries are best-effort; a silent console still gets a
		// state report.
		if info, err := s.console.GetInfo(ctx); err == nil {
			resp.Info = &info
		}
		if status, err := s.console.GetStatus(ctx); err == nil {
			resp.Status = &status
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleConnect establishes the console connection, applying any overrides
// from the request body on top of the configured defaults.
func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	var req connectRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeBadRequest(w, "invalid JSON body")
			return
		}
	}

	overrides := mixer.ConnectionConfig{
		Host:           req.Host,
		Port:           req.Port,
		DeviceType:     req.DeviceType,
		RequestTimeout: time.Duration(req.TimeoutSeconds) * time.Second,
	}
	if req.RemoteUpdates != nil {
		overrides.RemoteUpdates = *req.RemoteUpdates
	}

	if err := s.controller.ConnectConsole(r.Context(), overrides); err != nil {
		writeConsoleError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"state":     string(s.console.State()),
		"connected": s.console.IsConnected(),
	})
}

// handleDisconnect tears down the console connection.
func (s *Server) handleDisconnect(w http.ResponseWriter, _ *http.Request) {
	if err := s.controller.DisconnectConsole(); err != nil {
		writeConsoleError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"state":     string(s.console.State()),
		"connected": false,
	})
}
