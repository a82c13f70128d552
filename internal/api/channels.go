package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/stagelink-core/internal/bridges/mixer"
)

// faderRequest is the request body for fader writes. Exactly one of db or
// fader must be set: db is a decibel level (-90 to +10), fader a raw
// position (0.0-1.0).
type faderRequest struct {
	DB    *float64 `json:"db,omitempty"`
	Fader *float64 `json:"fader,omitempty"`
}

// muteRequest is the request body for mute writes.
type muteRequest struct {
	Muted bool `json:"muted"`
}

// panRequest is the request body for pan writes. Pan accepts a percentage
// (-100 left to +100 right) or an LR notation string ("L50", "C", "R25").
type panRequest struct {
	Pan any `json:"pan"`
}

// configRequest is the request body for channel config writes. Both fields
// are optional; at least one must be set.
type configRequest struct {
	Name  *string `json:"name,omitempty"`
	Color *string `json:"color,omitempty"`
}

// urlIndex parses a numeric URL parameter (channel or bus index).
func urlIndex(r *http.Request, param string) (int, bool) {
	value, err := strconv.Atoi(chi.URLParam(r, param))
	if err != nil || value < 1 {
		return 0, false
	}
	return value, true
}

// handleGetChannelFader reads a channel fader as both dB and raw position.
func (s *Server) handleGetChannelFader(w http.ResponseWriter, r *http.Request) {
	channel, ok := urlIndex(r, "channel")
	if !ok {
		writeBadRequest(w, "channel must be a positive integer")
		return
	}

	db, err := s.client.GetChannelFaderDB(r.Context(), channel)
	if err != nil {
		writeConsoleError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"channel": channel,
		"db":      db,
		"fader":   mixer.DBToFader(db),
	})
}

// handleSetChannelFader writes a channel fader from a dB level or raw position.
func (s *Server) handleSetChannelFader(w http.ResponseWriter, r *http.Request) {
	channel, ok := urlIndex(r, "channel")
	if !ok {
		writeBadRequest(w, "channel must be a positive integer")
		return
	}

	var req faderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	var err error
	switch {
	case req.DB != nil:
		err = s.client.SetChannelFaderDB(channel, *req.DB)
	case req.Fader != nil:
		err = s.client.SetChannelParameter(channel, mixer.ParamFader, *req.Fader)
	default:
		writeBadRequest(w, "body must set db or fader")
		return
	}
	if err != nil {
		writeConsoleError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"channel": channel, "ok": true})
}

// handleSetChannelMute mutes or unmutes a channel.
func (s *Server) handleSetChannelMute(w http.ResponseWriter, r *http.Request) {
	channel, ok := urlIndex(r, "channel")
	if !ok {
		writeBadRequest(w, "channel must be a positive integer")
		return
	}

	var req muteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if err := s.client.SetChannelMute(channel, req.Muted); err != nil {
		writeConsoleError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"channel": channel, "muted": req.Muted})
}

// handleSetChannelPan positions a channel's pan.
func (s *Server) handleSetChannelPan(w http.ResponseWriter, r *http.Request) {
	channel, ok := urlIndex(r, "channel")
	if !ok {
		writeBadRequest(w, "channel must be a positive integer")
		return
	}

	var req panRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if err := s.client.SetChannelPan(channel, req.Pan); err != nil {
		writeConsoleError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"channel": channel, "ok": true})
}

// handleSetChannelConfig writes a channel's scribble-strip name and colour.
func (s *Server) handleSetChannelConfig(w http.ResponseWriter, r *http.Request) {
	channel, ok := urlIndex(r, "channel")
	if !ok {
		writeBadRequest(w, "channel must be a positive integer")
		return
	}

	var req configRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Name == nil && req.Color == nil {
		writeBadRequest(w, "body must set name or color")
		return
	}

	if req.Name != nil {
		if err := s.client.SetChannelName(channel, *req.Name); err != nil {
			writeConsoleError(w, err)
			return
		}
	}
	if req.Color != nil {
		if err := s.client.SetChannelColor(channel, *req.Color); err != nil {
			writeConsoleError(w, err)
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{"channel": channel, "ok": true})
}

// handleGetChannelName reads a channel's scribble-strip name.
func (s *Server) handleGetChannelName(w http.ResponseWriter, r *http.Request) {
	channel, ok := urlIndex(r, "channel")
	if !ok {
		writeBadRequest(w, "channel must be a positive integer")
		return
	}

	name, err := s.client.GetChannelName(r.Context(), channel)
	if err != nil {
		writeConsoleError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"channel": channel, "name": name})
}

// handleGetBusFader reads a bus fader as both dB and raw position.
func (s *Server) handleGetBusFader(w http.ResponseWriter, r *http.Request) {
	bus, ok := urlIndex(r, "bus")
	if !ok {
		writeBadRequest(w, "bus must be a positive integer")
		return
	}

	db, err := s.client.GetBusFaderDB(r.Context(), bus)
	if err != nil {
		writeConsoleError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"bus":   bus,
		"db":    db,
		"fader": mixer.DBToFader(db),
	})
}

// handleSetBusFader writes a bus fader from a dB level or raw position.
func (s *Server) handleSetBusFader(w http.ResponseWriter, r *http.Request) {
	bus, ok := urlIndex(r, "bus")
	if !ok {
		writeBadRequest(w, "bus must be a positive integer")
		return
	}

	var req faderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	var err error
	switch {
	case req.DB != nil:
		err = s.client.SetBusFaderDB(bus, *req.DB)
	case req.Fader != nil:
		err = s.client.SetBusParameter(bus, mixer.ParamFader, *req.Fader)
	default:
		writeBadRequest(w, "body must set db or fader")
		return
	}
	if err != nil {
		writeConsoleError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"bus": bus, "ok": true})
}

// handleGetMainFader reads the main fader as both dB and raw position.
func (s *Server) handleGetMainFader(w http.ResponseWriter, r *http.Request) {
	db, err := s.client.GetMainFaderDB(r.Context())
	if err != nil {
		writeConsoleError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"db":    db,
		"fader": mixer.DBToFader(db),
	})
}

// handleSetMainFader writes the main fader from a dB level or raw position.
func (s *Server) handleSetMainFader(w http.ResponseWriter, r *http.Request) {
	var req faderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	var err error
	switch {
	case req.DB != nil:
		err = s.client.SetMainFaderDB(*req.DB)
	case req.Fader != nil:
		err = s.client.SetMainParameter(mixer.ParamFader, *req.Fader)
	default:
		writeBadRequest(w, "body must set db or fader")
		return
	}
	if err != nil {
		writeConsoleError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}
