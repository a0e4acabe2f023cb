package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/meetsight/attendance/internal/attendance"
	"github.com/meetsight/attendance/internal/bot"
	"github.com/meetsight/attendance/internal/database"
)

// MeetingHandler handles meeting session endpoints.
type MeetingHandler struct {
	sessions   database.SessionStore
	processor  *attendance.Processor
	dispatcher bot.Dispatcher
}

// NewMeetingHandler creates a new meeting handler.
func NewMeetingHandler(sessions database.SessionStore, processor *attendance.Processor, dispatcher bot.Dispatcher) *MeetingHandler {
	return &MeetingHandler{
		sessions:   sessions,
		processor:  processor,
		dispatcher: dispatcher,
	}
}

// SessionResponse is the JSON shape of a tracked meeting session.
type SessionResponse struct {
	ID         int64      `json:"id"`
	MeetingURL string     `json:"meeting_url"`
	BotID      string     `json:"bot_id,omitempty"`
	StartedAt  time.Time  `json:"started_at"`
	EndedAt    *time.Time `json:"ended_at,omitempty"`
	Closed     bool       `json:"closed"`
}

func toSessionResponse(s *database.Session) SessionResponse {
	return SessionResponse{
		ID:         s.ID,
		MeetingURL: s.MeetingURL,
		BotID:      s.BotID,
		StartedAt:  s.StartedAt,
		EndedAt:    s.EndedAt,
		Closed:     s.Closed(),
	}
}

// sessionIDParam parses the {id} URL parameter.
func sessionIDParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

// Start dispatches a bot to the meeting and opens a tracking session.
func (h *MeetingHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req struct {
		MeetingURL string `json:"meeting_url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	if req.MeetingURL == "" {
		respondError(w, http.StatusBadRequest, "meeting_url is required")
		return
	}

	var botID string
	if h.dispatcher != nil {
		info, err := h.dispatcher.Dispatch(r.Context(), req.MeetingURL)
		if err != nil {
			log.Printf("bot dispatch failed for %s: %v", sanitizeForLog(req.MeetingURL), err)
			respondError(w, http.StatusBadGateway, "failed to dispatch meeting bot")
			return
		}
		botID = info.ID
	}

	session := &database.Session{
		MeetingURL: req.MeetingURL,
		BotID:      botID,
		StartedAt:  time.Now().UTC(),
	}
	if err := h.sessions.Create(r.Context(), session); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to create session")
		return
	}

	respondJSON(w, http.StatusCreated, toSessionResponse(session))
}

// End closes a tracking session. Ending an already closed session is a no-op.
func (h *MeetingHandler) End(w http.ResponseWriter, r *http.Request) {
	id, err := sessionIDParam(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid session id")
		return
	}

	if err := h.sessions.Close(r.Context(), id, time.Now().UTC()); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			respondError(w, http.StatusNotFound, "session not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to end session")
		return
	}

	session, err := h.sessions.Get(r.Context(), id)
	if err != nil || session == nil {
		respondError(w, http.StatusInternalServerError, "failed to load session")
		return
	}
	respondJSON(w, http.StatusOK, toSessionResponse(session))
}

// List returns tracked sessions, newest first.
func (h *MeetingHandler) List(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.sessions.List(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list sessions")
		return
	}

	out := make([]SessionResponse, 0, len(sessions))
	for i := range sessions {
		out = append(out, toSessionResponse(&sessions[i]))
	}
	respondJSON(w, http.StatusOK, out)
}

// Frame accepts one video frame for a session and records pings for every
// matched face. The frame can arrive as a multipart "frame" field or as a
// raw image body.
func (h *MeetingHandler) Frame(w http.ResponseWriter, r *http.Request) {
	id, err := sessionIDParam(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid session id")
		return
	}

	image, err := readFrame(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	results, err := h.processor.ProcessFrame(r.Context(), image, id)
	if err != nil {
		switch {
		case errors.Is(err, database.ErrNotFound):
			respondError(w, http.StatusNotFound, "session not found")
		case errors.Is(err, attendance.ErrSessionClosed):
			respondError(w, http.StatusConflict, err.Error())
		default:
			log.Printf("frame processing failed for session %d: %v", id, err)
			respondError(w, http.StatusInternalServerError, "failed to process frame")
		}
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"session_id": id,
		"matches":    results,
	})
}

// BotStatus reports on the bot assigned to a session.
func (h *MeetingHandler) BotStatus(w http.ResponseWriter, r *http.Request) {
	id, err := sessionIDParam(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid session id")
		return
	}

	session, err := h.sessions.Get(r.Context(), id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to load session")
		return
	}
	if session == nil {
		respondError(w, http.StatusNotFound, "session not found")
		return
	}
	if session.BotID == "" {
		respondError(w, http.StatusNotFound, "no bot assigned to this session")
		return
	}
	if h.dispatcher == nil {
		respondError(w, http.StatusServiceUnavailable, "no bot dispatcher configured")
		return
	}

	info, err := h.dispatcher.Status(r.Context(), session.BotID)
	if err != nil {
		respondError(w, http.StatusBadGateway, "failed to check bot status")
		return
	}
	respondJSON(w, http.StatusOK, info)
}

// readFrame extracts the frame bytes from a multipart form or a raw body.
func readFrame(r *http.Request) ([]byte, error) {
	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "multipart/form-data") {
		if err := r.ParseMultipartForm(maxUploadSize); err != nil {
			return nil, errors.New("failed to parse multipart form")
		}
		file, _, err := r.FormFile("frame")
		if err != nil {
			return nil, errors.New("frame is required")
		}
		defer file.Close()
		image, err := io.ReadAll(io.LimitReader(file, maxUploadSize))
		if err != nil {
			return nil, errors.New("failed to read frame")
		}
		if len(image) == 0 {
			return nil, errors.New("frame is empty")
		}
		return image, nil
	}

	image, err := io.ReadAll(io.LimitReader(r.Body, maxUploadSize))
	if err != nil {
		return nil, errors.New("failed to read frame")
	}
	if len(image) == 0 {
		return nil, errors.New("frame is empty")
	}
	return image, nil
}
