package server

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/cchaithanya83/video-conferncing-platform/internal/meeting"
	"github.com/cchaithanya83/video-conferncing-platform/internal/signaling"
	"github.com/cchaithanya83/video-conferncing-platform/internal/transcribe"
)

// Configure the websocket upgrader
var upgrader = websocket.Upgrader{
	ReadBufferSize:  64 * 1024, // 64 KB
	WriteBufferSize: 64 * 1024, // 64 KB

	// We need to check the origin, but for development, we can allow all.
	// In production, you'd check r.Header.Get("Origin") against your frontend's domain
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// ServeWs returns an http.HandlerFunc that handles websocket requests.
// It takes the hub as a dependency.
func ServeWs(hub *signaling.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			slog.Error("failed to upgrade connection", "error", err)
			return
		}

		// The connection id is assigned here and bound to the channel for
		// its lifetime. It has no meaning across reconnects.
		client := &signaling.Client{
			Hub:  hub,
			Conn: conn,
			ID:   uuid.New().String(),
			Send: make(chan *signaling.Message, 256),
		}

		client.Hub.Register <- client

		// Start the client's read and write pumps in separate goroutines.
		// These methods handle the client's lifecycle.
		go client.WritePump()
		go client.ReadPump()
	}
}

// NewMux wires up every HTTP route: the websocket endpoint, health check,
// meeting metadata REST and the transcription proxy.
func NewMux(hub *signaling.Hub, store meeting.Store, recognizer transcribe.Recognizer) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("Signaling server is healthy."))
	})

	mux.HandleFunc("/ws", ServeWs(hub))

	if store != nil {
		mux.HandleFunc("GET /meetings/{id}", getMeeting(store))
		mux.HandleFunc("POST /meetings", createMeeting(store))
	}

	if recognizer != nil {
		mux.HandleFunc("POST /transcribe", transcribeAudio(recognizer))
	}

	return mux
}

func getMeeting(store meeting.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m, err := store.Get(r.Context(), r.PathValue("id"))
		if errors.Is(err, meeting.ErrNotFound) {
			writeError(w, http.StatusNotFound, "meeting not found")
			return
		}
		if err != nil {
			slog.Error("meeting lookup failed", "error", err)
			writeError(w, http.StatusInternalServerError, "lookup failed")
			return
		}
		writeJSON(w, http.StatusOK, m)
	}
}

func createMeeting(store meeting.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var m meeting.Meeting
		if err := json.NewDecoder(r.Body).Decode(&m); err != nil {
			writeError(w, http.StatusBadRequest, "invalid meeting body")
			return
		}
		if err := store.Create(r.Context(), &m); err != nil {
			slog.Error("meeting create failed", "error", err)
			writeError(w, http.StatusInternalServerError, "create failed")
			return
		}
		writeJSON(w, http.StatusCreated, m)
	}
}

func transcribeAudio(recognizer transcribe.Recognizer) http.HandlerFunc {
	type request struct {
		Audio string `json:"audio"`
	}
	type response struct {
		Transcription string `json:"transcription"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		var req request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid transcription body")
			return
		}
		audio, err := base64.StdEncoding.DecodeString(req.Audio)
		if err != nil {
			writeError(w, http.StatusBadRequest, "audio must be base64")
			return
		}

		text, err := recognizer.Recognize(r.Context(), audio)
		if err != nil {
			slog.Error("transcription failed", "error", err)
			writeError(w, http.StatusBadGateway, "transcription failed")
			return
		}
		writeJSON(w, http.StatusOK, response{Transcription: text})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
