package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"
)

type createRoomRequest struct {
	Code     string `json:"code,omitempty"`
	Nickname string `json:"nickname"`
}

type joinRoomRequest struct {
	Nickname string `json:"nickname"`
}

// joinResponse is returned by both create and join: the caller keeps the
// player ID locally and presents it on the websocket and snapshot reads.
type joinResponse struct {
	Player Player       `json:"player"`
	Room   RoomSnapshot `json:"room"`
}

type apiError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeJSON(cfg *Config, w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	securityHeaders(cfg, w)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeJSONError(cfg *Config, w http.ResponseWriter, status int, err error) {
	writeJSON(cfg, w, status, apiError{
		Error:   errorCode(err),
		Message: err.Error(),
	})
}

// serveCreateRoom creates a room and joins the creator as its host.
// A collision on a caller-supplied code is a 409 the caller must react to.
func serveCreateRoom(cfg *Config, rooms *RoomManager) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		var req createRoomRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSONError(cfg, w, http.StatusBadRequest, errors.New("malformed request body"))
			return
		}

		hub, err := rooms.Create(cfg, req.Code)
		if err != nil {
			writeJSONError(cfg, w, http.StatusConflict, err)
			return
		}

		player, err := hub.room.Join(req.Nickname, true)
		if err != nil {
			writeJSONError(cfg, w, http.StatusBadRequest, err)
			return
		}

		logf(cfg, "ROOMS: Player %q created %s", player.Nickname, hub.room.Code())

		writeJSON(cfg, w, http.StatusCreated, joinResponse{
			Player: player,
			Room:   hub.room.Snapshot(player.ID),
		})
	}
}

// serveJoinRoom adds a player to an existing room. An unknown code is a 404
// the caller must react to (recheck the typed code).
func serveJoinRoom(cfg *Config, rooms *RoomManager) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		hub, err := rooms.Get(ps.ByName("code"))
		if err != nil {
			writeJSONError(cfg, w, http.StatusNotFound, err)
			return
		}

		var req joinRoomRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSONError(cfg, w, http.StatusBadRequest, errors.New("malformed request body"))
			return
		}

		player, err := hub.room.Join(req.Nickname, false)
		if err != nil {
			writeJSONError(cfg, w, http.StatusBadRequest, err)
			return
		}

		hub.notifySync()

		logf(cfg, "ROOMS: Player %q joined %s", player.Nickname, hub.room.Code())

		writeJSON(cfg, w, http.StatusOK, joinResponse{
			Player: player,
			Room:   hub.room.Snapshot(player.ID),
		})
	}
}

// serveRoomSnapshot is the one read operation: the full current state of a
// room, scoped to the viewer passed in the query string.
func serveRoomSnapshot(cfg *Config, rooms *RoomManager) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		hub, err := rooms.Get(ps.ByName("code"))
		if err != nil {
			writeJSONError(cfg, w, http.StatusNotFound, err)
			return
		}

		writeJSON(cfg, w, http.StatusOK, hub.room.Snapshot(r.URL.Query().Get("player")))
	}
}

// serveQuestions lists the shared question pool so clients can render the
// current question ID in whichever locale the user picked.
func serveQuestions(cfg *Config, questions QuestionSupplier) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		w.Header().Set("Cache-Control", "public, max-age=3600")
		writeJSON(cfg, w, http.StatusOK, questions.ListAll())
	}
}

// serveRoomQR renders a PNG QR code pointing at the room page, so a phone
// can join by scanning instead of typing the code.
func serveRoomQR(cfg *Config, rooms *RoomManager) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		if _, err := rooms.Get(ps.ByName("code")); err != nil {
			http.Error(w, "room not found", http.StatusNotFound)
			return
		}

		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		}
		if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
			scheme = proto
		}

		path := strings.TrimSuffix(r.URL.Path, "/qr")
		url := scheme + "://" + r.Host + path

		const qrSize = 320
		png, err := qrcode.Encode(url, qrcode.Medium, qrSize)
		if err != nil {
			http.Error(w, "qr generation failed", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(png)
	}
}

// registerGame sets up everything under one room manager:
//   - /api/rooms                 → create a room (POST)
//   - /api/rooms/:code/join      → join a room (POST)
//   - /api/rooms/:code           → full snapshot (GET)
//   - /api/questions             → the shared question pool (GET)
//   - /room/:code                → HTML client
//   - /room/:code/ws             → snapshot stream + intents
//   - /room/:code/qr             → PNG QR code for the room URL
func registerGame(cfg *Config, questions QuestionSupplier, mux *httprouter.Router) *RoomManager {
	rooms := newRoomManager(cfg, questions)

	mux.POST(cfg.prefix+"/api/rooms", serveCreateRoom(cfg, rooms))
	mux.POST(cfg.prefix+"/api/rooms/:code/join", serveJoinRoom(cfg, rooms))
	mux.GET(cfg.prefix+"/api/rooms/:code", serveRoomSnapshot(cfg, rooms))
	mux.GET(cfg.prefix+"/api/questions", serveQuestions(cfg, questions))

	mux.GET(cfg.prefix+"/room/:code", getIndexHandler(cfg))
	mux.GET(cfg.prefix+"/room/:code/ws", serveWS(cfg, rooms))
	mux.GET(cfg.prefix+"/room/:code/qr", serveRoomQR(cfg, rooms))

	return rooms
}
