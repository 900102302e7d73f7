package main

import (
	"crypto/rand"
	"strings"
	"sync"
	"time"
)

const roomCodeLength = 4

// RoomManager holds every live room keyed by code. Rooms are fully
// independent of each other; the manager lock only guards the map itself.
type RoomManager struct {
	mu        sync.Mutex
	hubs      map[string]*Hub
	questions QuestionSupplier

	idleTimeout time.Duration
}

func newRoomManager(cfg *Config, questions QuestionSupplier) *RoomManager {
	rm := &RoomManager{
		hubs:        make(map[string]*Hub),
		questions:   questions,
		idleTimeout: cfg.roomTimeout,
	}
	if rm.idleTimeout > 0 {
		go rm.reaperLoop()
	}
	return rm
}

// normalizeCode uppercases a room code so lookups are case-insensitive.
func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Create registers a new room. An empty code asks the server to generate
// one; a caller-supplied code that collides fails with ErrRoomExists so the
// caller can pick another.
func (rm *RoomManager) Create(cfg *Config, code string) (*Hub, error) {
	code = normalizeCode(code)

	rm.mu.Lock()
	defer rm.mu.Unlock()

	if code == "" {
		code = rm.newRoomCodeLocked()
	} else if _, exists := rm.hubs[code]; exists {
		return nil, ErrRoomExists
	}

	hub := newHub(newRoom(code, rm.questions))
	rm.hubs[code] = hub
	go hub.run(cfg)

	logf(cfg, "ROOMS: Created room %s", code)

	return hub, nil
}

// Get looks up a live room by code.
func (rm *RoomManager) Get(code string) (*Hub, error) {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	hub, ok := rm.hubs[normalizeCode(code)]
	if !ok {
		return nil, ErrRoomNotFound
	}
	return hub, nil
}

const roomCodeLetters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// newRoomCodeLocked generates a short crypto-random code, retrying on the
// (unlikely) collision with a live room. Callers hold rm.mu.
func (rm *RoomManager) newRoomCodeLocked() string {
	for {
		buf := make([]byte, roomCodeLength)
		if _, err := rand.Read(buf); err != nil {
			panic("crypto/rand failure: " + err.Error())
		}
		out := make([]byte, roomCodeLength)
		for i := range out {
			out[i] = roomCodeLetters[int(buf[i])%len(roomCodeLetters)]
		}
		code := string(out)

		if _, exists := rm.hubs[code]; !exists {
			return code
		}
	}
}

// reaperLoop periodically drops rooms that have been idle longer than the
// configured timeout, disconnecting any remaining subscribers.
func (rm *RoomManager) reaperLoop() {
	ticker := time.NewTicker(rm.idleTimeout / 2)
	for range ticker.C {
		cutoff := time.Now().Add(-rm.idleTimeout)

		rm.mu.Lock()
		for code, hub := range rm.hubs {
			if hub.room.LastActive().Before(cutoff) {
				delete(rm.hubs, code)
				go hub.closeAll()
			}
		}
		rm.mu.Unlock()
	}
}
