// Quendira room session
//
// One Room binds a roster of players, a pool of candidate names, and a single
// game state under a short shareable code. During the lobby phase everyone
// submits names; when the host starts the game one player is drawn at random
// as the MJ ("maître du jeu"), secretly picks one name as the target, and then
// answers an endless stream of yes/no questions while the other players
// eliminate names one by one. The party wins if the secret name is the last
// one standing, and loses the moment someone eliminates it.
//
// Every mutation below is a single critical section under the room mutex:
// guards are checked and state is written without ever releasing the lock in
// between, so concurrent intents against the same room serialize cleanly.
// Clients never compute state themselves; they submit intents and render
// whatever snapshot comes back.

package main

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RolePlayer Role = "player"
	RoleMJ     Role = "mj"
)

type Status string

const (
	StatusLobby          Status = "lobby"
	StatusChoosingSecret Status = "choosing_secret"
	StatusPlaying        Status = "playing"
	StatusEnd            Status = "end"
)

type Answer string

const (
	AnswerOui Answer = "OUI"
	AnswerNon Answer = "NON"
)

type Result string

const (
	ResultWin  Result = "win"
	ResultLose Result = "lose"
)

// minNamesToStart is the smallest name pool worth playing with.
const minNamesToStart = 4

type Player struct {
	ID       string `json:"id"`
	Nickname string `json:"nickname"`
	Role     Role   `json:"role"`
	IsHost   bool   `json:"is_host"`
}

type NameEntry struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Eliminated bool   `json:"is_eliminated"`
	AddedBy    string `json:"added_by"`
}

// QA is one answered question. The short json keys match the history format
// clients already understand.
type QA struct {
	QuestionID string `json:"q"`
	Answer     Answer `json:"a"`
}

// GameState is the per-room phase aggregate. Status is a closed enumeration
// and fields irrelevant to the current phase stay zero and are omitted from
// snapshots; the mutators below are the only writers.
type GameState struct {
	Status            Status `json:"status"`
	MJID              string `json:"mj_id,omitempty"`
	SecretNameID      string `json:"secret_name_id,omitempty"`
	CurrentQuestionID string `json:"current_question_id,omitempty"`
	History           []QA   `json:"history,omitempty"`
	Result            Result `json:"result,omitempty"`
}

// RoomSnapshot is the full authoritative view published to subscribers after
// every committed mutation. Versions are strictly increasing per room, so a
// client can discard anything older than what it already rendered.
type RoomSnapshot struct {
	Code    string      `json:"code"`
	Players []Player    `json:"players"`
	Names   []NameEntry `json:"names"`
	State   GameState   `json:"game_state"`
	Version uint64      `json:"version"`
}

type Room struct {
	code      string
	questions QuestionSupplier

	mu         sync.Mutex
	players    []Player
	names      []NameEntry
	state      GameState
	version    uint64
	createdAt  time.Time
	lastActive time.Time
}

func newRoom(code string, questions QuestionSupplier) *Room {
	now := time.Now()
	return &Room{
		code:       code,
		questions:  questions,
		state:      GameState{Status: StatusLobby},
		createdAt:  now,
		lastActive: now,
	}
}

func (r *Room) Code() string {
	return r.code
}

// LastActive reports when the room last committed a mutation, for the reaper.
func (r *Room) LastActive() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastActive
}

// commitLocked marks a successful mutation. Callers hold r.mu.
func (r *Room) commitLocked() {
	r.version++
	r.lastActive = time.Now()
}

func (r *Room) playerLocked(id string) *Player {
	for i := range r.players {
		if r.players[i].ID == id {
			return &r.players[i]
		}
	}
	return nil
}

func (r *Room) nameLocked(id string) *NameEntry {
	for i := range r.names {
		if r.names[i].ID == id {
			return &r.names[i]
		}
	}
	return nil
}

// Join adds a player to the roster. Joining is permitted in any phase; a late
// joiner simply becomes a regular player. Players are never removed
// in-session, so the returned ID stays valid for the room's lifetime.
func (r *Room) Join(nickname string, host bool) (Player, error) {
	nickname = strings.TrimSpace(nickname)
	if nickname == "" {
		return Player{}, ErrPreconditionFailed
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	p := Player{
		ID:       uuid.NewString(),
		Nickname: nickname,
		Role:     RolePlayer,
		IsHost:   host,
	}
	r.players = append(r.players, p)
	r.commitLocked()

	return p, nil
}

// SubmitName appends a candidate name during the lobby phase. Duplicate
// texts are allowed.
func (r *Room) SubmitName(requesterID, text string) (NameEntry, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return NameEntry{}, ErrPreconditionFailed
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state.Status != StatusLobby {
		return NameEntry{}, ErrInvalidTransition
	}
	if r.playerLocked(requesterID) == nil {
		return NameEntry{}, ErrForbidden
	}

	entry := NameEntry{
		ID:      uuid.NewString(),
		Name:    text,
		AddedBy: requesterID,
	}
	r.names = append(r.names, entry)
	r.commitLocked()

	return entry, nil
}

// StartGame moves the room from lobby to choosing_secret: one player is drawn
// uniformly at random as the MJ, everyone else becomes a regular player.
// Only the host may start, and only with at least minNamesToStart names.
func (r *Room) StartGame(requesterID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	requester := r.playerLocked(requesterID)
	if requester == nil || !requester.IsHost {
		return ErrForbidden
	}
	if r.state.Status != StatusLobby {
		return ErrInvalidTransition
	}
	if len(r.names) < minNamesToStart {
		return ErrPreconditionFailed
	}

	mj := &r.players[randomIndex(len(r.players))]
	for i := range r.players {
		r.players[i].Role = RolePlayer
	}
	mj.Role = RoleMJ

	r.state.Status = StatusChoosingSecret
	r.state.MJID = mj.ID
	r.commitLocked()

	return nil
}

// ChooseSecret is the MJ's one-time pick of the hidden target. It also draws
// the first question and opens the playing phase.
func (r *Room) ChooseSecret(requesterID, nameID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state.Status != StatusChoosingSecret {
		return ErrInvalidTransition
	}
	if requesterID != r.state.MJID {
		return ErrForbidden
	}

	entry := r.nameLocked(nameID)
	if entry == nil {
		return ErrNameNotFound
	}
	if entry.Eliminated {
		return ErrPreconditionFailed
	}

	question, err := r.drawQuestion()
	if err != nil {
		return err
	}

	r.state.Status = StatusPlaying
	r.state.SecretNameID = entry.ID
	r.state.CurrentQuestionID = question.ID
	r.state.History = []QA{}
	r.commitLocked()

	return nil
}

// AnswerQuestion records the MJ's answer to the current question and draws
// the next one. Draws are independent, so a question may come up again.
func (r *Room) AnswerQuestion(requesterID string, answer Answer) error {
	if answer != AnswerOui && answer != AnswerNon {
		return ErrPreconditionFailed
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state.Status != StatusPlaying {
		return ErrInvalidTransition
	}
	if requesterID != r.state.MJID {
		return ErrForbidden
	}

	question, err := r.drawQuestion()
	if err != nil {
		return err
	}

	r.state.History = append(r.state.History, QA{
		QuestionID: r.state.CurrentQuestionID,
		Answer:     answer,
	})
	r.state.CurrentQuestionID = question.ID
	r.commitLocked()

	return nil
}

// Eliminate strikes a name from the pool and evaluates the win/lose rules:
// eliminating the secret ends the round immediately as a loss (the entry is
// left unmarked, the round is over anyway); otherwise the entry is marked,
// and if the secret is the sole survivor the party wins. Eliminating an
// already-eliminated entry is a no-op.
func (r *Room) Eliminate(requesterID, nameID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state.Status != StatusPlaying {
		return ErrInvalidTransition
	}

	requester := r.playerLocked(requesterID)
	if requester == nil || requester.Role != RolePlayer {
		return ErrForbidden
	}

	entry := r.nameLocked(nameID)
	if entry == nil {
		return ErrNameNotFound
	}
	if entry.Eliminated {
		return nil
	}

	if entry.ID == r.state.SecretNameID {
		r.state.Status = StatusEnd
		r.state.Result = ResultLose
		r.commitLocked()
		return nil
	}

	entry.Eliminated = true

	remaining := 0
	lastStanding := ""
	for i := range r.names {
		if r.names[i].Eliminated {
			continue
		}
		remaining++
		lastStanding = r.names[i].ID
	}
	if remaining == 1 && lastStanding == r.state.SecretNameID {
		r.state.Status = StatusEnd
		r.state.Result = ResultWin
	}
	r.commitLocked()

	return nil
}

// drawQuestion picks one question uniformly at random from the supplier's
// full list. Callers hold r.mu.
func (r *Room) drawQuestion() (Question, error) {
	pool := r.questions.ListAll()
	if len(pool) == 0 {
		return Question{}, ErrPreconditionFailed
	}
	return pool[randomIndex(len(pool))], nil
}

// Snapshot returns a deep copy of the room for the given viewer. The secret
// is scoped to the MJ while the round is live and revealed to everyone at
// the end, so regular players can't peek at it through the wire format.
func (r *Room) Snapshot(viewerID string) RoomSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	snap := RoomSnapshot{
		Code:    r.code,
		Players: make([]Player, len(r.players)),
		Names:   make([]NameEntry, len(r.names)),
		State:   r.state,
		Version: r.version,
	}
	copy(snap.Players, r.players)
	copy(snap.Names, r.names)

	if len(r.state.History) > 0 {
		snap.State.History = make([]QA, len(r.state.History))
		copy(snap.State.History, r.state.History)
	}

	if snap.State.Status != StatusEnd && viewerID != snap.State.MJID {
		snap.State.SecretNameID = ""
	}

	return snap
}
