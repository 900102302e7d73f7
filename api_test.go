package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
)

func testServer(t *testing.T) *httptest.Server {
	t.Helper()

	cfg := testConfig()
	mux := httprouter.New()
	registerGame(cfg, testSupplier(), mux)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, url string, body any) (*http.Response, []byte) {
	t.Helper()

	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	res, err := http.Post(url, "application/json", bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	defer res.Body.Close()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(res.Body); err != nil {
		t.Fatal(err)
	}
	return res, buf.Bytes()
}

func createTestRoom(t *testing.T, srv *httptest.Server, code, nickname string) joinResponse {
	t.Helper()

	res, body := postJSON(t, srv.URL+"/api/rooms", createRoomRequest{Code: code, Nickname: nickname})
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create room status = %d, body %s", res.StatusCode, body)
	}

	var resp joinResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		t.Fatal(err)
	}
	return resp
}

func TestCreateRoomEndpoint(t *testing.T) {
	srv := testServer(t)

	resp := createTestRoom(t, srv, "", "kevin")

	if len(resp.Room.Code) != roomCodeLength {
		t.Fatalf("room code = %q, want %d characters", resp.Room.Code, roomCodeLength)
	}
	if !resp.Player.IsHost {
		t.Fatal("creator is not host")
	}
	if resp.Player.Role != RolePlayer {
		t.Fatalf("creator role = %q, want %q", resp.Player.Role, RolePlayer)
	}
	if resp.Room.State.Status != StatusLobby {
		t.Fatalf("new room status = %q, want %q", resp.Room.State.Status, StatusLobby)
	}
}

func TestCreateRoomCollision(t *testing.T) {
	srv := testServer(t)

	createTestRoom(t, srv, "QDT1", "kevin")

	res, body := postJSON(t, srv.URL+"/api/rooms", createRoomRequest{Code: "qdt1", Nickname: "marie"})
	if res.StatusCode != http.StatusConflict {
		t.Fatalf("colliding create status = %d, want 409", res.StatusCode)
	}

	var apiErr apiError
	if err := json.Unmarshal(body, &apiErr); err != nil {
		t.Fatal(err)
	}
	if apiErr.Error != "already_exists" {
		t.Fatalf("error code = %q, want %q", apiErr.Error, "already_exists")
	}
}

func TestCreateRoomRejectsBlankNickname(t *testing.T) {
	srv := testServer(t)

	res, _ := postJSON(t, srv.URL+"/api/rooms", createRoomRequest{Nickname: "  "})
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("blank nickname status = %d, want 400", res.StatusCode)
	}
}

func TestJoinRoomEndpoint(t *testing.T) {
	srv := testServer(t)

	created := createTestRoom(t, srv, "", "kevin")

	res, body := postJSON(t, srv.URL+"/api/rooms/"+created.Room.Code+"/join", joinRoomRequest{Nickname: "marie"})
	if res.StatusCode != http.StatusOK {
		t.Fatalf("join status = %d, body %s", res.StatusCode, body)
	}

	var resp joinResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Player.IsHost {
		t.Fatal("joiner must not be host")
	}
	if len(resp.Room.Players) != 2 {
		t.Fatalf("roster size = %d, want 2", len(resp.Room.Players))
	}
}

func TestJoinUnknownRoom(t *testing.T) {
	srv := testServer(t)

	res, body := postJSON(t, srv.URL+"/api/rooms/ZZZZ/join", joinRoomRequest{Nickname: "marie"})
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("join unknown room status = %d, want 404", res.StatusCode)
	}

	var apiErr apiError
	if err := json.Unmarshal(body, &apiErr); err != nil {
		t.Fatal(err)
	}
	if apiErr.Error != "not_found" {
		t.Fatalf("error code = %q, want %q", apiErr.Error, "not_found")
	}
}

func TestSnapshotEndpoint(t *testing.T) {
	srv := testServer(t)

	created := createTestRoom(t, srv, "", "kevin")

	res, err := http.Get(srv.URL + "/api/rooms/" + strings.ToLower(created.Room.Code))
	if err != nil {
		t.Fatal(err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("snapshot status = %d, want 200", res.StatusCode)
	}

	var snap RoomSnapshot
	if err := json.NewDecoder(res.Body).Decode(&snap); err != nil {
		t.Fatal(err)
	}
	if len(snap.Players) != 1 || snap.Players[0].Nickname != "kevin" {
		t.Fatalf("snapshot players = %+v", snap.Players)
	}
}

func TestQuestionsEndpoint(t *testing.T) {
	srv := testServer(t)

	res, err := http.Get(srv.URL + "/api/questions")
	if err != nil {
		t.Fatal(err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("questions status = %d, want 200", res.StatusCode)
	}

	var questions []Question
	if err := json.NewDecoder(res.Body).Decode(&questions); err != nil {
		t.Fatal(err)
	}
	if len(questions) != len(testSupplier().ListAll()) {
		t.Fatalf("question count = %d, want %d", len(questions), len(testSupplier().ListAll()))
	}
}

func TestRoomQREndpoint(t *testing.T) {
	srv := testServer(t)

	created := createTestRoom(t, srv, "", "kevin")

	res, err := http.Get(srv.URL + "/room/" + created.Room.Code + "/qr")
	if err != nil {
		t.Fatal(err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("qr status = %d, want 200", res.StatusCode)
	}
	if got := res.Header.Get("Content-Type"); got != "image/png" {
		t.Fatalf("qr content type = %q, want image/png", got)
	}

	res2, err := http.Get(srv.URL + "/room/ZZZZ/qr")
	if err != nil {
		t.Fatal(err)
	}
	defer res2.Body.Close()
	if res2.StatusCode != http.StatusNotFound {
		t.Fatalf("qr for unknown room status = %d, want 404", res2.StatusCode)
	}
}

func TestWebSocketGameFlow(t *testing.T) {
	srv := testServer(t)

	created := createTestRoom(t, srv, "", "kevin")
	code := created.Room.Code

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/room/" + code + "/ws?player=" + created.Player.ID
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", wsURL, err)
	}
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	readSnapshot := func() RoomSnapshot {
		t.Helper()
		var msg SnapshotMessage
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("ReadJSON: %v", err)
		}
		if msg.Type != "snapshot" {
			t.Fatalf("message type = %q, want snapshot", msg.Type)
		}
		return msg.Room
	}

	if snap := readSnapshot(); snap.Code != code {
		t.Fatalf("initial snapshot code = %q, want %q", snap.Code, code)
	}

	for i := 0; i < minNamesToStart; i++ {
		if err := conn.WriteJSON(IntentMessage{Type: "submit_name", Text: fmt.Sprintf("name%d", i)}); err != nil {
			t.Fatalf("WriteJSON: %v", err)
		}
		if snap := readSnapshot(); len(snap.Names) != i+1 {
			t.Fatalf("names after submit #%d = %d", i, len(snap.Names))
		}
	}

	if err := conn.WriteJSON(IntentMessage{Type: "start_game"}); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}

	snap := readSnapshot()
	if snap.State.Status != StatusChoosingSecret {
		t.Fatalf("status after start = %q, want %q", snap.State.Status, StatusChoosingSecret)
	}
	if snap.State.MJID != created.Player.ID {
		t.Fatalf("single-player room picked MJ %q, want %q", snap.State.MJID, created.Player.ID)
	}
}

func TestWebSocketUnknownRoom(t *testing.T) {
	srv := testServer(t)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/room/ZZZZ/ws"
	_, res, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err == nil {
		t.Fatal("dial to unknown room succeeded")
	}
	if res == nil || res.StatusCode != http.StatusNotFound {
		t.Fatalf("handshake response = %+v, want 404", res)
	}
}
