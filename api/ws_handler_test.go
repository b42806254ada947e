package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/memevote/backend/events"
	"github.com/memevote/backend/services"
)

// wsFrame holds either a control reply or an event message.
type wsFrame struct {
	Topic   string          `json:"topic"`
	Type    string          `json:"type"`
	Error   string          `json:"error"`
	Payload json.RawMessage `json:"payload"`
}

func dialWS(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, action, topic string) {
	t.Helper()
	if err := conn.WriteJSON(ClientFrame{Action: action, Topic: topic}); err != nil {
		t.Fatal(err)
	}
}

func readFrame(t *testing.T, conn *websocket.Conn) wsFrame {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var frame wsFrame
	if err := conn.ReadJSON(&frame); err != nil {
		t.Fatalf("read: %v", err)
	}
	return frame
}

func TestWebSocketDeliversEvents(t *testing.T) {
	a := newTestAPI(t, nil)
	server := httptest.NewServer(a.handler)
	defer server.Close()

	token := a.register(t, "alice")
	conn := dialWS(t, server)

	send(t, conn, "subscribe", events.MemesTopic)
	if frame := readFrame(t, conn); frame.Type != frameSubscribed || frame.Topic != events.MemesTopic {
		t.Fatalf("subscribe reply = %+v", frame)
	}

	meme := a.createMeme(t, token, "live cat")

	frame := readFrame(t, conn)
	if frame.Type != string(events.NewMeme) || frame.Topic != events.MemesTopic {
		t.Fatalf("event = %+v", frame)
	}
	var payload services.MemeView
	if err := json.Unmarshal(frame.Payload, &payload); err != nil {
		t.Fatal(err)
	}
	if payload.ID != meme.ID || payload.Title != "live cat" {
		t.Errorf("payload = %+v", payload)
	}

	// votes go to the meme's own topic
	votes := events.VotesTopic(meme.ID)
	send(t, conn, "subscribe", votes)
	readFrame(t, conn)
	a.do(t, http.MethodPost, fmt.Sprintf("/api/memes/%d/votes", meme.ID), token, nil, "")

	frame = readFrame(t, conn)
	if frame.Type != string(events.VoteUpdated) || frame.Topic != votes {
		t.Fatalf("vote event = %+v", frame)
	}
	var update services.VoteUpdate
	json.Unmarshal(frame.Payload, &update)
	if update.VoteCount != 1 || !update.UserVoted || update.MemeID != meme.ID {
		t.Errorf("vote update = %+v", update)
	}
}

func TestWebSocketRejectsUnknownTopics(t *testing.T) {
	a := newTestAPI(t, nil)
	server := httptest.NewServer(a.handler)
	defer server.Close()
	conn := dialWS(t, server)

	for _, topic := range []string{"/topic/admin", "/topic/memes/0/votes", "/topic/memes/x/comments"} {
		send(t, conn, "subscribe", topic)
		if frame := readFrame(t, conn); frame.Type != frameError || frame.Topic != topic {
			t.Errorf("%s: %+v", topic, frame)
		}
	}

	send(t, conn, "dance", events.MemesTopic)
	if frame := readFrame(t, conn); frame.Type != frameError {
		t.Errorf("unknown action: %+v", frame)
	}
	if n := a.hub.SubscriberCount(events.MemesTopic); n != 0 {
		t.Errorf("%d subscribers after rejected frames", n)
	}
}

func TestWebSocketUnsubscribeAndClose(t *testing.T) {
	a := newTestAPI(t, nil)
	server := httptest.NewServer(a.handler)
	defer server.Close()
	conn := dialWS(t, server)

	send(t, conn, "subscribe", events.MemesTopic)
	readFrame(t, conn)
	if n := a.hub.SubscriberCount(events.MemesTopic); n != 1 {
		t.Fatalf("subscribers = %d", n)
	}

	send(t, conn, "unsubscribe", events.MemesTopic)
	if frame := readFrame(t, conn); frame.Type != frameUnsubscribed {
		t.Errorf("unsubscribe reply = %+v", frame)
	}
	if n := a.hub.SubscriberCount(events.MemesTopic); n != 0 {
		t.Errorf("subscribers after unsubscribe = %d", n)
	}

	send(t, conn, "subscribe", events.MemesTopic)
	readFrame(t, conn)
	conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for a.hub.SubscriberCount(events.MemesTopic) != 0 {
		if time.Now().After(deadline) {
			t.Fatal("subscription not released after the client went away")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestOriginChecker(t *testing.T) {
	check := originChecker([]string{"https://memes.example"})

	for origin, want := range map[string]bool{
		"":                      true,
		"https://memes.example": true,
		"https://evil.example":  false,
	} {
		req := httptest.NewRequest(http.MethodGet, "/ws", nil)
		if origin != "" {
			req.Header.Set("Origin", origin)
		}
		if got := check(req); got != want {
			t.Errorf("origin %q: got %v", origin, got)
		}
	}

	if !originChecker(nil)(httptest.NewRequest(http.MethodGet, "/ws", nil)) {
		t.Error("no configured origins should allow everything")
	}
}
