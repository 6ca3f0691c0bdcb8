package server

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"nhooyr.io/websocket"

	"github.com/playperu/sprintstory/internal/announce"
	"github.com/playperu/sprintstory/internal/story"
)

func waitForSubscribers(t *testing.T, b *Broker, topic string, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for b.Subscribers(topic) < n {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %d subscribers on %s", n, topic)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestStoryEventsStream(t *testing.T) {
	env := setupEnv(t, nil)
	srv := httptest.NewServer(env.router)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/story/events?teamId="+env.team.ID, nil)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer resp.Body.Close()

	if got := resp.Header.Get("Content-Type"); got != "text/event-stream" {
		t.Fatalf("content-type = %q", got)
	}

	env.do(t, http.MethodPost, "/story/intro-complete", IntroCompleteRequest{TeamID: env.team.ID})

	br := bufio.NewReader(resp.Body)
	var event, data string
	for data == "" {
		line, err := br.ReadString('\n')
		if err != nil {
			t.Fatalf("read stream: %v", err)
		}
		line = strings.TrimRight(line, "\n")
		switch {
		case strings.HasPrefix(line, "event: "):
			event = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			data = strings.TrimPrefix(line, "data: ")
		}
	}

	if event != "story" {
		t.Errorf("event = %q, want story", event)
	}
	var got Envelope
	if err := json.Unmarshal([]byte(data), &got); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if got.Type != story.EventIntroCompleted {
		t.Errorf("type = %q, want %q", got.Type, story.EventIntroCompleted)
	}
}

func TestStoryEventsValidation(t *testing.T) {
	env := setupEnv(t, nil)

	if w := env.do(t, http.MethodGet, "/story/events", nil); w.Code != http.StatusBadRequest {
		t.Errorf("missing teamId: expected 400, got %d", w.Code)
	}
	if w := env.do(t, http.MethodGet, "/story/events?teamId=ghost", nil); w.Code != http.StatusNotFound {
		t.Errorf("unknown team: expected 404, got %d", w.Code)
	}
}

func TestAnnouncementsWebSocket(t *testing.T) {
	env := setupEnv(t, nil)
	srv := httptest.NewServer(env.router)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := "ws" + srv.URL[len("http"):] + "/sprint/announcements/ws"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.CloseNow()

	waitForSubscribers(t, env.broker, announcementsTopic, 1)

	a, err := announce.New("Demo day moved to Friday", time.Now())
	if err != nil {
		t.Fatal(err)
	}
	env.broker.Announce(a)

	_, msg, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var got struct {
		Type string                `json:"type"`
		Data announce.Announcement `json:"data"`
	}
	if err := json.Unmarshal(msg, &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Type != "announcement" || got.Data.ID != a.ID || got.Data.Message != a.Message {
		t.Errorf("unexpected message %+v", got)
	}

	conn.Close(websocket.StatusNormalClosure, "done")
}
