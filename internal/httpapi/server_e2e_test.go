package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/theo-nash/agentslack/internal/channel"
	"github.com/theo-nash/agentslack/internal/discovery"
	"github.com/theo-nash/agentslack/internal/message"
	"github.com/theo-nash/agentslack/internal/orchestrator"
	"github.com/theo-nash/agentslack/internal/session"
	"github.com/theo-nash/agentslack/internal/store"
)

func newE2EServer(t *testing.T) (*store.Store, *httptest.Server) {
	t.Helper()
	s, err := store.NewInMemory()
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	sess := session.New(s, 10*time.Minute)
	ch := channel.New(s, sess.ProjectsLinked, sess.LinkedScopes)
	msg := message.New(s, nil)
	disc := discovery.New(s, sess.LinkedScopes)
	o := orchestrator.New(s, sess, ch, msg, disc)

	httpServer := httptest.NewServer(New(o).Handler())
	t.Cleanup(func() {
		httpServer.Close()
		_ = s.Close()
	})

	return s, httpServer
}

func postJSON(t *testing.T, client *http.Client, url string, body any) *http.Response {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	resp, err := client.Post(url, "application/json", bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("post %s: %v", url, err)
	}
	return resp
}

func decodeJSON[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var out T
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode json: %v", err)
	}
	return out
}

func registerHTTPAgent(t *testing.T, s *store.Store, name, scope string) {
	t.Helper()
	if _, err := s.UpsertAgent(store.Agent{Name: name, Scope: scope, DMPolicy: "open", Discoverability: "public"}); err != nil {
		t.Fatalf("UpsertAgent: %v", err)
	}
}

func TestChannelCreateJoinSendAndSearchE2E(t *testing.T) {
	s, ts := newE2EServer(t)
	client := ts.Client()

	sessionResp := postJSON(t, client, ts.URL+"/sessions", map[string]any{
		"id": "s-e2e",
	})
	if sessionResp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201 creating session, got %d", sessionResp.StatusCode)
	}
	sessionResp.Body.Close()

	registerHTTPAgent(t, s, "alice", store.GlobalScope)

	createResp := postJSON(t, client, ts.URL+"/channels?session_id=s-e2e", map[string]any{
		"agent_id": "alice",
		"name":     "launches",
	})
	if createResp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201 creating channel, got %d", createResp.StatusCode)
	}
	createResp.Body.Close()

	joinResp := postJSON(t, client, ts.URL+"/channels/launches/join?session_id=s-e2e", map[string]any{
		"agent_id": "alice",
	})
	if joinResp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 joining channel, got %d", joinResp.StatusCode)
	}
	joinResp.Body.Close()

	sendResp := postJSON(t, client, ts.URL+"/messages?session_id=s-e2e", map[string]any{
		"agent_id": "alice",
		"channel":  "launches",
		"content":  "shipping v2 today",
	})
	if sendResp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201 sending message, got %d", sendResp.StatusCode)
	}
	sendResp.Body.Close()

	searchResp, err := client.Get(ts.URL + "/search?session_id=s-e2e&agent_id=alice&q=shipping")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if searchResp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 search, got %d", searchResp.StatusCode)
	}
	hits := decodeJSON[[]map[string]any](t, searchResp)
	if len(hits) != 1 {
		t.Fatalf("expected 1 search hit, got %d", len(hits))
	}
}

func TestSendMessageMissingAgentReturnsBadRequestStatusE2E(t *testing.T) {
	_, ts := newE2EServer(t)
	client := ts.Client()

	resp := postJSON(t, client, ts.URL+"/messages?session_id=missing", map[string]any{
		"channel": "global:general",
		"content": "hi",
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing agent_id, got %d", resp.StatusCode)
	}
}

func TestSendDMAndNotesE2E(t *testing.T) {
	s, ts := newE2EServer(t)
	client := ts.Client()

	sessResp := postJSON(t, client, ts.URL+"/sessions", map[string]any{"id": "s-dm"})
	sessResp.Body.Close()
	registerHTTPAgent(t, s, "alice", store.GlobalScope)
	registerHTTPAgent(t, s, "bob", store.GlobalScope)

	dmResp := postJSON(t, client, ts.URL+"/dms?session_id=s-dm", map[string]any{
		"agent_id":     "alice",
		"recipient_id": "bob",
		"content":      "hey bob",
	})
	if dmResp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201 sending dm, got %d", dmResp.StatusCode)
	}
	dmResp.Body.Close()

	notesResp := postJSON(t, client, ts.URL+"/notes?session_id=s-dm", map[string]any{
		"agent_id": "alice",
		"content":  "remember to check the deploy",
	})
	if notesResp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201 writing notes, got %d", notesResp.StatusCode)
	}
	notesResp.Body.Close()

	peekResp, err := client.Get(ts.URL + "/notes/alice?session_id=s-dm&agent_id=bob")
	if err != nil {
		t.Fatalf("peek notes: %v", err)
	}
	if peekResp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 peeking notes as global viewer, got %d", peekResp.StatusCode)
	}
	peekResp.Body.Close()
}

func TestArchiveChannelRequiresCanManageE2E(t *testing.T) {
	s, ts := newE2EServer(t)
	client := ts.Client()

	sessResp := postJSON(t, client, ts.URL+"/sessions", map[string]any{"id": "s-arch"})
	sessResp.Body.Close()
	registerHTTPAgent(t, s, "alice", store.GlobalScope)
	registerHTTPAgent(t, s, "bob", store.GlobalScope)

	createResp := postJSON(t, client, ts.URL+"/channels?session_id=s-arch", map[string]any{
		"agent_id":    "alice",
		"name":        "ops",
		"access_type": "members",
	})
	if createResp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201 creating channel, got %d", createResp.StatusCode)
	}
	createResp.Body.Close()

	bobResp := postJSON(t, client, ts.URL+"/channels/ops/archive?session_id=s-arch", map[string]any{
		"agent_id": "bob",
	})
	if bobResp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 for non-member archive, got %d", bobResp.StatusCode)
	}
	bobResp.Body.Close()

	aliceResp := postJSON(t, client, ts.URL+"/channels/ops/archive?session_id=s-arch", map[string]any{
		"agent_id": "alice",
	})
	if aliceResp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 for creator archive, got %d", aliceResp.StatusCode)
	}
	aliceResp.Body.Close()
}
