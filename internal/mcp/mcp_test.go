package mcp

import (
	"context"
	"strings"
	"testing"
	"time"

	mcppkg "github.com/mark3labs/mcp-go/mcp"

	"github.com/theo-nash/agentslack/internal/channel"
	"github.com/theo-nash/agentslack/internal/discovery"
	"github.com/theo-nash/agentslack/internal/message"
	"github.com/theo-nash/agentslack/internal/orchestrator"
	"github.com/theo-nash/agentslack/internal/session"
	"github.com/theo-nash/agentslack/internal/store"
)

func newMCPTestOrchestrator(t *testing.T) (*orchestrator.Orchestrator, *store.Store) {
	t.Helper()
	s, err := store.NewInMemory()
	if err != nil {
		t.Fatalf("NewInMemory: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	sess := session.New(s, 10*time.Minute)
	ch := channel.New(s, sess.ProjectsLinked, sess.LinkedScopes)
	msg := message.New(s, nil)
	disc := discovery.New(s, sess.LinkedScopes)
	return orchestrator.New(s, sess, ch, msg, disc), s
}

func registerMCPAgent(t *testing.T, s *store.Store, name, scope string) {
	t.Helper()
	if _, err := s.UpsertAgent(store.Agent{Name: name, Scope: scope, DMPolicy: "open", Discoverability: "public"}); err != nil {
		t.Fatalf("UpsertAgent: %v", err)
	}
}

func callResultText(t *testing.T, res *mcppkg.CallToolResult) string {
	t.Helper()
	if res == nil || len(res.Content) == 0 {
		t.Fatalf("expected non-empty tool result")
	}
	text, ok := mcppkg.AsTextContent(res.Content[0])
	if !ok {
		t.Fatalf("expected text content")
	}
	return text.Text
}

func ctxWithSession(id string) context.Context {
	return WithSessionID(context.Background(), id)
}

func TestNewServerRegistersTools(t *testing.T) {
	o, _ := newMCPTestOrchestrator(t)
	srv := NewServer(o)
	if srv == nil {
		t.Fatalf("expected MCP server instance")
	}
}

func TestResolveToolsExpandsProfilesAndIndividualNames(t *testing.T) {
	tools := ResolveTools("agent,set_dm_policy")
	if tools == nil {
		t.Fatalf("expected non-nil tool set")
	}
	if !tools["send_message"] || !tools["search"] {
		t.Fatalf("expected agent-profile tools present, got %v", tools)
	}
	if !tools["set_dm_policy"] {
		t.Fatalf("expected individually named tool present, got %v", tools)
	}
	if tools["create_channel"] {
		t.Fatalf("did not expect admin-only tool in agent+set_dm_policy set")
	}
}

func TestResolveToolsEmptyMeansAll(t *testing.T) {
	if tools := ResolveTools(""); tools != nil {
		t.Fatalf("expected nil (all tools) for empty input, got %v", tools)
	}
	if tools := ResolveTools("all"); tools != nil {
		t.Fatalf("expected nil (all tools) for \"all\", got %v", tools)
	}
}

func TestNewServerWithToolsRespectsAllowlist(t *testing.T) {
	o, _ := newMCPTestOrchestrator(t)
	srv := NewServerWithTools(o, map[string]bool{"list_channels": true})
	if srv == nil {
		t.Fatalf("expected MCP server instance")
	}
}

func TestHandleCreateChannelAndJoinChannel(t *testing.T) {
	o, s := newMCPTestOrchestrator(t)
	if _, err := s.UpsertSession(store.Session{ID: "sess-1", Scope: store.GlobalScope}); err != nil {
		t.Fatalf("UpsertSession: %v", err)
	}
	registerMCPAgent(t, s, "alice", store.GlobalScope)

	create := handleCreateChannel(o)
	req := mcppkg.CallToolRequest{Params: mcppkg.CallToolParams{Arguments: map[string]any{
		"agent_id": "alice",
		"name":     "launches",
	}}}
	res, err := create(ctxWithSession("sess-1"), req)
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if res.IsError {
		t.Fatalf("unexpected create_channel error: %s", callResultText(t, res))
	}

	join := handleJoinChannel(o)
	joinReq := mcppkg.CallToolRequest{Params: mcppkg.CallToolParams{Arguments: map[string]any{
		"agent_id": "alice",
		"channel":  "launches",
	}}}
	joinRes, err := join(ctxWithSession("sess-1"), joinReq)
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if joinRes.IsError {
		t.Fatalf("unexpected join_channel error: %s", callResultText(t, joinRes))
	}
}

func TestHandleSendMessageAndGetMessages(t *testing.T) {
	o, s := newMCPTestOrchestrator(t)
	if _, err := s.UpsertSession(store.Session{ID: "sess-2", Scope: store.GlobalScope}); err != nil {
		t.Fatalf("UpsertSession: %v", err)
	}
	registerMCPAgent(t, s, "alice", store.GlobalScope)

	ctx := ctxWithSession("sess-2")
	createRes, err := handleCreateChannel(o)(ctx, mcppkg.CallToolRequest{Params: mcppkg.CallToolParams{Arguments: map[string]any{
		"agent_id": "alice",
		"name":     "general",
	}}})
	if err != nil || createRes.IsError {
		t.Fatalf("create_channel failed: %v %v", err, createRes)
	}
	if _, err := handleJoinChannel(o)(ctx, mcppkg.CallToolRequest{Params: mcppkg.CallToolParams{Arguments: map[string]any{
		"agent_id": "alice",
		"channel":  "general",
	}}}); err != nil {
		t.Fatalf("join_channel error: %v", err)
	}

	send := handleSendMessage(o)
	sendReq := mcppkg.CallToolRequest{Params: mcppkg.CallToolParams{Arguments: map[string]any{
		"agent_id": "alice",
		"channel":  "general",
		"content":  "hello world",
	}}}
	sendRes, err := send(ctx, sendReq)
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if sendRes.IsError {
		t.Fatalf("unexpected send_message error: %s", callResultText(t, sendRes))
	}

	get := handleGetMessages(o)
	getReq := mcppkg.CallToolRequest{Params: mcppkg.CallToolParams{Arguments: map[string]any{
		"agent_id": "alice",
		"channel":  "general",
		"limit":    float64(10),
	}}}
	getRes, err := get(ctx, getReq)
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if getRes.IsError {
		t.Fatalf("unexpected get_messages error: %s", callResultText(t, getRes))
	}
	if !strings.Contains(callResultText(t, getRes), "hello world") {
		t.Fatalf("expected sent message in response, got %q", callResultText(t, getRes))
	}
}

func TestHandleSendMessageMissingAgentIDIsToolError(t *testing.T) {
	o, _ := newMCPTestOrchestrator(t)
	send := handleSendMessage(o)
	req := mcppkg.CallToolRequest{Params: mcppkg.CallToolParams{Arguments: map[string]any{
		"channel": "global:general",
		"content": "hi",
	}}}
	res, err := send(ctxWithSession("sess-missing"), req)
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if !res.IsError {
		t.Fatalf("expected tool error for missing agent_id")
	}
}

func TestHandleSendDM(t *testing.T) {
	o, s := newMCPTestOrchestrator(t)
	if _, err := s.UpsertSession(store.Session{ID: "sess-3", Scope: store.GlobalScope}); err != nil {
		t.Fatalf("UpsertSession: %v", err)
	}
	registerMCPAgent(t, s, "alice", store.GlobalScope)
	registerMCPAgent(t, s, "bob", store.GlobalScope)

	send := handleSendDM(o)
	req := mcppkg.CallToolRequest{Params: mcppkg.CallToolParams{Arguments: map[string]any{
		"agent_id":     "alice",
		"recipient_id": "bob",
		"content":      "hey bob",
	}}}
	res, err := send(ctxWithSession("sess-3"), req)
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if res.IsError {
		t.Fatalf("unexpected send_dm error: %s", callResultText(t, res))
	}
}

func TestHandleWriteReadAndPeekNotes(t *testing.T) {
	o, s := newMCPTestOrchestrator(t)
	if _, err := s.UpsertSession(store.Session{ID: "sess-4", Scope: store.GlobalScope}); err != nil {
		t.Fatalf("UpsertSession: %v", err)
	}
	registerMCPAgent(t, s, "alice", store.GlobalScope)
	registerMCPAgent(t, s, "bob", store.GlobalScope)

	ctx := ctxWithSession("sess-4")
	writeRes, err := handleWriteNotes(o)(ctx, mcppkg.CallToolRequest{Params: mcppkg.CallToolParams{Arguments: map[string]any{
		"agent_id": "alice",
		"content":  "deploy checklist item",
	}}})
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if writeRes.IsError {
		t.Fatalf("unexpected write_notes error: %s", callResultText(t, writeRes))
	}

	readRes, err := handleReadNotes(o)(ctx, mcppkg.CallToolRequest{Params: mcppkg.CallToolParams{Arguments: map[string]any{
		"agent_id": "alice",
	}}})
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if readRes.IsError {
		t.Fatalf("unexpected read_notes error: %s", callResultText(t, readRes))
	}

	peekRes, err := handlePeekNotes(o)(ctx, mcppkg.CallToolRequest{Params: mcppkg.CallToolParams{Arguments: map[string]any{
		"agent_id":  "bob",
		"target_id": "alice",
	}}})
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if peekRes.IsError {
		t.Fatalf("expected global viewer to peek notes, got: %s", callResultText(t, peekRes))
	}
}

func TestHandleListAgentsAndGetAgent(t *testing.T) {
	o, s := newMCPTestOrchestrator(t)
	if _, err := s.UpsertSession(store.Session{ID: "sess-5", Scope: store.GlobalScope}); err != nil {
		t.Fatalf("UpsertSession: %v", err)
	}
	registerMCPAgent(t, s, "alice", store.GlobalScope)
	registerMCPAgent(t, s, "bob", store.GlobalScope)

	ctx := ctxWithSession("sess-5")
	listRes, err := handleListAgents(o)(ctx, mcppkg.CallToolRequest{Params: mcppkg.CallToolParams{Arguments: map[string]any{
		"agent_id": "alice",
	}}})
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if listRes.IsError {
		t.Fatalf("unexpected list_agents error: %s", callResultText(t, listRes))
	}

	getRes, err := handleGetAgent(o)(ctx, mcppkg.CallToolRequest{Params: mcppkg.CallToolParams{Arguments: map[string]any{
		"agent_id":  "alice",
		"target_id": "bob",
	}}})
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if getRes.IsError {
		t.Fatalf("unexpected get_agent error: %s", callResultText(t, getRes))
	}
}

func TestHandleRegisterSessionAndGetCurrentProject(t *testing.T) {
	o, _ := newMCPTestOrchestrator(t)
	regRes := o.RegisterSession(orchestrator.RegisterSessionArgs{SessionID: "sess-6", Cwd: "/work/demo"})
	if !regRes.OK {
		t.Fatalf("RegisterSession failed: %s", regRes.Error)
	}

	getProj := handleGetCurrentProject(o)
	res, err := getProj(ctxWithSession("sess-6"), mcppkg.CallToolRequest{})
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if res.IsError {
		t.Fatalf("unexpected get_current_project error: %s", callResultText(t, res))
	}
}

func TestHandleSetDMPolicyAndPermission(t *testing.T) {
	o, s := newMCPTestOrchestrator(t)
	if _, err := s.UpsertSession(store.Session{ID: "sess-7", Scope: store.GlobalScope}); err != nil {
		t.Fatalf("UpsertSession: %v", err)
	}
	registerMCPAgent(t, s, "alice", store.GlobalScope)
	registerMCPAgent(t, s, "bob", store.GlobalScope)

	ctx := ctxWithSession("sess-7")
	policyRes, err := handleSetDMPolicy(o)(ctx, mcppkg.CallToolRequest{Params: mcppkg.CallToolParams{Arguments: map[string]any{
		"agent_id": "alice",
		"policy":   "restricted",
	}}})
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if policyRes.IsError {
		t.Fatalf("unexpected set_dm_policy error: %s", callResultText(t, policyRes))
	}

	permRes, err := handleSetDMPermission(o)(ctx, mcppkg.CallToolRequest{Params: mcppkg.CallToolParams{Arguments: map[string]any{
		"agent_id": "alice",
		"other_id": "bob",
		"kind":     "allow",
	}}})
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if permRes.IsError {
		t.Fatalf("unexpected set_dm_permission error: %s", callResultText(t, permRes))
	}
}

func TestHandleArchiveChannelRequiresCanManage(t *testing.T) {
	o, s := newMCPTestOrchestrator(t)
	if _, err := s.UpsertSession(store.Session{ID: "sess-8", Scope: store.GlobalScope}); err != nil {
		t.Fatalf("UpsertSession: %v", err)
	}
	registerMCPAgent(t, s, "alice", store.GlobalScope)
	registerMCPAgent(t, s, "bob", store.GlobalScope)

	ctx := ctxWithSession("sess-8")
	if res, err := handleCreateChannel(o)(ctx, mcppkg.CallToolRequest{Params: mcppkg.CallToolParams{Arguments: map[string]any{
		"agent_id":    "alice",
		"name":        "ops",
		"access_type": "members",
	}}}); err != nil || res.IsError {
		t.Fatalf("create_channel failed: %v %v", err, res)
	}

	bobRes, err := handleArchiveChannel(o)(ctx, mcppkg.CallToolRequest{Params: mcppkg.CallToolParams{Arguments: map[string]any{
		"agent_id": "bob",
		"channel":  "ops",
	}}})
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if !bobRes.IsError {
		t.Fatalf("expected non-member archive to fail")
	}

	aliceRes, err := handleArchiveChannel(o)(ctx, mcppkg.CallToolRequest{Params: mcppkg.CallToolParams{Arguments: map[string]any{
		"agent_id": "alice",
		"channel":  "ops",
	}}})
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if aliceRes.IsError {
		t.Fatalf("expected creator archive to succeed, got: %s", callResultText(t, aliceRes))
	}
}
