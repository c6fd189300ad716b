package store

import (
	"encoding/json"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	cfg := DefaultConfig()
	cfg.DataDir = t.TempDir()
	s, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRegisterProjectUpsert(t *testing.T) {
	s := newTestStore(t)

	p, err := s.RegisterProject("proj1", "/home/agent/work", "work")
	if err != nil {
		t.Fatalf("RegisterProject: %v", err)
	}
	if p.ID != "proj1" || p.DisplayName != "work" {
		t.Fatalf("unexpected project: %+v", p)
	}

	p2, err := s.RegisterProject("proj1", "/home/agent/work", "renamed")
	if err != nil {
		t.Fatalf("RegisterProject (update): %v", err)
	}
	if p2.DisplayName != "renamed" {
		t.Fatalf("expected upsert to rename, got %+v", p2)
	}
}

func TestProjectLinks(t *testing.T) {
	s := newTestStore(t)
	for _, id := range []string{"a", "b"} {
		if _, err := s.RegisterProject(id, "/"+id, id); err != nil {
			t.Fatalf("RegisterProject: %v", err)
		}
	}
	if err := s.LinkProjects("a", "b", "bidirectional"); err != nil {
		t.Fatalf("LinkProjects: %v", err)
	}
	links, err := s.LinkedProjects("b")
	if err != nil {
		t.Fatalf("LinkedProjects: %v", err)
	}
	if len(links) != 1 || links[0].LinkType != "bidirectional" {
		t.Fatalf("unexpected links: %+v", links)
	}
}

func TestUpsertAgentAndList(t *testing.T) {
	s := newTestStore(t)

	if _, err := s.UpsertAgent(Agent{Name: "alice", Scope: GlobalScope}); err != nil {
		t.Fatalf("UpsertAgent: %v", err)
	}
	if _, err := s.UpsertAgent(Agent{Name: "bob", Scope: "proj1"}); err != nil {
		t.Fatalf("UpsertAgent: %v", err)
	}

	agents, err := s.ListAgents("proj1")
	if err != nil {
		t.Fatalf("ListAgents: %v", err)
	}
	if len(agents) != 2 {
		t.Fatalf("expected alice (global) + bob (proj1), got %d", len(agents))
	}

	if err := s.SetAgentStatus(AgentID{Name: "alice", Scope: GlobalScope}, "busy"); err != nil {
		t.Fatalf("SetAgentStatus: %v", err)
	}
	a, err := s.GetAgent(AgentID{Name: "alice", Scope: GlobalScope})
	if err != nil {
		t.Fatalf("GetAgent: %v", err)
	}
	if a.Status != "busy" {
		t.Fatalf("expected busy, got %s", a.Status)
	}
}

func TestChannelCreateAndMembership(t *testing.T) {
	s := newTestStore(t)

	c, err := s.CreateChannel(Channel{
		Handle: "global:general", ChannelType: "channel", AccessType: "open",
		Scope: GlobalScope, Name: "general",
	})
	if err != nil {
		t.Fatalf("CreateChannel: %v", err)
	}
	if c.Archived {
		t.Fatalf("expected new channel to be unarchived")
	}

	if _, err := s.CreateChannel(c); err != ErrAlreadyExists {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}

	member := AgentID{Name: "alice", Scope: GlobalScope}
	if _, err := s.AddMember(ChannelMember{Channel: c.Handle, AgentName: member.Name, AgentScope: member.Scope, CanLeave: true, CanSend: true}); err != nil {
		t.Fatalf("AddMember: %v", err)
	}

	members, err := s.ListMembers(c.Handle)
	if err != nil {
		t.Fatalf("ListMembers: %v", err)
	}
	if len(members) != 1 || members[0].AgentName != "alice" {
		t.Fatalf("unexpected members: %+v", members)
	}

	if err := s.RemoveMember(c.Handle, member); err != nil {
		t.Fatalf("RemoveMember: %v", err)
	}
	if _, err := s.GetMember(c.Handle, member); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound after RemoveMember, got %v", err)
	}
}

func TestChannelArchiving(t *testing.T) {
	s := newTestStore(t)
	c, err := s.CreateChannel(Channel{Handle: "global:temp", ChannelType: "channel", AccessType: "open", Scope: GlobalScope, Name: "temp"})
	if err != nil {
		t.Fatalf("CreateChannel: %v", err)
	}
	if err := s.SetChannelArchived(c.Handle, true); err != nil {
		t.Fatalf("SetChannelArchived: %v", err)
	}
	list, err := s.ListChannelsByScope(GlobalScope, false)
	if err != nil {
		t.Fatalf("ListChannelsByScope: %v", err)
	}
	for _, ch := range list {
		if ch.Handle == c.Handle {
			t.Fatalf("archived channel should not appear in non-archived listing")
		}
	}
}

func TestMessageSendEditDeleteAndSearch(t *testing.T) {
	s := newTestStore(t)
	channel := "global:general"
	if _, err := s.CreateChannel(Channel{Handle: channel, ChannelType: "channel", AccessType: "open", Scope: GlobalScope, Name: "general"}); err != nil {
		t.Fatalf("CreateChannel: %v", err)
	}

	m, err := s.InsertMessage(Message{Channel: channel, SenderName: "alice", SenderScope: GlobalScope, Content: "deploying the release pipeline now"})
	if err != nil {
		t.Fatalf("InsertMessage: %v", err)
	}
	if m.IsEdited {
		t.Fatalf("new message should not be edited")
	}

	edited, err := s.EditMessage(m.ID, "deploying the release pipeline shortly")
	if err != nil {
		t.Fatalf("EditMessage: %v", err)
	}
	if !edited.IsEdited {
		t.Fatalf("expected is_edited after EditMessage")
	}

	results, err := s.SearchLexical("pipeline", []string{channel}, 10)
	if err != nil {
		t.Fatalf("SearchLexical: %v", err)
	}
	if len(results) != 1 || results[0].ID != m.ID {
		t.Fatalf("expected to find edited message by lexical search, got %+v", results)
	}

	if err := s.SoftDeleteMessage(m.ID, "alice"); err != nil {
		t.Fatalf("SoftDeleteMessage: %v", err)
	}
	got, err := s.GetMessage(m.ID)
	if err != nil {
		t.Fatalf("GetMessage: %v", err)
	}
	if got.Content != "[Message deleted]" {
		t.Fatalf("expected tombstoned content, got %q", got.Content)
	}
	if !got.IsEdited || got.EditedAt == nil {
		t.Fatalf("expected edit flags set after delete, got IsEdited=%v EditedAt=%v", got.IsEdited, got.EditedAt)
	}
	var meta struct {
		Deleted struct {
			By string `json:"by"`
			At string `json:"at"`
		} `json:"deleted"`
	}
	if err := json.Unmarshal([]byte(got.Metadata), &meta); err != nil {
		t.Fatalf("unmarshal metadata: %v", err)
	}
	if meta.Deleted.By != "alice" || meta.Deleted.At == "" {
		t.Fatalf("expected metadata.deleted={by,at}, got %+v", meta.Deleted)
	}
}

func TestDMPermissions(t *testing.T) {
	s := newTestStore(t)
	owner := AgentID{Name: "alice", Scope: GlobalScope}
	other := AgentID{Name: "bob", Scope: GlobalScope}

	if err := s.SetDMPermission(DMPermission{OwnerName: owner.Name, OwnerScope: owner.Scope, OtherName: other.Name, OtherScope: other.Scope, Permission: "block", Reason: "noisy"}); err != nil {
		t.Fatalf("SetDMPermission: %v", err)
	}
	p, err := s.GetDMPermission(owner, other)
	if err != nil {
		t.Fatalf("GetDMPermission: %v", err)
	}
	if p.Permission != "block" {
		t.Fatalf("expected block, got %s", p.Permission)
	}

	if err := s.RemoveDMPermission(owner, other); err != nil {
		t.Fatalf("RemoveDMPermission: %v", err)
	}
	if _, err := s.GetDMPermission(owner, other); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestToolCallDedup(t *testing.T) {
	s := newTestStore(t)
	window := RelativeWindowExpr(10 * time.Minute)

	outcome, err := s.RecordToolCall("sess1", "send_message", "digest-abc", window)
	if err != nil {
		t.Fatalf("RecordToolCall: %v", err)
	}
	if outcome != ToolCallNew {
		t.Fatalf("expected new, got %s", outcome)
	}

	outcome, err = s.RecordToolCall("sess1", "send_message", "digest-abc", window)
	if err != nil {
		t.Fatalf("RecordToolCall (dup): %v", err)
	}
	if outcome != ToolCallDuplicate {
		t.Fatalf("expected duplicate, got %s", outcome)
	}
}

func TestSessionUpsertAndPrune(t *testing.T) {
	s := newTestStore(t)
	sess, err := s.UpsertSession(Session{ID: "sess1", Scope: GlobalScope})
	if err != nil {
		t.Fatalf("UpsertSession: %v", err)
	}
	if sess.Scope != GlobalScope {
		t.Fatalf("unexpected scope: %s", sess.Scope)
	}

	// A retention window of "+1 minutes" is in the future relative to now,
	// so datetime('now', '+1 minutes') is after updated_at and the session
	// should be pruned.
	n, err := s.PruneSessions("+1 minutes")
	if err != nil {
		t.Fatalf("PruneSessions: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 pruned session, got %d", n)
	}
}

func TestConfigSyncLog(t *testing.T) {
	s := newTestStore(t)
	if err := s.LogConfigSync("sess1", "create_channel", "global:general"); err != nil {
		t.Fatalf("LogConfigSync: %v", err)
	}
	entries, err := s.ListConfigSyncLog("sess1", 10)
	if err != nil {
		t.Fatalf("ListConfigSyncLog: %v", err)
	}
	if len(entries) != 1 || entries[0].Action != "create_channel" {
		t.Fatalf("unexpected entries: %+v", entries)
	}
}
