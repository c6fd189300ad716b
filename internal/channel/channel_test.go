package channel

import (
	"testing"

	"github.com/theo-nash/agentslack/internal/apperr"
	"github.com/theo-nash/agentslack/internal/store"
)

func newTestEngine(t *testing.T) (*Engine, *store.Store) {
	t.Helper()
	s, err := store.NewInMemory()
	if err != nil {
		t.Fatalf("NewInMemory: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	linked := func(a, b string) (bool, error) { return a == "projA" && b == "projB" || a == "projB" && b == "projA", nil }
	linkedScopes := func(scope string) ([]string, error) {
		switch scope {
		case "projA":
			return []string{"projB"}, nil
		case "projB":
			return []string{"projA"}, nil
		default:
			return nil, nil
		}
	}
	return New(s, linked, linkedScopes), s
}

func TestCreateOpenChannelIdempotent(t *testing.T) {
	e, _ := newTestEngine(t)
	creator := store.AgentID{Name: "alice", Scope: store.GlobalScope}

	c1, err := e.Create(CreateRequest{Name: "general", Scope: store.GlobalScope, AccessType: "open", Creator: creator})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	c2, err := e.Create(CreateRequest{Name: "general", Scope: store.GlobalScope, AccessType: "open", Creator: creator})
	if err != nil {
		t.Fatalf("Create (idempotent): %v", err)
	}
	if c1.Handle != c2.Handle {
		t.Fatalf("expected same handle on idempotent create")
	}
}

func TestCreateInvalidName(t *testing.T) {
	e, _ := newTestEngine(t)
	_, err := e.Create(CreateRequest{Name: "Not Valid", Scope: store.GlobalScope, Creator: store.AgentID{Name: "alice", Scope: store.GlobalScope}})
	if apperr.KindOf(err) != apperr.InvalidInput {
		t.Fatalf("expected InvalidInput, got %v", err)
	}
}

func TestCreateMembersChannelAddsCreatorAsManager(t *testing.T) {
	e, s := newTestEngine(t)
	creator := store.AgentID{Name: "alice", Scope: store.GlobalScope}
	c, err := e.Create(CreateRequest{Name: "leads", Scope: store.GlobalScope, AccessType: "members", Creator: creator})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	m, err := s.GetMember(c.Handle, creator)
	if err != nil {
		t.Fatalf("GetMember: %v", err)
	}
	if !m.CanManage || !m.CanInvite {
		t.Fatalf("expected creator to have can_manage and can_invite, got %+v", m)
	}
}

func TestJoinOpenChannel(t *testing.T) {
	e, _ := newTestEngine(t)
	creator := store.AgentID{Name: "alice", Scope: store.GlobalScope}
	c, err := e.Create(CreateRequest{Name: "general", Scope: store.GlobalScope, AccessType: "open", Creator: creator})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	agent := store.AgentID{Name: "bob", Scope: store.GlobalScope}
	m, err := e.Join(agent, c.Handle)
	if err != nil {
		t.Fatalf("Join: %v", err)
	}
	if !m.CanSend || !m.CanLeave {
		t.Fatalf("unexpected membership flags: %+v", m)
	}

	// idempotent
	m2, err := e.Join(agent, c.Handle)
	if err != nil {
		t.Fatalf("Join (idempotent): %v", err)
	}
	if m2.JoinedAt != m.JoinedAt {
		t.Fatalf("expected idempotent join to return existing row")
	}
}

func TestJoinMembersChannelRejected(t *testing.T) {
	e, _ := newTestEngine(t)
	creator := store.AgentID{Name: "alice", Scope: store.GlobalScope}
	c, err := e.Create(CreateRequest{Name: "leads", Scope: store.GlobalScope, AccessType: "members", Creator: creator})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	_, err = e.Join(store.AgentID{Name: "bob", Scope: store.GlobalScope}, c.Handle)
	if apperr.KindOf(err) != apperr.Conflict {
		t.Fatalf("expected Conflict (NOT_OPEN), got %v", err)
	}
}

func TestJoinScopeDenied(t *testing.T) {
	e, _ := newTestEngine(t)
	creator := store.AgentID{Name: "alice", Scope: "projA"}
	c, err := e.Create(CreateRequest{Name: "general", Scope: "projA", AccessType: "open", Creator: creator})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	_, err = e.Join(store.AgentID{Name: "bob", Scope: "projC"}, c.Handle)
	if apperr.KindOf(err) != apperr.ScopeDenied {
		t.Fatalf("expected ScopeDenied, got %v", err)
	}

	// linked project is eligible
	_, err = e.Join(store.AgentID{Name: "carol", Scope: "projB"}, c.Handle)
	if err != nil {
		t.Fatalf("expected linked project join to succeed, got %v", err)
	}
}

func TestInviteRequiresCanInvite(t *testing.T) {
	e, _ := newTestEngine(t)
	creator := store.AgentID{Name: "alice", Scope: store.GlobalScope}
	c, err := e.Create(CreateRequest{Name: "leads", Scope: store.GlobalScope, AccessType: "members", Creator: creator})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	nonMember := store.AgentID{Name: "mallory", Scope: store.GlobalScope}
	_, err = e.Invite(c.Handle, store.AgentID{Name: "dave", Scope: store.GlobalScope}, nonMember)
	if apperr.KindOf(err) != apperr.PermissionDenied {
		t.Fatalf("expected PermissionDenied for non-member inviter, got %v", err)
	}

	m, err := e.Invite(c.Handle, store.AgentID{Name: "dave", Scope: store.GlobalScope}, creator)
	if err != nil {
		t.Fatalf("Invite: %v", err)
	}
	if m.CanInvite {
		t.Fatalf("invited member should not get can_invite by default")
	}
}

func TestLeaveRejectsWhenCannotLeave(t *testing.T) {
	e, s := newTestEngine(t)
	creator := store.AgentID{Name: "alice", Scope: store.GlobalScope}
	c, err := e.Create(CreateRequest{Name: "leads", Scope: store.GlobalScope, AccessType: "members", Creator: creator})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	// Force a non-leavable membership directly, mimicking a DM/notes row.
	if _, err := s.AddMember(store.ChannelMember{Channel: c.Handle, AgentName: "dave", AgentScope: store.GlobalScope, CanLeave: false, CanSend: true}); err != nil {
		t.Fatalf("AddMember: %v", err)
	}
	err = e.Leave(c.Handle, store.AgentID{Name: "dave", Scope: store.GlobalScope})
	if apperr.KindOf(err) != apperr.PermissionDenied {
		t.Fatalf("expected PermissionDenied (CANNOT_LEAVE), got %v", err)
	}
}

func TestApplyDefaults(t *testing.T) {
	e, s := newTestEngine(t)
	admin := store.AgentID{Name: "admin", Scope: store.GlobalScope}
	if _, err := e.Create(CreateRequest{Name: "general", Scope: store.GlobalScope, AccessType: "open", Creator: admin, IsDefault: true}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := e.Create(CreateRequest{Name: "skip-me", Scope: store.GlobalScope, AccessType: "open", Creator: admin, IsDefault: true}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	agent := store.AgentID{Name: "newbie", Scope: store.GlobalScope}
	added, err := e.ApplyDefaults(agent, map[string]bool{"global:skip-me": true})
	if err != nil {
		t.Fatalf("ApplyDefaults: %v", err)
	}
	if len(added) != 1 || added[0].Channel != "global:general" {
		t.Fatalf("unexpected default memberships: %+v", added)
	}

	memberships, err := s.ListMemberships(agent)
	if err != nil {
		t.Fatalf("ListMemberships: %v", err)
	}
	if len(memberships) != 1 {
		t.Fatalf("expected exactly 1 membership after exclusion, got %d", len(memberships))
	}
}

func TestListAvailableAnnotatesJoinability(t *testing.T) {
	e, _ := newTestEngine(t)
	admin := store.AgentID{Name: "admin", Scope: store.GlobalScope}
	if _, err := e.Create(CreateRequest{Name: "general", Scope: store.GlobalScope, AccessType: "open", Creator: admin}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	agent := store.AgentID{Name: "bob", Scope: store.GlobalScope}
	list, err := e.ListAvailable(agent)
	if err != nil {
		t.Fatalf("ListAvailable: %v", err)
	}
	if len(list) != 1 || !list[0].CanJoin || list[0].IsMember {
		t.Fatalf("unexpected availability: %+v", list)
	}
}

func TestListAvailableIncludesLinkedProjectChannels(t *testing.T) {
	e, _ := newTestEngine(t)
	creator := store.AgentID{Name: "alice", Scope: "projA"}
	if _, err := e.Create(CreateRequest{Name: "general", Scope: "projA", AccessType: "open", Creator: creator}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	agent := store.AgentID{Name: "carol", Scope: "projB"}
	list, err := e.ListAvailable(agent)
	if err != nil {
		t.Fatalf("ListAvailable: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected linked-project channel to be visible, got %+v", list)
	}
	if !list[0].CanJoin || list[0].AccessReason != "linked_project" {
		t.Fatalf("expected linked_project access reason, got %+v", list[0])
	}
}
