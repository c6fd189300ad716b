package view

import (
	"testing"

	"github.com/theo-nash/agentslack/internal/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.NewInMemory()
	if err != nil {
		t.Fatalf("NewInMemory: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func noLinks(string) ([]string, error) { return nil, nil }

func TestDMHandleCanonical(t *testing.T) {
	a := store.AgentID{Name: "bob", Scope: store.GlobalScope}
	b := store.AgentID{Name: "alice", Scope: store.GlobalScope}
	if DMHandle(a, b) != DMHandle(b, a) {
		t.Fatalf("DMHandle should be order-independent")
	}
	if got, want := DMHandle(a, b), "dm:alice::bob:"; got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestDMAccessOpenPolicy(t *testing.T) {
	s := newTestStore(t)
	a1 := store.AgentID{Name: "alice", Scope: store.GlobalScope}
	a2 := store.AgentID{Name: "bob", Scope: store.GlobalScope}
	s.UpsertAgent(store.Agent{Name: a1.Name, Scope: a1.Scope, DMPolicy: "open"})
	s.UpsertAgent(store.Agent{Name: a2.Name, Scope: a2.Scope, DMPolicy: "open"})

	ok, err := DMAccess(s, a1, a2)
	if err != nil {
		t.Fatalf("DMAccess: %v", err)
	}
	if !ok {
		t.Fatalf("expected open policy to allow DM")
	}
}

func TestDMAccessBlockIsSymmetric(t *testing.T) {
	s := newTestStore(t)
	a1 := store.AgentID{Name: "alice", Scope: store.GlobalScope}
	a2 := store.AgentID{Name: "bob", Scope: store.GlobalScope}
	s.UpsertAgent(store.Agent{Name: a1.Name, Scope: a1.Scope, DMPolicy: "open"})
	s.UpsertAgent(store.Agent{Name: a2.Name, Scope: a2.Scope, DMPolicy: "open"})

	if err := s.SetDMPermission(store.DMPermission{OwnerName: a1.Name, OwnerScope: a1.Scope, OtherName: a2.Name, OtherScope: a2.Scope, Permission: "block"}); err != nil {
		t.Fatalf("SetDMPermission: %v", err)
	}

	ok, err := DMAccess(s, a2, a1)
	if err != nil {
		t.Fatalf("DMAccess: %v", err)
	}
	if ok {
		t.Fatalf("block by a1 against a2 should also prevent a2 from DMing a1")
	}
}

func TestDMAccessRestrictedRequiresAllow(t *testing.T) {
	s := newTestStore(t)
	a1 := store.AgentID{Name: "alice", Scope: store.GlobalScope}
	a2 := store.AgentID{Name: "bob", Scope: store.GlobalScope}
	s.UpsertAgent(store.Agent{Name: a1.Name, Scope: a1.Scope, DMPolicy: "restricted"})
	s.UpsertAgent(store.Agent{Name: a2.Name, Scope: a2.Scope, DMPolicy: "open"})

	ok, err := DMAccess(s, a2, a1)
	if err != nil {
		t.Fatalf("DMAccess: %v", err)
	}
	if ok {
		t.Fatalf("restricted receiver without explicit allow should deny")
	}

	if err := s.SetDMPermission(store.DMPermission{OwnerName: a1.Name, OwnerScope: a1.Scope, OtherName: a2.Name, OtherScope: a2.Scope, Permission: "allow"}); err != nil {
		t.Fatalf("SetDMPermission: %v", err)
	}
	ok, err = DMAccess(s, a2, a1)
	if err != nil {
		t.Fatalf("DMAccess: %v", err)
	}
	if !ok {
		t.Fatalf("expected allow to permit DM into restricted receiver")
	}
}

func TestAgentDiscoveryVisibility(t *testing.T) {
	s := newTestStore(t)
	viewer := store.AgentID{Name: "alice", Scope: store.GlobalScope}
	s.UpsertAgent(store.Agent{Name: viewer.Name, Scope: viewer.Scope, Discoverability: "public"})
	s.UpsertAgent(store.Agent{Name: "bob", Scope: store.GlobalScope, Discoverability: "public"})
	s.UpsertAgent(store.Agent{Name: "carol", Scope: store.GlobalScope, Discoverability: "private"})

	entries, err := AgentDiscovery(s, noLinks, viewer)
	if err != nil {
		t.Fatalf("AgentDiscovery: %v", err)
	}
	names := map[string]bool{}
	for _, e := range entries {
		names[e.Agent.Name] = true
	}
	if !names["bob"] {
		t.Fatalf("expected public agent bob to be discoverable")
	}
	if names["carol"] {
		t.Fatalf("private agent carol should not be discoverable")
	}
}

func TestAgentChannelsReturnsOnlyMemberships(t *testing.T) {
	s := newTestStore(t)
	agent := store.AgentID{Name: "alice", Scope: store.GlobalScope}
	c, err := s.CreateChannel(store.Channel{Handle: "global:general", ChannelType: "channel", AccessType: "open", Scope: store.GlobalScope, Name: "general"})
	if err != nil {
		t.Fatalf("CreateChannel: %v", err)
	}
	if _, err := s.CreateChannel(store.Channel{Handle: "global:other", ChannelType: "channel", AccessType: "open", Scope: store.GlobalScope, Name: "other"}); err != nil {
		t.Fatalf("CreateChannel: %v", err)
	}
	if _, err := s.AddMember(store.ChannelMember{Channel: c.Handle, AgentName: agent.Name, AgentScope: agent.Scope, CanSend: true}); err != nil {
		t.Fatalf("AddMember: %v", err)
	}

	channels, err := AgentChannels(s, agent)
	if err != nil {
		t.Fatalf("AgentChannels: %v", err)
	}
	if len(channels) != 1 || channels[0].Channel != c.Handle {
		t.Fatalf("expected only joined channel, got %+v", channels)
	}
}
