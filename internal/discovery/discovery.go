// Package discovery implements the DM engine: can-DM evaluation, canonical
// DM channel creation, allow/block management, and the discoverable-agents
// listing.
package discovery

import (
	"github.com/theo-nash/agentslack/internal/apperr"
	"github.com/theo-nash/agentslack/internal/store"
	"github.com/theo-nash/agentslack/internal/view"
)

type Engine struct {
	Store  *store.Store
	Linked func(scope string) ([]string, error)
}

func New(s *store.Store, linked func(scope string) ([]string, error)) *Engine {
	return &Engine{Store: s, Linked: linked}
}

// CanDM reports whether a1 may DM a2, and the failure reason when not:
// "blocked", "closed", "requires_permission", or "self".
func (e *Engine) CanDM(a1, a2 store.AgentID) (bool, string, error) {
	if a1 == a2 {
		return false, "self", nil
	}
	ok, err := view.DMAccess(e.Store, a1, a2)
	if err != nil {
		return false, "", err
	}
	if ok {
		return true, "", nil
	}

	blocked, err := dmBlocked(e.Store, a1, a2)
	if err != nil {
		return false, "", err
	}
	if blocked {
		return false, "blocked", nil
	}
	receiver, err := e.Store.GetAgent(a2)
	if err == nil && receiver.DMPolicy == "closed" {
		return false, "closed", nil
	}
	return false, "requires_permission", nil
}

func dmBlocked(s *store.Store, a1, a2 store.AgentID) (bool, error) {
	p, err := s.GetDMPermission(a1, a2)
	if err == nil && p.Permission == "block" {
		return true, nil
	}
	p, err = s.GetDMPermission(a2, a1)
	if err == nil && p.Permission == "block" {
		return true, nil
	}
	return false, nil
}

// CreateOrGetDM resolves the canonical DM handle for the pair and returns
// the existing channel if present, else creates a private two-member
// channel.
func (e *Engine) CreateOrGetDM(a1, a2 store.AgentID) (store.Channel, error) {
	ok, reason, err := e.CanDM(a1, a2)
	if err != nil {
		return store.Channel{}, err
	}
	if !ok {
		return store.Channel{}, apperr.New(apperr.DMNotAllowed, reason)
	}

	handle := view.DMHandle(a1, a2)
	if existing, err := e.Store.GetChannel(handle); err == nil {
		return existing, nil
	} else if err != store.ErrNotFound {
		return store.Channel{}, err
	}

	c, err := e.Store.CreateChannel(store.Channel{
		Handle: handle, ChannelType: "direct", AccessType: "private", Scope: store.GlobalScope, Name: handle,
	})
	if err == store.ErrAlreadyExists {
		return e.Store.GetChannel(handle)
	}
	if err != nil {
		return store.Channel{}, err
	}

	for _, p := range []store.AgentID{a1, a2} {
		if _, err := e.Store.AddMember(store.ChannelMember{
			Channel: handle, AgentName: p.Name, AgentScope: p.Scope,
			InvitedBy: "system", Source: "system",
			CanLeave: false, CanSend: true, CanInvite: false, CanManage: false,
		}); err != nil {
			return store.Channel{}, err
		}
	}
	return c, nil
}

func (e *Engine) SetDMPermission(owner, other store.AgentID, kind, reason string) error {
	if kind != "allow" && kind != "block" {
		return apperr.New(apperr.InvalidInput, "permission kind must be allow or block")
	}
	return e.Store.SetDMPermission(store.DMPermission{
		OwnerName: owner.Name, OwnerScope: owner.Scope,
		OtherName: other.Name, OtherScope: other.Scope,
		Permission: kind, Reason: reason,
	})
}

func (e *Engine) RemoveDMPermission(owner, other store.AgentID) error {
	return e.Store.RemoveDMPermission(owner, other)
}

// SetDMPolicy replaces an agent's DM policy tier; existing DM channels are
// unaffected.
func (e *Engine) SetDMPolicy(agent store.AgentID, policy string) error {
	a, err := e.Store.GetAgent(agent)
	if err != nil {
		return err
	}
	a.DMPolicy = policy
	_, err = e.Store.UpsertAgent(a)
	return err
}

// ListDiscoverable returns the agent_discovery projection for viewer,
// optionally filtered to agents whose dm_availability is available or
// requires_permission.
func (e *Engine) ListDiscoverable(viewer store.AgentID, filterByDM bool) ([]view.AgentDiscoveryEntry, error) {
	entries, err := view.AgentDiscovery(e.Store, e.Linked, viewer)
	if err != nil {
		return nil, err
	}
	if !filterByDM {
		return entries, nil
	}
	out := entries[:0]
	for _, entry := range entries {
		if entry.Availability == view.DMAvailable || entry.Availability == view.DMRequiresPermission {
			out = append(out, entry)
		}
	}
	return out, nil
}
