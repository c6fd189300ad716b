// Package view implements the read-only projections derived from the
// store: the set of channels an agent can see, whether two agents may DM
// each other, and who a viewer can discover. Every function here is a pure
// query over the store — nothing here mutates state, and callers may
// materialize the results or recompute them on every call with identical
// answers either way.
package view

import (
	"sort"

	"github.com/theo-nash/agentslack/internal/store"
)

// DMHandle computes the canonical dm: channel handle for two agents by
// sorting the pair on (name, project-or-empty) so the handle is the same
// regardless of argument order.
func DMHandle(a, b store.AgentID) string {
	pa, pb := a.Scope, b.Scope
	if pa == store.GlobalScope {
		pa = ""
	}
	if pb == store.GlobalScope {
		pb = ""
	}
	first, second := [2]string{a.Name, pa}, [2]string{b.Name, pb}
	if less(second, first) {
		first, second = second, first
	}
	return "dm:" + first[0] + ":" + first[1] + ":" + second[0] + ":" + second[1]
}

func less(x, y [2]string) bool {
	if x[0] != y[0] {
		return x[0] < y[0]
	}
	return x[1] < y[1]
}

type AgentChannelsView struct {
	Channel     string `json:"channel"`
	AccessType  string `json:"access_type"`
	Scope       string `json:"scope"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Project     string `json:"project"`
}

// AgentChannels returns every channel the agent is currently a member of.
// Non-members see nothing through this view — ListAvailable in the
// channel engine covers joinable-but-not-joined channels.
func AgentChannels(s *store.Store, agent store.AgentID) ([]AgentChannelsView, error) {
	memberships, err := s.ListMemberships(agent)
	if err != nil {
		return nil, err
	}
	out := make([]AgentChannelsView, 0, len(memberships))
	for _, m := range memberships {
		c, err := s.GetChannel(m.Channel)
		if err != nil {
			continue
		}
		project := c.Scope
		if project == store.GlobalScope {
			project = ""
		}
		out = append(out, AgentChannelsView{
			Channel: c.Handle, AccessType: c.AccessType, Scope: c.Scope,
			Name: c.Name, Description: c.Description, Project: project,
		})
	}
	return out, nil
}

// DMAccess evaluates whether a1 may open a DM with a2 (the check is
// symmetric in what it examines, since DM channels are shared by both
// parties).
func DMAccess(s *store.Store, a1, a2 store.AgentID) (bool, error) {
	if a1 == a2 {
		return false, nil
	}

	blocked, err := anyBlock(s, a1, a2)
	if err != nil {
		return false, err
	}
	if blocked {
		return false, nil
	}

	if ok, err := receiverAllows(s, a2, a1); err != nil || !ok {
		return false, err
	}
	if ok, err := receiverAllows(s, a1, a2); err != nil || !ok {
		return false, err
	}
	return true, nil
}

func anyBlock(s *store.Store, a1, a2 store.AgentID) (bool, error) {
	p, err := s.GetDMPermission(a1, a2)
	if err == nil && p.Permission == "block" {
		return true, nil
	}
	if err != nil && err != store.ErrNotFound {
		return false, err
	}
	p, err = s.GetDMPermission(a2, a1)
	if err == nil && p.Permission == "block" {
		return true, nil
	}
	if err != nil && err != store.ErrNotFound {
		return false, err
	}
	return false, nil
}

// receiverAllows reports whether sender may DM receiver, from receiver's
// side of the policy: open always allows, restricted requires an explicit
// allow, closed never allows.
func receiverAllows(s *store.Store, receiver, sender store.AgentID) (bool, error) {
	agent, err := s.GetAgent(receiver)
	if err != nil {
		if err == store.ErrNotFound {
			return false, nil
		}
		return false, err
	}
	switch agent.DMPolicy {
	case "closed":
		return false, nil
	case "restricted":
		p, err := s.GetDMPermission(receiver, sender)
		if err == store.ErrNotFound {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		return p.Permission == "allow", nil
	default: // "open"
		return true, nil
	}
}

type DMAvailability string

const (
	DMAvailable           DMAvailability = "available"
	DMRequiresPermission  DMAvailability = "requires_permission"
	DMBlocked             DMAvailability = "blocked"
	DMUnavailable         DMAvailability = "unavailable"
)

type AgentDiscoveryEntry struct {
	Agent         store.AgentID  `json:"agent"`
	Description   string         `json:"description"`
	Status        string         `json:"status"`
	Availability  DMAvailability `json:"dm_availability"`
	HasExistingDM bool           `json:"has_existing_dm"`
}

// AgentDiscovery returns the agents viewer may see, ordered existing-DM
// partners first, then by availability tier, then by name.
func AgentDiscovery(s *store.Store, linked func(scope string) ([]string, error), viewer store.AgentID) ([]AgentDiscoveryEntry, error) {
	linkedScopes, err := linked(viewer.Scope)
	if err != nil {
		return nil, err
	}
	linkedSet := make(map[string]bool, len(linkedScopes))
	for _, sc := range linkedScopes {
		linkedSet[sc] = true
	}

	candidates, err := allAgents(s)
	if err != nil {
		return nil, err
	}

	var out []AgentDiscoveryEntry
	for _, a := range candidates {
		id := a.ID()
		if !discoverable(a, viewer, linkedSet) {
			continue
		}
		avail, err := availability(s, viewer, id)
		if err != nil {
			return nil, err
		}
		existing, err := hasExistingDM(s, viewer, id)
		if err != nil {
			return nil, err
		}
		out = append(out, AgentDiscoveryEntry{
			Agent: id, Description: a.Description, Status: a.Status,
			Availability: avail, HasExistingDM: existing,
		})
	}
	sortDiscovery(out)
	return out, nil
}

func discoverable(t store.Agent, v store.AgentID, linkedScopes map[string]bool) bool {
	if t.ID() == v {
		return true
	}
	switch t.Discoverability {
	case "public":
		return true
	case "project":
		if t.Scope == v.Scope {
			return true
		}
		if linkedScopes[t.Scope] {
			return true
		}
		if v.IsGlobal() {
			return true
		}
		return false
	default: // "private"
		return false
	}
}

func availability(s *store.Store, viewer, target store.AgentID) (DMAvailability, error) {
	if viewer == target {
		return DMUnavailable, nil
	}
	blocked, err := anyBlock(s, viewer, target)
	if err != nil {
		return "", err
	}
	if blocked {
		return DMBlocked, nil
	}
	targetAgent, err := s.GetAgent(target)
	if err != nil {
		if err == store.ErrNotFound {
			return DMUnavailable, nil
		}
		return "", err
	}
	switch targetAgent.DMPolicy {
	case "closed":
		return DMUnavailable, nil
	case "restricted":
		p, err := s.GetDMPermission(target, viewer)
		if err == store.ErrNotFound {
			return DMRequiresPermission, nil
		}
		if err != nil {
			return "", err
		}
		if p.Permission == "allow" {
			return DMAvailable, nil
		}
		return DMRequiresPermission, nil
	default:
		return DMAvailable, nil
	}
}

func hasExistingDM(s *store.Store, a, b store.AgentID) (bool, error) {
	handle := DMHandle(a, b)
	_, err := s.GetChannel(handle)
	if err == store.ErrNotFound {
		return false, nil
	}
	return err == nil, err
}

func allAgents(s *store.Store) ([]store.Agent, error) {
	// Agents are scoped per (name, scope); ListAgents requires a scope
	// argument, so the global set is gathered by reading every project's
	// agents plus the global ones, de-duplicated by identity.
	seen := map[store.AgentID]store.Agent{}
	globals, err := s.ListAgents(store.GlobalScope)
	if err != nil {
		return nil, err
	}
	for _, a := range globals {
		seen[a.ID()] = a
	}
	projects, err := s.ListProjects()
	if err != nil {
		return nil, err
	}
	for _, p := range projects {
		scoped, err := s.ListAgents(p.ID)
		if err != nil {
			return nil, err
		}
		for _, a := range scoped {
			seen[a.ID()] = a
		}
	}
	out := make([]store.Agent, 0, len(seen))
	for _, a := range seen {
		out = append(out, a)
	}
	return out, nil
}

func discoveryTier(e AgentDiscoveryEntry) int {
	switch {
	case e.HasExistingDM:
		return 0
	case e.Availability == DMAvailable:
		return 1
	case e.Availability == DMRequiresPermission:
		return 2
	case e.Availability == DMBlocked:
		return 3
	default:
		return 4
	}
}

func sortDiscovery(entries []AgentDiscoveryEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		ti, tj := discoveryTier(entries[i]), discoveryTier(entries[j])
		if ti != tj {
			return ti < tj
		}
		return entries[i].Agent.Name < entries[j].Agent.Name
	})
}
