// Package channel implements the channel engine: lifecycle (create,
// archive), membership (join, invite, leave, apply-defaults), and the
// access-type rules that govern them.
package channel

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/theo-nash/agentslack/internal/apperr"
	"github.com/theo-nash/agentslack/internal/store"
)

var nameRE = regexp.MustCompile(`^[a-z0-9-]+$`)

// Engine wires the channel lifecycle and membership rules against a store,
// a pairwise project-link predicate, and a scope's-linked-scopes lookup
// (both resolved against the session package's project-link table).
type Engine struct {
	Store        *store.Store
	Linked       func(projectA, projectB string) (bool, error)
	LinkedScopes func(scope string) ([]string, error)
}

func New(s *store.Store, linked func(a, b string) (bool, error), linkedScopes func(scope string) ([]string, error)) *Engine {
	return &Engine{Store: s, Linked: linked, LinkedScopes: linkedScopes}
}

// Handle builds a channel's canonical handle from its scope and name.
func Handle(scope, name string) string {
	return scope + ":" + name
}

type CreateRequest struct {
	Name       string
	Scope      string // "global" or a project id
	AccessType string // open|members|private
	Creator    store.AgentID
	IsDefault  bool
}

// Create inserts a channel and, for members/private channels, adds the
// creator as a manager.
func (e *Engine) Create(req CreateRequest) (store.Channel, error) {
	if !nameRE.MatchString(req.Name) {
		return store.Channel{}, apperr.New(apperr.InvalidInput, "channel name must match ^[a-z0-9-]+$")
	}
	if req.AccessType == "" {
		req.AccessType = "open"
	}
	handle := Handle(req.Scope, req.Name)

	c := store.Channel{
		Handle: handle, ChannelType: "channel", AccessType: req.AccessType,
		Scope: req.Scope, Name: req.Name, IsDefault: req.IsDefault,
		CreatorName: store.NullableString(req.Creator.Name), CreatorScope: store.NullableString(req.Creator.Scope),
	}
	created, err := e.Store.CreateChannel(c)
	if err == store.ErrAlreadyExists {
		existing, getErr := e.Store.GetChannel(handle)
		if getErr != nil {
			return store.Channel{}, getErr
		}
		return existing, nil
	}
	if err != nil {
		return store.Channel{}, err
	}

	if req.AccessType == "members" || req.AccessType == "private" {
		_, err := e.Store.AddMember(store.ChannelMember{
			Channel: handle, AgentName: req.Creator.Name, AgentScope: req.Creator.Scope,
			InvitedBy: "self", Source: "manual",
			CanLeave: true, CanSend: true, CanManage: true,
			CanInvite: req.AccessType == "members",
		})
		if err != nil {
			return store.Channel{}, err
		}
	}
	return created, nil
}

func (e *Engine) Archive(channel string, requester store.AgentID) error {
	m, err := e.Store.GetMember(channel, requester)
	if err != nil {
		if err == store.ErrNotFound {
			return apperr.New(apperr.PermissionDenied, "not a member")
		}
		return err
	}
	if !m.CanManage {
		return apperr.New(apperr.PermissionDenied, "requires can_manage")
	}
	return e.Store.SetChannelArchived(channel, true)
}

func (e *Engine) Unarchive(channel string, requester store.AgentID) error {
	m, err := e.Store.GetMember(channel, requester)
	if err != nil {
		if err == store.ErrNotFound {
			return apperr.New(apperr.PermissionDenied, "not a member")
		}
		return err
	}
	if !m.CanManage {
		return apperr.New(apperr.PermissionDenied, "requires can_manage")
	}
	return e.Store.SetChannelArchived(channel, false)
}

// Join is the self-service path for open channels.
func (e *Engine) Join(agent store.AgentID, channelHandle string) (store.ChannelMember, error) {
	c, err := e.Store.GetChannel(channelHandle)
	if err != nil {
		if err == store.ErrNotFound {
			return store.ChannelMember{}, apperr.New(apperr.NotFound, "channel not found")
		}
		return store.ChannelMember{}, err
	}
	if c.Archived {
		return store.ChannelMember{}, apperr.New(apperr.NotFound, "channel archived")
	}
	if c.AccessType != "open" {
		return store.ChannelMember{}, apperr.New(apperr.Conflict, "NOT_OPEN")
	}
	if existing, err := e.Store.GetMember(channelHandle, agent); err == nil {
		return existing, nil
	} else if err != store.ErrNotFound {
		return store.ChannelMember{}, err
	}

	eligible, err := e.scopeEligible(agent, c.Scope)
	if err != nil {
		return store.ChannelMember{}, err
	}
	if !eligible {
		return store.ChannelMember{}, apperr.New(apperr.ScopeDenied, "agent's scope cannot join this channel")
	}

	return e.Store.AddMember(store.ChannelMember{
		Channel: channelHandle, AgentName: agent.Name, AgentScope: agent.Scope,
		InvitedBy: "self", Source: "manual",
		CanLeave: true, CanSend: true, CanInvite: true, CanManage: false,
	})
}

// scopeEligible implements the join eligibility rule: channel is global, or
// the channel's project equals the agent's scope, or the two projects are
// linked, or the agent is global.
func (e *Engine) scopeEligible(agent store.AgentID, channelScope string) (bool, error) {
	if channelScope == store.GlobalScope {
		return true, nil
	}
	if agent.Scope == channelScope {
		return true, nil
	}
	if agent.IsGlobal() {
		return true, nil
	}
	if e.Linked == nil {
		return false, nil
	}
	return e.Linked(agent.Scope, channelScope)
}

// Invite adds invitee to a members-only channel. The inviter must already
// be a member with can_invite=true.
func (e *Engine) Invite(channelHandle string, invitee, inviter store.AgentID) (store.ChannelMember, error) {
	c, err := e.Store.GetChannel(channelHandle)
	if err != nil {
		if err == store.ErrNotFound {
			return store.ChannelMember{}, apperr.New(apperr.NotFound, "channel not found")
		}
		return store.ChannelMember{}, err
	}
	if c.AccessType != "members" {
		return store.ChannelMember{}, apperr.New(apperr.Conflict, fmt.Sprintf("cannot invite to %s channel", c.AccessType))
	}
	inviterMember, err := e.Store.GetMember(channelHandle, inviter)
	if err != nil {
		if err == store.ErrNotFound {
			return store.ChannelMember{}, apperr.New(apperr.PermissionDenied, "inviter is not a member")
		}
		return store.ChannelMember{}, err
	}
	if !inviterMember.CanInvite {
		return store.ChannelMember{}, apperr.New(apperr.PermissionDenied, "inviter lacks can_invite")
	}

	if existing, err := e.Store.GetMember(channelHandle, invitee); err == nil {
		return existing, nil
	} else if err != store.ErrNotFound {
		return store.ChannelMember{}, err
	}

	return e.Store.AddMember(store.ChannelMember{
		Channel: channelHandle, AgentName: invitee.Name, AgentScope: invitee.Scope,
		InvitedBy: inviter.Name + "@" + inviter.Scope, Source: "manual",
		CanLeave: true, CanSend: true, CanInvite: false, CanManage: false,
	})
}

func (e *Engine) Leave(channelHandle string, agent store.AgentID) error {
	m, err := e.Store.GetMember(channelHandle, agent)
	if err != nil {
		if err == store.ErrNotFound {
			return apperr.New(apperr.NotFound, "NOT_MEMBER")
		}
		return err
	}
	if !m.CanLeave {
		return apperr.New(apperr.PermissionDenied, "CANNOT_LEAVE")
	}
	return e.Store.RemoveMember(channelHandle, agent)
}

// ApplyDefaults joins a newly-registered agent to every non-archived
// default channel visible to its scope, skipping any handle in exclude.
func (e *Engine) ApplyDefaults(agent store.AgentID, exclude map[string]bool) ([]store.ChannelMember, error) {
	defaults, err := e.Store.ListDefaultChannels(agent.Scope)
	if err != nil {
		return nil, err
	}
	var added []store.ChannelMember
	for _, c := range defaults {
		if exclude[c.Handle] {
			continue
		}
		if _, err := e.Store.GetMember(c.Handle, agent); err == nil {
			continue
		} else if err != store.ErrNotFound {
			return nil, err
		}
		invitedBy := "self"
		if c.AccessType != "open" {
			invitedBy = "system"
		}
		m, err := e.Store.AddMember(store.ChannelMember{
			Channel: c.Handle, AgentName: agent.Name, AgentScope: agent.Scope,
			InvitedBy: invitedBy, Source: "default", IsFromDefault: true,
			CanLeave: true, CanSend: true, CanInvite: c.AccessType == "open", CanManage: false,
		})
		if err != nil {
			return nil, err
		}
		added = append(added, m)
	}
	return added, nil
}

type AvailableChannel struct {
	store.Channel
	IsMember     bool   `json:"is_member"`
	CanJoin      bool   `json:"can_join"`
	AccessReason string `json:"access_reason"`
}

// ListAvailable returns every channel visible to the agent: channels it's
// a member of, plus same-project/linked-project/global channels it is
// scope-eligible to join.
func (e *Engine) ListAvailable(agent store.AgentID) ([]AvailableChannel, error) {
	scopes := []string{agent.Scope, store.GlobalScope}
	if e.LinkedScopes != nil {
		linked, err := e.LinkedScopes(agent.Scope)
		if err != nil {
			return nil, err
		}
		scopes = append(scopes, linked...)
	}
	all, err := e.Store.ListChannelsByScopes(scopes, false)
	if err != nil {
		return nil, err
	}
	out := make([]AvailableChannel, 0, len(all))
	for _, c := range all {
		if c.ChannelType != "channel" {
			continue
		}
		_, memberErr := e.Store.GetMember(c.Handle, agent)
		isMember := memberErr == nil
		if memberErr != nil && memberErr != store.ErrNotFound {
			return nil, memberErr
		}

		reason := ""
		canJoin := false
		if !isMember && c.AccessType == "open" {
			eligible, err := e.scopeEligible(agent, c.Scope)
			if err != nil {
				return nil, err
			}
			canJoin = eligible
			if eligible {
				reason = scopeReason(agent, c.Scope)
			}
		}
		if isMember {
			reason = "member"
		}
		out = append(out, AvailableChannel{Channel: c, IsMember: isMember, CanJoin: canJoin, AccessReason: reason})
	}
	return out, nil
}

func scopeReason(agent store.AgentID, channelScope string) string {
	switch {
	case channelScope == store.GlobalScope:
		return "global"
	case agent.Scope == channelScope:
		return "same_project"
	case agent.IsGlobal():
		return "viewer_global"
	default:
		return "linked_project"
	}
}

// ValidateName reports whether a channel name is well-formed, for callers
// that need to check before constructing a CreateRequest.
func ValidateName(name string) error {
	if !nameRE.MatchString(name) {
		return apperr.New(apperr.InvalidInput, "channel name must match ^[a-z0-9-]+$")
	}
	return nil
}

// IsGlob reports whether pattern contains glob metacharacters. ApplyDefaults
// does not call it and does not filter channels by pattern.
func IsGlob(pattern string) bool {
	return strings.ContainsAny(pattern, "*?[")
}
