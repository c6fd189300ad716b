// Package orchestrator is the flat dispatcher sitting between the tool
// surface (MCP, HTTP) and the channel/message/discovery engines: it resolves
// the caller, resolves scope defaults for bare channel names, routes to the
// right engine, and shapes every result into {ok, content} or {ok=false,
// error}.
package orchestrator

import (
	"context"
	"encoding/json"
	"time"

	"github.com/theo-nash/agentslack/internal/apperr"
	"github.com/theo-nash/agentslack/internal/channel"
	"github.com/theo-nash/agentslack/internal/discovery"
	"github.com/theo-nash/agentslack/internal/logging"
	"github.com/theo-nash/agentslack/internal/message"
	"github.com/theo-nash/agentslack/internal/session"
	"github.com/theo-nash/agentslack/internal/store"
)

type Orchestrator struct {
	Store     *store.Store
	Session   *session.Engine
	Channel   *channel.Engine
	Message   *message.Engine
	Discovery *discovery.Engine
}

func New(s *store.Store, sess *session.Engine, ch *channel.Engine, msg *message.Engine, disc *discovery.Engine) *Orchestrator {
	return &Orchestrator{Store: s, Session: sess, Channel: ch, Message: msg, Discovery: disc}
}

// Result is the uniform tool-dispatch envelope: {ok:true, content} or
// {ok:false, error}.
type Result struct {
	OK      bool   `json:"ok"`
	Content string `json:"content,omitempty"`
	Error   string `json:"error,omitempty"`
}

func ok(content string) Result {
	return Result{OK: true, Content: content}
}

func okJSON(v any) Result {
	data, err := json.Marshal(v)
	if err != nil {
		return fail(apperr.Wrap(apperr.Internal, "marshal result", err))
	}
	return ok(string(data))
}

func fail(err error) Result {
	kind := apperr.KindOf(err)
	if kind == apperr.Internal {
		logging.Error().Err(err).Msg("orchestrator internal error")
		return Result{OK: false, Error: string(kind) + ": internal error"}
	}
	return Result{OK: false, Error: string(kind) + ": " + err.Error()}
}

// resolve validates agent_id presence and resolves it against the caller's
// session, per the Resolve caller order.
func (o *Orchestrator) resolve(sessionID, agentID string) (store.AgentID, error) {
	if agentID == "" {
		return store.AgentID{}, apperr.New(apperr.InvalidInput, "agent_id is required")
	}
	return o.Session.ResolveCaller(sessionID, agentID)
}

// scope resolves a bare channel name into a handle using the viewer's
// default scope; names already containing ':' pass through untouched.
func (o *Orchestrator) scope(viewer store.AgentID, name string) string {
	return o.Session.ResolveScope(viewer, name)
}

// ─── Session & project tools (agent_id resolution exempt) ──────────────────

type RegisterSessionArgs struct {
	SessionID      string `json:"session_id"`
	Cwd            string `json:"cwd"`
	ProjectPath    string `json:"project_path,omitempty"`
	DisplayName    string `json:"display_name,omitempty"`
	TranscriptPath string `json:"transcript_path,omitempty"`
}

func (o *Orchestrator) RegisterSession(args RegisterSessionArgs) Result {
	sess, err := o.Session.Register(session.RegisterRequest{
		ID: args.SessionID, Cwd: args.Cwd, ProjectPath: args.ProjectPath,
		DisplayName: args.DisplayName, TranscriptPath: args.TranscriptPath,
	})
	if err != nil {
		return fail(err)
	}
	return okJSON(sess)
}

func (o *Orchestrator) GetCurrentProject(sessionID string) Result {
	sess, err := o.Store.GetSession(sessionID)
	if err != nil {
		return fail(err)
	}
	if sess.ProjectID == nil {
		return ok(`{"scope":"global"}`)
	}
	proj, err := o.Store.GetProject(*sess.ProjectID)
	if err != nil {
		return fail(err)
	}
	return okJSON(proj)
}

func (o *Orchestrator) ListProjects() Result {
	projects, err := o.Store.ListProjects()
	if err != nil {
		return fail(err)
	}
	return okJSON(projects)
}

func (o *Orchestrator) GetLinkedProjects(projectID string) Result {
	links, err := o.Store.LinkedProjects(projectID)
	if err != nil {
		return fail(err)
	}
	return okJSON(links)
}

func (o *Orchestrator) RecordToolCall(sessionID, toolName string, inputs map[string]any) Result {
	outcome, err := o.Session.RecordToolCall(sessionID, toolName, inputs)
	if err != nil {
		return fail(err)
	}
	return okJSON(map[string]string{"outcome": string(outcome)})
}

// ─── Channel lifecycle & membership ─────────────────────────────────────────

type CreateChannelArgs struct {
	AgentID     string `json:"agent_id"`
	Name        string `json:"name"`
	AccessType  string `json:"access_type,omitempty"`
	Description string `json:"description,omitempty"`
	IsDefault   bool   `json:"is_default,omitempty"`
}

func (o *Orchestrator) CreateChannel(sessionID string, args CreateChannelArgs) Result {
	agent, err := o.resolve(sessionID, args.AgentID)
	if err != nil {
		return fail(err)
	}
	c, err := o.Channel.Create(channel.CreateRequest{
		Name: args.Name, Scope: agent.Scope, AccessType: args.AccessType,
		Creator: agent, IsDefault: args.IsDefault,
	})
	if err != nil {
		return fail(err)
	}
	if args.Description != "" {
		c.Description = args.Description
	}
	return okJSON(c)
}

func (o *Orchestrator) ArchiveChannel(sessionID, agentID, channelName string) Result {
	agent, err := o.resolve(sessionID, agentID)
	if err != nil {
		return fail(err)
	}
	handle := o.scope(agent, channelName)
	if err := o.Channel.Archive(handle, agent); err != nil {
		return fail(err)
	}
	return ok("archived")
}

func (o *Orchestrator) UnarchiveChannel(sessionID, agentID, channelName string) Result {
	agent, err := o.resolve(sessionID, agentID)
	if err != nil {
		return fail(err)
	}
	handle := o.scope(agent, channelName)
	if err := o.Channel.Unarchive(handle, agent); err != nil {
		return fail(err)
	}
	return ok("unarchived")
}

func (o *Orchestrator) JoinChannel(sessionID, agentID, channelName string) Result {
	agent, err := o.resolve(sessionID, agentID)
	if err != nil {
		return fail(err)
	}
	handle := o.scope(agent, channelName)
	m, err := o.Channel.Join(agent, handle)
	if err != nil {
		return fail(err)
	}
	return okJSON(m)
}

func (o *Orchestrator) LeaveChannel(sessionID, agentID, channelName string) Result {
	agent, err := o.resolve(sessionID, agentID)
	if err != nil {
		return fail(err)
	}
	handle := o.scope(agent, channelName)
	if err := o.Channel.Leave(handle, agent); err != nil {
		return fail(err)
	}
	return ok("left")
}

func (o *Orchestrator) InviteToChannel(sessionID, agentID, channelName, inviteeID string) Result {
	agent, err := o.resolve(sessionID, agentID)
	if err != nil {
		return fail(err)
	}
	invitee, err := o.resolve(sessionID, inviteeID)
	if err != nil {
		return fail(err)
	}
	handle := o.scope(agent, channelName)
	m, err := o.Channel.Invite(handle, invitee, agent)
	if err != nil {
		return fail(err)
	}
	return okJSON(m)
}

func (o *Orchestrator) ListChannels(sessionID, agentID string) Result {
	agent, err := o.resolve(sessionID, agentID)
	if err != nil {
		return fail(err)
	}
	channels, err := o.Channel.ListAvailable(agent)
	if err != nil {
		return fail(err)
	}
	return okJSON(channels)
}

// ─── Messages ────────────────────────────────────────────────────────────────

type SendMessageArgs struct {
	AgentID  string         `json:"agent_id"`
	Channel  string         `json:"channel"`
	Content  string         `json:"content"`
	Thread   string         `json:"thread,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

func (o *Orchestrator) SendMessage(ctx context.Context, sessionID string, args SendMessageArgs) Result {
	agent, err := o.resolve(sessionID, args.AgentID)
	if err != nil {
		return fail(err)
	}
	handle := o.scope(agent, args.Channel)
	m, err := o.Message.Send(ctx, message.SendRequest{
		Channel: handle, Sender: agent, Content: args.Content,
		Metadata: args.Metadata, Thread: args.Thread,
	})
	if err != nil {
		return fail(err)
	}
	return okJSON(m)
}

type SendDMArgs struct {
	AgentID     string `json:"agent_id"`
	RecipientID string `json:"recipient_id"`
	Content     string `json:"content"`
}

func (o *Orchestrator) SendDM(ctx context.Context, sessionID string, args SendDMArgs) Result {
	agent, err := o.resolve(sessionID, args.AgentID)
	if err != nil {
		return fail(err)
	}
	recipient, err := o.resolve(sessionID, args.RecipientID)
	if err != nil {
		return fail(err)
	}
	c, err := o.Discovery.CreateOrGetDM(agent, recipient)
	if err != nil {
		return fail(err)
	}
	m, err := o.Message.Send(ctx, message.SendRequest{Channel: c.Handle, Sender: agent, Content: args.Content})
	if err != nil {
		return fail(err)
	}
	return okJSON(m)
}

func (o *Orchestrator) EditMessage(sessionID, agentID string, messageID int64, content string) Result {
	agent, err := o.resolve(sessionID, agentID)
	if err != nil {
		return fail(err)
	}
	m, err := o.Message.Edit(messageID, agent, content)
	if err != nil {
		return fail(err)
	}
	return okJSON(m)
}

func (o *Orchestrator) DeleteMessage(sessionID, agentID string, messageID int64) Result {
	agent, err := o.resolve(sessionID, agentID)
	if err != nil {
		return fail(err)
	}
	if err := o.Message.Delete(messageID, agent); err != nil {
		return fail(err)
	}
	return ok("deleted")
}

func (o *Orchestrator) GetMessage(sessionID, agentID string, messageID int64) Result {
	agent, err := o.resolve(sessionID, agentID)
	if err != nil {
		return fail(err)
	}
	m, err := o.Message.Get(messageID, &agent)
	if err != nil {
		return fail(err)
	}
	return okJSON(m)
}

func (o *Orchestrator) GetMessages(sessionID, agentID, channelName string, limit int, beforeID int64) Result {
	agent, err := o.resolve(sessionID, agentID)
	if err != nil {
		return fail(err)
	}
	handle := o.scope(agent, channelName)
	if _, err := o.Store.GetMember(handle, agent); err != nil {
		if err == store.ErrNotFound {
			return fail(apperr.New(apperr.NotFound, "channel not visible to agent"))
		}
		return fail(err)
	}
	msgs, err := o.Store.ListMessages(handle, limit, beforeID)
	if err != nil {
		return fail(err)
	}
	return okJSON(msgs)
}

func (o *Orchestrator) GetThread(sessionID, agentID, threadHandle string) Result {
	agent, err := o.resolve(sessionID, agentID)
	if err != nil {
		return fail(err)
	}
	msgs, err := o.Store.ListThread(threadHandle)
	if err != nil {
		return fail(err)
	}
	if len(msgs) > 0 {
		if _, err := o.Store.GetMember(msgs[0].Channel, agent); err != nil {
			if err == store.ErrNotFound {
				return fail(apperr.New(apperr.NotFound, "thread not visible to agent"))
			}
			return fail(err)
		}
	}
	return okJSON(msgs)
}

type SearchArgs struct {
	AgentID string   `json:"agent_id"`
	Query   string   `json:"query"`
	Channels []string `json:"channels,omitempty"`
	Senders  []string `json:"senders,omitempty"`
	Profile  string   `json:"profile,omitempty"`
	Limit    int      `json:"limit,omitempty"`
}

func (o *Orchestrator) Search(ctx context.Context, sessionID string, args SearchArgs) Result {
	agent, err := o.resolve(sessionID, args.AgentID)
	if err != nil {
		return fail(err)
	}
	hits, err := o.Message.Search(ctx, agent, args.Query, message.SearchFilters{
		Channels: args.Channels, Senders: args.Senders, Profile: args.Profile, Limit: args.Limit,
	})
	if err != nil {
		return fail(err)
	}
	return okJSON(hits)
}

// ─── Notes (private per-agent notebooks) ────────────────────────────────────

func notesHandle(agent store.AgentID) string {
	return "notes:" + agent.Name + ":" + agent.Scope
}

// ensureNotes returns the agent's notes channel, creating it (single member,
// non-leavable, private) on first use.
func (o *Orchestrator) ensureNotes(agent store.AgentID) (store.Channel, error) {
	handle := notesHandle(agent)
	if c, err := o.Store.GetChannel(handle); err == nil {
		return c, nil
	} else if err != store.ErrNotFound {
		return store.Channel{}, err
	}

	c, err := o.Store.CreateChannel(store.Channel{
		Handle: handle, ChannelType: "notes", AccessType: "private", Scope: agent.Scope, Name: agent.Name,
		CreatorName: store.NullableString(agent.Name), CreatorScope: store.NullableString(agent.Scope),
	})
	if err == store.ErrAlreadyExists {
		return o.Store.GetChannel(handle)
	}
	if err != nil {
		return store.Channel{}, err
	}
	if _, err := o.Store.AddMember(store.ChannelMember{
		Channel: handle, AgentName: agent.Name, AgentScope: agent.Scope,
		InvitedBy: "system", Source: "system",
		CanLeave: false, CanSend: true, CanInvite: false, CanManage: true,
	}); err != nil {
		return store.Channel{}, err
	}
	return c, nil
}

func (o *Orchestrator) WriteNotes(ctx context.Context, sessionID, agentID, content string) Result {
	agent, err := o.resolve(sessionID, agentID)
	if err != nil {
		return fail(err)
	}
	notes, err := o.ensureNotes(agent)
	if err != nil {
		return fail(err)
	}
	m, err := o.Message.Send(ctx, message.SendRequest{Channel: notes.Handle, Sender: agent, Content: content})
	if err != nil {
		return fail(err)
	}
	return okJSON(m)
}

func (o *Orchestrator) ReadNotes(sessionID, agentID string, limit int, beforeID int64) Result {
	agent, err := o.resolve(sessionID, agentID)
	if err != nil {
		return fail(err)
	}
	notes, err := o.ensureNotes(agent)
	if err != nil {
		return fail(err)
	}
	msgs, err := o.Store.ListMessages(notes.Handle, limit, beforeID)
	if err != nil {
		return fail(err)
	}
	return okJSON(msgs)
}

// PeekNotes reads another agent's notebook. Unlike agent_channels membership,
// this is gated on agent_discovery reachability (same scope, linked scope, or
// a global viewer) rather than channel membership, since notes channels have
// exactly one member and are never joinable.
func (o *Orchestrator) PeekNotes(sessionID, agentID, targetID string, limit int) Result {
	viewer, err := o.resolve(sessionID, agentID)
	if err != nil {
		return fail(err)
	}
	target, err := o.resolve(sessionID, targetID)
	if err != nil {
		return fail(err)
	}
	linkedScopes, err := o.Discovery.Linked(viewer.Scope)
	if err != nil {
		return fail(err)
	}
	reachable := viewer == target || viewer.IsGlobal() || viewer.Scope == target.Scope
	if !reachable {
		for _, sc := range linkedScopes {
			if sc == target.Scope {
				reachable = true
				break
			}
		}
	}
	if !reachable {
		return fail(apperr.New(apperr.PermissionDenied, "target's notebook is not reachable from this scope"))
	}

	handle := notesHandle(target)
	if _, err := o.Store.GetChannel(handle); err != nil {
		if err == store.ErrNotFound {
			return okJSON([]store.Message{})
		}
		return fail(err)
	}
	msgs, err := o.Store.ListMessages(handle, limit, 0)
	if err != nil {
		return fail(err)
	}
	return okJSON(msgs)
}

// ─── Agents & discovery ──────────────────────────────────────────────────────

func (o *Orchestrator) ListAgents(sessionID, agentID string, filterByDM bool) Result {
	viewer, err := o.resolve(sessionID, agentID)
	if err != nil {
		return fail(err)
	}
	entries, err := o.Discovery.ListDiscoverable(viewer, filterByDM)
	if err != nil {
		return fail(err)
	}
	return okJSON(entries)
}

func (o *Orchestrator) GetAgent(sessionID, agentID, targetID string) Result {
	viewer, err := o.resolve(sessionID, agentID)
	if err != nil {
		return fail(err)
	}
	target, err := o.resolve(sessionID, targetID)
	if err != nil {
		return fail(err)
	}
	entries, err := o.Discovery.ListDiscoverable(viewer, false)
	if err != nil {
		return fail(err)
	}
	for _, e := range entries {
		if e.Agent == target {
			return okJSON(e)
		}
	}
	return fail(apperr.New(apperr.NotFound, "agent not discoverable from this scope"))
}

func (o *Orchestrator) SetDMPermission(sessionID, agentID, otherID, kind, reason string) Result {
	owner, err := o.resolve(sessionID, agentID)
	if err != nil {
		return fail(err)
	}
	other, err := o.resolve(sessionID, otherID)
	if err != nil {
		return fail(err)
	}
	if err := o.Discovery.SetDMPermission(owner, other, kind, reason); err != nil {
		return fail(err)
	}
	return ok("updated")
}

func (o *Orchestrator) RemoveDMPermission(sessionID, agentID, otherID string) Result {
	owner, err := o.resolve(sessionID, agentID)
	if err != nil {
		return fail(err)
	}
	other, err := o.resolve(sessionID, otherID)
	if err != nil {
		return fail(err)
	}
	if err := o.Discovery.RemoveDMPermission(owner, other); err != nil {
		return fail(err)
	}
	return ok("removed")
}

func (o *Orchestrator) SetDMPolicy(sessionID, agentID, policy string) Result {
	agent, err := o.resolve(sessionID, agentID)
	if err != nil {
		return fail(err)
	}
	if err := o.Discovery.SetDMPolicy(agent, policy); err != nil {
		return fail(err)
	}
	return ok("updated")
}

// PruneExpired removes sessions and tool-call dedup rows past their
// configured retention windows. No tool call or CLI subcommand invokes it.
func (o *Orchestrator) PruneExpired(retention, dedupWindow time.Duration) (int64, int64, error) {
	prunedSessions, err := o.Store.PruneSessions(store.RelativeWindowExpr(retention))
	if err != nil {
		return 0, 0, err
	}
	prunedCalls, err := o.Store.PruneToolCalls(store.RelativeWindowExpr(dedupWindow))
	if err != nil {
		return prunedSessions, 0, err
	}
	return prunedSessions, prunedCalls, nil
}
