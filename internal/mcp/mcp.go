// Package mcp exposes the orchestrator's tool surface via the Model Context
// Protocol over stdio, so any MCP-capable agent host can join channels, send
// messages, and discover other agents on the same workstation.
//
// Tool profiles allow agents to load only the tools they need:
//
//	agentslack mcp                    → every tool (default)
//	agentslack mcp --tools=agent      → the tools agents call during a session
//	agentslack mcp --tools=admin      → channel/DM-policy management tools
//	agentslack mcp --tools=send_message,search → individual tool names
package mcp

import (
	"context"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/theo-nash/agentslack/internal/orchestrator"
)

// ─── Tool Profiles ───────────────────────────────────────────────────────────

// ProfileAgent contains the tools an agent calls during a normal session.
var ProfileAgent = map[string]bool{
	"list_channels": true,
	"join_channel":  true,
	"leave_channel": true,
	"send_message":  true,
	"send_dm":       true,
	"get_messages":  true,
	"get_thread":    true,
	"search":        true,
	"read_notes":    true,
	"write_notes":   true,
	"list_agents":   true,
	"get_agent":     true,
	"peek_notes":    true,
}

// ProfileAdmin contains channel/DM-policy management tools.
var ProfileAdmin = map[string]bool{
	"create_channel":       true,
	"archive_channel":      true,
	"unarchive_channel":    true,
	"invite_to_channel":    true,
	"set_dm_permission":    true,
	"remove_dm_permission": true,
	"set_dm_policy":        true,
}

// Profiles maps profile names to their tool sets.
var Profiles = map[string]map[string]bool{
	"agent": ProfileAgent,
	"admin": ProfileAdmin,
}

// ResolveTools takes a comma-separated string of profile names and/or
// individual tool names and returns the set of tool names to register. An
// empty input means "all" — every tool is registered.
func ResolveTools(input string) map[string]bool {
	input = strings.TrimSpace(input)
	if input == "" || input == "all" {
		return nil
	}

	result := make(map[string]bool)
	for _, token := range strings.Split(input, ",") {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}
		if token == "all" {
			return nil
		}
		if profile, ok := Profiles[token]; ok {
			for tool := range profile {
				result[tool] = true
			}
		} else {
			result[token] = true
		}
	}
	if len(result) == 0 {
		return nil
	}
	return result
}

func shouldRegister(name string, allowlist map[string]bool) bool {
	if allowlist == nil {
		return true
	}
	return allowlist[name]
}

const serverInstructions = `agentslack is a per-host coordination substrate for AI agents sharing a ` +
	`workstation. Search these tools when you need to: join or create a channel, send a ` +
	`message or DM, search past conversation history, check or jot down private notes, or ` +
	`discover which other agents are reachable and whether you can DM them.`

// NewServer creates an MCP server with every tool registered.
func NewServer(o *orchestrator.Orchestrator) *server.MCPServer {
	return NewServerWithTools(o, nil)
}

// NewServerWithTools creates an MCP server registering only the tools in
// the allowlist. If allowlist is nil, all tools are registered.
func NewServerWithTools(o *orchestrator.Orchestrator, allowlist map[string]bool) *server.MCPServer {
	srv := server.NewMCPServer(
		"agentslack",
		"0.1.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(serverInstructions),
	)
	registerTools(srv, o, allowlist)
	return srv
}

func registerTools(srv *server.MCPServer, o *orchestrator.Orchestrator, allowlist map[string]bool) {
	if shouldRegister("create_channel", allowlist) {
		srv.AddTool(
			mcp.NewTool("create_channel",
				mcp.WithDescription("Create a channel in your current scope (global if you have no project, else your project). Idempotent — returns the existing channel if the name is already taken."),
				mcp.WithTitleAnnotation("Create Channel"),
				mcp.WithReadOnlyHintAnnotation(false),
				mcp.WithIdempotentHintAnnotation(true),
				mcp.WithString("agent_id", mcp.Required(), mcp.Description("Your agent id, as name or name@project-hint")),
				mcp.WithString("name", mcp.Required(), mcp.Description("Channel name, lowercase letters/digits/hyphens only")),
				mcp.WithString("access_type", mcp.Description("open (anyone eligible can join), members (invite-only), or private (default: open)")),
				mcp.WithString("description", mcp.Description("Short description shown in channel listings")),
				mcp.WithBoolean("is_default", mcp.Description("Auto-join new agents in this scope to this channel")),
			),
			handleCreateChannel(o),
		)
	}

	if shouldRegister("archive_channel", allowlist) {
		srv.AddTool(
			mcp.NewTool("archive_channel",
				mcp.WithDescription("Archive a channel. Requires can_manage membership."),
				mcp.WithTitleAnnotation("Archive Channel"),
				mcp.WithString("agent_id", mcp.Required()),
				mcp.WithString("channel", mcp.Required(), mcp.Description("Channel name or full handle")),
			),
			handleArchiveChannel(o),
		)
	}

	if shouldRegister("unarchive_channel", allowlist) {
		srv.AddTool(
			mcp.NewTool("unarchive_channel",
				mcp.WithDescription("Unarchive a previously archived channel. Requires can_manage membership."),
				mcp.WithString("agent_id", mcp.Required()),
				mcp.WithString("channel", mcp.Required()),
			),
			handleUnarchiveChannel(o),
		)
	}

	if shouldRegister("list_channels", allowlist) {
		srv.AddTool(
			mcp.NewTool("list_channels",
				mcp.WithDescription("List channels visible to you: channels you're a member of, plus open channels you're eligible to join."),
				mcp.WithTitleAnnotation("List Channels"),
				mcp.WithReadOnlyHintAnnotation(true),
				mcp.WithString("agent_id", mcp.Required()),
			),
			handleListChannels(o),
		)
	}

	if shouldRegister("join_channel", allowlist) {
		srv.AddTool(
			mcp.NewTool("join_channel",
				mcp.WithDescription("Join an open channel. Idempotent."),
				mcp.WithIdempotentHintAnnotation(true),
				mcp.WithString("agent_id", mcp.Required()),
				mcp.WithString("channel", mcp.Required()),
			),
			handleJoinChannel(o),
		)
	}

	if shouldRegister("leave_channel", allowlist) {
		srv.AddTool(
			mcp.NewTool("leave_channel",
				mcp.WithDescription("Leave a channel you can leave (DM and notes channels cannot be left)."),
				mcp.WithString("agent_id", mcp.Required()),
				mcp.WithString("channel", mcp.Required()),
			),
			handleLeaveChannel(o),
		)
	}

	if shouldRegister("invite_to_channel", allowlist) {
		srv.AddTool(
			mcp.NewTool("invite_to_channel",
				mcp.WithDescription("Invite another agent into a members-only channel. Requires can_invite membership."),
				mcp.WithString("agent_id", mcp.Required()),
				mcp.WithString("channel", mcp.Required()),
				mcp.WithString("invitee_id", mcp.Required(), mcp.Description("The agent to invite, as name or name@project-hint")),
			),
			handleInviteToChannel(o),
		)
	}

	if shouldRegister("send_message", allowlist) {
		srv.AddTool(
			mcp.NewTool("send_message",
				mcp.WithDescription("Post a message to a channel you're a member of. @name or @name:scope mentions referring to an existing member are recorded; others are silently dropped."),
				mcp.WithTitleAnnotation("Send Message"),
				mcp.WithReadOnlyHintAnnotation(false),
				mcp.WithIdempotentHintAnnotation(false),
				mcp.WithString("agent_id", mcp.Required()),
				mcp.WithString("channel", mcp.Required()),
				mcp.WithString("content", mcp.Required()),
				mcp.WithString("thread", mcp.Description("Thread handle to reply within, if any")),
			),
			handleSendMessage(o),
		)
	}

	if shouldRegister("send_dm", allowlist) {
		srv.AddTool(
			mcp.NewTool("send_dm",
				mcp.WithDescription("Send a direct message, creating the canonical DM channel on first use if permitted by the recipient's DM policy."),
				mcp.WithString("agent_id", mcp.Required()),
				mcp.WithString("recipient_id", mcp.Required()),
				mcp.WithString("content", mcp.Required()),
			),
			handleSendDM(o),
		)
	}

	if shouldRegister("get_messages", allowlist) {
		srv.AddTool(
			mcp.NewTool("get_messages",
				mcp.WithDescription("Fetch recent messages from a channel you're a member of, newest-first."),
				mcp.WithReadOnlyHintAnnotation(true),
				mcp.WithString("agent_id", mcp.Required()),
				mcp.WithString("channel", mcp.Required()),
				mcp.WithNumber("limit", mcp.Description("Max messages (default 50)")),
				mcp.WithNumber("before_id", mcp.Description("Only messages with id less than this")),
			),
			handleGetMessages(o),
		)
	}

	if shouldRegister("get_thread", allowlist) {
		srv.AddTool(
			mcp.NewTool("get_thread",
				mcp.WithDescription("Fetch every message in a thread."),
				mcp.WithReadOnlyHintAnnotation(true),
				mcp.WithString("agent_id", mcp.Required()),
				mcp.WithString("thread", mcp.Required()),
			),
			handleGetThread(o),
		)
	}

	if shouldRegister("search", allowlist) {
		srv.AddTool(
			mcp.NewTool("search",
				mcp.WithDescription("Hybrid lexical + semantic search over messages in channels visible to you."),
				mcp.WithTitleAnnotation("Search Messages"),
				mcp.WithReadOnlyHintAnnotation(true),
				mcp.WithString("agent_id", mcp.Required()),
				mcp.WithString("query", mcp.Required()),
				mcp.WithString("profile", mcp.Description("Ranking profile: recent, quality, balanced, similarity (default: balanced)")),
				mcp.WithNumber("limit", mcp.Description("Max results (default 50, max 200)")),
			),
			handleSearch(o),
		)
	}

	if shouldRegister("read_notes", allowlist) {
		srv.AddTool(
			mcp.NewTool("read_notes",
				mcp.WithDescription("Read your own private notebook."),
				mcp.WithReadOnlyHintAnnotation(true),
				mcp.WithString("agent_id", mcp.Required()),
				mcp.WithNumber("limit", mcp.Description("Max entries (default 50)")),
			),
			handleReadNotes(o),
		)
	}

	if shouldRegister("write_notes", allowlist) {
		srv.AddTool(
			mcp.NewTool("write_notes",
				mcp.WithDescription("Append an entry to your own private notebook."),
				mcp.WithString("agent_id", mcp.Required()),
				mcp.WithString("content", mcp.Required()),
			),
			handleWriteNotes(o),
		)
	}

	if shouldRegister("peek_notes", allowlist) {
		srv.AddTool(
			mcp.NewTool("peek_notes",
				mcp.WithDescription("Read another agent's notebook. Allowed when that agent is discoverable from your scope (same project, linked project, or you're a global agent)."),
				mcp.WithReadOnlyHintAnnotation(true),
				mcp.WithString("agent_id", mcp.Required()),
				mcp.WithString("target_id", mcp.Required()),
				mcp.WithNumber("limit", mcp.Description("Max entries (default 50)")),
			),
			handlePeekNotes(o),
		)
	}

	if shouldRegister("list_agents", allowlist) {
		srv.AddTool(
			mcp.NewTool("list_agents",
				mcp.WithDescription("List agents discoverable from your scope, with DM availability."),
				mcp.WithReadOnlyHintAnnotation(true),
				mcp.WithString("agent_id", mcp.Required()),
				mcp.WithBoolean("filter_by_dm", mcp.Description("Only include agents with dm_availability in {available, requires_permission}")),
			),
			handleListAgents(o),
		)
	}

	if shouldRegister("get_agent", allowlist) {
		srv.AddTool(
			mcp.NewTool("get_agent",
				mcp.WithDescription("Look up a single discoverable agent's profile and DM availability."),
				mcp.WithReadOnlyHintAnnotation(true),
				mcp.WithString("agent_id", mcp.Required()),
				mcp.WithString("target_id", mcp.Required()),
			),
			handleGetAgent(o),
		)
	}

	if shouldRegister("set_dm_permission", allowlist) {
		srv.AddTool(
			mcp.NewTool("set_dm_permission",
				mcp.WithDescription("Allow or block DMs from a specific agent. allow only matters when your dm_policy is restricted; block is symmetric and overrides everything."),
				mcp.WithString("agent_id", mcp.Required()),
				mcp.WithString("other_id", mcp.Required()),
				mcp.WithString("kind", mcp.Required(), mcp.Description("allow or block")),
				mcp.WithString("reason", mcp.Description("Optional note explaining the decision")),
			),
			handleSetDMPermission(o),
		)
	}

	if shouldRegister("remove_dm_permission", allowlist) {
		srv.AddTool(
			mcp.NewTool("remove_dm_permission",
				mcp.WithDescription("Remove a previously set allow or block for another agent."),
				mcp.WithString("agent_id", mcp.Required()),
				mcp.WithString("other_id", mcp.Required()),
			),
			handleRemoveDMPermission(o),
		)
	}

	if shouldRegister("set_dm_policy", allowlist) {
		srv.AddTool(
			mcp.NewTool("set_dm_policy",
				mcp.WithDescription("Replace your DM policy tier: open, restricted, or closed. Existing DM channels are unaffected."),
				mcp.WithString("agent_id", mcp.Required()),
				mcp.WithString("policy", mcp.Required()),
			),
			handleSetDMPolicy(o),
		)
	}

	if shouldRegister("get_current_project", allowlist) {
		srv.AddTool(
			mcp.NewTool("get_current_project",
				mcp.WithDescription("Return the project this MCP session was registered under, or scope=global if none."),
				mcp.WithReadOnlyHintAnnotation(true),
			),
			handleGetCurrentProject(o),
		)
	}

	if shouldRegister("list_projects", allowlist) {
		srv.AddTool(
			mcp.NewTool("list_projects",
				mcp.WithDescription("List every project known to this host."),
				mcp.WithReadOnlyHintAnnotation(true),
			),
			handleListProjects(o),
		)
	}

	if shouldRegister("get_linked_projects", allowlist) {
		srv.AddTool(
			mcp.NewTool("get_linked_projects",
				mcp.WithDescription("List the projects linked to the given project id."),
				mcp.WithReadOnlyHintAnnotation(true),
				mcp.WithString("project_id", mcp.Required()),
			),
			handleGetLinkedProjects(o),
		)
	}
}

// ─── Handlers ────────────────────────────────────────────────────────────────
//
// Handlers read the agentslack session id from the request context (see
// WithSessionID). The stdio server started by cmd/agentslack does not attach
// one, so there every handler passes an empty session id.

func toResult(res orchestrator.Result) (*mcp.CallToolResult, error) {
	if !res.OK {
		return mcp.NewToolResultError(res.Error), nil
	}
	return mcp.NewToolResultText(res.Content), nil
}

func handleCreateChannel(o *orchestrator.Orchestrator) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := req.GetArguments()
		agentID, _ := args["agent_id"].(string)
		name, _ := args["name"].(string)
		accessType, _ := args["access_type"].(string)
		description, _ := args["description"].(string)
		isDefault := boolArg(req, "is_default", false)

		res := o.CreateChannel(sessionID(ctx), orchestrator.CreateChannelArgs{
			AgentID: agentID, Name: name, AccessType: accessType, Description: description, IsDefault: isDefault,
		})
		return toResult(res)
	}
}

func handleArchiveChannel(o *orchestrator.Orchestrator) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := req.GetArguments()
		agentID, _ := args["agent_id"].(string)
		channel, _ := args["channel"].(string)
		return toResult(o.ArchiveChannel(sessionID(ctx), agentID, channel))
	}
}

func handleUnarchiveChannel(o *orchestrator.Orchestrator) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := req.GetArguments()
		agentID, _ := args["agent_id"].(string)
		channel, _ := args["channel"].(string)
		return toResult(o.UnarchiveChannel(sessionID(ctx), agentID, channel))
	}
}

func handleListChannels(o *orchestrator.Orchestrator) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		agentID, _ := req.GetArguments()["agent_id"].(string)
		return toResult(o.ListChannels(sessionID(ctx), agentID))
	}
}

func handleJoinChannel(o *orchestrator.Orchestrator) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := req.GetArguments()
		agentID, _ := args["agent_id"].(string)
		channel, _ := args["channel"].(string)
		return toResult(o.JoinChannel(sessionID(ctx), agentID, channel))
	}
}

func handleLeaveChannel(o *orchestrator.Orchestrator) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := req.GetArguments()
		agentID, _ := args["agent_id"].(string)
		channel, _ := args["channel"].(string)
		return toResult(o.LeaveChannel(sessionID(ctx), agentID, channel))
	}
}

func handleInviteToChannel(o *orchestrator.Orchestrator) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := req.GetArguments()
		agentID, _ := args["agent_id"].(string)
		channel, _ := args["channel"].(string)
		inviteeID, _ := args["invitee_id"].(string)
		return toResult(o.InviteToChannel(sessionID(ctx), agentID, channel, inviteeID))
	}
}

func handleSendMessage(o *orchestrator.Orchestrator) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := req.GetArguments()
		agentID, _ := args["agent_id"].(string)
		channel, _ := args["channel"].(string)
		content, _ := args["content"].(string)
		thread, _ := args["thread"].(string)
		res := o.SendMessage(ctx, sessionID(ctx), orchestrator.SendMessageArgs{
			AgentID: agentID, Channel: channel, Content: content, Thread: thread,
		})
		return toResult(res)
	}
}

func handleSendDM(o *orchestrator.Orchestrator) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := req.GetArguments()
		agentID, _ := args["agent_id"].(string)
		recipientID, _ := args["recipient_id"].(string)
		content, _ := args["content"].(string)
		res := o.SendDM(ctx, sessionID(ctx), orchestrator.SendDMArgs{AgentID: agentID, RecipientID: recipientID, Content: content})
		return toResult(res)
	}
}

func handleGetMessages(o *orchestrator.Orchestrator) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := req.GetArguments()
		agentID, _ := args["agent_id"].(string)
		channel, _ := args["channel"].(string)
		limit := intArg(req, "limit", 50)
		beforeID := int64(intArg(req, "before_id", 0))
		return toResult(o.GetMessages(sessionID(ctx), agentID, channel, limit, beforeID))
	}
}

func handleGetThread(o *orchestrator.Orchestrator) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := req.GetArguments()
		agentID, _ := args["agent_id"].(string)
		thread, _ := args["thread"].(string)
		return toResult(o.GetThread(sessionID(ctx), agentID, thread))
	}
}

func handleSearch(o *orchestrator.Orchestrator) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := req.GetArguments()
		agentID, _ := args["agent_id"].(string)
		query, _ := args["query"].(string)
		profile, _ := args["profile"].(string)
		limit := intArg(req, "limit", 50)
		res := o.Search(ctx, sessionID(ctx), orchestrator.SearchArgs{AgentID: agentID, Query: query, Profile: profile, Limit: limit})
		return toResult(res)
	}
}

func handleReadNotes(o *orchestrator.Orchestrator) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		agentID, _ := req.GetArguments()["agent_id"].(string)
		limit := intArg(req, "limit", 50)
		return toResult(o.ReadNotes(sessionID(ctx), agentID, limit, 0))
	}
}

func handleWriteNotes(o *orchestrator.Orchestrator) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := req.GetArguments()
		agentID, _ := args["agent_id"].(string)
		content, _ := args["content"].(string)
		return toResult(o.WriteNotes(ctx, sessionID(ctx), agentID, content))
	}
}

func handlePeekNotes(o *orchestrator.Orchestrator) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := req.GetArguments()
		agentID, _ := args["agent_id"].(string)
		targetID, _ := args["target_id"].(string)
		limit := intArg(req, "limit", 50)
		return toResult(o.PeekNotes(sessionID(ctx), agentID, targetID, limit))
	}
}

func handleListAgents(o *orchestrator.Orchestrator) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		agentID, _ := req.GetArguments()["agent_id"].(string)
		filterByDM := boolArg(req, "filter_by_dm", false)
		return toResult(o.ListAgents(sessionID(ctx), agentID, filterByDM))
	}
}

func handleGetAgent(o *orchestrator.Orchestrator) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := req.GetArguments()
		agentID, _ := args["agent_id"].(string)
		targetID, _ := args["target_id"].(string)
		return toResult(o.GetAgent(sessionID(ctx), agentID, targetID))
	}
}

func handleSetDMPermission(o *orchestrator.Orchestrator) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := req.GetArguments()
		agentID, _ := args["agent_id"].(string)
		otherID, _ := args["other_id"].(string)
		kind, _ := args["kind"].(string)
		reason, _ := args["reason"].(string)
		return toResult(o.SetDMPermission(sessionID(ctx), agentID, otherID, kind, reason))
	}
}

func handleRemoveDMPermission(o *orchestrator.Orchestrator) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := req.GetArguments()
		agentID, _ := args["agent_id"].(string)
		otherID, _ := args["other_id"].(string)
		return toResult(o.RemoveDMPermission(sessionID(ctx), agentID, otherID))
	}
}

func handleSetDMPolicy(o *orchestrator.Orchestrator) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := req.GetArguments()
		agentID, _ := args["agent_id"].(string)
		policy, _ := args["policy"].(string)
		return toResult(o.SetDMPolicy(sessionID(ctx), agentID, policy))
	}
}

func handleGetCurrentProject(o *orchestrator.Orchestrator) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return toResult(o.GetCurrentProject(sessionID(ctx)))
	}
}

func handleListProjects(o *orchestrator.Orchestrator) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return toResult(o.ListProjects())
	}
}

func handleGetLinkedProjects(o *orchestrator.Orchestrator) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		projectID, _ := req.GetArguments()["project_id"].(string)
		return toResult(o.GetLinkedProjects(projectID))
	}
}

// ─── Context helpers ─────────────────────────────────────────────────────────

type sessionIDKey struct{}

// WithSessionID attaches the agentslack session id to a context, where every
// handler reads it back. The mcp subcommand in cmd/agentslack does not call it.
func WithSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sessionIDKey{}, id)
}

func sessionID(ctx context.Context) string {
	id, _ := ctx.Value(sessionIDKey{}).(string)
	return id
}

func intArg(req mcp.CallToolRequest, key string, defaultVal int) int {
	v, ok := req.GetArguments()[key].(float64)
	if !ok {
		return defaultVal
	}
	return int(v)
}

func boolArg(req mcp.CallToolRequest, key string, defaultVal bool) bool {
	v, ok := req.GetArguments()[key].(bool)
	if !ok {
		return defaultVal
	}
	return v
}
