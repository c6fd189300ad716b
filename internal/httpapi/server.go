// Package httpapi mirrors the orchestrator's tool surface as a thin JSON
// REST API, for clients that can't speak MCP.
package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/theo-nash/agentslack/internal/apperr"
	"github.com/theo-nash/agentslack/internal/orchestrator"
)

// Server wraps the orchestrator with an http.Handler.
type Server struct {
	o *orchestrator.Orchestrator
}

// New creates a Server over the given orchestrator. The listen port is owned
// by the caller (http.Server / httptest.Server), not by this type.
func New(o *orchestrator.Orchestrator) *Server {
	return &Server{o: o}
}

// Handler builds the mux. Built fresh per call so tests can stand up
// independent httptest.Servers from the same Server value.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /sessions", s.handleRegisterSession)
	mux.HandleFunc("GET /projects", s.handleListProjects)
	mux.HandleFunc("GET /projects/{id}/linked", s.handleGetLinkedProjects)
	mux.HandleFunc("GET /projects/current", s.handleGetCurrentProject)

	mux.HandleFunc("POST /channels", s.handleCreateChannel)
	mux.HandleFunc("GET /channels", s.handleListChannels)
	mux.HandleFunc("POST /channels/{name}/archive", s.handleArchiveChannel)
	mux.HandleFunc("POST /channels/{name}/unarchive", s.handleUnarchiveChannel)
	mux.HandleFunc("POST /channels/{name}/join", s.handleJoinChannel)
	mux.HandleFunc("POST /channels/{name}/leave", s.handleLeaveChannel)
	mux.HandleFunc("POST /channels/{name}/invite", s.handleInviteToChannel)
	mux.HandleFunc("GET /channels/{name}/messages", s.handleGetMessages)

	mux.HandleFunc("POST /messages", s.handleSendMessage)
	mux.HandleFunc("POST /dms", s.handleSendDM)
	mux.HandleFunc("GET /threads/{handle}", s.handleGetThread)
	mux.HandleFunc("GET /search", s.handleSearch)

	mux.HandleFunc("POST /notes", s.handleWriteNotes)
	mux.HandleFunc("GET /notes", s.handleReadNotes)
	mux.HandleFunc("GET /notes/{agent}", s.handlePeekNotes)

	mux.HandleFunc("GET /agents", s.handleListAgents)
	mux.HandleFunc("GET /agents/{id}", s.handleGetAgent)
	mux.HandleFunc("POST /dm-permissions", s.handleSetDMPermission)
	mux.HandleFunc("DELETE /dm-permissions", s.handleRemoveDMPermission)
	mux.HandleFunc("POST /dm-policy", s.handleSetDMPolicy)

	return mux
}

// ─── request/response plumbing ──────────────────────────────────────────────

func decodeBody(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeResult translates an orchestrator.Result into an HTTP response.
// JSON content (from okJSON) is written through unparsed rather than
// re-encoded; plain-text content (e.g. "archived") is wrapped as {"status": ...}.
func writeResult(w http.ResponseWriter, res orchestrator.Result, okStatus int) {
	if !res.OK {
		writeJSON(w, statusForError(res.Error), map[string]string{"error": res.Error})
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(okStatus)
	switch {
	case res.Content == "":
		_, _ = w.Write([]byte("{}"))
	case strings.HasPrefix(res.Content, "{") || strings.HasPrefix(res.Content, "["):
		// okJSON already produced a JSON document; pass it through unparsed.
		_, _ = w.Write([]byte(res.Content))
	default:
		// ok(plain text), e.g. "archived" — wrap as a JSON status document.
		_ = json.NewEncoder(w).Encode(map[string]string{"status": res.Content})
	}
}

// statusForError maps a "KIND: message" result error onto an HTTP status.
// The orchestrator only exposes Result, not the underlying error value, so
// the kind is recovered from its string prefix rather than apperr.KindOf.
func statusForError(errStr string) int {
	kind, _, _ := strings.Cut(errStr, ":")
	switch apperr.Kind(kind) {
	case apperr.NotFound:
		return http.StatusNotFound
	case apperr.PermissionDenied, apperr.ScopeDenied, apperr.DMNotAllowed:
		return http.StatusForbidden
	case apperr.AlreadyExists, apperr.Conflict:
		return http.StatusConflict
	case apperr.InvalidInput:
		return http.StatusBadRequest
	case apperr.Busy:
		return http.StatusServiceUnavailable
	case apperr.DegradedSearch:
		return http.StatusOK
	default:
		return http.StatusInternalServerError
	}
}

func sessionIDFromRequest(r *http.Request) string {
	if id := r.Header.Get("X-Agentslack-Session"); id != "" {
		return id
	}
	return r.URL.Query().Get("session_id")
}

func queryInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func queryInt64(r *http.Request, key string, def int64) int64 {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return def
	}
	return n
}

func queryCSV(r *http.Request, key string) []string {
	v := r.URL.Query().Get(key)
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ─── session & project handlers ─────────────────────────────────────────────

func (s *Server) handleRegisterSession(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ID             string `json:"id"`
		Cwd            string `json:"cwd"`
		ProjectPath    string `json:"project_path"`
		DisplayName    string `json:"display_name"`
		TranscriptPath string `json:"transcript_path"`
	}
	if err := decodeBody(r, &body); err != nil {
		badRequest(w, "invalid json")
		return
	}
	res := s.o.RegisterSession(orchestrator.RegisterSessionArgs{
		SessionID: body.ID, Cwd: body.Cwd, ProjectPath: body.ProjectPath,
		DisplayName: body.DisplayName, TranscriptPath: body.TranscriptPath,
	})
	writeResult(w, res, http.StatusCreated)
}

func (s *Server) handleGetCurrentProject(w http.ResponseWriter, r *http.Request) {
	writeResult(w, s.o.GetCurrentProject(sessionIDFromRequest(r)), http.StatusOK)
}

func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	writeResult(w, s.o.ListProjects(), http.StatusOK)
}

func (s *Server) handleGetLinkedProjects(w http.ResponseWriter, r *http.Request) {
	writeResult(w, s.o.GetLinkedProjects(r.PathValue("id")), http.StatusOK)
}

// ─── channel handlers ───────────────────────────────────────────────────────

func (s *Server) handleCreateChannel(w http.ResponseWriter, r *http.Request) {
	var body struct {
		AgentID     string `json:"agent_id"`
		Name        string `json:"name"`
		AccessType  string `json:"access_type"`
		Description string `json:"description"`
		IsDefault   bool   `json:"is_default"`
	}
	if err := decodeBody(r, &body); err != nil {
		badRequest(w, "invalid json")
		return
	}
	res := s.o.CreateChannel(sessionIDFromRequest(r), orchestrator.CreateChannelArgs{
		AgentID: body.AgentID, Name: body.Name, AccessType: body.AccessType,
		Description: body.Description, IsDefault: body.IsDefault,
	})
	writeResult(w, res, http.StatusCreated)
}

func (s *Server) handleListChannels(w http.ResponseWriter, r *http.Request) {
	writeResult(w, s.o.ListChannels(sessionIDFromRequest(r), r.URL.Query().Get("agent_id")), http.StatusOK)
}

func (s *Server) handleArchiveChannel(w http.ResponseWriter, r *http.Request) {
	agentID := agentIDFromBody(r)
	writeResult(w, s.o.ArchiveChannel(sessionIDFromRequest(r), agentID, r.PathValue("name")), http.StatusOK)
}

func (s *Server) handleUnarchiveChannel(w http.ResponseWriter, r *http.Request) {
	agentID := agentIDFromBody(r)
	writeResult(w, s.o.UnarchiveChannel(sessionIDFromRequest(r), agentID, r.PathValue("name")), http.StatusOK)
}

func (s *Server) handleJoinChannel(w http.ResponseWriter, r *http.Request) {
	agentID := agentIDFromBody(r)
	writeResult(w, s.o.JoinChannel(sessionIDFromRequest(r), agentID, r.PathValue("name")), http.StatusOK)
}

func (s *Server) handleLeaveChannel(w http.ResponseWriter, r *http.Request) {
	agentID := agentIDFromBody(r)
	writeResult(w, s.o.LeaveChannel(sessionIDFromRequest(r), agentID, r.PathValue("name")), http.StatusOK)
}

func (s *Server) handleInviteToChannel(w http.ResponseWriter, r *http.Request) {
	var body struct {
		AgentID   string `json:"agent_id"`
		InviteeID string `json:"invitee_id"`
	}
	if err := decodeBody(r, &body); err != nil {
		badRequest(w, "invalid json")
		return
	}
	res := s.o.InviteToChannel(sessionIDFromRequest(r), body.AgentID, r.PathValue("name"), body.InviteeID)
	writeResult(w, res, http.StatusOK)
}

func (s *Server) handleGetMessages(w http.ResponseWriter, r *http.Request) {
	agentID := r.URL.Query().Get("agent_id")
	limit := queryInt(r, "limit", 50)
	beforeID := queryInt64(r, "before_id", 0)
	res := s.o.GetMessages(sessionIDFromRequest(r), agentID, r.PathValue("name"), limit, beforeID)
	writeResult(w, res, http.StatusOK)
}

// agentIDFromBody reads {"agent_id": "..."} from a request body that may be
// empty (e.g. a bare POST .../join with the agent id only in the body).
func agentIDFromBody(r *http.Request) string {
	var body struct {
		AgentID string `json:"agent_id"`
	}
	_ = decodeBody(r, &body)
	return body.AgentID
}

// ─── message handlers ───────────────────────────────────────────────────────

func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	var body struct {
		AgentID  string         `json:"agent_id"`
		Channel  string         `json:"channel"`
		Content  string         `json:"content"`
		Thread   string         `json:"thread"`
		Metadata map[string]any `json:"metadata"`
	}
	if err := decodeBody(r, &body); err != nil {
		badRequest(w, "invalid json")
		return
	}
	res := s.o.SendMessage(r.Context(), sessionIDFromRequest(r), orchestrator.SendMessageArgs{
		AgentID: body.AgentID, Channel: body.Channel, Content: body.Content,
		Thread: body.Thread, Metadata: body.Metadata,
	})
	writeResult(w, res, http.StatusCreated)
}

func (s *Server) handleSendDM(w http.ResponseWriter, r *http.Request) {
	var body struct {
		AgentID     string `json:"agent_id"`
		RecipientID string `json:"recipient_id"`
		Content     string `json:"content"`
	}
	if err := decodeBody(r, &body); err != nil {
		badRequest(w, "invalid json")
		return
	}
	res := s.o.SendDM(r.Context(), sessionIDFromRequest(r), orchestrator.SendDMArgs{
		AgentID: body.AgentID, RecipientID: body.RecipientID, Content: body.Content,
	})
	writeResult(w, res, http.StatusCreated)
}

func (s *Server) handleGetThread(w http.ResponseWriter, r *http.Request) {
	agentID := r.URL.Query().Get("agent_id")
	res := s.o.GetThread(sessionIDFromRequest(r), agentID, r.PathValue("handle"))
	writeResult(w, res, http.StatusOK)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	res := s.o.Search(r.Context(), sessionIDFromRequest(r), orchestrator.SearchArgs{
		AgentID:  q.Get("agent_id"),
		Query:    q.Get("q"),
		Channels: queryCSV(r, "channels"),
		Senders:  queryCSV(r, "senders"),
		Profile:  q.Get("profile"),
		Limit:    queryInt(r, "limit", 50),
	})
	writeResult(w, res, http.StatusOK)
}

// ─── notes handlers ─────────────────────────────────────────────────────────

func (s *Server) handleWriteNotes(w http.ResponseWriter, r *http.Request) {
	var body struct {
		AgentID string `json:"agent_id"`
		Content string `json:"content"`
	}
	if err := decodeBody(r, &body); err != nil {
		badRequest(w, "invalid json")
		return
	}
	res := s.o.WriteNotes(r.Context(), sessionIDFromRequest(r), body.AgentID, body.Content)
	writeResult(w, res, http.StatusCreated)
}

func (s *Server) handleReadNotes(w http.ResponseWriter, r *http.Request) {
	agentID := r.URL.Query().Get("agent_id")
	limit := queryInt(r, "limit", 50)
	beforeID := queryInt64(r, "before_id", 0)
	writeResult(w, s.o.ReadNotes(sessionIDFromRequest(r), agentID, limit, beforeID), http.StatusOK)
}

func (s *Server) handlePeekNotes(w http.ResponseWriter, r *http.Request) {
	agentID := r.URL.Query().Get("agent_id")
	limit := queryInt(r, "limit", 50)
	res := s.o.PeekNotes(sessionIDFromRequest(r), agentID, r.PathValue("agent"), limit)
	writeResult(w, res, http.StatusOK)
}

// ─── agents & discovery handlers ────────────────────────────────────────────

func (s *Server) handleListAgents(w http.ResponseWriter, r *http.Request) {
	agentID := r.URL.Query().Get("agent_id")
	filterByDM := r.URL.Query().Get("filter_by_dm") == "true"
	writeResult(w, s.o.ListAgents(sessionIDFromRequest(r), agentID, filterByDM), http.StatusOK)
}

func (s *Server) handleGetAgent(w http.ResponseWriter, r *http.Request) {
	agentID := r.URL.Query().Get("agent_id")
	writeResult(w, s.o.GetAgent(sessionIDFromRequest(r), agentID, r.PathValue("id")), http.StatusOK)
}

func (s *Server) handleSetDMPermission(w http.ResponseWriter, r *http.Request) {
	var body struct {
		AgentID string `json:"agent_id"`
		OtherID string `json:"other_id"`
		Kind    string `json:"kind"`
		Reason  string `json:"reason"`
	}
	if err := decodeBody(r, &body); err != nil {
		badRequest(w, "invalid json")
		return
	}
	res := s.o.SetDMPermission(sessionIDFromRequest(r), body.AgentID, body.OtherID, body.Kind, body.Reason)
	writeResult(w, res, http.StatusOK)
}

func (s *Server) handleRemoveDMPermission(w http.ResponseWriter, r *http.Request) {
	var body struct {
		AgentID string `json:"agent_id"`
		OtherID string `json:"other_id"`
	}
	if err := decodeBody(r, &body); err != nil {
		badRequest(w, "invalid json")
		return
	}
	res := s.o.RemoveDMPermission(sessionIDFromRequest(r), body.AgentID, body.OtherID)
	writeResult(w, res, http.StatusOK)
}

func (s *Server) handleSetDMPolicy(w http.ResponseWriter, r *http.Request) {
	var body struct {
		AgentID string `json:"agent_id"`
		Policy  string `json:"policy"`
	}
	if err := decodeBody(r, &body); err != nil {
		badRequest(w, "invalid json")
		return
	}
	res := s.o.SetDMPolicy(sessionIDFromRequest(r), body.AgentID, body.Policy)
	writeResult(w, res, http.StatusOK)
}
