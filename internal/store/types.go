package store

// ─── Identifiers ─────────────────────────────────────────────────────────────

// AgentID names an agent by (name, scope). scope is either a project handle
// or the sentinel "global".
type AgentID struct {
	Name  string `json:"name"`
	Scope string `json:"scope"`
}

const GlobalScope = "global"

func (a AgentID) IsGlobal() bool { return a.Scope == "" || a.Scope == GlobalScope }

// ─── Rows ────────────────────────────────────────────────────────────────────

type Project struct {
	ID          string `json:"id"`
	Path        string `json:"path"`
	DisplayName string `json:"display_name"`
	CreatedAt   string `json:"created_at"`
	LastActive  string `json:"last_active"`
}

type Agent struct {
	Name            string  `json:"name"`
	Scope           string  `json:"scope"`
	Description     string  `json:"description"`
	Status          string  `json:"status"` // online|busy|offline
	DMPolicy        string  `json:"dm_policy"`
	Discoverability string  `json:"discoverability"`
	Metadata        string  `json:"metadata"` // raw JSON
	CreatedAt       string  `json:"created_at"`
}

func (a Agent) ID() AgentID { return AgentID{Name: a.Name, Scope: a.Scope} }

type ProjectLink struct {
	ProjectA  string `json:"project_a"`
	ProjectB  string `json:"project_b"`
	LinkType  string `json:"link_type"` // bidirectional|a_to_b|b_to_a
	CreatedAt string `json:"created_at"`
}

type Channel struct {
	Handle       string `json:"handle"`
	ChannelType  string `json:"channel_type"` // channel|direct|notes
	AccessType   string `json:"access_type"`  // open|members|private
	Scope        string `json:"scope"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	IsDefault    bool   `json:"is_default"`
	Archived     bool   `json:"archived"`
	CreatorName  *string `json:"creator_name,omitempty"`
	CreatorScope *string `json:"creator_scope,omitempty"`
	CreatedAt    string `json:"created_at"`
}

type ChannelMember struct {
	Channel       string `json:"channel"`
	AgentName     string `json:"agent_name"`
	AgentScope    string `json:"agent_scope"`
	InvitedBy     string `json:"invited_by"` // self|system|<agent handle>
	Source        string `json:"source"`     // manual|default|frontmatter|system
	CanLeave      bool   `json:"can_leave"`
	CanSend       bool   `json:"can_send"`
	CanInvite     bool   `json:"can_invite"`
	CanManage     bool   `json:"can_manage"`
	IsFromDefault bool   `json:"is_from_default"`
	IsMuted       bool   `json:"is_muted"`
	JoinedAt      string `json:"joined_at"`
}

func (m ChannelMember) Agent() AgentID { return AgentID{Name: m.AgentName, Scope: m.AgentScope} }

type Message struct {
	ID           int64    `json:"id"`
	Channel      string   `json:"channel"`
	SenderName   string   `json:"sender_name"`
	SenderScope  string   `json:"sender_scope"`
	Content      string   `json:"content"`
	CreatedAt    string   `json:"created_at"`
	ThreadHandle *string  `json:"thread_handle,omitempty"`
	Metadata     string   `json:"metadata"` // raw JSON
	IsEdited     bool     `json:"is_edited"`
	EditedAt     *string  `json:"edited_at,omitempty"`
	Confidence   *float64 `json:"confidence,omitempty"`
	IntentType   *string  `json:"intent_type,omitempty"`
}

func (m Message) Sender() AgentID { return AgentID{Name: m.SenderName, Scope: m.SenderScope} }

type SearchResult struct {
	Message
	Rank float64 `json:"rank"`
}

// DMPermKind is one of "allow" or "block".
type DMPermission struct {
	OwnerName  string `json:"owner_name"`
	OwnerScope string `json:"owner_scope"`
	OtherName  string `json:"other_name"`
	OtherScope string `json:"other_scope"`
	Permission string `json:"permission"`
	Reason     string `json:"reason"`
	CreatedAt  string `json:"created_at"`
}

type Session struct {
	ID             string `json:"id"`
	ProjectID      *string `json:"project_id,omitempty"`
	ProjectPath    *string `json:"project_path,omitempty"`
	ProjectName    *string `json:"project_name,omitempty"`
	TranscriptPath *string `json:"transcript_path,omitempty"`
	Scope          string  `json:"scope"` // global|project
	UpdatedAt      string  `json:"updated_at"`
	Metadata       string  `json:"metadata"`
}

// ToolCallOutcome reports whether record_tool_call observed a fresh call or
// one already seen inside the dedup window.
type ToolCallOutcome string

const (
	ToolCallNew       ToolCallOutcome = "new"
	ToolCallDuplicate ToolCallOutcome = "duplicate"
)
