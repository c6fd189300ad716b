// Package tui implements the Bubbletea terminal UI for browsing agentslack
// channels, messages, threads, and agents.
//
// Following the same Bubbletea patterns as the rest of the ecosystem:
// - Screen constants as iota
// - Single Model struct holds ALL state
// - Update() with type switch
// - Per-screen key handlers returning (tea.Model, tea.Cmd)
// - Vim keys (j/k) for navigation
// - PrevScreen for back navigation
package tui

import (
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/theo-nash/agentslack/internal/store"
)

// ─── Screens ─────────────────────────────────────────────────────────────────

type Screen int

const (
	ScreenDashboard Screen = iota
	ScreenChannelList
	ScreenMessages
	ScreenThread
	ScreenSearch
	ScreenSearchResults
	ScreenAgents
)

// ─── Custom Messages ─────────────────────────────────────────────────────────

type statsLoadedMsg struct {
	stats *store.Stats
	err   error
}

type channelsLoadedMsg struct {
	channels []store.Channel
	err      error
}

type messagesLoadedMsg struct {
	messages []store.Message
	err      error
}

type threadLoadedMsg struct {
	messages []store.Message
	err      error
}

type searchResultsMsg struct {
	results []store.SearchResult
	query   string
	err     error
}

type agentsLoadedMsg struct {
	agents []store.Agent
	err    error
}

// ─── Model ───────────────────────────────────────────────────────────────────

type Model struct {
	store   *store.Store
	Version string

	Screen     Screen
	PrevScreen Screen
	Width      int
	Height     int
	Cursor     int
	Scroll     int

	ErrorMsg string

	// Dashboard
	Stats *store.Stats

	// Channels
	Channels []store.Channel

	// Messages (within the selected channel)
	SelectedChannel string
	Messages        []store.Message

	// Thread (messages sharing a thread_handle)
	ThreadHandle   string
	ThreadMessages []store.Message

	// Search
	SearchInput   textinput.Model
	SearchQuery   string
	SearchResults []store.SearchResult

	// Agents
	Agents []store.Agent
}

// New creates a new TUI model connected to the given store.
func New(s *store.Store, version string) Model {
	ti := textinput.New()
	ti.Placeholder = "Search messages..."
	ti.CharLimit = 256
	ti.Width = 60

	return Model{
		store:       s,
		Version:     version,
		Screen:      ScreenDashboard,
		SearchInput: ti,
	}
}

// Init loads initial data (stats for the dashboard).
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		loadStats(m.store),
		tea.EnterAltScreen,
	)
}

// ─── Commands (data loading) ─────────────────────────────────────────────────

func loadStats(s *store.Store) tea.Cmd {
	return func() tea.Msg {
		stats, err := s.Stats()
		return statsLoadedMsg{stats: stats, err: err}
	}
}

func loadChannels(s *store.Store) tea.Cmd {
	return func() tea.Msg {
		channels, err := s.ListChannelsByScope(store.GlobalScope, false)
		return channelsLoadedMsg{channels: channels, err: err}
	}
}

func loadMessages(s *store.Store, channel string) tea.Cmd {
	return func() tea.Msg {
		msgs, err := s.ListMessages(channel, 100, 0)
		return messagesLoadedMsg{messages: msgs, err: err}
	}
}

func loadThread(s *store.Store, threadHandle string) tea.Cmd {
	return func() tea.Msg {
		msgs, err := s.ListThread(threadHandle)
		return threadLoadedMsg{messages: msgs, err: err}
	}
}

// searchMessages searches lexically across every global channel — the TUI
// is a host-wide admin browser, not a scoped agent session, so it has no
// agent_channels projection to restrict against.
func searchMessages(s *store.Store, query string) tea.Cmd {
	return func() tea.Msg {
		channels, err := s.ListChannelsByScope(store.GlobalScope, false)
		if err != nil {
			return searchResultsMsg{query: query, err: err}
		}
		handles := make([]string, len(channels))
		for i, c := range channels {
			handles[i] = c.Handle
		}
		results, err := s.SearchLexical(query, handles, 50)
		return searchResultsMsg{results: results, query: query, err: err}
	}
}

func loadAgents(s *store.Store) tea.Cmd {
	return func() tea.Msg {
		agents, err := s.ListAgents("")
		return agentsLoadedMsg{agents: agents, err: err}
	}
}
