package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/theo-nash/agentslack/internal/store"
)

// ─── Logo ────────────────────────────────────────────────────────────────────

func renderLogo() string {
	logoText := []string{
		`    ___    ________  _______   ________  _________  ___       ________  ________  ___  __    `,
		`   |\  \  |\   ____\|\  ___ \ |\   ___ \|\___   ___\\  \     |\   __  \|\   ____\|\  \|\  \  `,
		`   \ \  \ \ \  \___|\ \   __/|\ \  \_|\ \|___ \  \_\ \  \    \ \  \|\  \ \  \___|\ \  \/  /|_ `,
		`  __\ \  \ \ \  \  __\ \  \_|/_\ \  \ \\ \   \ \  \ \ \  \    \ \   __  \ \  \    \ \   ___  \`,
		` |\  \\_\  \ \  \|\  \ \  \_|\ \ \  \_\\ \   \ \  \ \ \  \____\ \  \ \  \ \  \____\ \  \\ \  \`,
		` \ \________\ \_______\ \_______\ \_______\   \ \__\ \ \_______\ \__\ \__\ \_______\ \__\\ \__\`,
		`  \|________|\|_______|\|_______|\|_______|    \|__|  \|_______|\|__|\|__|\|_______|\|__| \|__|`,
	}

	frameStyle := lipgloss.NewStyle().
		Border(lipgloss.DoubleBorder()).
		BorderForeground(colorOverlay).
		Padding(0, 1).
		MarginBottom(1)

	textStyle := lipgloss.NewStyle().Foreground(colorText).Bold(true)
	accentStyle := lipgloss.NewStyle().Foreground(colorLavender).Bold(true)
	taglineStyle := lipgloss.NewStyle().Foreground(colorSubtext).Italic(true)

	var b strings.Builder

	b.WriteString(accentStyle.Render(" ⚡ HOST ONLINE ") + strings.Repeat(" ", 34) + accentStyle.Render(" FTS5: OK ") + "\n\n")

	for _, line := range logoText {
		b.WriteString(" " + textStyle.Render(line) + "\n")
	}
	b.WriteString("\n")

	b.WriteString(taglineStyle.Render(" > a workstation-local channel for agents sharing one machine"))

	return frameStyle.Render(b.String()) + "\n"
}

// ─── View (main router) ─────────────────────────────────────────────────────

func (m Model) View() string {
	var content string

	switch m.Screen {
	case ScreenDashboard:
		content = m.viewDashboard()
	case ScreenChannelList:
		content = m.viewChannelList()
	case ScreenMessages:
		content = m.viewMessages()
	case ScreenThread:
		content = m.viewThread()
	case ScreenSearch:
		content = m.viewSearch()
	case ScreenSearchResults:
		content = m.viewSearchResults()
	case ScreenAgents:
		content = m.viewAgents()
	default:
		content = "Unknown screen"
	}

	if m.ErrorMsg != "" {
		content += "\n" + errorStyle.Render("Error: "+m.ErrorMsg)
	}

	return appStyle.Render(content)
}

// ─── Dashboard ───────────────────────────────────────────────────────────────

func (m Model) viewDashboard() string {
	var b strings.Builder

	b.WriteString(renderLogo())
	b.WriteString("\n")

	if m.Stats != nil {
		statsContent := fmt.Sprintf(
			"%s %s\n%s %s\n%s %s\n%s %s",
			statNumberStyle.Render(fmt.Sprintf("%d", m.Stats.Projects)),
			statLabelStyle.Render("projects"),
			statNumberStyle.Render(fmt.Sprintf("%d", m.Stats.Agents)),
			statLabelStyle.Render("agents"),
			statNumberStyle.Render(fmt.Sprintf("%d", m.Stats.Channels)),
			statLabelStyle.Render("channels"),
			statNumberStyle.Render(fmt.Sprintf("%d", m.Stats.Messages)),
			statLabelStyle.Render("messages"),
		)
		b.WriteString(statCardStyle.Render(statsContent))
		b.WriteString("\n")
	} else {
		b.WriteString(statCardStyle.Render("Loading stats..."))
		b.WriteString("\n")
	}

	b.WriteString(titleStyle.Render("  Actions"))
	b.WriteString("\n")

	for i, item := range dashboardMenuItems {
		if i == m.Cursor {
			b.WriteString(menuSelectedStyle.Render("▸ " + item))
		} else {
			b.WriteString(menuItemStyle.Render("  " + item))
		}
		b.WriteString("\n")
	}

	b.WriteString(helpStyle.Render("\n  j/k navigate • enter select • s search • q quit"))

	return b.String()
}

// ─── Channel List ────────────────────────────────────────────────────────────

func (m Model) viewChannelList() string {
	var b strings.Builder

	count := len(m.Channels)
	header := fmt.Sprintf("  Channels — %d total", count)
	b.WriteString(headerStyle.Render(header))
	b.WriteString("\n")

	if count == 0 {
		b.WriteString(noResultsStyle.Render("No channels yet."))
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("  esc back"))
		return b.String()
	}

	visibleItems := m.Height - 8
	if visibleItems < 5 {
		visibleItems = 5
	}

	end := m.Scroll + visibleItems
	if end > count {
		end = count
	}

	for i := m.Scroll; i < end; i++ {
		c := m.Channels[i]
		cursor := "  "
		style := listItemStyle
		if i == m.Cursor {
			cursor = "▸ "
			style = listSelectedStyle
		}

		archived := ""
		if c.Archived {
			archived = "  " + timestampStyle.Render("(archived)")
		}

		line := fmt.Sprintf("%s%s %s%s\n",
			cursor,
			style.Render(fmt.Sprintf("#%-24s", c.Name)),
			typeBadgeStyle.Render(fmt.Sprintf("[%-7s]", c.AccessType)),
			archived)
		if c.Description != "" {
			line += contentPreviewStyle.Render(truncateStr(c.Description, 80)) + "\n"
		}

		b.WriteString(line)
	}

	if count > visibleItems {
		b.WriteString(fmt.Sprintf("\n  %s",
			timestampStyle.Render(fmt.Sprintf("showing %d-%d of %d", m.Scroll+1, end, count))))
	}

	b.WriteString(helpStyle.Render("\n  j/k navigate • enter open • esc back"))

	return b.String()
}

// ─── Messages ────────────────────────────────────────────────────────────────

func (m Model) viewMessages() string {
	var b strings.Builder

	count := len(m.Messages)
	header := fmt.Sprintf("  %s — %d messages", m.SelectedChannel, count)
	b.WriteString(headerStyle.Render(header))
	b.WriteString("\n")

	if count == 0 {
		b.WriteString(noResultsStyle.Render("No messages in this channel yet."))
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("  esc back"))
		return b.String()
	}

	visibleItems := (m.Height - 8) / 2
	if visibleItems < 3 {
		visibleItems = 3
	}

	end := m.Scroll + visibleItems
	if end > count {
		end = count
	}

	for i := m.Scroll; i < end; i++ {
		msg := m.Messages[i]
		b.WriteString(m.renderMessageListItem(i, msg))
	}

	if count > visibleItems {
		b.WriteString(fmt.Sprintf("\n  %s",
			timestampStyle.Render(fmt.Sprintf("showing %d-%d of %d", m.Scroll+1, end, count))))
	}

	b.WriteString(helpStyle.Render("\n  j/k navigate • enter/t open thread • esc back"))

	return b.String()
}

func (m Model) renderMessageListItem(index int, msg store.Message) string {
	cursor := "  "
	style := listItemStyle
	if index == m.Cursor {
		cursor = "▸ "
		style = listSelectedStyle
	}

	thread := ""
	if msg.ThreadHandle != nil && *msg.ThreadHandle != "" {
		thread = "  " + typeBadgeStyle.Render("[thread]")
	}

	line := fmt.Sprintf("%s%s %s%s  %s\n",
		cursor,
		idStyle.Render(fmt.Sprintf("%-16s", msg.SenderName)),
		style.Render(truncateStr(msg.Content, 60)),
		thread,
		timestampStyle.Render(msg.CreatedAt))

	return line
}

func (m Model) renderSearchHit(index int, hit store.SearchResult) string {
	cursor := "  "
	style := listItemStyle
	if index == m.Cursor {
		cursor = "▸ "
		style = listSelectedStyle
	}

	line := fmt.Sprintf("%s%s %s  %s\n",
		cursor,
		idStyle.Render(fmt.Sprintf("#%-20s", hit.Channel)),
		style.Render(truncateStr(hit.Content, 60)),
		timestampStyle.Render(hit.CreatedAt))

	return line
}

// ─── Thread ──────────────────────────────────────────────────────────────────

func (m Model) viewThread() string {
	var b strings.Builder

	header := fmt.Sprintf("  Thread %s — %d messages", m.ThreadHandle, len(m.ThreadMessages))
	b.WriteString(headerStyle.Render(header))
	b.WriteString("\n")

	if len(m.ThreadMessages) == 0 {
		b.WriteString(noResultsStyle.Render("No messages in this thread."))
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("  esc back"))
		return b.String()
	}

	maxLines := m.Height - 10
	if maxLines < 5 {
		maxLines = 5
	}

	end := m.Scroll + maxLines
	if end > len(m.ThreadMessages) {
		end = len(m.ThreadMessages)
	}

	for i := m.Scroll; i < end; i++ {
		msg := m.ThreadMessages[i]
		content := fmt.Sprintf("%s %s\n%s",
			idStyle.Render(msg.SenderName),
			timestampStyle.Render(msg.CreatedAt),
			detailContentStyle.Render(truncateStr(msg.Content, 100)))
		b.WriteString(timelineFocusStyle.Render(content))
		b.WriteString("\n")
	}

	if len(m.ThreadMessages) > maxLines {
		b.WriteString(fmt.Sprintf("\n  %s",
			timestampStyle.Render(fmt.Sprintf("line %d-%d of %d", m.Scroll+1, end, len(m.ThreadMessages)))))
	}

	b.WriteString(helpStyle.Render("\n  j/k scroll • esc back"))

	return b.String()
}

// ─── Search ──────────────────────────────────────────────────────────────────

func (m Model) viewSearch() string {
	var b strings.Builder

	b.WriteString(headerStyle.Render("  Search Messages"))
	b.WriteString("\n\n")

	b.WriteString(searchInputStyle.Render(m.SearchInput.View()))
	b.WriteString("\n\n")

	b.WriteString(helpStyle.Render("  Type a query and press enter • esc go back"))

	return b.String()
}

// ─── Search Results ──────────────────────────────────────────────────────────

func (m Model) viewSearchResults() string {
	var b strings.Builder

	resultCount := len(m.SearchResults)
	header := fmt.Sprintf("  Search: %q — %d result", m.SearchQuery, resultCount)
	if resultCount != 1 {
		header += "s"
	}
	b.WriteString(headerStyle.Render(header))
	b.WriteString("\n")

	if resultCount == 0 {
		b.WriteString(noResultsStyle.Render("No messages found. Try a different query."))
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("  / new search • esc back"))
		return b.String()
	}

	visibleItems := (m.Height - 10) / 2
	if visibleItems < 3 {
		visibleItems = 3
	}

	end := m.Scroll + visibleItems
	if end > resultCount {
		end = resultCount
	}

	for i := m.Scroll; i < end; i++ {
		r := m.SearchResults[i]
		b.WriteString(m.renderSearchHit(i, r))
	}

	if resultCount > visibleItems {
		b.WriteString(fmt.Sprintf("\n  %s",
			timestampStyle.Render(fmt.Sprintf("showing %d-%d of %d", m.Scroll+1, end, resultCount))))
	}

	b.WriteString(helpStyle.Render("\n  j/k navigate • enter open • / search • esc back"))

	return b.String()
}

// ─── Agents ──────────────────────────────────────────────────────────────────

func (m Model) viewAgents() string {
	var b strings.Builder

	count := len(m.Agents)
	header := fmt.Sprintf("  Agents — %d total", count)
	b.WriteString(headerStyle.Render(header))
	b.WriteString("\n")

	if count == 0 {
		b.WriteString(noResultsStyle.Render("No agents registered yet."))
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("  esc back"))
		return b.String()
	}

	visibleItems := m.Height - 8
	if visibleItems < 5 {
		visibleItems = 5
	}

	end := m.Scroll + visibleItems
	if end > count {
		end = count
	}

	for i := m.Scroll; i < end; i++ {
		a := m.Agents[i]
		cursor := "  "
		style := listItemStyle
		if i == m.Cursor {
			cursor = "▸ "
			style = listSelectedStyle
		}

		statusStyle := typeBadgeStyle
		switch a.Status {
		case "online":
			statusStyle = lipgloss.NewStyle().Foreground(colorGreen).Bold(true)
		case "busy":
			statusStyle = lipgloss.NewStyle().Foreground(colorPeach).Bold(true)
		case "offline":
			statusStyle = lipgloss.NewStyle().Foreground(colorSubtext)
		}

		line := fmt.Sprintf("%s%s %s  %s\n",
			cursor,
			style.Render(fmt.Sprintf("%-24s", a.Name)),
			statusStyle.Render(fmt.Sprintf("[%-7s]", a.Status)),
			projectStyle.Render(a.Scope))

		if a.Description != "" {
			line += contentPreviewStyle.Render(truncateStr(a.Description, 80)) + "\n"
		}

		b.WriteString(line)
	}

	if count > visibleItems {
		b.WriteString(fmt.Sprintf("\n  %s",
			timestampStyle.Render(fmt.Sprintf("showing %d-%d of %d", m.Scroll+1, end, count))))
	}

	b.WriteString(helpStyle.Render("\n  j/k navigate • esc back"))

	return b.String()
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

func truncateStr(s string, max int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
