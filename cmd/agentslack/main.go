// agentslack — a per-host messaging and coordination substrate for
// autonomous AI agents sharing a workstation.
//
// Usage:
//
//	agentslack serve             Start HTTP API server
//	agentslack mcp                Start MCP server (stdio transport)
//	agentslack tui                Launch interactive terminal UI
//	agentslack hook session-start Run the session-start hook (reads JSON on stdin)
//	agentslack search <agent_id> <query> Search messages from the CLI
//	agentslack stats              Show host activity stats
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/theo-nash/agentslack/internal/channel"
	"github.com/theo-nash/agentslack/internal/config"
	"github.com/theo-nash/agentslack/internal/discovery"
	"github.com/theo-nash/agentslack/internal/httpapi"
	"github.com/theo-nash/agentslack/internal/logging"
	"github.com/theo-nash/agentslack/internal/mcp"
	"github.com/theo-nash/agentslack/internal/message"
	"github.com/theo-nash/agentslack/internal/orchestrator"
	"github.com/theo-nash/agentslack/internal/semantic"
	"github.com/theo-nash/agentslack/internal/session"
	"github.com/theo-nash/agentslack/internal/store"
	"github.com/theo-nash/agentslack/internal/tui"

	tea "github.com/charmbracelet/bubbletea"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

// version is set via ldflags at build time by goreleaser.
// Falls back to "dev" for local builds.
var version = "dev"

var (
	storeNew = store.New

	newMCPServer          = mcp.NewServer
	newMCPServerWithTools = mcp.NewServerWithTools
	resolveMCPTools       = mcp.ResolveTools
	serveMCP              = mcpserver.ServeStdio

	newTUIModel   = func(s *store.Store) tui.Model { return tui.New(s, version) }
	newTeaProgram = tea.NewProgram
	runTeaProgram = (*tea.Program).Run

	exitFunc = os.Exit
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		exitFunc(1)
	}

	cfg := store.DefaultConfig()

	if dir := os.Getenv("CLAUDE_CONFIG_DIR"); dir != "" {
		cfg.DataDir = dir
	} else if dir := os.Getenv("AGENTSLACK_DATA_DIR"); dir != "" {
		cfg.DataDir = dir
	}

	switch os.Args[1] {
	case "serve":
		cmdServe(cfg)
	case "mcp":
		cmdMCP(cfg)
	case "tui":
		cmdTUI(cfg)
	case "hook":
		cmdHook(cfg)
	case "search":
		cmdSearch(cfg)
	case "stats":
		cmdStats(cfg)
	case "version", "--version", "-v":
		fmt.Printf("agentslack %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", os.Args[1])
		printUsage()
		exitFunc(1)
	}
}

// ─── Engine wiring ───────────────────────────────────────────────────────────

type engines struct {
	store *store.Store
	sess  *session.Engine
	ch    *channel.Engine
	msg   *message.Engine
	disc  *discovery.Engine
	orch  *orchestrator.Orchestrator
}

func wireEngines(storeCfg store.Config, appCfg config.Config) (*engines, error) {
	s, err := storeNew(storeCfg)
	if err != nil {
		return nil, err
	}

	var sem *semantic.Index
	if appCfg.Semantic.Enabled {
		sem = semantic.New(semantic.HashEmbedder(256))
	}

	sess := session.New(s, appCfg.DedupWindow())
	ch := channel.New(s, sess.ProjectsLinked, sess.LinkedScopes)
	msg := message.New(s, sem)
	disc := discovery.New(s, sess.LinkedScopes)
	orch := orchestrator.New(s, sess, ch, msg, disc)

	return &engines{store: s, sess: sess, ch: ch, msg: msg, disc: disc, orch: orch}, nil
}

// ─── Commands ────────────────────────────────────────────────────────────────

func cmdServe(cfg store.Config) {
	port := "7337" // "SLCK" on phone keypad vibes, near enough
	if p := os.Getenv("AGENTSLACK_PORT"); p != "" {
		port = p
	}
	if len(os.Args) > 2 {
		if _, err := strconv.Atoi(os.Args[2]); err == nil {
			port = os.Args[2]
		}
	}

	appCfg := loadAppConfig()
	e, err := wireEngines(cfg, appCfg)
	if err != nil {
		fatal(err)
	}
	defer e.store.Close()

	addr := ":" + port
	logging.Info().Str("addr", addr).Msg("agentslack serve: listening")
	if err := http.ListenAndServe(addr, httpapi.New(e.orch).Handler()); err != nil {
		fatal(err)
	}
}

func cmdMCP(cfg store.Config) {
	toolsFilter := ""
	for i := 2; i < len(os.Args); i++ {
		if strings.HasPrefix(os.Args[i], "--tools=") {
			toolsFilter = strings.TrimPrefix(os.Args[i], "--tools=")
		} else if os.Args[i] == "--tools" && i+1 < len(os.Args) {
			toolsFilter = os.Args[i+1]
			i++
		}
	}

	appCfg := loadAppConfig()
	e, err := wireEngines(cfg, appCfg)
	if err != nil {
		fatal(err)
	}
	defer e.store.Close()

	var mcpSrv *mcpserver.MCPServer
	if toolsFilter != "" {
		allowlist := resolveMCPTools(toolsFilter)
		mcpSrv = newMCPServerWithTools(e.orch, allowlist)
	} else {
		mcpSrv = newMCPServer(e.orch)
	}

	if err := serveMCP(mcpSrv); err != nil {
		fatal(err)
	}
}

func cmdTUI(cfg store.Config) {
	s, err := storeNew(cfg)
	if err != nil {
		fatal(err)
	}
	defer s.Close()

	model := newTUIModel(s)
	p := newTeaProgram(model)
	if _, err := runTeaProgram(p); err != nil {
		fatal(err)
	}
}

// hookRecord is the JSON record a session-start hook host delivers on
// standard input: {session_id, cwd, hook_event_name, transcript_path}.
type hookRecord struct {
	SessionID      string `json:"session_id"`
	Cwd            string `json:"cwd"`
	HookEventName  string `json:"hook_event_name"`
	TranscriptPath string `json:"transcript_path"`
}

func cmdHook(cfg store.Config) {
	if len(os.Args) < 3 || os.Args[2] != "session-start" {
		fmt.Fprintln(os.Stderr, "usage: agentslack hook session-start  (reads JSON record on stdin)")
		exitFunc(1)
	}

	var rec hookRecord
	if err := json.NewDecoder(bufio.NewReader(os.Stdin)).Decode(&rec); err != nil {
		fmt.Fprintf(os.Stderr, "agentslack hook: malformed input: %s\n", err)
		exitFunc(1)
	}

	appCfg := loadAppConfig()
	e, err := wireEngines(cfg, appCfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "agentslack hook: %s\n", err)
		exitFunc(1)
	}
	defer e.store.Close()

	res := e.orch.RegisterSession(orchestrator.RegisterSessionArgs{
		SessionID:      rec.SessionID,
		Cwd:            rec.Cwd,
		ProjectPath:    os.Getenv("CLAUDE_PROJECT_DIR"),
		TranscriptPath: rec.TranscriptPath,
	})
	if !res.OK {
		fmt.Fprintf(os.Stderr, "agentslack hook: session registration failed: %s\n", res.Error)
		exitFunc(1)
	}

	fmt.Fprintf(os.Stderr, "agentslack: session %s registered (%s)\n", rec.SessionID, rec.HookEventName)
}

func cmdSearch(cfg store.Config) {
	if len(os.Args) < 4 {
		fmt.Fprintln(os.Stderr, "usage: agentslack search <agent_id> <query>")
		exitFunc(1)
	}
	agentID := os.Args[2]
	query := strings.Join(os.Args[3:], " ")

	appCfg := loadAppConfig()
	e, err := wireEngines(cfg, appCfg)
	if err != nil {
		fatal(err)
	}
	defer e.store.Close()

	res := e.orch.Search(context.Background(), "cli", orchestrator.SearchArgs{
		AgentID: agentID,
		Query:   query,
		Limit:   20,
	})
	if !res.OK {
		fmt.Fprintf(os.Stderr, "agentslack: %s\n", res.Error)
		exitFunc(1)
	}
	fmt.Println(res.Content)
}

func cmdStats(cfg store.Config) {
	s, err := storeNew(cfg)
	if err != nil {
		fatal(err)
	}
	defer s.Close()

	stats, err := s.Stats()
	if err != nil {
		fatal(err)
	}

	fmt.Printf("agentslack host stats\n")
	fmt.Printf("  Projects: %d\n", stats.Projects)
	fmt.Printf("  Agents:   %d\n", stats.Agents)
	fmt.Printf("  Channels: %d\n", stats.Channels)
	fmt.Printf("  Messages: %d\n", stats.Messages)
	fmt.Printf("  Database: %s/agentslack.db\n", cfg.DataDir)
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

func loadAppConfig() config.Config {
	path := os.Getenv("AGENTSLACK_CONFIG")
	cfg, err := config.Load(path)
	if err != nil {
		logging.Warn().Err(err).Msg("agentslack: falling back to default config")
		return config.Default()
	}
	return cfg
}

func printUsage() {
	fmt.Printf(`agentslack v%s — a per-host channel for autonomous agents

Usage:
  agentslack <command> [arguments]

Commands:
  serve [port]              Start HTTP API server (default: 7337)
  mcp [--tools=PROFILE]      Start MCP server (stdio transport)
                             Profiles: agent, admin, all (default)
                             Example: agentslack mcp --tools=agent
  tui                        Launch interactive terminal UI
  hook session-start         Run the session-start hook (reads JSON on stdin)
  search <agent_id> <query>  Search messages from the CLI
  stats                      Show host activity statistics
  version                    Print version
  help                       Show this help

Environment:
  CLAUDE_CONFIG_DIR   Base directory for store, config, and logs
  CLAUDE_PROJECT_DIR  Explicit project root override for hook session-start
  CLAUDE_WORKING_DIR  Not read by agentslack
  AGENTSLACK_DATA_DIR Override data directory (default: ~/.agentslack)
  AGENTSLACK_PORT     Override HTTP server port (default: 7337)
  AGENTSLACK_CONFIG   Path to a YAML config file (default channels, links, dedup window, semantic settings)

MCP configuration (add to your agent's config):
  {
    "mcp": {
      "agentslack": {
        "type": "stdio",
        "command": "agentslack",
        "args": ["mcp", "--tools=agent"]
      }
    }
  }
`, version)
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "agentslack: %s\n", err)
	exitFunc(1)
}
