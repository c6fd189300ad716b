// Package session implements session registration, project-identity
// derivation from a filesystem path, caller resolution, and the tool-call
// dedup window.
package session

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/theo-nash/agentslack/internal/apperr"
	"github.com/theo-nash/agentslack/internal/store"
)

// ProjectID derives the 32-character hex project identity from an absolute
// path: two equal paths always yield the same id, different paths with the
// same basename yield different ids.
func ProjectID(absPath string) string {
	clean := filepath.Clean(absPath)
	h := sha256.Sum256([]byte(clean))
	return hex.EncodeToString(h[:])[:32]
}

type Engine struct {
	Store       *store.Store
	DedupWindow time.Duration
	cache       *contextCache
}

func New(s *store.Store, dedupWindow time.Duration) *Engine {
	return &Engine{Store: s, DedupWindow: dedupWindow, cache: newContextCache(60 * time.Second)}
}

type RegisterRequest struct {
	ID             string
	Cwd            string
	ProjectPath    string // caller-supplied override; defaults to Cwd
	DisplayName    string
	TranscriptPath string
}

// Register attaches a session to a project identity derived from its
// working directory (or a caller-supplied override), or marks it
// scope=global when no project path is available. Upserts on id.
func (e *Engine) Register(req RegisterRequest) (store.Session, error) {
	id := req.ID
	if id == "" {
		id = uuid.NewString()
	}

	path := req.ProjectPath
	if path == "" {
		path = req.Cwd
	}

	sess := store.Session{ID: id, TranscriptPath: store.NullableString(req.TranscriptPath)}
	if path == "" {
		sess.Scope = store.GlobalScope
	} else {
		pid := ProjectID(path)
		name := req.DisplayName
		if name == "" {
			name = filepath.Base(filepath.Clean(path))
		}
		if _, err := e.Store.RegisterProject(pid, path, name); err != nil {
			return store.Session{}, err
		}
		sess.Scope = "project"
		sess.ProjectID = store.NullableString(pid)
		sess.ProjectPath = store.NullableString(path)
		sess.ProjectName = store.NullableString(name)
	}

	saved, err := e.Store.UpsertSession(sess)
	if err != nil {
		return store.Session{}, err
	}
	e.cache.invalidate(id)
	return saved, nil
}

// CallerID is the (name, scope-hint) pair an orchestrator call carries,
// e.g. "alice" or "alice@proj123".
type CallerID struct {
	Name      string
	ScopeHint string
}

// ParseCallerID splits a raw "name" or "name@project-hint" tool argument.
func ParseCallerID(raw string) CallerID {
	if idx := strings.IndexByte(raw, '@'); idx >= 0 {
		return CallerID{Name: raw[:idx], ScopeHint: raw[idx+1:]}
	}
	return CallerID{Name: raw}
}

// ResolveCaller implements the resolution order: explicit scope > current
// session's project > global; if a project-scoped match fails, retry
// against global; if still unresolved, consult linked-project agents in
// reverse-link order.
func (e *Engine) ResolveCaller(sessionID string, raw string) (store.AgentID, error) {
	caller := ParseCallerID(raw)
	if caller.Name == "" {
		return store.AgentID{}, apperr.New(apperr.InvalidInput, "agent_id is required")
	}

	if caller.ScopeHint != "" {
		if a, err := e.Store.GetAgent(store.AgentID{Name: caller.Name, Scope: caller.ScopeHint}); err == nil {
			return a.ID(), nil
		} else if err != store.ErrNotFound {
			return store.AgentID{}, err
		}
	} else {
		sess, err := e.sessionContext(sessionID)
		if err == nil && sess.ProjectID != nil {
			if a, err := e.Store.GetAgent(store.AgentID{Name: caller.Name, Scope: *sess.ProjectID}); err == nil {
				return a.ID(), nil
			} else if err != store.ErrNotFound {
				return store.AgentID{}, err
			}
		}
	}

	if a, err := e.Store.GetAgent(store.AgentID{Name: caller.Name, Scope: store.GlobalScope}); err == nil {
		return a.ID(), nil
	} else if err != store.ErrNotFound {
		return store.AgentID{}, err
	}

	scope := caller.ScopeHint
	if scope == "" {
		if sess, err := e.sessionContext(sessionID); err == nil && sess.ProjectID != nil {
			scope = *sess.ProjectID
		}
	}
	if scope != "" {
		links, err := e.Store.LinkedProjects(scope)
		if err != nil {
			return store.AgentID{}, err
		}
		for i := len(links) - 1; i >= 0; i-- {
			other := links[i].ProjectA
			if other == scope {
				other = links[i].ProjectB
			}
			if a, err := e.Store.GetAgent(store.AgentID{Name: caller.Name, Scope: other}); err == nil {
				return a.ID(), nil
			}
		}
	}

	return store.AgentID{}, apperr.New(apperr.NotFound, "agent could not be resolved")
}

// ResolveScope turns a bare channel name into a fully-qualified handle:
// global:name if the viewer has no project, else project:name. Names
// already containing ':' are treated as handles and returned unchanged.
func (e *Engine) ResolveScope(viewer store.AgentID, name string) string {
	if strings.Contains(name, ":") {
		return name
	}
	if viewer.IsGlobal() {
		return store.GlobalScope + ":" + name
	}
	return viewer.Scope + ":" + name
}

// LinkedScopes returns every project scope linked to the given one, used by
// the discovery/view layer's project-link eligibility checks.
func (e *Engine) LinkedScopes(scope string) ([]string, error) {
	if scope == store.GlobalScope || scope == "" {
		return nil, nil
	}
	links, err := e.Store.LinkedProjects(scope)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(links))
	for _, l := range links {
		other := l.ProjectA
		if other == scope {
			other = l.ProjectB
		}
		out = append(out, other)
	}
	return out, nil
}

// ProjectsLinked reports whether a and b are directly linked.
func (e *Engine) ProjectsLinked(a, b string) (bool, error) {
	if a == b {
		return true, nil
	}
	links, err := e.Store.LinkedProjects(a)
	if err != nil {
		return false, err
	}
	for _, l := range links {
		if (l.ProjectA == a && l.ProjectB == b) || (l.ProjectA == b && l.ProjectB == a) {
			return true, nil
		}
	}
	return false, nil
}

// RecordToolCall canonicalizes inputs (sorted keys) and checks the dedup
// window for this (session, tool) pair.
func (e *Engine) RecordToolCall(sessionID, toolName string, inputs map[string]any) (store.ToolCallOutcome, error) {
	digest, err := digestInputs(inputs)
	if err != nil {
		return "", err
	}
	window := store.RelativeWindowExpr(e.DedupWindow)
	return e.Store.RecordToolCall(sessionID, toolName, digest, window)
}

func digestInputs(inputs map[string]any) (string, error) {
	keys := make([]string, 0, len(inputs))
	for k := range inputs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	ordered := make([]any, 0, len(keys)*2)
	for _, k := range keys {
		ordered = append(ordered, k, inputs[k])
	}
	data, err := json.Marshal(ordered)
	if err != nil {
		return "", apperr.Wrap(apperr.Internal, "digest tool call inputs", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

func (e *Engine) sessionContext(id string) (store.Session, error) {
	if cached, ok := e.cache.get(id); ok {
		return cached, nil
	}
	sess, err := e.Store.GetSession(id)
	if err != nil {
		return store.Session{}, err
	}
	e.cache.set(id, sess)
	return sess, nil
}

// ─── Session-context cache ───────────────────────────────────────────────────

// contextCache is a process-local, mutex-guarded map with lazy
// expiry-on-access — no pack example imports an LRU library directly, so
// this mirrors a hand-rolled cache rather than pulling one in.
type contextCache struct {
	mu  sync.Mutex
	ttl time.Duration
	m   map[string]cacheEntry
}

type cacheEntry struct {
	value     store.Session
	expiresAt time.Time
}

func newContextCache(ttl time.Duration) *contextCache {
	return &contextCache{ttl: ttl, m: make(map[string]cacheEntry)}
}

func (c *contextCache) get(key string) (store.Session, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.m[key]
	if !ok || time.Now().After(entry.expiresAt) {
		return store.Session{}, false
	}
	return entry.value, true
}

func (c *contextCache) set(key string, value store.Session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[key] = cacheEntry{value: value, expiresAt: time.Now().Add(c.ttl)}
}

func (c *contextCache) invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.m, key)
}
