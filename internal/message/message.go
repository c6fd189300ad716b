// Package message implements the message engine: send (with mention
// extraction and validation), edit, soft-delete, get, and hybrid search.
package message

import (
	"context"
	"encoding/json"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/theo-nash/agentslack/internal/apperr"
	"github.com/theo-nash/agentslack/internal/logging"
	"github.com/theo-nash/agentslack/internal/semantic"
	"github.com/theo-nash/agentslack/internal/store"
	"github.com/theo-nash/agentslack/internal/view"
)

var mentionRE = regexp.MustCompile(`@([A-Za-z0-9_-]+(?::[A-Za-z0-9_-]+)?)`)

// Engine wires the message pipeline against the store and an optional
// semantic index. Semantic is nil when semantic search is disabled.
type Engine struct {
	Store    *store.Store
	Semantic *semantic.Index
}

func New(s *store.Store, sem *semantic.Index) *Engine {
	return &Engine{Store: s, Semantic: sem}
}

type SendRequest struct {
	Channel  string
	Sender   store.AgentID
	Content  string
	Metadata map[string]any
	Thread   string
}

// Send validates the sender's permission, extracts and validates mentions,
// then inserts the message row.
func (e *Engine) Send(ctx context.Context, req SendRequest) (store.Message, error) {
	if strings.TrimSpace(req.Content) == "" {
		return store.Message{}, apperr.New(apperr.InvalidInput, "content must be non-blank")
	}
	member, err := e.Store.GetMember(req.Channel, req.Sender)
	if err != nil {
		if err == store.ErrNotFound {
			return store.Message{}, apperr.New(apperr.PermissionDenied, "sender is not a channel member")
		}
		return store.Message{}, err
	}
	if !member.CanSend {
		return store.Message{}, apperr.New(apperr.PermissionDenied, "sender lacks can_send")
	}

	validMentions, droppedMentions := e.validateMentions(req.Channel, req.Content)
	if len(droppedMentions) > 0 {
		logging.Info().
			Str("channel", req.Channel).
			Str("sender", req.Sender.Name).
			Strs("dropped_mentions", droppedMentions).
			Msg("dropped invalid mentions from send")
	}

	meta := req.Metadata
	if meta == nil {
		meta = map[string]any{}
	}
	if len(validMentions) > 0 {
		meta["mentions"] = validMentions
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return store.Message{}, apperr.Wrap(apperr.Internal, "marshal metadata", err)
	}

	m := store.Message{
		Channel: req.Channel, SenderName: req.Sender.Name, SenderScope: req.Sender.Scope,
		Content: req.Content, Metadata: string(metaJSON), ThreadHandle: store.NullableString(req.Thread),
	}
	inserted, err := e.Store.InsertMessage(m)
	if err != nil {
		return store.Message{}, err
	}

	if e.Semantic != nil {
		if err := e.Semantic.Upsert(ctx, inserted.ID, inserted.Content, semantic.Metadata{
			Channel: inserted.Channel, Sender: req.Sender.Name, CreatedAt: time.Now(),
		}); err != nil {
			logging.Warn().Err(err).Int64("message_id", inserted.ID).Msg("semantic index write failed, search degraded for this row")
		}
	}
	return inserted, nil
}

// validateMentions extracts @name or @name:scope tokens and keeps only
// those referring to an existing channel member.
func (e *Engine) validateMentions(channel, content string) (valid []string, dropped []string) {
	matches := mentionRE.FindAllStringSubmatch(content, -1)
	for _, m := range matches {
		token := m[1]
		name, scope := token, ""
		if idx := indexColon(token); idx >= 0 {
			name, scope = token[:idx], token[idx+1:]
		}
		if e.memberMatches(channel, name, scope) {
			valid = append(valid, token)
		} else {
			dropped = append(dropped, token)
		}
	}
	return valid, dropped
}

func (e *Engine) memberMatches(channel, name, scope string) bool {
	members, err := e.Store.ListMembers(channel)
	if err != nil {
		return false
	}
	for _, mem := range members {
		if mem.AgentName != name {
			continue
		}
		if scope == "" || mem.AgentScope == scope {
			return true
		}
	}
	return false
}

func indexColon(s string) int {
	for i := 0; i < len(s); i++ {
		if s[i] == ':' {
			return i
		}
	}
	return -1
}

// Edit is only legal for the original sender.
func (e *Engine) Edit(id int64, editor store.AgentID, newContent string) (store.Message, error) {
	m, err := e.Store.GetMessage(id)
	if err != nil {
		return store.Message{}, err
	}
	if m.Sender() != editor {
		return store.Message{}, apperr.New(apperr.PermissionDenied, "only the original sender may edit")
	}
	return e.Store.EditMessage(id, newContent)
}

// Delete soft-deletes a message; allowed for the sender or a member with
// can_manage.
func (e *Engine) Delete(id int64, requester store.AgentID) error {
	m, err := e.Store.GetMessage(id)
	if err != nil {
		return err
	}
	if m.Sender() != requester {
		member, err := e.Store.GetMember(m.Channel, requester)
		if err != nil {
			if err == store.ErrNotFound {
				return apperr.New(apperr.PermissionDenied, "not authorized to delete this message")
			}
			return err
		}
		if !member.CanManage {
			return apperr.New(apperr.PermissionDenied, "not authorized to delete this message")
		}
	}
	return e.Store.SoftDeleteMessage(id, requester.Name)
}

// Get returns a message, restricted to viewers who can see its channel.
func (e *Engine) Get(id int64, viewer *store.AgentID) (store.Message, error) {
	m, err := e.Store.GetMessage(id)
	if err != nil {
		return store.Message{}, err
	}
	if viewer != nil {
		if _, err := e.Store.GetMember(m.Channel, *viewer); err != nil {
			if err == store.ErrNotFound {
				return store.Message{}, apperr.New(apperr.NotFound, "message not visible to viewer")
			}
			return store.Message{}, err
		}
	}
	return m, nil
}

type SearchFilters struct {
	Channels      []string
	Senders       []string
	IntentType    string
	MinConfidence float64
	Since         time.Time
	Limit         int
	Profile       string // "", "recent", "quality", "balanced", "similarity"
}

type SearchHit struct {
	store.Message
	Score float64 `json:"score"`
}

// Search runs lexical search over the viewer's visible channels, blended
// with the optional semantic index when present. Permission filtering is
// applied before ranking by restricting to the viewer's channel set.
func (e *Engine) Search(ctx context.Context, viewer store.AgentID, query string, filters SearchFilters) ([]SearchHit, error) {
	visible, err := view.AgentChannels(e.Store, viewer)
	if err != nil {
		return nil, err
	}
	channelSet := filterChannels(visible, filters.Channels)
	if len(channelSet) == 0 {
		return nil, nil
	}

	limit := filters.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	lexical, err := e.Store.SearchLexical(query, channelSet, limit*2)
	if err != nil {
		return nil, apperr.Wrap(apperr.DegradedSearch, "lexical search failed", err)
	}

	hits := make([]SearchHit, 0, len(lexical))
	for _, r := range lexical {
		hits = append(hits, SearchHit{Message: r.Message, Score: 1})
	}

	if e.Semantic != nil {
		profile := semantic.ProfileByName(filters.Profile)
		semHits, err := e.Semantic.Search(ctx, query, channelSet, limit*2)
		if err != nil {
			logging.Warn().Err(err).Msg("semantic search failed, falling back to lexical only")
		} else {
			hits = mergeSemantic(hits, semHits, profile, e.Store)
		}
	}

	hits = applyFilters(hits, filters)
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

func filterChannels(visible []view.AgentChannelsView, requested []string) []string {
	if len(requested) == 0 {
		out := make([]string, len(visible))
		for i, v := range visible {
			out[i] = v.Channel
		}
		return out
	}
	allowed := map[string]bool{}
	for _, v := range visible {
		allowed[v.Channel] = true
	}
	var out []string
	for _, r := range requested {
		if allowed[r] {
			out = append(out, r)
		}
	}
	return out
}

func mergeSemantic(base []SearchHit, semHits []semantic.Hit, profile semantic.Profile, s *store.Store) []SearchHit {
	byID := make(map[int64]*SearchHit, len(base))
	for i := range base {
		byID[base[i].ID] = &base[i]
	}
	for _, h := range semHits {
		confidence := h.Metadata.Confidence
		if confidence == 0 {
			confidence = 0.5
		}
		age := time.Since(h.Metadata.CreatedAt)
		score := semantic.Score(profile, h.Similarity, confidence, age)
		if existing, ok := byID[h.MessageID]; ok {
			existing.Score = score
			continue
		}
		m, err := s.GetMessage(h.MessageID)
		if err != nil {
			continue
		}
		hit := SearchHit{Message: m, Score: score}
		base = append(base, hit)
		byID[h.MessageID] = &base[len(base)-1]
	}
	return base
}

func applyFilters(hits []SearchHit, f SearchFilters) []SearchHit {
	if len(f.Senders) == 0 && f.IntentType == "" && f.MinConfidence == 0 && f.Since.IsZero() {
		return hits
	}
	senderSet := map[string]bool{}
	for _, s := range f.Senders {
		senderSet[s] = true
	}
	out := hits[:0]
	for _, h := range hits {
		if len(senderSet) > 0 && !senderSet[h.SenderName] {
			continue
		}
		if f.IntentType != "" && (h.IntentType == nil || *h.IntentType != f.IntentType) {
			continue
		}
		if f.MinConfidence > 0 && (h.Confidence == nil || *h.Confidence < f.MinConfidence) {
			continue
		}
		if !f.Since.IsZero() {
			ts, err := time.Parse("2006-01-02 15:04:05", h.CreatedAt)
			if err == nil && ts.Before(f.Since) {
				continue
			}
		}
		out = append(out, h)
	}
	return out
}
