package chat

import (
	"fmt"
	"sort"
	"time"

	"github.com/socialitehq/socialite/models"
)

// messageStore holds the per-conversation ordered message lists. It is not
// safe for concurrent use on its own; the synchronizer's mutex serializes
// access.
type messageStore struct {
	byConv map[string][]models.ChatMessage
}

func newMessageStore() *messageStore {
	return &messageStore{byConv: make(map[string][]models.ChatMessage)}
}

// list returns the live slice for a conversation. Callers that hand messages
// out of the synchronizer must copy.
func (s *messageStore) list(conversationID string) []models.ChatMessage {
	return s.byConv[conversationID]
}

func (s *messageStore) copyList(conversationID string) []models.ChatMessage {
	msgs := s.byConv[conversationID]
	out := make([]models.ChatMessage, len(msgs))
	copy(out, msgs)
	return out
}

// dedupKey identifies a message for merge purposes: server id when present,
// otherwise a sender+content+second composite.
func dedupKey(m *models.ChatMessage) string {
	if m.ID != "" {
		return "id|" + m.ID
	}
	return fmt.Sprintf("ct|%s|%s|%d", m.SenderID, m.Content, m.CreatedAt.Unix())
}

func sortAscending(msgs []models.ChatMessage) {
	sort.SliceStable(msgs, func(i, j int) bool {
		return msgs[i].CreatedAt.Before(msgs[j].CreatedAt)
	})
}

// replace installs a freshly fetched first page. Pending local entries and
// live-pushed entries the page does not cover are carried over rather than
// clobbered; the fetch resolved against an older snapshot than the list may
// hold by now.
func (s *messageStore) replace(conversationID string, fetched []models.ChatMessage) {
	keep := make([]models.ChatMessage, 0)
	known := make(map[string]struct{}, len(fetched))
	byClientKey := make(map[string]struct{}, len(fetched))
	for i := range fetched {
		known[dedupKey(&fetched[i])] = struct{}{}
		if fetched[i].ClientKey != "" {
			byClientKey[fetched[i].ClientKey] = struct{}{}
		}
	}
	for _, m := range s.byConv[conversationID] {
		if m.ClientKey != "" {
			if _, ok := byClientKey[m.ClientKey]; ok {
				continue
			}
		}
		if _, ok := known[dedupKey(&m)]; ok {
			continue
		}
		if m.Pending() || m.FromPush {
			keep = append(keep, m)
		}
	}
	merged := append(fetched, keep...)
	sortAscending(merged)
	s.byConv[conversationID] = merged
}

// merge unions a later history page into the current list and reports how
// many entries were added. The current list wins on duplicates.
func (s *messageStore) merge(conversationID string, fetched []models.ChatMessage) int {
	current := s.byConv[conversationID]
	known := make(map[string]struct{}, len(current))
	byClientKey := make(map[string]struct{}, len(current))
	for i := range current {
		known[dedupKey(&current[i])] = struct{}{}
		if current[i].ClientKey != "" {
			byClientKey[current[i].ClientKey] = struct{}{}
		}
	}

	added := 0
	for _, m := range fetched {
		if _, ok := known[dedupKey(&m)]; ok {
			continue
		}
		if m.ClientKey != "" {
			if _, ok := byClientKey[m.ClientKey]; ok {
				continue
			}
		}
		current = append(current, m)
		known[dedupKey(&m)] = struct{}{}
		added++
	}
	sortAscending(current)
	s.byConv[conversationID] = current
	return added
}

// insert places one message at its sorted position.
func (s *messageStore) insert(conversationID string, msg models.ChatMessage) {
	msgs := append(s.byConv[conversationID], msg)
	sortAscending(msgs)
	s.byConv[conversationID] = msgs
}

func (s *messageStore) hasID(conversationID, messageID string) bool {
	if messageID == "" {
		return false
	}
	for _, m := range s.byConv[conversationID] {
		if m.ID == messageID {
			return true
		}
	}
	return false
}

// hasNear reports whether a confirmed entry with the same sender and content
// exists within the proximity window. Pending entries do not count; those are
// reconciled, not discarded.
func (s *messageStore) hasNear(conversationID, senderID, content string, at time.Time, window time.Duration) bool {
	for _, m := range s.byConv[conversationID] {
		if m.Pending() {
			continue
		}
		if m.SenderID == senderID && m.Content == content && absDuration(m.CreatedAt.Sub(at)) <= window {
			return true
		}
	}
	return false
}

// matchPending finds the optimistic entry a server copy corresponds to:
// echoed client key first, then sender+content proximity. A window of zero
// means no proximity bound (the server does not echo the temp id, so REST
// confirmations match on author+content alone).
func (s *messageStore) matchPending(conversationID string, msg *models.ChatMessage, window time.Duration) int {
	msgs := s.byConv[conversationID]
	if msg.ClientKey != "" {
		for i := range msgs {
			if msgs[i].ClientKey == msg.ClientKey {
				return i
			}
		}
	}
	for i := range msgs {
		if !msgs[i].Pending() {
			continue
		}
		if msgs[i].SenderID != msg.SenderID || msgs[i].Content != msg.Content {
			continue
		}
		if window > 0 && absDuration(msgs[i].CreatedAt.Sub(msg.CreatedAt)) > window {
			continue
		}
		return i
	}
	return -1
}

// confirm replaces the optimistic entry with the server copy, or inserts the
// server copy when no local counterpart exists anymore.
func (s *messageStore) confirm(conversationID string, confirmed models.ChatMessage) {
	idx := s.matchPending(conversationID, &confirmed, 0)
	if idx < 0 {
		if confirmed.ID != "" && s.hasID(conversationID, confirmed.ID) {
			return
		}
		s.insert(conversationID, confirmed)
		return
	}
	msgs := s.byConv[conversationID]
	msgs[idx] = confirmed
	sortAscending(msgs)
	s.byConv[conversationID] = msgs
}

// removeFailed drops a failed local entry with the same author and content.
// A resend replaces the failed entry instead of confirming next to it.
func (s *messageStore) removeFailed(conversationID, senderID, content string) {
	msgs := s.byConv[conversationID]
	for i := range msgs {
		if msgs[i].State == models.MessageFailed && msgs[i].SenderID == senderID && msgs[i].Content == content {
			s.byConv[conversationID] = append(msgs[:i], msgs[i+1:]...)
			return
		}
	}
}

func (s *messageStore) markFailed(conversationID, tempID string) {
	msgs := s.byConv[conversationID]
	for i := range msgs {
		if msgs[i].ID == tempID {
			msgs[i].State = models.MessageFailed
			return
		}
	}
}

// removeByID deletes a message wherever it lives and returns the removed
// entry with its conversation.
func (s *messageStore) removeByID(messageID string) (string, models.ChatMessage, bool) {
	for conversationID, msgs := range s.byConv {
		for i := range msgs {
			if msgs[i].ID == messageID {
				removed := msgs[i]
				s.byConv[conversationID] = append(msgs[:i], msgs[i+1:]...)
				return conversationID, removed, true
			}
		}
	}
	return "", models.ChatMessage{}, false
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
