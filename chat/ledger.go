package chat

import (
	"fmt"
	"time"
)

// ledgerMax is the high-water mark for processed-message keys. Past it the
// oldest keys are evicted first.
const ledgerMax = 512

// ledger remembers which push events have already been processed so the same
// message is never applied twice. Keys are composite: conversation+id,
// conversation+client key, and conversation+sender+content+second.
type ledger struct {
	seen  map[string]struct{}
	order []string
	max   int
}

func newLedger(max int) *ledger {
	if max <= 0 {
		max = ledgerMax
	}
	return &ledger{
		seen: make(map[string]struct{}),
		max:  max,
	}
}

func (l *ledger) mark(key string) {
	if key == "" {
		return
	}
	if _, ok := l.seen[key]; ok {
		return
	}
	l.seen[key] = struct{}{}
	l.order = append(l.order, key)
	for len(l.order) > l.max {
		oldest := l.order[0]
		l.order = l.order[1:]
		delete(l.seen, oldest)
	}
}

func (l *ledger) has(key string) bool {
	if key == "" {
		return false
	}
	_, ok := l.seen[key]
	return ok
}

func idKey(conversationID, messageID string) string {
	if messageID == "" {
		return ""
	}
	return fmt.Sprintf("id|%s|%s", conversationID, messageID)
}

func clientKeyKey(conversationID, clientKey string) string {
	if clientKey == "" {
		return ""
	}
	return fmt.Sprintf("ck|%s|%s", conversationID, clientKey)
}

func contentKey(conversationID, senderID, content string, at time.Time) string {
	return fmt.Sprintf("ct|%s|%s|%s|%d", conversationID, senderID, content, at.Unix())
}
