package conversations

import (
	"sync"

	"github.com/socialitehq/socialite/models"
)

// memberCache holds conversation membership by conversation id. Every
// membership mutation invalidates the affected conversation so the next read
// re-fetches.
type memberCache struct {
	mu      sync.Mutex
	members map[string][]models.Member
}

func newMemberCache() *memberCache {
	return &memberCache{members: make(map[string][]models.Member)}
}

func (c *memberCache) get(conversationID string) ([]models.Member, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	members, ok := c.members[conversationID]
	if !ok {
		return nil, false
	}
	out := make([]models.Member, len(members))
	copy(out, members)
	return out, true
}

func (c *memberCache) put(conversationID string, members []models.Member) {
	c.mu.Lock()
	defer c.mu.Unlock()
	held := make([]models.Member, len(members))
	copy(held, members)
	c.members[conversationID] = held
}

func (c *memberCache) invalidate(conversationID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.members, conversationID)
}
