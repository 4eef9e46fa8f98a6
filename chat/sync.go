// Package chat keeps a per-conversation ordered, de-duplicated message list
// consistent across three input sources: paginated history fetches, optimistic
// local sends, and push-channel messages. It also derives the display timeline
// with day separators.
package chat

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/socialitehq/socialite/config"
	"github.com/socialitehq/socialite/errors"
	"github.com/socialitehq/socialite/models"
	"github.com/socialitehq/socialite/transport"
)

const (
	// resendWindow guards against double-submits of the same content.
	resendWindow = 10 * time.Second
	// pushWindow is the timestamp proximity inside which a push message and
	// a held entry with the same author and content count as the same
	// message. Fallback only; the client key is authoritative when echoed.
	pushWindow = 5 * time.Second
)

// Listener is notified whenever a conversation's list changed in a way the
// caller should re-render.
type Listener func(conversationID string)

// FetchResult reports the state of a conversation list after a history fetch.
// Prepended tells the caller how many entries appeared before its previous
// top, so a scroll position can be restored after an append.
type FetchResult struct {
	Messages     []models.ChatMessage
	Prepended    int
	EndOfHistory bool
}

// Synchronizer reconciles history fetches, optimistic sends and push-channel
// messages into one list per conversation. All methods are safe for
// concurrent use; a single mutex serializes mutations so every merge happens
// against the state current at resolution time, never a captured snapshot.
type Synchronizer struct {
	transport transport.Transport
	session   *transport.Session
	pageSize  int
	validate  *validator.Validate

	mu          sync.Mutex
	store       *messageStore
	ledger      *ledger
	ends        map[string]bool
	active      string
	listeners   []Listener
	recentSends map[string]time.Time

	notify func(string)
	now    func() time.Time
}

func NewSynchronizer(t transport.Transport, session *transport.Session, conf *config.Config) *Synchronizer {
	pageSize := 20
	if conf != nil && conf.PageSize > 0 {
		pageSize = conf.PageSize
	}
	return &Synchronizer{
		transport:   t,
		session:     session,
		pageSize:    pageSize,
		validate:    validator.New(),
		store:       newMessageStore(),
		ledger:      newLedger(ledgerMax),
		ends:        make(map[string]bool),
		recentSends: make(map[string]time.Time),
		notify:      func(msg string) { log.Printf("chat: %s", msg) },
		now:         time.Now,
	}
}

// SetNotifier routes user-visible failure notices to fn instead of the log.
func (s *Synchronizer) SetNotifier(fn func(string)) {
	if fn != nil {
		s.notify = fn
	}
}

// Subscribe registers a listener for list changes.
func (s *Synchronizer) Subscribe(l Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, l)
}

// Open marks a conversation as the one currently viewed. Push messages for
// other conversations are still stored but do not notify listeners.
func (s *Synchronizer) Open(conversationID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = conversationID
}

func (s *Synchronizer) ActiveConversation() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Messages returns a copy of a conversation's current list.
func (s *Synchronizer) Messages(conversationID string) []models.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.copyList(conversationID)
}

// Timeline returns the display sequence for a conversation.
func (s *Synchronizer) Timeline(conversationID string) []TimelineEntry {
	return Timeline(s.Messages(conversationID), s.now())
}

// EndOfHistory reports whether the last fetch for a conversation came back
// short, meaning there are no older pages left.
func (s *Synchronizer) EndOfHistory(conversationID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ends[conversationID]
}

// Fetch loads one page of history, newest first on the wire, and merges it
// chronologically. Page 1 replaces the held list (keeping pending and
// live-pushed entries); later pages with appendPage=true merge into whatever
// the list holds by the time the response arrives. A fetch error leaves the
// list untouched.
func (s *Synchronizer) Fetch(ctx context.Context, conversationID string, page int, appendPage bool) (*FetchResult, error) {
	if page < 1 {
		page = 1
	}
	path := fmt.Sprintf("/conversations/%s/messages?page=%d&limit=%d", conversationID, page, s.pageSize)
	var fetched []models.ChatMessage
	if _, err := s.transport.Get(ctx, path, &fetched); err != nil {
		s.notify(fmt.Sprintf("could not load messages: %v", err))
		return nil, err
	}

	// newest-first to chronological
	for i, j := 0, len(fetched)-1; i < j; i, j = i+1, j-1 {
		fetched[i], fetched[j] = fetched[j], fetched[i]
	}
	for i := range fetched {
		fetched[i].State = models.MessageConfirmed
	}

	s.mu.Lock()
	prepended := 0
	if appendPage {
		prepended = s.store.merge(conversationID, fetched)
	} else {
		s.store.replace(conversationID, fetched)
	}
	for i := range fetched {
		s.ledger.mark(idKey(conversationID, fetched[i].ID))
		s.ledger.mark(clientKeyKey(conversationID, fetched[i].ClientKey))
	}
	s.ends[conversationID] = len(fetched) < s.pageSize
	result := &FetchResult{
		Messages:     s.store.copyList(conversationID),
		Prepended:    prepended,
		EndOfHistory: s.ends[conversationID],
	}
	s.mu.Unlock()

	s.emit(conversationID)
	return result, nil
}

// Send validates the text, inserts an optimistic pending entry before any
// network round-trip, then posts it. On confirmation the pending entry is
// replaced by the server copy; on failure it stays, marked failed. Sending
// the same content twice inside the resend window is a silent no-op.
func (s *Synchronizer) Send(ctx context.Context, conversationID, content string) (*models.ChatMessage, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, errors.ErrEmptyMessage
	}
	req := models.SendMessageRequest{
		Content:   content,
		ClientKey: uuid.New().String(),
	}
	if err := s.validate.Struct(req); err != nil {
		return nil, errors.ErrMessageTooLong
	}

	now := s.now()
	sendKey := s.session.UserID + "|" + content

	s.mu.Lock()
	if last, ok := s.recentSends[sendKey]; ok && now.Sub(last) < resendWindow {
		s.mu.Unlock()
		return nil, nil
	}
	s.recentSends[sendKey] = now
	s.pruneRecentSendsLocked(now)

	// a resend of previously failed content replaces the failed entry
	s.store.removeFailed(conversationID, s.session.UserID, content)

	temp := models.ChatMessage{
		ID:             tempID(now),
		ClientKey:      req.ClientKey,
		ConversationID: conversationID,
		SenderID:       s.session.UserID,
		Sender:         s.session.Snapshot(),
		Content:        content,
		CreatedAt:      now,
		State:          models.MessagePending,
	}
	s.store.insert(conversationID, temp)
	s.mu.Unlock()
	s.emit(conversationID)

	var confirmed models.ChatMessage
	_, err := s.transport.Post(ctx, "/conversations/"+conversationID+"/messages", req, &confirmed)
	if err != nil {
		s.mu.Lock()
		s.store.markFailed(conversationID, temp.ID)
		s.mu.Unlock()
		s.notify(fmt.Sprintf("message could not be sent: %v", err))
		s.emit(conversationID)
		temp.State = models.MessageFailed
		return &temp, err
	}

	confirmed.State = models.MessageConfirmed
	if confirmed.ConversationID == "" {
		confirmed.ConversationID = conversationID
	}
	s.mu.Lock()
	s.store.confirm(conversationID, confirmed)
	// the push-channel echo of this message must dedup, whichever key it
	// arrives with
	s.ledger.mark(idKey(conversationID, confirmed.ID))
	s.ledger.mark(clientKeyKey(conversationID, confirmed.ClientKey))
	s.ledger.mark(contentKey(conversationID, confirmed.SenderID, confirmed.Content, confirmed.CreatedAt))
	s.mu.Unlock()
	s.emit(conversationID)
	return &confirmed, nil
}

// Receive ingests one push-channel message. Duplicates (ledger, id, client
// key, or author+content inside the proximity window) are discarded; a
// matching pending entry is promoted in place instead of inserted next to.
func (s *Synchronizer) Receive(msg models.ChatMessage) {
	conversationID := msg.ConversationID
	if conversationID == "" {
		return
	}

	s.mu.Lock()
	if s.ledger.has(idKey(conversationID, msg.ID)) ||
		s.ledger.has(clientKeyKey(conversationID, msg.ClientKey)) ||
		s.ledger.has(contentKey(conversationID, msg.SenderID, msg.Content, msg.CreatedAt)) {
		s.mu.Unlock()
		return
	}
	if s.store.hasID(conversationID, msg.ID) {
		s.markProcessedLocked(conversationID, &msg)
		s.mu.Unlock()
		return
	}

	msg.State = models.MessageConfirmed
	msg.FromPush = true
	if idx := s.store.matchPending(conversationID, &msg, pushWindow); idx >= 0 {
		msgs := s.store.list(conversationID)
		msgs[idx] = msg
		sortAscending(msgs)
	} else if s.store.hasNear(conversationID, msg.SenderID, msg.Content, msg.CreatedAt, pushWindow) {
		s.markProcessedLocked(conversationID, &msg)
		s.mu.Unlock()
		return
	} else {
		s.store.insert(conversationID, msg)
	}
	s.markProcessedLocked(conversationID, &msg)
	activeConversation := s.active == conversationID
	s.mu.Unlock()

	if activeConversation {
		s.emit(conversationID)
	}
}

// Delete removes the message from the held list immediately, then issues the
// deletion. A server failure is reported and answered with a full page-1
// refetch of the conversation; there is no fine-grained rollback.
func (s *Synchronizer) Delete(ctx context.Context, messageID string) error {
	s.mu.Lock()
	conversationID, removed, ok := s.store.removeByID(messageID)
	s.mu.Unlock()
	if ok {
		s.emit(conversationID)
	}

	// pending and failed entries exist only locally; the server has nothing
	// to delete
	if ok && removed.Pending() {
		return nil
	}

	if _, err := s.transport.Delete(ctx, "/messages/"+messageID, nil); err != nil {
		s.notify(fmt.Sprintf("message could not be deleted: %v", err))
		if conversationID != "" {
			if _, ferr := s.Fetch(ctx, conversationID, 1, false); ferr != nil {
				log.Printf("chat: resync after failed delete: %v", ferr)
			}
		}
		return err
	}
	return nil
}

func (s *Synchronizer) markProcessedLocked(conversationID string, msg *models.ChatMessage) {
	s.ledger.mark(idKey(conversationID, msg.ID))
	s.ledger.mark(clientKeyKey(conversationID, msg.ClientKey))
	s.ledger.mark(contentKey(conversationID, msg.SenderID, msg.Content, msg.CreatedAt))
}

func (s *Synchronizer) pruneRecentSendsLocked(now time.Time) {
	for key, at := range s.recentSends {
		if now.Sub(at) >= resendWindow {
			delete(s.recentSends, key)
		}
	}
}

func (s *Synchronizer) emit(conversationID string) {
	s.mu.Lock()
	listeners := make([]Listener, len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.Unlock()
	for _, l := range listeners {
		l(conversationID)
	}
}

func tempID(now time.Time) string {
	return fmt.Sprintf("temp-%d-%04d", now.UnixMilli(), rand.Intn(10000))
}
