// Package signal bootstraps peer-to-peer calls over the push channel. It is
// independent of any rendering concern; the media layer consumes the opaque
// signal data on both ends.
package signal

import (
	"encoding/json"
	"log"
	"sync"

	pkgerrors "github.com/pkg/errors"
	"github.com/socialitehq/socialite/models"
	"github.com/socialitehq/socialite/push"
)

// Channel is the slice of the socket the signaling client needs.
type Channel interface {
	Emit(event models.Event) error
	Handle(eventType string, h push.Handler)
}

// Call is the one call staged at a time.
type Call struct {
	PeerID     string
	SignalData json.RawMessage
	Outgoing   bool
}

// Client drives the call-user / call-incoming / call-accepted /
// call-declined / end-call exchange.
type Client struct {
	channel Channel
	selfID  string

	mu      sync.Mutex
	current *Call

	// callbacks, optional; invoked off the socket read loop
	OnIncoming func(Call)
	OnAccepted func(Call)
	OnDeclined func(Call)
	OnEnded    func(Call)
}

func NewClient(channel Channel, selfID string) *Client {
	c := &Client{channel: channel, selfID: selfID}
	channel.Handle(models.EventCallIncoming, c.handleIncoming)
	channel.Handle(models.EventCallAccepted, c.handleAccepted)
	channel.Handle(models.EventCallDeclined, c.handleDeclined)
	channel.Handle(models.EventEndCall, c.handleEnded)
	return c
}

// Call rings a peer. Only one call can be staged at a time.
func (c *Client) Call(peerID string, signalData json.RawMessage) error {
	c.mu.Lock()
	if c.current != nil {
		c.mu.Unlock()
		return pkgerrors.New("a call is already in progress")
	}
	c.current = &Call{PeerID: peerID, SignalData: signalData, Outgoing: true}
	c.mu.Unlock()

	err := c.emit(models.EventCallUser, peerID, signalData)
	if err != nil {
		c.clear()
	}
	return err
}

// Answer accepts the staged incoming call, handing the callee's signal data
// back to the caller.
func (c *Client) Answer(signalData json.RawMessage) error {
	call, ok := c.staged(false)
	if !ok {
		return pkgerrors.New("no incoming call to answer")
	}
	return c.emit(models.EventCallAccepted, call.PeerID, signalData)
}

// Decline rejects the staged incoming call.
func (c *Client) Decline() error {
	call, ok := c.staged(false)
	if !ok {
		return pkgerrors.New("no incoming call to decline")
	}
	err := c.emit(models.EventCallDeclined, call.PeerID, nil)
	c.clear()
	return err
}

// Hangup ends the staged call, whichever side initiated it.
func (c *Client) Hangup() error {
	c.mu.Lock()
	call := c.current
	c.mu.Unlock()
	if call == nil {
		return pkgerrors.New("no call in progress")
	}
	err := c.emit(models.EventEndCall, call.PeerID, nil)
	c.clear()
	return err
}

// Current returns the staged call, if any.
func (c *Client) Current() (Call, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return Call{}, false
	}
	return *c.current, true
}

func (c *Client) emit(eventType, to string, signalData json.RawMessage) error {
	event, err := models.NewEvent(eventType, models.SignalPayload{
		From:       c.selfID,
		To:         to,
		SignalData: signalData,
	})
	if err != nil {
		return err
	}
	return c.channel.Emit(event)
}

func (c *Client) staged(outgoing bool) (Call, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil || c.current.Outgoing != outgoing {
		return Call{}, false
	}
	return *c.current, true
}

func (c *Client) clear() {
	c.mu.Lock()
	c.current = nil
	c.mu.Unlock()
}

func (c *Client) handleIncoming(payload json.RawMessage) {
	var p models.SignalPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		log.Printf("signal: bad call-incoming payload: %v", err)
		return
	}
	call := Call{PeerID: p.From, SignalData: p.SignalData}
	c.mu.Lock()
	busy := c.current != nil
	if !busy {
		c.current = &call
	}
	c.mu.Unlock()
	if busy {
		// already on a call; decline without touching the staged one
		if err := c.emit(models.EventCallDeclined, p.From, nil); err != nil {
			log.Printf("signal: decline while busy: %v", err)
		}
		return
	}
	if c.OnIncoming != nil {
		c.OnIncoming(call)
	}
}

func (c *Client) handleAccepted(payload json.RawMessage) {
	var p models.SignalPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		log.Printf("signal: bad call-accepted payload: %v", err)
		return
	}
	call, ok := c.staged(true)
	if !ok || call.PeerID != p.From {
		return
	}
	call.SignalData = p.SignalData
	if c.OnAccepted != nil {
		c.OnAccepted(call)
	}
}

func (c *Client) handleDeclined(payload json.RawMessage) {
	var p models.SignalPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		log.Printf("signal: bad call-declined payload: %v", err)
		return
	}
	call, ok := c.staged(true)
	if !ok || call.PeerID != p.From {
		return
	}
	c.clear()
	if c.OnDeclined != nil {
		c.OnDeclined(call)
	}
}

func (c *Client) handleEnded(payload json.RawMessage) {
	var p models.SignalPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		log.Printf("signal: bad end-call payload: %v", err)
		return
	}
	c.mu.Lock()
	call := c.current
	matches := call != nil && call.PeerID == p.From
	if matches {
		c.current = nil
	}
	c.mu.Unlock()
	if matches && c.OnEnded != nil {
		c.OnEnded(*call)
	}
}
