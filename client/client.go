// Package client wires the Socialite client together: REST transport,
// session identity, message synchronizer, conversation and social services,
// push socket and signaling.
package client

import (
	"context"
	"encoding/json"
	"log"

	"github.com/socialitehq/socialite/chat"
	"github.com/socialitehq/socialite/config"
	"github.com/socialitehq/socialite/conversations"
	"github.com/socialitehq/socialite/models"
	"github.com/socialitehq/socialite/push"
	"github.com/socialitehq/socialite/signal"
	"github.com/socialitehq/socialite/social"
	"github.com/socialitehq/socialite/transport"
)

type Client struct {
	Config        *config.Config
	Transport     transport.Transport
	Session       *transport.Session
	Chat          *chat.Synchronizer
	Conversations conversations.Service
	Social        social.Service
	Socket        *push.Socket
	Signal        *signal.Client
}

func New(conf *config.Config) (*Client, error) {
	session, err := transport.NewSession(conf.AccessToken)
	if err != nil {
		return nil, err
	}

	t := transport.NewHTTP(conf)
	synchronizer := chat.NewSynchronizer(t, session, conf)
	socket := push.NewSocket(conf)
	socket.Handle(models.EventNewMessage, func(payload json.RawMessage) {
		var msg models.ChatMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			log.Printf("client: bad new-message payload: %v", err)
			return
		}
		synchronizer.Receive(msg)
	})

	return &Client{
		Config:        conf,
		Transport:     t,
		Session:       session,
		Chat:          synchronizer,
		Conversations: conversations.NewService(t, session, conf),
		Social:        social.NewService(t, conf),
		Socket:        socket,
		Signal:        signal.NewClient(socket, session.UserID),
	}, nil
}

// Connect opens the push channel. The REST surface works without it; only
// live updates and signaling need the socket.
func (c *Client) Connect(ctx context.Context) error {
	return c.Socket.Connect(ctx)
}

// Close tears the push channel down for good.
func (c *Client) Close() {
	c.Socket.Disconnect()
}
