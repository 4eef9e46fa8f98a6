package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/socialitehq/socialite/client"
	"github.com/socialitehq/socialite/config"
	"github.com/socialitehq/socialite/errors"
	"github.com/socialitehq/socialite/models"
)

// Minimal terminal front-end for the Socialite client. One conversation is
// open at a time; lines that are not commands are sent as messages.
func main() {
	conf, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	c, err := client.New(conf)
	if err != nil {
		log.Fatalf("error building client: %v", err)
	}

	ctx := context.Background()
	if err := c.Connect(ctx); err != nil {
		log.Printf("push channel unavailable, continuing without live updates: %v", err)
	}
	defer c.Close()

	c.Chat.SetNotifier(func(msg string) {
		fmt.Printf("! %s\n", msg)
	})
	c.Chat.Subscribe(func(conversationID string) {
		if conversationID != c.Chat.ActiveConversation() {
			return
		}
		render(c, conversationID)
	})

	fmt.Printf("signed in as %s\n", c.Session.Username)
	fmt.Println("commands: /conversations  /open <id>  /more  /delete <message-id>  /quit")

	scanner := bufio.NewScanner(os.Stdin)
	page := 1
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "/quit":
			return
		case line == "/conversations":
			listConversations(ctx, c)
		case strings.HasPrefix(line, "/open "):
			id := strings.TrimSpace(strings.TrimPrefix(line, "/open "))
			c.Chat.Open(id)
			page = 1
			if _, err := c.Chat.Fetch(ctx, id, page, false); err != nil {
				continue
			}
			render(c, id)
		case line == "/more":
			id := c.Chat.ActiveConversation()
			if id == "" {
				fmt.Println("open a conversation first")
				continue
			}
			if c.Chat.EndOfHistory(id) {
				fmt.Println("no older messages")
				continue
			}
			page++
			if _, err := c.Chat.Fetch(ctx, id, page, true); err != nil {
				page--
			}
		case strings.HasPrefix(line, "/delete "):
			id := strings.TrimSpace(strings.TrimPrefix(line, "/delete "))
			c.Chat.Delete(ctx, id)
		case line != "":
			id := c.Chat.ActiveConversation()
			if id == "" {
				fmt.Println("open a conversation first")
				continue
			}
			if _, err := c.Chat.Send(ctx, id, line); err != nil {
				if apiErr, ok := err.(*errors.Error); ok {
					fmt.Printf("! %s\n", apiErr.Message)
				}
			}
		}
	}
}

func listConversations(ctx context.Context, c *client.Client) {
	convs, err := c.Conversations.List(ctx)
	if err != nil {
		fmt.Printf("! could not list conversations: %v\n", err)
		return
	}
	for _, conv := range convs {
		fmt.Printf("%s  %s  (%s)\n", conv.ID, conv.Name, conv.LastMessage)
	}
}

func render(c *client.Client, conversationID string) {
	for _, entry := range c.Chat.Timeline(conversationID) {
		if entry.Separator != nil {
			fmt.Printf("---- %s ----\n", entry.Separator.Label)
			continue
		}
		m := entry.Message
		marker := ""
		switch m.State {
		case models.MessagePending:
			marker = " (sending)"
		case models.MessageFailed:
			marker = " (failed)"
		}
		fmt.Printf("[%s] %s: %s%s\n", m.CreatedAt.Format("15:04"), m.Sender.Name, m.Content, marker)
	}
}
