package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/connorheyz/google-drive-uploader-bot/internal/uploader"
)

// ChatRecorder is an in-memory chat platform. Cards survive edits the way
// real messages do, so tests can decode what a user would see.
type ChatRecorder struct {
	mu      sync.Mutex
	nextID  int
	cards   map[uploader.CardRef]*uploader.Card
	Directs []DirectMessage
	Posts   []ChannelPost
	Edits   []uploader.CardRef
	Deletes []uploader.CardRef
}

// DirectMessage records a card sent to a user's DM channel.
type DirectMessage struct {
	UserID string
	Ref    uploader.CardRef
	Card   *uploader.Card
}

// ChannelPost records a card posted to a channel.
type ChannelPost struct {
	ChannelID string
	Ref       uploader.CardRef
	Card      *uploader.Card
}

var _ uploader.ChatPlatform = (*ChatRecorder)(nil)

func NewChatRecorder() *ChatRecorder {
	return &ChatRecorder{cards: make(map[uploader.CardRef]*uploader.Card)}
}

func (c *ChatRecorder) SendDirect(_ context.Context, userID string, card *uploader.Card) (uploader.CardRef, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ref := c.place("dm:"+userID, card)
	c.Directs = append(c.Directs, DirectMessage{UserID: userID, Ref: ref, Card: card})
	return ref, nil
}

func (c *ChatRecorder) PostToChannel(_ context.Context, channelID string, card *uploader.Card) (uploader.CardRef, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ref := c.place(channelID, card)
	c.Posts = append(c.Posts, ChannelPost{ChannelID: channelID, Ref: ref, Card: card})
	return ref, nil
}

func (c *ChatRecorder) EditMessage(_ context.Context, ref uploader.CardRef, card *uploader.Card) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.cards[ref]; !ok {
		return fmt.Errorf("editing %s/%s: %w", ref.ChannelID, ref.MessageID, uploader.ErrNotFound)
	}
	c.cards[ref] = card
	c.Edits = append(c.Edits, ref)
	return nil
}

func (c *ChatRecorder) DeleteMessage(_ context.Context, ref uploader.CardRef) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.cards[ref]; !ok {
		return fmt.Errorf("deleting %s/%s: %w", ref.ChannelID, ref.MessageID, uploader.ErrNotFound)
	}
	delete(c.cards, ref)
	c.Deletes = append(c.Deletes, ref)
	return nil
}

func (c *ChatRecorder) FetchCard(_ context.Context, ref uploader.CardRef) (*uploader.Card, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	card, ok := c.cards[ref]
	if !ok {
		return nil, fmt.Errorf("fetching %s/%s: %w", ref.ChannelID, ref.MessageID, uploader.ErrNotFound)
	}
	return card, nil
}

// Card returns the current rendering at ref, or nil when absent.
func (c *ChatRecorder) Card(ref uploader.CardRef) *uploader.Card {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cards[ref]
}

// LastDirect returns the most recent DM sent to userID, or nil.
func (c *ChatRecorder) LastDirect(userID string) *DirectMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := len(c.Directs) - 1; i >= 0; i-- {
		if c.Directs[i].UserID == userID {
			return &c.Directs[i]
		}
	}
	return nil
}

// place must be called with the lock held.
func (c *ChatRecorder) place(channelID string, card *uploader.Card) uploader.CardRef {
	c.nextID++
	ref := uploader.CardRef{ChannelID: channelID, MessageID: fmt.Sprintf("msg-%d", c.nextID)}
	c.cards[ref] = card
	return ref
}
