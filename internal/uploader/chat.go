package uploader

import "context"

// ChatPlatform is the narrow surface the workflow needs from the chat
// adapter. Every method is an I/O suspension point; failures are returned,
// never panicked.
type ChatPlatform interface {
	// SendDirect delivers a card to a user's direct-message channel and
	// returns a reference to the created message.
	SendDirect(ctx context.Context, userID string, card *Card) (CardRef, error)

	// PostToChannel posts a card to a channel.
	PostToChannel(ctx context.Context, channelID string, card *Card) (CardRef, error)

	// EditMessage replaces the rendering of an existing message.
	EditMessage(ctx context.Context, ref CardRef, card *Card) error

	// DeleteMessage removes a message. Callers treat failure as
	// non-fatal: deletion is clutter reduction, not state.
	DeleteMessage(ctx context.Context, ref CardRef) error

	// FetchCard retrieves a message and converts it back to a Card.
	// Returns ErrNotFound if the message no longer exists.
	FetchCard(ctx context.Context, ref CardRef) (*Card, error)
}
