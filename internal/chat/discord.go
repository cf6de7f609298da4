// Package chat adapts the Discord API to the workflow's chat-platform
// surface. Cards render as a single embed plus component rows; decoding
// reads the embed back, since the embed is the request's wire format.
package chat

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/bwmarrin/discordgo"

	"github.com/connorheyz/google-drive-uploader-bot/internal/uploader"
)

// Discord implements uploader.ChatPlatform over a discordgo session.
type Discord struct {
	session *discordgo.Session
}

// NewDiscord wraps an open session.
func NewDiscord(session *discordgo.Session) *Discord {
	return &Discord{session: session}
}

func (d *Discord) SendDirect(ctx context.Context, userID string, card *uploader.Card) (uploader.CardRef, error) {
	channel, err := d.session.UserChannelCreate(userID, discordgo.WithContext(ctx))
	if err != nil {
		return uploader.CardRef{}, fmt.Errorf("opening DM channel for %s: %w", userID, err)
	}
	return d.send(ctx, channel.ID, card)
}

func (d *Discord) PostToChannel(ctx context.Context, channelID string, card *uploader.Card) (uploader.CardRef, error) {
	return d.send(ctx, channelID, card)
}

func (d *Discord) send(ctx context.Context, channelID string, card *uploader.Card) (uploader.CardRef, error) {
	msg, err := d.session.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
		Embeds:     []*discordgo.MessageEmbed{BuildEmbed(card)},
		Components: BuildComponents(card),
	}, discordgo.WithContext(ctx))
	if err != nil {
		return uploader.CardRef{}, fmt.Errorf("sending message to %s: %w", channelID, err)
	}
	return uploader.CardRef{ChannelID: channelID, MessageID: msg.ID}, nil
}

func (d *Discord) EditMessage(ctx context.Context, ref uploader.CardRef, card *uploader.Card) error {
	embeds := []*discordgo.MessageEmbed{BuildEmbed(card)}
	components := BuildComponents(card)
	_, err := d.session.ChannelMessageEditComplex(&discordgo.MessageEdit{
		Channel:    ref.ChannelID,
		ID:         ref.MessageID,
		Embeds:     &embeds,
		Components: &components,
	}, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("editing message %s: %w", ref.MessageID, wrapNotFound(err))
	}
	return nil
}

func (d *Discord) DeleteMessage(ctx context.Context, ref uploader.CardRef) error {
	if err := d.session.ChannelMessageDelete(ref.ChannelID, ref.MessageID, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("deleting message %s: %w", ref.MessageID, wrapNotFound(err))
	}
	return nil
}

func (d *Discord) FetchCard(ctx context.Context, ref uploader.CardRef) (*uploader.Card, error) {
	msg, err := d.session.ChannelMessage(ref.ChannelID, ref.MessageID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("fetching message %s: %w", ref.MessageID, wrapNotFound(err))
	}
	return CardFromMessage(msg), nil
}

// wrapNotFound maps Discord's unknown-message responses onto the
// workflow's expired-request sentinel.
func wrapNotFound(err error) error {
	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) && restErr.Response != nil && restErr.Response.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %v", uploader.ErrNotFound, err)
	}
	return err
}

// BuildEmbed renders a card as a Discord embed.
func BuildEmbed(card *uploader.Card) *discordgo.MessageEmbed {
	fields := make([]*discordgo.MessageEmbedField, 0, len(card.Fields))
	for _, f := range card.Fields {
		fields = append(fields, &discordgo.MessageEmbedField{Name: f.Label, Value: f.Value})
	}
	return &discordgo.MessageEmbed{
		Title:       card.Title,
		Description: card.Body,
		Fields:      fields,
	}
}

// BuildComponents renders a card's controls as component rows. A card
// without controls yields an empty (non-nil) slice so that editing a
// message with it strips any previous controls.
func BuildComponents(card *uploader.Card) []discordgo.MessageComponent {
	rows := []discordgo.MessageComponent{}
	if card.Select != nil {
		options := make([]discordgo.SelectMenuOption, 0, len(card.Select.Options))
		for _, name := range card.Select.Options {
			options = append(options, discordgo.SelectMenuOption{Label: name, Value: name})
		}
		rows = append(rows, discordgo.ActionsRow{
			Components: []discordgo.MessageComponent{
				discordgo.SelectMenu{
					CustomID:    card.Select.ID,
					Placeholder: card.Select.Placeholder,
					Options:     options,
				},
			},
		})
	}
	if len(card.Buttons) > 0 {
		buttons := make([]discordgo.MessageComponent, 0, len(card.Buttons))
		for _, b := range card.Buttons {
			buttons = append(buttons, discordgo.Button{
				CustomID: b.ID,
				Label:    b.Label,
				Style:    buttonStyle(b.Style),
			})
		}
		rows = append(rows, discordgo.ActionsRow{Components: buttons})
	}
	return rows
}

func buttonStyle(style uploader.ButtonStyle) discordgo.ButtonStyle {
	switch style {
	case uploader.ButtonPrimary:
		return discordgo.PrimaryButton
	case uploader.ButtonDanger:
		return discordgo.DangerButton
	}
	return discordgo.SecondaryButton
}

// CardFromMessage converts a Discord message back to a card. Messages
// without an embed yield an untitled card, which the decoder rejects.
func CardFromMessage(msg *discordgo.Message) *uploader.Card {
	card := &uploader.Card{}
	if msg == nil || len(msg.Embeds) == 0 {
		return card
	}
	embed := msg.Embeds[0]
	card.Title = embed.Title
	card.Body = embed.Description
	for _, f := range embed.Fields {
		card.Fields = append(card.Fields, uploader.CardField{Label: f.Name, Value: f.Value})
	}
	return card
}

// Compile-time check that Discord implements the chat-platform surface.
var _ uploader.ChatPlatform = (*Discord)(nil)
