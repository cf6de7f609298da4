// Package bot routes Discord gateway events into the workflow core. It
// owns no state: it translates reactions, component interactions, and
// modal submissions into transition events and converts failures into
// ephemeral user-facing messages.
package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/connorheyz/google-drive-uploader-bot/internal/chat"
	"github.com/connorheyz/google-drive-uploader-bot/internal/foldercache"
	"github.com/connorheyz/google-drive-uploader-bot/internal/settings"
	"github.com/connorheyz/google-drive-uploader-bot/internal/uploader"
)

// Router wires gateway events to the workflow service.
type Router struct {
	session   *discordgo.Session
	service   *uploader.Service
	store     settings.Store
	cache     *foldercache.Cache
	refresher *foldercache.Refresher
	logger    uploader.Logger
}

// New creates a router. Register must be called before the session opens.
func New(session *discordgo.Session, service *uploader.Service, store settings.Store, cache *foldercache.Cache, refresher *foldercache.Refresher, logger uploader.Logger) *Router {
	if logger == nil {
		logger = uploader.NewNopLogger()
	}
	return &Router{
		session:   session,
		service:   service,
		store:     store,
		cache:     cache,
		refresher: refresher,
		logger:    logger,
	}
}

// Register installs the gateway event handlers.
func (r *Router) Register() {
	r.session.AddHandler(r.onReactionAdd)
	r.session.AddHandler(r.onInteraction)
}

// onReactionAdd is the initiation path: a trigger reaction on an
// attachment-bearing message in an allowed source channel.
func (r *Router) onReactionAdd(s *discordgo.Session, ev *discordgo.MessageReactionAdd) {
	ctx := context.Background()

	trigger, err := r.store.Get(ctx, settings.KeyTriggerEmoji)
	if err != nil {
		r.logger.Warn("trigger emoji lookup failed", "error", err)
		return
	}
	if trigger == "" {
		trigger = settings.DefaultTriggerEmoji
	}
	if ev.Emoji.Name != trigger {
		return
	}

	allowed, err := r.isSourceChannel(ctx, ev.ChannelID)
	if err != nil {
		r.logger.Warn("source channel lookup failed", "error", err)
		return
	}
	if !allowed {
		return
	}

	msg, err := s.ChannelMessage(ev.ChannelID, ev.MessageID, discordgo.WithContext(ctx))
	if err != nil {
		r.logger.Warn("fetching flagged message failed", "message", ev.MessageID, "error", err)
		return
	}
	if msg.Author == nil || len(msg.Attachments) == 0 {
		return
	}
	att := msg.Attachments[0]

	actor := uploader.Actor{ID: ev.UserID}
	if ev.Member != nil {
		actor.DisplayName = ev.Member.DisplayName()
		actor.Roles = r.roleNames(ctx, ev.GuildID, ev.Member.Roles)
	}

	item := uploader.SourceItem{
		Ref: uploader.SourceRef{
			ChannelID:    ev.ChannelID,
			MessageID:    ev.MessageID,
			URL:          att.URL,
			Size:         int64(att.Size),
			ContentType:  att.ContentType,
			OriginalName: att.Filename,
		},
		AuthorID: msg.Author.ID,
		GuildID:  ev.GuildID,
	}

	if err := r.service.Initiate(ctx, actor, item); err != nil {
		r.logger.Error("initiation failed", "actor", actor.ID, "error", err)
	}
}

func (r *Router) isSourceChannel(ctx context.Context, channelID string) (bool, error) {
	channels, err := r.store.SourceChannels(ctx)
	if err != nil {
		return false, err
	}
	for _, id := range channels {
		if id == channelID {
			return true, nil
		}
	}
	return false, nil
}

func (r *Router) onInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	ctx := context.Background()

	switch i.Type {
	case discordgo.InteractionMessageComponent:
		r.handleComponent(ctx, i)
	case discordgo.InteractionModalSubmit:
		r.handleModalSubmit(ctx, i)
	case discordgo.InteractionApplicationCommand:
		r.handleCommand(ctx, i)
	}
}

// componentKinds maps component ids onto the closed transition-kind set.
var componentKinds = map[string]uploader.Kind{
	uploader.ComponentNavigate:    uploader.KindNavigateInto,
	uploader.ComponentBack:        uploader.KindNavigateBack,
	uploader.ComponentEdit:        uploader.KindEditDetails,
	uploader.ComponentConfirm:     uploader.KindConfirm,
	uploader.ComponentCancel:      uploader.KindCancel,
	uploader.ComponentApprove:     uploader.KindApprove,
	uploader.ComponentDeny:        uploader.KindDeny,
	uploader.ComponentOfficerEdit: uploader.KindOfficerEdit,
}

func (r *Router) handleComponent(ctx context.Context, i *discordgo.InteractionCreate) {
	data := i.MessageComponentData()
	kind, ok := componentKinds[data.CustomID]
	if !ok {
		return
	}

	ev := &uploader.Event{
		Kind:  kind,
		Actor: r.actorFrom(ctx, i),
		Ref:   uploader.CardRef{ChannelID: i.ChannelID, MessageID: i.Message.ID},
		Card:  chat.CardFromMessage(i.Message),
	}
	if len(data.Values) > 0 {
		ev.Value = data.Values[0]
	}

	result, err := r.service.Dispatch(ctx, ev)
	if err != nil {
		r.respondError(i, kind.String(), err)
		return
	}
	if result != nil && result.Modal != nil {
		r.respondModal(i, result.Modal)
		return
	}
	r.ack(i)
}

func (r *Router) handleModalSubmit(ctx context.Context, i *discordgo.InteractionCreate) {
	data := i.ModalSubmitData()
	values := modalValues(data.Components)

	ref := uploader.CardRef{}
	var card *uploader.Card
	if i.Message != nil {
		ref = uploader.CardRef{ChannelID: i.ChannelID, MessageID: i.Message.ID}
		card = chat.CardFromMessage(i.Message)
	}

	var err error
	switch {
	case strings.HasPrefix(data.CustomID, uploader.ModalDetailsPrefix):
		token := strings.TrimPrefix(data.CustomID, uploader.ModalDetailsPrefix)
		err = r.service.CompleteDetailsEdit(ctx, token, ref, card,
			values[uploader.InputFileName], values[uploader.InputDescription])
	case strings.HasPrefix(data.CustomID, uploader.ModalOfficerEditPrefix):
		token := strings.TrimPrefix(data.CustomID, uploader.ModalOfficerEditPrefix)
		err = r.service.CompleteReviewEdit(ctx, token, ref, card,
			values[uploader.InputFileName], values[uploader.InputDescription],
			values[uploader.InputDestination])
	default:
		return
	}

	if err != nil {
		r.respondError(i, "form submission", err)
		return
	}
	r.ack(i)
}

func modalValues(rows []discordgo.MessageComponent) map[string]string {
	out := make(map[string]string)
	for _, row := range rows {
		actionsRow, ok := row.(*discordgo.ActionsRow)
		if !ok {
			continue
		}
		for _, c := range actionsRow.Components {
			if input, ok := c.(*discordgo.TextInput); ok {
				out[input.CustomID] = input.Value
			}
		}
	}
	return out
}

func (r *Router) actorFrom(ctx context.Context, i *discordgo.InteractionCreate) uploader.Actor {
	if i.Member != nil && i.Member.User != nil {
		return uploader.Actor{
			ID:          i.Member.User.ID,
			DisplayName: i.Member.DisplayName(),
			Roles:       r.roleNames(ctx, i.GuildID, i.Member.Roles),
		}
	}
	if i.User != nil {
		return uploader.Actor{ID: i.User.ID, DisplayName: i.User.Username}
	}
	return uploader.Actor{}
}

// roleNames resolves role ids to names. The privileged capability is
// configured by name, so events carry names, not ids.
func (r *Router) roleNames(ctx context.Context, guildID string, roleIDs []string) []string {
	if guildID == "" || len(roleIDs) == 0 {
		return nil
	}
	guildRoles, err := r.session.GuildRoles(guildID, discordgo.WithContext(ctx))
	if err != nil {
		r.logger.Warn("resolving guild roles failed", "guild", guildID, "error", err)
		return nil
	}
	byID := make(map[string]string, len(guildRoles))
	for _, role := range guildRoles {
		byID[role.ID] = role.Name
	}
	names := make([]string, 0, len(roleIDs))
	for _, id := range roleIDs {
		if name, ok := byID[id]; ok {
			names = append(names, name)
		}
	}
	return names
}

// ack acknowledges a component or modal interaction whose message the
// service already rewrote.
func (r *Router) ack(i *discordgo.InteractionCreate) {
	err := r.session.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredMessageUpdate,
	})
	if err != nil {
		r.logger.Warn("interaction ack failed", "error", err)
	}
}

func (r *Router) respondModal(i *discordgo.InteractionCreate, modal *uploader.ModalRequest) {
	rows := make([]discordgo.MessageComponent, 0, len(modal.Inputs))
	for _, in := range modal.Inputs {
		style := discordgo.TextInputShort
		if in.ID == uploader.InputDescription {
			style = discordgo.TextInputParagraph
		}
		rows = append(rows, discordgo.ActionsRow{
			Components: []discordgo.MessageComponent{
				discordgo.TextInput{
					CustomID: in.ID,
					Label:    in.Label,
					Style:    style,
					Value:    in.Value,
					Required: in.Required,
				},
			},
		})
	}
	err := r.session.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseModal,
		Data: &discordgo.InteractionResponseData{
			CustomID:   modal.ID,
			Title:      modal.Title,
			Components: rows,
		},
	})
	if err != nil {
		r.logger.Warn("modal response failed", "error", err)
	}
}

// respondError converts a transition failure into an ephemeral message for
// the acting user. Unexpected errors are logged with detail and reported
// generically.
func (r *Router) respondError(i *discordgo.InteractionCreate, operation string, err error) {
	msg := userMessage(err)
	if msg == "" {
		r.logger.Error("unexpected transition failure", "operation", operation, "error", err)
		msg = "Something went wrong. Please try again."
	} else {
		r.logger.Info("transition rejected", "operation", operation, "error", err)
	}
	respErr := r.session.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: msg,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
	if respErr != nil {
		r.logger.Warn("error response failed", "error", respErr)
	}
}

func userMessage(err error) string {
	var terr *uploader.TransferError
	switch {
	case errors.Is(err, uploader.ErrNotFound):
		return "This request has expired or can no longer be found."
	case errors.Is(err, uploader.ErrAlreadyProcessed):
		return "This request has already been processed."
	case errors.Is(err, uploader.ErrConfigurationMissing):
		return "No review channel is configured for this request's source. Ask an admin to map one."
	case errors.Is(err, uploader.ErrPermissionDenied):
		return "You don't have permission to do that."
	case errors.As(err, &terr):
		return fmt.Sprintf("The transfer failed during %s. See the review card for details.", terr.Stage)
	}
	// Requester-input problems (empty file name, already at root) read
	// fine verbatim; anything wrapped or internal falls through to "".
	if msg := err.Error(); !strings.Contains(msg, ":") {
		return msg
	}
	return ""
}
