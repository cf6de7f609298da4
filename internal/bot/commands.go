package bot

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/connorheyz/google-drive-uploader-bot/internal/settings"
	"github.com/connorheyz/google-drive-uploader-bot/internal/uploader"
)

// adminCommand is the privileged slash-command surface. Every subcommand
// maps onto a settings or folder-cache operation.
var adminCommand = &discordgo.ApplicationCommand{
	Name:        "driveup",
	Description: "Configure the upload bot",
	Options: []*discordgo.ApplicationCommandOption{
		{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        "set-trigger",
			Description: "Set the reaction emoji that starts an upload request",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionString, Name: "emoji", Description: "Trigger emoji", Required: true},
			},
		},
		{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        "add-source",
			Description: "Allow upload requests from a channel",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionChannel, Name: "channel", Description: "Source channel", Required: true},
			},
		},
		{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        "remove-source",
			Description: "Stop accepting upload requests from a channel",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionChannel, Name: "channel", Description: "Source channel", Required: true},
			},
		},
		{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        "map-review",
			Description: "Route a source channel's requests to a review channel",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionChannel, Name: "source", Description: "Source channel", Required: true},
				{Type: discordgo.ApplicationCommandOptionChannel, Name: "review", Description: "Review channel", Required: true},
			},
		},
		{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        "set-root",
			Description: "Set the root folder by id or Drive link",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionString, Name: "folder", Description: "Folder id or link", Required: true},
			},
		},
		{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        "set-role",
			Description: "Set the privileged role name",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionString, Name: "role", Description: "Role name", Required: true},
			},
		},
		{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        "refresh",
			Description: "Rebuild the folder cache now",
		},
		{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        "show-config",
			Description: "Show the current configuration",
		},
	},
}

// RegisterCommands creates the admin command for a guild ("" for global).
func (r *Router) RegisterCommands(guildID string) error {
	if r.session.State == nil || r.session.State.User == nil {
		return fmt.Errorf("session is not ready")
	}
	_, err := r.session.ApplicationCommandCreate(r.session.State.User.ID, guildID, adminCommand)
	if err != nil {
		return fmt.Errorf("registering admin command: %w", err)
	}
	return nil
}

func (r *Router) handleCommand(ctx context.Context, i *discordgo.InteractionCreate) {
	data := i.ApplicationCommandData()
	if data.Name != adminCommand.Name || len(data.Options) == 0 {
		return
	}

	if !r.isPrivileged(ctx, i) {
		// Command attempts, unlike initiation reactions, get an explicit
		// refusal.
		r.respondError(i, data.Name, uploader.ErrPermissionDenied)
		return
	}

	sub := data.Options[0]
	reply, err := r.runAdminCommand(ctx, sub)
	if err != nil {
		r.respondError(i, sub.Name, err)
		return
	}
	r.respondEphemeral(i, reply)
}

func (r *Router) runAdminCommand(ctx context.Context, sub *discordgo.ApplicationCommandInteractionDataOption) (string, error) {
	opts := make(map[string]*discordgo.ApplicationCommandInteractionDataOption, len(sub.Options))
	for _, o := range sub.Options {
		opts[o.Name] = o
	}

	switch sub.Name {
	case "set-trigger":
		emoji := strings.TrimSpace(opts["emoji"].StringValue())
		if emoji == "" {
			return "", fmt.Errorf("emoji must not be empty")
		}
		if err := r.store.Set(ctx, settings.KeyTriggerEmoji, emoji); err != nil {
			return "", err
		}
		return fmt.Sprintf("Trigger emoji set to %s.", emoji), nil

	case "add-source":
		id := opts["channel"].Value.(string)
		if err := r.store.AddSourceChannel(ctx, id); err != nil {
			return "", err
		}
		return fmt.Sprintf("<#%s> now accepts upload requests.", id), nil

	case "remove-source":
		id := opts["channel"].Value.(string)
		if err := r.store.RemoveSourceChannel(ctx, id); err != nil {
			return "", err
		}
		return fmt.Sprintf("<#%s> no longer accepts upload requests.", id), nil

	case "map-review":
		source := opts["source"].Value.(string)
		review := opts["review"].Value.(string)
		if err := r.store.SetReviewChannel(ctx, source, review); err != nil {
			return "", err
		}
		return fmt.Sprintf("Requests from <#%s> will be reviewed in <#%s>.", source, review), nil

	case "set-root":
		folderID := ExtractFolderID(opts["folder"].StringValue())
		if folderID == "" {
			return "", fmt.Errorf("could not extract a folder id")
		}
		if err := r.store.Set(ctx, settings.KeyRootFolderID, folderID); err != nil {
			return "", err
		}
		r.refresher.Kick()
		return fmt.Sprintf("Root folder set to `%s`. Rebuilding the folder cache.", folderID), nil

	case "set-role":
		role := strings.TrimSpace(opts["role"].StringValue())
		if err := r.store.Set(ctx, settings.KeyPrivilegedRole, role); err != nil {
			return "", err
		}
		return fmt.Sprintf("Privileged role set to %q.", role), nil

	case "refresh":
		r.refresher.Kick()
		return "Folder cache refresh started.", nil

	case "show-config":
		return r.describeConfig(ctx)

	default:
		return "", fmt.Errorf("unknown subcommand %q", sub.Name)
	}
}

func (r *Router) describeConfig(ctx context.Context) (string, error) {
	var b strings.Builder

	trigger, err := r.store.Get(ctx, settings.KeyTriggerEmoji)
	if err != nil {
		return "", err
	}
	if trigger == "" {
		trigger = settings.DefaultTriggerEmoji
	}
	fmt.Fprintf(&b, "Trigger emoji: %s\n", trigger)

	root, err := r.store.Get(ctx, settings.KeyRootFolderID)
	if err != nil {
		return "", err
	}
	if root == "" {
		root = "(not set)"
	}
	fmt.Fprintf(&b, "Root folder: `%s`\n", root)

	role, err := r.store.Get(ctx, settings.KeyPrivilegedRole)
	if err != nil {
		return "", err
	}
	if role == "" {
		role = "(not set)"
	}
	fmt.Fprintf(&b, "Privileged role: %s\n", role)

	channels, err := r.store.SourceChannels(ctx)
	if err != nil {
		return "", err
	}
	if len(channels) == 0 {
		b.WriteString("Source channels: (none)\n")
	} else {
		b.WriteString("Source channels: ")
		for i, id := range channels {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "<#%s>", id)
		}
		b.WriteString("\n")
	}

	routes, err := r.store.Routes(ctx)
	if err != nil {
		return "", err
	}
	for src, review := range routes {
		fmt.Fprintf(&b, "Review route: <#%s> -> <#%s>\n", src, review)
	}

	if folders, builtAt, ok := r.cache.Stats(); ok {
		fmt.Fprintf(&b, "Folder cache: %d folders, rebuilt %s\n", folders, builtAt.UTC().Format(time.RFC3339))
	} else {
		b.WriteString("Folder cache: not built yet\n")
	}

	return b.String(), nil
}

// isPrivileged admits server administrators and holders of the configured
// privileged role.
func (r *Router) isPrivileged(ctx context.Context, i *discordgo.InteractionCreate) bool {
	if i.Member == nil {
		return false
	}
	if i.Member.Permissions&discordgo.PermissionAdministrator != 0 {
		return true
	}
	role, err := r.store.Get(ctx, settings.KeyPrivilegedRole)
	if err != nil || role == "" {
		return false
	}
	for _, name := range r.roleNames(ctx, i.GuildID, i.Member.Roles) {
		if name == role {
			return true
		}
	}
	return false
}

func (r *Router) respondEphemeral(i *discordgo.InteractionCreate, content string) {
	err := r.session.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		r.logger.Warn("command response failed", "error", err)
	}
}

var driveFolderLink = regexp.MustCompile(`/folders/([A-Za-z0-9_-]+)`)

// ExtractFolderID accepts a raw folder id or a Drive folder link and
// returns the id, or "" when neither matches.
func ExtractFolderID(ref string) string {
	ref = strings.TrimSpace(ref)
	if m := driveFolderLink.FindStringSubmatch(ref); m != nil {
		return m[1]
	}
	if ref == "" || strings.ContainsAny(ref, " /?&") {
		return ""
	}
	return ref
}

// ParseRefreshInterval reads the refresh-interval setting, falling back to
// the given default when unset or malformed.
func ParseRefreshInterval(value string, fallback time.Duration) time.Duration {
	if value == "" {
		return fallback
	}
	minutes, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || minutes <= 0 {
		return fallback
	}
	return time.Duration(minutes) * time.Minute
}
