// Package notify pushes admin-facing alerts about stream activity to a
// Discord channel.
package notify

import (
	"fmt"

	"github.com/bwmarrin/discordgo"

	"warbler/internal/types"
)

type Discord struct {
	channelID string
	session   *discordgo.Session
}

func NewDiscord(botToken, channelID string) (*Discord, error) {
	if botToken == "" {
		return nil, fmt.Errorf("discord notify: bot_token is required")
	}
	if channelID == "" {
		return nil, fmt.Errorf("discord notify: channel_id is required")
	}

	session, err := discordgo.New("Bot " + botToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}

	return &Discord{channelID: channelID, session: session}, nil
}

func (d *Discord) Open() error {
	if err := d.session.Open(); err != nil {
		return fmt.Errorf("failed to open discord session: %w", err)
	}
	return nil
}

// Notify posts a short summary of a stream event to the channel.
func (d *Discord) Notify(evt types.StreamEvent) error {
	text := evt.Text
	if len(text) > 500 {
		text = text[:500] + "…"
	}
	msg := fmt.Sprintf("**%s** posted:\n%s\n%s", evt.AuthorID, text, evt.Ref.URI)

	if _, err := d.session.ChannelMessageSend(d.channelID, msg); err != nil {
		return fmt.Errorf("failed to send discord message: %w", err)
	}
	return nil
}

func (d *Discord) Close() error {
	return d.session.Close()
}
