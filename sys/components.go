package sys

import (
	"strings"

	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/rest"
	"github.com/disgoorg/snowflake/v2"
)

// MessageResponder is satisfied by command and component interaction events.
type MessageResponder interface {
	CreateMessage(messageCreate discord.MessageCreate, opts ...rest.RequestOpt) error
}

// TextContainer wraps each non-empty line group in one V2 text display.
func TextContainer(blocks ...string) discord.ContainerComponent {
	var subs []discord.ContainerSubComponent
	for _, b := range blocks {
		if strings.TrimSpace(b) == "" {
			continue
		}
		subs = append(subs, discord.NewTextDisplay(b))
	}
	return discord.NewContainer(subs...)
}

// RespondV2 answers an interaction with a plain text container.
func RespondV2(event MessageResponder, content string, ephemeral bool) error {
	return RespondContainerV2(event, TextContainer(content), ephemeral)
}

func RespondContainerV2(event MessageResponder, container discord.ContainerComponent, ephemeral bool) error {
	return event.CreateMessage(discord.NewMessageCreate().
		WithIsComponentsV2(true).
		WithEphemeral(ephemeral).
		WithComponents(container))
}

// EditDeferredV2 replaces the original response of a deferred interaction.
func EditDeferredV2(client *bot.Client, appID snowflake.ID, token string, container discord.ContainerComponent) error {
	_, err := client.Rest.UpdateInteractionResponse(appID, token, discord.NewMessageUpdate().
		WithIsComponentsV2(true).
		WithComponents(container))
	return err
}

func EditDeferredTextV2(client *bot.Client, appID snowflake.ID, token string, content string) error {
	return EditDeferredV2(client, appID, token, TextContainer(content))
}

// SendContainerV2 posts a new message to a channel.
func SendContainerV2(client *bot.Client, channelID snowflake.ID, container discord.ContainerComponent) (*discord.Message, error) {
	return client.Rest.CreateMessage(channelID, discord.NewMessageCreate().
		WithIsComponentsV2(true).
		WithComponents(container))
}

func EditContainerV2(client *bot.Client, channelID, messageID snowflake.ID, container discord.ContainerComponent) (*discord.Message, error) {
	return client.Rest.UpdateMessage(channelID, messageID, discord.NewMessageUpdate().
		WithIsComponentsV2(true).
		WithComponents(container))
}

// Truncate shortens s to max runes, marking the cut with an ellipsis.
func Truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	if max <= 1 {
		return string(r[:max])
	}
	return string(r[:max-1]) + "…"
}
