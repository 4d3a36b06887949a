package notifier

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"unicode/utf16"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

type channelSender interface {
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend) (*discordgo.Message, error)
}

// Discord posts messages to a single Discord channel. The mentioned span of the text is
// replaced with a <@id> mention, so identities must be Discord user ids.
type Discord struct {
	session   channelSender
	channelId string
	log       *zap.Logger
}

func NewDiscord(token, channelId string, log *zap.Logger) (*Discord, error) {
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("invalid bot parameters: %w", err)
	}

	return newDiscord(s, channelId, log), nil
}

func newDiscord(session channelSender, channelId string, log *zap.Logger) *Discord {
	if log == nil {
		log = zap.NewNop()
	}
	return &Discord{session: session, channelId: channelId, log: log}
}

var _ Notifier = (*Discord)(nil)

func (d *Discord) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrDeliveryFailed, err)
	}

	userId := strconv.FormatUint(msg.Mention.UserId, 10)

	send := &discordgo.MessageSend{
		Content: discordContent(msg),
		AllowedMentions: &discordgo.MessageAllowedMentions{
			Users: []string{userId},
		},
	}

	if len(msg.Card) > 0 {
		send.Files = []*discordgo.File{
			{
				ContentType: "image/png",
				Name:        "birthday.png",
				Reader:      bytes.NewReader(msg.Card),
			},
		}
	}

	if _, err := d.session.ChannelMessageSendComplex(d.channelId, send); err != nil {
		return fmt.Errorf("%w: %w", ErrDeliveryFailed, err)
	}

	d.log.Debug("Sent Discord message", zap.String("channel", d.channelId), zap.String("mentioned", userId))

	return nil
}

// discordContent swaps the mentioned span for a <@id> token. Text whose span is out of
// bounds gets the token prepended instead.
func discordContent(msg Message) string {
	token := fmt.Sprintf("<@%d>", msg.Mention.UserId)

	units := utf16.Encode([]rune(msg.Text))
	start, end := msg.Mention.Start, msg.Mention.Start+msg.Mention.Length
	if start < 0 || msg.Mention.Length <= 0 || end > len(units) {
		return token + " " + msg.Text
	}

	return string(utf16.Decode(units[:start])) + token + string(utf16.Decode(units[end:]))
}
