package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const DefaultGroupMeURL = "https://api.groupme.com/v3/bots/post"

type groupMePost struct {
	BotID       string              `json:"bot_id"`
	Text        string              `json:"text"`
	Attachments []groupMeAttachment `json:"attachments"`
}

type groupMeAttachment struct {
	Type    string   `json:"type"`
	UserIDs []uint64 `json:"user_ids"`
	Loci    [][2]int `json:"loci"`
}

// GroupMe posts messages as a GroupMe bot.
type GroupMe struct {
	botID   string
	postURL string
	client  *http.Client
	log     *zap.Logger
}

func NewGroupMe(botID, postURL string, timeout time.Duration, log *zap.Logger) *GroupMe {
	if postURL == "" {
		postURL = DefaultGroupMeURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &GroupMe{
		botID:   botID,
		postURL: postURL,
		client:  &http.Client{Timeout: timeout},
		log:     log,
	}
}

var _ Notifier = (*GroupMe)(nil)

func (g *GroupMe) Send(ctx context.Context, msg Message) error {
	if len(msg.Card) > 0 {
		g.log.Debug("GroupMe backend does not upload cards, sending text only")
	}

	body, err := json.Marshal(groupMePost{
		BotID: g.botID,
		Text:  msg.Text,
		Attachments: []groupMeAttachment{
			{
				Type:    "mentions",
				UserIDs: []uint64{msg.Mention.UserId},
				Loci:    [][2]int{{msg.Mention.Start, msg.Mention.Length}},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("%w: encode post: %w", ErrDeliveryFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.postURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: build request: %w", ErrDeliveryFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDeliveryFailed, err)
	}
	defer res.Body.Close()

	if res.StatusCode/100 != 2 {
		return fmt.Errorf("%w: groupme responded with status %d", ErrDeliveryFailed, res.StatusCode)
	}

	g.log.Debug("Sent GroupMe message",
		zap.Uint64("mentioned", msg.Mention.UserId),
		zap.Int("status", res.StatusCode))

	return nil
}
