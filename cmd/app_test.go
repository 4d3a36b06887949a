package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"beedee/bot/notifier"
	"beedee/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduleAt(t *testing.T) {
	at, err := scheduleAt("9:05")
	require.NoError(t, err)
	assert.Equal(t, "09:05", at)

	_, err = scheduleAt("noon")
	assert.Error(t, err)
}

func TestNewNotifier(t *testing.T) {
	n, err := newNotifier(config.ChatConfig{
		Provider: "groupme",
		GroupMe:  config.GroupMeConfig{BotID: "abc", PostURL: notifier.DefaultGroupMeURL},
	}, nil)
	require.NoError(t, err)
	assert.IsType(t, &notifier.GroupMe{}, n)

	n, err = newNotifier(config.ChatConfig{
		Provider: "discord",
		Discord:  config.DiscordConfig{Token: "token", ChannelID: "1"},
	}, nil)
	require.NoError(t, err)
	assert.IsType(t, &notifier.Discord{}, n)
}

func TestNewNotifierNeedsCredentials(t *testing.T) {
	_, err := newNotifier(config.ChatConfig{Provider: "groupme"}, nil)
	assert.Error(t, err)

	_, err = newNotifier(config.ChatConfig{Provider: "discord"}, nil)
	assert.Error(t, err)
}

func TestReadEnvelope(t *testing.T) {
	defer func() { envelopePath = "-" }()

	envelopePath = "-"
	raw, err := readEnvelope(strings.NewReader(`{"body":"{}"}`))
	require.NoError(t, err)
	assert.Equal(t, `{"body":"{}"}`, string(raw))

	path := filepath.Join(t.TempDir(), "envelope.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"body":"{}"}`), 0600))

	envelopePath = path
	raw, err = readEnvelope(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, `{"body":"{}"}`, string(raw))

	envelopePath = filepath.Join(t.TempDir(), "missing.json")
	_, err = readEnvelope(strings.NewReader(""))
	assert.Error(t, err)
}
