package notifier

import (
	"context"
	"errors"
	"unicode/utf16"
)

var ErrDeliveryFailed = errors.New("message delivery failed")

// Mention tags one user over a span of the message text. Start and Length count
// UTF-16 code units, which is how chat clients index message text.
type Mention struct {
	UserId uint64
	Start  int
	Length int
}

type Message struct {
	Text    string
	Mention Mention

	// Card is an optional PNG shown alongside the text by backends that support files.
	Card []byte
}

type Notifier interface {
	Send(ctx context.Context, msg Message) error
}

// Compose builds prefix+mentioned+suffix with the mention spanning exactly the mentioned part.
func Compose(prefix, mentioned, suffix string, userId uint64) Message {
	return Message{
		Text: prefix + mentioned + suffix,
		Mention: Mention{
			UserId: userId,
			Start:  utf16Len(prefix),
			Length: utf16Len(mentioned),
		},
	}
}

// MentionedText returns the part of the text the mention covers, or "" if the span is out of bounds.
func (m Message) MentionedText() string {
	units := utf16.Encode([]rune(m.Text))
	end := m.Mention.Start + m.Mention.Length
	if m.Mention.Start < 0 || m.Mention.Length < 0 || end > len(units) {
		return ""
	}
	return string(utf16.Decode(units[m.Mention.Start:end]))
}

func utf16Len(s string) int {
	return len(utf16.Encode([]rune(s)))
}
