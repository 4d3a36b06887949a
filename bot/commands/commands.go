package commands

import (
	"strings"
	"unicode"
)

// Prefix is the directive every command starts with, matched case-insensitively.
const Prefix = "!bd"

type Intent string

const (
	IntentGreet      Intent = "greet"
	IntentSelfLookup Intent = "self_lookup"
	IntentUnknown    Intent = "unknown"
)

type Command struct {
	Directive string
	Argument  string
	Intent    Intent
}

type pattern struct {
	name    string
	matches func(words []string) bool
	intent  Intent
}

// patterns are tried top to bottom and the first match wins, so earlier entries take
// precedence when phrases overlap ("hi me" greets).
var patterns = []pattern{
	{name: "greeting", matches: anyWord(isGreeting), intent: IntentGreet},
	{name: "me", matches: anyWord(isMe), intent: IntentSelfLookup},
}

// Parse splits text into a directive and argument and classifies the argument.
// The second result is false when the text is not addressed to the bot.
func Parse(text string) (Command, bool) {
	directive, argument := split(strings.TrimSpace(text))

	if !strings.EqualFold(directive, Prefix) {
		return Command{}, false
	}

	return Command{
		Directive: directive,
		Argument:  argument,
		Intent:    Classify(argument),
	}, true
}

// Classify maps an argument phrase to an intent. Words are runs of letters, so
// punctuation bounds them the same way spaces do ("hello, bee-dee", "(me)", "hi!!").
func Classify(argument string) Intent {
	words := strings.FieldsFunc(argument, func(r rune) bool { return !unicode.IsLetter(r) })

	for _, p := range patterns {
		if p.matches(words) {
			return p.intent
		}
	}
	return IntentUnknown
}

func split(text string) (string, string) {
	i := strings.IndexFunc(text, unicode.IsSpace)
	if i < 0 {
		return text, ""
	}
	return text[:i], strings.TrimSpace(text[i:])
}

func anyWord(match func(word string) bool) func(words []string) bool {
	return func(words []string) bool {
		for _, w := range words {
			if match(w) {
				return true
			}
		}
		return false
	}
}

func isGreeting(word string) bool {
	switch strings.ToLower(word) {
	case "hello", "helo", "hi":
		return true
	}
	return false
}

func isMe(word string) bool {
	return strings.EqualFold(word, "me")
}
