package responses

import (
	"fmt"
	"strings"

	"beedee/bot/notifier"
)

const (
	noBirthdayPrefix = "Uh-oh, "
	noBirthdayWord   = "you"
	noBirthdaySuffix = " don't have a registered birthday! Contact your local birthday-bot mechanic to have them register one for you!"

	unknownPrefix = "Uh-oh, looks like "
	unknownWord   = "you"
	unknownSuffix = " were trying to ask me something, but I'm not sure what! Check your spelling and try again."

	registeredWord   = "Your"
	registeredSuffix = " birthday is registered as %s!\nIf that isn't right, contact your local birthday-bot mechanic to have it corrected!"
)

// Greeting mentions the sender over their display name, or over "you" when the name is blank.
func Greeting(name string, userId uint64) notifier.Message {
	if strings.TrimSpace(name) == "" {
		name = "you"
	}
	return notifier.Compose("Hello, ", name, "!", userId)
}

func NoBirthday(userId uint64) notifier.Message {
	return notifier.Compose(noBirthdayPrefix, noBirthdayWord, noBirthdaySuffix, userId)
}

// Registered confirms a birthday already formatted like "June 15th".
func Registered(date string, userId uint64) notifier.Message {
	return notifier.Compose("", registeredWord, fmt.Sprintf(registeredSuffix, date), userId)
}

func UnknownCommand(userId uint64) notifier.Message {
	return notifier.Compose(unknownPrefix, unknownWord, unknownSuffix, userId)
}

func BirthdayReminder(fullName string, userId uint64) notifier.Message {
	return notifier.Compose("It's ", fullName, "'s birthday today! Don't forget to wish them a happy birthday!", userId)
}
