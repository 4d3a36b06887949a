package events

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"beedee/bot/models"

	"go.uber.org/zap"
)

const (
	DefaultTrustedAgentPrefix = "GroupMeBotNotifier"
	HumanSenderKind           = "user"
)

var ErrMalformedEvent = errors.New("malformed callback event")

// Envelope is the outer document of a callback invocation. Body holds the chat platform's
// message as a JSON string that still has to be decoded.
type Envelope struct {
	UserAgent string
	Body      string

	// bodyErr is why the envelope's body could not be read. It is reported by Decode so
	// that the user agent can still be checked first.
	bodyErr error
}

type rawEnvelope struct {
	RequestContext struct {
		HTTP struct {
			UserAgent string `json:"userAgent"`
		} `json:"http"`
	} `json:"requestContext"`
	Body *json.RawMessage `json:"body"`
}

// DecodeEnvelope decodes a function-URL style invocation payload. Only a document that is
// not JSON fails here; a missing or non-string body fails later in Decode.
func DecodeEnvelope(raw []byte) (Envelope, error) {
	var env rawEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Envelope{}, fmt.Errorf("%w: envelope: %w", ErrMalformedEvent, err)
	}

	decoded := Envelope{UserAgent: env.RequestContext.HTTP.UserAgent}

	if env.Body == nil {
		decoded.bodyErr = fmt.Errorf("%w: envelope: %w", ErrMalformedEvent,
			&models.FieldError{Field: "body", Problem: models.FieldMissing})
		return decoded, nil
	}

	if err := json.Unmarshal(*env.Body, &decoded.Body); err != nil {
		decoded.bodyErr = fmt.Errorf("%w: envelope: %w", ErrMalformedEvent,
			&models.FieldError{Field: "body", Problem: models.FieldWrongType, Err: err})
	}
	return decoded, nil
}

// InboundEvent is one chat message delivered through the callback.
type InboundEvent struct {
	SourceAgent string
	SenderKind  string
	SenderId    string
	SenderName  string
	Text        string

	fieldErrs []error
}

// Decode parses the envelope's body document. It fails when the body is missing or is not
// a JSON object. Absent fields are left empty; fields of the wrong JSON type are also left
// empty and reported by Validate, so a bot's event can be dropped before it is judged.
func (e Envelope) Decode() (InboundEvent, error) {
	if e.bodyErr != nil {
		return InboundEvent{}, e.bodyErr
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(e.Body), &fields); err != nil {
		return InboundEvent{}, fmt.Errorf("%w: body: %w", ErrMalformedEvent, err)
	}
	if fields == nil {
		return InboundEvent{}, fmt.Errorf("%w: body: %w", ErrMalformedEvent,
			&models.FieldError{Field: "body", Problem: models.FieldWrongType, Value: e.Body})
	}

	ev := InboundEvent{SourceAgent: e.UserAgent}

	for _, field := range []struct {
		key string
		dst *string
	}{
		{"text", &ev.Text},
		{"name", &ev.SenderName},
		{"sender_id", &ev.SenderId},
		{"sender_type", &ev.SenderKind},
	} {
		value, err := stringField(fields, field.key)
		if err != nil {
			ev.fieldErrs = append(ev.fieldErrs, err)
			continue
		}
		*field.dst = value
	}

	return ev, nil
}

// Validate reports the body fields that had the wrong JSON type.
func (ev InboundEvent) Validate() error {
	if len(ev.fieldErrs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: body: %w", ErrMalformedEvent, errors.Join(ev.fieldErrs...))
}

func stringField(fields map[string]json.RawMessage, key string) (string, error) {
	raw, ok := fields[key]
	if !ok || string(raw) == "null" {
		return "", nil
	}

	var value string
	if err := json.Unmarshal(raw, &value); err != nil {
		return "", &models.FieldError{Field: key, Problem: models.FieldWrongType, Value: string(raw), Err: err}
	}
	return value, nil
}

// SenderIdentity parses the numeric sender id.
func (ev InboundEvent) SenderIdentity() (uint64, error) {
	if ev.SenderId == "" {
		return 0, fmt.Errorf("%w: %w", ErrMalformedEvent,
			&models.FieldError{Field: "sender_id", Problem: models.FieldMissing})
	}

	id, err := strconv.ParseUint(ev.SenderId, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrMalformedEvent,
			&models.FieldError{Field: "sender_id", Problem: models.FieldNotNumber, Value: ev.SenderId, Err: err})
	}
	return id, nil
}

// Gate filters callback events before they reach the command parser.
type Gate struct {
	agentPrefix string
	log         *zap.Logger
}

func NewGate(agentPrefix string, log *zap.Logger) *Gate {
	if agentPrefix == "" {
		agentPrefix = DefaultTrustedAgentPrefix
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Gate{agentPrefix: agentPrefix, log: log}
}

// IsTrustedSource reports whether the user agent starts with the expected prefix, so
// versioned agents like "GroupMeBotNotifier/1.0" pass.
func (g *Gate) IsTrustedSource(ev InboundEvent) bool {
	g.log.Debug("Comparing user agent",
		zap.String("user_agent", ev.SourceAgent), zap.String("expected_prefix", g.agentPrefix))

	return strings.HasPrefix(ev.SourceAgent, g.agentPrefix)
}

// IsHumanSender reports whether a person, not a bot, sent the message.
func (g *Gate) IsHumanSender(ev InboundEvent) bool {
	g.log.Debug("Comparing sender type", zap.String("sender_type", ev.SenderKind))

	return ev.SenderKind == HumanSenderKind
}
