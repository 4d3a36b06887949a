package handlers

import (
	"context"
	"errors"
	"fmt"

	"beedee/bot/commands"
	"beedee/bot/events"
	"beedee/bot/models"
	"beedee/bot/notifier"
	"beedee/bot/responses"
	"beedee/internal/metrics"
	"beedee/utils"

	"go.uber.org/zap"
)

type BirthdayLookup interface {
	RecordByIdentity(ctx context.Context, userId uint64) (*models.Birthday, error)
}

type CommandHandler = func(ctx context.Context, ev events.InboundEvent, senderId uint64) error

// Dispatcher routes a classified command to its handler. Every handler replies to the
// sender and mentions them.
type Dispatcher struct {
	handlers map[commands.Intent]CommandHandler
	log      *zap.Logger
}

func NewDispatcher(store BirthdayLookup, n notifier.Notifier, log *zap.Logger) *Dispatcher {
	if log == nil {
		log = zap.NewNop()
	}

	send := replySender(n)

	return &Dispatcher{
		handlers: map[commands.Intent]CommandHandler{
			commands.IntentGreet:      greetCommandHandler(send),
			commands.IntentSelfLookup: meCommandHandler(store, send, log),
			commands.IntentUnknown:    unknownCommandHandler(send),
		},
		log: log,
	}
}

func (d *Dispatcher) Dispatch(ctx context.Context, ev events.InboundEvent, intent commands.Intent) error {
	senderId, err := ev.SenderIdentity()
	if err != nil {
		return err
	}

	commandHandler, ok := d.handlers[intent]
	if !ok {
		commandHandler = d.handlers[commands.IntentUnknown]
	}

	metrics.CommandsTotal.WithLabelValues(string(intent)).Inc()
	d.log.Info("Dispatching command", zap.String("intent", string(intent)), zap.Uint64("sender_id", senderId))

	return commandHandler(ctx, ev, senderId)
}

func replySender(n notifier.Notifier) func(ctx context.Context, msg notifier.Message) error {
	return func(ctx context.Context, msg notifier.Message) error {
		if err := n.Send(ctx, msg); err != nil {
			metrics.NotificationsTotal.WithLabelValues("reply", "failed").Inc()
			return err
		}
		metrics.NotificationsTotal.WithLabelValues("reply", "sent").Inc()
		return nil
	}
}

func greetCommandHandler(send func(context.Context, notifier.Message) error) CommandHandler {
	return func(ctx context.Context, ev events.InboundEvent, senderId uint64) error {
		return send(ctx, responses.Greeting(ev.SenderName, senderId))
	}
}

func meCommandHandler(store BirthdayLookup, send func(context.Context, notifier.Message) error, log *zap.Logger) CommandHandler {
	return func(ctx context.Context, ev events.InboundEvent, senderId uint64) error {
		birthday, err := store.RecordByIdentity(ctx, senderId)

		switch {
		case err != nil:
			return fmt.Errorf("look up birthday for %d: %w", senderId, err)

		case birthday == nil:
			log.Info("Sender has no registered birthday", zap.Uint64("sender_id", senderId))
			return send(ctx, responses.NoBirthday(senderId))

		default:
			date, err := utils.FormatBirthday(birthday.MonthNum, birthday.DayNum)
			if err != nil {
				return fmt.Errorf("format birthday for %d: %w", senderId, err)
			}
			return send(ctx, responses.Registered(date, senderId))
		}
	}
}

func unknownCommandHandler(send func(context.Context, notifier.Message) error) CommandHandler {
	return func(ctx context.Context, ev events.InboundEvent, senderId uint64) error {
		return send(ctx, responses.UnknownCommand(senderId))
	}
}

type Outcome string

const (
	OutcomeMalformed  Outcome = "malformed"
	OutcomeUntrusted  Outcome = "untrusted"
	OutcomeNonHuman   Outcome = "non_human"
	OutcomeNotCommand Outcome = "not_command"
	OutcomeDispatched Outcome = "dispatched"
	OutcomeFailed     Outcome = "failed"
)

// Responder runs one callback invocation end to end.
type Responder struct {
	gate       *events.Gate
	dispatcher *Dispatcher
	log        *zap.Logger
}

func NewResponder(gate *events.Gate, dispatcher *Dispatcher, log *zap.Logger) *Responder {
	if log == nil {
		log = zap.NewNop()
	}
	return &Responder{gate: gate, dispatcher: dispatcher, log: log}
}

// Handle filters, parses and dispatches one callback. Dropped events are reported through
// the outcome with a nil error; only malformed payloads and infrastructure failures error.
func (r *Responder) Handle(ctx context.Context, env events.Envelope) (Outcome, error) {
	log := r.log.With(zap.String("invocation", utils.NewInvocationID()))

	outcome, err := r.handle(ctx, env, log)
	metrics.EventsTotal.WithLabelValues(string(outcome)).Inc()

	if err != nil {
		log.Error("Callback failed", zap.String("outcome", string(outcome)), zap.Error(err))
	}
	return outcome, err
}

func (r *Responder) handle(ctx context.Context, env events.Envelope, log *zap.Logger) (Outcome, error) {
	if !r.gate.IsTrustedSource(events.InboundEvent{SourceAgent: env.UserAgent}) {
		log.Info("Event wasn't from an authenticated user agent, ignoring", zap.String("user_agent", env.UserAgent))
		return OutcomeUntrusted, nil
	}

	ev, err := env.Decode()
	if err != nil {
		return OutcomeMalformed, err
	}

	if !r.gate.IsHumanSender(ev) {
		log.Info("Callback message wasn't sent by a human user, ignoring", zap.String("sender_type", ev.SenderKind))
		return OutcomeNonHuman, nil
	}

	if err := ev.Validate(); err != nil {
		return OutcomeMalformed, err
	}

	cmd, ok := commands.Parse(ev.Text)
	if !ok {
		log.Debug("Callback message isn't a command, ignoring")
		return OutcomeNotCommand, nil
	}

	if err := r.dispatcher.Dispatch(ctx, ev, cmd.Intent); err != nil {
		if errors.Is(err, events.ErrMalformedEvent) {
			return OutcomeMalformed, err
		}
		return OutcomeFailed, err
	}

	return OutcomeDispatched, nil
}
