package tasks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"beedee/bot/models"
	"beedee/bot/notifier"
	"beedee/bot/responses"
	"beedee/bot/store"
	"beedee/internal/metrics"
	"beedee/utils"

	"go.uber.org/zap"
)

// BirthdayStore reads today's birthdays. Date names the same day as YYYY-MM-DD and keys
// the dedupe claims, so both follow the store's clock and time zone.
type BirthdayStore interface {
	RecordsForToday(ctx context.Context) ([]models.Birthday, error)
	Date() string
}

type CardRenderer interface {
	Render(fullName, date string) ([]byte, error)
}

type Summary struct {
	Found     int
	Sent      int
	Failed    int
	Skipped   int
	Malformed int
}

type Scanner struct {
	store    BirthdayStore
	notifier notifier.Notifier
	deduper  Deduper
	cards    CardRenderer
	interval time.Duration
	log      *zap.Logger
}

type Option func(*Scanner)

func WithDeduper(d Deduper) Option {
	return func(s *Scanner) { s.deduper = d }
}

func WithCards(r CardRenderer) Option {
	return func(s *Scanner) { s.cards = r }
}

// WithSendInterval pauses between consecutive birthday messages.
func WithSendInterval(d time.Duration) Option {
	return func(s *Scanner) { s.interval = d }
}

func WithLogger(log *zap.Logger) Option {
	return func(s *Scanner) {
		if log != nil {
			s.log = log
		}
	}
}

func NewScanner(st BirthdayStore, n notifier.Notifier, opts ...Option) *Scanner {
	s := &Scanner{
		store:    st,
		notifier: n,
		log:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run sends one reminder per birthday found today. Sends are sequential and a failed
// send does not stop the rest; the failures come back joined once the scan is done.
func (s *Scanner) Run(ctx context.Context) (Summary, error) {
	var summary Summary

	log := s.log.With(zap.String("invocation", utils.NewInvocationID()))

	day := s.store.Date()
	birthdays, err := s.store.RecordsForToday(ctx)

	var malformed *store.MalformedRowsError
	switch {
	case errors.As(err, &malformed):
		summary.Malformed = len(malformed.Errs)
		for _, rowErr := range malformed.Errs {
			log.Warn("Skipping malformed birthday record", zap.Error(rowErr))
		}
	case err != nil:
		return summary, fmt.Errorf("read today's birthdays: %w", err)
	}

	summary.Found = len(birthdays)
	if len(birthdays) == 0 {
		log.Info("No birthdays today")
		return summary, nil
	}

	var errs []error
	for i, birthday := range birthdays {
		if i > 0 && s.interval > 0 {
			select {
			case <-ctx.Done():
				return summary, errors.Join(append(errs, ctx.Err())...)
			case <-time.After(s.interval):
			}
		}

		sent, err := s.remind(ctx, log, day, birthday)
		switch {
		case err != nil:
			summary.Failed++
			errs = append(errs, err)
			metrics.NotificationsTotal.WithLabelValues("birthday", "failed").Inc()
			log.Error("Could not send birthday reminder", zap.Uint64("user_id", birthday.UserId), zap.Error(err))
		case !sent:
			summary.Skipped++
			metrics.NotificationsTotal.WithLabelValues("birthday", "skipped").Inc()
			log.Info("Birthday reminder already sent today", zap.Uint64("user_id", birthday.UserId))
		default:
			summary.Sent++
			metrics.NotificationsTotal.WithLabelValues("birthday", "sent").Inc()
		}
	}

	log.Info("Birthday scan finished",
		zap.Int("found", summary.Found),
		zap.Int("sent", summary.Sent),
		zap.Int("failed", summary.Failed),
		zap.Int("skipped", summary.Skipped),
		zap.Int("malformed", summary.Malformed),
	)

	return summary, errors.Join(errs...)
}

func (s *Scanner) remind(ctx context.Context, log *zap.Logger, day string, birthday models.Birthday) (bool, error) {
	key := DedupeKey(day, birthday.UserId)

	if s.deduper != nil {
		claimed, err := s.deduper.Claim(ctx, key)
		switch {
		case err != nil:
			log.Warn("Dedupe claim failed, sending anyway", zap.String("key", key), zap.Error(err))
		case !claimed:
			return false, nil
		}
	}

	msg := responses.BirthdayReminder(birthday.FullName, birthday.UserId)
	msg.Card = s.card(log, birthday)

	if err := s.notifier.Send(ctx, msg); err != nil {
		if s.deduper != nil {
			if relErr := s.deduper.Release(ctx, key); relErr != nil {
				log.Warn("Could not release dedupe claim", zap.String("key", key), zap.Error(relErr))
			}
		}
		return false, fmt.Errorf("remind %d: %w", birthday.UserId, err)
	}

	return true, nil
}

func (s *Scanner) card(log *zap.Logger, birthday models.Birthday) []byte {
	if s.cards == nil {
		return nil
	}

	date, err := utils.FormatBirthday(birthday.MonthNum, birthday.DayNum)
	if err != nil {
		date = ""
	}

	card, err := s.cards.Render(birthday.FullName, date)
	if err != nil {
		log.Warn("Could not render birthday card", zap.Uint64("user_id", birthday.UserId), zap.Error(err))
		return nil
	}
	return card
}

// BirthdayCheck adapts a scan to the scheduler's func() jobs.
func BirthdayCheck(scanner *Scanner, log *zap.Logger) func() {
	return func() {
		if _, err := scanner.Run(context.Background()); err != nil {
			log.Error("An error occurred during the birthday scan", zap.Error(err))
		}
	}
}
