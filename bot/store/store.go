package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"beedee/bot/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrStoreUnavailable = errors.New("birthday store unavailable")
	ErrMalformedRecord  = errors.New("malformed birthday record")
)

// MalformedRowsError is returned by RecordsForToday alongside the rows that did decode.
type MalformedRowsError struct {
	Errs []error
}

func (e *MalformedRowsError) Error() string {
	msgs := make([]string, len(e.Errs))
	for i, err := range e.Errs {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("%d malformed birthday rows: %s", len(e.Errs), strings.Join(msgs, "; "))
}

func (e *MalformedRowsError) Unwrap() []error { return e.Errs }

// birthdayRow is how rows come off the wire: every attribute optional and untyped.
type birthdayRow struct {
	UserId   *string `gorm:"column:user_id"`
	FullName *string `gorm:"column:fullname"`
	MonthNum *string `gorm:"column:month_num"`
	DayNum   *string `gorm:"column:day_num"`
}

type BirthdayStore struct {
	db    *gorm.DB
	table string
	loc   *time.Location
	now   func() time.Time
	log   *zap.Logger
}

type Option func(*BirthdayStore)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *BirthdayStore) { s.now = now }
}

// WithLocation sets the time zone used to decide what "today" is.
func WithLocation(loc *time.Location) Option {
	return func(s *BirthdayStore) {
		if loc != nil {
			s.loc = loc
		}
	}
}

func WithTable(table string) Option {
	return func(s *BirthdayStore) {
		if table != "" {
			s.table = table
		}
	}
}

func WithLogger(log *zap.Logger) Option {
	return func(s *BirthdayStore) {
		if log != nil {
			s.log = log
		}
	}
}

func New(db *gorm.DB, opts ...Option) *BirthdayStore {
	s := &BirthdayStore{
		db:    db,
		table: models.Birthday{}.TableName(),
		loc:   time.UTC,
		now:   time.Now,
		log:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Today returns the current month and day in the store's time zone.
func (s *BirthdayStore) Today() (time.Month, int) {
	current := s.now().In(s.loc)
	return current.Month(), current.Day()
}

// Date returns today's date (YYYY-MM-DD) in the store's time zone, the same day
// RecordsForToday queries.
func (s *BirthdayStore) Date() string {
	return s.now().In(s.loc).Format(time.DateOnly)
}

// RecordsForToday returns every birthday registered for today's month and day.
// Rows that fail to decode are left out and reported through a *MalformedRowsError,
// in which case the returned records are still valid.
func (s *BirthdayStore) RecordsForToday(ctx context.Context) ([]models.Birthday, error) {
	month, day := s.Today()

	var rows []birthdayRow
	result := s.db.WithContext(ctx).
		Table(s.table).
		Where("month_num = ? AND day_num = ?", int(month), day).
		Find(&rows)
	if result.Error != nil {
		return nil, fmt.Errorf("%w: query by month-day: %w", ErrStoreUnavailable, result.Error)
	}

	birthdays := make([]models.Birthday, 0, len(rows))
	var malformed []error

	for _, row := range rows {
		birthday, err := decodeRow(row)
		if err != nil {
			malformed = append(malformed, err)
			continue
		}
		birthdays = append(birthdays, birthday)
	}

	if len(malformed) > 0 {
		return birthdays, &MalformedRowsError{Errs: malformed}
	}
	return birthdays, nil
}

// RecordByIdentity returns the birthday registered for a user, or nil if there is none.
func (s *BirthdayStore) RecordByIdentity(ctx context.Context, userId uint64) (*models.Birthday, error) {
	var rows []birthdayRow
	result := s.db.WithContext(ctx).
		Table(s.table).
		Where("user_id = ?", userId).
		Find(&rows)
	if result.Error != nil {
		return nil, fmt.Errorf("%w: query by user_id: %w", ErrStoreUnavailable, result.Error)
	}

	if len(rows) == 0 {
		return nil, nil
	}

	// user_id is the primary key, so this only happens if the table was altered by hand.
	if len(rows) > 1 {
		s.log.Warn("Multiple birthdays share a user id, using the first",
			zap.Uint64("user_id", userId), zap.Int("rows", len(rows)))
	}

	birthday, err := decodeRow(rows[0])
	if err != nil {
		return nil, err
	}
	return &birthday, nil
}

func decodeRow(row birthdayRow) (models.Birthday, error) {
	userId, err := parseUint("user_id", row.UserId)
	if err != nil {
		return models.Birthday{}, malformed(err)
	}

	if row.FullName == nil {
		return models.Birthday{}, malformed(&models.FieldError{Field: "fullname", Problem: models.FieldMissing})
	}

	month, err := parseRanged("month_num", row.MonthNum, 1, 12)
	if err != nil {
		return models.Birthday{}, malformed(err)
	}

	day, err := parseRanged("day_num", row.DayNum, 1, 31)
	if err != nil {
		return models.Birthday{}, malformed(err)
	}

	return models.Birthday{
		UserId:   userId,
		FullName: *row.FullName,
		MonthNum: month,
		DayNum:   day,
	}, nil
}

func malformed(err error) error {
	return fmt.Errorf("%w: %w", ErrMalformedRecord, err)
}

func parseUint(field string, raw *string) (uint64, error) {
	if raw == nil {
		return 0, &models.FieldError{Field: field, Problem: models.FieldMissing}
	}

	n, err := strconv.ParseUint(strings.TrimSpace(*raw), 10, 64)
	if err != nil {
		return 0, &models.FieldError{Field: field, Problem: models.FieldNotNumber, Value: *raw, Err: err}
	}
	return n, nil
}

func parseRanged(field string, raw *string, min, max int) (int, error) {
	if raw == nil {
		return 0, &models.FieldError{Field: field, Problem: models.FieldMissing}
	}

	n, err := strconv.Atoi(strings.TrimSpace(*raw))
	if err != nil {
		return 0, &models.FieldError{Field: field, Problem: models.FieldNotNumber, Value: *raw, Err: err}
	}

	if n < min || n > max {
		return 0, &models.FieldError{Field: field, Problem: models.FieldOutOfRange, Value: *raw}
	}
	return n, nil
}
