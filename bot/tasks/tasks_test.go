package tasks

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"beedee/bot/models"
	"beedee/bot/notifier"
	"beedee/bot/store"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockStore struct {
	mock.Mock
	day string
}

func (m *mockStore) Date() string {
	if m.day == "" {
		return "2024-06-15"
	}
	return m.day
}

func (m *mockStore) RecordsForToday(ctx context.Context) ([]models.Birthday, error) {
	args := m.Called(ctx)
	birthdays, _ := args.Get(0).([]models.Birthday)
	return birthdays, args.Error(1)
}

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) Send(ctx context.Context, msg notifier.Message) error {
	return m.Called(ctx, msg).Error(0)
}

type fakeCards struct {
	err error
}

func (f fakeCards) Render(fullName, date string) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []byte(fullName + "|" + date), nil
}

func reminderFor(name string, id uint64) interface{} {
	return mock.MatchedBy(func(msg notifier.Message) bool {
		return msg.Text == fmt.Sprintf("It's %s's birthday today! Don't forget to wish them a happy birthday!", name) &&
			msg.Mention.UserId == id && msg.MentionedText() == name
	})
}

func TestRunSendsOneReminderPerBirthday(t *testing.T) {
	st := &mockStore{}
	st.On("RecordsForToday", mock.Anything).Return([]models.Birthday{
		{UserId: 1, FullName: "Alex", MonthNum: 6, DayNum: 15},
	}, nil)

	n := &mockNotifier{}
	n.On("Send", mock.Anything, mock.MatchedBy(func(msg notifier.Message) bool {
		return msg.Text == "It's Alex's birthday today! Don't forget to wish them a happy birthday!" &&
			msg.Mention == notifier.Mention{UserId: 1, Start: 5, Length: 4}
	})).Return(nil).Once()

	summary, err := NewScanner(st, n).Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, Summary{Found: 1, Sent: 1}, summary)
	n.AssertExpectations(t)
}

func TestRunWithoutBirthdaysSendsNothing(t *testing.T) {
	st := &mockStore{}
	st.On("RecordsForToday", mock.Anything).Return([]models.Birthday{}, nil)

	n := &mockNotifier{}

	summary, err := NewScanner(st, n).Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, Summary{}, summary)
	n.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
}

func TestRunContinuesAfterFailedSend(t *testing.T) {
	st := &mockStore{}
	st.On("RecordsForToday", mock.Anything).Return([]models.Birthday{
		{UserId: 1, FullName: "Alex", MonthNum: 6, DayNum: 15},
		{UserId: 2, FullName: "Sam", MonthNum: 6, DayNum: 15},
		{UserId: 3, FullName: "Kim", MonthNum: 6, DayNum: 15},
	}, nil)

	n := &mockNotifier{}
	n.On("Send", mock.Anything, reminderFor("Alex", 1)).Return(nil).Once()
	n.On("Send", mock.Anything, reminderFor("Sam", 2)).Return(notifier.ErrDeliveryFailed).Once()
	n.On("Send", mock.Anything, reminderFor("Kim", 3)).Return(nil).Once()

	summary, err := NewScanner(st, n).Run(context.Background())

	require.ErrorIs(t, err, notifier.ErrDeliveryFailed)
	assert.Equal(t, Summary{Found: 3, Sent: 2, Failed: 1}, summary)
	n.AssertExpectations(t)
}

func TestRunStoreUnavailable(t *testing.T) {
	st := &mockStore{}
	st.On("RecordsForToday", mock.Anything).Return(nil, store.ErrStoreUnavailable)

	n := &mockNotifier{}

	_, err := NewScanner(st, n).Run(context.Background())

	require.ErrorIs(t, err, store.ErrStoreUnavailable)
	n.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
}

func TestRunSkipsMalformedRows(t *testing.T) {
	st := &mockStore{}
	st.On("RecordsForToday", mock.Anything).Return(
		[]models.Birthday{{UserId: 1, FullName: "Alex", MonthNum: 6, DayNum: 15}},
		&store.MalformedRowsError{Errs: []error{store.ErrMalformedRecord}},
	)

	n := &mockNotifier{}
	n.On("Send", mock.Anything, reminderFor("Alex", 1)).Return(nil).Once()

	summary, err := NewScanner(st, n).Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, Summary{Found: 1, Sent: 1, Malformed: 1}, summary)
}

func TestRunDeduplicates(t *testing.T) {
	st := &mockStore{}
	st.On("RecordsForToday", mock.Anything).Return([]models.Birthday{
		{UserId: 1, FullName: "Alex", MonthNum: 6, DayNum: 15},
	}, nil)

	n := &mockNotifier{}
	n.On("Send", mock.Anything, reminderFor("Alex", 1)).Return(nil).Once()

	scanner := NewScanner(st, n, WithDeduper(NewMemoryDeduper(time.Hour)))

	first, err := scanner.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, first.Sent)

	second, err := scanner.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Summary{Found: 1, Skipped: 1}, second)

	n.AssertNumberOfCalls(t, "Send", 1)
}

func TestRunReleasesClaimOnFailure(t *testing.T) {
	st := &mockStore{}
	st.On("RecordsForToday", mock.Anything).Return([]models.Birthday{
		{UserId: 1, FullName: "Alex", MonthNum: 6, DayNum: 15},
	}, nil)

	n := &mockNotifier{}
	n.On("Send", mock.Anything, mock.Anything).Return(notifier.ErrDeliveryFailed).Once()
	n.On("Send", mock.Anything, mock.Anything).Return(nil).Once()

	scanner := NewScanner(st, n, WithDeduper(NewMemoryDeduper(time.Hour)))

	_, err := scanner.Run(context.Background())
	require.Error(t, err)

	summary, err := scanner.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Sent)
}

func TestRunWithRedisDeduper(t *testing.T) {
	client, redisMock := redismock.NewClientMock()
	redisMock.ExpectSetNX("beedee:bd:2024-06-15:1", 1, time.Hour).SetVal(true)
	redisMock.ExpectSetNX("beedee:bd:2024-06-15:2", 1, time.Hour).SetVal(false)

	st := &mockStore{}
	st.On("RecordsForToday", mock.Anything).Return([]models.Birthday{
		{UserId: 1, FullName: "Alex", MonthNum: 6, DayNum: 15},
		{UserId: 2, FullName: "Sam", MonthNum: 6, DayNum: 15},
	}, nil)

	n := &mockNotifier{}
	n.On("Send", mock.Anything, reminderFor("Alex", 1)).Return(nil).Once()

	summary, err := NewScanner(st, n, WithDeduper(NewRedisDeduper(client, time.Hour))).
		Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, Summary{Found: 2, Sent: 1, Skipped: 1}, summary)
	assert.NoError(t, redisMock.ExpectationsWereMet())
}

func TestRunSendsWhenDeduperFails(t *testing.T) {
	client, redisMock := redismock.NewClientMock()
	redisMock.ExpectSetNX("beedee:bd:2024-06-15:1", 1, time.Hour).SetErr(errors.New("connection refused"))

	st := &mockStore{}
	st.On("RecordsForToday", mock.Anything).Return([]models.Birthday{
		{UserId: 1, FullName: "Alex", MonthNum: 6, DayNum: 15},
	}, nil)

	n := &mockNotifier{}
	n.On("Send", mock.Anything, reminderFor("Alex", 1)).Return(nil).Once()

	summary, err := NewScanner(st, n, WithDeduper(NewRedisDeduper(client, time.Hour))).
		Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, summary.Sent)
	n.AssertExpectations(t)
}

func TestRedisDeduperRelease(t *testing.T) {
	client, redisMock := redismock.NewClientMock()
	redisMock.ExpectDel("beedee:bd:2024-06-15:1").SetVal(1)

	err := NewRedisDeduper(client, time.Hour).Release(context.Background(), DedupeKey("2024-06-15", 1))

	require.NoError(t, err)
	assert.NoError(t, redisMock.ExpectationsWereMet())
}

func TestMemoryDeduperExpiry(t *testing.T) {
	now := time.Date(2024, time.June, 15, 9, 0, 0, 0, time.UTC)
	d := NewMemoryDeduper(time.Hour)
	d.now = func() time.Time { return now }

	ok, err := d.Claim(context.Background(), "k")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, _ = d.Claim(context.Background(), "k")
	assert.False(t, ok)

	now = now.Add(2 * time.Hour)
	ok, _ = d.Claim(context.Background(), "k")
	assert.True(t, ok)
}

func TestRunAttachesCards(t *testing.T) {
	st := &mockStore{}
	st.On("RecordsForToday", mock.Anything).Return([]models.Birthday{
		{UserId: 1, FullName: "Alex", MonthNum: 6, DayNum: 15},
	}, nil)

	n := &mockNotifier{}
	n.On("Send", mock.Anything, mock.MatchedBy(func(msg notifier.Message) bool {
		return string(msg.Card) == "Alex|June 15th"
	})).Return(nil).Once()

	_, err := NewScanner(st, n, WithCards(fakeCards{})).Run(context.Background())

	require.NoError(t, err)
	n.AssertExpectations(t)
}

func TestRunSendsWithoutCardWhenRenderFails(t *testing.T) {
	st := &mockStore{}
	st.On("RecordsForToday", mock.Anything).Return([]models.Birthday{
		{UserId: 1, FullName: "Alex", MonthNum: 6, DayNum: 15},
	}, nil)

	n := &mockNotifier{}
	n.On("Send", mock.Anything, mock.MatchedBy(func(msg notifier.Message) bool {
		return msg.Card == nil
	})).Return(nil).Once()

	_, err := NewScanner(st, n, WithCards(fakeCards{err: errors.New("boom")})).Run(context.Background())

	require.NoError(t, err)
	n.AssertExpectations(t)
}

func TestRunStopsWaitingWhenCancelled(t *testing.T) {
	st := &mockStore{}
	st.On("RecordsForToday", mock.Anything).Return([]models.Birthday{
		{UserId: 1, FullName: "Alex", MonthNum: 6, DayNum: 15},
		{UserId: 2, FullName: "Sam", MonthNum: 6, DayNum: 15},
	}, nil)

	ctx, cancel := context.WithCancel(context.Background())

	n := &mockNotifier{}
	n.On("Send", mock.Anything, reminderFor("Alex", 1)).Run(func(mock.Arguments) { cancel() }).Return(nil).Once()

	summary, err := NewScanner(st, n, WithSendInterval(time.Hour)).Run(ctx)

	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, summary.Sent)
	n.AssertNotCalled(t, "Send", mock.Anything, reminderFor("Sam", 2))
}

func TestDedupeKeyFollowsStoreDay(t *testing.T) {
	client, redisMock := redismock.NewClientMock()
	redisMock.ExpectSetNX("beedee:bd:2024-12-31:1", 1, time.Hour).SetVal(true)

	st := &mockStore{day: "2024-12-31"}
	st.On("RecordsForToday", mock.Anything).Return([]models.Birthday{
		{UserId: 1, FullName: "Alex", MonthNum: 12, DayNum: 31},
	}, nil)

	n := &mockNotifier{}
	n.On("Send", mock.Anything, reminderFor("Alex", 1)).Return(nil).Once()

	_, err := NewScanner(st, n, WithDeduper(NewRedisDeduper(client, time.Hour))).Run(context.Background())

	require.NoError(t, err)
	assert.NoError(t, redisMock.ExpectationsWereMet())
}
