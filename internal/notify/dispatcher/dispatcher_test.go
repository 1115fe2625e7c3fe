// internal/notify/dispatcher/dispatcher_test.go
package dispatcher

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "vhm-notifier/internal/common/errors"
	"vhm-notifier/internal/common/logger"
	"vhm-notifier/internal/models"
	"vhm-notifier/internal/notify/channel"
	"vhm-notifier/internal/notify/template"
)

// ==========================
// Test Doubles
// ==========================

type fakeUserStore struct {
	users map[string]*models.User
}

func (f *fakeUserStore) UserByID(_ context.Context, id string) (*models.User, error) {
	return f.users[id], nil
}

func (f *fakeUserStore) UsersByRole(context.Context, string) ([]models.User, error) {
	return nil, nil
}

func (f *fakeUserStore) ActiveUsers(context.Context) ([]models.User, error) {
	return nil, nil
}

type fakeRecordStore struct {
	mu         sync.Mutex
	created    []*models.NotificationRecord
	finalized  map[string]string
	createErr  error
	finalizeErr error
}

func newFakeRecordStore() *fakeRecordStore {
	return &fakeRecordStore{finalized: make(map[string]string)}
}

func (f *fakeRecordStore) CreateRecord(_ context.Context, rec *models.NotificationRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	f.created = append(f.created, rec)
	return nil
}

func (f *fakeRecordStore) FinalizeRecord(_ context.Context, id, status string, _ []models.DeliveryAttempt, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.finalizeErr != nil {
		return f.finalizeErr
	}
	f.finalized[id] = status
	return nil
}

func (f *fakeRecordStore) History(context.Context, models.HistoryFilter) ([]models.NotificationRecord, error) {
	return nil, nil
}

func (f *fakeRecordStore) Stats(context.Context, time.Time, time.Time) ([]models.NotificationStat, error) {
	return nil, nil
}

func (f *fakeRecordStore) createdCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.created)
}

type fakeSender struct {
	mu      sync.Mutex
	channel models.Channel
	err     error
	sends   int
}

func (f *fakeSender) Channel() models.Channel { return f.channel }

func (f *fakeSender) Send(_ context.Context, _ *channel.ContactCard, _ string, _ channel.Meta) error {
	f.mu.Lock()
	f.sends++
	f.mu.Unlock()
	return f.err
}

type fakeIndexer struct {
	mu      sync.Mutex
	records []*models.NotificationRecord
}

func (f *fakeIndexer) IndexRecord(_ context.Context, rec *models.NotificationRecord) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, rec)
}

type fixture struct {
	dispatcher *Dispatcher
	records    *fakeRecordStore
	telegram   *fakeSender
	email      *fakeSender
	indexer    *fakeIndexer
}

func newFixture(t *testing.T) *fixture {
	users := &fakeUserStore{users: map[string]*models.User{
		"user-1": {ID: "user-1", TelegramChatID: 11, Email: "one@example.com", Active: true},
		"user-2": {ID: "user-2", TelegramChatID: 22, Email: "two@example.com", Active: true},
	}}

	f := &fixture{
		records:  newFakeRecordStore(),
		telegram: &fakeSender{channel: models.ChannelTelegram},
		email:    &fakeSender{channel: models.ChannelEmail},
		indexer:  &fakeIndexer{},
	}
	resolver := channel.NewAddressResolver(users, nil, time.Minute, logger.NewTestLogger(t))
	f.dispatcher = New(
		template.NewRegistry(),
		[]channel.Sender{f.telegram, f.email, channel.NewSMSSender()},
		resolver,
		f.records,
		f.indexer,
		logger.NewTestLogger(t),
	)
	return f
}

func overduePayload() map[string]interface{} {
	return map[string]interface{}{
		"taskTitle":    "Refill machine 7",
		"machineName":  "Office 3F",
		"dueDate":      "2026-08-30",
		"assigneeName": "A. Karimov",
	}
}

// ==========================
// Core Dispatch Tests
// ==========================

func TestDispatcher_Dispatch_AllChannelsAllRecipients(t *testing.T) {
	f := newFixture(t)

	result, err := f.dispatcher.Dispatch(context.Background(), models.KindTaskOverdue,
		[]string{"user-1", "user-2"}, overduePayload(), nil)
	require.NoError(t, err)

	// task_overdue defaults to telegram+email: 2 recipients x 2 channels.
	assert.True(t, result.OverallSuccess)
	assert.Len(t, result.Attempts, 4)
	for _, att := range result.Attempts {
		assert.True(t, att.Success)
		assert.Empty(t, att.Error)
	}

	require.Equal(t, 1, f.records.createdCount())
	assert.Equal(t, models.StatusSent, f.records.finalized[result.NotificationID])
	assert.Equal(t, 2, f.telegram.sends)
	assert.Equal(t, 2, f.email.sends)

	require.Len(t, f.indexer.records, 1)
	assert.Equal(t, result.NotificationID, f.indexer.records[0].ID)
}

func TestDispatcher_Dispatch_OneChannelFailureFailsRecord(t *testing.T) {
	f := newFixture(t)
	f.email.err = apperrors.NewSendTransportError("email", context.DeadlineExceeded)

	result, err := f.dispatcher.Dispatch(context.Background(), models.KindTaskOverdue,
		[]string{"user-1", "user-2"}, overduePayload(), nil)
	require.NoError(t, err)

	// Sibling attempts keep going: all 4 attempts exist, 2 failed.
	assert.False(t, result.OverallSuccess)
	assert.Len(t, result.Attempts, 4)
	failures := 0
	for _, att := range result.Attempts {
		if !att.Success {
			failures++
			assert.Equal(t, models.ChannelEmail, att.Channel)
			assert.Contains(t, att.Error, "SEND_TRANSPORT_ERROR")
		}
	}
	assert.Equal(t, 2, failures)
	assert.Equal(t, models.StatusFailed, f.records.finalized[result.NotificationID])
}

func TestDispatcher_Dispatch_UnknownRecipientFailsItsAttemptsOnly(t *testing.T) {
	f := newFixture(t)

	result, err := f.dispatcher.Dispatch(context.Background(), models.KindTaskOverdue,
		[]string{"user-1", "ghost"}, overduePayload(), nil)
	require.NoError(t, err)

	assert.False(t, result.OverallSuccess)
	assert.Len(t, result.Attempts, 4)

	byRecipient := map[string]int{}
	for _, att := range result.Attempts {
		if !att.Success {
			byRecipient[att.Recipient]++
			assert.Contains(t, att.Error, "NO_ADDRESS_FOR_CHANNEL")
		}
	}
	assert.Equal(t, map[string]int{"ghost": 2}, byRecipient)
}

func TestDispatcher_Dispatch_ChannelRestriction(t *testing.T) {
	f := newFixture(t)

	result, err := f.dispatcher.Dispatch(context.Background(), models.KindTaskOverdue,
		[]string{"user-1", "user-2"}, overduePayload(),
		&Options{Channels: []models.Channel{models.ChannelTelegram}})
	require.NoError(t, err)

	assert.True(t, result.OverallSuccess)
	assert.Len(t, result.Attempts, 2)
	assert.Equal(t, 2, f.telegram.sends)
	assert.Equal(t, 0, f.email.sends)
}

func TestDispatcher_Dispatch_ValidationErrors(t *testing.T) {
	tests := []struct {
		name         string
		kind         models.Kind
		recipients   []string
		opts         *Options
		expectedCode apperrors.ErrorCode
	}{
		{
			name:         "unknown kind",
			kind:         "bogus_kind",
			recipients:   []string{"user-1"},
			expectedCode: apperrors.ErrCodeUnknownKind,
		},
		{
			name:         "empty recipients",
			kind:         models.KindTaskOverdue,
			recipients:   nil,
			expectedCode: apperrors.ErrCodeNoRecipients,
		},
		{
			name:         "channel outside the kind's set",
			kind:         models.KindTaskOverdue,
			recipients:   []string{"user-1"},
			opts:         &Options{Channels: []models.Channel{models.ChannelSMS}},
			expectedCode: apperrors.ErrCodeUnsupportedChannel,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)

			result, err := f.dispatcher.Dispatch(context.Background(), tt.kind, tt.recipients, nil, tt.opts)
			require.Error(t, err)
			assert.Nil(t, result)
			assert.Equal(t, tt.expectedCode, apperrors.CodeOf(err))

			// Validation failures abort before any send or record.
			assert.Equal(t, 0, f.records.createdCount())
			assert.Equal(t, 0, f.telegram.sends)
			assert.Equal(t, 0, f.email.sends)
		})
	}
}

func TestDispatcher_Dispatch_PersistenceFailuresSurface(t *testing.T) {
	f := newFixture(t)
	f.records.createErr = apperrors.NewRecordInsertFailedError("notifications", context.DeadlineExceeded)

	_, err := f.dispatcher.Dispatch(context.Background(), models.KindTaskOverdue,
		[]string{"user-1"}, overduePayload(), nil)
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeRecordInsertFailed, apperrors.CodeOf(err))
	assert.Equal(t, 0, f.telegram.sends)

	f = newFixture(t)
	f.records.finalizeErr = apperrors.NewRecordInsertFailedError("notifications", context.DeadlineExceeded)

	_, err = f.dispatcher.Dispatch(context.Background(), models.KindTaskOverdue,
		[]string{"user-1"}, overduePayload(), nil)
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeRecordInsertFailed, apperrors.CodeOf(err))
}

func TestDispatcher_Dispatch_ConcurrentCallsAreIndependent(t *testing.T) {
	f := newFixture(t)

	const calls = 50
	ids := make(chan string, calls)
	var wg sync.WaitGroup
	for i := 0; i < calls; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := f.dispatcher.Dispatch(context.Background(), models.KindTaskOverdue,
				[]string{"user-1"}, overduePayload(), nil)
			if assert.NoError(t, err) {
				ids <- result.NotificationID
			}
		}()
	}
	wg.Wait()
	close(ids)

	seen := map[string]bool{}
	for id := range ids {
		assert.False(t, seen[id], "duplicate notification id %s", id)
		seen[id] = true
	}
	assert.Len(t, seen, calls)
	assert.Equal(t, calls, f.records.createdCount())
}

// ==========================
// One-off Message Tests
// ==========================

func TestDispatcher_SendTelegram(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.dispatcher.SendTelegram(context.Background(), 12345, "ping"))
	assert.Equal(t, 1, f.telegram.sends)
}

func TestDispatcher_SendEmail_NotConfigured(t *testing.T) {
	users := &fakeUserStore{users: map[string]*models.User{}}
	resolver := channel.NewAddressResolver(users, nil, time.Minute, logger.NewTestLogger(t))
	d := New(template.NewRegistry(), nil, resolver, newFakeRecordStore(), nil, logger.NewTestLogger(t))

	err := d.SendEmail(context.Background(), "a@example.com", "subject", "body")
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeChannelNotConfigured, apperrors.CodeOf(err))
}
