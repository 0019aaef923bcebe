package ingest

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vundelavamsi/finance-tracker-backend/internal/dto"
	"github.com/vundelavamsi/finance-tracker-backend/internal/models"
	"github.com/vundelavamsi/finance-tracker-backend/internal/parser"
	"github.com/vundelavamsi/finance-tracker-backend/internal/repository"
)

type fakeTenantStore struct {
	tenants map[string]*models.Tenant
	err     error
}

func (f *fakeTenantStore) GetOrCreate(ctx context.Context, externalID, displayName string) (*models.Tenant, error) {
	if f.err != nil {
		return nil, f.err
	}
	if tenant, ok := f.tenants[externalID]; ok {
		return tenant, nil
	}
	tenant := &models.Tenant{
		ID:              uuid.New(),
		ExternalID:      externalID,
		DisplayName:     displayName,
		DefaultCurrency: "INR",
	}
	f.tenants[externalID] = tenant
	return tenant, nil
}

type txKey struct {
	tenantID  uuid.UUID
	messageID int64
}

type fakeTransactionStore struct {
	rows      map[txKey]*models.Transaction
	createErr error
}

func (f *fakeTransactionStore) Create(ctx context.Context, tx *models.Transaction) error {
	if f.createErr != nil {
		return f.createErr
	}
	key := txKey{tx.TenantID, tx.SourceMessageID}
	if _, exists := f.rows[key]; exists {
		return repository.ErrConflict
	}
	f.rows[key] = tx
	return nil
}

func (f *fakeTransactionStore) GetBySourceMessage(ctx context.Context, tenantID uuid.UUID, sourceMessageID int64) (*models.Transaction, error) {
	if tx, ok := f.rows[txKey{tenantID, sourceMessageID}]; ok {
		return tx, nil
	}
	return nil, repository.ErrNotFound
}

type fakeAttemptStore struct {
	states   map[txKey]models.AttemptState
	beginErr error
}

func (f *fakeAttemptStore) Begin(ctx context.Context, tenantID uuid.UUID, sourceMessageID int64) (bool, models.AttemptState, error) {
	if f.beginErr != nil {
		return false, "", f.beginErr
	}
	key := txKey{tenantID, sourceMessageID}
	if state, exists := f.states[key]; exists {
		return false, state, nil
	}
	f.states[key] = models.AttemptInProgress
	return true, models.AttemptInProgress, nil
}

func (f *fakeAttemptStore) MarkSucceeded(ctx context.Context, tenantID uuid.UUID, sourceMessageID int64) error {
	f.states[txKey{tenantID, sourceMessageID}] = models.AttemptSucceeded
	return nil
}

func (f *fakeAttemptStore) MarkFailed(ctx context.Context, tenantID uuid.UUID, sourceMessageID int64) error {
	f.states[txKey{tenantID, sourceMessageID}] = models.AttemptFailedPermanent
	return nil
}

func (f *fakeAttemptStore) Release(ctx context.Context, tenantID uuid.UUID, sourceMessageID int64) error {
	delete(f.states, txKey{tenantID, sourceMessageID})
	return nil
}

type fakeMessenger struct {
	sent        []string
	sendErr     error
	fileData    []byte
	fileMime    string
	downloadErr error
}

func (f *fakeMessenger) SendMessage(ctx context.Context, chatID int64, text string) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, text)
	return nil
}

func (f *fakeMessenger) DownloadFile(ctx context.Context, fileID string) ([]byte, string, error) {
	if f.downloadErr != nil {
		return nil, "", f.downloadErr
	}
	return f.fileData, f.fileMime, nil
}

type fixture struct {
	service      *Service
	tenants      *fakeTenantStore
	transactions *fakeTransactionStore
	attempts     *fakeAttemptStore
	messenger    *fakeMessenger
	parser       *parser.NullParser
}

func newFixture() *fixture {
	f := &fixture{
		tenants:      &fakeTenantStore{tenants: map[string]*models.Tenant{}},
		transactions: &fakeTransactionStore{rows: map[txKey]*models.Transaction{}},
		attempts:     &fakeAttemptStore{states: map[txKey]models.AttemptState{}},
		messenger:    &fakeMessenger{fileData: []byte("image-bytes"), fileMime: "image/jpeg"},
		parser:       &parser.NullParser{},
	}
	f.service = NewService(f.tenants, f.transactions, f.attempts, f.messenger, f.parser, NewValidator(), zap.NewNop())
	f.service.now = func() time.Time {
		return time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	}
	return f
}

func photoUpdate(senderID, messageID int64) *dto.Update {
	return &dto.Update{
		UpdateID: messageID,
		Message: &dto.Message{
			MessageID: messageID,
			From:      &dto.Sender{ID: senderID, FirstName: "Test", Username: "tester"},
			Chat:      dto.Chat{ID: senderID},
			Photo:     []dto.PhotoSize{{FileID: "small"}, {FileID: "large"}},
		},
	}
}

func textUpdate(senderID, messageID int64, text string) *dto.Update {
	return &dto.Update{
		UpdateID: messageID,
		Message: &dto.Message{
			MessageID: messageID,
			From:      &dto.Sender{ID: senderID, FirstName: "Test"},
			Chat:      dto.Chat{ID: senderID},
			Text:      text,
		},
	}
}

func cleanDraft() *models.TransactionDraft {
	amount := decimal.RequireFromString("450")
	return &models.TransactionDraft{
		Amount:      &amount,
		Currency:    "INR",
		Merchant:    "Starbucks",
		Category:    "Coffee",
		ParseStatus: models.ParseStatusOK,
	}
}

func TestHandleCleanReceipt(t *testing.T) {
	f := newFixture()
	f.parser.Draft = cleanDraft()

	decision := f.service.Handle(context.Background(), photoUpdate(101, 1))

	assert.Equal(t, AckOK, decision)
	require.Len(t, f.transactions.rows, 1)
	require.NotEmpty(t, f.messenger.sent)
	assert.Equal(t, "Tracked 450 INR at Starbucks (Coffee)", f.messenger.sent[len(f.messenger.sent)-1])

	tenant := f.tenants.tenants["101"]
	require.NotNil(t, tenant)
	assert.Equal(t, models.AttemptSucceeded, f.attempts.states[txKey{tenant.ID, 1}])
}

func TestHandleRedeliveryAfterSuccess(t *testing.T) {
	f := newFixture()
	f.parser.Draft = cleanDraft()

	require.Equal(t, AckOK, f.service.Handle(context.Background(), photoUpdate(101, 1)))
	firstRows := len(f.transactions.rows)

	// Same update delivered again: no new row, same confirmation, one parse.
	decision := f.service.Handle(context.Background(), photoUpdate(101, 1))

	assert.Equal(t, AckOK, decision)
	assert.Equal(t, firstRows, len(f.transactions.rows))
	assert.Equal(t, 1, f.parser.ExtractCalls)
	assert.Equal(t, "Tracked 450 INR at Starbucks (Coffee)", f.messenger.sent[len(f.messenger.sent)-1])
}

func TestHandleConcurrentAttemptInProgress(t *testing.T) {
	f := newFixture()
	f.parser.Draft = cleanDraft()

	tenant, err := f.tenants.GetOrCreate(context.Background(), "101", "Test")
	require.NoError(t, err)
	f.attempts.states[txKey{tenant.ID, 1}] = models.AttemptInProgress

	decision := f.service.Handle(context.Background(), photoUpdate(101, 1))

	assert.Equal(t, AckProcessing, decision)
	assert.Empty(t, f.transactions.rows)
	assert.Equal(t, 0, f.parser.ExtractCalls)
}

func TestHandleMissingAmount(t *testing.T) {
	f := newFixture()
	f.parser.Draft = &models.TransactionDraft{ParseStatus: models.ParseStatusUnparseable}

	decision := f.service.Handle(context.Background(), photoUpdate(101, 1))

	assert.Equal(t, AckOK, decision)
	assert.Empty(t, f.transactions.rows)

	tenant := f.tenants.tenants["101"]
	assert.Equal(t, models.AttemptFailedPermanent, f.attempts.states[txKey{tenant.ID, 1}])
	require.NotEmpty(t, f.messenger.sent)
	assert.Contains(t, f.messenger.sent[len(f.messenger.sent)-1], "could not find an amount")
}

func TestHandleTransientExtractionFailure(t *testing.T) {
	f := newFixture()
	f.parser.Err = parser.Transient(errors.New("503 overloaded"))

	decision := f.service.Handle(context.Background(), photoUpdate(101, 1))

	assert.Equal(t, AckRetry, decision)
	assert.Empty(t, f.transactions.rows)

	// Ledger slot is released so the redelivery can try again.
	tenant := f.tenants.tenants["101"]
	_, held := f.attempts.states[txKey{tenant.ID, 1}]
	assert.False(t, held)
}

func TestHandlePermanentExtractionFailure(t *testing.T) {
	f := newFixture()
	f.parser.Err = parser.SchemaMismatch(errors.New("prose response"))

	decision := f.service.Handle(context.Background(), photoUpdate(101, 1))

	assert.Equal(t, AckOK, decision)
	assert.Empty(t, f.transactions.rows)

	tenant := f.tenants.tenants["101"]
	assert.Equal(t, models.AttemptFailedPermanent, f.attempts.states[txKey{tenant.ID, 1}])
}

func TestHandleRedeliveryAfterPermanentFailure(t *testing.T) {
	f := newFixture()
	f.parser.Err = parser.Permanent(errors.New("bad image"))

	require.Equal(t, AckOK, f.service.Handle(context.Background(), photoUpdate(101, 1)))
	sentBefore := len(f.messenger.sent)

	// Redelivery of a permanently failed update is acked without reprocessing
	// and without a second failure message.
	decision := f.service.Handle(context.Background(), photoUpdate(101, 1))

	assert.Equal(t, AckOK, decision)
	assert.Equal(t, 1, f.parser.ExtractCalls)
	assert.Equal(t, sentBefore, len(f.messenger.sent))
}

func TestHandleCrossTenantSameMessageID(t *testing.T) {
	f := newFixture()
	f.parser.Draft = cleanDraft()

	// Two different senders may reuse the same per-chat message id.
	require.Equal(t, AckOK, f.service.Handle(context.Background(), photoUpdate(101, 7)))
	require.Equal(t, AckOK, f.service.Handle(context.Background(), photoUpdate(202, 7)))

	assert.Len(t, f.transactions.rows, 2)
}

func TestHandleDownloadFailure(t *testing.T) {
	f := newFixture()
	f.messenger.downloadErr = errors.New("network unreachable")

	decision := f.service.Handle(context.Background(), photoUpdate(101, 1))

	assert.Equal(t, AckRetry, decision)
	tenant := f.tenants.tenants["101"]
	_, held := f.attempts.states[txKey{tenant.ID, 1}]
	assert.False(t, held)
}

func TestHandleTenantResolutionFailure(t *testing.T) {
	f := newFixture()
	f.tenants.err = errors.New("connection refused")

	decision := f.service.Handle(context.Background(), photoUpdate(101, 1))
	assert.Equal(t, AckRetry, decision)
}

func TestHandleInsertConflictTreatedAsSuccess(t *testing.T) {
	f := newFixture()
	f.parser.Draft = cleanDraft()

	tenant, err := f.tenants.GetOrCreate(context.Background(), "101", "Test")
	require.NoError(t, err)

	// A concurrent attempt already committed the row; the unique constraint
	// fires and the stored record answers the user.
	amount := decimal.RequireFromString("450")
	f.transactions.rows[txKey{tenant.ID, 1}] = &models.Transaction{
		TenantID:        tenant.ID,
		SourceMessageID: 1,
		Amount:          amount,
		Currency:        "INR",
		Merchant:        "Starbucks",
		Category:        "Coffee",
	}

	decision := f.service.Handle(context.Background(), photoUpdate(101, 1))

	assert.Equal(t, AckOK, decision)
	assert.Len(t, f.transactions.rows, 1)
	assert.Equal(t, models.AttemptSucceeded, f.attempts.states[txKey{tenant.ID, 1}])
	assert.Equal(t, "Tracked 450 INR at Starbucks (Coffee)", f.messenger.sent[len(f.messenger.sent)-1])
}

func TestHandleTextCommand(t *testing.T) {
	f := newFixture()
	amount := decimal.RequireFromString("50")
	f.parser.Draft = &models.TransactionDraft{
		Amount:      &amount,
		Currency:    "INR",
		Category:    "food",
		ParseStatus: models.ParseStatusOK,
	}

	decision := f.service.Handle(context.Background(), textUpdate(101, 5, "spent 50 on food"))

	assert.Equal(t, AckOK, decision)
	assert.Equal(t, 1, f.parser.ExtractTextCalls)
	assert.Len(t, f.transactions.rows, 1)
	assert.Equal(t, "Tracked 50 INR (food)", f.messenger.sent[len(f.messenger.sent)-1])
}

func TestHandleEmptyMessageSendsUsageHint(t *testing.T) {
	f := newFixture()

	update := textUpdate(101, 9, "")
	decision := f.service.Handle(context.Background(), update)

	assert.Equal(t, AckOK, decision)
	assert.Empty(t, f.transactions.rows)
	assert.Empty(t, f.attempts.states)
	require.Len(t, f.messenger.sent, 1)
	assert.True(t, strings.Contains(f.messenger.sent[0], "photo"))
}

func TestHandleIgnoresNonMessageUpdates(t *testing.T) {
	f := newFixture()

	assert.Equal(t, AckOK, f.service.Handle(context.Background(), nil))
	assert.Equal(t, AckOK, f.service.Handle(context.Background(), &dto.Update{}))
	assert.Equal(t, AckOK, f.service.Handle(context.Background(), &dto.Update{
		Message: &dto.Message{MessageID: 1, Text: "no sender"},
	}))
	assert.Empty(t, f.messenger.sent)
}

func TestConfirmationText(t *testing.T) {
	amount := decimal.RequireFromString("450")

	assert.Equal(t, "Tracked 450 INR at Starbucks (Coffee)",
		confirmationText(amount, "INR", "Starbucks", "Coffee"))
	assert.Equal(t, "Tracked 450 INR (Coffee)",
		confirmationText(amount, "INR", models.FieldUnknown, "Coffee"))
	assert.Equal(t, "Tracked 450 INR at Starbucks",
		confirmationText(amount, "INR", "Starbucks", models.FieldUnknown))
	assert.Equal(t, "Tracked 450 INR",
		confirmationText(amount, "INR", models.FieldUnknown, models.FieldUnknown))
}

func captionedPhotoUpdate(senderID, messageID int64, caption string) *dto.Update {
	update := photoUpdate(senderID, messageID)
	update.Message.Caption = caption
	return update
}

func TestHandleCaptionFallbackAfterUnreadableImage(t *testing.T) {
	f := newFixture()
	f.parser.Err = parser.SchemaMismatch(errors.New("prose response"))
	f.parser.TextDraft = cleanDraft()

	decision := f.service.Handle(context.Background(), captionedPhotoUpdate(101, 1, "coffee at Starbucks 450"))

	assert.Equal(t, AckOK, decision)
	require.Len(t, f.transactions.rows, 1)
	assert.Equal(t, 1, f.parser.ExtractCalls)
	assert.Equal(t, 1, f.parser.ExtractTextCalls)
	assert.Equal(t, "Tracked 450 INR at Starbucks (Coffee)", f.messenger.sent[len(f.messenger.sent)-1])

	tenant := f.tenants.tenants["101"]
	assert.Equal(t, models.AttemptSucceeded, f.attempts.states[txKey{tenant.ID, 1}])
}

func TestHandleCaptionFallbackSkippedOnTransientFailure(t *testing.T) {
	f := newFixture()
	f.parser.Err = parser.Transient(errors.New("503 overloaded"))
	f.parser.TextDraft = cleanDraft()

	decision := f.service.Handle(context.Background(), captionedPhotoUpdate(101, 1, "coffee 450"))

	assert.Equal(t, AckRetry, decision)
	assert.Equal(t, 0, f.parser.ExtractTextCalls, "a retryable image failure should not burn the caption path")
	assert.Empty(t, f.transactions.rows)
}

func TestHandleCaptionWithoutImageTreatedAsText(t *testing.T) {
	f := newFixture()
	f.parser.Draft = cleanDraft()

	update := textUpdate(101, 1, "")
	update.Message.Caption = "spent 450 on coffee"

	decision := f.service.Handle(context.Background(), update)

	assert.Equal(t, AckOK, decision)
	assert.Equal(t, 1, f.parser.ExtractTextCalls)
	require.Len(t, f.transactions.rows, 1)
}
