package handlers

import (
	"context"
	"errors"
	"testing"
	"time"

	"quarterlog-bot/internal/database"
	"quarterlog-bot/internal/database/models"
	"quarterlog-bot/internal/locales"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestMain(m *testing.M) {
	locales.Init("en")
	m.Run()
}

// --- Mocks ---

// MockUserRepository is a mock for database.UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Register(ctx context.Context, phone string) (*models.User, error) {
	args := m.Called(ctx, phone)
	if user, ok := args.Get(0).(*models.User); ok {
		return user, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUserRepository) FindByPhone(ctx context.Context, phone string) (*models.User, error) {
	args := m.Called(ctx, phone)
	if user, ok := args.Get(0).(*models.User); ok {
		return user, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUserRepository) ListActive(ctx context.Context) ([]models.User, error) {
	args := m.Called(ctx)
	if users, ok := args.Get(0).([]models.User); ok {
		return users, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUserRepository) Deactivate(ctx context.Context, phone string) error {
	args := m.Called(ctx, phone)
	return args.Error(0)
}

// MockActivityRepository is a mock for database.ActivityRepository
type MockActivityRepository struct {
	mock.Mock
}

func (m *MockActivityRepository) Upsert(ctx context.Context, userID primitive.ObjectID, date, slot, text string) (*models.ActivityEntry, error) {
	args := m.Called(ctx, userID, date, slot, text)
	if entry, ok := args.Get(0).(*models.ActivityEntry); ok {
		return entry, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockActivityRepository) ListForUserAndDate(ctx context.Context, userID primitive.ObjectID, date string) ([]models.ActivityEntry, error) {
	args := m.Called(ctx, userID, date)
	if entries, ok := args.Get(0).([]models.ActivityEntry); ok {
		return entries, args.Error(1)
	}
	return nil, args.Error(1)
}

// MockMessenger is a mock implementing the smsapi.Messenger interface
type MockMessenger struct {
	mock.Mock
}

func (m *MockMessenger) Send(ctx context.Context, to, body string) (string, error) {
	args := m.Called(ctx, to, body)
	return args.String(0), args.Error(1)
}

// --- Test suite setup ---

const testPhone = "+15557654321"

type testHandlerSuite struct {
	mockUserRepo     *MockUserRepository
	mockActivityRepo *MockActivityRepository
	mockMessenger    *MockMessenger
	handler          *Handler
}

func setupTestHandlerSuite(t *testing.T) *testHandlerSuite {
	t.Helper()

	s := &testHandlerSuite{
		mockUserRepo:     new(MockUserRepository),
		mockActivityRepo: new(MockActivityRepository),
		mockMessenger:    new(MockMessenger),
	}

	handler, err := NewHandler(s.mockUserRepo, s.mockActivityRepo, s.mockMessenger, false)
	require.NoError(t, err)
	s.handler = handler
	return s
}

func knownUser() *models.User {
	return &models.User{ID: primitive.NewObjectID(), Phone: testPhone, Active: true, CreatedAt: time.Now()}
}

// --- HandleInbound ---

func TestHandleInboundStoresReplyAgainstPreviousSlot(t *testing.T) {
	s := setupTestHandlerSuite(t)
	user := knownUser()
	at := time.Date(2024, time.March, 12, 9, 16, 0, 0, time.Local)

	s.mockUserRepo.On("FindByPhone", mock.Anything, testPhone).Return(user, nil)
	stored := &models.ActivityEntry{
		ID: primitive.NewObjectID(), UserID: user.ID,
		Date: "2024-03-12", Slot: "09:00", Text: "wrote code",
		UpdatedAt: at,
	}
	s.mockActivityRepo.On("Upsert", mock.Anything, user.ID, "2024-03-12", "09:00", "wrote code").Return(stored, nil)
	s.mockMessenger.On("Send", mock.Anything, testPhone, `Logged: "wrote code" for 9:00 AM`).Return("SM1", nil)

	entry, err := s.handler.HandleInbound(context.Background(), testPhone, "wrote code", at)
	require.NoError(t, err)
	assert.Equal(t, "09:00", entry.Slot)
	assert.Equal(t, "wrote code", entry.Text)
	s.mockActivityRepo.AssertExpectations(t)
	s.mockMessenger.AssertExpectations(t)
}

func TestHandleInboundAutoRegistersUnknownSender(t *testing.T) {
	s := setupTestHandlerSuite(t)
	user := knownUser()
	at := time.Date(2024, time.March, 12, 14, 31, 0, 0, time.Local)

	s.mockUserRepo.On("FindByPhone", mock.Anything, testPhone).Return(nil, database.ErrUserNotFound)
	s.mockUserRepo.On("Register", mock.Anything, testPhone).Return(user, nil).Once()
	s.mockActivityRepo.On("Upsert", mock.Anything, user.ID, "2024-03-12", "14:15", "lunch").Return(
		&models.ActivityEntry{UserID: user.ID, Date: "2024-03-12", Slot: "14:15", Text: "lunch"}, nil)
	s.mockMessenger.On("Send", mock.Anything, testPhone, mock.Anything).Return("SM1", nil)

	entry, err := s.handler.HandleInbound(context.Background(), testPhone, "  lunch  ", at)
	require.NoError(t, err)
	assert.Equal(t, "lunch", entry.Text)
	s.mockUserRepo.AssertExpectations(t)
}

func TestHandleInboundRejectsEmptyReply(t *testing.T) {
	s := setupTestHandlerSuite(t)

	_, err := s.handler.HandleInbound(context.Background(), testPhone, "   ", time.Now())
	assert.ErrorIs(t, err, ErrEmptyReply)
	s.mockUserRepo.AssertNotCalled(t, "FindByPhone", mock.Anything, mock.Anything)
	s.mockActivityRepo.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestHandleInboundLedgerFailureSendsNoConfirmation(t *testing.T) {
	s := setupTestHandlerSuite(t)
	user := knownUser()

	s.mockUserRepo.On("FindByPhone", mock.Anything, testPhone).Return(user, nil)
	s.mockActivityRepo.On("Upsert", mock.Anything, user.ID, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, errors.New("connection reset"))

	_, err := s.handler.HandleInbound(context.Background(), testPhone, "wrote code", time.Now())
	assert.Error(t, err)
	s.mockMessenger.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything)
}

func TestHandleInboundSurfacesConfirmationSendFailure(t *testing.T) {
	s := setupTestHandlerSuite(t)
	user := knownUser()

	s.mockUserRepo.On("FindByPhone", mock.Anything, testPhone).Return(user, nil)
	s.mockActivityRepo.On("Upsert", mock.Anything, user.ID, mock.Anything, mock.Anything, mock.Anything).
		Return(&models.ActivityEntry{UserID: user.ID, Text: "wrote code"}, nil)
	s.mockMessenger.On("Send", mock.Anything, testPhone, mock.Anything).Return("", errors.New("unreachable"))

	entry, err := s.handler.HandleInbound(context.Background(), testPhone, "wrote code", time.Now())
	assert.Error(t, err)
	// The entry was stored even though the confirmation failed.
	assert.NotNil(t, entry)
}

// --- HandleOptOut ---

func TestHandleOptOutDeactivatesAndConfirms(t *testing.T) {
	s := setupTestHandlerSuite(t)

	s.mockUserRepo.On("Deactivate", mock.Anything, testPhone).Return(nil)
	s.mockMessenger.On("Send", mock.Anything, testPhone, mock.MatchedBy(func(body string) bool {
		return body != ""
	})).Return("SM1", nil)

	err := s.handler.HandleOptOut(context.Background(), testPhone)
	require.NoError(t, err)
	s.mockUserRepo.AssertExpectations(t)
	s.mockMessenger.AssertExpectations(t)
}

func TestHandleOptOutUnknownSenderIsNoOp(t *testing.T) {
	s := setupTestHandlerSuite(t)

	s.mockUserRepo.On("Deactivate", mock.Anything, testPhone).Return(database.ErrUserNotFound)

	err := s.handler.HandleOptOut(context.Background(), testPhone)
	require.NoError(t, err)
	s.mockMessenger.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything)
}

func TestIsOptOut(t *testing.T) {
	assert.True(t, isOptOut("STOP"))
	assert.True(t, isOptOut(" stop "))
	assert.False(t, isOptOut("stopped working"))
	assert.False(t, isOptOut("wrote code"))
}
