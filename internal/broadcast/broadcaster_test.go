package broadcast

import (
	"context"
	"errors"
	"testing"
	"time"

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

// MockMessenger is a mock implementing the smsapi.Messenger interface
type MockMessenger struct {
	mock.Mock
}

func (m *MockMessenger) Send(ctx context.Context, to, body string) (string, error) {
	args := m.Called(ctx, to, body)
	return args.String(0), args.Error(1)
}

// --- Tests ---

func activeUser(phone string) models.User {
	return models.User{ID: primitive.NewObjectID(), Phone: phone, Active: true, CreatedAt: time.Now()}
}

func TestPromptTextDescribesClosedWindow(t *testing.T) {
	now := time.Date(2024, time.March, 12, 9, 15, 0, 0, time.Local)
	assert.Equal(t, "What did you do from 9:00 AM to 9:15 AM?", PromptText(now))
}

func TestRunPromptsEveryActiveSubscriber(t *testing.T) {
	mockRepo := new(MockUserRepository)
	mockMessenger := new(MockMessenger)

	users := []models.User{activeUser("+15550000001"), activeUser("+15550000002")}
	mockRepo.On("ListActive", mock.Anything).Return(users, nil)

	prompt := "What did you do from 9:00 AM to 9:15 AM?"
	mockMessenger.On("Send", mock.Anything, "+15550000001", prompt).Return("SM1", nil).Once()
	mockMessenger.On("Send", mock.Anything, "+15550000002", prompt).Return("SM2", nil).Once()

	b, err := New(mockRepo, mockMessenger, 100, false)
	require.NoError(t, err)

	now := time.Date(2024, time.March, 12, 9, 15, 0, 0, time.Local)
	report, err := b.Run(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, Report{Sent: 2, Failed: 0}, report)
	mockMessenger.AssertExpectations(t)
}

func TestRunContinuesPastSingleRecipientFailure(t *testing.T) {
	mockRepo := new(MockUserRepository)
	mockMessenger := new(MockMessenger)

	users := []models.User{
		activeUser("+15550000001"),
		activeUser("+15550000002"),
		activeUser("+15550000003"),
	}
	mockRepo.On("ListActive", mock.Anything).Return(users, nil)

	mockMessenger.On("Send", mock.Anything, "+15550000001", mock.Anything).Return("SM1", nil).Once()
	mockMessenger.On("Send", mock.Anything, "+15550000002", mock.Anything).Return("", errors.New("unreachable carrier")).Once()
	mockMessenger.On("Send", mock.Anything, "+15550000003", mock.Anything).Return("SM3", nil).Once()

	b, err := New(mockRepo, mockMessenger, 100, false)
	require.NoError(t, err)

	report, err := b.Run(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, 2, report.Sent)
	assert.Equal(t, 1, report.Failed)
	mockMessenger.AssertExpectations(t)
}

func TestRunAbortsWhenRegistryUnavailable(t *testing.T) {
	mockRepo := new(MockUserRepository)
	mockMessenger := new(MockMessenger)

	mockRepo.On("ListActive", mock.Anything).Return(nil, errors.New("connection reset"))

	b, err := New(mockRepo, mockMessenger, 100, false)
	require.NoError(t, err)

	_, err = b.Run(context.Background(), time.Now())
	assert.Error(t, err)
	mockMessenger.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything)
}

func TestNewValidatesDependencies(t *testing.T) {
	mockRepo := new(MockUserRepository)
	mockMessenger := new(MockMessenger)

	_, err := New(nil, mockMessenger, 1, false)
	assert.Error(t, err)
	_, err = New(mockRepo, nil, 1, false)
	assert.Error(t, err)
	_, err = New(mockRepo, mockMessenger, 0, false)
	assert.Error(t, err)
}
