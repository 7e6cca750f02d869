package service

import (
	"context"
	"time"

	"casino/events"
	"casino/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// MockAccountRepository is a mock implementation of AccountRepository
type MockAccountRepository struct {
	mock.Mock
}

func (m *MockAccountRepository) GetByID(ctx context.Context, userID string) (*models.UserAccount, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.UserAccount), args.Error(1)
}

func (m *MockAccountRepository) GetForUpdate(ctx context.Context, userID string) (*models.UserAccount, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.UserAccount), args.Error(1)
}

func (m *MockAccountRepository) Upsert(ctx context.Context, userID string, update models.AccountUpdate) (*models.UserAccount, error) {
	args := m.Called(ctx, userID, update)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.UserAccount), args.Error(1)
}

func (m *MockAccountRepository) GetAll(ctx context.Context) ([]*models.UserAccount, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.UserAccount), args.Error(1)
}

// MockCasinoLogRepository is a mock implementation of CasinoLogRepository
type MockCasinoLogRepository struct {
	mock.Mock
}

func (m *MockCasinoLogRepository) Append(ctx context.Context, entry *models.CasinoLogEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockCasinoLogRepository) GetByUserSince(ctx context.Context, userID string, since time.Time, game *models.Game) ([]*models.CasinoLogEntry, error) {
	args := m.Called(ctx, userID, since, game)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.CasinoLogEntry), args.Error(1)
}

// MockEventPublisher is a mock implementation of EventPublisher for testing
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(event events.Event) {
	m.Called(event)
}

// MockUnitOfWork is a mock implementation of UnitOfWork
type MockUnitOfWork struct {
	mock.Mock
	accountRepo   AccountRepository
	casinoLogRepo CasinoLogRepository
	eventBus      EventPublisher
}

// SetRepositories wires the repositories returned by the getters
func (m *MockUnitOfWork) SetRepositories(accountRepo AccountRepository, casinoLogRepo CasinoLogRepository, eventBus EventPublisher) {
	m.accountRepo = accountRepo
	m.casinoLogRepo = casinoLogRepo
	m.eventBus = eventBus
}

func (m *MockUnitOfWork) Begin(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockUnitOfWork) Commit() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) Rollback() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) AccountRepository() AccountRepository {
	return m.accountRepo
}

func (m *MockUnitOfWork) CasinoLogRepository() CasinoLogRepository {
	return m.casinoLogRepo
}

func (m *MockUnitOfWork) EventBus() EventPublisher {
	return m.eventBus
}

// MockUnitOfWorkFactory is a mock implementation of UnitOfWorkFactory
type MockUnitOfWorkFactory struct {
	mock.Mock
}

func (m *MockUnitOfWorkFactory) Create() UnitOfWork {
	args := m.Called()
	return args.Get(0).(UnitOfWork)
}

// MockEconomyService is a mock implementation of EconomyService
type MockEconomyService struct {
	mock.Mock
}

func (m *MockEconomyService) LoadCache(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockEconomyService) GetBalance(userID string) decimal.Decimal {
	args := m.Called(userID)
	return args.Get(0).(decimal.Decimal)
}

func (m *MockEconomyService) GetAccount(userID string) *models.UserAccount {
	args := m.Called(userID)
	return args.Get(0).(*models.UserAccount)
}

func (m *MockEconomyService) AddBalance(ctx context.Context, userID string, delta decimal.Decimal, txType models.TransactionType) (*models.UserAccount, error) {
	args := m.Called(ctx, userID, delta, txType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.UserAccount), args.Error(1)
}

func (m *MockEconomyService) SetBalance(ctx context.Context, userID string, amount decimal.Decimal) (*models.UserAccount, error) {
	args := m.Called(ctx, userID, amount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.UserAccount), args.Error(1)
}

func (m *MockEconomyService) TransferBalance(ctx context.Context, fromID, toID string, amount decimal.Decimal) (*models.TransferResult, error) {
	args := m.Called(ctx, fromID, toID, amount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TransferResult), args.Error(1)
}

func (m *MockEconomyService) AddLog(ctx context.Context, userID string, game models.Game, netGain decimal.Decimal) (*models.CasinoLogEntry, error) {
	args := m.Called(ctx, userID, game, netGain)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.CasinoLogEntry), args.Error(1)
}

func (m *MockEconomyService) FetchLogs(ctx context.Context, userID string, window time.Duration, game *models.Game) ([]*models.CasinoLogEntry, error) {
	args := m.Called(ctx, userID, window, game)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.CasinoLogEntry), args.Error(1)
}

func (m *MockEconomyService) SettleWager(ctx context.Context, userID string, game models.Game, rawWager any, play PlayFunc) (*WagerSettlement, error) {
	args := m.Called(ctx, userID, game, rawWager, play)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*WagerSettlement), args.Error(1)
}

func (m *MockEconomyService) CompleteWager(ctx context.Context, userID string, game models.Game, wager, payout decimal.Decimal) (*models.UserAccount, error) {
	args := m.Called(ctx, userID, game, wager, payout)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.UserAccount), args.Error(1)
}

func (m *MockEconomyService) DailyStatus(userID string) *models.DailyResponse {
	args := m.Called(userID)
	return args.Get(0).(*models.DailyResponse)
}

func (m *MockEconomyService) ClaimDaily(ctx context.Context, userID string) (*models.DailyResponse, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DailyResponse), args.Error(1)
}
