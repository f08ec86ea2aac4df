package auth

import (
	"context"
	"fmt"
	"sync"

	"genai-gallery/common"

	"github.com/google/uuid"
)

// AccountStore 账号存储
type AccountStore interface {
	// Create 新建账号；同一来源下邮箱或外部 ID 重复时返回 common.ErrAccountExists
	Create(ctx context.Context, account *Account) error
	FindByID(ctx context.Context, id uuid.UUID) (*Account, error)
	FindByEmail(ctx context.Context, provider, email string) (*Account, error)
	FindByProviderUserID(ctx context.Context, provider, providerUserID string) (*Account, error)
}

// MemoryStore 进程内账号存储，未配置数据库时使用
type MemoryStore struct {
	mu       sync.RWMutex
	accounts map[uuid.UUID]Account
}

// NewMemoryStore 创建内存账号存储
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{accounts: make(map[uuid.UUID]Account)}
}

func (s *MemoryStore) Create(_ context.Context, account *Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.accounts {
		if existing.Provider != account.Provider {
			continue
		}
		if existing.Email == account.Email || existing.ProviderUserID == account.ProviderUserID {
			return fmt.Errorf("create %s account %s: %w", account.Provider, account.Email, common.ErrAccountExists)
		}
	}
	s.accounts[account.ID] = *account
	return nil
}

func (s *MemoryStore) FindByID(_ context.Context, id uuid.UUID) (*Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	account, ok := s.accounts[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return &account, nil
}

func (s *MemoryStore) FindByEmail(_ context.Context, provider, email string) (*Account, error) {
	return s.find(func(a Account) bool { return a.Provider == provider && a.Email == email })
}

func (s *MemoryStore) FindByProviderUserID(_ context.Context, provider, providerUserID string) (*Account, error) {
	return s.find(func(a Account) bool { return a.Provider == provider && a.ProviderUserID == providerUserID })
}

func (s *MemoryStore) find(match func(Account) bool) (*Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, account := range s.accounts {
		if match(account) {
			found := account
			return &found, nil
		}
	}
	return nil, common.ErrNotFound
}
