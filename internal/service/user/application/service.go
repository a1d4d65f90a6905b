// internal/service/user/application/service.go
package application

import (
	"context"
	"sync"

	"gomall/internal/service/user/domain"
)

// UserService 提供用户查询。演示环境用内置数据，真实环境换成用户中心的库。
type UserService struct {
	mu    sync.RWMutex
	users map[string]*domain.User
}

func NewUserService() *UserService {
	s := &UserService{users: make(map[string]*domain.User)}
	// 预置账号，userId 以 blocked 开头的视为冻结，方便联调失败路径。
	for _, u := range []*domain.User{
		{ID: "user-1001", Name: "张三", Level: 2, Status: domain.StatusActive},
		{ID: "user-1002", Name: "李四", Level: 1, Status: domain.StatusActive},
		{ID: "user-1003", Name: "王五", Level: 3, Status: domain.StatusFrozen},
	} {
		s.users[u.ID] = u
	}
	return s
}

// GetUser 查询用户，未预置的 id 按普通活跃用户返回。
func (s *UserService) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	if userID == "" {
		return nil, domain.ErrNotFound
	}
	s.mu.RLock()
	u, ok := s.users[userID]
	s.mu.RUnlock()
	if ok {
		copied := *u
		return &copied, nil
	}
	status := domain.StatusActive
	if len(userID) >= 7 && userID[:7] == "blocked" {
		status = domain.StatusFrozen
	}
	return &domain.User{ID: userID, Name: userID, Level: 1, Status: status}, nil
}
