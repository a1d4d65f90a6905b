// internal/service/user/domain/user.go
package domain

import "errors"

// ErrNotFound 表示用户不存在。
var ErrNotFound = errors.New("user: not found")

// Status 是用户账号状态，下单要求 ACTIVE。
type Status string

const (
	StatusActive Status = "ACTIVE"
	StatusFrozen Status = "FROZEN"
	StatusClosed Status = "CLOSED"
)

// User 是用户档案的只读视图，校验下单资格用。
type User struct {
	ID     string
	Name   string
	Level  int
	Status Status
}

// CanPlaceOrder 判断该用户能否下单。
func (u *User) CanPlaceOrder() bool {
	return u.Status == StatusActive
}
