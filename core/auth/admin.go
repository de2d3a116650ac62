package auth

import (
	"context"
	"errors"
)

// AdminChecker 单管理员判定：主邮箱与配置的管理员邮箱完全相同
type AdminChecker struct {
	dir        Directory
	adminEmail string
}

// NewAdminChecker adminEmail 为空时没有任何人是管理员
func NewAdminChecker(dir Directory, adminEmail string) *AdminChecker {
	return &AdminChecker{dir: dir, adminEmail: adminEmail}
}

// Resolve 查询主邮箱并判定是否管理员
func (a *AdminChecker) Resolve(ctx context.Context, userID string) (email string, isAdmin bool, err error) {
	email, err = a.dir.PrimaryEmail(ctx, userID)
	if errors.Is(err, ErrUserNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return email, a.adminEmail != "" && email == a.adminEmail, nil
}

// IsAdmin 是否管理员
func (a *AdminChecker) IsAdmin(ctx context.Context, userID string) (bool, error) {
	if a.adminEmail == "" {
		return false, nil
	}
	_, ok, err := a.Resolve(ctx, userID)
	return ok, err
}

type identityKey struct{}

// WithIdentity 把身份写入请求上下文
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// FromContext 读取请求上下文中的身份
func FromContext(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(*Identity)
	return id, ok && id != nil
}
