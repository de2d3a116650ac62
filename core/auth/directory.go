package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/clerk/clerk-sdk-go/v2"
	"github.com/clerk/clerk-sdk-go/v2/user"
)

// ErrUserNotFound 认证服务中不存在该用户
var ErrUserNotFound = errors.New("user not found in directory")

// Directory 认证服务的用户目录
type Directory interface {
	PrimaryEmail(ctx context.Context, userID string) (string, error)
}

// ClerkDirectory 通过 Clerk Backend API 查询用户主邮箱
type ClerkDirectory struct {
	users *user.Client
}

// NewClerkDirectory baseURL 不含版本号，client 为空时使用 10 秒超时的默认客户端
func NewClerkDirectory(baseURL, secretKey string, client *http.Client) *ClerkDirectory {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &ClerkDirectory{
		users: user.NewClient(&clerk.ClientConfig{
			BackendConfig: clerk.BackendConfig{
				HTTPClient: client,
				URL:        clerk.String(strings.TrimRight(baseURL, "/")),
				Key:        clerk.String(secretKey),
			},
		}),
	}
}

// primaryEmail 找不到主邮箱时退回第一个
func primaryEmail(u *clerk.User) string {
	if u.PrimaryEmailAddressID != nil {
		for _, e := range u.EmailAddresses {
			if e != nil && e.ID == *u.PrimaryEmailAddressID {
				return e.EmailAddress
			}
		}
	}
	for _, e := range u.EmailAddresses {
		if e != nil {
			return e.EmailAddress
		}
	}
	return ""
}

func (d *ClerkDirectory) PrimaryEmail(ctx context.Context, userID string) (string, error) {
	u, err := d.users.Get(ctx, userID)
	if err != nil {
		var apiErr *clerk.APIErrorResponse
		if errors.As(err, &apiErr) && apiErr.HTTPStatusCode == http.StatusNotFound {
			return "", ErrUserNotFound
		}
		return "", fmt.Errorf("directory lookup for %s: %w", userID, err)
	}
	return primaryEmail(u), nil
}
