package auth

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"strings"
	"time"

	"auralis/config"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidToken token 无法通过校验
	ErrInvalidToken = errors.New("invalid token")
	// ErrNoVerificationKey 未配置任何校验密钥
	ErrNoVerificationKey = errors.New("no token verification key configured")
)

const defaultLeeway = 5 * time.Second

// Claims 外部认证服务签发的 token，sub 为用户 id
type Claims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// Identity 请求方身份
type Identity struct {
	UserID string
	Email  string // 仅作展示，不参与管理员判定
}

// Verifier 校验 bearer token
type Verifier struct {
	key     interface{}
	methods []string
	leeway  time.Duration
}

// NewHMACVerifier HS256 共享密钥
func NewHMACVerifier(secret []byte) *Verifier {
	return &Verifier{key: secret, methods: []string{jwt.SigningMethodHS256.Alg()}, leeway: defaultLeeway}
}

// NewRSAVerifier RS256 公钥
func NewRSAVerifier(pub *rsa.PublicKey) *Verifier {
	return &Verifier{key: pub, methods: []string{jwt.SigningMethodRS256.Alg()}, leeway: defaultLeeway}
}

// NewVerifier 优先使用 RS256 公钥，否则使用 HS256 密钥
func NewVerifier(cfg *config.Config) (*Verifier, error) {
	if pem := strings.TrimSpace(cfg.ClerkJWTKey); pem != "" {
		pub, err := jwt.ParseRSAPublicKeyFromPEM([]byte(pem))
		if err != nil {
			return nil, fmt.Errorf("parse CLERK_JWT_KEY: %w", err)
		}
		return NewRSAVerifier(pub), nil
	}
	if cfg.JWTSecret != "" {
		return NewHMACVerifier([]byte(cfg.JWTSecret)), nil
	}
	return nil, ErrNoVerificationKey
}

// ParseToken 校验签名和有效期，返回身份
func (v *Verifier) ParseToken(token string) (*Identity, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return v.key, nil
	}, jwt.WithValidMethods(v.methods), jwt.WithLeeway(v.leeway))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return &Identity{UserID: claims.Subject, Email: claims.Email}, nil
}

// NewToken 用 HS256 签发 token，供本地调试
func NewToken(secret []byte, userID, email string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// BearerToken 从 Authorization 头取出 token
func BearerToken(header string) (string, bool) {
	parts := strings.SplitN(strings.TrimSpace(header), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}
