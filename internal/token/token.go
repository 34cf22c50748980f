// Package token issues and validates the access/refresh JWT pair.
//
// Refresh tokens are tracked in redis by their jti: a refresh token is only usable while
// its key exists, so rotation and logout are a single key deletion.
package token

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sysu-ecnc-dev/talentum/backend/internal/config"
	"github.com/sysu-ecnc-dev/talentum/backend/internal/domain"
)

type Kind string

const (
	KindAccess  Kind = "access"
	KindRefresh Kind = "refresh"
)

var (
	ErrInvalidToken = fmt.Errorf("%w: invalid or expired token", domain.ErrUnauthenticated)
	ErrRevoked      = fmt.Errorf("%w: token has been revoked", domain.ErrUnauthenticated)
	ErrInactiveUser = fmt.Errorf("%w: user account is disabled", domain.ErrUnauthenticated)
)

type Claims struct {
	Role domain.Role `json:"role"`
	Kind Kind        `json:"typ"`
	jwt.RegisteredClaims
}

func (c *Claims) UserID() (int64, error) {
	return strconv.ParseInt(c.Subject, 10, 64)
}

type Pair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// UserLookup loads the current state of a user when a refresh token is exchanged, so
// that role changes and deactivation take effect on the next rotation.
type UserLookup func(ctx context.Context, id int64) (*domain.User, error)

type Manager struct {
	secret           []byte
	issuer           string
	accessTTL        time.Duration
	refreshTTL       time.Duration
	operationTimeout time.Duration
	rdb              *redis.Client
	now              func() time.Time
}

func NewManager(cfg *config.Config, rdb *redis.Client) *Manager {
	return &Manager{
		secret:           []byte(cfg.JWT.Secret),
		issuer:           cfg.JWT.Issuer,
		accessTTL:        time.Duration(cfg.JWT.AccessExpiration) * time.Second,
		refreshTTL:       time.Duration(cfg.JWT.RefreshExpiration) * time.Second,
		operationTimeout: time.Duration(cfg.Redis.OperationTimeout) * time.Second,
		rdb:              rdb,
		now:              time.Now,
	}
}

func refreshKey(jti string) string {
	return fmt.Sprintf("refresh_token_%s", jti)
}

func (m *Manager) sign(user *domain.User, kind Kind, ttl time.Duration) (string, *Claims, error) {
	now := m.now()
	claims := &Claims{
		Role: user.Role,
		Kind: kind,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   strconv.FormatInt(user.ID, 10),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ID:        uuid.NewString(),
		},
	}

	ss, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", nil, err
	}
	return ss, claims, nil
}

// Issue signs a new pair for user and registers the refresh token.
func (m *Manager) Issue(ctx context.Context, user *domain.User) (*Pair, error) {
	access, _, err := m.sign(user, KindAccess, m.accessTTL)
	if err != nil {
		return nil, err
	}
	refresh, refreshClaims, err := m.sign(user, KindRefresh, m.refreshTTL)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, m.operationTimeout)
	defer cancel()

	if err := m.rdb.Set(ctx, refreshKey(refreshClaims.ID), refreshClaims.Subject, m.refreshTTL).Err(); err != nil {
		return nil, err
	}

	return &Pair{Access: access, Refresh: refresh}, nil
}

func (m *Manager) parse(tokenString string, kind Kind) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(m.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return nil, ErrInvalidToken
	}
	if claims.Kind != kind || claims.ID == "" {
		return nil, ErrInvalidToken
	}
	if _, err := claims.UserID(); err != nil {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// ParseAccess validates an access token presented in the Authorization header.
func (m *Manager) ParseAccess(tokenString string) (*Claims, error) {
	return m.parse(tokenString, KindAccess)
}

// Rotate exchanges a refresh token for a new pair. The presented token is consumed
// atomically, so two concurrent rotations of the same token cannot both succeed.
func (m *Manager) Rotate(ctx context.Context, refresh string, lookup UserLookup) (*Pair, error) {
	claims, err := m.parse(refresh, KindRefresh)
	if err != nil {
		return nil, err
	}

	opCtx, cancel := context.WithTimeout(ctx, m.operationTimeout)
	defer cancel()

	if err := m.rdb.GetDel(opCtx, refreshKey(claims.ID)).Err(); err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrRevoked
		}
		return nil, err
	}

	userID, _ := claims.UserID()
	user, err := lookup(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrInactiveUser
	}

	return m.Issue(ctx, user)
}

// Revoke invalidates a refresh token. Revoking an unknown or already revoked token
// returns ErrRevoked; callers doing best-effort logout may ignore it.
func (m *Manager) Revoke(ctx context.Context, refresh string) error {
	claims, err := m.parse(refresh, KindRefresh)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, m.operationTimeout)
	defer cancel()

	n, err := m.rdb.Del(ctx, refreshKey(claims.ID)).Result()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrRevoked
	}
	return nil
}
