package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"moonjin/internal/apperr"
	"moonjin/internal/dto"
	"moonjin/internal/models"
)

const (
	KindAccess  = "access"
	KindRefresh = "refresh"
)

// Claims carry the public profile of the user the token was issued to.
type Claims struct {
	UserID   uint        `json:"id"`
	Email    string      `json:"email"`
	Nickname string      `json:"nickname"`
	Role     models.Role `json:"role"`
	Image    string      `json:"image"`
	Kind     string      `json:"kind"`
	jwt.RegisteredClaims
}

func (c *Claims) IsWriter() bool {
	return c.Role == models.RoleWriter
}

func (c *Claims) User() dto.User {
	return dto.User{ID: c.UserID, Email: c.Email, Nickname: c.Nickname, Role: int(c.Role), Image: c.Image}
}

type TokenPair struct {
	AccessToken      string    `json:"accessToken"`
	RefreshToken     string    `json:"refreshToken"`
	AccessExpiresAt  time.Time `json:"accessExpiresAt"`
	RefreshExpiresAt time.Time `json:"refreshExpiresAt"`
}

type TokenIssuer struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

func NewTokenIssuer(secret string, accessTTL, refreshTTL time.Duration) *TokenIssuer {
	return &TokenIssuer{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

// Issue signs an access and a refresh token for u.
func (t *TokenIssuer) Issue(u dto.User) (TokenPair, error) {
	now := t.now()
	access, accessExp, err := t.sign(u, KindAccess, now, t.accessTTL)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, refreshExp, err := t.sign(u, KindRefresh, now, t.refreshTTL)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
	}, nil
}

func (t *TokenIssuer) sign(u dto.User, kind string, now time.Time, ttl time.Duration) (string, time.Time, error) {
	exp := now.Add(ttl)
	claims := Claims{
		UserID:   u.ID,
		Email:    u.Email,
		Nickname: u.Nickname,
		Role:     models.Role(u.Role),
		Image:    u.Image,
		Kind:     kind,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   fmt.Sprint(u.ID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("auth: sign %s token: %w", kind, err)
	}
	return signed, exp, nil
}

// Parse verifies token and checks it is of the wanted kind.
func (t *TokenIssuer) Parse(token, kind string) (*Claims, error) {
	if token == "" {
		return nil, apperr.TokenNotFound
	}
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(tok *jwt.Token) (interface{}, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return t.secret, nil
	}, jwt.WithTimeFunc(t.now), jwt.WithExpirationRequired())
	if err != nil {
		return nil, apperr.InvalidToken
	}
	if claims.Kind != kind {
		return nil, apperr.InvalidToken
	}
	return claims, nil
}
