package auth

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"telewatch/entity"
	"telewatch/internal/apperr"
	"telewatch/lib/sl"
)

// Database is the subset of the store Auth depends on.
type Database interface {
	GetUserByTelegramID(ctx context.Context, telegramID int64) (*entity.User, error)
	CreateUser(ctx context.Context, u *entity.User) (*entity.User, error)
	CreateOrganization(ctx context.Context, org *entity.Organization) (*entity.Organization, error)
	UpdateUserLogin(ctx context.Context, id, photoURL string) error
}

// Claims is the bearer token payload: {user_id, tenant_id, role, exp}.
type Claims struct {
	UserID   string      `json:"user_id"`
	TenantID string      `json:"tenant_id"`
	Role     entity.Role `json:"role"`
	jwt.RegisteredClaims
}

// TelegramLogin is the payload produced by the Telegram login widget.
type TelegramLogin struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name,omitempty"`
	Username  string `json:"username,omitempty"`
	PhotoURL  string `json:"photo_url,omitempty"`
	AuthDate  int64  `json:"auth_date"`
	Hash      string `json:"hash"`
}

type Auth struct {
	db            Database
	botTokenHash  [32]byte
	signingKey    []byte
	tokenLifetime time.Duration
	log           *slog.Logger
}

func New(db Database, botToken, signingKey string, tokenLifetime time.Duration, log *slog.Logger) *Auth {
	return &Auth{
		db:            db,
		botTokenHash:  sha256.Sum256([]byte(botToken)),
		signingKey:    []byte(signingKey),
		tokenLifetime: tokenLifetime,
		log:           log.With(sl.Module("auth")),
	}
}

// VerifyTelegramLogin recomputes the HMAC-SHA256 of the sorted data-check
// string and rejects stale or tampered payloads.
func (a *Auth) VerifyTelegramLogin(login TelegramLogin) error {
	fields := map[string]string{
		"id":         strconv.FormatInt(login.ID, 10),
		"first_name": login.FirstName,
		"auth_date":  strconv.FormatInt(login.AuthDate, 10),
	}
	if login.LastName != "" {
		fields["last_name"] = login.LastName
	}
	if login.Username != "" {
		fields["username"] = login.Username
	}
	if login.PhotoURL != "" {
		fields["photo_url"] = login.PhotoURL
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for i, k := range keys {
		if i > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(k)
		sb.WriteByte('=')
		sb.WriteString(fields[k])
	}

	mac := hmac.New(sha256.New, a.botTokenHash[:])
	mac.Write([]byte(sb.String()))
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expected), []byte(login.Hash)) {
		return apperr.New(apperr.Unauthenticated, "telegram login hash mismatch")
	}

	age := time.Since(time.Unix(login.AuthDate, 0))
	if age > 24*time.Hour {
		return apperr.New(apperr.Unauthenticated, "telegram login payload expired")
	}
	return nil
}

// Register atomically creates an Organization and its first owner User,
// keyed by the verified telegram_id. Idempotent: a second registration
// with the same telegram_id fails with Conflict.
func (a *Auth) Register(ctx context.Context, login TelegramLogin, orgName string) (*entity.User, *entity.Organization, error) {
	if err := a.VerifyTelegramLogin(login); err != nil {
		return nil, nil, err
	}

	if existing, err := a.db.GetUserByTelegramID(ctx, login.ID); err == nil && existing != nil {
		return nil, nil, apperr.New(apperr.Conflict, "telegram_id already registered")
	} else if err != nil && !apperr.Is(err, apperr.NotFound) {
		return nil, nil, err
	}

	org, err := a.db.CreateOrganization(ctx, &entity.Organization{
		Name: orgName,
		Plan: entity.PlanFree,
	})
	if err != nil {
		return nil, nil, err
	}

	user, err := a.db.CreateUser(ctx, &entity.User{
		TenantID:   org.ID,
		TelegramID: login.ID,
		Username:   login.Username,
		FirstName:  login.FirstName,
		LastName:   login.LastName,
		PhotoURL:   login.PhotoURL,
		Role:       entity.RoleOwner,
	})
	if err != nil {
		return nil, nil, err
	}
	a.log.Info("registered tenant", sl.Tenant(org.ID), slog.Int64("telegram_id", login.ID))
	return user, org, nil
}

// Login verifies the telegram payload, resolves the existing User, and
// issues a bearer token.
func (a *Auth) Login(ctx context.Context, login TelegramLogin) (string, *entity.User, error) {
	if err := a.VerifyTelegramLogin(login); err != nil {
		return "", nil, err
	}

	user, err := a.db.GetUserByTelegramID(ctx, login.ID)
	if err != nil {
		return "", nil, apperr.Wrap(apperr.Unauthenticated, "unknown telegram_id", err)
	}
	if !user.IsActive {
		return "", nil, apperr.New(apperr.Forbidden, "user is deactivated")
	}

	if err := a.db.UpdateUserLogin(ctx, user.ID, login.PhotoURL); err != nil {
		return "", nil, err
	}

	token, err := a.IssueToken(user)
	if err != nil {
		return "", nil, err
	}
	return token, user, nil
}

func (a *Auth) IssueToken(user *entity.User) (string, error) {
	now := time.Now().UTC()
	claims := &Claims{
		UserID:   user.ID,
		TenantID: user.TenantID,
		Role:     user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(a.tokenLifetime)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(a.signingKey)
	if err != nil {
		return "", apperr.Wrap(apperr.Internal, "sign token", err)
	}
	return signed, nil
}

func (a *Auth) VerifyToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return a.signingKey, nil
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.Unauthenticated, "invalid token", err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, apperr.New(apperr.Unauthenticated, "invalid token")
	}
	return claims, nil
}
