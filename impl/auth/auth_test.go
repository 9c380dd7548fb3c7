package auth

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"telewatch/entity"
	"telewatch/internal/apperr"
)

const testBotToken = "123456:ABC-DEF-test-token"

func signLogin(botToken string, login TelegramLogin) TelegramLogin {
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
	botTokenHash := sha256.Sum256([]byte(botToken))
	mac := hmac.New(sha256.New, botTokenHash[:])
	mac.Write([]byte(sb.String()))
	login.Hash = hex.EncodeToString(mac.Sum(nil))
	return login
}

func freshLogin() TelegramLogin {
	return signLogin(testBotToken, TelegramLogin{
		ID:        42,
		FirstName: "Ada",
		Username:  "ada",
		AuthDate:  time.Now().Unix(),
	})
}

type fakeDB struct {
	usersByTelegramID map[int64]*entity.User
	createOrgErr      error
	createUserErr     error
}

func newFakeDB() *fakeDB {
	return &fakeDB{usersByTelegramID: map[int64]*entity.User{}}
}

func (f *fakeDB) GetUserByTelegramID(_ context.Context, telegramID int64) (*entity.User, error) {
	u, ok := f.usersByTelegramID[telegramID]
	if !ok {
		return nil, apperr.New(apperr.NotFound, "user not found")
	}
	return u, nil
}

func (f *fakeDB) CreateUser(_ context.Context, u *entity.User) (*entity.User, error) {
	if f.createUserErr != nil {
		return nil, f.createUserErr
	}
	u.ID = "user-1"
	f.usersByTelegramID[u.TelegramID] = u
	return u, nil
}

func (f *fakeDB) CreateOrganization(_ context.Context, org *entity.Organization) (*entity.Organization, error) {
	if f.createOrgErr != nil {
		return nil, f.createOrgErr
	}
	org.ID = "org-1"
	return org, nil
}

func (f *fakeDB) UpdateUserLogin(_ context.Context, id, photoURL string) error {
	for _, u := range f.usersByTelegramID {
		if u.ID == id {
			u.PhotoURL = photoURL
			return nil
		}
	}
	return apperr.New(apperr.NotFound, "user not found")
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestVerifyTelegramLoginAcceptsCorrectHash(t *testing.T) {
	a := New(newFakeDB(), testBotToken, "signing-key", time.Hour, testLogger())
	require.NoError(t, a.VerifyTelegramLogin(freshLogin()))
}

func TestVerifyTelegramLoginRejectsTamperedPayload(t *testing.T) {
	a := New(newFakeDB(), testBotToken, "signing-key", time.Hour, testLogger())
	login := freshLogin()
	login.FirstName = "Eve"
	err := a.VerifyTelegramLogin(login)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.Unauthenticated))
}

func TestVerifyTelegramLoginRejectsStalePayload(t *testing.T) {
	a := New(newFakeDB(), testBotToken, "signing-key", time.Hour, testLogger())
	login := signLogin(testBotToken, TelegramLogin{
		ID:        42,
		FirstName: "Ada",
		AuthDate:  time.Now().Add(-25 * time.Hour).Unix(),
	})
	err := a.VerifyTelegramLogin(login)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.Unauthenticated))
}

func TestVerifyTelegramLoginIsDeterministic(t *testing.T) {
	login := freshLogin()
	a := New(newFakeDB(), testBotToken, "signing-key", time.Hour, testLogger())
	require.NoError(t, a.VerifyTelegramLogin(login))
	require.NoError(t, a.VerifyTelegramLogin(login))
}

func TestRegisterCreatesOwnerAndOrganization(t *testing.T) {
	db := newFakeDB()
	a := New(db, testBotToken, "signing-key", time.Hour, testLogger())

	user, org, err := a.Register(context.Background(), freshLogin(), "Acme Inc")
	require.NoError(t, err)
	assert.Equal(t, entity.RoleOwner, user.Role)
	assert.Equal(t, org.ID, user.TenantID)
	assert.Equal(t, entity.PlanFree, org.Plan)
}

func TestRegisterRejectsDuplicateTelegramID(t *testing.T) {
	db := newFakeDB()
	a := New(db, testBotToken, "signing-key", time.Hour, testLogger())

	_, _, err := a.Register(context.Background(), freshLogin(), "Acme Inc")
	require.NoError(t, err)

	_, _, err = a.Register(context.Background(), freshLogin(), "Acme Inc Again")
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.Conflict))
}

func TestLoginRejectsDeactivatedUser(t *testing.T) {
	db := newFakeDB()
	db.usersByTelegramID[42] = &entity.User{ID: "user-1", TenantID: "org-1", TelegramID: 42, Role: entity.RoleOwner, IsActive: false}
	a := New(db, testBotToken, "signing-key", time.Hour, testLogger())

	_, _, err := a.Login(context.Background(), freshLogin())
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.Forbidden))
}

func TestLoginIssuesVerifiableToken(t *testing.T) {
	db := newFakeDB()
	db.usersByTelegramID[42] = &entity.User{ID: "user-1", TenantID: "org-1", TelegramID: 42, Role: entity.RoleAdmin, IsActive: true}
	a := New(db, testBotToken, "signing-key", time.Hour, testLogger())

	token, user, err := a.Login(context.Background(), freshLogin())
	require.NoError(t, err)
	assert.Equal(t, "user-1", user.ID)

	claims, err := a.VerifyToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "org-1", claims.TenantID)
	assert.Equal(t, entity.RoleAdmin, claims.Role)
}

func TestVerifyTokenRejectsGarbage(t *testing.T) {
	a := New(newFakeDB(), testBotToken, "signing-key", time.Hour, testLogger())
	_, err := a.VerifyToken("not-a-jwt")
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.Unauthenticated))
}

func TestVerifyTokenRejectsExpiredToken(t *testing.T) {
	a := New(newFakeDB(), testBotToken, "signing-key", -time.Hour, testLogger())
	user := &entity.User{ID: "user-1", TenantID: "org-1", Role: entity.RoleOwner}
	token, err := a.IssueToken(user)
	require.NoError(t, err)

	_, err = a.VerifyToken(token)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.Unauthenticated))
}
