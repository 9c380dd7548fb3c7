// Package cont carries the per-request auth context through a request's
// context.Context.
package cont

import (
	"context"

	"telewatch/entity"
)

type ctxKey string

const authDataKey ctxKey = "authData"

// AuthContext is what every tenant-scoped handler resolves the bearer
// token into: {user, tenant_id, role}.
type AuthContext struct {
	User     entity.User
	TenantID string
	Role     entity.Role
}

func PutAuth(c context.Context, auth AuthContext) context.Context {
	return context.WithValue(c, authDataKey, auth)
}

func GetAuth(c context.Context) (AuthContext, bool) {
	auth, ok := c.Value(authDataKey).(AuthContext)
	return auth, ok
}
