package sl

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErr(t *testing.T) {
	attr := Err(errors.New("connection refused"))
	assert.Equal(t, "error", attr.Key)
	assert.Equal(t, "connection refused", attr.Value.String())
}

func TestSecretMasksValueKeepingFiveCharPrefix(t *testing.T) {
	attr := Secret("bot_token", "123456:ABCDEF")
	assert.Equal(t, "bot_token", attr.Key)
	assert.Equal(t, "12345***", attr.Value.String())
}

func TestSecretFullyMasksShortValue(t *testing.T) {
	attr := Secret("pin", "1234")
	assert.Equal(t, "***", attr.Value.String())
}

func TestSecretReturnsPlaceholderForEmptyValue(t *testing.T) {
	attr := Secret("pin", "")
	assert.Equal(t, "?", attr.Value.String())
}

func TestModule(t *testing.T) {
	attr := Module("core")
	assert.Equal(t, "mod", attr.Key)
	assert.Equal(t, "core", attr.Value.String())
}

func TestTenant(t *testing.T) {
	attr := Tenant("tenant-1")
	assert.Equal(t, "tenant_id", attr.Key)
	assert.Equal(t, "tenant-1", attr.Value.String())
}
