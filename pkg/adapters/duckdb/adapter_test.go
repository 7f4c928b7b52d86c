package duckdb

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Hacker0x01/h1ql/pkg/adapter"
)

func TestRegistered(t *testing.T) {
	assert.True(t, adapter.IsRegistered("duckdb"))
}

func TestNewUsesDiscardLoggerByDefault(t *testing.T) {
	a := New(nil)
	assert.NotNil(t, a.Logger)
	assert.False(t, a.IsConnected())
}
