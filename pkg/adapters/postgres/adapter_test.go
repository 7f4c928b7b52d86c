package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Hacker0x01/h1ql/pkg/adapter"
)

func TestBuildDSN(t *testing.T) {
	tests := []struct {
		name     string
		config   adapter.Config
		expected string
	}{
		{
			name: "basic connection",
			config: adapter.Config{
				Host:     "localhost",
				Port:     5432,
				Database: "testdb",
				Username: "user",
				Password: "pass",
			},
			expected: "host=localhost port=5432 dbname=testdb sslmode=disable user=user password=pass",
		},
		{
			name: "custom sslmode",
			config: adapter.Config{
				Host:     "prod.example.com",
				Port:     5432,
				Database: "proddb",
				Username: "admin",
				Options:  map[string]string{"sslmode": "require"},
			},
			expected: "host=prod.example.com port=5432 dbname=proddb sslmode=require user=admin",
		},
		{
			name:     "defaults",
			config:   adapter.Config{Database: "h1ql"},
			expected: "host=localhost port=5432 dbname=h1ql sslmode=disable",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, buildDSN(tt.config))
		})
	}
}

func TestRegistered(t *testing.T) {
	assert.True(t, adapter.IsRegistered("postgres"))
}
