package env

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDotEnv(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		expected map[string]string
	}{
		{
			name:     "simple key-value",
			content:  "PREFIX=/opt/letsencrypt",
			expected: map[string]string{"PREFIX": "/opt/letsencrypt"},
		},
		{
			name:     "export prefix",
			content:  "export CERTBOT=/opt/letsencrypt/bin/certbot",
			expected: map[string]string{"CERTBOT": "/opt/letsencrypt/bin/certbot"},
		},
		{
			name:     "quoted values",
			content:  "A=\"with spaces\"\nB='single'",
			expected: map[string]string{"A": "with spaces", "B": "single"},
		},
		{
			name:     "comments and blank lines",
			content:  "# managed by Salt\n\nSERVER=https://acme-staging.api.letsencrypt.org/directory\n",
			expected: map[string]string{"SERVER": "https://acme-staging.api.letsencrypt.org/directory"},
		},
		{
			name:     "value containing equals",
			content:  "ARGS=--config=/etc/letsencrypt/cli.ini",
			expected: map[string]string{"ARGS": "--config=/etc/letsencrypt/cli.ini"},
		},
		{
			name:     "line without equals ignored",
			content:  "garbage\nK=v",
			expected: map[string]string{"K": "v"},
		},
		{
			name:     "empty file",
			content:  "",
			expected: map[string]string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), ".env")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0644))

			result, err := LoadDotEnv(path)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestLoadDotEnv_EmptyKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("=value\n"), 0644))

	_, err := LoadDotEnv(path)
	assert.ErrorContains(t, err, ":1: empty key")
}

func TestLoadDotEnv_FileNotFound(t *testing.T) {
	_, err := LoadDotEnv("/nonexistent/path/.env")
	assert.Error(t, err)
}
