package config

import (
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	c := Default()
	require.NoError(t, c.Validate())
	assert.Equal(t, []string{".cpp2", ".h2"}, c.Extensions)
	assert.Equal(t, zerolog.InfoLevel, c.Level())
}

func TestValidate(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{name: "existing root", modify: func(c *Config) { c.Root = dir }},
		{name: "missing root", modify: func(c *Config) { c.Root = filepath.Join(dir, "nope") }, wantErr: "root:"},
		{name: "no extensions", modify: func(c *Config) { c.Extensions = nil }, wantErr: "at least one extension"},
		{name: "extension without dot", modify: func(c *Config) { c.Extensions = []string{"cpp2"} }, wantErr: `extension "cpp2"`},
		{name: "bad exclude", modify: func(c *Config) { c.Exclude = []string{"[a-"} }, wantErr: "invalid exclude pattern"},
		{name: "good exclude", modify: func(c *Config) { c.Exclude = []string{"**/generated/**"} }},
		{name: "bad level", modify: func(c *Config) { c.LogLevel = "loud" }, wantErr: "log level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.modify(&c)
			err := c.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestNewIndexer(t *testing.T) {
	root := t.TempDir()
	idx, err := Default().WithRoot(root).NewIndexer(zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, root, idx.Root())
	assert.Equal(t, filepath.Join(root, ".cache", "cpp2ls", "index.json"), idx.CachePath())
}
