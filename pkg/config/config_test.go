package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "golda", c.Scope)
	assert.Equal(t, 384, c.EmbeddingDim)
	assert.NotEmpty(t, c.Store.Path)
	assert.False(t, c.Sinks.CRM.Ready())
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sources.yaml")
	body := `
store:
  path: /tmp/custom.db
scope: work
embedding_dim: 768
sinks:
  crm:
    url: https://odoo.example.com
    db: abra
    user: cobox
    status: ready
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/custom.db", c.Store.Path)
	assert.Equal(t, "work", c.Scope)
	assert.Equal(t, 768, c.EmbeddingDim)
	assert.True(t, c.Sinks.CRM.Ready())
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("ABRA_DB", "/tmp/env.db")
	t.Setenv("ABRA_SCOPE", "envscope")
	t.Setenv("ODOO_API_KEY", "secret")

	c, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "/tmp/env.db", c.Store.Path)
	assert.Equal(t, "envscope", c.Scope)
	assert.Equal(t, "secret", c.Sinks.CRM.APIKey)
}

func TestLoad_BadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sources.yaml")
	require.NoError(t, os.WriteFile(path, []byte("scope: [unclosed"), 0o644))
	_, err := Load(path)
	require.Error(t, err)
}
