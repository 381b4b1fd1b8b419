// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package secrets

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/equity-research/pkg/types"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name  string
		files map[string]string
		dirs  []string
		want  map[string]string
	}{
		{
			name: "trims key files",
			files: map[string]string{
				TavilyKey:        "  tvly_abc123  \n",
				SerperKey:        "sp_xyz789",
				"openai-api-key": "sk-proj\n",
			},
			want: map[string]string{TavilyKey: "tvly_abc123", SerperKey: "sp_xyz789", "openai-api-key": "sk-proj"},
		},
		{
			name:  "blank files are dropped",
			files: map[string]string{"anthropic-api-key": "ak", "empty": "", "spaces": " \n\t "},
			want:  map[string]string{"anthropic-api-key": "ak"},
		},
		{
			name:  "dotfiles and directories are ignored",
			files: map[string]string{".gitkeep": "", ".hidden": "x", SerperKey: "sp"},
			dirs:  []string{"nested"},
			want:  map[string]string{SerperKey: "sp"},
		},
		{
			name: "empty directory",
			want: map[string]string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			for name, content := range tt.files {
				writeFile(t, dir, name, content)
			}
			for _, d := range tt.dirs {
				require.NoError(t, os.Mkdir(filepath.Join(dir, d), 0o755))
			}

			got, err := Load(dir, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoadMissingDirectory(t *testing.T) {
	got, err := Load(filepath.Join(t.TempDir(), "absent"), nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestLoadNotADirectory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "plain", "x")

	_, err := Load(filepath.Join(dir, "plain"), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading secrets directory")
}

func TestLoadSkipsUnreadable(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root ignores file permissions")
	}
	dir := t.TempDir()
	writeFile(t, dir, TavilyKey, "tk")
	locked := filepath.Join(dir, SerperKey)
	require.NoError(t, os.WriteFile(locked, []byte("sp"), 0o000))
	t.Cleanup(func() { _ = os.Chmod(locked, 0o644) })

	got, err := Load(dir, nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{TavilyKey: "tk"}, got)
}

func TestApply(t *testing.T) {
	cfg := types.Config{
		LLM: types.LLMConfig{Providers: []types.ProviderConfig{
			{Name: "claude", Kind: types.ProviderAnthropic},
			{Name: "backup", Kind: types.ProviderOpenAI, APIKey: "from-config"},
		}},
	}
	Apply(&cfg, map[string]string{
		ProviderKey(types.ProviderAnthropic): "ak",
		ProviderKey(types.ProviderOpenAI):    "ok",
		TavilyKey:                            "tk",
	})

	assert.Equal(t, "ak", cfg.LLM.Providers[0].APIKey)
	assert.Equal(t, "from-config", cfg.LLM.Providers[1].APIKey, "configured keys win")
	assert.Equal(t, "tk", cfg.Search.TavilyAPIKey)
	assert.Empty(t, cfg.Search.SerperAPIKey)
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}
