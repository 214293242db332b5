package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pders01/linkboard/internal/api/apitest"
)

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func stubPassword(t *testing.T, password string) {
	t.Helper()
	orig := readPassword
	readPassword = func(int) ([]byte, error) { return []byte(password), nil }
	t.Cleanup(func() { readPassword = orig })
}

// writeConfig points a config file at server with a throwaway credential store.
func writeConfig(t *testing.T, server *apitest.Server) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)

	path := filepath.Join(dir, "config.toml")
	content := fmt.Sprintf(`
[api]
base_url = %q

[credentials]
path = %q

[import]
allow_private_hosts = true

[open]
command = "true"

[log]
level = "off"
`, server.URL, filepath.Join(dir, "credentials.db"))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "", "version")
	require.NoError(t, err)

	// Version is "dev" by default in tests
	if !strings.Contains(out, "linkboard dev") {
		t.Errorf("Expected version output to contain 'linkboard dev', got: %s", out)
	}
	if !strings.Contains(out, "github.com/pders01/linkboard") {
		t.Errorf("Expected version output to contain 'github.com/pders01/linkboard', got: %s", out)
	}
}

func TestGenerateConfigCommand(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)
	configFile := filepath.Join(tmpDir, ".config", "linkboard", "config.toml")

	out, err := execute(t, "", "generate-config")
	require.NoError(t, err)

	if _, statErr := os.Stat(configFile); os.IsNotExist(statErr) {
		t.Errorf("Config file was not created at %s", configFile)
	}
	if !strings.Contains(out, "Generated default configuration at:") {
		t.Errorf("Expected output to contain 'Generated default configuration at:', got: %s", out)
	}

	custom := filepath.Join(tmpDir, "custom.toml")
	_, err = execute(t, "", "--config", custom, "generate-config")
	require.NoError(t, err)
	assert.FileExists(t, custom)
}

func TestStoriesAndBanner(t *testing.T) {
	server := apitest.NewServer(t)
	server.SeedStory("Generics in Golang", "Ian", "https://go.dev/blog/generics", "bob")
	cfgPath := writeConfig(t, server)

	out, err := execute(t, "", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Stories worth sharing")
	assert.Contains(t, out, "Generics in Golang")
	assert.Contains(t, out, "(go.dev)")

	out, err = execute(t, "", "--config", cfgPath, "--quiet")
	require.NoError(t, err)
	assert.NotContains(t, out, "Stories worth sharing")
	assert.Contains(t, out, "Generics in Golang")

	_, err = execute(t, "", "--config", cfgPath, "stories", "--mine", "--favorites")
	assert.Error(t, err)
}

func TestOpenCommand(t *testing.T) {
	server := apitest.NewServer(t)
	rec := server.SeedStory("Generics in Golang", "Ian", "https://go.dev/blog/generics", "bob")
	cfgPath := writeConfig(t, server)

	out, err := execute(t, "", "--config", cfgPath, "open", rec.StoryID)
	require.NoError(t, err)
	assert.Contains(t, out, "Opened https://go.dev/blog/generics")

	_, err = execute(t, "", "--config", cfgPath, "open", "story-missing")
	assert.Error(t, err)
}

func TestCommandsRequireLogin(t *testing.T) {
	server := apitest.NewServer(t)
	cfgPath := writeConfig(t, server)

	out, err := execute(t, "", "--config", cfgPath, "whoami")
	require.NoError(t, err)
	assert.Contains(t, out, "Not logged in")

	_, err = execute(t, "", "--config", cfgPath, "submit", "--title", "T", "--url", "https://a.org")
	assert.ErrorIs(t, err, errLoginRequired)

	_, err = execute(t, "", "--config", cfgPath, "stories", "--mine")
	assert.ErrorIs(t, err, errLoginRequired)

	_, err = execute(t, "", "--config", cfgPath, "import", "https://feeds.example.org/rss")
	assert.ErrorIs(t, err, errLoginRequired)
}

func TestLoginSubmitFavoriteDeleteFlow(t *testing.T) {
	server := apitest.NewServer(t)
	server.SeedUser("alice", "secret", "Alice")
	server.SeedStory("Rust ownership", "Ferris", "https://rust-lang.org/learn", "bob")
	cfgPath := writeConfig(t, server)
	stubPassword(t, "secret")

	// Username read from stdin when the flag is missing.
	out, err := execute(t, "alice\n", "--config", cfgPath, "login")
	require.NoError(t, err)
	assert.Contains(t, out, "Logged in as alice")

	out, err = execute(t, "", "--config", cfgPath, "whoami")
	require.NoError(t, err)
	assert.Contains(t, out, "alice (Alice)")
	assert.Contains(t, out, "0 stories • 0 favorites")

	out, err = execute(t, "", "--config", cfgPath, "submit", "--title", "Zig comptime", "--url", "ziglang.org/learn")
	require.NoError(t, err)
	assert.Contains(t, out, "Submitted story-")
	assert.Contains(t, out, "by Alice")
	id := server.StoryIDs()[0]

	out, err = execute(t, "", "--config", cfgPath, "search", "comptime")
	require.NoError(t, err)
	assert.Contains(t, out, "1 result")
	assert.Contains(t, out, "Zig comptime")

	out, err = execute(t, "", "--config", cfgPath, "favorite", id)
	require.NoError(t, err)
	assert.Contains(t, out, "Favorited "+id)
	assert.Equal(t, []string{id}, server.FavoriteIDs("alice"))

	out, err = execute(t, "", "--config", cfgPath, "stories", "--favorites")
	require.NoError(t, err)
	assert.Contains(t, out, "Zig comptime")
	assert.NotContains(t, out, "Rust ownership")

	_, err = execute(t, "", "--config", cfgPath, "unfavorite", id)
	require.NoError(t, err)
	assert.Empty(t, server.FavoriteIDs("alice"))

	_, err = execute(t, "", "--config", cfgPath, "-q", "delete", id)
	require.NoError(t, err)
	assert.NotContains(t, server.StoryIDs(), id)

	out, err = execute(t, "", "--config", cfgPath, "stories", "--mine")
	require.NoError(t, err)
	assert.Contains(t, out, "No stories yet")

	out, err = execute(t, "", "--config", cfgPath, "logout")
	require.NoError(t, err)
	assert.Contains(t, out, "Logged out")

	out, err = execute(t, "", "--config", cfgPath, "whoami")
	require.NoError(t, err)
	assert.Contains(t, out, "Not logged in")
}

func TestToggleCommand(t *testing.T) {
	server := apitest.NewServer(t)
	server.SeedUser("alice", "secret", "Alice")
	rec := server.SeedStory("Rust ownership", "Ferris", "https://rust-lang.org/learn", "bob")
	cfgPath := writeConfig(t, server)
	stubPassword(t, "secret")

	_, err := execute(t, "", "--config", cfgPath, "toggle", rec.StoryID)
	assert.ErrorIs(t, err, errLoginRequired)

	_, err = execute(t, "", "--config", cfgPath, "login", "--username", "alice")
	require.NoError(t, err)

	out, err := execute(t, "", "--config", cfgPath, "toggle", rec.StoryID)
	require.NoError(t, err)
	assert.Contains(t, out, "Favorited "+rec.StoryID)
	assert.Equal(t, []string{rec.StoryID}, server.FavoriteIDs("alice"))

	out, err = execute(t, "", "--config", cfgPath, "toggle", rec.StoryID)
	require.NoError(t, err)
	assert.Contains(t, out, "Unfavorited "+rec.StoryID)
	assert.Empty(t, server.FavoriteIDs("alice"))
}

func TestSignupCommand(t *testing.T) {
	server := apitest.NewServer(t)
	cfgPath := writeConfig(t, server)
	stubPassword(t, "hunter2")

	out, err := execute(t, "Carol\n", "--config", cfgPath, "signup", "--username", "carol")
	require.NoError(t, err)
	assert.Contains(t, out, "Welcome, Carol! You are logged in as carol")

	_, err = execute(t, "", "--config", cfgPath, "signup", "--username", "carol", "--name", "Carol")
	assert.Error(t, err)
}
