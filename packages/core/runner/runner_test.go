package runner

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/abdul-hamid-achik/hostspec/packages/core/check"
	"github.com/abdul-hamid-achik/hostspec/packages/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestNewRunner(t *testing.T) {
	t.Run("with nil config", func(t *testing.T) {
		r := NewRunner(nil)
		assert.NotNil(t, r)
		assert.NotNil(t, r.exec)
		assert.NotNil(t, r.log)
	})

	t.Run("with custom config", func(t *testing.T) {
		r := NewRunner(&Config{Timeout: 5 * time.Second, Shell: "bash", Bail: true})
		assert.Equal(t, 5*time.Second, r.exec.Timeout())
		assert.True(t, r.config.Bail)
	})
}

func TestRunner_RunSuite_CommandDir(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "cli.ini"), "authenticator = standalone\n")

	s := &check.Suite{
		Name:     "dir",
		Controls: []*check.Control{check.Command("cat cli.ini", check.StdoutMatches("standalone"), check.ExitStatus(0))},
	}

	result, err := NewRunner(&Config{Dir: dir}).RunSuite(context.Background(), s)
	require.NoError(t, err)
	assert.True(t, result.OK())
	assert.Equal(t, 2, result.Passed)
}

func TestRunner_RunSuite_CollectsAll(t *testing.T) {
	dir := t.TempDir()
	ini := filepath.Join(dir, "cli.ini")
	writeFile(t, ini, "server = https://acme-staging.api.letsencrypt.org/directory\nauthenticator = standalone\n")

	s := &check.Suite{
		Name: "collect",
		Controls: []*check.Control{
			check.File(filepath.Join(dir, "missing.ini"), check.IsFile(), check.Readable()),
			check.File(ini,
				check.IsFile(),
				check.ContentMatches("authenticator = standalone"),
				check.ContentMatches("File managed by Salt"),
			),
			check.Command("printf '* dns-powerdns\\n'", check.StdoutMatches("dns-powerdns")),
		},
	}

	result, err := NewRunner(nil).RunSuite(context.Background(), s)
	require.NoError(t, err)

	assert.Equal(t, "collect", result.Suite)
	require.Len(t, result.Results, 3)
	assert.Equal(t, 3, result.Passed)
	assert.Equal(t, 3, result.Failed)
	assert.Equal(t, 0, result.Skipped)
	assert.Equal(t, 6, result.Total())
	assert.False(t, result.OK())

	missing := result.Results[0]
	assert.False(t, missing.Passed)
	require.Error(t, missing.Error)
	for _, res := range missing.Checks {
		assert.Equal(t, check.ReasonNotFound, res.Reason)
	}

	content := result.Results[1]
	assert.False(t, content.Passed)
	assert.True(t, content.Checks[1].Passed)
	assert.Equal(t, check.ReasonMismatch, content.Checks[2].Reason)
	assert.Contains(t, content.Checks[2].Diff, "+File managed by Salt")

	assert.True(t, result.Results[2].Passed)
	assert.Equal(t, int64(3), result.Timings.Count)
	assert.GreaterOrEqual(t, result.Timings.Max, result.Timings.P50)
}

func TestRunner_RunSuite_Variables(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "marker"), "version=2\n")
	envFile := filepath.Join(dir, ".env")
	writeFile(t, envFile, "WANT=version=2\n")

	ctrl := check.File("{{base}}/marker", check.IsFile(), check.ContentContains("{{WANT}}"))
	s := &check.Suite{
		Name:      "vars",
		Variables: map[string]string{"base": "/nonexistent"},
		Controls:  []*check.Control{ctrl},
	}

	r := NewRunner(&Config{
		EnvFile:   envFile,
		Variables: map[string]string{"base": dir},
	})
	result, err := r.RunSuite(context.Background(), s)
	require.NoError(t, err)

	assert.Equal(t, 2, result.Passed)
	assert.Equal(t, filepath.Join(dir, "marker"), result.Results[0].Subject)
	assert.Equal(t, "{{base}}/marker", ctrl.Subject, "suite must not be modified")
}

func TestRunner_RunSuite_MissingEnvFile(t *testing.T) {
	r := NewRunner(&Config{EnvFile: filepath.Join(t.TempDir(), "missing.env")})
	_, err := r.RunSuite(context.Background(), &check.Suite{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loading env file")
}

func TestRunner_RunSuite_UnresolvedVariableWarns(t *testing.T) {
	var buf bytes.Buffer
	r := NewRunner(&Config{Logger: logger.New(logger.Options{Writer: &buf})})

	s := &check.Suite{Name: "warn", Controls: []*check.Control{
		check.File("{{nowhere}}/file", check.Exists()),
	}}
	_, err := r.RunSuite(context.Background(), s)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "nowhere")
	assert.Contains(t, buf.String(), "level=warn")
}

func TestRunner_RunSuite_Skips(t *testing.T) {
	dir := t.TempDir()

	skippedCtrl := check.File(dir, check.IsDirectory())
	skippedCtrl.Skip = "not on this host"

	guarded := check.Command("echo guarded", check.StdoutMatches("guarded"))
	guarded.OnlyIf = "exit 3"

	allowed := check.Command("echo allowed", check.StdoutMatches("allowed"))
	allowed.OnlyIf = "true"

	s := &check.Suite{Controls: []*check.Control{skippedCtrl, guarded, allowed}}
	result, err := NewRunner(nil).RunSuite(context.Background(), s)
	require.NoError(t, err)

	require.Len(t, result.Results, 3)
	assert.True(t, result.Results[0].Skipped)
	assert.Equal(t, "not on this host", result.Results[0].SkipReason)
	assert.True(t, result.Results[1].Skipped)
	assert.Contains(t, result.Results[1].SkipReason, "exited 3")
	assert.True(t, result.Results[2].Passed)

	assert.Equal(t, 1, result.Passed)
	assert.Equal(t, 2, result.Skipped)
	assert.True(t, result.OK())
	assert.Equal(t, int64(1), result.Timings.Count)
}

func TestRunner_RunSuite_Filters(t *testing.T) {
	dir := t.TempDir()

	tagged := check.File(dir, check.IsDirectory())
	tagged.Tags = []string{"pip"}
	tagged.Title = "checkout"

	other := check.File(dir, check.Exists())
	other.Tags = []string{"salt"}
	other.Title = "config"

	s := &check.Suite{Controls: []*check.Control{tagged, other}}

	t.Run("tags", func(t *testing.T) {
		result, err := NewRunner(&Config{TagsFilter: []string{"pip"}}).RunSuite(context.Background(), s)
		require.NoError(t, err)
		assert.False(t, result.Results[0].Skipped)
		assert.True(t, result.Results[1].Skipped)
		assert.Equal(t, SkipFiltered, result.Results[1].SkipReason)
	})

	t.Run("name", func(t *testing.T) {
		result, err := NewRunner(&Config{NameFilter: "conf*"}).RunSuite(context.Background(), s)
		require.NoError(t, err)
		assert.True(t, result.Results[0].Skipped)
		assert.False(t, result.Results[1].Skipped)
	})
}

func TestRunner_RunSuite_Bail(t *testing.T) {
	dir := t.TempDir()
	s := &check.Suite{Controls: []*check.Control{
		check.File(filepath.Join(dir, "missing"), check.Exists()),
		check.File(dir, check.IsDirectory(), check.Exists()),
	}}

	result, err := NewRunner(&Config{Bail: true}).RunSuite(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, 2, result.Skipped)
	assert.Equal(t, SkipBail, result.Results[1].SkipReason)

	result, err = NewRunner(nil).RunSuite(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, 2, result.Passed)
}

func TestRunner_RunSuite_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := &check.Suite{Controls: []*check.Control{check.Command("echo hi", check.StdoutMatches("hi"))}}
	result, err := NewRunner(nil).RunSuite(ctx, s)
	require.NoError(t, err)
	assert.True(t, result.Results[0].Skipped)
	assert.Equal(t, "interrupted", result.Results[0].SkipReason)
}

func TestRunner_RunFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "local.hostspec.yaml")
	writeFile(t, path, `name: local
vars:
  dir: `+dir+`
controls:
  - file: "{{dir}}"
    checks:
      - type: directory
  - command: echo ok
    checks:
      - stdout: ok
      - exit_status: 0
`)

	result, err := NewRunner(nil).RunFile(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "local", result.Suite)
	assert.Equal(t, path, result.File)
	assert.Equal(t, 3, result.Passed)
	assert.Equal(t, 0, result.Failed)
}

func TestRunner_RunFile_ParseError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.hostspec.yaml")
	writeFile(t, path, "controls:\n  - checks: []\n")

	_, err := NewRunner(nil).RunFile(context.Background(), path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing file")
}

func TestControlResult_Name(t *testing.T) {
	assert.Equal(t, "title", (&ControlResult{Title: "title"}).Name())
	assert.Equal(t, "file /etc", (&ControlResult{Subject: "/etc", Kind: check.SubjectFile}).Name())
}

func TestMatchesPattern(t *testing.T) {
	tests := []struct {
		name, pattern string
		want          bool
	}{
		{"certbot plugins", "", true},
		{"certbot plugins", "certbot plugins", true},
		{"certbot plugins", "certbot*", true},
		{"certbot plugins", "*plugins", true},
		{"certbot plugins", "*bot*", true},
		{"certbot plugins", "*", true},
		{"certbot plugins", "pip*", false},
		{"", "pip", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, matchesPattern(tt.name, tt.pattern), "%q/%q", tt.name, tt.pattern)
	}
}

func TestHasAnyTag(t *testing.T) {
	assert.True(t, hasAnyTag([]string{"pip", "salt"}, []string{"salt"}))
	assert.False(t, hasAnyTag([]string{"pip"}, []string{"salt"}))
	assert.False(t, hasAnyTag(nil, []string{"salt"}))
}
