package suite

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/abdul-hamid-achik/hostspec/packages/core/check"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const letsencryptYAML = `name: letsencrypt
vars:
  prefix: /opt
controls:
  - title: letsencrypt checkout
    file: "{{prefix}}/letsencrypt"
    tags: [letsencrypt]
    checks:
      - type: directory
      - owner: root
      - group: root
  - file: /etc/letsencrypt/cli.ini
    checks:
      - readable: true
      - size: "> 25"
      - content: "authenticator = standalone"
      - content:
          line: "agree-tos = True"
      - ini:
          key: server
          value: https://acme-v02.api.letsencrypt.org/directory
  - command: /usr/local/bin/le-renew --dry-run
    only_if: test -x /usr/local/bin/le-renew
    checks:
      - stdout: dns-powerdns
      - stderr:
          contains: error
          not: true
      - exit_status: 0
`

func TestParse_Letsencrypt(t *testing.T) {
	s, err := Parse([]byte(letsencryptYAML), "letsencrypt.hostspec.yaml")
	require.NoError(t, err)

	assert.Equal(t, "letsencrypt", s.Name)
	assert.Equal(t, "/opt", s.Variables["prefix"])
	require.Len(t, s.Controls, 3)

	dir := s.Controls[0]
	assert.Equal(t, "letsencrypt checkout", dir.Title)
	assert.Equal(t, check.SubjectFile, dir.Kind)
	assert.Equal(t, "{{prefix}}/letsencrypt", dir.Subject)
	assert.Equal(t, []string{"letsencrypt"}, dir.Tags)
	assert.Equal(t, 5, dir.Line)
	require.Len(t, dir.Checks, 3)
	assert.Equal(t, check.IsDirectory(), dir.Checks[0].Predicate)
	assert.Equal(t, check.OwnedBy("root"), dir.Checks[1].Predicate)
	assert.Equal(t, check.GroupedInto("root"), dir.Checks[2].Predicate)
	assert.Equal(t, dir.Subject, dir.Checks[0].Subject)

	ini := s.Controls[1]
	require.Len(t, ini.Checks, 5)
	assert.Equal(t, check.Readable(), ini.Checks[0].Predicate)
	assert.Equal(t, check.SizeGreaterThan(25), ini.Checks[1].Predicate)
	assert.Equal(t, check.ContentMatches("authenticator = standalone"), ini.Checks[2].Predicate)
	assert.Equal(t, check.MatchLine, ini.Checks[3].Predicate.Match)
	assert.Equal(t, "agree-tos = True", ini.Checks[3].Predicate.Pattern)
	assert.Equal(t, check.IniValue("", "server", "https://acme-v02.api.letsencrypt.org/directory"), ini.Checks[4].Predicate)

	cmd := s.Controls[2]
	assert.Equal(t, check.SubjectCommand, cmd.Kind)
	assert.Equal(t, "test -x /usr/local/bin/le-renew", cmd.OnlyIf)
	require.Len(t, cmd.Checks, 3)
	assert.Equal(t, check.StdoutMatches("dns-powerdns"), cmd.Checks[0].Predicate)
	stderr := cmd.Checks[1].Predicate
	assert.Equal(t, check.StreamStderr, stderr.Stream)
	assert.Equal(t, check.MatchContains, stderr.Match)
	assert.True(t, stderr.Negate)
	assert.Equal(t, check.ExitStatus(0), cmd.Checks[2].Predicate)
}

func TestParse_NameDefaultsToFileName(t *testing.T) {
	s, err := Parse([]byte("controls:\n  - file: /etc\n    checks:\n      - exists: true\n"), "dir/base.hostspec.yaml")
	require.NoError(t, err)
	assert.Equal(t, "base", s.Name)
	assert.NotNil(t, s.Variables)
}

func TestParse_Negation(t *testing.T) {
	input := `controls:
  - file: /etc/shadow
    checks:
      - readable: false
      - exists: true
        not: true
      - content: "^root::"
        not: true
`
	s, err := Parse([]byte(input), "neg.hostspec.yaml")
	require.NoError(t, err)
	checks := s.Controls[0].Checks
	assert.Equal(t, check.Not(check.Readable()), checks[0].Predicate)
	assert.Equal(t, check.Not(check.Exists()), checks[1].Predicate)
	assert.Equal(t, check.Not(check.ContentMatches("^root::")), checks[2].Predicate)
}

func TestParse_ModeAndComparisons(t *testing.T) {
	input := `controls:
  - file: /etc/passwd
    checks:
      - mode: "0644"
      - mode: 600
      - size: 0
      - size: ">= 10"
  - command: "false"
    checks:
      - exit_status: "!= 0"
`
	s, err := Parse([]byte(input), "mode.hostspec.yaml")
	require.NoError(t, err)
	checks := s.Controls[0].Checks
	assert.Equal(t, check.Mode(0o644), checks[0].Predicate)
	assert.Equal(t, check.Mode(0o600), checks[1].Predicate)
	assert.Equal(t, check.Size(check.OpEquals, 0), checks[2].Predicate)
	assert.Equal(t, check.Size(check.OpGreaterOrEqual, 10), checks[3].Predicate)

	exit := s.Controls[1].Checks[0].Predicate
	assert.Equal(t, check.PredExitStatus, exit.Kind)
	assert.Equal(t, check.OpNotEquals, exit.Op)
	assert.Equal(t, int64(0), exit.Number)
}

func TestParse_SchemaErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"missing controls", "name: x\n"},
		{"no subject", "controls:\n  - checks:\n      - exists: true\n"},
		{"both subjects", "controls:\n  - file: /a\n    command: ls\n    checks:\n      - exists: true\n"},
		{"unknown predicate", "controls:\n  - file: /a\n    checks:\n      - colour: red\n"},
		{"empty checks", "controls:\n  - file: /a\n    checks: []\n"},
		{"bad type", "controls:\n  - file: /a\n    checks:\n      - type: socket\n"},
		{"non-string var", "vars:\n  port: 80\ncontrols: []\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.input), "bad.hostspec.yaml")
			require.Error(t, err)
			var verr *ValidationError
			assert.ErrorAs(t, err, &verr)
			assert.NotEmpty(t, verr.Problems)
		})
	}
}

func TestParse_InvalidChecks(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "two predicates",
			input: "controls:\n  - file: /a\n    checks:\n      - exists: true\n        owner: root\n",
			want:  "more than one predicate",
		},
		{
			name:  "stream on file",
			input: "controls:\n  - file: /a\n    checks:\n      - stdout: ok\n",
			want:  "does not apply to a file subject",
		},
		{
			name:  "file predicate on command",
			input: "controls:\n  - command: ls\n    checks:\n      - owner: root\n",
			want:  "does not apply to a command subject",
		},
		{
			name:  "bad size",
			input: "controls:\n  - file: /a\n    checks:\n      - size: \"> big\"\n",
			want:  "invalid number",
		},
		{
			name:  "bad mode",
			input: "controls:\n  - file: /a\n    checks:\n      - mode: \"0999\"\n",
			want:  "invalid mode",
		},
		{
			name:  "only not",
			input: "controls:\n  - file: /a\n    checks:\n      - not: true\n",
			want:  "no predicate",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.input), "bad.hostspec.yaml")
			require.Error(t, err)
			var perr *ParseError
			require.ErrorAs(t, err, &perr)
			assert.Equal(t, "bad.hostspec.yaml", perr.File)
			assert.Positive(t, perr.Line)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestParse_Malformed(t *testing.T) {
	_, err := Parse([]byte("controls: [\n"), "broken.hostspec.yaml")
	var perr *ParseError
	require.ErrorAs(t, err, &perr)

	_, err = Parse(nil, "empty.hostspec.yaml")
	require.ErrorAs(t, err, &perr)
	assert.Contains(t, err.Error(), "empty suite file")
}

func TestParseComparison(t *testing.T) {
	tests := []struct {
		in   string
		op   check.CompareOp
		n    int64
		fail bool
	}{
		{"25", check.OpEquals, 25, false},
		{"> 25", check.OpGreaterThan, 25, false},
		{">=0", check.OpGreaterOrEqual, 0, false},
		{"<= 4", check.OpLessOrEqual, 4, false},
		{"< 4", check.OpLessThan, 4, false},
		{"== 1", check.OpEquals, 1, false},
		{"!= 1", check.OpNotEquals, 1, false},
		{"~ 1", 0, 0, true},
		{"", 0, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			op, n, err := ParseComparison(tt.in)
			if tt.fail {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.op, op)
			assert.Equal(t, tt.n, n)
		})
	}
}

func TestParseMode(t *testing.T) {
	for in, want := range map[string]int64{"0644": 0o644, "755": 0o755, "0o600": 0o600, "4755": 0o4755} {
		got, err := ParseMode(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	for _, in := range []string{"", "abc", "8", "17777"} {
		_, err := ParseMode(in)
		assert.Error(t, err, in)
	}
}

func TestCollect(t *testing.T) {
	dir := t.TempDir()
	nested := filepath.Join(dir, "nested")
	require.NoError(t, os.Mkdir(nested, 0o755))
	for _, name := range []string{
		filepath.Join(dir, "b.hostspec.yaml"),
		filepath.Join(dir, "notes.yaml"),
		filepath.Join(nested, "a.hostspec.yml"),
	} {
		require.NoError(t, os.WriteFile(name, []byte("controls: []\n"), 0o644))
	}

	files, err := Collect([]string{dir})
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "b.hostspec.yaml"),
		filepath.Join(nested, "a.hostspec.yml"),
	}, files)

	explicit := filepath.Join(dir, "notes.yaml")
	files, err = Collect([]string{explicit, explicit})
	require.NoError(t, err)
	assert.Equal(t, []string{explicit}, files)

	_, err = Collect([]string{filepath.Join(dir, "missing")})
	assert.Error(t, err)
}

func TestIsSuiteFile(t *testing.T) {
	assert.True(t, IsSuiteFile("x.hostspec.yaml"))
	assert.True(t, IsSuiteFile("X.HOSTSPEC.YML"))
	assert.False(t, IsSuiteFile("x.yaml"))
}

func TestParseFile_Missing(t *testing.T) {
	_, err := ParseFile(filepath.Join(t.TempDir(), "absent.hostspec.yaml"))
	require.Error(t, err)

	var perr *ParseError
	require.True(t, errors.As(err, &perr))
	assert.True(t, errors.Is(err, fs.ErrNotExist))
	assert.Contains(t, err.Error(), "absent.hostspec.yaml: cannot read suite")
}
