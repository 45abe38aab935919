package suites

import (
	"testing"

	"github.com/abdul-hamid-achik/hostspec/packages/core/check"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLetsencrypt(t *testing.T) {
	s := Letsencrypt()
	assert.Equal(t, "letsencrypt", s.Name)
	require.Len(t, s.Controls, 3)

	checkout := s.Controls[0]
	assert.Equal(t, LetsencryptDir, checkout.Subject)
	assert.Equal(t, check.SubjectFile, checkout.Kind)
	require.Len(t, checkout.Checks, 5)
	assert.Equal(t, check.SizeGreaterThan(25), checkout.Checks[4].Predicate)

	cliIni := s.Controls[1]
	assert.Equal(t, LetsencryptCLIIni, cliIni.Subject)
	require.Len(t, cliIni.Checks, 8)
	assert.Equal(t, check.IsFile(), cliIni.Checks[0].Predicate)
	assert.Equal(t, check.SizeGreaterThan(1), cliIni.Checks[4].Predicate)
	assert.Equal(t, check.ContentMatches("File managed by Salt"), cliIni.Checks[7].Predicate)

	plugins := s.Controls[2]
	assert.Equal(t, check.SubjectCommand, plugins.Kind)
	require.Len(t, plugins.Checks, 1)
	assert.Equal(t, check.StdoutMatches("dns-powerdns"), plugins.Checks[0].Predicate)

	for _, ctrl := range s.Controls {
		for _, c := range ctrl.Checks {
			assert.Equal(t, ctrl.Subject, c.Subject)
			assert.Equal(t, ctrl.Kind, c.Kind)
			assert.Equal(t, ctrl.Kind == check.SubjectFile, c.Predicate.Kind.FileOnly())
		}
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	assert.Equal(t, []string{"letsencrypt"}, r.Names())

	a, ok := r.Get("letsencrypt")
	require.True(t, ok)
	b, _ := r.Get("letsencrypt")
	assert.NotSame(t, a, b)

	_, ok = r.Get("missing")
	assert.False(t, ok)

	r.Register("empty", func() *check.Suite { return &check.Suite{Name: "empty"} })
	assert.Equal(t, []string{"empty", "letsencrypt"}, r.Names())

	_, ok = Get("letsencrypt")
	assert.True(t, ok)
	assert.Contains(t, Names(), "letsencrypt")
}
