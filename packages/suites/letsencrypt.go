package suites

import "github.com/abdul-hamid-achik/hostspec/packages/core/check"

const (
	LetsencryptDir     = "/opt/letsencrypt"
	LetsencryptCLIIni  = "/etc/letsencrypt/cli.ini"
	LetsencryptPlugins = "/opt/letsencrypt/bin/certbot plugins"
)

// Letsencrypt verifies a pip-based certbot install managed by Salt.
func Letsencrypt() *check.Suite {
	checkout := check.File(LetsencryptDir,
		check.IsDirectory(),
		check.OwnedBy("root"),
		check.GroupedInto("root"),
		check.Readable(),
		check.SizeGreaterThan(25),
	)
	checkout.Title = "certbot checkout"

	cliIni := check.File(LetsencryptCLIIni,
		check.IsFile(),
		check.OwnedBy("root"),
		check.GroupedInto("root"),
		check.Readable(),
		check.SizeGreaterThan(1),
		check.ContentMatches("server = https://acme-staging.api.letsencrypt.org/directory"),
		check.ContentMatches("authenticator = standalone"),
		check.ContentMatches("File managed by Salt"),
	)
	cliIni.Title = "certbot configuration"

	plugins := check.Command(LetsencryptPlugins,
		check.StdoutMatches("dns-powerdns"),
	)
	plugins.Title = "powerdns plugin installed"

	return &check.Suite{
		Name:      "letsencrypt",
		Variables: map[string]string{},
		Controls:  []*check.Control{checkout, cliIni, plugins},
	}
}
