package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every connection environment variable, for example
// GRIDCTL_API_URL.
const EnvPrefix = "GRIDCTL"

var connectionKeys = []struct {
	key    string
	usage  string
	secret bool
}{
	{key: "api-url", usage: "grid management API base URL"},
	{key: "auth-token", usage: "bearer token; skips the login request", secret: true},
	{key: "username", usage: "grid administrator user name"},
	{key: "password", usage: "grid administrator password", secret: true},
	{key: "tenant-id", usage: "tenant account id to log in to"},
	{key: "validate-certs", usage: "verify the API server certificate (true|false)"},
}

// Source layers environment variables and command line flags over the
// connection block of a document.
type Source struct {
	v    *viper.Viper
	fset *pflag.FlagSet
}

// NewSource creates an empty Source.
func NewSource() *Source {
	return &Source{v: viper.New()}
}

// Flags returns the connection override flags. Once parsed they act as the
// highest priority source.
func (s *Source) Flags() *pflag.FlagSet {
	if s.fset != nil {
		return s.fset
	}
	s.fset = pflag.NewFlagSet("connection", pflag.ContinueOnError)
	for _, k := range connectionKeys {
		usage := k.usage
		if k.secret {
			usage += fmt.Sprintf(" (prefer %s_%s)", EnvPrefix, envName(k.key))
		}
		s.fset.String(k.key, "", usage)
	}
	return s.fset
}

// Read returns base with every field overridden by the environment or by
// flags that were set. validate_certs defaults to true.
func (s *Source) Read(base Connection) (Connection, error) {
	v := s.v

	v.SetDefault("api-url", base.APIURL)
	v.SetDefault("auth-token", base.AuthToken)
	v.SetDefault("username", base.Username)
	v.SetDefault("password", base.Password)
	v.SetDefault("tenant-id", base.TenantID)
	v.SetDefault("validate-certs", base.VerifyCerts())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if s.fset != nil {
		if err := v.BindPFlags(s.fset); err != nil {
			return Connection{}, err
		}
	}

	var conn Connection
	if err := v.Unmarshal(&conn); err != nil {
		return Connection{}, fmt.Errorf("read connection overrides: %w", err)
	}
	return conn, nil
}

func envName(key string) string {
	return strings.ToUpper(strings.ReplaceAll(key, "-", "_"))
}
