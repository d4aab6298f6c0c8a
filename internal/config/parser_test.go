package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/alexisbeaulieu97/gridctl/internal/reconcile"
	gridctlerrors "github.com/alexisbeaulieu97/gridctl/pkg/errors"
)

const baselineYAML = `version: "1.0"
name: "Grid baseline"
description: "Sample config for parser tests"
connection:
  api_url: https://admin.example.com
  username: root
  password: secret
  validate_certs: false
settings:
  parallel: 2
  continue_on_error: true
resources:
  - id: s3_domains
    type: domain_names
    domain_names:
      - s3.example.com
      - s3.example.org
  - id: smtp_alerts
    type: alert_receiver
    enable: true
    smtp_host: smtp.example.com
    smtp_port: 25
    from_email: grid@example.com
    to_emails: [ops@example.com]
    minimum_severity: major
  - id: old_vlan
    type: vlan_interface
    state: absent
    vlan_id: 100
    depends_on: [s3_domains]
`

func TestParseConfig(t *testing.T) {
	t.Parallel()

	invalidYAML := `version: [1, 0]
name: "Broken"
resources:
  - id: missing_type
`

	missingRequired := `version: "1.0"
name: "No Resources"
`

	badVersion := `version: "beta"
name: "Bad Version"
resources:
  - id: ssh
    type: ssh_security
    allow_external_access: false
`

	unknownType := `version: "1.0"
name: "Unknown"
resources:
  - id: quota
    type: tenant_quota
`

	cases := []struct {
		name     string
		contents string
		assert   func(t *testing.T, cfg *Config, err error)
	}{
		{
			name:     "valid configuration is parsed",
			contents: baselineYAML,
			assert: func(t *testing.T, cfg *Config, err error) {
				require.NoError(t, err)
				require.NotNil(t, cfg)
				require.Equal(t, "Grid baseline", cfg.Name)
				require.Len(t, cfg.Resources, 3)

				domains := cfg.Resources[0]
				require.Equal(t, TypeDomainNames, domains.Type)
				require.NotNil(t, domains.DomainNames)
				require.Equal(t, []string{"s3.example.com", "s3.example.org"}, domains.DomainNames.DomainNames)
				require.Equal(t, reconcile.LifecyclePresent, domains.Lifecycle())

				alerts := cfg.Resources[1]
				require.NotNil(t, alerts.AlertReceiver)
				require.Nil(t, alerts.DomainNames)
				require.Equal(t, 25, alerts.AlertReceiver.SMTPPort)

				vlan := cfg.Resources[2]
				require.Equal(t, reconcile.LifecycleAbsent, vlan.Lifecycle())
				require.Equal(t, 100, vlan.VLANInterface.VLANID)

				require.False(t, cfg.Connection.VerifyCerts())
				require.True(t, cfg.Settings.ContinueOnError)
			},
		},
		{
			name:     "invalid yaml returns parse error",
			contents: invalidYAML,
			assert: func(t *testing.T, cfg *Config, err error) {
				var parseErr *gridctlerrors.ParseError
				require.ErrorAs(t, err, &parseErr)
				require.Contains(t, parseErr.Message, "cannot unmarshal")
				require.Equal(t, 1, parseErr.Line)
			},
		},
		{
			name:     "missing resources returns validation error",
			contents: missingRequired,
			assert: func(t *testing.T, cfg *Config, err error) {
				var validationErr *gridctlerrors.ValidationError
				require.ErrorAs(t, err, &validationErr)
				require.Contains(t, validationErr.Message, "resources")
			},
		},
		{
			name:     "schema version must follow major.minor",
			contents: badVersion,
			assert: func(t *testing.T, cfg *Config, err error) {
				var validationErr *gridctlerrors.ValidationError
				require.ErrorAs(t, err, &validationErr)
				require.Contains(t, validationErr.Message, "version")
			},
		},
		{
			name:     "unknown resource type is rejected",
			contents: unknownType,
			assert: func(t *testing.T, cfg *Config, err error) {
				var validationErr *gridctlerrors.ValidationError
				require.ErrorAs(t, err, &validationErr)
				require.Contains(t, validationErr.Message, "tenant_quota")
			},
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			path := writeTempConfig(t, tc.contents)
			cfg, err := ParseConfig(path)
			tc.assert(t, cfg, err)
		})
	}
}

func TestParseAuditDestination(t *testing.T) {
	t.Parallel()

	contents := `version: "1.0"
name: "Audit"
resources:
  - id: audit
    type: audit_destination
    defaults:
      admin_nodes:
        enabled: false
      remote_syslog_server:
        hostname: syslog.example.com
        protocol: tcp
        audit_logs_facility: 0
    nodes:
      - node_id: 7f0e1c
        remote_syslog_server_test:
          hostname: syslog-test.example.com
`
	cfg, err := ParseConfig(writeTempConfig(t, contents))
	require.NoError(t, err)

	spec := cfg.Resources[0].AuditDestination
	require.NotNil(t, spec)
	require.NotNil(t, spec.Defaults.AdminNodes.Enabled)
	require.False(t, *spec.Defaults.AdminNodes.Enabled)
	require.Equal(t, "tcp", spec.Defaults.RemoteSyslogServer.Protocol)
	require.NotNil(t, spec.Defaults.RemoteSyslogServer.AuditLogsFacility)
	require.Equal(t, 0, *spec.Defaults.RemoteSyslogServer.AuditLogsFacility)
	require.Nil(t, spec.Defaults.RemoteSyslogServer.AuditLogsSeverity)

	require.Len(t, spec.Nodes, 1)
	require.Equal(t, "7f0e1c", spec.Nodes[0].NodeID)
	require.Nil(t, spec.Nodes[0].RemoteSyslogServer)
	require.Equal(t, "syslog-test.example.com", spec.Nodes[0].RemoteSyslogServerTest.Hostname)
}

func TestParseLocatesResourceErrors(t *testing.T) {
	t.Parallel()

	t.Run("decode error names the resource", func(t *testing.T) {
		t.Parallel()

		contents := `version: "1.0"
name: "Located"
resources:
  - id: s3_domains
    type: domain_names
    domain_names:
      - s3.example.com
  - id: smtp_alerts
    type: alert_receiver
    smtp_host: smtp.example.com
    smtp_port: twenty-five
settings:
  parallel: 2
`
		_, err := Parse([]byte(contents), "grid.yaml")
		var parseErr *gridctlerrors.ParseError
		require.ErrorAs(t, err, &parseErr)
		require.Equal(t, 11, parseErr.Line)
		require.Contains(t, parseErr.Message, `resources[1] (id "smtp_alerts")`)
	})

	t.Run("decode error after the list names no resource", func(t *testing.T) {
		t.Parallel()

		contents := `version: "1.0"
name: "Located"
resources:
  - id: ssh
    type: ssh_security
    allow_external_access: false
settings:
  parallel: many
`
		_, err := Parse([]byte(contents), "grid.yaml")
		var parseErr *gridctlerrors.ParseError
		require.ErrorAs(t, err, &parseErr)
		require.Equal(t, 8, parseErr.Line)
		require.NotContains(t, parseErr.Message, "resources[")
	})

	t.Run("spec validation error gets the resource line", func(t *testing.T) {
		t.Parallel()

		contents := `version: "1.0"
name: "Located"
resources:
  - id: s3_domains
    type: domain_names
    domain_names:
      - s3.example.com
  - id: smtp_alerts
    type: alert_receiver
    smtp_host: smtp.example.com
    smtp_port: 25
    from_email: not-an-email
    to_emails: [ops@example.com]
    minimum_severity: major
`
		_, err := Parse([]byte(contents), "grid.yaml")
		var validationErr *gridctlerrors.ValidationError
		require.ErrorAs(t, err, &validationErr)
		require.Equal(t, 8, validationErr.Line)
		require.Equal(t, "smtp_alerts.alertreceiverspec.fromemail", validationErr.Field)
		require.Contains(t, err.Error(), "(line 8)")
	})

	t.Run("dependency error gets the resource line", func(t *testing.T) {
		t.Parallel()

		contents := `version: "1.0"
name: "Located"
resources:
  - id: ssh
    type: ssh_security
    allow_external_access: false
    depends_on: [ghost]
`
		_, err := Parse([]byte(contents), "grid.yaml")
		var validationErr *gridctlerrors.ValidationError
		require.ErrorAs(t, err, &validationErr)
		require.Equal(t, "resources[0].depends_on", validationErr.Field)
		require.Equal(t, 4, validationErr.Line)
	})

	t.Run("document errors carry no line", func(t *testing.T) {
		t.Parallel()

		_, err := Parse([]byte("name: \"No Resources\"\n"), "grid.yaml")
		var validationErr *gridctlerrors.ValidationError
		require.ErrorAs(t, err, &validationErr)
		require.Zero(t, validationErr.Line)
	})
}

func TestParseEmptyDocument(t *testing.T) {
	t.Parallel()

	_, err := Parse(nil, "empty.yaml")
	var validationErr *gridctlerrors.ValidationError
	require.ErrorAs(t, err, &validationErr)
}

func TestParseConfigMissingFile(t *testing.T) {
	t.Parallel()

	_, err := ParseConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	var parseErr *gridctlerrors.ParseError
	require.ErrorAs(t, err, &parseErr)
	require.Zero(t, parseErr.Line)
}

func TestExtractLine(t *testing.T) {
	t.Parallel()

	require.Zero(t, extractLine(nil))
	require.Equal(t, 7, extractLine(errString("yaml: line 7: did not find expected key")))
	require.Zero(t, extractLine(errString("no position")))
}

type errString string

func (e errString) Error() string { return string(e) }

func writeTempConfig(t *testing.T, contents string) string {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}
