package config

import (
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/alexisbeaulieu97/gridctl/internal/reconcile"
)

// Resource type names accepted in the resources list.
const (
	TypeAlertReceiver          = "alert_receiver"
	TypeAuditDestination       = "audit_destination"
	TypeAutosupport            = "autosupport"
	TypeDomainNames            = "domain_names"
	TypeSSHSecurity            = "ssh_security"
	TypeUntrustedClientNetwork = "untrusted_client_network"
	TypeSNMP                   = "snmp"
	TypeVLANInterface          = "vlan_interface"
	TypeFirewall               = "firewall"
	TypeGateway                = "gateway"
	TypeProxySettings          = "proxy_settings"
)

// singletons only ever exist once per grid; they can be configured but not
// removed.
var resourceTypes = map[string]struct{ singleton bool }{
	TypeAlertReceiver:          {singleton: false},
	TypeAuditDestination:       {singleton: true},
	TypeAutosupport:            {singleton: true},
	TypeDomainNames:            {singleton: true},
	TypeSSHSecurity:            {singleton: true},
	TypeUntrustedClientNetwork: {singleton: true},
	TypeSNMP:                   {singleton: true},
	TypeVLANInterface:          {singleton: false},
	TypeFirewall:               {singleton: false},
	TypeGateway:                {singleton: false},
	TypeProxySettings:          {singleton: true},
}

// KnownType reports whether t is a supported resource type.
func KnownType(t string) bool {
	_, ok := resourceTypes[t]
	return ok
}

// IsSingleton reports whether resources of type t only accept "present".
func IsSingleton(t string) bool {
	return resourceTypes[t].singleton
}

// Config represents the full gridctl document.
type Config struct {
	Version     string     `yaml:"version" validate:"required,semver"`
	Name        string     `yaml:"name" validate:"required,min=1,max=100"`
	Description string     `yaml:"description,omitempty"`
	Connection  Connection `yaml:"connection,omitempty"`
	Settings    Settings   `yaml:"settings,omitempty"`
	Resources   []Resource `yaml:"resources" validate:"required,min=1"`
}

// Connection locates and authenticates against the grid management API.
// Environment variables and flags may override every field (see Source).
type Connection struct {
	APIURL        string `yaml:"api_url,omitempty" mapstructure:"api-url" validate:"omitempty,url"`
	AuthToken     string `yaml:"auth_token,omitempty" mapstructure:"auth-token"`
	Username      string `yaml:"username,omitempty" mapstructure:"username"`
	Password      string `yaml:"password,omitempty" mapstructure:"password"`
	TenantID      string `yaml:"tenant_id,omitempty" mapstructure:"tenant-id"`
	ValidateCerts *bool  `yaml:"validate_certs,omitempty" mapstructure:"validate-certs"`
}

// VerifyCerts returns validate_certs, which defaults to true.
func (c Connection) VerifyCerts() bool {
	return c.ValidateCerts == nil || *c.ValidateCerts
}

// Settings holds global execution parameters.
type Settings struct {
	Parallel        int  `yaml:"parallel,omitempty" validate:"omitempty,min=1,max=32"`
	Timeout         int  `yaml:"timeout,omitempty" validate:"omitempty,min=1,max=3600"`
	ContinueOnError bool `yaml:"continue_on_error,omitempty"`
	DryRun          bool `yaml:"dry_run,omitempty"`
	Verbose         bool `yaml:"verbose,omitempty"`
}

// Resource is one declared grid object.
type Resource struct {
	ID        string   `yaml:"id" validate:"required,resource_id"`
	Name      string   `yaml:"name,omitempty"`
	Type      string   `yaml:"type" validate:"required"`
	State     string   `yaml:"state,omitempty"`
	DependsOn []string `yaml:"depends_on,omitempty"`

	AlertReceiver          *AlertReceiverSpec          `yaml:",inline,omitempty"`
	AuditDestination       *AuditDestinationSpec       `yaml:",inline,omitempty"`
	Autosupport            *AutosupportSpec            `yaml:",inline,omitempty"`
	DomainNames            *DomainNamesSpec            `yaml:",inline,omitempty"`
	SSHSecurity            *SSHSecuritySpec            `yaml:",inline,omitempty"`
	UntrustedClientNetwork *UntrustedClientNetworkSpec `yaml:",inline,omitempty"`
	SNMP                   *SNMPSpec                   `yaml:",inline,omitempty"`
	VLANInterface          *VLANInterfaceSpec          `yaml:",inline,omitempty"`
	Firewall               *FirewallSpec               `yaml:",inline,omitempty"`
	Gateway                *GatewaySpec                `yaml:",inline,omitempty"`
	ProxySettings          *ProxySettingsSpec          `yaml:",inline,omitempty"`
}

// Lifecycle returns the declared state, defaulting to present. Call it on
// validated resources only: an unknown literal yields an empty Lifecycle.
func (r Resource) Lifecycle() reconcile.Lifecycle {
	if strings.TrimSpace(r.State) == "" {
		return reconcile.LifecyclePresent
	}
	l, err := reconcile.ParseLifecycle(r.State)
	if err != nil {
		return ""
	}
	return l
}

// DisplayName prefers the optional name over the id.
func (r Resource) DisplayName() string {
	if r.Name != "" {
		return r.Name
	}
	return r.ID
}

// UnmarshalYAML decodes the common keys, then the spec for the declared type.
func (r *Resource) UnmarshalYAML(value *yaml.Node) error {
	type baseResource struct {
		ID        string   `yaml:"id"`
		Name      string   `yaml:"name"`
		Type      string   `yaml:"type"`
		State     string   `yaml:"state"`
		DependsOn []string `yaml:"depends_on"`
	}

	var base baseResource
	if err := value.Decode(&base); err != nil {
		return err
	}

	*r = Resource{
		ID:        base.ID,
		Name:      base.Name,
		Type:      base.Type,
		State:     base.State,
		DependsOn: append([]string(nil), base.DependsOn...),
	}

	var err error
	switch base.Type {
	case TypeAlertReceiver:
		r.AlertReceiver, err = decodeSpec[AlertReceiverSpec](value)
	case TypeAuditDestination:
		r.AuditDestination, err = decodeSpec[AuditDestinationSpec](value)
	case TypeAutosupport:
		r.Autosupport, err = decodeSpec[AutosupportSpec](value)
	case TypeDomainNames:
		r.DomainNames, err = decodeSpec[DomainNamesSpec](value)
	case TypeSSHSecurity:
		r.SSHSecurity, err = decodeSpec[SSHSecuritySpec](value)
	case TypeUntrustedClientNetwork:
		r.UntrustedClientNetwork, err = decodeSpec[UntrustedClientNetworkSpec](value)
	case TypeSNMP:
		r.SNMP, err = decodeSpec[SNMPSpec](value)
	case TypeVLANInterface:
		r.VLANInterface, err = decodeSpec[VLANInterfaceSpec](value)
	case TypeFirewall:
		r.Firewall, err = decodeSpec[FirewallSpec](value)
	case TypeGateway:
		r.Gateway, err = decodeSpec[GatewaySpec](value)
	case TypeProxySettings:
		r.ProxySettings, err = decodeSpec[ProxySettingsSpec](value)
	}
	return err
}

func decodeSpec[T any](value *yaml.Node) (*T, error) {
	var spec T
	if err := value.Decode(&spec); err != nil {
		return nil, err
	}
	return &spec, nil
}

// Spec returns the type-specific parameters, or nil.
func (r Resource) Spec() any {
	switch r.Type {
	case TypeAlertReceiver:
		return r.AlertReceiver
	case TypeAuditDestination:
		return r.AuditDestination
	case TypeAutosupport:
		return r.Autosupport
	case TypeDomainNames:
		return r.DomainNames
	case TypeSSHSecurity:
		return r.SSHSecurity
	case TypeUntrustedClientNetwork:
		return r.UntrustedClientNetwork
	case TypeSNMP:
		return r.SNMP
	case TypeVLANInterface:
		return r.VLANInterface
	case TypeFirewall:
		return r.Firewall
	case TypeGateway:
		return r.Gateway
	case TypeProxySettings:
		return r.ProxySettings
	default:
		return nil
	}
}

// AlertReceiverSpec configures the email alert receiver.
type AlertReceiverSpec struct {
	ReceiverType    string   `yaml:"receiver_type,omitempty" validate:"omitempty,oneof=email"`
	Enable          *bool    `yaml:"enable,omitempty"`
	SMTPHost        string   `yaml:"smtp_host,omitempty" validate:"required"`
	SMTPPort        int      `yaml:"smtp_port,omitempty" validate:"required,min=1,max=65535"`
	Username        string   `yaml:"username,omitempty"`
	Password        string   `yaml:"password,omitempty"`
	FromEmail       string   `yaml:"from_email,omitempty" validate:"required,email"`
	ToEmails        []string `yaml:"to_emails,omitempty" validate:"required,min=1,dive,email"`
	MinimumSeverity string   `yaml:"minimum_severity,omitempty" validate:"required,oneof=minor major critical"`
	CACert          *string  `yaml:"ca_cert,omitempty"`
	ClientCert      string   `yaml:"client_cert,omitempty"`
	ClientKey       string   `yaml:"client_key,omitempty" validate:"required_with=ClientCert"`
}

// AuditDestinationSpec routes audit logs. Defaults apply to every node not
// listed in Nodes.
type AuditDestinationSpec struct {
	Defaults *AuditTargets       `yaml:"defaults,omitempty"`
	Nodes    []AuditNodeOverride `yaml:"nodes,omitempty" validate:"omitempty,dive"`
}

// AuditTargets are the destinations of one node, or of the grid default.
type AuditTargets struct {
	AdminNodes             *AuditAdminNodes `yaml:"admin_nodes,omitempty"`
	RemoteSyslogServer     *SyslogServer    `yaml:"remote_syslog_server,omitempty"`
	RemoteSyslogServerTest *SyslogServer    `yaml:"remote_syslog_server_test,omitempty"`
}

// AuditNodeOverride replaces the defaults for a single node.
type AuditNodeOverride struct {
	NodeID       string `yaml:"node_id" validate:"required"`
	AuditTargets `yaml:",inline"`
}

// AuditAdminNodes toggles the traditional export to admin nodes. Enabled
// defaults to true.
type AuditAdminNodes struct {
	Enabled *bool `yaml:"enabled,omitempty"`
}

// SyslogServer is an external syslog destination. Facility and severity
// accept -1 to keep the local value.
type SyslogServer struct {
	Enabled                    *bool  `yaml:"enabled,omitempty"`
	Protocol                   string `yaml:"protocol,omitempty" validate:"omitempty,oneof=udp tcp tls relp+tcp relp+tls"`
	ServerCACert               string `yaml:"server_ca_cert,omitempty"`
	InsecureTLS                *bool  `yaml:"insecure_tls,omitempty"`
	ClientCert                 string `yaml:"client_cert,omitempty"`
	ClientKey                  string `yaml:"client_key,omitempty" validate:"required_with=ClientCert"`
	ClientKeyPassphrase        string `yaml:"client_key_passphrase,omitempty"`
	TLSConfigurationParameters string `yaml:"tls_configuration_parameters,omitempty"`
	Hostname                   string `yaml:"hostname" validate:"required"`
	Port                       int    `yaml:"port,omitempty" validate:"omitempty,min=1,max=65535"`
	AuthEventsSend             *bool  `yaml:"auth_events_send,omitempty"`
	AuthEventsFacility         *int   `yaml:"auth_events_facility,omitempty" validate:"omitempty,min=-1,max=23"`
	AuthEventsSeverity         *int   `yaml:"auth_events_severity,omitempty" validate:"omitempty,min=-1,max=7"`
	AuditLogsSend              *bool  `yaml:"audit_logs_send,omitempty"`
	AuditLogsFacility          *int   `yaml:"audit_logs_facility,omitempty" validate:"omitempty,min=-1,max=23"`
	AuditLogsSeverity          *int   `yaml:"audit_logs_severity,omitempty" validate:"omitempty,min=-1,max=7"`
	ApplicationLogsSend        *bool  `yaml:"application_logs_send,omitempty"`
	ApplicationLogsFacility    *int   `yaml:"application_logs_facility,omitempty" validate:"omitempty,min=-1,max=23"`
	ApplicationLogsSeverity    *int   `yaml:"application_logs_severity,omitempty" validate:"omitempty,min=-1,max=7"`
}

// AutosupportSpec configures AutoSupport delivery.
type AutosupportSpec struct {
	AODEnable              *bool                    `yaml:"aod_enable,omitempty" validate:"required"`
	AvailableUpdatesEnable *bool                    `yaml:"available_updates_enable,omitempty"`
	EventEnable            *bool                    `yaml:"event_enable,omitempty" validate:"required"`
	CertEnable             *bool                    `yaml:"cert_enable,omitempty" validate:"required"`
	WeeklyEnable           *bool                    `yaml:"weekly_enable,omitempty" validate:"required"`
	Transport              string                   `yaml:"transport,omitempty" validate:"required,oneof=SMTP HTTP HTTPS"`
	Destinations           []AutosupportDestination `yaml:"destinations,omitempty" validate:"omitempty,dive"`
}

// AutosupportDestination is an additional AutoSupport target.
type AutosupportDestination struct {
	Hostname string `yaml:"hostname" validate:"required"`
	Port     int    `yaml:"port" validate:"required,min=1,max=65535"`
	CACert   string `yaml:"ca_cert,omitempty"`
}

// DomainNamesSpec sets the S3 endpoint domain names.
type DomainNamesSpec struct {
	DomainNames []string `yaml:"domain_names" validate:"required,min=1,dive,fqdn"`
}

// SSHSecuritySpec toggles external SSH access.
type SSHSecuritySpec struct {
	AllowExternalAccess *bool `yaml:"allow_external_access" validate:"required"`
}

// UntrustedClientNetworkSpec marks client networks as untrusted.
type UntrustedClientNetworkSpec struct {
	DefaultNode        string   `yaml:"default_node,omitempty" validate:"omitempty,oneof=trusted untrusted"`
	UntrustedNodesID   []string `yaml:"untrusted_nodes_id,omitempty" validate:"excluded_with=UntrustedNodesName"`
	UntrustedNodesName []string `yaml:"untrusted_nodes_name,omitempty"`
}

// SNMPSpec configures the SNMP agent.
type SNMPSpec struct {
	EnableSNMP           *bool                 `yaml:"enable_snmp,omitempty"`
	CommunityStrings     []string              `yaml:"community_strings,omitempty"`
	ROUsers              []string              `yaml:"ro_users,omitempty"`
	SysLocation          string                `yaml:"sys_location,omitempty"`
	SysContact           string                `yaml:"sys_contact,omitempty"`
	TrapCommunity        string                `yaml:"trap_community,omitempty"`
	AuthTrapEnable       int                   `yaml:"auth_trap_enable,omitempty" validate:"omitempty,oneof=1 2"`
	DisableNotifications *bool                 `yaml:"disable_notifications,omitempty"`
	TrapDestinations     []SNMPTrapDestination `yaml:"trap_destinations,omitempty" validate:"omitempty,dive"`
	AgentAddresses       []SNMPAgentAddress    `yaml:"agent_addresses,omitempty" validate:"omitempty,dive"`
	USMUsers             []SNMPUSMUser         `yaml:"usm_users,omitempty" validate:"omitempty,dive"`
}

// SNMPTrapDestination is a notification target.
type SNMPTrapDestination struct {
	Type      string `yaml:"type" validate:"required,oneof=trapsink trap2sink informsink trapsess informsess"`
	Host      string `yaml:"host" validate:"required"`
	Port      int    `yaml:"port,omitempty" validate:"omitempty,min=1,max=65535"`
	Community string `yaml:"community,omitempty"`
	USMUser   string `yaml:"usm_user,omitempty"`
	Protocol  string `yaml:"protocol,omitempty" validate:"omitempty,oneof=udp tcp"`
}

// SNMPAgentAddress is a listening address of the agent.
type SNMPAgentAddress struct {
	Protocol string `yaml:"protocol,omitempty" validate:"omitempty,oneof=udp udp6 tcp tcp6"`
	Network  string `yaml:"network,omitempty" validate:"omitempty,oneof=grid admin client all"`
	Port     int    `yaml:"port,omitempty" validate:"omitempty,min=1,max=65535"`
}

// SNMPUSMUser is an SNMPv3 user. Passphrases are write-only.
type SNMPUSMUser struct {
	Name                  string `yaml:"name" validate:"required"`
	SecurityLevel         string `yaml:"security_level" validate:"required,oneof=authNoPriv authPriv"`
	AuthProtocol          string `yaml:"auth_protocol" validate:"required,oneof=SHA"`
	AuthPassphrase        string `yaml:"auth_passphrase" validate:"required"`
	PrivProtocol          string `yaml:"priv_protocol,omitempty" validate:"omitempty,oneof=AES"`
	PrivPassphrase        string `yaml:"priv_passphrase,omitempty"`
	AuthoritativeEngineID string `yaml:"authoritative_engine_id,omitempty"`
}

// VLANInterfaceSpec declares a VLAN interface on one or more nodes.
type VLANInterfaceSpec struct {
	VLANID      int             `yaml:"vlan_id" validate:"required,min=1,max=4094"`
	Description string          `yaml:"description,omitempty"`
	Interfaces  []VLANInterface `yaml:"interfaces,omitempty" validate:"required,min=1,dive"`
}

// VLANInterface binds the VLAN to a node's parent interface.
type VLANInterface struct {
	NodeID        string `yaml:"node_id" validate:"required"`
	InterfaceName string `yaml:"interface_name" validate:"required"`
}

// FirewallSpec declares blocked ports and privileged IPs for a node, or for
// the grid-wide default list.
type FirewallSpec struct {
	NodeID             string   `yaml:"node_id" validate:"required"`
	BlockedUDPPorts    []int    `yaml:"blocked_udp_ports,omitempty" validate:"omitempty,dive,min=1,max=65535"`
	BlockedTCPPorts    []int    `yaml:"blocked_tcp_ports,omitempty" validate:"omitempty,dive,min=1,max=65535"`
	PrivilegedIPs      []string `yaml:"privileged_ips,omitempty" validate:"omitempty,dive,cidr|ip"`
	GridInternalAccess *bool    `yaml:"grid_internal_access,omitempty"`
}

// DeclaresBlockedPorts reports whether blocked ports are managed.
func (f FirewallSpec) DeclaresBlockedPorts() bool {
	return f.BlockedTCPPorts != nil || f.BlockedUDPPorts != nil
}

// DeclaresPrivilegedIPs reports whether privileged IPs are managed.
func (f FirewallSpec) DeclaresPrivilegedIPs() bool {
	return f.PrivilegedIPs != nil || f.GridInternalAccess != nil
}

// GatewaySpec declares a load balancer endpoint.
type GatewaySpec struct {
	DisplayName        string `yaml:"display_name,omitempty" validate:"required"`
	Port               int    `yaml:"port" validate:"required,min=1,max=65535"`
	Secure             *bool  `yaml:"secure,omitempty"`
	EnableIPv4         *bool  `yaml:"enable_ipv4,omitempty"`
	EnableIPv6         *bool  `yaml:"enable_ipv6,omitempty"`
	DefaultServiceType string `yaml:"default_service_type,omitempty" validate:"omitempty,oneof=s3 swift"`
	ServerCertificate  string `yaml:"server_certificate,omitempty"`
	CABundle           string `yaml:"ca_bundle,omitempty"`
	PrivateKey         string `yaml:"private_key,omitempty"`
}

// ProxySettingsSpec configures the admin and storage proxies.
type ProxySettingsSpec struct {
	Enable   *bool  `yaml:"enable,omitempty"`
	HostName string `yaml:"host_name,omitempty" validate:"required"`
	HostPort int    `yaml:"host_port,omitempty" validate:"required,min=1,max=65535"`
	Username string `yaml:"username,omitempty"`
	Password string `yaml:"password,omitempty"`
	CABundle string `yaml:"ca_bundle,omitempty"`
	Proxy    string `yaml:"proxy,omitempty" validate:"required"`
}

// ResourceMap builds a lookup table for resources by ID.
func ResourceMap(resources []Resource) map[string]Resource {
	out := make(map[string]Resource, len(resources))
	for _, res := range resources {
		out[res.ID] = res
	}
	return out
}
