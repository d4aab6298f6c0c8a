// Package resources wires every resource handler to a grid client.
package resources

import (
	"github.com/alexisbeaulieu97/gridctl/internal/logger"
	"github.com/alexisbeaulieu97/gridctl/internal/resource"
	"github.com/alexisbeaulieu97/gridctl/internal/resources/alertreceiver"
	"github.com/alexisbeaulieu97/gridctl/internal/resources/auditdestination"
	"github.com/alexisbeaulieu97/gridctl/internal/resources/autosupport"
	"github.com/alexisbeaulieu97/gridctl/internal/resources/domainnames"
	"github.com/alexisbeaulieu97/gridctl/internal/resources/firewall"
	"github.com/alexisbeaulieu97/gridctl/internal/resources/gateway"
	"github.com/alexisbeaulieu97/gridctl/internal/resources/proxysettings"
	"github.com/alexisbeaulieu97/gridctl/internal/resources/snmp"
	"github.com/alexisbeaulieu97/gridctl/internal/resources/sshsecurity"
	"github.com/alexisbeaulieu97/gridctl/internal/resources/untrustednetwork"
	"github.com/alexisbeaulieu97/gridctl/internal/resources/vlan"
	"github.com/alexisbeaulieu97/gridctl/internal/sgapi"
)

// Handlers returns one handler per supported resource type.
func Handlers(client sgapi.Collaborator, log *logger.Logger) []resource.Handler {
	return []resource.Handler{
		alertreceiver.New(client, log),
		auditdestination.New(client, log),
		autosupport.New(client, log),
		domainnames.New(client, log),
		firewall.New(client, log),
		gateway.New(client, log),
		proxysettings.New(client, log),
		snmp.New(client, log),
		sshsecurity.New(client, log),
		untrustednetwork.New(client, log),
		vlan.New(client, log),
	}
}

// NewRegistry returns a registry holding every handler.
func NewRegistry(client sgapi.Collaborator, log *logger.Logger) (*resource.Registry, error) {
	registry := resource.NewRegistry(log)
	for _, h := range Handlers(client, log) {
		if err := registry.Register(h); err != nil {
			return nil, err
		}
	}
	return registry, nil
}
