// Package auditdestination routes audit logs to admin nodes and external
// syslog servers.
//
// The grid keeps a single document holding a defaults section and per-node
// overrides. Both are flattened to dotted keys such as
// "nodes.<id>.remoteSyslogServerA.port" so that only the declared leaves are
// compared; undeclared nodes and sections never show as drift.
package auditdestination

import (
	"context"
	"fmt"
	"strings"

	"github.com/alexisbeaulieu97/gridctl/internal/config"
	"github.com/alexisbeaulieu97/gridctl/internal/logger"
	"github.com/alexisbeaulieu97/gridctl/internal/model"
	"github.com/alexisbeaulieu97/gridctl/internal/reconcile"
	"github.com/alexisbeaulieu97/gridctl/internal/resource"
	"github.com/alexisbeaulieu97/gridctl/internal/sgapi"
)

const apiPath = "api/v4/private/audit-destinations"

const (
	syslogKey     = "remoteSyslogServerA"
	syslogTestKey = "remoteSyslogServerATest"
)

// Key material the grid never returns.
var writeOnly = []string{"clientKey", "clientKeyPassphrase"}

// Handler reconciles the audit_destination singleton.
type Handler struct {
	client sgapi.Collaborator
	log    *logger.Logger
}

var _ resource.Handler = (*Handler)(nil)

// New creates the handler.
func New(client sgapi.Collaborator, log *logger.Logger) *Handler {
	return &Handler{client: client, log: log}
}

// Metadata implements resource.Handler.
func (h *Handler) Metadata() resource.Metadata {
	return resource.Metadata{
		Type:        config.TypeAuditDestination,
		Description: "Audit log export to admin nodes and syslog servers",
	}
}

func desiredState(spec *config.AuditDestinationSpec) reconcile.State {
	b := resource.NewState()
	if spec.Defaults != nil {
		addTargets(b, "defaults", *spec.Defaults)
	}
	for _, node := range spec.Nodes {
		addTargets(b, "nodes."+node.NodeID, node.AuditTargets)
	}
	return b.State()
}

func addTargets(b *resource.StateBuilder, prefix string, t config.AuditTargets) {
	if t.AdminNodes != nil {
		b.Set(prefix+".adminNodes.enabled", boolOr(t.AdminNodes.Enabled, true))
	}
	if t.RemoteSyslogServer != nil {
		addSyslog(b, prefix+"."+syslogKey, t.RemoteSyslogServer)
	}
	if t.RemoteSyslogServerTest != nil {
		addSyslog(b, prefix+"."+syslogTestKey, t.RemoteSyslogServerTest)
	}
}

// addSyslog fills in the grid defaults for every field left out.
func addSyslog(b *resource.StateBuilder, prefix string, s *config.SyslogServer) {
	key := func(field string) string { return prefix + "." + field }

	protocol := s.Protocol
	if protocol == "" {
		protocol = "udp"
	}
	port := s.Port
	if port == 0 {
		port = 514
	}

	b.Set(key("enabled"), boolOr(s.Enabled, false)).
		Set(key("protocol"), protocol).
		Set(key("serverCaCert"), s.ServerCACert).
		Set(key("insecureTLS"), boolOr(s.InsecureTLS, false)).
		Set(key("clientCert"), s.ClientCert).
		Set(key("clientKey"), s.ClientKey).
		Set(key("clientKeyPassphrase"), s.ClientKeyPassphrase).
		Set(key("tlsConfigurationParameters"), s.TLSConfigurationParameters).
		Set(key("hostname"), s.Hostname).
		Set(key("port"), port).
		Set(key("authEventsSend"), boolOr(s.AuthEventsSend, true)).
		Set(key("authEventsFacility"), intOr(s.AuthEventsFacility, -1)).
		Set(key("authEventsSeverity"), intOr(s.AuthEventsSeverity, -1)).
		Set(key("auditLogsSend"), boolOr(s.AuditLogsSend, true)).
		Set(key("auditLogsFacility"), intOr(s.AuditLogsFacility, 23)).
		Set(key("auditLogsSeverity"), intOr(s.AuditLogsSeverity, 6)).
		Set(key("applicationLogsSend"), boolOr(s.ApplicationLogsSend, true)).
		Set(key("applicationLogsFacility"), intOr(s.ApplicationLogsFacility, -1)).
		Set(key("applicationLogsSeverity"), intOr(s.ApplicationLogsSeverity, -1))
}

func boolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}

// intOr returns a pointer so that an explicit 0 (the kern facility) survives
// StateBuilder.Set.
func intOr(v *int, def int) *int {
	if v == nil {
		return &def
	}
	return v
}

func schemaFor(desired reconcile.State) reconcile.Schema {
	schema := reconcile.Schema{}
	for key := range desired {
		for _, field := range writeOnly {
			if strings.HasSuffix(key, "."+field) {
				schema[key] = reconcile.FieldIgnored
			}
		}
	}
	return schema
}

// Evaluate implements resource.Handler.
func (h *Handler) Evaluate(ctx context.Context, res config.Resource) (*model.EvaluationResult, error) {
	spec := res.AuditDestination
	if spec == nil {
		return nil, resource.NewValidationError(res.ID, fmt.Errorf("audit_destination configuration is required"))
	}

	resp, err := h.client.Get(ctx, apiPath, nil)
	if err != nil {
		return nil, resource.NewStateError(res.ID, err)
	}
	doc, err := resource.DecodeState(resp)
	if err != nil {
		return nil, resource.NewStateError(res.ID, err)
	}

	current := reconcile.State{}
	flatten("", doc, current)

	desired := desiredState(spec)
	return resource.Decide(resource.Evaluation{
		Resource: res,
		Current:  current,
		Desired:  desired,
		Schema:   schemaFor(desired),
		Noun:     "audit destination",
	})
}

// Apply implements resource.Handler.
func (h *Handler) Apply(ctx context.Context, evalResult *model.EvaluationResult, res config.Resource) (*model.ResourceResult, error) {
	if !evalResult.RequiresAction {
		return resource.Unchanged(evalResult), nil
	}
	snap, err := resource.SnapshotOf(evalResult)
	if err != nil {
		return nil, err
	}
	changes := evalResult.Decision.ChangeSet

	flat := resource.UpdateBody(snap.Current, changes, snap.Desired, schemaFor(snap.Desired))
	if _, err := h.client.Put(ctx, apiPath, expand(flat)); err != nil {
		return nil, resource.NewExecutionError(res.ID, err)
	}

	message := "audit destination configuration updated successfully"
	h.log.WithFields(map[string]any{"resource": res.ID, "fields": changes.Keys()}).Info(message)
	return resource.Applied(evalResult, message), nil
}

// flatten copies the leaves of in into out under dotted keys. Nulls are
// dropped since they read the same as a missing field.
func flatten(prefix string, in map[string]any, out reconcile.State) {
	for k, v := range in {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		switch val := v.(type) {
		case nil:
		case map[string]any:
			flatten(key, val, out)
		case reconcile.State:
			flatten(key, val, out)
		default:
			out[key] = val
		}
	}
}

// expand is the inverse of flatten.
func expand(flat map[string]any) map[string]any {
	out := map[string]any{}
	for key, v := range flat {
		parts := strings.Split(key, ".")
		node := out
		for _, part := range parts[:len(parts)-1] {
			next, ok := node[part].(map[string]any)
			if !ok {
				next = map[string]any{}
				node[part] = next
			}
			node = next
		}
		node[parts[len(parts)-1]] = v
	}
	return out
}
