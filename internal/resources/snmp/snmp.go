// Package snmp manages the grid SNMP agent.
package snmp

import (
	"context"
	"fmt"

	"github.com/alexisbeaulieu97/gridctl/internal/config"
	"github.com/alexisbeaulieu97/gridctl/internal/logger"
	"github.com/alexisbeaulieu97/gridctl/internal/model"
	"github.com/alexisbeaulieu97/gridctl/internal/reconcile"
	"github.com/alexisbeaulieu97/gridctl/internal/resource"
	"github.com/alexisbeaulieu97/gridctl/internal/sgapi"
)

const apiPath = "api/v4/grid/snmp"

const (
	defaultAuthTrapEnable = 2
	defaultTrapProtocol   = "udp"
	defaultAgentProtocol  = "udp"
	defaultAgentNetwork   = "all"
	defaultAgentPort      = 161
)

// Handler reconciles the snmp singleton.
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
		Type:        config.TypeSNMP,
		Description: "SNMP agent configuration",
		MinVersion:  sgapi.MustParseVersion("11.6"),
	}
}

func desiredState(spec *config.SNMPSpec) reconcile.State {
	enable := false
	if spec.EnableSNMP != nil {
		enable = *spec.EnableSNMP
	}
	disableNotifications := false
	if spec.DisableNotifications != nil {
		disableNotifications = *spec.DisableNotifications
	}
	authTrap := spec.AuthTrapEnable
	if authTrap == 0 {
		authTrap = defaultAuthTrapEnable
	}

	b := resource.NewState().
		Put("enable_snmp", enable).
		Set("community_strings", spec.CommunityStrings).
		Set("rousers", spec.ROUsers).
		Set("sysLocation", spec.SysLocation).
		Set("sysContact", spec.SysContact).
		Set("trapcommunity", spec.TrapCommunity).
		Put("authtrapenable", authTrap).
		Put("disable_notifications", disableNotifications)

	if len(spec.TrapDestinations) > 0 {
		dests := make([]any, 0, len(spec.TrapDestinations))
		for _, d := range spec.TrapDestinations {
			protocol := d.Protocol
			if protocol == "" {
				protocol = defaultTrapProtocol
			}
			dests = append(dests, map[string]any(resource.NewState().
				Put("type", d.Type).
				Put("host", d.Host).
				Set("port", d.Port).
				Set("community", d.Community).
				Set("usmUser", d.USMUser).
				Put("protocol", protocol).
				State()))
		}
		b.Put("trap_destinations", dests)
	}

	if len(spec.AgentAddresses) > 0 {
		addrs := make([]any, 0, len(spec.AgentAddresses))
		for _, a := range spec.AgentAddresses {
			addr := map[string]any{"protocol": defaultAgentProtocol, "network": defaultAgentNetwork, "port": defaultAgentPort}
			if a.Protocol != "" {
				addr["protocol"] = a.Protocol
			}
			if a.Network != "" {
				addr["network"] = a.Network
			}
			if a.Port != 0 {
				addr["port"] = a.Port
			}
			addrs = append(addrs, addr)
		}
		b.Put("agent_addresses", addrs)
	}

	if len(spec.USMUsers) > 0 {
		users := make([]any, 0, len(spec.USMUsers))
		for _, u := range spec.USMUsers {
			users = append(users, map[string]any(resource.NewState().
				Put("name", u.Name).
				Put("securityLevel", u.SecurityLevel).
				Put("authProtocol", u.AuthProtocol).
				Put("authPassphrase", u.AuthPassphrase).
				Set("privProtocol", u.PrivProtocol).
				Set("privPassphrase", u.PrivPassphrase).
				Set("authoritativeEngineId", u.AuthoritativeEngineID).
				State()))
		}
		b.Put("usm_users", users)
	}

	return b.State()
}

// stripPassphrases removes passphrases of users known on both sides, so
// write-only secrets of existing users never show up as drift. Users that
// only exist in desired keep theirs.
func stripPassphrases(current, desired reconcile.State) (reconcile.State, reconcile.State) {
	currentUsers, _ := current["usm_users"].([]any)
	desiredUsers, _ := desired["usm_users"].([]any)
	if len(currentUsers) == 0 || len(desiredUsers) == 0 {
		return current, desired
	}

	known := make(map[string]bool, len(currentUsers))
	for _, u := range currentUsers {
		if m, ok := u.(map[string]any); ok {
			known[resource.StringField(m, "name")] = true
		}
	}

	strip := func(users []any) []any {
		out := make([]any, len(users))
		for i, u := range users {
			m, ok := u.(map[string]any)
			if !ok || !known[resource.StringField(m, "name")] {
				out[i] = u
				continue
			}
			clean := make(map[string]any, len(m))
			for k, v := range m {
				if k == "authPassphrase" || k == "privPassphrase" {
					continue
				}
				clean[k] = v
			}
			out[i] = clean
		}
		return out
	}

	c := shallowCopy(current)
	c["usm_users"] = strip(currentUsers)
	d := shallowCopy(desired)
	d["usm_users"] = strip(desiredUsers)
	return c, d
}

func shallowCopy(s reconcile.State) reconcile.State {
	out := make(reconcile.State, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Evaluate implements resource.Handler.
func (h *Handler) Evaluate(ctx context.Context, res config.Resource) (*model.EvaluationResult, error) {
	spec := res.SNMP
	if spec == nil {
		return nil, resource.NewValidationError(res.ID, fmt.Errorf("snmp configuration is required"))
	}
	lifecycle, err := resource.LifecycleOf(res)
	if err != nil {
		return nil, err
	}

	resp, err := h.client.Get(ctx, apiPath, nil)
	if err != nil {
		return nil, resource.NewStateError(res.ID, err)
	}
	current, err := resource.DecodeState(resp)
	if err != nil {
		return nil, resource.NewStateError(res.ID, err)
	}

	desired := desiredState(spec)
	if lifecycle == reconcile.LifecyclePresent && current["enable_snmp"] != true && desired["enable_snmp"] == false {
		result := model.NewEvaluation(res.ID, reconcile.Decision{Action: reconcile.ActionNone}, "SNMP is disabled")
		result.InternalData = resource.Snapshot{Current: current, Desired: desired}
		return result, nil
	}

	compareCurrent, compareDesired := stripPassphrases(current, desired)
	result, err := resource.Decide(resource.Evaluation{
		Resource: res,
		Current:  compareCurrent,
		Desired:  compareDesired,
		Noun:     "SNMP configuration",
	})
	if err != nil {
		return nil, err
	}
	result.InternalData = resource.Snapshot{Current: current, Desired: desired}
	return result, nil
}

// Apply implements resource.Handler. Changed fields are sent with their full
// desired value, passphrases included.
func (h *Handler) Apply(ctx context.Context, evalResult *model.EvaluationResult, res config.Resource) (*model.ResourceResult, error) {
	if !evalResult.RequiresAction {
		return resource.Unchanged(evalResult), nil
	}
	snap, err := resource.SnapshotOf(evalResult)
	if err != nil {
		return nil, err
	}

	changes := make(reconcile.ChangeSet, len(evalResult.Decision.ChangeSet))
	for key := range evalResult.Decision.ChangeSet {
		changes[key] = snap.Desired[key]
	}
	body := resource.UpdateBody(snap.Current, changes, nil, nil)

	if _, err := h.client.Put(ctx, apiPath, body); err != nil {
		return nil, resource.NewExecutionError(res.ID, err)
	}
	h.log.WithFields(map[string]any{"resource": res.ID}).Info("SNMP configuration updated")
	return resource.Applied(evalResult, "SNMP configuration updated successfully"), nil
}
