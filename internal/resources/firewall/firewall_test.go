package firewall

import (
	"context"
	"net/http"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/require"

	"github.com/alexisbeaulieu97/gridctl/internal/config"
	"github.com/alexisbeaulieu97/gridctl/internal/reconcile"
	"github.com/alexisbeaulieu97/gridctl/internal/resource"
	"github.com/alexisbeaulieu97/gridctl/internal/resource/resourcetest"
)

const node = "7c2e5f8a-0000-4b7e-9a1d-3f0e2b9c1d11"

func boolPtr(b bool) *bool { return &b }

func firewallResource(spec config.FirewallSpec) config.Resource {
	spec.NodeID = node
	return config.Resource{ID: "fw_admin", Type: config.TypeFirewall, Firewall: &spec}
}

func mockGrid(transport *httpmock.MockTransport, blocked, privileged []any) {
	transport.RegisterResponder(http.MethodGet, resourcetest.URL(blockedPortsPath),
		resourcetest.Respond(http.StatusOK, blocked))
	transport.RegisterResponder(http.MethodGet, resourcetest.URL(privilegedIPsPath),
		resourcetest.Respond(http.StatusOK, privileged))
	transport.RegisterResponder(http.MethodGet, resourcetest.URL(externalPortsPath),
		resourcetest.Respond(http.StatusOK, map[string]any{
			"externalTcpPorts": []int{22, 80, 443, 8443, 9443},
			"externalUdpPorts": []int{68, 161},
		}))
	transport.RegisterResponder(http.MethodGet, resourcetest.URL("api/v4/grid/config/product-version"),
		resourcetest.Respond(http.StatusOK, map[string]any{"productVersion": "11.9.0.20240101"}))
}

var (
	blockedItem    = map[string]any{"id": node, "tcpPorts": []int{22, 80}, "udpPorts": []int{68}}
	privilegedItem = map[string]any{"id": node, "privilegedIps": []string{"10.0.0.0/24"}, "gridInternalAccess": true}
)

func TestContract(t *testing.T) {
	client, transport, rec := resourcetest.NewClient(t)
	mockGrid(transport, []any{blockedItem}, []any{privilegedItem})

	resourcetest.RunContract(t, New(client, nil), firewallResource(config.FirewallSpec{
		BlockedTCPPorts: []int{22},
		PrivilegedIPs:   []string{"10.0.0.0/24"},
	}), rec)
}

func TestUpToDate(t *testing.T) {
	t.Parallel()

	client, transport, _ := resourcetest.NewClient(t)
	mockGrid(transport, []any{blockedItem}, []any{privilegedItem})

	eval, err := New(client, nil).Evaluate(context.Background(), firewallResource(config.FirewallSpec{
		BlockedTCPPorts:    []int{22, 80},
		GridInternalAccess: boolPtr(true),
	}))
	require.NoError(t, err)
	require.Equal(t, reconcile.ActionNone, eval.Decision.Action)
}

func TestPortOrderIsSignificant(t *testing.T) {
	t.Parallel()

	client, transport, _ := resourcetest.NewClient(t)
	mockGrid(transport, []any{blockedItem}, []any{privilegedItem})

	eval, err := New(client, nil).Evaluate(context.Background(), firewallResource(config.FirewallSpec{
		BlockedTCPPorts:    []int{80, 22},
		GridInternalAccess: boolPtr(true),
	}))
	require.NoError(t, err)
	require.Equal(t, reconcile.ActionModify, eval.Decision.Action)
	require.Equal(t, reconcile.ChangeSet{"tcpPorts": []int{80, 22}}, eval.Decision.ChangeSet)
}

func TestModifyOnlyTouchesChangedPart(t *testing.T) {
	t.Parallel()

	client, transport, rec := resourcetest.NewClient(t)
	mockGrid(transport, []any{blockedItem}, []any{privilegedItem})

	var body map[string]any
	transport.RegisterResponder(http.MethodPut, resourcetest.URL(blockedPortsPath+"/"+node),
		resourcetest.Capture(t, &body, blockedItem))

	h := New(client, nil)
	res := firewallResource(config.FirewallSpec{
		BlockedTCPPorts:    []int{22, 443},
		GridInternalAccess: boolPtr(true),
	})
	eval, err := h.Evaluate(context.Background(), res)
	require.NoError(t, err)
	require.Equal(t, []string{"tcpPorts"}, eval.Decision.ChangeSet.Keys())

	result, err := h.Apply(context.Background(), eval, res)
	require.NoError(t, err)
	require.Equal(t, "Blocked ports updated successfully", result.Message)
	require.Equal(t, node, body["id"])
	require.Equal(t, []any{float64(22), float64(443)}, body["tcpPorts"])
	require.NotContains(t, body, "udpPorts")
	require.Equal(t, []string{"PUT /" + blockedPortsPath + "/" + node}, rec.Mutations())
}

func TestModifyCreatesMissingPart(t *testing.T) {
	t.Parallel()

	client, transport, rec := resourcetest.NewClient(t)
	mockGrid(transport, []any{blockedItem}, []any{})

	var body map[string]any
	transport.RegisterResponder(http.MethodPost, resourcetest.URL(privilegedIPsPath),
		resourcetest.Capture(t, &body, privilegedItem))

	h := New(client, nil)
	res := firewallResource(config.FirewallSpec{PrivilegedIPs: []string{"10.0.0.0/24"}})
	eval, err := h.Evaluate(context.Background(), res)
	require.NoError(t, err)
	require.Equal(t, reconcile.ActionModify, eval.Decision.Action)

	_, err = h.Apply(context.Background(), eval, res)
	require.NoError(t, err)
	require.Equal(t, []any{"10.0.0.0/24"}, body["privilegedIps"])
	require.Equal(t, []string{"POST /" + privilegedIPsPath}, rec.Mutations())
}

func TestCreateBothParts(t *testing.T) {
	t.Parallel()

	client, transport, rec := resourcetest.NewClient(t)
	mockGrid(transport, []any{}, []any{})
	transport.RegisterResponder(http.MethodPost, resourcetest.URL(blockedPortsPath),
		resourcetest.Respond(http.StatusOK, blockedItem))
	transport.RegisterResponder(http.MethodPost, resourcetest.URL(privilegedIPsPath),
		resourcetest.Respond(http.StatusOK, privilegedItem))

	h := New(client, nil)
	res := firewallResource(config.FirewallSpec{
		BlockedUDPPorts: []int{68},
		PrivilegedIPs:   []string{"10.0.0.0/24"},
	})
	eval, err := h.Evaluate(context.Background(), res)
	require.NoError(t, err)
	require.Equal(t, reconcile.ActionCreate, eval.Decision.Action)

	result, err := h.Apply(context.Background(), eval, res)
	require.NoError(t, err)
	require.Equal(t, "Firewall created successfully", result.Message)
	require.Equal(t, []string{
		"POST /" + blockedPortsPath,
		"POST /" + privilegedIPsPath,
	}, rec.Mutations())
}

func TestRejectsPortThatIsNotExternal(t *testing.T) {
	t.Parallel()

	client, transport, _ := resourcetest.NewClient(t)
	mockGrid(transport, []any{}, []any{})

	_, err := New(client, nil).Evaluate(context.Background(), firewallResource(config.FirewallSpec{
		BlockedTCPPorts: []int{22, 12345},
	}))
	require.Error(t, err)
	require.Contains(t, err.Error(), "TCP port 12345")

	var validation *resource.ValidationError
	require.ErrorAs(t, err, &validation)
}

func TestPrivilegedIPsNeedRecentGrid(t *testing.T) {
	t.Parallel()

	client, transport, _ := resourcetest.NewClient(t)
	mockGrid(transport, []any{}, []any{})
	transport.RegisterResponder(http.MethodGet, resourcetest.URL("api/v4/grid/config/product-version"),
		resourcetest.Respond(http.StatusOK, map[string]any{"productVersion": "11.8.0"}))

	_, err := New(client, nil).Evaluate(context.Background(), firewallResource(config.FirewallSpec{
		PrivilegedIPs: []string{"10.0.0.0/24"},
	}))
	require.Error(t, err)
	require.Contains(t, err.Error(), "requires StorageGRID 11.9.0")
}

func TestAbsentDeletesBothParts(t *testing.T) {
	t.Parallel()

	client, transport, rec := resourcetest.NewClient(t)
	mockGrid(transport, []any{blockedItem}, []any{privilegedItem})
	transport.RegisterResponder(http.MethodDelete, resourcetest.URL(blockedPortsPath+"/"+node),
		resourcetest.Respond(http.StatusNoContent, nil))
	transport.RegisterResponder(http.MethodDelete, resourcetest.URL(privilegedIPsPath+"/"+node),
		resourcetest.Respond(http.StatusNoContent, nil))

	h := New(client, nil)
	res := firewallResource(config.FirewallSpec{})
	res.State = "absent"

	eval, err := h.Evaluate(context.Background(), res)
	require.NoError(t, err)
	require.Equal(t, reconcile.ActionDelete, eval.Decision.Action)

	_, err = h.Apply(context.Background(), eval, res)
	require.NoError(t, err)
	require.Len(t, rec.Mutations(), 2)
}
