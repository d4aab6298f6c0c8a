package resources

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/alexisbeaulieu97/gridctl/internal/config"
	"github.com/alexisbeaulieu97/gridctl/internal/resource/resourcetest"
)

func TestEveryKnownTypeHasAHandler(t *testing.T) {
	t.Parallel()

	client, _, _ := resourcetest.NewClient(t)
	registry, err := NewRegistry(client, nil)
	require.NoError(t, err)

	for _, typ := range []string{
		config.TypeAlertReceiver,
		config.TypeAuditDestination,
		config.TypeAutosupport,
		config.TypeDomainNames,
		config.TypeSSHSecurity,
		config.TypeUntrustedClientNetwork,
		config.TypeSNMP,
		config.TypeVLANInterface,
		config.TypeFirewall,
		config.TypeGateway,
		config.TypeProxySettings,
	} {
		require.True(t, config.KnownType(typ), typ)
		h, err := registry.Get(typ)
		require.NoError(t, err, typ)
		require.Equal(t, typ, h.Metadata().Type)
	}
	require.Len(t, registry.List(), 11)
}
