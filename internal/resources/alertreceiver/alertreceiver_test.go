package alertreceiver

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/alexisbeaulieu97/gridctl/internal/config"
	"github.com/alexisbeaulieu97/gridctl/internal/reconcile"
	"github.com/alexisbeaulieu97/gridctl/internal/resource/resourcetest"
)

func boolPtr(v bool) *bool { return &v }

func smtpResource() config.Resource {
	return config.Resource{
		ID:   "smtp_alerts",
		Type: config.TypeAlertReceiver,
		AlertReceiver: &config.AlertReceiverSpec{
			SMTPHost:        "smtp.example.com",
			SMTPPort:        25,
			Password:        "hunter2",
			FromEmail:       "grid@example.com",
			ToEmails:        []string{"ops@example.com"},
			MinimumSeverity: "major",
		},
	}
}

func existingReceiver(port int, enable bool) map[string]any {
	return map[string]any{
		"id":              "a1b2",
		"type":            "email",
		"enable":          enable,
		"smtpHost":        "smtp.example.com",
		"smtpPort":        port,
		"fromEmail":       "grid@example.com",
		"toEmails":        []string{"ops@example.com"},
		"minimumSeverity": "major",
	}
}

func TestContract(t *testing.T) {
	client, transport, rec := resourcetest.NewClient(t)
	transport.RegisterResponder(http.MethodGet, resourcetest.URL(apiPath),
		resourcetest.Respond(http.StatusOK, []any{existingReceiver(25, true)}))

	resourcetest.RunContract(t, New(client, nil), smtpResource(), rec)
}

func TestCreateWhenMissing(t *testing.T) {
	t.Parallel()

	client, transport, rec := resourcetest.NewClient(t)
	transport.RegisterResponder(http.MethodGet, resourcetest.URL(apiPath),
		resourcetest.Respond(http.StatusOK, []any{}))

	var body map[string]any
	transport.RegisterResponder(http.MethodPost, resourcetest.URL(apiPath),
		resourcetest.Capture(t, &body, existingReceiver(25, true)))

	h := New(client, nil)
	res := smtpResource()

	eval, err := h.Evaluate(context.Background(), res)
	require.NoError(t, err)
	require.Equal(t, reconcile.ActionCreate, eval.Decision.Action)
	require.NotContains(t, eval.Diff, "hunter2")

	result, err := h.Apply(context.Background(), eval, res)
	require.NoError(t, err)
	require.True(t, result.Changed)
	require.Equal(t, "email", body["type"])
	require.Equal(t, true, body["enable"])
	require.Equal(t, "hunter2", body["password"])
	require.Equal(t, float64(25), body["smtpPort"])
	require.Equal(t, []string{"POST /" + apiPath}, rec.Mutations())
}

func TestWriteOnlyPasswordDoesNotCauseDrift(t *testing.T) {
	t.Parallel()

	client, transport, _ := resourcetest.NewClient(t)
	transport.RegisterResponder(http.MethodGet, resourcetest.URL(apiPath),
		resourcetest.Respond(http.StatusOK, []any{existingReceiver(25, true)}))

	eval, err := New(client, nil).Evaluate(context.Background(), smtpResource())
	require.NoError(t, err)
	require.Equal(t, reconcile.ActionNone, eval.Decision.Action)
}

func TestModifyChangedPort(t *testing.T) {
	t.Parallel()

	client, transport, rec := resourcetest.NewClient(t)
	transport.RegisterResponder(http.MethodGet, resourcetest.URL(apiPath),
		resourcetest.Respond(http.StatusOK, []any{existingReceiver(25, true)}))

	var body map[string]any
	transport.RegisterResponder(http.MethodPut, resourcetest.URL(apiPath+"/a1b2"),
		resourcetest.Capture(t, &body, existingReceiver(35, true)))

	h := New(client, nil)
	res := smtpResource()
	res.AlertReceiver.SMTPPort = 35

	eval, err := h.Evaluate(context.Background(), res)
	require.NoError(t, err)
	require.Equal(t, reconcile.ChangeSet{"smtpPort": 35}, eval.Decision.ChangeSet)

	_, err = h.Apply(context.Background(), eval, res)
	require.NoError(t, err)
	require.Equal(t, float64(35), body["smtpPort"])
	require.Equal(t, []string{"PUT /" + apiPath + "/a1b2"}, rec.Mutations())
}

func TestEmptyCACertClearsIt(t *testing.T) {
	t.Parallel()

	current := existingReceiver(25, true)
	current["caCert"] = "-----BEGIN CERTIFICATE-----"

	client, transport, _ := resourcetest.NewClient(t)
	transport.RegisterResponder(http.MethodGet, resourcetest.URL(apiPath),
		resourcetest.Respond(http.StatusOK, []any{current}))

	var body map[string]any
	transport.RegisterResponder(http.MethodPut, resourcetest.URL(apiPath+"/a1b2"),
		resourcetest.Capture(t, &body, existingReceiver(25, true)))

	h := New(client, nil)
	res := smtpResource()
	empty := ""
	res.AlertReceiver.CACert = &empty

	eval, err := h.Evaluate(context.Background(), res)
	require.NoError(t, err)
	require.Equal(t, reconcile.ChangeSet{"caCert": nil}, eval.Decision.ChangeSet)

	_, err = h.Apply(context.Background(), eval, res)
	require.NoError(t, err)
	require.Contains(t, body, "caCert")
	require.Nil(t, body["caCert"])
}

func TestDisabledOnBothSidesIsNoop(t *testing.T) {
	t.Parallel()

	client, transport, _ := resourcetest.NewClient(t)
	transport.RegisterResponder(http.MethodGet, resourcetest.URL(apiPath),
		resourcetest.Respond(http.StatusOK, []any{existingReceiver(25, false)}))

	res := smtpResource()
	res.AlertReceiver.Enable = boolPtr(false)
	res.AlertReceiver.SMTPPort = 2525

	eval, err := New(client, nil).Evaluate(context.Background(), res)
	require.NoError(t, err)
	require.Equal(t, reconcile.ActionNone, eval.Decision.Action)
	require.Equal(t, "alert receiver is disabled", eval.Message)
}

func TestDeleteExisting(t *testing.T) {
	t.Parallel()

	client, transport, rec := resourcetest.NewClient(t)
	transport.RegisterResponder(http.MethodGet, resourcetest.URL(apiPath),
		resourcetest.Respond(http.StatusOK, []any{existingReceiver(25, true)}))
	transport.RegisterResponder(http.MethodDelete, resourcetest.URL(apiPath+"/a1b2"),
		resourcetest.Respond(http.StatusNoContent, nil))

	h := New(client, nil)
	res := config.Resource{ID: "smtp_alerts", Type: config.TypeAlertReceiver, State: "absent", AlertReceiver: &config.AlertReceiverSpec{}}

	eval, err := h.Evaluate(context.Background(), res)
	require.NoError(t, err)
	require.Equal(t, reconcile.ActionDelete, eval.Decision.Action)

	_, err = h.Apply(context.Background(), eval, res)
	require.NoError(t, err)
	require.Equal(t, []string{"DELETE /" + apiPath + "/a1b2"}, rec.Mutations())
}

func TestAbsentAndMissingIsNoop(t *testing.T) {
	t.Parallel()

	client, transport, _ := resourcetest.NewClient(t)
	transport.RegisterResponder(http.MethodGet, resourcetest.URL(apiPath),
		resourcetest.Respond(http.StatusOK, []any{}))

	res := config.Resource{ID: "smtp_alerts", Type: config.TypeAlertReceiver, State: "absent", AlertReceiver: &config.AlertReceiverSpec{}}
	eval, err := New(client, nil).Evaluate(context.Background(), res)
	require.NoError(t, err)
	require.False(t, eval.RequiresAction)
}
