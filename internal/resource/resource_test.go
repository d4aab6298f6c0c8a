package resource

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/alexisbeaulieu97/gridctl/internal/config"
	"github.com/alexisbeaulieu97/gridctl/internal/model"
	"github.com/alexisbeaulieu97/gridctl/internal/reconcile"
	"github.com/alexisbeaulieu97/gridctl/internal/sgapi"
	gridctlerrors "github.com/alexisbeaulieu97/gridctl/pkg/errors"
)

type fakeHandler struct {
	typ string
}

func (f fakeHandler) Metadata() Metadata { return Metadata{Type: f.typ} }

func (f fakeHandler) Evaluate(context.Context, config.Resource) (*model.EvaluationResult, error) {
	return &model.EvaluationResult{}, nil
}

func (f fakeHandler) Apply(context.Context, *model.EvaluationResult, config.Resource) (*model.ResourceResult, error) {
	return &model.ResourceResult{}, nil
}

func TestRegistry(t *testing.T) {
	t.Parallel()

	reg := NewRegistry(nil)
	require.NoError(t, reg.Register(fakeHandler{typ: "snmp"}))
	require.NoError(t, reg.Register(fakeHandler{typ: "autosupport"}))
	err := reg.Register(fakeHandler{typ: "snmp"})
	var handlerErr *gridctlerrors.HandlerError
	require.ErrorAs(t, err, &handlerErr)
	require.Equal(t, "snmp", handlerErr.Type)
	require.Error(t, reg.Register(fakeHandler{}))
	require.Error(t, reg.Register(nil))

	h, err := reg.Get("snmp")
	require.NoError(t, err)
	require.Equal(t, "snmp", h.Metadata().Type)

	_, err = reg.Get("quota")
	var notFound ErrHandlerNotFound
	require.ErrorAs(t, err, &notFound)
	require.Equal(t, "quota", notFound.Type)

	list := reg.List()
	require.Len(t, list, 2)
	require.Equal(t, "autosupport", list[0].Type)
}

func TestResourceErrors(t *testing.T) {
	t.Parallel()

	cause := errors.New("boom")
	cases := []struct {
		err    error
		target error
		prefix string
	}{
		{NewValidationError("a", cause), &ValidationError{}, "validation error in resource a"},
		{NewExecutionError("b", cause), &ExecutionError{}, "execution error in resource b"},
		{NewStateError("c", cause), &StateError{}, "state error in resource c"},
	}

	for _, tc := range cases {
		require.ErrorIs(t, tc.err, tc.target)
		require.ErrorIs(t, tc.err, cause)
		require.Contains(t, tc.err.Error(), tc.prefix)

		resErr, ok := AsResourceError(tc.err)
		require.True(t, ok)
		require.NotEmpty(t, resErr.ResourceID())
	}

	_, ok := AsResourceError(cause)
	require.False(t, ok)
	require.NotErrorIs(t, NewStateError("c", cause), &ExecutionError{})
}

func TestStateBuilderSkipsUndeclared(t *testing.T) {
	t.Parallel()

	enabled := true
	var unset *bool
	state := NewState().
		Set("enable", &enabled).
		Set("unset", unset).
		Set("host", "smtp.example.com").
		Set("empty", "").
		Set("port", 0).
		Set("emails", []string(nil)).
		Set("list", []string{}).
		Set("flag", false).
		Put("forced", nil).
		State()

	require.Equal(t, reconcile.State{
		"enable": true,
		"host":   "smtp.example.com",
		"list":   []string{},
		"flag":   false,
		"forced": nil,
	}, state)
}

func TestStateBuilderKeepsExplicitZeroValues(t *testing.T) {
	t.Parallel()

	empty := ""
	zero := 0
	state := NewState().
		Set("caCert", &empty).
		Set("retention", &zero).
		State()

	require.Contains(t, state, "caCert")
	require.Nil(t, state["caCert"])
	require.Equal(t, 0, state["retention"])

	cleared := reconcile.ComputeChangeSet(reconcile.State{"caCert": "pem", "retention": float64(7)}, state, nil)
	require.Equal(t, reconcile.ChangeSet{"caCert": nil, "retention": 0}, cleared)
	require.Empty(t, reconcile.ComputeChangeSet(reconcile.State{"retention": float64(0)}, state, nil))
}

func TestDecodeStateAndFindItem(t *testing.T) {
	t.Parallel()

	state, err := DecodeState(&sgapi.Response{Data: []byte(`{"allowExternalAccess": true}`)})
	require.NoError(t, err)
	require.Equal(t, true, state["allowExternalAccess"])

	state, err = DecodeState(&sgapi.Response{})
	require.NoError(t, err)
	require.NotNil(t, state)

	resp := &sgapi.Response{Data: []byte(`[{"id":"1","vlanId":10},{"id":"2","vlanId":20}]`)}
	item, err := FindItem(resp, func(s reconcile.State) bool { return s["vlanId"] == float64(20) })
	require.NoError(t, err)
	require.Equal(t, "2", StringField(item, "id"))

	item, err = FindItem(resp, func(s reconcile.State) bool { return false })
	require.NoError(t, err)
	require.Nil(t, item)

	_, err = FindItem(&sgapi.Response{Data: []byte(`{"not":"a list"}`)}, func(reconcile.State) bool { return true })
	require.Error(t, err)
}

func TestUpdateBody(t *testing.T) {
	t.Parallel()

	current := reconcile.State{"id": "x", "hostname": "old", "enable": true}
	changes := reconcile.ChangeSet{"hostname": "new"}
	desired := reconcile.State{"hostname": "new", "enable": true, "password": "secret"}
	schema := reconcile.Schema{"password": reconcile.FieldIgnored}

	body := UpdateBody(current, changes, desired, schema)
	require.Equal(t, map[string]any{"id": "x", "hostname": "new", "enable": true, "password": "secret"}, body)
	require.Equal(t, "old", current["hostname"])
}

func TestRedact(t *testing.T) {
	t.Parallel()

	in := map[string]any{
		"username":          "admin",
		"password":          "secret",
		"usmUsers":          []any{map[string]any{"name": "u", "authPassphrase": "pp"}},
		"plaintextCertData": map[string]any{"privateKeyEncoded": "KEY", "serverCertificateEncoded": "CERT"},
	}
	out := Redact(in)

	require.Equal(t, "admin", out["username"])
	require.Equal(t, "***", out["password"])
	require.Equal(t, "***", out["usmUsers"].([]any)[0].(map[string]any)["authPassphrase"])
	require.Equal(t, "***", out["plaintextCertData"].(map[string]any)["privateKeyEncoded"])
	require.Equal(t, "CERT", out["plaintextCertData"].(map[string]any)["serverCertificateEncoded"])
	require.Equal(t, "secret", in["password"])
}

func TestDecide(t *testing.T) {
	t.Parallel()

	res := config.Resource{ID: "ssh", Type: config.TypeSSHSecurity}

	eval, err := Decide(Evaluation{
		Resource: res,
		Current:  reconcile.State{"allowExternalAccess": true},
		Desired:  reconcile.State{"allowExternalAccess": false},
		Noun:     "SSH access setting",
	})
	require.NoError(t, err)
	require.Equal(t, reconcile.ActionModify, eval.Decision.Action)
	require.Equal(t, model.StatusDrifted, eval.CurrentState)
	require.True(t, eval.RequiresAction)
	require.Contains(t, eval.Diff, "-allowExternalAccess: true")
	require.Contains(t, eval.Diff, "+allowExternalAccess: false")
	require.Contains(t, eval.Message, "allowExternalAccess")

	eval, err = Decide(Evaluation{
		Resource: res,
		Current:  reconcile.State{"allowExternalAccess": false},
		Desired:  reconcile.State{"allowExternalAccess": false},
		Noun:     "SSH access setting",
	})
	require.NoError(t, err)
	require.False(t, eval.RequiresAction)
	require.Empty(t, eval.Diff)
	require.Equal(t, "SSH access setting is up to date", eval.Message)

	res.State = "gone"
	_, err = Decide(Evaluation{Resource: res, Desired: reconcile.State{}})
	require.ErrorIs(t, err, &ValidationError{})
	require.ErrorIs(t, err, reconcile.ErrInvalidLifecycle)
}

func TestDecideCreateRedactsSecrets(t *testing.T) {
	t.Parallel()

	eval, err := Decide(Evaluation{
		Resource: config.Resource{ID: "smtp", Type: config.TypeAlertReceiver},
		Desired:  reconcile.State{"smtpHost": "smtp.example.com", "password": "hunter2"},
		Noun:     "alert receiver",
	})
	require.NoError(t, err)
	require.Equal(t, reconcile.ActionCreate, eval.Decision.Action)
	require.Contains(t, eval.Diff, "smtpHost")
	require.NotContains(t, eval.Diff, "hunter2")
}

func TestAppliedAndUnchanged(t *testing.T) {
	t.Parallel()

	eval := model.NewEvaluation("vlan", reconcile.Decision{Action: reconcile.ActionCreate}, "create")
	result := Applied(eval, "created")
	require.Equal(t, model.StatusSuccess, result.Status)
	require.True(t, result.Changed)
	require.Equal(t, reconcile.ActionCreate, result.Action)

	unchanged := Unchanged(model.NewEvaluation("vlan", reconcile.Decision{Action: reconcile.ActionNone}, "ok"))
	require.Equal(t, model.StatusUnchanged, unchanged.Status)
	require.False(t, unchanged.Changed)
}
