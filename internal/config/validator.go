package config

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/alexisbeaulieu97/gridctl/internal/reconcile"
	gridctlerrors "github.com/alexisbeaulieu97/gridctl/pkg/errors"
)

var (
	validatorOnce sync.Once
	validateInst  *validator.Validate

	semverPattern     = regexp.MustCompile(`^\d+\.\d+(?:\.\d+)?(?:-[0-9A-Za-z-.]+)?(?:\+[0-9A-Za-z-.]+)?$`)
	resourceIDPattern = regexp.MustCompile(`^[a-z0-9_]+$`)
)

func validatorInstance() *validator.Validate {
	validatorOnce.Do(func() {
		v := validator.New()

		_ = v.RegisterValidation("semver", func(fl validator.FieldLevel) bool {
			return semverPattern.MatchString(fl.Field().String())
		})

		_ = v.RegisterValidation("resource_id", func(fl validator.FieldLevel) bool {
			return resourceIDPattern.MatchString(fl.Field().String())
		})

		validateInst = v
	})

	return validateInst
}

// ValidateConfig performs schema and cross-field validation on the document.
// Resource specs are only checked here; the connection block is checked by
// ValidateConnection once overrides have been applied.
func ValidateConfig(cfg *Config) error {
	if cfg == nil {
		return gridctlerrors.NewValidationError("config", "configuration is nil", nil)
	}

	v := validatorInstance()
	if err := v.Struct(cfg); err != nil {
		return convertValidationError(err)
	}

	resourceIndex := make(map[string]int, len(cfg.Resources))
	for i, res := range cfg.Resources {
		if _, exists := resourceIndex[res.ID]; exists {
			return gridctlerrors.NewValidationError(fieldForResource(i, "id"), fmt.Sprintf("duplicate resource id %q", res.ID), nil)
		}
		if err := ValidateResource(res); err != nil {
			return err
		}
		resourceIndex[res.ID] = i
	}

	for i, res := range cfg.Resources {
		for _, dep := range res.DependsOn {
			if _, ok := resourceIndex[dep]; !ok {
				return gridctlerrors.NewValidationError(fieldForResource(i, "depends_on"), fmt.Sprintf("references unknown resource %q", dep), nil)
			}
			if dep == res.ID {
				return gridctlerrors.NewValidationError(fieldForResource(i, "depends_on"), "resource cannot depend on itself", nil)
			}
		}
	}

	if cycle := detectCycle(cfg.Resources); len(cycle) > 0 {
		return gridctlerrors.NewValidationError("resources", fmt.Sprintf("dependency cycle detected: %s", strings.Join(cycle, " -> ")), nil)
	}

	return nil
}

// ValidateResource validates a single resource independent of the others.
func ValidateResource(res Resource) error {
	v := validatorInstance()
	if err := v.Struct(resourceHeader{ID: res.ID, Type: res.Type}); err != nil {
		return convertValidationError(err)
	}

	if !KnownType(res.Type) {
		return gridctlerrors.NewValidationError(res.ID, fmt.Sprintf("unknown resource type %q", res.Type), nil)
	}

	lifecycle := reconcile.LifecyclePresent
	if strings.TrimSpace(res.State) != "" {
		parsed, err := reconcile.ParseLifecycle(res.State)
		if err != nil {
			return gridctlerrors.NewValidationError(res.ID+".state", err.Error(), err)
		}
		lifecycle = parsed
	}
	if lifecycle == reconcile.LifecycleAbsent && IsSingleton(res.Type) {
		return gridctlerrors.NewValidationError(res.ID+".state", fmt.Sprintf("%s only supports state %q", res.Type, reconcile.LifecyclePresent), nil)
	}

	spec := res.Spec()
	if isNil(spec) {
		return gridctlerrors.NewValidationError(res.ID, fmt.Sprintf("%s configuration is required", res.Type), nil)
	}

	if lifecycle == reconcile.LifecycleAbsent {
		return validateIdentity(res)
	}

	if err := v.Struct(spec); err != nil {
		return convertSpecError(res.ID, err)
	}

	if res.AuditDestination != nil && res.AuditDestination.Defaults == nil && len(res.AuditDestination.Nodes) == 0 {
		return gridctlerrors.NewValidationError(res.ID, "audit_destination needs defaults or nodes", nil)
	}

	if res.Firewall != nil && !res.Firewall.DeclaresBlockedPorts() && !res.Firewall.DeclaresPrivilegedIPs() {
		return gridctlerrors.NewValidationError(res.ID, "firewall needs blocked ports, privileged_ips or grid_internal_access", nil)
	}
	return nil
}

// validateIdentity checks only the fields that locate an object to remove.
func validateIdentity(res Resource) error {
	v := validatorInstance()
	var err error
	switch {
	case res.VLANInterface != nil:
		err = v.Var(res.VLANInterface.VLANID, "required,min=1,max=4094")
		if err != nil {
			return gridctlerrors.NewValidationError(res.ID+".vlan_id", "vlan_id is required to remove a VLAN interface", err)
		}
	case res.Firewall != nil:
		err = v.Var(res.Firewall.NodeID, "required")
		if err != nil {
			return gridctlerrors.NewValidationError(res.ID+".node_id", "node_id is required to remove a firewall configuration", err)
		}
	case res.Gateway != nil:
		err = v.Var(res.Gateway.Port, "required,min=1,max=65535")
		if err != nil {
			return gridctlerrors.NewValidationError(res.ID+".port", "port is required to remove a gateway", err)
		}
	case res.AlertReceiver != nil:
		err = v.Var(res.AlertReceiver.ReceiverType, "omitempty,oneof=email")
		if err != nil {
			return gridctlerrors.NewValidationError(res.ID+".receiver_type", "receiver_type must be email", err)
		}
	}
	return nil
}

// ValidateConnection checks the effective connection settings.
func ValidateConnection(conn Connection) error {
	if strings.TrimSpace(conn.APIURL) == "" {
		return gridctlerrors.NewValidationError("connection.api_url", "api_url is required", nil)
	}
	if err := validatorInstance().Var(conn.APIURL, "url"); err != nil {
		return gridctlerrors.NewValidationError("connection.api_url", fmt.Sprintf("%q is not a valid URL", conn.APIURL), err)
	}
	if conn.AuthToken == "" && (conn.Username == "" || conn.Password == "") {
		return gridctlerrors.NewValidationError("connection", "set auth_token or both username and password", nil)
	}
	return nil
}

type resourceHeader struct {
	ID   string `validate:"required,resource_id"`
	Type string `validate:"required"`
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Pointer && rv.IsNil()
}

func convertValidationError(err error) error {
	if err == nil {
		return nil
	}

	if ves, ok := err.(validator.ValidationErrors); ok {
		ve := ves[0]
		field := yamlishFieldName(ve)
		msg := fmt.Sprintf("%s failed validation for tag '%s'", field, ve.Tag())
		return gridctlerrors.NewValidationError(field, msg, err)
	}

	return gridctlerrors.NewValidationError("config", err.Error(), err)
}

// convertSpecError prefixes the field with the resource id so the parser can
// place the error in the document.
func convertSpecError(resourceID string, err error) error {
	converted := convertValidationError(err)
	var validationErr *gridctlerrors.ValidationError
	if errors.As(converted, &validationErr) {
		validationErr.Field = resourceID + "." + validationErr.Field
	}
	return converted
}

func yamlishFieldName(fe validator.FieldError) string {
	ns := fe.StructNamespace()
	parts := strings.Split(ns, ".")
	lowered := make([]string, 0, len(parts))
	for _, part := range parts {
		lowered = append(lowered, strings.ToLower(part))
	}
	return strings.Join(lowered, ".")
}

func fieldForResource(index int, field string) string {
	return fmt.Sprintf("resources[%d].%s", index, field)
}
