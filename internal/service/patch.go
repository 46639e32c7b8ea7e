package service

import (
	"encoding/json"

	"github.com/boddenberg/agenda-bfa-go/internal/domain"
)

// identityFields can never be changed through a patch.
var identityFields = []string{"id", "companyId", "createdAt", "updatedAt"}

// PatchPolicy restricts which JSON keys a patch may touch. Allowed, when
// set, wins over Protected.
type PatchPolicy struct {
	Allowed   []string
	Protected []string
}

// mergePatch returns an apply function that overlays the JSON object patch
// on a deep copy of the entity, then runs check(prev, next). The entity is
// replaced only when every step succeeds.
func mergePatch[T any](patch json.RawMessage, policy PatchPolicy, check func(prev, next *T) error) func(*T) error {
	return func(e *T) error {
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(patch, &fields); err != nil {
			return &domain.ErrValidation{Field: "body", Message: "JSON inválido"}
		}
		filterFields(fields, policy)

		next, err := deepCopy(*e)
		if err != nil {
			return err
		}
		filtered, err := json.Marshal(fields)
		if err != nil {
			return err
		}
		if err := json.Unmarshal(filtered, &next); err != nil {
			return &domain.ErrValidation{Field: "body", Message: "Campos com tipo inválido: " + err.Error()}
		}
		if check != nil {
			if err := check(e, &next); err != nil {
				return err
			}
		}
		*e = next
		return nil
	}
}

func filterFields(fields map[string]json.RawMessage, policy PatchPolicy) {
	for _, k := range identityFields {
		delete(fields, k)
	}
	for _, k := range policy.Protected {
		delete(fields, k)
	}
	if policy.Allowed == nil {
		return
	}
	allowed := make(map[string]bool, len(policy.Allowed))
	for _, k := range policy.Allowed {
		allowed[k] = true
	}
	for k := range fields {
		if !allowed[k] {
			delete(fields, k)
		}
	}
}

// deepCopy clones v through its JSON form, so maps and slices are not
// shared with the original.
func deepCopy[T any](v T) (T, error) {
	var out T
	raw, err := json.Marshal(v)
	if err != nil {
		return out, err
	}
	err = json.Unmarshal(raw, &out)
	return out, err
}
