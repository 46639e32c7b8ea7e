package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/boddenberg/agenda-bfa-go/internal/domain"

	"go.opentelemetry.io/otel/attribute"
)

// ============================================================
// Table: typed CRUD over one PostgREST table
// ============================================================

// Table implements port.EntityStore for one entity type. R is the row shape
// and from/to are the field-mapper functions.
type Table[T domain.Record, R any] struct {
	client       *Client
	name         string
	resource     string
	tenantColumn string
	from         func(R) T
	to           func(T) R
}

func newTable[T domain.Record, R any](c *Client, name, resource, tenantColumn string, from func(R) T, to func(T) R) *Table[T, R] {
	return &Table[T, R]{client: c, name: name, resource: resource, tenantColumn: tenantColumn, from: from, to: to}
}

// Resource is the singular entity name used in errors and spans.
func (t *Table[T, R]) Resource() string { return t.resource }

// List returns every row of the table (getAll).
func (t *Table[T, R]) List(ctx context.Context) ([]T, error) {
	ctx, span := tracer.Start(ctx, "Supabase.List")
	defer span.End()
	span.SetAttributes(attribute.String("table", t.name))

	return t.query(ctx, fmt.Sprintf("%s?select=*&order=created_at.asc", t.name))
}

// ListByCompany returns the rows owned by a tenant (getByCompany).
func (t *Table[T, R]) ListByCompany(ctx context.Context, companyID string) ([]T, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListByCompany")
	defer span.End()
	span.SetAttributes(attribute.String("table", t.name), attribute.String("company.id", companyID))

	return t.query(ctx, fmt.Sprintf("%s?%s=eq.%s&select=*&order=created_at.asc", t.name, t.tenantColumn, url.QueryEscape(companyID)))
}

// FindBy returns the rows whose column equals value.
func (t *Table[T, R]) FindBy(ctx context.Context, column, value string) ([]T, error) {
	ctx, span := tracer.Start(ctx, "Supabase.FindBy")
	defer span.End()
	span.SetAttributes(attribute.String("table", t.name), attribute.String("column", column))

	return t.query(ctx, fmt.Sprintf("%s?%s=eq.%s&select=*", t.name, column, url.QueryEscape(value)))
}

// Get returns one row by id (getById).
func (t *Table[T, R]) Get(ctx context.Context, id string) (T, error) {
	ctx, span := tracer.Start(ctx, "Supabase.Get")
	defer span.End()
	span.SetAttributes(attribute.String("table", t.name), attribute.String("id", id))

	var zero T
	rows, err := t.query(ctx, fmt.Sprintf("%s?id=eq.%s&select=*&limit=1", t.name, url.QueryEscape(id)))
	if err != nil {
		return zero, err
	}
	if len(rows) == 0 {
		return zero, &domain.ErrNotFound{Resource: t.resource, ID: id}
	}
	return rows[0], nil
}

// Create inserts e and returns the stored representation.
func (t *Table[T, R]) Create(ctx context.Context, e T) (T, error) {
	ctx, span := tracer.Start(ctx, "Supabase.Create")
	defer span.End()
	span.SetAttributes(attribute.String("table", t.name))

	var out T
	err := t.client.write(ctx, func() error {
		body, err := t.client.doPost(ctx, t.name, t.to(e))
		if err != nil {
			return err
		}
		rows, err := t.decode(body)
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			out = e
			return nil
		}
		out = rows[0]
		return nil
	})
	if err != nil {
		var zero T
		return zero, classify(err, t.resource, e.RecordID())
	}
	return out, nil
}

// Update writes e if the stored version still equals version. An empty
// version skips the check. The row's updated_at is bumped to now, which
// becomes the new version token.
func (t *Table[T, R]) Update(ctx context.Context, e T, version string) (T, error) {
	ctx, span := tracer.Start(ctx, "Supabase.Update")
	defer span.End()
	span.SetAttributes(attribute.String("table", t.name), attribute.String("id", e.RecordID()))

	path := t.scoped(e.RecordID(), e.Tenant())
	if version != "" {
		path += "&updated_at=eq." + url.QueryEscape(version)
	}

	patch, err := t.patchBody(e)
	if err != nil {
		var zero T
		return zero, err
	}

	var rows []T
	err = t.client.write(ctx, func() error {
		body, err := t.client.doPatch(ctx, path, patch)
		if err != nil {
			return err
		}
		rows, err = t.decode(body)
		return err
	})
	if err != nil {
		var zero T
		return zero, classify(err, t.resource, e.RecordID())
	}
	if len(rows) > 0 {
		return rows[0], nil
	}

	var zero T
	if version == "" {
		return zero, &domain.ErrNotFound{Resource: t.resource, ID: e.RecordID()}
	}
	// Nothing matched: either the row is gone or someone else wrote first.
	if _, getErr := t.Get(ctx, e.RecordID()); getErr != nil {
		return zero, getErr
	}
	return zero, &domain.ErrConflict{
		Kind:    domain.ConflictStale,
		Message: fmt.Sprintf("%s foi alterado por outra pessoa; recarregue e tente novamente", t.resource),
	}
}

// Delete removes the row id owned by companyID.
func (t *Table[T, R]) Delete(ctx context.Context, companyID, id string) error {
	ctx, span := tracer.Start(ctx, "Supabase.Delete")
	defer span.End()
	span.SetAttributes(attribute.String("table", t.name), attribute.String("id", id))

	var rows []T
	err := t.client.write(ctx, func() error {
		body, err := t.client.doDelete(ctx, t.scoped(id, companyID))
		if err != nil {
			return err
		}
		rows, err = t.decode(body)
		return err
	})
	if err != nil {
		return classify(err, t.resource, id)
	}
	if len(rows) == 0 {
		return &domain.ErrNotFound{Resource: t.resource, ID: id}
	}
	return nil
}

func (t *Table[T, R]) query(ctx context.Context, path string) ([]T, error) {
	var rows []T
	err := t.client.read(ctx, func() error {
		body, err := t.client.doRequest(ctx, http.MethodGet, path)
		if err != nil {
			return err
		}
		rows, err = t.decode(body)
		return err
	})
	if err != nil {
		return nil, classify(err, t.resource, "")
	}
	return rows, nil
}

// scoped builds the id filter, adding the tenant filter when the table has one.
func (t *Table[T, R]) scoped(id, companyID string) string {
	path := fmt.Sprintf("%s?id=eq.%s", t.name, url.QueryEscape(id))
	if t.tenantColumn != "" && t.tenantColumn != "id" && companyID != "" {
		path += fmt.Sprintf("&%s=eq.%s", t.tenantColumn, url.QueryEscape(companyID))
	}
	return path
}

// patchBody renders the row without identity columns and with a fresh updated_at.
func (t *Table[T, R]) patchBody(e T) (map[string]any, error) {
	raw, err := json.Marshal(t.to(e))
	if err != nil {
		return nil, err
	}
	var patch map[string]any
	if err := json.Unmarshal(raw, &patch); err != nil {
		return nil, err
	}
	delete(patch, "id")
	delete(patch, "created_at")
	patch["updated_at"] = time.Now().UTC().Format(time.RFC3339Nano)
	return patch, nil
}

func (t *Table[T, R]) decode(body []byte) ([]T, error) {
	if len(body) == 0 {
		return nil, nil
	}
	var rows []R
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("decode %s: %w", t.name, err)
	}
	out := make([]T, 0, len(rows))
	for _, r := range rows {
		out = append(out, t.from(r))
	}
	return out, nil
}
