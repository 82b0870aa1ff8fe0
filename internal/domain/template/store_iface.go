package template

import "context"

type StoreAPI interface {
	Insert(ctx context.Context, tenantID string, tmpl Template) (string, error)
	Get(ctx context.Context, tenantID, templateID string) (Template, error)
	List(ctx context.Context, tenantID string, activeOnly bool) ([]Template, error)
	Update(ctx context.Context, tenantID string, tmpl Template) error
	Delete(ctx context.Context, tenantID, templateID string) error
}
