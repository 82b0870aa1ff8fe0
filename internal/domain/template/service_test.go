package template

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	templates map[string]Template
	nextID    int
}

func newFakeStore() *fakeStore {
	return &fakeStore{templates: make(map[string]Template)}
}

func (f *fakeStore) Insert(_ context.Context, _ string, tmpl Template) (string, error) {
	f.nextID++
	id := fmt.Sprintf("tmpl-%d", f.nextID)
	tmpl.ID = id
	f.templates[id] = tmpl
	return id, nil
}

func (f *fakeStore) Get(_ context.Context, _ string, templateID string) (Template, error) {
	tmpl, ok := f.templates[templateID]
	if !ok {
		return Template{}, ErrNotFound
	}
	return tmpl, nil
}

func (f *fakeStore) List(_ context.Context, _ string, activeOnly bool) ([]Template, error) {
	var out []Template
	for _, tmpl := range f.templates {
		if activeOnly && !tmpl.IsActive {
			continue
		}
		out = append(out, tmpl)
	}
	return out, nil
}

func (f *fakeStore) Update(_ context.Context, _ string, tmpl Template) error {
	if _, ok := f.templates[tmpl.ID]; !ok {
		return ErrNotFound
	}
	f.templates[tmpl.ID] = tmpl
	return nil
}

func (f *fakeStore) Delete(_ context.Context, _ string, templateID string) error {
	if _, ok := f.templates[templateID]; !ok {
		return ErrNotFound
	}
	delete(f.templates, templateID)
	return nil
}

func TestCreateSetsVersionAndActive(t *testing.T) {
	svc := NewService(newFakeStore())

	tmpl, err := svc.Create(context.Background(), "t1", "hr-user", validInput())
	require.NoError(t, err)

	assert.Equal(t, 1, tmpl.Version)
	assert.True(t, tmpl.IsActive)
	assert.Equal(t, "hr-user", tmpl.CreatedBy)
	assert.NotEmpty(t, tmpl.ID)
}

func TestCreateRejectsBadWeights(t *testing.T) {
	svc := NewService(newFakeStore())

	input := validInput()
	input.Sections[0].Weight = 99

	_, err := svc.Create(context.Background(), "t1", "hr-user", input)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestUpdateReplacingSectionsBumpsVersionAndRevalidates(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store)
	created, err := svc.Create(context.Background(), "t1", "hr-user", validInput())
	require.NoError(t, err)

	// Bad replacement sections are rejected.
	bad := []Section{{ID: "only", Title: "Only", Weight: 90, Criteria: []Criterion{{ID: "c", Name: "C", Weight: 100}}}}
	_, err = svc.Update(context.Background(), "t1", "hr-user", created.ID, UpdateInput{Sections: bad})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)

	// Valid replacement bumps the version.
	good := []Section{{ID: "only", Title: "Only", Weight: 100, Criteria: []Criterion{{ID: "c", Name: "C", Weight: 100}}}}
	updated, err := svc.Update(context.Background(), "t1", "hr-user", created.ID, UpdateInput{Sections: good})
	require.NoError(t, err)
	assert.Equal(t, 2, updated.Version)
	assert.Len(t, updated.Sections, 1)
}

func TestUpdateWithoutSectionsIsPartial(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store)
	created, err := svc.Create(context.Background(), "t1", "hr-user", validInput())
	require.NoError(t, err)

	name := "Renamed"
	updated, err := svc.Update(context.Background(), "t1", "hr-user", created.ID, UpdateInput{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Name)
	assert.Equal(t, 1, updated.Version, "partial update must not bump version")
}

func TestUpdateUnknownTemplate(t *testing.T) {
	svc := NewService(newFakeStore())
	name := "x"
	_, err := svc.Update(context.Background(), "t1", "hr-user", "missing", UpdateInput{Name: &name})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeactivateKeepsTemplate(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store)
	created, err := svc.Create(context.Background(), "t1", "hr-user", validInput())
	require.NoError(t, err)

	deactivated, err := svc.Deactivate(context.Background(), "t1", "hr-user", created.ID)
	require.NoError(t, err)
	assert.False(t, deactivated.IsActive)

	active, err := svc.List(context.Background(), "t1", true)
	require.NoError(t, err)
	assert.Empty(t, active)

	all, err := svc.List(context.Background(), "t1", false)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestDeleteRemovesTemplate(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store)
	created, err := svc.Create(context.Background(), "t1", "hr-user", validInput())
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), "t1", created.ID))
	_, err = svc.Get(context.Background(), "t1", created.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}
