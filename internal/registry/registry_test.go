// File: internal/registry/registry_test.go
package registry_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/codewarden/warden-cli/api/schemas"
	"github.com/codewarden/warden-cli/internal/registry"
)

// stubRule is a minimal Rule implementation for registry tests.
type stubRule struct {
	meta schemas.RuleMeta
}

func (s stubRule) Meta() schemas.RuleMeta { return s.meta }

func (s stubRule) Check(ctx context.Context, rc *schemas.RuleContext) ([]schemas.Violation, error) {
	return nil, nil
}

func newStub(id string, opts ...func(*schemas.RuleMeta)) stubRule {
	meta := schemas.RuleMeta{
		ID:       id,
		Name:     "Stub " + id,
		Category: schemas.CategoryStyle,
		Severity: schemas.SeverityLow,
	}
	for _, opt := range opts {
		opt(&meta)
	}
	return stubRule{meta: meta}
}

func TestRegisterValidation(t *testing.T) {
	t.Parallel()
	testCases := []struct {
		name    string
		rule    schemas.Rule
		wantErr string
	}{
		{"nil rule", nil, "nil"},
		{"missing id", newStub(""), "id"},
		{"missing name", newStub("r1", func(m *schemas.RuleMeta) { m.Name = "" }), "name"},
		{"bad category", newStub("r1", func(m *schemas.RuleMeta) { m.Category = "Nope" }), "category"},
		{"bad severity", newStub("r1", func(m *schemas.RuleMeta) { m.Severity = "NOPE" }), "severity"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			reg := registry.New(zaptest.NewLogger(t))
			err := reg.Register(tc.rule)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
			assert.Zero(t, reg.Len(), "failed registration must not store anything")
		})
	}
}

func TestRegisterDuplicateID(t *testing.T) {
	t.Parallel()
	reg := registry.New(zaptest.NewLogger(t))

	require.NoError(t, reg.Register(newStub("dup")))
	err := reg.Register(newStub("dup"))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
	assert.Equal(t, 1, reg.Len(), "registry must retain exactly one entry for the id")
}

func TestRegisterManyStopsAtFirstFailure(t *testing.T) {
	t.Parallel()
	reg := registry.New(zaptest.NewLogger(t))

	err := reg.RegisterMany(
		newStub("a"),
		newStub(""), // invalid, stops the batch
		newStub("c"),
	)

	require.Error(t, err)
	assert.True(t, reg.Has("a"), "rules before the failure stay registered")
	assert.False(t, reg.Has("c"), "rules after the failure are never reached")
}

func TestLookups(t *testing.T) {
	t.Parallel()
	reg := registry.New(zaptest.NewLogger(t))
	require.NoError(t, reg.RegisterMany(
		newStub("sec-1", func(m *schemas.RuleMeta) { m.Category = schemas.CategorySecurity }),
		newStub("style-1"),
		newStub("sec-2", func(m *schemas.RuleMeta) { m.Category = schemas.CategorySecurity }),
	))

	rule, ok := reg.Get("sec-1")
	require.True(t, ok)
	assert.Equal(t, "sec-1", rule.Meta().ID)

	_, ok = reg.Get("missing")
	assert.False(t, ok)

	all := reg.All()
	require.Len(t, all, 3)
	// Registration order is preserved so runs are deterministic.
	assert.Equal(t, "sec-1", all[0].Meta().ID)
	assert.Equal(t, "style-1", all[1].Meta().ID)
	assert.Equal(t, "sec-2", all[2].Meta().ID)

	security := reg.ByCategory(schemas.CategorySecurity)
	require.Len(t, security, 2)
	assert.Equal(t, "sec-1", security[0].Meta().ID)
	assert.Equal(t, "sec-2", security[1].Meta().ID)
}

func TestByFramework(t *testing.T) {
	t.Parallel()
	reg := registry.New(zaptest.NewLogger(t))
	require.NoError(t, reg.RegisterMany(
		newStub("universal"),
		newStub("react-only", func(m *schemas.RuleMeta) { m.Frameworks = []string{"react"} }),
		newStub("server-only", func(m *schemas.RuleMeta) { m.Frameworks = []string{"express", "koa"} }),
	))

	ids := func(rules []schemas.Rule) []string {
		out := make([]string, len(rules))
		for i, r := range rules {
			out[i] = r.Meta().ID
		}
		return out
	}

	// Unrestricted rules always match, restricted ones need the framework.
	assert.Equal(t, []string{"universal", "react-only"}, ids(reg.ByFramework("react")))
	assert.Equal(t, []string{"universal", "server-only"}, ids(reg.ByFramework("koa")))
	assert.Equal(t, []string{"universal"}, ids(reg.ByFramework("django")))
}

func TestAllWithStatus(t *testing.T) {
	t.Parallel()
	reg := registry.New(zaptest.NewLogger(t))
	require.NoError(t, reg.RegisterMany(newStub("on"), newStub("off")))

	statuses := reg.AllWithStatus([]string{"off", "never-registered"})
	require.Len(t, statuses, 2)
	assert.False(t, statuses[0].Disabled)
	assert.True(t, statuses[1].Disabled)

	// The disabled annotation is derived per call, not written back.
	again := reg.AllWithStatus(nil)
	assert.False(t, again[1].Disabled)
}

func TestUnregisterIsIdempotent(t *testing.T) {
	t.Parallel()
	reg := registry.New(zaptest.NewLogger(t))
	require.NoError(t, reg.Register(newStub("gone")))

	reg.Unregister("gone")
	assert.False(t, reg.Has("gone"))
	assert.Empty(t, reg.All())

	// Second removal and unknown ids are no-ops.
	reg.Unregister("gone")
	reg.Unregister("never-there")
	assert.Zero(t, reg.Len())
}
