package seed

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/99minutos/rbac-system/internal/core/domain"
)

func TestDefault(t *testing.T) {
	f, err := Default()
	require.NoError(t, err)

	keys := make(map[string]bool)
	for _, p := range f.Permissions {
		keys[p.Key] = true
	}
	for _, scope := range domain.AdminScopes() {
		assert.True(t, keys[scope], "missing admin scope %s", scope)
	}

	require.NotNil(t, f.Admin)
	assert.Equal(t, "admin", f.Admin.Username)
	assert.Empty(t, f.Admin.Password)

	var defaults int
	for _, r := range f.Roles {
		if r.Default {
			defaults++
		}
	}
	assert.Equal(t, 1, defaults)
}

func TestParse_Rejects(t *testing.T) {
	cases := map[string]string{
		"bad permission type": `
permissions:
  - {key: "a", name: "a", type: WIDGET}`,
		"unknown parent": `
menus:
  - {id: a, path: /a, parent: b}`,
		"menu cycle": `
menus:
  - {id: a, path: /a, parent: b}
  - {id: b, path: /b, parent: a}`,
		"bad role key": `
roles:
  - {key: "has space", name: x}`,
		"unknown permission on role": `
roles:
  - {key: ops, name: ops, permissions: [missing]}`,
		"unknown admin role": `
admin: {username: root, roles: [nope]}`,
	}

	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrValidation)
		})
	}
}

func TestParse_Malformed(t *testing.T) {
	_, err := Parse([]byte("roles: ["))
	require.Error(t, err)
}

func TestPick(t *testing.T) {
	ids := map[string]string{"a": "1", "b": "2", "c": "3"}

	assert.Equal(t, []string{"1", "3"}, pick([]string{"a", "missing", "c"}, ids))

	all := pick([]string{"a", Wildcard}, ids)
	sort.Strings(all)
	assert.Equal(t, []string{"1", "2", "3"}, all)

	assert.Empty(t, pick(nil, ids))
}
