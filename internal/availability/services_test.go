package availability

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestServiceResolverResolve(t *testing.T) {
	r := NewServiceResolver(nil)

	tests := []struct {
		in     string
		wantID string
		wantOK bool
	}{
		{"Fade ", ServiceSkinFade, true},
		{"skin fade", ServiceSkinFade, true},
		{"BEARD", ServiceGrooming, true},
		{"shampoo", ServiceWash, true},
		{"haircut deluxe", "", false},
		{"", "", false},
		{"65ee2a0d-e995-4d8d-a286-ac150106994b", ServiceGrooming, true},
		{"aaaaaaaa-bbbb-cccc-dddd-eeeeeeeeeeee", "aaaaaaaa-bbbb-cccc-dddd-eeeeeeeeeeee", true},
		// hyphenated but too short to be an id
		{"beard-trim", "", false},
	}
	for _, tt := range tests {
		id, ok := r.Resolve(tt.in)
		assert.Equal(t, tt.wantOK, ok, "Resolve(%q)", tt.in)
		assert.Equal(t, tt.wantID, id, "Resolve(%q)", tt.in)
	}
}

func TestServiceResolverResolveAll(t *testing.T) {
	r := NewServiceResolver(nil)
	got := r.ResolveAll([]string{"wash", "haircut deluxe", "beard", "shampoo", "Grooming"})
	assert.Equal(t, []string{ServiceWash, ServiceGrooming}, got)

	assert.Empty(t, r.ResolveAll(nil))
}

func TestServiceResolverCustomTable(t *testing.T) {
	r := NewServiceResolver(map[string]string{" Hot Towel ": "towel-id"})
	id, ok := r.Resolve("hot towel")
	assert.True(t, ok)
	assert.Equal(t, "towel-id", id)

	_, ok = r.Resolve("wash")
	assert.False(t, ok, "custom table replaces the defaults")
}
