package authz

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAdminSet(t *testing.T) {
	s := NewAdminSet([]string{" root ", "", "ops"})

	assert.Equal(t, 2, s.Len())
	assert.True(t, s.IsAdmin("root"))
	assert.True(t, s.IsAdmin("ops"))
	assert.False(t, s.IsAdmin("alice"))
	assert.False(t, s.IsAdmin(""))

	var empty *AdminSet
	assert.False(t, empty.IsAdmin("root"))
}
