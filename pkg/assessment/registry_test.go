package assessment

import (
	"testing"

	"github.com/kaytu-io/kaytu-assessor/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRegistryResolve(t *testing.T) {
	r, err := NewRegistry[string](zap.NewNop(), "scanner", "default", map[string]string{
		"ac": "access-control",
		"ZZ": "custom",
		"AU": "audit",
	})
	require.NoError(t, err)

	assert.Equal(t, "access-control", r.Resolve("AC"))
	assert.Equal(t, "access-control", r.Resolve(" ac "))
	assert.Equal(t, "default", r.Resolve("SC"))
	assert.Equal(t, "default", r.Resolve(""))
	assert.Equal(t, "default", r.Resolve(types.DefaultFamily))

	assert.True(t, r.Has("au"))
	assert.False(t, r.Has("SC"))
	assert.False(t, r.Has(types.DefaultFamily))

	assert.Equal(t, []string{"AC", "AU", "ZZ"}, r.Registered())
}

func TestRegistryRejectsReservedCodes(t *testing.T) {
	_, err := NewRegistry[string](zap.NewNop(), "collector", "default", map[string]string{"all": "x"})
	assert.Error(t, err)

	_, err = NewRegistry[string](zap.NewNop(), "collector", "default", map[string]string{"default": "x"})
	assert.Error(t, err)
}
