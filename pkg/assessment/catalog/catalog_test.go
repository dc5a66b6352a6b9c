package catalog

import (
	"context"
	"testing"
	"testing/fstest"

	"github.com/kaytu-io/kaytu-assessor/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalogCoversEveryFamily(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	for _, family := range types.ControlFamilies {
		controls, err := c.GetControlsByFamily(context.Background(), family.Code)
		require.NoError(t, err)
		assert.NotEmpty(t, controls, family.Code)
		for _, control := range controls {
			assert.Equal(t, family.Code, control.Family)
			assert.NotEmpty(t, control.Title)
		}
	}
}

func TestLoad(t *testing.T) {
	fsys := fstest.MapFS{
		"ac.yaml": {Data: []byte(`
family: ac
controls:
  - id: ac-2
    title: Account Management
    severity: Info
`)},
		"README.md": {Data: []byte("ignored")},
	}

	c, err := Load(fsys)
	require.NoError(t, err)
	assert.Equal(t, []string{"AC"}, c.Families())

	controls, err := c.GetControlsByFamily(context.Background(), " ac ")
	require.NoError(t, err)
	require.Len(t, controls, 1)
	assert.Equal(t, "AC-2", controls[0].ID)
	assert.Equal(t, types.FindingSeverityInformational, controls[0].Severity)

	controls[0].Title = "changed"
	again, _ := c.GetControlsByFamily(context.Background(), "AC")
	assert.Equal(t, "Account Management", again[0].Title)

	unknown, err := c.GetControlsByFamily(context.Background(), "ZZ")
	require.NoError(t, err)
	assert.Empty(t, unknown)
}

func TestLoadRejectsInvalidFiles(t *testing.T) {
	for name, content := range map[string]string{
		"missing family":   "controls:\n  - id: AC-2\n",
		"missing id":       "family: AC\ncontrols:\n  - title: x\n",
		"invalid severity": "family: AC\ncontrols:\n  - id: AC-2\n    severity: severe\n",
		"duplicate":        "family: AC\ncontrols:\n  - id: AC-2\n  - id: ac-2\n",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Load(fstest.MapFS{"f.yaml": {Data: []byte(content)}})
			assert.Error(t, err)
		})
	}
}
