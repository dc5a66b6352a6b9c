package catalog

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/kaytu-io/kaytu-assessor/pkg/assessment/api"
	"github.com/kaytu-io/kaytu-assessor/pkg/types"
)

//go:embed controls/*.yaml
var defaultControls embed.FS

type familyFile struct {
	Family   string        `yaml:"family"`
	Controls []api.Control `yaml:"controls"`
}

// Catalog serves controls parsed from yaml files, one family per file.
type Catalog struct {
	controls map[string][]api.Control
}

func Default() (*Catalog, error) {
	sub, err := fs.Sub(defaultControls, "controls")
	if err != nil {
		return nil, err
	}
	return Load(sub)
}

func LoadDirectory(dir string) (*Catalog, error) {
	return Load(os.DirFS(dir))
}

func Load(fsys fs.FS) (*Catalog, error) {
	c := &Catalog{controls: map[string][]api.Control{}}
	seen := map[string]string{}

	err := fs.WalkDir(fsys, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !(strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml")) {
			return nil
		}

		content, err := fs.ReadFile(fsys, path)
		if err != nil {
			return err
		}
		var file familyFile
		if err := yaml.Unmarshal(content, &file); err != nil {
			return fmt.Errorf("failed to parse %s: %w", path, err)
		}

		family := types.NormalizeFamilyCode(file.Family)
		if family == "" {
			return fmt.Errorf("%s: family is required", path)
		}
		for _, control := range file.Controls {
			control.ID = strings.ToUpper(strings.TrimSpace(control.ID))
			if control.ID == "" {
				return fmt.Errorf("%s: control without id", path)
			}
			if other, ok := seen[control.ID]; ok {
				return fmt.Errorf("%s: control %s already defined in %s", path, control.ID, other)
			}
			seen[control.ID] = path
			control.Family = family
			if control.Severity != "" {
				sev := types.ParseFindingSeverity(string(control.Severity))
				if sev == "" {
					return fmt.Errorf("%s: control %s has invalid severity %q", path, control.ID, control.Severity)
				}
				control.Severity = sev
			}
			c.controls[family] = append(c.controls[family], control)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// GetControlsByFamily returns a copy of the family's controls. Unknown
// families have no controls.
func (c *Catalog) GetControlsByFamily(_ context.Context, family string) ([]api.Control, error) {
	controls := c.controls[types.NormalizeFamilyCode(family)]
	result := make([]api.Control, len(controls))
	copy(result, controls)
	return result, nil
}

func (c *Catalog) Families() []string {
	families := make([]string, 0, len(c.controls))
	for f := range c.controls {
		families = append(families, f)
	}
	sort.Strings(families)
	return families
}
