package assessment

import (
	"context"
	"fmt"
	"strings"

	"github.com/kaytu-io/kaytu-assessor/pkg/assessment/api"
	"github.com/kaytu-io/kaytu-assessor/pkg/types"
)

// GetControls lists the catalog controls of the families, or of every catalog
// family when none is given.
func (e *Engine) GetControls(ctx context.Context, families ...string) ([]api.Control, error) {
	var codes []string
	for _, f := range families {
		if f = strings.TrimSpace(f); f != "" {
			codes = append(codes, f)
		}
	}
	if len(codes) == 0 {
		for _, f := range types.ControlFamilies {
			codes = append(codes, f.Code)
		}
	}

	controls := []api.Control{}
	for _, f := range codes {
		c, err := e.catalog.GetControlsByFamily(ctx, f)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch controls of %s: %w", f, err)
		}
		controls = append(controls, c...)
	}
	return controls, nil
}
