package assessment

import (
	"fmt"
	"sort"

	"github.com/kaytu-io/kaytu-assessor/pkg/types"
	"go.uber.org/zap"
)

// Registry maps control family codes to handlers. It is built once and read
// concurrently afterwards.
type Registry[T any] struct {
	kind     string
	handlers map[string]T
	logger   *zap.Logger
}

func NewRegistry[T any](logger *zap.Logger, kind string, defaultHandler T, handlers map[string]T) (*Registry[T], error) {
	r := &Registry[T]{
		kind:     kind,
		handlers: map[string]T{types.DefaultFamily: defaultHandler},
		logger:   logger.Named(kind + "-registry"),
	}
	for code, h := range handlers {
		code = types.NormalizeFamilyCode(code)
		if code == "" || code == types.NormalizeFamilyCode(types.DefaultFamily) || code == types.NormalizeFamilyCode(types.AllFamilies) {
			return nil, fmt.Errorf("invalid %s family code %q", kind, code)
		}
		r.handlers[code] = h
	}
	return r, nil
}

// Resolve returns the handler of the family or the default handler.
func (r *Registry[T]) Resolve(family string) T {
	if h, ok := r.lookup(family); ok {
		return h
	}
	r.logger.Warn("no handler registered for control family, using default",
		zap.String("kind", r.kind),
		zap.String("family", family),
	)
	return r.handlers[types.DefaultFamily]
}

func (r *Registry[T]) Has(family string) bool {
	_, ok := r.lookup(family)
	return ok
}

func (r *Registry[T]) lookup(family string) (T, bool) {
	code := types.NormalizeFamilyCode(family)
	if code == "" || code == types.NormalizeFamilyCode(types.DefaultFamily) {
		var zero T
		return zero, false
	}
	h, ok := r.handlers[code]
	return h, ok
}

// Registered lists every family code except Default, catalog families first.
func (r *Registry[T]) Registered() []string {
	var codes, extra []string
	for _, f := range types.ControlFamilies {
		if _, ok := r.handlers[f.Code]; ok {
			codes = append(codes, f.Code)
		}
	}
	for code := range r.handlers {
		if code == types.DefaultFamily || types.FamilyIndex(code) >= 0 {
			continue
		}
		extra = append(extra, code)
	}
	sort.Strings(extra)
	return append(codes, extra...)
}
