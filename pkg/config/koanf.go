package config

import (
	"fmt"
	"log"
	"strings"

	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// Load reads def as the defaults and overrides them from the environment.
// Variables are prefixed with the upper-cased service name and nested keys are
// separated by a double underscore, e.g. ASSESSOR_POSTGRES__HOST.
func Load[T any](service string, def T) (T, error) {
	var instance T
	k := koanf.New(".")

	if err := k.Load(structs.Provider(def, "koanf"), nil); err != nil {
		return instance, fmt.Errorf("failed to load defaults: %w", err)
	}

	prefix := strings.ToUpper(service) + "_"
	if err := k.Load(env.Provider(prefix, ".", func(source string) string {
		key := strings.ToLower(strings.TrimPrefix(source, prefix))
		return strings.ReplaceAll(key, "__", ".")
	}), nil); err != nil {
		return instance, fmt.Errorf("failed to load environment: %w", err)
	}

	if err := k.Unmarshal("", &instance); err != nil {
		return instance, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return instance, nil
}

func Provide[T any](service string, def T) T {
	instance, err := Load(service, def)
	if err != nil {
		log.Fatalf("%s config: %s", service, err)
	}
	return instance
}
