package assessment

import (
	"time"

	"github.com/kaytu-io/kaytu-assessor/pkg/config"
)

type CatalogConfig struct {
	// Directory of yaml control files. The built-in catalog is used when
	// neither Directory nor Service is set.
	Directory string              `json:"directory" koanf:"directory"`
	Service   config.KaytuService `json:"service" koanf:"service"`
}

type CacheConfig struct {
	MaxTenants int64         `json:"maxTenants" koanf:"max_tenants"`
	TTL        time.Duration `json:"ttl" koanf:"ttl"`
}

type ScannerConfig struct {
	AllowedLocations []string `json:"allowedLocations" koanf:"allowed_locations"`
}

type Config struct {
	Postgres config.Postgres   `json:"postgres" koanf:"postgres"`
	Http     config.HttpServer `json:"http" koanf:"http"`
	Tracing  config.Tracing    `json:"tracing" koanf:"tracing"`

	Azure   config.Azure  `json:"azure" koanf:"azure"`
	Catalog CatalogConfig `json:"catalog" koanf:"catalog"`
	Cache   CacheConfig   `json:"cache" koanf:"cache"`
	Scanner ScannerConfig `json:"scanner" koanf:"scanner"`

	// Progress events are published when NATS.URL is set.
	NATS config.NATS `json:"nats" koanf:"nats"`
	// Evidence packages are archived to every configured target.
	AzBlob config.AzBlob `json:"azblob" koanf:"azblob"`
	S3     config.S3     `json:"s3" koanf:"s3"`
}

func DefaultConfig() Config {
	return Config{
		Postgres: config.Postgres{
			Host:         "localhost",
			Port:         "5432",
			DB:           "assessor",
			Username:     "assessor",
			SSLMode:      "disable",
			MaxOpenConns: 25,
			MaxIdleConns: 10,
		},
		Http: config.HttpServer{
			Address: "localhost:7251",
		},
		Tracing: config.Tracing{
			ServiceName: "assessment-service",
		},
		Cache: CacheConfig{
			MaxTenants: 1000,
			TTL:        ResourceCacheTTL,
		},
		NATS: config.NATS{
			Subject: "assessor.progress",
		},
	}
}
