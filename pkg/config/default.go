package config

import "time"

type Postgres struct {
	Host     string `json:"host" koanf:"host"`
	Port     string `json:"port" koanf:"port"`
	DB       string `json:"db" koanf:"db"`
	Username string `json:"username" koanf:"username"`
	Password string `json:"password" koanf:"password"`
	SSLMode  string `json:"sslMode" koanf:"sslmode"`

	MaxOpenConns    int           `json:"maxOpenConns" koanf:"max_open_conns"`
	MaxIdleConns    int           `json:"maxIdleConns" koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `json:"connMaxLifetime" koanf:"conn_max_lifetime"`
}

type KaytuService struct {
	BaseURL string `json:"baseURL" koanf:"base_url"`
}

type HttpServer struct {
	Address string `json:"address" koanf:"address"`
}

type Tracing struct {
	AgentHost   string `json:"agentHost" koanf:"agent_host"`
	ServiceName string `json:"serviceName" koanf:"service_name"`
}

type NATS struct {
	URL     string `json:"url" koanf:"url"`
	Subject string `json:"subject" koanf:"subject"`
}

type AzBlob struct {
	AccountURL string `json:"accountUrl" koanf:"account_url"`
	Container  string `json:"container" koanf:"container"`
}

// S3 uses the default AWS credential chain unless both keys are set.
type S3 struct {
	Bucket       string `json:"bucket" koanf:"bucket"`
	Region       string `json:"region" koanf:"region"`
	Prefix       string `json:"prefix" koanf:"prefix"`
	AccessKey    string `json:"accessKey" koanf:"access_key"`
	AccessSecret string `json:"accessSecret" koanf:"access_secret"`
}

// Azure holds service principal credentials. When ClientSecret is empty the
// default credential chain of the environment is used.
type Azure struct {
	TenantID     string `json:"tenantId" koanf:"tenant_id"`
	ClientID     string `json:"clientId" koanf:"client_id"`
	ClientSecret string `json:"clientSecret" koanf:"client_secret"`
}
