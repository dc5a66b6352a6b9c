package postgres

import (
	"errors"
	"fmt"
	"time"

	"github.com/kaytu-io/kaytu-assessor/pkg/config"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	gormprom "gorm.io/plugin/prometheus"
	"moul.io/zapgorm2"
)

const (
	defaultMaxOpenConns = 25
	defaultMaxIdleConns = 10
	defaultMaxLifetime  = 5 * time.Minute
	defaultSSLMode      = "disable"
)

func validateConfig(cfg *config.Postgres) error {
	if cfg.Host == "" {
		return errors.New("postgres host is empty")
	}
	if cfg.Port == "" {
		return errors.New("postgres port is empty")
	}
	if cfg.Username == "" {
		return errors.New("postgres user is empty")
	}
	if cfg.Password == "" {
		return errors.New("postgres password is empty")
	}
	if cfg.DB == "" {
		return errors.New("postgres db is empty")
	}

	if cfg.SSLMode == "" {
		cfg.SSLMode = defaultSSLMode
	}
	if cfg.MaxOpenConns == 0 {
		cfg.MaxOpenConns = defaultMaxOpenConns
	}
	if cfg.MaxIdleConns == 0 {
		cfg.MaxIdleConns = defaultMaxIdleConns
	}
	if cfg.ConnMaxLifetime == 0 {
		cfg.ConnMaxLifetime = defaultMaxLifetime
	}
	return nil
}

func DSN(cfg config.Postgres) string {
	return fmt.Sprintf(`host=%s port=%s user=%s password=%s dbname=%s sslmode=%s TimeZone=GMT`,
		cfg.Host,
		cfg.Port,
		cfg.Username,
		cfg.Password,
		cfg.DB,
		cfg.SSLMode,
	)
}

// NewClient opens a gorm connection that logs through zap and exports the
// connection pool statistics
//
// gorm_dbstats_max_open_connections: Maximum number of open connections to the database.
// gorm_dbstats_open_connections: The number of established connections both in use and idle.
// gorm_dbstats_in_use: The number of connections currently in use.
// gorm_dbstats_idle: The number of idle connections.
// gorm_dbstats_wait_count: The total number of connections waited for.
// gorm_dbstats_wait_duration: The total time blocked waiting for a new connection.
// gorm_dbstats_max_idle_closed: The total number of connections closed due to SetMaxIdleConns.
// gorm_dbstats_max_lifetime_closed: The total number of connections closed due to SetConnMaxLifetime.
func NewClient(cfg config.Postgres, logger *zap.Logger) (*gorm.DB, error) {
	if logger == nil {
		return nil, errors.New("logger is nil")
	}
	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}

	orm, err := gorm.Open(postgres.Open(DSN(cfg)), &gorm.Config{
		Logger: zapgorm2.New(logger.Named("gorm")).LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("gorm open: %w", err)
	}

	metrics := gormprom.New(gormprom.Config{
		DBName: cfg.DB,
	})
	if err := metrics.Initialize(orm); err != nil {
		return nil, fmt.Errorf("init gorm prometheus: %w", err)
	}
	for _, collector := range metrics.Collectors {
		if err := prometheus.Register(collector); err != nil {
			logger.Warn("failed to register gorm collector", zap.Error(err))
		}
	}

	db, err := orm.DB()
	if err != nil {
		return nil, fmt.Errorf("raw db: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping db: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	return orm, nil
}
