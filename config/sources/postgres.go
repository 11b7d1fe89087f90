package sources

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/schemabounce/kolumn/dbwizard/config"
	"github.com/schemabounce/kolumn/dbwizard/helpers/logging"
)

// PostgresSource reads a project's configuration XML from a PostgreSQL
// table, for hosts that keep project files in a shared workspace database.
type PostgresSource struct {
	db      *sql.DB
	querier ContentQuerier
	config  *PostgresConfig
}

// ContentQuerier runs the single-row content query of a PostgresSource.
// It returns sql.ErrNoRows when the project has no stored configuration.
type ContentQuerier interface {
	QueryContent(ctx context.Context, query string, project string) (string, error)
}

type dbQuerier struct {
	db *sql.DB
}

func (q dbQuerier) QueryContent(ctx context.Context, query string, project string) (string, error) {
	var content string
	err := q.db.QueryRowContext(ctx, query, project).Scan(&content)
	return content, err
}

// PostgresConfig contains PostgreSQL source configuration
type PostgresConfig struct {
	Host         string `json:"host"`
	Port         int    `json:"port"`
	Database     string `json:"database"`
	Username     string `json:"username"`
	Password     string `json:"password"`
	SSLMode      string `json:"ssl_mode"`
	Schema       string `json:"schema"`
	TableName    string `json:"table_name"`
	Project      string `json:"project"`
	ConnTimeout  int    `json:"conn_timeout"`
	MaxOpenConns int    `json:"max_open_conns"`
}

// NewPostgresSource creates a new PostgreSQL source
func NewPostgresSource() *PostgresSource {
	return &PostgresSource{}
}

// NewPostgresSourceWithQuerier creates a configured source around an
// existing querier.
func NewPostgresSourceWithQuerier(querier ContentQuerier, cfg *PostgresConfig) *PostgresSource {
	return &PostgresSource{querier: querier, config: cfg}
}

// Configure opens and verifies the database connection
func (s *PostgresSource) Configure(ctx context.Context, settings map[string]interface{}) error {
	cfg, err := parsePostgresConfig(settings)
	if err != nil {
		return fmt.Errorf("invalid PostgreSQL configuration: %w", err)
	}

	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return fmt.Errorf("failed to open database connection: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.ConnTimeout > 0 {
		db.SetConnMaxLifetime(time.Duration(cfg.ConnTimeout) * time.Second)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}

	s.db = db
	s.querier = dbQuerier{db: db}
	s.config = cfg
	logging.ConfigLogger.DebugWithFields("postgres configuration source ready",
		"host", cfg.Host, "database", cfg.Database, "table", cfg.qualifiedTable())
	return nil
}

// Load implements config.Loader.
func (s *PostgresSource) Load(ctx context.Context) (*config.Document, error) {
	if s.querier == nil || s.config == nil {
		return nil, fmt.Errorf("source not configured")
	}

	content, err := s.querier.QueryContent(ctx, s.config.selectQuery(), s.config.Project)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w for project %q", config.ErrNotFound, s.config.Project)
		}
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	doc, err := config.ParseString(content)
	if err != nil {
		return nil, fmt.Errorf("project %q: %w", s.config.Project, err)
	}
	return doc, nil
}

// Close releases the database connection
func (s *PostgresSource) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DSN builds the lib/pq connection string.
func (c *PostgresConfig) DSN() string {
	parts := []string{
		"host=" + quoteDSN(c.Host),
		fmt.Sprintf("port=%d", c.Port),
		"dbname=" + quoteDSN(c.Database),
		"user=" + quoteDSN(c.Username),
		"sslmode=" + quoteDSN(c.SSLMode),
	}
	if c.Password != "" {
		parts = append(parts, "password="+quoteDSN(c.Password))
	}
	if c.ConnTimeout > 0 {
		parts = append(parts, fmt.Sprintf("connect_timeout=%d", c.ConnTimeout))
	}
	return strings.Join(parts, " ")
}

func (c *PostgresConfig) qualifiedTable() string {
	return pq.QuoteIdentifier(c.Schema) + "." + pq.QuoteIdentifier(c.TableName)
}

func (c *PostgresConfig) selectQuery() string {
	return fmt.Sprintf(`SELECT content FROM %s WHERE project = $1 ORDER BY updated_at DESC LIMIT 1`, c.qualifiedTable())
}

// quoteDSN quotes a key/value DSN value the way lib/pq parses it.
func quoteDSN(v string) string {
	if v != "" && !strings.ContainsAny(v, ` '\`) {
		return v
	}
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	return "'" + v + "'"
}

func parsePostgresConfig(settings map[string]interface{}) (*PostgresConfig, error) {
	cfg := &PostgresConfig{
		Host:      "localhost",
		Port:      5432,
		SSLMode:   "prefer",
		Schema:    "public",
		TableName: "project_configs",
	}

	stringSetting(settings, "host", &cfg.Host)
	intSetting(settings, "port", &cfg.Port)
	stringSetting(settings, "database", &cfg.Database)
	stringSetting(settings, "username", &cfg.Username)
	stringSetting(settings, "password", &cfg.Password)
	stringSetting(settings, "ssl_mode", &cfg.SSLMode)
	stringSetting(settings, "schema", &cfg.Schema)
	stringSetting(settings, "table_name", &cfg.TableName)
	stringSetting(settings, "project", &cfg.Project)
	intSetting(settings, "conn_timeout", &cfg.ConnTimeout)
	intSetting(settings, "max_open_conns", &cfg.MaxOpenConns)

	if cfg.Database == "" {
		return nil, fmt.Errorf("database name is required")
	}
	if cfg.Username == "" {
		return nil, fmt.Errorf("username is required")
	}
	if cfg.Project == "" {
		return nil, fmt.Errorf("project is required")
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return nil, fmt.Errorf("invalid port number: %d", cfg.Port)
	}
	return cfg, nil
}
