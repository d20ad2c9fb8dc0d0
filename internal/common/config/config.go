package config

import "fmt"

type Config struct {
	App           AppConfig          `mapstructure:"app"`
	Server        ServerConfig       `mapstructure:"server"`
	Database      DatabaseConfig     `mapstructure:"database"`
	Search        SearchConfig       `mapstructure:"search"`
	Camunda       CamundaConfig      `mapstructure:"camunda"`
	Intake        IntakeConfig       `mapstructure:"intake"`
	Notifications NotificationConfig `mapstructure:"notifications"`
	CRM           CRMConfig          `mapstructure:"crm"`
	Logging       LoggingConfig      `mapstructure:"logging"`
}

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type ServerConfig struct {
	Address         string `mapstructure:"address"`
	ReadTimeout     int    `mapstructure:"read_timeout"`     // milliseconds
	WriteTimeout    int    `mapstructure:"write_timeout"`    // milliseconds
	ShutdownTimeout int    `mapstructure:"shutdown_timeout"` // milliseconds
}

type DatabaseConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type RedisConfig struct {
	Address     string `mapstructure:"address"`
	Password    string `mapstructure:"password"`
	DB          int    `mapstructure:"db"`
	PoolSize    int    `mapstructure:"pool_size"`
	DialTimeout int    `mapstructure:"dial_timeout"` // milliseconds
	OpTimeout   int    `mapstructure:"op_timeout"`   // milliseconds, read and write
}

type SearchConfig struct {
	Enabled       bool                `mapstructure:"enabled"`
	Index         string              `mapstructure:"index"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
}

type ElasticsearchConfig struct {
	Addresses []string `mapstructure:"addresses"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
	URL       string   `mapstructure:"url"`
}

func (e ElasticsearchConfig) GetURL() string {
	if e.URL != "" {
		return e.URL
	}
	if len(e.Addresses) > 0 {
		return e.Addresses[0]
	}
	return ""
}

type CamundaConfig struct {
	Enabled         bool   `mapstructure:"enabled"`
	BrokerAddress   string `mapstructure:"broker_address"`
	RequestTimeout  int    `mapstructure:"request_timeout"` // milliseconds
	ReviewProcessID string `mapstructure:"review_process_id"`
}

// IntakeConfig drives the application intake flow itself.
type IntakeConfig struct {
	// DraftBackend is memory, file or redis.
	DraftBackend string `mapstructure:"draft_backend"`
	DraftDir     string `mapstructure:"draft_dir"`
	DraftTTL     int    `mapstructure:"draft_ttl"` // milliseconds, 0 keeps drafts forever

	// StorageBackend is postgres or rest.
	StorageBackend string     `mapstructure:"storage_backend"`
	REST           RESTConfig `mapstructure:"rest"`

	SubmitTimeout   int `mapstructure:"submit_timeout"`   // milliseconds
	FollowupTimeout int `mapstructure:"followup_timeout"` // milliseconds
	ResponseDays    int `mapstructure:"response_days"`
	SessionIdle     int `mapstructure:"session_idle"` // milliseconds
}

type RESTConfig struct {
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`
	Table   string `mapstructure:"table"`
}

type NotificationConfig struct {
	AWS struct {
		Region string `mapstructure:"region"`
	} `mapstructure:"aws"`
	SES struct {
		Enabled   bool   `mapstructure:"enabled"`
		FromEmail string `mapstructure:"from_email"`
	} `mapstructure:"ses"`
	SNS struct {
		Enabled  bool   `mapstructure:"enabled"`
		TopicARN string `mapstructure:"topic_arn"`
	} `mapstructure:"sns"`
}

// CRMConfig points the lead follow-up at Zoho CRM.
type CRMConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	BaseURL    string `mapstructure:"base_url"`
	OAuthToken string `mapstructure:"oauth_token"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
