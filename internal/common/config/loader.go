package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"chainspace-intake/internal/common/validation"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	DraftBackendMemory = "memory"
	DraftBackendFile   = "file"
	DraftBackendRedis  = "redis"

	StorageBackendPostgres = "postgres"
	StorageBackendREST     = "rest"
)

// Load reads configs/config.yaml, merges config.<APP_ENVIRONMENT>.yaml on top
// and lets environment variables override any key (database.postgres.host ->
// DATABASE_POSTGRES_HOST).
func Load() (*Config, error) {
	loadEnvFile()

	v := newViper()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath("../../configs")
	v.AddConfigPath(".")

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	v.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = v.MergeInConfig() // the overlay is optional

	return finish(v)
}

// LoadFromFile reads a single config file; environment overrides still apply.
func LoadFromFile(path string) (*Config, error) {
	loadEnvFile()

	v := newViper()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	return finish(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

func finish(v *viper.Viper) (*Config, error) {
	expandEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	overrideEmptyConfig(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func loadEnvFile() {
	possiblePaths := []string{".env", "../.env", "../../.env", "../../../.env"}
	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// expandEnvVars resolves ${VAR} references left in string values.
func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		strVal, ok := v.Get(key).(string)
		if !ok {
			continue
		}
		if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
			if expanded := os.ExpandEnv(strVal); expanded != strVal && expanded != "" {
				v.Set(key, expanded)
			}
		}
	}
}

// overrideEmptyConfig fills secrets from their conventional variable names
// when the file leaves them blank.
func overrideEmptyConfig(cfg *Config) {
	fill := func(dst *string, envKey string) {
		if *dst == "" {
			if val := os.Getenv(envKey); val != "" {
				*dst = val
			}
		}
	}
	fill(&cfg.Database.Postgres.User, "DB_USER")
	fill(&cfg.Database.Postgres.Password, "DB_PASSWORD")
	fill(&cfg.Database.Redis.Password, "REDIS_PASSWORD")
	fill(&cfg.Intake.REST.BaseURL, "STORAGE_API_URL")
	fill(&cfg.Intake.REST.APIKey, "STORAGE_API_KEY")
	fill(&cfg.Notifications.SNS.TopicARN, "STAFF_ALERT_TOPIC_ARN")
	fill(&cfg.CRM.OAuthToken, "ZOHO_OAUTH_TOKEN")
}

func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "chainspace-intake"
	}
	if cfg.App.Environment == "" {
		cfg.App.Environment = "development"
	}
	if cfg.Server.Address == "" {
		cfg.Server.Address = ":8080"
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 10000
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 30000
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 15000
	}
	if cfg.Database.Postgres.Port == 0 {
		cfg.Database.Postgres.Port = 5432
	}
	if cfg.Database.Postgres.MaxConnections == 0 {
		cfg.Database.Postgres.MaxConnections = 25
	}
	if cfg.Database.Postgres.MaxIdle == 0 {
		cfg.Database.Postgres.MaxIdle = 5
	}
	if cfg.Database.Postgres.SSLMode == "" {
		cfg.Database.Postgres.SSLMode = "disable"
	}
	if cfg.Database.Redis.PoolSize == 0 {
		cfg.Database.Redis.PoolSize = 10
	}
	if cfg.Database.Redis.DialTimeout == 0 {
		cfg.Database.Redis.DialTimeout = 5000
	}
	if cfg.Database.Redis.OpTimeout == 0 {
		cfg.Database.Redis.OpTimeout = 3000
	}
	if cfg.Search.Index == "" {
		cfg.Search.Index = "applications"
	}
	if cfg.Search.Elasticsearch.URL == "" && len(cfg.Search.Elasticsearch.Addresses) > 0 {
		cfg.Search.Elasticsearch.URL = cfg.Search.Elasticsearch.Addresses[0]
	}
	if cfg.Camunda.RequestTimeout == 0 {
		cfg.Camunda.RequestTimeout = 30000
	}
	if cfg.Camunda.ReviewProcessID == "" {
		cfg.Camunda.ReviewProcessID = "application-review"
	}
	if cfg.Intake.DraftBackend == "" {
		cfg.Intake.DraftBackend = DraftBackendMemory
	}
	if cfg.Intake.DraftDir == "" {
		cfg.Intake.DraftDir = "./data/drafts"
	}
	if cfg.Intake.StorageBackend == "" {
		cfg.Intake.StorageBackend = StorageBackendPostgres
	}
	if cfg.Intake.REST.Table == "" {
		cfg.Intake.REST.Table = "applications"
	}
	if cfg.Intake.SubmitTimeout == 0 {
		cfg.Intake.SubmitTimeout = 15000
	}
	if cfg.Intake.FollowupTimeout == 0 {
		cfg.Intake.FollowupTimeout = 10000
	}
	if cfg.Intake.ResponseDays == 0 {
		cfg.Intake.ResponseDays = 7
	}
	if cfg.Intake.SessionIdle == 0 {
		cfg.Intake.SessionIdle = 3600000
	}
	if cfg.Notifications.AWS.Region == "" {
		cfg.Notifications.AWS.Region = "eu-west-1"
	}
	if cfg.CRM.BaseURL == "" {
		cfg.CRM.BaseURL = "https://www.zohoapis.com/crm/v3"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}
}

func validateConfig(cfg *Config) error {
	switch cfg.Intake.DraftBackend {
	case DraftBackendMemory:
	case DraftBackendFile:
		if cfg.Intake.DraftDir == "" {
			return fmt.Errorf("intake.draft_dir is required for the file draft backend")
		}
	case DraftBackendRedis:
		if cfg.Database.Redis.Address == "" {
			return fmt.Errorf("database.redis.address is required for the redis draft backend")
		}
	default:
		return fmt.Errorf("intake.draft_backend must be memory, file or redis, got %q", cfg.Intake.DraftBackend)
	}

	switch cfg.Intake.StorageBackend {
	case StorageBackendPostgres:
		if cfg.Database.Postgres.Host == "" {
			return fmt.Errorf("database.postgres.host is required")
		}
		if cfg.Database.Postgres.Database == "" {
			return fmt.Errorf("database.postgres.database is required")
		}
		if cfg.Database.Postgres.User == "" {
			return fmt.Errorf("database.postgres.user is required")
		}
	case StorageBackendREST:
		if !validation.ValidateURL(cfg.Intake.REST.BaseURL) {
			return fmt.Errorf("intake.rest.base_url must be an absolute URL, got %q", cfg.Intake.REST.BaseURL)
		}
	default:
		return fmt.Errorf("intake.storage_backend must be postgres or rest, got %q", cfg.Intake.StorageBackend)
	}

	if cfg.Search.Enabled && cfg.Search.Elasticsearch.GetURL() == "" {
		return fmt.Errorf("search.elasticsearch.addresses or url is required when search is enabled")
	}
	if cfg.Camunda.Enabled && cfg.Camunda.BrokerAddress == "" {
		return fmt.Errorf("camunda.broker_address is required when camunda is enabled")
	}
	if cfg.Notifications.SES.Enabled && !validation.ValidateEmail(cfg.Notifications.SES.FromEmail) {
		return fmt.Errorf("notifications.ses.from_email must be a valid address, got %q", cfg.Notifications.SES.FromEmail)
	}
	if cfg.Notifications.SNS.Enabled && cfg.Notifications.SNS.TopicARN == "" {
		return fmt.Errorf("notifications.sns.topic_arn is required when sns is enabled")
	}
	if cfg.CRM.Enabled && cfg.CRM.OAuthToken == "" {
		return fmt.Errorf("crm.oauth_token is required when crm is enabled")
	}
	// the idle sweep ticks at a quarter of this
	if cfg.Intake.SessionIdle < 1000 {
		return fmt.Errorf("intake.session_idle must be at least 1000ms, got %d", cfg.Intake.SessionIdle)
	}
	if cfg.Intake.ResponseDays < 0 {
		return fmt.Errorf("intake.response_days must not be negative")
	}
	return nil
}

func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}
