package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Viper keys. Env bindings live in envBindings; cobra flags bind onto the
// same keys in the cli package.
const (
	KeyDataset  = "dataset"
	KeyStrategy = "strategy"
	KeySkipLoad = "skip_load"
	KeyNotify   = "notify"
	KeyWorkDir  = "work_dir"

	KeyLandingURL     = "source.landing_url"
	KeyAnchorPrefix   = "source.anchor_prefix"
	KeyMemberPrefix   = "source.member_prefix"
	KeyExcludeSuffix  = "source.exclude_suffix"
	KeyConnectTimeout = "source.connect_timeout"
	KeyReadTimeout    = "source.read_timeout"

	KeyDriver        = "warehouse.driver"
	KeyTable         = "warehouse.table"
	KeyStage         = "warehouse.stage"
	KeyExternalStage = "warehouse.external_stage"
	KeyStagePath     = "warehouse.external_stage_path"
	KeyProcedure     = "warehouse.procedure"
	KeySFUser        = "warehouse.user"
	KeySFPassword    = "warehouse.password"
	KeySFAccount     = "warehouse.account"
	KeySFDatabase    = "warehouse.database"
	KeySFSchema      = "warehouse.schema"
	KeySFWarehouse   = "warehouse.warehouse"
	KeySFRole        = "warehouse.role"
	KeyConnString    = "warehouse.conn_string"
	KeyDuckDBPath    = "warehouse.duckdb_path"

	KeyAccessKey    = "storage.access_key_id"
	KeySecretKey    = "storage.secret_access_key"
	KeyRegion       = "storage.region"
	KeyBucket       = "storage.bucket"
	KeyKeyPrefix    = "storage.key_prefix"
	KeyKeyTemplate  = "storage.key_template"
	KeyEndpoint     = "storage.endpoint"
	KeyUsePathStyle = "storage.use_path_style"
	KeyPartSize     = "storage.part_size"
	KeyConcurrency  = "storage.concurrency"

	KeySMTPServer    = "smtp.server"
	KeySMTPPort      = "smtp.port"
	KeySMTPUser      = "smtp.user"
	KeySMTPPassword  = "smtp.password"
	KeySMTPRecipient = "smtp.recipient"

	KeyMongoURI        = "history.mongo_uri"
	KeyMongoDatabase   = "history.database"
	KeyMongoCollection = "history.collection"

	KeyPushgateway = "metrics.pushgateway_url"

	KeyLogDir   = "log.dir"
	KeyLogLevel = "log.level"
)

// envBindings maps viper keys onto the environment variable names used in
// .env files and in ConfigError messages.
var envBindings = map[string]string{
	KeyDataset:  "NPPES_DATASET",
	KeyStrategy: "LOAD_STRATEGY",
	KeyWorkDir:  "WORK_DIR",

	KeyLandingURL:     "NPPES_LANDING_URL",
	KeyAnchorPrefix:   "NPPES_ANCHOR_PREFIX",
	KeyMemberPrefix:   "NPPES_MEMBER_PREFIX",
	KeyExcludeSuffix:  "NPPES_EXCLUDE_SUFFIX",
	KeyConnectTimeout: "HTTP_CONNECT_TIMEOUT",
	KeyReadTimeout:    "HTTP_READ_TIMEOUT",

	KeyDriver:        "WAREHOUSE_DRIVER",
	KeyTable:         "WAREHOUSE_TABLE",
	KeyStage:         "WAREHOUSE_STAGE",
	KeyExternalStage: "WAREHOUSE_EXTERNAL_STAGE",
	KeyStagePath:     "WAREHOUSE_EXTERNAL_STAGE_PATH",
	KeyProcedure:     "WAREHOUSE_PROCEDURE",
	KeySFUser:        "SNOWFLAKE_USER",
	KeySFPassword:    "SNOWFLAKE_PASSWORD",
	KeySFAccount:     "SNOWFLAKE_ACCOUNT",
	KeySFDatabase:    "SNOWFLAKE_DATABASE",
	KeySFSchema:      "SNOWFLAKE_SCHEMA",
	KeySFWarehouse:   "SNOWFLAKE_WAREHOUSE",
	KeySFRole:        "SNOWFLAKE_ROLE",
	KeyConnString:    "SQL_CONNECTION_STRING",
	KeyDuckDBPath:    "DUCKDB_PATH",

	KeyAccessKey:    "AWS_ACCESS_KEY_ID",
	KeySecretKey:    "AWS_SECRET_ACCESS_KEY",
	KeyRegion:       "AWS_REGION",
	KeyBucket:       "S3_BUCKET",
	KeyKeyPrefix:    "S3_KEY_PREFIX",
	KeyKeyTemplate:  "S3_KEY_TEMPLATE",
	KeyEndpoint:     "S3_ENDPOINT",
	KeyUsePathStyle: "S3_USE_PATH_STYLE",
	KeyPartSize:     "S3_PART_SIZE",
	KeyConcurrency:  "S3_CONCURRENCY",

	KeySMTPServer:    "SMTP_SERVER",
	KeySMTPPort:      "SMTP_PORT",
	KeySMTPUser:      "SMTP_USER",
	KeySMTPPassword:  "SMTP_PASSWORD",
	KeySMTPRecipient: "SMTP_RECIPIENT",

	KeyMongoURI:        "MONGO_CONNECTION_STRING",
	KeyMongoDatabase:   "MONGO_DATABASE",
	KeyMongoCollection: "MONGO_COLLECTION",

	KeyPushgateway: "PUSHGATEWAY_URL",

	KeyLogDir:   "LOG_DIR",
	KeyLogLevel: "LOG_LEVEL",
}

// EnvName returns the environment variable bound to a viper key.
func EnvName(key string) string {
	if name, ok := envBindings[key]; ok {
		return name
	}
	return strings.ToUpper(strings.NewReplacer(".", "_").Replace(key))
}

// SetDefaults installs the defaults that make a bare environment usable.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyDataset, DatasetNPI)
	v.SetDefault(KeyStrategy, StrategyLocal)
	v.SetDefault(KeyWorkDir, ".")

	v.SetDefault(KeyLandingURL, DefaultLandingURL)
	v.SetDefault(KeyAnchorPrefix, DefaultAnchorPrefix)
	v.SetDefault(KeyExcludeSuffix, DefaultExcludeSuffix)
	v.SetDefault(KeyConnectTimeout, "10s")
	v.SetDefault(KeyReadTimeout, "1000s")

	v.SetDefault(KeyDriver, DriverSnowflake)
	v.SetDefault(KeyStage, DefaultStage)

	v.SetDefault(KeyPartSize, DefaultPartSize)
	v.SetDefault(KeyConcurrency, 1)

	v.SetDefault(KeySMTPPort, DefaultSMTPPort)

	v.SetDefault(KeyMongoDatabase, "npiload")
	v.SetDefault(KeyMongoCollection, "runs")

	v.SetDefault(KeyLogDir, ".")
	v.SetDefault(KeyLogLevel, "info")
}

// NewViper returns a viper instance with defaults and env bindings. When
// configFile is set it is read as well; env and flags still win over it.
func NewViper(configFile string) (*viper.Viper, error) {
	v := viper.New()
	SetDefaults(v)
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
	}
	return v, nil
}

// FromViper snapshots viper state into a Config. It does not validate.
func FromViper(v *viper.Viper) *Config {
	dataset := strings.ToLower(v.GetString(KeyDataset))
	memberPrefix := v.GetString(KeyMemberPrefix)
	if memberPrefix == "" {
		memberPrefix, _ = MemberPrefix(dataset)
	}

	return &Config{
		Dataset:  dataset,
		Strategy: strings.ToLower(v.GetString(KeyStrategy)),
		SkipLoad: v.GetBool(KeySkipLoad),
		Notify:   v.GetBool(KeyNotify),
		WorkDir:  v.GetString(KeyWorkDir),
		Source: SourceConfig{
			LandingURL:     v.GetString(KeyLandingURL),
			AnchorPrefix:   v.GetString(KeyAnchorPrefix),
			MemberPrefix:   memberPrefix,
			ExcludeSuffix:  v.GetString(KeyExcludeSuffix),
			ConnectTimeout: v.GetDuration(KeyConnectTimeout),
			ReadTimeout:    v.GetDuration(KeyReadTimeout),
		},
		Warehouse: WarehouseConfig{
			Driver:        strings.ToLower(v.GetString(KeyDriver)),
			Table:         v.GetString(KeyTable),
			Stage:         v.GetString(KeyStage),
			ExternalStage: v.GetString(KeyExternalStage),
			StagePath:     v.GetString(KeyStagePath),
			Procedure:     v.GetString(KeyProcedure),
			User:          v.GetString(KeySFUser),
			Password:      v.GetString(KeySFPassword),
			Account:       v.GetString(KeySFAccount),
			Database:      v.GetString(KeySFDatabase),
			Schema:        v.GetString(KeySFSchema),
			Warehouse:     v.GetString(KeySFWarehouse),
			Role:          v.GetString(KeySFRole),
			ConnString:    v.GetString(KeyConnString),
			DuckDBPath:    v.GetString(KeyDuckDBPath),
		},
		Storage: StorageConfig{
			AccessKeyID:     v.GetString(KeyAccessKey),
			SecretAccessKey: v.GetString(KeySecretKey),
			Region:          v.GetString(KeyRegion),
			Bucket:          v.GetString(KeyBucket),
			KeyPrefix:       v.GetString(KeyKeyPrefix),
			KeyTemplate:     v.GetString(KeyKeyTemplate),
			Endpoint:        v.GetString(KeyEndpoint),
			UsePathStyle:    v.GetBool(KeyUsePathStyle),
			PartSize:        v.GetInt64(KeyPartSize),
			Concurrency:     v.GetInt(KeyConcurrency),
		},
		SMTP: SMTPConfig{
			Server:    v.GetString(KeySMTPServer),
			Port:      v.GetInt(KeySMTPPort),
			User:      v.GetString(KeySMTPUser),
			Password:  v.GetString(KeySMTPPassword),
			Recipient: v.GetString(KeySMTPRecipient),
		},
		History: HistoryConfig{
			MongoURI:   v.GetString(KeyMongoURI),
			Database:   v.GetString(KeyMongoDatabase),
			Collection: v.GetString(KeyMongoCollection),
		},
		Metrics: MetricsConfig{
			PushgatewayURL: v.GetString(KeyPushgateway),
		},
		Log: LogConfig{
			Dir:   v.GetString(KeyLogDir),
			Level: v.GetString(KeyLogLevel),
		},
	}
}

// Load builds and validates a Config from v.
func Load(v *viper.Viper) (*Config, error) {
	cfg := FromViper(v)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
