package configuration

import (
	"fmt"
	"os"
	"strconv"

	"github.com/halilenesdaghan/tiktok-api-integration/infrastructure/logger"

	"github.com/spf13/viper"
)

type Config struct {
	Database    Database    `json:"database"`
	App         App         `json:"app"`
	Pubsub      Pubsub      `json:"pubsub"`
	ServiceBus  ServiceBus  `json:"serviceBus"`
	RedisClient RedisClient `json:"redisClient"`
	Logger      Logger      `json:"logger"`
	TikTok      TikTok      `json:"tiktok"`
	Sync        Sync        `json:"sync"`
}

type App struct {
	Port        int    `json:"port"`
	SecretKey   string `json:"secretKey"`
	TLSEnabled  bool   `json:"tlsEnabled"`
	TLSCertFile string `json:"tlsCertFile"`
	TLSKeyFile  string `json:"tlsKeyFile"`
}

type Database struct {
	Psql  Db `json:"psql"`
	Mongo Db `json:"mongo"`
	Mssql Db `json:"mssql"`
}

type Db struct {
	Name     string `json:"name"`
	Host     string `json:"host"`
	Port     string `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
}

type Pubsub struct {
	ProjectID string `json:"projectID"`
	Topic     string `json:"topic"`
}

type ServiceBus struct {
	Namespace string `json:"namespace"`
	Queue     string `json:"queue"`
}

type RedisClient struct {
	Host         string `json:"host"`
	Port         string `json:"port"`
	Password     string `json:"password"`
	DatabaseName string `json:"databaseName"`
	Username     string `json:"username"`
}

type Logger struct {
	Format string `json:"format"`
}

// TikTok holds the OAuth client credentials for the TikTok open platform.
type TikTok struct {
	ClientKey    string   `json:"clientKey"`
	ClientSecret string   `json:"clientSecret"`
	RedirectURI  string   `json:"redirectURI"`
	Scopes       []string `json:"scopes"`
}

// Sync tunes the background synchronization engine.
type Sync struct {
	IntervalMinutes   int     `json:"intervalMinutes"`
	PageSize          int     `json:"pageSize"`
	MaxItems          int     `json:"maxItems"`
	RequestsPerMinute int     `json:"requestsPerMinute"`
	Burst             int     `json:"burst"`
	RatePerSecond     float64 `json:"ratePerSecond"`
}

var C Config

func init() {
	LoadConfig()
	initDatabase(&C)
	initApp(&C)
	initTikTok(&C)
	initSync(&C)
	// Prefer https redirect URIs locally when TLS enabled
	if C.App.TLSEnabled {
		if C.TikTok.RedirectURI != "" && !hasHTTPS(C.TikTok.RedirectURI) {
			C.TikTok.RedirectURI = toHTTPSCallback(C.TikTok.RedirectURI)
		}
	}
}

func LoadConfig() {
	name := getConfig()
	viper.SetConfigName(name)
	viper.SetConfigType("json")
	viper.AddConfigPath(".")
	viper.AddConfigPath("../")
	viper.AddConfigPath("../../")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found; ignore error if desired
			logger.GetLogger().Warn("Config file not found")
		} else {
			// Config file was found but another error was produced
			logger.GetLogger().WithField("error", err).Error("Error reading config file")
		}
	}

	logger.GetLogger().WithField("config", name).Info("Config set up successfully")
	// Config file found and successfully parsed
	if err := viper.Unmarshal(&C); err != nil {
		logger.GetLogger().WithField("error", err).Error("Viper unable to decode into struct")
	}
}

func getConfig() string {
	name := "config"
	env := os.Getenv("ENV")
	if env != "" {
		name = fmt.Sprintf("%s-%s", name, env)
	}
	return name
}

func initDatabase(C *Config) {
	if C.Database.Psql.Name == "" {
		C.Database.Psql.Name = os.Getenv("DB_NAME")
	}
	if C.Database.Psql.Host == "" {
		C.Database.Psql.Host = os.Getenv("DB_HOST")
	}
	if C.Database.Psql.User == "" {
		C.Database.Psql.User = os.Getenv("DB_USER")
	}
	if C.Database.Psql.Password == "" {
		C.Database.Psql.Password = os.Getenv("DB_PASSWORD")
	}
	if C.Database.Psql.Port == "" {
		C.Database.Psql.Port = os.Getenv("DB_PORT")
	}

	// Optional MSSQL config via environment variables (for Azure SQL in production)
	if C.Database.Mssql.Name == "" {
		if v := os.Getenv("MSSQL_DB_NAME"); v != "" {
			C.Database.Mssql.Name = v
		}
	}
	if C.Database.Mssql.Host == "" {
		if v := os.Getenv("MSSQL_HOST"); v != "" {
			C.Database.Mssql.Host = v
		}
	}
	if C.Database.Mssql.Password == "" {
		if v := os.Getenv("MSSQL_PASSWORD"); v != "" {
			C.Database.Mssql.Password = v
		}
	}
	if C.Database.Mssql.Port == "" {
		if v := os.Getenv("MSSQL_PORT"); v != "" {
			C.Database.Mssql.Port = v
		} else {
			C.Database.Mssql.Port = "1433"
		}
	}
	if C.Database.Mssql.User == "" {
		if v := os.Getenv("MSSQL_USER"); v != "" {
			C.Database.Mssql.User = v
		}
	}

	// Optional Mongo config for the sync audit trail
	if C.Database.Mongo.Host == "" {
		C.Database.Mongo.Host = os.Getenv("MONGO_HOST")
	}
	if C.Database.Mongo.Port == "" {
		C.Database.Mongo.Port = os.Getenv("MONGO_PORT")
	}
	if C.Database.Mongo.Name == "" {
		C.Database.Mongo.Name = os.Getenv("MONGO_DB_NAME")
	}
	if C.Database.Mongo.User == "" {
		C.Database.Mongo.User = os.Getenv("MONGO_USER")
	}
	if C.Database.Mongo.Password == "" {
		C.Database.Mongo.Password = os.Getenv("MONGO_PASSWORD")
	}
}

func initApp(C *Config) {
	// Prefer SECRET_KEY from environment for JWT verification; overrides config file when provided
	if v := os.Getenv("SECRET_KEY"); v != "" {
		C.App.SecretKey = v
	}
	// Port resolution order (env overrides config): APP_PORT -> PORT -> config -> default 10001
	if v := os.Getenv("APP_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			C.App.Port = p
		}
	} else if v := os.Getenv("PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			C.App.Port = p
		}
	}
	if C.App.Port == 0 {
		C.App.Port = 10001
	}
	// Allow overriding TLS settings via env variables (both enable and disable)
	if v := os.Getenv("TLS_ENABLED"); v != "" {
		switch v {
		case "1", "true", "TRUE", "True":
			C.App.TLSEnabled = true
		case "0", "false", "FALSE", "False":
			C.App.TLSEnabled = false
		}
	}
	if C.App.TLSCertFile == "" {
		C.App.TLSCertFile = os.Getenv("TLS_CERT_FILE")
	}
	if C.App.TLSKeyFile == "" {
		C.App.TLSKeyFile = os.Getenv("TLS_KEY_FILE")
	}
	// Prefer local certs if TLS enabled and paths not provided
	if C.App.TLSEnabled {
		if C.App.TLSCertFile == "" {
			if _, err := os.Stat("certs/localhost.crt"); err == nil {
				C.App.TLSCertFile = "certs/localhost.crt"
			}
		}
		if C.App.TLSKeyFile == "" {
			if _, err := os.Stat("certs/localhost.key"); err == nil {
				C.App.TLSKeyFile = "certs/localhost.key"
			}
		}
	}
	if C.App.TLSEnabled {
		logger.GetLogger().WithFields(map[string]interface{}{"cert": C.App.TLSCertFile, "key": C.App.TLSKeyFile}).Info("TLS enabled via configuration")
	}
	if C.App.SecretKey == "" {
		logger.GetLogger().Warn("App.SecretKey not set; JWT authentication will fail. Provide SECRET_KEY via environment.")
	}
}

func initTikTok(C *Config) {
	if v := os.Getenv("TIKTOK_CLIENT_KEY"); v != "" {
		C.TikTok.ClientKey = v
	}
	if v := os.Getenv("TIKTOK_CLIENT_SECRET"); v != "" {
		C.TikTok.ClientSecret = v
	}
	if v := os.Getenv("TIKTOK_REDIRECT_URI"); v != "" {
		C.TikTok.RedirectURI = v
	}
	if len(C.TikTok.Scopes) == 0 {
		C.TikTok.Scopes = []string{"user.info.basic", "user.info.profile", "user.info.stats", "video.list"}
	}
	if C.TikTok.ClientKey == "" || C.TikTok.ClientSecret == "" {
		logger.GetLogger().Warn("TikTok client credentials not set; OAuth handshake will fail. Provide TIKTOK_CLIENT_KEY and TIKTOK_CLIENT_SECRET.")
	}
}

func initSync(C *Config) {
	if v := os.Getenv("SYNC_INTERVAL_MINUTES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			C.Sync.IntervalMinutes = n
		}
	}
	if C.Sync.PageSize <= 0 || C.Sync.PageSize > 20 {
		C.Sync.PageSize = 20
	}
	if C.Sync.MaxItems <= 0 {
		C.Sync.MaxItems = 200
	}
	if C.Sync.RequestsPerMinute <= 0 {
		C.Sync.RequestsPerMinute = 60
	}
	if C.Sync.RatePerSecond <= 0 {
		C.Sync.RatePerSecond = 2
	}
	if C.Sync.Burst <= 0 {
		C.Sync.Burst = 4
	}
}

// helpers to coerce local callback to https
func hasHTTPS(u string) bool { return len(u) >= 8 && u[:8] == "https://" }
func toHTTPSCallback(u string) string {
	// simple swap for localhost callbacks
	if len(u) >= 7 && u[:7] == "http://" {
		return "https://" + u[7:]
	}
	return u
}
