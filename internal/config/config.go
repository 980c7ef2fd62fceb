package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration (env + Viper).
type Config struct {
	Env           string
	Port          string
	SessionSecret string
	DatabaseURL   string
	RedisURL      string

	RazorpayKeyID     string
	RazorpayKeySecret string
	GatewayBaseURL    string
	GatewayTimeout    time.Duration

	StorageURL       string // file-storage service base URL (signed uploads, public URLs)
	StorageSecretKey string

	FrontendURLEndsWith string
	DevPassword         string
	AllowCrossSiteDev   bool
}

// Load loads config from env and optional .env file.
func Load() (*Config, error) {
	viper.SetConfigFile(".env")
	_ = viper.ReadInConfig()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	port := viper.GetString("PORT")
	if port == "" {
		port = "8080"
	}
	env := viper.GetString("APP_ENV")
	if env == "" {
		env = "development"
	}

	timeout := viper.GetInt("GATEWAY_TIMEOUT_SECONDS")
	if timeout <= 0 {
		timeout = 10
	}

	gatewayURL := viper.GetString("GATEWAY_BASE_URL")
	if gatewayURL == "" {
		gatewayURL = "https://api.razorpay.com/v1"
	}

	return &Config{
		Env:                 env,
		Port:                port,
		SessionSecret:       viper.GetString("SESSION_SECRET"),
		DatabaseURL:         viper.GetString("DATABASE_URL"),
		RedisURL:            viper.GetString("REDIS_URL"),
		RazorpayKeyID:       viper.GetString("RAZORPAY_KEY_ID"),
		RazorpayKeySecret:   viper.GetString("RAZORPAY_KEY_SECRET"),
		GatewayBaseURL:      gatewayURL,
		GatewayTimeout:      time.Duration(timeout) * time.Second,
		StorageURL:          viper.GetString("STORAGE_URL"),
		StorageSecretKey:    viper.GetString("STORAGE_SECRET_KEY"),
		FrontendURLEndsWith: viper.GetString("FRONTEND_URL_ENDS_WITH"),
		DevPassword:         viper.GetString("DEV_PASSWORD"),
		AllowCrossSiteDev:   strings.EqualFold(viper.GetString("ALLOW_CROSS_SITE_DEV"), "true"),
	}, nil
}
