package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration (env + Viper).
type Config struct {
	Env                 string
	Port                string
	DatabaseURL         string
	RedisURL            string
	JWTSecret           string
	JWTRefreshSecret    string // falls back to JWTSecret when empty
	AccessTokenTTL      time.Duration
	RefreshTokenTTL     time.Duration
	BcryptCost          int
	ListingCodePrefix   string
	FrontendURLEndsWith string
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

	accessTTL := 24 * time.Hour
	if h := viper.GetInt("JWT_EXPIRES_IN_HOURS"); h > 0 {
		accessTTL = time.Duration(h) * time.Hour
	}
	refreshTTL := 7 * 24 * time.Hour
	if d := viper.GetInt("JWT_REFRESH_EXPIRES_IN_DAYS"); d > 0 {
		refreshTTL = time.Duration(d) * 24 * time.Hour
	}
	cost := viper.GetInt("BCRYPT_SALT_ROUNDS")
	if cost == 0 {
		cost = 12
	}
	prefix := viper.GetString("LISTING_CODE_PREFIX")
	if prefix == "" {
		prefix = "PL"
	}

	return &Config{
		Env:                 env,
		Port:                port,
		DatabaseURL:         viper.GetString("DATABASE_URL"),
		RedisURL:            viper.GetString("REDIS_URL"),
		JWTSecret:           viper.GetString("JWT_SECRET"),
		JWTRefreshSecret:    viper.GetString("JWT_REFRESH_SECRET"),
		AccessTokenTTL:      accessTTL,
		RefreshTokenTTL:     refreshTTL,
		BcryptCost:          cost,
		ListingCodePrefix:   prefix,
		FrontendURLEndsWith: viper.GetString("FRONTEND_URL_ENDS_WITH"),
	}, nil
}
