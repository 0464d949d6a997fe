package config

import (
	"errors"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// dotEnvFiles are loaded before reading the environment. Variables already
// present in the process environment win over file values.
var dotEnvFiles = []string{".env"}

// parseEnv overlays environment variables onto config. Unset or empty
// variables leave the current value alone.
func parseEnv(config *Config) {
	for _, f := range dotEnvFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			panic(err)
		}
	}

	v := viper.New()
	v.AutomaticEnv()

	str := func(key string, dst *string) {
		if v.IsSet(key) {
			*dst = v.GetString(key)
		}
	}

	str("HTTP_ADDR", &config.HTTPAddr)
	str("DATABASE_URL", &config.DatabaseDSN)
	str("ENCRYPTION_KEY", &config.EncryptionKey)
	str("REDDIT_CLIENT_ID", &config.RedditClientID)
	str("REDDIT_CLIENT_SECRET", &config.RedditClientSecret)
	str("REDDIT_REDIRECT_URI", &config.RedditRedirectURI)
	str("FRONTEND_URL", &config.FrontendURL)
	str("SCHEDULER_AUTH_TOKEN", &config.SchedulerAuthToken)
	str("STATE_SECRET", &config.StateSecret)
	str("SCHEDULER_CRON", &config.SchedulerCron)
	str("REDDIT_AUTH_BASE_URL", &config.RedditAuthBaseURL)
	str("REDDIT_API_BASE_URL", &config.RedditAPIBaseURL)
	str("REDDIT_USER_AGENT", &config.UserAgent)
	str("LOG_LEVEL", &config.LogLevel)

	if v.IsSet("STATE_TTL") {
		config.StateTTL = v.GetDuration("STATE_TTL")
	}
	if v.IsSet("HTTP_CLIENT_TIMEOUT") {
		config.HTTPClientTimeout = v.GetDuration("HTTP_CLIENT_TIMEOUT")
	}
	if v.IsSet("VERIFY_OAUTH_STATE") {
		config.VerifyOAuthState = v.GetBool("VERIFY_OAUTH_STATE")
	}
	if v.IsSet("REDDIT_RPS") {
		config.ProviderRPS = v.GetFloat64("REDDIT_RPS")
	}
	if v.IsSet("REDDIT_BURST") {
		config.ProviderBurst = v.GetInt("REDDIT_BURST")
	}
}
