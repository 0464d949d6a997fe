package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/redditscheduler/internal/flagx"
	"github.com/dmitrijs2005/redditscheduler/internal/timex"
)

// JsonConfig mirrors Config for unmarshalling; durations accept "30s" or
// integer nanoseconds. Absent keys keep whatever Config already holds.
type JsonConfig struct {
	HTTPAddr           *string         `json:"http_addr"`
	DatabaseDSN        *string         `json:"database_dsn"`
	EncryptionKey      *string         `json:"encryption_key"`
	RedditClientID     *string         `json:"reddit_client_id"`
	RedditClientSecret *string         `json:"reddit_client_secret"`
	RedditRedirectURI  *string         `json:"reddit_redirect_uri"`
	FrontendURL        *string         `json:"frontend_url"`
	SchedulerAuthToken *string         `json:"scheduler_auth_token"`
	StateSecret        *string         `json:"state_secret"`
	StateTTL           *timex.Duration `json:"state_ttl"`
	VerifyOAuthState   *bool           `json:"verify_oauth_state"`
	SchedulerCron      *string         `json:"scheduler_cron"`
	HTTPClientTimeout  *timex.Duration `json:"http_client_timeout"`
	RedditAuthBaseURL  *string         `json:"reddit_auth_base_url"`
	RedditAPIBaseURL   *string         `json:"reddit_api_base_url"`
	UserAgent          *string         `json:"user_agent"`
	ProviderRPS        *float64        `json:"provider_rps"`
	ProviderBurst      *int            `json:"provider_burst"`
	LogLevel           *string         `json:"log_level"`
}

// parseJson overlays the file named by -c/-config onto config. No flag means
// nothing to load; an unreadable or invalid file panics.
func parseJson(config *Config) {
	path := flagx.ConfigPath()
	if path == "" {
		return
	}

	file, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	setString(&config.HTTPAddr, c.HTTPAddr)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.EncryptionKey, c.EncryptionKey)
	setString(&config.RedditClientID, c.RedditClientID)
	setString(&config.RedditClientSecret, c.RedditClientSecret)
	setString(&config.RedditRedirectURI, c.RedditRedirectURI)
	setString(&config.FrontendURL, c.FrontendURL)
	setString(&config.SchedulerAuthToken, c.SchedulerAuthToken)
	setString(&config.StateSecret, c.StateSecret)
	setString(&config.SchedulerCron, c.SchedulerCron)
	setString(&config.RedditAuthBaseURL, c.RedditAuthBaseURL)
	setString(&config.RedditAPIBaseURL, c.RedditAPIBaseURL)
	setString(&config.UserAgent, c.UserAgent)
	setString(&config.LogLevel, c.LogLevel)

	if c.StateTTL != nil {
		config.StateTTL = c.StateTTL.Duration
	}
	if c.HTTPClientTimeout != nil {
		config.HTTPClientTimeout = c.HTTPClientTimeout.Duration
	}
	if c.VerifyOAuthState != nil {
		config.VerifyOAuthState = *c.VerifyOAuthState
	}
	if c.ProviderRPS != nil {
		config.ProviderRPS = *c.ProviderRPS
	}
	if c.ProviderBurst != nil {
		config.ProviderBurst = *c.ProviderBurst
	}
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}
