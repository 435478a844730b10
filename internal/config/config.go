package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Environment string
	Server      ServerConfig
	Database    DatabaseConfig
	Telegram    TelegramConfig
	GitHub      GitHubConfig
	Onboarding  OnboardingConfig
}

type ServerConfig struct {
	Port int
}

type DatabaseConfig struct {
	Path string
}

type TelegramConfig struct {
	BotToken string
}

type GitHubConfig struct {
	// Token is an optional bearer credential for the repository existence
	// check; unauthenticated requests hit API rate limits fast.
	Token string
}

type OnboardingConfig struct {
	// PublicURL is the externally reachable base URL advertised to users
	// as the webhook payload target.
	PublicURL string
	// SessionTTLMinutes bounds how long an abandoned onboarding
	// conversation is kept in memory.
	SessionTTLMinutes int
}

func Load() (Config, error) {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("hookrelay_env", "")
	v.SetDefault("app_env", "")
	v.SetDefault("go_env", "")
	v.SetDefault("hookrelay_port", 8080)
	v.SetDefault("hookrelay_db_path", "data/hookrelay")
	v.SetDefault("hookrelay_public_url", "")
	v.SetDefault("hookrelay_session_ttl_min", 30)
	v.SetDefault("telegram_bot_token", "")
	v.SetDefault("github_token", "")

	env := resolveEnvironment(v)
	port := v.GetInt("hookrelay_port")
	if port <= 0 || port > 65535 {
		return Config{}, fmt.Errorf("invalid HOOKRELAY_PORT: %d", port)
	}

	sessionTTL := v.GetInt("hookrelay_session_ttl_min")
	if sessionTTL <= 0 {
		sessionTTL = 30
	}

	cfg := Config{
		Environment: env,
		Server:      ServerConfig{Port: port},
		Database: DatabaseConfig{
			Path: strings.TrimSpace(v.GetString("hookrelay_db_path")),
		},
		Telegram: TelegramConfig{
			BotToken: strings.TrimSpace(v.GetString("telegram_bot_token")),
		},
		GitHub: GitHubConfig{
			Token: strings.TrimSpace(v.GetString("github_token")),
		},
		Onboarding: OnboardingConfig{
			PublicURL:         strings.TrimRight(strings.TrimSpace(v.GetString("hookrelay_public_url")), "/"),
			SessionTTLMinutes: sessionTTL,
		},
	}

	if cfg.Database.Path == "" {
		cfg.Database.Path = "data/hookrelay"
	}
	if cfg.Telegram.BotToken == "" {
		return Config{}, fmt.Errorf("TELEGRAM_BOT_TOKEN is required")
	}
	if cfg.Onboarding.PublicURL == "" {
		if !cfg.IsLocalDevelopment() {
			return Config{}, fmt.Errorf("HOOKRELAY_PUBLIC_URL is required outside local/dev environments")
		}
		cfg.Onboarding.PublicURL = fmt.Sprintf("http://localhost:%d", port)
	}

	return cfg, nil
}

func (c Config) IsLocalDevelopment() bool {
	switch strings.ToLower(strings.TrimSpace(c.Environment)) {
	case "", "local", "dev", "development", "test":
		return true
	default:
		return false
	}
}

func (c Config) SessionTTL() time.Duration {
	return time.Duration(c.Onboarding.SessionTTLMinutes) * time.Minute
}

func resolveEnvironment(v *viper.Viper) string {
	for _, key := range []string{"hookrelay_env", "app_env", "go_env"} {
		value := strings.TrimSpace(v.GetString(key))
		if value != "" {
			return strings.ToLower(value)
		}
	}
	return ""
}
