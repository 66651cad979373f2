// Package config loads and validates application configuration from
// defaults, an optional config.yaml, and BOT_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// ErrConfiguration marks fatal configuration problems found at startup.
var ErrConfiguration = errors.New("configuration error")

// TelegramConfig holds messaging platform credentials and access control.
type TelegramConfig struct {
	Token          string  `mapstructure:"token"            validate:"required"`
	AdminID        int64   `mapstructure:"admin_id"`
	AllowedUserIDs []int64 `mapstructure:"allowed_user_ids"`
}

// AIConfig holds the completion service settings.
type AIConfig struct {
	Provider    string        `mapstructure:"provider"     validate:"oneof=openai gemini"`
	Token       string        `mapstructure:"token"        validate:"required"`
	BaseURL     string        `mapstructure:"base_url"     validate:"omitempty,url"`
	Model       string        `mapstructure:"model"        validate:"required"`
	Temperature float32       `mapstructure:"temperature"  validate:"min=0,max=2"`
	TopP        float32       `mapstructure:"top_p"        validate:"min=0,max=1"`
	MaxTokens   int           `mapstructure:"max_tokens"   validate:"min=1"`
	Timeout     time.Duration `mapstructure:"timeout"      validate:"min=1s,max=10m"`
	Instruction string        `mapstructure:"instruction"  validate:"required"`
	TokenBudget int           `mapstructure:"token_budget" validate:"min=256"`
}

// LogConfig controls logger construction.
type LogConfig struct {
	Level string `mapstructure:"level" validate:"oneof=debug info warn error"`
	JSON  bool   `mapstructure:"json"`
}

// DatabaseConfig holds the audit log storage settings.
type DatabaseConfig struct {
	Path string `mapstructure:"path" validate:"required"`
}

// TaskConfig describes a single scheduled task entry.
type TaskConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Schedule string `mapstructure:"schedule"`
}

// SchedulerConfig maps task names to their schedules.
type SchedulerConfig struct {
	Tasks map[string]TaskConfig `mapstructure:"tasks"`
}

// MessagesConfig holds every user-visible reply template.
type MessagesConfig struct {
	Welcome       string `mapstructure:"welcome"        validate:"required"`
	NotAuthorized string `mapstructure:"not_authorized" validate:"required"`
	SystemCurrent string `mapstructure:"system_current" validate:"required"`
	SystemUpdated string `mapstructure:"system_updated" validate:"required"`
	HistoryReset  string `mapstructure:"history_reset"  validate:"required"`
	GeneralError  string `mapstructure:"general_error"  validate:"required"`
	Timeout       string `mapstructure:"timeout"        validate:"required"`
	EmptyResponse string `mapstructure:"empty_response" validate:"required"`
}

// Config is the root application configuration.
type Config struct {
	Log       LogConfig       `mapstructure:"log"`
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	AI        AIConfig        `mapstructure:"ai"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Messages  MessagesConfig  `mapstructure:"messages"`
}

// IsUserAllowed reports whether a user may talk to the bot. The admin is
// always allowed; an empty allowed list means everyone is.
func (c *Config) IsUserAllowed(userID int64) bool {
	if c.Telegram.AdminID != 0 && userID == c.Telegram.AdminID {
		return true
	}
	if len(c.Telegram.AllowedUserIDs) == 0 {
		return true
	}
	for _, id := range c.Telegram.AllowedUserIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// Load reads configuration in priority order: defaults, then config.yaml
// (optional), then BOT_* environment variables. Missing credentials fail
// immediately with a descriptive error rather than at first use.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("BOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("%w: failed to read config file: %v", ErrConfiguration, err)
		}
		// No config file is fine; defaults plus environment take over.
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", ErrConfiguration, err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfiguration, describeValidation(err))
	}

	return cfg, nil
}

// describeValidation turns validator's field errors into a message that
// names the offending settings.
func describeValidation(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	parts := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		switch fe.Tag() {
		case "required":
			parts = append(parts, fmt.Sprintf("%s is required", fe.Namespace()))
		default:
			parts = append(parts, fmt.Sprintf("%s failed %q validation", fe.Namespace(), fe.Tag()))
		}
	}
	return errors.New(strings.Join(parts, "; "))
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.json", true)

	// Credentials default to empty so environment binding always works;
	// validation rejects them if still unset.
	v.SetDefault("telegram.token", "")
	v.SetDefault("telegram.admin_id", 0)
	v.SetDefault("telegram.allowed_user_ids", []int64{})

	v.SetDefault("ai.provider", "openai")
	v.SetDefault("ai.token", "")
	v.SetDefault("ai.base_url", "https://api.openai.com/v1")
	v.SetDefault("ai.model", "gpt-4o")
	v.SetDefault("ai.temperature", 1.0)
	v.SetDefault("ai.top_p", 1.0)
	v.SetDefault("ai.max_tokens", 4096)
	v.SetDefault("ai.timeout", 2*time.Minute)
	v.SetDefault("ai.instruction", "You are a helpful assistant.")
	v.SetDefault("ai.token_budget", 4096)

	v.SetDefault("database.path", "storage.db")

	v.SetDefault("scheduler.tasks.sqlite_maintenance.enabled", true)
	v.SetDefault("scheduler.tasks.sqlite_maintenance.schedule", "0 4 * * *")

	v.SetDefault("messages.welcome", "I'm ready to assist you. Send me a message to start a conversation, or use /system to steer my behavior.")
	v.SetDefault("messages.not_authorized", "Access denied. Please contact the administrator.")
	v.SetDefault("messages.system_current", "Your current system message: %s")
	v.SetDefault("messages.system_updated", "System message updated: %s")
	v.SetDefault("messages.history_reset", "Conversation history has been cleared.")
	v.SetDefault("messages.general_error", "An error occurred while processing your message. Please try again later.")
	v.SetDefault("messages.timeout", "The request timed out. Please try again later.")
	v.SetDefault("messages.empty_response", "I couldn't come up with a response. Could you rephrase?")
}
