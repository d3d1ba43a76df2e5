// Package config loads the bot configuration from the environment, with an
// optional .env file in the working directory.
package config

import (
	"errors"
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Config struct {
	DiscordToken string `env:"DISCORD_TOKEN"`
	// CommandPrefix is the global legacy prefix; guilds may override it.
	CommandPrefix string `env:"COMMAND_PREFIX"`
	// DebugGuildID additionally registers the commands to one guild, where
	// Discord applies changes immediately.
	DebugGuildID          string `env:"DEBUG_GUILD_ID"`
	SettingsPath          string `env:"SETTINGS_PATH" envDefault:"guilds.json"`
	IgnorePrivateChannels bool   `env:"IGNORE_PRIVATE_CHANNELS"`
	LaneWorkers           int    `env:"LANE_WORKERS" envDefault:"1"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	LogFile  string `env:"LOG_FILE"`

	BotName     string `env:"BOT_NAME"`
	BotSupport  string `env:"BOT_SUPPORT"`
	AllowInvite bool   `env:"ALLOW_INVITE"`
	// BotCredits maps a credits group to "|"-separated names, e.g.
	// "Art:Ann|Bob,Code:Cy".
	BotCredits map[string]string `env:"BOT_CREDITS"`
	// BotInfoFields are extra name:value fields for the info command.
	BotInfoFields map[string]string `env:"BOT_INFO_FIELDS"`
}

// LoadDotEnv reads .env files into the process environment. A missing file
// is not an error.
func LoadDotEnv(files ...string) {
	if err := godotenv.Load(files...); err != nil {
		log.Debug().Err(err).Msg("no .env file found, falling back to system environment variables")
	}
}

// New parses the environment into a Config without validating it.
func New() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return &cfg, nil
}

// Load reads .env, parses the environment and validates the result.
func Load() (*Config, error) {
	LoadDotEnv()
	cfg, err := New()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.DiscordToken == "" {
		return errors.New("DISCORD_TOKEN is not set")
	}
	if c.LaneWorkers < 1 {
		return fmt.Errorf("LANE_WORKERS must be at least 1, got %d", c.LaneWorkers)
	}
	if c.SettingsPath == "" {
		return errors.New("SETTINGS_PATH is empty")
	}
	return nil
}
