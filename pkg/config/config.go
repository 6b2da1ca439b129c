package config

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

type Config struct {
	Storage   StorageConfig   `mapstructure:"storage"`
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	OpenAI    OpenAIConfig    `mapstructure:"openai"`
	Assistant AssistantConfig `mapstructure:"assistant"`
	Stats     StatsConfig     `mapstructure:"stats"`
}

type StorageConfig struct {
	DataDir     string `mapstructure:"data_dir"`
	UseInMemory bool   `mapstructure:"use_in_memory"`
}

type TelegramConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Token   string `mapstructure:"token"`
}

type OpenAIConfig struct {
	APIKey      string  `mapstructure:"api_key"`
	Model       string  `mapstructure:"model"`
	MaxTokens   int     `mapstructure:"max_tokens"`
	Temperature float64 `mapstructure:"temperature"`
}

type AssistantConfig struct {
	SearchLimit int `mapstructure:"search_limit"`
	MaxTags     int `mapstructure:"max_tags"`
	MemoryTags  int `mapstructure:"memory_tags"`
}

type StatsConfig struct {
	Schedule string `mapstructure:"schedule"`
}

func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	// Set default values
	v.SetDefault("storage.data_dir", defaultDataDir())
	v.SetDefault("storage.use_in_memory", false)
	v.SetDefault("telegram.enabled", false)
	v.SetDefault("openai.model", "gpt-4o-mini")
	v.SetDefault("openai.max_tokens", 300)
	v.SetDefault("openai.temperature", 0.7)
	v.SetDefault("assistant.search_limit", 10)
	v.SetDefault("assistant.max_tags", 3)
	v.SetDefault("assistant.memory_tags", 5)
	v.SetDefault("stats.schedule", "5 0 * * *")

	// Enable environment variable support
	v.AutomaticEnv()

	// Read the config file; a missing file falls back to defaults and env
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return nil, err
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	// Environment variables override file values
	if token := v.GetString("TELEGRAM_TOKEN"); token != "" {
		config.Telegram.Token = token
		config.Telegram.Enabled = true
	}
	if apiKey := v.GetString("OPENAI_API_KEY"); apiKey != "" {
		config.OpenAI.APIKey = apiKey
	}
	if dataDir := v.GetString("JARVIS_DATA_DIR"); dataDir != "" {
		config.Storage.DataDir = dataDir
	}

	return &config, nil
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".jarvis"
	}
	return filepath.Join(home, ".jarvis")
}
