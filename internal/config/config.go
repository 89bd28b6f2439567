package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
// The values are read by Viper from a config file or environment variables.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Mail     MailConfig     `mapstructure:"mail"`
	JWT      JWTConfig      `mapstructure:"jwt"`
}

type ServerConfig struct {
	Address string `mapstructure:"address"`
}

type DatabaseConfig struct {
	DSN string `mapstructure:"dsn"`
}

// StorageConfig controls where uploaded attachments land on disk and the
// per-request acceptance limits enforced by the submission pipeline.
type StorageConfig struct {
	RootDir           string        `mapstructure:"root_dir"`
	MaxFileSizeBytes  int64         `mapstructure:"max_file_size_bytes"`
	MaxFilesPerUpload int           `mapstructure:"max_files_per_upload"`
	AllowedExtensions []string      `mapstructure:"allowed_extensions"`
	CleanupDelay      time.Duration `mapstructure:"cleanup_delay"`
}

// MailConfig configures the outbound SMTP notifier. Leaving Host empty
// disables notifications (the pipeline gets a no-op notifier instead).
type MailConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
	To       string `mapstructure:"to"`
}

// JWTConfig defines JWT specific configuration.
type JWTConfig struct {
	Secret string `mapstructure:"secret"`
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(path string) (config Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	// Environment variable handling: storage.root_dir -> STORAGE_ROOT_DIR etc.
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(`.`, `_`))

	viper.SetDefault("server.address", ":8080")
	viper.SetDefault("database.dsn", "postgres://localhost:5432/feedback?sslmode=disable")
	viper.SetDefault("storage.root_dir", "./uploads")
	viper.SetDefault("storage.max_file_size_bytes", 10<<20) // 10 MB
	viper.SetDefault("storage.max_files_per_upload", 5)
	viper.SetDefault("storage.allowed_extensions", []string{"pdf", "png", "jpg", "jpeg", "gif", "txt", "doc", "docx", "xls", "xlsx", "csv", "zip", "log"})
	viper.SetDefault("storage.cleanup_delay", "10m")
	viper.SetDefault("mail.port", 587)

	err = viper.ReadInConfig()
	// Config file is optional; env vars and defaults may be enough.
	if _, ok := err.(viper.ConfigFileNotFoundError); ok {
		err = nil
	} else if err != nil {
		return
	}

	err = viper.Unmarshal(&config)
	if err != nil {
		return
	}

	return config, nil
}
