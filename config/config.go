package config

import (
	"os"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

var once sync.Once

// RequiredKeys must be set before the bot can start.
var RequiredKeys = []string{"telegram_bot_token", "telegram_chat_id", "openai_api_key"}

var defaults = map[string]interface{}{
	"debug":                     false,
	"log_level":                 "info",
	"log_file":                  "",
	"lang":                      "en",
	"http_port":                 8080,
	"data_dir":                  "data",
	"telegram_webhook_url":      "",
	"telegram_webhook_secret":   "",
	"telegram_webhook_path":     "/webhook/telegram",
	"openai_base_url":           "https://api.openai.com/v1",
	"openai_model":              "gpt-4o-mini",
	"openai_research_model":     "gpt-4o",
	"market_data_provider":      "yahoo",
	"crypto_enabled":            true,
	"tracking_interval_minutes": 60,
	"market_timezone":           "America/New_York",
	"research_max_chars":        1000,
	"news_headlines":            5,
	"max_tracked_symbols":       50,
	"validate_symbols":          true,
	"quote_cache_ttl":           "1m",
	"chart_enabled":             true,
	"history_context_messages":  5,
	"secrets_source":            "env",
	"ssm_prefix":                "/sentinel/",
}

var envKeys = []string{
	"telegram_bot_token",
	"telegram_chat_id",
	"openai_api_key",
	"alpaca_api_key",
	"alpaca_api_secret",
	"api_pro_key",
}

func InitConfig() {
	once.Do(func() {
		if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
			log.Warnf("⚠️ Could not load .env file: %v", err)
		}

		viper.AutomaticEnv()

		for _, key := range envKeys {
			viper.BindEnv(key, strings.ToUpper(key))
		}
		for key, value := range defaults {
			viper.BindEnv(key, strings.ToUpper(key))
			viper.SetDefault(key, value)
		}
	})
}

// LoadFile merges a YAML/JSON/TOML config file on top of the environment.
func LoadFile(path string) error {
	InitConfig()
	if path == "" {
		return nil
	}
	viper.SetConfigFile(path)
	if err := viper.ReadInConfig(); err != nil {
		return errors.Wrapf(err, "could not read config file %s", path)
	}
	return nil
}

// Validate reports every required key that is still empty.
func Validate() error {
	InitConfig()
	var missing []string
	for _, key := range RequiredKeys {
		if strings.TrimSpace(viper.GetString(key)) == "" {
			missing = append(missing, strings.ToUpper(key))
		}
	}
	if len(missing) > 0 {
		return errors.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}
	if viper.GetInt64("telegram_chat_id") == 0 {
		return errors.New("TELEGRAM_CHAT_ID must be a numeric chat id")
	}
	return nil
}

func Set(key string, value interface{}) {
	InitConfig()
	viper.Set(key, value)
}

func GetString(key string) string {
	InitConfig()
	return viper.GetString(key)
}

func GetInt(key string) int {
	InitConfig()
	return viper.GetInt(key)
}

func GetInt64(key string) int64 {
	InitConfig()
	return viper.GetInt64(key)
}

func GetBool(key string) bool {
	InitConfig()
	return viper.GetBool(key)
}

func GetDuration(key string) time.Duration {
	InitConfig()
	return viper.GetDuration(key)
}
