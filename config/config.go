package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type AppConfig struct {
	App struct {
		Name string `mapstructure:"NAME"`
		Port string `mapstructure:"PORT"`
	} `mapstructure:"APP"`

	DATABASE struct {
		Postgres struct {
			DSN string `mapstructure:"URL"`
		} `mapstructure:"POSTGRES"`
		Redis struct {
			Addr     string `mapstructure:"ADDR"`
			Password string `mapstructure:"PASSWORD"`
			DB       int    `mapstructure:"DB"`
		} `mapstructure:"REDIS"`
		Mongo struct {
			Url      string `mapstructure:"URL"`
			Database string `mapstructure:"DATABASE"`
		} `mapstructure:"MONGO"`
	} `mapstructure:"DATABASE"`

	STORE struct {
		// postgres (rooms in Postgres, messages in Mongo) or memory
		Driver  string        `mapstructure:"DRIVER"`
		Timeout time.Duration `mapstructure:"TIMEOUT"`
	} `mapstructure:"STORE"`

	ROOM struct {
		DefaultDuration int `mapstructure:"DEFAULT_DURATION"`
		HistoryLimit    int `mapstructure:"HISTORY_LIMIT"`
	} `mapstructure:"ROOM"`

	REAPER struct {
		Interval    time.Duration `mapstructure:"INTERVAL"`
		Cron        string        `mapstructure:"CRON"`
		RoomTimeout time.Duration `mapstructure:"ROOM_TIMEOUT"`
	} `mapstructure:"REAPER"`

	WS struct {
		MaxConnections   int     `mapstructure:"MAX_CONNECTIONS"`
		ConnectionsPerIP int     `mapstructure:"CONNECTIONS_PER_IP"`
		EventsPerSecond  float64 `mapstructure:"EVENTS_PER_SECOND"`
		EventBurst       int     `mapstructure:"EVENT_BURST"`
	} `mapstructure:"WS"`

	AUTH struct {
		PrivateKey string        `mapstructure:"PRIVATE_KEY"`
		PublicKey  string        `mapstructure:"PUBLIC_KEY"`
		TokenTTL   time.Duration `mapstructure:"TOKEN_TTL"`
	} `mapstructure:"AUTH"`
}

var Conf *AppConfig

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP.NAME", "classroom-chat")
	v.SetDefault("APP.PORT", ":3000")
	v.SetDefault("DATABASE.POSTGRES.URL", "")
	v.SetDefault("DATABASE.REDIS.ADDR", "localhost:6379")
	v.SetDefault("DATABASE.REDIS.PASSWORD", "")
	v.SetDefault("DATABASE.REDIS.DB", 0)
	v.SetDefault("DATABASE.MONGO.URL", "")
	v.SetDefault("DATABASE.MONGO.DATABASE", "classroom_chat")
	v.SetDefault("STORE.DRIVER", "postgres")
	v.SetDefault("STORE.TIMEOUT", 5*time.Second)
	v.SetDefault("ROOM.DEFAULT_DURATION", 30)
	v.SetDefault("ROOM.HISTORY_LIMIT", 50)
	v.SetDefault("REAPER.INTERVAL", 60*time.Second)
	v.SetDefault("REAPER.CRON", "")
	v.SetDefault("REAPER.ROOM_TIMEOUT", 15*time.Second)
	v.SetDefault("WS.MAX_CONNECTIONS", 10000)
	v.SetDefault("WS.CONNECTIONS_PER_IP", 20)
	v.SetDefault("WS.EVENTS_PER_SECOND", 20)
	v.SetDefault("WS.EVENT_BURST", 40)
	v.SetDefault("AUTH.PRIVATE_KEY", "private.pem")
	v.SetDefault("AUTH.PUBLIC_KEY", "public.pem")
	v.SetDefault("AUTH.TOKEN_TTL", 7*24*time.Hour)
}

// LoadConfig reads application.yaml from the working directory, overlaid by
// CHATAPP_* environment variables. A missing file falls back to defaults.
func LoadConfig() error {
	conf, err := load(viper.New(), ".")
	if err != nil {
		return err
	}

	Conf = conf
	log.Info().Msg("configuration loaded...")
	return nil
}

func load(v *viper.Viper, path string) (*AppConfig, error) {
	v.SetConfigName("application")
	v.SetConfigType("yaml")
	v.AddConfigPath(path)

	v.SetEnvPrefix("CHATAPP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		log.Warn().Msg("application.yaml not found, using defaults and environment")
	}

	var config AppConfig
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}

	if config.STORE.Driver != "postgres" && config.STORE.Driver != "memory" {
		return nil, fmt.Errorf("unsupported store driver %q", config.STORE.Driver)
	}

	return &config, nil
}
