// Package conf loads and validates finder settings.
package conf

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Pause policies for the alert scheduler.
const (
	PausePolicyFreeze   = "freeze"
	PausePolicyContinue = "continue"
)

// Database drivers.
const (
	DriverSQLite = "sqlite"
	DriverMySQL  = "mysql"
)

// Settings is the root configuration.
type Settings struct {
	Log      LogSettings      `mapstructure:"log" yaml:"log"`
	Database DatabaseSettings `mapstructure:"database" yaml:"database"`
	Alerts   AlertSettings    `mapstructure:"alerts" yaml:"alerts"`
	Refresh  RefreshSettings  `mapstructure:"refresh" yaml:"refresh"`
	Server   ServerSettings   `mapstructure:"server" yaml:"server"`
	World    WorldSettings    `mapstructure:"world" yaml:"world"`
	// GodMode disables the perceivability exclusion and exposes dev-only
	// predicate kinds and base collections.
	GodMode bool `mapstructure:"god_mode" yaml:"god_mode"`
}

type LogSettings struct {
	Level      string `mapstructure:"level" yaml:"level" validate:"oneof=debug info warn warning error"`
	File       string `mapstructure:"file" yaml:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" yaml:"max_size_mb" validate:"gte=0"`
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups" validate:"gte=0"`
	JSON       bool   `mapstructure:"json" yaml:"json"`
}

type DatabaseSettings struct {
	Driver string `mapstructure:"driver" yaml:"driver" validate:"oneof=sqlite mysql"`
	DSN    string `mapstructure:"dsn" yaml:"dsn" validate:"required"`
}

// AlertSettings configures the standing alert scheduler and its delivery targets.
type AlertSettings struct {
	PeriodTicks          int64        `mapstructure:"period_ticks" yaml:"period_ticks" validate:"gte=1"`
	PausePolicy          string       `mapstructure:"pause_policy" yaml:"pause_policy" validate:"oneof=freeze continue"`
	MaxCulprits          int          `mapstructure:"max_culprits" yaml:"max_culprits" validate:"gte=1,lte=1000"`
	HistoryRetentionDays int          `mapstructure:"history_retention_days" yaml:"history_retention_days" validate:"gte=0"`
	Targets              []string     `mapstructure:"targets" yaml:"targets" validate:"dive,required"`
	MQTT                 MQTTSettings `mapstructure:"mqtt" yaml:"mqtt"`
	// TitleTemplate and MessageTemplate accept {{alert}}, {{context}},
	// {{count}}, {{priority}}, {{culprits}} and {{event}}.
	TitleTemplate   string `mapstructure:"title_template" yaml:"title_template"`
	MessageTemplate string `mapstructure:"message_template" yaml:"message_template"`
}

type MQTTSettings struct {
	Enabled  bool   `mapstructure:"enabled" yaml:"enabled"`
	Broker   string `mapstructure:"broker" yaml:"broker" validate:"required_if=Enabled true"`
	Topic    string `mapstructure:"topic" yaml:"topic" validate:"required_if=Enabled true"`
	ClientID string `mapstructure:"client_id" yaml:"client_id"`
	Username string `mapstructure:"username" yaml:"username"`
	Password string `mapstructure:"password" yaml:"password"`
}

// RefreshSettings controls how often open result lists are re-evaluated.
type RefreshSettings struct {
	PeriodTicks int64 `mapstructure:"period_ticks" yaml:"period_ticks" validate:"gte=1"`
	Continuous  bool  `mapstructure:"continuous" yaml:"continuous"`
}

type ServerSettings struct {
	Listen string `mapstructure:"listen" yaml:"listen" validate:"required"`
	// TickInterval is the wall-clock length of one host tick when serve drives
	// the scheduler itself.
	TickInterval Duration `mapstructure:"tick_interval" yaml:"tick_interval"`
}

// WorldSettings points at the YAML world file the in-memory host loads.
type WorldSettings struct {
	File string `mapstructure:"file" yaml:"file"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints and cross-field rules.
func (s *Settings) Validate() error {
	if err := validate.Struct(s); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("invalid setting %s: failed %q constraint", fe.Namespace(), fe.Tag())
		}
		return fmt.Errorf("invalid settings: %w", err)
	}
	if s.Server.TickInterval.Std() <= 0 {
		return fmt.Errorf("server.tick_interval must be positive, got %s", s.Server.TickInterval.Std())
	}
	return nil
}

// ApplyDefaults sets default values on v.
func ApplyDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.max_size_mb", 10)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.json", false)

	v.SetDefault("database.driver", DriverSQLite)
	v.SetDefault("database.dsn", "finder.db")

	v.SetDefault("alerts.period_ticks", 60)
	v.SetDefault("alerts.pause_policy", PausePolicyFreeze)
	v.SetDefault("alerts.max_culprits", 16)
	v.SetDefault("alerts.history_retention_days", 30)
	v.SetDefault("alerts.targets", []string{})
	v.SetDefault("alerts.mqtt.enabled", false)
	v.SetDefault("alerts.mqtt.topic", "finder/alerts")
	v.SetDefault("alerts.mqtt.client_id", "finder")

	v.SetDefault("refresh.period_ticks", 60)
	v.SetDefault("refresh.continuous", false)

	v.SetDefault("server.listen", "127.0.0.1:8099")
	v.SetDefault("server.tick_interval", time.Second/TicksPerSecond)

	v.SetDefault("world.file", "")
	v.SetDefault("god_mode", false)
}

// Load reads settings from path (or finder.yaml in the usual locations when
// path is empty), overlays FINDER_* environment variables and validates the
// result. A missing config file is not an error.
func Load(path string) (*Settings, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("finder")
		v.AddConfigPath("$HOME/.config/finder")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("FINDER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	ApplyDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var s Settings
	if err := v.Unmarshal(&s, viper.DecodeHook(DurationDecodeHook())); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}
