// internal/config/config.go

package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"acdispatch/internal/types"

	env "github.com/Netflix/go-env"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

var validate = validator.New()

// ErrInvalidConfig 调度参数校验失败
var ErrInvalidConfig = errors.New("invalid scheduler config")

// Config 服务整体配置
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Log       LogConfig       `yaml:"log"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Monitor   MonitorConfig   `yaml:"monitor"`
	Cors      CorsConfig      `yaml:"cors"`
}

type ServerConfig struct {
	Port            int           `yaml:"port" validate:"min=1,max=65535"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" validate:"gt=0"`
}

type DatabaseConfig struct {
	Path      string `yaml:"path" validate:"required"`
	SeedRooms bool   `yaml:"seed_rooms"`
}

type LogConfig struct {
	Level string `yaml:"level" validate:"oneof=debug info warn error off"`
}

type MonitorConfig struct {
	Interval time.Duration `yaml:"interval" validate:"gt=0"`
}

type CorsConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// SchedulerConfig 调度参数, 只在 Reset 之间变更
type SchedulerConfig struct {
	Mode         types.Mode    `yaml:"mode" json:"mode" validate:"oneof=cooling heating"`
	MinTemp      float64       `yaml:"min_temp" json:"minTemperature"`
	MaxTemp      float64       `yaml:"max_temp" json:"maxTemperature"`
	LowRate      float64       `yaml:"low_rate" json:"lowRate" validate:"gt=0"`       // 分钟/度
	MediumRate   float64       `yaml:"medium_rate" json:"mediumRate" validate:"gt=0"` // 分钟/度
	HighRate     float64       `yaml:"high_rate" json:"highRate" validate:"gt=0"`     // 分钟/度
	BackSpeed    float64       `yaml:"back_speed" json:"backSpeed" validate:"gte=0"`  // 度/分钟
	Threshold    float64       `yaml:"threshold" json:"threshold" validate:"gte=0"`
	Price        float64       `yaml:"price" json:"price" validate:"gte=0"` // 元/度
	Factor       float64       `yaml:"factor" json:"factor" validate:"gt=0"`
	Capacity     int           `yaml:"capacity" json:"capacity" validate:"min=1"`
	TimeSlice    int           `yaml:"time_slice" json:"timeSlice" validate:"min=1"` // tick 数
	TickInterval time.Duration `yaml:"tick_interval" json:"tickInterval" validate:"gt=0"`
	DefaultTemp  float64       `yaml:"default_temp" json:"defaultTemperature"`
	DefaultSpeed types.Speed   `yaml:"default_speed" json:"defaultSpeed" validate:"oneof=low medium high"`
}

// Cooling 是否制冷模式
func (c SchedulerConfig) Cooling() bool { return c.Mode.Cooling() }

// RateOf 返回风速对应的变温速率(分钟/度)
func (c SchedulerConfig) RateOf(speed types.Speed) float64 {
	switch speed {
	case types.SpeedLow:
		return c.LowRate
	case types.SpeedHigh:
		return c.HighRate
	default:
		return c.MediumRate
	}
}

// Validate 校验字段约束和字段间约束
func (c SchedulerConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if c.MinTemp >= c.MaxTemp {
		return fmt.Errorf("%w: min_temp %.1f must be below max_temp %.1f", ErrInvalidConfig, c.MinTemp, c.MaxTemp)
	}
	if c.DefaultTemp < c.MinTemp || c.DefaultTemp > c.MaxTemp {
		return fmt.Errorf("%w: default_temp %.1f outside [%.1f, %.1f]", ErrInvalidConfig, c.DefaultTemp, c.MinTemp, c.MaxTemp)
	}
	return nil
}

func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return c.Scheduler.Validate()
}

// DefaultScheduler 默认调度参数
func DefaultScheduler() SchedulerConfig {
	return SchedulerConfig{
		Mode:         types.ModeCooling,
		MinTemp:      18,
		MaxTemp:      28,
		LowRate:      3,
		MediumRate:   2,
		HighRate:     1,
		BackSpeed:    0.5,
		Threshold:    1,
		Price:        1,
		Factor:       1,
		Capacity:     3,
		TimeSlice:    20,
		TickInterval: time.Second,
		DefaultTemp:  25,
		DefaultSpeed: types.SpeedMedium,
	}
}

func Default() *Config {
	return &Config{
		Server:    ServerConfig{Port: 8080, ShutdownTimeout: 5 * time.Second},
		Database:  DatabaseConfig{Path: "acdispatch.db", SeedRooms: true},
		Log:       LogConfig{Level: "info"},
		Scheduler: DefaultScheduler(),
		Monitor:   MonitorConfig{Interval: 5 * time.Second},
		Cors:      CorsConfig{AllowedOrigins: []string{"*"}},
	}
}

// Overrides 环境变量覆盖项, 未设置的保持文件中的值
type Overrides struct {
	ConfigPath   *string        `env:"ACD_CONFIG"`
	Port         *int           `env:"ACD_PORT"`
	DBPath       *string        `env:"ACD_DB_PATH"`
	LogLevel     *string        `env:"ACD_LOG_LEVEL"`
	TickInterval *time.Duration `env:"ACD_TICK_INTERVAL"`
	Factor       *float64       `env:"ACD_FACTOR"`
}

func (o Overrides) apply(c *Config) {
	if o.Port != nil {
		c.Server.Port = *o.Port
	}
	if o.DBPath != nil {
		c.Database.Path = *o.DBPath
	}
	if o.LogLevel != nil {
		c.Log.Level = *o.LogLevel
	}
	if o.TickInterval != nil {
		c.Scheduler.TickInterval = *o.TickInterval
	}
	if o.Factor != nil {
		c.Scheduler.Factor = *o.Factor
	}
}

// Load 读取 .env、配置文件和环境变量
// path 为空时使用 ACD_CONFIG, 两者都为空则只使用默认值
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	var o Overrides
	if _, err := env.UnmarshalFromEnviron(&o); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}
	if path == "" && o.ConfigPath != nil {
		path = *o.ConfigPath
	}

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}
	o.apply(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
