package config

import (
	"fmt"
	"github.com/ilyakaznacheev/cleanenv"
	"log"
	"sync"
	"vetlink/entity"
)

const (
	DriverMemory = "memory"
	DriverMongo  = "mongo"
	DriverRedis  = "redis"
	DriverMySql  = "mysql"
)

type Listen struct {
	BindIp string `yaml:"bind_ip" env-default:"0.0.0.0"`
	Port   string `yaml:"port" env-default:"8080"`
}

type StoreConfig struct {
	Driver string `yaml:"driver" env:"STORE_DRIVER" env-default:"memory"`
}

type MongoConfig struct {
	Enabled  bool   `yaml:"enabled" env-default:"false"`
	Host     string `yaml:"host" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env-default:"27017"`
	User     string `yaml:"user" env-default:""`
	Password string `yaml:"password" env-default:""`
	Database string `yaml:"database" env-default:"vetlink"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr" env:"REDIS_ADDR" env-default:"127.0.0.1:6379"`
	Password string `yaml:"password" env:"REDIS_PASSWORD" env-default:""`
	DB       int    `yaml:"db" env-default:"0"`
	Prefix   string `yaml:"prefix" env-default:"vetlink:"`
}

type MySqlConfig struct {
	HostName string `yaml:"hostname" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env-default:"3306"`
	UserName string `yaml:"username" env-default:""`
	Password string `yaml:"password" env-default:""`
	Database string `yaml:"database" env-default:"vetlink"`
	Prefix   string `yaml:"prefix" env-default:""`
}

type NatsConfig struct {
	Enabled bool   `yaml:"enabled" env-default:"false"`
	Url     string `yaml:"url" env:"NATS_URL" env-default:"nats://127.0.0.1:4222"`
	Subject string `yaml:"subject" env-default:"vetlink.codes"`
}

type TelegramConfig struct {
	Enabled bool    `yaml:"enabled" env-default:"false"`
	ApiKey  string  `yaml:"api_key" env:"TELEGRAM_API_KEY" env-default:""`
	Admins  []int64 `yaml:"admins"`
	// log records at or above this level are forwarded to admins
	LogLevel int `yaml:"log_level" env-default:"8"`
}

type CodesConfig struct {
	DefaultTtlMinutes int `yaml:"default_ttl_minutes" env-default:"60"`
	MaxAttempts       int `yaml:"max_attempts" env-default:"50"`
}

type Config struct {
	Env      string         `yaml:"env" env-default:"local"`
	Listen   Listen         `yaml:"listen"`
	Store    StoreConfig    `yaml:"store"`
	Mongo    MongoConfig    `yaml:"mongo"`
	Redis    RedisConfig    `yaml:"redis"`
	MySql    MySqlConfig    `yaml:"mysql"`
	Nats     NatsConfig     `yaml:"nats"`
	Telegram TelegramConfig `yaml:"telegram"`
	Codes    CodesConfig    `yaml:"codes"`
	Users    []entity.User  `yaml:"users"`
}

var instance *Config
var once sync.Once

func MustLoad(path string) *Config {
	once.Do(func() {
		conf, err := Load(path)
		if err != nil {
			log.Fatal(err)
		}
		instance = conf
	})
	return instance
}

func Load(path string) (*Config, error) {
	conf := &Config{}
	if err := cleanenv.ReadConfig(path, conf); err != nil {
		desc, _ := cleanenv.GetDescription(conf, nil)
		return nil, fmt.Errorf("config: %s; %s", err, desc)
	}
	if err := conf.check(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return conf, nil
}

func (c *Config) check() error {
	switch c.Store.Driver {
	case DriverMemory, DriverMongo, DriverRedis, DriverMySql:
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}
	if c.Store.Driver == DriverMongo && !c.Mongo.Enabled {
		return fmt.Errorf("store driver is mongo but mongo is disabled")
	}
	if c.Codes.DefaultTtlMinutes < 1 {
		return fmt.Errorf("codes.default_ttl_minutes must be positive, got %d", c.Codes.DefaultTtlMinutes)
	}
	if c.Codes.MaxAttempts < 1 {
		return fmt.Errorf("codes.max_attempts must be positive, got %d", c.Codes.MaxAttempts)
	}
	if c.Telegram.Enabled && c.Telegram.ApiKey == "" {
		return fmt.Errorf("telegram enabled without api_key")
	}
	return nil
}
