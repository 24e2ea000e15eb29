package app

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"

	RatingMergeDeep    = "deep"
	RatingMergeShallow = "shallow"
)

// Переменные окружения с секретами. В YAML секреты не хранятся.
const (
	envTelegramBotToken = "TELEGRAM_BOT_TOKEN"
	envTelegramChatID   = "TELEGRAM_CHAT_ID"
	envDBPassword       = "DB_PASSWORD"
	envRedisPassword    = "REDIS_PASSWORD"
)

type Config struct {
	ServerPort   string         `yaml:"srv_port"`
	AdsCapacity  int            `yaml:"ads_capacity"`
	Storage      string         `yaml:"storage"`
	MaxOpenConns int            `yaml:"max_open_conns"`
	CfgDB        ConfigDB       `yaml:"db"`
	CfgES        ConfigES       `yaml:"es"`
	CfgKafka     ConfigKafka    `yaml:"kafka"`
	CfgRedis     ConfigRedis    `yaml:"redis"`
	CfgClient    ConfigClient   `yaml:"client"`
	CfgCache     ConfigCache    `yaml:"cache"`
	CfgSync      ConfigSync     `yaml:"sync"`
	CfgTelegram  ConfigTelegram `yaml:"telegram"`
}

type ConfigDB struct {
	Login    string `yaml:"login"`
	Password string `yaml:"-"`
	Port     uint   `yaml:"port"`
	Database string `yaml:"database"`
	Host     string `yaml:"host"`
	SSLMode  string `yaml:"sslmode"`
}

// DSN собирает строку подключения для lib/pq
func (c ConfigDB) DSN() string {
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	return fmt.Sprintf("user=%s password=%s host=%s port=%d dbname=%s sslmode=%s",
		c.Login, c.Password, c.Host, c.Port, c.Database, sslMode)
}

type ConfigES struct {
	Addresses       []string      `yaml:"addresses"`
	Index           string        `yaml:"index"`
	ReindexInterval time.Duration `yaml:"reindex_interval"`
}

type ConfigKafka struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
	GroupID string   `yaml:"group_id"`
}

type ConfigRedis struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"-"`
	DB       int    `yaml:"db"`
}

type ConfigClient struct {
	BaseURL string        `yaml:"base_url"`
	APIPath string        `yaml:"api_path"`
	Timeout time.Duration `yaml:"timeout"`
}

type ConfigCache struct {
	Key      string `yaml:"key"`
	Capacity int    `yaml:"capacity"`
}

type ConfigSync struct {
	RatingMerge   string        `yaml:"rating_merge"`
	WatchInterval time.Duration `yaml:"watch_interval"`
}

type ConfigTelegram struct {
	APIURL   string `yaml:"api_url"`
	BotToken string `yaml:"-"`
	ChatID   int64  `yaml:"-"`
}

// Enabled - уведомления включены, только если заданы и токен, и чат
func (c ConfigTelegram) Enabled() bool {
	return c.BotToken != "" && c.ChatID != 0
}

func Default() Config {
	return Config{
		ServerPort:   ":8080",
		AdsCapacity:  100,
		Storage:      StorageMemory,
		MaxOpenConns: 10,
		CfgES: ConfigES{
			Index:           "ads",
			ReindexInterval: 5 * time.Minute,
		},
		CfgKafka: ConfigKafka{
			Topic:   "ads-events",
			GroupID: "vape-market-worker",
		},
		CfgRedis: ConfigRedis{
			Addr: "localhost:6379",
		},
		CfgClient: ConfigClient{
			BaseURL: "http://localhost:8080",
			APIPath: "/api/ads",
			Timeout: 10 * time.Second,
		},
		CfgCache: ConfigCache{
			Key:      "vapeMarketAds",
			Capacity: 50,
		},
		CfgSync: ConfigSync{
			RatingMerge:   RatingMergeDeep,
			WatchInterval: 30 * time.Second,
		},
		CfgTelegram: ConfigTelegram{
			APIURL: "https://api.telegram.org",
		},
	}
}

// NewConfig читает YAML поверх значений по умолчанию и подмешивает секреты из окружения.
// Файл .env рядом с бинарником необязателен.
func NewConfig(configPath string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	raw, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	return ParseConfig(raw)
}

func ParseConfig(raw []byte) (*Config, error) {
	c := Default()
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return nil, err
	}

	if err := c.applyEnv(); err != nil {
		return nil, err
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}

	return &c, nil
}

func (c *Config) applyEnv() error {
	c.CfgDB.Password = os.Getenv(envDBPassword)
	c.CfgRedis.Password = os.Getenv(envRedisPassword)
	c.CfgTelegram.BotToken = os.Getenv(envTelegramBotToken)

	if chatID := os.Getenv(envTelegramChatID); chatID != "" {
		id, err := strconv.ParseInt(chatID, 10, 64)
		if err != nil {
			return fmt.Errorf("%s must be an integer: %w", envTelegramChatID, err)
		}
		c.CfgTelegram.ChatID = id
	}

	return nil
}

func (c *Config) Validate() error {
	switch c.Storage {
	case StorageMemory, StoragePostgres:
	default:
		return fmt.Errorf("unknown storage %q", c.Storage)
	}

	switch c.CfgSync.RatingMerge {
	case RatingMergeDeep, RatingMergeShallow:
	default:
		return fmt.Errorf("unknown sync.rating_merge %q", c.CfgSync.RatingMerge)
	}

	if c.AdsCapacity <= 0 {
		return errors.New("ads_capacity must be positive")
	}
	if c.CfgCache.Capacity <= 0 {
		return errors.New("cache.capacity must be positive")
	}
	if c.CfgClient.Timeout <= 0 {
		return errors.New("client.timeout must be positive")
	}
	if len(c.CfgES.Addresses) > 0 && c.CfgES.ReindexInterval <= 0 {
		return errors.New("es.reindex_interval must be positive")
	}

	return nil
}
