package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type AppConfig struct {
	Env  string `mapstructure:"env"`
	Port int    `mapstructure:"port"`
}

type MongoConfig struct {
	URI                string `mapstructure:"uri"`
	Database           string `mapstructure:"database"`
	MessagesCollection string `mapstructure:"messages_collection"`
	ChatsCollection    string `mapstructure:"chats_collection"`
}

type WhatsAppConfig struct {
	StoreURI            string `mapstructure:"store_uri"`
	LogLevel            string `mapstructure:"log_level"`
	ReconnectBaseMillis int    `mapstructure:"reconnect_base_millis"`
	ReconnectMaxMillis  int    `mapstructure:"reconnect_max_millis"`
	SendTimeoutSeconds  int    `mapstructure:"send_timeout_seconds"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	TopicIn string   `mapstructure:"topic_in"`
}

type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Mongo    MongoConfig    `mapstructure:"mongodb"`
	WhatsApp WhatsAppConfig `mapstructure:"whatsapp"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	// derived values
	ReconnectBase time.Duration
	ReconnectMax  time.Duration
	SendTimeout   time.Duration
}

func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, err
	}
	// sensible defaults
	if c.App.Port == 0 {
		c.App.Port = 8080
	}
	if c.Mongo.Database == "" {
		c.Mongo.Database = "chat_cs"
	}
	if c.Mongo.MessagesCollection == "" {
		c.Mongo.MessagesCollection = "messages"
	}
	if c.Mongo.ChatsCollection == "" {
		c.Mongo.ChatsCollection = "chats"
	}
	if c.WhatsApp.StoreURI == "" {
		c.WhatsApp.StoreURI = "file:whatsapp.db?_foreign_keys=on"
	}
	if c.WhatsApp.LogLevel == "" {
		c.WhatsApp.LogLevel = "INFO"
	}
	if c.WhatsApp.ReconnectBaseMillis == 0 {
		c.WhatsApp.ReconnectBaseMillis = 1000
	}
	if c.WhatsApp.ReconnectMaxMillis == 0 {
		c.WhatsApp.ReconnectMaxMillis = 30000
	}
	if c.WhatsApp.SendTimeoutSeconds == 0 {
		c.WhatsApp.SendTimeoutSeconds = 30
	}
	c.ReconnectBase = time.Duration(c.WhatsApp.ReconnectBaseMillis) * time.Millisecond
	c.ReconnectMax = time.Duration(c.WhatsApp.ReconnectMaxMillis) * time.Millisecond
	c.SendTimeout = time.Duration(c.WhatsApp.SendTimeoutSeconds) * time.Second
	return &c, nil
}
