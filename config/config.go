package config

import (
	"log"

	"github.com/spf13/viper"
)

type Config struct {
	Server struct {
		Port       string
		CorsOrigin string
	}
	Redis struct {
		Enabled  bool
		Addr     string
		Password string
		DB       int
	}
	Assistant struct {
		APIKey         string
		Model          string
		Endpoint       string
		TimeoutSeconds int
	}
}

var C Config

func Load() {
	viper.SetConfigFile("config/config.yaml")

	viper.SetDefault("server.port", ":3000")
	viper.SetDefault("server.corsorigin", "*")
	viper.SetDefault("redis.enabled", false)
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("assistant.model", "gemini-1.5-flash")
	viper.SetDefault("assistant.endpoint", "https://generativelanguage.googleapis.com")
	viper.SetDefault("assistant.timeoutseconds", 15)

	viper.AutomaticEnv()

	// The config file is optional; defaults plus environment are enough
	// to run the relay with an in-memory queue.
	if err := viper.ReadInConfig(); err != nil {
		log.Printf("config file not loaded, using defaults: %v", err)
	}
	if err := viper.Unmarshal(&C); err != nil {
		log.Fatalf("Failed to parse config: %v", err)
	}
}
