package config

import (
	"log"

	"github.com/spf13/viper"
)

type Config struct {
	DBUrl        string `mapstructure:"DB_URL"`
	DBMaxConns   int32  `mapstructure:"DB_MAX_CONNS"`
	DBMinConns   int32  `mapstructure:"DB_MIN_CONNS"`
	Addr         string `mapstructure:"ADDR"`
	SiteURL      string `mapstructure:"SITE_URL"`
	SMTPHost     string `mapstructure:"SMTP_HOST"`
	SMTPPort     string `mapstructure:"SMTP_PORT"`
	SMTPFrom     string `mapstructure:"SMTP_FROM"`
	SMTPUsername string `mapstructure:"SMTP_USERNAME"`
	SMTPPassword string `mapstructure:"SMTP_PASSWORD"`
}

func LoadConfig() Config {
	viper.SetConfigFile(".env")
	viper.AutomaticEnv()

	viper.SetDefault("DB_MAX_CONNS", 25)
	viper.SetDefault("DB_MIN_CONNS", 5)
	viper.SetDefault("ADDR", ":8080")
	viper.SetDefault("SITE_URL", "http://localhost:8080")
	viper.SetDefault("SMTP_HOST", "localhost")
	viper.SetDefault("SMTP_PORT", "1025")
	viper.SetDefault("SMTP_FROM", "noreply@mmoboard.local")

	if err := viper.ReadInConfig(); err != nil {
		log.Println("No .env file found, using env variables only")
	}

	var c Config
	if err := viper.Unmarshal(&c); err != nil {
		log.Fatal("config unmarshal error:", err)
	}

	return c
}
