package lib

import "github.com/spf13/viper"

// Config holds everything read from the environment at startup.
type Config struct {
	Port      string
	MongoURI  string
	DBName    string
	JWTSecret string
	ClientURL string
}

// LoadConfig reads configuration from environment variables with defaults
// suitable for local development.
func LoadConfig() *Config {
	v := viper.New()
	v.SetDefault("PORT", "3000")
	v.SetDefault("MONGO_URI", "mongodb://localhost:27017")
	v.SetDefault("DB_NAME", "miyakobook")
	v.SetDefault("JWT_SECRET", "fallback-secret-key")
	v.SetDefault("CLIENT_URL", "http://localhost:5173")
	v.AutomaticEnv()

	return &Config{
		Port:      v.GetString("PORT"),
		MongoURI:  v.GetString("MONGO_URI"),
		DBName:    v.GetString("DB_NAME"),
		JWTSecret: v.GetString("JWT_SECRET"),
		ClientURL: v.GetString("CLIENT_URL"),
	}
}
