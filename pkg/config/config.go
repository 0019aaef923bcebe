package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Telegram TelegramConfig
	Parser   ParserConfig
	Gemini   GeminiConfig
	GigaChat GigaChatConfig
	JWT      JWTConfig
	Logger   LoggerConfig
}

type LoggerConfig struct {
	Level string
}

type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type TelegramConfig struct {
	BotToken string
	// APIBaseURL and FileBaseURL are overridable for tests.
	APIBaseURL  string
	FileBaseURL string
}

type ParserConfig struct {
	// Backend selects the extraction strategy: "gemini" or "gigachat".
	Backend string
	// MaxAttempts bounds calls to the extraction capability per update.
	MaxAttempts int
}

type GeminiConfig struct {
	APIKey string
	Model  string
}

type GigaChatConfig struct {
	APIKey             string
	Scope              string
	InsecureSkipVerify bool
}

type JWTConfig struct {
	SecretKey    string
	Expiration   time.Duration
	RefreshExp   time.Duration
	LoginCodeTTL time.Duration
}

func Load() (*Config, error) {
	// Try to load .env from the current directory or project root; fall back
	// to plain environment variables (Docker/K8s).
	envFiles := []string{".env", "../.env", "../../.env"}
	for _, envFile := range envFiles {
		if err := godotenv.Load(envFile); err == nil {
			break
		}
	}

	readTimeout, _ := strconv.Atoi(getEnv("SERVER_READ_TIMEOUT", "30"))
	writeTimeout, _ := strconv.Atoi(getEnv("SERVER_WRITE_TIMEOUT", "30"))
	maxAttempts, _ := strconv.Atoi(getEnv("PARSER_MAX_ATTEMPTS", "3"))
	jwtExp, _ := strconv.Atoi(getEnv("JWT_EXPIRATION_HOURS", "24"))
	refreshExp, _ := strconv.Atoi(getEnv("JWT_REFRESH_EXPIRATION_HOURS", "168"))
	loginCodeTTL, _ := strconv.Atoi(getEnv("LOGIN_CODE_TTL_MINUTES", "15"))
	insecureSkipVerify := getEnv("GIGACHAT_INSECURE_SKIP_VERIFY", "false") == "true"

	return &Config{
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "8080"),
			ReadTimeout:  time.Duration(readTimeout) * time.Second,
			WriteTimeout: time.Duration(writeTimeout) * time.Second,
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "finance_tracker"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Telegram: TelegramConfig{
			BotToken:    getEnv("TELEGRAM_BOT_TOKEN", ""),
			APIBaseURL:  getEnv("TELEGRAM_API_URL", "https://api.telegram.org"),
			FileBaseURL: getEnv("TELEGRAM_FILE_URL", "https://api.telegram.org/file"),
		},
		Parser: ParserConfig{
			Backend:     getEnv("PARSER_BACKEND", "gemini"),
			MaxAttempts: maxAttempts,
		},
		Gemini: GeminiConfig{
			APIKey: getEnv("GEMINI_API_KEY", ""),
			Model:  getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		},
		GigaChat: GigaChatConfig{
			APIKey:             getEnv("GIGACHAT_API_KEY", ""),
			Scope:              getEnv("GIGACHAT_SCOPE", "GIGACHAT_API_PERS"),
			InsecureSkipVerify: insecureSkipVerify,
		},
		JWT: JWTConfig{
			SecretKey:    getEnv("JWT_SECRET_KEY", "change-me-in-production"),
			Expiration:   time.Duration(jwtExp) * time.Hour,
			RefreshExp:   time.Duration(refreshExp) * time.Hour,
			LoginCodeTTL: time.Duration(loginCodeTTL) * time.Minute,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
