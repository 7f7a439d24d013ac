package config

import (
	"log"
	"os"
	"strconv"
	"strings"
)

// Config holds application configuration loaded from environment variables.
// Provide sane defaults for local development.
type Config struct {
	AppName string
	Env     string // development, staging, production
	Port    string
	GinMode string

	// Database backend selection: dynamodb, mongodb, or memory.
	DBType string

	// DynamoDB
	DynamoEndpoint  string // optional; set for local emulators
	DynamoRegion    string
	DynamoTable     string
	DynamoAccessKey string // optional; default credential chain when empty
	DynamoSecretKey string

	// MongoDB
	MongoURI        string
	MongoDatabase   string
	MongoCollection string

	// Redis (rate limiting; empty addr disables it)
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Authentication: basic (API keys), oauth (bearer JWT), or none.
	AuthMode    string
	APIKeys     string // comma-separated name:secret pairs
	JWTSecret   string
	JWTIssuer   string
	JWTAudience string

	// Password handling
	HashAlgorithm       string // bcrypt, argon2, sha256, simple
	ServerSideHash      bool
	PasswordHeaderCheck bool

	// Mailgun
	MailgunDomain string
	MailgunAPIKey string
	MailgunSender string

	// RabbitMQ
	RabbitMQURL        string
	RabbitMQEmailQueue string

	// Email sending toggle
	MailSendEnabled bool

	// Link embedded in verification emails
	VerifyEmailURL string

	// CORS
	CORSAllowedOrigins string // comma-separated

	// HTTP access log toggle (Gin logger)
	HTTPLogEnabled bool
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getbool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			log.Printf("invalid boolean for %s: %v, using default %v", key, err, def)
			return def
		}
		return b
	}
	return def
}

func getint(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err != nil {
			log.Printf("invalid int for %s: %v, using default %d", key, err, def)
			return def
		}
		return i
	}
	return def
}

// Load loads configuration from environment variables
func Load() *Config {
	return &Config{
		AppName: getenv("APP_NAME", "volt"),
		Env:     getenv("APP_ENV", "development"),
		Port:    getenv("PORT", "8080"),
		GinMode: getenv("GIN_MODE", "release"),

		DBType: getenv("DB_TYPE", "memory"),

		DynamoEndpoint:  getenv("DYNAMO_ENDPOINT", ""),
		DynamoRegion:    getenv("DYNAMO_REGION", "us-east-1"),
		DynamoTable:     getenv("DYNAMO_TABLE", "users"),
		DynamoAccessKey: getenv("DYNAMO_ACCESS_KEY", ""),
		DynamoSecretKey: getenv("DYNAMO_SECRET_KEY", ""),

		MongoURI:        getenv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase:   getenv("MONGO_DATABASE", "volt"),
		MongoCollection: getenv("MONGO_COLLECTION", "users"),

		RedisAddr:     getenv("REDIS_ADDR", ""),
		RedisPassword: getenv("REDIS_PASSWORD", ""),
		RedisDB:       getint("REDIS_DB", 0),

		AuthMode:    getenv("AUTH_MODE", "basic"),
		APIKeys:     getenv("API_KEYS", "application:secret"),
		JWTSecret:   getenv("JWT_SECRET", "devsecret"),
		JWTIssuer:   getenv("JWT_ISSUER", "volt"),
		JWTAudience: getenv("JWT_AUDIENCE", "volt"),

		HashAlgorithm:       getenv("HASH_ALGORITHM", "bcrypt"),
		ServerSideHash:      getbool("SERVER_SIDE_HASH", false),
		PasswordHeaderCheck: getbool("PASSWORD_HEADER_CHECK", true),

		MailgunDomain: getenv("MAILGUN_DOMAIN", ""),
		MailgunAPIKey: getenv("MAILGUN_API_KEY", ""),
		MailgunSender: getenv("MAILGUN_SENDER", ""),

		RabbitMQURL:        getenv("RABBITMQ_URL", ""),
		RabbitMQEmailQueue: getenv("RABBITMQ_EMAIL_QUEUE", "emails"),

		// Email sending toggle (default true for backward compatibility)
		MailSendEnabled: getbool("MAIL_SEND_ENABLED", true),

		VerifyEmailURL: getenv("VERIFY_EMAIL_URL", "http://localhost:8080/api/verify"),

		CORSAllowedOrigins: getenv("CORS_ALLOWED_ORIGINS", ""),

		// HTTP access log toggle (default false; enable when needed)
		HTTPLogEnabled: getbool("HTTP_LOG_ENABLED", false),
	}
}

// AuthKeys parses API_KEYS into a name→secret map.
func (c *Config) AuthKeys() map[string]string {
	keys := make(map[string]string)
	for _, pair := range strings.Split(c.APIKeys, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		name, secret, ok := strings.Cut(pair, ":")
		if !ok {
			log.Printf("ignoring malformed API key entry %q", pair)
			continue
		}
		keys[name] = secret
	}
	return keys
}

// CORSOrigins returns the allowed origins as slice
func (c *Config) CORSOrigins() []string {
	parts := strings.Split(c.CORSAllowedOrigins, ",")
	res := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			res = append(res, p)
		}
	}
	return res
}
