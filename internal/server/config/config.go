// Package config handles configuration for the gophid server, including
// defaults, a JSON or YAML file overlay, environment variables and
// command-line flags.
package config

import "time"

// Avatar storage backends.
const (
	AvatarBackendDisk = "disk"
	AvatarBackendS3   = "s3"
)

// Config holds runtime settings for the gophid server.
//
// Fields:
//   - EndpointAddr: bind address of the HTTP API.
//   - DatabaseDSN: PostgreSQL DSN (pgx). Empty selects the in-memory store.
//   - SecretKey: HMAC secret for signing session tokens (HS256).
//   - SessionTTL: lifetime of a session token.
//   - BaseURL: prefix of verification links sent by email.
//   - PublicOrigin: prefix of avatar URLs returned to clients.
//   - Mail*: SMTP transport settings; an empty MailHost logs messages instead.
//   - MailAsync: hand messages to the outbox instead of sending inline.
//   - Avatar*: avatar storage backend, directory and processing timeout.
//   - S3*: object storage settings used when AvatarBackend is "s3".
type Config struct {
	EndpointAddr   string
	DatabaseDSN    string
	SecretKey      string
	SessionTTL     time.Duration
	BaseURL        string
	PublicOrigin   string
	RequestTimeout time.Duration
	LogLevel       string

	MailHost      string
	MailPort      int
	MailUser      string
	MailPassword  string
	MailFrom      string
	MailAsync     bool
	MailQueueSize int
	MailTimeout   time.Duration

	AvatarBackend string
	AvatarDir     string
	TempDir       string
	AvatarTimeout time.Duration

	RateLimitRPS   float64
	RateLimitBurst int

	S3RootUser     string
	S3RootPassword string
	S3Bucket       string
	S3Region       string
	S3BaseEndpoint string
}

// LoadDefaults populates Config with development defaults.
// NOTE: SecretKey must be overridden in production.
func (c *Config) LoadDefaults() {
	c.EndpointAddr = ":8080"
	c.DatabaseDSN = ""
	c.SecretKey = "secretKey"
	c.SessionTTL = 23 * time.Hour
	c.BaseURL = "http://localhost:8080"
	c.PublicOrigin = "http://localhost:8080"
	c.RequestTimeout = 30 * time.Second
	c.LogLevel = "info"

	c.MailHost = ""
	c.MailPort = 587
	c.MailAsync = true
	c.MailQueueSize = 100
	c.MailTimeout = 10 * time.Second

	c.AvatarBackend = AvatarBackendDisk
	c.AvatarDir = "public/avatars"
	c.TempDir = "tmp"
	c.AvatarTimeout = 15 * time.Second

	c.RateLimitRPS = 5
	c.RateLimitBurst = 10

	c.S3RootUser = "admin"
	c.S3RootPassword = "secretpassword"
	c.S3Bucket = "avatars"
	c.S3Region = "us-east-1"
	c.S3BaseEndpoint = "http://127.0.0.1:9000/"
}

// Sender returns the From address for outgoing mail.
func (c *Config) Sender() string {
	if c.MailFrom != "" {
		return c.MailFrom
	}
	return c.MailUser
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional config file, the environment and finally command-line
// flags. Later sources take precedence.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseFile(cfg)
	parseEnv(cfg)
	parseFlags(cfg)
	return cfg
}
