package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// parseEnv overlays values from the environment. Every setting has a
// GOPHID_ prefixed variable; SECRET_KEY and BASE_URL are also accepted
// under their bare names for compatibility with existing deployments.
// Values that fail to parse are ignored.
func parseEnv(c *Config) {
	envString(&c.EndpointAddr, "GOPHID_ADDR")
	envString(&c.DatabaseDSN, "GOPHID_DATABASE_DSN", "DATABASE_URL")
	envString(&c.SecretKey, "GOPHID_SECRET_KEY", "SECRET_KEY")
	envDuration(&c.SessionTTL, "GOPHID_SESSION_TTL")
	envString(&c.BaseURL, "GOPHID_BASE_URL", "BASE_URL")
	envString(&c.PublicOrigin, "GOPHID_PUBLIC_ORIGIN")
	envDuration(&c.RequestTimeout, "GOPHID_REQUEST_TIMEOUT")
	envString(&c.LogLevel, "GOPHID_LOG_LEVEL")

	envString(&c.MailHost, "GOPHID_MAIL_HOST")
	envInt(&c.MailPort, "GOPHID_MAIL_PORT")
	envString(&c.MailUser, "GOPHID_MAIL_USER")
	envString(&c.MailPassword, "GOPHID_MAIL_PASSWORD")
	envString(&c.MailFrom, "GOPHID_MAIL_FROM")
	envBool(&c.MailAsync, "GOPHID_MAIL_ASYNC")
	envInt(&c.MailQueueSize, "GOPHID_MAIL_QUEUE_SIZE")
	envDuration(&c.MailTimeout, "GOPHID_MAIL_TIMEOUT")

	envString(&c.AvatarBackend, "GOPHID_AVATAR_BACKEND")
	envString(&c.AvatarDir, "GOPHID_AVATAR_DIR")
	envString(&c.TempDir, "GOPHID_TEMP_DIR")
	envDuration(&c.AvatarTimeout, "GOPHID_AVATAR_TIMEOUT")

	if v, ok := lookup("GOPHID_RATE_LIMIT_RPS"); ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.RateLimitRPS = f
		}
	}
	envInt(&c.RateLimitBurst, "GOPHID_RATE_LIMIT_BURST")

	envString(&c.S3RootUser, "GOPHID_S3_ROOT_USER")
	envString(&c.S3RootPassword, "GOPHID_S3_ROOT_PASSWORD")
	envString(&c.S3Bucket, "GOPHID_S3_BUCKET")
	envString(&c.S3Region, "GOPHID_S3_REGION")
	envString(&c.S3BaseEndpoint, "GOPHID_S3_BASE_ENDPOINT")
}

// lookup returns the first non-empty variable among names.
func lookup(names ...string) (string, bool) {
	for _, name := range names {
		if v, ok := os.LookupEnv(name); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v), true
		}
	}
	return "", false
}

func envString(dst *string, names ...string) {
	if v, ok := lookup(names...); ok {
		*dst = v
	}
}

func envInt(dst *int, names ...string) {
	if v, ok := lookup(names...); ok {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func envBool(dst *bool, names ...string) {
	if v, ok := lookup(names...); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func envDuration(dst *time.Duration, names ...string) {
	if v, ok := lookup(names...); ok {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
