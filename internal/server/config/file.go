package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophid/internal/flagx"
	"github.com/dmitrijs2005/gophid/internal/timex"
	"gopkg.in/yaml.v3"
)

// FileConfig is the on-disk shape of the configuration. Every field is
// optional: a nil pointer leaves the current value untouched.
type FileConfig struct {
	EndpointAddr   *string         `json:"endpoint_addr" yaml:"endpoint_addr"`
	DatabaseDSN    *string         `json:"database_dsn" yaml:"database_dsn"`
	SecretKey      *string         `json:"secret_key" yaml:"secret_key"`
	SessionTTL     *timex.Duration `json:"session_ttl" yaml:"session_ttl"`
	BaseURL        *string         `json:"base_url" yaml:"base_url"`
	PublicOrigin   *string         `json:"public_origin" yaml:"public_origin"`
	RequestTimeout *timex.Duration `json:"request_timeout" yaml:"request_timeout"`
	LogLevel       *string         `json:"log_level" yaml:"log_level"`

	MailHost      *string         `json:"mail_host" yaml:"mail_host"`
	MailPort      *int            `json:"mail_port" yaml:"mail_port"`
	MailUser      *string         `json:"mail_user" yaml:"mail_user"`
	MailPassword  *string         `json:"mail_password" yaml:"mail_password"`
	MailFrom      *string         `json:"mail_from" yaml:"mail_from"`
	MailAsync     *bool           `json:"mail_async" yaml:"mail_async"`
	MailQueueSize *int            `json:"mail_queue_size" yaml:"mail_queue_size"`
	MailTimeout   *timex.Duration `json:"mail_timeout" yaml:"mail_timeout"`

	AvatarBackend *string         `json:"avatar_backend" yaml:"avatar_backend"`
	AvatarDir     *string         `json:"avatar_dir" yaml:"avatar_dir"`
	TempDir       *string         `json:"temp_dir" yaml:"temp_dir"`
	AvatarTimeout *timex.Duration `json:"avatar_timeout" yaml:"avatar_timeout"`

	RateLimitRPS   *float64 `json:"rate_limit_rps" yaml:"rate_limit_rps"`
	RateLimitBurst *int     `json:"rate_limit_burst" yaml:"rate_limit_burst"`

	S3RootUser     *string `json:"s3_root_user" yaml:"s3_root_user"`
	S3RootPassword *string `json:"s3_root_password" yaml:"s3_root_password"`
	S3Bucket       *string `json:"s3_bucket" yaml:"s3_bucket"`
	S3Region       *string `json:"s3_region" yaml:"s3_region"`
	S3BaseEndpoint *string `json:"s3_base_endpoint" yaml:"s3_base_endpoint"`
}

// parseFile overlays values from the file named by -c/-config. Files ending
// in .yaml or .yml are decoded as YAML, everything else as JSON. A missing
// or malformed file is fatal: the function panics like the flag parser does.
func parseFile(config *Config) {
	path := flagx.ConfigFileFlag()
	if path == "" {
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	fc, err := decodeFile(path, data)
	if err != nil {
		panic(err)
	}

	fc.apply(config)
}

func decodeFile(path string, data []byte) (*FileConfig, error) {
	fc := &FileConfig{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, fc); err != nil {
			return nil, err
		}
	default:
		if err := json.Unmarshal(data, fc); err != nil {
			return nil, err
		}
	}
	return fc, nil
}

func (fc *FileConfig) apply(c *Config) {
	setString(&c.EndpointAddr, fc.EndpointAddr)
	setString(&c.DatabaseDSN, fc.DatabaseDSN)
	setString(&c.SecretKey, fc.SecretKey)
	setDuration(&c.SessionTTL, fc.SessionTTL)
	setString(&c.BaseURL, fc.BaseURL)
	setString(&c.PublicOrigin, fc.PublicOrigin)
	setDuration(&c.RequestTimeout, fc.RequestTimeout)
	setString(&c.LogLevel, fc.LogLevel)

	setString(&c.MailHost, fc.MailHost)
	setInt(&c.MailPort, fc.MailPort)
	setString(&c.MailUser, fc.MailUser)
	setString(&c.MailPassword, fc.MailPassword)
	setString(&c.MailFrom, fc.MailFrom)
	if fc.MailAsync != nil {
		c.MailAsync = *fc.MailAsync
	}
	setInt(&c.MailQueueSize, fc.MailQueueSize)
	setDuration(&c.MailTimeout, fc.MailTimeout)

	setString(&c.AvatarBackend, fc.AvatarBackend)
	setString(&c.AvatarDir, fc.AvatarDir)
	setString(&c.TempDir, fc.TempDir)
	setDuration(&c.AvatarTimeout, fc.AvatarTimeout)

	if fc.RateLimitRPS != nil {
		c.RateLimitRPS = *fc.RateLimitRPS
	}
	setInt(&c.RateLimitBurst, fc.RateLimitBurst)

	setString(&c.S3RootUser, fc.S3RootUser)
	setString(&c.S3RootPassword, fc.S3RootPassword)
	setString(&c.S3Bucket, fc.S3Bucket)
	setString(&c.S3Region, fc.S3Region)
	setString(&c.S3BaseEndpoint, fc.S3BaseEndpoint)
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func setDuration(dst *time.Duration, v *timex.Duration) {
	if v != nil {
		*dst = v.Duration
	}
}
