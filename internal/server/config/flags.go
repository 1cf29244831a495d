package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/gophid/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":8080")
//	-d string   PostgreSQL DSN
//	-s string   session token HMAC secret
//	-t int      session token validity, minutes
//	-u string   base URL used in verification links
//	-o string   public origin used in avatar URLs
//	-m string   SMTP host
//	-l string   log level
//
// Duration flags are accepted as integers in minutes.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-d", "-s", "-t", "-u", "-o", "-m", "-l"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddr, "a", config.EndpointAddr, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")

	sessionTTL := fs.Int("t", int(config.SessionTTL.Minutes()), "session token validity (in minutes)")

	fs.StringVar(&config.BaseURL, "u", config.BaseURL, "base URL for verification links")
	fs.StringVar(&config.PublicOrigin, "o", config.PublicOrigin, "public origin for avatar URLs")
	fs.StringVar(&config.MailHost, "m", config.MailHost, "SMTP host")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.SessionTTL = time.Duration(*sessionTTL) * time.Minute
}
