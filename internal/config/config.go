// Package config provides functionality for managing configuration options
// for the application using command-line flags, a JSON config file and
// environment variables, applied in that order.
package config

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/atinyakov/DexWatch/internal/client/share"
)

// Options holds the configuration values for the application.
type Options struct {
	// AccountName is the Dexcom Share account.
	AccountName string `json:"account_name"`
	// Password is the Dexcom Share password.
	Password string `json:"password"`
	// ApplicationID is the vendor-issued application identifier.
	ApplicationID string `json:"application_id"`
	// ShareURL is the root of the Dexcom Share web services.
	ShareURL string `json:"share_url"`

	AuthBackoffBase  int `json:"auth_backoff_base"`
	MaxAuthFailures  int `json:"max_auth_failures"`
	FetchBackoffBase int `json:"fetch_backoff_base"`
	MaxFetchFailures int `json:"max_fetch_failures"`

	// Durations are read from the config file as Go duration strings ("30s").
	BackoffUnit         Duration `json:"backoff_unit"`
	TransportRetryDelay Duration `json:"transport_retry_delay"`
	RequestTimeout      Duration `json:"request_timeout"`
	StaleAfter          Duration `json:"stale_after"`
	PollInterval        Duration `json:"poll_interval"`
	Retention           Duration `json:"retention"`

	// Mode is "once" or "continuous".
	Mode string `json:"mode"`

	// Port defines the monitor's listening address (ip:port).
	Port string `json:"port"`
	// DatabaseDSN holds the database connection string. Empty disables history.
	DatabaseDSN string `json:"database_dsn"`
	// RedisAddr is the latest-reading cache address. Empty disables the cache.
	RedisAddr string `json:"redis_addr"`
	// LogLevel is the zap level name.
	LogLevel string `json:"log_level"`

	// Config is the path to the Config file.
	Config string `json:"-"`
}

// Duration is a time.Duration that unmarshals from a JSON duration string.
type Duration time.Duration

// UnmarshalJSON accepts "1m30s" style strings.
func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("duration must be a string: %w", err)
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Parse parses the process flags and environment. It exits the process on
// invalid configuration.
func Parse() *Options {
	opts, err := ParseArgs(os.Args[1:])
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	return opts
}

// ParseArgs builds Options from args, the config file and the environment.
func ParseArgs(args []string) (*Options, error) {
	options := &Options{}
	var backoffUnit, transportDelay, timeout, staleAfter, interval, retention time.Duration

	fs := flag.NewFlagSet("dexwatch", flag.ContinueOnError)
	fs.StringVar(&options.AccountName, "account", "", "Dexcom Share account name")
	fs.StringVar(&options.Password, "password", "", "Dexcom Share password")
	fs.StringVar(&options.ApplicationID, "app-id", share.DefaultApplicationID, "Dexcom Share application id")
	fs.StringVar(&options.ShareURL, "share-url", share.DefaultBaseURL, "Dexcom Share services URL")
	fs.IntVar(&options.AuthBackoffBase, "auth-base", 2, "auth backoff base")
	fs.IntVar(&options.MaxAuthFailures, "auth-max", 3, "consecutive auth failures before giving up")
	fs.IntVar(&options.FetchBackoffBase, "fetch-base", 2, "fetch backoff base")
	fs.IntVar(&options.MaxFetchFailures, "fetch-max", 10, "fetch failures before giving up")
	fs.DurationVar(&backoffUnit, "backoff-unit", time.Second, "duration of one backoff unit")
	fs.DurationVar(&transportDelay, "transport-delay", 30*time.Second, "wait after a connection error in continuous mode")
	fs.DurationVar(&timeout, "timeout", 10*time.Second, "per-request timeout")
	fs.DurationVar(&staleAfter, "stale-after", 15*time.Minute, "warn when the latest reading is older than this")
	fs.DurationVar(&interval, "interval", 5*time.Minute, "monitor poll interval")
	fs.DurationVar(&retention, "retention", 30*24*time.Hour, "reading history retention")
	fs.StringVar(&options.Mode, "mode", "once", "once | continuous")
	fs.StringVar(&options.Port, "a", "localhost:8080", "run on ip:port server")
	fs.StringVar(&options.DatabaseDSN, "d", "", "db address")
	fs.StringVar(&options.RedisAddr, "redis", "", "redis address for the latest-reading cache")
	fs.StringVar(&options.LogLevel, "log-level", "info", "log level")
	fs.StringVar(&options.Config, "config", "config.json", "path to config file")
	fs.StringVar(&options.Config, "c", "config.json", "path to config file (shorthand)")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	options.BackoffUnit = Duration(backoffUnit)
	options.TransportRetryDelay = Duration(transportDelay)
	options.RequestTimeout = Duration(timeout)
	options.StaleAfter = Duration(staleAfter)
	options.PollInterval = Duration(interval)
	options.Retention = Duration(retention)

	// Override flags with environment variables if set
	if configPath := os.Getenv("CONFIG"); configPath != "" {
		options.Config = configPath
	}

	if options.Config != "" {
		if _, err := os.Stat(options.Config); err == nil {
			data, err := os.ReadFile(options.Config)
			if err != nil {
				return nil, fmt.Errorf("error while reading config file: %w", err)
			}
			if err := json.Unmarshal(data, options); err != nil {
				return nil, fmt.Errorf("error while parsing config file: %w", err)
			}
		}
	}

	if v := os.Getenv("DEXCOM_ACCOUNT_NAME"); v != "" {
		options.AccountName = v
	}
	if v := os.Getenv("DEXCOM_PASSWORD"); v != "" {
		options.Password = v
	}
	if serverAddress := os.Getenv("SERVER_ADDRESS"); serverAddress != "" {
		options.Port = serverAddress
	}
	if dsn := os.Getenv("DATABASE_DSN"); dsn != "" {
		options.DatabaseDSN = dsn
	}
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		options.RedisAddr = addr
	}

	if err := options.Validate(); err != nil {
		return nil, err
	}
	return options, nil
}

// Validate reports the first invalid option.
func (o *Options) Validate() error {
	switch {
	case o.AccountName == "":
		return errors.New("account name is required (DEXCOM_ACCOUNT_NAME or -account)")
	case o.Password == "":
		return errors.New("password is required (DEXCOM_PASSWORD or -password)")
	case o.AuthBackoffBase < 1 || o.FetchBackoffBase < 1:
		return errors.New("backoff bases must be at least 1")
	case o.MaxAuthFailures < 1 || o.MaxFetchFailures < 1:
		return errors.New("failure ceilings must be at least 1")
	case o.Mode != "once" && o.Mode != "continuous":
		return fmt.Errorf("unknown mode %q", o.Mode)
	}
	return nil
}

// Credentials returns the account credentials.
func (o *Options) Credentials() share.Credentials {
	return share.Credentials{
		AccountName:   o.AccountName,
		Password:      o.Password,
		ApplicationID: o.ApplicationID,
	}
}

// Controller returns the retry policy for a share.Controller.
func (o *Options) Controller() share.Config {
	mode := share.SingleShot
	if o.Mode == "continuous" {
		mode = share.Continuous
	}
	return share.Config{
		AuthBackoffBase:     o.AuthBackoffBase,
		MaxAuthFailures:     o.MaxAuthFailures,
		FetchBackoffBase:    o.FetchBackoffBase,
		MaxFetchFailures:    o.MaxFetchFailures,
		BackoffUnit:         o.BackoffUnit.Std(),
		TransportRetryDelay: o.TransportRetryDelay.Std(),
		StaleAfter:          o.StaleAfter.Std(),
		Mode:                mode,
	}
}
