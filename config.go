package main

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const releaseVersion = "1.2.0"

type Config struct {
	bind           string
	port           int
	apiURL         string
	apiTimeout     time.Duration
	sessionTimeout time.Duration
	cookieMaxAge   time.Duration
	staticCacheAge time.Duration
	rateLimitRPS   int
	rateLimitBurst int
	multiplayer    bool
	production     bool
	verbose        bool
}

func (c *Config) validate() error {
	if c.apiURL == "" {
		return errors.New("--api-url is required (env: KARTU_API_URL)")
	}
	u, err := url.Parse(c.apiURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid --api-url: %q", c.apiURL)
	}
	if c.port < 1 || c.port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.port)
	}
	if c.rateLimitRPS <= 0 {
		return fmt.Errorf("invalid rate limit (must be positive): %d", c.rateLimitRPS)
	}
	return nil
}

func (c *Config) env() string {
	if c.production {
		return "production"
	}
	return "development"
}

func newCmd(cfg *Config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("KARTU")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "kartubicara",
		Short:         "Kartu Bicara: conversation cards for couples and friends.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		Version:       releaseVersion,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validate(); err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}

	fs := cmd.Flags()

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVarP(&cfg.bind, "bind", "b", "0.0.0.0", "address to bind to (env: KARTU_BIND)")
	fs.IntVarP(&cfg.port, "port", "p", 8080, "port to listen on (env: KARTU_PORT)")
	fs.StringVar(&cfg.apiURL, "api-url", "", "base URL of the question API (env: KARTU_API_URL)")
	fs.DurationVar(&cfg.apiTimeout, "api-timeout", 10*time.Second, "timeout for question API requests (env: KARTU_API_TIMEOUT)")
	fs.DurationVar(&cfg.sessionTimeout, "session-timeout", 2*time.Hour, "time before idle sessions are dropped (env: KARTU_SESSION_TIMEOUT)")
	fs.DurationVar(&cfg.cookieMaxAge, "cookie-max-age", 2*time.Hour, "lifetime of the session cookie (env: KARTU_COOKIE_MAX_AGE)")
	fs.DurationVar(&cfg.staticCacheAge, "static-cache-age", 5*time.Minute, "cache lifetime of static assets in production (env: KARTU_STATIC_CACHE_AGE)")
	fs.IntVar(&cfg.rateLimitRPS, "rate-limit-rps", 5, "requests per second allowed per client (env: KARTU_RATE_LIMIT_RPS)")
	fs.IntVar(&cfg.rateLimitBurst, "rate-limit-burst", 10, "request burst allowed per client (env: KARTU_RATE_LIMIT_BURST)")
	fs.BoolVar(&cfg.multiplayer, "multiplayer", false, "enable the local two-player room flow (env: KARTU_MULTIPLAYER)")
	fs.BoolVar(&cfg.production, "production", false, "serve minified assets and JSON logs (env: KARTU_PRODUCTION)")
	fs.BoolVarP(&cfg.verbose, "verbose", "v", false, "display debug output (env: KARTU_VERBOSE)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("kartubicara v{{.Version}}\n")

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}
