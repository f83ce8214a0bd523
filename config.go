package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	bind            string
	port            int
	prefix          string
	profile         bool
	tlsCert         string
	tlsKey          string
	verbose         bool
	version         bool
	vocab           string
	embeddings      string
	statsDB         string
	remoteSemantics bool
	remoteRateLimit int
	roundDelay      time.Duration
	hintCooldown    time.Duration
	roomTTL         time.Duration
	sweepInterval   time.Duration
}

func (c *Config) validate() error {
	if (c.tlsCert == "") != (c.tlsKey == "") {
		return errors.New("both --tls-cert and --tls-key must be provided together")
	}
	if c.port < 1 || c.port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.port)
	}
	if c.vocab == "" {
		return errors.New("--vocab is required")
	}
	if c.remoteRateLimit < 1 {
		return fmt.Errorf("invalid --remote-rate-limit (must be at least 1): %d", c.remoteRateLimit)
	}
	return nil
}

func (c *Config) scheme() string {
	if c.tlsCert != "" && c.tlsKey != "" {
		return "https"
	}
	return "http"
}

func (c *Config) logger() zerolog.Logger {
	level := zerolog.InfoLevel
	if c.verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(os.Stdout).Level(level).With().Timestamp().Logger()
}

func newCmd(cfg *Config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("CONTEXTCLUES")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "context-clues",
		Short:         "A multiplayer word game where players home in on a secret word by semantic closeness.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		Version:       releaseVersion,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validate(); err != nil {
				return err
			}
			return ServePage(cmd.Context(), cfg)
		},
	}

	fs := cmd.Flags()

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVarP(&cfg.bind, "bind", "b", "0.0.0.0", "address to bind to (env: CONTEXTCLUES_BIND)")
	fs.IntVarP(&cfg.port, "port", "p", 8080, "port to listen on (env: CONTEXTCLUES_PORT)")
	fs.StringVar(&cfg.prefix, "prefix", "", "path to prepend to all URLs, for use behind reverse proxy (env: CONTEXTCLUES_PREFIX)")
	fs.BoolVar(&cfg.profile, "profile", false, "register net/http/pprof handlers (env: CONTEXTCLUES_PROFILE)")
	fs.StringVar(&cfg.tlsCert, "tls-cert", "", "path to tls certificate (env: CONTEXTCLUES_TLS_CERT)")
	fs.StringVar(&cfg.tlsKey, "tls-key", "", "path to tls keyfile (env: CONTEXTCLUES_TLS_KEY)")
	fs.BoolVarP(&cfg.verbose, "verbose", "v", false, "display additional output (env: CONTEXTCLUES_VERBOSE)")
	fs.BoolVarP(&cfg.version, "version", "V", false, "display version and exit (env: CONTEXTCLUES_VERSION)")
	fs.StringVar(&cfg.vocab, "vocab", "data/vocabulary.txt", "path to the vocabulary word list (env: CONTEXTCLUES_VOCAB)")
	fs.StringVar(&cfg.embeddings, "embeddings", "", "path to the word embeddings file; omit for lexical-only scoring (env: CONTEXTCLUES_EMBEDDINGS)")
	fs.StringVar(&cfg.statsDB, "stats-db", "data/stats.db", "path to the sqlite stats database (env: CONTEXTCLUES_STATS_DB)")
	fs.BoolVar(&cfg.remoteSemantics, "remote-semantics", false, "blend remote relatedness scores into lexical fallback ranking (env: CONTEXTCLUES_REMOTE_SEMANTICS)")
	fs.IntVar(&cfg.remoteRateLimit, "remote-rate-limit", 30, "relatedness lookups allowed per minute (env: CONTEXTCLUES_REMOTE_RATE_LIMIT)")
	fs.DurationVar(&cfg.roundDelay, "round-delay", 5*time.Second, "pause between a won round and the next one (env: CONTEXTCLUES_ROUND_DELAY)")
	fs.DurationVar(&cfg.hintCooldown, "hint-cooldown", 20*time.Second, "per-player wait between hints (env: CONTEXTCLUES_HINT_COOLDOWN)")
	fs.DurationVar(&cfg.roomTTL, "room-ttl", 10*time.Minute, "time before idle rooms are removed (env: CONTEXTCLUES_ROOM_TTL)")
	fs.DurationVar(&cfg.sweepInterval, "sweep-interval", time.Minute, "how often idle rooms are checked (env: CONTEXTCLUES_SWEEP_INTERVAL)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("context-clues v{{.Version}}\n")

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}
