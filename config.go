/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	bind             string
	coordinator      string
	dataDir          string
	dialTimeout      time.Duration
	feedbackDuration time.Duration
	participantID    string
	port             int
	profile          bool
	redisAddr        string
	redisKeyPrefix   string
	skipObservation  bool
	verbose          bool
	version          bool
}

func (c *Config) validate() error {
	u, err := url.Parse(c.coordinator)
	if err != nil {
		return fmt.Errorf("invalid coordinator url %q: %w", c.coordinator, err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("invalid coordinator url (scheme must be ws or wss): %s", c.coordinator)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid coordinator url (missing host): %s", c.coordinator)
	}
	if c.port < 0 || c.port > 65535 {
		return fmt.Errorf("invalid port (must be between 0-65535 inclusive): %d", c.port)
	}
	if c.dialTimeout <= 0 {
		return errors.New("--dial-timeout must be positive")
	}
	if c.feedbackDuration <= 0 {
		return errors.New("--feedback-duration must be positive")
	}
	if strings.ContainsAny(c.participantID, `/\`) {
		return fmt.Errorf("invalid participant id (must not contain path separators): %q", c.participantID)
	}
	return nil
}

// newParticipantID returns a random ten-character id.
func newParticipantID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:10]
}

func newCmd(cfg *Config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("DYADIC")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "dyadic",
		Short:         "Participant client for a two-player director/matcher communication game.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		Version:       releaseVersion,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.participantID == "" {
				cfg.participantID = newParticipantID()
			}
			if err := cfg.validate(); err != nil {
				return err
			}
			return RunSession(cmd.Context(), cfg, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	fs := cmd.Flags()

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVarP(&cfg.bind, "bind", "b", "127.0.0.1", "address to bind the status server to (env: DYADIC_BIND)")
	fs.StringVarP(&cfg.coordinator, "coordinator", "c", "ws://localhost:9002/", "websocket url of the pairing coordinator (env: DYADIC_COORDINATOR)")
	fs.StringVarP(&cfg.dataDir, "data-dir", "d", ".", "directory to write participant data files to (env: DYADIC_DATA_DIR)")
	fs.DurationVar(&cfg.dialTimeout, "dial-timeout", 10*time.Second, "time to wait for the coordinator to accept the connection (env: DYADIC_DIAL_TIMEOUT)")
	fs.DurationVar(&cfg.feedbackDuration, "feedback-duration", 1500*time.Millisecond, "how long turn feedback stays on screen (env: DYADIC_FEEDBACK_DURATION)")
	fs.StringVarP(&cfg.participantID, "participant-id", "i", "", "participant id (default random) (env: DYADIC_PARTICIPANT_ID)")
	fs.IntVarP(&cfg.port, "port", "p", 0, "port to serve status on, 0 to disable (env: DYADIC_PORT)")
	fs.BoolVar(&cfg.profile, "profile", false, "register net/http/pprof handlers (env: DYADIC_PROFILE)")
	fs.StringVar(&cfg.redisAddr, "redis-addr", "", "also append data rows to redis at this address (env: DYADIC_REDIS_ADDR)")
	fs.StringVar(&cfg.redisKeyPrefix, "redis-key-prefix", "dyadic:rows:", "prefix for per-participant redis keys (env: DYADIC_REDIS_KEY_PREFIX)")
	fs.BoolVar(&cfg.skipObservation, "skip-observation", false, "go straight to the waiting room (env: DYADIC_SKIP_OBSERVATION)")
	fs.BoolVarP(&cfg.verbose, "verbose", "v", false, "display additional output (env: DYADIC_VERBOSE)")
	fs.BoolVarP(&cfg.version, "version", "V", false, "display version and exit (env: DYADIC_VERSION)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("dyadic v{{.Version}}\n")

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}
