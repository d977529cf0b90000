package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/TFMV/pollwatch/internal/action"
	"github.com/TFMV/pollwatch/internal/poll"
	"github.com/TFMV/pollwatch/internal/walk"
	"github.com/sourcegraph/conc"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var (
	cfgFile string
	version = "0.1.0"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "pollwatch [flags] [path...]",
	Short: "Watch directories for changes by polling",
	Long: `pollwatch reports files and directories being added, changed and removed
under one or more roots. It polls instead of relying on native change
notifications, so it works on network filesystems and virtualized mounts.

Examples:
  pollwatch /mnt/share
  pollwatch --ignore-initial --format="{event}: {base}" /mnt/share
  pollwatch --json --cold=5s --hot=100ms /mnt/a /mnt/b
  pollwatch --exec="make -C {dir}" --events=change,add ./src`,
	Version: version,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWatch(cmd.Context(), args)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default $HOME/.pollwatch.yaml)")

	// Traversal flags, shared with scan
	pf := rootCmd.PersistentFlags()
	pf.Int("depth", 0, "Maximum directory depth (0 = unlimited)")
	pf.Int("limit", 0, "Maximum entries per rescan (0 = unlimited)")
	pf.Bool("follow-symlinks", false, "Follow symbolic links")
	pf.StringSlice("ignore", nil, "Gitignore style patterns to ignore (repeatable)")
	pf.BoolP("verbose", "v", false, "Enable verbose logging")
	pf.Bool("silent", false, "Disable all logging except errors")
	pf.Bool("json", false, "Print JSON lines")

	f := rootCmd.Flags()
	f.Bool("ignore-initial", false, "Do not report entries found by the initial scan")
	f.Bool("ignore-ready", false, "Do not report the ready event")
	f.Duration("cold", poll.DefaultPollingIntervalCold, "Interval in which every file is checked once")
	f.Duration("hot", poll.DefaultPollingIntervalHot, "Delay between polling cycles")
	f.Int("hot-capacity", poll.DefaultHotCapacity, "Number of recently active files checked every cycle")
	f.Bool("requeue-evicted", false, "Return files leaving the hot set to the current cold sweep")
	f.StringSlice("events", nil, "Events to report (add, addDir, change, unlink, unlinkDir, ready)")
	f.String("format", "", "Output template, e.g. \"{event} {}\"")
	f.String("exec", "", "Command to execute for each event")
	f.Duration("timeout", 0, "Duration to watch before exiting (e.g. 1h, 30m)")
	f.Bool("stats", false, "Print session statistics on exit")

	bindFlags(rootCmd)
}

// bindFlags binds every local and persistent flag of cmd to viper.
func bindFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().VisitAll(func(f *pflag.Flag) {
		viper.BindPFlag(f.Name, f)
	})
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		viper.BindPFlag(f.Name, f)
	})
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			// Search config in home directory with name ".pollwatch" (without extension).
			viper.AddConfigPath(home)
		}
		viper.SetConfigType("yaml")
		viper.SetConfigName(".pollwatch")
	}

	viper.SetEnvPrefix("POLLWATCH")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// logLevel maps the verbosity flags to a log level.
func logLevel() walk.LogLevel {
	switch {
	case viper.GetBool("verbose"):
		return walk.LogLevelDebug
	case viper.GetBool("silent"):
		return walk.LogLevelError
	default:
		return walk.LogLevelWarn
	}
}

// constraints builds traversal constraints for root from the flags.
func constraints(root string) walk.Constraints {
	return walk.Constraints{
		Depth:          viper.GetInt("depth"),
		Limit:          viper.GetInt("limit"),
		FollowSymlinks: viper.GetBool("follow-symlinks"),
		Ignore:         walk.IgnorePatterns(root, viper.GetStringSlice("ignore")),
	}
}

func watchOptions(logger *zap.Logger) poll.Options {
	return poll.Options{
		IgnoreInitial:       viper.GetBool("ignore-initial"),
		IgnoreReady:         viper.GetBool("ignore-ready"),
		PollingIntervalCold: viper.GetDuration("cold"),
		PollingIntervalHot:  viper.GetDuration("hot"),
		HotCapacity:         viper.GetInt("hot-capacity"),
		RequeueEvicted:      viper.GetBool("requeue-evicted"),
		Depth:               viper.GetInt("depth"),
		Limit:               viper.GetInt("limit"),
		FollowSymlinks:      viper.GetBool("follow-symlinks"),
		IgnorePatterns:      viper.GetStringSlice("ignore"),
		Logger:              logger,
	}
}

func parseEvents(names []string) ([]poll.Event, error) {
	known := map[string]poll.Event{}
	for _, e := range []poll.Event{poll.EventAdd, poll.EventAddDir, poll.EventChange, poll.EventUnlink, poll.EventUnlinkDir, poll.EventReady} {
		known[strings.ToLower(string(e))] = e
	}

	var events []poll.Event
	for _, name := range names {
		e, ok := known[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			return nil, fmt.Errorf("unknown event type: %s", name)
		}
		events = append(events, e)
	}
	return events, nil
}

func newHandler(ctx context.Context, logger *zap.Logger) (poll.Handler, error) {
	events, err := parseEvents(viper.GetStringSlice("events"))
	if err != nil {
		return nil, err
	}

	var h poll.Handler
	switch {
	case viper.GetString("exec") != "":
		h = action.Exec(ctx, viper.GetString("exec"), os.Stdout, logger)
	case viper.GetBool("json"):
		h = action.JSON(os.Stdout, logger)
	default:
		h = action.Format(os.Stdout, viper.GetString("format"))
	}
	return action.Synchronized(action.Filter(h, events...)), nil
}

func runWatch(ctx context.Context, roots []string) error {
	if len(roots) == 0 {
		wd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("error getting current directory: %w", err)
		}
		roots = []string{wd}
	}
	if ctx == nil {
		ctx = context.Background()
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	if timeout := viper.GetDuration("timeout"); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	logger := walk.NewLogger(logLevel())
	defer logger.Sync()

	handler, err := newHandler(ctx, logger)
	if err != nil {
		return err
	}

	opts := watchOptions(logger)
	sessions := make([]*poll.Session, 0, len(roots))
	for _, root := range roots {
		s, err := poll.Start(root, handler, opts)
		if err != nil {
			for _, started := range sessions {
				started.Dispose()
			}
			return fmt.Errorf("error watching %s: %w", root, err)
		}
		sessions = append(sessions, s)
	}

	var wg conc.WaitGroup
	for _, s := range sessions {
		wg.Go(func() {
			<-ctx.Done()
			if err := s.Close(); err != nil {
				logger.Error("error stopping session", zap.String("root", s.Root()), zap.Error(err))
			}
			if viper.GetBool("stats") {
				fmt.Fprintf(os.Stderr, "%s: %+v\n", s.Root(), s.Stats())
			}
		})
	}
	wg.Wait()
	return nil
}
