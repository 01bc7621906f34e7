package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/mcoot/credaudit/internal/factory"
	"github.com/mcoot/credaudit/internal/model"
	"github.com/mcoot/credaudit/internal/services/audit"
)

// Exit statuses
const (
	ExitFound      = 0
	ExitExhausted  = 1
	ExitUsage      = 2
	ExitIncomplete = 3
	ExitFailure    = 4
)

var (
	cfg *Config
	app *factory.App
)

// exitError carries a process exit status out of a command
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error {
	return e.err
}

func usageError(err error) error {
	return &exitError{code: ExitUsage, err: err}
}

// exactArgs is cobra.ExactArgs reported as a usage error
func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.ExactArgs(n)(cmd, args); err != nil {
			return usageError(err)
		}
		return nil
	}
}

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	cfg = DefaultConfig()
	app = nil

	var configFile string

	rootCmd := &cobra.Command{
		Use:   "credaudit <identifier>",
		Short: "Audit an account for dictionary-based weak passwords",
		Long: `credaudit checks whether an account you are authorized to test uses a weak
password. It tries each dictionary word, then each word followed by a numeric
suffix, and reports the first candidate the credential store accepts.

Exit status: 0 match found, 1 no match, 2 usage error, 3 search incomplete,
4 other failure.`,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) > 1 {
				return usageError(fmt.Errorf("expected one identifier, got %d arguments", len(args)))
			}
			return nil
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.HasParent() && len(args) == 0 {
				_ = cmd.Usage()
				return &exitError{code: ExitUsage}
			}
			if err := layerConfig(cmd, configFile); err != nil {
				return usageError(err)
			}
			return setup(cmd)
		},
		RunE:          runAudit,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return usageError(err)
	})

	// Global flags
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configFile, "config", getEnvOrDefault(envPrefix+"CONFIG", ""), "YAML config file (env: CREDAUDIT_CONFIG)")
	flags.StringVar(&cfg.Storage, "storage", cfg.Storage, "Storage backend: memory, redis")
	flags.StringVar(&cfg.RedisURL, "redis-url", cfg.RedisURL, "Redis URL for redis storage")
	flags.StringVar(&cfg.Dictionary, "dictionary", cfg.Dictionary, "Dictionary file, one word per line (default: stored or built-in list)")
	flags.IntVar(&cfg.Workers, "workers", cfg.Workers, "Concurrent credential checks")
	flags.IntVar(&cfg.Retries, "retries", cfg.Retries, "Retries for an unverifiable check")
	flags.DurationVar(&cfg.RetryBackoff, "retry-backoff", cfg.RetryBackoff, "Initial delay between retries")
	flags.Float64Var(&cfg.Rate, "rate", cfg.Rate, "Maximum checks per second (0 is unlimited)")
	flags.IntVar(&cfg.SuffixLength, "suffix-length", cfg.SuffixLength, "Digits appended to words in the second phase")
	flags.IntVar(&cfg.MaxConsecutiveFailures, "max-consecutive-failures", cfg.MaxConsecutiveFailures, "Unverifiable checks in a row before giving up (0 never gives up)")
	flags.StringVarP(&cfg.Output, "output", "o", cfg.Output, "Output format: text, json")
	flags.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level: debug, info, warn, error")
	flags.IntVar(&cfg.BcryptCost, "bcrypt-cost", cfg.BcryptCost, "bcrypt work factor for new account passwords")
	flags.BoolVar(&cfg.NoHistory, "no-history", cfg.NoHistory, "Do not record the run")

	// Add subcommands
	rootCmd.AddCommand(newAccountsCmd())
	rootCmd.AddCommand(newDictionaryCmd())
	rootCmd.AddCommand(newHistoryCmd())

	return rootCmd
}

// layerConfig rebuilds cfg from defaults, the config file and the
// environment, then reapplies any flags given on the command line
func layerConfig(cmd *cobra.Command, configFile string) error {
	changed := map[string]string{}
	cmd.Flags().Visit(func(f *pflag.Flag) {
		changed[f.Name] = f.Value.String()
	})

	layered := DefaultConfig()
	if configFile != "" {
		if err := layered.LoadFile(configFile); err != nil {
			return err
		}
	}
	if err := layered.ApplyEnv(); err != nil {
		return err
	}
	*cfg = *layered

	for name, val := range changed {
		if err := cmd.Flags().Set(name, val); err != nil {
			return err
		}
	}

	return cfg.Validate()
}

// setup builds the logger and the application for a command
func setup(cmd *cobra.Command) error {
	logger := slog.New(slog.NewJSONHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
		Level: cfg.Level(),
	}))

	a, err := factory.New(cfg.FactoryConfig(logger))
	if err != nil {
		return err
	}
	app = a

	for username, hash := range cfg.Accounts {
		if _, err := app.AuthService.ImportAccount(cmd.Context(), username, hash); err != nil {
			return usageError(err)
		}
	}
	return nil
}

func runAudit(cmd *cobra.Command, args []string) error {
	id, err := model.NewIdentifier(args[0])
	if err != nil {
		return usageError(err)
	}

	report, err := app.AuditService.Audit(cmd.Context(), id, audit.Options{
		DictionaryPath: cfg.Dictionary,
		NoHistory:      cfg.NoHistory,
	})
	if err != nil {
		return err
	}

	out := NewOutput(cfg.Output, cmd.OutOrStdout(), cmd.ErrOrStderr())
	out.Print(newAuditResult(report))

	switch report.Result.Kind {
	case model.ResultFound:
		return nil
	case model.ResultExhausted:
		return &exitError{code: ExitExhausted}
	default:
		return &exitError{code: ExitIncomplete}
	}
}

// Run executes the command line and returns the process exit status
func Run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	rootCmd := NewRootCmd()
	rootCmd.SetArgs(args)
	rootCmd.SetIn(stdin)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	err := rootCmd.ExecuteContext(ctx)

	if app != nil {
		_ = app.Close()
	}

	return exitCode(err, NewOutput(cfg.Output, stdout, stderr))
}

func exitCode(err error, out *Output) int {
	if err == nil {
		return ExitFound
	}

	var ee *exitError
	if errors.As(err, &ee) {
		if ee.err != nil {
			out.PrintError(ee.err)
		}
		return ee.code
	}

	out.PrintError(err)
	return ExitFailure
}

// Execute runs the root command against the process arguments
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return Run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
}
