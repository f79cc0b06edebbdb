// Copyright (c) 2026 Keysync Team
// Keysync - validator remote key reconciliation
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"errors"
	"fmt"
	"os"
	"runtime/debug"

	"github.com/spf13/cobra"
	"github.com/toeirei/keysync/buildvars"
	"github.com/toeirei/keysync/internal/config"
	"github.com/toeirei/keysync/internal/i18n"
	"github.com/toeirei/keysync/internal/logging"
)

var version = "dev"   // this will be set by the linker
var gitCommit = "dev" // set at build time with the short commit SHA
var buildDate = ""    // set at build time (RFC3339)
var cfgFile string
var verbose bool

var appConfig config.Config

// Exit codes returned by ExitCode.
const (
	ExitOK          = 0
	ExitRunFailed   = 1
	ExitConfigError = 2
)

// ExitCode maps an error returned by Execute to the process exit status.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, config.ErrInvalidConfig):
		return ExitConfigError
	default:
		return ExitRunFailed
	}
}

// Execute runs the CLI entrypoint. The main package calls this function and
// handles process exit.
func Execute() error {
	return NewRootCmd().Execute()
}

// setupDefaultServices loads the configuration and initializes logging and
// i18n. It does not validate endpoints; commands that talk to them do.
func setupDefaultServices(cmd *cobra.Command, args []string) error {
	optionalConfigPath, err := getConfigPathFromCli(cmd)
	if err != nil {
		return err
	}

	c, used, err := config.LoadConfig[config.Config](cmd, config.Defaults(), optionalConfigPath)
	if err != nil {
		return fmt.Errorf("%w: %w", config.ErrInvalidConfig, err)
	}
	appConfig = c
	if verbose {
		appConfig.Log.Verbose = true
	}

	if err := logging.Configure(appConfig.Log.Verbose, appConfig.Log.Format); err != nil {
		return fmt.Errorf("%w: %w", config.ErrInvalidConfig, err)
	}
	i18n.Init(appConfig.Language)

	if used != "" {
		logging.Debugf("using config file %s", used)
	}
	return nil
}

func getConfigPathFromCli(cmd *cobra.Command) (*string, error) {
	// Only proceed if the user has explicitly set the --config flag.
	if !cmd.Flags().Changed("config") {
		return nil, nil
	}
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, fmt.Errorf("could not read --config flag: %w", err)
	}
	if path == "" {
		return nil, nil
	}
	// Make sure the user-provided file exists to avoid silently running on defaults.
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: config file specified via --config flag not found or is not accessible: %w", config.ErrInvalidConfig, err)
	}
	return &path, nil
}

// NewRootCmd creates and configures a new root cobra command. It is used for
// the main application command as well as fresh instances in tests.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keysync",
		Short: "Keysync keeps a validator client's remote keys in line with a web3signer.",
		Long: `Keysync reads the validator keys held by a remote signer (web3signer) and
the remote keys registered with a consensus client's key manager API, then
imports the missing keys into the client and deletes the ones the signer no
longer holds. The signer is the source of truth and is never modified.

Each run is stateless: the target state is read from the signer every time.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: setupDefaultServices,
	}

	v, c, d := resolveBuildVersion(nil)
	cmd.Version = compositeVersion(v, c, d)

	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: keysync.yaml in the user, system or current directory)")
	cmd.PersistentFlags().String("mode", "", `Run mode ("production" or "development")`)
	cmd.PersistentFlags().String("signer.url", "", "Base URL of the remote signer, e.g. https://web3signer.example.com")
	cmd.PersistentFlags().String("client.url", "", "Base URL of the client key manager API, e.g. http://validator:9000")
	cmd.PersistentFlags().Duration("http.timeout", 0, "Timeout of each API request (0 uses the transport default)")
	cmd.PersistentFlags().String("log.format", "", `Log format ("text", "json" or "logfmt")`)
	cmd.PersistentFlags().String("language", "", `Report language ("en", "de")`)
	cmd.PersistentFlags().String("history.type", "", `Run history database type ("sqlite", "postgres" or "mysql")`)
	cmd.PersistentFlags().String("history.dsn", "", "Run history database DSN (empty disables history)")

	cmd.AddCommand(
		newRunCmd(),
		newPlanCmd(),
		newWatchCmd(),
		newHistoryCmd(),
		newConfigCmd(),
		newVersionCmd(),
	)
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version",
		// Version output needs no configuration.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		Run: func(cmd *cobra.Command, args []string) {
			v, c, d := resolveBuildVersion(nil)
			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "version: %s\n", v)
			_, _ = fmt.Fprintf(out, "commit: %s\n", c)
			if d != "" {
				_, _ = fmt.Fprintf(out, "built: %s\n", d)
			}
		},
	}
}

func compositeVersion(v, c, d string) string {
	out := v
	if c != "" && c != "dev" {
		out = out + " (" + c + ")"
	}
	if d != "" {
		out = out + " built: " + d
	}
	return out
}

// resolveBuildVersion computes the best-available version, commit and build
// date for the running binary. If info is nil, it reads build info from the
// runtime.
func resolveBuildVersion(info *debug.BuildInfo) (versionOut, commitOut, dateOut string) {
	resolvedVersion := buildvars.VersionOrDefault(version)
	resolvedCommit := gitCommit
	resolvedDate := buildDate

	if info == nil {
		if local, ok := debug.ReadBuildInfo(); ok {
			info = local
		}
	}

	if info != nil {
		if info.Main.Version != "" && info.Main.Version != "(devel)" {
			resolvedVersion = info.Main.Version
		}
		// Some build paths only record our module as a dependency.
		if resolvedVersion == "dev" || resolvedVersion == "(devel)" {
			for _, dep := range info.Deps {
				if dep.Path == "github.com/toeirei/keysync" && dep.Version != "" {
					resolvedVersion = dep.Version
					break
				}
			}
		}
		for _, s := range info.Settings {
			switch s.Key {
			case "vcs.revision":
				if s.Value != "" {
					resolvedCommit = s.Value
				}
			case "vcs.time":
				if s.Value != "" {
					resolvedDate = s.Value
				}
			}
		}
	}

	// As a last resort show the commit provided via ldflags.
	if resolvedVersion == "dev" && gitCommit != "dev" && gitCommit != "" {
		resolvedVersion = gitCommit
	}
	return resolvedVersion, resolvedCommit, resolvedDate
}
