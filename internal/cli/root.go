package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"school-tables/internal/apiclient"
	"school-tables/internal/logger"
)

// session is the state shared by every command of one invocation.
type session struct {
	cfgFile  string
	settings Settings
	catalog  *Catalog
	logClose func()
}

func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func NewRootCommand() *cobra.Command {
	s := &session{logClose: func() {}}

	root := &cobra.Command{
		Use:          "tables",
		Short:        "Browse school records served by the tables backend",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			settings, err := LoadSettings(s.cfgFile, cmd.Flags())
			if err != nil {
				return err
			}
			s.settings = settings

			interactive := cmd.Name() == "browse"
			if err := s.setupLogging(cmd.ErrOrStderr(), interactive); err != nil {
				return err
			}

			catalog, err := LoadCatalog(settings.Tables)
			if err != nil {
				return err
			}
			s.catalog = catalog
			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			s.logClose()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&s.cfgFile, "config", "", "config file (default is $XDG_CONFIG_HOME/school-tables/tables-client.yaml or ./tables-client.yaml)")
	flags.String("server", "", "backend base URL")
	flags.String("username", "", "username to sign in with")
	flags.String("password", "", "password to sign in with")
	flags.String("token", "", "existing access token, instead of username and password")
	flags.Duration("timeout", 0, "HTTP timeout per request")
	flags.String("tables", "", "YAML file with table definitions (default is the built-in set)")
	flags.String("log-file", "", "write logs to this file")
	flags.String("log-level", "", "log level: debug, info, warn, error")
	flags.String("permission-policy", "", "fail-open or fail-closed when the user has no permission data")

	root.AddCommand(newResourcesCommand(s), newListCommand(s), newBrowseCommand(s))
	return root
}

// setupLogging sends logs to the log file when one is set. Otherwise interactive sessions
// discard logs and one-shot commands print warnings to stderr.
func (s *session) setupLogging(stderr io.Writer, interactive bool) error {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s.settings.LogLevel)); err != nil {
		return fmt.Errorf("invalid log level %q", s.settings.LogLevel)
	}

	var handler slog.Handler
	switch {
	case s.settings.LogFile != "":
		f, err := os.OpenFile(s.settings.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		s.logClose = func() { _ = f.Close() }
		handler = logger.NewPlainHandler(f, &slog.HandlerOptions{Level: level})
	case interactive:
		handler = logger.NewPlainHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError})
	default:
		handler = logger.NewPrettyHandler(stderr, &slog.HandlerOptions{Level: max(level, slog.LevelWarn)})
	}

	slog.SetDefault(slog.New(handler))
	return nil
}

// connect signs in with the configured token or credentials.
func (s *session) connect(ctx context.Context) (*apiclient.Client, error) {
	client := apiclient.New(s.settings.Server, s.settings.Timeout, nil)

	switch {
	case s.settings.Token != "":
		if _, err := client.UseToken(ctx, s.settings.Token); err != nil {
			return nil, err
		}
	case s.settings.Username != "":
		if _, err := client.Login(ctx, s.settings.Username, s.settings.Password); err != nil {
			return nil, err
		}
	default:
		return nil, errors.New("no credentials: set --token or --username and --password (or TABLES_TOKEN, TABLES_USERNAME, TABLES_PASSWORD)")
	}

	user := client.Session().User()
	if user != nil {
		slog.Info("signed in", "server", s.settings.Server, "username", user.Username, "permissions", len(user.Permissions))
	}
	return client, nil
}
