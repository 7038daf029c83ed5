package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/geabd1/StressForecastingAppplication/internal/config"
	"github.com/geabd1/StressForecastingAppplication/internal/logger"
	"github.com/geabd1/StressForecastingAppplication/internal/server"
	"github.com/geabd1/StressForecastingAppplication/internal/session"
)

const version = "1.0.0"

var (
	apiFlag      string
	dbPathFlag   string
	logLevelFlag string

	cfg     *config.Config
	rootCmd = &cobra.Command{
		Use:           "calmcast",
		Short:         "Daily stress forecasts from mood check-ins and biometrics",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			c, err := config.New()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("api") {
				c.APIBase = apiFlag
			}
			if cmd.Flags().Changed("db-path") {
				c.DBPath = dbPathFlag
			}
			if cmd.Flags().Changed("log-level") {
				c.LogLevel = logLevelFlag
			}
			cfg = c
			return cfg.Validate()
		},
	}
)

func main() {
	rootCmd.PersistentFlags().StringVar(&apiFlag, "api", "", "Wellness API base URL (overrides CALMCAST_API_BASE)")
	rootCmd.PersistentFlags().StringVar(&dbPathFlag, "db-path", "", "Local database path (overrides CALMCAST_DB_PATH)")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "debug|info|warn|error (overrides CALMCAST_LOG_LEVEL)")

	rootCmd.AddCommand(serveCmd(), loginCmd(), logoutCmd(), forecastCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newLogger(w io.Writer) zerolog.Logger {
	return logger.NewWithWriter("calmcast", w).Level(logger.ParseLevel(cfg.LogLevel))
}

// withSession opens the local session for one command and closes it after,
// which drains any queued sync jobs.
func withSession(ctx context.Context, fn func(*session.Session) error) error {
	log := newLogger(os.Stderr)
	sess, err := session.Open(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := sess.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close session")
		}
	}()
	return fn(sess)
}

func requireSignedIn(sess *session.Session) error {
	if !sess.Authenticated() {
		return fmt.Errorf("not signed in: run `calmcast login --token <token>` first")
	}
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func serveCmd() *cobra.Command {
	var host string
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the tool server for the signed-in session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("host") {
				cfg.HTTPHost = host
			}
			if cmd.Flags().Changed("port") {
				cfg.HTTPPort = port
			}
			log := newLogger(os.Stdout)

			sess, err := session.Open(cmd.Context(), cfg, log)
			if err != nil {
				return fmt.Errorf("failed to open session: %w", err)
			}
			defer sess.Close()
			if !sess.Authenticated() {
				log.Warn().Msg("no signed-in user; tool calls will be rejected until login")
			}

			srv := server.NewToolServer(&server.Config{Addr: cfg.GetHTTPAddr()}, sess, log)

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			defer signal.Stop(sigCh)

			errCh := make(chan error, 1)
			go func() {
				if err := srv.Start(ctx); err != nil {
					errCh <- err
				}
			}()

			select {
			case <-sigCh:
				log.Info().Msg("received shutdown signal")
			case err := <-errCh:
				log.Error().Err(err).Msg("server error")
			}

			log.Info().Msg("shutting down")
			cancel()
			shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
			defer stop()
			return srv.Stop(shutdownCtx)
		},
	}
	cmd.Flags().StringVar(&host, "host", "", "Listen host (overrides CALMCAST_HTTP_HOST)")
	cmd.Flags().IntVar(&port, "port", 0, "Listen port (overrides CALMCAST_HTTP_PORT)")
	return cmd
}

func loginCmd() *cobra.Command {
	var token string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with a backend access token",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), func(sess *session.Session) error {
				u, err := sess.Login(cmd.Context(), token)
				if err != nil {
					return err
				}
				fmt.Fprintf(os.Stdout, "Signed in as %s (%d mood check-ins on record)\n", u.Name, len(u.MoodData))
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&token, "token", "t", "", "Access token (required)")
	_ = cmd.MarkFlagRequired("token")
	return cmd
}

func logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the signed-in user on this device",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), func(sess *session.Session) error {
				return sess.Logout(cmd.Context())
			})
		},
	}
}

func forecastCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "forecast",
		Short: "Compose today's stress forecast",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), func(sess *session.Session) error {
				if err := requireSignedIn(sess); err != nil {
					return err
				}
				f, err := sess.Forecast(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(os.Stdout, "Stress: %s (%s)\n%s\n\n", f.ScoreLabel(), f.StressLevel, f.StressDescription)
				return printJSON(f)
			})
		},
	}
}
