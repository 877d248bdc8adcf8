package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jonathan/interview-assistant/internal/interview"
	"github.com/jonathan/interview-assistant/internal/server"
	"github.com/jonathan/interview-assistant/internal/server/ratelimit"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long:  `Start an HTTP server exposing the interviewee flow, the JWT-protected interviewer dashboard, an SSE event stream and Prometheus metrics.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (overrides server.port)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	broker := server.NewBroker()
	a, err := newApp(ctx, interview.WithEventHandler(broker.Publish))
	if err != nil {
		return err
	}
	defer a.Close()

	cfg, err := serverConfig(a)
	if err != nil {
		return err
	}

	srv, err := server.New(a.svc, cfg, server.WithLogger(a.log), server.WithBroker(broker))
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}
	return srv.Start(ctx)
}

// serverConfig maps application config onto the HTTP server's.
func serverConfig(a *app) (server.Config, error) {
	cfg := server.Config{
		Port:      a.cfg.Server.Port,
		RateLimit: ratelimit.NewConfig(a.cfg.RateLimit.Enabled),
	}
	if servePort != 0 {
		cfg.Port = servePort
	}

	if !a.cfg.DashboardEnabled() {
		a.log.Warn("interviewer dashboard disabled: set auth.jwt_secret and auth.interviewer_password_hash")
		return cfg, nil
	}

	jwtCfg, err := a.cfg.JWT()
	if err != nil {
		return cfg, err
	}
	pwCfg, err := a.cfg.Password()
	if err != nil {
		return cfg, err
	}
	cfg.JWT = jwtCfg
	cfg.Password = pwCfg
	cfg.PasswordHash = a.cfg.Auth.InterviewerPasswordHash
	a.log.Info("interviewer dashboard enabled", zap.Int("token_hours", jwtCfg.ExpirationHours))
	return cfg, nil
}
