package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/chyiyaqing/pushnotify/internal/config"
	"github.com/chyiyaqing/pushnotify/internal/logging"
	"github.com/chyiyaqing/pushnotify/internal/notify"
	"github.com/chyiyaqing/pushnotify/internal/notify/pushplus"
	"github.com/chyiyaqing/pushnotify/internal/report"
	"github.com/chyiyaqing/pushnotify/internal/scheduler"
)

// errReported marks a failure that has already been logged.
var errReported = errors.New("notification failed")

type overrides struct {
	configPath string
	title      string
	content    string
	template   string
}

func newRootCommand() *cobra.Command {
	var opts overrides

	rootCmd := &cobra.Command{
		Use:   "pushnotify",
		Short: "Send a scheduled notification through PushPlus",
		Long: `Send one message through PushPlus and exit.

Without overrides a daily status report is sent. Supplying both --title and
--content (or NOTIFY_TITLE and NOTIFY_CONTENT) sends a custom message instead.
PUSHPLUS_TOKEN must be set.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSend(cmd, &opts)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", config.DefaultPath, "Configuration file path")
	flags.StringVar(&opts.title, "title", "", "Custom message title (overrides NOTIFY_TITLE)")
	flags.StringVar(&opts.content, "content", "", "Custom message content (overrides NOTIFY_CONTENT)")
	flags.StringVar(&opts.template, "template", "", "Message template: markdown, html, txt or json (overrides NOTIFY_TEMPLATE)")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "send",
		Short: "Send the notification (default command)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSend(cmd, &opts)
		},
	})
	rootCmd.AddCommand(&cobra.Command{
		Use:   "preview",
		Short: "Print the message that would be sent without sending it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPreview(cmd, &opts)
		},
	})

	return rootCmd
}

func runSend(cmd *cobra.Command, opts *overrides) error {
	cfg, logger, err := setup(cmd, opts)
	if err != nil {
		return err
	}
	logger = logger.With("run_id", uuid.NewString())

	token := strings.TrimSpace(cfg.PushPlus.Token)
	if token == "" {
		return fail(logger, notify.ErrMissingToken)
	}

	now := time.Now().In(cfg.Location())
	msg, err := buildMessage(cfg, now, report.EnvironmentFrom(os.Getenv), logger)
	if err != nil {
		return fail(logger, err)
	}

	client := pushplus.New(cfg.PushPlus.Endpoint, cfg.PushPlus.Timeout)
	logger.Info("sending notification",
		"title", msg.Title,
		"template", msg.Template.String(),
		"endpoint", client.Endpoint(),
		"timeout", client.Timeout().String(),
	)

	resp, err := client.Send(cmd.Context(), msg.Request(token))
	if resp != nil {
		fmt.Fprintf(cmd.OutOrStdout(), "API 响应: %s\n", pushplus.Pretty(resp.Raw))
	}
	if err != nil {
		return fail(logger, err)
	}

	logger.Info("notification accepted", "title", msg.Title, "code", resp.Code, "msg", resp.Message)
	return nil
}

func runPreview(cmd *cobra.Command, opts *overrides) error {
	cfg, logger, err := setup(cmd, opts)
	if err != nil {
		return err
	}

	now := time.Now().In(cfg.Location())
	msg, err := buildMessage(cfg, now, report.EnvironmentFrom(os.Getenv), logger)
	if err != nil {
		return fail(logger, err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Title:    %s\n", msg.Title)
	fmt.Fprintf(out, "Template: %s\n\n", msg.Template)
	fmt.Fprintln(out, msg.Content)
	return nil
}

// setup loads configuration, applies flag overrides and builds the logger.
// Flags are applied before validation so a valid flag wins over an invalid
// environment value. Failures here are logged as configuration errors.
func setup(cmd *cobra.Command, opts *overrides) (*config.Config, *slog.Logger, error) {
	stderr := cmd.ErrOrStderr()

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, nil, fail(fallbackLogger(stderr), configError(err))
	}

	flags := cmd.Flags()
	if flags.Changed("title") {
		cfg.Notify.Title = opts.title
	}
	if flags.Changed("content") {
		cfg.Notify.Content = opts.content
	}
	if flags.Changed("template") {
		cfg.Notify.Template = opts.template
	}

	if err := cfg.Validate(); err != nil {
		return nil, nil, fail(fallbackLogger(stderr), configError(err))
	}
	logger, err := newLogger(stderr, cfg)
	if err != nil {
		return nil, nil, fail(fallbackLogger(stderr), configError(err))
	}
	return cfg, logger, nil
}

func configError(err error) error {
	if errors.Is(err, notify.ErrConfiguration) {
		return err
	}
	return fmt.Errorf("%w: %w", notify.ErrConfiguration, err)
}

// fallbackLogger is used before the configured logger exists.
func fallbackLogger(w io.Writer) *slog.Logger {
	logger, err := logging.New(w, logging.Options{Format: os.Getenv("LOG_FORMAT")})
	if err != nil {
		logger, _ = logging.New(w, logging.Options{})
	}
	return logger
}

func newLogger(w io.Writer, cfg *config.Config) (*slog.Logger, error) {
	return logging.New(w, logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})
}

// buildMessage picks the custom message when both title and content are
// supplied and the daily report otherwise.
func buildMessage(cfg *config.Config, now time.Time, env report.Environment, logger *slog.Logger) (report.Message, error) {
	tmpl, err := notify.ParseTemplate(cfg.Notify.Template)
	if err != nil {
		return report.Message{}, err
	}

	// Content is sent as given; indentation matters to markdown and txt.
	title := strings.TrimSpace(cfg.Notify.Title)
	hasContent := strings.TrimSpace(cfg.Notify.Content) != ""
	switch {
	case title != "" && hasContent:
		return report.BuildCustom(now, title, cfg.Notify.Content, tmpl), nil
	case title != "" || hasContent:
		logger.Warn("custom message needs both title and content; sending the daily report",
			"has_title", title != "", "has_content", hasContent)
	}

	if expr := strings.TrimSpace(cfg.Notify.Schedule); expr != "" {
		sched, err := scheduler.Parse(expr)
		if err != nil {
			logger.Warn("ignoring schedule", "error", err)
		} else {
			env.Schedule = sched.String()
			env.NextRun = sched.Next(now)
		}
	}
	return report.BuildDaily(now, env, tmpl), nil
}

func fail(logger *slog.Logger, err error) error {
	attrs := []any{"kind", notify.Kind(err), "error", err.Error()}
	var netErr *notify.NetworkError
	var svcErr *notify.ServiceError
	switch {
	case errors.As(err, &netErr):
		attrs = append(attrs, "timeout", netErr.Timeout())
	case errors.As(err, &svcErr) && svcErr.HTTPStatus != 0:
		attrs = append(attrs, "http_status", svcErr.HTTPStatus)
	case errors.As(err, &svcErr):
		attrs = append(attrs, "code", svcErr.Code)
	}
	logger.Error("notification failed", attrs...)
	return errReported
}
