// Package cli is the command line front end of the messenger client.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/zhouzirui/z-messenger/internal/client/api"
	"github.com/zhouzirui/z-messenger/internal/client/app"
	"github.com/zhouzirui/z-messenger/internal/client/session"
	"github.com/zhouzirui/z-messenger/internal/client/view"
	"github.com/zhouzirui/z-messenger/internal/config"
)

type globalFlags struct {
	cfgFile       string
	baseURL       string
	sessionDriver string
	sessionPath   string
	timeout       time.Duration
}

// runtime holds everything a command needs, built once per invocation.
type runtime struct {
	cfg    *config.ClientConfig
	client *api.Client
	store  session.Store
	view   *view.Terminal
	app    *app.App
}

func (rt *runtime) Close() {
	if err := rt.store.Close(); err != nil {
		log.Warn().Err(err).Msg("[cli] close session store failed")
	}
}

// NewRootCmd builds the messenger command tree.
func NewRootCmd() *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:           "messenger",
		Short:         "Terminal client for the z-messenger API",
		Long:          "messenger logs in to a z-messenger server, keeps the session on disk and lets you browse chats and messages.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVarP(&flags.cfgFile, "config", "c", "", "config file path (default ~/.config/z-messenger/config.yaml)")
	root.PersistentFlags().StringVar(&flags.baseURL, "base-url", "", "override API base URL")
	root.PersistentFlags().StringVar(&flags.sessionDriver, "session-driver", "", "override session driver (pebble|memory)")
	root.PersistentFlags().StringVar(&flags.sessionPath, "session-path", "", "override session database path")
	root.PersistentFlags().DurationVar(&flags.timeout, "timeout", 0, "override HTTP request timeout")

	root.AddCommand(
		newStatusCmd(flags),
		newRegisterCmd(flags),
		newLoginCmd(flags),
		newLogoutCmd(flags),
		newChatsCmd(flags),
		newMessagesCmd(flags),
		newUploadCmd(flags),
		newWatchCmd(flags),
		newTUICmd(flags),
		newConfigCmd(flags),
	)
	return root
}

// Execute runs the root command and exits non-zero on failure.
func Execute(ctx context.Context) {
	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads the config file and applies CLI flag overrides.
func loadConfig(flags *globalFlags) (*config.ClientConfig, error) {
	cfg, err := config.LoadClient(flags.cfgFile)
	if err != nil {
		return nil, err
	}
	if flags.baseURL != "" {
		cfg.BaseURL = flags.baseURL
	}
	if flags.sessionDriver != "" {
		cfg.Session.Driver = flags.sessionDriver
	}
	if flags.sessionPath != "" {
		cfg.Session.Path = flags.sessionPath
	}
	if flags.timeout > 0 {
		cfg.Timeout = flags.timeout
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setupLogger(level string, w io.Writer) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.WarnLevel
	}
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}).
		Level(lvl).
		With().Timestamp().Logger()
}

func newRuntime(cmd *cobra.Command, flags *globalFlags) (*runtime, error) {
	cfg, err := loadConfig(flags)
	if err != nil {
		return nil, err
	}
	setupLogger(cfg.LogLevel, cmd.ErrOrStderr())

	client := api.New(cfg.BaseURL, api.WithTimeout(cfg.Timeout))
	store, err := session.Open(cfg.Session.Driver, cfg.Session.Path, client.Origin())
	if err != nil {
		return nil, err
	}
	log.Debug().Str("base_url", cfg.BaseURL).Str("session", cfg.Session.Driver).Msg("[cli] runtime ready")

	term := view.NewTerminal(cmd.OutOrStdout())
	return &runtime{
		cfg:    cfg,
		client: client,
		store:  store,
		view:   term,
		app:    app.New(client, store, term),
	}, nil
}

// withRuntime adapts a runtime-aware function to cobra's RunE.
func withRuntime(flags *globalFlags, fn func(cmd *cobra.Command, rt *runtime, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime(cmd, flags)
		if err != nil {
			return err
		}
		defer rt.Close()
		return fn(cmd, rt, args)
	}
}

// token returns the stored access token or app.ErrNoSession.
func (rt *runtime) token(ctx context.Context) (string, error) {
	sess, ok := rt.app.Session(ctx)
	if !ok {
		return "", app.ErrNoSession
	}
	return sess.Token, nil
}
