package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/zhouzirui/z-messenger/internal/client/app"
)

type credentialFlags struct {
	username string
	password string
}

func (c *credentialFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&c.username, "username", "u", "", "account name")
	cmd.Flags().StringVarP(&c.password, "password", "p", "", "password (prompted when omitted)")
	cmd.MarkFlagRequired("username")
}

// resolvePassword returns the flag value, or reads it from the terminal
// without echo, or reads one line from a piped stdin.
func (c *credentialFlags) resolvePassword(cmd *cobra.Command) (string, error) {
	if c.password != "" {
		return c.password, nil
	}
	if f, ok := cmd.InOrStdin().(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(cmd.ErrOrStderr())
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return string(b), nil
	}
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func newStatusCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show whether you are logged in and list your chats",
		Args:  cobra.NoArgs,
		RunE: withRuntime(flags, func(cmd *cobra.Command, rt *runtime, _ []string) error {
			state, err := rt.app.Initialize(cmd.Context())
			if state == app.Authenticated {
				sess, _ := rt.app.Session(cmd.Context())
				fmt.Fprintf(cmd.ErrOrStderr(), "logged in as %s at %s\n", sess.Username, rt.cfg.BaseURL)
			}
			return err
		}),
	}
}

func newRegisterCmd(flags *globalFlags) *cobra.Command {
	creds := &credentialFlags{}
	cmd := &cobra.Command{
		Use:     "register",
		Short:   "Create an account and log in",
		Example: `  messenger register -u alice`,
		Args:    cobra.NoArgs,
		RunE: withRuntime(flags, func(cmd *cobra.Command, rt *runtime, _ []string) error {
			password, err := creds.resolvePassword(cmd)
			if err != nil {
				return err
			}
			if err := rt.app.Register(cmd.Context(), creds.username, password); err != nil {
				return err
			}
			return showChatsAfterLogin(cmd, rt)
		}),
	}
	creds.bind(cmd)
	return cmd
}

func newLoginCmd(flags *globalFlags) *cobra.Command {
	creds := &credentialFlags{}
	cmd := &cobra.Command{
		Use:     "login",
		Short:   "Log in and store the session",
		Example: `  messenger login -u alice`,
		Args:    cobra.NoArgs,
		RunE: withRuntime(flags, func(cmd *cobra.Command, rt *runtime, _ []string) error {
			password, err := creds.resolvePassword(cmd)
			if err != nil {
				return err
			}
			if err := rt.app.Login(cmd.Context(), creds.username, password); err != nil {
				return err
			}
			return showChatsAfterLogin(cmd, rt)
		}),
	}
	creds.bind(cmd)
	return cmd
}

// showChatsAfterLogin follows the navigation to the chat page by
// initializing it, the way a page load would.
func showChatsAfterLogin(cmd *cobra.Command, rt *runtime) error {
	if rt.view.Location() != app.PageChats {
		return nil
	}
	_, err := rt.app.Initialize(cmd.Context())
	return err
}

func newLogoutCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		Args:  cobra.NoArgs,
		RunE: withRuntime(flags, func(cmd *cobra.Command, rt *runtime, _ []string) error {
			if err := rt.app.Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.ErrOrStderr(), "logged out")
			return nil
		}),
	}
}
