package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/zhouzirui/z-messenger/internal/model/chat"
)

func newChatsCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chats",
		Short: "List your chats",
		Args:  cobra.NoArgs,
		RunE: withRuntime(flags, func(cmd *cobra.Command, rt *runtime, _ []string) error {
			return rt.app.FetchAndRenderChats(cmd.Context())
		}),
	}
	cmd.AddCommand(newChatsCreateCmd(flags), newChatsUpdateCmd(flags))
	return cmd
}

func newChatsCreateCmd(flags *globalFlags) *cobra.Command {
	var group bool
	cmd := &cobra.Command{
		Use:     "create <name>",
		Short:   "Create a chat",
		Example: `  messenger chats create General --group`,
		Args:    cobra.MinimumNArgs(1),
		RunE: withRuntime(flags, func(cmd *cobra.Command, rt *runtime, args []string) error {
			token, err := rt.token(cmd.Context())
			if err != nil {
				return err
			}
			c, err := rt.client.CreateChat(cmd.Context(), token, strings.Join(args, " "), group)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created chat %d %q\n", c.ID, c.Name)
			return nil
		}),
	}
	cmd.Flags().BoolVar(&group, "group", false, "mark the chat as a group chat")
	return cmd
}

func newChatsUpdateCmd(flags *globalFlags) *cobra.Command {
	var name, avatar string
	cmd := &cobra.Command{
		Use:   "update <chat-id>",
		Short: "Rename a chat or change its avatar",
		Args:  cobra.ExactArgs(1),
		RunE: withRuntime(flags, func(cmd *cobra.Command, rt *runtime, args []string) error {
			chatID, err := parseID(args[0])
			if err != nil {
				return err
			}
			update := chat.Update{ChatID: chatID}
			if cmd.Flags().Changed("name") {
				update.Name = &name
			}
			if cmd.Flags().Changed("avatar") {
				update.AvatarURL = &avatar
			}
			if update.Name == nil && update.AvatarURL == nil {
				return fmt.Errorf("nothing to update: pass --name or --avatar")
			}
			token, err := rt.token(cmd.Context())
			if err != nil {
				return err
			}
			c, err := rt.client.UpdateChat(cmd.Context(), token, update)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "updated chat %d %q\n", c.ID, c.Name)
			return nil
		}),
	}
	cmd.Flags().StringVar(&name, "name", "", "new chat name")
	cmd.Flags().StringVar(&avatar, "avatar", "", "new avatar URL, e.g. from `messenger upload`")
	return cmd
}

func newMessagesCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "messages",
		Short: "Send, list, edit and delete messages",
	}

	send := &cobra.Command{
		Use:     "send <chat-id> <text>",
		Short:   "Send a message",
		Example: `  messenger messages send 1 hello there`,
		Args:    cobra.MinimumNArgs(2),
		RunE: withRuntime(flags, func(cmd *cobra.Command, rt *runtime, args []string) error {
			chatID, err := parseID(args[0])
			if err != nil {
				return err
			}
			token, err := rt.token(cmd.Context())
			if err != nil {
				return err
			}
			m, err := rt.client.SendMessage(cmd.Context(), token, chatID, strings.Join(args[1:], " "))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "sent message %d\n", m.ID)
			return nil
		}),
	}

	list := &cobra.Command{
		Use:   "list <chat-id>",
		Short: "Print the history of a chat",
		Args:  cobra.ExactArgs(1),
		RunE: withRuntime(flags, func(cmd *cobra.Command, rt *runtime, args []string) error {
			chatID, err := parseID(args[0])
			if err != nil {
				return err
			}
			token, err := rt.token(cmd.Context())
			if err != nil {
				return err
			}
			msgs, err := rt.client.ListMessages(cmd.Context(), token, chatID)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, m := range msgs {
				fmt.Fprintf(tw, "%d\t%s\tuser %d\t%s\n", m.ID, m.Timestamp.Local().Format(time.DateTime), m.SenderID, m.Content)
			}
			return tw.Flush()
		}),
	}

	edit := &cobra.Command{
		Use:   "edit <message-id> <text>",
		Short: "Replace the text of one of your messages",
		Args:  cobra.MinimumNArgs(2),
		RunE: withRuntime(flags, func(cmd *cobra.Command, rt *runtime, args []string) error {
			messageID, err := parseID(args[0])
			if err != nil {
				return err
			}
			token, err := rt.token(cmd.Context())
			if err != nil {
				return err
			}
			if _, err := rt.client.EditMessage(cmd.Context(), token, messageID, strings.Join(args[1:], " ")); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "edited message %d\n", messageID)
			return nil
		}),
	}

	del := &cobra.Command{
		Use:   "delete <message-id>",
		Short: "Delete one of your messages",
		Args:  cobra.ExactArgs(1),
		RunE: withRuntime(flags, func(cmd *cobra.Command, rt *runtime, args []string) error {
			messageID, err := parseID(args[0])
			if err != nil {
				return err
			}
			token, err := rt.token(cmd.Context())
			if err != nil {
				return err
			}
			if err := rt.client.DeleteMessage(cmd.Context(), token, messageID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted message %d\n", messageID)
			return nil
		}),
	}

	cmd.AddCommand(send, list, edit, del)
	return cmd
}

func newUploadCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "upload <file>",
		Short: "Upload a file and print its URL",
		Args:  cobra.ExactArgs(1),
		RunE: withRuntime(flags, func(cmd *cobra.Command, rt *runtime, args []string) error {
			token, err := rt.token(cmd.Context())
			if err != nil {
				return err
			}
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			url, err := rt.client.Upload(cmd.Context(), token, filepath.Base(args[0]), f)
			if err != nil {
				return err
			}
			if url == "" {
				fmt.Fprintln(cmd.OutOrStdout(), "uploaded, but the server does not publish the upload directory so no public URL is available")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), rt.cfg.BaseURL+url)
			return nil
		}),
	}
}

func newWatchCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "watch <chat-id>",
		Short: "Stream new, edited and deleted messages of a chat",
		Args:  cobra.ExactArgs(1),
		RunE: withRuntime(flags, func(cmd *cobra.Command, rt *runtime, args []string) error {
			chatID, err := parseID(args[0])
			if err != nil {
				return err
			}
			token, err := rt.token(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(cmd.ErrOrStderr(), "watching chat %d, press Ctrl+C to stop\n", chatID)
			return rt.client.Watch(cmd.Context(), token, chatID, func(ev chat.Event) {
				switch ev.Type {
				case chat.EventMessageCreated:
					fmt.Fprintf(out, "[%d] user %d: %s\n", ev.Message.ID, ev.Message.SenderID, ev.Message.Content)
				case chat.EventMessageUpdated:
					fmt.Fprintf(out, "[%d] edited: %s\n", ev.Message.ID, ev.Message.Content)
				case chat.EventMessageDeleted:
					fmt.Fprintf(out, "[%d] deleted\n", ev.Message.ID)
				}
			})
		}),
	}
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}
