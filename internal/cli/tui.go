package cli

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/zhouzirui/z-messenger/internal/tui"
)

func newTUICmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Open the full-screen client",
		Args:  cobra.NoArgs,
		RunE: withRuntime(flags, func(cmd *cobra.Command, rt *runtime, _ []string) error {
			// log lines would tear the alternate screen
			setupLogger("disabled", io.Discard)
			return tui.Run(cmd.Context(), rt.client, rt.store)
		}),
	}
}
