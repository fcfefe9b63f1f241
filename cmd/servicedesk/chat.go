package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/aretw0/servicedesk/internal/cli"
	"github.com/spf13/cobra"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Talk to the assistant in the terminal",
	Long: `Starts an interactive conversation. Type /incident, /status or /feedback
to begin a form; Ctrl+C abandons the form in progress.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM)
		defer stop()

		stack, err := buildStack(ctx, cmd, true)
		if err != nil {
			return err
		}
		defer stack.Close()

		sessionID, _ := cmd.Flags().GetString("session")
		fresh, _ := cmd.Flags().GetBool("fresh")
		plain, _ := cmd.Flags().GetBool("plain")

		return cli.RunChat(ctx, stack, cli.ChatOptions{
			SessionID: sessionID,
			Fresh:     fresh,
			Plain:     plain,
			In:        os.Stdin,
			Out:       os.Stdout,
		})
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().StringP("session", "s", "", "Sender id of the conversation (default \"cli\")")
	chatCmd.Flags().Bool("fresh", false, "Discard any saved state of the session first")
	chatCmd.Flags().Bool("plain", false, "Disable the banner and markdown rendering")
}
