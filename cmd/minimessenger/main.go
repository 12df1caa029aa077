// Command `minimessenger` is the CLI for the MiniMessenger daemon.
//
// MiniMessenger keeps a YAML file of message templates loaded and turns
// message keys into rich text for connected recipients. The CLI talks to the
// daemon over its Unix socket.
//
// Usage:
//
//	minimessenger status                          - Show daemon and config state
//	minimessenger reload                          - Reload the message file
//	minimessenger render <key>                    - Resolve a message without sending it
//	minimessenger send <recipient-id> <key>       - Send a message to one recipient
//	minimessenger broadcast <key>                 - Send a message to every recipient
//	minimessenger join <name> [permission...]     - Register a recipient
//	minimessenger leave <recipient-id>            - Remove a recipient
//	minimessenger recipients                      - List recipients
//	minimessenger inbox <recipient-id>            - Show what a recipient received
//	minimessenger messages                        - List loaded templates
//
// Examples:
//
//	minimessenger render welcome -p player=Steve --prefixed
//	minimessenger broadcast staff -p message="Server restart in 5m" --permission chat.staff
package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Krakenied/MiniMessenger/internal/config"
	"github.com/Krakenied/MiniMessenger/internal/socket"
	"github.com/Krakenied/MiniMessenger/pkg/client"
)

// requestTimeout bounds every call to the daemon.
const requestTimeout = 5 * time.Second

func main() {
	cfg, err := config.New(os.Getenv("MINIMESSENGER_CONFIG")).Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	root := newRootCmd(client.New(cfg.Socket.Path, socket.WithStartupTimeout(cfg.Socket.StartupTimeout)))
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(cli *client.Client) *cobra.Command {
	root := &cobra.Command{
		Use:   "minimessenger",
		Short: "MiniMessenger message CLI",
		Long: `MiniMessenger keeps a YAML file of message templates loaded and resolves
message keys into rich text for connected recipients.`,
		SilenceUsage: true,
	}

	root.AddCommand(
		newStatusCmd(cli),
		newReloadCmd(cli),
		newRenderCmd(cli),
		newSendCmd(cli),
		newBroadcastCmd(cli),
		newJoinCmd(cli),
		newLeaveCmd(cli),
		newRecipientsCmd(cli),
		newInboxCmd(cli),
		newMessagesCmd(cli),
		newVersionCmd(),
	)
	return root
}

func withTimeout(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, requestTimeout)
}
