package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/Krakenied/MiniMessenger/internal/buildinfo"
	"github.com/Krakenied/MiniMessenger/pkg/api"
	"github.com/Krakenied/MiniMessenger/pkg/client"
)

var (
	okColor    = color.New(color.FgGreen, color.Bold)
	warnColor  = color.New(color.FgYellow)
	errColor   = color.New(color.FgHiRed, color.Bold)
	valueColor = color.New(color.FgHiWhite, color.Bold)
	titleColor = color.New(color.Bold)
)

// ---- version command ----
func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "version: %s\n", buildinfo.Version)
			fmt.Fprintf(w, "commit: %s\n", buildinfo.Commit)
		},
	}
}

// ---- status command ----
func newStatusCmd(cli *client.Client) *cobra.Command {
	return &cobra.Command{
		Use:     "status",
		Short:   "Show daemon and message file state",
		Example: "minimessenger status",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := withTimeout(cmd)
			defer cancel()
			st, err := cli.Status(ctx)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			stateColor := okColor
			if st.State != "ready" {
				stateColor = errColor
			}
			fmt.Fprint(w, "state:      ")
			stateColor.Fprintln(w, st.State)
			fmt.Fprintf(w, "file:       %s\n", st.File)
			fmt.Fprintf(w, "generation: %d (%d reloads)\n", st.Generation, st.Reloads)
			if !st.LoadedAt.IsZero() {
				fmt.Fprintf(w, "loaded at:  %s\n", st.LoadedAt.Format(time.RFC3339))
			}
			if st.LastError != "" {
				fmt.Fprint(w, "last error: ")
				errColor.Fprintln(w, st.LastError)
			}
			fmt.Fprintf(w, "recipients: %d (%d deliveries)\n", st.Recipients, st.Delivered)
			fmt.Fprintf(w, "uptime:     %s\n", st.Uptime.Round(time.Second))
			fmt.Fprintf(w, "version:    %s (%s)\n", st.Version, st.Commit)
			return nil
		},
	}
}

// ---- reload command ----
func newReloadCmd(cli *client.Client) *cobra.Command {
	return &cobra.Command{
		Use:   "reload",
		Short: "Reload the message file",
		Long: `Reload the message file from disk. A missing file is recreated from the
bundled default; a malformed file is renamed aside and replaced by the default.
If the reload fails the daemon keeps serving the previous messages.`,
		Example: "minimessenger reload",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := withTimeout(cmd)
			defer cancel()
			res, err := cli.Reload(ctx)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			okColor.Fprint(w, "✓ Reloaded ")
			fmt.Fprint(w, "(generation ")
			valueColor.Fprintf(w, "%d", res.Generation)
			fmt.Fprintln(w, ")")
			return nil
		},
	}
}

// ---- render command ----
func newRenderCmd(cli *client.Client) *cobra.Command {
	var (
		flags placeholderFlags
		plain bool
	)
	cmd := &cobra.Command{
		Use:   "render <key>",
		Short: "Resolve a message without sending it",
		Long: `Resolve a message key with placeholders and print the result.
A key that is not in the message file renders as its own path.`,
		Example: `minimessenger render welcome -p player=Steve --prefixed`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ph, err := flags.placeholders()
			if err != nil {
				return err
			}
			ctx, cancel := withTimeout(cmd)
			defer cancel()
			res, err := cli.Render(ctx, api.RenderRequest{
				Key:          args[0],
				Placeholders: ph,
				Prefixed:     flags.prefixed,
			})
			if err != nil {
				return err
			}
			if plain {
				fmt.Fprintln(cmd.OutOrStdout(), res.Text)
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), res.ANSI)
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().BoolVar(&plain, "plain", false, "print without colours")
	return cmd
}

// ---- send command ----
func newSendCmd(cli *client.Client) *cobra.Command {
	var (
		flags     placeholderFlags
		actionBar bool
	)
	cmd := &cobra.Command{
		Use:     "send <recipient-id> <key>",
		Short:   "Send a message to one recipient",
		Example: `minimessenger send 2f1c... welcome -p player=Steve`,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ph, err := flags.placeholders()
			if err != nil {
				return err
			}
			ctx, cancel := withTimeout(cmd)
			defer cancel()
			err = cli.Send(ctx, api.SendRequest{
				RecipientID:  args[0],
				Key:          args[1],
				Placeholders: ph,
				Prefixed:     flags.prefixed,
				ActionBar:    actionBar,
			})
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			okColor.Fprint(w, "✓ Sent ")
			valueColor.Fprintf(w, "%s ", args[1])
			okColor.Fprint(w, "to ")
			valueColor.Fprintln(w, args[0])
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().BoolVar(&actionBar, "action-bar", false, "show in the action bar instead of chat")
	return cmd
}

// ---- broadcast command ----
func newBroadcastCmd(cli *client.Client) *cobra.Command {
	var (
		flags      placeholderFlags
		permission string
	)
	cmd := &cobra.Command{
		Use:   "broadcast <key>",
		Short: "Send a message to every recipient",
		Long: `Send a message to every recipient, or only to those holding a permission.
A permission grant of "*" or "node.*" covers everything below it.`,
		Example: `minimessenger broadcast staff -p message="Restart in 5m" --permission chat.staff`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ph, err := flags.placeholders()
			if err != nil {
				return err
			}
			ctx, cancel := withTimeout(cmd)
			defer cancel()
			n, err := cli.Broadcast(ctx, api.BroadcastRequest{
				Key:          args[0],
				Permission:   permission,
				Placeholders: ph,
				Prefixed:     flags.prefixed,
			})
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if n == 0 {
				warnColor.Fprintln(w, "No recipients received the broadcast.")
				return nil
			}
			okColor.Fprint(w, "✓ Broadcast reached ")
			valueColor.Fprintf(w, "%d ", n)
			okColor.Fprintln(w, "recipients")
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&permission, "permission", "", "only recipients holding this permission")
	return cmd
}

// ---- join command ----
func newJoinCmd(cli *client.Client) *cobra.Command {
	return &cobra.Command{
		Use:     "join <name> [permission...]",
		Short:   "Register a recipient",
		Example: "minimessenger join Steve chat.staff",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := withTimeout(cmd)
			defer cancel()
			r, err := cli.Join(ctx, args[0], args[1:])
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			okColor.Fprint(w, "✓ Joined ")
			valueColor.Fprintf(w, "%s ", r.Name)
			fmt.Fprintf(w, "as %s\n", r.ID)
			return nil
		},
	}
}

// ---- leave command ----
func newLeaveCmd(cli *client.Client) *cobra.Command {
	return &cobra.Command{
		Use:     "leave <recipient-id>",
		Short:   "Remove a recipient",
		Example: "minimessenger leave 2f1c...",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := withTimeout(cmd)
			defer cancel()
			if err := cli.Leave(ctx, args[0]); err != nil {
				return err
			}
			okColor.Fprintln(cmd.OutOrStdout(), "✓ Removed "+args[0])
			return nil
		},
	}
}

// ---- recipients command ----
func newRecipientsCmd(cli *client.Client) *cobra.Command {
	return &cobra.Command{
		Use:     "recipients",
		Short:   "List recipients",
		Example: "minimessenger recipients",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := withTimeout(cmd)
			defer cancel()
			recipients, err := cli.Recipients(ctx)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if len(recipients) == 0 {
				warnColor.Fprintln(w, "No recipients connected.")
				return nil
			}

			table := newTable(cmd, "ID", "Name", "Permissions", "Joined")
			for _, r := range recipients {
				table.Append([]string{r.ID, r.Name, strings.Join(r.Permissions, ", "), r.JoinedAt.Format(time.RFC3339)})
			}
			titleColor.Fprintln(w, "RECIPIENTS:")
			table.Render()
			return nil
		},
	}
}

// ---- inbox command ----
func newInboxCmd(cli *client.Client) *cobra.Command {
	var drain bool
	cmd := &cobra.Command{
		Use:     "inbox <recipient-id>",
		Short:   "Show what a recipient received",
		Example: "minimessenger inbox 2f1c... --drain",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := withTimeout(cmd)
			defer cancel()
			inbox, err := cli.Inbox(ctx, args[0], drain)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if len(inbox) == 0 {
				warnColor.Fprintln(w, "Inbox is empty.")
				return nil
			}

			table := newTable(cmd, "At", "Channel", "Message")
			for _, d := range inbox {
				table.Append([]string{d.At.Format(time.RFC3339), string(d.Channel), d.Text})
			}
			titleColor.Fprintln(w, "INBOX:")
			table.Render()
			return nil
		},
	}
	cmd.Flags().BoolVar(&drain, "drain", false, "empty the inbox after showing it")
	return cmd
}

// ---- messages command ----
func newMessagesCmd(cli *client.Client) *cobra.Command {
	return &cobra.Command{
		Use:     "messages",
		Short:   "List loaded message templates",
		Example: "minimessenger messages",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := withTimeout(cmd)
			defer cancel()
			entries, err := cli.Messages(ctx)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if len(entries) == 0 {
				warnColor.Fprintln(w, "No messages loaded.")
				return nil
			}

			table := newTable(cmd, "Key", "Path", "Template")
			for _, e := range entries {
				tpl := e.Template
				if len(e.Templates) > 0 {
					tpl = strings.Join(e.Templates, "\n")
				}
				table.Append([]string{e.Key, e.Path, tpl})
			}
			titleColor.Fprintln(w, "MESSAGES:")
			table.Render()
			return nil
		},
	}
}

func newTable(cmd *cobra.Command, headers ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(cmd.OutOrStdout())
	table.SetHeader(headers)
	headerColors := make([]tablewriter.Colors, len(headers))
	for i := range headerColors {
		headerColors[i] = tablewriter.Colors{tablewriter.Bold, tablewriter.FgHiCyanColor}
	}
	table.SetHeaderColor(headerColors...)
	table.SetBorder(false)
	table.SetAutoWrapText(false)
	return table
}
