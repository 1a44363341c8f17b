package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

func main() {
	root := buildRoot()
	if err := root.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// buildRoot creates the root command and wires every subcommand.
func buildRoot() *cobra.Command {
	globalFlags := &GlobalFlags{}
	listFlags := &ListFlags{}
	driveFlags := &DriveFlags{}
	serveFlags := &ServeFlags{}

	svcdeckCommand := command{global: globalFlags}

	root := createRootCommand(globalFlags)
	root.AddCommand(
		createWatchCommand(svcdeckCommand),
		createListCommand(svcdeckCommand, listFlags),
		createDriveCommand(svcdeckCommand, driveFlags, "start", "Start a service and wait for it to run"),
		createDriveCommand(svcdeckCommand, driveFlags, "stop", "Stop a service and wait for it to settle"),
		createDriveCommand(svcdeckCommand, driveFlags, "restart", "Stop then start a service"),
		createDriveCommand(svcdeckCommand, driveFlags, "uninstall", "Remove a service from the host"),
		createServeCommand(svcdeckCommand, serveFlags),
	)
	return root
}

func createRootCommand(flags *GlobalFlags) *cobra.Command {
	root := &cobra.Command{
		Use:   "svcdeck",
		Short: "Service fleet monitoring and control",
		Long: `Svcdeck watches the host's service directory and drives services
toward requested states, interactively or from the command line.

Examples:
  svcdeck watch                     # Interactive table
  svcdeck list --query=postgres
  svcdeck restart nginx
  svcdeck serve                     # HTTP API daemon
  svcdeck list --api-url=http://remote:8440/api`,
	}
	root.PersistentFlags().StringVar(&flags.ConfigPath, "config", "", "path to TOML config file (optional)")
	return root
}

func createWatchCommand(c command) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Open the interactive service table",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.Watch()
		},
	}
}

func createListCommand(c command, flags *ListFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print the service table as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.List(*flags)
		},
	}
	cmd.Flags().StringVar(&flags.Query, "query", "", "free-text filter, all tokens must match")
	addAPIFlags(cmd, &flags.APIUrl, &flags.APITimeout)
	return cmd
}

func createDriveCommand(c command, flags *DriveFlags, action, short string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   action + " <name>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.Drive(action, args[0], *flags)
		},
	}
	cmd.Flags().BoolVar(&flags.NoWait, "no-wait", false, "do not wait for the terminal outcome (API mode)")
	addAPIFlags(cmd, &flags.APIUrl, &flags.APITimeout)
	return cmd
}

func createServeCommand(c command, flags *ServeFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.Serve(*flags)
		},
	}
	cmd.Flags().StringVar(&flags.Listen, "listen", "", "listen address (overrides config)")
	return cmd
}

func addAPIFlags(cmd *cobra.Command, url *string, timeout *time.Duration) {
	cmd.Flags().StringVar(url, "api-url", "", "remote daemon URL (e.g. http://host:8440/api)")
	cmd.Flags().DurationVar(timeout, "api-timeout", 30*time.Second, "request timeout")
}
