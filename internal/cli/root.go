// Package cli defines the cobra command tree for visitlog.
package cli

import (
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root cobra command.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "visitlog",
		Short:         "Track building visitors",
		Long:          "A visitor log for reception desks. Register visits with RUT validation, mark departures, and browse the log via REST API or web UI.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newServeCmd(),
		newCreateAdminCmd(),
		newVersionCmd(),
	)

	return root
}
