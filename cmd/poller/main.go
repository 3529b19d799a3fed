// Command poller runs and administers the multi-tenant Odoo order poller:
// one goroutine per connection polling an ERP tenant for newly modified
// sales orders and delivering each, once, to a per-tenant webhook.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "poller",
		Short:         "Multi-tenant Odoo sales-order poller and webhook relay",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newRunCmd(),
		newAddCmd(),
		newListCmd(),
		newEditCmd(),
		newDeleteCmd(),
		newTestCmd(),
		newLogsCmd(),
		newRetriesCmd(),
		newRetryCmd(),
		newDiscardCmd(),
		newResetCircuitCmd(),
		newSendCmd(),
	)
	return root
}
