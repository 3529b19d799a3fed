package main

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/NotoriosTI/notorios-odoo-poller-orders-MS/internal/store"
)

func newRetriesCmd() *cobra.Command {
	var connectionID int

	cmd := &cobra.Command{
		Use:   "retries",
		Short: "View the retry queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			var items []store.RetryItem
			if connectionID != 0 {
				items, err = a.retryRepo.ListByConnection(connectionID, 1000)
				if err != nil {
					return err
				}
			} else {
				conns, err := a.connRepo.ListAll()
				if err != nil {
					return err
				}
				for _, c := range conns {
					rows, err := a.retryRepo.ListByConnection(c.ID, 1000)
					if err != nil {
						return err
					}
					items = append(items, rows...)
				}
				sort.Slice(items, func(i, j int) bool { return items[i].ID > items[j].ID })
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 2, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tCONN\tORDER\tSTATUS\tATTEMPTS\tNEXT RETRY\tERROR")
			for _, item := range items {
				name := item.OdooOrderName
				if name == "" {
					name = strconv.Itoa(item.OdooOrderID)
				}
				errMsg := item.LastError
				if len(errMsg) > 40 {
					errMsg = errMsg[:40]
				}
				fmt.Fprintf(w, "%d\t%d\t%s\t%s\t%d/%d\t%s\t%s\n",
					item.ID, item.ConnectionID, name, item.Status, item.Attempts, item.MaxAttempts, item.NextRetryAt, errMsg)
			}
			return w.Flush()
		},
	}
	cmd.Flags().IntVarP(&connectionID, "connection", "c", 0, "filter by connection id")
	return cmd
}

func newRetryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "retry <id>",
		Short: "Mark a retry item for immediate redelivery",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid retry item id %q", args[0])
			}

			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			now := store.Now()
			if err := a.retryRepo.UpdateStatus(id, store.RetryPending, store.UpdateStatusOpts{NextRetryAt: &now}); err != nil {
				return err
			}
			fmt.Printf("Retry #%d marked for immediate redelivery.\n", id)
			return nil
		},
	}
}

func newDiscardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "discard <id>",
		Short: "Discard a retry item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid retry item id %q", args[0])
			}

			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.retryRepo.UpdateStatus(id, store.RetryDiscarded, store.UpdateStatusOpts{}); err != nil {
				return err
			}
			fmt.Printf("Retry #%d discarded.\n", id)
			return nil
		},
	}
}

func newResetCircuitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset-circuit <id>",
		Short: "Reset a connection's circuit breaker to closed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid connection id %q", args[0])
			}

			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			conn, err := a.connRepo.Get(id)
			if err != nil {
				return err
			}

			if err := a.connRepo.UpdateCircuitState(id, store.CircuitClosed, 0); err != nil {
				return err
			}
			fmt.Printf("Circuit breaker for '%s' reset to CLOSED.\n", conn.Name)
			return nil
		},
	}
}
