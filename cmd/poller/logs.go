package main

import (
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/NotoriosTI/notorios-odoo-poller-orders-MS/internal/store"
)

func newLogsCmd() *cobra.Command {
	var connectionID int
	var limit int

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "View sync cycle logs",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			var logs []store.SyncLog
			if connectionID != 0 {
				logs, err = a.syncRepo.ListByConnection(connectionID, limit)
				if err != nil {
					return err
				}
			} else {
				conns, err := a.connRepo.ListAll()
				if err != nil {
					return err
				}
				for _, c := range conns {
					rows, err := a.syncRepo.ListByConnection(c.ID, limit)
					if err != nil {
						return err
					}
					logs = append(logs, rows...)
				}
				sort.Slice(logs, func(i, j int) bool { return logs[i].ID > logs[j].ID })
				if len(logs) > limit {
					logs = logs[:limit]
				}
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 2, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tCONN\tSTARTED\tFOUND\tSENT\tFAILED\tSKIP\tERROR")
			for _, l := range logs {
				errMsg := l.ErrorMessage
				if len(errMsg) > 50 {
					errMsg = errMsg[:50]
				}
				fmt.Fprintf(w, "%d\t%d\t%s\t%d\t%d\t%d\t%d\t%s\n",
					l.ID, l.ConnectionID, l.StartedAt, l.OrdersFound, l.OrdersSent, l.OrdersFailed, l.OrdersSkipped, errMsg)
			}
			return w.Flush()
		},
	}
	cmd.Flags().IntVarP(&connectionID, "connection", "c", 0, "filter by connection id")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of logs to show")
	return cmd
}
