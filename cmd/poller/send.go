package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/NotoriosTI/notorios-odoo-poller-orders-MS/internal/erpclient"
	"github.com/NotoriosTI/notorios-odoo-poller-orders-MS/internal/mapper"
	"github.com/NotoriosTI/notorios-odoo-poller-orders-MS/internal/poller"
	"github.com/NotoriosTI/notorios-odoo-poller-orders-MS/internal/store"
	"github.com/NotoriosTI/notorios-odoo-poller-orders-MS/internal/webhook"
)

func newSendCmd() *cobra.Command {
	var connectionID int
	var last int

	cmd := &cobra.Command{
		Use:   "send",
		Short: "Manually redeliver webhooks for already-registered orders",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSend(connectionID, last)
		},
	}
	cmd.Flags().IntVarP(&connectionID, "connection", "c", 0, "connection id (required)")
	cmd.Flags().IntVar(&last, "last", 0, "automatically send the last N registered orders")
	_ = cmd.MarkFlagRequired("connection")
	return cmd
}

func runSend(connectionID, last int) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	conn, err := a.connRepo.Get(connectionID)
	if err != nil {
		return err
	}

	sentOrders, err := a.sentRepo.ListByConnection(connectionID, 1000)
	if err != nil {
		return err
	}
	if len(sentOrders) == 0 {
		fmt.Printf("No registered orders for connection '%s'.\n", conn.Name)
		return nil
	}

	var selected []store.SentOrder
	if last > 0 {
		if last > len(sentOrders) {
			last = len(sentOrders)
		}
		selected = sentOrders[:last]
	} else {
		fmt.Printf("\nRegistered orders for '%s':\n\n", conn.Name)
		w := tabwriter.NewWriter(os.Stdout, 0, 2, 2, ' ', 0)
		fmt.Fprintln(w, "#\tORDER\tODOO ID\tWRITE DATE\tREGISTERED")
		for i, so := range sentOrders {
			name := so.OdooOrderName
			if name == "" {
				name = strconv.Itoa(so.OdooOrderID)
			}
			fmt.Fprintf(w, "%d\t%s\t%d\t%s\t%s\n", i+1, name, so.OdooOrderID, so.OdooWriteDate, so.SentAt)
		}
		w.Flush()

		fmt.Print("\nIndices to send (comma-separated, e.g. 1,3,5): ")
		reader := bufio.NewReader(os.Stdin)
		raw, _ := reader.ReadString('\n')
		raw = strings.TrimSpace(raw)
		if raw == "" {
			fmt.Println("Cancelled.")
			return nil
		}

		for _, part := range strings.Split(raw, ",") {
			idx, err := strconv.Atoi(strings.TrimSpace(part))
			if err != nil {
				fmt.Println("Error: enter comma-separated numbers.")
				return nil
			}
			if idx >= 1 && idx <= len(sentOrders) {
				selected = append(selected, sentOrders[idx-1])
			} else {
				fmt.Printf("Index %d out of range, ignored.\n", idx)
			}
		}
	}

	if len(selected) == 0 {
		fmt.Println("No orders selected.")
		return nil
	}

	fmt.Printf("\nSending %d order(s) via webhook...\n", len(selected))

	ctx := context.Background()
	client := erpclient.New(conn.OdooURL, conn.OdooDB, conn.OdooUsername, conn.OdooAPIKey, a.cfg.ErpTimeout)
	sender := webhook.New(a.cfg.WebhookTimeout)

	if _, err := client.Authenticate(ctx); err != nil {
		return fmt.Errorf("authenticate: %w", err)
	}

	ok, fail := 0, 0
	for _, so := range selected {
		label := so.OdooOrderName
		if label == "" {
			label = strconv.Itoa(so.OdooOrderID)
		}

		orders, err := client.SearchRead(ctx, "sale.order",
			[]interface{}{[]interface{}{"id", "=", so.OdooOrderID}},
			poller.OrderFields, 0, "")
		if err != nil {
			fmt.Printf("  %s: ERROR - %v\n", label, err)
			fail++
			continue
		}
		if len(orders) == 0 {
			fmt.Printf("  %s: order not found in Odoo, skipping.\n", label)
			fail++
			continue
		}

		batch, err := mapper.FetchBatchData(ctx, client, orders)
		if err != nil {
			fmt.Printf("  %s: ERROR - %v\n", label, err)
			fail++
			continue
		}
		payload := mapper.MapOrderToWebhookPayload(orders[0], batch, conn.OdooDB, conn.ID)

		if err := sender.Send(ctx, conn.WebhookURL, payload, conn.WebhookSecret, conn.ID); err != nil {
			fmt.Printf("  %s: ERROR - %v\n", label, err)
			fail++
			continue
		}
		fmt.Printf("  %s: OK\n", label)
		ok++
	}

	fmt.Printf("\nSummary: %d sent, %d failed.\n", ok, fail)
	return nil
}
