package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/NotoriosTI/notorios-odoo-poller-orders-MS/internal/erpclient"
)

func newTestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "test <id>",
		Short: "Test Odoo connectivity and/or the webhook for a connection",
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

			ctx, cancel := context.WithTimeout(context.Background(), a.cfg.ErpTimeout)
			defer cancel()

			fmt.Printf("Testing Odoo connection '%s'...\n", conn.Name)
			client := erpclient.New(conn.OdooURL, conn.OdooDB, conn.OdooUsername, conn.OdooAPIKey, a.cfg.ErpTimeout)
			if uid, err := client.Authenticate(ctx); err != nil {
				fmt.Printf("  Odoo ERROR: %v\n", err)
			} else {
				fmt.Printf("  Odoo OK - UID: %d\n", uid)
			}

			if conn.WebhookURL != "" {
				fmt.Println("Testing webhook...")
				if err := testWebhook(conn.WebhookURL, conn.WebhookSecret, conn.Name, a.cfg.WebhookTimeout); err != nil {
					fmt.Printf("  Webhook ERROR: %v\n", err)
				} else {
					fmt.Println("  Webhook OK")
				}
			}
			return nil
		},
	}
}

func testWebhook(url, secret, connectionName string, timeout time.Duration) error {
	payload := map[string]interface{}{
		"source":          "odoo",
		"test":            true,
		"connection_name": connectionName,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if secret != "" {
		req.Header.Set("X-Webhook-Secret", secret)
	}

	client := &http.Client{Timeout: timeout}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	return nil
}
