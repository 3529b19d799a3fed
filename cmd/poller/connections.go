package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/NotoriosTI/notorios-odoo-poller-orders-MS/internal/store"
)

// prompt reads one line from stdin, printing label and an optional
// default value. Input is not masked; secrets are entered like any
// other prompt.
func prompt(reader *bufio.Reader, label, defaultValue string) string {
	if defaultValue != "" {
		fmt.Printf("%s [%s]: ", label, defaultValue)
	} else {
		fmt.Printf("%s: ", label)
	}
	line, _ := reader.ReadString('\n')
	line = strings.TrimSpace(line)
	if line == "" {
		return defaultValue
	}
	return line
}

func parseBool(s string, defaultValue bool) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return defaultValue
	}
	switch s {
	case "s", "si", "y", "yes", "true":
		return true
	default:
		return false
	}
}

func newAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add",
		Short: "Add a new Odoo connection (interactive)",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			fmt.Println("=== New Odoo Connection ===")
			reader := bufio.NewReader(os.Stdin)

			interval, err := strconv.Atoi(prompt(reader, "Poll interval (seconds)", "60"))
			if err != nil || interval < 1 {
				interval = 60
			}

			conn := &store.Connection{
				Name:                prompt(reader, "Name", ""),
				OdooURL:             prompt(reader, "Odoo URL (e.g. https://mycompany.odoo.com)", ""),
				OdooDB:              prompt(reader, "Odoo database", ""),
				OdooUsername:        prompt(reader, "Odoo username", ""),
				OdooAPIKey:          prompt(reader, "API key", ""),
				WebhookURL:          prompt(reader, "Webhook URL", a.cfg.DefaultWebhookURL),
				WebhookSecret:       prompt(reader, "Webhook secret (optional)", ""),
				PollIntervalSeconds: interval,
				Enabled:             parseBool(prompt(reader, "Enabled (y/n)", "y"), true),
			}

			created, err := a.connRepo.Create(conn)
			if err != nil {
				return err
			}
			fmt.Printf("\nConnection created with ID: %d\n", created.ID)
			return nil
		},
	}
}

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all connections",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			conns, err := a.connRepo.ListAll()
			if err != nil {
				return err
			}
			if len(conns) == 0 {
				fmt.Println("No connections configured. Use 'poller add' to create one.")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 2, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tURL\tDB\tINTERVAL\tSTATE\tCIRCUIT\tLAST SYNC")
			for _, c := range conns {
				state := "OFF"
				if c.Enabled {
					state = "ON"
				}
				lastSync := c.LastSyncAt
				if lastSync == "" {
					lastSync = "never"
				}
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%ds\t%s\t%s\t%s\n",
					c.ID, c.Name, c.OdooURL, c.OdooDB, c.PollIntervalSeconds, state, c.CircuitState, lastSync)
			}
			return w.Flush()
		},
	}
}

func newEditCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "edit <id>",
		Short: "Edit an existing connection",
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

			fmt.Printf("=== Edit Connection #%d: %s ===\n", id, conn.Name)
			fmt.Println("(leave blank to keep the current value)")
			reader := bufio.NewReader(os.Stdin)

			conn.Name = prompt(reader, "Name", conn.Name)
			conn.OdooURL = prompt(reader, "Odoo URL", conn.OdooURL)
			conn.OdooDB = prompt(reader, "Odoo database", conn.OdooDB)
			conn.OdooUsername = prompt(reader, "Odoo username", conn.OdooUsername)

			if newKey := prompt(reader, "API key (blank = unchanged)", ""); newKey != "" {
				conn.OdooAPIKey = newKey
			}
			conn.WebhookURL = prompt(reader, "Webhook URL", conn.WebhookURL)
			if newSecret := prompt(reader, "Webhook secret (blank = unchanged)", ""); newSecret != "" {
				conn.WebhookSecret = newSecret
			}

			interval, err := strconv.Atoi(prompt(reader, "Poll interval (seconds)", strconv.Itoa(conn.PollIntervalSeconds)))
			if err == nil && interval >= 1 {
				conn.PollIntervalSeconds = interval
			}

			enabledDefault := "n"
			if conn.Enabled {
				enabledDefault = "y"
			}
			conn.Enabled = parseBool(prompt(reader, "Enabled (y/n)", enabledDefault), conn.Enabled)

			if _, err := a.connRepo.Update(conn); err != nil {
				return err
			}
			fmt.Printf("\nConnection #%d updated.\n", id)
			return nil
		},
	}
}

func newDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a connection",
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

			reader := bufio.NewReader(os.Stdin)
			answer := prompt(reader, fmt.Sprintf("Delete '%s' (ID: %d)? (y/n)", conn.Name, id), "n")
			if !parseBool(answer, false) {
				fmt.Println("Cancelled.")
				return nil
			}

			if err := a.connRepo.Delete(id); err != nil {
				return err
			}
			fmt.Printf("Connection #%d deleted.\n", id)
			return nil
		},
	}
}
