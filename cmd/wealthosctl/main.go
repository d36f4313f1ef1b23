// wealthosctl is the operator CLI for a running store daemon.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/wealthos-dev/wealthos-store/pkg/record"
	"github.com/wealthos-dev/wealthos-store/pkg/sdk"
)

var (
	serverAddr string
	adminToken string
	actor      string
)

func main() {
	root := &cobra.Command{
		Use:          "wealthosctl",
		Short:        "Operate a WealthOS store daemon",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&serverAddr, "server", envOr("WEALTHOS_SERVER", "http://localhost:7080"), "daemon base URL")
	root.PersistentFlags().StringVar(&adminToken, "admin-token", os.Getenv("WEALTHOS_ADMIN_TOKEN"), "admin token for privileged commands")
	root.PersistentFlags().StringVar(&actor, "actor", "wealthosctl", "actor id recorded in the audit trail")

	root.AddCommand(
		collectionsCmd(), listCmd(), getCmd(),
		createCmd(), updateCmd(), deleteCmd(),
		auditCmd(), seedResetCmd(),
	)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func client() *sdk.Client {
	return sdk.New(serverAddr, sdk.WithAdminToken(adminToken), sdk.WithActor(actor))
}

func collectionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "collections",
		Short: "List collection names",
		RunE: func(cmd *cobra.Command, args []string) error {
			names, err := client().Collections()
			if err != nil {
				return err
			}
			return printJSON(names)
		},
	}
}

func listCmd() *cobra.Command {
	var filters []string
	cmd := &cobra.Command{
		Use:   "list <collection>",
		Short: "List records in a collection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := map[string]string{}
			for _, f := range filters {
				k, v, ok := cutEq(f)
				if !ok {
					return fmt.Errorf("filter %q is not field=value", f)
				}
				filter[k] = v
			}
			records, err := client().List(args[0], filter)
			if err != nil {
				return err
			}
			return printJSON(records)
		},
	}
	cmd.Flags().StringArrayVarP(&filters, "filter", "f", nil, "field=value equality filter (repeatable)")
	return cmd
}

func getCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <collection> <id>",
		Short: "Get one record",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := client().Get(args[0], args[1])
			if err != nil {
				return err
			}
			return printJSON(rec)
		},
	}
}

func createCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create <collection> <json>",
		Short: "Create a record from a JSON object",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			fields, err := parseRecord(args[1])
			if err != nil {
				return err
			}
			rec, err := client().Create(args[0], fields)
			if err != nil {
				return err
			}
			return printJSON(rec)
		},
	}
}

func updateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "update <collection> <id> <json-patch>",
		Short: "Merge-patch a record",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			patch, err := parseRecord(args[2])
			if err != nil {
				return err
			}
			rec, err := client().Update(args[0], args[1], patch)
			if err != nil {
				return err
			}
			return printJSON(rec)
		},
	}
}

func deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <collection> <id>",
		Short: "Delete a record",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := client().Delete(args[0], args[1]); err != nil {
				return err
			}
			fmt.Println("deleted")
			return nil
		},
	}
}

func auditCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "audit <record-id>",
		Short: "Show the audit trail for a record, oldest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			events, err := client().AuditForRecord(args[0])
			if err != nil {
				return err
			}
			return printJSON(events)
		},
	}
}

func seedResetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed-reset",
		Short: "Re-seed the store from the bundled dataset (admin only)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := client().SeedReset(); err != nil {
				return err
			}
			fmt.Println("reseeded")
			return nil
		},
	}
}

func parseRecord(s string) (record.Record, error) {
	var rec record.Record
	if err := json.Unmarshal([]byte(s), &rec); err != nil {
		return nil, fmt.Errorf("invalid JSON object: %w", err)
	}
	return rec, nil
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func cutEq(s string) (string, string, bool) {
	for i := range s {
		if s[i] == '=' {
			return s[:i], s[i+1:], true
		}
	}
	return "", "", false
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
