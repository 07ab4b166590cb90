package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tinoosan/shopledger/internal/service/account"
	"github.com/tinoosan/shopledger/internal/storage"
)

func newAccountsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "accounts",
		Short: "Manage the chart of accounts",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "seed",
		Short: "Create the standard retail chart of accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap(cmd.Context(), cmd.ErrOrStderr(), false)
			if err != nil {
				return err
			}
			defer a.Close()
			n, err := account.New(a.store, a.roles).SeedDefaults(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %d accounts\n", n)
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "Print active accounts as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap(cmd.Context(), cmd.ErrOrStderr(), true)
			if err != nil {
				return err
			}
			defer a.Close()
			list, err := account.New(a.store, a.roles).List(cmd.Context(), storage.AccountFilter{})
			if err != nil {
				return err
			}
			type row struct {
				Code    string `json:"code"`
				Name    string `json:"name"`
				Type    string `json:"type"`
				Subtype string `json:"subtype,omitempty"`
			}
			out := make([]row, 0, len(list))
			for _, acc := range list {
				out = append(out, row{Code: acc.Code, Name: acc.Name, Type: string(acc.Type), Subtype: acc.Subtype})
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	})
	return cmd
}
