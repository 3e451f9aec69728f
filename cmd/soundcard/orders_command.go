package main

import (
	"fmt"
	"strconv"

	"github.com/exact3design/soundcard/internal/app"
	"github.com/exact3design/soundcard/internal/config"
	"github.com/exact3design/soundcard/internal/store"
	"github.com/spf13/cobra"
)

func newOrdersCommand(appCfg func() config.AppConfig) *cobra.Command {
	ordersCmd := &cobra.Command{
		Use:   "orders",
		Short: "Inspect orders",
	}
	ordersCmd.AddCommand(newOrdersListCommand(appCfg))
	return ordersCmd
}

func newOrdersListCommand(appCfg func() config.AppConfig) *cobra.Command {
	var filter store.OrderFilter

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent orders",
		RunE: func(cmd *cobra.Command, args []string) error {
			orders, err := app.ListOrders(cmd.Context(), appCfg(), filter)
			if err != nil {
				return err
			}
			if len(orders) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No orders")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderOrders(orders))
			return nil
		},
	}

	cmd.Flags().StringVar(&filter.Email, "email", "", "Filter by buyer email substring")
	cmd.Flags().StringVar(&filter.Country, "country", "", "Filter by ship-to country code")
	cmd.Flags().StringVar(&filter.Source, "source", "", "Filter by order source")
	cmd.Flags().IntVar(&filter.Limit, "limit", 50, "Maximum orders to show")
	return cmd
}

func renderOrders(orders []store.OrderSummary) string {
	headers := []string{"ID", "Created", "Source", "Buyer", "Email", "Cards", "Claimed", "Pack"}
	rows := make([][]string, 0, len(orders))
	for _, o := range orders {
		pack := "-"
		if o.Order.EmailSentAt != nil {
			pack = o.Order.EmailSentAt.Local().Format("2006-01-02 15:04")
		}
		rows = append(rows, []string{
			o.Order.ID,
			o.Order.CreatedAt.Local().Format("2006-01-02 15:04"),
			o.Order.Source,
			o.Order.BuyerName,
			o.Order.Email,
			strconv.Itoa(o.CardCount),
			strconv.Itoa(o.ClaimedCount),
			pack,
		})
	}
	return renderTable(headers, rows, []columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft})
}
