package cli

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/ogulcanaydogan/price-tracker/pkg/model"
)

var historyCmd = &cobra.Command{
	Use:   "history <product-id>",
	Short: "Show recorded prices for a product",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntP("limit", "n", 20, "Show only the most recent N observations (0 = all)")
	historyCmd.Flags().Duration("since", 0, "Only observations newer than this, e.g. 24h")
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	limit, _ := cmd.Flags().GetInt("limit")
	since, _ := cmd.Flags().GetDuration("since")

	store, err := initStorage(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	product, err := store.GetProduct(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	filter := model.HistoryFilter{ProductID: product.ID, Limit: limit}
	if since > 0 {
		filter.Since = time.Now().Add(-since)
	}

	history, err := store.History(cmd.Context(), filter)
	if err != nil {
		return fmt.Errorf("query history: %w", err)
	}

	fmt.Printf("=== %s (%s) ===\n", product.Name, product.ID)
	fmt.Printf("Target: %s\n", model.FormatPrice(product.TargetPrice))
	fmt.Printf("URL:    %s\n\n", product.URL)

	if len(history) == 0 {
		fmt.Println("No observations recorded.")
		return nil
	}

	low, high := history[0].Price, history[0].Price
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "  SEQ\tTIMESTAMP\tPRICE\tAT TARGET\n")
	for _, o := range history {
		low = decimal.Min(low, o.Price)
		high = decimal.Max(high, o.Price)
		atTarget := ""
		if o.Price.LessThanOrEqual(product.TargetPrice) {
			atTarget = "yes"
		}
		fmt.Fprintf(w, "  %d\t%s\t%s\t%s\n",
			o.Seq, o.ObservedAt.Local().Format("2006-01-02 15:04:05"), model.FormatPrice(o.Price), atTarget)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Printf("\nObservations: %d  Low: %s  High: %s\n", len(history), model.FormatPrice(low), model.FormatPrice(high))
	return nil
}
