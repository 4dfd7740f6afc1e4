package cli

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ogulcanaydogan/price-tracker/pkg/model"
	"github.com/ogulcanaydogan/price-tracker/pkg/storage"
)

var productsCmd = &cobra.Command{
	Use:   "products",
	Short: "Manage tracked products",
}

var productsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tracked products with their latest price",
	RunE:  runProductsList,
}

func init() {
	rootCmd.AddCommand(productsCmd)
	productsCmd.AddCommand(productsListCmd)
}

func runProductsList(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := initStorage(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	products, err := store.ListProducts(cmd.Context())
	if err != nil {
		return fmt.Errorf("list products: %w", err)
	}

	if len(products) == 0 {
		fmt.Println("No products tracked.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "ID\tNAME\tTARGET\tLATEST\tOBSERVED\tURL\n")
	for _, p := range products {
		latest, observed := "-", "-"
		obs, err := store.LatestObservation(cmd.Context(), p.ID)
		switch {
		case err == nil:
			latest = model.FormatPrice(obs.Price)
			observed = obs.ObservedAt.Local().Format("2006-01-02 15:04:05")
		case !errors.Is(err, storage.ErrNotFound):
			return err
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			p.ID, p.Name, model.FormatPrice(p.TargetPrice), latest, observed, p.URL)
	}
	return w.Flush()
}
