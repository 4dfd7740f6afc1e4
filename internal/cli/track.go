package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ogulcanaydogan/price-tracker/pkg/catalog"
	"github.com/ogulcanaydogan/price-tracker/pkg/model"
)

var trackCmd = &cobra.Command{
	Use:   "track",
	Short: "Register or update a tracked product",
	Long:  `Register a product page with its target price. An existing product with the same id is replaced.`,
	RunE:  runTrack,
}

func init() {
	rootCmd.AddCommand(trackCmd)
	trackCmd.Flags().String("id", "", "Product id")
	trackCmd.Flags().StringP("name", "n", "", "Display name (default: the id)")
	trackCmd.Flags().StringP("url", "u", "", "Product page URL")
	trackCmd.Flags().StringP("target", "t", "", "Target price, e.g. 99.99")
	_ = trackCmd.MarkFlagRequired("id")
	_ = trackCmd.MarkFlagRequired("url")
	_ = trackCmd.MarkFlagRequired("target")
}

func runTrack(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	id, _ := cmd.Flags().GetString("id")
	name, _ := cmd.Flags().GetString("name")
	url, _ := cmd.Flags().GetString("url")
	target, _ := cmd.Flags().GetString("target")

	product, err := catalog.Entry{ID: id, Name: name, URL: url, TargetPrice: target}.Product()
	if err != nil {
		return err
	}

	t, store, err := initTracker(cfg, newLogger(cfg))
	if err != nil {
		return err
	}
	defer store.Close()

	if err := t.Track(cmd.Context(), &product); err != nil {
		return err
	}

	fmt.Printf("Tracking product:\n")
	fmt.Printf("  ID:     %s\n", product.ID)
	fmt.Printf("  Name:   %s\n", product.Name)
	fmt.Printf("  URL:    %s\n", product.URL)
	fmt.Printf("  Target: %s\n", model.FormatPrice(product.TargetPrice))

	return nil
}
