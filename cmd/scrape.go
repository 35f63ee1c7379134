package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/laborsuche/laborsuche-cli/internal/pipeline"
	anthropicpkg "github.com/laborsuche/laborsuche-cli/pkg/anthropic"
	"github.com/laborsuche/laborsuche-cli/pkg/apify"
)

var (
	scrapeCity    string
	scrapeCountry string
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Discover and validate providers for a city",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if cfg.Apify.Token == "" {
			return eris.New("apify token is required (LABORSUCHE_APIFY_TOKEN)")
		}
		if cfg.Anthropic.Key == "" {
			return eris.New("anthropic key is required (LABORSUCHE_ANTHROPIC_KEY)")
		}

		apifyClient := apify.NewClient(cfg.Apify.Token, apify.WithBaseURL(cfg.Apify.BaseURL))
		aiClient := anthropicpkg.NewClient(cfg.Anthropic.Key)

		p := pipeline.New(cfg, apifyClient, aiClient)
		if err := p.Run(ctx, scrapeCity, scrapeCountry); err != nil {
			return eris.Wrap(err, "scrape run")
		}

		zap.L().Info("scrape complete",
			zap.String("city", scrapeCity),
			zap.String("country", scrapeCountry),
			zap.String("data_dir", cfg.Data.Dir),
		)
		return nil
	},
}

func init() {
	scrapeCmd.Flags().StringVar(&scrapeCity, "city", "", "city to scrape (required)")
	scrapeCmd.Flags().StringVar(&scrapeCountry, "country", "de", "ISO country code (de, at, ch)")
	_ = scrapeCmd.MarkFlagRequired("city")
	rootCmd.AddCommand(scrapeCmd)
}
