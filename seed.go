package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/preceptorhub/preceptor-engine/pkg/database"
	"github.com/preceptorhub/preceptor-engine/pkg/seed"
)

var seedCfg = seed.DefaultConfig()

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Replace the directory with generated demo data",
	Long: `seed clears every directory table (the waitlist is kept) and fills them
with generated schools, sites, programs, preceptors and reviews.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := seedCfg.Validate(); err != nil {
			return fmt.Errorf("invalid seed options: %w", err)
		}
		return withSeeder(cmd.Context(), func(ctx context.Context, s *seed.Seeder) error {
			counts, err := s.Seed(ctx, seedCfg)
			if err != nil {
				return err
			}
			logger.Info("Seed complete",
				zap.Int("program_types", counts.ProgramTypes),
				zap.Int("schools", counts.Schools),
				zap.Int("sites", counts.Sites),
				zap.Int("school_programs", counts.SchoolPrograms),
				zap.Int("preceptors", counts.Preceptors),
				zap.Int("affiliations", counts.Affiliations),
				zap.Int("reviews", counts.Reviews))
			return nil
		})
	},
}

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete all directory data, keeping the waitlist",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSeeder(cmd.Context(), func(ctx context.Context, s *seed.Seeder) error {
			return s.Clear(ctx)
		})
	},
}

func init() {
	f := seedCmd.Flags()
	f.IntVar(&seedCfg.Preceptors, "preceptors", seedCfg.Preceptors, "Number of preceptors to generate")
	f.IntVar(&seedCfg.Schools, "schools", seedCfg.Schools, "Number of schools (capped at the catalog size)")
	f.IntVar(&seedCfg.Sites, "sites", seedCfg.Sites, "Number of practice sites (capped at the catalog size)")
	f.IntVar(&seedCfg.MinReviews, "min-reviews", seedCfg.MinReviews, "Minimum reviews per preceptor")
	f.IntVar(&seedCfg.MaxReviews, "max-reviews", seedCfg.MaxReviews, "Maximum reviews per preceptor")
	f.Float64Var(&seedCfg.Positive, "positive", seedCfg.Positive, "Share of favorable reviews")
	f.Float64Var(&seedCfg.Neutral, "neutral", seedCfg.Neutral, "Share of middling reviews")
	f.Int64Var(&seedCfg.RandSeed, "rand-seed", 0, "Seed for reproducible output (0 uses the clock)")

	rootCmd.AddCommand(seedCmd, clearCmd)
}

// withSeeder connects, opens one scoped connection and hands fn a ready Seeder.
func withSeeder(ctx context.Context, fn func(context.Context, *seed.Seeder) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	catalog, err := seed.LoadCatalog()
	if err != nil {
		return err
	}

	db, err := openDB(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	scopedCtx, cleanup, err := database.NewScopeFunc(db)(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire connection: %w", err)
	}
	defer cleanup()

	return fn(scopedCtx, seed.NewSeeder(seed.NewRepositories(), catalog, logger))
}
