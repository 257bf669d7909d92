package cli

import (
	"context"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"survey-scoring-service/internal/app"
	"survey-scoring-service/internal/catalog"
	"survey-scoring-service/internal/config"
	"survey-scoring-service/internal/logging"
)

// NewSeedCmd stores a survey definition unless one with the same title and category exists.
func NewSeedCmd(configPath *string) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Seed the canonical survey or a YAML survey definition",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(cmd.Context(), *configPath, file)
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "YAML survey definition (defaults to the built-in exercise survey)")
	return cmd
}

func runSeed(ctx context.Context, configPath, file string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg, nil)
	if err != nil {
		return err
	}

	def := catalog.ExerciseHabits()
	if file != "" {
		if def, err = catalog.LoadDefinition(file); err != nil {
			return err
		}
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg, logger); err != nil {
			return err
		}
	}
	st, err := openStores(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer st.close()

	res, err := app.NewBootstrapper(st.surveys, logger).Seed(ctx, def)
	if err != nil {
		return err
	}
	logger.WithFields(logrus.Fields{
		"survey_id": res.Survey.ID,
		"title":     res.Survey.Title,
		"created":   res.Created,
	}).Info("Seed finished")
	return nil
}
