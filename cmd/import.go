/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"errors"
	"io"
	"log/slog"
	"os"

	"github.com/rakbuku/apiserver/config"
	"github.com/rakbuku/apiserver/internal/db"
	"github.com/rakbuku/apiserver/internal/importer"
	"github.com/rakbuku/apiserver/internal/mq"
	"github.com/rakbuku/apiserver/internal/services"
	"github.com/rakbuku/apiserver/internal/storage"
	"github.com/rakbuku/apiserver/internal/store"
	"github.com/spf13/cobra"
)

var (
	importFile   string
	importObject string
)

// importCmd represents the import command.
var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import books and reviews from a Goodreads library export",
	Long: `Import books and reviews from a Goodreads library export CSV.

The export is read either from a local file (--file) or from the configured
object-storage bucket (--object). Rated rows become reviews owned by the
synthetic archive user; unrated rows are skipped. Books are de-duplicated
by exact title, reviews are not, so re-running an import duplicates them.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if (importFile == "") == (importObject == "") {
			return errors.New("exactly one of --file or --object is required")
		}

		cfg := config.LoadConfig()
		logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
		ctx := cmd.Context()

		var src io.ReadCloser
		if importFile != "" {
			f, err := os.Open(importFile)
			if err != nil {
				return err
			}
			src = f
		} else {
			st, err := storage.NewFromConfig(ctx, cfg.Storage)
			if err != nil {
				return err
			}
			obj, err := st.Get(ctx, importObject)
			if err != nil {
				return err
			}
			logger.Info("fetching export from object storage",
				slog.String("bucket", st.Bucket()),
				slog.String("key", importObject),
			)
			src = obj
		}
		defer src.Close()

		dbConn, err := db.Open(ctx, cfg)
		if err != nil {
			return err
		}
		defer dbConn.Close()

		events, err := mq.NewFromConfig(ctx, cfg.Broker)
		if err != nil {
			return err
		}
		defer events.Close()

		imp := importer.New(
			services.NewUserService(store.NewUserRepository(dbConn)),
			services.NewBookService(store.NewBookRepository(dbConn)),
			services.NewReviewService(store.NewReviewRepository(dbConn)),
			events,
			logger,
		)

		result, err := imp.Run(ctx, src)
		if err != nil {
			return err
		}

		logger.Info("import finished",
			slog.Int("imported", result.Imported),
			slog.Int("skipped", result.Skipped),
		)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(importCmd)
	importCmd.Flags().StringVar(&importFile, "file", "", "path to a local export CSV")
	importCmd.Flags().StringVar(&importObject, "object", "", "object key of the export CSV in the configured bucket")
}
