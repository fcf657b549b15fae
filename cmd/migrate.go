package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jmehdipour/engage-dispatch/internal/db"
	"github.com/jmehdipour/engage-dispatch/internal/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations (dev: DROP & CREATE tables)",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		sqlDB, err := db.OpenMySQL(cfg.MySQL)
		if err != nil {
			return fmt.Errorf("open db: %w", err)
		}
		defer sqlDB.Close()

		files, err := filepath.Glob(filepath.Join("migrations", "*.sql"))
		if err != nil {
			return fmt.Errorf("list migrations: %w", err)
		}
		if len(files) == 0 {
			return fmt.Errorf("no migrations found under migrations/")
		}

		for _, path := range files {
			sqlBytes, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("read migration file %s: %w", path, err)
			}
			if _, err := sqlDB.Exec(string(sqlBytes)); err != nil {
				return fmt.Errorf("exec migration %s: %w", path, err)
			}
			logger.Log.Info("migration applied", zap.String("file", path))
		}

		fmt.Fprintln(cmd.OutOrStdout(), ">> Migration complete")
		return nil
	},
}
