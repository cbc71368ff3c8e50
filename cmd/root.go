package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "facereg",
	Short: "Face registration and recognition service",
	Long: `facereg registers student faces and recognizes them again later.

Images go through a face model server (detection and FaceNet embeddings);
embeddings are stored in PostgreSQL (pgvector) or MariaDB and compared by
cosine similarity against a configurable threshold.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}
