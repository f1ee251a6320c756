package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/olexi-ai/olexi-go/internal/config"
	"github.com/olexi-ai/olexi-go/internal/session"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Manage the cached session token",
}

var tokenResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Discard the cached session token",
	Long: `Discard the cached session token. The next question authenticates from
scratch, which is the fix when the host keeps rejecting the stored token.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("loading configuration: %w", err)
		}
		store := session.NewFileStore(cfg.CacheDir)
		if err := store.Clear(); err != nil {
			return err
		}
		fmt.Println("Session token cleared.")
		return nil
	},
}

var tokenPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the token cache location",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("loading configuration: %w", err)
		}
		fmt.Println(session.NewFileStore(cfg.CacheDir).Path())
		return nil
	},
}

func init() {
	tokenCmd.AddCommand(tokenResetCmd)
	tokenCmd.AddCommand(tokenPathCmd)
	rootCmd.AddCommand(tokenCmd)
}
