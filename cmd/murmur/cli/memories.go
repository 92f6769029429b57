package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/murmurlabs/murmur/internal/config"
	"github.com/murmurlabs/murmur/internal/memory"
	"github.com/murmurlabs/murmur/internal/observe"
)

var memoriesLimit int

var memoriesCmd = &cobra.Command{
	Use:   "memories [session-id]",
	Short: "List memories stored for a session, newest first",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		sessionID := args[0]

		obs := observe.New(os.Stderr, verbose)
		cfg, err := config.Load(configPath)
		if err != nil {
			fmt.Printf("Failed to load config: %v\n", err)
			os.Exit(1)
		}

		store, err := memory.NewSQLiteStore(cfg.Store.Path, obs.Log())
		if err != nil {
			fmt.Printf("Failed to open memory store: %v\n", err)
			os.Exit(1)
		}
		defer store.Close()

		records := store.Load(context.Background(), sessionID, memoriesLimit)
		if len(records) == 0 {
			fmt.Println("(no memories)")
			return
		}
		for _, r := range records {
			fmt.Printf("%s  %s\n", r.CreatedAt.Format(time.RFC3339), r.Text)
		}
	},
}

func init() {
	RootCmd.AddCommand(memoriesCmd)
	memoriesCmd.Flags().IntVar(&memoriesLimit, "limit", 50, "Maximum records to list")
}
