package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/TFMV/pollwatch/internal/walk"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// scanCmd represents the scan command
var scanCmd = &cobra.Command{
	Use:   "scan [path]",
	Short: "List the directories and files a watch would track",
	Long: `Traverse a tree once with the same depth, limit, symlink and ignore
settings used for watching, and print what was found.

Examples:
  pollwatch scan /mnt/share
  pollwatch scan --depth=2 --ignore="node_modules/" --ignore="*.tmp" .
  pollwatch scan --json /mnt/share`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		root := "."
		if len(args) > 0 {
			root = args[0]
		}
		return runScan(cmd.Context(), root)
	},
}

func init() {
	rootCmd.AddCommand(scanCmd)
}

type scanEntry struct {
	Path  string `json:"path"`
	IsDir bool   `json:"is_dir"`
}

func runScan(ctx context.Context, root string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	abs, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("error resolving %s: %w", root, err)
	}

	snap, err := walk.Traverse(ctx, abs, constraints(abs))
	if err != nil {
		return err
	}

	if viper.GetBool("json") {
		enc := json.NewEncoder(os.Stdout)
		for _, d := range snap.Directories {
			if err := enc.Encode(scanEntry{Path: d, IsDir: true}); err != nil {
				return err
			}
		}
		for _, f := range snap.Files {
			if err := enc.Encode(scanEntry{Path: f}); err != nil {
				return err
			}
		}
		return nil
	}

	for _, d := range snap.Directories {
		rel, _ := filepath.Rel(abs, d)
		fmt.Printf("%s%c\n", rel, filepath.Separator)
	}
	for _, f := range snap.Files {
		rel, _ := filepath.Rel(abs, f)
		fmt.Println(rel)
	}
	if !viper.GetBool("silent") {
		fmt.Fprintf(os.Stderr, "%d directories, %d files\n", len(snap.Directories), len(snap.Files))
	}
	return nil
}
