// Command screenvec is the operator CLI for the curation pipeline.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"screenvec/internal/config"
	"screenvec/internal/container"
	"screenvec/internal/storage"
)

var (
	deviceFlag string
	rootFlag   string
)

func main() {
	root := &cobra.Command{
		Use:           "screenvec",
		Short:         "Locate, vectorize and curate embedded display screenshots",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&deviceFlag, "device", "", "device name (defaults to DEVICE)")
	root.PersistentFlags().StringVar(&rootFlag, "root", "", "data root (defaults to SCREENVEC_ROOT)")

	root.AddCommand(newProcessCmd(), newManifestCmd(), newFetchCmd(), newPullCmd())

	if err := root.Execute(); err != nil {
		color.Red("error: %v", err)
		os.Exit(1)
	}
}

// loadConfig resolves configuration from the environment with flag
// overrides applied first.
func loadConfig() (*config.Config, error) {
	if deviceFlag != "" {
		os.Setenv("DEVICE", deviceFlag)
	}
	if rootFlag != "" {
		os.Setenv("SCREENVEC_ROOT", rootFlag)
	}
	return config.LoadFromEnv()
}

func newProcessCmd() *cobra.Command {
	var moveRejected bool

	cmd := &cobra.Command{
		Use:   "process",
		Short: "Ingest every scan in incoming/ and refresh the manifest",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("move-rejected") {
				cfg.MoveRejected = moveRejected
			}
			c, err := container.NewContainer(cfg)
			if err != nil {
				return err
			}

			results, err := c.Workflow().ProcessBatch()
			if err != nil {
				return err
			}

			green := color.New(color.FgGreen)
			red := color.New(color.FgRed)
			yellow := color.New(color.FgYellow)

			accepted := 0
			for _, r := range results {
				switch {
				case r.Err != nil:
					yellow.Printf("! %s: %v\n", r.File, r.Err)
				case r.Accepted:
					accepted++
					green.Printf("✓ %s -> %s (%.2f)\n", r.File, r.Slug, r.Confidence)
				default:
					red.Printf("✗ %s: %s (%.2f)\n", r.File, strings.Join(r.Reasons, ", "), r.Confidence)
				}
			}

			if err := c.Workflow().WriteManifest(); err != nil {
				return err
			}
			fmt.Printf("%d/%d accepted\n", accepted, len(results))
			return nil
		},
	}
	cmd.Flags().BoolVar(&moveRejected, "move-rejected", true, "relocate non-qualifying scans to rejected/")
	return cmd
}

func newManifestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "manifest",
		Short: "Regenerate index.json from the state document",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			c, err := container.NewContainer(cfg)
			if err != nil {
				return err
			}
			if err := c.Workflow().WriteManifest(); err != nil {
				return err
			}
			fmt.Println(cfg.Paths().ManifestPath)
			return nil
		},
	}
}

func newFetchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fetch URL...",
		Short: "Download remote scans into incoming/",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			incoming := cfg.Paths().IncomingDir
			fetcher := storage.NewHTTPFetcher()

			for _, rawURL := range args {
				name, err := fetcher.Download(cmd.Context(), rawURL, incoming)
				if err != nil {
					return fmt.Errorf("%s: %w", rawURL, err)
				}
				color.Green("✓ %s", name)
			}
			return nil
		},
	}
}

func newPullCmd() *cobra.Command {
	var containerName string
	var prefix string

	cmd := &cobra.Command{
		Use:   "pull",
		Short: "Sync scans from an Azure Blob container into incoming/",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.AzureAccount == "" || cfg.AzureKey == "" {
				return fmt.Errorf("AZURE_STORAGE_ACCOUNT and AZURE_STORAGE_KEY must be set")
			}

			puller, err := storage.NewAzurePuller(cfg.AzureAccount, cfg.AzureKey)
			if err != nil {
				return err
			}
			names, err := puller.Pull(cmd.Context(), containerName, prefix, cfg.Paths().IncomingDir)
			for _, name := range names {
				color.Green("✓ %s", name)
			}
			if err != nil {
				return err
			}
			fmt.Printf("%d blobs pulled\n", len(names))
			return nil
		},
	}
	cmd.Flags().StringVar(&containerName, "container", "", "blob container name")
	cmd.Flags().StringVar(&prefix, "prefix", "", "blob name prefix filter")
	cmd.MarkFlagRequired("container")
	return cmd
}
