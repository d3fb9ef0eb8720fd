package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kimifish/music2db-client/internal/catalog"
	"github.com/kimifish/music2db-client/internal/metadata"
	"github.com/kimifish/music2db-client/internal/version"
)

// newShowMetadataCmd prints the record that would be sent to the server
// for a single music file.
func newShowMetadataCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show-metadata <file>",
		Short: "Show metadata that would be sent to server for a music file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			if _, err := os.Stat(path); err != nil {
				return fmt.Errorf("file %s does not exist", path)
			}

			fields, err := metadata.NewTagExtractor().Extract(path)
			if err != nil {
				return fmt.Errorf("extracting metadata: %w", err)
			}

			record := catalog.Track{
				FilePath: filepath.Base(path),
				Metadata: fields,
			}
			out, err := json.MarshalIndent(record, "", "  ")
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), "Request that would be sent to server:")
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}
}

// newSearchCmd queries the catalog server for tracks matching a tag list.
func newSearchCmd() *cobra.Command {
	var (
		limit   int
		baseURL string
	)

	cmd := &cobra.Command{
		Use:   "search <tags>",
		Short: "Search music tracks by tags (comma-separated)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := slog.New(slog.NewTextHandler(io.Discard, nil))
			client := catalog.NewClientWithBaseURL(baseURL, "", "", logger)

			tracks, err := client.SearchTracks(context.Background(), args[0], limit)
			if err != nil {
				return fmt.Errorf("connecting to server: %w", err)
			}

			if len(tracks) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No tracks found matching these tags")
				return nil
			}

			fmt.Fprintln(cmd.OutOrStdout(), "Found tracks:")
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 2, 4, 2, ' ', 0)
			for i, track := range tracks {
				fmt.Fprintf(w, "%d\t%s\n", i+1, track)
			}
			return w.Flush()
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "l", 5, "maximum number of results")
	cmd.Flags().StringVar(&baseURL, "url", "http://localhost:5005", "server URL")

	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.String())
		},
	}
}
