// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/paperfeed/internal/prefs"
	"github.com/pdiddy/paperfeed/pkg/types"
)

func init() {
	for _, name := range prefs.Names() {
		rootCmd.AddCommand(newCollectionCmd(name))
	}
}

// newCollectionCmd builds the command tree for one preference collection
// (saved or liked). Both collections share the same subcommands.
func newCollectionCmd(name string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   name,
		Short: fmt.Sprintf("List, remove or export %s papers", name),
		Long: fmt.Sprintf(`Lists the papers in the %s collection in the order they were added.
Papers are added from the browse command with "%s <i>".`, name, name[:1]),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCollectionList(cmd.OutOrStdout(), name)
		},
	}

	removeCmd := &cobra.Command{
		Use:   "remove <id>",
		Short: fmt.Sprintf("Remove a paper from %s by full or listed id", name),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCollectionRemove(cmd.OutOrStdout(), name, args[0])
		},
	}

	exportCmd := &cobra.Command{
		Use:   "export",
		Short: fmt.Sprintf("Export %s papers to YAML or JSON", name),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, _ := cmd.Flags().GetString("format")
			output, _ := cmd.Flags().GetString("output")
			return runCollectionExport(cmd.OutOrStdout(), name, format, output)
		},
	}
	exportCmd.Flags().String("format", "yaml", "export format: yaml or json")
	exportCmd.Flags().StringP("output", "o", "", "write to a file instead of stdout")

	cmd.AddCommand(removeCmd, exportCmd)
	return cmd
}

func runCollectionList(w io.Writer, name string) error {
	store, closeStore, err := openPrefs(context.Background(), appConfig.Preferences.DBPath)
	if err != nil {
		return err
	}
	defer closeStore()

	papers, err := store.List(name)
	if err != nil {
		return err
	}
	return formatCollection(w, name, papers)
}

func formatCollection(w io.Writer, name string, papers []types.Paper) error {
	if len(papers) == 0 {
		fmt.Fprintf(w, "No %s papers.\n", name)
		return nil
	}

	fmt.Fprintf(w, "%-4s  %-24s  %-50s  %-10s  %s\n", "#", "ID", "Title", "Published", "Categories")
	fmt.Fprintln(w, strings.Repeat("-", 110))

	for i, p := range papers {
		published := ""
		if p.Published != nil {
			published = p.Published.Format("2006-01-02")
		}
		fmt.Fprintf(w, "%-4d  %-24s  %-50s  %-10s  %s\n",
			i+1, shortID(p.ID), truncate(p.Title, 50), published, strings.Join(p.Categories, ", "))
	}

	fmt.Fprintf(w, "\n%d %s papers\n", len(papers), name)
	return nil
}

// shortID drops the abstract URL prefix from an arXiv entry ID, leaving
// e.g. "2301.07041v1". Other IDs are returned unchanged.
func shortID(id string) string {
	if i := strings.LastIndex(id, "/abs/"); i >= 0 {
		return id[i+len("/abs/"):]
	}
	return id
}

// truncate shortens s to at most n runes, marking the cut with "...".
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

// resolveID maps a full or short ID to the stored paper ID.
func resolveID(papers []types.Paper, id string) string {
	for _, p := range papers {
		if p.ID == id {
			return id
		}
	}
	for _, p := range papers {
		if shortID(p.ID) == id {
			return p.ID
		}
	}
	return id
}

func runCollectionRemove(w io.Writer, name, id string) error {
	ctx := context.Background()
	store, closeStore, err := openPrefs(ctx, appConfig.Preferences.DBPath)
	if err != nil {
		return err
	}
	defer closeStore()

	papers, err := store.List(name)
	if err != nil {
		return err
	}
	removed, err := store.Remove(ctx, name, resolveID(papers, id))
	if err != nil {
		return err
	}
	if !removed {
		return fmt.Errorf("paper %q is not in %s", id, name)
	}
	fmt.Fprintf(w, "Removed %s from %s\n", id, name)
	return nil
}

func runCollectionExport(w io.Writer, name, format, output string) error {
	store, closeStore, err := openPrefs(context.Background(), appConfig.Preferences.DBPath)
	if err != nil {
		return err
	}
	defer closeStore()

	var export func(io.Writer, string) error
	switch format {
	case "yaml", "":
		export = store.ExportYAML
	case "json":
		export = store.ExportJSON
	default:
		return fmt.Errorf("unsupported format %q: use yaml or json", format)
	}

	if output == "" {
		return export(w, name)
	}

	f, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("creating %s: %w", output, err)
	}
	if err := export(f, name); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Fprintf(w, "Exported %s to %s\n", name, output)
	return nil
}
