// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/paperfeed/internal/query"
)

var categoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: "List known category codes, or tag shortcuts with --tags",
	RunE: func(cmd *cobra.Command, args []string) error {
		tags, _ := cmd.Flags().GetBool("tags")
		if tags {
			return formatTags(cmd.OutOrStdout(), query.Tags())
		}
		return formatCategories(cmd.OutOrStdout(), query.Catalog())
	},
}

func init() {
	categoriesCmd.Flags().Bool("tags", false, "list tag shortcuts accepted by --categories")
	rootCmd.AddCommand(categoriesCmd)
}

func formatCategories(w io.Writer, cats []query.Category) error {
	fmt.Fprintf(w, "%-18s  %s\n", "Code", "Name")
	fmt.Fprintln(w, strings.Repeat("-", 60))
	for _, c := range cats {
		fmt.Fprintf(w, "%-18s  %s\n", c.Code, c.Name)
	}
	return nil
}

func formatTags(w io.Writer, tags []query.Tag) error {
	fmt.Fprintf(w, "%-10s  %-18s  %s\n", "Tag", "Code", "Name")
	fmt.Fprintln(w, strings.Repeat("-", 70))
	for _, t := range tags {
		fmt.Fprintf(w, "%-10s  %-18s  %s\n", t.Tag, t.Code, query.CategoryName(t.Code))
	}
	return nil
}
