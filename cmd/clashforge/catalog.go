package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/John-Robertt/clashforge/internal/groups"
	"github.com/John-Robertt/clashforge/internal/rules"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func newCatalogCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "catalog",
		Short: "Show rule categories, presets, sentinel bindings and regions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			printCatalog(cmd.OutOrStdout(), rules.DefaultCatalog(), groups.DefaultRegions())
			return nil
		},
	}
}

func printCatalog(w io.Writer, c rules.Catalog, regions []groups.Region) {
	head := color.New(color.FgCyan, color.Bold)
	name := color.New(color.FgGreen)

	head.Fprintln(w, "Categories")
	for _, cat := range c.Categories {
		name.Fprintf(w, "  %-16s", cat.Name)
		var parts []string
		if len(cat.Site) > 0 {
			parts = append(parts, "site: "+strings.Join(cat.Site, ", "))
		}
		if len(cat.IP) > 0 {
			parts = append(parts, "ip: "+strings.Join(cat.IP, ", "))
		}
		if target, ok := c.Bindings[cat.Name]; ok {
			parts = append(parts, color.YellowString("-> "+target))
		}
		fmt.Fprintln(w, strings.Join(parts, "  "))
	}

	fmt.Fprintln(w)
	head.Fprintln(w, "Presets")
	for _, p := range c.PresetNames() {
		name.Fprintf(w, "  %-16s", p)
		fmt.Fprintln(w, strings.Join(c.Presets[p], ", "))
	}

	fmt.Fprintln(w)
	head.Fprintln(w, "Regions")
	for _, r := range regions {
		name.Fprintf(w, "  %-16s", r.Key)
		fmt.Fprintln(w, r.Pattern)
	}
}
