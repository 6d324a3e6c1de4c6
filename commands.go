// Copyright © 2025 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/rajkumarsaambientai/supabase-proxy-api/pkg/entity"
	"github.com/rajkumarsaambientai/supabase-proxy-api/pkg/filter"
)

func newTranslateCmd() *cobra.Command {
	var (
		opts       filter.Options
		entityFile string
	)
	cmd := &cobra.Command{
		Use:   "translate <entity> [key=value...]",
		Short: "Print the backing-store query for a set of request parameters",
		Long: `Translate request parameters into the PostgREST filter query the proxy
would send, without contacting the backing store.

Example:
  supabase-proxy translate clari-calls search=renewal date_from=2024-01-01 limit=50`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if entityFile == "" {
				entityFile = os.Getenv("PROXY_ENTITY_FILE")
			}
			catalog, err := loadCatalog(entityFile)
			if err != nil {
				return err
			}
			line, err := translate(catalog, args[0], args[1:], opts)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), line)
			return nil
		},
	}
	cmd.Flags().IntVar(&opts.MaxRecords, "max-records", 10, "Maximum records per response")
	cmd.Flags().BoolVar(&opts.DefaultOrdering, "default-ordering", false, "Apply the entity default order when order_by is absent")
	cmd.Flags().BoolVar(&opts.Escape, "escape", false, "Escape LIKE metacharacters in contains filters")
	cmd.Flags().StringVar(&entityFile, "entities", "", "Entity overrides file (default $PROXY_ENTITY_FILE)")
	return cmd
}

// translate renders /rest/v1/{resource}?{query} for one entity.
func translate(catalog *entity.Catalog, tag string, pairs []string, opts filter.Options) (string, error) {
	e, ok := catalog.Lookup(tag)
	if !ok {
		return "", fmt.Errorf("unknown entity %q (known: %s)", tag, strings.Join(catalog.Kinds(), ", "))
	}
	params := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, v, found := strings.Cut(p, "=")
		if !found || k == "" {
			return "", fmt.Errorf("parameter %q must be key=value", p)
		}
		params[k] = v
	}
	if opts.MaxRecords < 1 {
		return "", fmt.Errorf("max records must be positive, got %d", opts.MaxRecords)
	}
	return "/rest/v1/" + e.Resource + "?" + filter.Translate(e, params, opts).String(), nil
}

func newEntitiesCmd() *cobra.Command {
	var (
		entityFile string
		profile    string
	)
	cmd := &cobra.Command{
		Use:   "entities",
		Short: "List entity routes, filters and field limits",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if entityFile == "" {
				entityFile = os.Getenv("PROXY_ENTITY_FILE")
			}
			p, err := entity.ParseProfile(profile)
			if err != nil {
				return err
			}
			catalog, err := loadCatalog(entityFile)
			if err != nil {
				return err
			}
			return printEntities(cmd.OutOrStdout(), catalog, p)
		},
	}
	cmd.Flags().StringVar(&entityFile, "entities", "", "Entity overrides file (default $PROXY_ENTITY_FILE)")
	cmd.Flags().StringVar(&profile, "profile", string(entity.Compact), "Truncation profile to show (compact, detailed)")
	return cmd
}

func printEntities(out io.Writer, catalog *entity.Catalog, p entity.Profile) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ROUTE\tRESOURCE\tFILTERS\tDEFAULT ORDER\tFIELDS")
	for _, e := range catalog.All() {
		filters := make([]string, 0, len(e.Filters))
		for _, f := range e.Filters {
			filters = append(filters, fmt.Sprintf("%s→%s.%s", f.Param, f.Column, f.Op))
		}
		fields := make([]string, 0, len(e.Fields(p)))
		for _, f := range e.Fields(p) {
			if f.MaxLen > 0 {
				fields = append(fields, fmt.Sprintf("%s(%d)", f.Name, f.MaxLen))
			} else {
				fields = append(fields, f.Name)
			}
		}
		fmt.Fprintf(tw, "/api/%s\t%s\t%s\t%s.%s\t%s\n",
			e.Slug, e.Resource, strings.Join(filters, ","), e.DefaultOrder.Column, e.DefaultOrder.Direction, strings.Join(fields, ","))
	}
	return tw.Flush()
}
