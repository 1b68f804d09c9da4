package cli

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"school-tables/internal/apiclient"
	"school-tables/internal/datatable"
	"school-tables/internal/tui"
)

func newResourcesCommand(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "resources",
		Short: "List the resources you may read",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := s.connect(cmd.Context())
			if err != nil {
				return err
			}

			names, err := client.Resources(cmd.Context())
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "RESOURCE\tTITLE\tDEFINED")
			for _, name := range names {
				title, defined := "-", "no"
				if def, ok := s.catalog.Table(name); ok {
					title, defined = def.Title, "yes"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", name, title, defined)
			}
			return w.Flush()
		},
	}
}

type listOptions struct {
	page     int
	pageSize int
	search   string
	sort     string
	filters  []string
	width    int
}

func newListCommand(s *session) *cobra.Command {
	opts := &listOptions{}

	cmd := &cobra.Command{
		Use:   "list <resource>",
		Short: "Print one page of a resource",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			def, err := s.table(args[0])
			if err != nil {
				return err
			}
			if err := opts.apply(&def.Config); err != nil {
				return err
			}

			client, err := s.connect(cmd.Context())
			if err != nil {
				return err
			}

			table, _, err := mount(cmd.Context(), args[0], def, client, s.settings.Policy())
			if err != nil {
				return err
			}
			defer table.Destroy()

			if opts.search != "" {
				if err := table.Search(cmd.Context(), opts.search); err != nil {
					return err
				}
			}
			if opts.page > 1 {
				if err := table.GoToPage(cmd.Context(), opts.page); err != nil {
					return err
				}
			}

			fmt.Fprintln(cmd.OutOrStdout(), def.Title)
			fmt.Fprintln(cmd.OutOrStdout(), tui.RenderText(table.View(), opts.width))
			return table.Err()
		},
	}

	f := cmd.Flags()
	f.IntVar(&opts.page, "page", 1, "page to show")
	f.IntVar(&opts.pageSize, "page-size", 0, "rows per page (default from the table definition)")
	f.StringVar(&opts.search, "search", "", "search term")
	f.StringVar(&opts.sort, "sort", "", "sort as field or field:desc")
	f.StringArrayVar(&opts.filters, "filter", nil, "filter as key=value, repeatable")
	f.IntVar(&opts.width, "width", 0, "wrap the table to this many columns")

	return cmd
}

// apply folds the list flags into the table definition before it is mounted.
func (o *listOptions) apply(cfg *datatable.Config) error {
	if o.pageSize > 0 {
		cfg.PageSize = o.pageSize
	}

	if o.sort != "" {
		field, dir, _ := strings.Cut(o.sort, ":")
		direction := datatable.Ascending
		switch strings.ToLower(dir) {
		case "", "asc":
		case "desc":
			direction = datatable.Descending
		default:
			return fmt.Errorf("invalid sort direction %q", dir)
		}
		cfg.DefaultSort = &datatable.Sort{Field: strings.TrimSpace(field), Direction: direction}
	}

	for _, raw := range o.filters {
		key, value, ok := strings.Cut(raw, "=")
		if !ok || strings.TrimSpace(key) == "" {
			return fmt.Errorf("filter %q is not key=value", raw)
		}
		if cfg.Filters == nil {
			cfg.Filters = map[string]any{}
		}
		cfg.Filters[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}

	return cfg.Validate()
}

func newBrowseCommand(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "browse <resource>",
		Short: "Browse a resource interactively",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			def, err := s.table(args[0])
			if err != nil {
				return err
			}

			client, err := s.connect(cmd.Context())
			if err != nil {
				return err
			}

			table, pane, err := mount(cmd.Context(), args[0], def, client, s.settings.Policy())
			if err != nil {
				return err
			}
			defer table.Destroy()

			model := tui.NewModel(cmd.Context(), def.Title, table, pane)
			_, err = tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(cmd.Context())).Run()
			return err
		},
	}
}

func (s *session) table(name string) (TableDef, error) {
	def, ok := s.catalog.Table(name)
	if !ok {
		return TableDef{}, fmt.Errorf("no table definition for %q (known: %s)", name, strings.Join(s.catalog.Names(), ", "))
	}
	return def, nil
}

// mount binds a table for resource to a fresh single-pane screen.
func mount(ctx context.Context, resource string, def TableDef, client *apiclient.Client, policy datatable.PermissionPolicy) (*datatable.Table, *tui.Pane, error) {
	screen := tui.NewScreen(resource)
	cfg := def.Config
	cfg.PermissionPolicy = policy

	table, err := datatable.Mount(ctx, screen, resource, cfg, client, client.Session())
	if err != nil {
		return nil, nil, err
	}

	pane, _ := screen.Pane(resource)
	return table, pane, nil
}
