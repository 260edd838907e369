package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/agentic-research/rollcall/internal/catalog"
	"github.com/agentic-research/rollcall/internal/cohort"
	"github.com/agentic-research/rollcall/internal/directory"
)

var (
	searchFlags struct {
		batches     []string
		departments []string
		programs    []string
		halls       []string
		genders     []string
		bloodGroups []string
		states      []string
		page        int
		pageSize    int
	}
	jsonOutput bool
)

func init() {
	f := searchCmd.Flags()
	f.StringSliceVar(&searchFlags.batches, "batch", nil, `Cohorts, as years ("2020") or labels ("Y20")`)
	f.StringSliceVar(&searchFlags.departments, "dept", nil, "Departments")
	f.StringSliceVar(&searchFlags.programs, "program", nil, "Programs")
	f.StringSliceVar(&searchFlags.halls, "hall", nil, "Halls of residence")
	f.StringSliceVar(&searchFlags.genders, "gender", nil, "Genders")
	f.StringSliceVar(&searchFlags.bloodGroups, "blood-group", nil, "Blood groups")
	f.StringSliceVar(&searchFlags.states, "state", nil, "Home states")
	f.IntVar(&searchFlags.page, "page", 1, "Page number")
	f.IntVar(&searchFlags.pageSize, "page-size", -1, "Results per page, 0 for all (default from config)")

	for _, c := range []*cobra.Command{searchCmd, facetsCmd, relativesCmd} {
		c.Flags().BoolVar(&jsonOutput, "json", false, "Print JSON")
		rootCmd.AddCommand(c)
	}
}

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search the directory",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		c := directory.Criteria{
			Departments: searchFlags.departments,
			Programs:    searchFlags.programs,
			Halls:       searchFlags.halls,
			Genders:     searchFlags.genders,
			BloodGroups: searchFlags.bloodGroups,
			States:      searchFlags.states,
		}
		if len(args) == 1 {
			c.Query = args[0]
		}
		for _, b := range searchFlags.batches {
			y, err := cohort.ParseYear(b)
			if err != nil {
				return fmt.Errorf("--batch: %w", err)
			}
			c.BatchYears = append(c.BatchYears, y)
		}
		return runSearch(cmd.Context(), a.catalog, cmd.OutOrStdout(), c, searchFlags.page, searchFlags.pageSize, jsonOutput)
	},
}

var facetsCmd = &cobra.Command{
	Use:   "facets",
	Short: "List the distinct values of every filter",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		return runFacets(cmd.Context(), a.catalog, cmd.OutOrStdout(), jsonOutput)
	},
}

var relativesCmd = &cobra.Command{
	Use:   "relatives <roll>",
	Short: "Show a student with their introducer and introducees",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		return runRelatives(cmd.Context(), a.catalog, cmd.OutOrStdout(), args[0], jsonOutput)
	},
}

func runSearch(ctx context.Context, svc *catalog.Service, out io.Writer, c directory.Criteria, page, pageSize int, asJSON bool) error {
	res, err := svc.Search(ctx, c, page, pageSize)
	if err != nil {
		return err
	}
	if asJSON {
		return writeJSON(out, res)
	}
	if err := writeEntities(out, res.Students); err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "\npage %d of %d, %d matching\n", res.Number, res.TotalPages, res.Total)
	return err
}

func runFacets(ctx context.Context, svc *catalog.Service, out io.Writer, asJSON bool) error {
	f, err := svc.Facets(ctx)
	if err != nil {
		return err
	}
	if asJSON {
		return writeJSON(out, f)
	}
	batches := make([]string, len(f.BatchYears))
	for i, b := range f.BatchYears {
		batches[i] = b.Label
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for _, row := range []struct {
		name   string
		values []string
	}{
		{"batch", batches},
		{"dept", f.Departments},
		{"program", f.Programs},
		{"hall", f.Halls},
		{"gender", f.Genders},
		{"blood-group", f.BloodGroups},
		{"state", f.States},
	} {
		fmt.Fprintf(tw, "%s\t%s\n", row.name, strings.Join(row.values, ", "))
	}
	return tw.Flush()
}

func runRelatives(ctx context.Context, svc *catalog.Service, out io.Writer, roll string, asJSON bool) error {
	p, err := svc.Student(ctx, roll)
	if err != nil {
		return err
	}
	if asJSON {
		return writeJSON(out, p)
	}
	fmt.Fprintf(out, "%s  %s  %s %s %s\n", p.Student.Roll, p.Student.Name,
		p.Student.BatchLabel(), p.Student.Department, p.Student.Program)
	if p.SG != nil {
		fmt.Fprintf(out, "\nsg:\n  %s  %s\n", p.SG.Roll, p.SG.Name)
	}
	if len(p.Children) > 0 {
		fmt.Fprintln(out, "\nchildren:")
		for _, c := range p.Children {
			fmt.Fprintf(out, "  %s  %s\n", c.Roll, c.Name)
		}
	}
	return nil
}

func writeEntities(out io.Writer, entities []directory.Entity) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ROLL\tNAME\tBATCH\tDEPT\tPROGRAM\tHALL")
	for _, e := range entities {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			e.Roll, e.Name, e.BatchLabel(), dash(e.Department), dash(e.Program), dash(e.Hall))
	}
	return tw.Flush()
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
