// Package cli implements plannerctl, the offline tool for exported
// project files.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"cable-planner/internal/planner/export"
	"cable-planner/internal/planner/geometry"
	"cable-planner/internal/planner/imageio"
	"cable-planner/internal/planner/models"
	"cable-planner/internal/planner/project"
	"cable-planner/internal/planner/registry"
	"cable-planner/internal/planner/render"

	"github.com/spf13/cobra"
)

// NewRootCmd builds the plannerctl command tree.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "plannerctl",
		Short: "Inspect and convert cable planner project files",
		Long: `plannerctl works on project files exported by the cable planner.

It can validate a file, print the LAN cable summary, write the CSV
cable list, render the layout to SVG or PNG and apply the stock
length rounding rule.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newSummaryCmd())
	root.AddCommand(newCSVCmd())
	root.AddCommand(newRenderCmd())
	root.AddCommand(newValidateCmd())
	root.AddCommand(newRoundCmd())
	return root
}

// Execute runs plannerctl with os.Args.
func Execute() error {
	return NewRootCmd().Execute()
}

// loadProject reads path and imports it into a fresh project.
func loadProject(ctx context.Context, path string) (*project.Project, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := imageio.ReadProjectFile(ctx, f)
	if err != nil {
		return nil, err
	}
	p := project.New()
	if err := p.Import(data); err != nil {
		return nil, err
	}
	return p, nil
}

// output opens path for writing, or returns stdout for "" and "-".
func output(cmd *cobra.Command, path string) (io.Writer, func() error, error) {
	if path == "" || path == "-" {
		return cmd.OutOrStdout(), func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, err
	}
	return f, f.Close, nil
}

// ============================================================
// summary
// ============================================================

func newSummaryCmd() *cobra.Command {
	var (
		asJSON     bool
		margin     float64
		noRounding bool
	)

	cmd := &cobra.Command{
		Use:   "summary <file>",
		Short: "Print LAN cable counts per length",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := loadProject(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			var patch models.SettingsPatch
			if cmd.Flags().Changed("margin") {
				patch.MarginRate = &margin
			}
			if noRounding {
				off := false
				patch.RoundingMode = &off
			}
			if err := p.UpdateSettings(patch); err != nil {
				return err
			}

			s := p.Summary()
			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(s)
			}

			fmt.Fprintf(out, "%-12s %s\n", "Length", "Quantity")
			for _, row := range s.Rows {
				fmt.Fprintf(out, "%-12s %d\n", row.Key+"m", row.Quantity)
			}
			fmt.Fprintf(out, "\nTotal LAN length: %sm\n", registry.FormatLength(s.TotalLength))
			fmt.Fprintf(out, "Cables: %d (detailed %d, simple %d)\n", s.Stats.Total, s.Stats.Detailed, s.Stats.Simple)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the summary as JSON")
	cmd.Flags().Float64Var(&margin, "margin", models.DefaultMarginRate, "Override the margin rate in percent")
	cmd.Flags().BoolVar(&noRounding, "no-rounding", false, "Count with-margin lengths instead of stock lengths")
	return cmd
}

// ============================================================
// csv
// ============================================================

func newCSVCmd() *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "csv <file>",
		Short: "Write the cable list and summary as CSV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := loadProject(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			w, done, err := output(cmd, out)
			if err != nil {
				return err
			}
			if err := export.WriteCSV(w, export.Report{
				Cables:  p.Cables().All(),
				Devices: p.Devices().All(),
				Summary: p.Cables().SortedSummary(),
				Stats:   p.Cables().Stats(),
			}); err != nil {
				done()
				return err
			}
			return done()
		},
	}

	cmd.Flags().StringVarP(&out, "output", "o", "", "Output file (default stdout)")
	return cmd
}

// ============================================================
// render
// ============================================================

func newRenderCmd() *cobra.Command {
	var (
		out    string
		format string
	)

	cmd := &cobra.Command{
		Use:   "render <file>",
		Short: "Render the layout as SVG or PNG",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "svg" && format != "png" {
				return fmt.Errorf("unknown format %q (want svg or png)", format)
			}
			p, err := loadProject(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			layout := render.FromProject(p)

			w, done, err := output(cmd, out)
			if err != nil {
				return err
			}
			if format == "png" {
				err = render.NewPNGRenderer().Render(w, layout)
			} else {
				var svg string
				if svg, err = render.NewSVGRenderer().Render(layout); err == nil {
					_, err = io.WriteString(w, svg)
				}
			}
			if err != nil {
				done()
				return err
			}
			return done()
		},
	}

	cmd.Flags().StringVarP(&out, "output", "o", "", "Output file (default stdout)")
	cmd.Flags().StringVarP(&format, "format", "f", "svg", "Output format: svg or png")
	return cmd
}

// ============================================================
// validate
// ============================================================

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file>",
		Short: "Check that a project file can be imported",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := loadProject(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			_, hasImage := p.Image()
			fmt.Fprintf(cmd.OutOrStdout(), "%s: ok (devices %d, cables %d, scale %t, image %t)\n",
				args[0], p.Devices().Len(), p.Cables().Len(), p.HasScale(), hasImage)
			return nil
		},
	}
}

// ============================================================
// round
// ============================================================

func newRoundCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "round <meters>",
		Short: "Round a length up to the next stock cable length",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := strconv.ParseFloat(args[0], 64)
			if err != nil {
				return fmt.Errorf("invalid length %q", args[0])
			}
			fmt.Fprintln(cmd.OutOrStdout(), registry.FormatLength(geometry.RoundLength(v)))
			return nil
		},
	}
}
