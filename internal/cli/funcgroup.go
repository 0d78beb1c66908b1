package cli

import (
	"github.com/spf13/cobra"

	"github.com/rasbt/screenlamp/internal/config"
	"github.com/rasbt/screenlamp/internal/funcgroup"
	"github.com/rasbt/screenlamp/internal/geometry"
	"github.com/rasbt/screenlamp/internal/overlay"
	"github.com/rasbt/screenlamp/internal/stages"
)

func newPresenceCmd() *cobra.Command {
	var input, output, sel string
	cmd := &cobra.Command{
		Use:   "funcgroup-presence",
		Short: "Write the ids of records that contain a functional group",
		Example: "  screenlamp funcgroup-presence -i mol2_dir -o ids.txt \\\n" +
			"      -s \"((atom_type == 'S.3') | (atom_type == 'S.o2')) --> (atom_type == 'O.2')\"",
		Args: args(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := required(cmd, "input", "output", "selection"); err != nil {
				return err
			}
			_, err := stages.Presence(cmd.Context(), envFrom(cmd), input, output, sel)
			return err
		},
	}
	f := cmd.Flags()
	f.StringVarP(&input, "input", "i", "", "structure file or directory")
	f.StringVarP(&output, "output", "o", "", "id file, - for stdout")
	f.StringVarP(&sel, "selection", "s", "", "atom selection; every group must match an atom")
	return cmd
}

func newDistanceCmd() *cobra.Command {
	var input, output, sel, dist string
	cmd := &cobra.Command{
		Use:   "funcgroup-distance",
		Short: "Write the ids of records with two atom groups within a distance range",
		Example: "  screenlamp funcgroup-distance -i mol2_dir -o ids.txt -d 13-20 \\\n" +
			"      -s \"((atom_type == 'S.3') | (atom_type == 'S.o2')) --> (atom_type == 'O.2')\"",
		Args: args(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := required(cmd, "input", "output", "selection", "distance"); err != nil {
				return err
			}
			_, err := stages.Distance(cmd.Context(), envFrom(cmd), input, output, sel, dist)
			return err
		},
	}
	f := cmd.Flags()
	f.StringVarP(&input, "input", "i", "", "structure file or directory")
	f.StringVarP(&output, "output", "o", "", "id file, - for stdout")
	f.StringVarP(&sel, "selection", "s", "", "first group --> second group")
	f.StringVarP(&dist, "distance", "d", "", "inclusive range in angstrom, e.g. 13-20")
	return cmd
}

func newMatchingCmd() *cobra.Command {
	var opts funcgroup.MatchOptions
	cmd := &cobra.Command{
		Use:     "funcgroup-matching",
		Short:   "Tabulate the nearest database atom of every query atom in overlay pairs",
		Example: "  screenlamp funcgroup-matching -i overlays_sorted -o matching_tables --max-distance 1.3",
		Args:    args(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := required(cmd, "input", "output"); err != nil {
				return err
			}
			_, err := stages.Matching(cmd.Context(), envFrom(cmd), opts)
			return err
		},
	}
	f := cmd.Flags()
	f.StringVarP(&opts.Input, "input", "i", "", "directory of *_query.mol2 / *_dbase.mol2 pairs")
	f.StringVarP(&opts.Output, "output", "o", "", "directory for the atom-type and charge tables")
	f.Float64Var(&opts.MaxDistance, "max-distance", funcgroup.DefaultMaxDistance, "largest distance (angstrom) that still counts as a match")
	f.IntVar(&opts.CacheSize, "cache-size", geometry.DefaultCacheSize, "parsed query records kept in memory")
	return cmd
}

func newMatchingSelectionCmd() *cobra.Command {
	var opts funcgroup.SelectOptions
	var missing string
	cmd := &cobra.Command{
		Use:   "funcgroup-matching-selection",
		Short: "Filter matching tables by atom type and charge",
		Example: "  screenlamp funcgroup-matching-selection -i matching_tables -o selected \\\n" +
			"      --atomtype-selection \"(S1 == 'S.3')\" --charge-selection \"(S1 >= 1.0)\" --structures overlays_sorted",
		Args: args(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := required(cmd, "input", "output"); err != nil {
				return err
			}
			m, err := overlay.ParseMissingPolicy(missing)
			if err != nil {
				return err
			}
			opts.Missing = m
			_, err = stages.MatchingSelection(cmd.Context(), envFrom(cmd), opts)
			return err
		},
	}
	f := cmd.Flags()
	f.StringVarP(&opts.Input, "input", "i", "", "directory of matching tables")
	f.StringVarP(&opts.Output, "output", "o", "", "directory for the filtered tables")
	f.StringVar(&opts.AtomTypeSelection, "atomtype-selection", "", "row selection over the atom-type table")
	f.StringVar(&opts.ChargeSelection, "charge-selection", "", "row selection over the charge table")
	f.StringVar(&opts.Structures, "structures", "", "overlay pair directory; copies the selected records")
	f.StringVar(&missing, "missing", config.DefaultMissing, "unresolvable records: skip | strict")
	return cmd
}

func newSortOverlayCmd() *cobra.Command {
	var opts overlay.DirOptions
	var missing string
	cmd := &cobra.Command{
		Use:   "sort-overlay",
		Short: "Rank overlay hits by their score reports and pair them with the query conformers",
		Example: "  screenlamp sort-overlay -i rocs_overlays --query query_conformers.mol2 -o overlays_sorted \\\n" +
			"      --sort-by TanimotoCombo -s \"(TanimotoCombo >= 0.75)\"",
		Args: args(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := required(cmd, "input", "output", "query"); err != nil {
				return err
			}
			m, err := overlay.ParseMissingPolicy(missing)
			if err != nil {
				return err
			}
			opts.Link.Missing = m
			_, err = stages.SortOverlay(cmd.Context(), envFrom(cmd), opts)
			return err
		},
	}
	f := cmd.Flags()
	f.StringVarP(&opts.Input, "input", "i", "", "overlay hit file or directory, with sibling .rpt reports")
	f.StringVarP(&opts.Output, "output", "o", "", "output directory")
	f.StringVar(&opts.Link.Query, "query", "", "query conformer file")
	f.StringSliceVar(&opts.Link.SortBy, "sort-by", config.DefaultSortBy, "score columns, descending, ties by the next column")
	f.StringVarP(&opts.Link.Selection, "selection", "s", "", "row selection over the report")
	f.BoolVar(&opts.Link.IDSuffix, "id-suffix", false, "rename written query records to their conformer key")
	f.StringVar(&missing, "missing", config.DefaultMissing, "unresolvable records: skip | strict")
	return cmd
}
