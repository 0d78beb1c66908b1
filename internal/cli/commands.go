package cli

import (
	"github.com/spf13/cobra"

	"github.com/rasbt/screenlamp/internal/cliutil"
	"github.com/rasbt/screenlamp/internal/config"
	"github.com/rasbt/screenlamp/internal/datatable"
	"github.com/rasbt/screenlamp/internal/stages"
)

func newIDToMol2Cmd() *cobra.Command {
	var input, output, idFile string
	var whitelist bool
	cmd := &cobra.Command{
		Use:   "id-to-mol2",
		Short: "Keep (or drop) the structure records listed in an id file",
		Example: "  screenlamp id-to-mol2 -i mol2_dir --id-file ids.txt -o out_dir\n" +
			"  screenlamp id-to-mol2 -i db.mol2.gz --id-file ids.txt --whitelist=false -o rest.mol2.gz",
		Args: args(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := required(cmd, "input", "output", "id-file"); err != nil {
				return err
			}
			_, err := stages.IDToMol2(cmd.Context(), envFrom(cmd), input, output, idFile, whitelist)
			return err
		},
	}
	f := cmd.Flags()
	f.StringVarP(&input, "input", "i", "", "structure file or directory")
	f.StringVarP(&output, "output", "o", "", "output file or directory")
	f.StringVar(&idFile, "id-file", "", "file with one record id per line")
	f.BoolVar(&whitelist, "whitelist", true, "keep listed ids; false drops them")
	return cmd
}

func newMolToIDCmd() *cobra.Command {
	var input, output string
	cmd := &cobra.Command{
		Use:     "mol2-to-id",
		Short:   "Write the id of every structure record",
		Example: "  screenlamp mol2-to-id -i mol2_dir -o ids.txt",
		Args:    args(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := required(cmd, "input", "output"); err != nil {
				return err
			}
			_, err := stages.MolToID(cmd.Context(), envFrom(cmd), input, output)
			return err
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "", "structure file or directory")
	cmd.Flags().StringVarP(&output, "output", "o", "", "id file, - for stdout")
	return cmd
}

func newCountCmd() *cobra.Command {
	var input string
	cmd := &cobra.Command{
		Use:     "count",
		Short:   "Count structure records per file and in total",
		Example: "  screenlamp count -i mol2_dir",
		Args:    args(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := required(cmd, "input"); err != nil {
				return err
			}
			_, err := stages.Count(cmd.Context(), envFrom(cmd), input)
			return err
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "", "structure file or directory")
	return cmd
}

func newMergeIDsCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:     "merge-ids ID_FILE ID_FILE...",
		Short:   "Write the union of id files, first-seen order",
		Example: "  screenlamp merge-ids a.txt b.txt -o merged.txt\n  screenlamp merge-ids 'ids/*.txt' -o merged.txt",
		Args:    args(cobra.MinimumNArgs(1)),
		RunE: func(cmd *cobra.Command, a []string) error {
			if err := required(cmd, "output"); err != nil {
				return err
			}
			paths, err := cliutil.ExpandPositionals(a)
			if err != nil {
				return err
			}
			_, err = stages.MergeIDs(cmd.Context(), envFrom(cmd), paths, output)
			return err
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "merged id file, - for stdout")
	return cmd
}

func newDatatableCmd() *cobra.Command {
	var opts datatable.Options
	var sep string
	cmd := &cobra.Command{
		Use:   "datatable-to-id",
		Short: "Select ids from a delimited property table",
		Example: "  screenlamp datatable-to-id -i props.tsv -o ids.txt --id-column ZINC_ID \\\n" +
			"      -s \"(NRB <= 7) & (MWT > 200)\"",
		Args: args(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := required(cmd, "input", "output", "id-column"); err != nil {
				return err
			}
			r, err := config.ParseSeparator(sep)
			if err != nil {
				return err
			}
			opts.Separator = r
			_, err = stages.Datatable(cmd.Context(), envFrom(cmd), opts)
			return err
		},
	}
	f := cmd.Flags()
	f.StringVarP(&opts.Input, "input", "i", "", "property table (may be compressed)")
	f.StringVarP(&opts.Output, "output", "o", "", "id file, - for stdout")
	f.StringVar(&opts.IDColumn, "id-column", config.DefaultIDColumn, "column holding the record ids")
	f.StringVarP(&opts.Selection, "selection", "s", "", "row selection; empty keeps every row")
	f.StringVar(&sep, "separator", config.DefaultSeparator, `column separator (\t or "tab" for a tab)`)
	f.IntVar(&opts.ChunkRows, "chunk-rows", 0, "rows evaluated per batch (0 = default)")
	return cmd
}
