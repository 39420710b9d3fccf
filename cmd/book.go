// =============================================================================
// SDSVG Book - Book Commands
// =============================================================================
//
// Read-only commands over the stored member book plus the sample workbook.
//
// COMMAND USAGE:
//   sdsvg-book list
//   sdsvg-book export [--out book.xml]
//   sdsvg-book sample [--out sample.xlsx]
//
// With no --out, export and sample write to stdout.
//
// =============================================================================

package cmd

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/sdsvg/sdsvg-book/internal/types"
	"github.com/sdsvg/sdsvg-book/internal/xlsxparser"
	"github.com/sdsvg/sdsvg-book/internal/xmlwriter"
	"github.com/sdsvg/sdsvg-book/pkg/utils"
	"github.com/spf13/cobra"
)

// outPath is the --out target of export and sample.
var outPath string

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Print the stored member book",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := loadRuntime(cmd.Context(), true)
		if err != nil {
			return err
		}
		defer rt.Close()

		groups, err := rt.repo.LoadAll(cmd.Context())
		if err != nil {
			return err
		}
		return printBook(cmd.OutOrStdout(), groups)
	},
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the stored member book as XML",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := loadRuntime(cmd.Context(), true)
		if err != nil {
			return err
		}
		defer rt.Close()

		groups, err := rt.repo.LoadAll(cmd.Context())
		if err != nil {
			return err
		}
		data, err := xmlwriter.Generate(groups)
		if err != nil {
			return err
		}
		return writeOutput(cmd.OutOrStdout(), outPath, data)
	},
}

var sampleCmd = &cobra.Command{
	Use:   "sample",
	Short: "Write the sample import workbook",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := xlsxparser.GenerateSample()
		if err != nil {
			return err
		}
		return writeOutput(cmd.OutOrStdout(), outPath, data)
	},
}

func init() {
	rootCmd.AddCommand(listCmd, exportCmd, sampleCmd)

	exportCmd.Flags().StringVarP(&outPath, "out", "o", "", "Output file (default stdout)")
	sampleCmd.Flags().StringVarP(&outPath, "out", "o", "", "Output file (default stdout)")
}

// printBook renders groups as an aligned table. Group name and address are
// printed on the first row of each group only.
func printBook(out io.Writer, groups []types.Group) error {
	if len(groups) == 0 {
		_, err := fmt.Fprintln(out, "The member book is empty.")
		return err
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "GROUP\tADDRESS\tP/S\tMEMBER\tRELATIONSHIP\tDOB\tMOBILE")
	members := 0
	for _, g := range groups {
		for i, m := range g.Rows {
			name, address := "", ""
			if i == 0 {
				name = g.Name
				address = strings.ReplaceAll(g.Address, "\n", ", ")
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
				name, address, m.FlagLabel(), m.MemberName, m.Relationship, m.DOBDisplay, m.Mobile)
		}
		members += g.RowCount
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(out, "\n%d group(s), %d member(s)\n", len(groups), members)
	return err
}

// writeOutput writes data to path atomically, or to out when path is empty.
func writeOutput(out io.Writer, path string, data []byte) error {
	if path == "" {
		_, err := out.Write(data)
		return err
	}
	return utils.WriteFileAtomic(path, data)
}
