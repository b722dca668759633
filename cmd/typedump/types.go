package main

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/wippyai/typedmem/catalog"
	"github.com/wippyai/typedmem/schema"
)

func newTypesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "types SCHEMA",
		Short: "List the types a schema defines",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := a.openSession(cmd.Context(), args[0], cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer a.closeSession(sess)

			rows, err := typeRows(sess.schema)
			if err != nil {
				return err
			}
			t := table.New().
				Border(lipgloss.NormalBorder()).
				Headers("NAME", "CLASS", "SIZE", "ALIGN", "FIXED").
				Rows(rows...)
			fmt.Fprintln(cmd.OutOrStdout(), t.Render())
			return nil
		},
	}
}

// typeSummary is one line of the type listing.
type typeSummary struct {
	info  catalog.TypeInfo
	align uint32
	fixed bool
}

func summarize(s *schema.Schema) ([]typeSummary, error) {
	types := s.Types()
	out := make([]typeSummary, len(types))
	for i, info := range types {
		align, err := s.Resolver.AlignmentOf(s.Container, info.ID)
		if err != nil {
			return nil, err
		}
		fixed, err := s.Registry.IsFixedSize(s.Container, info.ID)
		if err != nil {
			return nil, err
		}
		out[i] = typeSummary{info: info, align: align, fixed: fixed}
	}
	return out, nil
}

func typeRows(s *schema.Schema) ([][]string, error) {
	sums, err := summarize(s)
	if err != nil {
		return nil, err
	}
	rows := make([][]string, len(sums))
	for i, t := range sums {
		rows[i] = []string{
			t.info.Name,
			t.info.Class.String(),
			strconv.FormatUint(uint64(t.info.Size), 10),
			strconv.FormatUint(uint64(t.align), 10),
			strconv.FormatBool(t.fixed),
		}
	}
	return rows, nil
}
