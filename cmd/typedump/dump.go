package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wippyai/typedmem/schema"
)

func newDumpCmd(a *app) *cobra.Command {
	var typeName string
	cmd := &cobra.Command{
		Use:   "dump SCHEMA DATA",
		Short: "Build the instances of a value document and print their dump",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := schema.ReadDocument(args[1])
			if err != nil {
				return err
			}
			sess, err := a.openSession(cmd.Context(), args[0], cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer a.closeSession(sess)

			v, err := sess.build(doc, typeName)
			if err != nil {
				return err
			}
			if err := a.show(sess, v); err != nil {
				return fmt.Errorf("dump %s: %w", v.name, err)
			}
			if err := sess.release(v); err != nil {
				return fmt.Errorf("reclaim %s: %w", v.name, err)
			}
			if n, bytes := sess.leaks(); n > 0 {
				a.log.Warn("allocations left after reclaim",
					zap.Int("live", n),
					zap.Uint64("bytes", bytes))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&typeName, "type", "", "type of the values (default: the document's type)")
	return cmd
}
