package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/wippyai/typedmem/schema"
)

func newCopyCmd(a *app) *cobra.Command {
	var (
		typeName string
		outPath  string
	)
	cmd := &cobra.Command{
		Use:   "copy SCHEMA DATA",
		Short: "Deep-copy a value document, reclaim the original and dump the copy",
		Long: `copy builds the document's instances, deep-copies them into a fresh
buffer, reclaims the original, prints the copy and finally reclaims it too.
The remaining live allocations are reported; anything above zero is a leak.`,
		Args: cobra.ExactArgs(2),
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

			src, err := sess.build(doc, typeName)
			if err != nil {
				return err
			}
			cid := sess.schema.Container
			dst, err := sess.engine.CopyAll(cid, src.tid, src.buf, src.count)
			if err != nil {
				a.discard(sess, src)
				return fmt.Errorf("copy %s: %w", src.name, err)
			}
			clone := &vector{name: src.name, tid: src.tid, buf: dst, count: src.count}
			if err := sess.release(src); err != nil {
				a.discard(sess, clone)
				return fmt.Errorf("reclaim original: %w", err)
			}

			if err := a.show(sess, clone); err != nil {
				return fmt.Errorf("dump copy: %w", err)
			}
			if outPath != "" {
				if err := writeDocument(sess, clone, outPath); err != nil {
					a.discard(sess, clone)
					return err
				}
			}
			if err := sess.release(clone); err != nil {
				return fmt.Errorf("reclaim copy: %w", err)
			}

			n, bytes := sess.leaks()
			fmt.Fprintf(cmd.OutOrStdout(), "live allocations: %d (%d bytes)\n", n, bytes)
			if n > 0 {
				return fmt.Errorf("%d allocations leaked", n)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&typeName, "type", "", "type of the values (default: the document's type)")
	cmd.Flags().StringVar(&outPath, "out", "", "also write the copied values as a CBOR document")
	return cmd
}

// writeDocument reads the instances back and stores them as CBOR.
func writeDocument(sess *session, v *vector, path string) error {
	values, err := sess.codec.LoadVector(sess.schema.Container, v.tid, v.buf, v.count)
	if err != nil {
		return fmt.Errorf("load copy: %w", err)
	}
	doc := &schema.Document{Type: v.name, Values: values}
	data, err := doc.EncodeCBOR()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
