package main

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/vinicius-lino-figueiredo/godm/domain"
)

func newFindCmd(g *globalFlags) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "find COLLECTION [FILTER]",
		Short: "Print the documents of a collection matching an extended JSON filter",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := bson.D{}
			if len(args) == 2 {
				if err := bson.UnmarshalExtJSON([]byte(args[1]), false, &filter); err != nil {
					return fmt.Errorf("invalid filter: %w", err)
				}
			}

			ctx := cmd.Context()
			app, err := g.initApp(ctx)
			if app == nil {
				return err
			}
			defer app.Close(ctx)
			if err != nil {
				g.logger.Warnw("schema loaded with errors", "error", err)
			}

			typ, ok := app.Type(args[0])
			if !ok {
				return fmt.Errorf("collection %q is not in the schema", args[0])
			}
			cur, err := typ.Find(ctx, filter)
			if err != nil {
				return err
			}
			defer cur.Close(ctx)

			out := cmd.OutOrStdout()
			n := 0
			for m, err := range cur.All(ctx) {
				if err != nil {
					return err
				}
				line, err := bson.MarshalExtJSON(sorted(m.Fields()), false, false)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, string(line))
				if n++; limit > 0 && n >= limit {
					break
				}
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Stop after this many documents")
	return cmd
}

// sorted orders the keys of a document, and of the documents nested in it,
// so the printed output is stable.
func sorted(doc map[string]any) bson.D {
	keys := make([]string, 0, len(doc))
	for k := range doc {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	d := make(bson.D, len(keys))
	for n, k := range keys {
		d[n] = bson.E{Key: k, Value: sortedValue(doc[k])}
	}
	return d
}

func sortedValue(v any) any {
	switch t := v.(type) {
	case domain.M:
		return sorted(t)
	case bson.M:
		return sorted(t)
	case map[string]any:
		return sorted(t)
	case []any:
		arr := make(bson.A, len(t))
		for n, e := range t {
			arr[n] = sortedValue(e)
		}
		return arr
	case bson.A:
		return sortedValue([]any(t))
	}
	return v
}
