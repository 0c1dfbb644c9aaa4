package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vinicius-lino-figueiredo/godm"
)

func newInitCmd(g *globalFlags) *cobra.Command {
	var drop bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the indexes of every collection in the schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := g.initApp(cmd.Context(), godm.WithDropDatabase(drop))
			if app == nil {
				return err
			}
			defer app.Close(cmd.Context())

			out := cmd.OutOrStdout()
			for _, t := range app.Types() {
				def := t.Definition()
				fmt.Fprintf(out, "%s\trequired=%s\tadmissible=%s\tlocation=%s\tindexes=%d\n",
					t.Name(),
					strings.Join(def.Required, ","),
					strings.Join(def.Admissible, ","),
					t.LocationField(),
					len(def.Indexes),
				)
			}
			return err
		},
	}

	cmd.Flags().BoolVar(&drop, "drop", false, "Drop the database before creating the indexes")
	return cmd
}
