package main

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vinicius-lino-figueiredo/godm"
	"github.com/vinicius-lino-figueiredo/godm/adapter/logger"
)

type globalFlags struct {
	verbose bool
	schema  string
	uri     string
	db      string
	tlsCert string

	logger *zap.SugaredLogger
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:   "godm",
		Short: "Schema driven object-document mapping for MongoDB",
		Long: `godm reads a YAML schema declaring, for each collection, its required and
admissible fields and its unique, regular and geospatial indexes. It creates
the indexes and validates every document against the schema.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			l, err := logger.New(g.verbose)
			if err != nil {
				return err
			}
			g.logger = l
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if g.logger != nil {
				_ = g.logger.Sync()
			}
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.BoolVarP(&g.verbose, "verbose", "v", false, "Enable verbose logging")
	flags.StringVarP(&g.schema, "schema", "s", "./models.yml", "Schema file, or a pattern matching several")
	flags.StringVar(&g.uri, "uri", "mongodb://localhost:27017/", "MongoDB URI, or memory:// for an in-memory store")
	flags.StringVar(&g.db, "db", "abd", "Database name")
	flags.StringVar(&g.tlsCert, "tls-cert", "", "PEM file with the TLS client certificate and key")

	rootCmd.AddCommand(newInitCmd(g), newFindCmd(g), newGeocodeCmd(g))
	return rootCmd
}

// initApp loads the schema and connects, as every command touching the
// database does.
func (g *globalFlags) initApp(ctx context.Context, opts ...godm.Option) (*godm.App, error) {
	defs, err := godm.LoadSchemaFile(ctx, g.schema)
	if err != nil {
		return nil, err
	}
	opts = append([]godm.Option{
		godm.WithLogger(g.logger),
		godm.WithTLSCertificateKeyFile(g.tlsCert),
	}, opts...)
	return godm.InitApp(ctx, defs, g.uri, g.db, opts...)
}
