package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vinicius-lino-figueiredo/godm/adapter/geocoder"
)

func newGeocodeCmd(g *globalFlags) *cobra.Command {
	var baseURL string

	cmd := &cobra.Command{
		Use:   "geocode ADDRESS",
		Short: "Resolve an address into the GeoJSON point stored in location fields",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			geo, err := geocoder.NewNominatim(
				geocoder.WithBaseURL(baseURL),
				geocoder.WithLogger(g.logger),
			)
			if err != nil {
				return err
			}
			p, err := geo.Geocode(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "{\"type\":%q,\"coordinates\":[%g,%g]}\n",
				p.Type, p.Longitude(), p.Latitude())
			return nil
		},
	}

	cmd.Flags().StringVar(&baseURL, "nominatim-url", geocoder.DefaultBaseURL, "Nominatim service address")
	return cmd
}
