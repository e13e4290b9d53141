package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"ocrd/internal/ocrclient"
)

func (a *app) healthCommand() *cobra.Command {
	var url string
	cmd := &cobra.Command{
		Use:   "health",
		Short: "Query a running service's /health",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if url == "" {
				if v, ok := a.lookup("OCRD_SERVICE_URL"); ok {
					url = v
				}
			}
			h, err := ocrclient.New(url).HealthDetails(cmd.Context())
			if h.Status != "" {
				enc := json.NewEncoder(a.stdout)
				enc.SetIndent("", "  ")
				_ = enc.Encode(h)
			}
			return err
		},
	}
	cmd.Flags().StringVar(&url, "service-url", "", "ocrd service URL (default $OCRD_SERVICE_URL or http://localhost:8000)")
	return cmd
}
