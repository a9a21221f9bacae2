package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/seenimoa/bondrisk/api"
)

// --- Serve Command (API Server) ---

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		if v, _ := cmd.Flags().GetString("host"); v != "" {
			cfg.API.Host = v
		}
		if v, _ := cmd.Flags().GetInt("port"); v > 0 {
			cfg.API.Port = v
		}

		srv := api.NewServer(cfg, api.Options{
			Version:    version,
			ConfigFile: configFile,
			Logger:     log,
		})
		return srv.ListenAndServe(cmd.Context(), cfg.Addr())
	},
}

// --- Config Command ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		output, _ := cmd.Flags().GetString("output")
		out := cmd.OutOrStdout()

		switch strings.ToLower(output) {
		case "json":
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(cfg)
		case "yaml", "yml", "":
			enc := yaml.NewEncoder(out)
			enc.SetIndent(2)
			if err := enc.Encode(cfg); err != nil {
				return fmt.Errorf("encoding config: %w", err)
			}
			return enc.Close()
		}
		return fmt.Errorf("unknown output %q (want yaml or json)", output)
	},
}

func init() {
	serveCmd.Flags().String("host", "", "listen host (overrides api.host)")
	serveCmd.Flags().Int("port", 0, "listen port (overrides api.port)")

	configCmd.Flags().StringP("output", "o", "yaml", "output encoding: yaml or json")
}
