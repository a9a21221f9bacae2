package api

import (
	"net/http"

	"github.com/seenimoa/bondrisk/internal/config"
)

// ConfigResponse is the JSON envelope returned by GET /api/v1/config.
type ConfigResponse struct {
	Config     *config.Config `json:"config"`
	ConfigFile string         `json:"config_file,omitempty"` // path to the active config file
}

// handleGetConfig returns the running configuration. Nothing in it is
// secret; changes require a restart.
func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data: ConfigResponse{
			Config:     s.cfg,
			ConfigFile: s.opts.ConfigFile,
		},
	})
}
