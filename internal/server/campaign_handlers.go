package server

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"alchemy/internal/assets"
	"alchemy/internal/campaign"
	"alchemy/internal/logging"
)

type assetListResponse struct {
	Assets []*assets.Asset `json:"assets"`
}

// handleCampaignRun validates the request, then detaches the run onto
// the daemon lifetime context so the response returns immediately while
// progress flows through the session's stream.
func (s *apiServer) handleCampaignRun(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req campaign.RunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, ackResponse{OK: false, Error: "invalid request body"})
		return
	}

	if len(req.Demographics) == 0 {
		// Run publishes the abort notice before rejecting.
		_ = s.daemon.runner.Run(r.Context(), req)
		s.writeJSON(w, http.StatusBadRequest, ackResponse{OK: false, Error: "No demographics"})
		return
	}

	runID := uuid.NewString()
	go func() {
		ctx := logging.WithRequestID(s.daemon.runContext(), runID)
		if err := s.daemon.runner.Run(ctx, req); err != nil {
			s.log().Warn("campaign run failed",
				logging.String(logging.FieldRequestID, runID), logging.Error(err))
		}
	}()
	s.writeJSON(w, http.StatusOK, ackResponse{OK: true})
}
