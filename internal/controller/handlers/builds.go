package handlers

import (
	"net/http"

	"adhocdist/internal/lifecycle"
	"adhocdist/pkg/api"
)

// BuildCompleted handles POST /build-completed, called by the pipeline once
// the package is uploaded.
func (h *Handlers) BuildCompleted(w http.ResponseWriter, r *http.Request) {
	var req api.BuildCompletedRequest
	if !h.decode(w, r, &req) {
		return
	}

	res, err := h.app.CompleteBuild(r.Context(), lifecycle.BuildCompletion{
		BuildID:     req.BuildID,
		DownloadURL: req.DownloadURL,
		TesterID:    req.TesterID,
	})
	if err != nil {
		h.writeLifecycleError(w, r, err)
		return
	}

	resp := api.BuildCompletedResponse{
		Success:  true,
		Message:  "Build marked as completed",
		Build:    toBuild(res.Build),
		Notified: res.Notified,
	}
	if res.NotificationError != nil {
		resp.Message = "Build marked as completed, notification failed"
		resp.NotificationError = res.NotificationError.Error()
	}
	h.respondJson(w, http.StatusOK, resp)
}
