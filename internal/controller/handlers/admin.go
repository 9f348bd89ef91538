package handlers

import (
	"net/http"

	"adhocdist/pkg/api"

	"github.com/go-chi/chi/v5"
)

// ListTesters handles GET /testers.
func (h *Handlers) ListTesters(w http.ResponseWriter, r *http.Request) {
	testers, err := h.app.ListTesters(r.Context())
	if err != nil {
		h.writeLifecycleError(w, r, err)
		return
	}

	resp := make([]api.Tester, 0, len(testers))
	for _, t := range testers {
		resp = append(resp, toTester(t))
	}
	h.respondJson(w, http.StatusOK, resp)
}

// GetTester handles GET /testers/{id}.
func (h *Handlers) GetTester(w http.ResponseWriter, r *http.Request) {
	detail, err := h.app.GetTester(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeLifecycleError(w, r, err)
		return
	}

	resp := api.TesterDetail{Tester: toTester(detail.Tester), Builds: make([]api.Build, 0, len(detail.Builds))}
	for _, b := range detail.Builds {
		resp.Builds = append(resp.Builds, toBuild(b))
	}
	h.respondJson(w, http.StatusOK, resp)
}

// ListBuilds handles GET /builds.
func (h *Handlers) ListBuilds(w http.ResponseWriter, r *http.Request) {
	builds, err := h.app.ListBuilds(r.Context())
	if err != nil {
		h.writeLifecycleError(w, r, err)
		return
	}

	resp := make([]api.Build, 0, len(builds))
	for _, b := range builds {
		resp = append(resp, toBuild(b))
	}
	h.respondJson(w, http.StatusOK, resp)
}

// GetBuild handles GET /builds/{id}.
func (h *Handlers) GetBuild(w http.ResponseWriter, r *http.Request) {
	build, err := h.app.GetBuild(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeLifecycleError(w, r, err)
		return
	}
	h.respondJson(w, http.StatusOK, toBuild(build))
}

// ListDevices handles GET /devices.
func (h *Handlers) ListDevices(w http.ResponseWriter, r *http.Request) {
	devices, err := h.app.ListDevices(r.Context())
	if err != nil {
		h.writeLifecycleError(w, r, err)
		return
	}

	resp := make([]api.Device, 0, len(devices))
	for _, d := range devices {
		resp = append(resp, toDevice(d))
	}
	h.respondJson(w, http.StatusOK, resp)
}

// VendorDevices handles GET /vendor/devices.
func (h *Handlers) VendorDevices(w http.ResponseWriter, r *http.Request) {
	devices, err := h.app.VendorDevices(r.Context())
	if err != nil {
		h.writeLifecycleError(w, r, err)
		return
	}

	resp := make([]api.VendorDevice, 0, len(devices))
	for _, d := range devices {
		resp = append(resp, api.VendorDevice{
			ID:        d.ID,
			Name:      d.Name,
			UDID:      d.UDID,
			Platform:  d.Platform,
			Status:    d.Status,
			Model:     d.Model,
			AddedDate: d.AddedDate,
		})
	}
	h.respondJson(w, http.StatusOK, resp)
}

// Purge handles DELETE /admin/data.
func (h *Handlers) Purge(w http.ResponseWriter, r *http.Request) {
	if err := h.app.Purge(r.Context()); err != nil {
		h.writeLifecycleError(w, r, err)
		return
	}
	h.respondJson(w, http.StatusOK, api.PurgeResponse{Purged: true})
}
