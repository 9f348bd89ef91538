package handlers

import (
	"errors"
	"io"
	"net/http"

	"adhocdist/internal/lifecycle"
	"adhocdist/internal/logger"
	"adhocdist/internal/profile"
	"adhocdist/pkg/api"
)

// MaxCallbackBody bounds the device attribute payload.
const MaxCallbackBody = 1 << 20

// Register handles POST /register.
func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	var req api.RegisterRequest
	if !h.decode(w, r, &req) {
		return
	}

	reg, err := h.app.Register(r.Context(), req.Email)
	if err != nil {
		h.writeLifecycleError(w, r, err)
		return
	}

	status := http.StatusOK
	message := "Tester already registered"
	if reg.Created {
		status = http.StatusCreated
		message = "Tester registered"
	}

	h.respondJson(w, status, api.RegisterResponse{
		TesterID: reg.Tester.ID.String(),
		NextURL:  reg.NextURL,
		Message:  message,
	})
}

// GetUDIDProfile handles GET /get-udid. It serves the enrollment profile
// that makes the device report its attributes back to us.
func (h *Handlers) GetUDIDProfile(w http.ResponseWriter, r *http.Request) {
	tester, err := h.app.LookupTester(r.Context(), r.URL.Query().Get("testerId"))
	if err != nil {
		h.writeLifecycleError(w, r, err)
		return
	}

	data, err := h.profiles.EnrollmentProfile(tester.ID.String())
	if err != nil {
		h.writeLifecycleError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", profile.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+profile.EnrollmentFilename+`"`)
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// DeviceCallback handles POST /udid/callback, the request iOS makes after
// the enrollment profile was installed.
func (h *Handlers) DeviceCallback(w http.ResponseWriter, r *http.Request) {
	testerID := r.URL.Query().Get("testerId")
	if testerID == "" {
		h.writeLifecycleError(w, r, lifecycle.ErrMissingTesterID)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxCallbackBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.httpError(w, "Payload too large", CodePayloadTooLarge, http.StatusRequestEntityTooLarge)
			return
		}
		h.httpError(w, "Invalid request body", CodeInvalidBody, http.StatusBadRequest)
		return
	}

	attrs, err := profile.ParseDeviceAttributes(body)
	switch {
	case errors.Is(err, profile.ErrMissingUDID):
		h.httpError(w, "Device payload has no UDID", CodeMissingUDID, http.StatusBadRequest)
		return
	case err != nil:
		h.httpError(w, "Device payload could not be parsed", CodeMalformedPayload, http.StatusBadRequest)
		return
	}

	info := lifecycle.DeviceInfo{UDID: attrs.UDID, Product: attrs.Product, OSVersion: attrs.Version}
	if _, err := h.app.IdentifyDevice(r.Context(), testerID, info, lifecycle.SourceProfile); err != nil {
		h.writeLifecycleError(w, r, err)
		return
	}

	ack, err := h.profiles.Acknowledgement(testerID)
	if err != nil {
		// The device is already recorded; a plain acknowledgement still
		// completes the profile installation on the device.
		logger.FromContext(r.Context(), h.logger).Error("failed to render acknowledgement", "error", err)
		w.WriteHeader(http.StatusOK)
		return
	}

	w.Header().Set("Content-Type", profile.ContentType)
	w.WriteHeader(http.StatusOK)
	w.Write(ack)
}

// ManualUDID handles POST /udid/manual for testers who copy the identifier
// by hand.
func (h *Handlers) ManualUDID(w http.ResponseWriter, r *http.Request) {
	var req api.ManualUDIDRequest
	if !h.decode(w, r, &req) {
		return
	}

	_, err := h.app.IdentifyDevice(r.Context(), r.URL.Query().Get("testerId"), lifecycle.DeviceInfo{UDID: req.UDID}, lifecycle.SourceManual)
	if err != nil {
		h.writeLifecycleError(w, r, err)
		return
	}

	h.respondJson(w, http.StatusOK, api.SuccessResponse{Success: true, Message: "Device registered"})
}
