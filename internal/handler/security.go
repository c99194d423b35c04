package handler

import (
	"io"
	"net/http"
)

const deviceNotFound = "Device not found"

// multipart overhead allowed on top of the image itself
const formOverhead = 64 << 10

// UploadSelfie accepts a multipart "image" field and stores it as the caller's selfie
func (h *Handler) UploadSelfie(w http.ResponseWriter, r *http.Request) {
	limit := h.cfg.MaxUploadBytes
	r.Body = http.MaxBytesReader(w, r.Body, limit+formOverhead)
	if err := r.ParseMultipartForm(limit); err != nil {
		h.badRequest(w, "Image is too large or the form is malformed")
		return
	}
	file, _, err := r.FormFile("image")
	if err != nil {
		h.badRequest(w, "No image provided")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, limit+1))
	if err != nil {
		h.badRequest(w, "Failed to read image")
		return
	}

	res, err := h.svc.UploadSelfie(r.Context(), caller(r).UserID, data)
	if err != nil {
		h.fail(w, r, err, profileNotFound, "Failed to upload selfie")
		return
	}
	h.ok(w, http.StatusOK, res)
}

// ListDevices returns the caller's devices
func (h *Handler) ListDevices(w http.ResponseWriter, r *http.Request) {
	devices, err := h.svc.ListDevices(r.Context(), caller(r).UserID)
	if err != nil {
		h.fail(w, r, err, deviceNotFound, "Failed to fetch devices")
		return
	}
	h.ok(w, http.StatusOK, devices)
}

// RemoveDevice forgets one of the caller's devices
func (h *Handler) RemoveDevice(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.RemoveDevice(r.Context(), caller(r).UserID, pathID(r)); err != nil {
		h.fail(w, r, err, deviceNotFound, "Failed to remove device")
		return
	}
	h.ok(w, http.StatusOK, nil)
}

// SetDeviceTrust marks a device trusted or untrusted
func (h *Handler) SetDeviceTrust(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Trusted *bool `json:"trusted"`
	}
	if !h.decode(w, r, &req) {
		return
	}
	if req.Trusted == nil {
		h.badRequest(w, "trusted must be a boolean")
		return
	}

	device, err := h.svc.SetDeviceTrust(r.Context(), caller(r).UserID, pathID(r), *req.Trusted)
	if err != nil {
		h.fail(w, r, err, deviceNotFound, "Failed to update device")
		return
	}
	h.ok(w, http.StatusOK, device)
}
