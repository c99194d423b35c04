package service

import (
	"context"
	"fmt"
	"net/http"

	"github.com/Dan9191/bank-portal/internal/models"
	"github.com/sirupsen/logrus"
)

// SelfieResult is the outcome of a selfie upload. Warning is set when the
// image was stored but the profile could not be marked verified.
type SelfieResult struct {
	URL     string `json:"url"`
	Warning string `json:"warning,omitempty"`
}

var selfieTypes = map[string]struct{}{
	"image/jpeg": {},
	"image/png":  {},
}

// UploadSelfie stores a verification selfie and marks the profile verified
func (s *Service) UploadSelfie(ctx context.Context, userID string, data []byte) (*SelfieResult, error) {
	if len(data) == 0 {
		return nil, models.Invalid("No image provided")
	}
	if int64(len(data)) > s.config.MaxUploadBytes {
		return nil, models.Invalid("Image is too large")
	}
	contentType := http.DetectContentType(data)
	if _, ok := selfieTypes[contentType]; !ok {
		return nil, models.Invalid("Image must be a JPEG or PNG")
	}

	now := s.now()
	path := fmt.Sprintf("selfies/selfie_%s_%d.jpg", userID, now.UnixMilli())
	url, err := s.blobs.Upload(ctx, s.config.StorageBucket, path, data, contentType)
	if err != nil {
		s.log.WithError(err).WithField("user_id", userID).Error("Selfie upload failed")
		return nil, fmt.Errorf("failed to upload selfie: %w", err)
	}

	res := &SelfieResult{URL: url}
	_, err = s.store.UpdateProfile(ctx, userID, map[string]any{
		"selfie_url":        url,
		"is_verified":       true,
		"verification_date": now.UTC(),
	})
	if err != nil {
		s.log.WithError(err).WithField("user_id", userID).Warn("Selfie stored but profile not updated")
		res.Warning = "Selfie uploaded but your profile could not be updated"
		return res, nil
	}

	s.log.WithFields(logrus.Fields{"user_id": userID, "path": path}).Info("Selfie verified")
	return res, nil
}

// ListDevices returns the caller's devices, most recently active first
func (s *Service) ListDevices(ctx context.Context, userID string) ([]models.Device, error) {
	return s.store.ListDevices(ctx, userID)
}

// RemoveDevice forgets one of the caller's devices
func (s *Service) RemoveDevice(ctx context.Context, userID, deviceID string) error {
	if err := validID(deviceID); err != nil {
		return err
	}
	return s.store.DeleteDevice(ctx, userID, deviceID)
}

// SetDeviceTrust marks one of the caller's devices trusted or untrusted
func (s *Service) SetDeviceTrust(ctx context.Context, userID, deviceID string, trusted bool) (*models.Device, error) {
	if err := validID(deviceID); err != nil {
		return nil, err
	}
	return s.store.UpdateDevice(ctx, userID, deviceID, map[string]any{"trusted": trusted})
}
