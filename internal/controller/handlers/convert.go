package handlers

import (
	"adhocdist/internal/store"
	"adhocdist/pkg/api"
)

func toTester(t *store.Tester) api.Tester {
	return api.Tester{
		ID:        t.ID.String(),
		Email:     t.Email,
		UDID:      deref(t.UDID),
		Status:    string(t.Status),
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}
}

func toBuild(b *store.Build) api.Build {
	return api.Build{
		ID:              b.ID.String(),
		TesterID:        b.TesterID.String(),
		Status:          string(b.Status),
		DevicesIncluded: b.DevicesIncluded,
		DownloadURL:     deref(b.DownloadURL),
		CreatedAt:       b.CreatedAt,
		CompletedAt:     b.CompletedAt,
	}
}

func toDevice(d *store.Device) api.Device {
	return api.Device{
		ID:        d.ID.String(),
		UDID:      d.UDID,
		Product:   deref(d.Product),
		OSVersion: deref(d.OSVersion),
		CreatedAt: d.CreatedAt,
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
