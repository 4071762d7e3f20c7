package entity

import "time"

// CameraExtraction is the sparse field bag parsed from a camera text export.
// It is never persisted; absent fields stay nil.
type CameraExtraction struct {
	Location        *string    `json:"location,omitempty"`
	MeasuredSpeed   *float64   `json:"measured_speed,omitempty"`
	AuthorizedSpeed *float64   `json:"authorized_speed,omitempty"`
	IssuedAt        *time.Time `json:"issued_at,omitempty"`
	CameraSerial    *string    `json:"camera_serial,omitempty"`
	Lat             *float64   `json:"lat,omitempty"`
	Lng             *float64   `json:"lng,omitempty"`
}

// IsEmpty reports whether nothing could be extracted.
func (c CameraExtraction) IsEmpty() bool {
	return c.Location == nil && c.MeasuredSpeed == nil && c.AuthorizedSpeed == nil &&
		c.IssuedAt == nil && c.CameraSerial == nil && c.Lat == nil && c.Lng == nil
}

// Apply copies extracted fields onto a create request, leaving fields
// already set on the request untouched.
func (c CameraExtraction) Apply(req *CreateInfractionRequest) {
	if c.Location != nil && req.Location == "" {
		req.Location = *c.Location
	}
	if c.MeasuredSpeed != nil && req.MeasuredSpeed == 0 {
		req.MeasuredSpeed = *c.MeasuredSpeed
	}
	if c.AuthorizedSpeed != nil && req.AuthorizedSpeed == 0 {
		req.AuthorizedSpeed = *c.AuthorizedSpeed
	}
	if c.IssuedAt != nil && req.IssuedAt.IsZero() {
		req.IssuedAt = *c.IssuedAt
	}
	if c.CameraSerial != nil && req.CameraSerial == "" {
		req.CameraSerial = *c.CameraSerial
	}
	if c.Lat != nil && req.Lat == nil {
		req.Lat = c.Lat
	}
	if c.Lng != nil && req.Lng == nil {
		req.Lng = c.Lng
	}
}
