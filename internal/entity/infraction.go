package entity

import (
	"time"

	"github.com/joseph-ayodele/seguridadvial/constants"
)

// Vehicle describes the vehicle involved in an act.
type Vehicle struct {
	Type  string `json:"type,omitempty"`
	Make  string `json:"make,omitempty"`
	Model string `json:"model,omitempty"`
}

// Person describes a driver or a registered owner.
type Person struct {
	Name       string `json:"name,omitempty"`
	DNI        string `json:"dni,omitempty"`
	Address    string `json:"address,omitempty"`
	License    string `json:"license,omitempty"`
	Class      string `json:"class,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
	Department string `json:"department,omitempty"`
	Province   string `json:"province,omitempty"`
}

// IsZero reports whether no descriptor is set.
func (p Person) IsZero() bool {
	return p == Person{}
}

// Infraction represents an infraction record for data transfer between layers.
type Infraction struct {
	ID              int64                      `json:"id"`
	Series          string                     `json:"series"`
	Sequence        int64                      `json:"sequence"`
	Domain          string                     `json:"domain"`
	Type            string                     `json:"type"`
	MeasuredSpeed   float64                    `json:"measured_speed"`
	AuthorizedSpeed float64                    `json:"authorized_speed"`
	Location        string                     `json:"location,omitempty"`
	Artery          string                     `json:"artery,omitempty"`
	Lat             *float64                   `json:"lat,omitempty"`
	Lng             *float64                   `json:"lng,omitempty"`
	PhotoRef        string                     `json:"photo_ref,omitempty"`
	CameraSerial    string                     `json:"camera_serial,omitempty"`
	Vehicle         Vehicle                    `json:"vehicle"`
	Driver          Person                     `json:"driver"`
	Owner           Person                     `json:"owner"`
	Notes           string                     `json:"notes,omitempty"`
	Status          constants.InfractionStatus `json:"status"`
	Notified        bool                       `json:"notified"`
	LoggedAt        time.Time                  `json:"logged_at"`
	IssuedAt        time.Time                  `json:"issued_at"`
	NotifiedAt      *time.Time                 `json:"notified_at,omitempty"`
}

// ActNumber returns the public act identifier (e.g. A-0000042).
func (i *Infraction) ActNumber() string {
	return constants.ActNumber(i.Series, i.Sequence)
}

// CreateInfractionRequest carries the fields of a new act. The act number is
// never part of the request: it is allocated at insert time.
type CreateInfractionRequest struct {
	Series          string                     `json:"series,omitempty"`
	Domain          string                     `json:"domain"`
	Type            string                     `json:"type,omitempty"`
	IssuedAt        time.Time                  `json:"issued_at"`
	MeasuredSpeed   float64                    `json:"measured_speed"`
	AuthorizedSpeed float64                    `json:"authorized_speed"`
	Location        string                     `json:"location,omitempty"`
	Artery          string                     `json:"artery,omitempty"`
	Lat             *float64                   `json:"lat,omitempty"`
	Lng             *float64                   `json:"lng,omitempty"`
	PhotoRef        string                     `json:"photo_ref,omitempty"`
	CameraSerial    string                     `json:"camera_serial,omitempty"`
	Vehicle         Vehicle                    `json:"vehicle"`
	Driver          Person                     `json:"driver"`
	Owner           Person                     `json:"owner"`
	Notes           string                     `json:"notes,omitempty"`
	Status          constants.InfractionStatus `json:"status,omitempty"`
	Notified        bool                       `json:"notified,omitempty"`
	NotifiedAt      *time.Time                 `json:"notified_at,omitempty"`
}

// InfractionPatch is a partial update; nil fields are left unchanged.
type InfractionPatch struct {
	Location        *string                     `json:"location,omitempty"`
	MeasuredSpeed   *float64                    `json:"measured_speed,omitempty"`
	AuthorizedSpeed *float64                    `json:"authorized_speed,omitempty"`
	Status          *constants.InfractionStatus `json:"status,omitempty"`
	CameraSerial    *string                     `json:"camera_serial,omitempty"`
	VehicleType     *string                     `json:"vehicle_type,omitempty"`
	VehicleMake     *string                     `json:"vehicle_make,omitempty"`
	VehicleModel    *string                     `json:"vehicle_model,omitempty"`
}

// IsEmpty reports whether the patch changes nothing.
func (p InfractionPatch) IsEmpty() bool {
	return p == InfractionPatch{}
}

// InfractionFilter narrows list queries. Zero values mean "any".
type InfractionFilter struct {
	Domain    string
	ActNumber string
	Status    constants.InfractionStatus
	Series    string
	Limit     int
}
