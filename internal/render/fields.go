package render

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/joseph-ayodele/seguridadvial/internal/entity"
)

const (
	dateLayout = "02/01/2006"
	timeLayout = "15:04"
)

// Fields are the display strings of one act, keyed by field. Empty values
// are not drawn.
type Fields struct {
	ActNumber string
	Values    map[FieldKey]string
	PhotoPath string
}

// Get returns the value of key, or "".
func (f Fields) Get(key FieldKey) string {
	return f.Values[key]
}

func dni(v string) string {
	if strings.TrimSpace(v) == "" {
		return ""
	}
	return "DNI: " + v
}

// ResolveFields turns an infraction into display strings. Dates and times
// are those of the issued instant in UTC. Relative photo references are
// resolved against uploadDir.
func ResolveFields(inf *entity.Infraction, layout *Layout, uploadDir string) Fields {
	issued := inf.IssuedAt.UTC()
	values := map[FieldKey]string{
		FieldAct:              inf.ActNumber(),
		FieldDomain:           inf.Domain,
		FieldLocation:         inf.Location,
		FieldVehicleType:      inf.Vehicle.Type,
		FieldVehicleMake:      inf.Vehicle.Make,
		FieldVehicleModel:     inf.Vehicle.Model,
		FieldDriverName:       inf.Driver.Name,
		FieldDriverDNI:        dni(inf.Driver.DNI),
		FieldDriverAddress:    inf.Driver.Address,
		FieldDriverLicense:    inf.Driver.License,
		FieldDriverClass:      inf.Driver.Class,
		FieldDriverPostalCode: inf.Driver.PostalCode,
		FieldDriverDepartment: inf.Driver.Department,
		FieldDriverProvince:   inf.Driver.Province,
		FieldOwnerName:        inf.Owner.Name,
		FieldOwnerDNI:         dni(inf.Owner.DNI),
		FieldOwnerAddress:     inf.Owner.Address,
		FieldOwnerPostalCode:  inf.Owner.PostalCode,
		FieldOwnerDepartment:  inf.Owner.Department,
		FieldOwnerProvince:    inf.Owner.Province,
		FieldCameraSerial:     inf.CameraSerial,
	}
	if !issued.IsZero() {
		values[FieldDate] = issued.Format(dateLayout)
		values[FieldTime] = issued.Format(timeLayout)
	}
	if layout != nil {
		values[FieldCameraMake] = layout.CameraMake
		values[FieldCameraModel] = layout.CameraModel
	}
	if inf.NotifiedAt != nil {
		values[FieldNotifiedDate] = "Notificado: " + inf.NotifiedAt.UTC().Format(dateLayout)
	}

	photo := strings.TrimSpace(inf.PhotoRef)
	if photo != "" && !filepath.IsAbs(photo) && uploadDir != "" {
		photo = filepath.Join(uploadDir, photo)
	}
	return Fields{ActNumber: inf.ActNumber(), Values: values, PhotoPath: photo}
}

// fixedCreationDate keeps rendered PDFs byte-stable across runs.
var fixedCreationDate = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
