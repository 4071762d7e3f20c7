package render

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// FieldKey names a placeable value on a document.
type FieldKey string

const (
	FieldAct              FieldKey = "act"
	FieldDate             FieldKey = "date"
	FieldTime             FieldKey = "time"
	FieldLocation         FieldKey = "location"
	FieldDomain           FieldKey = "domain"
	FieldVehicleType      FieldKey = "vehicle_type"
	FieldVehicleMake      FieldKey = "vehicle_make"
	FieldVehicleModel     FieldKey = "vehicle_model"
	FieldDriverName       FieldKey = "driver_name"
	FieldDriverDNI        FieldKey = "driver_dni"
	FieldDriverAddress    FieldKey = "driver_address"
	FieldDriverLicense    FieldKey = "driver_license"
	FieldDriverClass      FieldKey = "driver_class"
	FieldDriverPostalCode FieldKey = "driver_postal_code"
	FieldDriverDepartment FieldKey = "driver_department"
	FieldDriverProvince   FieldKey = "driver_province"
	FieldOwnerName        FieldKey = "owner_name"
	FieldOwnerDNI         FieldKey = "owner_dni"
	FieldOwnerAddress     FieldKey = "owner_address"
	FieldOwnerPostalCode  FieldKey = "owner_postal_code"
	FieldOwnerDepartment  FieldKey = "owner_department"
	FieldOwnerProvince    FieldKey = "owner_province"
	FieldCameraMake       FieldKey = "camera_make"
	FieldCameraModel      FieldKey = "camera_model"
	FieldCameraSerial     FieldKey = "camera_serial"
	FieldNotifiedDate     FieldKey = "notified_date"
)

// Placement positions one field. X and Y are millimetres from the top-left
// corner of the page; Y is the text baseline.
type Placement struct {
	Key  FieldKey
	Code string
	X    float64
	Y    float64
	Size float64
	Bold bool
}

// Box is a rectangle in millimetres from the top-left corner.
type Box struct {
	X, Y, W, H float64
}

// Enabled reports whether the box has an area.
func (b Box) Enabled() bool {
	return b.W > 0 && b.H > 0
}

// Layout is the full coordinate set of one document type. Build it once
// with LoadLayout and share it read-only.
type Layout struct {
	Prefix      string
	Fields      []Placement
	Photo       Box
	DebugGrid   bool
	CameraMake  string
	CameraModel string
}

func (l *Layout) clone() *Layout {
	out := *l
	out.Fields = append([]Placement(nil), l.Fields...)
	return &out
}

const defaultSize = 9

// NotificationLayout is the default layout of camera act notifications.
func NotificationLayout() *Layout {
	return &Layout{
		Prefix: "NOTIF",
		Fields: []Placement{
			{Key: FieldAct, Code: "ACTA", X: 66, Y: 81, Size: 10, Bold: true},
			{Key: FieldDate, Code: "FECHA", X: 45, Y: 86, Size: defaultSize},
			{Key: FieldTime, Code: "HORA", X: 75, Y: 86, Size: defaultSize},
			{Key: FieldLocation, Code: "UBIC", X: 37, Y: 91, Size: defaultSize},
			{Key: FieldDomain, Code: "DOM", X: 72, Y: 97, Size: 10, Bold: true},
			{Key: FieldVehicleType, Code: "TIPO_VEH", X: 53, Y: 103, Size: defaultSize},
			{Key: FieldVehicleMake, Code: "MARCA", X: 40, Y: 108, Size: defaultSize},
			{Key: FieldVehicleModel, Code: "MODELO", X: 40, Y: 113, Size: defaultSize},
			{Key: FieldOwnerName, Code: "TIT_NOM", X: 40, Y: 118, Size: defaultSize},
			{Key: FieldOwnerDNI, Code: "TIT_DNI", X: 40, Y: 123, Size: defaultSize},
			{Key: FieldOwnerAddress, Code: "TIT_DOM", X: 40, Y: 128, Size: defaultSize},
			{Key: FieldCameraMake, Code: "CAM_MARCA", X: 125, Y: 166, Size: defaultSize, Bold: true},
			{Key: FieldCameraModel, Code: "CAM_MODELO", X: 125, Y: 172, Size: defaultSize, Bold: true},
			{Key: FieldCameraSerial, Code: "SERIECAM", X: 125, Y: 177, Size: defaultSize},
			{Key: FieldNotifiedDate, Code: "FECHA_NOTIF", X: 150, Y: 260, Size: 8},
		},
		Photo:       Box{X: 102, Y: 70, W: 100, H: 75},
		CameraMake:  "TRUCAM II",
		CameraModel: "LTI 20/20",
	}
}

// offPage parks a field outside the printable area until configured.
const offPage = 9999

// TicketLayout is the default layout of in-person tickets.
func TicketLayout() *Layout {
	return &Layout{
		Prefix: "PRES",
		Fields: []Placement{
			{Key: FieldAct, Code: "ACTA", X: 20, Y: 15, Size: 10, Bold: true},
			{Key: FieldDate, Code: "FECHA", X: 20, Y: 25, Size: defaultSize},
			{Key: FieldTime, Code: "HORA", X: 60, Y: 25, Size: defaultSize},
			{Key: FieldDomain, Code: "DOM", X: 20, Y: 35, Size: 10, Bold: true},
			{Key: FieldDriverName, Code: "COND_NOM", X: 20, Y: 50, Size: defaultSize},
			{Key: FieldDriverDNI, Code: "COND_DNI", X: 20, Y: 55, Size: defaultSize},
			{Key: FieldDriverAddress, Code: "COND_DOM", X: 20, Y: 60, Size: defaultSize},
			{Key: FieldDriverPostalCode, Code: "COND_CP", X: 20, Y: 65, Size: defaultSize},
			{Key: FieldDriverDepartment, Code: "COND_DEPTO", X: 20, Y: 70, Size: defaultSize},
			{Key: FieldDriverProvince, Code: "COND_PROV", X: 20, Y: 75, Size: defaultSize},
			{Key: FieldDriverLicense, Code: "COND_LIC", X: 20, Y: 80, Size: defaultSize},
			{Key: FieldDriverClass, Code: "COND_CLASE", X: 60, Y: 80, Size: defaultSize},
			{Key: FieldVehicleType, Code: "VEH_TIPO", X: 20, Y: 90, Size: defaultSize},
			{Key: FieldVehicleMake, Code: "VEH_MARCA", X: 20, Y: 95, Size: defaultSize},
			{Key: FieldVehicleModel, Code: "VEH_MODELO", X: 20, Y: 100, Size: defaultSize},
			{Key: FieldOwnerName, Code: "TIT_NOM", X: offPage, Y: offPage, Size: defaultSize},
			{Key: FieldOwnerDNI, Code: "TIT_DNI", X: offPage, Y: offPage, Size: defaultSize},
			{Key: FieldOwnerAddress, Code: "TIT_DOM", X: offPage, Y: offPage, Size: defaultSize},
			{Key: FieldOwnerPostalCode, Code: "TIT_CP", X: offPage, Y: offPage, Size: defaultSize},
			{Key: FieldOwnerDepartment, Code: "TIT_DEPTO", X: offPage, Y: offPage, Size: defaultSize},
			{Key: FieldOwnerProvince, Code: "TIT_PROV", X: offPage, Y: offPage, Size: defaultSize},
			{Key: FieldCameraMake, Code: "CAM_MARCA", X: offPage, Y: offPage, Size: defaultSize},
			{Key: FieldCameraModel, Code: "CAM_MODELO", X: offPage, Y: offPage, Size: defaultSize},
			{Key: FieldCameraSerial, Code: "SERIECAM", X: offPage, Y: offPage, Size: defaultSize},
			{Key: FieldNotifiedDate, Code: "FECHA_NOTIF", X: offPage, Y: offPage, Size: 8},
		},
		CameraMake:  "TRUCAM II",
		CameraModel: "LTI 20/20",
	}
}

// LayoutOptions carries the non-coordinate overrides of a layout.
type LayoutOptions struct {
	File        string
	CameraMake  string
	CameraModel string
	DebugGrid   bool
}

// LoadLayout applies, in order, the defaults, the optional layout file and
// the environment. Each coordinate is read from <PREFIX>_<CODE>_X_MM and
// <PREFIX>_<CODE>_Y_MM; the photo box from <PREFIX>_PHOTO_{X,Y,W,H}_MM.
// Values that are not finite numbers keep the previous value.
func LoadLayout(defaults *Layout, opts LayoutOptions) (*Layout, error) {
	v := viper.New()
	if opts.File != "" {
		if _, err := os.Stat(opts.File); err == nil {
			v.SetConfigFile(opts.File)
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("read layout %s: %w", opts.File, err)
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("stat layout %s: %w", opts.File, err)
		}
	}
	v.AutomaticEnv()

	out := defaults.clone()
	num := func(key string, current float64) float64 {
		raw := strings.TrimSpace(v.GetString(key))
		if raw == "" {
			return current
		}
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return current
		}
		return f
	}

	for i := range out.Fields {
		p := &out.Fields[i]
		base := out.Prefix + "_" + p.Code
		p.X = num(base+"_X_MM", p.X)
		p.Y = num(base+"_Y_MM", p.Y)
		p.Size = num(base+"_SIZE", p.Size)
	}
	photo := out.Prefix + "_PHOTO"
	out.Photo = Box{
		X: num(photo+"_X_MM", out.Photo.X),
		Y: num(photo+"_Y_MM", out.Photo.Y),
		W: num(photo+"_W_MM", out.Photo.W),
		H: num(photo+"_H_MM", out.Photo.H),
	}

	if opts.CameraMake != "" {
		out.CameraMake = opts.CameraMake
	}
	if opts.CameraModel != "" {
		out.CameraModel = opts.CameraModel
	}
	out.DebugGrid = opts.DebugGrid
	if key := out.Prefix + "_DEBUG_GRID"; v.IsSet(key) {
		out.DebugGrid = v.GetBool(key)
	}
	return out, nil
}
