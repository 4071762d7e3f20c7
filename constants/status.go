package constants

// InfractionStatus is the lifecycle status stored in infracciones.estado.
// The set is open: rows written by other tools may carry values not listed here.
type InfractionStatus string

// Stable values (store these exact strings in DB).
const (
	StatusValidated InfractionStatus = "validada"   // created, awaiting notification
	StatusNotified  InfractionStatus = "notificada" // notification delivered or issued in person
	StatusVoided    InfractionStatus = "anulada"    // annulled, kept for audit
)

// NotificationState is the canonical state for rows in notificaciones.
type NotificationState string

const (
	NotificationGenerated NotificationState = "generado"
	NotificationSent      NotificationState = "enviado" // terminal
)

// DefaultInfractionType is the violation recorded when the request does not name one.
const DefaultInfractionType = "Exceso de velocidad"
