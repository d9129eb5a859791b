package clinic

// Slot is one bookable appointment slot as the backend reports it. Status
// transitions only arrive via backend responses and are never inferred
// locally.
type Slot struct {
	ID          int64      `json:"id"`
	Date        string     `json:"date"` // backend form, e.g. "5 Mar"
	Time        string     `json:"time"` // e.g. "10:00 AM"
	Status      SlotStatus `json:"status"`
	PhoneNumber string     `json:"phone_number,omitempty"`
}

// SlotStatus enumerates the backend's slot states.
type SlotStatus string

const (
	SlotAvailable SlotStatus = "available"
	SlotBooked    SlotStatus = "booked"
)

// Appointment is read-only from the dashboard's perspective.
type Appointment struct {
	ID     int64             `json:"id"`
	Date   string            `json:"date"`
	Time   string            `json:"time"`
	Phone  string            `json:"phone"`
	Status AppointmentStatus `json:"status"`
}

// AppointmentStatus enumerates the backend's appointment states.
type AppointmentStatus string

const (
	AppointmentConfirmed AppointmentStatus = "confirmed"
	AppointmentCancelled AppointmentStatus = "cancelled"
	AppointmentPending   AppointmentStatus = "pending"
)

// Alert is one sent SMS alert. The collection is an append-only log;
// alerts are never edited or deleted from the dashboard.
type Alert struct {
	ID         int64  `json:"id"`
	Type       string `json:"type"`
	Message    string `json:"message"`
	TargetArea string `json:"targetArea"`
	SentAt     string `json:"sent_at"`
}

// SlotRequest is the payload for creating or updating a slot.
type SlotRequest struct {
	Date string `json:"date"`
	Time string `json:"time"`
}

// AlertRequest is the payload for dispatching an SMS alert.
type AlertRequest struct {
	Type       string `json:"type"`
	Message    string `json:"message"`
	TargetArea string `json:"targetArea"`
}

// HealthStatus is the backend liveness probe response.
type HealthStatus struct {
	Status string `json:"status"`
}

// AlertTypes lists the alert categories the clinic can broadcast.
var AlertTypes = []string{"General", "Cholera", "Pregnancy", "Malaria"}

// TargetAreas lists the districts an alert can target.
var TargetAreas = []string{"All Areas", "Brigade", "Badawa", "Jaba"}

// TimeOptions is the fixed set of bookable clinic times.
var TimeOptions = []string{
	"09:00 AM", "10:00 AM", "10:30 AM", "11:00 AM", "11:30 AM",
	"12:00 PM", "12:30 PM", "01:00 PM", "01:30 PM", "02:00 PM",
	"02:30 PM", "03:00 PM", "03:30 PM", "04:00 PM", "04:30 PM",
}
