package notification

// Settings is the per-user notification preference row. The scheduler only reads it.
type Settings struct {
	UserID       int64
	Appointment  bool
	DateNight    bool
	Debt         bool
	DeviceTokens []string
	TimeZone     string // IANA name, empty when the user never set one
}

// DefaultSettings is used for users without a settings row: every category on, no devices.
func DefaultSettings(userID int64) *Settings {
	return &Settings{UserID: userID, Appointment: true, DateNight: true, Debt: true}
}

// Enabled reports whether reminders of category c should be delivered.
func (s *Settings) Enabled(c Category) bool {
	switch c {
	case CategoryAppointment:
		return s.Appointment
	case CategoryDateNight:
		return s.DateNight
	case CategoryDebt:
		return s.Debt
	default:
		return false
	}
}
