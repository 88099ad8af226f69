package notification

// Category is a user-facing reminder toggle.
type Category string

const (
	CategoryAppointment Category = "appointment"
	CategoryDateNight   Category = "date_night"
	CategoryDebt        Category = "debt"
)
