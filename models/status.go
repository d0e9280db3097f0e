package models

// Status is the deal classification of a day's offer.
type Status string

const (
	StatusGoalMet   Status = "GOAL_MET"
	StatusSuperDeal Status = "SUPER_DEAL"
	StatusNormal    Status = "NORMAL"
	StatusExpensive Status = "EXPENSIVE"

	// StatusUnreadable marks a persisted day for which no price could be read.
	StatusUnreadable Status = "Erro na Leitura"
)

// Notifiable reports whether a day with this status should trigger an alert.
func (s Status) Notifiable() bool {
	return s == StatusGoalMet || s == StatusSuperDeal
}

// Label is the short tag shown next to the price in reports.
func (s Status) Label() string {
	switch s {
	case StatusSuperDeal:
		return "PROMO"
	case StatusGoalMet:
		return "META"
	case StatusExpensive:
		return "Caro"
	case StatusNormal:
		return "Normal"
	default:
		return string(s)
	}
}
