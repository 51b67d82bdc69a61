package reservation

import "github.com/dumeirei/hotel-pms-backend/internal/models"

// transitions 允许的状态流转
// checked_out 为终态
var transitions = map[string][]string{
	models.ReservationStatusConfirmed: {
		models.ReservationStatusCancelled,
		models.ReservationStatusCheckedIn,
	},
	models.ReservationStatusCancelled: {
		models.ReservationStatusConfirmed,
	},
	models.ReservationStatusCheckedIn: {
		models.ReservationStatusConfirmed,
		models.ReservationStatusCheckedOut,
	},
}

// CanTransition 判断状态流转是否合法
func CanTransition(from, to string) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
