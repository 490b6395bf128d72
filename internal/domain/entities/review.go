package entities

import "time"

// Review is a customer's rating of a completed booking
type Review struct {
	ID           string    `json:"id" db:"id"`
	BookingID    string    `json:"bookingId" db:"booking_id"`
	CustomerID   string    `json:"customerId" db:"customer_id"`
	TechnicianID string    `json:"technicianId" db:"technician_id"`
	Rating       int       `json:"rating" db:"rating"` // 1-5
	Comment      string    `json:"comment" db:"comment"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
}

const (
	MinRating = 1
	MaxRating = 5
)

// ValidRating reports whether r is within the accepted star range
func ValidRating(r int) bool {
	return r >= MinRating && r <= MaxRating
}

// ComputeAverage returns the mean rating and count; zero when there are no ratings
func ComputeAverage(ratings []int) (float64, int) {
	if len(ratings) == 0 {
		return 0, 0
	}
	sum := 0
	for _, r := range ratings {
		sum += r
	}
	return float64(sum) / float64(len(ratings)), len(ratings)
}
