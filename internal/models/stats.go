package models

// AdminStats is the back-office dashboard aggregate. Failed names the figures
// whose sub-query errored and were zero-filled.
type AdminStats struct {
	TotalUsers      int      `json:"total_users"`
	TotalWarehouses int      `json:"total_warehouses"`
	TotalBookings   int      `json:"total_bookings"`
	TotalReviews    int      `json:"total_reviews"`
	AverageRating   float64  `json:"average_rating"`
	RecentBookings  int      `json:"recent_bookings"`
	Failed          []string `json:"failed,omitempty"`
}
