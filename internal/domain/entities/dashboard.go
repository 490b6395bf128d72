package entities

// DirectoryEntry is the public flat view of a technician
type DirectoryEntry struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Title         string   `json:"title"`
	City          string   `json:"city"`
	Area          string   `json:"area"`
	AverageRating float64  `json:"averageRating"`
	ReviewCount   int      `json:"reviewCount"`
	IsVerified    bool     `json:"isVerified"`
	Categories    []string `json:"categories"`
	Skills        []string `json:"skills"`
	BaseRate      *float64 `json:"baseRate"`
	HourlyRate    *float64 `json:"hourlyRate"`
}

// NewDirectoryEntry flattens a technician and its owner's name
func NewDirectoryEntry(t *Technician, name string) DirectoryEntry {
	return DirectoryEntry{
		ID:            t.ID,
		Name:          name,
		Title:         t.Title,
		City:          t.City,
		Area:          t.Area,
		AverageRating: t.AverageRating,
		ReviewCount:   t.ReviewCount,
		IsVerified:    t.IsVerified,
		Categories:    t.CategoryList(),
		Skills:        t.SkillList(),
		BaseRate:      t.BaseRate,
		HourlyRate:    t.HourlyRate,
	}
}

// ReviewView is a review with the reviewer's display name
type ReviewView struct {
	*Review
	CustomerName string `json:"customerName"`
}

// TechnicianDetail is a technician with its most recent reviews
type TechnicianDetail struct {
	DirectoryEntry
	Bio           string       `json:"bio"`
	Latitude      *float64     `json:"latitude,omitempty"`
	Longitude     *float64     `json:"longitude,omitempty"`
	RecentReviews []ReviewView `json:"recentReviews"`
}

// BookingView is a booking enriched with the names of both parties
type BookingView struct {
	*Booking
	CustomerName    string  `json:"customerName,omitempty"`
	TechnicianName  string  `json:"technicianName,omitempty"`
	TechnicianTitle string  `json:"technicianTitle,omitempty"`
	Review          *Review `json:"review,omitempty"`
}

// CustomerDashboard groups a customer's bookings by phase
type CustomerDashboard struct {
	Requests   []BookingView `json:"requests"`
	ActiveJobs []BookingView `json:"activeJobs"`
	History    []BookingView `json:"history"`
}

// ProfessionalDashboard groups a technician's bookings and earnings
type ProfessionalDashboard struct {
	ProfileRequired bool          `json:"profileRequired"`
	Technician      *Technician   `json:"technician,omitempty"`
	Skills          []string      `json:"skills,omitempty"`
	Categories      []string      `json:"categories,omitempty"`
	Leads           []BookingView `json:"leads"`
	Schedule        []BookingView `json:"schedule"`
	Completed       []BookingView `json:"completed"`
	CompletedCount  int           `json:"completedCount"`
	TotalEarnings   float64       `json:"totalEarnings"`
}

// PlatformStats are the admin headline counts
type PlatformStats struct {
	Users       int `json:"users"`
	Technicians int `json:"technicians"`
	Bookings    int `json:"bookings"`
}

// AdminDashboard is the back-office overview
type AdminDashboard struct {
	Stats              PlatformStats    `json:"stats"`
	RecentTechnicians  []DirectoryEntry `json:"recentTechnicians"`
	RecentBookings     []BookingView    `json:"recentBookings"`
	RecentUsers        []*User          `json:"recentUsers"`
	RecentTransactions []BookingView    `json:"recentTransactions"`
}
