package entities

import (
	"strings"
	"time"
)

// Technician is the service-provider profile of a professional user
type Technician struct {
	ID            string    `json:"id" db:"id"`
	UserID        string    `json:"userId" db:"user_id"`
	Title         string    `json:"title" db:"title"`
	Bio           string    `json:"bio" db:"bio"`
	Skills        string    `json:"-" db:"skills"`
	Categories    string    `json:"-" db:"categories"`
	City          string    `json:"city" db:"city"`
	Area          string    `json:"area" db:"area"`
	Latitude      *float64  `json:"latitude,omitempty" db:"latitude"`
	Longitude     *float64  `json:"longitude,omitempty" db:"longitude"`
	BaseRate      *float64  `json:"baseRate,omitempty" db:"base_rate"`
	HourlyRate    *float64  `json:"hourlyRate,omitempty" db:"hourly_rate"`
	IsVerified    bool      `json:"isVerified" db:"is_verified"`
	AverageRating float64   `json:"averageRating" db:"average_rating"`
	ReviewCount   int       `json:"reviewCount" db:"review_count"`
	CreatedAt     time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt     time.Time `json:"updatedAt" db:"updated_at"`
}

// SkillList returns the stored skills as a list
func (t *Technician) SkillList() []string {
	return SplitList(t.Skills)
}

// CategoryList returns the stored categories as a list
func (t *Technician) CategoryList() []string {
	return SplitList(t.Categories)
}

// SplitList splits a comma-joined column into trimmed, non-empty items
func SplitList(joined string) []string {
	items := []string{}
	for _, part := range strings.Split(joined, ",") {
		if p := strings.TrimSpace(part); p != "" {
			items = append(items, p)
		}
	}
	return items
}

// JoinList trims items, drops empties and joins them for storage
func JoinList(items []string) string {
	kept := make([]string, 0, len(items))
	for _, item := range items {
		if s := strings.TrimSpace(item); s != "" {
			kept = append(kept, s)
		}
	}
	return strings.Join(kept, ",")
}
