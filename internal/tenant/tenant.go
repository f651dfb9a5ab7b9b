package tenant

import (
	"errors"
	"regexp"
	"strings"
	"time"
)

var (
	ErrTenantNotFound        = errors.New("tenant not found")
	ErrTenantNameUnavailable = errors.New("tenant name unavailable")
	ErrInvalidTenantName     = errors.New("invalid tenant name")
	ErrInvalidSeatLimit      = errors.New("seat limit must be at least 1")
	ErrSeatLimitReached      = errors.New("tenant seat limit reached")
)

// Tenant is an organization created under an account. SeatUsed counts
// memberships and never exceeds SeatLimit.
type Tenant struct {
	ID           string    `json:"id"`
	AccountID    string    `json:"account_id"`
	Name         string    `json:"name"`
	Slug         string    `json:"slug"`
	ContactEmail string    `json:"contact_email"`
	IsActive     bool      `json:"is_active"`
	SeatLimit    int       `json:"seat_limit"`
	SeatUsed     int       `json:"seat_used"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

var (
	slugDisallowed = regexp.MustCompile(`[^a-z0-9\s-]`)
	slugSpaces     = regexp.MustCompile(`\s+`)
	slugHyphens    = regexp.MustCompile(`-+`)
)

// Slugify derives the URL-safe tenant slug from a display name: lowercase,
// characters outside [a-z0-9], whitespace and hyphen dropped, whitespace runs
// turned into one hyphen, no leading or trailing hyphen.
func Slugify(name string) string {
	s := strings.ToLower(name)
	s = slugDisallowed.ReplaceAllString(s, "")
	s = strings.TrimSpace(s)
	s = slugSpaces.ReplaceAllString(s, "-")
	s = slugHyphens.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}
