package generator

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/mietzen/catch-all-autofill/internal/shared"
)

const (
	// MaxAddressLength is the longest accepted address, in characters.
	MaxAddressLength = 254

	// MaxLocalPartLength is the longest accepted local part, in characters.
	MaxLocalPartLength = 64
)

var (
	domainPattern = regexp.MustCompile(`^(?:[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?\.)*[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?\.+[a-zA-Z]{2,}$`)
	emailPattern  = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
)

// ValidateDomain checks a catch-all domain such as "example.com".
func ValidateDomain(domain string) error {
	if domain == "" {
		return fmt.Errorf("%w: domain is empty", shared.ErrInvalidDomain)
	}
	if !domainPattern.MatchString(domain) {
		return fmt.Errorf("%w: %q", shared.ErrInvalidDomain, domain)
	}
	return nil
}

// ValidateURL accepts absolute http and https URLs only.
func ValidateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %w", shared.ErrInvalidURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: %q must use http or https", shared.ErrInvalidURL, raw)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: %q has no host", shared.ErrInvalidURL, raw)
	}
	return nil
}

// ValidationResult lists every problem found with an address.
type ValidationResult struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors"`
}

// Err returns nil for a valid result, otherwise an error wrapping [shared.ErrInvalidEmail].
func (r ValidationResult) Err() error {
	if r.Valid {
		return nil
	}
	return fmt.Errorf("%w: %s", shared.ErrInvalidEmail, strings.Join(r.Errors, "; "))
}

// Validate re-checks an address independently of generation: total length, shape and
// local part length. All failures are reported, not just the first.
func Validate(email string) ValidationResult {
	errs := []string{}

	if n := utf8.RuneCountInString(email); n > MaxAddressLength {
		errs = append(errs, fmt.Sprintf("Email too long (%d/%d chars)", n, MaxAddressLength))
	}

	if !emailPattern.MatchString(email) {
		errs = append(errs, "Invalid email format")
	}

	local, _, _ := strings.Cut(email, "@")
	if utf8.RuneCountInString(local) > MaxLocalPartLength {
		errs = append(errs, fmt.Sprintf("Local part too long (max %d chars)", MaxLocalPartLength))
	}

	return ValidationResult{Valid: len(errs) == 0, Errors: errs}
}
