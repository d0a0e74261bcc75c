package derive

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// AgeMode selects how the patient's age is entered.
type AgeMode string

const (
	ModeDOB    AgeMode = "DOB"
	ModeYear   AgeMode = "Year"
	ModeInfant AgeMode = "Infant"
)

func (m AgeMode) Valid() bool {
	return m == ModeDOB || m == ModeYear || m == ModeInfant
}

const (
	minBirthYear     = 1900
	maxInfantMonths  = 11
	maxInfantDays    = 31
	isoDate          = "2006-01-02"
	displayDateInput = "02/01/2006"
)

// Age holds the fields derived from an age input.
type Age struct {
	DOB     string `json:"dob"`
	Age     string `json:"age"`
	Display string `json:"age_display"`
}

var (
	dobPattern    = regexp.MustCompile(`^(\d{2})/(\d{2})/(\d{4})$`)
	yearPattern   = regexp.MustCompile(`^\d{4}$`)
	infantPattern = regexp.MustCompile(`(?i)^(\d+)(M|D)$`)
)

// ValidateDOB parses a DD/MM/YYYY date that is calendar valid and not after now.
func ValidateDOB(input string, now time.Time) Result[Age] {
	m := dobPattern.FindStringSubmatch(input)
	if m == nil {
		return invalid[Age]("DOB must be in DD/MM/YYYY format")
	}
	day, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	year, _ := strconv.Atoi(m[3])

	birth := time.Date(year, time.Month(month), day, 0, 0, 0, 0, now.Location())
	if birth.Day() != day || int(birth.Month()) != month || birth.Year() != year || birth.After(now) {
		return invalid[Age]("Invalid date")
	}
	return valid(Age{
		DOB: birth.Format(isoDate),
		Age: strconv.Itoa(YearsBetween(birth, now)),
	})
}

// YearsBetween returns the whole years from birth to now, one less when the
// birthday has not yet come round this year.
func YearsBetween(birth, now time.Time) int {
	years := now.Year() - birth.Year()
	if now.Month() < birth.Month() || (now.Month() == birth.Month() && now.Day() < birth.Day()) {
		years--
	}
	return years
}

// ValidateYear accepts a four digit birth year between 1900 and the current year.
func ValidateYear(input string, now time.Time) Result[Age] {
	if !yearPattern.MatchString(input) {
		return invalid[Age]("Year must be a 4-digit number")
	}
	year, _ := strconv.Atoi(input)
	current := now.Year()
	if year < minBirthYear || year > current {
		return invalid[Age](fmt.Sprintf("Year must be between %d and %d", minBirthYear, current))
	}
	return valid(Age{
		DOB: fmt.Sprintf("%04d-01-01", year),
		Age: strconv.Itoa(current - year),
	})
}

// ValidateInfant accepts "<N>M" (up to 11 months) or "<N>D" (up to 31 days).
// The date of birth becomes today and the age is "0".
func ValidateInfant(input string, now time.Time) Result[Age] {
	m := infantPattern.FindStringSubmatch(strings.TrimSpace(input))
	if m == nil {
		return invalid[Age]("Infant age must be in format X M or X D (e.g., 2M or 15D)")
	}
	unit := strings.ToUpper(m[2])
	n, err := strconv.Atoi(m[1])
	if unit == "M" && (err != nil || n > maxInfantMonths) {
		return invalid[Age]("Infant months must be 11 or less")
	}
	if unit == "D" && (err != nil || n > maxInfantDays) {
		return invalid[Age]("Infant days must be 31 or less")
	}
	return valid(Age{
		DOB:     now.Format(isoDate),
		Age:     "0",
		Display: fmt.Sprintf("%d %s", n, unit),
	})
}

// ResolveAge runs the validator for mode. A blank input resolves to an empty
// Age, which clears the derived fields.
func ResolveAge(mode AgeMode, input string, now time.Time) (Result[Age], error) {
	if mode.Valid() && strings.TrimSpace(input) == "" {
		return valid(Age{}), nil
	}
	switch mode {
	case ModeDOB:
		return ValidateDOB(input, now), nil
	case ModeYear:
		return ValidateYear(input, now), nil
	case ModeInfant:
		return ValidateInfant(input, now), nil
	}
	return Result[Age]{}, fmt.Errorf("unknown age mode %q", mode)
}

// FormatDOBInput masks raw keystrokes into DD/MM/YYYY, dropping non digits.
func FormatDOBInput(raw string) string {
	d := SanitizeDigits(raw, 8)
	switch {
	case len(d) <= 2:
		return d
	case len(d) <= 4:
		return d[:2] + "/" + d[2:]
	default:
		return d[:2] + "/" + d[2:4] + "/" + d[4:]
	}
}

// InferAgeMode picks the input mode a stored patient was most likely entered
// with and returns the value to prefill that input with.
func InferAgeMode(dob, age, display string, now time.Time) (AgeMode, string) {
	if dob == "" {
		return ModeDOB, ""
	}
	if age == "0" && dob == now.Format(isoDate) {
		return ModeInfant, display
	}
	if strings.HasSuffix(dob, "-01-01") {
		return ModeYear, strings.SplitN(dob, "-", 2)[0]
	}
	t, err := time.Parse(isoDate, dob)
	if err != nil {
		return ModeDOB, ""
	}
	return ModeDOB, t.Format(displayDateInput)
}
