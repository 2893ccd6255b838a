package domain

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Hostels is the fixed list offered during intake.
var Hostels = []string{
	"John", "Joseph", "Paul", "Peter", "Daniel",
	"Esther", "Mary", "Deborah", "Lydia", "Dorcas",
}

// Category pairs a display label with its compact storage key.
type Category struct {
	Key   string
	Label string
}

// Categories is the fixed list offered during intake.
var Categories = []Category{
	{Key: "plumbing", Label: "Plumbing / Water"},
	{Key: "electrical", Label: "Electrical / Lighting"},
	{Key: "structural", Label: "Structural / Furniture"},
	{Key: "pest", Label: "Pest Control"},
	{Key: "common_area", Label: "Common Area / Facility"},
	{Key: "other", Label: "Other / Not Listed"},
}

// Severities lists the accepted severity values in ascending order.
var Severities = []Severity{SeverityLow, SeverityMedium, SeverityHigh}

const (
	DescriptionMinLength = 10
	DescriptionMaxLength = 500
)

var roomNumberPattern = regexp.MustCompile(`^[A-H][0-9]{3}$`)

// IsHostel reports whether name is one of the configured hostels.
func IsHostel(name string) bool {
	for _, h := range Hostels {
		if h == name {
			return true
		}
	}
	return false
}

// CategoryByKey looks up a category by storage key.
func CategoryByKey(key string) (Category, bool) {
	for _, c := range Categories {
		if c.Key == key {
			return c, true
		}
	}
	return Category{}, false
}

// IsSeverity reports whether s is an accepted severity.
func IsSeverity(s Severity) bool {
	for _, candidate := range Severities {
		if candidate == s {
			return true
		}
	}
	return false
}

// NormalizeRoomNumber uppercases the input and, when it is a valid room
// number, returns it with the wing letter.
func NormalizeRoomNumber(input string) (room string, wing string, ok bool) {
	room = strings.ToUpper(input)
	if !roomNumberPattern.MatchString(room) {
		return "", "", false
	}
	return room, room[:1], true
}

// ValidDescription reports whether the description length is in range.
func ValidDescription(text string) bool {
	n := utf8.RuneCountInString(text)
	return n >= DescriptionMinLength && n <= DescriptionMaxLength
}
