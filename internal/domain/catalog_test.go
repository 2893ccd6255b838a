package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeRoomNumber(t *testing.T) {
	cases := []struct {
		in       string
		room     string
		wing     string
		accepted bool
	}{
		{"a101", "A101", "A", true},
		{"H999", "H999", "H", true},
		{"I101", "", "", false},
		{"A10", "", "", false},
		{"A1011", "", "", false},
		{"101A", "", "", false},
	}
	for _, tc := range cases {
		room, wing, ok := NormalizeRoomNumber(tc.in)
		assert.Equal(t, tc.accepted, ok, tc.in)
		assert.Equal(t, tc.room, room, tc.in)
		assert.Equal(t, tc.wing, wing, tc.in)
	}
}

func TestValidDescriptionCountsCharacters(t *testing.T) {
	assert.False(t, ValidDescription("too short"))
	assert.True(t, ValidDescription("ten chars!"))
	assert.True(t, ValidDescription(strings.Repeat("é", 500)))
	assert.False(t, ValidDescription(strings.Repeat("a", 501)))
}

func TestCatalogLookups(t *testing.T) {
	assert.True(t, IsHostel("Dorcas"))
	assert.False(t, IsHostel("dorcas"))

	cat, ok := CategoryByKey("common_area")
	assert.True(t, ok)
	assert.Equal(t, "Common Area / Facility", cat.Label)
	_, ok = CategoryByKey("Pest Control")
	assert.False(t, ok)

	assert.True(t, IsSeverity(SeverityHigh))
	assert.False(t, IsSeverity(Severity("urgent")))
}

func TestRoleAndStatusValidity(t *testing.T) {
	assert.True(t, RoleService.Valid())
	assert.False(t, Role("student").Valid())
	assert.True(t, RoleAdmin.Elevated())
	assert.False(t, RoleService.Elevated())

	for _, s := range AllTicketStatuses {
		assert.True(t, s.Valid(), s)
	}
	assert.False(t, TicketStatus("archived").Valid())
}

func TestTicketCloneIsDeep(t *testing.T) {
	porter := "p-1"
	original := &Ticket{ID: "t-1", AssignedPorterID: &porter}
	clone := original.Clone()
	*clone.AssignedPorterID = "p-2"
	assert.Equal(t, "p-1", *original.AssignedPorterID)
}
