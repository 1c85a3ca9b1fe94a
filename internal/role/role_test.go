package role

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLandingPath(t *testing.T) {
	cases := []struct {
		role Role
		want string
	}{
		{Admin, "/admin/dashboard"},
		{Teacher, "/teacher/dashboard"},
		{Student, "/student/dashboard"},
		{Role("janitor"), "/student/dashboard"},
		{Role(""), "/student/dashboard"},
	}
	for _, tc := range cases {
		t.Run(string(tc.role), func(t *testing.T) {
			assert.Equal(t, tc.want, LandingPath(tc.role))
		})
	}
}

func TestLandingPathUnknownEqualsAbsent(t *testing.T) {
	assert.Equal(t, LandingPath(""), LandingPath("superuser"))
}

func TestParse(t *testing.T) {
	r, ok := Parse("  TEACHER ")
	assert.True(t, ok)
	assert.Equal(t, Teacher, r)

	r, ok = Parse("owner")
	assert.False(t, ok)
	assert.Equal(t, Role(""), r)
}

func TestOrDefault(t *testing.T) {
	assert.Equal(t, Admin, OrDefault(Admin))
	assert.Equal(t, Student, OrDefault(""))
	assert.Equal(t, Student, OrDefault("guest"))
}
