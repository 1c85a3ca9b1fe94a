// Package role defines the platform roles and the landing page each one
// is sent to after sign-in.
package role

import "strings"

// Role is one of student, teacher or admin.
type Role string

const (
	Student Role = "student"
	Teacher Role = "teacher"
	Admin   Role = "admin"
)

// Landing paths per role.
const (
	StudentDashboard = "/student/dashboard"
	TeacherDashboard = "/teacher/dashboard"
	AdminDashboard   = "/admin/dashboard"
)

var landing = map[Role]string{
	Admin:   AdminDashboard,
	Teacher: TeacherDashboard,
	Student: StudentDashboard,
}

// Parse normalizes s into a Role. The second result is false when s is not
// a known role; the returned Role is then empty.
func Parse(s string) (Role, bool) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := landing[r]; !ok {
		return "", false
	}
	return r, true
}

// OrDefault returns r when it is a known role and Student otherwise.
func OrDefault(r Role) Role {
	if _, ok := landing[r]; ok {
		return r
	}
	return Student
}

func (r Role) String() string { return string(r) }

// LandingPath maps a role to its dashboard. Unknown and empty roles land on
// the student dashboard.
func LandingPath(r Role) string {
	if p, ok := landing[r]; ok {
		return p
	}
	return StudentDashboard
}
