package entity

import "github.com/terraed/backend/pkg/enum"

type UserRole string

var (
	RoleStudent = enum.New(UserRole("student"))
	RoleTeacher = enum.New(UserRole("teacher"))
	RolePartner = enum.New(UserRole("partner"))
)

// ReviewerRoles may work the manual review queue.
var ReviewerRoles = []UserRole{RoleTeacher}

// User mirrors an account of the identity service. Only the role is used
// here, to gate review and partner operations.
type User struct {
	Base
	Name string
	Role UserRole `gorm:"default:student"`
}
