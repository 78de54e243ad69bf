package entity

// User is a directory entry for an employee who can act in the procurement flow
type User struct {
	ID         string `json:"id" yaml:"id"`
	Name       string `json:"name" yaml:"name"`
	Email      string `json:"email" yaml:"email"`
	Role       string `json:"role" yaml:"role"`
	Department string `json:"department" yaml:"department"`
	Company    string `json:"company" yaml:"company"`
}

// IsGeneralAffair returns true for users who administer templates and validation
func (u *User) IsGeneralAffair() bool {
	return u.Role == RoleGeneralAffair
}
