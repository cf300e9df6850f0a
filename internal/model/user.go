package model

// User is a patient or admin account record. Credentials live with the
// identity provider and are never loaded here.
type User struct {
	Base
	FirstName string `db:"first_name" json:"firstName"`
	LastName  string `db:"last_name" json:"lastName"`
	Email     string `db:"email" json:"email"`
	Phone     string `db:"phone" json:"phone"`
	Role      Role   `db:"role" json:"role"`
}

func (u *User) FullName() string {
	return u.FirstName + " " + u.LastName
}
