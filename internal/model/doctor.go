package model

type Doctor struct {
	Base
	FirstName      string `db:"first_name" json:"firstName"`
	LastName       string `db:"last_name" json:"lastName"`
	Email          string `db:"email" json:"email"`
	Phone          string `db:"phone" json:"phone"`
	Gender         string `db:"gender" json:"gender,omitempty"`
	Specialization string `db:"specialization" json:"specialization"`
	Department     string `db:"department" json:"department"`
	Experience     string `db:"experience" json:"experience,omitempty"`
	ProfileImage   string `db:"profile_image" json:"profileImage"`
	IsVerified     bool   `db:"is_verified" json:"isVerified"`
}

func (d *Doctor) FullName() string {
	return d.FirstName + " " + d.LastName
}
