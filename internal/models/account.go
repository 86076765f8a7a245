package models

import "time"

type Account struct {
	ID            string
	Email         string
	Username      string
	PasswordHash  []byte
	FirstName     string
	LastName      string
	Avatar        *string
	IsActive      bool
	EmailVerified bool
	IsInternal    bool
	IsStaff       bool
	IsSuperuser   bool
	LastLogin     *time.Time
	DateJoined    time.Time
	UpdatedAt     time.Time
}

// IsInternalAdmin reports whether the account may administer other accounts.
func (a Account) IsInternalAdmin() bool {
	return a.IsInternal && (a.IsSuperuser || a.IsStaff)
}

// CanAccess reports whether a may read or modify target.
func (a Account) CanAccess(targetID string) bool {
	return a.ID == targetID || a.IsInternalAdmin()
}

func (a Account) FullName() string {
	switch {
	case a.FirstName == "":
		return a.LastName
	case a.LastName == "":
		return a.FirstName
	}
	return a.FirstName + " " + a.LastName
}

// Normalize keeps the username mirrored from the email and staff set for superusers.
func (a *Account) Normalize() {
	a.Username = a.Email
	if a.IsSuperuser {
		a.IsStaff = true
	}
}
