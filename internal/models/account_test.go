package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAccountPermissions(t *testing.T) {
	owner := Account{ID: "a"}
	staff := Account{ID: "b", IsInternal: true, IsStaff: true}
	external := Account{ID: "c", IsStaff: true, IsSuperuser: true}

	assert.True(t, owner.CanAccess("a"))
	assert.False(t, owner.CanAccess("b"))
	assert.True(t, staff.IsInternalAdmin())
	assert.True(t, staff.CanAccess("a"))
	assert.False(t, external.IsInternalAdmin())
	assert.False(t, external.CanAccess("a"))
}

func TestAccountNormalize(t *testing.T) {
	a := Account{Email: "a@x.com", Username: "other", IsSuperuser: true}
	a.Normalize()

	assert.Equal(t, "a@x.com", a.Username)
	assert.True(t, a.IsStaff)
}

func TestFullName(t *testing.T) {
	assert.Equal(t, "Ada Lovelace", Account{FirstName: "Ada", LastName: "Lovelace"}.FullName())
	assert.Equal(t, "Ada", Account{FirstName: "Ada"}.FullName())
	assert.Equal(t, "Lovelace", Account{LastName: "Lovelace"}.FullName())
}

func TestResetTokenUsable(t *testing.T) {
	now := time.Now()
	used := now.Add(-time.Minute)

	assert.True(t, PasswordResetToken{ExpiresAt: now.Add(time.Hour)}.Usable(now))
	assert.False(t, PasswordResetToken{ExpiresAt: now.Add(-time.Second)}.Usable(now))
	assert.False(t, PasswordResetToken{ExpiresAt: now.Add(time.Hour), UsedAt: &used}.Usable(now))
}
