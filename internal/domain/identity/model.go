package identity

import (
	"time"

	"github.com/google/uuid"
)

// Staff roles. Admin passes every role check.
const (
	RoleDoctor     = "doctor"
	RoleNurse      = "nurse"
	RolePharmacist = "pharmacist"
	RoleAdmin      = "admin"
)

var validRoles = map[string]bool{
	RoleDoctor:     true,
	RoleNurse:      true,
	RolePharmacist: true,
	RoleAdmin:      true,
}

func ValidRole(r string) bool { return validRoles[r] }

// StaffUser is a hospital employee account. PasswordHash never leaves
// the server.
type StaffUser struct {
	ID            uuid.UUID `json:"id"`
	Email         string    `json:"email"`
	PasswordHash  string    `json:"-"`
	FullName      string    `json:"full_name"`
	Role          string    `json:"role"`
	Specialty     *string   `json:"specialty,omitempty"`
	LicenseNumber *string   `json:"license_number,omitempty"`
	Active        bool      `json:"active"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Patient is a registered patient. MRN is the human-facing medical
// record number, assigned at registration and immutable afterwards.
type Patient struct {
	ID         uuid.UUID  `json:"id"`
	MRN        string     `json:"mrn"`
	Name       string     `json:"name"`
	BirthDate  *time.Time `json:"birth_date,omitempty"`
	Gender     string     `json:"gender,omitempty"`
	Phone      string     `json:"phone,omitempty"`
	Email      string     `json:"email,omitempty"`
	BloodGroup string     `json:"blood_group,omitempty"`
	Address    string     `json:"address,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}
