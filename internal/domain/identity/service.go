package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hms/hms/internal/platform/auth"
)

var (
	ErrStaffNotFound      = errors.New("staff user not found")
	ErrPatientNotFound    = errors.New("patient not found")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrAccountDisabled    = errors.New("account is disabled")
)

type Service struct {
	staff    StaffRepository
	patients PatientRepository
	tokens   *auth.TokenIssuer
	log      zerolog.Logger
}

func NewService(staff StaffRepository, patients PatientRepository, tokens *auth.TokenIssuer, logger zerolog.Logger) *Service {
	return &Service{staff: staff, patients: patients, tokens: tokens, log: logger}
}

// RegisterStaff creates a staff account with a bcrypt-hashed password.
// Admin-only at the handler layer.
func (s *Service) RegisterStaff(ctx context.Context, u *StaffUser, password string) error {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	if u.Email == "" || !strings.Contains(u.Email, "@") {
		return fmt.Errorf("a valid email is required")
	}
	if u.FullName == "" {
		return fmt.Errorf("full_name is required")
	}
	if !ValidRole(u.Role) {
		return fmt.Errorf("invalid role: %s", u.Role)
	}

	if _, err := s.staff.GetByEmail(ctx, u.Email); err == nil {
		return ErrEmailTaken
	} else if !errors.Is(err, ErrStaffNotFound) {
		return err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	u.Active = true

	if err := s.staff.Create(ctx, u); err != nil {
		return err
	}
	s.log.Info().
		Str("staff_id", u.ID.String()).
		Str("role", u.Role).
		Msg("staff user registered")
	return nil
}

// Login verifies credentials and returns a signed access token. The
// error is the same for a missing account and a wrong password.
func (s *Service) Login(ctx context.Context, email, password string) (string, *StaffUser, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	u, err := s.staff.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrStaffNotFound) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, err
	}
	if !auth.VerifyPassword(u.PasswordHash, password) {
		return "", nil, ErrInvalidCredentials
	}
	if !u.Active {
		return "", nil, ErrAccountDisabled
	}

	token, err := s.tokens.Issue(u.ID.String(), u.FullName, []string{u.Role})
	if err != nil {
		return "", nil, err
	}
	s.log.Info().Str("staff_id", u.ID.String()).Msg("staff user logged in")
	return token, u, nil
}

func (s *Service) GetStaff(ctx context.Context, id uuid.UUID) (*StaffUser, error) {
	return s.staff.GetByID(ctx, id)
}

func (s *Service) ListStaff(ctx context.Context, role string, limit, offset int) ([]*StaffUser, int, error) {
	if role != "" && !ValidRole(role) {
		return nil, 0, fmt.Errorf("invalid role: %s", role)
	}
	return s.staff.List(ctx, role, limit, offset)
}

// SetStaffActive enables or disables a staff account.
func (s *Service) SetStaffActive(ctx context.Context, id uuid.UUID, active bool) (*StaffUser, error) {
	u, err := s.staff.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	u.Active = active
	if err := s.staff.Update(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// RegisterPatient creates a patient record and assigns its MRN.
func (s *Service) RegisterPatient(ctx context.Context, p *Patient) error {
	if p.Name == "" {
		return fmt.Errorf("name is required")
	}
	p.MRN = newMRN()
	if err := s.patients.Create(ctx, p); err != nil {
		return err
	}
	s.log.Info().
		Str("patient_id", p.ID.String()).
		Str("mrn", p.MRN).
		Msg("patient registered")
	return nil
}

func (s *Service) GetPatient(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return s.patients.GetByID(ctx, id)
}

func (s *Service) GetPatientByMRN(ctx context.Context, mrn string) (*Patient, error) {
	return s.patients.GetByMRN(ctx, mrn)
}

func (s *Service) ListPatients(ctx context.Context, limit, offset int) ([]*Patient, int, error) {
	return s.patients.List(ctx, limit, offset)
}

// UpdatePatient merges mutable fields into the stored patient. MRN and
// identity are never changed.
func (s *Service) UpdatePatient(ctx context.Context, p *Patient) error {
	existing, err := s.patients.GetByID(ctx, p.ID)
	if err != nil {
		return err
	}
	if p.Name == "" {
		p.Name = existing.Name
	}
	p.MRN = existing.MRN
	return s.patients.Update(ctx, p)
}

// newMRN derives a short medical record number from a fresh uuid.
func newMRN() string {
	return "MRN-" + strings.ToUpper(uuid.NewString()[:8])
}
