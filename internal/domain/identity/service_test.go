package identity

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hms/hms/internal/platform/auth"
)

// -- Mock Repositories --

type mockStaffRepo struct {
	users map[uuid.UUID]*StaffUser
}

func newMockStaffRepo() *mockStaffRepo {
	return &mockStaffRepo{users: make(map[uuid.UUID]*StaffUser)}
}

func (m *mockStaffRepo) Create(_ context.Context, u *StaffUser) error {
	u.ID = uuid.New()
	u.CreatedAt = time.Now()
	u.UpdatedAt = time.Now()
	m.users[u.ID] = u
	return nil
}

func (m *mockStaffRepo) GetByID(_ context.Context, id uuid.UUID) (*StaffUser, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, ErrStaffNotFound
	}
	return u, nil
}

func (m *mockStaffRepo) GetByEmail(_ context.Context, email string) (*StaffUser, error) {
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, ErrStaffNotFound
}

func (m *mockStaffRepo) List(_ context.Context, role string, limit, offset int) ([]*StaffUser, int, error) {
	var result []*StaffUser
	for _, u := range m.users {
		if role != "" && u.Role != role {
			continue
		}
		result = append(result, u)
	}
	return result, len(result), nil
}

func (m *mockStaffRepo) Update(_ context.Context, u *StaffUser) error {
	if _, ok := m.users[u.ID]; !ok {
		return ErrStaffNotFound
	}
	m.users[u.ID] = u
	return nil
}

type mockPatientRepo struct {
	patients map[uuid.UUID]*Patient
}

func newMockPatientRepo() *mockPatientRepo {
	return &mockPatientRepo{patients: make(map[uuid.UUID]*Patient)}
}

func (m *mockPatientRepo) Create(_ context.Context, p *Patient) error {
	p.ID = uuid.New()
	p.CreatedAt = time.Now()
	p.UpdatedAt = time.Now()
	m.patients[p.ID] = p
	return nil
}

func (m *mockPatientRepo) GetByID(_ context.Context, id uuid.UUID) (*Patient, error) {
	p, ok := m.patients[id]
	if !ok {
		return nil, ErrPatientNotFound
	}
	return p, nil
}

func (m *mockPatientRepo) GetByMRN(_ context.Context, mrn string) (*Patient, error) {
	for _, p := range m.patients {
		if p.MRN == mrn {
			return p, nil
		}
	}
	return nil, ErrPatientNotFound
}

func (m *mockPatientRepo) List(_ context.Context, limit, offset int) ([]*Patient, int, error) {
	var result []*Patient
	for _, p := range m.patients {
		result = append(result, p)
	}
	return result, len(result), nil
}

func (m *mockPatientRepo) Update(_ context.Context, p *Patient) error {
	if _, ok := m.patients[p.ID]; !ok {
		return ErrPatientNotFound
	}
	m.patients[p.ID] = p
	return nil
}

func newTestService() (*Service, *mockStaffRepo, *mockPatientRepo) {
	staff := newMockStaffRepo()
	patients := newMockPatientRepo()
	tokens := auth.NewTokenIssuer("test-secret-at-least-32-characters!!", "hms", time.Hour)
	return NewService(staff, patients, tokens, zerolog.New(io.Discard)), staff, patients
}

// -- Staff registration and login --

func TestRegisterStaff(t *testing.T) {
	svc, staff, _ := newTestService()

	u := &StaffUser{Email: "Doc@Hospital.org", FullName: "Dr. Gray", Role: RoleDoctor}
	if err := svc.RegisterStaff(context.Background(), u, "s3cure-pass"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stored := staff.users[u.ID]
	if stored.Email != "doc@hospital.org" {
		t.Errorf("email = %q, want lowercased", stored.Email)
	}
	if stored.PasswordHash == "" || stored.PasswordHash == "s3cure-pass" {
		t.Error("password must be stored hashed")
	}
	if !stored.Active {
		t.Error("new staff users must start active")
	}
}

func TestRegisterStaff_DuplicateEmail(t *testing.T) {
	svc, _, _ := newTestService()

	first := &StaffUser{Email: "doc@hospital.org", FullName: "Dr. Gray", Role: RoleDoctor}
	if err := svc.RegisterStaff(context.Background(), first, "s3cure-pass"); err != nil {
		t.Fatalf("setup register: %v", err)
	}

	dup := &StaffUser{Email: "doc@hospital.org", FullName: "Dr. Other", Role: RoleNurse}
	if err := svc.RegisterStaff(context.Background(), dup, "another-pass"); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("error = %v, want ErrEmailTaken", err)
	}
}

func TestRegisterStaff_Validation(t *testing.T) {
	svc, _, _ := newTestService()
	tests := []struct {
		name     string
		user     StaffUser
		password string
	}{
		{"missing email", StaffUser{FullName: "X", Role: RoleNurse}, "s3cure-pass"},
		{"bad email", StaffUser{Email: "not-an-email", FullName: "X", Role: RoleNurse}, "s3cure-pass"},
		{"missing name", StaffUser{Email: "a@b.org", Role: RoleNurse}, "s3cure-pass"},
		{"bad role", StaffUser{Email: "a@b.org", FullName: "X", Role: "janitor"}, "s3cure-pass"},
		{"short password", StaffUser{Email: "a@b.org", FullName: "X", Role: RoleNurse}, "short"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := tt.user
			if err := svc.RegisterStaff(context.Background(), &u, tt.password); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestLogin(t *testing.T) {
	svc, _, _ := newTestService()

	u := &StaffUser{Email: "doc@hospital.org", FullName: "Dr. Gray", Role: RoleDoctor}
	if err := svc.RegisterStaff(context.Background(), u, "s3cure-pass"); err != nil {
		t.Fatalf("setup register: %v", err)
	}

	token, got, err := svc.Login(context.Background(), "DOC@hospital.org", "s3cure-pass")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if token == "" {
		t.Error("expected a signed token")
	}
	if got.ID != u.ID {
		t.Error("login should return the registered user")
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	svc, _, _ := newTestService()

	u := &StaffUser{Email: "doc@hospital.org", FullName: "Dr. Gray", Role: RoleDoctor}
	if err := svc.RegisterStaff(context.Background(), u, "s3cure-pass"); err != nil {
		t.Fatalf("setup register: %v", err)
	}

	_, _, err := svc.Login(context.Background(), "doc@hospital.org", "wrong-pass")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("error = %v, want ErrInvalidCredentials", err)
	}
}

func TestLogin_UnknownEmail(t *testing.T) {
	svc, _, _ := newTestService()

	_, _, err := svc.Login(context.Background(), "ghost@hospital.org", "whatever-pass")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("error = %v, want ErrInvalidCredentials", err)
	}
}

func TestLogin_DisabledAccount(t *testing.T) {
	svc, _, _ := newTestService()

	u := &StaffUser{Email: "doc@hospital.org", FullName: "Dr. Gray", Role: RoleDoctor}
	if err := svc.RegisterStaff(context.Background(), u, "s3cure-pass"); err != nil {
		t.Fatalf("setup register: %v", err)
	}
	if _, err := svc.SetStaffActive(context.Background(), u.ID, false); err != nil {
		t.Fatalf("disable account: %v", err)
	}

	_, _, err := svc.Login(context.Background(), "doc@hospital.org", "s3cure-pass")
	if !errors.Is(err, ErrAccountDisabled) {
		t.Fatalf("error = %v, want ErrAccountDisabled", err)
	}
}

func TestListStaff_InvalidRoleFilter(t *testing.T) {
	svc, _, _ := newTestService()
	if _, _, err := svc.ListStaff(context.Background(), "janitor", 20, 0); err == nil {
		t.Error("expected error for invalid role filter")
	}
}

// -- Patients --

func TestRegisterPatient(t *testing.T) {
	svc, _, patients := newTestService()

	p := &Patient{Name: "John Doe", Gender: "male", BloodGroup: "O+"}
	if err := svc.RegisterPatient(context.Background(), p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	stored := patients.patients[p.ID]
	if !strings.HasPrefix(stored.MRN, "MRN-") || len(stored.MRN) != 12 {
		t.Errorf("mrn = %q, want MRN-XXXXXXXX", stored.MRN)
	}
}

func TestRegisterPatient_RequiresName(t *testing.T) {
	svc, _, _ := newTestService()
	if err := svc.RegisterPatient(context.Background(), &Patient{}); err == nil {
		t.Error("expected error for missing name")
	}
}

func TestUpdatePatient_PreservesMRN(t *testing.T) {
	svc, _, patients := newTestService()

	p := &Patient{Name: "John Doe"}
	if err := svc.RegisterPatient(context.Background(), p); err != nil {
		t.Fatalf("setup register: %v", err)
	}
	originalMRN := p.MRN

	update := &Patient{ID: p.ID, Name: "John A. Doe", MRN: "MRN-HIJACKED", Phone: "555-0100"}
	if err := svc.UpdatePatient(context.Background(), update); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stored := patients.patients[p.ID]
	if stored.MRN != originalMRN {
		t.Errorf("mrn = %q, want %q", stored.MRN, originalMRN)
	}
	if stored.Name != "John A. Doe" || stored.Phone != "555-0100" {
		t.Error("mutable fields should be updated")
	}
}

func TestUpdatePatient_NotFound(t *testing.T) {
	svc, _, _ := newTestService()
	err := svc.UpdatePatient(context.Background(), &Patient{ID: uuid.New(), Name: "X"})
	if !errors.Is(err, ErrPatientNotFound) {
		t.Fatalf("error = %v, want ErrPatientNotFound", err)
	}
}

func TestGetPatientByMRN(t *testing.T) {
	svc, _, _ := newTestService()

	p := &Patient{Name: "John Doe"}
	if err := svc.RegisterPatient(context.Background(), p); err != nil {
		t.Fatalf("setup register: %v", err)
	}

	got, err := svc.GetPatientByMRN(context.Background(), p.MRN)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != p.ID {
		t.Error("lookup by mrn should return the registered patient")
	}
}
