package employees

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/harrypeter07/billsync/internal/sequence"
	"github.com/harrypeter07/billsync/internal/session"
	"github.com/harrypeter07/billsync/pkg/config"
	"github.com/harrypeter07/billsync/pkg/db"
	"github.com/harrypeter07/billsync/pkg/db/models"
	"github.com/harrypeter07/billsync/pkg/enums"
	pkgerrors "github.com/harrypeter07/billsync/pkg/errors"
	"github.com/harrypeter07/billsync/pkg/security"
)

// ServiceParams groups dependencies for the employee service.
type ServiceParams struct {
	DB       *gorm.DB
	Codes    *sequence.EmployeeCodeGenerator
	Sessions *session.Manager
	Password config.PasswordConfig
}

// Service manages store staff: hiring (with generated codes and hashed
// PINs) and local PIN login. Employee records live only in the local store;
// they are not mirrored remotely.
type Service struct {
	db       *gorm.DB
	codes    *sequence.EmployeeCodeGenerator
	sessions *session.Manager
	password config.PasswordConfig
}

// NewService builds an employee service.
func NewService(params ServiceParams) (*Service, error) {
	if params.DB == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "database is required")
	}
	if params.Codes == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "code generator is required")
	}
	if params.Sessions == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "session manager is required")
	}
	return &Service{
		db:       params.DB,
		codes:    params.Codes,
		sessions: params.Sessions,
		password: params.Password,
	}, nil
}

// Hire creates an employee with a freshly generated code and a hashed PIN.
// The generated code may race a concurrent hire in another process; the
// unique index on (store, code) rejects the loser, reported as a conflict.
func (s *Service) Hire(ctx context.Context, store models.Store, name, pin string) (*models.Employee, error) {
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "employee name is required")
	}
	if len(pin) < 4 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "pin must be at least 4 digits")
	}

	code, err := s.codes.Next(ctx, store.ID, store.Code, name)
	if err != nil {
		return nil, err
	}
	pinHash, err := security.HashPin(pin, s.password)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hashing pin")
	}

	employee := models.Employee{
		ID:       uuid.New(),
		StoreID:  store.ID,
		Name:     name,
		Code:     code,
		PinHash:  pinHash,
		Role:     enums.RoleEmployee,
		IsActive: true,
	}
	if err := s.db.WithContext(ctx).Create(&employee).Error; err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "employee code already taken")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorageFailure, err, "creating employee")
	}
	return &employee, nil
}

// Login verifies an employee's code and PIN and opens a local session.
func (s *Service) Login(ctx context.Context, storeID uuid.UUID, code, pin string) (*models.AuthSession, error) {
	var employee models.Employee
	err := s.db.WithContext(ctx).
		Where("store_id = ? AND code = ? AND is_active = ?", storeID, code, true).
		First(&employee).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid code or pin")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorageFailure, err, "loading employee")
	}

	ok, err := security.VerifyPin(pin, employee.PinHash)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verifying pin")
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid code or pin")
	}

	return s.sessions.Save(ctx, employee.ID, "", enums.RoleEmployee, &storeID)
}

// Logout clears the active session.
func (s *Service) Logout(ctx context.Context) error {
	return s.sessions.Clear(ctx)
}

// List returns the store's active staff.
func (s *Service) List(ctx context.Context, storeID uuid.UUID) ([]models.Employee, error) {
	var staff []models.Employee
	err := s.db.WithContext(ctx).
		Where("store_id = ? AND is_active = ?", storeID, true).
		Order("code ASC").
		Find(&staff).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorageFailure, err, "listing employees")
	}
	return staff, nil
}

// Deactivate disables an employee's login without deleting the record, so
// the code is never reissued.
func (s *Service) Deactivate(ctx context.Context, storeID, employeeID uuid.UUID) error {
	result := s.db.WithContext(ctx).Model(&models.Employee{}).
		Where("id = ? AND store_id = ?", employeeID, storeID).
		Update("is_active", false)
	if result.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeStorageFailure, result.Error, "deactivating employee")
	}
	if result.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "employee not found")
	}
	return nil
}

// ByCode resolves an active employee by code, used when stamping invoices.
func (s *Service) ByCode(ctx context.Context, storeID uuid.UUID, code string) (*models.Employee, error) {
	var employee models.Employee
	err := s.db.WithContext(ctx).
		Where("store_id = ? AND code = ? AND is_active = ?", storeID, code, true).
		First(&employee).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "employee not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorageFailure, err, "loading employee")
	}
	return &employee, nil
}
