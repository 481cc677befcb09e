package repository

import (
	"errors"
	"fmt"
	"time"

	"shifttask-backend/internal/directory/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// EmployeeRepository resolves employees and their reporting lines
type EmployeeRepository interface {
	UpsertEmployee(employee *domain.Employee) error
	UpsertDepartment(department *domain.Department) error
	FindByID(id string) (*domain.Employee, error)
	// FindDepartmentManager returns the manager of the employee's department, or nil
	FindDepartmentManager(employeeID string) (*domain.Employee, error)
	// FindManager returns the employee's direct manager, or nil
	FindManager(employeeID string) (*domain.Employee, error)
}

// employeeRepository implements EmployeeRepository interface
type employeeRepository struct {
	db *gorm.DB
}

// NewEmployeeRepository creates a new instance of employeeRepository
func NewEmployeeRepository(db *gorm.DB) EmployeeRepository {
	return &employeeRepository{db: db}
}

func (r *employeeRepository) UpsertEmployee(employee *domain.Employee) error {
	now := time.Now()
	if employee.CreatedAt.IsZero() {
		employee.CreatedAt = now
	}
	employee.UpdatedAt = now
	err := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "user_id", "work_email", "work_phone", "department_id", "manager_id", "location_id", "updated_at"}),
	}).Create(employee).Error
	if err != nil {
		return fmt.Errorf("upsert employee %s: %w", employee.ID, err)
	}
	return nil
}

func (r *employeeRepository) UpsertDepartment(department *domain.Department) error {
	now := time.Now()
	if department.CreatedAt.IsZero() {
		department.CreatedAt = now
	}
	department.UpdatedAt = now
	err := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "manager_id", "updated_at"}),
	}).Create(department).Error
	if err != nil {
		return fmt.Errorf("upsert department %s: %w", department.ID, err)
	}
	return nil
}

func (r *employeeRepository) FindByID(id string) (*domain.Employee, error) {
	if id == "" {
		return nil, nil
	}
	var employee domain.Employee
	err := r.db.Where("id = ?", id).First(&employee).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &employee, nil
}

func (r *employeeRepository) FindDepartmentManager(employeeID string) (*domain.Employee, error) {
	employee, err := r.FindByID(employeeID)
	if err != nil || employee == nil || employee.DepartmentID == "" {
		return nil, err
	}
	var department domain.Department
	err = r.db.Where("id = ?", employee.DepartmentID).First(&department).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.FindByID(department.ManagerID)
}

func (r *employeeRepository) FindManager(employeeID string) (*domain.Employee, error) {
	employee, err := r.FindByID(employeeID)
	if err != nil || employee == nil {
		return nil, err
	}
	return r.FindByID(employee.ManagerID)
}
