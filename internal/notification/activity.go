package notification

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Activity is an in-app to-do shown to a user, the in-app side of a notification.
type Activity struct {
	ID         string     `json:"id" gorm:"primaryKey"`
	UserID     string     `json:"user_id" gorm:"index;not null"`
	EmployeeID string     `json:"employee_id" gorm:"index"`
	Kind       Kind       `json:"kind" gorm:"index"`
	ResourceID string     `json:"resource_id" gorm:"index"`
	Summary    string     `json:"summary"`
	Note       string     `json:"note"`
	ReadAt     *time.Time `json:"read_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

func (a *Activity) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	return nil
}

// ActivityRepository stores in-app activities
type ActivityRepository interface {
	Create(activity *Activity) error
	FindByUser(userID string, limit int) ([]*Activity, error)
}

type gormActivityRepository struct {
	db *gorm.DB
}

// NewGormActivityRepository creates a new GORM-based ActivityRepository
func NewGormActivityRepository(db *gorm.DB) ActivityRepository {
	return &gormActivityRepository{db: db}
}

func (r *gormActivityRepository) Create(activity *Activity) error {
	return r.db.Create(activity).Error
}

func (r *gormActivityRepository) FindByUser(userID string, limit int) ([]*Activity, error) {
	var activities []*Activity
	err := r.db.Where("user_id = ?", userID).Order("created_at DESC").Limit(limit).Find(&activities).Error
	return activities, err
}
