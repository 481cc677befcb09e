package audit

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Note is one append-only entry in a record's history
type Note struct {
	ID           string    `json:"id" gorm:"primaryKey"`
	ResourceType string    `json:"resource_type" gorm:"index:idx_audit_resource;not null"`
	ResourceID   string    `json:"resource_id" gorm:"index:idx_audit_resource;not null"`
	Body         string    `json:"body"`
	CreatedAt    time.Time `json:"created_at"`
}

func (n *Note) BeforeCreate(tx *gorm.DB) error {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	return nil
}

// Log appends and reads audit notes
type Log struct {
	db *gorm.DB
}

func NewLog(db *gorm.DB) *Log {
	return &Log{db: db}
}

// Note appends a note to the resource's history.
func (l *Log) Note(resourceType, resourceID, body string) error {
	return l.db.Create(&Note{ResourceType: resourceType, ResourceID: resourceID, Body: body}).Error
}

// History returns the notes of a resource, oldest first.
func (l *Log) History(resourceType, resourceID string) ([]Note, error) {
	var notes []Note
	err := l.db.Where("resource_type = ? AND resource_id = ?", resourceType, resourceID).
		Order("created_at ASC").Find(&notes).Error
	return notes, err
}
