package directory

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// Contact is one personnel directory record as seen by the notification core.
type Contact struct {
	ID    string
	Name  string
	Email string
	Phone string
}

// ContactDirectory resolves personnel ids to contact records. Lookup must be
// a single batched query, not one call per id.
type ContactDirectory interface {
	Lookup(ctx context.Context, ids []string) ([]Contact, error)
}

// PersonnelModel is the persistence model for the personnel table, the
// read-only directory the rest of the command application maintains.
type PersonnelModel struct {
	ID        string  `gorm:"type:uuid;primaryKey"`
	BadgeNo   string  `gorm:"type:varchar(32);not null"`
	FullName  string  `gorm:"type:varchar(255);not null"`
	Rank      *string `gorm:"type:varchar(64)"`
	Unit      *string `gorm:"type:varchar(128)"`
	Email     *string `gorm:"type:varchar(255)"`
	Phone     *string `gorm:"type:varchar(32)"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (PersonnelModel) TableName() string {
	return "personnel"
}

type GormContactDirectory struct {
	db *gorm.DB
}

func NewGormContactDirectory(db *gorm.DB) *GormContactDirectory {
	return &GormContactDirectory{db: db}
}

func (d *GormContactDirectory) Lookup(ctx context.Context, ids []string) ([]Contact, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var models []PersonnelModel
	err := d.db.WithContext(ctx).
		Where("id IN ?", ids).
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	contacts := make([]Contact, 0, len(models))
	for i := range models {
		contacts = append(contacts, contactFromModel(&models[i]))
	}

	return contacts, nil
}

func contactFromModel(m *PersonnelModel) Contact {
	c := Contact{
		ID:   m.ID,
		Name: m.FullName,
	}
	if m.Email != nil {
		c.Email = *m.Email
	}
	if m.Phone != nil {
		c.Phone = *m.Phone
	}
	return c
}
