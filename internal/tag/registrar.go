package tag

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Registrar resolves tag names to rows, creating missing tags. Lookups and
// inserts run on the caller's transaction handle so a rollback of the
// enclosing post mutation also reverts any tag created for it. Names match
// exactly, case-sensitive; tags are never deleted here or anywhere else.
type Registrar interface {
	FindOrCreate(tx *gorm.DB, name string) (*Tag, error)
}

type registrar struct{}

func NewRegistrar() Registrar { return registrar{} }

func (registrar) FindOrCreate(tx *gorm.DB, name string) (*Tag, error) {
	var t Tag
	err := tx.Where("name = ?", name).First(&t).Error
	if err == nil {
		return &t, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	t = Tag{ID: uuid.New(), Name: name}
	if err := tx.Create(&t).Error; err != nil {
		return nil, err
	}
	return &t, nil
}
