package repository

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/bcalm/launchpad_server/internal/model"
)

type ProfileRepository struct {
	db *gorm.DB
}

func NewProfileRepository(db *gorm.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

func (r *ProfileRepository) GetByID(id string) (*model.Profile, error) {
	var profile model.Profile
	err := r.db.Where("id = ?", id).First(&profile).Error
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

// Upsert inserts the profile or overwrites the given columns of an existing row.
func (r *ProfileRepository) Upsert(profile *model.Profile, columns ...string) error {
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns(append(columns, "updated_at")),
	}).Create(profile).Error
}
