package models

import (
	"context"
	"time"

	"github.com/mmsoftworks/godown_backend/config"
	"github.com/mmsoftworks/godown_backend/utils"
)

type Godown struct {
	ID        int       `gorm:"primary_key" json:"id"`
	Name      string    `gorm:"size:100;uniqueIndex;not null" json:"name"`
	Location  string    `gorm:"size:255" json:"location"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewGodown struct {
	Name     string `json:"name" binding:"required"`
	Location string `json:"location"`
}

func (input *NewGodown) validate(ctx context.Context) error {
	if err := utils.ValidateUnique[Godown](ctx, "name", input.Name, 0); err != nil {
		return err
	}
	return nil
}

func CreateGodown(ctx context.Context, input *NewGodown) (*Godown, error) {
	logger := config.GetLogger()
	db := config.GetDB()

	if err := input.validate(ctx); err != nil {
		return nil, err
	}

	godown := Godown{
		Name:     input.Name,
		Location: input.Location,
	}
	if err := db.WithContext(ctx).Create(&godown).Error; err != nil {
		config.LogError(logger, "godown", "CreateGodown", "Error creating godown", input, err)
		return nil, err
	}

	// invalidate cached list
	if err := utils.RemoveRedisList[Godown](); err != nil {
		config.LogError(logger, "godown", "CreateGodown", "Error clearing godown cache", nil, err)
	}

	return &godown, nil
}

func GetGodown(ctx context.Context, id int) (*Godown, error) {
	return utils.FetchSingleModel[Godown](ctx, id)
}

// GetGodowns lists godowns, redis cached.
func GetGodowns(ctx context.Context) ([]*Godown, error) {
	godowns, err := utils.RetrieveRedisList[Godown]()
	if err != nil {
		return nil, err
	}
	if godowns == nil {
		godowns, err = utils.FetchAllModels[Godown](ctx)
		if err != nil {
			return nil, err
		}
		if err := utils.StoreRedisList[Godown](godowns); err != nil {
			return nil, err
		}
	}
	return godowns, nil
}
