// internal/db/ac_config.go

package db

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

const configRowID = 1

// IACConfigRepository 空调配置仓库接口
type IACConfigRepository interface {
	// Load 读取配置, 尚未保存过时返回 nil
	Load(ctx context.Context) (*ACConfig, error)
	Save(ctx context.Context, config *ACConfig) error
	SetMainUnitState(ctx context.Context, on bool) error
}

type ACConfigRepository struct {
	db *gorm.DB
}

func NewACConfigRepository(db *gorm.DB) *ACConfigRepository {
	return &ACConfigRepository{db: db}
}

func (r *ACConfigRepository) Load(ctx context.Context) (*ACConfig, error) {
	var config ACConfig
	err := r.db.WithContext(ctx).First(&config, configRowID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &config, nil
}

// Save 覆盖唯一的配置行
func (r *ACConfigRepository) Save(ctx context.Context, config *ACConfig) error {
	config.ID = configRowID
	return r.db.WithContext(ctx).Save(config).Error
}

// SetMainUnitState 只更新总开关, 没有配置行时不写入
func (r *ACConfigRepository) SetMainUnitState(ctx context.Context, on bool) error {
	return r.db.WithContext(ctx).Model(&ACConfig{}).Where("id = ?", configRowID).Update("main_unit_on", on).Error
}
