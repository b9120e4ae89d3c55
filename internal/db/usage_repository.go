// internal/db/usage_repository.go
package db

import (
	"context"
	"fmt"

	"acdispatch/internal/logger"

	"github.com/samber/lo"
	"gorm.io/gorm"
)

// IUsageRepository 送风详单仓库接口
type IUsageRepository interface {
	CreateRecord(ctx context.Context, record *UsageRecord) error
	ListByRoom(ctx context.Context, roomID int, uncheckedOnly bool) ([]UsageRecord, error)
	TotalFee(ctx context.Context, roomID int, uncheckedOnly bool) (float64, error)
	Checkout(ctx context.Context, roomID int) (float64, int64, error)
}

type UsageRepository struct {
	db *gorm.DB
	// afterSum 在合计之后, 标记之前调用
	afterSum func(tx *gorm.DB)
}

func NewUsageRepository(db *gorm.DB) *UsageRepository {
	return &UsageRepository{db: db}
}

// CreateRecord 写入一条详单
func (r *UsageRepository) CreateRecord(ctx context.Context, record *UsageRecord) error {
	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		return fmt.Errorf("创建详单记录失败 - 房间ID: %d: %w", record.RoomID, err)
	}
	logger.Debug("成功创建详单记录 - 房间ID: %d, 开始时间: %v, 温度: %.2f -> %.2f, 费用: %.2f元, 风速: %s",
		record.RoomID, record.BeginTime.Format("15:04:05"), record.BeginTemp, record.EndTemp, record.Fee, record.Speed)
	return nil
}

// ListByRoom 按结束时间返回房间详单
func (r *UsageRepository) ListByRoom(ctx context.Context, roomID int, uncheckedOnly bool) ([]UsageRecord, error) {
	var records []UsageRecord
	q := r.db.WithContext(ctx).Where("room_id = ?", roomID)
	if uncheckedOnly {
		q = q.Where("checked = ?", false)
	}
	if err := q.Order("end_time ASC").Find(&records).Error; err != nil {
		logger.Error("获取房间详单失败 - 房间ID: %d, 错误: %v", roomID, err)
		return nil, fmt.Errorf("获取房间详单失败: %w", err)
	}
	return records, nil
}

// TotalFee 房间费用合计
func (r *UsageRepository) TotalFee(ctx context.Context, roomID int, uncheckedOnly bool) (float64, error) {
	var total float64
	q := r.db.WithContext(ctx).Model(&UsageRecord{}).Where("room_id = ?", roomID)
	if uncheckedOnly {
		q = q.Where("checked = ?", false)
	}
	if err := q.Select("COALESCE(SUM(fee), 0)").Scan(&total).Error; err != nil {
		return 0, fmt.Errorf("计算总费用失败: %w", err)
	}
	return total, nil
}

// Checkout 在同一事务内合计并标记房间未结账详单, 只标记参与合计的记录
func (r *UsageRepository) Checkout(ctx context.Context, roomID int) (float64, int64, error) {
	var (
		total float64
		n     int64
	)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var unchecked []UsageRecord
		if err := tx.Select("id", "fee").
			Where("room_id = ? AND checked = ?", roomID, false).
			Find(&unchecked).Error; err != nil {
			return err
		}
		if len(unchecked) == 0 {
			return nil
		}
		ids := lo.Map(unchecked, func(u UsageRecord, _ int) string { return u.ID })
		total = lo.SumBy(unchecked, func(u UsageRecord) float64 { return u.Fee })

		if r.afterSum != nil {
			r.afterSum(tx)
		}

		res := tx.Model(&UsageRecord{}).Where("id IN ?", ids).Update("checked", true)
		if res.Error != nil {
			return res.Error
		}
		n = res.RowsAffected
		return nil
	})
	if err != nil {
		return 0, 0, fmt.Errorf("结账失败 - 房间ID: %d: %w", roomID, err)
	}
	logger.Info("房间结账完成 - 房间ID: %d, 详单数: %d, 费用: %.2f元", roomID, n, total)
	return total, n, nil
}
