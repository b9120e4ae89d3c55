package billing

import (
	"context"
	"time"

	"acdispatch/internal/db"

	"github.com/samber/lo"
)

// Detail 详单条目, 合并后可能覆盖多条记录
type Detail struct {
	RoomID    int       `json:"roomId"`
	BeginTime time.Time `json:"beginTime"`
	EndTime   time.Time `json:"endTime"`
	BeginTemp float64   `json:"beginTemperature"`
	EndTemp   float64   `json:"endTemperature"`
	Speed     string    `json:"fanSpeed"`
	Price     float64   `json:"price"`
	Fee       float64   `json:"fee"`
	Records   int       `json:"records"`
	Checked   bool      `json:"checked"`
}

// Summary 结账结果
type Summary struct {
	RoomID  int     `json:"roomId"`
	Total   float64 `json:"total"`
	Records int64   `json:"records"`
}

type BillingService interface {
	// Details 房间详单, merge 为 true 时合并首尾相接的同风速记录
	Details(ctx context.Context, roomID int, merge bool) ([]Detail, error)

	// Total 房间未结账费用合计
	Total(ctx context.Context, roomID int) (float64, error)

	// Checkout 结算并标记房间全部未结账记录
	Checkout(ctx context.Context, roomID int) (Summary, error)
}

type billingService struct {
	usageRepo db.IUsageRepository
}

func NewBillingService(usageRepo db.IUsageRepository) BillingService {
	return &billingService{usageRepo: usageRepo}
}

func (s *billingService) Details(ctx context.Context, roomID int, merge bool) ([]Detail, error) {
	records, err := s.usageRepo.ListByRoom(ctx, roomID, false)
	if err != nil {
		return nil, err
	}
	if merge {
		return MergeContiguous(records), nil
	}
	return lo.Map(records, func(r db.UsageRecord, _ int) Detail { return toDetail(r) }), nil
}

func (s *billingService) Total(ctx context.Context, roomID int) (float64, error) {
	return s.usageRepo.TotalFee(ctx, roomID, true)
}

func (s *billingService) Checkout(ctx context.Context, roomID int) (Summary, error) {
	total, n, err := s.usageRepo.Checkout(ctx, roomID)
	if err != nil {
		return Summary{}, err
	}
	return Summary{RoomID: roomID, Total: total, Records: n}, nil
}

func toDetail(r db.UsageRecord) Detail {
	return Detail{
		RoomID:    r.RoomID,
		BeginTime: r.BeginTime,
		EndTime:   r.EndTime,
		BeginTemp: r.BeginTemp,
		EndTemp:   r.EndTemp,
		Speed:     r.Speed,
		Price:     r.Price,
		Fee:       r.Fee,
		Records:   1,
		Checked:   r.Checked,
	}
}

// MergeContiguous 合并风速相同且结束时间与下一条开始时间在同一秒的记录
// records 需按时间排序
func MergeContiguous(records []db.UsageRecord) []Detail {
	var out []Detail
	for _, r := range records {
		if n := len(out); n > 0 {
			last := &out[n-1]
			if last.Speed == r.Speed && last.EndTime.Unix() == r.BeginTime.Unix() {
				last.EndTime = r.EndTime
				last.EndTemp = r.EndTemp
				last.Fee += r.Fee
				last.Records++
				last.Checked = last.Checked && r.Checked
				continue
			}
		}
		out = append(out, toDetail(r))
	}
	return out
}
