package db

import "time"

// 房间表
type Room struct {
	RoomID      int       `gorm:"primaryKey;autoIncrement:false" json:"roomId"`
	Name        string    `gorm:"type:varchar(64)" json:"name"`
	AmbientTemp float64   `json:"ambientTemperature"` // 室温
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

// 送风详单表, 每条对应一段连续送风
type UsageRecord struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)"`
	RoomID    int       `gorm:"index"`
	BeginTime time.Time `gorm:"type:datetime"`
	EndTime   time.Time `gorm:"type:datetime;index"`
	BeginTemp float64
	EndTemp   float64
	Speed     string `gorm:"type:varchar(10)"`
	Price     float64
	Fee       float64
	Checked   bool `gorm:"default:false"` // 是否已结账
}

// 空调系统配置表, 只保留一行
type ACConfig struct {
	ID           int    `gorm:"primaryKey"`
	Mode         string `gorm:"type:varchar(20)"` // cooling/heating
	MinTemp      float64
	MaxTemp      float64
	LowRate      float64
	MediumRate   float64
	HighRate     float64
	BackSpeed    float64
	Threshold    float64
	Price        float64
	Factor       float64
	Capacity     int
	TimeSlice    int
	TickInterval time.Duration
	DefaultTemp  float64
	DefaultSpeed string    `gorm:"type:varchar(10)"`
	MainUnitOn   bool      `gorm:"default:false"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime"`
}
