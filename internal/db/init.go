package db

import (
	"errors"
	"fmt"
	"time"

	"acdispatch/internal/logger"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Open 打开 sqlite 数据库并迁移表结构
// seed 为 true 且房间表为空时写入默认房间
func Open(dsn string, seed bool) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get db: %w", err)
	}
	// sqlite 单写者
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(&Room{}, &UsageRecord{}, &ACConfig{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	if seed {
		if err := seedRooms(db); err != nil {
			return nil, err
		}
	}
	return db, nil
}

// Close 关闭底层连接
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// DefaultRooms 默认房间及室温
var DefaultRooms = []Room{
	{RoomID: 1, Name: "101", AmbientTemp: 32},
	{RoomID: 2, Name: "102", AmbientTemp: 28},
	{RoomID: 3, Name: "103", AmbientTemp: 30},
	{RoomID: 4, Name: "104", AmbientTemp: 29},
	{RoomID: 5, Name: "105", AmbientTemp: 35},
}

func seedRooms(db *gorm.DB) error {
	var count int64
	if err := db.Model(&Room{}).Count(&count).Error; err != nil {
		return fmt.Errorf("count rooms: %w", err)
	}
	if count > 0 {
		return nil
	}

	var errs []error
	for _, room := range DefaultRooms {
		room := room
		if err := db.Create(&room).Error; err != nil {
			logger.Error("创建房间 %d 失败: %v", room.RoomID, err)
			errs = append(errs, err)
			continue
		}
		logger.Info("成功创建房间: %d", room.RoomID)
	}
	return errors.Join(errs...)
}
