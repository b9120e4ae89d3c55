package db

import (
	"context"
	"errors"
	"fmt"

	"acdispatch/internal/types"

	"github.com/samber/lo"
	"gorm.io/gorm"
)

var (
	ErrRoomNotFound = errors.New("room not found")
	ErrRoomExists   = errors.New("room already exists")
)

// IRoomRepository 房间目录
type IRoomRepository interface {
	ListRooms(ctx context.Context) ([]Room, error)
	GetRoom(ctx context.Context, roomID int) (*Room, error)
	CreateRoom(ctx context.Context, room *Room) error
	DeleteRoom(ctx context.Context, roomID int) error
	Profiles(ctx context.Context) ([]types.RoomProfile, error)
}

type RoomRepository struct {
	db *gorm.DB
}

func NewRoomRepository(db *gorm.DB) *RoomRepository {
	return &RoomRepository{db: db}
}

// ListRooms 按房间号返回全部房间
func (r *RoomRepository) ListRooms(ctx context.Context) ([]Room, error) {
	var rooms []Room
	if err := r.db.WithContext(ctx).Order("room_id ASC").Find(&rooms).Error; err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	return rooms, nil
}

// GetRoom 通过房间号获取房间信息
func (r *RoomRepository) GetRoom(ctx context.Context, roomID int) (*Room, error) {
	var room Room
	err := r.db.WithContext(ctx).Where("room_id = ?", roomID).First(&room).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRoomNotFound
		}
		return nil, err
	}
	return &room, nil
}

func (r *RoomRepository) CreateRoom(ctx context.Context, room *Room) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&Room{}).Where("room_id = ?", room.RoomID).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return fmt.Errorf("room %d: %w", room.RoomID, ErrRoomExists)
		}
		return tx.Create(room).Error
	})
}

func (r *RoomRepository) DeleteRoom(ctx context.Context, roomID int) error {
	res := r.db.WithContext(ctx).Where("room_id = ?", roomID).Delete(&Room{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrRoomNotFound
	}
	return nil
}

// Profiles 供调度器加载的房间目录快照
func (r *RoomRepository) Profiles(ctx context.Context) ([]types.RoomProfile, error) {
	rooms, err := r.ListRooms(ctx)
	if err != nil {
		return nil, err
	}
	return lo.Map(rooms, func(room Room, _ int) types.RoomProfile {
		return types.RoomProfile{ID: room.RoomID, Name: room.Name, AmbientTemp: room.AmbientTemp}
	}), nil
}
