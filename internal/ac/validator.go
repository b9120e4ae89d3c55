package ac

import (
	"errors"
	"fmt"

	"acdispatch/internal/config"
	"acdispatch/internal/types"
)

var (
	ErrSystemNotOpen    = errors.New("system not open")
	ErrTargetOutOfRange = errors.New("target temperature out of range")
	ErrNothingToCool    = errors.New("target temperature must be below room temperature when cooling")
	ErrNothingToHeat    = errors.New("target temperature must be above room temperature when heating")
	ErrInvalidSpeed     = errors.New("invalid fan speed")
)

// Validate 准入校验, 在提交给调度器之前同步执行
// 关机请求只要求系统已开启
func Validate(req types.Request, cfg config.SchedulerConfig, enabled bool, ambient float64) error {
	if !enabled {
		return ErrSystemNotOpen
	}
	if !req.Open {
		return nil
	}
	if !req.Speed.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidSpeed, req.Speed)
	}
	if req.TargetTemp < cfg.MinTemp || req.TargetTemp > cfg.MaxTemp {
		return fmt.Errorf("%w: %.1f not in [%.1f, %.1f]", ErrTargetOutOfRange, req.TargetTemp, cfg.MinTemp, cfg.MaxTemp)
	}
	if cfg.Cooling() && ambient <= req.TargetTemp {
		return fmt.Errorf("%w (room %.1f, target %.1f)", ErrNothingToCool, ambient, req.TargetTemp)
	}
	if !cfg.Cooling() && ambient >= req.TargetTemp {
		return fmt.Errorf("%w (room %.1f, target %.1f)", ErrNothingToHeat, ambient, req.TargetTemp)
	}
	return nil
}

// IsValidationError 是否为应返回给调用方的校验错误
func IsValidationError(err error) bool {
	return errors.Is(err, ErrSystemNotOpen) ||
		errors.Is(err, ErrTargetOutOfRange) ||
		errors.Is(err, ErrNothingToCool) ||
		errors.Is(err, ErrNothingToHeat) ||
		errors.Is(err, ErrInvalidSpeed) ||
		errors.Is(err, ErrACOff)
}
