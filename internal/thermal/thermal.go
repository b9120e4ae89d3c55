// Package thermal 房间温度变化模型, 均为纯函数
package thermal

// TimeUnit 速率以分钟计, 每个 tick 模拟 factor 秒
const TimeUnit = 60.0

// Step 送风一个 tick 的温度变化量, 制冷为负, 制热为正
// rate 为该风速下变化一度所需的分钟数
func Step(cooling bool, rate, factor float64) float64 {
	d := 1 / rate / TimeUnit * factor
	if cooling {
		return -d
	}
	return d
}

// Drift 未送风时向室温回归一个 tick 后的温度
// 只在仍处于室温远侧时回归, 不会越过室温
func Drift(cooling bool, current, ambient, backSpeed, factor float64) float64 {
	d := backSpeed / TimeUnit * factor
	if cooling && current < ambient {
		return min(ambient, current+d)
	}
	if !cooling && current > ambient {
		return max(ambient, current-d)
	}
	return current
}

// Gap 按模式方向计算距目标的温差, 已到达目标时为非正数
func Gap(cooling bool, current, target float64) float64 {
	if cooling {
		return current - target
	}
	return target - current
}

// OnTarget 是否已到达或越过目标温度
func OnTarget(cooling bool, current, target float64) bool {
	if cooling {
		return current <= target
	}
	return current >= target
}
