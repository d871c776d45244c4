package observation

import (
	"fmt"
	"strconv"
	"strings"

	"rocket-lander/backend/internal/core/domain/entity"
)

// Size количество скаляров в наблюдении
const Size = 13

// Observation вектор наблюдения в фиксированном порядке:
// dx, dy, dz, vx, vy, vz, wx, wy, wz, qx, qy, qz, qw
type Observation [Size]float32

// Индексы полей наблюдения
const (
	DX = iota
	DY
	DZ
	VX
	VY
	VZ
	WX
	WY
	WZ
	QX
	QY
	QZ
	QW
)

// Compute строит наблюдение из состояния тела и цели.
// dx, dz - ошибка по горизонтали (цель минус ноги), dy - высота ног над целью.
func Compute(body entity.BodyState, target entity.TargetReference) Observation {
	feet := body.TransformPoint(target.FeetOffset)

	return Observation{
		target.Position.X() - feet.X(),
		feet.Y() - target.Position.Y(),
		target.Position.Z() - feet.Z(),
		body.LinearVelocity.X(),
		body.LinearVelocity.Y(),
		body.LinearVelocity.Z(),
		body.AngularVelocity.X(),
		body.AngularVelocity.Y(),
		body.AngularVelocity.Z(),
		body.Orientation.V.X(),
		body.Orientation.V.Y(),
		body.Orientation.V.Z(),
		body.Orientation.W,
	}
}

// Encode сериализует наблюдение для агента.
// Если тела или цели нет, возвращает пустую строку: наблюдения в этом тике нет.
func Encode(body *entity.BodyState, target *entity.TargetReference) string {
	if body == nil || target == nil {
		return ""
	}
	return Compute(*body, *target).String()
}

// String форматирует значения через точку независимо от локали, без пробелов и скобок
func (o Observation) String() string {
	var sb strings.Builder
	sb.Grow(Size * 12)
	for i, v := range o {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.FormatFloat(float64(v), 'g', -1, 32))
	}
	return sb.String()
}

// Decode разбирает строку наблюдения обратно в вектор
func Decode(line string) (Observation, error) {
	var obs Observation

	line = strings.TrimSpace(line)
	if line == "" {
		return obs, fmt.Errorf("пустая строка наблюдения")
	}

	parts := strings.Split(line, ",")
	if len(parts) != Size {
		return obs, fmt.Errorf("ожидалось %d значений, получено %d", Size, len(parts))
	}

	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
		if err != nil {
			return obs, fmt.Errorf("поле %d: %w", i, err)
		}
		obs[i] = float32(v)
	}

	return obs, nil
}
