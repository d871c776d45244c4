package entity

import (
	"github.com/go-gl/mathgl/mgl32"
)

// TargetReference посадочная площадка и смещение "ног" ракеты.
// Не меняется после инициализации.
type TargetReference struct {
	Position   mgl32.Vec3 `json:"position" yaml:"position"`
	FeetOffset mgl32.Vec3 `json:"feet_offset" yaml:"feet_offset"`
}

// NewTargetReference создает цель с заданным смещением ног
func NewTargetReference(position, feetOffset mgl32.Vec3) *TargetReference {
	return &TargetReference{
		Position:   position,
		FeetOffset: feetOffset,
	}
}

// FeetOffsetFromBounds вычисляет смещение ног по габаритам коллайдера:
// половина высоты в мировых единицах, приведенная к локальному масштабу.
func FeetOffsetFromBounds(extentY, scaleY float32) mgl32.Vec3 {
	if scaleY == 0 {
		scaleY = 1
	}
	return mgl32.Vec3{0, -extentY / scaleY, 0}
}
