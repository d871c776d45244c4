package actuation

const (
	// MaxEmissionRate частиц в секунду при полной тяге
	MaxEmissionRate = 500

	// emissionThreshold - ниже этой тяги факел не горит
	emissionThreshold = 0.01
)

// EffectCommand значение для визуального эффекта двигателя
type EffectCommand struct {
	Playing bool    `json:"playing"`
	Rate    float32 `json:"rate"`
}

// Emission переводит интенсивность тяги в команду для эффекта частиц.
// Нулевая интенсивность всегда означает отсутствие эмиссии.
func Emission(intensity float32) EffectCommand {
	if intensity > emissionThreshold {
		return EffectCommand{Playing: true, Rate: intensity * MaxEmissionRate}
	}
	return EffectCommand{}
}
