package episode

import (
	"math"
	"math/rand"

	"github.com/go-gl/mathgl/mgl32"

	"rocket-lander/backend/internal/core/domain/command"
	"rocket-lander/backend/internal/core/domain/observation"
)

// Outcome причина завершения эпизода
type Outcome string

const (
	OutcomeRunning     Outcome = "running"
	OutcomeTooHigh     Outcome = "too_high"
	OutcomeOutOfBounds Outcome = "out_of_bounds"
	OutcomeHardLanding Outcome = "hard_landing"
	OutcomeTilted      Outcome = "tilted"
	OutcomeTimeLimit   Outcome = "time_limit"
	OutcomeAborted     Outcome = "aborted"
)

// Config пороги оценки эпизода
type Config struct {
	MaxSteps        int     `yaml:"max_steps"`
	MaxAltitude     float64 `yaml:"max_altitude"`
	HorizontalLimit float64 `yaml:"horizontal_limit"`
	// Посадка считается жесткой ниже LandingAltitude при vy <= HardLandingSpeed
	LandingAltitude  float64 `yaml:"landing_altitude"`
	HardLandingSpeed float64 `yaml:"hard_landing_speed"`
	// MinUprightness - минимальная проекция оси ракеты на вертикаль
	MinUprightness float64 `yaml:"min_uprightness"`
	TiltPenalty    float64 `yaml:"tilt_penalty"`
}

// DefaultConfig пороги, на которых обучался агент
func DefaultConfig() Config {
	return Config{
		MaxSteps:         800,
		MaxAltitude:      320,
		HorizontalLimit:  50,
		LandingAltitude:  10,
		HardLandingSpeed: -5,
		MinUprightness:   0.642,
		TiltPenalty:      0.2,
	}
}

const (
	crashPenalty       = -50.0
	hardLandingPenalty = -20.0
)

// Verdict результат оценки одного наблюдения
type Verdict struct {
	Reward  float64 `json:"reward"`
	Done    bool    `json:"done"`
	Outcome Outcome `json:"outcome"`
}

// Evaluator считает награду и признак конца эпизода
type Evaluator struct {
	config Config
}

// NewEvaluator создает оценщик
func NewEvaluator(config Config) *Evaluator {
	return &Evaluator{config: config}
}

// Evaluate оценивает наблюдение на шаге step (счет с 1)
func (e *Evaluator) Evaluate(obs observation.Observation, step int) Verdict {
	v := Verdict{Outcome: OutcomeRunning}

	dx := float64(obs[observation.DX])
	dy := float64(obs[observation.DY])
	dz := float64(obs[observation.DZ])
	vy := float64(obs[observation.VY])

	finish := func(penalty float64, outcome Outcome) {
		v.Reward += penalty
		if !v.Done {
			v.Outcome = outcome
		}
		v.Done = true
	}

	if dy >= e.config.MaxAltitude {
		finish(crashPenalty, OutcomeTooHigh)
	}
	v.Reward += math.Exp(-dy)

	if math.Abs(dx) >= e.config.HorizontalLimit {
		finish(crashPenalty, OutcomeOutOfBounds)
	}
	v.Reward += math.Exp(-math.Abs(dx))

	if math.Abs(dz) >= e.config.HorizontalLimit {
		finish(crashPenalty, OutcomeOutOfBounds)
	}
	v.Reward += math.Exp(-math.Abs(dz))

	if dy <= e.config.LandingAltitude && vy <= e.config.HardLandingSpeed {
		finish(hardLandingPenalty, OutcomeHardLanding)
	}

	upright := Uprightness(obs)
	if upright < e.config.MinUprightness {
		finish(crashPenalty, OutcomeTilted)
	}
	v.Reward -= (1 - upright) * e.config.TiltPenalty

	if e.config.MaxSteps > 0 && step >= e.config.MaxSteps && !v.Done {
		v.Done = true
		v.Outcome = OutcomeTimeLimit
	}

	return v
}

// Uprightness проекция продольной оси ракеты на мировую вертикаль, 1 - стоит ровно.
// Намеренно отличается от сценария обучения: тот брал wx/wz (states[6]/states[8]), здесь qx/qz.
func Uprightness(obs observation.Observation) float64 {
	qx := float64(obs[observation.QX])
	qz := float64(obs[observation.QZ])
	return 1 - 2*(qx*qx+qz*qz)
}

// RandomReset генерирует стартовую позицию из распределения обучения
func RandomReset(rng *rand.Rand) command.Reset {
	uniform := func(lo, hi float32) float32 {
		return lo + rng.Float32()*(hi-lo)
	}
	return command.Reset{
		Position: mgl32.Vec3{uniform(-50, 50), uniform(200, 300), uniform(-50, 50)},
		PitchDeg: uniform(-20, 20),
		YawDeg:   uniform(-20, 20),
	}
}
