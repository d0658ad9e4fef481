package usecase

import (
	"context"
	"time"

	"go-recruitment-intake/internal/realtime"
)

type HealthUsecase interface {
	Check(ctx context.Context) map[string]string
}

// RealtimeStatus reports the admin channel state.
type RealtimeStatus interface {
	State() realtime.State
}

// DependencyCheck probes an optional dependency. A nil check is reported as
// "disabled".
type DependencyCheck func(ctx context.Context) error

type healthUsecase struct {
	realtime RealtimeStatus
	checks   map[string]DependencyCheck
}

func NewHealthUsecase(rt RealtimeStatus, checks map[string]DependencyCheck) HealthUsecase {
	return &healthUsecase{realtime: rt, checks: checks}
}

// Check always reports "ok" for the service itself; a degraded dependency
// does not make the intake unavailable.
func (u *healthUsecase) Check(ctx context.Context) map[string]string {
	result := map[string]string{
		"status": "ok",
	}
	if u.realtime != nil {
		result["realtime"] = string(u.realtime.State())
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	for name, check := range u.checks {
		switch {
		case check == nil:
			result[name] = "disabled"
		case check(ctx) != nil:
			result[name] = "unavailable"
		default:
			result[name] = "ok"
		}
	}
	return result
}
