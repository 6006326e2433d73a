// pkg/config/env.go
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
)

// Environment variables read by ApplyEnvOverrides
const (
	EnvGravity        = "VISCO_GRAVITY"
	EnvTimeStep       = "VISCO_TIMESTEP"
	EnvSteps          = "VISCO_STEPS"
	EnvSlop           = "VISCO_SLOP"
	EnvAngularDamping = "VISCO_ANGULAR_DAMPING"
	EnvMaxContacts    = "VISCO_MAX_CONTACTS"
)

// ApplyEnvOverrides replaces scenario values with those set in the
// environment. Unset variables leave the scenario untouched; malformed
// ones are all reported together and nothing is applied.
func ApplyEnvOverrides(s *Scenario) error {
	next := *s
	var errs []error

	if v, ok := os.LookupEnv(EnvGravity); ok {
		g, err := parseVec3(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", EnvGravity, err))
		}
		next.World.Gravity = g
	}
	if err := getEnvFloat(EnvTimeStep, &next.TimeStep); err != nil {
		errs = append(errs, err)
	}
	if err := getEnvInt(EnvSteps, &next.Steps); err != nil {
		errs = append(errs, err)
	}
	if err := getEnvFloat(EnvSlop, &next.World.Slop); err != nil {
		errs = append(errs, err)
	}
	if err := getEnvFloat(EnvAngularDamping, &next.World.AngularDamping); err != nil {
		errs = append(errs, err)
	}
	if err := getEnvInt(EnvMaxContacts, &next.World.MaxContacts); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	*s = next
	return nil
}

func getEnvFloat(key string, dst *float32) error {
	v, ok := os.LookupEnv(key)
	if !ok {
		return nil
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 32)
	if err != nil {
		return fmt.Errorf("%s: invalid number %q", key, v)
	}
	*dst = float32(f)
	return nil
}

func getEnvInt(key string, dst *int) error {
	v, ok := os.LookupEnv(key)
	if !ok {
		return nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return fmt.Errorf("%s: invalid integer %q", key, v)
	}
	*dst = n
	return nil
}

// parseVec3 reads a vector written as "x,y,z"
func parseVec3(s string) (mgl32.Vec3, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return mgl32.Vec3{}, fmt.Errorf("expected x,y,z, got %q", s)
	}
	var v mgl32.Vec3
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
		if err != nil {
			return mgl32.Vec3{}, fmt.Errorf("invalid component %q", p)
		}
		v[i] = float32(f)
	}
	return v, nil
}
