// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "fmt"

// DefaultRoutesPerVolume is the volume size used when no policy is given.
const DefaultRoutesPerVolume = 12

// PolicyMode selects how routes are split into volumes.
type PolicyMode string

const (
	// PolicyRoutesPerVolume fills each volume with Value routes; the last
	// volume takes the remainder.
	PolicyRoutesPerVolume PolicyMode = "routes_per_volume"

	// PolicyTotalVolumes splits routes into exactly Value volumes; earlier
	// volumes absorb the remainder.
	PolicyTotalVolumes PolicyMode = "total_volumes"
)

// PartitionPolicy is the single configuration value that drives stage 4.
type PartitionPolicy struct {
	Mode  PolicyMode `json:"mode" yaml:"mode" mapstructure:"mode"`
	Value int        `json:"value" yaml:"value" mapstructure:"value"`
}

// DefaultPolicy returns the fixed twelve-routes-per-volume policy.
func DefaultPolicy() PartitionPolicy {
	return PartitionPolicy{Mode: PolicyRoutesPerVolume, Value: DefaultRoutesPerVolume}
}

// RoutesPerVolume returns an explicit routes-per-volume policy.
func RoutesPerVolume(k int) PartitionPolicy {
	return PartitionPolicy{Mode: PolicyRoutesPerVolume, Value: k}
}

// TotalVolumes returns an explicit volume-count policy.
func TotalVolumes(v int) PartitionPolicy {
	return PartitionPolicy{Mode: PolicyTotalVolumes, Value: v}
}

// Validate checks the policy independently of the route count.
func (p PartitionPolicy) Validate() error {
	switch p.Mode {
	case PolicyRoutesPerVolume, PolicyTotalVolumes:
	default:
		return fmt.Errorf("%w: unknown mode %q", ErrInvalidPolicy, p.Mode)
	}
	if p.Value < 1 {
		return fmt.Errorf("%w: %s must be at least 1, got %d", ErrInvalidPolicy, p.Mode, p.Value)
	}
	return nil
}

func (p PartitionPolicy) String() string {
	switch p.Mode {
	case PolicyTotalVolumes:
		return fmt.Sprintf("%d volume(s)", p.Value)
	default:
		return fmt.Sprintf("%d route(s) per volume", p.Value)
	}
}
