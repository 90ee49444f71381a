// Copyright ©2017 The gonum Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package relaxation

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Params holds the parameters of the ILU(0) relaxation.
type Params struct {
	// Damping is the factor ω that scales the correction applied by
	// PreSmooth and PostSmooth. It has no effect on Apply.
	Damping float64 `yaml:"damping"`

	// JacobiIters is the number of Jacobi sweeps used to approximate
	// each triangular solve on a parallel backend. It is ignored on the
	// builtin backend, where the triangular systems are solved exactly.
	JacobiIters int `yaml:"jacobi_iters"`
}

// DefaultParams returns the default parameters.
func DefaultParams() Params {
	return Params{
		Damping:     1,
		JacobiIters: 2,
	}
}

var knownParams = map[string]bool{
	"damping":      true,
	"jacobi_iters": true,
}

// Validate returns an error wrapping ErrInvalidConfig if p holds a value
// outside its domain.
func (p Params) Validate() error {
	if math.IsNaN(p.Damping) || math.IsInf(p.Damping, 0) {
		return fmt.Errorf("%w: damping must be finite, got %v", ErrInvalidConfig, p.Damping)
	}
	if p.JacobiIters < 0 {
		return fmt.Errorf("%w: jacobi_iters must be non-negative, got %d", ErrInvalidConfig, p.JacobiIters)
	}
	return nil
}

// Map returns the parameters keyed by their configuration names.
func (p Params) Map() map[string]any {
	return map[string]any{
		"damping":      p.Damping,
		"jacobi_iters": p.JacobiIters,
	}
}

// ParseParams decodes parameters from a YAML mapping. Since YAML is a
// superset of JSON, JSON objects are accepted as well. Keys that are absent
// keep their default values and an empty document yields DefaultParams.
// Unknown keys are rejected with an error wrapping ErrInvalidConfig that
// names all of them.
func ParseParams(r io.Reader) (Params, error) {
	prm := DefaultParams()

	var raw map[string]yaml.Node
	err := yaml.NewDecoder(r).Decode(&raw)
	if errors.Is(err, io.EOF) {
		return prm, nil
	}
	if err != nil {
		return Params{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	var unknown []string
	for k := range raw {
		if !knownParams[k] {
			unknown = append(unknown, k)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return Params{}, fmt.Errorf("%w: unknown parameters: %s", ErrInvalidConfig, strings.Join(unknown, ", "))
	}

	if n, ok := raw["damping"]; ok {
		if err := n.Decode(&prm.Damping); err != nil {
			return Params{}, fmt.Errorf("%w: damping: %v", ErrInvalidConfig, err)
		}
	}
	if n, ok := raw["jacobi_iters"]; ok {
		// Decode would truncate a float into the int field.
		if n.Kind != yaml.ScalarNode || n.ShortTag() != "!!int" {
			return Params{}, fmt.Errorf("%w: jacobi_iters must be an integer, got %q", ErrInvalidConfig, n.Value)
		}
		if err := n.Decode(&prm.JacobiIters); err != nil {
			return Params{}, fmt.Errorf("%w: jacobi_iters: %v", ErrInvalidConfig, err)
		}
	}
	if err := prm.Validate(); err != nil {
		return Params{}, err
	}
	return prm, nil
}

// ParamsFromMap builds parameters from a map keyed by the configuration
// names accepted by ParseParams.
func ParamsFromMap(m map[string]any) (Params, error) {
	if len(m) == 0 {
		return DefaultParams(), nil
	}
	b, err := yaml.Marshal(m)
	if err != nil {
		return Params{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return ParseParams(bytes.NewReader(b))
}
