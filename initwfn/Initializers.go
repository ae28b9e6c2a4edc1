package initwfn

import G "gorgonia.org/gorgonia"

// GlorotUConfig implements a configuration of the Glorot Uniform
// initialization algorithm.
type GlorotUConfig struct {
	Gain float64
}

// NewGlorotU returns a new Glorot Uniform weight initializer
func NewGlorotU(gain float64) *InitWFn {
	return newInitWFn(GlorotUConfig{Gain: gain})
}

// Type returns the type of initialization algorithm described by
// the configuration.
func (g GlorotUConfig) Type() Type { return GlorotU }

// Create returns the weight initialization algorithm as a Gorgonia
// InitWFn
func (g GlorotUConfig) Create() G.InitWFn { return G.GlorotU(g.Gain) }

// GlorotNConfig implements a configuration of the Glorot Normal
// initialization algorithm.
type GlorotNConfig struct {
	Gain float64
}

// NewGlorotN returns a new Glorot Normal weight initializer
func NewGlorotN(gain float64) *InitWFn {
	return newInitWFn(GlorotNConfig{Gain: gain})
}

func (g GlorotNConfig) Type() Type        { return GlorotN }
func (g GlorotNConfig) Create() G.InitWFn { return G.GlorotN(g.Gain) }

// HeUConfig implements a configuration of the He Uniform
// initialization algorithm, suited to layers with ReLU activations.
type HeUConfig struct {
	Gain float64
}

// NewHeU returns a new He Uniform weight initializer
func NewHeU(gain float64) *InitWFn {
	return newInitWFn(HeUConfig{Gain: gain})
}

func (h HeUConfig) Type() Type        { return HeU }
func (h HeUConfig) Create() G.InitWFn { return G.HeU(h.Gain) }

// HeNConfig implements a configuration of the He Normal
// initialization algorithm.
type HeNConfig struct {
	Gain float64
}

// NewHeN returns a new He Normal weight initializer
func NewHeN(gain float64) *InitWFn {
	return newInitWFn(HeNConfig{Gain: gain})
}

func (h HeNConfig) Type() Type        { return HeN }
func (h HeNConfig) Create() G.InitWFn { return G.HeN(h.Gain) }

// GaussianConfig implements a configuration of a weight initializer
// that draws weights from a gaussian distribution
type GaussianConfig struct {
	Mean, StdDev float64
}

// NewGaussian returns a new gaussian weight initializer
func NewGaussian(mean, stddev float64) *InitWFn {
	return newInitWFn(GaussianConfig{Mean: mean, StdDev: stddev})
}

func (g GaussianConfig) Type() Type { return Gaussian }
func (g GaussianConfig) Create() G.InitWFn {
	return G.Gaussian(g.Mean, g.StdDev)
}

// UniformConfig implements a configuration of a weight initializer
// that draws weights from a uniform distribution
type UniformConfig struct {
	Low, High float64
}

// NewUniform returns a new uniform weight initializer
func NewUniform(low, high float64) *InitWFn {
	return newInitWFn(UniformConfig{Low: low, High: high})
}

func (u UniformConfig) Type() Type        { return Uniform }
func (u UniformConfig) Create() G.InitWFn { return G.Uniform(u.Low, u.High) }

// ConstantConfig implements a configuration of a weight initializer
// that initializes all weights to a constant value.
type ConstantConfig struct {
	Value float64
}

// NewConstant returns a new constant weight intializer
func NewConstant(value float64) *InitWFn {
	return newInitWFn(ConstantConfig{Value: value})
}

func (c ConstantConfig) Type() Type        { return Constant }
func (c ConstantConfig) Create() G.InitWFn { return G.ValuesOf(c.Value) }

// ZeroesConfig implements a configuration of a zero weight initializer
type ZeroesConfig struct{}

// NewZeroes returns a new zeroes weight intializer
func NewZeroes() *InitWFn {
	return newInitWFn(ZeroesConfig{})
}

func (z ZeroesConfig) Type() Type        { return Zeroes }
func (z ZeroesConfig) Create() G.InitWFn { return G.Zeroes() }
