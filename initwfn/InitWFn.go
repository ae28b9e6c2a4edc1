// Package initwfn implements functionality to wrap Gorgonia InitWFn
// so that they can be JSON serialized into configuration files.
package initwfn

import (
	"encoding/json"
	"fmt"
	"reflect"

	G "gorgonia.org/gorgonia"
)

// Type describes different types of InitWFn that are available.
// Type is used to implement a basic type system of InitWFn's.
type Type string

// Available InitWFn types
const (
	GlorotU  Type = "GlorotU"
	GlorotN  Type = "GlorotN"
	HeU      Type = "HeU"
	HeN      Type = "HeN"
	Gaussian Type = "Gaussian"
	Uniform  Type = "Uniform"
	Constant Type = "Constant"
	Zeroes   Type = "Zeroes"
)

// configTypes maps each Type to the concrete Config describing it
var configTypes = map[Type]reflect.Type{
	GlorotU:  reflect.TypeOf(GlorotUConfig{}),
	GlorotN:  reflect.TypeOf(GlorotNConfig{}),
	HeU:      reflect.TypeOf(HeUConfig{}),
	HeN:      reflect.TypeOf(HeNConfig{}),
	Gaussian: reflect.TypeOf(GaussianConfig{}),
	Uniform:  reflect.TypeOf(UniformConfig{}),
	Constant: reflect.TypeOf(ConstantConfig{}),
	Zeroes:   reflect.TypeOf(ZeroesConfig{}),
}

// InitWFn wraps Gorgonia InitWFn so that they can be JSON marshalled and
// unmarshalled.
type InitWFn struct {
	initWFn G.InitWFn
	Type
	Config
}

// newInitWFn returns a new InitWFn
func newInitWFn(c Config) *InitWFn {
	init := InitWFn{Type: c.Type(), Config: c}
	init.initWFn = init.Config.Create()

	return &init
}

// InitWFn returns the wrapped Gorgonia InitWFn
func (i *InitWFn) InitWFn() G.InitWFn {
	return i.initWFn
}

// String implements the fmt.Stringer interface
func (i *InitWFn) String() string {
	return fmt.Sprintf("{%v InitWFn: %+v}", i.Type, i.Config)
}

// UnmarshalJSON implements the json.Unmarshaller interface
func (i *InitWFn) UnmarshalJSON(data []byte) error {
	m := map[string]json.RawMessage{}
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}

	var typeName Type
	if err := json.Unmarshal(m["Type"], &typeName); err != nil {
		return fmt.Errorf("unmarshaljson: could not decode type: %v", err)
	}
	ty, ok := configTypes[typeName]
	if !ok {
		return fmt.Errorf("unmarshaljson: unknown InitWFn type %q", typeName)
	}

	value := reflect.New(ty)
	if raw, ok := m["Config"]; ok && string(raw) != "null" {
		if err := json.Unmarshal(raw, value.Interface()); err != nil {
			return fmt.Errorf("unmarshaljson: could not decode config: %v",
				err)
		}
	}

	i.Type = typeName
	i.Config = value.Elem().Interface().(Config)
	i.initWFn = i.Config.Create()

	return nil
}

// Config implements a Gorgonia InitWFn configuration and can be used to
// create the described Gorgonia InitWFn's.
type Config interface {
	// Create returns the Gorgonia InitWFn that the Config describes
	Create() G.InitWFn

	// Type returns the type of Gorgonia InitWFn that is returned
	Type() Type
}
