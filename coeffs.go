/*
Copyright © 2017 the SAS authors.
This file is part of SAS.

SAS is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

SAS is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with SAS.  If not, see <http://www.gnu.org/licenses/>.
*/

package sas

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/Knetic/govaluate"
	"github.com/spf13/cast"
)

// Dict is a nested configuration dictionary. Values are numbers,
// booleans, strings, or nested dictionaries.
type Dict map[string]interface{}

// SubDict returns the nested dictionary called name, or nil if
// there is none.
func (d Dict) SubDict(name string) Dict {
	switch v := d[name].(type) {
	case Dict:
		return v
	case map[string]interface{}:
		return Dict(v)
	}
	return nil
}

// copy returns a deep copy of d.
func (d Dict) copy() Dict {
	if d == nil {
		return nil
	}
	o := make(Dict, len(d))
	for k, v := range d {
		if sub := d.SubDict(k); sub != nil {
			o[k] = sub.copy()
		} else {
			o[k] = v
		}
	}
	return o
}

// DictSource provides the live configuration that models read their
// coefficients from.
type DictSource interface {
	Dict() (Dict, error)
}

// StaticDict is an in-memory DictSource that can be modified
// between reads.
type StaticDict struct {
	d Dict
}

// NewStaticDict returns a DictSource holding a copy of d.
func NewStaticDict(d Dict) *StaticDict {
	if d == nil {
		d = make(Dict)
	}
	return &StaticDict{d: d.copy()}
}

// Dict returns a copy of the current dictionary.
func (s *StaticDict) Dict() (Dict, error) { return s.d.copy(), nil }

// Set sets the value of key in the (possibly nested) group path,
// creating groups as needed. For example,
//	s.Set(2.0, "kOmegaSSTSASCoeffs", "zeta2")
func (s *StaticDict) Set(value interface{}, path ...string) {
	d := s.d
	for _, g := range path[:len(path)-1] {
		sub := d.SubDict(g)
		if sub == nil {
			sub = make(Dict)
			d[g] = sub
		}
		d = sub
	}
	d[path[len(path)-1]] = value
}

// Delete removes the entry at path if it exists.
func (s *StaticDict) Delete(path ...string) {
	d := s.d
	for _, g := range path[:len(path)-1] {
		if d = d.SubDict(g); d == nil {
			return
		}
	}
	delete(d, path[len(path)-1])
}

// TOMLFile is a DictSource that decodes a TOML file every time
// it is read.
type TOMLFile string

// Dict decodes the file.
func (f TOMLFile) Dict() (Dict, error) {
	d := make(map[string]interface{})
	if _, err := toml.DecodeFile(string(f), &d); err != nil {
		return nil, fmt.Errorf("sas: reading coefficient file %s: %v", f, err)
	}
	return Dict(d), nil
}

// Coefficient declares a model coefficient and its default value.
type Coefficient struct {
	Name    string
	Default float64
	// Switch is true if the coefficient is an on/off switch, in which
	// case the value is 1 for on and 0 for off.
	Switch bool
}

// Change records a coefficient whose value changed during a read.
type Change struct {
	Name     string
	Old, New float64
}

// CoefficientSet holds the resolved values of a group of declared
// coefficients.
type CoefficientSet struct {
	group  string
	decl   []Coefficient
	values map[string]float64
}

// NewCoefficientSet creates a coefficient set for the given group
// where every coefficient has its default value.
func NewCoefficientSet(group string, decl ...Coefficient) *CoefficientSet {
	c := &CoefficientSet{
		group:  group,
		decl:   decl,
		values: make(map[string]float64, len(decl)),
	}
	for _, d := range decl {
		c.values[d.Name] = d.Default
	}
	return c
}

// Group returns the name of the configuration group the set is read from.
func (c *CoefficientSet) Group() string { return c.group }

// Value returns the value of the named coefficient. It panics if the
// coefficient has not been declared.
func (c *CoefficientSet) Value(name string) float64 {
	v, ok := c.values[name]
	if !ok {
		panic(fmt.Errorf("sas: undeclared coefficient %s.%s", c.group, name))
	}
	return v
}

// Bool returns the value of the named switch.
func (c *CoefficientSet) Bool(name string) bool { return c.Value(name) != 0 }

// Names returns the declared coefficient names in declaration order.
func (c *CoefficientSet) Names() []string {
	o := make([]string, len(c.decl))
	for i, d := range c.decl {
		o[i] = d.Name
	}
	return o
}

// String returns a table of the resolved coefficients.
func (c *CoefficientSet) String() string {
	b := new(strings.Builder)
	fmt.Fprintf(b, "%s\n{\n", c.group)
	for _, d := range c.decl {
		if d.Switch {
			fmt.Fprintf(b, "    %-12s %v;\n", d.Name, c.Bool(d.Name))
		} else {
			fmt.Fprintf(b, "    %-12s %g;\n", d.Name, c.values[d.Name])
		}
	}
	fmt.Fprint(b, "}\n")
	return b.String()
}

// Resolve sets every declared coefficient to its value in d, or to its
// default where d does not contain it. d is the dictionary for this
// set's group and may be nil. The changed coefficients are returned
// in name order. If any value in d is invalid, an error is returned
// and no coefficient is modified.
func (c *CoefficientSet) Resolve(d Dict) ([]Change, error) {
	vals, err := c.prepare(d)
	if err != nil {
		return nil, err
	}
	return c.commit(vals), nil
}

// prepare converts the values in d without modifying c.
func (c *CoefficientSet) prepare(d Dict) (map[string]float64, error) {
	newVals := make(map[string]float64, len(c.decl))
	for _, decl := range c.decl {
		raw, ok := d[decl.Name]
		if !ok {
			newVals[decl.Name] = decl.Default
			continue
		}
		var v float64
		var err error
		if decl.Switch {
			v, err = toSwitch(raw)
		} else {
			v, err = toScalar(raw)
		}
		if err != nil {
			return nil, &ConfigurationError{Group: c.group, Key: decl.Name, Err: err}
		}
		newVals[decl.Name] = v
	}
	return newVals, nil
}

// commit replaces the values of c with vals and returns the changes
// in name order.
func (c *CoefficientSet) commit(vals map[string]float64) []Change {
	var changes []Change
	for name, v := range vals {
		if old := c.values[name]; old != v {
			changes = append(changes, Change{Name: name, Old: old, New: v})
		}
	}
	sort.Slice(changes, func(i, j int) bool { return changes[i].Name < changes[j].Name })
	c.values = vals
	return changes
}

// snapshot returns the current values, for use with restore.
func (c *CoefficientSet) snapshot() map[string]float64 { return c.values }

// restore sets the values back to a snapshot.
func (c *CoefficientSet) restore(vals map[string]float64) { c.values = vals }

// toScalar converts a configuration value to a finite number. Strings
// are evaluated as arithmetic expressions.
func toScalar(v interface{}) (float64, error) {
	f, err := toNumber(v)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("value %v is not finite", v)
	}
	return f, nil
}

func toNumber(v interface{}) (float64, error) {
	switch vv := v.(type) {
	case bool:
		return 0, fmt.Errorf("expected a number but got boolean %v", vv)
	case Dict, map[string]interface{}:
		return 0, fmt.Errorf("expected a number but got a dictionary")
	case string:
		expr, err := govaluate.NewEvaluableExpression(vv)
		if err != nil {
			return 0, fmt.Errorf("invalid expression %q: %v", vv, err)
		}
		r, err := expr.Evaluate(nil)
		if err != nil {
			return 0, fmt.Errorf("evaluating expression %q: %v", vv, err)
		}
		f, ok := r.(float64)
		if !ok {
			return 0, fmt.Errorf("expression %q does not evaluate to a number", vv)
		}
		return f, nil
	}
	return cast.ToFloat64E(v)
}

// toSwitch converts a configuration value to 1 (on) or 0 (off).
func toSwitch(v interface{}) (float64, error) {
	if s, ok := v.(string); ok {
		switch strings.ToLower(s) {
		case "yes", "on", "true", "y":
			return 1, nil
		case "no", "off", "false", "n", "none":
			return 0, nil
		}
		return 0, fmt.Errorf("invalid switch value %q", s)
	}
	switch v.(type) {
	case int, int8, int16, int32, int64, float32, float64:
		// Non-zero numbers are on.
		f, err := toScalar(v)
		if err != nil {
			return 0, err
		}
		if f != 0 {
			return 1, nil
		}
		return 0, nil
	}
	b, err := cast.ToBoolE(v)
	if err != nil {
		return 0, err
	}
	if b {
		return 1, nil
	}
	return 0, nil
}

// toWord returns the string value of key in d, or def if it is absent.
func toWord(d Dict, group, key, def string) (string, error) {
	v, ok := d[key]
	if !ok {
		return def, nil
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", &ConfigurationError{Group: group, Key: key,
			Err: fmt.Errorf("expected a name but got %v", v)}
	}
	return s, nil
}
