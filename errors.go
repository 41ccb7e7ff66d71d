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

import "fmt"

// ConfigurationError is returned when a model cannot be constructed
// or its coefficients cannot be read because of invalid input.
type ConfigurationError struct {
	Group string // coefficient group or input name
	Key   string // option name, if any
	Err   error
}

func (e *ConfigurationError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("sas: configuration error in %s: %v", e.Group, e.Err)
	}
	return fmt.Sprintf("sas: configuration error in %s.%s: %v", e.Group, e.Key, e.Err)
}

// Unwrap returns the underlying error.
func (e *ConfigurationError) Unwrap() error { return e.Err }
