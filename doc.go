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

// Package sas implements the k-omega-SST turbulence closure and its
// scale-adaptive simulation (SAS) extension for finite-volume flow
// solvers on structured Cartesian meshes.
//
// Models are created by name with New and advanced once per outer
// iteration of the flow solver with Correct. Model coefficients are read
// from a nested configuration dictionary and can be re-read during a run
// with Read.
package sas

// Version gives the version number of this package.
const Version = "1.0.0"
