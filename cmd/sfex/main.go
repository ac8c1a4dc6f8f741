/*
Copyright © 2026 the sfex authors.
This file is part of sfex.

sfex is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

sfex is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with sfex.  If not, see <http://www.gnu.org/licenses/>.
*/

// Command sfex is a command-line interface for the supercritical fluid
// extraction kinetics models.
package main

import (
	"os"

	"github.com/sfexmodel/sfex/sfexutil"
)

func main() {
	cfg := sfexutil.InitializeConfig()
	if err := cfg.Execute(); err != nil {
		os.Exit(1)
	}
}
