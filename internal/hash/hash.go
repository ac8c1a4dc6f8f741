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

// Package hash builds stable cache keys from Go values.
package hash

import (
	"encoding/gob"
	"encoding/hex"
	"hash/fnv"

	"github.com/davecgh/go-spew/spew"
)

var printer = spew.ConfigState{
	Indent:                  " ",
	SortKeys:                true,
	DisableMethods:          true,
	SpewKeys:                true,
	DisablePointerAddresses: true,
	DisableCapacities:       true,
}

// Key returns a 128-bit FNV-1a digest of parts, hex encoded. Parts are gob
// encoded in order; values gob rejects are printed with go-spew instead, so
// every input produces a key.
func Key(parts ...interface{}) string {
	h := fnv.New128a()
	enc := gob.NewEncoder(h)
	for _, p := range parts {
		if err := enc.Encode(p); err != nil {
			h.Reset()
			printer.Fprintf(h, "%#v", parts)
			break
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}
