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

package report

import (
	"fmt"
	"io"

	"github.com/tealeg/xlsx"
)

// Sheet is one worksheet of a workbook. Each series takes two adjacent
// columns, headed "<name> x" and "<name> y".
type Sheet struct {
	Name   string
	Series []Series
}

// WriteXLSX writes sheets to w as an Excel workbook.
func WriteXLSX(w io.Writer, sheets ...Sheet) error {
	f := xlsx.NewFile()
	for _, sh := range sheets {
		s, err := f.AddSheet(sh.Name)
		if err != nil {
			return fmt.Errorf("report: adding sheet %q: %v", sh.Name, err)
		}
		header := s.AddRow()
		rows := 0
		for _, ser := range sh.Series {
			if err := ser.Validate(); err != nil {
				return err
			}
			header.AddCell().SetString(ser.Name + " x")
			header.AddCell().SetString(ser.Name + " y")
			if ser.Len() > rows {
				rows = ser.Len()
			}
		}
		for i := 0; i < rows; i++ {
			row := s.AddRow()
			for _, ser := range sh.Series {
				x, y := row.AddCell(), row.AddCell()
				if i < ser.Len() {
					x.SetFloat(ser.X[i])
					y.SetFloat(ser.Y[i])
				}
			}
		}
	}
	if err := f.Write(w); err != nil {
		return fmt.Errorf("report: writing workbook: %v", err)
	}
	return nil
}
