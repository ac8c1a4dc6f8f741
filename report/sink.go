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
	"context"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
	"gocloud.dev/blob"
	"gonum.org/v1/plot"

	"github.com/sfexmodel/sfex/cloud"
)

// Sink stores report artifacts in a blob bucket.
type Sink struct {
	bucket   *blob.Bucket
	location string
	log      logrus.FieldLogger
}

// OpenSink opens the bucket at location, which may be a local directory or
// any URL accepted by cloud.OpenBucket.
func OpenSink(ctx context.Context, location string, log logrus.FieldLogger) (*Sink, error) {
	b, err := cloud.OpenBucket(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("report: opening output %s: %w", location, err)
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Sink{bucket: b, location: location, log: log}, nil
}

// Write stores whatever write produces under name.
func (s *Sink) Write(ctx context.Context, name string, write func(io.Writer) error) error {
	if err := cloud.WriteBlob(ctx, s.bucket, name, write); err != nil {
		return fmt.Errorf("report: %w", err)
	}
	s.log.WithFields(logrus.Fields{"output": s.location, "file": name}).Info("report: wrote output")
	return nil
}

// PNG stores p as a PNG image under name.
func (s *Sink) PNG(ctx context.Context, name string, p *plot.Plot) error {
	return s.Write(ctx, name, func(w io.Writer) error { return WritePNG(w, p) })
}

// XLSX stores sheets as a workbook under name.
func (s *Sink) XLSX(ctx context.Context, name string, sheets ...Sheet) error {
	return s.Write(ctx, name, func(w io.Writer) error { return WriteXLSX(w, sheets...) })
}

// Bucket returns the underlying bucket.
func (s *Sink) Bucket() *blob.Bucket { return s.bucket }

// Close closes the underlying bucket.
func (s *Sink) Close() error { return s.bucket.Close() }
