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

package cloud

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"gocloud.dev/blob"
)

// ReadBlob reads the blob at key from bucket.
func ReadBlob(ctx context.Context, bucket *blob.Bucket, key string) ([]byte, error) {
	var b bytes.Buffer
	r, err := bucket.NewReader(ctx, key, nil)
	if err != nil {
		return nil, fmt.Errorf("cloud: reading blob %s: %w", key, err)
	}
	defer r.Close()
	if _, err = io.Copy(&b, r); err != nil {
		return nil, fmt.Errorf("cloud: reading blob %s: %w", key, err)
	}
	return b.Bytes(), nil
}

// WriteBlob streams whatever write produces to key in bucket. The blob is
// only committed if write succeeds.
func WriteBlob(ctx context.Context, bucket *blob.Bucket, key string, write func(io.Writer) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	w, err := bucket.NewWriter(ctx, key, &blob.WriterOptions{})
	if err != nil {
		return fmt.Errorf("cloud: creating writer for blob %s: %v", key, err)
	}
	if err = write(w); err != nil {
		// Canceling the context before Close discards the partial blob.
		cancel()
		w.Close()
		return fmt.Errorf("cloud: writing blob %s: %w", key, err)
	}
	if err = w.Close(); err != nil {
		return fmt.Errorf("cloud: closing blob %s: %v", key, err)
	}
	return nil
}
