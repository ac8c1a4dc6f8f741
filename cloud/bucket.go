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

// Package cloud opens the blob storage buckets that sfex writes its reports
// to.
package cloud

import (
	"context"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"

	"gocloud.dev/blob"
	"gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/gcsblob" // registers gs://
	"gocloud.dev/blob/memblob"
	_ "gocloud.dev/blob/s3blob" // registers s3://
)

// OpenBucket returns the blob storage bucket at location, which is either a
// local directory or a URL of the form 'provider://name'. The accepted
// providers are "file" for the local filesystem, "mem" for an in-memory
// bucket, "gs" for Google Cloud Storage and "s3" for AWS S3. Credentials for
// gs and s3 are taken from the environment, and a path after the bucket
// name becomes a key prefix. Local directories are created if
// they do not exist.
func OpenBucket(ctx context.Context, location string) (*blob.Bucket, error) {
	if !IsBlob(location) {
		return localBucket(location)
	}
	u, err := url.Parse(location)
	if err != nil {
		return nil, fmt.Errorf("cloud.OpenBucket: %v", err)
	}
	switch u.Scheme {
	case "file":
		return localBucket(filepath.FromSlash(u.Host + u.Path))
	case "mem":
		return memblob.OpenBucket(nil), nil
	case "gs", "s3":
		root := url.URL{Scheme: u.Scheme, Host: u.Host, RawQuery: u.RawQuery}
		b, err := blob.OpenBucket(ctx, root.String())
		if err != nil {
			return nil, fmt.Errorf("cloud.OpenBucket: %v", err)
		}
		if prefix := strings.Trim(u.Path, "/"); prefix != "" {
			return blob.PrefixedBucket(b, prefix+"/"), nil
		}
		return b, nil
	default:
		return nil, fmt.Errorf("cloud.OpenBucket: invalid provider %s", u.Scheme)
	}
}

func localBucket(dir string) (*blob.Bucket, error) {
	if dir == "" {
		dir = "."
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cloud.OpenBucket: %v", err)
	}
	b, err := fileblob.OpenBucket(abs, &fileblob.Options{CreateDir: true})
	if err != nil {
		return nil, fmt.Errorf("cloud.OpenBucket: %v", err)
	}
	return b, nil
}

// IsBlob returns whether location is a URL of the form 'provider://name'
// rather than a plain local path.
func IsBlob(location string) bool {
	i := strings.Index(location, "://")
	return i > 1
}
