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

package sfexutil

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
	"gocloud.dev/gcerrors"

	"github.com/sfexmodel/sfex/cloud"
)

// maxDownloadRetries bounds the retries of one remote read.
const maxDownloadRetries = 5

// downloadBackOff returns the retry schedule for remote reads.
var downloadBackOff = func() backoff.BackOff {
	return backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(250*time.Millisecond),
		backoff.WithMaxElapsedTime(2*time.Minute),
	)
}

// readInput returns the contents of the input file at location, which may
// be a local path, an http(s) URL or a blob URL such as
// gs://bucket/dir/data.toml. Transient failures of remote reads are
// retried with exponential backoff and reported to log.
func readInput(ctx context.Context, location string, log logrus.FieldLogger) ([]byte, error) {
	if _, err := os.Stat(location); err == nil {
		return os.ReadFile(location)
	}
	var read func(context.Context, string) ([]byte, error)
	switch {
	case strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://"):
		read = downloadHTTP
	case cloud.IsBlob(location):
		read = downloadBlob
	default:
		return os.ReadFile(location)
	}
	var b []byte
	err := backoff.RetryNotify(
		func() error {
			var err error
			b, err = read(ctx, location)
			return err
		},
		backoff.WithContext(backoff.WithMaxRetries(downloadBackOff(), maxDownloadRetries), ctx),
		func(err error, d time.Duration) {
			log.WithError(err).WithField("location", location).Warnf("sfexutil: retrying in %v", d)
		},
	)
	if err != nil {
		return nil, err
	}
	return b, nil
}

// downloadHTTP fetches location. Client errors (4xx other than 429) are
// permanent; transport errors and server errors may be retried.
func downloadHTTP(ctx context.Context, location string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("sfexutil: downloading %s: %w", location, err))
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sfexutil: downloading %s: %w", location, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("sfexutil: downloading %s: %s", location, resp.Status)
		if resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return nil, backoff.Permanent(err)
		}
		return nil, err
	}
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("sfexutil: downloading %s: %w", location, err)
	}
	return b, nil
}

// downloadBlob reads the blob at location. The bucket is opened at the
// directory part of the URL and the base name is the key. Only errors the
// blob service reports as transient may be retried.
func downloadBlob(ctx context.Context, location string) ([]byte, error) {
	u, err := url.Parse(location)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("sfexutil: %w", err))
	}
	dir, key := path.Split(u.Path)
	if key == "" {
		return nil, backoff.Permanent(fmt.Errorf("sfexutil: %s does not name a file", location))
	}
	bucket, err := cloud.OpenBucket(ctx, u.Scheme+"://"+u.Host+dir)
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	defer bucket.Close()
	b, err := cloud.ReadBlob(ctx, bucket, key)
	if err != nil && !transient(err) {
		return nil, backoff.Permanent(err)
	}
	return b, err
}

// transient reports whether a blob error may succeed on retry.
func transient(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	switch gcerrors.Code(err) {
	case gcerrors.NotFound, gcerrors.InvalidArgument, gcerrors.PermissionDenied,
		gcerrors.FailedPrecondition, gcerrors.Unimplemented, gcerrors.AlreadyExists, gcerrors.Canceled:
		return false
	}
	return true
}
