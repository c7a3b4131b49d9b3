// Copyright 2025 BLS Query Authors

// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at

//     http://www.apache.org/licenses/LICENSE-2.0

// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package bls

import (
	"fmt"
	"net/http"
	"strings"
)

// TransientError indicates that a request kept failing with retryable
// conditions until the retry budget ran out. Re-running the same request
// later may succeed.
type TransientError struct {
	Status   int   // last HTTP status code, 0 when the failure was not HTTP
	Attempts int   // number of attempts made
	Err      error // last underlying error
}

var _ error = &TransientError{}

func (e *TransientError) Error() string {
	return fmt.Sprintf("request failed after %d attempts: %s", e.Attempts, e.Err.Error())
}

func (e *TransientError) Unwrap() error { return e.Err }

// FatalError indicates a request that no amount of retrying can fix, such as
// a client-side HTTP error, a malformed response body, or an API-level
// rejection.
type FatalError struct {
	Status   int      // HTTP status code, 0 when the failure was not HTTP
	Messages []string // API-level messages, when present
	Err      error
}

var _ error = &FatalError{}

func (e *FatalError) Error() string {
	if len(e.Messages) > 0 {
		return fmt.Sprintf("request rejected: %s: %s",
			e.Err.Error(), strings.Join(e.Messages, "; "))
	}
	return fmt.Sprintf("request rejected: %s", e.Err.Error())
}

func (e *FatalError) Unwrap() error { return e.Err }

// retryableStatus reports whether an HTTP status code is worth retrying:
// throttling and server-side failures.
func retryableStatus(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}
