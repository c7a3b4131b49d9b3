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

// Package bls implements a client for the BLS public data API v2.
//
// The API accepts a batch of up to 50 series identifiers covering up to 20
// years per request; Plan splits a larger request into compliant chunks. The
// Client POSTs each chunk, rate-limits requests, and retries throttling (HTTP
// 429) and server (5xx) responses with exponential backoff. Failures surface
// as *TransientError (retries exhausted) or *FatalError (no retry can help).
//
// The Client is injected into a context with UseClient and extracted with
// GetClient, so that tests can substitute a fake server.
package bls
