// Copyright 2024 The Veil Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package linux contains the constants and types needed to interface with a
// Linux kernel ABI. It should be used instead of syscall or golang.org/x/sys
// whenever the host expectations may differ from the ABI presented to the
// sandboxed application.
package linux

// TimeNsecPerSec is the number of nanoseconds in a second.
const TimeNsecPerSec = 1_000_000_000
