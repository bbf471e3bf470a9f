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

package log

import (
	"time"

	"golang.org/x/time/rate"
)

// throttledLogger drops messages in excess of its rate budget rather than
// blocking the caller.
type throttledLogger struct {
	inner Logger
	lim   *rate.Limiter
}

func (tl *throttledLogger) Debugf(format string, v ...any) {
	if tl.lim.Allow() {
		tl.inner.Debugf(format, v...)
	}
}

func (tl *throttledLogger) Infof(format string, v ...any) {
	if tl.lim.Allow() {
		tl.inner.Infof(format, v...)
	}
}

func (tl *throttledLogger) Warningf(format string, v ...any) {
	if tl.lim.Allow() {
		tl.inner.Warningf(format, v...)
	}
}

func (tl *throttledLogger) IsLogging(level Level) bool {
	return tl.inner.IsLogging(level)
}

// BasicRateLimitedLogger returns a Logger that writes to the global logger
// at most once per the given interval.
func BasicRateLimitedLogger(every time.Duration) Logger {
	return RateLimitedLogger(Log(), every)
}

// RateLimitedLogger returns a Logger that writes to logger at most once per
// the given interval.
func RateLimitedLogger(logger Logger, every time.Duration) Logger {
	return &throttledLogger{
		inner: logger,
		lim:   rate.NewLimiter(rate.Every(every), 1),
	}
}
