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
	"encoding/json"
	"fmt"
	"path"
	"runtime"
	"strconv"
	"time"
)

// jsonEntry is the on-the-wire form of a single log line.
type jsonEntry struct {
	Time  time.Time `json:"time"`
	Level Level     `json:"level"`
	Msg   string    `json:"msg"`
}

var levelNames = map[Level]string{
	Warning: "warning",
	Info:    "info",
	Debug:   "debug",
}

// MarshalJSON implements json.Marshaler.MarshalJSON.
func (l Level) MarshalJSON() ([]byte, error) {
	name, ok := levelNames[l]
	if !ok {
		return nil, fmt.Errorf("unknown level %v", l)
	}
	return strconv.AppendQuote(nil, name), nil
}

// UnmarshalJSON implements json.Unmarshaler.UnmarshalJSON. Both string names
// and bare integers are accepted.
func (l *Level) UnmarshalJSON(b []byte) error {
	s := string(b)
	for level, name := range levelNames {
		if s == strconv.Quote(name) || s == strconv.Itoa(int(level)) {
			*l = level
			return nil
		}
	}
	return fmt.Errorf("unknown level %q", s)
}

// JSONEmitter logs one JSON object per line.
type JSONEmitter struct {
	*Writer
}

// Emit implements Emitter.Emit.
func (e JSONEmitter) Emit(depth int, level Level, timestamp time.Time, format string, v ...any) {
	msg := fmt.Sprintf(format, v...)
	if _, file, line, ok := runtime.Caller(depth + 1); ok {
		msg = fmt.Sprintf("%s:%d] %s", path.Base(file), line, msg)
	}
	b, err := json.Marshal(jsonEntry{
		Time:  timestamp,
		Level: level,
		Msg:   msg,
	})
	if err != nil {
		panic(err)
	}
	e.Writer.Write(b)
}
