// Copyright 2026 The Bakkutteh Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package logging funnels all command output through a single logger so the
// CLI keeps stdout free for rendered manifests.
package logging

import (
	"os"

	"github.com/sirupsen/logrus"
)

// The shared standard logger is configured here so packages that call logrus
// directly pick up the same formatter and level.
var logger = newLogger()

func newLogger() *logrus.Logger {
	l := logrus.StandardLogger()
	l.SetOutput(os.Stderr)
	l.SetFormatter(&logrus.TextFormatter{
		DisableTimestamp: true,
	})
	return l
}

// SetVerbose switches the logger to debug level.
func SetVerbose(verbose bool) {
	if verbose {
		logger.SetLevel(logrus.DebugLevel)
	} else {
		logger.SetLevel(logrus.InfoLevel)
	}
}

// Debug logs a formatted message at debug level.
func Debug(format string, args ...any) {
	logger.Debugf(format, args...)
}

// Info logs a formatted message at info level.
func Info(format string, args ...any) {
	logger.Infof(format, args...)
}

// Error logs a formatted message at error level.
func Error(format string, args ...any) {
	logger.Errorf(format, args...)
}

// Fatal logs a formatted message at fatal level and exits with a non-zero
// status code.
func Fatal(format string, args ...any) {
	logger.Fatalf(format, args...)
}
