// Copyright 2024 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package badger

import (
	"strings"

	"github.com/ChainSafe/jellyfish/internal/log"
	badger "github.com/dgraph-io/badger/v3"
)

var logger = log.NewFromGlobal(log.AddContext("database", "badger"))

var _ badger.Logger = badgerLogger{}

// badgerLogger forwards badger logs to the package logger.
// Badger logs compactions and value log operations at info level,
// so its info and debug logs are lowered by one level.
type badgerLogger struct{}

func (badgerLogger) Errorf(format string, args ...interface{}) {
	logger.Errorf(trimNewline(format), args...)
}

func (badgerLogger) Warningf(format string, args ...interface{}) {
	logger.Warnf(trimNewline(format), args...)
}

func (badgerLogger) Infof(format string, args ...interface{}) {
	logger.Debugf(trimNewline(format), args...)
}

func (badgerLogger) Debugf(format string, args ...interface{}) {
	logger.Tracef(trimNewline(format), args...)
}

func trimNewline(format string) string {
	return strings.TrimSuffix(format, "\n")
}
