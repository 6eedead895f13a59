// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package log

import (
	"fmt"
	"path/filepath"
	"runtime"
	"strings"
)

type callerSettings struct {
	file *bool
	line *bool
	funC *bool
}

func (c *callerSettings) mergeWith(other callerSettings) {
	c.file = mergeFlag(c.file, other.file)
	c.line = mergeFlag(c.line, other.line)
	c.funC = mergeFlag(c.funC, other.funC)
}

func (c *callerSettings) setDefaults() {
	c.file = mergeFlag(ptrTo(false), c.file)
	c.line = mergeFlag(ptrTo(false), c.line)
	c.funC = mergeFlag(ptrTo(false), c.funC)
}

// mergeFlag returns a copy of override if it is set,
// and the existing flag otherwise.
func mergeFlag(existing, override *bool) *bool {
	if override == nil {
		return existing
	}
	return ptrTo(*override)
}

func ptrTo[T any](x T) *T { return &x }

func getCallerString(settings callerSettings) (s string) {
	if !*settings.file && !*settings.line && !*settings.funC {
		return ""
	}

	// getCallerString <- log <- Info <- caller
	const depth = 3
	pc, file, line, ok := runtime.Caller(depth)
	if !ok {
		return "error"
	}

	var fields []string

	if *settings.file {
		fields = append(fields, filepath.Base(file))
	}

	if *settings.line {
		fields = append(fields, "L"+fmt.Sprint(line))
	}

	if *settings.funC {
		details := runtime.FuncForPC(pc)
		if details != nil {
			funcName := strings.TrimLeft(filepath.Ext(details.Name()), ".")
			fields = append(fields, funcName)
		}
	}

	return strings.Join(fields, ":")
}
