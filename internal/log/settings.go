// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package log

import (
	"io"
	"os"
)

type settings struct {
	writer  io.Writer
	level   *Level
	caller  callerSettings
	context []contextKeyValues
}

type contextKeyValues struct {
	key    string
	values []string
}

// newSettings returns settings using the options given.
func newSettings(options []Option) (settings settings) {
	for _, option := range options {
		option(&settings)
	}
	return settings
}

// copy returns a deep copy of the settings.
func (s settings) copy() (copied settings) {
	copied.writer = s.writer
	if s.level != nil {
		level := *s.level
		copied.level = &level
	}
	copied.caller.mergeWith(s.caller)
	if s.context != nil {
		copied.context = make([]contextKeyValues, len(s.context))
		for i, kvs := range s.context {
			values := make([]string, len(kvs.values))
			copy(values, kvs.values)
			copied.context[i] = contextKeyValues{key: kvs.key, values: values}
		}
	}
	return copied
}

// mergeWith sets the fields set in other on the settings,
// and appends the context key values of other.
func (s *settings) mergeWith(other settings) {
	if other.writer != nil {
		s.writer = other.writer
	}

	if other.level != nil {
		value := *other.level
		s.level = &value
	}

	s.caller.mergeWith(other.caller)

	for _, kvs := range other.context {
		for _, value := range kvs.values {
			AddContext(kvs.key, value)(s)
		}
	}
}

func (s *settings) setDefaults() {
	if s.writer == nil {
		s.writer = os.Stdout
	}

	if s.level == nil {
		value := Info
		s.level = &value
	}

	s.caller.setDefaults()
}
