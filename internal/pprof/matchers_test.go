// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package pprof

import (
	"regexp"

	"github.com/golang/mock/gomock"
)

// logLineMatcher matches log lines against a regular expression.
type logLineMatcher struct {
	pattern *regexp.Regexp
}

var _ gomock.Matcher = logLineMatcher{}

func newRegexMatcher(pattern string) gomock.Matcher {
	return logLineMatcher{pattern: regexp.MustCompile(pattern)}
}

func (m logLineMatcher) Matches(x interface{}) bool {
	line, ok := x.(string)
	return ok && m.pattern.MatchString(line)
}

func (m logLineMatcher) String() string {
	return "log line matching " + m.pattern.String()
}
