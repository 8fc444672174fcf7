package executor

import (
	"fmt"
	"regexp"

	"github.com/sevigo/ci-warden/internal/core"
)

// Classifier recognizes explicit failure marker lines in build output.
type Classifier struct {
	markers []*regexp.Regexp
}

// NewClassifier compiles the given marker patterns.
func NewClassifier(patterns []string) (*Classifier, error) {
	c := &Classifier{}
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid failure marker %q: %w", p, err)
		}
		c.markers = append(c.markers, re)
	}
	return c, nil
}

// Match reports whether line is a failure marker.
func (c *Classifier) Match(line string) bool {
	for _, re := range c.markers {
		if re.MatchString(line) {
			return true
		}
	}
	return false
}

// Classify combines the two independent signals of a run. A build succeeds only
// when the process exited with status zero and no failure marker was seen.
func Classify(exitCode int, markerSeen bool) core.BuildStatus {
	if exitCode == 0 && !markerSeen {
		return core.StatusSuccess
	}
	return core.StatusFailed
}
