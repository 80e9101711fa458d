// Package task defines the fixed set of task types a chat request can carry.
package task

import "fmt"

// Type is one of the four supported task categories.
type Type string

const (
	Question Type = "question"
	Summary  Type = "summary"
	Creative Type = "creative"
	Advice   Type = "advice"
)

const (
	creativeTemperature = 0.8
	defaultTemperature  = 0.3
)

// All lists the task types in their canonical order.
var All = []Type{Question, Summary, Creative, Advice}

// Parse returns the Type named by s, or false if s is not a known task type.
func Parse(s string) (Type, bool) {
	for _, t := range All {
		if string(t) == s {
			return t, true
		}
	}
	return "", false
}

// Tag returns the bracket prefix an input of this type must start with.
func (t Type) Tag() string {
	return fmt.Sprintf("[%s]", t)
}

// Temperature returns the sampling temperature used for this task type.
func (t Type) Temperature() float32 {
	if t == Creative {
		return creativeTemperature
	}
	return defaultTemperature
}
