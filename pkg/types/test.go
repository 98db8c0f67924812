package types

import (
	"fmt"
	"regexp"
	"strings"
)

// PredicateKind selects how a self test's captured output is checked.
type PredicateKind string

const (
	PredicateContains PredicateKind = "contains"
	PredicateEquals   PredicateKind = "equals"
	PredicateMatches  PredicateKind = "matches"
)

// Predicate is an assertion over the captured output of a self test.
type Predicate struct {
	Kind  PredicateKind
	Value string
}

// Contains builds a substring predicate.
func Contains(s string) Predicate {
	return Predicate{Kind: PredicateContains, Value: s}
}

// Describe renders the predicate for diagnostics.
func (p Predicate) Describe() string {
	switch p.Kind {
	case PredicateEquals:
		return fmt.Sprintf("output equal to %q", p.Value)
	case PredicateMatches:
		return fmt.Sprintf("output matching /%s/", p.Value)
	default:
		return fmt.Sprintf("output containing %q", p.Value)
	}
}

// Validate checks the kind and, for regular expressions, that the pattern compiles.
func (p Predicate) Validate() error {
	switch p.Kind {
	case PredicateContains, PredicateEquals:
		return nil
	case PredicateMatches:
		_, err := regexp.Compile(p.Value)
		return err
	}
	return fmt.Errorf("unknown predicate kind %q", p.Kind)
}

// Match applies the predicate to output. Equality ignores surrounding whitespace.
func (p Predicate) Match(output string) (bool, error) {
	switch p.Kind {
	case PredicateContains:
		return strings.Contains(output, p.Value), nil
	case PredicateEquals:
		return strings.TrimSpace(output) == strings.TrimSpace(p.Value), nil
	case PredicateMatches:
		re, err := regexp.Compile(p.Value)
		if err != nil {
			return false, err
		}
		return re.MatchString(output), nil
	}
	return false, fmt.Errorf("unknown predicate kind %q", p.Kind)
}

// Test is a formula's post-install self test.
type Test struct {
	// Command is a template like Install steps; $prefix is the installed prefix.
	Command   string
	Predicate Predicate

	// ExitCode, when set, must equal the command's exit status.
	ExitCode *int
}
