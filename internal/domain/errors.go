package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrQuestionNotFound indicates a referenced question id is not in the bank.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrTestNotFound indicates the requested assembled test does not exist.
	ErrTestNotFound = errors.New("test not found")
	// ErrNoActiveTest indicates no active singleton exists for an exam flavor.
	ErrNoActiveTest = errors.New("no active test")
	// ErrNoCandidates is returned when the priority selector cannot find a
	// single usable question for the requested subject.
	ErrNoCandidates = errors.New("no questions available for subject")
	// ErrUnknownPattern indicates an assembly request named a pattern that is
	// not registered.
	ErrUnknownPattern = errors.New("unknown test pattern")
)

// ShortfallError reports that the question bank could not supply a declared
// pattern even after the section-relaxed fallback draw. Partial tests are
// never served; the whole assembly fails with this error.
type ShortfallError struct {
	Subject   string
	Section   Section
	Requested int
	Got       int
}

func (e *ShortfallError) Error() string {
	if e.Section != "" {
		return fmt.Sprintf("question shortfall: subject %s section %s needs %d, bank supplied %d",
			e.Subject, e.Section, e.Requested, e.Got)
	}
	return fmt.Sprintf("question shortfall: subject %s needs %d, bank supplied %d",
		e.Subject, e.Requested, e.Got)
}

// PatternMismatchError reports a post-assembly validation failure: the
// assembled test does not exactly match its declared pattern.
type PatternMismatchError struct {
	Pattern string
	Detail  string
}

func (e *PatternMismatchError) Error() string {
	return fmt.Sprintf("assembled test violates pattern %q: %s", e.Pattern, e.Detail)
}
