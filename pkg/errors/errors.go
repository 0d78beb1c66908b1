// Package errors provides the error taxonomy shared by every screenlamp stage.
//
// Every failure that reaches the CLI is an *AppError carrying a Code, the stage
// that raised it and, where one exists, the record identifier and the offending
// input line. Causes are wrapped so errors.Is / errors.As keep working across
// layers.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Code classifies a failure.
type Code string

const (
	// CodeConfig is a malformed selection or distance, an unknown column or an
	// invalid option. Detected before any record is processed.
	CodeConfig Code = "CONFIG"
	// CodeParse is a malformed field inside a structure record or table row.
	CodeParse Code = "PARSE"
	// CodeConsistency is a report row whose id is absent from a structure stream.
	CodeConsistency Code = "CONSISTENCY"
	// CodeIO is a missing file or directory or a failed read/write.
	CodeIO Code = "IO"
	// CodeInternal is anything else (worker panic, bug).
	CodeInternal Code = "INTERNAL"
)

func (c Code) String() string { return string(c) }

// AppError is the structured error carried through all layers.
type AppError struct {
	Code     Code
	Message  string
	Stage    string
	RecordID string
	Line     string
	Cause    error
}

// Error formats as "[CODE] stage: message (record "id", line "...") : cause".
func (e *AppError) Error() string {
	var sb strings.Builder
	sb.WriteString("[")
	sb.WriteString(e.Code.String())
	sb.WriteString("] ")
	if e.Stage != "" {
		sb.WriteString(e.Stage)
		sb.WriteString(": ")
	}
	sb.WriteString(e.Message)
	if e.RecordID != "" {
		fmt.Fprintf(&sb, " (record %q", e.RecordID)
		if e.Line != "" {
			fmt.Fprintf(&sb, ", line %q", e.Line)
		}
		sb.WriteString(")")
	} else if e.Line != "" {
		fmt.Fprintf(&sb, " (line %q)", e.Line)
	}
	if e.Cause != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Cause.Error())
	}
	return sb.String()
}

// Unwrap exposes the cause.
func (e *AppError) Unwrap() error { return e.Cause }

// Is matches another *AppError by code, so errors.Is(err, &AppError{Code: CodeParse}) works.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	if t.Code != e.Code {
		return false
	}
	return t.Message == "" || t.Message == e.Message
}

// WithStage returns a copy tagged with the stage name. Safe on nil.
func (e *AppError) WithStage(stage string) *AppError {
	if e == nil {
		return nil
	}
	clone := *e
	clone.Stage = stage
	return &clone
}

// WithRecord returns a copy tagged with a record id and input line. Safe on nil.
func (e *AppError) WithRecord(id, line string) *AppError {
	if e == nil {
		return nil
	}
	clone := *e
	clone.RecordID = id
	clone.Line = line
	return &clone
}

// New constructs an AppError.
func New(code Code, format string, args ...any) *AppError {
	return &AppError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap constructs an AppError around err. Returns nil when err is nil. When err
// already carries an AppError, its code is preserved if code is empty.
func Wrap(err error, code Code, format string, args ...any) *AppError {
	if err == nil {
		return nil
	}
	if code == "" {
		var ae *AppError
		if errors.As(err, &ae) {
			code = ae.Code
		} else {
			code = CodeInternal
		}
	}
	return &AppError{Code: code, Message: fmt.Sprintf(format, args...), Cause: err}
}

// Config is shorthand for New(CodeConfig, ...).
func Config(format string, args ...any) *AppError { return New(CodeConfig, format, args...) }

// Parse builds a parse error naming the record and line.
func Parse(recordID, line, format string, args ...any) *AppError {
	return New(CodeParse, format, args...).WithRecord(recordID, line)
}

// IO wraps a filesystem or network failure.
func IO(err error, format string, args ...any) *AppError { return Wrap(err, CodeIO, format, args...) }

// Consistency builds an unresolved-id error.
func Consistency(recordID, format string, args ...any) *AppError {
	return New(CodeConsistency, format, args...).WithRecord(recordID, "")
}

// CodeOf returns the code of the first AppError in err's chain, CodeInternal
// for other non-nil errors and "" for nil.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Code
	}
	return CodeInternal
}

// IsCode reports whether any AppError in err's chain has the given code.
func IsCode(err error, code Code) bool {
	for err != nil {
		var ae *AppError
		if !errors.As(err, &ae) {
			return false
		}
		if ae.Code == code {
			return true
		}
		err = ae.Cause
	}
	return false
}

// ExitCode maps an error to the process exit status.
//
//	nil          0
//	CONFIG       2
//	PARSE, IO    3
//	CONSISTENCY  4
//	other        1
func ExitCode(err error) int {
	switch CodeOf(err) {
	case "":
		return 0
	case CodeConfig:
		return 2
	case CodeParse, CodeIO:
		return 3
	case CodeConsistency:
		return 4
	default:
		return 1
	}
}

// Is, As and Unwrap re-export the standard library helpers so callers only
// need to import this package.
func Is(err, target error) bool     { return errors.Is(err, target) }
func As(err error, target any) bool { return errors.As(err, target) }
func Unwrap(err error) error        { return errors.Unwrap(err) }
