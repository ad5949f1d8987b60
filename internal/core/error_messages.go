package core

// # Error Codes Reference
//
// Technical errors are mapped to user-facing messages with a code users can
// quote when reporting a problem. Codes are grouped by category:
//
// # Stitch Errors (STI001-STI099)
//
//	STI001 - Row too short: A data row has fewer fields than its header
//	         Action: Check the reported file and line for missing fields
//	         Patterns: "row length mismatch"
//
//	STI002 - Malformed slice: The column slice could not be parsed
//	         Action: Use start:stop:step with integers, e.g. 1:5 or ::2
//	         Patterns: "malformed slice"
//
//	STI003 - Zero step: A slice step of 0 selects nothing
//	         Action: Use a positive or negative step
//	         Patterns: "slice step cannot be zero"
//
//	STI004 - Uneven inputs: One file ran out of rows before the others
//	         Action: Give every file the same number of rows or disable strict mode
//	         Patterns: "different row counts"
//
// # Simulation Errors (SIM001-SIM099)
//
//	SIM001 - Invalid power: A metric power is not a positive number
//	SIM002 - Invalid metric: Metric must be root or f
//	SIM003 - Empty power list: The power list selects no powers
//	SIM004 - Too many powers: The power list expands past the limit
//	SIM005 - Too many samples: The request asks for more samples than allowed
//	SIM006 - Too many bins: The histogram asks for more bins than allowed
//	SIM007 - Too many dimensions: The cube asks for more dimensions than allowed
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - File too large: Upload exceeds the size limit
//	FILE002 - Invalid CSV: File could not be parsed as CSV
//	FILE003 - Cannot open: An input file could not be opened
//	FILE004 - No file: No file was given
//	FILE005 - Empty file: A file has no header row
//
// # Run History (RUN001-RUN099)
//
//	RUN001 - Run not found: No run has the requested id
//	RUN002 - History disabled: No database is configured
//	RUN003 - Invalid id: The run id is not a UUID
//	RUN004 - Database unavailable: Unable to reach the history database
//
// # Job Errors (JOB001-JOB099)
//
//	JOB001 - System busy: Too many jobs in progress
//	JOB002 - Request cancelled
//	JOB003 - Request timeout
//
// # Request Errors (REQ001-REQ099)
//
//	REQ001 - Invalid parameter: A query or form value could not be parsed
//
// # Authentication (AUTH001-AUTH099)
//
//	AUTH001 - Missing API key: written by middleware.APIKeyAuth
//	AUTH002 - Invalid API key: written by middleware.APIKeyAuth
//
// # Rate Limiting (RATE001)
//
//	RATE001 - Rate limited: Too many requests
//
// # Default Error (ERR000)
//
//	ERR000 - Unknown error: check application logs for the technical error
//
// Patterns are matched case-insensitively with strings.Contains and the
// first match wins, so specific patterns come before general ones.

import (
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

var errorPatterns = []errorPattern{
	// Stitch
	{
		pattern: "row length mismatch",
		msg: UserMessage{
			Message: "A data row has fewer fields than its header",
			Action:  "Check the reported file and line for missing fields",
			Code:    "STI001",
		},
	},
	{
		pattern: "malformed slice",
		msg: UserMessage{
			Message: "The column slice could not be parsed",
			Action:  "Use start:stop:step with integers, e.g. 1:5 or ::2",
			Code:    "STI002",
		},
	},
	{
		pattern: "slice step cannot be zero",
		msg: UserMessage{
			Message: "A slice step of 0 selects nothing",
			Action:  "Use a positive or negative step",
			Code:    "STI003",
		},
	},
	{
		pattern: "different row counts",
		msg: UserMessage{
			Message: "One file ran out of rows before the others",
			Action:  "Give every file the same number of rows or disable strict mode",
			Code:    "STI004",
		},
	},

	// Simulation
	{
		pattern: "invalid metric power",
		msg: UserMessage{
			Message: "A metric power is not a positive number",
			Action:  "Use positive powers such as 1, 2 or 0.5",
			Code:    "SIM001",
		},
	},
	{
		pattern: "invalid metric",
		msg: UserMessage{
			Message: "Unknown distance metric",
			Action:  "Use metric root or f",
			Code:    "SIM002",
		},
	},
	{
		pattern: "power list is empty",
		msg: UserMessage{
			Message: "The power list selects no powers",
			Action:  "Use a list such as 1_3 or .5,1,2",
			Code:    "SIM003",
		},
	},
	{
		pattern: "power list longer",
		msg: UserMessage{
			Message: "The power list is too long",
			Action:  "Use a larger step or a shorter range",
			Code:    "SIM004",
		},
	},
	{
		pattern: "too many samples",
		msg: UserMessage{
			Message: "The request asks for more samples than allowed",
			Action:  "Lower randoms or run the distance tool locally",
			Code:    "SIM005",
		},
	},
	{
		pattern: "too many histogram bins",
		msg: UserMessage{
			Message: "The histogram has more bins than allowed",
			Action:  "Lower bins or run the distance tool locally",
			Code:    "SIM006",
		},
	},
	{
		pattern: "too many dimensions",
		msg: UserMessage{
			Message: "The cube has more dimensions than allowed",
			Action:  "Lower dims or run the distance tool locally",
			Code:    "SIM007",
		},
	},

	// Files
	{
		pattern: "request body too large",
		msg: UserMessage{
			Message: "Upload exceeds the size limit",
			Action:  "Split the files or stitch them with the command-line tool",
			Code:    "FILE001",
		},
	},
	{
		pattern: "invalid csv",
		msg: UserMessage{
			Message: "File could not be parsed as CSV",
			Action:  "Ensure the file is comma-separated text",
			Code:    "FILE002",
		},
	},
	{
		pattern: "cannot open input",
		msg: UserMessage{
			Message: "An input file could not be opened",
			Action:  "Check the path and file permissions",
			Code:    "FILE003",
		},
	},
	{
		pattern: "no file provided",
		msg: UserMessage{
			Message: "No file was given",
			Action:  "Select at least one CSV file",
			Code:    "FILE004",
		},
	},
	{
		pattern: "empty file",
		msg: UserMessage{
			Message: "A file has no header row",
			Action:  "Upload CSV files with a header line",
			Code:    "FILE005",
		},
	},

	// Run history
	{
		pattern: "run not found",
		msg: UserMessage{
			Message: "Run not found",
			Action:  "Check the run id on the index page",
			Code:    "RUN001",
		},
	},
	{
		pattern: "run history disabled",
		msg: UserMessage{
			Message: "Run history is not enabled",
			Action:  "Set DATABASE_URL to keep a history of runs",
			Code:    "RUN002",
		},
	},
	{
		pattern: "invalid uuid",
		msg: UserMessage{
			Message: "The run id is not valid",
			Action:  "Use the id shown in the run list",
			Code:    "RUN003",
		},
	},
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to connect to the history database",
			Action:  "Please try again in a few moments",
			Code:    "RUN004",
		},
	},

	// Jobs
	{
		pattern: "too many concurrent jobs",
		msg: UserMessage{
			Message: "System is busy",
			Action:  "Please wait a moment and try again",
			Code:    "JOB001",
		},
	},
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "Request was cancelled",
			Action:  "Please try again",
			Code:    "JOB002",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "Request timed out",
			Action:  "Use fewer samples or smaller files",
			Code:    "JOB003",
		},
	},

	{
		pattern: "invalid query parameter",
		msg: UserMessage{
			Message: "A request parameter is not valid",
			Action:  "Check the parameter values and try again",
			Code:    "REQ001",
		},
	},
	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Please wait a moment before trying again",
			Code:    "RATE001",
		},
	},
}

// defaultMessage is returned when no pattern matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// If no pattern matches, the ERR000 fallback is returned.
//
//	msg := MapError(fmt.Errorf("b line 3: %w", stitch.ErrRowLengthMismatch))
//	// msg.Code == "STI001"
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	errStr := strings.ToLower(err.Error())

	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err matches a known pattern rather than
// the ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError pairs a technical error, kept for logging, with its
// user-facing message.
type UserError struct {
	Technical error       // Original technical error for logging
	User      UserMessage // User-friendly message for display
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError maps err to a UserError. Returns nil if err is nil.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}
