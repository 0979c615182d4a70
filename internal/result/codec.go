package result

import (
	"fmt"
	"strconv"
	"strings"
)

// fieldCount is the number of newline-separated fields in the wire format:
// result_type, url, response_time, status_code, pattern, utc_timestamp_ms.
const fieldCount = 6

// DecodeError wraps a malformed encoding, carrying the offending input for
// diagnostics.
type DecodeError struct {
	Input string
	Err   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%q is not a valid Result encoding: %v", e.Input, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Encode renders r as the line-oriented wire format: six '\n'-separated
// fields in fixed order, no trailing newline, UTF-8 bytes.
func Encode(r Result) []byte {
	fields := []string{
		strconv.Itoa(int(r.ResultType)),
		r.URL,
		strconv.FormatFloat(r.ResponseTime, 'f', -1, 64),
		strconv.Itoa(r.StatusCode),
		strconv.Itoa(int(r.Pattern)),
		strconv.FormatInt(r.UTCTimestampMs, 10),
	}

	return []byte(strings.Join(fields, "\n"))
}

// Decode parses the line-oriented wire format produced by Encode. Any field
// count mismatch or numeric parse failure yields a *DecodeError carrying the
// offending input.
func Decode(b []byte) (Result, error) {
	input := string(b)

	lines := strings.Split(input, "\n")
	if len(lines) != fieldCount {
		return Result{}, &DecodeError{
			Input: input,
			Err:   fmt.Errorf("expected %d fields, got %d", fieldCount, len(lines)),
		}
	}

	resultType, err := strconv.Atoi(lines[0])
	if err != nil {
		return Result{}, &DecodeError{Input: input, Err: fmt.Errorf("result_type: %w", err)}
	}

	responseTime, err := strconv.ParseFloat(lines[2], 64)
	if err != nil {
		return Result{}, &DecodeError{Input: input, Err: fmt.Errorf("response_time: %w", err)}
	}

	statusCode, err := strconv.Atoi(lines[3])
	if err != nil {
		return Result{}, &DecodeError{Input: input, Err: fmt.Errorf("status_code: %w", err)}
	}

	pattern, err := strconv.Atoi(lines[4])
	if err != nil {
		return Result{}, &DecodeError{Input: input, Err: fmt.Errorf("pattern: %w", err)}
	}

	utcTimestampMs, err := strconv.ParseInt(lines[5], 10, 64)
	if err != nil {
		return Result{}, &DecodeError{Input: input, Err: fmt.Errorf("utc_timestamp_ms: %w", err)}
	}

	return Result{
		ResultType:     ResultType(resultType),
		URL:            lines[1],
		ResponseTime:   responseTime,
		StatusCode:     statusCode,
		Pattern:        Pattern(pattern),
		UTCTimestampMs: utcTimestampMs,
	}, nil
}
