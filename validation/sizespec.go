package validation

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

const (
	widthKey  = "w"
	heightKey = "h"
)

// SizeSpec is the target box requested through the w and h query parameters.
// A nil field is unset.
type SizeSpec struct {
	Width  *int
	Height *int

	// HeightFirst records that h appeared before w in the query string.
	HeightFirst bool
}

// ParseError reports a malformed size parameter.
type ParseError struct {
	Key   string
	Value string
	Err   error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid size parameter %s=%q: %v", e.Key, e.Value, e.Err)
	}
	return fmt.Sprintf("invalid size parameter %s=%q", e.Key, e.Value)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ParseSizeSpec extracts the target size from a raw query string. It returns
// nil without error when neither w nor h is present.
func ParseSizeSpec(querystring string) (*SizeSpec, error) {
	var (
		spec                SizeSpec
		seenW, seenH        bool
		rawWidth, rawHeight string
	)

	for _, pair := range strings.Split(querystring, "&") {
		if pair == "" {
			continue
		}

		rawKey, rawValue, _ := strings.Cut(pair, "=")
		key, err := url.QueryUnescape(rawKey)
		if err != nil {
			return nil, &ParseError{Key: rawKey, Value: rawValue, Err: err}
		}

		if key != widthKey && key != heightKey {
			continue
		}

		value, err := url.QueryUnescape(rawValue)
		if err != nil {
			return nil, &ParseError{Key: key, Value: rawValue, Err: err}
		}

		// last value wins, first occurrence decides ordering
		if key == widthKey {
			seenW = true
			rawWidth = value
		} else {
			if !seenW && !seenH {
				spec.HeightFirst = true
			}
			seenH = true
			rawHeight = value
		}
	}

	if !seenW && !seenH {
		return nil, nil
	}

	var err error
	if spec.Width, err = parseDimension(widthKey, rawWidth); err != nil {
		return nil, err
	}
	if spec.Height, err = parseDimension(heightKey, rawHeight); err != nil {
		return nil, err
	}

	return &spec, nil
}

func parseDimension(key, value string) (*int, error) {
	if value == "" {
		return nil, nil
	}

	n, err := strconv.Atoi(value)
	if err != nil {
		return nil, &ParseError{Key: key, Value: value, Err: err}
	}

	if n < 1 {
		return nil, &ParseError{Key: key, Value: value, Err: fmt.Errorf("must be greater than 0")}
	}

	return &n, nil
}

// Active reports whether at least one dimension is populated.
func (s SizeSpec) Active() bool {
	return s.Width != nil || s.Height != nil
}

// Encode renders the populated fields as a query string, in the order they
// were first seen. Unset fields are omitted.
func (s SizeSpec) Encode() string {
	var builder strings.Builder

	write := func(key string, value *int) {
		if value == nil {
			return
		}
		if builder.Len() > 0 {
			builder.WriteByte('&')
		}
		builder.WriteString(key)
		builder.WriteByte('=')
		builder.WriteString(strconv.Itoa(*value))
	}

	if s.HeightFirst {
		write(heightKey, s.Height)
		write(widthKey, s.Width)
	} else {
		write(widthKey, s.Width)
		write(heightKey, s.Height)
	}

	return builder.String()
}

func (s SizeSpec) String() string {
	return s.Encode()
}
