package message

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/tidwall/gjson"
)

var (
	errEncoding = errors.New("file is not valid UTF-8")
	errSyntax   = errors.New("invalid JSON")
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Parse normalizes the raw contents of messages.json. Blank input and any
// falsy document (null, false, 0, "", [] or {}) yield an empty dataset.
// Field values of the wrong type are treated as absent; any other non-array
// document or a non-object element is an error. Record times are expressed
// in loc (UTC when nil).
func Parse(data []byte, loc *time.Location) (*Dataset, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if len(bytes.TrimSpace(data)) == 0 {
		return Empty(), nil
	}
	if !utf8.Valid(data) {
		return nil, errEncoding
	}
	if !gjson.ValidBytes(data) {
		return nil, errSyntax
	}

	root := gjson.ParseBytes(data)
	if falsy(root) {
		return Empty(), nil
	}
	if !root.IsArray() {
		return nil, fmt.Errorf("expected a JSON array, got %s", kind(root))
	}

	var (
		records []Record
		elemErr error
		idx     int
	)
	root.ForEach(func(_, v gjson.Result) bool {
		if !v.IsObject() {
			elemErr = fmt.Errorf("element %d: expected an object, got %s", idx, kind(v))
			return false
		}
		records = append(records, parseRecord(v, loc))
		idx++
		return true
	})
	if elemErr != nil {
		return nil, elemErr
	}
	return &Dataset{records: records}, nil
}

// parseRecord walks the members in order so a repeated key resolves to its
// last value.
func parseRecord(v gjson.Result, loc *time.Location) Record {
	var r Record
	v.ForEach(func(key, val gjson.Result) bool {
		switch key.Str {
		case "timestamp":
			r.Timestamp, r.Time, r.Hour = None[int64](), None[time.Time](), None[int]()
			if ms, ok := timestampField(val); ok {
				r.withTimestamp(ms, loc)
			}
		case "body":
			r.Body = textField(val, false)
		case "fromName":
			r.FromName = textField(val, true)
		case "groupName":
			r.GroupName = textField(val, true)
		case "isGroup":
			r.IsGroup = groupField(val)
		}
		return true
	})
	return r
}

// groupField accepts booleans and the number 1 as true; other numbers are
// false and anything else is absent.
func groupField(v gjson.Result) Optional[bool] {
	switch v.Type {
	case gjson.True, gjson.False:
		return Some(v.Bool())
	case gjson.Number:
		return Some(v.Num == 1)
	}
	return None[bool]()
}

func falsy(v gjson.Result) bool {
	switch v.Type {
	case gjson.Null, gjson.False:
		return true
	case gjson.Number:
		return v.Num == 0
	case gjson.String:
		return v.Str == ""
	}
	return v.IsObject() && len(v.Map()) == 0
}

func timestampField(v gjson.Result) (int64, bool) {
	switch v.Type {
	case gjson.Number:
		return v.Int(), true
	case gjson.String:
		ms, err := strconv.ParseInt(strings.TrimSpace(v.Str), 10, 64)
		if err != nil {
			return 0, false
		}
		return ms, true
	}
	return 0, false
}

// textField reads a string (or a bare number, kept verbatim). With
// blankAbsent, whitespace-only strings count as missing.
func textField(v gjson.Result, blankAbsent bool) Optional[string] {
	switch v.Type {
	case gjson.String:
		if blankAbsent && strings.TrimSpace(v.Str) == "" {
			return None[string]()
		}
		return Some(v.Str)
	case gjson.Number:
		return Some(v.Raw)
	}
	return None[string]()
}

func kind(v gjson.Result) string {
	switch v.Type {
	case gjson.Null:
		return "null"
	case gjson.True, gjson.False:
		return "boolean"
	case gjson.Number:
		return "number"
	case gjson.String:
		return "string"
	}
	if v.IsObject() {
		return "object"
	}
	return "array"
}
