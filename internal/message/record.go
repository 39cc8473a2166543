// Package message holds the normalized form of the captured WhatsApp message
// log: one Record per entry, every source field optional, and the named
// defaults the dashboard falls back to when a field is missing.
package message

import "time"

const (
	// UnknownSender is shown when a record carries no fromName.
	UnknownSender = "Desconhecido"
	// DirectLabel names the group of a group record whose groupName is missing.
	DirectLabel = "Direto"
	// TimeLayout renders a record time as DD/MM HH:MM:SS.
	TimeLayout = "02/01 15:04:05"
	// MissingTime is shown when a record has no usable timestamp.
	MissingTime = "?"
)

// Optional is a value that may be absent. Unlike a pointer, copies never
// share state, so a Record handed out by a Dataset cannot be used to mutate it.
type Optional[T any] struct {
	Value T
	Valid bool
}

// Some returns a present Optional.
func Some[T any](v T) Optional[T] {
	return Optional[T]{Value: v, Valid: true}
}

// None returns an absent Optional.
func None[T any]() Optional[T] {
	return Optional[T]{}
}

// Get returns the value and whether it is present.
func (o Optional[T]) Get() (T, bool) {
	return o.Value, o.Valid
}

// Or returns the value, or def when absent.
func (o Optional[T]) Or(def T) T {
	if !o.Valid {
		return def
	}
	return o.Value
}

// Record is one captured message. Source fields mirror messages.json; Time and
// Hour are derived from Timestamp at load time.
type Record struct {
	Timestamp Optional[int64] // milliseconds since epoch
	Body      Optional[string]
	FromName  Optional[string]
	IsGroup   Optional[bool]
	GroupName Optional[string]

	Time Optional[time.Time]
	Hour Optional[int]
}

// Sender returns the display name of the author.
func (r Record) Sender() string {
	return r.FromName.Or(UnknownSender)
}

// Grouped reports whether the message was sent to a group. Missing means no.
func (r Record) Grouped() bool {
	return r.IsGroup.Or(false)
}

// Prefix returns "[<group>] " for group messages and "" otherwise.
func (r Record) Prefix() string {
	if !r.Grouped() {
		return ""
	}
	return "[" + r.GroupName.Or(DirectLabel) + "] "
}

// Text returns the message body, or "" when it was not captured.
func (r Record) Text() string {
	return r.Body.Or("")
}

// TimeLabel formats the record time, or returns MissingTime.
func (r Record) TimeLabel() string {
	t, ok := r.Time.Get()
	if !ok {
		return MissingTime
	}
	return t.Format(TimeLayout)
}

// withTimestamp sets Timestamp and the fields derived from it.
func (r *Record) withTimestamp(ms int64, loc *time.Location) {
	if loc == nil {
		loc = time.UTC
	}
	t := time.UnixMilli(ms).In(loc)
	r.Timestamp = Some(ms)
	r.Time = Some(t)
	r.Hour = Some(t.Hour())
}

// NewRecord builds a Record from raw fields, deriving Time and Hour in loc.
// A nil pointer means the field was absent.
func NewRecord(ts *int64, body, fromName *string, isGroup *bool, groupName *string, loc *time.Location) Record {
	var r Record
	if ts != nil {
		r.withTimestamp(*ts, loc)
	}
	if body != nil {
		r.Body = Some(*body)
	}
	if fromName != nil {
		r.FromName = Some(*fromName)
	}
	if isGroup != nil {
		r.IsGroup = Some(*isGroup)
	}
	if groupName != nil {
		r.GroupName = Some(*groupName)
	}
	return r
}
