package logging

import (
	"time"

	"github.com/felixgeelhaar/bolt/v3"

	"github.com/felixgeelhaar/orderflow/domain/order"
)

// Field is a function that applies structured data to a log event.
type Field func(*bolt.Event) *bolt.Event

// RecordID adds a record ID field.
func RecordID(id string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("record_id", id)
	}
}

// Product adds a product field.
func Product(p order.Product) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("product", string(p))
	}
}

// FromStatus adds a from_status field for transitions.
func FromStatus(s order.Status) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("from_status", string(s))
	}
}

// ToStatus adds a to_status field for transitions.
func ToStatus(s order.Status) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("to_status", string(s))
	}
}

// Actor adds the actor role and ID.
func Actor(a order.Actor) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("actor_role", string(a.Role)).Str("actor_id", a.ID)
	}
}

// Code adds an outcome code field.
func Code(c order.Code) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("code", string(c))
	}
}

// Gate adds the name of the gate that fired.
func Gate(name string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("gate", name)
	}
}

// Version adds a record version field.
func Version(v int64) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Int64("version", v)
	}
}

// Template adds a notification template key.
func Template(key string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("template", key)
	}
}

// Duration adds a duration field in milliseconds.
func Duration(d time.Duration) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Int64("duration_ms", d.Milliseconds())
	}
}

// Attempt adds an attempt counter.
func Attempt(n int) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Int("attempt", n)
	}
}

// ErrorField adds an error field.
func ErrorField(err error) Field {
	return func(e *bolt.Event) *bolt.Event {
		if err == nil {
			return e
		}
		return e.Err(err)
	}
}

// Reason adds a reason field.
func Reason(reason string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("reason", reason)
	}
}

// Component adds a component field for categorization.
func Component(name string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("component", name)
	}
}

// Str adds a string field with custom key.
func Str(key, value string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str(key, value)
	}
}

// Bool adds a boolean field with custom key.
func Bool(key string, value bool) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Bool(key, value)
	}
}

// Int adds an integer field with custom key.
func Int(key string, value int) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Int(key, value)
	}
}
