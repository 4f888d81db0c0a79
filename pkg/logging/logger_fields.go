package logging

import (
	"time"
)

// Common field constructors
func String(key, value string) Field {
	return Field{Key: key, Value: value}
}

func Int(key string, value int) Field {
	return Field{Key: key, Value: value}
}

func Int64(key string, value int64) Field {
	return Field{Key: key, Value: value}
}

func Float64(key string, value float64) Field {
	return Field{Key: key, Value: value}
}

func Bool(key string, value bool) Field {
	return Field{Key: key, Value: value}
}

func Duration(key string, value time.Duration) Field {
	return Field{Key: key, Value: value.String()}
}

func Error(err error) Field {
	if err == nil {
		return Field{Key: "error", Value: nil}
	}
	return Field{Key: "error", Value: err.Error()}
}

func Any(key string, value any) Field {
	return Field{Key: key, Value: value}
}

// Component field helpers for common component names
func Component(name string) Field {
	return String("component", name)
}

func Operation(op string) Field {
	return String("operation", op)
}

func Latency(d time.Duration) Field {
	return Duration("latency", d)
}

func Count(n int) Field {
	return Int("count", n)
}

// Sampling run fields

func RunID(id string) Field {
	return String("run_id", id)
}

func Toolset(code string) Field {
	return String("toolset", code)
}

func NodeID(id int64) Field {
	return Int64("node_id", id)
}

func LinkID(id int64) Field {
	return Int64("link_id", id)
}

func EquipmentID(id int64) Field {
	return Int64("equipment_id", id)
}

func PocID(id int64) Field {
	return Int64("poc_id", id)
}

func PathHash(hash string) Field {
	return String("path_hash", hash)
}

// Coverage is logged as a percentage in [0, 100].
func Coverage(pct float64) Field {
	return Float64("coverage_pct", pct)
}

func Status(s string) Field {
	return String("status", s)
}

func Attempt(n int) Field {
	return Int("attempt", n)
}
