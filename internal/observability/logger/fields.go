package logger

import (
	"time"

	"go.uber.org/zap"
)

// Standard HTTP fields.

func RequestID(v string) zap.Field {
	return zap.String("request_id", v)
}

func Method(v string) zap.Field {
	return zap.String("method", v)
}

func Path(v string) zap.Field {
	return zap.String("path", v)
}

func Status(v int) zap.Field {
	return zap.Int("status", v)
}

func Duration(v time.Duration) zap.Field {
	return zap.Duration("duration", v)
}

func ClientIP(v string) zap.Field {
	return zap.String("client_ip", v)
}

// Standard business fields.

func UserID(v string) zap.Field {
	return zap.String("user_id", v)
}

func Provider(v string) zap.Field {
	return zap.String("provider", v)
}

func CalendarID(v string) zap.Field {
	return zap.String("calendar_id", v)
}

// Layer identifies the architectural layer emitting the log
// (controller, service, store).
func Layer(v string) zap.Field {
	return zap.String("layer", v)
}

// Op identifies the operation, usually "Type.Method".
func Op(v string) zap.Field {
	return zap.String("op", v)
}

func Err(err error) zap.Field {
	return zap.Error(err)
}

// Generic fields.

func Any(key string, v any) zap.Field {
	return zap.Any(key, v)
}

func String(key, v string) zap.Field {
	return zap.String(key, v)
}

func Int(key string, v int) zap.Field {
	return zap.Int(key, v)
}

func Bool(key string, v bool) zap.Field {
	return zap.Bool(key, v)
}
