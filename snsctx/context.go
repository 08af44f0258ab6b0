// Package snsctx carries per-measurement settings through a context.
package snsctx

import "context"

type ctxKey int

const (
	keyVerbose ctxKey = iota
	keySensor
)

// SetVerbose enables hex dumps of every bus transaction made with ctx.
func SetVerbose(ctx context.Context, value bool) context.Context {
	return context.WithValue(ctx, keyVerbose, value)
}

func IsVerbose(ctx context.Context) bool {
	v, _ := ctx.Value(keyVerbose).(bool)
	return v
}

// WithSensor labels ctx with the sensor the transactions belong to.
func WithSensor(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, keySensor, name)
}

func Sensor(ctx context.Context) string {
	v, _ := ctx.Value(keySensor).(string)
	return v
}
