// Package logx defines the logging-adapter collaborator consumed by the
// engine: the core only depends on this narrow interface, and a
// zap-backed implementation is provided for processes that want
// structured output.
package logx

import "go.uber.org/zap"

// Logger is the narrow logging surface the engine calls into. Keyed
// arguments follow the zap "sugared" convention (key, value, key, value, ...).
type Logger interface {
	Debugw(msg string, kv ...any)
	Infow(msg string, kv ...any)
	Warnw(msg string, kv ...any)
	Errorw(msg string, kv ...any)
}

// Nop is the default logger: every call is a no-op so the engine never
// requires a logging backend to be configured.
type Nop struct{}

func (Nop) Debugw(string, ...any) {}
func (Nop) Infow(string, ...any)  {}
func (Nop) Warnw(string, ...any)  {}
func (Nop) Errorw(string, ...any) {}

// Zap adapts a *zap.SugaredLogger to Logger.
type Zap struct{ l *zap.SugaredLogger }

func NewZap(l *zap.Logger) *Zap { return &Zap{l: l.Sugar()} }

func (z *Zap) Debugw(msg string, kv ...any) { z.l.Debugw(msg, kv...) }
func (z *Zap) Infow(msg string, kv ...any)  { z.l.Infow(msg, kv...) }
func (z *Zap) Warnw(msg string, kv ...any)  { z.l.Warnw(msg, kv...) }
func (z *Zap) Errorw(msg string, kv ...any) { z.l.Errorw(msg, kv...) }

var global Logger = Nop{}

// SetGlobal installs the package-level logger used by engine components
// that do not carry an explicit Logger.
func SetGlobal(l Logger) {
	if l == nil {
		l = Nop{}
	}
	global = l
}

func Global() Logger { return global }
