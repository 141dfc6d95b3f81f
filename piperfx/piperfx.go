// Package piperfx wires a piper.Dispatcher into a go.uber.org/fx
// application.
//
// Modules contribute handler and valve bindings with Register; Module
// collects them, builds the dispatcher once at startup, and fails the app
// if the bindings are invalid:
//
//	fx.New(
//	    piperfx.Module,
//	    piperfx.Register(func(b *piper.Builder) {
//	        piper.Handle[GetUser, *User](b, &GetUserHandler{})
//	    }),
//	    fx.Invoke(func(d *piper.Dispatcher) { ... }),
//	)
package piperfx

import (
	"context"

	"github.com/bjaus/piper"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Group is the fx value group registrations are collected from.
const Group = "piper.registrations"

// Registration adds bindings to the builder used for the dispatcher.
type Registration func(b *piper.Builder)

// Register contributes fn to the dispatcher's bindings. Registrations run
// in the order fx resolves the group, so they should not depend on each
// other.
func Register(fn Registration) fx.Option {
	return fx.Provide(fx.Annotate(
		func() Registration { return fn },
		fx.ResultTags(`group:"`+Group+`"`),
	))
}

// Params are the inputs of NewDispatcher. Logger and Config are optional.
type Params struct {
	fx.In

	Registrations []Registration `group:"piper.registrations"`
	Logger        *zap.Logger    `optional:"true"`
	Config        *piper.Config  `optional:"true"`
	Options       []piper.Option `group:"piper.options"`
}

// NewDispatcher builds the dispatcher from all registrations.
func NewDispatcher(p Params) (*piper.Dispatcher, error) {
	var opts []piper.Option
	if p.Config != nil {
		opts = append(opts, piper.WithConfig(*p.Config))
	}
	if p.Logger != nil {
		opts = append(opts, piper.WithLogger(p.Logger))
	}
	opts = append(opts, p.Options...)

	b := piper.New(opts...)
	for _, reg := range p.Registrations {
		reg(b)
	}
	d, err := b.Build()
	if err != nil {
		return nil, err
	}
	if p.Logger != nil {
		p.Logger.Info("piper dispatcher ready", zap.Int("routes", d.Registry().Len()))
	}
	return d, nil
}

// WithOption contributes a builder option, such as a hook, to the
// dispatcher.
func WithOption(opt piper.Option) fx.Option {
	return fx.Provide(fx.Annotate(
		func() piper.Option { return opt },
		fx.ResultTags(`group:"piper.options"`),
	))
}

// Module provides *piper.Dispatcher.
var Module = fx.Module("piper",
	fx.Provide(NewDispatcher),
)

// ConfigModule provides *piper.Config loaded from PIPER_* environment
// variables and the *zap.Logger it describes. The logger is synced when the
// app stops.
var ConfigModule = fx.Module("piper.config",
	fx.Provide(loadConfig, newLogger),
)

func loadConfig() (*piper.Config, error) {
	cfg, err := piper.LoadConfig()
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

func newLogger(lc fx.Lifecycle, cfg *piper.Config) (*zap.Logger, error) {
	logger, err := piper.NewLogger(*cfg)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			// Sync on a console stderr returns EINVAL on some platforms.
			_ = logger.Sync()
			return nil
		},
	})
	return logger, nil
}
