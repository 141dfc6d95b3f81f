// Package piper dispatches typed requests to handlers through composable
// middleware pipelines.
//
// Every request type declares the response it produces. A Dispatcher routes
// each request by its concrete type to the one handler bound to that
// (request, response) pair, after passing it through the valves attached to
// the pair. Valves are middleware: each may inspect or replace the request,
// call the rest of the pipeline, and inspect or replace the response.
//
// # Quick Start
//
// Declare a request and its response by embedding Returns:
//
//	type GetUser struct {
//	    piper.Returns[*User]
//	    ID string
//	}
//
// Bind a handler and any valves, then build:
//
//	b := piper.New(piper.WithLogger(logger))
//
//	piper.Handle[GetUser, *User](b, &GetUserHandler{db: db})
//	piper.Use[GetUser, *User](b,
//	    valve.Recover[GetUser, *User](logger),
//	    valve.Logging[GetUser, *User](logger),
//	    valve.Validate[GetUser, *User](),
//	)
//
//	d, err := b.Build()
//	if err != nil {
//	    return err
//	}
//
//	user, err := piper.Send(ctx, d, GetUser{ID: "42"})
//
// Send infers the response type from the request, so user is a *User with
// no type assertion at the call site.
//
// # Pipelines
//
// A pipeline is the handler wrapped by its valves in registration order.
// The first valve is outermost:
//
//	valve 1 before
//	  valve 2 before
//	    handler
//	  valve 2 after
//	valve 1 after
//
// A valve receives a Next continuation for the rest of the pipeline. It may
// call Next once, skip it to short-circuit with its own response or error,
// or call it several times (retries). The request a valve passes to Next is
// the one downstream stages see; the response it returns is the one
// upstream stages see. With no valves, a pipeline is the handler.
//
// Compile builds a pipeline without a Builder, for a single handler:
//
//	p, err := piper.Compile[GetUser, *User](handler, auth, audit)
//
// A valve written once against Request[T] serves every request type that
// produces T. Adapt attaches it to one pair; AddValve adapts it
// automatically. It must forward a request of the pipeline's own type.
//
// # Routing
//
// Routing uses the request's concrete runtime type together with the
// response type. GetUser and *GetUser are different keys, and a request
// passed as Request[*User] is still routed by its concrete type. Sending a
// request for which no handler is bound returns a HandlerNotFoundError and
// runs nothing.
//
// # Building
//
// Builder collects bindings and reports every configuration error at once:
//
//   - A second handler for the same pair: DuplicateBindingError
//   - Valves for a pair with no handler: ContractViolationError
//   - A nil valve, or an erased valve (AddValve) for the wrong pair:
//     ContractViolationError
//   - A handler bound to an interface request type: ErrInterfaceRequest
//
// By default Build compiles every pipeline, so these errors surface before
// the first request. With WithLazy, pipelines compile on first use; each
// pair is compiled exactly once even under concurrent first use, and a
// compile failure is returned by every Send for that pair.
//
// After Build the registry is frozen and the Dispatcher is safe for
// concurrent use. Distinct requests never share per-call state.
//
// # Errors
//
// Handler and valve errors pass through Send unchanged, so errors.Is and
// errors.As see exactly what the handler returned. Errors created by the
// package wrap one of its sentinels:
//
//	switch {
//	case errors.Is(err, piper.ErrHandlerNotFound):
//	    // nothing bound for this request
//	case errors.Is(err, piper.ErrContractViolation):
//	    // a valve does not fit its pipeline
//	case errors.Is(err, piper.ErrCompileIncomplete):
//	    // an earlier compile of this pair panicked
//	}
//
// # Hooks
//
// Hooks observe dispatches without changing their outcome:
//
//	piper.New(
//	    piper.WithOnDispatch(func(ctx context.Context, key piper.Key) context.Context { ... }),
//	    piper.WithOnSuccess(func(ctx context.Context, key piper.Key, d time.Duration) { ... }),
//	    piper.WithOnFailure(func(ctx context.Context, key piper.Key, err error, d time.Duration) { ... }),
//	    piper.WithOnNoHandler(func(ctx context.Context, key piper.Key) { ... }),
//	    piper.WithOnCompile(func(key piper.Key, valves int, err error) { ... }),
//	)
//
// OnDispatch may enrich the context passed to the pipeline. The other hooks
// cannot alter the response or error.
//
// # Conditional Valves
//
// When wraps a valve so it runs only for requests matching a Discriminator.
// Requests are viewed through an Inspector; JSONInspector encodes them with
// their JSON tags and queries fields with gjson paths:
//
//	piper.Use[CreateOrder, *Order](b, piper.When(
//	    piper.And(
//	        piper.FieldEquals("channel", "partner"),
//	        piper.HasFields("partner_id"),
//	    ),
//	    partnerAuth,
//	))
//
// # Configuration and Logging
//
// Config holds the dispatcher mode and logger settings. LoadConfig reads
// PIPER_* environment variables; LoadConfigFile reads a TOML file first.
// NewLogger builds the zap logger those settings describe. The dispatcher
// itself logs only build-time events at debug level; request logging is
// the job of valve.Logging.
//
// # Subpackages
//
//   - valve: ready-made valves for logging, panic recovery, timeouts,
//     validation, guards, correlation IDs, and Prometheus metrics
//   - piperfx: an fx module that assembles a Dispatcher from registrations
//     contributed across an application
package piper
