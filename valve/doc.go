// Package valve provides ready-made valves for piper pipelines: logging,
// panic recovery, timeouts, validation, authorization guards, correlation
// IDs, and Prometheus metrics.
//
// Every constructor is generic over the request type R and response type T
// of the pipeline it is attached to:
//
//	piper.Use[GetUser, *User](b,
//	    valve.Correlate[GetUser, *User](),
//	    valve.Logging[GetUser, *User](logger),
//	    valve.Recover[GetUser, *User](logger),
//	    valve.Validate[GetUser, *User](),
//	)
//
// Valves run in the order they are added, so put valves that must observe
// everything (correlation, logging, metrics) first.
package valve
