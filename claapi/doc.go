// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package claapi provides a typed client for the remote CLA backend.

	c := claapi.New(cfg.CLAAPIURL,
		claapi.WithTimeout(cfg.CLAAPITimeout),
		claapi.WithRateLimit(rate.Limit(cfg.CLAAPIRate), cfg.CLAAPIBurst),
	)
	user, err := c.GetUser(ctx, "gh-1")

Every call waits on the client's rate limiter and runs inside an
OpenTelemetry client span. Non-2xx responses come back as *APIError.

Authenticated users (Gerrit) are looked up through GetUserWithAuthToken,
which forwards the caller's bearer token; anonymous users (GitHub) go
through GetUser.
*/
package claapi
