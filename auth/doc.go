// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package auth provides flow identifiers, flow keys and bearer token handling.

# Flow Keys

Flow keys use HMAC-SHA256 to create deterministic, verifiable keys:

	flowKey := auth.GenerateFlowKey(flowID, salt)
	err := auth.ValidateFlowKey(flowID, flowKey, salt)

The key is URL-safe base64 encoded without padding. Since it's deterministic,
the same flow ID and salt always produce the same key, so the server can
validate the X-Flow-Key header without storing anything.

# Bearer Tokens

Authenticated (Gerrit) users present the token the CLA backend expects:

	token, err := auth.BearerToken(r)

The token is forwarded as-is to the identity lookup; it is never inspected.

# ID Generation

Random hex IDs for flows:

	id, err := auth.GenerateID(16)  // 32 hex characters
*/
package auth
