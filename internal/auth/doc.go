// Package auth provides optional bearer-token authentication for the
// copilot-console API.
//
// When auth.jwt_secret is configured, API requests must carry an HS256 JWT
// whose "sub" claim names the operator:
//
//	Authorization: Bearer <token>
//
// Tokens are minted with `copilot-console token --name alice`. The operator
// name travels in the request context and is attributed in command logs.
// Without a secret the middleware is a pass-through and requests are
// attributed to "anonymous".
package auth
