// Package fluent builds HTTP calls as typed chains:
//
//	Client -> Request -> Endpoint -> verb -> result -> Send
//
// Each step only exposes the operations that are valid at that point.
// Bodies can only be attached after POST, PUT, PATCH or DELETE, caching is
// only offered after GET, HEAD or OPTIONS, and deserializers accept a
// Method, so a request cannot be decoded before a verb has been chosen.
//
//	client := fluent.New(fluent.WithBaseURL("https://api.example.com"))
//
//	users, err := fluent.JSON[[]User](
//	    client.Request().
//	        Bearer(token).
//	        Query("active", true).
//	        Endpoint("users").
//	        Get().
//	        WithCache(time.Minute),
//	).Send(ctx)
//
// Errors found while building a chain, such as an unencodable body, are
// kept and returned by Send. Non-2xx responses fail with a *ResponseError
// unless the request disabled ThrowOnError.
package fluent
