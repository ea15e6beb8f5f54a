// Package types defines the wire types shared by the proxy handlers.
//
// The proxy relays upstream bodies untouched, so the only payload it
// authors itself is the error envelope:
//
//	{"error": {"message": "Missing Authorization header", "type": "auth_error"}}
//
// # Status mapping
//
//	auth_error     401
//	parse_error    400
//	proxy_error    502
//	request_error  502
//	tls_error      500
//	io_error       500
//	server_error   500
//
// Anything else maps to 500.
package types
