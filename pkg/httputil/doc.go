// Package httputil provides JSON response and request helpers shared by all
// HTTP handlers.
//
// Responses follow one shape everywhere: payloads are written with WriteJSON
// and friends, errors with WriteError as {"error": "..."}. Request helpers
// parse JSON bodies and typed path/query parameters.
package httputil
