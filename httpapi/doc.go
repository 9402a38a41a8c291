// Package httpapi serves a woosession.Engine over HTTP with a chi router.
//
// Routes:
//
//   - POST /graphql: body {"operationName": "...", "variables": {...}}, answered with a
//     GraphQL-shaped {"data": ..., "errors": [...]} body and, when the session was
//     established or refreshed, a woocommerce-session response header.
//   - GET /cart: the cart of the session in the request header, behind the session
//     middleware.
//   - GET /healthz: store reachability.
//   - GET /metrics: Prometheus text format, when enabled.
package httpapi
