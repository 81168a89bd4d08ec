// Package httpapi exposes the ingestion gateway over HTTP with gin.
//
// Routes:
//
//	POST /v1/update-stock  batch ingestion, authenticated by the X-Api-Key header
//	GET  /healthz          dependency checks
package httpapi
