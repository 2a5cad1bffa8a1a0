// Package api describes the certificate template backend through an embedded
// OpenAPI document and issues bearer-authenticated requests by operation id.
// Parsing lives under internal/openapi so kin-openapi stays hidden from
// consumers.
package api
