// Package httpapi implements the StagingService port against the scanner
// backend's HTTP API.
//
// Endpoints:
//
//	POST /api/scan                  immediate scan (non-bulk path)
//	POST /api/scan?bulk_stage=true  stage one image into the bulk session
//	POST /api/bulk/submit           commit the staged batch
//	POST /api/bulk/cancel           discard the staged batch
//	GET  /api/bulk/check            current server staged count
//	GET  /api/auth/google/verify    bulk capability check
//	GET  /api/auth/google/link      re-link flow URL
//
// Authorization-revoked responses (401, or 403 carrying the backend's
// revocation detail) are mapped to domain.ErrAuthorizationRevoked; a success
// status with an unparsable body maps to domain.ErrMalformedResponse.
package httpapi
