// Package microsoft provides shared plumbing for Microsoft Graph API access.
//
// This package provides:
//   - Error mapping for Microsoft Graph API responses
//   - Rate limiting for Microsoft Graph API requests
//   - Profile lookup for the signed-in user or a named principal
//
// Authentication itself lives in internal/auth/msal; mail operations in
// the graphmail subpackage.
//
// # Rate Limits
//
// Microsoft Graph allows approximately 10,000 requests per 10 minutes per app.
// This package implements conservative rate limiting to avoid hitting quotas.
package microsoft
