// Package common contains shared constants and sentinel errors used across
// backupd components.
package common

// AccessTokenHeaderName is the HTTP header carrying the bearer access token
// on authenticated requests.
const AccessTokenHeaderName = "Authorization"

// LicenseFileExtension is the extension of downloadable signed license
// documents.
const LicenseFileExtension = ".lic"
