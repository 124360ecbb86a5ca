// Package google holds the pieces shared by the Gmail sender and the Drive
// publisher: the OAuth client, API service construction, error mapping
// and request throttling.
package google
