// Package testutil contains helper builders and utilities used across tests
// to reduce boilerplate when constructing core objects (messages, streams)
// and asserting streaming behavior. They are not intended for production
// usage.
package testutil
