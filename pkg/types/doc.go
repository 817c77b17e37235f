// Package types defines the JSON payloads of the conversion service. They are
// shared by the server and client packages to keep the contract in one place.
package types
