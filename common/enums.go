// Package common holds enums shared by configuration and command line
// handling.
package common

// How resulting stylesheets are written.
// ENUM(separate, merged)
type OutputMode int
