// Package config loads the beacon.json configuration file: listen
// address, allowed origins, logging, connection limits, and connection
// timeouts. A missing file is not an error; every field has a default
// suitable for local development.
package config
