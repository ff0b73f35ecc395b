// Package schemas holds the JSON Schemas for answer payloads and question options.
// The files are embedded so the binary does not depend on the working directory.
package schemas

import "embed"

// Files contains every *.schema.json in this directory.
//
//go:embed *.schema.json
var Files embed.FS
