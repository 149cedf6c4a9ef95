// Package runtime embeds the minimal C runtime linked into every
// AOT-compiled monty program (spec.md §6.4), so the montyc binary can
// stage it to a temp file and hand it to an external C compiler without
// depending on any install-time data directory.
package runtime

import _ "embed"

//go:embed entry.c
var Source []byte
