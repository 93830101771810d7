// Package walker enumerates candidate files for bulk tracking. It yields
// absolute paths of regular files under a root directory in lexical
// order, optionally recursing and filtering by extension.
package walker
