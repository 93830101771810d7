// Package digest computes cryptographic digests of file contents under a
// closed set of algorithms (MD5, SHA-1, SHA-256, SHA-512). Files are read
// in fixed-size blocks so peak memory use stays independent of file size,
// and digests are rendered as lowercase hexadecimal strings.
package digest
