package digest

import (
	"crypto/md5"  //nolint:gosec // part of the supported algorithm set
	"crypto/sha1" //nolint:gosec // part of the supported algorithm set
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"os"
	"strings"
)

// blockSize is the read granularity for hashing. Content is fed to the
// running hash state one block at a time.
const blockSize = 8192

// ErrUnknownAlgorithm reports an algorithm name outside the supported set.
var ErrUnknownAlgorithm = errors.New("unknown digest algorithm")

// Algorithm selects one of the supported digest algorithms.
type Algorithm string

// The supported algorithms. The set is closed: ledger entries name one of
// these and nothing else.
const (
	MD5    Algorithm = "md5"
	SHA1   Algorithm = "sha1"
	SHA256 Algorithm = "sha256"
	SHA512 Algorithm = "sha512"
)

// Default is the algorithm used when none is configured.
const Default = SHA256

// constructors binds each supported algorithm to its hash implementation.
var constructors = map[Algorithm]func() hash.Hash{
	MD5:    md5.New,
	SHA1:   sha1.New,
	SHA256: sha256.New,
	SHA512: sha512.New,
}

// Parse converts a user supplied name into an Algorithm. Matching is
// case-insensitive.
func Parse(name string) (Algorithm, error) {
	al := Algorithm(strings.ToLower(strings.TrimSpace(name)))

	if _, found := constructors[al]; !found {
		return "", fmt.Errorf("%w: %q", ErrUnknownAlgorithm, name)
	}

	return al, nil
}

// Valid reports whether al names a supported algorithm.
func (al Algorithm) Valid() bool {
	_, found := constructors[al]

	return found
}

func (al Algorithm) String() string {
	return string(al)
}

// Names returns the supported algorithm names for display.
func Names() []string {
	return []string{
		string(MD5),
		string(SHA1),
		string(SHA256),
		string(SHA512),
	}
}

// Compute hashes the file at path under the given algorithm and returns
// the digest as a lowercase hexadecimal string. The file is streamed in
// blockSize chunks, so arbitrarily large files hash in constant memory.
// Failures wrap the underlying cause, so callers can classify them with
// errors.Is against fs.ErrNotExist and fs.ErrPermission.
func Compute(path string, al Algorithm) (result string, retErr error) {
	const errCtx = "computing digest"

	newHash, found := constructors[al]
	if !found {
		return "", fmt.Errorf(
			"%s: %w: %q",
			errCtx,
			ErrUnknownAlgorithm,
			al,
		)
	}

	fi, err := os.Open(path) //nolint:gosec // caller designates the file
	if err != nil {
		return "", fmt.Errorf("%s: %w", errCtx, err)
	}

	defer func() {
		if closeErr := fi.Close(); closeErr != nil && retErr == nil {
			retErr = fmt.Errorf("%s: %w", errCtx, closeErr)
		}
	}()

	ha := newHash()
	buf := make([]byte, blockSize)

	for {
		count, err := fi.Read(buf)
		if count > 0 {
			ha.Write(buf[:count])
		}

		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return "", fmt.Errorf("%s: %w", errCtx, err)
		}
	}

	return hex.EncodeToString(ha.Sum(nil)), nil
}
