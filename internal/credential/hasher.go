// Package credential turns plaintext passwords into verifiable stored
// credentials and upgrades legacy plaintext rows in place.
//
// Credentials are stored as argon2id PHC strings:
//
//	$argon2id$v=19$m=65536,t=3,p=2$<salt_b64>$<digest_b64>
//
// The parameters, salt and digest travel inside the string, so verification
// works against hashes produced under older parameter sets.
package credential

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
)

const algorithm = "argon2id"

// States reported by State for a stored credential secret.
const (
	StateHashed    = "hashed"
	StatePlaintext = "plaintext"
)

// ErrMalformed reports an encoded credential that does not parse as an
// argon2id PHC string. Verify never surfaces it to callers; it exists for
// logging and for the migrator's structural probe.
var ErrMalformed = errors.New("credential: malformed encoded credential")

// Params are the argon2id work factors. They are fixed at construction and
// encoded into every hash.
type Params struct {
	Memory     uint32 // KiB
	Time       uint32 // iterations
	Threads    uint8
	SaltLength uint32 // bytes
	KeyLength  uint32 // bytes
}

// DefaultParams returns the production work factors: 64 MiB memory, 3
// iterations, 2 lanes, 16-byte salt, 32-byte digest.
func DefaultParams() Params {
	return Params{
		Memory:     64 * 1024,
		Time:       3,
		Threads:    2,
		SaltLength: 16,
		KeyLength:  32,
	}
}

// Hasher hashes and verifies passwords with argon2id. It is immutable after
// construction and safe for concurrent use; construct one at startup and pass
// it to whoever needs it.
type Hasher struct {
	params Params
}

// NewHasher validates the work factors and returns a Hasher.
func NewHasher(params Params) (*Hasher, error) {
	if params.Time < 1 {
		return nil, fmt.Errorf("credential: time must be >= 1, got %d", params.Time)
	}
	if params.Threads < 1 {
		return nil, fmt.Errorf("credential: threads must be >= 1, got %d", params.Threads)
	}
	if params.Memory < 8*uint32(params.Threads) {
		return nil, fmt.Errorf("credential: memory (%d KiB) must be >= 8x threads", params.Memory)
	}
	if params.SaltLength < 8 {
		return nil, fmt.Errorf("credential: salt length must be >= 8, got %d", params.SaltLength)
	}
	if params.KeyLength < 16 {
		return nil, fmt.Errorf("credential: key length must be >= 16, got %d", params.KeyLength)
	}
	return &Hasher{params: params}, nil
}

// Hash derives an encoded credential from plaintext. A fresh random salt is
// drawn on every call, so hashing the same plaintext twice yields different
// outputs. It fails only when the entropy source does.
func (h *Hasher) Hash(plaintext string) (string, error) {
	salt := make([]byte, h.params.SaltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", fmt.Errorf("credential: generate salt: %w", err)
	}

	digest := argon2.IDKey([]byte(plaintext), salt,
		h.params.Time, h.params.Memory, h.params.Threads, h.params.KeyLength)

	return fmt.Sprintf("$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		algorithm,
		argon2.Version,
		h.params.Memory,
		h.params.Time,
		h.params.Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(digest),
	), nil
}

// Verify recomputes the digest with the parameters and salt embedded in the
// encoded credential and compares in constant time. Any decode failure
// returns false, the same as a wrong password, so a corrupt stored record is
// indistinguishable from a mismatch to a caller relying on the boolean.
func (h *Hasher) Verify(plaintext, encoded string) bool {
	dec, err := decode(encoded)
	if err != nil {
		return false
	}
	computed := argon2.IDKey([]byte(plaintext), dec.salt,
		dec.time, dec.memory, dec.threads, uint32(len(dec.digest)))
	return subtle.ConstantTimeCompare(computed, dec.digest) == 1
}

// IsHashed reports whether the stored secret is already in hashed state. The
// probe is a full structural parse, not a prefix check, so a legacy plaintext
// password that happens to contain "$argon2id$" is still treated as
// plaintext.
func IsHashed(secret string) bool {
	_, err := decode(secret)
	return err == nil
}

// State classifies a stored secret as hashed or plaintext.
func State(secret string) string {
	if IsHashed(secret) {
		return StateHashed
	}
	return StatePlaintext
}

type decoded struct {
	memory  uint32
	time    uint32
	threads uint8
	salt    []byte
	digest  []byte
}

func decode(encoded string) (*decoded, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" {
		return nil, fmt.Errorf("%w: expected 5 segments", ErrMalformed)
	}
	if parts[1] != algorithm {
		return nil, fmt.Errorf("%w: unknown algorithm %q", ErrMalformed, parts[1])
	}

	version, err := segmentValue(parts[2], "v", 32)
	if err != nil {
		return nil, err
	}
	if version != uint64(argon2.Version) {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrMalformed, version)
	}

	fields := strings.Split(parts[3], ",")
	if len(fields) != 3 {
		return nil, fmt.Errorf("%w: bad parameter segment %q", ErrMalformed, parts[3])
	}
	memory, err := segmentValue(fields[0], "m", 32)
	if err != nil {
		return nil, err
	}
	time, err := segmentValue(fields[1], "t", 32)
	if err != nil {
		return nil, err
	}
	threads, err := segmentValue(fields[2], "p", 8)
	if err != nil {
		return nil, err
	}
	if memory == 0 || time == 0 || threads == 0 {
		return nil, fmt.Errorf("%w: zero work factor", ErrMalformed)
	}

	dec := decoded{memory: uint32(memory), time: uint32(time), threads: uint8(threads)}

	salt, err := base64.RawStdEncoding.Strict().DecodeString(parts[4])
	if err != nil {
		return nil, fmt.Errorf("%w: bad salt encoding", ErrMalformed)
	}
	digest, err := base64.RawStdEncoding.Strict().DecodeString(parts[5])
	if err != nil {
		return nil, fmt.Errorf("%w: bad digest encoding", ErrMalformed)
	}
	if len(salt) == 0 || len(digest) == 0 {
		return nil, fmt.Errorf("%w: empty salt or digest", ErrMalformed)
	}

	dec.salt = salt
	dec.digest = digest
	return &dec, nil
}

// segmentValue parses a "key=value" PHC segment into an exact unsigned
// integer. strconv rejects trailing garbage ("v=19junk"), unlike a scanf
// style parse, which keeps the hashed-state probe strictly structural.
func segmentValue(segment, key string, bits int) (uint64, error) {
	raw, ok := strings.CutPrefix(segment, key+"=")
	if !ok {
		return 0, fmt.Errorf("%w: expected %s= in segment %q", ErrMalformed, key, segment)
	}
	n, err := strconv.ParseUint(raw, 10, bits)
	if err != nil {
		return 0, fmt.Errorf("%w: bad %s value %q", ErrMalformed, key, raw)
	}
	return n, nil
}
