package celestemap

import (
	"encoding/hex"
	"fmt"

	"github.com/zeebo/blake3"
)

// Hash is a 32-byte BLAKE3 digest.
type Hash [32]byte

// Domain keys keep document and tree digests apart even for equal input.
var (
	documentDomainKey = [32]byte{
		'c', 'e', 'l', 'e', 's', 't', 'e', 'm', 'a', 'p', '.',
		'd', 'o', 'c', 'u', 'm', 'e', 'n', 't', 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	}
	treeDomainKey = [32]byte{
		'c', 'e', 'l', 'e', 's', 't', 'e', 'm', 'a', 'p', '.',
		't', 'r', 'e', 'e', 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	}
)

// DigestBytes hashes encoded document bytes.
func DigestBytes(data []byte) Hash {
	return keyedHash(documentDomainKey, data)
}

// Digest hashes the bytes Encode produces for m.
func Digest(m *Map, opts ...Option) (Hash, error) {
	data, err := Encode(m, opts...)
	if err != nil {
		return Hash{}, err
	}
	return DigestBytes(data), nil
}

// TreeDigest hashes the deterministic CBOR snapshot of e. Unlike
// Digest it does not depend on string table order or the package name.
func TreeDigest(e *Element) (Hash, error) {
	data, err := MarshalTree(e, FormatCBOR)
	if err != nil {
		return Hash{}, err
	}
	return keyedHash(treeDomainKey, data), nil
}

func keyedHash(key [32]byte, data []byte) Hash {
	hasher, err := blake3.NewKeyed(key[:])
	if err != nil {
		panic("celestemap: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	hasher.Write(data)
	var h Hash
	copy(h[:], hasher.Sum(nil))
	return h
}

// String returns the lowercase hex form.
func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// ParseHash parses the form produced by Hash.String.
func ParseHash(s string) (Hash, error) {
	var h Hash
	if len(s) != 2*len(h) {
		return h, fmt.Errorf("parse hash: want %d hex digits, got %d", 2*len(h), len(s))
	}
	if _, err := hex.Decode(h[:], []byte(s)); err != nil {
		return h, fmt.Errorf("parse hash: %w", err)
	}
	return h, nil
}
