package sovereign

import (
	"bytes"

	"github.com/btcsuite/btcutil/base58"
	"github.com/iov-one/ferry"
	"github.com/iov-one/ferry/errors"
	"golang.org/x/crypto/blake2b"
)

// DefaultPrefix is the ss58 network prefix used by both chains.
const DefaultPrefix = 0

const (
	maxPrefix   = 16383
	checksumLen = 2
)

var ss58Pre = []byte("SS58PRE")

// SS58Encode returns the ss58 text form of an account.
func SS58Encode(prefix uint16, addr ferry.Address) (string, error) {
	if prefix > maxPrefix {
		return "", errors.Wrapf(errors.ErrInput, "ss58 prefix %d", prefix)
	}
	if err := addr.Validate(); err != nil {
		return "", err
	}
	raw := append(encodePrefix(prefix), addr...)
	raw = append(raw, ss58Checksum(raw)...)
	return base58.Encode(raw), nil
}

// SS58Decode parses the ss58 text form of an account, verifying its
// checksum.
func SS58Decode(s string) (uint16, ferry.Address, error) {
	raw := base58.Decode(s)
	if len(raw) == 0 {
		return 0, nil, errors.Wrap(errors.ErrInput, "invalid base58")
	}
	prefix, n, err := decodePrefix(raw)
	if err != nil {
		return 0, nil, err
	}
	if len(raw) != n+ferry.AddressLength+checksumLen {
		return 0, nil, errors.Wrapf(errors.ErrInput, "invalid ss58 length %d", len(raw))
	}
	body := raw[:len(raw)-checksumLen]
	if !bytes.Equal(ss58Checksum(body), raw[len(body):]) {
		return 0, nil, errors.Wrap(errors.ErrInput, "invalid ss58 checksum")
	}
	addr := make(ferry.Address, ferry.AddressLength)
	copy(addr, body[n:])
	return prefix, addr, nil
}

func ss58Checksum(body []byte) []byte {
	h, _ := blake2b.New512(nil)
	h.Write(ss58Pre)
	h.Write(body)
	return h.Sum(nil)[:checksumLen]
}

func encodePrefix(prefix uint16) []byte {
	if prefix < 64 {
		return []byte{byte(prefix)}
	}
	first := byte((prefix&0xfc)>>2) | 0x40
	second := byte(prefix>>8) | byte((prefix&0x03)<<6)
	return []byte{first, second}
}

func decodePrefix(raw []byte) (uint16, int, error) {
	switch {
	case raw[0] < 64:
		return uint16(raw[0]), 1, nil
	case raw[0] < 128:
		if len(raw) < 2 {
			return 0, 0, errors.Wrap(errors.ErrInput, "truncated ss58 prefix")
		}
		lower := uint16(raw[0]<<2) | uint16(raw[1]>>6)
		upper := uint16(raw[1] & 0x3f)
		return lower | upper<<8, 2, nil
	default:
		return 0, 0, errors.Wrapf(errors.ErrInput, "reserved ss58 prefix byte %d", raw[0])
	}
}
