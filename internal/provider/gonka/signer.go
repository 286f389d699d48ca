package gonka

import (
	"crypto/ecdsa"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/crypto"
)

// Signer produces ECDSA-SHA256 signatures over secp256k1 in the scheme the
// Gonka network expects from requesters.
type Signer struct {
	key *ecdsa.PrivateKey
}

// NewSigner creates a Signer from a hex-encoded private key (0x prefix
// optional).
func NewSigner(hexKey string) (*Signer, error) {
	raw, err := hex.DecodeString(strings.TrimPrefix(hexKey, "0x"))
	if err != nil {
		return nil, errors.Wrap(err, "signer: invalid hex key")
	}
	if len(raw) != 32 {
		return nil, errors.Newf("signer: key must be 32 bytes, got %d", len(raw))
	}
	key, err := crypto.ToECDSA(raw)
	if err != nil {
		return nil, errors.Wrap(err, "signer")
	}
	return &Signer{key: key}, nil
}

// PublicKey returns the uncompressed public key bytes.
func (s *Signer) PublicKey() []byte { return crypto.FromECDSAPub(&s.key.PublicKey) }

// Sign signs payload for transferAddress at the current time and returns
// the base64 signature and the timestamp in nanoseconds.
func (s *Signer) Sign(payload []byte, transferAddress string) (sig string, tsNano int64) {
	ts := time.Now().UnixNano()
	return s.SignAt(payload, transferAddress, ts), ts
}

// SignAt signs with a caller supplied timestamp:
//  1. payload_hash = hex(SHA256(payload))
//  2. signature_input = payload_hash + decimal(ts) + transfer_address
//  3. sign SHA256(signature_input) with deterministic ECDSA (RFC 6979), low-S
//  4. base64(r(32 bytes) || s(32 bytes))
func (s *Signer) SignAt(payload []byte, transferAddress string, tsNano int64) string {
	payloadHash := sha256.Sum256(payload)
	sigInput := hex.EncodeToString(payloadHash[:]) + strconv.FormatInt(tsNano, 10) + transferAddress

	msgHash := sha256.Sum256([]byte(sigInput))
	r, sBig := rfc6979Sign(s.key, msgHash[:])

	curveOrder := s.key.Params().N
	halfOrder := new(big.Int).Rsh(curveOrder, 1)
	if sBig.Cmp(halfOrder) > 0 {
		sBig = new(big.Int).Sub(curveOrder, sBig)
	}

	out := make([]byte, 64)
	rBytes := r.Bytes()
	sBytes := sBig.Bytes()
	copy(out[32-len(rBytes):32], rBytes)
	copy(out[64-len(sBytes):64], sBytes)
	return base64.StdEncoding.EncodeToString(out)
}

// rfc6979Sign is plain ECDSA with the nonce derived per RFC 6979.
func rfc6979Sign(key *ecdsa.PrivateKey, hash []byte) (*big.Int, *big.Int) {
	curve := key.Curve
	N := curve.Params().N
	D := key.D

	k := generateRFC6979K(N, D, hash)

	rx, _ := curve.ScalarBaseMult(k.Bytes())
	r := new(big.Int).Mod(rx, N)

	// s = k^-1 * (hash + r*D) mod n
	kInv := new(big.Int).ModInverse(k, N)
	e := new(big.Int).SetBytes(hash)
	s := new(big.Int).Mul(r, D)
	s.Add(s, e)
	s.Mul(s, kInv)
	s.Mod(s, N)
	return r, s
}

func generateRFC6979K(N, D *big.Int, hash []byte) *big.Int {
	qlen := N.BitLen()
	bx := int2octets(D, qlen)
	bh := bits2octets(hash, N, qlen)

	hmacOf := func(key []byte, parts ...[]byte) []byte {
		mac := hmac.New(sha256.New, key)
		for _, p := range parts {
			mac.Write(p)
		}
		return mac.Sum(nil)
	}

	v := make([]byte, sha256.Size)
	for i := range v {
		v[i] = 0x01
	}
	kk := make([]byte, sha256.Size)

	kk = hmacOf(kk, v, []byte{0x00}, bx, bh)
	v = hmacOf(kk, v)
	kk = hmacOf(kk, v, []byte{0x01}, bx, bh)
	v = hmacOf(kk, v)

	for {
		var t []byte
		for len(t)*8 < qlen {
			v = hmacOf(kk, v)
			t = append(t, v...)
		}
		secret := bits2int(t, qlen)
		if secret.Sign() > 0 && secret.Cmp(N) < 0 {
			return secret
		}
		kk = hmacOf(kk, v, []byte{0x00})
		v = hmacOf(kk, v)
	}
}

func int2octets(v *big.Int, qlen int) []byte {
	rlen := (qlen + 7) / 8
	out := v.Bytes()
	if len(out) < rlen {
		out = append(make([]byte, rlen-len(out)), out...)
	}
	if len(out) > rlen {
		out = out[len(out)-rlen:]
	}
	return out
}

func bits2int(b []byte, qlen int) *big.Int {
	v := new(big.Int).SetBytes(b)
	if blen := len(b) * 8; blen > qlen {
		v.Rsh(v, uint(blen-qlen))
	}
	return v
}

func bits2octets(b []byte, q *big.Int, qlen int) []byte {
	z1 := bits2int(b, qlen)
	z2 := new(big.Int).Sub(z1, q)
	if z2.Sign() < 0 {
		z2 = z1
	}
	return int2octets(z2, qlen)
}
