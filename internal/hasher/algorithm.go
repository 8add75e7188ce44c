package hasher

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/minio/highwayhash"
	"lukechampine.com/blake3"
)

// Algorithm identifica la función de resumen usada por los digests.
type Algorithm string

const (
	XXHash  Algorithm = "xxhash"
	Blake3  Algorithm = "blake3"
	Highway Algorithm = "highway"
	SHA256  Algorithm = "sha256"
)

// Algorithms lista los algoritmos soportados, el primero es el de por defecto.
var Algorithms = []Algorithm{XXHash, Blake3, Highway, SHA256}

var highwayKey = mustDecodeKey("000102030405060708090A0B0C0D0E0FF0E0D0C0B0A090807060504030201000")

func mustDecodeKey(s string) []byte {
	key, err := hex.DecodeString(s)
	if err != nil {
		panic(err)
	}
	return key
}

// ParseAlgorithm interpreta el nombre de un algoritmo sin distinguir mayúsculas.
func ParseAlgorithm(name string) (Algorithm, error) {
	a := Algorithm(strings.ToLower(strings.TrimSpace(name)))
	for _, known := range Algorithms {
		if a == known {
			return a, nil
		}
	}
	return "", fmt.Errorf("algoritmo desconocido: %q", name)
}

// New crea un estado de resumen vacío.
func (a Algorithm) New() hash.Hash {
	switch a {
	case Blake3:
		return blake3.New(32, nil)
	case Highway:
		h, err := highwayhash.New(highwayKey)
		if err != nil {
			panic(err)
		}
		return h
	case SHA256:
		return sha256.New()
	default:
		return xxhash.New()
	}
}

func (a Algorithm) String() string {
	return string(a)
}
