package store

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"

	"spacecouncil/internal/models"

	"github.com/pierrec/lz4/v4"
	"github.com/vmihailenco/msgpack/v5"
	"lukechampine.com/blake3"
)

// ErrChecksum is returned when a stored document does not match its digest
var ErrChecksum = errors.New("room document checksum mismatch")

// Encode serializes room as lz4-compressed msgpack
func Encode(room *models.Room) ([]byte, error) {
	var buf bytes.Buffer
	zw := lz4.NewWriter(&buf)
	enc := msgpack.NewEncoder(zw)
	enc.SetCustomStructTag("json")
	if err := enc.Encode(room); err != nil {
		return nil, fmt.Errorf("encode room: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("compress room: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode reverses Encode
func Decode(blob []byte) (*models.Room, error) {
	dec := msgpack.NewDecoder(lz4.NewReader(bytes.NewReader(blob)))
	dec.SetCustomStructTag("json")
	var room models.Room
	if err := dec.Decode(&room); err != nil {
		return nil, fmt.Errorf("decode room: %w", err)
	}
	return &room, nil
}

// Checksum returns the hex blake3 digest of an encoded document
func Checksum(blob []byte) string {
	sum := blake3.Sum256(blob)
	return hex.EncodeToString(sum[:])
}

// Digest fingerprints a room's current content
func Digest(room *models.Room) (string, error) {
	blob, err := Encode(room)
	if err != nil {
		return "", err
	}
	return Checksum(blob), nil
}
