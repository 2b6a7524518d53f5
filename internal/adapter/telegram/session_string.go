package telegram

import (
	"crypto/sha1"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/gotd/td/session"
)

const (
	stringSessionVersion = "1"
	authKeySize          = 256
)

// decodeStringSession parses a GramJS StringSession: version "1" followed by base64 of
// dc id (1 byte), address length (2 bytes), address, port (2 bytes) and the 256-byte auth key.
func decodeStringSession(s string) (*session.Data, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, stringSessionVersion) {
		return nil, errors.New("unsupported session string version")
	}

	raw, err := base64.StdEncoding.DecodeString(s[len(stringSessionVersion):])
	if err != nil {
		return nil, fmt.Errorf("invalid base64: %w", err)
	}
	if len(raw) < 3 {
		return nil, errors.New("session string too short")
	}

	dc := int(raw[0])
	addrLen := int(binary.BigEndian.Uint16(raw[1:3]))
	rest := raw[3:]
	if len(rest) != addrLen+2+authKeySize {
		return nil, fmt.Errorf("session string has %d bytes after header, want %d", len(rest), addrLen+2+authKeySize)
	}

	addr := string(rest[:addrLen])
	port := binary.BigEndian.Uint16(rest[addrLen : addrLen+2])
	key := rest[addrLen+2:]

	// The auth key id is the low 64 bits of SHA1(auth_key).
	sum := sha1.Sum(key)

	return &session.Data{
		DC:        dc,
		Addr:      net.JoinHostPort(addr, strconv.Itoa(int(port))),
		AuthKey:   append([]byte(nil), key...),
		AuthKeyID: append([]byte(nil), sum[12:]...),
	}, nil
}
