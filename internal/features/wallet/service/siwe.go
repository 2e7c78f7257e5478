package service

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"goal-auth-bridge/internal/common/validation"
	"goal-auth-bridge/internal/features/wallet/models"
)

const siweHeaderSuffix = " wants you to sign in with your Ethereum account:"

// ParseSiwe extracts the fields of an EIP-4361 message. Only Nonce is
// required; the header, address line and the optional fields are parsed
// when present so that plain "Nonce: x" messages from simple clients work.
func ParseSiwe(message string) (*models.SiweMessage, error) {
	lines := strings.Split(strings.ReplaceAll(message, "\r\n", "\n"), "\n")
	msg := &models.SiweMessage{}

	if len(lines) > 0 && strings.HasSuffix(lines[0], siweHeaderSuffix) {
		msg.Domain = strings.TrimSuffix(lines[0], siweHeaderSuffix)
		if len(lines) > 1 {
			msg.Address = strings.TrimSpace(lines[1])
		}
	}

	for _, line := range lines {
		key, value, ok := strings.Cut(line, ": ")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)

		var err error
		switch key {
		case "URI":
			msg.URI = value
		case "Version":
			msg.Version = value
		case "Chain ID":
			msg.ChainID, err = strconv.ParseInt(value, 10, 64)
		case "Nonce":
			msg.Nonce = value
		case "Issued At":
			msg.IssuedAt, err = parseTime(value)
		case "Expiration Time":
			msg.ExpirationTime, err = parseTime(value)
		case "Not Before":
			msg.NotBefore, err = parseTime(value)
		}
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", key, err)
		}
	}

	if msg.Nonce == "" {
		return nil, fmt.Errorf("message has no Nonce field")
	}
	if err := validation.ValidateSiweNonce(msg.Nonce); err != nil {
		return nil, err
	}
	return msg, nil
}

func parseTime(value string) (*time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
