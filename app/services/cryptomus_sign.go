package services

import (
	"bytes"
	"crypto/md5"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrInvalidWebhookPayload is returned when a callback body is not a JSON object
var ErrInvalidWebhookPayload = errors.New("invalid webhook payload")

// CryptomusSign returns hex(md5(base64(body) + apiKey))
func CryptomusSign(body []byte, apiKey string) string {
	encoded := base64.StdEncoding.EncodeToString(body)
	sum := md5.Sum([]byte(encoded + apiKey))
	return hex.EncodeToString(sum[:])
}

// VerifyCryptomusSignature checks the "sign" field of a callback body. The
// body is re-serialised without "sign", keys in their original order,
// numbers verbatim and "/" written as "\/", before hashing.
func VerifyCryptomusSignature(raw []byte, apiKey string) (bool, error) {
	payload, sign, err := stripSign(raw)
	if err != nil {
		return false, err
	}
	if sign == "" {
		return false, nil
	}
	expected := CryptomusSign(payload, apiKey)
	got := strings.ToLower(sign)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(got)) == 1, nil
}

// stripSign re-encodes a top-level JSON object without its "sign" member
func stripSign(raw []byte) ([]byte, string, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrInvalidWebhookPayload, err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, "", ErrInvalidWebhookPayload
	}

	var buf bytes.Buffer
	var sign string
	buf.WriteByte('{')
	first := true
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, "", fmt.Errorf("%w: %v", ErrInvalidWebhookPayload, err)
		}
		key, _ := keyTok.(string)
		if key == "sign" {
			if err := dec.Decode(&sign); err != nil {
				return nil, "", fmt.Errorf("%w: sign must be a string", ErrInvalidWebhookPayload)
			}
			continue
		}
		if !first {
			buf.WriteByte(',')
		}
		first = false
		writeJSONString(&buf, key)
		buf.WriteByte(':')
		if err := copyJSONValue(dec, &buf); err != nil {
			return nil, "", err
		}
	}
	if _, err := dec.Token(); err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrInvalidWebhookPayload, err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, "", fmt.Errorf("%w: trailing data", ErrInvalidWebhookPayload)
	}
	buf.WriteByte('}')
	return buf.Bytes(), sign, nil
}

func copyJSONValue(dec *json.Decoder, buf *bytes.Buffer) error {
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidWebhookPayload, err)
	}

	switch v := tok.(type) {
	case json.Delim:
		switch v {
		case '{':
			buf.WriteByte('{')
			first := true
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return fmt.Errorf("%w: %v", ErrInvalidWebhookPayload, err)
				}
				if !first {
					buf.WriteByte(',')
				}
				first = false
				key, _ := keyTok.(string)
				writeJSONString(buf, key)
				buf.WriteByte(':')
				if err := copyJSONValue(dec, buf); err != nil {
					return err
				}
			}
			buf.WriteByte('}')
		case '[':
			buf.WriteByte('[')
			first := true
			for dec.More() {
				if !first {
					buf.WriteByte(',')
				}
				first = false
				if err := copyJSONValue(dec, buf); err != nil {
					return err
				}
			}
			buf.WriteByte(']')
		}
		// consume the closing delimiter
		if _, err := dec.Token(); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidWebhookPayload, err)
		}
	case string:
		writeJSONString(buf, v)
	case json.Number:
		buf.WriteString(v.String())
	case bool:
		if v {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case nil:
		buf.WriteString("null")
	}
	return nil
}

const hexDigits = "0123456789abcdef"

// writeJSONString quotes s the way the provider's signer does: minimal
// escapes, non-ASCII verbatim, and "/" escaped.
func writeJSONString(buf *bytes.Buffer, s string) {
	buf.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			buf.WriteString(`\"`)
		case '\\':
			buf.WriteString(`\\`)
		case '/':
			buf.WriteString(`\/`)
		case '\b':
			buf.WriteString(`\b`)
		case '\f':
			buf.WriteString(`\f`)
		case '\n':
			buf.WriteString(`\n`)
		case '\r':
			buf.WriteString(`\r`)
		case '\t':
			buf.WriteString(`\t`)
		default:
			if r < 0x20 {
				buf.WriteString(`\u00`)
				buf.WriteByte(hexDigits[r>>4])
				buf.WriteByte(hexDigits[r&0xf])
				continue
			}
			buf.WriteRune(r)
		}
	}
	buf.WriteByte('"')
}
