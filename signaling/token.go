// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package signaling

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/rianders/sticky-knowledge/lib/codec"
)

// Compression selects the token form produced by a Codec.
type Compression string

const (
	// CompressionNone produces percent-escaped JSON.
	CompressionNone Compression = "none"
	// CompressionCBOR produces uncompressed compact tokens.
	CompressionCBOR Compression = "cbor"
	// CompressionLZ4 produces LZ4-compressed compact tokens.
	CompressionLZ4 Compression = "lz4"
	// CompressionZstd produces zstd-compressed compact tokens.
	CompressionZstd Compression = "zstd"
)

// Compact token tags. These are protocol constants: changing one makes
// tokens from older peers unreadable.
const (
	tagCBOR = 'c'
	tagLZ4  = 'l'
	tagZstd = 'z'
)

// maxDecodedSize bounds decompression so a hostile token cannot expand
// without limit. SDPs are a few kilobytes.
const maxDecodedSize = 1 << 20

// ParseCompression parses a compression name from configuration. The
// empty string means none.
func ParseCompression(name string) (Compression, error) {
	switch Compression(name) {
	case "", CompressionNone:
		return CompressionNone, nil
	case CompressionCBOR, CompressionLZ4, CompressionZstd:
		return Compression(name), nil
	default:
		return "", fmt.Errorf("unknown token compression: %q", name)
	}
}

// Codec encodes descriptions into tokens of one form.
type Codec struct {
	Compression Compression
}

// Encode sets desc.Type to mode and returns a URL-safe token using
// percent-escaped JSON.
func Encode(desc Description, mode Mode) (string, error) {
	return Codec{Compression: CompressionNone}.Encode(desc, mode)
}

// Encode sets desc.Type to mode and returns a URL-safe token in the
// codec's form.
func (c Codec) Encode(desc Description, mode Mode) (string, error) {
	if !mode.Valid() {
		return "", fmt.Errorf("encoding signaling token: invalid mode %q", mode)
	}
	desc.Type = mode

	switch c.Compression {
	case "", CompressionNone:
		data, err := json.Marshal(desc)
		if err != nil {
			return "", fmt.Errorf("encoding signaling token: %w", err)
		}
		return url.QueryEscape(string(data)), nil
	}

	data, err := codec.Marshal(desc)
	if err != nil {
		return "", fmt.Errorf("encoding signaling token: %w", err)
	}

	var tag byte
	switch c.Compression {
	case CompressionCBOR:
		tag = tagCBOR
	case CompressionLZ4:
		tag = tagLZ4
		data, err = compressLZ4(data)
	case CompressionZstd:
		tag = tagZstd
		data, err = compressZstd(data)
	default:
		return "", fmt.Errorf("encoding signaling token: unknown compression %q", c.Compression)
	}
	if err != nil {
		return "", fmt.Errorf("encoding signaling token: %w", err)
	}

	return string(tag) + "." + base64.RawURLEncoding.EncodeToString(data), nil
}

// Decode parses a token in any form. Tokens taken from url.Values are
// already unescaped; Decode accepts those as well as the escaped form.
// Every failure wraps ErrMalformedToken.
func Decode(token string) (Description, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Description{}, fmt.Errorf("%w: empty token", ErrMalformedToken)
	}

	var (
		desc Description
		err  error
	)
	if len(token) > 2 && token[1] == '.' && strings.IndexByte("clz", token[0]) >= 0 {
		desc, err = decodeCompact(token[0], token[2:])
	} else {
		desc, err = decodePlain(token)
	}
	if err != nil {
		return Description{}, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}

	if err := desc.Validate(); err != nil {
		return Description{}, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
	return desc, nil
}

func decodePlain(token string) (Description, error) {
	text := token
	if !strings.HasPrefix(text, "{") {
		unescaped, err := url.QueryUnescape(text)
		if err != nil {
			return Description{}, err
		}
		text = unescaped
	}

	var desc Description
	if err := json.Unmarshal([]byte(text), &desc); err != nil {
		return Description{}, err
	}
	return desc, nil
}

func decodeCompact(tag byte, payload string) (Description, error) {
	data, err := base64.RawURLEncoding.DecodeString(payload)
	if err != nil {
		return Description{}, err
	}

	switch tag {
	case tagLZ4:
		data, err = decompressLZ4(data)
	case tagZstd:
		data, err = decompressZstd(data)
	}
	if err != nil {
		return Description{}, err
	}

	var desc Description
	if err := codec.Unmarshal(data, &desc); err != nil {
		return Description{}, err
	}
	return desc, nil
}

func compressLZ4(data []byte) ([]byte, error) {
	var buffer bytes.Buffer
	writer := lz4.NewWriter(&buffer)
	if err := writer.Apply(lz4.CompressionLevelOption(lz4.Level9)); err != nil {
		return nil, err
	}
	if _, err := writer.Write(data); err != nil {
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}
	return buffer.Bytes(), nil
}

func decompressLZ4(data []byte) ([]byte, error) {
	reader := lz4.NewReader(bytes.NewReader(data))
	return readBounded(reader)
}

func compressZstd(data []byte) ([]byte, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedBestCompression))
	if err != nil {
		return nil, err
	}
	defer encoder.Close()
	return encoder.EncodeAll(data, nil), nil
}

func decompressZstd(data []byte) ([]byte, error) {
	decoder, err := zstd.NewReader(nil, zstd.WithDecoderMaxMemory(maxDecodedSize))
	if err != nil {
		return nil, err
	}
	defer decoder.Close()
	return decoder.DecodeAll(data, nil)
}

func readBounded(reader io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(reader, maxDecodedSize+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxDecodedSize {
		return nil, fmt.Errorf("decoded token exceeds %d bytes", maxDecodedSize)
	}
	return data, nil
}
