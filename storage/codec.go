package storage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"

	"github.com/dvd-rw/dvdrw/cassette"
)

const formatVersion = 1

const (
	typeResponse = "response"
	typeFailure  = "failure"
)

var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

// Codec serializes cassettes as a JSON document. Bodies are base64 encoded so arbitrary
// payloads survive, and each interaction is tagged as a response or a failure.
type Codec struct {
	// Compress zstd compresses the encoded document. Decoding detects compression itself.
	Compress bool
}

type document struct {
	Version      int           `json:"version"`
	FromFile     bool          `json:"from_file"`
	Interactions []interaction `json:"interactions"`
}

type interaction struct {
	Request  request   `json:"request"`
	Type     string    `json:"type"`
	Response *response `json:"response,omitempty"`
	Failure  *failure  `json:"failure,omitempty"`
}

type request struct {
	Method  string      `json:"method"`
	URL     string      `json:"url"`
	Headers [][2]string `json:"headers"`
}

type response struct {
	Status  int         `json:"status"`
	Headers [][2]string `json:"headers"`
	Body    []byte      `json:"body"`
}

type failure struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Encode serializes the cassette's entries in sequence order.
func (c Codec) Encode(cas *cassette.Cassette) ([]byte, error) {
	return c.EncodeEntries(cas.Entries(), cas.ReplayOnly())
}

func (c Codec) EncodeEntries(entries []cassette.Entry, fromFile bool) ([]byte, error) {
	doc := document{
		Version:      formatVersion,
		FromFile:     fromFile,
		Interactions: make([]interaction, 0, len(entries)),
	}
	for _, e := range entries {
		in := interaction{
			Request: request{
				Method:  e.Request.Method(),
				URL:     e.Request.URL(),
				Headers: pairs(e.Request.Headers()),
			},
		}
		switch o := e.Outcome.(type) {
		case *cassette.Response:
			in.Type = typeResponse
			in.Response = &response{Status: o.Status, Headers: pairs(o.Headers), Body: o.Body}
		case *cassette.Failure:
			in.Type = typeFailure
			in.Failure = &failure{Kind: string(o.Kind), Message: o.Message}
		default:
			return nil, fmt.Errorf("entry %d: unknown outcome %T", e.Seq, e.Outcome)
		}
		doc.Interactions = append(doc.Interactions, in)
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	if c.Compress {
		return encoder().EncodeAll(data, nil), nil
	}
	return data, nil
}

// Decode parses a serialized cassette, compressed or not, into its entries.
func (c Codec) Decode(data []byte) ([]cassette.Entry, error) {
	if bytes.HasPrefix(data, zstdMagic) {
		var err error
		data, err = decoder().DecodeAll(data, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to decompress cassette: %w", err)
		}
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse cassette: %w", err)
	}
	if doc.Version > formatVersion {
		return nil, fmt.Errorf("unsupported cassette version %d", doc.Version)
	}

	entries := make([]cassette.Entry, 0, len(doc.Interactions))
	for i, in := range doc.Interactions {
		req, err := cassette.NewRequest(in.Request.Method, in.Request.URL, headers(in.Request.Headers))
		if err != nil {
			return nil, fmt.Errorf("interaction %d: %w", i, err)
		}
		e := cassette.Entry{Seq: i, Request: req}
		switch {
		case in.Type == typeResponse && in.Response != nil:
			e.Outcome = &cassette.Response{
				Status:  in.Response.Status,
				Headers: headers(in.Response.Headers),
				Body:    in.Response.Body,
			}
		case in.Type == typeFailure && in.Failure != nil:
			e.Outcome = &cassette.Failure{
				Kind:    cassette.FailureKind(in.Failure.Kind),
				Message: in.Failure.Message,
			}
		default:
			return nil, fmt.Errorf("interaction %d: invalid outcome type %q", i, in.Type)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func pairs(h []cassette.Header) [][2]string {
	out := make([][2]string, len(h))
	for i, kv := range h {
		out[i] = [2]string{kv.Name, kv.Value}
	}
	return out
}

func headers(p [][2]string) []cassette.Header {
	if len(p) == 0 {
		return nil
	}
	out := make([]cassette.Header, len(p))
	for i, kv := range p {
		out[i] = cassette.Header{Name: kv[0], Value: kv[1]}
	}
	return out
}

var (
	zstdOnce sync.Once
	zstdEnc  *zstd.Encoder
	zstdDec  *zstd.Decoder
)

func initZstd() {
	zstdOnce.Do(func() {
		// Neither constructor can fail without options.
		zstdEnc, _ = zstd.NewWriter(nil)
		zstdDec, _ = zstd.NewReader(nil)
	})
}

func encoder() *zstd.Encoder {
	initZstd()
	return zstdEnc
}

func decoder() *zstd.Decoder {
	initZstd()
	return zstdDec
}
