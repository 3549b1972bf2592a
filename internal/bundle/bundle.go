// Package bundle stores and loads the artifacts of a match request.
//
// A request is described by a JSON manifest naming, by content handle, the
// server key, the encrypted query and corpus and the encrypted gate
// sequence. A result manifest is the request manifest with the result
// handle filled in.
package bundle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/luxfi/ohlg"
	"github.com/luxfi/ohlg/boolean"
	"github.com/luxfi/ohlg/internal/storage"
)

var (
	// ErrIncomplete is returned for a manifest that is missing artifacts.
	ErrIncomplete = errors.New("incomplete manifest")
	// ErrMalformedManifest is returned when a stored blob is not a manifest.
	ErrMalformedManifest = errors.New("malformed manifest")
)

// Manifest names the artifacts of a match request.
type Manifest struct {
	Params      string         `json:"params"`
	ServerKey   storage.Handle `json:"server_key"`
	Query       storage.Handle `json:"query"`
	Corpus      storage.Handle `json:"corpus"`
	Sequence    storage.Handle `json:"sequence"`
	Chars       int            `json:"chars"`
	BitsPerChar int            `json:"bits_per_char"`

	Result        storage.Handle `json:"result,omitempty"`
	GatesConsumed int            `json:"gates_consumed,omitempty"`
}

// Request is a decoded match request.
type Request struct {
	Context  *ohlg.Context
	Key      *boolean.BootstrapKey
	Query    []*boolean.Ciphertext
	Corpus   [][]*boolean.Ciphertext
	Sequence *ohlg.GateSequence
}

// Save stores the artifacts of req and its manifest. params is the name
// of the parameter set req was built with.
func Save(ctx context.Context, store storage.Storage, params string, req *Request) (storage.Handle, *Manifest, error) {
	if len(req.Corpus) == 0 {
		return "", nil, fmt.Errorf("%w: empty corpus", ErrIncomplete)
	}

	m := &Manifest{
		Params:      params,
		Chars:       len(req.Corpus),
		BitsPerChar: len(req.Query),
	}

	keyData, err := req.Key.MarshalBinary()
	if err != nil {
		return "", nil, fmt.Errorf("marshal server key: %w", err)
	}
	queryData, err := boolean.MarshalBits(req.Query)
	if err != nil {
		return "", nil, fmt.Errorf("marshal query: %w", err)
	}
	corpusData, err := boolean.MarshalCorpus(req.Corpus)
	if err != nil {
		return "", nil, fmt.Errorf("marshal corpus: %w", err)
	}
	seqData, err := req.Sequence.MarshalBinary()
	if err != nil {
		return "", nil, fmt.Errorf("marshal sequence: %w", err)
	}

	for _, a := range []struct {
		name string
		data []byte
		dst  *storage.Handle
	}{
		{"server key", keyData, &m.ServerKey},
		{"query", queryData, &m.Query},
		{"corpus", corpusData, &m.Corpus},
		{"sequence", seqData, &m.Sequence},
	} {
		if *a.dst, err = store.Store(ctx, a.data); err != nil {
			return "", nil, fmt.Errorf("store %s: %w", a.name, err)
		}
	}

	h, err := StoreManifest(ctx, store, m)
	if err != nil {
		return "", nil, err
	}
	return h, m, nil
}

// StoreManifest stores m as JSON.
func StoreManifest(ctx context.Context, store storage.Storage, m *Manifest) (storage.Handle, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("marshal manifest: %w", err)
	}
	h, err := store.Store(ctx, data)
	if err != nil {
		return "", fmt.Errorf("store manifest: %w", err)
	}
	return h, nil
}

// LoadManifest loads the manifest stored under h.
func LoadManifest(ctx context.Context, store storage.Storage, h storage.Handle) (*Manifest, error) {
	data, err := store.Load(ctx, h)
	if err != nil {
		return nil, fmt.Errorf("load manifest: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedManifest, err)
	}
	return &m, nil
}

// Parameters resolves the parameter set named by the manifest.
func (m *Manifest) Parameters() (ohlg.Parameters, error) {
	lit, err := ohlg.ParametersLiteralByName(m.Params)
	if err != nil {
		return ohlg.Parameters{}, err
	}
	return ohlg.NewParametersFromLiteral(lit)
}

// Load loads and decodes the request named by m. The gadget matrices of
// the request context are taken from cache, which may be nil.
func Load(ctx context.Context, store storage.Storage, m *Manifest, cache *ohlg.GadgetCache) (*Request, error) {
	if m.ServerKey == "" || m.Query == "" || m.Corpus == "" || m.Sequence == "" {
		return nil, ErrIncomplete
	}

	params, err := m.Parameters()
	if err != nil {
		return nil, err
	}
	octx, err := ohlg.NewContext(params, cache)
	if err != nil {
		return nil, err
	}
	req := &Request{Context: octx, Key: new(boolean.BootstrapKey), Sequence: new(ohlg.GateSequence)}

	data, err := store.Load(ctx, m.ServerKey)
	if err != nil {
		return nil, fmt.Errorf("load server key: %w", err)
	}
	if err := req.Key.UnmarshalBinary(data); err != nil {
		return nil, fmt.Errorf("unmarshal server key: %w", err)
	}
	if req.Key.Params().Literal() != params.Scheme().Literal() {
		return nil, fmt.Errorf("server key: %w", ohlg.ErrParameterMismatch)
	}

	if data, err = store.Load(ctx, m.Query); err != nil {
		return nil, fmt.Errorf("load query: %w", err)
	}
	if req.Query, err = boolean.UnmarshalBits(data); err != nil {
		return nil, fmt.Errorf("unmarshal query: %w", err)
	}

	if data, err = store.Load(ctx, m.Corpus); err != nil {
		return nil, fmt.Errorf("load corpus: %w", err)
	}
	if req.Corpus, err = boolean.UnmarshalCorpus(data); err != nil {
		return nil, fmt.Errorf("unmarshal corpus: %w", err)
	}
	if len(req.Corpus) != m.Chars || len(req.Query) != m.BitsPerChar {
		return nil, fmt.Errorf("%w: manifest declares %d chars of %d bits, have %d of %d",
			ohlg.ErrInvalidQuery, m.Chars, m.BitsPerChar, len(req.Corpus), len(req.Query))
	}

	if data, err = store.Load(ctx, m.Sequence); err != nil {
		return nil, fmt.Errorf("load sequence: %w", err)
	}
	if err := req.Sequence.UnmarshalBinary(data); err != nil {
		return nil, fmt.Errorf("unmarshal sequence: %w", err)
	}
	if err := octx.CheckSequence(req.Sequence); err != nil {
		return nil, err
	}
	return req, nil
}

// SaveResult stores res and a copy of m pointing at it, and returns the
// handle of the result manifest.
func SaveResult(ctx context.Context, store storage.Storage, m *Manifest, res *ohlg.MatchResult) (storage.Handle, error) {
	data, err := res.Result.MarshalBinary()
	if err != nil {
		return "", fmt.Errorf("marshal result: %w", err)
	}
	out := *m
	if out.Result, err = store.Store(ctx, data); err != nil {
		return "", fmt.Errorf("store result: %w", err)
	}
	out.GatesConsumed = res.GatesConsumed
	return StoreManifest(ctx, store, &out)
}

// LoadResult loads the encrypted match result named by m. Trivial results
// and results of the wrong dimension are rejected.
func LoadResult(ctx context.Context, store storage.Storage, m *Manifest) (*boolean.Ciphertext, error) {
	if m.Result == "" {
		return nil, fmt.Errorf("%w: no result", ErrIncomplete)
	}
	data, err := store.Load(ctx, m.Result)
	if err != nil {
		return nil, fmt.Errorf("load result: %w", err)
	}
	ct := new(boolean.Ciphertext)
	if err := ct.UnmarshalBinary(data); err != nil {
		return nil, fmt.Errorf("unmarshal result: %w", err)
	}
	params, err := m.Parameters()
	if err != nil {
		return nil, err
	}
	raw, err := ct.Raw()
	if err != nil {
		return nil, fmt.Errorf("result: %w", err)
	}
	if len(raw) != params.Scheme().LWESize() {
		return nil, fmt.Errorf("result: %w: %d, want %d", ohlg.ErrParameterMismatch, len(raw), params.Scheme().LWESize())
	}
	return ct, nil
}

// Match loads the request named by h, runs the cascade and stores the
// result. It returns the handle of the result manifest.
func Match(ctx context.Context, store storage.Storage, h storage.Handle, cache *ohlg.GadgetCache, opts ...ohlg.MatcherOption) (storage.Handle, *ohlg.MatchResult, error) {
	m, err := LoadManifest(ctx, store, h)
	if err != nil {
		return "", nil, err
	}
	req, err := Load(ctx, store, m, cache)
	if err != nil {
		return "", nil, err
	}
	res, err := ohlg.NewMatcher(req.Context, req.Key, opts...).Match(ctx, req.Query, req.Corpus, req.Sequence)
	if err != nil {
		return "", nil, err
	}
	rh, err := SaveResult(ctx, store, m, res)
	if err != nil {
		return "", nil, err
	}
	return rh, res, nil
}
