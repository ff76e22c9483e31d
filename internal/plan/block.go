package plan

import (
	"bytes"
	"encoding/json"
	"sort"
)

// Block is a nested attribute object such as "sec", "obs" or "test".
// Values stay raw so keys the engine does not know about are written back
// unchanged.
type Block map[string]json.RawMessage

// Has reports whether key is present, whatever its value.
func (b Block) Has(key string) bool {
	_, ok := b[key]
	return ok
}

// Filled reports whether key is present and holds something other than
// null, "", [] or {}.
func (b Block) Filled(key string) bool {
	raw, ok := b[key]
	if !ok {
		return false
	}
	trimmed := bytes.TrimSpace(raw)
	switch string(trimmed) {
	case "", "null", `""`, "[]", "{}":
		return false
	}
	var arr []json.RawMessage
	if json.Unmarshal(trimmed, &arr) == nil {
		return len(arr) > 0
	}
	return true
}

// FilledAll reports whether every key is filled.
func (b Block) FilledAll(keys ...string) bool {
	for _, k := range keys {
		if !b.Filled(k) {
			return false
		}
	}
	return true
}

// HasAll reports whether every key is present.
func (b Block) HasAll(keys ...string) bool {
	for _, k := range keys {
		if !b.Has(k) {
			return false
		}
	}
	return true
}

// Set stores v under key. Values that cannot be encoded are ignored; the
// engine only ever sets strings, string lists, numbers, booleans and maps of
// those.
func (b Block) Set(key string, v any) {
	raw, err := json.Marshal(v)
	if err != nil {
		return
	}
	b[key] = raw
}

// SetDefault stores v under key only when key is absent.
func (b Block) SetDefault(key string, v any) bool {
	if b.Has(key) {
		return false
	}
	b.Set(key, v)
	return true
}

// Keys returns the block's keys in sorted order.
func (b Block) Keys() []string {
	keys := make([]string, 0, len(b))
	for k := range b {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clone returns a deep copy of the block. A nil block clones to nil.
func (b Block) Clone() Block {
	if b == nil {
		return nil
	}
	out := make(Block, len(b))
	for k, v := range b {
		out[k] = append(json.RawMessage(nil), v...)
	}
	return out
}
