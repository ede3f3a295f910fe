// Package dictionary builds, serializes, and parses the meta-token dictionary
// framing a compressed token stream wraps its body in, and expands meta-tokens
// back out during decompression.
package dictionary

import (
	"sort"

	"github.com/nobletooth/ltsc/pkg/types"
)

// maxExpansionIterations bounds how many full passes Decompress will make
// expanding meta-tokens, guarding against a malformed or cyclic dictionary.
const maxExpansionIterations = 100

// Dictionary is the outcome of building a dictionary from selected
// occurrences: the meta-token expansions, the serialized framing tokens, and
// the pattern-to-meta-token assignment used to rewrite the body.
type Dictionary struct {
	// Entries maps meta-token -> its expansion.
	Entries map[types.Token]types.TokenSeq
	// Tokens is the serialized dictionary: [DICT_START, (MT, LEN?, DEF...)*, DICT_END].
	Tokens types.TokenSeq
	// PatternToMeta maps a pattern's subsequence key to its assigned meta-token.
	PatternToMeta map[string]types.Token
	// Patterns records, for each assigned meta-token, the literal pattern it
	// stands for, since PatternToMeta is keyed by an opaque encoded string.
	Patterns map[types.Token]types.TokenSeq
}

// metaTokenFor looks up the meta-token assigned to subsequence seq.
func (d Dictionary) metaTokenFor(seq types.TokenSeq) (types.Token, bool) {
	mt, ok := d.PatternToMeta[types.SubsequenceKey(seq)]
	return mt, ok
}

// BuildDictionary assigns a meta-token to each unique pattern among the
// selected occurrences, then serializes a dictionary frame:
//
//	DICT_START, (MT, LEN?, DEF...)*, DICT_END
//
// Patterns are ordered shortest-first, then by descending occurrence count,
// so that a future hierarchical pass which lets one pattern's definition
// reference an earlier meta-token stays well-formed.
func BuildDictionary(selected []types.Occurrence, cfg types.CompressionConfig, nextMetaToken types.Token) Dictionary {
	if len(selected) == 0 {
		return Dictionary{
			Entries:       map[types.Token]types.TokenSeq{},
			PatternToMeta: map[string]types.Token{},
			Patterns:      map[types.Token]types.TokenSeq{},
		}
	}

	type patternInfo struct {
		pattern types.TokenSeq
		key     string
		count   int
	}
	byKey := make(map[string]*patternInfo)
	var order []*patternInfo

	for _, occ := range selected {
		key := types.SubsequenceKey(occ.Subsequence)
		info, ok := byKey[key]
		if !ok {
			info = &patternInfo{pattern: occ.Subsequence, key: key}
			byKey[key] = info
			order = append(order, info)
		}
		info.count++
	}

	sort.SliceStable(order, func(i, j int) bool {
		if len(order[i].pattern) != len(order[j].pattern) {
			return len(order[i].pattern) < len(order[j].pattern)
		}
		return order[i].count > order[j].count
	})

	patternToMeta := make(map[string]types.Token, len(order))
	patterns := make(map[types.Token]types.TokenSeq, len(order))
	metaCounter := nextMetaToken
	for _, info := range order {
		patternToMeta[info.key] = metaCounter
		patterns[metaCounter] = info.pattern
		metaCounter++
	}

	entries := make(map[types.Token]types.TokenSeq, len(order))
	for mt, pattern := range patterns {
		entries[mt] = pattern
	}

	tokens := make(types.TokenSeq, 0, len(order)*4+2)
	tokens = append(tokens, cfg.DictStartToken)
	for _, info := range order {
		mt := patternToMeta[info.key]
		tokens = append(tokens, mt)
		if cfg.DictLengthEnabled {
			tokens = append(tokens, types.Token(len(info.pattern)))
		}
		tokens = append(tokens, serializePattern(info.pattern)...)
	}
	tokens = append(tokens, cfg.DictEndToken)

	return Dictionary{
		Entries:       entries,
		Tokens:        tokens,
		PatternToMeta: patternToMeta,
		Patterns:      patterns,
	}
}

// serializePattern returns the wire definition for a pattern. Sub-pattern
// substitution inside dictionary definitions is a hierarchical-compression
// concern handled a level up, so this is a direct passthrough.
func serializePattern(pattern types.TokenSeq) types.TokenSeq {
	out := make(types.TokenSeq, len(pattern))
	copy(out, pattern)
	return out
}

// BuildBody rewrites tokens, replacing every selected occurrence with its
// assigned meta-token, looked up via dict. Occurrences are processed in
// start-position order.
func BuildBody(tokens types.TokenSeq, selected []types.Occurrence, dict Dictionary) types.TokenSeq {
	if len(selected) == 0 || len(dict.PatternToMeta) == 0 {
		out := make(types.TokenSeq, len(tokens))
		copy(out, tokens)
		return out
	}

	sorted := append([]types.Occurrence(nil), selected...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	body := make(types.TokenSeq, 0, len(tokens))
	pos := 0
	for _, occ := range sorted {
		if pos < occ.Start {
			body = append(body, tokens[pos:occ.Start]...)
		}
		if mt, ok := dict.metaTokenFor(occ.Subsequence); ok {
			body = append(body, mt)
		} else {
			body = append(body, tokens[occ.Start:occ.Start+occ.Length]...)
		}
		pos = occ.Start + occ.Length
	}
	if pos < len(tokens) {
		body = append(body, tokens[pos:]...)
	}
	return body
}

// Decompress extracts the body section of a serialized stream and iteratively
// expands meta-tokens against dictionary until a pass makes no further
// substitutions, or maxExpansionIterations is reached.
func Decompress(tokens types.TokenSeq, dict map[types.Token]types.TokenSeq, cfg types.CompressionConfig) types.TokenSeq {
	result := ExtractBody(tokens, cfg)

	for i := 0; i < maxExpansionIterations; i++ {
		expanded, changed := expandOnce(result, dict)
		if !changed {
			break
		}
		result = expanded
	}
	return result
}

// ExtractBody returns everything after the dictionary's closing delimiter, or
// the whole stream if no dictionary section is present.
func ExtractBody(tokens types.TokenSeq, cfg types.CompressionConfig) types.TokenSeq {
	for i, t := range tokens {
		if t == cfg.DictEndToken {
			out := make(types.TokenSeq, len(tokens)-i-1)
			copy(out, tokens[i+1:])
			return out
		}
	}
	out := make(types.TokenSeq, len(tokens))
	copy(out, tokens)
	return out
}

// expandOnce replaces every token with its dictionary expansion where
// present, one level deep, reporting whether any substitution happened.
func expandOnce(tokens types.TokenSeq, dict map[types.Token]types.TokenSeq) (types.TokenSeq, bool) {
	result := make(types.TokenSeq, 0, len(tokens)*2)
	changed := false
	for _, tok := range tokens {
		if expansion, ok := dict[tok]; ok {
			result = append(result, expansion...)
			changed = true
		} else {
			result = append(result, tok)
		}
	}
	return result, changed
}

// ParseDictionary parses the dictionary frame out of a serialized stream,
// stopping gracefully (returning whatever was parsed so far) on malformed or
// truncated input rather than erroring: a malformed dictionary is an
// authoring bug in the producer, not something a reader should panic over.
func ParseDictionary(tokens types.TokenSeq, cfg types.CompressionConfig) map[types.Token]types.TokenSeq {
	dictionary := make(map[types.Token]types.TokenSeq)

	startPos := -1
	for i, t := range tokens {
		if t == cfg.DictStartToken {
			startPos = i + 1
			break
		}
	}
	if startPos < 0 {
		return dictionary
	}

	endPos := -1
	for i := startPos; i < len(tokens); i++ {
		if tokens[i] == cfg.DictEndToken {
			endPos = i
			break
		}
	}
	if endPos < 0 {
		return dictionary
	}

	pos := startPos
	for pos < endPos {
		metaToken := tokens[pos]
		pos++
		if pos >= endPos {
			break
		}

		if !cfg.DictLengthEnabled {
			break
		}
		length := int(tokens[pos])
		pos++

		if pos+length > endPos {
			break
		}
		definition := make(types.TokenSeq, length)
		copy(definition, tokens[pos:pos+length])
		dictionary[metaToken] = definition
		pos += length
	}

	return dictionary
}

// SerializeResult assembles the final CompressionResult from a built
// dictionary and body, concatenating dictionary framing ahead of the body.
func SerializeResult(dict Dictionary, body, original types.TokenSeq) types.CompressionResult {
	serialized := make(types.TokenSeq, 0, len(dict.Tokens)+len(body))
	serialized = append(serialized, dict.Tokens...)
	serialized = append(serialized, body...)

	return types.CompressionResult{
		OriginalTokens:   original,
		SerializedTokens: serialized,
		DictionaryTokens: dict.Tokens,
		BodyTokens:       body,
		DictionaryMap:    dict.Entries,
		OriginalLength:   len(original),
		CompressedLength: len(serialized),
	}
}
