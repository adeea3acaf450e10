package service

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/iliyamo/pedido-service/internal/apperrors"
)

var errItemsRequired = apperrors.BadRequest("Produtos são obrigatórios.")

// itemShape tags how the caller wrote the produtos list.  The shape is
// decided once, from the first element, and never consulted again after
// ParseItems returns.
type itemShape int

const (
	shapeBareIDs itemShape = iota // [1, 2, 3]
	shapePairs                    // [{"id": 1, "quantidade": 2}, ...]
)

// ItemSet is the canonical, quantity-resolved form of a produtos list.
// IDs keeps first-appearance order; Quantity holds the last quantity seen
// for each id.
type ItemSet struct {
	IDs      []uint64
	Quantity map[uint64]int
}

func (s *ItemSet) put(id uint64, qty int) {
	if _, seen := s.Quantity[id]; !seen {
		s.IDs = append(s.IDs, id)
	}
	s.Quantity[id] = qty
}

// Len is the number of distinct ids.
func (s ItemSet) Len() int { return len(s.IDs) }

// ParseItems normalizes the raw produtos value.  It fails with BadRequest
// when the value is missing, not an array or empty.  Elements whose id
// cannot be read as a positive integer are skipped; they could never
// match a catalog row.
func ParseItems(raw json.RawMessage) (ItemSet, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '[' {
		return ItemSet{}, errItemsRequired
	}
	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil || len(elems) == 0 {
		return ItemSet{}, errItemsRequired
	}

	shape := shapePairs
	if isJSONNumber(elems[0]) {
		shape = shapeBareIDs
	}

	set := ItemSet{Quantity: make(map[uint64]int, len(elems))}
	for _, el := range elems {
		var idVal, qtyVal any
		switch shape {
		case shapeBareIDs:
			idVal = decodeAny(el)
		case shapePairs:
			var pair map[string]any
			if err := json.Unmarshal(el, &pair); err != nil {
				continue
			}
			idVal = pair["id"]
			if q, ok := pair["quantidade"]; ok {
				qtyVal = q
			} else {
				qtyVal = pair["quantity"]
			}
		}
		id, ok := coerceID(idVal)
		if !ok {
			continue
		}
		set.put(id, coerceQuantity(qtyVal))
	}
	return set, nil
}

func isJSONNumber(b json.RawMessage) bool {
	b = bytes.TrimSpace(b)
	return len(b) > 0 && (b[0] == '-' || (b[0] >= '0' && b[0] <= '9'))
}

func decodeAny(b json.RawMessage) any {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return nil
	}
	return v
}

// toNumber reads numbers and numeric strings the way a loose client would
// write them ("3", 3, 3.0).
func toNumber(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, !math.IsNaN(t) && !math.IsInf(t, 0)
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return f, true
	case bool:
		if t {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

func coerceID(v any) (uint64, bool) {
	f, ok := toNumber(v)
	if !ok || f < 1 || f != math.Trunc(f) || f > math.MaxInt64 {
		return 0, false
	}
	return uint64(f), true
}

// coerceQuantity defaults to 1 when the value is missing, non-numeric or
// below 1.  Fractions are truncated.
func coerceQuantity(v any) int {
	f, ok := toNumber(v)
	if !ok {
		return 1
	}
	f = math.Trunc(f)
	if f < 1 {
		return 1
	}
	if f > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(f)
}
