package config

// ColumnSet is an allow-list of JSON field names accepted by a generic
// update body.
type ColumnSet map[string]bool

// Allows reports whether every key is in the set.  The first rejected key
// is returned so handlers can log it.
func (s ColumnSet) Allows(keys []string) (string, bool) {
	for _, k := range keys {
		if !s[k] {
			return k, false
		}
	}
	return "", true
}

// ColumnsConfig carries the per-entity update allow-lists.
type ColumnsConfig struct {
	Pedido  ColumnSet
	Produto ColumnSet
}

// LoadColumnsConfig reads PEDIDO_UPDATE_COLUMNS and PRODUTO_UPDATE_COLUMNS
// (comma separated).
func LoadColumnsConfig() ColumnsConfig {
	return ColumnsConfig{
		Pedido:  NewColumnSet(splitList(envStr("PEDIDO_UPDATE_COLUMNS", "status,userId,createdAt,updatedAt"))...),
		Produto: NewColumnSet(splitList(envStr("PRODUTO_UPDATE_COLUMNS", "tamanho,modelo,tecido,cor,estampa,bloco"))...),
	}
}

// NewColumnSet builds a ColumnSet from names.
func NewColumnSet(names ...string) ColumnSet {
	s := make(ColumnSet, len(names))
	for _, n := range names {
		s[n] = true
	}
	return s
}
