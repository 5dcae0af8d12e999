package cfdi

// Rule regla de extracción con nombre. Extract devuelve (valor, true) si encontró algo.
type Rule[T any] struct {
	Name    string
	Extract func(text string) (T, bool)
}

// FirstMatch aplica las reglas en orden y devuelve el primer valor encontrado junto
// con el nombre de la regla que lo produjo.
func FirstMatch[T any](rules []Rule[T], text string) (value T, rule string, ok bool) {
	for _, r := range rules {
		if v, found := r.Extract(text); found {
			return v, r.Name, true
		}
	}
	var zero T
	return zero, "", false
}
