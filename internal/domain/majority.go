package domain

// Plurality devuelve el valor con más apariciones.
// Si la lista está vacía o los dos primeros empatan, ok es false y nadie gana.
// Es la única regla de mayoría del sistema: per-wallet, per-mercado y en el evaluador.
func Plurality(values []string) (winner string, count int, ok bool) {
	if len(values) == 0 {
		return "", 0, false
	}
	counts := make(map[string]int, len(values))
	for _, v := range values {
		counts[v]++
	}

	second := 0
	for v, n := range counts {
		switch {
		case n > count:
			second = count
			winner, count = v, n
		case n > second:
			second = n
		}
	}
	if second == count {
		return "", 0, false
	}
	return winner, count, true
}
