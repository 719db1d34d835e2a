package publisher

import (
	"fmt"
	"regexp"
	"strings"
)

// NoteLine es la línea del log de señales para un mercado.
func NoteLine(stars, marketName, pick string, wallets int) string {
	return fmt.Sprintf("> %s %s → %s · %d wallets", stars, marketName, pick, wallets)
}

// UpsertLine reemplaza la línea del mismo mercado o la añade al final tras una línea en blanco.
// El mercado se identifica por su nombre, con los metacaracteres escapados.
func UpsertLine(content, marketName, line string) string {
	re := regexp.MustCompile(`(?m)^> ★+ ` + regexp.QuoteMeta(marketName) + ` → .*$`)
	if loc := re.FindStringIndex(content); loc != nil {
		return content[:loc[0]] + line + content[loc[1]:]
	}

	content = strings.TrimRight(content, "\n")
	if content == "" {
		return line + "\n"
	}
	return content + "\n\n" + line + "\n"
}
