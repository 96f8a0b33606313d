package categorize

import (
	"fmt"
	"io"
	"regexp"

	"gopkg.in/yaml.v3"
)

// Rule assigns Category to a concept matching any of its patterns.
type Rule struct {
	Category string
	Patterns []*regexp.Regexp
}

// NewRule compiles case-insensitive patterns for a category.
func NewRule(category string, patterns ...string) (Rule, error) {
	r := Rule{Category: category}
	for _, p := range patterns {
		re, err := regexp.Compile("(?i)" + p)
		if err != nil {
			return Rule{}, fmt.Errorf("category %s: invalid pattern %q: %w", category, p, err)
		}
		r.Patterns = append(r.Patterns, re)
	}
	return r, nil
}

func mustRule(category string, patterns ...string) Rule {
	r, err := NewRule(category, patterns...)
	if err != nil {
		panic(err)
	}
	return r
}

// DefaultRules is evaluated top to bottom; the first matching category wins.
var DefaultRules = []Rule{
	mustRule("Housing & Bills",
		"alquiler", "rent", "hipoteca", "mortgage", "agua", "water", "luz", "electric",
		"gas", "internet", "telefono", "phone", `seguro.*hogar`, `home.*insurance`,
		"comunidad", "impuesto", "ibi", "basura", "garbage", "utilities"),
	mustRule("Groceries",
		"mercadona", "carrefour", "lidl", "aldi", "dia", "eroski", "alcampo", "hipercor",
		"supermercado", "supermarket", "grocery", "alimentacion", "frutas", "verduras",
		"primaprix", "consum", "bonarea", "condis", "ahorramas", "simply"),
	mustRule("Food & Dining",
		"restaurante", "restaurant", "bar ", "cafe", "cafeteria", "mcdonalds", "burger",
		"pizza", "kebab", "sushi", "wok", `just.*eat`, "glovo", `uber.*eats`, "deliveroo",
		"takeaway", "comida", "cena", "almuerzo", "desayuno", "tapas"),
	mustRule("Subscriptions",
		"netflix", "spotify", "hbo", "disney", `amazon.*prime`, `youtube.*premium`,
		`apple.*music`, "icloud", `google.*one`, "dropbox", "notion", "canva", "adobe",
		`microsoft.*365`, `gym.*member`, "gimnasio", "suscripcion", "subscription"),
	mustRule("Transport",
		"gasolina", "fuel", "repsol", "cepsa", "bp ", "shell", "parking", "aparcamiento",
		"metro", "bus ", "autobus", "renfe", "tren", "train", "taxi", "uber", "cabify",
		"bolt", "blablacar", "peaje", "toll", "itv", "taller", "mecanico"),
	mustRule("Leisure & Entertainment",
		"cine", "cinema", "teatro", "theater", "concierto", "concert", "museo", "museum",
		`parque.*atracciones`, "zoo", "aquarium", `escape.*room`, "bolos", "bowling",
		"karaoke", "discoteca", "club", "fiesta", "party", "viaje", "travel", "hotel",
		"airbnb", "booking", "vuelo", "flight", "ryanair", "vueling"),
	mustRule("Shopping",
		"zara", "hm", `h&m`, "mango", "primark", `pull.*bear`, "bershka", "stradivarius",
		`massimo.*dutti`, "uniqlo", "decathlon", "mediamarkt", "fnac", `el.*corte.*ingles`,
		"amazon", "aliexpress", "ikea", `leroy.*merlin`, "tienda", "store", "compra",
		"purchase", "ropa", "clothes"),
	mustRule("Health & Wellness",
		"farmacia", "pharmacy", "medico", "doctor", "hospital", "clinica", "clinic",
		"dentista", "dentist", "optica", "fisio", "physio", "psicologo", "therapy", "spa",
		"peluqueria", "hairdresser", "estetica", "beauty"),
	mustRule("Financial",
		"transferencia", "transfer", "comision", "commission", "fee", "interes",
		"interest", "prestamo", "loan", "credito", "credit", "inversion", "investment",
		"ahorro", "savings", "bizum", "paypal", "revolut", "n26", "wise"),
}

type rulesFile struct {
	Categories []struct {
		Name     string   `yaml:"name"`
		Patterns []string `yaml:"patterns"`
	} `yaml:"categories"`
}

// LoadRules reads an ordered rule table from YAML:
//
//	categories:
//	  - name: Groceries
//	    patterns: [mercadona, lidl]
func LoadRules(r io.Reader) ([]Rule, error) {
	var f rulesFile
	if err := yaml.NewDecoder(r).Decode(&f); err != nil {
		return nil, fmt.Errorf("failed to parse rules: %w", err)
	}
	if len(f.Categories) == 0 {
		return nil, fmt.Errorf("rules file has no categories")
	}

	rules := make([]Rule, 0, len(f.Categories))
	for _, c := range f.Categories {
		if c.Name == "" {
			return nil, fmt.Errorf("rules file has a category without name")
		}
		rule, err := NewRule(c.Name, c.Patterns...)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, nil
}
