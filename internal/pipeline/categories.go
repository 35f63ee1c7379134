package pipeline

import (
	"fmt"

	"github.com/laborsuche/laborsuche-cli/internal/model"
)

// CategorySpec bundles everything that differs between the two provider
// verticals: the discovery queries, the sniper-search keywords, and the
// validation prompt.
type CategorySpec struct {
	Category model.Category
	Queries  func(city string) []string
	Keywords []string
	Prompt   func(name, text string) string
}

// CategorySpecs returns the fixed specs for both verticals, in run order.
func CategorySpecs() []CategorySpec {
	return []CategorySpec{
		{
			Category: model.CategoryDexa,
			Queries: func(city string) []string {
				return []string{
					city + " DEXA Body Scan",
					city + " DXA Scan",
					city + " DEXA Körperanalyse",
				}
			},
			Keywords: []string{"Körperfett", "Muskelmasse", "Body Composition", "Viszeralfett", "DXA", "Weichteilanalyse"},
			Prompt:   dexaPrompt,
		},
		{
			Category: model.CategoryBlood,
			Queries: func(city string) []string {
				return []string{
					city + " Privatlabor",
					city + " Blutabnahme Selbstzahler",
					city + " Direktlabor",
				}
			},
			Keywords: []string{"Selbstzahler", "ohne Überweisung", "Preisliste", "Health Check", "Direktlabor"},
			Prompt:   bloodPrompt,
		},
	}
}

func dexaPrompt(name, text string) string {
	return fmt.Sprintf(`You are a strict compliance auditor for a healthcare provider directory.

Goal:
Decide if provider %q offers a **DXA/DEXA Body Composition** scan (fat %%, muscle mass, lean mass, visceral fat) as a patient service.

- LOOK FOR: "Körperfett", "Muskelmasse", "Fettanteil", "Viszeralfett", "DXA", "Body Scan".
- IGNORE: "Knochendichte" (Osteoporosis) if it's the ONLY mention.
- IGNORE: Cookie banners, Google Maps placeholders.
CRITICAL RULES:
1. YES: Found specific sentence linking "DEXA"/"DXA" directly with "Körperfett", "Fettanteil", "Muskelmasse", "Weichteilanalyse" or "Gewebe".
2. NO: If "DEXA" is mentioned ONLY in the context of "Knochendichte", "Osteoporose", "T-Wert", "Lendenwirbelsäule".
3. NO: If body composition is done via "MRI", "Ganzkörper-MRI", "MRT", "BIA", "Bioimpedanz", "InBody", "Seca". (MRI is NOT DEXA).
4. NO: If "Sportmedizin" and "DEXA" are mentioned separately without grammatical link.

Text Snippets:
%s

Response JSON: {"status":"YES"|"NO"|"QUESTIONABLE", "evidence_quote": "..."}`, name, text)
}

func bloodPrompt(name, text string) string {
	return fmt.Sprintf(`Du bist ein strenger Auditor für DACH-Gesundheitsanbieter. Du darfst NICHT raten.

AUFGABE
Prüfe anhand des gegebenen Textes, ob der Anbieter %q Blut-/Laboruntersuchungen
für Patienten als Selbstzahler OHNE ärztliche Überweisung / ohne ärztliche Anforderung anbietet.

STRICT DECISION RULES (keine Heuristiken)
- YES nur wenn im Text explizit steht, dass Patienten ohne Überweisung / ohne Rezept / ohne ärztliche Anforderung
  Tests beauftragen können (Synonyme ok: "ohne ärztliche Verordnung", "ohne Arzt", "Direktauftrag",
  "Patientenauftrag", "Direktlabor", "ohne Überweisungsschein").
- NO wenn explizit steht: nur mit Überweisung / nur ärztliche Anforderung / Zuweiser/Einsender-only / Auftrag durch Arzt.
- NO wenn alle Angebote, die sich ausschließlich auf folgende Themen beziehen: covid, testzentrum, schnelltest, pcr, corona, impfen
- QUESTIONABLE wenn:
  - es wie ein Service für Ärzte/Kooperationspartner wirkt, ohne klare Patienten-Selbstbeauftragung.

EVIDENZ-PFLICHT
- Gib IMMER eine evidence_quote als wörtliches Zitat (copy/paste) aus dem Text.
- Für YES muss evidence_quote die "ohne Überweisung/ohne Rezept/ohne ärztliche Anforderung"-Aussage enthalten.
- Für NO muss evidence_quote die Pflicht zur Überweisung/ärztlichen Anforderung enthalten.
- Wenn keine passende, wörtliche Evidenz existiert: QUESTIONABLE.

Provider: %s

Text Snippets:
%s

Response JSON: {"status":"YES"|"NO"|"QUESTIONABLE", "evidence_quote": "..."}`, name, name, text)
}
