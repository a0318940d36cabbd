package ai

import (
	"encoding/json"
	"fmt"
	"strings"
)

// The prompts keep the original German requirements-engineering wording: the
// model is driven through a four-phase workflow and forced into a strict
// {"requirements": [...]} JSON reply.

const generateSystemPrompt = `Du bist ein erfahrener Requirements Engineer. Arbeite nach dem 4-Phasen-Modell:

PHASE 1 & 2 (Analyse/Struktur): Verstehe den Kontext und strukturiere die Anforderungen logisch.

PHASE 3 (Erstellung): Formuliere NEUE Anforderungen nach der Satzschablone "Das System muss...".
Stelle sicher, dass sie SMART, normenkonform und präzise sind.

PHASE 4 (Review): Qualitätscheck - jede Anforderung muss messbar, akzeptabel und testbar sein.

WICHTIG: Antworte nur mit den generierten Anforderungen im geforderten JSON-Format. Kein zusätzlicher Text.`

const optimizeSystemPrompt = `Du bist ein erfahrener Requirements Engineer. Arbeite nach dem 4-Phasen-Modell:

PHASE 1 & 2 (Analyse/Struktur): Analysiere die übergebenen bestehenden Anforderungen.
Verstehe den Kontext und die vorhandene Struktur.

PHASE 3 (Optimierung): Verbessere jede einzelne Anforderung inhaltlich:
- Präzisiere die Formulierung
- Stelle SMART-Kriterien sicher
- BEHALTE die Anzahl der Anforderungen GLEICH (keine neuen hinzufügen!)
- BEHALTE die Spaltenstruktur EXAKT bei

PHASE 4 (Review): Qualitätscheck - jede Anforderung muss präzise, messbar und normenkonform sein.

WICHTIG: Antworte nur mit den OPTIMIERTEN Anforderungen im gleichen JSON-Format. Kein zusätzlicher Text.`

const defaultSchemaInstruction = `Du musst ausschließlich mit gültigem JSON antworten.
Das JSON-Format muss exakt dieser Struktur folgen:
{
  "requirements": [
    {
      "title": "Kurzer, prägnanter Titel",
      "description": "Detaillierte Beschreibung mit Akzeptanzkriterien",
      "category": "Kategorie (z.B. Funktional, Nicht-Funktional, etc.)",
      "status": "Open"
    }
  ]
}

WICHTIG:
- Generiere MINDESTENS 5 verschiedene Anforderungen
- Antworte NUR mit diesem JSON, ohne zusätzlichen Text davor oder danach.`

func columnSchemaInstruction(columns []string) string {
	fields := make([]string, 0, len(columns))
	for _, col := range columns {
		fields = append(fields, fmt.Sprintf("      %q: \"Passender Wert für %s\"", col, col))
	}
	example := "{\n" + strings.Join(fields, ",\n") + "\n    }"
	return fmt.Sprintf(`Du musst ausschließlich mit gültigem JSON antworten.
Das JSON-Format muss exakt dieser Struktur folgen:
{
  "requirements": [
    %s
  ]
}

WICHTIG:
- Verwende EXAKT diese Spaltennamen: %s
- Fülle ALLE Spalten mit sinnvollen Werten
- Behalte die Struktur und Spaltennamen EXAKT bei
- Generiere MINDESTENS 5 verschiedene Anforderungen
- Antworte NUR mit diesem JSON, ohne zusätzlichen Text davor oder danach.`, example, strings.Join(columns, ", "))
}

func schemaInstruction(columns []string) string {
	if len(columns) > 0 {
		return columnSchemaInstruction(columns)
	}
	return defaultSchemaInstruction
}

func buildGenerateMessages(req GenerateRequest) []ChatMessage {
	var parts []string
	if strings.TrimSpace(req.Description) != "" {
		parts = append(parts, "Beschreibung: "+strings.TrimSpace(req.Description))
	}
	if len(req.Inputs) > 0 {
		parts = append(parts, "\nZusätzliche Informationen:")
		for key, value := range req.Inputs {
			if key != "" && value != "" {
				parts = append(parts, fmt.Sprintf("- %s: %s", key, value))
			}
		}
	}
	userMessage := strings.Join(parts, "\n")
	if userMessage == "" {
		userMessage = "Bitte generiere allgemeine Software-Anforderungen."
	}

	return []ChatMessage{
		{Role: "system", Content: generateSystemPrompt + "\n\n" + schemaInstruction(req.Columns)},
		{Role: "user", Content: userMessage},
	}
}

func buildOptimizeMessages(req GenerateRequest) []ChatMessage {
	existingJSON, _ := json.MarshalIndent(req.Existing, "", "  ")
	parts := []string{
		"Bestehende Anforderungen (bitte optimieren und verbessern):",
		string(existingJSON),
	}
	if strings.TrimSpace(req.Description) != "" {
		parts = append(parts, "\nZusätzliche Hinweise zur Optimierung: "+strings.TrimSpace(req.Description))
	}

	return []ChatMessage{
		{Role: "system", Content: optimizeSystemPrompt + "\n\n" + schemaInstruction(req.Columns)},
		{Role: "user", Content: strings.Join(parts, "\n")},
	}
}

func buildAlternativeMessages(req AlternativeRequest) []ChatMessage {
	var custom strings.Builder
	for key, value := range req.CustomData {
		fmt.Fprintf(&custom, "- %s: %s\n", key, value)
	}

	userMessage := fmt.Sprintf(`Erstelle eine alternative Version der folgenden Anforderung:

Projekt: %s

Ursprüngliche Anforderung:
Titel: %s
Beschreibung: %s
Kategorie: %s

Zusätzlicher Kontext:
%s
Liefere eine verbesserte Version mit:
1. Einem klareren Titel
2. Einer detaillierteren Beschreibung
3. Der gleichen oder einer besseren Kategorie

Behalte die Kernbedeutung bei, verbessere Klarheit, Vollständigkeit und Präzision.
Liefere GENAU EINE Anforderung.`,
		req.ProjectName, req.Title, req.Description, req.Category, custom.String())

	return []ChatMessage{
		{Role: "system", Content: generateSystemPrompt + "\n\n" + schemaInstruction(req.Columns)},
		{Role: "user", Content: userMessage},
	}
}
