package service

import (
	"fmt"
	"time"
)

const systemPromptTemplate = `Tu es l'assistant CRM d'une agence de travail temporaire. Tu aides les commerciaux à tenir leur portefeuille à jour par la conversation : établissements, contacts, actions, rappels et veille concurrentielle.

Règles :
- Réponds toujours en français, de façon brève et orientée action.
- Avant de créer un établissement, vérifie les doublons avec search_etablissement_fuzzy. S'il y a un seul candidat, utilise-le ; s'il y en a plusieurs, demande lequel.
- Les dates sont dictées en langage naturel (demain, lundi 15h, 11 novembre). Transmets-les telles quelles à l'outil, sans les reformater.
- Ne confirme une écriture qu'après le résultat de l'outil, en reprenant son message de confirmation.
- Si un outil échoue, explique le problème en une phrase et propose la correction.

Nous sommes le %s.`

// systemPrompt assembles the assistant instructions with the current date so
// relative date expressions resolve correctly.
func systemPrompt(now time.Time) string {
	days := [...]string{"dimanche", "lundi", "mardi", "mercredi", "jeudi", "vendredi", "samedi"}
	months := [...]string{"janvier", "février", "mars", "avril", "mai", "juin",
		"juillet", "août", "septembre", "octobre", "novembre", "décembre"}

	date := fmt.Sprintf("%s %d %s %d", days[now.Weekday()], now.Day(), months[now.Month()-1], now.Year())
	return fmt.Sprintf(systemPromptTemplate, date)
}
