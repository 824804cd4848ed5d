// Package tools defines the assistant's tool catalog and the registry that
// dispatches requested calls onto the CRM service.
package tools

import (
	"google.golang.org/genai"
)

func str(desc string) *genai.Schema {
	return &genai.Schema{Type: genai.TypeString, Description: desc}
}

func num(desc string) *genai.Schema {
	return &genai.Schema{Type: genai.TypeNumber, Description: desc}
}

func boolean(desc string) *genai.Schema {
	return &genai.Schema{Type: genai.TypeBoolean, Description: desc}
}

func strArray(desc string) *genai.Schema {
	return &genai.Schema{Type: genai.TypeArray, Description: desc, Items: &genai.Schema{Type: genai.TypeString}}
}

func obj(props map[string]*genai.Schema, required ...string) *genai.Schema {
	return &genai.Schema{Type: genai.TypeObject, Properties: props, Required: required}
}

// Catalog returns the full tool catalog sent to the model on every turn.
// Descriptions are in French because the assistant converses in French.
func Catalog() []*genai.FunctionDeclaration {
	return []*genai.FunctionDeclaration{
		{
			Name:        "search_etablissement_fuzzy",
			Description: "Recherche floue d'un établissement par nom (et ville facultative). Retourne jusqu'à 3 candidats classés. À utiliser avant toute création pour éviter les doublons.",
			Parameters: obj(map[string]*genai.Schema{
				"nom":   str("Nom de l'établissement tel que dicté par l'utilisateur"),
				"ville": str("Ville, si mentionnée"),
			}, "nom"),
		},
		{
			Name:        "create_etablissement",
			Description: "Crée un établissement (client ou prospect). La déduplication est automatique : un doublon unique est fusionné silencieusement, plusieurs doublons sont retournés pour confirmation.",
			Parameters: obj(map[string]*genai.Schema{
				"nom":                  str("Nom de l'établissement"),
				"type":                 str("client, prospect ou ancien_client"),
				"statut_commercial":    str("Statut commercial, ex: gagné, à_contacter"),
				"rue":                  str("Adresse, rue"),
				"code_postal":          str("Code postal"),
				"ville":                str("Ville"),
				"secteur":              str("Secteur d'activité, ex: hôtellerie, santé"),
				"sous_secteur":         str("Sous-secteur, ex: ehpad, restauration collective"),
				"coefficient":          num("Coefficient de facturation"),
				"groupe":               str("Groupe auquel l'établissement appartient"),
				"concurrent_principal": str("Concurrent principal en place"),
				"remarques":            str("Notes libres"),
				"extra": {Type: genai.TypeObject,
					Description: "Attributs hors schéma, ex: siret, effectif"},
			}, "nom"),
		},
		{
			Name:        "create_contact",
			Description: "Ajoute un contact à un établissement existant, résolu par nom.",
			Parameters: obj(map[string]*genai.Schema{
				"etablissement":      str("Nom de l'établissement"),
				"nom":                str("Nom de famille du contact"),
				"prenom":             str("Prénom du contact"),
				"fonction":           str("Fonction, ex: directeur, chef de cuisine"),
				"telephone":          str("Numéro de téléphone"),
				"email":              str("Adresse email"),
				"preference_contact": str("Canal préféré : téléphone, email, visite"),
				"remarques":          str("Notes libres"),
			}, "etablissement"),
		},
		{
			Name:        "create_action",
			Description: "Enregistre une action commerciale (appel, visite, mail) avec date en langage naturel. Si l'établissement n'existe pas, une fiche minimale est créée automatiquement.",
			Parameters: obj(map[string]*genai.Schema{
				"etablissement": str("Nom de l'établissement"),
				"ville":         str("Ville, pour aider la résolution"),
				"type":          str("Type d'action : appel, visite, mail, autre"),
				"date":          str("Date en français : demain, lundi 15h, 11 novembre, 15/03..."),
				"contact":       str("Nom du contact concerné"),
				"assigne":       str("Prénom du collaborateur assigné"),
				"commentaire":   str("Commentaire libre"),
				"rappel_le":     str("Expression de date pour un rappel explicite"),
				"est_rappel":    boolean("Vrai si l'utilisateur demande un rappel"),
			}, "etablissement", "type", "date"),
		},
		{
			Name:        "search_etablissements",
			Description: "Liste tous les établissements de l'utilisateur.",
			Parameters:  obj(map[string]*genai.Schema{}),
		},
		{
			Name:        "search_actions",
			Description: "Liste les actions, pour un établissement donné ou toutes.",
			Parameters: obj(map[string]*genai.Schema{
				"etablissement": str("Nom de l'établissement, vide pour toutes les actions"),
			}),
		},
		{
			Name:        "get_etablissement_info",
			Description: "Retourne la fiche complète d'un établissement résolu par nom : coordonnées, contacts, dernières actions.",
			Parameters: obj(map[string]*genai.Schema{
				"nom":   str("Nom de l'établissement"),
				"ville": str("Ville, si mentionnée"),
			}, "nom"),
		},
		{
			Name:        "search_internal_users",
			Description: "Liste les collaborateurs internes de l'agence.",
			Parameters:  obj(map[string]*genai.Schema{}),
		},
		{
			Name:        "create_internal_user",
			Description: "Ajoute un collaborateur interne.",
			Parameters: obj(map[string]*genai.Schema{
				"prenom": str("Prénom"),
				"nom":    str("Nom de famille"),
				"email":  str("Adresse email"),
			}, "prenom", "nom"),
		},
		{
			Name:        "detect_duplicates",
			Description: "Détecte les doublons potentiels d'un nom d'établissement sans rien écrire.",
			Parameters: obj(map[string]*genai.Schema{
				"nom":   str("Nom à vérifier"),
				"ville": str("Ville, si connue"),
			}, "nom"),
		},
		{
			Name:        "merge_etablissements",
			Description: "Fusionne un doublon dans un établissement maître : champs complétés, contacts et actions réaffectés, doublon archivé.",
			Parameters: obj(map[string]*genai.Schema{
				"maitre":  str("Nom de l'établissement à conserver"),
				"doublon": str("Nom de l'établissement à fusionner puis archiver"),
			}, "maitre", "doublon"),
		},
		{
			Name:        "soft_delete_etablissement",
			Description: "Archive un établissement (suppression logique, réversible en base).",
			Parameters: obj(map[string]*genai.Schema{
				"nom": str("Nom de l'établissement à archiver"),
			}, "nom"),
		},
		{
			Name:        "move_contacts",
			Description: "Déplace tous les contacts d'un établissement vers un autre.",
			Parameters: obj(map[string]*genai.Schema{
				"source":      str("Établissement d'origine"),
				"destination": str("Établissement de destination"),
			}, "source", "destination"),
		},
		{
			Name:        "manage_concurrence",
			Description: "Enregistre la présence d'un concurrent chez un établissement : postes couverts, coefficient observé, statut.",
			Parameters: obj(map[string]*genai.Schema{
				"etablissement":        str("Nom de l'établissement"),
				"concurrent_principal": str("Nom du concurrent"),
				"postes":               strArray("Postes couverts par le concurrent"),
				"secteur":              str("Secteur, hérité de l'établissement si omis"),
				"sous_secteur":         str("Sous-secteur, hérité si omis"),
				"coefficient":          num("Coefficient observé chez le concurrent"),
				"statut":               str("active, historical ou prospective"),
				"remarques":            str("Notes libres"),
			}, "etablissement", "concurrent_principal"),
		},
		{
			Name:        "query_concurrence",
			Description: "Agrège la présence concurrentielle par concurrent : nombre d'entrées et coefficient moyen, filtrable par secteur.",
			Parameters: obj(map[string]*genai.Schema{
				"secteur": str("Secteur à filtrer, ex: hôtellerie, santé"),
				"limite":  num("Nombre de concurrents retournés, 10 par défaut"),
			}),
		},
		{
			Name:        "search_rappels",
			Description: "Liste les rappels à venir dans une fenêtre donnée.",
			Parameters: obj(map[string]*genai.Schema{
				"jours": num("Horizon en jours, 7 par défaut"),
			}),
		},
		{
			Name:        "search_actions_en_cours",
			Description: "Liste les actions sans résultat enregistré, les plus récentes d'abord.",
			Parameters:  obj(map[string]*genai.Schema{}),
		},
		{
			Name:        "create_alias",
			Description: "Enregistre une variante de nom pour un établissement, utilisée ensuite par la recherche floue.",
			Parameters: obj(map[string]*genai.Schema{
				"etablissement": str("Nom actuel de l'établissement"),
				"alias":         str("Variante de nom à mémoriser"),
			}, "etablissement", "alias"),
		},
	}
}
