package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"crm_assistant_backend/internal/crm/bag"
	"crm_assistant_backend/internal/crm/repository"
	"crm_assistant_backend/internal/crm/service"
	"crm_assistant_backend/platform/apperr"
	"crm_assistant_backend/platform/textnorm"
)

// decode unmarshals the raw tool arguments. Empty argument payloads are
// valid: some tools take no parameters.
func decode(args json.RawMessage, into any) error {
	if len(args) == 0 {
		return nil
	}
	return json.Unmarshal(args, into)
}

// normalizeStatus maps French commercial status hints onto storage values.
func normalizeStatus(status string) string {
	switch textnorm.Normalize(status) {
	case "gagne", "won":
		return repository.StatusWon
	case "acontacter", "contacter", "tocontact":
		return repository.StatusToContact
	case "":
		return ""
	default:
		return status
	}
}

// errResult converts a service error to a per-call failure. Typed domain
// errors keep their French message; anything else gets a generic one.
func errResult(err error) Result {
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return Result{Success: false, Error: appErr.Message}
	}
	return Result{Success: false, Error: "une erreur interne est survenue"}
}

func buildHandlers(crm *service.Service) map[string]Handler {
	return map[string]Handler{
		"search_etablissement_fuzzy": func(ctx context.Context, ownerID uuid.UUID, args json.RawMessage) Result {
			var in struct {
				Nom   string `json:"nom"`
				Ville string `json:"ville"`
			}
			if err := decode(args, &in); err != nil {
				return failure("arguments invalides : %v", err)
			}

			matches, err := crm.ResolveEstablishment(ctx, ownerID, in.Nom, in.Ville)
			if err != nil {
				return errResult(err)
			}

			switch len(matches) {
			case 0:
				return Result{Success: true, Data: matches,
					Message: fmt.Sprintf("Aucun établissement ne correspond à %q. Propose d'en créer un.", in.Nom)}
			case 1:
				return Result{Success: true, Data: matches,
					Message: fmt.Sprintf("Un seul établissement correspond : %s. Utilise-le directement.", matches[0].Name)}
			default:
				var sb strings.Builder
				sb.WriteString("Plusieurs établissements correspondent, demande lequel utiliser :")
				for i, m := range matches {
					fmt.Fprintf(&sb, " %d) %s", i+1, m.Name)
					if m.City != "" {
						fmt.Fprintf(&sb, " (%s)", m.City)
					}
				}
				return Result{Success: true, Data: matches, Message: sb.String()}
			}
		},

		"create_etablissement": func(ctx context.Context, ownerID uuid.UUID, args json.RawMessage) Result {
			var in struct {
				Nom              string         `json:"nom"`
				Type             string         `json:"type"`
				StatutCommercial string         `json:"statut_commercial"`
				Rue              string         `json:"rue"`
				CodePostal       string         `json:"code_postal"`
				Ville            string         `json:"ville"`
				Secteur          string         `json:"secteur"`
				SousSecteur      string         `json:"sous_secteur"`
				Coefficient      *float64       `json:"coefficient"`
				Groupe           string         `json:"groupe"`
				Concurrent       string         `json:"concurrent_principal"`
				Remarques        string         `json:"remarques"`
				Extra            map[string]any `json:"extra"`
			}
			if err := decode(args, &in); err != nil {
				return failure("arguments invalides : %v", err)
			}

			extra := bag.New()
			for k, v := range in.Extra {
				if err := extra.Set(k, v); err != nil {
					return failure("attribut additionnel invalide : %v", err)
				}
			}

			res, err := crm.CreateEstablishment(ctx, ownerID, service.CreateEstablishmentInput{
				Name:              in.Nom,
				Kind:              in.Type,
				CommercialStatus:  normalizeStatus(in.StatutCommercial),
				Street:            in.Rue,
				PostalCode:        in.CodePostal,
				City:              in.Ville,
				Sector:            in.Secteur,
				Subsector:         in.SousSecteur,
				Coefficient:       in.Coefficient,
				GroupName:         in.Groupe,
				PrimaryCompetitor: in.Concurrent,
				Notes:             in.Remarques,
				Extra:             extra,
			})
			if err != nil {
				return errResult(err)
			}

			switch res.Outcome {
			case service.OutcomeRefused:
				return Result{Success: false, Error: res.Message}
			case service.OutcomeDuplicateDetected:
				return Result{Success: false, Error: res.Message, Data: map[string]any{
					"outcome":    res.Outcome,
					"candidates": res.Candidates,
				}}
			default:
				return Result{Success: true, Message: res.Message, Data: map[string]any{
					"outcome": res.Outcome,
					"id":      res.Establishment.ID,
					"nom":     res.Establishment.Name,
				}}
			}
		},

		"create_contact": func(ctx context.Context, ownerID uuid.UUID, args json.RawMessage) Result {
			var in struct {
				Etablissement     string `json:"etablissement"`
				Nom               string `json:"nom"`
				Prenom            string `json:"prenom"`
				Fonction          string `json:"fonction"`
				Telephone         string `json:"telephone"`
				Email             string `json:"email"`
				PreferenceContact string `json:"preference_contact"`
				Remarques         string `json:"remarques"`
			}
			if err := decode(args, &in); err != nil {
				return failure("arguments invalides : %v", err)
			}

			contact, err := crm.CreateContact(ctx, ownerID, service.CreateContactInput{
				EstablishmentName: in.Etablissement,
				LastName:          in.Nom,
				FirstName:         in.Prenom,
				Role:              in.Fonction,
				Phone:             in.Telephone,
				Email:             in.Email,
				ContactPreference: in.PreferenceContact,
				Notes:             in.Remarques,
			})
			if err != nil {
				return errResult(err)
			}
			return Result{Success: true,
				Message: fmt.Sprintf("✓ Contact %s %s ajouté.", contact.FirstName, contact.LastName),
				Data:    map[string]any{"id": contact.ID}}
		},

		"create_action": func(ctx context.Context, ownerID uuid.UUID, args json.RawMessage) Result {
			var in struct {
				Etablissement string `json:"etablissement"`
				Ville         string `json:"ville"`
				Type          string `json:"type"`
				Date          string `json:"date"`
				Contact       string `json:"contact"`
				Assigne       string `json:"assigne"`
				Commentaire   string `json:"commentaire"`
				RappelLe      string `json:"rappel_le"`
				EstRappel     bool   `json:"est_rappel"`
			}
			if err := decode(args, &in); err != nil {
				return failure("arguments invalides : %v", err)
			}

			res, err := crm.CreateAction(ctx, ownerID, service.CreateActionInput{
				EstablishmentName: in.Etablissement,
				City:              in.Ville,
				Kind:              in.Type,
				DateExpr:          in.Date,
				ContactName:       in.Contact,
				AssigneeFirstName: in.Assigne,
				Comment:           in.Commentaire,
				RemindExpr:        in.RappelLe,
				IsReminder:        in.EstRappel,
			})
			if err != nil {
				return errResult(err)
			}

			out := Result{Success: true, Message: res.Confirmation, Data: map[string]any{
				"id":            res.Action.ID,
				"etablissement": res.Establishment.Name,
			}}
			if res.EstablishmentStub {
				out.Warning = fmt.Sprintf("L'établissement %q n'existait pas, une fiche minimale a été créée.", res.Establishment.Name)
			}
			return out
		},

		"search_etablissements": func(ctx context.Context, ownerID uuid.UUID, _ json.RawMessage) Result {
			list, err := crm.ListEstablishments(ctx, ownerID)
			if err != nil {
				return errResult(err)
			}
			return Result{Success: true, Data: list}
		},

		"search_actions": func(ctx context.Context, ownerID uuid.UUID, args json.RawMessage) Result {
			var in struct {
				Etablissement string `json:"etablissement"`
			}
			if err := decode(args, &in); err != nil {
				return failure("arguments invalides : %v", err)
			}
			list, err := crm.ListActions(ctx, ownerID, in.Etablissement)
			if err != nil {
				return errResult(err)
			}
			return Result{Success: true, Data: list}
		},

		"get_etablissement_info": func(ctx context.Context, ownerID uuid.UUID, args json.RawMessage) Result {
			var in struct {
				Nom   string `json:"nom"`
				Ville string `json:"ville"`
			}
			if err := decode(args, &in); err != nil {
				return failure("arguments invalides : %v", err)
			}

			est, err := crm.GetEstablishment(ctx, ownerID, in.Nom)
			if err != nil {
				return errResult(err)
			}
			contacts, err := crm.ListContacts(ctx, ownerID, est.Name)
			if err != nil {
				return errResult(err)
			}
			actions, err := crm.ListActions(ctx, ownerID, est.Name)
			if err != nil {
				return errResult(err)
			}
			return Result{Success: true, Data: map[string]any{
				"etablissement": est,
				"contacts":      contacts,
				"actions":       actions,
			}}
		},

		"search_internal_users": func(ctx context.Context, _ uuid.UUID, _ json.RawMessage) Result {
			users, err := crm.ListInternalUsers(ctx)
			if err != nil {
				return errResult(err)
			}
			return Result{Success: true, Data: users}
		},

		"create_internal_user": func(ctx context.Context, _ uuid.UUID, args json.RawMessage) Result {
			var in struct {
				Prenom string `json:"prenom"`
				Nom    string `json:"nom"`
				Email  string `json:"email"`
			}
			if err := decode(args, &in); err != nil {
				return failure("arguments invalides : %v", err)
			}
			user, err := crm.CreateInternalUser(ctx, in.Prenom, in.Nom, in.Email)
			if err != nil {
				return errResult(err)
			}
			return Result{Success: true,
				Message: fmt.Sprintf("✓ Collaborateur %s %s ajouté.", user.FirstName, user.LastName),
				Data:    map[string]any{"id": user.ID}}
		},

		"detect_duplicates": func(ctx context.Context, ownerID uuid.UUID, args json.RawMessage) Result {
			var in struct {
				Nom   string `json:"nom"`
				Ville string `json:"ville"`
			}
			if err := decode(args, &in); err != nil {
				return failure("arguments invalides : %v", err)
			}
			dups, err := crm.DetectDuplicates(ctx, ownerID, in.Nom, in.Ville)
			if err != nil {
				return errResult(err)
			}
			if len(dups) == 0 {
				return Result{Success: true, Message: "Aucun doublon détecté.", Data: dups}
			}
			return Result{Success: true,
				Message: fmt.Sprintf("%d doublon(s) potentiel(s) détecté(s).", len(dups)),
				Data:    dups}
		},

		"merge_etablissements": func(ctx context.Context, ownerID uuid.UUID, args json.RawMessage) Result {
			var in struct {
				Maitre  string `json:"maitre"`
				Doublon string `json:"doublon"`
			}
			if err := decode(args, &in); err != nil {
				return failure("arguments invalides : %v", err)
			}
			res, err := crm.Merge(ctx, ownerID, in.Maitre, in.Doublon)
			if err != nil {
				return errResult(err)
			}
			return Result{Success: true,
				Message: fmt.Sprintf("✓ %q fusionné dans %q.", res.Duplicate.Name, res.Master.Name),
				Data:    map[string]any{"masterId": res.Master.ID}}
		},

		"soft_delete_etablissement": func(ctx context.Context, ownerID uuid.UUID, args json.RawMessage) Result {
			var in struct {
				Nom string `json:"nom"`
			}
			if err := decode(args, &in); err != nil {
				return failure("arguments invalides : %v", err)
			}
			est, err := crm.DeleteEstablishment(ctx, ownerID, in.Nom)
			if err != nil {
				return errResult(err)
			}
			return Result{Success: true, Message: fmt.Sprintf("✓ Établissement %q archivé.", est.Name)}
		},

		"move_contacts": func(ctx context.Context, ownerID uuid.UUID, args json.RawMessage) Result {
			var in struct {
				Source      string `json:"source"`
				Destination string `json:"destination"`
			}
			if err := decode(args, &in); err != nil {
				return failure("arguments invalides : %v", err)
			}
			moved, err := crm.MoveContacts(ctx, ownerID, in.Source, in.Destination)
			if err != nil {
				return errResult(err)
			}
			return Result{Success: true,
				Message: fmt.Sprintf("✓ %d contact(s) déplacé(s) vers %q.", moved, in.Destination)}
		},

		"manage_concurrence": func(ctx context.Context, ownerID uuid.UUID, args json.RawMessage) Result {
			var in struct {
				Etablissement string   `json:"etablissement"`
				Concurrent    string   `json:"concurrent_principal"`
				Postes        []string `json:"postes"`
				Secteur       string   `json:"secteur"`
				SousSecteur   string   `json:"sous_secteur"`
				Coefficient   *float64 `json:"coefficient"`
				Statut        string   `json:"statut"`
				Remarques     string   `json:"remarques"`
			}
			if err := decode(args, &in); err != nil {
				return failure("arguments invalides : %v", err)
			}
			entry, err := crm.CreateCompetitiveEntry(ctx, ownerID, service.CreateCompetitiveEntryInput{
				EstablishmentName:   in.Etablissement,
				MainCompetitor:      in.Concurrent,
				Positions:           in.Postes,
				Sector:              in.Secteur,
				Subsector:           in.SousSecteur,
				ObservedCoefficient: in.Coefficient,
				Status:              in.Statut,
				Remarks:             in.Remarques,
			})
			if err != nil {
				return errResult(err)
			}
			return Result{Success: true,
				Message: fmt.Sprintf("✓ Concurrence %q enregistrée.", entry.MainCompetitor),
				Data:    map[string]any{"id": entry.ID}}
		},

		"query_concurrence": func(ctx context.Context, ownerID uuid.UUID, args json.RawMessage) Result {
			var in struct {
				Secteur string   `json:"secteur"`
				Limite  *float64 `json:"limite"`
			}
			if err := decode(args, &in); err != nil {
				return failure("arguments invalides : %v", err)
			}
			limit := 10
			if in.Limite != nil && *in.Limite > 0 {
				limit = int(*in.Limite)
			}
			stats, err := crm.QueryCompetitive(ctx, ownerID, in.Secteur, limit)
			if err != nil {
				return errResult(err)
			}
			return Result{Success: true, Data: stats}
		},

		"search_rappels": func(ctx context.Context, ownerID uuid.UUID, args json.RawMessage) Result {
			var in struct {
				Jours *float64 `json:"jours"`
			}
			if err := decode(args, &in); err != nil {
				return failure("arguments invalides : %v", err)
			}
			horizon := 7 * 24 * time.Hour
			if in.Jours != nil && *in.Jours > 0 {
				horizon = time.Duration(*in.Jours * 24 * float64(time.Hour))
			}
			list, err := crm.UpcomingReminders(ctx, ownerID, horizon)
			if err != nil {
				return errResult(err)
			}
			return Result{Success: true, Data: list}
		},

		"search_actions_en_cours": func(ctx context.Context, ownerID uuid.UUID, _ json.RawMessage) Result {
			list, err := crm.ListActions(ctx, ownerID, "")
			if err != nil {
				return errResult(err)
			}
			open := make([]repository.Action, 0, len(list))
			for _, a := range list {
				if a.Outcome == "" {
					open = append(open, a)
				}
			}
			return Result{Success: true, Data: open}
		},

		"create_alias": func(ctx context.Context, ownerID uuid.UUID, args json.RawMessage) Result {
			var in struct {
				Etablissement string `json:"etablissement"`
				Alias         string `json:"alias"`
			}
			if err := decode(args, &in); err != nil {
				return failure("arguments invalides : %v", err)
			}
			if err := crm.AddAlias(ctx, ownerID, in.Etablissement, in.Alias); err != nil {
				return errResult(err)
			}
			return Result{Success: true, Message: fmt.Sprintf("✓ Alias %q mémorisé.", in.Alias)}
		},
	}
}
