package service

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"crm_assistant_backend/internal/crm/repository"
	"crm_assistant_backend/internal/events"
	"crm_assistant_backend/platform/apperr"
)

// MergeResult describes a completed explicit merge.
type MergeResult struct {
	Master    repository.Establishment
	Duplicate repository.Establishment
}

// Merge folds the duplicate establishment into the master: empty master
// fields are filled from the duplicate, all related rows are re-pointed, the
// duplicate is soft-deleted and aliased to the master, and a merge audit
// record is appended. Fails with not-found when either name does not resolve.
func (s *Service) Merge(ctx context.Context, ownerID uuid.UUID, masterName, duplicateName string) (MergeResult, error) {
	master, err := s.resolveOne(ctx, ownerID, masterName, "")
	if err != nil {
		return MergeResult{}, err
	}
	duplicate, err := s.resolveOne(ctx, ownerID, duplicateName, "")
	if err != nil {
		return MergeResult{}, err
	}
	if master.ID == duplicate.ID {
		return MergeResult{}, apperr.Validation("les deux noms désignent le même établissement")
	}

	if mergeFields(&master, duplicate) {
		if err := s.repo.UpdateEstablishment(ctx, master); err != nil {
			return MergeResult{}, err
		}
	}

	if err := s.repo.RepointRelations(ctx, duplicate.ID, master.ID); err != nil {
		return MergeResult{}, err
	}
	if err := s.repo.SoftDeleteEstablishment(ctx, ownerID, duplicate.ID); err != nil {
		return MergeResult{}, err
	}

	// The duplicate's name becomes an alias so it keeps resolving.
	if !IsExcludedName(duplicate.Name) {
		if err := s.repo.InsertAlias(ctx, master.ID, duplicate.Name); err != nil {
			s.log.DatabaseError("insert alias", err)
		}
	}

	args, _ := json.Marshal(map[string]string{
		"masterId":    master.ID.String(),
		"duplicateId": duplicate.ID.String(),
	})
	s.recordAudit(ctx, ownerID, "merge", args, nil, true)

	s.publish(ctx, events.EstablishmentsMerged{
		BaseEvent:   events.NewBaseEvent(),
		MasterID:    master.ID,
		DuplicateID: duplicate.ID,
		OwnerID:     ownerID,
	})

	return MergeResult{Master: master, Duplicate: duplicate}, nil
}
