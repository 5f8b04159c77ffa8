package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/aiverso/aiverso-backend/internal/logger"
	"github.com/aiverso/aiverso-backend/internal/platform/apierr"
	"github.com/aiverso/aiverso-backend/internal/repos"
	"github.com/aiverso/aiverso-backend/internal/types"
)

// KGNeighbor is a related entity with the relation label pointing at it.
type KGNeighbor struct {
	Entity    *types.KGEntity `json:"entity"`
	Label     string          `json:"label"`
	Direction string          `json:"direction"` // out | in
}

type KGEntityDetail struct {
	Entity    *types.KGEntity `json:"entity"`
	Neighbors []KGNeighbor    `json:"neighbors"`
}

type KGService interface {
	ListEntities(ctx context.Context, filter repos.KGEntityFilter) ([]*types.KGEntity, error)
	// GetEntity loads the entity with its first-degree neighborhood.
	GetEntity(ctx context.Context, id uuid.UUID) (*KGEntityDetail, error)
}

type kgService struct {
	db  *gorm.DB
	log *logger.Logger

	entityRepo   repos.KGEntityRepo
	relationRepo repos.KGRelationRepo
}

func NewKGService(
	db *gorm.DB,
	baseLog *logger.Logger,
	entityRepo repos.KGEntityRepo,
	relationRepo repos.KGRelationRepo,
) KGService {
	return &kgService{
		db:           db,
		log:          baseLog.With("service", "KGService"),
		entityRepo:   entityRepo,
		relationRepo: relationRepo,
	}
}

func (s *kgService) ListEntities(ctx context.Context, filter repos.KGEntityFilter) ([]*types.KGEntity, error) {
	return s.entityRepo.List(ctx, nil, filter)
}

func (s *kgService) GetEntity(ctx context.Context, id uuid.UUID) (*KGEntityDetail, error) {
	entities, err := s.entityRepo.GetByIDs(ctx, nil, []uuid.UUID{id})
	if err != nil {
		return nil, err
	}
	if len(entities) == 0 || entities[0] == nil {
		return nil, apierr.New(404, "entity_not_found", fmt.Errorf("entity not found"))
	}
	entity := entities[0]

	relations, err := s.relationRepo.GetByEntityID(ctx, nil, id)
	if err != nil {
		return nil, err
	}

	neighborIDs := make([]uuid.UUID, 0, len(relations))
	for _, rel := range relations {
		if rel == nil {
			continue
		}
		if rel.FromID == id {
			neighborIDs = append(neighborIDs, rel.ToID)
		} else {
			neighborIDs = append(neighborIDs, rel.FromID)
		}
	}
	neighbors, err := s.entityRepo.GetByIDs(ctx, nil, neighborIDs)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]*types.KGEntity, len(neighbors))
	for _, n := range neighbors {
		if n != nil {
			byID[n.ID] = n
		}
	}

	detail := &KGEntityDetail{Entity: entity, Neighbors: []KGNeighbor{}}
	for _, rel := range relations {
		if rel == nil {
			continue
		}
		if rel.FromID == id {
			if n, ok := byID[rel.ToID]; ok {
				detail.Neighbors = append(detail.Neighbors, KGNeighbor{Entity: n, Label: rel.Label, Direction: "out"})
			}
		} else {
			if n, ok := byID[rel.FromID]; ok {
				detail.Neighbors = append(detail.Neighbors, KGNeighbor{Entity: n, Label: rel.Label, Direction: "in"})
			}
		}
	}
	return detail, nil
}
