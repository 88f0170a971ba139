package usecase

import (
	"context"
	"fmt"

	"github.com/agnivade/levenshtein"
	"go.uber.org/zap"

	"github.com/example/storefront/internal/domain"
)

// GetCatalog lists the open shop's catalog filtered by category and search query.
type GetCatalog struct {
	Cache domain.CatalogCache
}

func (uc GetCatalog) Execute(category, query string) []domain.Item {
	return domain.FilterItems(uc.Cache.All(), category, query)
}

// LoadCatalog replaces the cached catalog with the items of an openShop
// message. Entries that could never be carted are skipped so one bad item
// does not block the whole shop.
type LoadCatalog struct {
	Cache  domain.CatalogCache
	Logger *zap.Logger
}

func (uc LoadCatalog) Execute(items []domain.Item) []domain.Item {
	accepted := make([]domain.Item, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, it := range items {
		if err := it.Validate(); err != nil {
			uc.logger().Warn("skipping catalog item", zap.String("item", it.ID), zap.Error(err))
			continue
		}
		if _, dup := seen[it.ID]; dup {
			uc.logger().Warn("skipping duplicate catalog item", zap.String("item", it.ID))
			continue
		}
		seen[it.ID] = struct{}{}
		accepted = append(accepted, it)
	}
	uc.Cache.Replace(accepted)
	return accepted
}

func (uc LoadCatalog) logger() *zap.Logger {
	if uc.Logger == nil {
		return zap.NewNop()
	}
	return uc.Logger
}

// ResolveItem finds a catalog item by identifier. Unknown identifiers get
// the closest catalog identifier as a hint.
type ResolveItem struct {
	Cache domain.CatalogCache
}

func (uc ResolveItem) Execute(id string) (domain.Item, error) {
	if it, ok := uc.Cache.Get(id); ok {
		return it, nil
	}
	if hint := closestItemID(uc.Cache.All(), id); hint != "" {
		return domain.Item{}, fmt.Errorf("%w %q, did you mean %q?", domain.ErrUnknownItem, id, hint)
	}
	return domain.Item{}, fmt.Errorf("%w %q", domain.ErrUnknownItem, id)
}

func closestItemID(items []domain.Item, id string) string {
	best, bestDist := "", len(id)/3+1
	for _, it := range items {
		if d := levenshtein.ComputeDistance(id, it.ID); d < bestDist {
			best, bestDist = it.ID, d
		}
	}
	return best
}

// ProcessHostMessage decodes a raw host message and hands it to the engine.
type ProcessHostMessage struct {
	Engine *Engine
}

func (uc ProcessHostMessage) Execute(ctx context.Context, raw []byte) error {
	msg, err := domain.ParseHostMessage(raw)
	if err != nil {
		return err
	}
	switch msg.Action {
	case domain.ActionOpenShop:
		_, err = uc.Engine.OpenShop(ctx, msg.OpenShop)
	case domain.ActionCloseShop:
		_, err = uc.Engine.CloseShop(ctx)
	}
	return err
}
