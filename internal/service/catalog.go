package service

import (
	"ai-build-shop/internal/dto"
	"ai-build-shop/internal/model"
	"ai-build-shop/internal/repository"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// CatalogItem is a purchasable record resolved from any item kind.
type CatalogItem struct {
	Type     model.ItemType  `json:"type"`
	ID       uint            `json:"id"`
	Name     string          `json:"name"`
	PriceEur decimal.Decimal `json:"priceEur"`
	Brand    string          `json:"brand,omitempty"`
	Summary  string          `json:"summary,omitempty"`
}

func (i *CatalogItem) Response() *dto.CatalogItemResponse {
	return &dto.CatalogItemResponse{
		Type:     string(i.Type),
		ID:       i.ID,
		Name:     i.Name,
		PriceEur: i.PriceEur.StringFixed(2),
		Brand:    i.Brand,
		Summary:  i.Summary,
	}
}

type CatalogService interface {
	Resolve(ctx context.Context, itemType model.ItemType, id uint) (*CatalogItem, error)
	List(ctx context.Context, itemType model.ItemType) ([]*CatalogItem, error)
}

type itemResolver func(ctx context.Context, id uint) (*CatalogItem, error)
type itemLister func(ctx context.Context) ([]*CatalogItem, error)

type catalogServiceImpl struct {
	catalogRepo repository.CatalogRepository
	resolvers   map[model.ItemType]itemResolver
	listers     map[model.ItemType]itemLister
	cache       *redis.Client
	cacheTTL    time.Duration
	log         *zap.Logger
}

// NewCatalogService builds the per-kind dispatch tables. cache may be nil.
func NewCatalogService(catalogRepo repository.CatalogRepository, cache *redis.Client, cacheTTL time.Duration, log *zap.Logger) CatalogService {
	s := &catalogServiceImpl{
		catalogRepo: catalogRepo,
		cache:       cache,
		cacheTTL:    cacheTTL,
		log:         log,
	}

	s.resolvers = map[model.ItemType]itemResolver{
		model.ItemTypeBuild: s.resolveBuild,
	}
	s.listers = map[model.ItemType]itemLister{
		model.ItemTypeBuild: s.listBuilds,
	}
	for _, kind := range model.ComponentItemTypes {
		s.resolvers[kind] = s.componentResolver(kind)
		s.listers[kind] = s.componentLister(kind)
	}

	return s
}

func (s *catalogServiceImpl) Resolve(ctx context.Context, itemType model.ItemType, id uint) (*CatalogItem, error) {
	resolve, ok := s.resolvers[itemType]
	if !ok {
		return nil, fmt.Errorf("%w: unknown item type %q", ErrInvalidInput, itemType)
	}
	if id == 0 {
		return nil, fmt.Errorf("%w: item id must be positive", ErrInvalidInput)
	}

	key := fmt.Sprintf("catalog:%s:%d", itemType, id)
	if item := s.cached(ctx, key); item != nil {
		return item, nil
	}

	item, err := resolve(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s %d", ErrItemNotFound, itemType, id)
	}
	if err != nil {
		return nil, fmt.Errorf("resolve %s %d: %w", itemType, id, err)
	}

	s.store(ctx, key, item)
	return item, nil
}

func (s *catalogServiceImpl) List(ctx context.Context, itemType model.ItemType) ([]*CatalogItem, error) {
	list, ok := s.listers[itemType]
	if !ok {
		return nil, fmt.Errorf("%w: unknown item type %q", ErrInvalidInput, itemType)
	}
	return list(ctx)
}

func (s *catalogServiceImpl) resolveBuild(ctx context.Context, id uint) (*CatalogItem, error) {
	build, err := s.catalogRepo.FindBuild(ctx, id)
	if err != nil {
		return nil, err
	}
	return buildItem(build), nil
}

func (s *catalogServiceImpl) listBuilds(ctx context.Context) ([]*CatalogItem, error) {
	builds, err := s.catalogRepo.ListBuilds(ctx)
	if err != nil {
		return nil, fmt.Errorf("list builds: %w", err)
	}
	items := make([]*CatalogItem, len(builds))
	for i, b := range builds {
		items[i] = buildItem(b)
	}
	return items, nil
}

func (s *catalogServiceImpl) componentResolver(kind model.ItemType) itemResolver {
	return func(ctx context.Context, id uint) (*CatalogItem, error) {
		component, err := s.catalogRepo.FindComponent(ctx, kind, id)
		if err != nil {
			return nil, err
		}
		return componentItem(component), nil
	}
}

func (s *catalogServiceImpl) componentLister(kind model.ItemType) itemLister {
	return func(ctx context.Context) ([]*CatalogItem, error) {
		components, err := s.catalogRepo.ListComponents(ctx, kind)
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", kind, err)
		}
		items := make([]*CatalogItem, len(components))
		for i, c := range components {
			items[i] = componentItem(c)
		}
		return items, nil
	}
}

func buildItem(b *model.Build) *CatalogItem {
	return &CatalogItem{
		Type:     model.ItemTypeBuild,
		ID:       b.ID,
		Name:     b.Name,
		PriceEur: b.EstimatedPriceEur,
		Summary:  fmt.Sprintf("%s / %s / %dGB RAM / %dGB storage", b.CPUName, b.GPUName, b.RAMGB, b.StorageGB),
	}
}

func componentItem(c *model.Component) *CatalogItem {
	return &CatalogItem{
		Type:     c.Kind,
		ID:       c.ID,
		Name:     c.Name,
		PriceEur: c.PriceEur,
		Brand:    c.Brand,
		Summary:  c.Specs,
	}
}

// Cache failures fall through to the database.
func (s *catalogServiceImpl) cached(ctx context.Context, key string) *CatalogItem {
	if s.cache == nil {
		return nil
	}
	data, err := s.cache.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.log.Warn("catalog cache read failed", zap.String("key", key), zap.Error(err))
		}
		return nil
	}
	var item CatalogItem
	if err := json.Unmarshal(data, &item); err != nil {
		s.log.Warn("catalog cache entry corrupt", zap.String("key", key), zap.Error(err))
		return nil
	}
	return &item
}

func (s *catalogServiceImpl) store(ctx context.Context, key string, item *CatalogItem) {
	if s.cache == nil {
		return
	}
	data, err := json.Marshal(item)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, data, s.cacheTTL).Err(); err != nil {
		s.log.Warn("catalog cache write failed", zap.String("key", key), zap.Error(err))
	}
}
