package repository

import (
	"ai-build-shop/internal/model"
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CatalogRepository interface {
	Seed(ctx context.Context) error
	FindBuild(ctx context.Context, id uint) (*model.Build, error)
	FindComponent(ctx context.Context, kind model.ItemType, id uint) (*model.Component, error)
	ListBuilds(ctx context.Context) ([]*model.Build, error)
	ListComponents(ctx context.Context, kind model.ItemType) ([]*model.Component, error)
}

type catalogRepoImpl struct {
	db *gorm.DB
}

func NewCatalogRepository(db *gorm.DB) CatalogRepository {
	return &catalogRepoImpl{
		db: db,
	}
}

func (r *catalogRepoImpl) Seed(ctx context.Context) error {
	components := []model.Component{
		{ID: 1, Kind: model.ItemTypeGPU, Name: "NVIDIA GeForce RTX 4090 24GB", Brand: "NVIDIA", Specs: "24GB GDDR6X, 450W", PriceEur: decimal.RequireFromString("1899.00")},
		{ID: 2, Kind: model.ItemTypeGPU, Name: "NVIDIA GeForce RTX 4080 Super 16GB", Brand: "NVIDIA", Specs: "16GB GDDR6X, 320W", PriceEur: decimal.RequireFromString("1099.00")},
		{ID: 3, Kind: model.ItemTypeCPU, Name: "AMD Ryzen 9 7950X", Brand: "AMD", Specs: "16C/32T, AM5, 170W", PriceEur: decimal.RequireFromString("549.00")},
		{ID: 4, Kind: model.ItemTypeCPU, Name: "Intel Core i7-14700K", Brand: "Intel", Specs: "20C/28T, LGA1700, 125W", PriceEur: decimal.RequireFromString("389.90")},
		{ID: 5, Kind: model.ItemTypeRAM, Name: "Corsair Vengeance 64GB DDR5-6000", Brand: "Corsair", Specs: "2x32GB, CL30", PriceEur: decimal.RequireFromString("189.99")},
		{ID: 6, Kind: model.ItemTypePSU, Name: "Seasonic Focus GX-1000", Brand: "Seasonic", Specs: "1000W, 80+ Gold", PriceEur: decimal.RequireFromString("179.00")},
		{ID: 7, Kind: model.ItemTypeGPU, Name: "NVIDIA GeForce RTX 4070 Super 12GB", Brand: "NVIDIA", Specs: "12GB GDDR6X, 220W", PriceEur: decimal.RequireFromString("600.00")},
		{ID: 8, Kind: model.ItemTypeCase, Name: "Fractal Design North", Brand: "Fractal Design", Specs: "ATX mid tower", PriceEur: decimal.RequireFromString("139.00")},
		{ID: 9, Kind: model.ItemTypeMotherboard, Name: "ASUS ProArt X670E-Creator WiFi", Brand: "ASUS", Specs: "AM5, ATX, 2x PCIe 5.0 x16", PriceEur: decimal.RequireFromString("449.00")},
		{ID: 10, Kind: model.ItemTypeStorage, Name: "Samsung 990 Pro 2TB", Brand: "Samsung", Specs: "NVMe PCIe 4.0", PriceEur: decimal.RequireFromString("169.00")},
		{ID: 11, Kind: model.ItemTypeCooler, Name: "Noctua NH-D15", Brand: "Noctua", Specs: "Dual tower air cooler", PriceEur: decimal.RequireFromString("109.90")},
		{ID: 12, Kind: model.ItemTypeCompact, Name: "NVIDIA Jetson Orin Nano Super Developer Kit", Brand: "NVIDIA", Specs: "8GB, 67 TOPS", PriceEur: decimal.RequireFromString("259.00")},
		{ID: 13, Kind: model.ItemTypeGPU, Name: "AMD Radeon RX 7900 XTX 24GB", Brand: "AMD", Specs: "24GB GDDR6, 355W", PriceEur: decimal.RequireFromString("899.00")},
	}

	builds := []model.Build{
		{ID: 1, ProfileKey: "starter-llm", Name: "Local LLM Starter", TargetModel: "Llama 3.1 8B", CPUName: "Intel Core i7-14700K", GPUName: "NVIDIA GeForce RTX 4070 Super 12GB", RAMGB: 32, StorageGB: 1000, EstimatedPriceEur: decimal.RequireFromString("1499.00"), BestFor: "Chat assistants and coding models up to 13B"},
		{ID: 2, ProfileKey: "pro-llm", Name: "Workstation 70B", TargetModel: "Llama 3.1 70B (4-bit)", CPUName: "AMD Ryzen 9 7950X", GPUName: "NVIDIA GeForce RTX 4090 24GB", RAMGB: 128, StorageGB: 2000, EstimatedPriceEur: decimal.RequireFromString("3899.00"), BestFor: "Large quantized models and fine-tuning"},
		{ID: 3, ProfileKey: "image-gen", Name: "Diffusion Studio", TargetModel: "SDXL / Flux", CPUName: "AMD Ryzen 9 7950X", GPUName: "NVIDIA GeForce RTX 4080 Super 16GB", RAMGB: 64, StorageGB: 2000, EstimatedPriceEur: decimal.RequireFromString("2649.50"), BestFor: "Image generation and upscaling"},
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&components).Error; err != nil {
			return fmt.Errorf("seed components: %w", err)
		}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&builds).Error; err != nil {
			return fmt.Errorf("seed builds: %w", err)
		}
		return nil
	})
}

func (r *catalogRepoImpl) FindBuild(ctx context.Context, id uint) (*model.Build, error) {
	var build model.Build
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&build).Error

	if err != nil {
		return nil, err
	}

	return &build, nil
}

func (r *catalogRepoImpl) FindComponent(ctx context.Context, kind model.ItemType, id uint) (*model.Component, error) {
	var component model.Component
	err := r.db.WithContext(ctx).
		Where("id = ? AND kind = ?", id, kind).
		First(&component).Error

	if err != nil {
		return nil, err
	}

	return &component, nil
}

func (r *catalogRepoImpl) ListBuilds(ctx context.Context) ([]*model.Build, error) {
	var builds []*model.Build
	err := r.db.WithContext(ctx).
		Order("profile_key ASC, estimated_price_eur ASC").
		Find(&builds).
		Error

	if err != nil {
		return nil, err
	}

	return builds, nil
}

func (r *catalogRepoImpl) ListComponents(ctx context.Context, kind model.ItemType) ([]*model.Component, error) {
	var components []*model.Component
	err := r.db.WithContext(ctx).
		Where("kind = ?", kind).
		Order("price_eur ASC").
		Find(&components).
		Error

	if err != nil {
		return nil, err
	}

	return components, nil
}
