package deployment

import (
	"context"
	"fmt"
)

// Seed deploys the side's asset contract, or reuses ExistingAsset, and mints
// AssetsAmount promotional assets into it. Unlike Execute it mints into reused contracts too.
func (o *Orchestrator) Seed(ctx context.Context, cfg SideConfig) (SideResult, error) {
	var result SideResult

	c, err := o.openChain(ctx, cfg)
	if err != nil {
		return result, err
	}

	asset, err := o.deployAssetStep(ctx, c, cfg, stepSeedAsset)
	if err != nil {
		return result, err
	}
	result.Asset, result.AssetBlock, result.AssetDeployed = asset.Address, asset.Block, asset.Address != cfg.ExistingAsset

	if result.Minted, err = o.mint(ctx, c, cfg.Asset, asset.Address, cfg.AssetsAmount, stepSeedPrefix); err != nil {
		return result, fmt.Errorf("minted %d of %d assets: %w", result.Minted, cfg.AssetsAmount, err)
	}

	c.logger.With("asset", result.Asset.Hex()).With("minted", result.Minted).Info("asset seeding completed")

	return result, nil
}
