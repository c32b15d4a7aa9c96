package identity

import (
	"context"
	"fmt"
	"strings"

	"github.com/aurelhart/scoreline-backend/internal/catalog"
	"github.com/aurelhart/scoreline-backend/pkg/logger"
	"github.com/google/uuid"
)

// UnknownItemTitle labels purchases whose product could not be determined
// from the event or the catalog.
const UnknownItemTitle = "Unknown item"

// ProductIdentity is the resolved description of what was purchased.
// Title is always non-empty. CatalogID is synthetic unless the catalog
// matched, in which case AssetReference may point at the deliverable file.
type ProductIdentity struct {
	CatalogID      string
	Title          string
	AssetReference string
	FromCatalog    bool
}

// Input carries the event fields the cascade inspects.
type Input struct {
	RawMetadata         map[string]string
	LineItemDescription string
}

type catalogLookup interface {
	GetBySlug(ctx context.Context, slug string) (*catalog.Product, error)
}

// Resolver maps event metadata to a canonical product identity.
type Resolver struct {
	catalog catalogLookup
	logg    *logger.Logger
}

// NewResolver constructs the resolver. The catalog may be nil when no
// catalog backend is configured; the cascade then skips straight to the
// metadata strategies.
func NewResolver(cat catalogLookup, logg *logger.Logger) (*Resolver, error) {
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Resolver{catalog: cat, logg: logg}, nil
}

// Resolve runs the strategy cascade, first match wins:
//
//  1. metadata slug with a catalog hit
//  2. metadata title
//  3. line-item description
//  4. generic label
//
// Catalog failures and misses fall through to the next strategy. Resolve
// never fails; the returned identity always has a non-empty title.
func (r *Resolver) Resolve(ctx context.Context, input Input) ProductIdentity {
	if slug := metadataValue(input.RawMetadata, "slug"); slug != "" {
		if identity, ok := r.resolveBySlug(ctx, slug); ok {
			return identity
		}
	}

	if title := metadataValue(input.RawMetadata, "title"); title != "" {
		return syntheticIdentity(title)
	}

	if desc := strings.TrimSpace(input.LineItemDescription); desc != "" {
		return syntheticIdentity(desc)
	}

	r.logg.Warn(ctx, "no product identity source in event, using generic label")
	return syntheticIdentity(UnknownItemTitle)
}

func (r *Resolver) resolveBySlug(ctx context.Context, slug string) (ProductIdentity, bool) {
	if r.catalog == nil {
		return ProductIdentity{}, false
	}

	product, err := r.catalog.GetBySlug(ctx, slug)
	if err != nil {
		r.logg.Warn(r.logg.WithField(ctx, "slug", slug), "catalog lookup failed: "+err.Error())
		return ProductIdentity{}, false
	}
	if product == nil {
		r.logg.Info(r.logg.WithField(ctx, "slug", slug), "no catalog match for slug")
		return ProductIdentity{}, false
	}

	title := strings.TrimSpace(product.Title)
	if title == "" {
		title = UnknownItemTitle
	}
	return ProductIdentity{
		CatalogID:      product.ID,
		Title:          title,
		AssetReference: product.AssetURL,
		FromCatalog:    true,
	}, true
}

func syntheticIdentity(title string) ProductIdentity {
	return ProductIdentity{
		CatalogID: uuid.NewString(),
		Title:     strings.TrimSpace(title),
	}
}

// metadataValue finds the first metadata entry whose key matches name
// case-insensitively and has a non-blank value.
func metadataValue(metadata map[string]string, name string) string {
	for key, value := range metadata {
		if strings.EqualFold(strings.TrimSpace(key), name) {
			if trimmed := strings.TrimSpace(value); trimmed != "" {
				return trimmed
			}
		}
	}
	return ""
}
