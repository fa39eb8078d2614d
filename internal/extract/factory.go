package extract

import (
	"fmt"

	"claimlens/internal/config"
	"claimlens/internal/port"
)

// ProviderFactory creates a FieldExtractor from the chain config and one
// provider's config.
type ProviderFactory func(cfg *config.ExtractorConfig, pcfg *config.ExtractorProviderConfig) (port.FieldExtractor, error)

// registry of extraction provider factories, populated by init() in each
// provider package or explicitly via RegisterProvider.
var providers = map[string]ProviderFactory{}

// RegisterProvider registers an extraction provider factory by name.
func RegisterProvider(name string, factory ProviderFactory) {
	providers[name] = factory
}

// NewProvider creates a FieldExtractor using the registered factory for
// the provider named in pcfg.
func NewProvider(cfg *config.ExtractorConfig, pcfg *config.ExtractorProviderConfig) (port.FieldExtractor, error) {
	factory, ok := providers[pcfg.Provider]
	if !ok {
		return nil, fmt.Errorf("unknown extraction provider: %s", pcfg.Provider)
	}
	return factory(cfg, pcfg)
}
