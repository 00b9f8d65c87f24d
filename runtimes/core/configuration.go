package core

import "context"

// ConfigurationItem is one configuration entry.
type ConfigurationItem struct {
	Key      string   `json:"key"`
	Value    string   `json:"value"`
	Group    string   `json:"group,omitempty"`
	Label    string   `json:"label,omitempty"`
	Version  string   `json:"version,omitempty"`
	Tags     Metadata `json:"tags,omitempty"`
	Metadata Metadata `json:"metadata,omitempty"`
}

// ConfigurationRequest selects configuration items from a store. Empty Keys
// selects every item visible to AppID under the given group and label.
type ConfigurationRequest struct {
	StoreName string
	AppID     string
	Group     string
	Label     string
	Keys      []string
	Metadata  Metadata
}

// SaveConfigurationRequest writes configuration items.
type SaveConfigurationRequest struct {
	StoreName string
	AppID     string
	Items     []ConfigurationItem
	Metadata  Metadata
}

// ConfigurationUpdate is pushed to subscribers when watched items change.
type ConfigurationUpdate struct {
	StoreName string              `json:"store_name"`
	AppID     string              `json:"app_id"`
	Items     []ConfigurationItem `json:"items"`
}

// Configuration is the configuration management capability.
type Configuration interface {
	GetConfiguration(ctx context.Context, storeName, appID string, keys []string) ([]ConfigurationItem, error)
	GetConfigurationWithRequest(ctx context.Context, req *ConfigurationRequest) ([]ConfigurationItem, error)
	SaveConfiguration(ctx context.Context, req *SaveConfigurationRequest) error
	DeleteConfiguration(ctx context.Context, req *ConfigurationRequest) error

	// SubscribeConfiguration streams updates for the selected items until
	// ctx is cancelled. The returned channel is closed when the
	// subscription ends.
	SubscribeConfiguration(ctx context.Context, req *ConfigurationRequest) (<-chan ConfigurationUpdate, error)
	UnsubscribeConfiguration(ctx context.Context, storeName, appID string) error
}
