package scope

// Model is a named resource model of the storage API. Tenant-scoped models
// are enumerated here so that forgetting a field mapping for a new model is a
// visible code change in TenantField, not a silent runtime pass-through.
type Model string

// Tenant-scoped models.
const (
	ModelDataset             Model = "Dataset"
	ModelMarketplaceOffering Model = "MarketplaceOffering"
	ModelTenantMembership    Model = "TenantMembership"
	ModelWebinar             Model = "Webinar"
	ModelConnector           Model = "Connector"
	ModelAIAgent             Model = "AIAgent"
	ModelProvisioningJob     Model = "TenantProvisioningJob"
	ModelProvisioningEvent   Model = "TenantProvisioningEvent"
	ModelRuntimeConfig       Model = "TenantRuntimeConfig"
	ModelAuditLog            Model = "TenantAuditLog"
)

// TenantField returns the tenant-identifying field of a model. Models not
// listed here are shared/global resources and pass through unscoped.
func TenantField(m Model) (string, bool) {
	switch m {
	case ModelDataset,
		ModelMarketplaceOffering,
		ModelTenantMembership,
		ModelWebinar,
		ModelConnector,
		ModelAIAgent,
		ModelProvisioningJob,
		ModelProvisioningEvent,
		ModelRuntimeConfig,
		ModelAuditLog:
		return "tenant_id", true
	}
	return "", false
}

// TenantScopedModels returns every model with a tenant field mapping.
func TenantScopedModels() []Model {
	return []Model{
		ModelDataset,
		ModelMarketplaceOffering,
		ModelTenantMembership,
		ModelWebinar,
		ModelConnector,
		ModelAIAgent,
		ModelProvisioningJob,
		ModelProvisioningEvent,
		ModelRuntimeConfig,
		ModelAuditLog,
	}
}
