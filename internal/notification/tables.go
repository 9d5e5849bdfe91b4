package notification

// Event names are a versioned contract with the backend: a new backend
// event type must be added to exactly one of the two tables below to be
// classified. Unlisted names are still delivered, tagged Unknown.

// Fixed event names, matched by exact string equality.
const (
	EventImportOrderCreated     = "import-order-created"
	EventImportOrderAssigned    = "import-order-assigned"
	EventImportOrderCounted     = "import-order-counted"
	EventImportOrderConfirmed   = "import-order-confirmed"
	EventImportOrderCancelled   = "import-order-cancelled"
	EventExportRequestCreated   = "export-request-created"
	EventExportRequestAssigned  = "export-request-assigned"
	EventExportRequestConfirmed = "export-request-confirmed"
	EventExportRequestCancelled = "export-request-cancelled"
	EventStockCheckAssigned     = "stock-check-assigned"
	EventStockCheckCompleted    = "stock-check-completed"
)

// Prefix event names, delivered on the wire as "<prefix>-<entityID>".
// Prefixes must stay mutually non-overlapping; a table test guards this.
const (
	PrefixImportOrderReadyToStore  = "import-order-ready-to-store"
	PrefixExportRequestReadyToPick = "export-request-ready-to-pick"
	PrefixStockCheckReadyToCount   = "stock-check-ready-to-count"
	PrefixInventoryItemUpdated     = "inventory-item-updated"
)

// FixedEvents lists every exact-match event name.
func FixedEvents() []string {
	return []string{
		EventImportOrderCreated,
		EventImportOrderAssigned,
		EventImportOrderCounted,
		EventImportOrderConfirmed,
		EventImportOrderCancelled,
		EventExportRequestCreated,
		EventExportRequestAssigned,
		EventExportRequestConfirmed,
		EventExportRequestCancelled,
		EventStockCheckAssigned,
		EventStockCheckCompleted,
	}
}

// PrefixEvents lists every entity-parameterized event name prefix.
func PrefixEvents() []string {
	return []string{
		PrefixImportOrderReadyToStore,
		PrefixExportRequestReadyToPick,
		PrefixStockCheckReadyToCount,
		PrefixInventoryItemUpdated,
	}
}
