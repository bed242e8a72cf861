package domain

// Queue identifies one of the fixed domain queues.
type Queue string

const (
	QueueImport   Queue = "import"
	QueueReport   Queue = "report"
	QueueCampaign Queue = "campaign"
)

// Queues lists every domain queue in registration order.
var Queues = []Queue{QueueImport, QueueReport, QueueCampaign}

// JobType selects the handler for a job within its domain.
type JobType string

// Import domain job types
const (
	TypeProcessFile      JobType = "process_file"
	TypeValidateContacts JobType = "validate_contacts"
	TypeInsertBatch      JobType = "insert_batch"
)

// Report domain job types
const (
	TypeCampaignReport  JobType = "campaign_report"
	TypeAnalyticsReport JobType = "analytics_report"
	TypeExportContacts  JobType = "export_contacts"
	TypeExportMessages  JobType = "export_messages"
	TypeUsageReport     JobType = "usage_report"
)

// Campaign domain job types
const (
	TypeDispatchCampaign JobType = "dispatch_campaign"
	TypeSendTestMessage  JobType = "send_test_message"
)

// Batch processing constants shared by every batching job type
const (
	// BatchSize is the fixed chunk size for bulk persistence calls.
	BatchSize = 100

	// MaxErrorSample caps how many error entries of one origin
	// (validation or insertion) are retained in a job result. Counts
	// stay exact even when the sample is truncated.
	MaxErrorSample = 10
)
