package domain

import "time"

// Import domain payloads and results

type ProcessFilePayload struct {
	ImportID     string            `json:"import_id"`
	UserID       string            `json:"user_id"`
	TenantID     string            `json:"tenant_id"`
	FilePath     string            `json:"file_path"`
	FileType     string            `json:"file_type"`
	FieldMapping map[string]string `json:"field_mapping"`
}

type ProcessFileResult struct {
	ImportID      string     `json:"import_id"`
	TotalParsed   int        `json:"total_parsed"`
	TotalValid    int        `json:"total_valid"`
	TotalInvalid  int        `json:"total_invalid"`
	TotalInserted int        `json:"total_inserted"`
	TotalFailed   int        `json:"total_failed"`
	Errors        []JobError `json:"errors"`
}

type ValidateContactsPayload struct {
	Contacts     []Contact         `json:"contacts"`
	FieldMapping map[string]string `json:"field_mapping"`
}

type ValidateContactsResult struct {
	Valid   []Contact  `json:"valid"`
	Invalid []Contact  `json:"invalid"`
	Errors  []JobError `json:"errors"`
}

type InsertBatchPayload struct {
	Contacts []Contact `json:"contacts"`
	TenantID string    `json:"tenant_id"`
	UserID   string    `json:"user_id"`
}

type InsertBatchResult struct {
	Inserted int        `json:"inserted"`
	Failed   int        `json:"failed"`
	Errors   []JobError `json:"errors"`
}

// Report domain payloads and results

type CampaignReportPayload struct {
	ReportID   string `json:"report_id"`
	UserID     string `json:"user_id"`
	TenantID   string `json:"tenant_id"`
	CampaignID string `json:"campaign_id"`
	Format     string `json:"format"`
}

type CampaignStats struct {
	TotalMessages int     `json:"total_messages"`
	Delivered     int     `json:"delivered"`
	Failed        int     `json:"failed"`
	DeliveryRate  float64 `json:"delivery_rate"`
}

type CampaignReportResult struct {
	ReportID    string        `json:"report_id"`
	CampaignID  string        `json:"campaign_id"`
	Format      string        `json:"format"`
	Path        string        `json:"path"`
	GeneratedAt time.Time     `json:"generated_at"`
	Stats       CampaignStats `json:"stats"`
}

type AnalyticsReportPayload struct {
	ReportID string `json:"report_id"`
	TenantID string `json:"tenant_id"`
	DateFrom string `json:"date_from"`
	DateTo   string `json:"date_to"`
	Format   string `json:"format"`
}

type AnalyticsSummary struct {
	MessagesSent      int     `json:"messages_sent"`
	MessagesDelivered int     `json:"messages_delivered"`
	CampaignsRun      int     `json:"campaigns_run"`
	NewContacts       int     `json:"new_contacts"`
	DeliveryRate      float64 `json:"delivery_rate"`
}

type AnalyticsReportResult struct {
	ReportID string           `json:"report_id"`
	Format   string           `json:"format"`
	Path     string           `json:"path"`
	Period   string           `json:"period"`
	Summary  AnalyticsSummary `json:"summary"`
}

type ExportPayload struct {
	ExportID string            `json:"export_id"`
	UserID   string            `json:"user_id"`
	TenantID string            `json:"tenant_id"`
	Filters  map[string]string `json:"filters"`
	Format   string            `json:"format"`
}

type ExportResult struct {
	ExportID     string    `json:"export_id"`
	Format       string    `json:"format"`
	Path         string    `json:"path"`
	TotalRecords int       `json:"total_records"`
	GeneratedAt  time.Time `json:"generated_at"`
}

type UsageReportPayload struct {
	ReportID string `json:"report_id"`
	TenantID string `json:"tenant_id"`
	Period   string `json:"period"`
}

type UsageTotals struct {
	Messages  int `json:"messages"`
	Campaigns int `json:"campaigns"`
	Contacts  int `json:"contacts"`
}

type UsageReportResult struct {
	ReportID string      `json:"report_id"`
	Period   string      `json:"period"`
	Usage    UsageTotals `json:"usage"`
}

// Campaign domain payloads and results

type DispatchCampaignPayload struct {
	CampaignID string `json:"campaign_id"`
	TenantID   string `json:"tenant_id"`
	UserID     string `json:"user_id"`
	TemplateID string `json:"template_id"`
}

type DispatchCampaignResult struct {
	CampaignID      string     `json:"campaign_id"`
	TotalRecipients int        `json:"total_recipients"`
	Sent            int        `json:"sent"`
	Failed          int        `json:"failed"`
	Errors          []JobError `json:"errors"`
}

type SendTestMessagePayload struct {
	CampaignID string `json:"campaign_id"`
	TenantID   string `json:"tenant_id"`
	UserID     string `json:"user_id"`
	Phone      string `json:"phone"`
}

type SendTestMessageResult struct {
	CampaignID string `json:"campaign_id"`
	To         string `json:"to"`
	MessageID  string `json:"message_id"`
}
