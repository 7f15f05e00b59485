package models

// APIResponse is the envelope every admin endpoint answers with.
type APIResponse struct {
	Status bool        `json:"status"`
	Msg    string      `json:"msg"`
	Obj    interface{} `json:"obj"`
}

// PaginatedResponse wraps list results with pagination info.
type PaginatedResponse struct {
	Data       interface{} `json:"data"`
	Total      int64       `json:"total"`
	Page       int         `json:"page"`
	Limit      int         `json:"limit"`
	TotalPages int         `json:"total_pages"`
}

// SettingsUpdateRequest is the body of POST /api/checkout/settings.
type SettingsUpdateRequest struct {
	Enabled    *bool  `json:"enabled"`
	TargetTime string `json:"target_time"`
}
