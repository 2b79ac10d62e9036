package application

import (
	"github.com/wms-platform/scanwatch-service/internal/domain"
)

// LoginCommand carries credentials presented at either login endpoint.
type LoginCommand struct {
	Username string `json:"username" form:"username" binding:"required"`
	Password string `json:"password" form:"password" binding:"required"`
}

// SessionDTO is the response to a successful login.
type SessionDTO struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	Identity    string `json:"identity"`
}

// IdentityDTO describes the authenticated caller.
type IdentityDTO struct {
	Identity   string   `json:"identity"`
	Warehouses []string `json:"warehouses"`
}

// BrowseQuery identifies one browse page request.
type BrowseQuery struct {
	Warehouse     string
	Page          int
	PageSize      int
	ShowCancelled bool
}

// SyncResultDTO summarizes one warehouse sync attempt.
type SyncResultDTO struct {
	Warehouse   string `json:"warehouse"`
	Outcome     string `json:"outcome"`
	RecordCount int    `json:"record_count"`
	Error       string `json:"error,omitempty"`
}

// toDomainQuery converts a browse query into the fetcher's page query,
// applying browse defaults and caps.
func (q BrowseQuery) toDomainQuery() domain.PageQuery {
	page := q.Page
	if page < 1 {
		page = 1
	}
	pageSize := q.PageSize
	if pageSize < 1 {
		pageSize = domain.DefaultPageSize
	}
	if pageSize > domain.MaxBrowsePageSize {
		pageSize = domain.MaxBrowsePageSize
	}
	return domain.PageQuery{
		Warehouse:     q.Warehouse,
		Page:          page,
		PageSize:      pageSize,
		ShowCancelled: q.ShowCancelled,
	}
}
