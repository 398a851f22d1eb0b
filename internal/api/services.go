package api

import (
	"github.com/listenupapp/bulkmeta/internal/search"
	"github.com/listenupapp/bulkmeta/internal/service"
)

// Services groups the business services used by the API server.
type Services struct {
	Auth    *service.AuthService
	Bulk    *service.BulkService
	Content *service.ContentService
	Runs    *service.RunService
	Search  *search.SearchIndex
}
