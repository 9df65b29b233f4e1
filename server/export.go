package server

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/vitalvas/gantry/openapi"
	"github.com/vitalvas/gantry/typegen"
)

// OpenAPISpec generates the OpenAPI document for the routes this server
// would serve.
func (s *Server) OpenAPISpec() *openapi.Document {
	httpReg, _ := s.registries()
	return openapi.Generate(httpReg, s.cfg.OpenAPI)
}

// ExportOpenAPISpec writes the OpenAPI document to path. A .yaml or .yml
// extension selects YAML; anything else gets JSON, indented in development
// and compact otherwise.
func (s *Server) ExportOpenAPISpec(path string) error {
	doc := s.OpenAPISpec()

	var data []byte
	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = doc.YAML()
	default:
		if s.cfg.Development {
			data, err = doc.JSON()
		} else {
			data, err = json.Marshal(doc)
		}
	}
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// WebSocketTypes renders the TypeScript message types for the WebSocket
// routes this server would serve.
func (s *Server) WebSocketTypes() string {
	_, wsReg := s.registries()
	return typegen.Generate(wsReg, typegen.Options{})
}

// ExportWebSocketTypes writes the TypeScript message types to path.
func (s *Server) ExportWebSocketTypes(path string) error {
	return os.WriteFile(path, []byte(s.WebSocketTypes()), 0o644)
}
