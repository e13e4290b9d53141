// Package docs registers the OpenAPI document served by the swagger build.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/health": {
            "get": {
                "produces": ["application/json"],
                "tags": ["health"],
                "summary": "Service health",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.HealthResponse"}},
                    "503": {"description": "No engine", "schema": {"$ref": "#/definitions/types.HealthResponse"}}
                }
            }
        },
        "/ocr/page": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["ocr"],
                "summary": "Recognize a full page",
                "parameters": [{"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/types.OCRRequest"}}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.OCRResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "429": {"description": "Too Many Requests", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}
                }
            }
        },
        "/ocr/figure": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["ocr"],
                "summary": "Recognize a figure or region",
                "parameters": [{"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/types.OCRRequest"}}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.OCRResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "429": {"description": "Too Many Requests", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}
                }
            }
        },
        "/status": {
            "get": {
                "produces": ["application/json"],
                "tags": ["health"],
                "summary": "Engine status",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/types.StatusResponse"}}}
            }
        }
    },
    "definitions": {
        "types.OCRRequest": {
            "type": "object",
            "required": ["image"],
            "properties": {
                "image": {"type": "string"},
                "mode": {"type": "string", "example": "Base"},
                "prompt": {"type": "string"},
                "page_id": {"type": "integer", "example": 0},
                "bbox": {"type": "array", "items": {"type": "number"}}
            }
        },
        "types.OCRBlock": {
            "type": "object",
            "properties": {
                "id": {"type": "string", "example": "block_1_3f9a2c1d"},
                "type": {"type": "string", "example": "heading"},
                "content": {"type": "string"},
                "bbox": {"type": "array", "items": {"type": "number"}},
                "confidence": {"type": "number", "example": 0.95},
                "metadata": {"type": "object"}
            }
        },
        "types.OCRResponse": {
            "type": "object",
            "properties": {
                "markdown": {"type": "string"},
                "blocks": {"type": "array", "items": {"$ref": "#/definitions/types.OCRBlock"}},
                "page_id": {"type": "integer"},
                "vision_tokens": {"type": "integer", "example": 256},
                "text_tokens": {"type": "integer"},
                "mode": {"type": "string", "example": "Base"}
            }
        },
        "types.HealthResponse": {
            "type": "object",
            "properties": {
                "status": {"type": "string", "example": "healthy"},
                "vllm_available": {"type": "boolean"},
                "cuda_available": {"type": "boolean"},
                "model_loaded": {"type": "boolean"},
                "backend": {"type": "string", "example": "vllm"},
                "model": {"type": "string"}
            }
        },
        "types.StatusResponse": {
            "type": "object",
            "properties": {
                "state": {"type": "string"},
                "backend": {"type": "string"},
                "model": {"type": "string"},
                "max_concurrency": {"type": "integer"},
                "inflight": {"type": "integer"},
                "queue_len": {"type": "integer"},
                "max_queue_depth": {"type": "integer"},
                "requests_total": {"type": "integer"},
                "failures_total": {"type": "integer"},
                "last_error": {"type": "string"},
                "uptime_seconds": {"type": "integer"},
                "server_time_unix": {"type": "integer"}
            }
        },
        "types.ErrorResponse": {
            "type": "object",
            "properties": {
                "error": {"type": "string"},
                "code": {"type": "integer", "example": 400}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{"http"},
	Title:            "ocrd API",
	Description:      "DeepSeek-OCR microservice: page and figure recognition to markdown and typed blocks.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
