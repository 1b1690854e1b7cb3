// Package docs holds the OpenAPI description served under /swagger.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/feedback": {
            "post": {
                "description": "Validates and stores one feedback entry",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["feedback"],
                "summary": "Submit feedback",
                "parameters": [
                    {
                        "type": "string",
                        "description": "Form identifier",
                        "name": "X-Form-ID",
                        "in": "header"
                    },
                    {
                        "description": "Feedback payload",
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/docs.FeedbackRequest"}
                    }
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/docs.SubmitFeedbackResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/docs.ErrorResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/docs.ErrorResponse"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/docs.ErrorResponse"}}
                }
            }
        },
        "/feedback/latest": {
            "get": {
                "description": "Returns the most recent feedback entry, or empty/unavailable",
                "produces": ["application/json"],
                "tags": ["feedback"],
                "summary": "Latest feedback",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/docs.LatestFeedbackResponse"}}
                }
            }
        }
    },
    "definitions": {
        "docs.ErrorResponse": {
            "type": "object",
            "properties": {
                "code": {"type": "string", "example": "invalid_email"},
                "details": {"type": "string"},
                "message": {"type": "string", "example": "Please enter a valid email address"},
                "type": {"type": "string", "example": "VALIDATION_ERROR"}
            }
        },
        "docs.FeedbackRequest": {
            "type": "object",
            "properties": {
                "category": {"type": "string", "example": "UI"},
                "email": {"type": "string", "example": "ada@example.com"},
                "message": {"type": "string", "example": "The new dashboard is great"},
                "name": {"type": "string", "example": "Ada Lovelace"},
                "rating": {"type": "integer", "example": 5}
            }
        },
        "docs.FeedbackResponse": {
            "type": "object",
            "properties": {
                "category": {"type": "string", "example": "UI"},
                "createdAt": {"type": "string", "example": "2025-06-01T10:30:00.123456Z"},
                "email": {"type": "string", "example": "ada@example.com"},
                "id": {"type": "string", "example": "0190a1b2-0000-7000-8000-000000000001"},
                "message": {"type": "string", "example": "The new dashboard is great"},
                "name": {"type": "string", "example": "Ada Lovelace"},
                "rating": {"type": "integer", "example": 5}
            }
        },
        "docs.LatestFeedbackResponse": {
            "type": "object",
            "properties": {
                "feedback": {"$ref": "#/definitions/docs.FeedbackResponse"},
                "status": {"type": "string", "example": "present"},
                "version": {"type": "integer", "example": 3}
            }
        },
        "docs.SubmitFeedbackResponse": {
            "type": "object",
            "properties": {
                "feedback": {"$ref": "#/definitions/docs.FeedbackResponse"},
                "status": {"type": "string", "example": "Feedback submitted successfully"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/v1",
	Schemes:          []string{},
	Title:            "Feedback Hub API",
	Description:      "Collects product feedback and serves the most recent entry.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
