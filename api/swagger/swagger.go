package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "CoachDesk API",
        "description": "Lesson reminders, acknowledgments, and time-swap coordination",
        "version": "0.1.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Reminders", "description": "Lesson reminder dispatch"},
        {"name": "Messages", "description": "In-app message acknowledgment"},
        {"name": "Swaps", "description": "Time-swap request decisions"}
    ],
    "paths": {
        "/health": {
            "get": {
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/ready": {
            "get": {
                "summary": "Readiness check",
                "responses": {
                    "200": {"description": "Ready"},
                    "503": {"description": "Degraded"}
                }
            }
        },
        "/reminders/sweep": {
            "post": {
                "tags": ["Reminders"],
                "summary": "Run a reminder sweep now",
                "parameters": [
                    {"name": "payload", "in": "body", "required": false, "schema": {"$ref": "#/definitions/SweepRequest"}}
                ],
                "responses": {
                    "200": {"description": "Dispatch report", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid mode or payload"},
                    "401": {"description": "Missing or invalid token"},
                    "403": {"description": "Caller is not a coach or admin"}
                }
            }
        },
        "/messages/{id}/acknowledge": {
            "post": {
                "tags": ["Messages"],
                "summary": "Acknowledge a message",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": false, "schema": {"$ref": "#/definitions/AcknowledgeRequest"}}
                ],
                "responses": {
                    "200": {"description": "Acknowledgment result", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Swap message without a decision"},
                    "403": {"description": "Caller is not a conversation participant"},
                    "404": {"description": "Message not found"},
                    "409": {"description": "Message already acknowledged"}
                }
            }
        },
        "/swap-requests/{id}/decision": {
            "post": {
                "tags": ["Swaps"],
                "summary": "Apply a swap request decision",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SwapDecisionRequest"}}
                ],
                "responses": {
                    "200": {"description": "Decision result", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid decision"},
                    "404": {"description": "Swap request not found"},
                    "409": {"description": "Swap request already processed"}
                }
            }
        }
    },
    "definitions": {
        "SweepRequest": {
            "type": "object",
            "properties": {
                "mode": {"type": "string", "enum": ["rolling-24h", "calendar-tomorrow"]},
                "targetClientId": {"type": "string"}
            }
        },
        "AcknowledgeRequest": {
            "type": "object",
            "properties": {
                "decision": {"type": "string", "enum": ["APPROVED", "DECLINED"]}
            }
        },
        "SwapDecisionRequest": {
            "type": "object",
            "properties": {
                "decision": {"type": "string", "enum": ["APPROVED", "DECLINED"]}
            },
            "required": ["decision"]
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "meta": {"type": "object"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
