package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "School Finance API",
        "description": "Fee structures, payments, payroll ledger and bulk finance operations",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Authentication", "description": "Login, token refresh, password management"},
        {"name": "Fees", "description": "Fee structures, records and payments"},
        {"name": "Payroll", "description": "Salary ledger and batch processing"},
        {"name": "Bulk", "description": "Bulk account and fee operations"},
        {"name": "Dashboard", "description": "Finance dashboard"},
        {"name": "Statements", "description": "Asynchronous statement exports"}
    ],
    "paths": {
        "/auth/login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Authenticate user",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials"}
                }
            }
        },
        "/auth/refresh": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Exchange refresh token for a new token pair",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Expired or revoked token"}
                }
            }
        },
        "/auth/logout": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Revoke refresh token",
                "responses": {
                    "204": {"description": "Logged out"}
                }
            }
        },
        "/auth/change-password": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Change password and revoke sessions",
                "responses": {
                    "204": {"description": "Changed"}
                }
            }
        },
        "/auth/me": {
            "get": {
                "tags": ["Authentication"],
                "summary": "Current user info",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/fees/structures": {
            "get": {
                "tags": ["Fees"],
                "summary": "Active fee structure for a class/year",
                "parameters": [
                    {"name": "classId", "in": "query", "type": "string", "required": true},
                    {"name": "academicYear", "in": "query", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "No active structure"}
                }
            },
            "post": {
                "tags": ["Fees"],
                "summary": "Create or replace a class fee structure",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpsertFeeStructureRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation failed"}
                }
            }
        },
        "/fees/records": {
            "get": {
                "tags": ["Fees"],
                "summary": "List fee records",
                "parameters": [
                    {"name": "classId", "in": "query", "type": "string"},
                    {"name": "studentId", "in": "query", "type": "string"},
                    {"name": "academicYear", "in": "query", "type": "string"},
                    {"name": "status", "in": "query", "type": "string", "enum": ["unpaid", "partial", "paid"]},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "pageSize", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/fees/records/{id}": {
            "get": {
                "tags": ["Fees"],
                "summary": "Fee record detail with payments",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found"}
                }
            }
        },
        "/fees/records/{id}/payments": {
            "post": {
                "tags": ["Fees"],
                "summary": "Apply a payment against a fee record",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/PayFeeRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid amount or method"},
                    "409": {"description": "Fee already settled"}
                }
            }
        },
        "/fees/classes/{id}/summary": {
            "get": {
                "tags": ["Fees"],
                "summary": "Reconciled fee summary for a class",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true},
                    {"name": "academicYear", "in": "query", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/payroll/summary": {
            "get": {
                "tags": ["Payroll"],
                "summary": "Payroll ledger aggregates",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/payroll/salaries": {
            "get": {
                "tags": ["Payroll"],
                "summary": "List active salary records",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Payroll"],
                "summary": "Add a staff salary record",
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation failed"}
                }
            }
        },
        "/payroll/salaries/{id}": {
            "put": {
                "tags": ["Payroll"],
                "summary": "Update a monthly salary",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Out of bounds"}
                }
            }
        },
        "/payroll/salaries/{id}/process": {
            "post": {
                "tags": ["Payroll"],
                "summary": "Mark one salary as paid",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Already paid"}
                }
            }
        },
        "/payroll/salaries/{id}/undo": {
            "post": {
                "tags": ["Payroll"],
                "summary": "Revert one salary to pending",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Already pending"}
                }
            }
        },
        "/payroll/process": {
            "post": {
                "tags": ["Payroll"],
                "summary": "Mark every pending salary as paid",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/payroll/undo": {
            "post": {
                "tags": ["Payroll"],
                "summary": "Revert every paid salary to pending",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/bulk/students/activate": {
            "post": {
                "tags": ["Bulk"],
                "summary": "Activate student accounts in bulk",
                "responses": {
                    "200": {"description": "Per-item outcome", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/bulk/fees/generate": {
            "post": {
                "tags": ["Bulk"],
                "summary": "Generate fee records for every class in a year",
                "responses": {
                    "200": {"description": "Per-item outcome", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/bulk/users/active": {
            "post": {
                "tags": ["Bulk"],
                "summary": "Activate or deactivate user accounts in bulk",
                "responses": {
                    "200": {"description": "Per-item outcome", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/dashboard/finance": {
            "get": {
                "tags": ["Dashboard"],
                "summary": "Finance dashboard",
                "parameters": [
                    {"name": "academicYear", "in": "query", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/statements": {
            "get": {
                "tags": ["Statements"],
                "summary": "List the caller's statement jobs",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Statements"],
                "summary": "Queue a statement export",
                "responses": {
                    "202": {"description": "Accepted", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "503": {"description": "Queue full"}
                }
            }
        },
        "/statements/{id}": {
            "get": {
                "tags": ["Statements"],
                "summary": "Statement job status",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found"}
                }
            }
        },
        "/statements/download/{token}": {
            "get": {
                "tags": ["Statements"],
                "summary": "Download a finished statement via signed token",
                "produces": ["application/octet-stream"],
                "parameters": [
                    {"name": "token", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "File"},
                    "403": {"description": "Invalid or expired token"},
                    "409": {"description": "Statement not ready"}
                }
            }
        }
    },
    "definitions": {
        "LoginRequest": {
            "type": "object",
            "required": ["email", "password"],
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            }
        },
        "UpsertFeeStructureRequest": {
            "type": "object",
            "required": ["class_id", "academic_year", "due_date"],
            "properties": {
                "class_id": {"type": "string"},
                "academic_year": {"type": "string"},
                "tuition_fee": {"type": "number"},
                "extracurricular": {"type": "object", "additionalProperties": {"type": "number"}},
                "miscellaneous": {"type": "object", "additionalProperties": {"type": "number"}},
                "discount": {"type": "number"},
                "due_date": {"type": "string", "format": "date-time"}
            }
        },
        "PayFeeRequest": {
            "type": "object",
            "required": ["amount", "method"],
            "properties": {
                "amount": {"type": "number"},
                "method": {"type": "string", "enum": ["cash", "online", "bank_transfer", "cheque"]},
                "receipt_no": {"type": "string"}
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"},
                "fields": {"type": "object", "additionalProperties": {"type": "string"}}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "pagination": {"$ref": "#/definitions/Pagination"},
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
