// Package docs holds the Swagger document served on /swagger.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "F.I.R.E. Router",
        "description": "Ticket routing to managers: office location, eligibility filters, round-robin and nearest-office fallback",
        "version": "1.0"
    },
    "basePath": "/",
    "securityDefinitions": {
        "AdminKey": {
            "type": "apiKey",
            "in": "header",
            "name": "X-Admin-Key"
        }
    },
    "paths": {
        "/healthz": {
            "get": {
                "tags": [
                    "health"
                ],
                "summary": "Health check",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK"
                    }
                }
            }
        },
        "/api/offices": {
            "get": {
                "tags": [
                    "directory"
                ],
                "summary": "List offices",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK"
                    }
                }
            },
            "post": {
                "tags": [
                    "admin"
                ],
                "summary": "Upsert offices",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK"
                    },
                    "401": {
                        "description": "Invalid admin key"
                    }
                },
                "security": [
                    {
                        "AdminKey": []
                    }
                ],
                "parameters": [
                    {
                        "in": "body",
                        "name": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/handlers.OfficeBatchRequest"
                        }
                    }
                ]
            }
        },
        "/api/managers": {
            "get": {
                "tags": [
                    "directory"
                ],
                "summary": "List managers",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK"
                    }
                },
                "parameters": [
                    {
                        "in": "query",
                        "name": "office_id",
                        "type": "string"
                    },
                    {
                        "in": "query",
                        "name": "skill",
                        "type": "string"
                    }
                ]
            },
            "post": {
                "tags": [
                    "admin"
                ],
                "summary": "Upsert managers",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK"
                    },
                    "401": {
                        "description": "Invalid admin key"
                    }
                },
                "security": [
                    {
                        "AdminKey": []
                    }
                ],
                "parameters": [
                    {
                        "in": "body",
                        "name": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/handlers.ManagerBatchRequest"
                        }
                    }
                ]
            }
        },
        "/api/assignments": {
            "get": {
                "tags": [
                    "assignments"
                ],
                "summary": "List assignments",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK"
                    }
                },
                "parameters": [
                    {
                        "in": "query",
                        "name": "outcome",
                        "type": "string"
                    },
                    {
                        "in": "query",
                        "name": "office_id",
                        "type": "string"
                    },
                    {
                        "in": "query",
                        "name": "manager_id",
                        "type": "string"
                    },
                    {
                        "in": "query",
                        "name": "limit",
                        "type": "integer"
                    },
                    {
                        "in": "query",
                        "name": "offset",
                        "type": "integer"
                    }
                ]
            }
        },
        "/api/assignments/{ticket_id}": {
            "get": {
                "tags": [
                    "assignments"
                ],
                "summary": "Assignment for a ticket",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK"
                    }
                },
                "parameters": [
                    {
                        "in": "path",
                        "name": "ticket_id",
                        "required": true,
                        "type": "string"
                    }
                ]
            }
        },
        "/api/stats": {
            "get": {
                "tags": [
                    "assignments"
                ],
                "summary": "Routing quality stats",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK"
                    }
                }
            }
        },
        "/api/tickets": {
            "post": {
                "tags": [
                    "tickets"
                ],
                "summary": "Submit tickets",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK"
                    },
                    "401": {
                        "description": "Invalid admin key"
                    }
                },
                "security": [
                    {
                        "AdminKey": []
                    }
                ],
                "parameters": [
                    {
                        "in": "body",
                        "name": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/handlers.TicketBatchRequest"
                        }
                    }
                ]
            }
        },
        "/api/process": {
            "post": {
                "tags": [
                    "process"
                ],
                "summary": "Process pending tickets",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK"
                    },
                    "401": {
                        "description": "Invalid admin key"
                    }
                },
                "security": [
                    {
                        "AdminKey": []
                    }
                ]
            }
        },
        "/api/route": {
            "post": {
                "tags": [
                    "process"
                ],
                "summary": "Route one ticket",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK"
                    },
                    "401": {
                        "description": "Invalid admin key"
                    }
                },
                "security": [
                    {
                        "AdminKey": []
                    }
                ],
                "parameters": [
                    {
                        "in": "body",
                        "name": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/handlers.RouteRequest"
                        }
                    }
                ]
            }
        },
        "/api/debug/route": {
            "post": {
                "tags": [
                    "debug"
                ],
                "summary": "Dry-run routing",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK"
                    },
                    "401": {
                        "description": "Invalid admin key"
                    }
                },
                "security": [
                    {
                        "AdminKey": []
                    }
                ],
                "parameters": [
                    {
                        "in": "body",
                        "name": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/handlers.RouteRequest"
                        }
                    }
                ]
            }
        },
        "/api/admin/counter/reset": {
            "post": {
                "tags": [
                    "admin"
                ],
                "summary": "Reset the round-robin counter",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK"
                    },
                    "401": {
                        "description": "Invalid admin key"
                    }
                },
                "security": [
                    {
                        "AdminKey": []
                    }
                ]
            }
        },
        "/api/admin/workloads/restore": {
            "post": {
                "tags": [
                    "admin"
                ],
                "summary": "Restore baseline workloads",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK"
                    },
                    "401": {
                        "description": "Invalid admin key"
                    }
                },
                "security": [
                    {
                        "AdminKey": []
                    }
                ]
            }
        },
        "/api/admin/offices/geocode": {
            "post": {
                "tags": [
                    "admin"
                ],
                "summary": "Geocode offices",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK"
                    },
                    "401": {
                        "description": "Invalid admin key"
                    }
                },
                "security": [
                    {
                        "AdminKey": []
                    }
                ],
                "parameters": [
                    {
                        "in": "query",
                        "name": "force",
                        "type": "boolean"
                    }
                ]
            }
        },
        "/api/admin/reset": {
            "post": {
                "tags": [
                    "admin"
                ],
                "summary": "Reset all routing state",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK"
                    },
                    "401": {
                        "description": "Invalid admin key"
                    }
                },
                "security": [
                    {
                        "AdminKey": []
                    }
                ]
            }
        }
    },
    "definitions": {
        "handlers.TicketRequest": {
            "type": "object",
            "properties": {
                "id": {
                    "type": "string"
                },
                "guid": {
                    "type": "string"
                },
                "segment": {
                    "type": "string",
                    "enum": [
                        "Mass",
                        "VIP",
                        "Priority"
                    ]
                },
                "country": {
                    "type": "string"
                },
                "region": {
                    "type": "string"
                },
                "city": {
                    "type": "string"
                },
                "street": {
                    "type": "string"
                },
                "building": {
                    "type": "string"
                },
                "description": {
                    "type": "string"
                },
                "attachment": {
                    "type": "string"
                },
                "created_at": {
                    "type": "string",
                    "format": "date-time"
                }
            },
            "required": [
                "id"
            ]
        },
        "handlers.TicketBatchRequest": {
            "type": "object",
            "properties": {
                "tickets": {
                    "type": "array",
                    "items": {
                        "$ref": "#/definitions/handlers.TicketRequest"
                    }
                }
            },
            "required": [
                "tickets"
            ]
        },
        "handlers.ClassificationRequest": {
            "type": "object",
            "properties": {
                "type": {
                    "type": "string"
                },
                "sentiment": {
                    "type": "string"
                },
                "priority": {
                    "type": "integer"
                },
                "language": {
                    "type": "string"
                },
                "summary": {
                    "type": "string"
                },
                "recommendation": {
                    "type": "string"
                },
                "latitude": {
                    "type": "number"
                },
                "longitude": {
                    "type": "number"
                }
            },
            "required": [
                "type"
            ]
        },
        "handlers.RouteRequest": {
            "type": "object",
            "properties": {
                "ticket": {
                    "$ref": "#/definitions/handlers.TicketRequest"
                },
                "classification": {
                    "$ref": "#/definitions/handlers.ClassificationRequest"
                }
            }
        },
        "handlers.OfficeRequest": {
            "type": "object",
            "properties": {
                "id": {
                    "type": "string"
                },
                "name": {
                    "type": "string"
                },
                "address": {
                    "type": "string"
                },
                "latitude": {
                    "type": "number"
                },
                "longitude": {
                    "type": "number"
                }
            },
            "required": [
                "id",
                "name"
            ]
        },
        "handlers.OfficeBatchRequest": {
            "type": "object",
            "properties": {
                "offices": {
                    "type": "array",
                    "items": {
                        "$ref": "#/definitions/handlers.OfficeRequest"
                    }
                }
            },
            "required": [
                "offices"
            ]
        },
        "handlers.ManagerRequest": {
            "type": "object",
            "properties": {
                "id": {
                    "type": "string"
                },
                "full_name": {
                    "type": "string"
                },
                "position": {
                    "type": "string"
                },
                "office_id": {
                    "type": "string"
                },
                "skills": {
                    "type": "array",
                    "items": {
                        "type": "string"
                    }
                },
                "workload": {
                    "type": "integer"
                }
            },
            "required": [
                "id",
                "full_name",
                "position",
                "office_id"
            ]
        },
        "handlers.ManagerBatchRequest": {
            "type": "object",
            "properties": {
                "managers": {
                    "type": "array",
                    "items": {
                        "$ref": "#/definitions/handlers.ManagerRequest"
                    }
                }
            },
            "required": [
                "managers"
            ]
        }
    }
}`

func init() {
	swag.Register(swag.Name, &s{})
}

type s struct{}

func (s *s) ReadDoc() string {
	return docTemplate
}
