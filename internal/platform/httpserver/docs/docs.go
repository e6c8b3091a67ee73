// Package docs registers the Swagger document served under /swagger/.
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
        "/v1/cases": {
            "post": {
                "tags": [
                    "cases"
                ],
                "summary": "File a case",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK"
                    }
                },
                "consumes": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "type": "string",
                        "name": "X-User-Id",
                        "in": "header",
                        "required": true
                    }
                ]
            },
            "get": {
                "tags": [
                    "cases"
                ],
                "summary": "List cases",
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
        "/v1/cases/{case_id}": {
            "get": {
                "tags": [
                    "cases"
                ],
                "summary": "Get a case",
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
                        "type": "string",
                        "name": "case_id",
                        "in": "path",
                        "required": true
                    }
                ]
            }
        },
        "/v1/cases/{case_id}/history": {
            "get": {
                "tags": [
                    "cases"
                ],
                "summary": "Case status history",
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
                        "type": "string",
                        "name": "case_id",
                        "in": "path",
                        "required": true
                    }
                ]
            }
        },
        "/v1/cases/{case_id}/admissibility-review": {
            "post": {
                "tags": [
                    "cases"
                ],
                "summary": "Assign relator and begin admissibility review",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK"
                    }
                },
                "consumes": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "type": "string",
                        "name": "case_id",
                        "in": "path",
                        "required": true
                    },
                    {
                        "type": "string",
                        "name": "X-User-Id",
                        "in": "header",
                        "required": true
                    }
                ]
            }
        },
        "/v1/cases/{case_id}/admissibility": {
            "post": {
                "tags": [
                    "cases"
                ],
                "summary": "Admit or reject a case",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK"
                    }
                },
                "consumes": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "type": "string",
                        "name": "case_id",
                        "in": "path",
                        "required": true
                    },
                    {
                        "type": "string",
                        "name": "X-User-Id",
                        "in": "header",
                        "required": true
                    }
                ]
            }
        },
        "/v1/cases/{case_id}/defense-period": {
            "post": {
                "tags": [
                    "cases"
                ],
                "summary": "Open the defense period",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK"
                    }
                },
                "consumes": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "type": "string",
                        "name": "case_id",
                        "in": "path",
                        "required": true
                    },
                    {
                        "type": "string",
                        "name": "X-User-Id",
                        "in": "header",
                        "required": true
                    }
                ]
            }
        },
        "/v1/cases/{case_id}/evidence-period": {
            "post": {
                "tags": [
                    "cases"
                ],
                "summary": "Open the evidence period",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK"
                    }
                },
                "consumes": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "type": "string",
                        "name": "case_id",
                        "in": "path",
                        "required": true
                    },
                    {
                        "type": "string",
                        "name": "X-User-Id",
                        "in": "header",
                        "required": true
                    }
                ]
            }
        },
        "/v1/cases/{case_id}/judgment": {
            "post": {
                "tags": [
                    "cases"
                ],
                "summary": "Send a case to judgment",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK"
                    }
                },
                "consumes": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "type": "string",
                        "name": "case_id",
                        "in": "path",
                        "required": true
                    },
                    {
                        "type": "string",
                        "name": "X-User-Id",
                        "in": "header",
                        "required": true
                    }
                ]
            }
        },
        "/v1/cases/{case_id}/close": {
            "post": {
                "tags": [
                    "cases"
                ],
                "summary": "Close a case",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK"
                    }
                },
                "consumes": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "type": "string",
                        "name": "case_id",
                        "in": "path",
                        "required": true
                    },
                    {
                        "type": "string",
                        "name": "X-User-Id",
                        "in": "header",
                        "required": true
                    }
                ]
            }
        },
        "/v1/cases/{case_id}/archive": {
            "post": {
                "tags": [
                    "cases"
                ],
                "summary": "Archive a closed case",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK"
                    }
                },
                "consumes": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "type": "string",
                        "name": "case_id",
                        "in": "path",
                        "required": true
                    },
                    {
                        "type": "string",
                        "name": "X-User-Id",
                        "in": "header",
                        "required": true
                    }
                ]
            }
        },
        "/v1/cases/{case_id}/submissions": {
            "post": {
                "tags": [
                    "cases"
                ],
                "summary": "Record a party submission",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK"
                    }
                },
                "consumes": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "type": "string",
                        "name": "case_id",
                        "in": "path",
                        "required": true
                    },
                    {
                        "type": "string",
                        "name": "X-User-Id",
                        "in": "header",
                        "required": true
                    }
                ]
            },
            "get": {
                "tags": [
                    "cases"
                ],
                "summary": "List submissions",
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
                        "type": "string",
                        "name": "case_id",
                        "in": "path",
                        "required": true
                    }
                ]
            }
        },
        "/v1/cases/{case_id}/deadlines": {
            "get": {
                "tags": [
                    "cases"
                ],
                "summary": "List deadline windows",
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
                        "type": "string",
                        "name": "case_id",
                        "in": "path",
                        "required": true
                    }
                ]
            }
        },
        "/v1/cases/{case_id}/deadlines/extend": {
            "post": {
                "tags": [
                    "cases"
                ],
                "summary": "Extend a deadline window",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK"
                    }
                },
                "consumes": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "type": "string",
                        "name": "case_id",
                        "in": "path",
                        "required": true
                    },
                    {
                        "type": "string",
                        "name": "X-User-Id",
                        "in": "header",
                        "required": true
                    }
                ]
            }
        },
        "/v1/judgments/{judgment_id}": {
            "get": {
                "tags": [
                    "judgments"
                ],
                "summary": "Get a judgment with votes",
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
                        "type": "string",
                        "name": "judgment_id",
                        "in": "path",
                        "required": true
                    }
                ]
            }
        },
        "/v1/judgments/{judgment_id}/opinion": {
            "post": {
                "tags": [
                    "judgments"
                ],
                "summary": "Record the relator's opinion",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK"
                    }
                },
                "consumes": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "type": "string",
                        "name": "judgment_id",
                        "in": "path",
                        "required": true
                    },
                    {
                        "type": "string",
                        "name": "X-User-Id",
                        "in": "header",
                        "required": true
                    }
                ]
            }
        },
        "/v1/judgments/{judgment_id}/votes": {
            "post": {
                "tags": [
                    "judgments"
                ],
                "summary": "Cast a committee vote",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK"
                    }
                },
                "consumes": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "type": "string",
                        "name": "judgment_id",
                        "in": "path",
                        "required": true
                    },
                    {
                        "type": "string",
                        "name": "X-User-Id",
                        "in": "header",
                        "required": true
                    }
                ]
            }
        },
        "/v1/judgments/{judgment_id}/close": {
            "post": {
                "tags": [
                    "judgments"
                ],
                "summary": "Close voting",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK"
                    }
                },
                "consumes": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "type": "string",
                        "name": "judgment_id",
                        "in": "path",
                        "required": true
                    },
                    {
                        "type": "string",
                        "name": "X-User-Id",
                        "in": "header",
                        "required": true
                    }
                ]
            }
        },
        "/v1/judgments/{judgment_id}/publish": {
            "post": {
                "tags": [
                    "judgments"
                ],
                "summary": "Publish a judgment",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK"
                    }
                },
                "consumes": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "type": "string",
                        "name": "judgment_id",
                        "in": "path",
                        "required": true
                    },
                    {
                        "type": "string",
                        "name": "X-User-Id",
                        "in": "header",
                        "required": true
                    }
                ]
            }
        },
        "/v1/judgments/{judgment_id}/appeals": {
            "post": {
                "tags": [
                    "judgments"
                ],
                "summary": "File an appeal",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK"
                    }
                },
                "consumes": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "type": "string",
                        "name": "judgment_id",
                        "in": "path",
                        "required": true
                    },
                    {
                        "type": "string",
                        "name": "X-User-Id",
                        "in": "header",
                        "required": true
                    }
                ]
            }
        },
        "/v1/tally/slates": {
            "post": {
                "tags": [
                    "tally"
                ],
                "summary": "Register a slate",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK"
                    }
                },
                "consumes": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "type": "string",
                        "name": "X-User-Id",
                        "in": "header",
                        "required": true
                    }
                ]
            },
            "get": {
                "tags": [
                    "tally"
                ],
                "summary": "List slates of a scope",
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
        "/v1/tally/slates/{slate_id}/disqualify": {
            "post": {
                "tags": [
                    "tally"
                ],
                "summary": "Disqualify a slate",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK"
                    }
                },
                "consumes": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "type": "string",
                        "name": "slate_id",
                        "in": "path",
                        "required": true
                    },
                    {
                        "type": "string",
                        "name": "X-User-Id",
                        "in": "header",
                        "required": true
                    }
                ]
            }
        },
        "/v1/tally/sections": {
            "post": {
                "tags": [
                    "tally"
                ],
                "summary": "Register an expected section",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK"
                    }
                },
                "consumes": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "type": "string",
                        "name": "X-User-Id",
                        "in": "header",
                        "required": true
                    }
                ]
            }
        },
        "/v1/tally/sections/{section_id}/reports": {
            "post": {
                "tags": [
                    "tally"
                ],
                "summary": "Report section counts",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK"
                    }
                },
                "consumes": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "type": "string",
                        "name": "section_id",
                        "in": "path",
                        "required": true
                    },
                    {
                        "type": "string",
                        "name": "X-User-Id",
                        "in": "header",
                        "required": true
                    }
                ]
            }
        },
        "/v1/tally/ballots": {
            "post": {
                "tags": [
                    "tally"
                ],
                "summary": "Accept a ballot",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK"
                    }
                },
                "consumes": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "type": "string",
                        "name": "X-User-Id",
                        "in": "header",
                        "required": true
                    }
                ]
            }
        },
        "/v1/tally/ballots/{ballot_id}": {
            "get": {
                "tags": [
                    "tally"
                ],
                "summary": "Get a ballot",
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
                        "type": "string",
                        "name": "ballot_id",
                        "in": "path",
                        "required": true
                    }
                ]
            }
        },
        "/v1/tally/ballots/{ballot_id}/annul": {
            "post": {
                "tags": [
                    "tally"
                ],
                "summary": "Annul a ballot",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK"
                    }
                },
                "consumes": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "type": "string",
                        "name": "ballot_id",
                        "in": "path",
                        "required": true
                    },
                    {
                        "type": "string",
                        "name": "X-User-Id",
                        "in": "header",
                        "required": true
                    }
                ]
            }
        },
        "/v1/tally/annulments": {
            "get": {
                "tags": [
                    "tally"
                ],
                "summary": "List annulments",
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
        "/v1/tally/ballots/{ballot_id}/reinstate": {
            "post": {
                "tags": [
                    "tally"
                ],
                "summary": "Reverse a ballot annulment",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK"
                    }
                },
                "consumes": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "type": "string",
                        "name": "ballot_id",
                        "in": "path",
                        "required": true
                    },
                    {
                        "type": "string",
                        "name": "X-User-Id",
                        "in": "header",
                        "required": true
                    }
                ]
            }
        },
        "/v1/tally/reinstatements": {
            "get": {
                "tags": [
                    "tally"
                ],
                "summary": "List reinstatements",
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
        "/v1/tally/snapshots": {
            "post": {
                "tags": [
                    "tally"
                ],
                "summary": "Compute a snapshot",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK"
                    }
                },
                "consumes": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "type": "string",
                        "name": "X-User-Id",
                        "in": "header",
                        "required": true
                    }
                ]
            },
            "get": {
                "tags": [
                    "tally"
                ],
                "summary": "List snapshots",
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
        "/v1/tally/snapshots/latest": {
            "get": {
                "tags": [
                    "tally"
                ],
                "summary": "Latest snapshot of a scope",
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
        "/v1/tally/snapshots/{snapshot_id}": {
            "get": {
                "tags": [
                    "tally"
                ],
                "summary": "Get a snapshot",
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
                        "type": "string",
                        "name": "snapshot_id",
                        "in": "path",
                        "required": true
                    }
                ]
            }
        },
        "/v1/tally/snapshots/{snapshot_id}/homologate": {
            "post": {
                "tags": [
                    "tally"
                ],
                "summary": "Homologate a final snapshot",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK"
                    }
                },
                "consumes": [
                    "application/json"
                ],
                "parameters": [
                    {
                        "type": "string",
                        "name": "snapshot_id",
                        "in": "path",
                        "required": true
                    },
                    {
                        "type": "string",
                        "name": "X-User-Id",
                        "in": "header",
                        "required": true
                    }
                ]
            }
        },
        "/v1/tally/chain": {
            "get": {
                "tags": [
                    "tally"
                ],
                "summary": "Verify the snapshot chain",
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
        "/v1/tally/status": {
            "get": {
                "tags": [
                    "tally"
                ],
                "summary": "Scope status",
                "produces": [
                    "application/json"
                ],
                "responses": {
                    "200": {
                        "description": "OK"
                    }
                }
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Eleitoral API",
	Description:      "Electoral adjudication cases and ballot tabulation.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
