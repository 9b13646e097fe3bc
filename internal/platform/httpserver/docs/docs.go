// Package docs holds the generated swagger document served at /swagger/.
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
        "/v1/ledger/identifiers": {
            "post": {
                "summary": "Register an identifier",
                "responses": {"200": {"description": "OK"}, "409": {"description": "already registered"}}
            }
        },
        "/v1/ledger/identifiers/{identifier}/rules": {
            "put": {
                "summary": "Replace the forwarding rule set",
                "responses": {"200": {"description": "OK"}, "422": {"description": "invalid rule set"}}
            },
            "get": {
                "summary": "Read the forwarding rule set",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/v1/ledger/identifiers/{identifier}/donations": {
            "post": {
                "summary": "Donate against an identifier",
                "responses": {"200": {"description": "OK"}, "402": {"description": "transfer failed"}}
            }
        },
        "/v1/ledger/identifiers/{identifier}/distributions": {
            "post": {
                "summary": "Distribute the identifier's pool one hop",
                "responses": {"200": {"description": "OK"}, "409": {"description": "nothing to distribute"}}
            }
        },
        "/v1/ledger/identifiers/{identifier}/claims": {
            "post": {
                "summary": "Claim the owner's unclaimed remainder",
                "responses": {"200": {"description": "amount claimed"}, "403": {"description": "not owner"}}
            }
        },
        "/v1/aliases": {
            "post": {
                "summary": "Bind a nickname to the caller",
                "responses": {"200": {"description": "OK"}, "409": {"description": "nickname taken"}}
            }
        }
    }
}`

var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Cascade Distribution Ledger API",
	Description:      "Cascading-donation ledger: registration, forwarding rules, donations, distribution and claims.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
