package handlers

import (
	"net/http"

	"github.com/upb/hue-gateway/utils"
)

// ProtectedResourceMetadata tells clients which authorization server issues
// tokens for this gateway.
type ProtectedResourceMetadata struct {
	Issuer              string            `json:"issuer"`
	AuthorizationServer string            `json:"authorization_server"`
	Resource            string            `json:"resource"`
	Scopes              map[string]string `json:"scopes"`
}

// NewProtectedResourceMetadata describes a resource protected by issuer
func NewProtectedResourceMetadata(issuer, resource string) ProtectedResourceMetadata {
	return ProtectedResourceMetadata{
		Issuer:              issuer,
		AuthorizationServer: issuer,
		Resource:            resource,
		Scopes: map[string]string{
			"openid": "Basic identity",
			"email":  "User email",
		},
	}
}

// OAuthMetadataHandler handles GET /.well-known/oauth-protected-resource
func OAuthMetadataHandler(meta ProtectedResourceMetadata) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteOK(w, meta)
	}
}

// ProbeHandler handles GET /mcp/ so clients can check connectivity before
// authenticating
func ProbeHandler(w http.ResponseWriter, r *http.Request) {
	_ = utils.WriteOK(w, map[string]bool{"ok": true})
}
